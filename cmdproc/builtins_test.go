package cmdproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystemProcessor(t *testing.T, f *fakeIO, flags Flags, cmds ...*Command) *Processor {
	t.Helper()
	p, err := Init(nil, flags|EnableSystem, 80, 5, f.io())
	require.NoError(t, err)
	for _, c := range cmds {
		require.NoError(t, p.Add(c))
	}
	return p
}

func TestHelpListsVisibleCommandsPadded(t *testing.T) {
	f := &fakeIO{}
	p := newSystemProcessor(t, f, EchoOn, named("Ls"))

	f.feed("Help\r")
	run(t, p, f)

	joined := strings.Join(f.lines, "\n")
	assert.Contains(t, joined, " Help   : ")
	assert.Contains(t, joined, " History: ")
	assert.Contains(t, joined, " Echo   : ")
	assert.Contains(t, joined, " Ls     : Ls help")
	assert.NotContains(t, joined, "?:", "the ? alias stays out of the listing")
}

func TestQuestionMarkAliasesHelp(t *testing.T) {
	f := &fakeIO{}
	p := newSystemProcessor(t, f, EchoOn)

	f.feed("?\r")
	run(t, p, f)
	assert.Contains(t, strings.Join(f.lines, "\n"), " Help   : ")
}

func TestHistoryCommandShowsRelativeIndices(t *testing.T) {
	f := &fakeIO{}
	p := newSystemProcessor(t, f, EchoOn, named("Alpha"), named("Beta"))

	f.feed("Alpha\rBeta\rHistory\r")
	run(t, p, f)

	joined := strings.Join(f.lines, "\n")
	assert.Contains(t, joined, "  -2: Alpha")
	assert.Contains(t, joined, "  -1: Beta")
	// Index 0 is the line being executed right now.
	assert.Contains(t, joined, "   0: History")
}

func TestEchoCommandTogglesAndReports(t *testing.T) {
	f := &fakeIO{}
	p := newSystemProcessor(t, f, EchoOn|CaseInsensitive)

	f.feed("Echo off\r")
	run(t, p, f)
	assert.False(t, p.echo)
	assert.Contains(t, f.lines[len(f.lines)-1], "Echo is off")

	// Characters typed while echo is off are processed but not echoed.
	before := f.out.Len()
	f.feed("Echo")
	run(t, p, f)
	assert.Equal(t, "Echo", string(p.buf))
	assert.Equal(t, before, f.out.Len())

	f.feed(" on\r")
	run(t, p, f)
	assert.True(t, p.echo)
	assert.Contains(t, f.lines[len(f.lines)-1], "Echo is on")
}

func TestEchoCommandAcceptsNumericForms(t *testing.T) {
	f := &fakeIO{}
	p := newSystemProcessor(t, f, EchoOn)

	f.feed("Echo 0\r")
	run(t, p, f)
	assert.False(t, p.echo)

	f.feed("Echo 1\r")
	run(t, p, f)
	assert.True(t, p.echo)
}

func TestEchoCommandWithoutArgsReportsOnly(t *testing.T) {
	f := &fakeIO{}
	p := newSystemProcessor(t, f, EchoOn)

	f.feed("Echo\r")
	run(t, p, f)
	assert.True(t, p.echo)
	assert.Contains(t, f.lines[len(f.lines)-1], "Echo is on")
}

func TestExitCommandSaysGoodbye(t *testing.T) {
	f := &fakeIO{}
	p, err := Init(nil, EnableSystem|EnableTerminate|EchoOn, 80, 5, f.io())
	require.NoError(t, err)

	f.feed("Exit\r")
	r := run(t, p, f)
	assert.Equal(t, RunExit, r)
	assert.Contains(t, f.lines[len(f.lines)-1], "bye.")
}

func TestTerminateFlagControlsExitRegistration(t *testing.T) {
	f := &fakeIO{}
	p, err := Init(nil, EnableSystem|EchoOn, 80, 5, f.io())
	require.NoError(t, err)

	// Without the terminate capability, Exit doesn't exist. Type by direct
	// buffer load since the per-character guard would refuse the 'x'.
	p.buf = append(p.buf[:0], "Exit"...)
	f.feed("\r")
	run(t, p, f)
	assert.Contains(t, f.lines[len(f.lines)-1], "huh?")
}
