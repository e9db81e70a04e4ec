package cmdproc

import (
	"bytes"
	"testing"
)

// fakeIO is a scripted console: queued input bytes in, recorded output out.
// It implements the non-blocking contract exactly: DataAvailable reports
// whether a byte is queued and ReadChar pops one.
type fakeIO struct {
	input []byte
	out   bytes.Buffer
	lines []string
}

func (f *fakeIO) io() IO {
	return IO{
		DataAvailable: func() bool { return len(f.input) > 0 },
		ReadChar: func() int {
			c := f.input[0]
			f.input = f.input[1:]
			return int(c)
		},
		WriteChar: func(ch int) int {
			f.out.WriteByte(byte(ch))
			return 1
		},
		WriteLine: func(s string) int {
			f.lines = append(f.lines, s)
			f.out.WriteString(s + "\r\n")
			return len(s) + 2
		},
	}
}

func (f *fakeIO) feed(s string) {
	f.input = append(f.input, s...)
}

func (f *fakeIO) bells() int {
	return bytes.Count(f.out.Bytes(), []byte{charBell})
}

// run polls the processor until the scripted input is drained, returning
// the verdict of the tick that consumed the last byte.
func run(t *testing.T, p *Processor, f *fakeIO) RunResult {
	t.Helper()
	r := RunOK
	for i := 0; i < 10000; i++ {
		r = p.Run()
		if r == RunExit || len(f.input) == 0 {
			return r
		}
	}
	t.Fatal("input never drained")
	return r
}

// newTestProcessor builds a processor with no builtins and echo on, plus
// the given extra commands.
func newTestProcessor(t *testing.T, f *fakeIO, flags Flags, cmds ...*Command) *Processor {
	t.Helper()
	p, err := Init(nil, flags, 80, 5, f.io())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	for _, c := range cmds {
		if err := p.Add(c); err != nil {
			t.Fatalf("Add(%q) failed: %v", c.Name, err)
		}
	}
	return p
}

func noop(args string) RunResult { return RunOK }

func named(name string) *Command {
	return &Command{Name: name, Help: name + " help", Handler: noop, Visible: true}
}
