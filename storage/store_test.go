package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "samples.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordFormat(t *testing.T) {
	s := Sample{Millis: 1234, Temp: 21.5, Pressure: 0.512}
	assert.Equal(t, "1234;21.500;0.512", s.Record())
}

func TestParseRecordRoundTrip(t *testing.T) {
	want := Sample{Millis: 98765, Temp: -3.25, Pressure: 0.125}
	got, err := ParseRecord(want.Record())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseRecordRejectsMalformedLines(t *testing.T) {
	for _, line := range []string{
		"",
		"1234",
		"1234;21.5",
		"1234;21.5;0.5;extra",
		"abc;21.5;0.5",
		"1234;hot;0.5",
		"1234;21.5;high",
	} {
		_, err := ParseRecord(line)
		assert.Error(t, err, "line %q", line)
	}
}

func TestAppendAndSamplesKeepInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	want := []Sample{
		{Millis: 0, Temp: 20.0, Pressure: 0.5},
		{Millis: 330, Temp: 20.125, Pressure: 0.498},
		{Millis: 660, Temp: 20.25, Pressure: 0.502},
	}
	for _, sample := range want {
		require.NoError(t, s.Append("default.csv", sample))
	}

	got, err := s.Samples("default.csv")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAppendRejectsEmptyLogName(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Append("", Sample{}))
}

func TestSamplesUnknownLog(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Samples("nowhere.csv")
	assert.Error(t, err)
}

func TestExportWritesCRLFLines(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append("run.csv", Sample{Millis: 10, Temp: 21.0, Pressure: 0.5}))
	require.NoError(t, s.Append("run.csv", Sample{Millis: 340, Temp: 21.5, Pressure: 0.51}))

	var buf bytes.Buffer
	require.NoError(t, s.Export("run.csv", &buf))
	assert.Equal(t, "10;21.000;0.500\r\n340;21.500;0.510\r\n", buf.String())
}

func TestExportUnknownLog(t *testing.T) {
	s := newTestStore(t)
	var buf bytes.Buffer
	assert.Error(t, s.Export("nowhere.csv", &buf))
}

func TestListCountsRecordsPerLog(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append("a.csv", Sample{Millis: 1}))
	require.NoError(t, s.Append("a.csv", Sample{Millis: 2}))
	require.NoError(t, s.Append("b.csv", Sample{Millis: 3}))

	infos, err := s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []LogInfo{
		{Name: "a.csv", Records: 2},
		{Name: "b.csv", Records: 1},
	}, infos)
}

func TestListEmptyStore(t *testing.T) {
	s := newTestStore(t)
	infos, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestSelfTestLeavesNoTrace(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append("keep.csv", Sample{Millis: 5, Temp: 1, Pressure: 0.25}))

	require.NoError(t, s.SelfTest())
	require.NoError(t, s.SelfTest(), "self test is repeatable")

	// Existing data survives the scratch write/delete cycle.
	got, err := s.Samples("keep.csv")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].Millis)
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening an existing file preserves its logs.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.List()
	assert.NoError(t, err)
}
