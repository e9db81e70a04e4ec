// Package console adapts byte streams to the cmdproc.IO callback set. The
// processor itself never blocks, so each adapter runs a small pump
// goroutine that moves bytes from the underlying reader into a buffered
// channel; DataAvailable is then a channel length check.
package console

import (
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/term"

	"sagitta/cmdproc"
)

// Stdio drives a processor from a local terminal. When the input file is a
// terminal it is switched to raw mode so that keystrokes (including the
// arrow-key escape sequences) arrive one byte at a time; Close restores the
// previous state.
type Stdio struct {
	in, out  *os.File
	oldState *term.State
	ch       chan byte
	closed   atomic.Bool
}

func NewStdio(in, out *os.File) (*Stdio, error) {
	s := &Stdio{in: in, out: out, ch: make(chan byte, 256)}
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		st, err := term.MakeRaw(fd)
		if err != nil {
			return nil, fmt.Errorf("failed to set raw mode: %w", err)
		}
		s.oldState = st
	}
	go s.pump()
	return s, nil
}

func (s *Stdio) pump() {
	buf := make([]byte, 1)
	for {
		n, err := s.in.Read(buf)
		if n == 1 {
			s.ch <- buf[0]
		}
		if err != nil {
			s.closed.Store(true)
			close(s.ch)
			return
		}
	}
}

// EOF reports that the input stream ended and every buffered byte has been
// consumed. The host loop uses this to stop polling a dead console.
func (s *Stdio) EOF() bool {
	return s.closed.Load() && len(s.ch) == 0
}

// IO exposes the terminal as the processor's callback set.
func (s *Stdio) IO() cmdproc.IO {
	return cmdproc.IO{
		DataAvailable: func() bool { return len(s.ch) > 0 },
		ReadChar: func() int {
			b, ok := <-s.ch
			if !ok {
				return -1
			}
			return int(b)
		},
		WriteChar: func(ch int) int {
			n, _ := s.out.Write([]byte{byte(ch)})
			return n
		},
		WriteLine: func(line string) int {
			n, _ := s.out.WriteString(line + "\r\n")
			return n
		},
	}
}

// Close restores the terminal state captured by NewStdio.
func (s *Stdio) Close() error {
	if s.oldState != nil {
		return term.Restore(int(s.in.Fd()), s.oldState)
	}
	return nil
}
