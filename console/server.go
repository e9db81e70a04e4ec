package console

import (
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"sagitta/cmdproc"
	"sagitta/log"
)

// telnet protocol bytes for character-at-a-time negotiation.
const (
	telnetIAC           = 0xFF
	telnetWill          = 0xFB
	telnetWont          = 0xFC
	telnetDo            = 0xFD
	telnetDont          = 0xFE
	telnetSB            = 0xFA
	telnetSE            = 0xF0
	telnetOptEcho       = 0x01
	telnetOptSuppressGA = 0x03
	connReadBuffer      = 256
	defaultServerPoll   = 5 * time.Millisecond
)

// ProcessorFactory builds a fresh processor for each accepted connection,
// so every remote console gets its own registry, buffer and history.
type ProcessorFactory func(io cmdproc.IO) (*cmdproc.Processor, error)

// Server exposes a processor over TCP, standing in for the serial link the
// gauge hardware uses. Each connection is negotiated into telnet character
// mode and polled with the same non-blocking cadence as a local console.
type Server struct {
	addr    string
	poll    time.Duration
	factory ProcessorFactory

	ln   net.Listener
	quit chan struct{}
	wg   sync.WaitGroup
}

func NewServer(addr string, poll time.Duration, factory ProcessorFactory) *Server {
	if poll <= 0 {
		poll = defaultServerPoll
	}
	return &Server{
		addr:    addr,
		poll:    poll,
		factory: factory,
		quit:    make(chan struct{}),
	}
}

// Start begins accepting connections. It returns once the listener is up;
// connection handling runs in the background until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("console server listen on %s: %w", s.addr, err)
	}
	s.ln = ln
	log.InfoLog.Printf("console server listening on %s", ln.Addr())

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Stop closes the listener and waits for connection handlers to drain.
func (s *Server) Stop() {
	close(s.quit)
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			log.WarningLog.Printf("console accept: %v", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	log.InfoLog.Printf("console session from %s", conn.RemoteAddr())

	negotiateCharacterMode(conn)

	c := newConnIO(conn)
	proc, err := s.factory(c.IO())
	if err != nil {
		log.ErrorLog.Printf("console session setup: %v", err)
		return
	}
	defer proc.End()

	for {
		select {
		case <-s.quit:
			return
		default:
		}
		if proc.Run() == cmdproc.RunExit {
			return
		}
		if c.EOF() {
			return
		}
		if len(c.ch) == 0 {
			time.Sleep(s.poll)
		}
	}
}

// negotiateCharacterMode asks the telnet client to send keystrokes as they
// are typed and to let the server own echoing: IAC WILL ECHO, IAC DO
// SUPPRESS-GO-AHEAD, IAC WILL SUPPRESS-GO-AHEAD.
func negotiateCharacterMode(w io.Writer) {
	_, _ = w.Write([]byte{
		telnetIAC, telnetWill, telnetOptEcho,
		telnetIAC, telnetDo, telnetOptSuppressGA,
		telnetIAC, telnetWill, telnetOptSuppressGA,
	})
}

// connIO pumps a net.Conn into a byte channel, dropping telnet IAC command
// sequences so the processor only ever sees user keystrokes.
type connIO struct {
	conn   net.Conn
	ch     chan byte
	closed atomic.Bool
}

func newConnIO(conn net.Conn) *connIO {
	c := &connIO{conn: conn, ch: make(chan byte, connReadBuffer)}
	go c.pump()
	return c
}

// telnetState tracks where the pump is inside a telnet command so that
// option negotiations (3 bytes), two-byte commands, IAC IAC escapes and
// SB...SE subnegotiations are all consumed correctly.
type telnetState int

const (
	telnetPlain telnetState = iota
	telnetGotIAC
	telnetGotOption
	telnetInSubneg
	telnetInSubnegIAC
)

func (c *connIO) pump() {
	buf := make([]byte, connReadBuffer)
	state := telnetPlain
	for {
		n, err := c.conn.Read(buf)
		for _, b := range buf[:n] {
			switch state {
			case telnetPlain:
				if b == telnetIAC {
					state = telnetGotIAC
					continue
				}
				c.ch <- b
			case telnetGotIAC:
				switch b {
				case telnetIAC:
					// Escaped literal 0xFF data byte.
					c.ch <- b
					state = telnetPlain
				case telnetWill, telnetWont, telnetDo, telnetDont:
					state = telnetGotOption
				case telnetSB:
					state = telnetInSubneg
				default:
					// Two-byte command (NOP, GA, ...).
					state = telnetPlain
				}
			case telnetGotOption:
				state = telnetPlain
			case telnetInSubneg:
				if b == telnetIAC {
					state = telnetInSubnegIAC
				}
			case telnetInSubnegIAC:
				if b == telnetSE {
					state = telnetPlain
				} else {
					// IAC IAC inside a subnegotiation is escaped data.
					state = telnetInSubneg
				}
			}
		}
		if err != nil {
			c.closed.Store(true)
			close(c.ch)
			return
		}
	}
}

func (c *connIO) EOF() bool {
	return c.closed.Load() && len(c.ch) == 0
}

func (c *connIO) IO() cmdproc.IO {
	return cmdproc.IO{
		DataAvailable: func() bool { return len(c.ch) > 0 },
		ReadChar: func() int {
			b, ok := <-c.ch
			if !ok {
				return -1
			}
			return int(b)
		},
		WriteChar: func(ch int) int {
			n, _ := c.conn.Write([]byte{byte(ch)})
			return n
		},
		WriteLine: func(line string) int {
			n, _ := c.conn.Write([]byte(line + "\r\n"))
			return n
		},
	}
}
