package cmdproc

import (
	"bytes"
	"fmt"
)

// Control characters and lead-in bytes recognized by the state machine.
const (
	charTab       = 0x09
	charBackspace = 0x08
	charDelete    = 0x7F
	charEscape    = 0x1B
	charBell      = 0x07

	// Two lead-in conventions for two-byte arrow sequences: VT100 sends
	// ESC [ A/B, DOS-style consoles send 0xE0 H/P.
	leadInVT100 = 0x5B
	leadInDOS   = 0xE0

	arrowUpVT100   = 0x41
	arrowDownVT100 = 0x42
	arrowUpDOS     = 0x48
	arrowDownDOS   = 0x50
)

const promptChar = '>'

// minLineLen is the floor applied to the configured line length. The
// original sizing convention was generous by one to absorb off-by-one
// buffer sizing in callers; the floor keeps that as an explicit minimum.
const minLineLen = 6

const (
	msgNonUnique = " *** non-unique command ignored      try 'Help' ***"
	msgNoMatch   = " *** huh?                            try 'Help' ***"
)

// Processor owns a command registry, the live edit buffer and the history
// ring, and turns a character stream into edited lines and dispatched
// commands. It is strictly single-owner: the registry, buffer and history
// may only be touched from the goroutine that calls Run.
type Processor struct {
	io              IO
	echo            bool
	caseInsensitive bool

	signOn    *Command
	signOnDue bool

	commands    []*Command
	longestName int

	buf     []byte
	maxLine int

	hist           *history
	whereInHistory int

	leadIn    bool
	promptDue bool
}

// Init builds a processor. signOn, when non-nil, is registered like any
// other command and additionally invoked once on the first call to Run.
// maxLineLen bounds the edit buffer (floored to a safe minimum) and
// historyDepth is the number of executed lines retained for recall.
func Init(signOn *Command, flags Flags, maxLineLen, historyDepth int, io IO) (*Processor, error) {
	if io.DataAvailable == nil || io.ReadChar == nil || io.WriteChar == nil || io.WriteLine == nil {
		return nil, fmt.Errorf("cmdproc: all four IO callbacks are required")
	}
	if maxLineLen < minLineLen {
		maxLineLen = minLineLen
	}

	p := &Processor{
		io:              io,
		echo:            flags&EchoOn != 0,
		caseInsensitive: flags&CaseInsensitive != 0,
		buf:             make([]byte, 0, maxLineLen),
		maxLine:         maxLineLen,
		hist:            newHistory(historyDepth),
		promptDue:       true,
	}

	if signOn != nil {
		if err := p.Add(signOn); err != nil {
			return nil, err
		}
		p.signOn = signOn
		p.signOnDue = true
	}
	if flags&EnableSystem != 0 {
		for _, c := range p.systemCommands() {
			if err := p.Add(c); err != nil {
				return nil, err
			}
		}
	}
	if flags&EnableTerminate != 0 {
		if err := p.Add(p.exitCommand()); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Run is the single-tick re-entry point. It emits the sign-on banner on the
// first call, redraws the prompt when one is due, consumes at most one
// pending input character and returns the verdict of the command dispatched
// on this tick, if any. It never blocks.
func (p *Processor) Run() RunResult {
	if p.signOnDue {
		p.signOnDue = false
		p.signOn.Handler("")
	}
	if p.promptDue && p.echo {
		p.io.WriteChar(promptChar)
		p.promptDue = false
	}
	if !p.io.DataAvailable() {
		return RunOK
	}
	c := p.io.ReadChar()
	if p.leadIn {
		c = p.processLeadIn(c)
	}
	return p.processChar(c)
}

// Echo turns input echo (and the prompt marker) on or off.
func (p *Processor) Echo(on bool) {
	p.echo = on
}

// End releases the registry, the edit buffer and the history ring. The
// processor must not be used afterwards; Run after End is not guarded.
func (p *Processor) End() {
	p.commands = nil
	p.buf = nil
	p.hist = nil
}

// processLeadIn interprets the byte following a lead-in as an arrow key.
// Up and down drive history recall; anything else is discarded. The
// returned character is fed back through processChar (0 for "handled",
// escape when walking up past the oldest entry).
func (p *Processor) processLeadIn(c int) int {
	defer func() { p.leadIn = false }()

	switch c {
	case arrowDownVT100, arrowDownDOS:
		// Toward the newest entry.
		if p.hist.len() > 0 && p.whereInHistory < p.hist.len() {
			p.recall(p.hist.at(p.whereInHistory))
			p.whereInHistory++
		}
		return 0
	case arrowUpVT100, arrowUpDOS:
		// Toward the oldest. Walking past it behaves like escape.
		p.whereInHistory--
		if p.hist.len() > 0 && p.whereInHistory >= 0 {
			p.recall(p.hist.at(p.whereInHistory))
			return 0
		}
		p.whereInHistory = 0
		return charEscape
	default:
		return 0
	}
}

// recall replaces the displayed line and the edit buffer with a history
// entry. The erase and re-echo happen in the same step so the display never
// disagrees with the buffer across polls.
func (p *Processor) recall(line string) {
	p.eraseChars(len(p.buf))
	p.buf = append(p.buf[:0], line...)
	p.echoString(line)
}

func (p *Processor) processChar(c int) RunResult {
	val := RunOK

	switch c {
	case 0:
		// Swallowed by lead-in handling.

	case leadInVT100, leadInDOS:
		p.leadIn = true

	case charTab:
		// Complete the buffer only when its content already identifies
		// exactly one command, and only with that command's missing suffix.
		if count, cmd, _ := p.matches(false); count == 1 {
			n := len(p.buf)
			if sp := bytes.IndexByte(p.buf, ' '); sp >= 0 {
				n = sp
			}
			if n < len(cmd.Name) && len(p.buf) < len(cmd.Name) {
				suffix := cmd.Name[len(p.buf):]
				if len(p.buf)+len(suffix) > p.maxLine {
					p.bell()
				} else {
					p.buf = append(p.buf, suffix...)
					p.echoString(suffix)
				}
			}
		}

	case charEscape:
		p.eraseChars(len(p.buf))
		p.buf = p.buf[:0]

	case charBackspace, charDelete:
		if len(p.buf) > 0 {
			p.buf = p.buf[:len(p.buf)-1]
			p.eraseChars(1)
		} else {
			p.bell()
		}

	case '\r', '\n':
		if len(p.buf) > 0 {
			count, cmd, args := p.matches(true)
			switch {
			case count == 1:
				val = cmd.Handler(args)
				p.hist.push(string(p.buf))
				p.whereInHistory = p.hist.len()
			case count > 1:
				p.io.WriteLine(msgNonUnique)
			default:
				p.io.WriteLine(msgNoMatch)
			}
		} else {
			p.io.WriteLine("")
		}
		p.buf = p.buf[:0]
		p.promptDue = true

	default:
		// A speculative append: the character is kept only if the buffer
		// still prefixes at least one registered command.
		if isPrint(c) && len(p.buf) < p.maxLine {
			p.buf = append(p.buf, byte(c))
			if count, _, _ := p.matches(false); count > 0 {
				p.echoChar(c)
			} else {
				p.buf = p.buf[:len(p.buf)-1]
				p.bell()
			}
		} else {
			p.bell()
		}
	}
	return val
}

// eraseChars backs out n displayed characters with bs-space-bs.
func (p *Processor) eraseChars(n int) {
	if !p.echo {
		return
	}
	for ; n > 0; n-- {
		p.io.WriteChar(charBackspace)
		p.io.WriteChar(' ')
		p.io.WriteChar(charBackspace)
	}
}

func (p *Processor) echoString(s string) {
	if !p.echo {
		return
	}
	for i := 0; i < len(s); i++ {
		p.io.WriteChar(int(s[i]))
	}
}

func (p *Processor) echoChar(c int) {
	if p.echo {
		p.io.WriteChar(c)
	}
}

// bell is the rejection signal: invalid characters, a full buffer and
// backspacing an empty line all alert rather than silently dropping input.
func (p *Processor) bell() {
	p.io.WriteChar(charBell)
}

func isPrint(c int) bool {
	return c >= ' ' && c <= '~'
}
