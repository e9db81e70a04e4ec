package cmdproc

import (
	"fmt"

	"github.com/mattn/go-runewidth"
)

// systemCommands builds the Help, ?, History and Echo builtins. They are
// ordinary commands owned by the processor; the registration order matters
// because it is the tie-break for names sharing a prefix.
func (p *Processor) systemCommands() []*Command {
	return []*Command{
		{Name: "?", Help: "Shows this help, '? ?' shows more details.", Handler: p.helpCmd, Visible: false},
		{Name: "Help", Help: "Help or '?' shows this help, 'Help ?' shows more details.", Handler: p.helpCmd, Visible: true},
		{Name: "History", Help: "Show command history", Handler: p.historyCmd, Visible: true},
		{Name: "Echo", Help: "Echo [1|on|0|off] turns echo on or off.", Handler: p.echoCmd, Visible: true},
	}
}

func (p *Processor) exitCommand() *Command {
	return &Command{Name: "Exit", Help: "Exits the program", Handler: p.exitCmd, Visible: true}
}

// helpCmd lists every visible command, names padded to the longest
// registered name so the help text lines up.
func (p *Processor) helpCmd(args string) RunResult {
	p.io.WriteLine("")
	for _, c := range p.commands {
		if !c.Visible {
			continue
		}
		p.io.WriteLine(fmt.Sprintf(" %s: %s", runewidth.FillRight(c.Name, p.longestName), c.Help))
	}
	p.io.WriteLine("")
	return RunOK
}

// historyCmd dumps the ring oldest to newest with relative negative
// indices; index 0 is the live buffer, which at this point holds the
// History command line itself.
func (p *Processor) historyCmd(args string) RunResult {
	p.io.WriteLine("")
	n := p.hist.len()
	for i := 0; i < n; i++ {
		p.io.WriteLine(fmt.Sprintf("  %2d: %s", i-n, p.hist.at(i)))
	}
	p.io.WriteLine(fmt.Sprintf("  %2d: %s", 0, string(p.buf)))
	return RunOK
}

// echoCmd reports the echo state, optionally setting it first from
// "1"/"on" or "0"/"off".
func (p *Processor) echoCmd(args string) RunResult {
	if args != "" {
		if args[0] == '1' || compareN(args, "on", 2, true) == 0 {
			p.Echo(true)
		}
		if args[0] == '0' || compareN(args, "off", 3, true) == 0 {
			p.Echo(false)
		}
	}
	if p.echo {
		p.io.WriteLine("\r\nEcho is on")
	} else {
		p.io.WriteLine("\r\nEcho is off")
	}
	return RunOK
}

func (p *Processor) exitCmd(args string) RunResult {
	p.io.WriteLine("\r\nbye.")
	return RunExit
}
