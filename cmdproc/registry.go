package cmdproc

import (
	"fmt"
	"strings"
)

// Add registers a command. The registry is kept sorted by name using a
// case-insensitive comparison bounded by the new name's length, so a name
// that is a strict prefix of an existing name compares equal to it and is
// inserted in front. This insertion-order-dependent tie-break is load
// bearing: it fixes both the Help listing order and which entry a prefix
// scan records last.
func (p *Processor) Add(c *Command) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("cmdproc: command must have a name")
	}
	if strings.ContainsAny(c.Name, " \t") {
		return fmt.Errorf("cmdproc: command name %q contains whitespace", c.Name)
	}
	if c.Handler == nil {
		return fmt.Errorf("cmdproc: command %q has no handler", c.Name)
	}

	if len(c.Name) > p.longestName {
		p.longestName = len(c.Name)
	}

	at := len(p.commands)
	for i, existing := range p.commands {
		if compareN(existing.Name, c.Name, len(c.Name), true) >= 0 {
			at = i
			break
		}
	}
	p.commands = append(p.commands, nil)
	copy(p.commands[at+1:], p.commands[at:])
	p.commands[at] = c
	return nil
}

// matches scans the registry for commands whose name starts with the first
// token of the edit buffer and returns how many matched, the last matching
// command and the argument text following the token.
//
// When exec is true and exactly one command matched, an abbreviated or
// case-mismatched token is rewritten in place to the canonical command name
// (the displayed line is erased and re-echoed) and the argument text is
// re-split against the rewritten buffer.
func (p *Processor) matches(exec bool) (count int, cmd *Command, args string) {
	line := string(p.buf)
	if len(line) == 0 {
		return 0, nil, ""
	}

	token := line
	tail := ""
	if sp := strings.IndexByte(line, ' '); sp >= 0 {
		token = line[:sp]
		tail = line[sp+1:]
	}

	for _, c := range p.commands {
		if compareN(line, c.Name, len(token), p.caseInsensitive) == 0 {
			cmd = c
			args = tail
			count++
		}
	}

	if count == 1 && exec {
		// Rewrite "he 1234" as "Help 1234" when the token is shorter than
		// the canonical name or differs from it in case.
		abbreviated := len(cmd.Name) > len(token)
		if abbreviated || compareN(line, cmd.Name, len(token), false) != 0 {
			rewritten := cmd.Name
			if tail != "" {
				rewritten += " " + tail
			}
			p.eraseChars(len(p.buf))
			p.buf = append(p.buf[:0], rewritten...)
			p.echoString(rewritten)

			args = ""
			if sp := strings.IndexByte(rewritten, ' '); sp >= 0 {
				args = rewritten[sp+1:]
			}
		}
	}
	return count, cmd, args
}

// compareN compares at most n bytes of l and r, optionally folding ASCII
// case, and returns -1, 0 or 1. The walk stops as soon as l is exhausted,
// so a shorter l that matches a prefix of r compares equal. Both the
// registry insertion sort and prefix matching depend on that early stop.
func compareN(l, r string, n int, fold bool) int {
	for i := 0; i < n; i++ {
		var lc, rc byte
		if i < len(l) {
			lc = l[i]
		}
		if i < len(r) {
			rc = r[i]
		}
		if fold {
			lc = lowerByte(lc)
			rc = lowerByte(rc)
		}
		if lc < rc {
			return -1
		}
		if lc > rc {
			return 1
		}
		if lc == 0 || i+1 >= len(l) {
			return 0
		}
	}
	return 0
}

func lowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}
