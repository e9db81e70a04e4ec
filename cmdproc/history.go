package cmdproc

// history is a bounded ring of previously executed command lines, ordered
// oldest to newest. The recall cursor lives on the Processor, not here: it
// is volatile UI state that only exists while the user is walking the ring
// with the arrow keys.
type history struct {
	lines []string
	depth int
}

func newHistory(depth int) *history {
	if depth < 0 {
		depth = 0
	}
	return &history{
		lines: make([]string, 0, depth),
		depth: depth,
	}
}

// push records an executed line. Repeating the newest entry verbatim is
// ignored, and the oldest entry is evicted once the ring is full.
func (h *history) push(line string) {
	if h.depth == 0 {
		return
	}
	if n := len(h.lines); n > 0 && h.lines[n-1] == line {
		return
	}
	if len(h.lines) == h.depth {
		copy(h.lines, h.lines[1:])
		h.lines = h.lines[:h.depth-1]
	}
	h.lines = append(h.lines, line)
}

func (h *history) at(i int) string {
	return h.lines[i]
}

func (h *history) len() int {
	return len(h.lines)
}
