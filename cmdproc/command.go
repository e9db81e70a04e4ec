// Package cmdproc implements an interactive, line-oriented command
// interpreter designed to be polled from a cooperative host loop.
//
// Commands are registered by name and may be invoked by any unique prefix;
// the interpreter rewrites abbreviated input to the canonical command name
// before dispatch. Line editing (backspace, escape to cancel, tab
// completion) and arrow-key history recall are handled character by
// character: each call to Run consumes at most one pending input byte and
// never blocks, so the host loop stays free to service sensors, watchdogs
// and other collaborators between keystrokes.
package cmdproc

// RunResult is the continuation verdict returned by command handlers and by
// Run. RunExit tells the host loop to stop polling.
type RunResult int

const (
	RunOK RunResult = iota
	RunExit
)

// Handler executes a command. It receives the text following the command
// name on the input line (trimmed of the single separating space) and
// returns whether the host loop should keep running.
type Handler func(args string) RunResult

// Command describes a single registered command. Commands are created and
// owned by the application; the processor only holds references, so a
// Command must outlive the processor it is added to.
type Command struct {
	// Name is the token the user types. It must be non-empty and contain
	// no whitespace.
	Name string
	// Help is the one-line description shown by the Help builtin.
	Help string
	// Handler is invoked when the command is dispatched.
	Handler Handler
	// Visible controls whether the command appears in the Help listing.
	// Hidden commands can still be executed.
	Visible bool
}

// Flags selects the processor's built-in commands and initial behavior.
type Flags uint32

const (
	// EnableTerminate registers the Exit builtin, which returns RunExit.
	EnableTerminate Flags = 1 << iota
	// EnableSystem registers the Help, ?, History and Echo builtins.
	EnableSystem
	// EchoOn starts the processor with input echo enabled.
	EchoOn
	// CaseInsensitive makes command matching ignore letter case.
	CaseInsensitive
)

// IO is the capability set the processor needs from its host. The four
// callbacks are the only way the processor touches the outside world, which
// keeps it portable across serial links, TCP connections and test doubles.
type IO struct {
	// DataAvailable reports whether ReadChar would return without blocking.
	DataAvailable func() bool
	// ReadChar reads one input character. It is only called when
	// DataAvailable has returned true.
	ReadChar func() int
	// WriteChar writes one output character.
	WriteChar func(ch int) int
	// WriteLine writes a string followed by the line terminator.
	WriteLine func(s string) int
}
