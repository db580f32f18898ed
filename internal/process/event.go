package process

import "fmt"

// EventKind identifies what an Event carries.
type EventKind int

const (
	// EventStdout carries one line the child wrote to standard output.
	EventStdout EventKind = iota + 1
	// EventStderr carries one line the child wrote to standard error.
	EventStderr
	// EventTerminated reports that the child exited; ExitCode and Signal are set.
	EventTerminated
	// EventError reports that waiting on the child failed; Err is set.
	EventError
)

// String returns the lowercase name used in log attributes.
func (k EventKind) String() string {
	switch k {
	case EventStdout:
		return "stdout"
	case EventStderr:
		return "stderr"
	case EventTerminated:
		return "terminated"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Terminal reports whether no further events follow an event of this kind.
func (k EventKind) Terminal() bool {
	return k == EventTerminated || k == EventError
}

// Event is a single observation of the child process. Line is only valid for
// stdout and stderr events and is owned by the receiver.
type Event struct {
	Kind     EventKind
	Line     []byte
	ExitCode int    // -1 when the child was killed by a signal
	Signal   string // empty unless the child was killed by a signal
	Err      error
}
