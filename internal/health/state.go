package health

import "fmt"

// State is the monitor's position in Pending → (Ready | Failed).
type State int32

const (
	// Pending is the state from spawn until the first decisive outcome.
	Pending State = iota
	// Ready means a probe got a 2xx response.
	Ready
	// Failed means the attempt budget ran out, the child exited, or the
	// monitor was canceled before any probe succeeded.
	Failed
)

// String returns a lowercase name for logs.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
