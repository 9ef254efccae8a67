package link

import "fmt"

// Phase is the coarse connection state.
type Phase int

const (
	Disconnected Phase = iota
	Connecting
	Connected
	Retrying
	Failed
)

// String returns the lower-case phase name.
func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Retrying:
		return "retrying"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the manager's connection state. Attempt counts failed establishment
// attempts in the current cycle and is meaningful for Connecting and Retrying.
type State struct {
	Phase   Phase
	Attempt int
}

// String renders the state, e.g. "retrying(2)".
func (s State) String() string {
	if s.Phase == Retrying {
		return fmt.Sprintf("retrying(%d)", s.Attempt)
	}
	return s.Phase.String()
}

// IsConnected reports whether s is Connected.
func (s State) IsConnected() bool { return s.Phase == Connected }

// StateHandler receives every state change with the error that caused it, if any.
// It is called synchronously and in order; it must not call back into the Manager's
// lifecycle methods.
type StateHandler func(state State, err error)
