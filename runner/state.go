package runner

// State is the single activity state of an agent. Exactly one value holds
// per agent at any time, and only the agent's own runner mutates it; other
// goroutines (the coordinator's metrics loop) may read it.
type State int32

const (
	// StateIdle means the agent is doing nothing, ready for action.
	StateIdle State = iota
	// StateThinking means the agent is making a decision.
	StateThinking
	// StateActing means the agent is executing an action.
	StateActing
	// StateInteracting means the agent is in an interaction with another agent.
	StateInteracting
	// StateWaiting means the agent is waiting for something.
	StateWaiting
	// StateResting means the agent is sleeping or resting.
	StateResting
	// StateBusy means the agent is otherwise occupied.
	StateBusy
)

// String returns the upper-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateThinking:
		return "THINKING"
	case StateActing:
		return "ACTING"
	case StateInteracting:
		return "INTERACTING"
	case StateWaiting:
		return "WAITING"
	case StateResting:
		return "RESTING"
	case StateBusy:
		return "BUSY"
	default:
		return "UNKNOWN"
	}
}
