package worker

// State is the position of a Worker in its claim cycle.
type State int

const (
	StateIdle State = iota
	StateClaiming
	StateExecuting
	StateReporting
	StateDrained
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClaiming:
		return "claiming"
	case StateExecuting:
		return "executing"
	case StateReporting:
		return "reporting"
	case StateDrained:
		return "drained"
	default:
		return "unknown"
	}
}
