package stt

// StateType represents the lifecycle state of a Controller.
type StateType int

const (
	// StateUninitialized indicates the controller is being constructed.
	StateUninitialized StateType = iota
	// StateUnavailable indicates recognition is not available. Terminal.
	StateUnavailable
	// StateReady indicates the engine is registered and can listen.
	StateReady
	// StateShutdown indicates the controller released its engine.
	StateShutdown
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateUnavailable:
		return "unavailable"
	case StateReady:
		return "ready"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
