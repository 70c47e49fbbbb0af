package tts

// StateType represents the lifecycle state of a Controller.
type StateType int

const (
	// StateUninitialized indicates the engine has not been asked to start.
	StateUninitialized StateType = iota
	// StateInitializing indicates the engine is starting up.
	StateInitializing
	// StateReady indicates the engine accepted the locale and can speak.
	StateReady
	// StateFailed indicates initialization failed.
	StateFailed
	// StateShutdown indicates the controller released its engine.
	StateShutdown
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// StateMachine validates lifecycle transitions. It is not safe for
// concurrent use; the Controller guards it with its own mutex.
type StateMachine struct {
	current     StateType
	transitions map[StateType][]StateType
}

// NewStateMachine creates a new state machine with valid transitions.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateUninitialized,
		transitions: map[StateType][]StateType{
			StateUninitialized: {StateInitializing, StateShutdown},
			StateInitializing:  {StateReady, StateFailed, StateShutdown},
			StateReady:         {StateShutdown},
			StateFailed:        {StateShutdown},
		},
	}
}

// Transition attempts to transition to the specified state.
func (sm *StateMachine) Transition(to StateType) bool {
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			sm.current = to
			return true
		}
	}
	return false
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	return sm.current
}

// Activity is the speaking activity of a ready controller, mirrored from
// engine progress events.
type Activity int

const (
	// ActivityIdle means no utterance is being rendered.
	ActivityIdle Activity = iota
	// ActivitySpeaking means an utterance started and has not finished.
	ActivitySpeaking
)

// String returns the string representation of the activity.
func (a Activity) String() string {
	if a == ActivitySpeaking {
		return "speaking"
	}
	return "idle"
}
