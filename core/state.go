package orchestration

// State is the orchestrator's session lifecycle state. There is exactly one
// authoritative state variable, updated only through defined transitions.
type State string

const (
	// StateNoSession is the initial state, re-entered whenever the active
	// session lapses.
	StateNoSession State = "no_session"
	// StateStarting covers the CreateSession call.
	StateStarting State = "starting"
	// StateActive is the steady state: turns are accumulated and submitted.
	StateActive State = "active"
	// StateEnding covers session teardown, either ahead of a restart or
	// terminally on Close.
	StateEnding State = "ending"
)
