package events

const (
	// KindTurnBufferUpdated identifies an overwrite of the in-progress turn
	// buffer by a capture partial.
	KindTurnBufferUpdated Kind = "turn.buffer_updated"
	// KindTurnSubmitted identifies a completed utterance sent to the server.
	KindTurnSubmitted Kind = "turn.submitted"
	// KindTurnCompleted identifies a finished user/bot exchange.
	KindTurnCompleted Kind = "turn.completed"
	// KindTurnFailed identifies a submit that errored; the turn buffer is
	// kept so the utterance can be resubmitted.
	KindTurnFailed Kind = "turn.failed"
	// KindTurnDiscarded identifies a late response for a superseded session
	// that was dropped instead of applied.
	KindTurnDiscarded Kind = "turn.discarded"
)

// TurnBufferUpdated carries the latest turn buffer contents.
type TurnBufferUpdated struct {
	Base
	Text string
}

// NewTurnBufferUpdated creates a turn buffer update event.
func NewTurnBufferUpdated(text string) TurnBufferUpdated {
	return TurnBufferUpdated{Base: NewBase(KindTurnBufferUpdated), Text: text}
}

// TurnSubmitted marks a completed utterance being submitted.
type TurnSubmitted struct {
	Base
	SessionID int64
	Text      string
}

// NewTurnSubmitted creates a turn submitted event.
func NewTurnSubmitted(sessionID int64, text string) TurnSubmitted {
	return TurnSubmitted{Base: NewBase(KindTurnSubmitted), SessionID: sessionID, Text: text}
}

// TurnCompleted marks a finished exchange.
type TurnCompleted struct {
	Base
	SessionID int64
	UserText  string
	BotText   string
}

// NewTurnCompleted creates a turn completed event.
func NewTurnCompleted(sessionID int64, userText, botText string) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted), SessionID: sessionID, UserText: userText, BotText: botText}
}

// TurnFailed marks a failed submit.
type TurnFailed struct {
	Base
	SessionID int64
	Err       error
}

// NewTurnFailed creates a turn failed event.
func NewTurnFailed(sessionID int64, err error) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed), SessionID: sessionID, Err: err}
}

// TurnDiscarded marks a late response dropped after a session switch.
type TurnDiscarded struct {
	Base
	SessionID int64
}

// NewTurnDiscarded creates a turn discarded event.
func NewTurnDiscarded(sessionID int64) TurnDiscarded {
	return TurnDiscarded{Base: NewBase(KindTurnDiscarded), SessionID: sessionID}
}
