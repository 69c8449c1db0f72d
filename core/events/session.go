package events

const (
	// KindSessionStarted identifies a freshly created conversation session.
	KindSessionStarted Kind = "session.started"
	// KindSessionEnded identifies the teardown of a session.
	KindSessionEnded Kind = "session.ended"
	// KindSessionError identifies a failed session operation.
	KindSessionError Kind = "session.error"
)

// SessionStarted marks the creation of a session.
type SessionStarted struct {
	Base
	SessionID int64
	RoleID    int
	Greeting  string
}

// NewSessionStarted creates a session started event.
func NewSessionStarted(sessionID int64, roleID int, greeting string) SessionStarted {
	return SessionStarted{Base: NewBase(KindSessionStarted), SessionID: sessionID, RoleID: roleID, Greeting: greeting}
}

// SessionEnded marks the teardown of a session.
type SessionEnded struct {
	Base
	SessionID int64
}

// NewSessionEnded creates a session ended event.
func NewSessionEnded(sessionID int64) SessionEnded {
	return SessionEnded{Base: NewBase(KindSessionEnded), SessionID: sessionID}
}

// SessionError carries a failed session operation.
type SessionError struct {
	Base
	SessionID int64
	Err       error
}

// NewSessionError creates a session error event.
func NewSessionError(sessionID int64, err error) SessionError {
	return SessionError{Base: NewBase(KindSessionError), SessionID: sessionID, Err: err}
}
