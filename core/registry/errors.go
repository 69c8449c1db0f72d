package registry

import "errors"

var (
	// ErrInvalidRole is returned when a session is requested for a role id
	// outside the catalog.
	ErrInvalidRole = errors.New("invalid role")
	// ErrNotFound is returned when a session id is unknown or already ended.
	// It is terminal for that id.
	ErrNotFound = errors.New("conversation not found")
	// ErrEmptyInput is returned when required text input is blank. The input
	// is rejected before any state mutation or gateway call.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidMode is returned when a job context mode is neither
	// interactive nor reset.
	ErrInvalidMode = errors.New("invalid job context mode")
	// ErrGatewayFailure is returned when the completion gateway failed or
	// timed out. The session history is left unchanged so the same turn can
	// be resubmitted.
	ErrGatewayFailure = errors.New("completion gateway failure")
)
