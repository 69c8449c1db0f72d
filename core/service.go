package orchestration

import "context"

// SessionService is the orchestrator's boundary to the session registry,
// either in-process (registry.Registry) or over HTTP (client.Client). Errors
// follow the registry taxonomy; transport-level failures additionally match
// client.ErrTransport.
type SessionService interface {
	CreateSession(ctx context.Context, roleID int, language string) (int64, string, error)
	EndSession(ctx context.Context, id int64, rating int, comments string) error
	SubmitTurn(ctx context.Context, id int64, userText string) (string, error)
	SetJobContext(ctx context.Context, id int64, jobText string, mode string) (string, error)
	SetLanguage(ctx context.Context, id int64, language, voice string) error
}
