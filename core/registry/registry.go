// Package registry owns the authoritative state of every active
// conversation: identity, role, language, job context and the ordered
// message history forwarded to the completion gateway.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sleekcode-io/ibot/core/llms"
	"github.com/sleekcode-io/ibot/core/roles"
)

// Job context modes accepted by SetJobContext.
const (
	// ModeInteractive forwards the job text as a normal turn, carrying the
	// existing conversational context.
	ModeInteractive = "interactive"
	// ModeReset discards the history and rebuilds the effective prompt
	// around the job text, without calling the gateway.
	ModeReset = "reset"
)

const (
	defaultLanguage       = "English"
	defaultGatewayTimeout = 30 * time.Second
)

// CompletionGateway is the boundary to the language-model service: ordered
// history plus one new user prompt in, one assistant reply out.
type CompletionGateway interface {
	Complete(ctx context.Context, prompt string, opts ...llms.CompletionOption) (string, error)
}

// FeedbackGenerator is optionally implemented by gateways that can produce a
// structured end-of-session report from the conversation history.
type FeedbackGenerator interface {
	GenerateFeedback(ctx context.Context, history []llms.Message) (*llms.Feedback, error)
}

// Registry tracks all active sessions. Operations on distinct sessions run
// fully in parallel; operations on one session are mutually exclusive.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*session
	ended    map[int64]*EndedSession
	nextID   int64

	gateway        CompletionGateway
	gatewayTimeout time.Duration
	feedback       bool
}

type Option func(*Registry)

// WithGatewayTimeout bounds every completion gateway call. Expiry surfaces
// as ErrGatewayFailure.
func WithGatewayTimeout(timeout time.Duration) Option {
	return func(r *Registry) { r.gatewayTimeout = timeout }
}

// WithFeedbackGeneration makes EndSession generate a structured report for
// the conversation, provided the gateway implements FeedbackGenerator.
func WithFeedbackGeneration() Option {
	return func(r *Registry) { r.feedback = true }
}

func New(gateway CompletionGateway, opts ...Option) *Registry {
	r := &Registry{
		sessions:       map[int64]*session{},
		ended:          map[int64]*EndedSession{},
		gateway:        gateway,
		gatewayTimeout: defaultGatewayTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateSession allocates a fresh session for the given role and returns its
// id and the role's greeting. Ids are monotonically assigned and never
// reused while the registry runs, even after prior ids were freed.
func (r *Registry) CreateSession(ctx context.Context, roleID int, language string) (int64, string, error) {
	_, span := tracer.Start(ctx, "create session")
	defer span.End()

	role, ok := roles.Lookup(roleID)
	if !ok {
		err := fmt.Errorf("%w: %d", ErrInvalidRole, roleID)
		span.SetStatus(codes.Error, err.Error())
		return 0, "", err
	}

	if language == "" {
		language = defaultLanguage
	}

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.sessions[id] = &session{
		id:           id,
		role:         role,
		language:     language,
		systemPrompt: role.BasePrompt,
		createdAt:    time.Now(),
	}
	r.mu.Unlock()

	span.SetAttributes(attribute.Int64("session.id", id), attribute.String("session.role", role.Name))
	logger.InfoContext(ctx, "conversation started", "id", id, "role", role.Name)

	return id, role.Greeting(), nil
}

// EndSession removes the session and tombstones its id. Rating and comments
// are recorded on the tombstone. A second end of the same id, or any later
// operation referencing it, fails with ErrNotFound.
func (r *Registry) EndSession(ctx context.Context, id int64, rating int, comments string) error {
	ctx, span := tracer.Start(ctx, "end session")
	defer span.End()
	span.SetAttributes(attribute.Int64("session.id", id))

	s, err := r.lookup(id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		err := fmt.Errorf("%w: %d", ErrNotFound, id)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.ended = true
	tombstone := &EndedSession{
		ID:        s.id,
		Role:      s.role,
		Language:  s.language,
		Voice:     s.voice,
		CreatedAt: s.createdAt,
		EndedAt:   time.Now(),
		Rating:    rating,
		Comments:  comments,
		Turns:     len(s.history) / 2,
	}
	history := s.snapshotHistory()
	s.mu.Unlock()

	r.mu.Lock()
	delete(r.sessions, id)
	r.ended[id] = tombstone
	r.mu.Unlock()

	if r.feedback && len(history) > 0 {
		if generator, ok := r.gateway.(FeedbackGenerator); ok {
			callCtx, cancel := context.WithTimeout(ctx, r.gatewayTimeout)
			feedback, err := generator.GenerateFeedback(callCtx, history)
			cancel()
			if err != nil {
				// The session is already gone; a failed report is not fatal.
				logger.WarnContext(ctx, "feedback generation failed", "id", id, "error", err)
			} else {
				r.mu.Lock()
				tombstone.Feedback = feedback
				r.mu.Unlock()
			}
		}
	}

	logger.InfoContext(ctx, "conversation ended", "id", id)
	return nil
}

// SubmitTurn forwards one completed user utterance to the gateway and
// appends the user text and the reply to the history, in that order. On
// gateway failure the history is left unchanged so the caller may retry the
// identical turn.
func (r *Registry) SubmitTurn(ctx context.Context, id int64, userText string) (string, error) {
	ctx, span := tracer.Start(ctx, "submit turn")
	defer span.End()
	span.SetAttributes(attribute.Int64("session.id", id))

	if strings.TrimSpace(userText) == "" {
		span.SetStatus(codes.Error, ErrEmptyInput.Error())
		return "", fmt.Errorf("%w: message content", ErrEmptyInput)
	}

	s, err := r.lookup(id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return r.completeTurn(ctx, s, userText)
}

// SetJobContext injects job text into the session. In interactive mode it is
// treated exactly like SubmitTurn. In reset mode the history is discarded
// and the effective prompt becomes the role's base prompt plus the job text;
// no gateway call is made and no bot text is returned.
func (r *Registry) SetJobContext(ctx context.Context, id int64, jobText string, mode string) (string, error) {
	ctx, span := tracer.Start(ctx, "set job context")
	defer span.End()
	span.SetAttributes(attribute.Int64("session.id", id), attribute.String("job.mode", mode))

	if strings.TrimSpace(jobText) == "" {
		span.SetStatus(codes.Error, ErrEmptyInput.Error())
		return "", fmt.Errorf("%w: job data", ErrEmptyInput)
	}

	s, err := r.lookup(id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	switch mode {
	case ModeInteractive:
		s.mu.Lock()
		s.jobContext = jobText
		s.mu.Unlock()
		return r.completeTurn(ctx, s, jobText)

	case ModeReset:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.ended {
			return "", fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		s.jobContext = jobText
		s.systemPrompt = s.role.BasePrompt + roles.JobContextSuffix + jobText
		s.history = nil
		logger.InfoContext(ctx, "conversation prompt reset", "id", id)
		return "", nil

	default:
		err := fmt.Errorf("%w: %q", ErrInvalidMode, mode)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
}

// SetLanguage updates the advisory language and voice metadata.
func (r *Registry) SetLanguage(ctx context.Context, id int64, language, voice string) error {
	_, span := tracer.Start(ctx, "set language")
	defer span.End()
	span.SetAttributes(attribute.Int64("session.id", id))

	if strings.TrimSpace(voice) == "" {
		span.SetStatus(codes.Error, ErrEmptyInput.Error())
		return fmt.Errorf("%w: voice", ErrEmptyInput)
	}

	s, err := r.lookup(id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.language = language
	s.voice = voice

	logger.InfoContext(ctx, "conversation language updated", "id", id, "language", language, "voice", voice)
	return nil
}

// History returns a copy of the session's current message history.
func (r *Registry) History(id int64) ([]llms.Message, error) {
	s, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s.snapshotHistory(), nil
}

// ActiveCount reports the number of currently active sessions.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EndedSessions returns copies of all tombstones recorded so far.
func (r *Registry) EndedSessions() []EndedSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ended := make([]EndedSession, 0, len(r.ended))
	for _, tombstone := range r.ended {
		ended = append(ended, *tombstone)
	}
	return ended
}

func (r *Registry) lookup(id int64) (*session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s, nil
}

// completeTurn performs the locked submit path: the per-session lock is held
// across the gateway call so turns on one session never interleave.
func (r *Registry) completeTurn(ctx context.Context, s *session, userText string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return "", fmt.Errorf("%w: %d", ErrNotFound, s.id)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.gatewayTimeout)
	defer cancel()

	botText, err := r.gateway.Complete(callCtx, userText,
		llms.WithSystemPrompt(s.systemPrompt),
		llms.WithHistory(s.snapshotHistory()),
	)
	if err != nil {
		logger.ErrorContext(ctx, "completion gateway call failed", "id", s.id, "error", err)
		return "", fmt.Errorf("%w: %s", ErrGatewayFailure, err)
	}

	s.history = append(s.history,
		llms.NewMessage(llms.SpeakerUser, userText),
		llms.NewMessage(llms.SpeakerBot, botText),
	)

	return botText, nil
}
