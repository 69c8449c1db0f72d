// Package orchestration drives the client side of a conversation: it keeps a
// session alive against the session registry, assembles capture events into
// discrete turns, submits them, and feeds responses to the transcript and the
// playback adapter.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sleekcode-io/ibot/core/events"
	"github.com/sleekcode-io/ibot/core/llms"
	"github.com/sleekcode-io/ibot/core/registry"
	"github.com/sleekcode-io/ibot/core/roles"
	"github.com/sleekcode-io/ibot/core/transcript"
)

var (
	// ErrNoActiveSession is surfaced when a turn completes while no session
	// is active. The turn buffer is kept; a reconcile restarts the session.
	ErrNoActiveSession = errors.New("no active conversation session")
	// ErrTurnInFlight is surfaced when a turn completes while the previous
	// submit is still awaiting its response.
	ErrTurnInFlight = errors.New("a turn is already awaiting its response")
)

const (
	defaultEndTimeout = 2 * time.Second

	jobContextNotice = "Job description updated."
)

// activeSession identifies the session every in-flight call is tagged with.
// Ids are never reused by the registry, so a late response can always be
// matched against the session it targeted.
type activeSession struct {
	id       int64
	greeting string
	roleID   int
}

type Orchestrator struct {
	mu    sync.Mutex
	state State
	// session is non-nil exactly while state is Active.
	session *activeSession

	// buffer holds the in-progress turn. Capture partials overwrite it, they
	// do not append.
	buffer string
	// pendingEntry is the transcript index of the optimistic user entry for
	// the current buffer, or -1. It keeps a retried turn from appending the
	// user side twice.
	pendingEntry int
	submitting   bool

	transcript *transcript.Transcript
	service    SessionService
	capture    capture
	playback   playback

	roleID   int
	language string
	voice    string

	endTimeout  time.Duration
	baseContext context.Context
	closeOnce   sync.Once

	onStateChange func(state State)
	onEntry       func(index int, entry transcript.Entry)
	onError       func(err error)
	onEvent       func(event events.Event)
}

func NewOrchestrator(service SessionService, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		state:        StateNoSession,
		pendingEntry: -1,
		transcript:   transcript.New(),
		service:      service,
		roleID:       roles.JobInterviewer,
		endTimeout:   defaultEndTimeout,
		baseContext:  context.Background(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run starts the capture stream (when one is configured) and brings up the
// first session. On session start failure the orchestrator stays in
// NoSession and the error is returned; it does not retry in a tight loop.
// Call Reconcile to try again.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	o.baseContext = ctx
	language := o.language
	o.mu.Unlock()

	if err := o.capture.start(ctx, language,
		o.HandlePartialText,
		func(text string) {
			o.HandlePartialText(text)
			o.CompleteTurn()
		},
	); err != nil {
		return err
	}

	return o.startSession(ctx)
}

// HandlePartialText overwrites the in-progress turn buffer with the latest
// capture partial.
func (o *Orchestrator) HandlePartialText(text string) {
	o.mu.Lock()
	o.buffer = text
	o.mu.Unlock()

	o.emit(events.NewTurnBufferUpdated(text))
}

// CompleteTurn submits the accumulated buffer as one finished utterance. An
// empty buffer is a no-op. The user transcript entry is appended before the
// response returns; errors keep the buffer intact so the utterance can be
// resubmitted.
func (o *Orchestrator) CompleteTurn() {
	o.mu.Lock()
	text := strings.TrimSpace(o.buffer)
	if text == "" {
		o.mu.Unlock()
		return
	}
	if o.state != StateActive || o.session == nil {
		o.mu.Unlock()
		o.surfaceError(ErrNoActiveSession)
		return
	}
	if o.submitting {
		o.mu.Unlock()
		o.surfaceError(ErrTurnInFlight)
		return
	}

	sessionID := o.session.id
	userIndex := -1
	if o.pendingEntry < 0 {
		o.pendingEntry = o.transcript.Append(llms.SpeakerUser, text)
		userIndex = o.pendingEntry
	}
	o.submitting = true
	ctx := o.baseContext
	o.mu.Unlock()

	if userIndex >= 0 {
		o.notifyEntry(userIndex)
	}
	o.emit(events.NewTurnSubmitted(sessionID, text))

	go o.submitTurn(ctx, sessionID, text)
}

func (o *Orchestrator) submitTurn(ctx context.Context, sessionID int64, text string) {
	ctx, span := tracer.Start(ctx, "submit turn")
	defer span.End()
	span.SetAttributes(attribute.Int64("session.id", sessionID))

	botText, err := o.service.SubmitTurn(ctx, sessionID, text)

	o.mu.Lock()
	o.submitting = false

	// A response for a superseded session must not reach the transcript.
	if o.session == nil || o.session.id != sessionID {
		o.mu.Unlock()
		o.emit(events.NewTurnDiscarded(sessionID))
		return
	}

	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			// The server no longer knows this session; lapse and let a
			// reconcile bring up a fresh one. The buffer stays untouched.
			o.session = nil
			o.setStateLocked(StateNoSession)
			o.mu.Unlock()
			o.emit(events.NewSessionError(sessionID, err))
			o.surfaceError(err)
			return
		}
		o.mu.Unlock()
		o.emit(events.NewTurnFailed(sessionID, err))
		o.surfaceError(err)
		return
	}

	botIndex := o.transcript.Append(llms.SpeakerBot, botText)
	o.buffer = ""
	o.pendingEntry = -1
	voice := o.voice
	o.mu.Unlock()

	o.emit(events.NewTurnCompleted(sessionID, text, botText))
	o.notifyEntry(botIndex)
	o.speakEntry(ctx, botIndex, botText, voice)
}

// SwitchRole ends the current session and starts a fresh one for the given
// role. Any in-flight turn for the old session is discarded; an end failure
// is surfaced, never silently dropped.
func (o *Orchestrator) SwitchRole(ctx context.Context, roleID int) error {
	o.mu.Lock()
	old := o.session
	o.session = nil
	o.roleID = roleID
	o.buffer = ""
	o.pendingEntry = -1
	if old != nil {
		o.setStateLocked(StateEnding)
	}
	o.mu.Unlock()

	if old != nil {
		if err := o.playback.cancel(); err != nil {
			logger.Warn("failed to cancel playback on role switch", "error", err)
		}
		if err := o.service.EndSession(ctx, old.id, 0, ""); err != nil && !errors.Is(err, registry.ErrNotFound) {
			o.surfaceError(fmt.Errorf("failed to end conversation %d: %w", old.id, err))
		}
		o.emit(events.NewSessionEnded(old.id))
	}

	o.mu.Lock()
	o.setStateLocked(StateNoSession)
	o.mu.Unlock()

	return o.startSession(ctx)
}

// SetJobContext injects job text into the active session. Interactive mode
// records the exchange in the transcript like a normal turn; reset mode only
// notes that the prompt was replaced.
func (o *Orchestrator) SetJobContext(ctx context.Context, jobText string, mode string) error {
	o.mu.Lock()
	if o.state != StateActive || o.session == nil {
		o.mu.Unlock()
		return ErrNoActiveSession
	}
	sessionID := o.session.id
	o.mu.Unlock()

	botText, err := o.service.SetJobContext(ctx, sessionID, jobText, mode)
	if err != nil {
		o.handleSessionError(sessionID, err)
		return err
	}

	o.mu.Lock()
	if o.session == nil || o.session.id != sessionID {
		o.mu.Unlock()
		o.emit(events.NewTurnDiscarded(sessionID))
		return nil
	}

	var indexes []int
	var speakText string
	if mode == registry.ModeInteractive {
		indexes = append(indexes, o.transcript.Append(llms.SpeakerUser, jobText))
		indexes = append(indexes, o.transcript.Append(llms.SpeakerBot, botText))
		speakText = botText
	} else {
		indexes = append(indexes, o.transcript.Append(llms.SpeakerSystem, jobContextNotice))
	}
	voice := o.voice
	o.mu.Unlock()

	for _, index := range indexes {
		o.notifyEntry(index)
	}
	if speakText != "" {
		o.speakEntry(ctx, indexes[len(indexes)-1], speakText, voice)
	}
	return nil
}

// SetLanguage updates the language and voice, applying them to the active
// session when there is one.
func (o *Orchestrator) SetLanguage(ctx context.Context, language, voice string) error {
	o.mu.Lock()
	o.language = language
	o.voice = voice
	session := o.session
	o.mu.Unlock()

	if session == nil {
		return nil
	}

	if err := o.service.SetLanguage(ctx, session.id, language, voice); err != nil {
		o.handleSessionError(session.id, err)
		return err
	}
	return nil
}

// End finishes the active session, recording the user's rating and comments,
// and returns the orchestrator to NoSession. Unlike Close it is synchronous
// and the orchestrator stays usable: a reconcile starts a fresh session.
func (o *Orchestrator) End(ctx context.Context, rating int, comments string) error {
	o.mu.Lock()
	session := o.session
	if session == nil {
		o.mu.Unlock()
		return ErrNoActiveSession
	}
	o.session = nil
	o.buffer = ""
	o.pendingEntry = -1
	o.setStateLocked(StateEnding)
	o.mu.Unlock()

	if err := o.playback.cancel(); err != nil {
		logger.Warn("failed to cancel playback on end", "error", err)
	}

	err := o.service.EndSession(ctx, session.id, rating, comments)

	o.mu.Lock()
	o.setStateLocked(StateNoSession)
	o.mu.Unlock()
	o.emit(events.NewSessionEnded(session.id))

	if err != nil && !errors.Is(err, registry.ErrNotFound) {
		o.surfaceError(fmt.Errorf("failed to end conversation %d: %w", session.id, err))
		return err
	}
	return nil
}

// Reconcile brings the orchestrator back to Active if the session has
// lapsed. It is the explicit keep-alive step: drive it from a timer or from
// user action, independent of any rendering.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	o.mu.Lock()
	state := o.state
	o.mu.Unlock()

	if state != StateNoSession {
		return nil
	}
	return o.startSession(ctx)
}

// Close tears the orchestrator down. EndSession is fired best-effort with a
// bounded timeout; teardown never blocks waiting for the server.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		session := o.session
		o.session = nil
		o.setStateLocked(StateEnding)
		ctx := o.baseContext
		endTimeout := o.endTimeout
		o.mu.Unlock()

		if err := o.playback.cancel(); err != nil {
			logger.Warn("failed to cancel playback on close", "error", err)
		}
		if err := o.capture.close(ctx); err != nil {
			logger.Warn("failed to close capture client", "error", err)
		}

		if session != nil {
			go func() {
				endCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), endTimeout)
				defer cancel()
				if err := o.service.EndSession(endCtx, session.id, 0, ""); err != nil {
					logger.Warn("best-effort session end failed", "id", session.id, "error", err)
				}
			}()
		}
	})
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SessionID returns the active session id, if any.
func (o *Orchestrator) SessionID() (int64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return 0, false
	}
	return o.session.id, true
}

// Buffer returns the in-progress turn buffer.
func (o *Orchestrator) Buffer() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buffer
}

// TranscriptEntries returns a copy of the transcript so far.
func (o *Orchestrator) TranscriptEntries() []transcript.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transcript.Entries()
}

// ExportTranscript renders the downloadable transcript form.
func (o *Orchestrator) ExportTranscript() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transcript.Export()
}

// MarkEntryDisplayed flips the one-shot displayed flag, reporting whether
// the entry still needed rendering.
func (o *Orchestrator) MarkEntryDisplayed(index int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transcript.MarkDisplayed(index)
}

// SetPlaybackMuted suppresses or re-enables playback. Entries appended while
// muted are never spoken retroactively.
func (o *Orchestrator) SetPlaybackMuted(muted bool) {
	o.playback.setMuted(muted)
	if muted {
		if err := o.playback.cancel(); err != nil {
			logger.Warn("failed to cancel playback on mute", "error", err)
		}
	}
}

func (o *Orchestrator) startSession(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "start session")
	defer span.End()

	o.mu.Lock()
	if o.state == StateActive || o.state == StateStarting {
		o.mu.Unlock()
		return nil
	}
	o.setStateLocked(StateStarting)
	roleID, language := o.roleID, o.language
	o.mu.Unlock()

	id, greeting, err := o.service.CreateSession(ctx, roleID, language)

	o.mu.Lock()
	if err != nil {
		o.setStateLocked(StateNoSession)
		o.mu.Unlock()
		err = fmt.Errorf("failed to start conversation: %w", err)
		span.RecordError(err)
		o.surfaceError(err)
		return err
	}

	o.session = &activeSession{id: id, greeting: greeting, roleID: roleID}
	o.setStateLocked(StateActive)
	index := o.transcript.Append(llms.SpeakerBot, greeting)
	voice := o.voice
	o.mu.Unlock()

	span.SetAttributes(attribute.Int64("session.id", id))
	o.emit(events.NewSessionStarted(id, roleID, greeting))
	o.notifyEntry(index)
	o.speakEntry(ctx, index, greeting, voice)
	return nil
}

// handleSessionError lapses the session on NotFound and surfaces everything.
func (o *Orchestrator) handleSessionError(sessionID int64, err error) {
	if errors.Is(err, registry.ErrNotFound) {
		o.mu.Lock()
		if o.session != nil && o.session.id == sessionID {
			o.session = nil
			o.setStateLocked(StateNoSession)
		}
		o.mu.Unlock()
		o.emit(events.NewSessionError(sessionID, err))
	}
	o.surfaceError(err)
}

// speakEntry forwards an entry's text to the playback adapter, gated by the
// one-shot spoken flag so reprocessing never re-speaks it.
func (o *Orchestrator) speakEntry(ctx context.Context, index int, text string, voice string) {
	if !o.playback.isConfigured() || o.playback.isMuted() {
		return
	}

	o.mu.Lock()
	unspoken := o.transcript.MarkSpoken(index)
	o.mu.Unlock()
	if !unspoken {
		return
	}

	go func() {
		if err := o.playback.speak(ctx, text, voice); err != nil {
			o.surfaceError(fmt.Errorf("failed to speak response: %w", err))
		}
	}()
}

func (o *Orchestrator) setStateLocked(state State) {
	if o.state == state {
		return
	}
	o.state = state
	if o.onStateChange != nil {
		callback := o.onStateChange
		go callback(state)
	}
}

func (o *Orchestrator) notifyEntry(index int) {
	if o.onEntry == nil {
		return
	}

	o.mu.Lock()
	entry, ok := o.transcript.Entry(index)
	o.mu.Unlock()
	if ok {
		o.onEntry(index, entry)
	}
}

func (o *Orchestrator) surfaceError(err error) {
	logger.Warn("orchestrator error", "error", err)

	o.mu.Lock()
	ctx := o.baseContext
	o.mu.Unlock()
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if o.onError != nil {
		o.onError(err)
	}
}

func (o *Orchestrator) emit(event events.Event) {
	if o.onEvent != nil {
		o.onEvent(event)
	}
}
