package orchestration

import (
	"time"

	"github.com/sleekcode-io/ibot/core/events"
	"github.com/sleekcode-io/ibot/core/transcript"
)

type OrchestratorOption func(*Orchestrator)

// WithCaptureAdapter wires a speech or keyboard capture client. Without one,
// turns are driven manually through HandlePartialText and CompleteTurn.
func WithCaptureAdapter(client CaptureAdapter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.capture.set(client)
	}
}

// WithPlaybackAdapter wires a speech playback client. Without one, responses
// are only recorded in the transcript.
func WithPlaybackAdapter(client PlaybackAdapter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.playback.set(client)
	}
}

// WithRole selects the initial conversational role.
func WithRole(roleID int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.roleID = roleID
	}
}

// WithLanguage sets the advisory language passed on session creation.
func WithLanguage(language string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.language = language
	}
}

// WithVoice sets the playback voice.
func WithVoice(voice string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.voice = voice
	}
}

// WithPlaybackMuted starts the orchestrator with playback suppressed.
func WithPlaybackMuted() OrchestratorOption {
	return func(o *Orchestrator) {
		o.playback.setMuted(true)
	}
}

// WithEndTimeout bounds the best-effort EndSession call fired on Close.
func WithEndTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.endTimeout = timeout
	}
}

// WithStateChangeCallback registers a callback for lifecycle transitions.
func WithStateChangeCallback(callback func(state State)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onStateChange = callback
	}
}

// WithTranscriptEntryCallback registers a callback for every appended
// transcript entry.
func WithTranscriptEntryCallback(callback func(index int, entry transcript.Entry)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onEntry = callback
	}
}

// WithErrorCallback registers a callback for surfaced errors. Errors never
// silently drop a user utterance; the turn buffer survives every surfaced
// failure.
func WithErrorCallback(callback func(err error)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onError = callback
	}
}

// WithEventCallback registers a callback for every orchestration event.
func WithEventCallback(callback func(event events.Event)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onEvent = callback
	}
}
