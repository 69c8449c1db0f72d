// Package speechtotext defines the capture adapter contract: a continuous
// stream of partial-text updates plus one discrete turn-complete signal.
package speechtotext

// CaptureOptions carries the callbacks and settings for one capture stream.
type CaptureOptions struct {
	// PartialTextCallback fires on every recognized fragment. Each call
	// carries the full utterance so far; the latest value replaces any
	// previously delivered partial.
	PartialTextCallback func(text string)
	// TurnCompleteCallback fires once per finished utterance with the final
	// text.
	TurnCompleteCallback func(text string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	Language string
}

type CaptureOption func(*CaptureOptions)

func WithPartialTextCallback(callback func(text string)) CaptureOption {
	return func(o *CaptureOptions) {
		o.PartialTextCallback = callback
	}
}

func WithTurnCompleteCallback(callback func(text string)) CaptureOption {
	return func(o *CaptureOptions) {
		o.TurnCompleteCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) CaptureOption {
	return func(o *CaptureOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) CaptureOption {
	return func(o *CaptureOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithLanguage(language string) CaptureOption {
	return func(o *CaptureOptions) {
		o.Language = language
	}
}
