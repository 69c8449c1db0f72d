// Package texttospeech defines the playback adapter contract: speak a text
// string, with an explicit cancel-in-progress operation.
package texttospeech

// SpeechOptions carries settings for one playback request.
type SpeechOptions struct {
	Voice    string
	Language string

	// AudioCallback receives the synthesized audio. How it is played is up
	// to the host.
	AudioCallback func(audio []byte)
}

type SpeechOption func(*SpeechOptions)

func WithVoice(voice string) SpeechOption {
	return func(o *SpeechOptions) {
		o.Voice = voice
	}
}

func WithLanguage(language string) SpeechOption {
	return func(o *SpeechOptions) {
		o.Language = language
	}
}

func WithAudioCallback(callback func(audio []byte)) SpeechOption {
	return func(o *SpeechOptions) {
		o.AudioCallback = callback
	}
}
