package orchestration

import (
	"context"
	"sync/atomic"

	"github.com/sleekcode-io/ibot/core/texttospeech"
)

// PlaybackAdapter is the boundary to speech output: render one text string,
// with an explicit cancel-in-progress operation.
type PlaybackAdapter interface {
	Speak(ctx context.Context, text string, opts ...texttospeech.SpeechOption) error
	Cancel() error
}

// playback is the facade used to normalize optional client wiring. Muting
// suppresses speech without touching transcript bookkeeping.
type playback struct {
	client PlaybackAdapter
	muted  atomic.Bool
}

func (p *playback) set(client PlaybackAdapter) {
	if p != nil {
		p.client = client
	}
}

func (p *playback) isConfigured() bool {
	return p != nil && p.client != nil
}

func (p *playback) speak(ctx context.Context, text string, voice string) error {
	if !p.isConfigured() || p.muted.Load() {
		return nil
	}

	var opts []texttospeech.SpeechOption
	if voice != "" {
		opts = append(opts, texttospeech.WithVoice(voice))
	}
	return p.client.Speak(ctx, text, opts...)
}

func (p *playback) cancel() error {
	if !p.isConfigured() {
		return nil
	}
	return p.client.Cancel()
}

func (p *playback) setMuted(muted bool) {
	p.muted.Store(muted)
}

func (p *playback) isMuted() bool {
	return p.muted.Load()
}
