package orchestration

import (
	"context"
	"fmt"

	"github.com/sleekcode-io/ibot/core/speechtotext"
)

// CaptureAdapter is the boundary to speech or keyboard input: a stream of
// partial-text updates plus one discrete turn-complete signal.
type CaptureAdapter interface {
	Capture(ctx context.Context, opts ...speechtotext.CaptureOption) error
	Close(ctx context.Context) error
}

// capture is the facade used to normalize optional client wiring.
type capture struct {
	client CaptureAdapter
}

func (c *capture) set(client CaptureAdapter) {
	if c != nil {
		c.client = client
	}
}

func (c *capture) isConfigured() bool {
	return c != nil && c.client != nil
}

func (c *capture) start(ctx context.Context, language string, onPartial func(string), onComplete func(string)) error {
	if !c.isConfigured() {
		return nil
	}

	if err := c.client.Capture(ctx,
		speechtotext.WithLanguage(language),
		speechtotext.WithPartialTextCallback(onPartial),
		speechtotext.WithTurnCompleteCallback(onComplete),
	); err != nil {
		return fmt.Errorf("failed to start capturing: %w", err)
	}
	return nil
}

func (c *capture) close(ctx context.Context) error {
	if !c.isConfigured() {
		return nil
	}

	if err := c.client.Close(ctx); err != nil {
		return fmt.Errorf("failed to close capture client: %w", err)
	}
	return nil
}
