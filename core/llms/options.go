package llms

// CompletionOptions carries optional parameters for a single completion
// request.
type CompletionOptions struct {
	// SystemPrompt is prepended to the history as the system message.
	SystemPrompt string
	// History is the ordered conversation context preceding the prompt.
	History []Message
}

type CompletionOption func(*CompletionOptions)

// WithSystemPrompt sets the system message sent ahead of the history.
func WithSystemPrompt(prompt string) CompletionOption {
	return func(o *CompletionOptions) {
		o.SystemPrompt = prompt
	}
}

// WithHistory sets the conversation context preceding the new prompt.
func WithHistory(history []Message) CompletionOption {
	return func(o *CompletionOptions) {
		o.History = history
	}
}
