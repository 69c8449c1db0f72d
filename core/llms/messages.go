package llms

import "time"

// Speaker describes who a message in the conversation history is from.
type Speaker string

const (
	SpeakerSystem Speaker = "system"
	SpeakerUser   Speaker = "user"
	SpeakerBot    Speaker = "bot"
)

// Message is a single entry in the ordered history forwarded to the
// completion service.
type Message struct {
	Speaker Speaker
	Text    string
	SentAt  time.Time
}

// NewMessage creates a message stamped with the current time.
func NewMessage(speaker Speaker, text string) Message {
	return Message{Speaker: speaker, Text: text, SentAt: time.Now()}
}

// Feedback is a structured end-of-session report generated from the
// conversation history.
type Feedback struct {
	// Score is an overall rating of the user's side of the conversation,
	// 1 (poor) to 5 (excellent).
	Score int `json:"score" jsonschema:"minimum=1,maximum=5"`
	// Strengths lists what the user did well.
	Strengths []string `json:"strengths"`
	// Improvements lists concrete suggestions for the user.
	Improvements []string `json:"improvements"`
}
