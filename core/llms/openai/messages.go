package openai

import "github.com/sleekcode-io/ibot/core/llms"

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

type chatMessage struct {
	Role    messageRole `json:"role"`
	Content string      `json:"content"`
}

type requestBody struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	Temperature    *float64            `json:"temperature,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type responseBody struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"message"`
		FinishReason *string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

func toChatMessages(systemPrompt string, history []llms.Message) []chatMessage {
	messages := make([]chatMessage, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: messageRoleSystem, Content: systemPrompt})
	}

	for _, message := range history {
		role := messageRoleUser
		switch message.Speaker {
		case llms.SpeakerBot:
			role = messageRoleAssistant
		case llms.SpeakerSystem:
			role = messageRoleSystem
		}
		messages = append(messages, chatMessage{Role: role, Content: message.Text})
	}

	return messages
}
