package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sleekcode-io/ibot/core/llms"
)

const feedbackPrompt = "Review the conversation so far and assess the user's side of it. " +
	"Rate the user's performance, list their strengths and suggest concrete improvements."

// GenerateFeedback asks the model for a structured end-of-session report on
// the user's side of the given history.
func (c *Client) GenerateFeedback(ctx context.Context, history []llms.Message) (*llms.Feedback, error) {
	ctx, span := tracer.Start(ctx, "prompt llm structured")
	defer span.End()

	messages := toChatMessages("", history)
	messages = append(messages, chatMessage{
		Role:    messageRoleUser,
		Content: feedbackPrompt,
	})

	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(llms.Feedback{})

	reqBody := requestBody{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: &chatResponseFormat{
			Type: "json_schema",
			JSONSchema: &responseJSONSchema{
				Name:   "Feedback",
				Schema: *schema,
				Strict: true,
			},
		},
	}

	span.SetAttributes(attribute.String("request.model", c.model))
	schemaString, _ := schema.MarshalJSON()
	span.SetAttributes(attribute.String("request.schema", string(schemaString)))

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, err := io.ReadAll(resp.Body); err == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		return nil, fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var response responseBody
	if err := json.Unmarshal(respBodyBytes, &response); err != nil {
		return nil, fmt.Errorf("error unmarshalling response body: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion response")
	}

	content := response.Choices[0].Message.Content
	// Some models wrap the structured output in a markdown code fence.
	if split := strings.Split(content, "```"); len(split) > 1 {
		content = split[1]
	}

	var feedback llms.Feedback
	if err := json.Unmarshal([]byte(content), &feedback); err != nil {
		return nil, fmt.Errorf("error unmarshalling structured response: %w", err)
	}

	return &feedback, nil
}

type chatResponseFormat struct {
	Type       string              `json:"type"`
	JSONSchema *responseJSONSchema `json:"json_schema,omitempty"`
}

type responseJSONSchema struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Schema      jsonschema.Schema `json:"schema"`
	Strict      bool              `json:"strict"`
}
