package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sleekcode-io/ibot/core/llms"
	"github.com/sleekcode-io/ibot/internal/utils"
)

const (
	url          = "https://api.openai.com/v1/chat/completions"
	defaultModel = "gpt-3.5-turbo"
)

// Client is a completion gateway backed by the OpenAI chat completions API.
type Client struct {
	apiKey      string
	model       string
	temperature *float64
	httpClient  *http.Client
}

type ClientOption func(*Client)

// WithModel overrides the default completion model.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithTemperature sets the sampling temperature for completions.
func WithTemperature(temperature float64) ClientOption {
	return func(c *Client) { c.temperature = utils.Ptr(temperature) }
}

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a gateway client. The API key is read from the
// OPENAI_API_KEY environment variable when not supplied through options.
func NewClient(opts ...ClientOption) (*Client, error) {
	apiKey, ok := os.LookupEnv("OPENAI_API_KEY")
	if !ok {
		return nil, fmt.Errorf("openai api key not found")
	}

	client := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Complete sends the ordered history plus one new user prompt and returns
// the assistant's reply. The call is bounded by ctx.
func (c *Client) Complete(ctx context.Context, prompt string, opts ...llms.CompletionOption) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()

	options := llms.CompletionOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	messages := toChatMessages(options.SystemPrompt, options.History)
	messages = append(messages, chatMessage{
		Role:    messageRoleUser,
		Content: prompt,
	})

	reqBody := requestBody{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	}
	span.SetAttributes(attribute.String("request.model", c.model))

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, err := io.ReadAll(resp.Body); err == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		return "", fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	var response responseBody
	if err := json.Unmarshal(bodyBytes, &response); err != nil {
		return "", fmt.Errorf("error unmarshalling response body: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	if response.Usage != nil {
		logger.DebugContext(ctx, "completion usage",
			"prompt_tokens", response.Usage.PromptTokens,
			"completion_tokens", response.Usage.CompletionTokens,
		)
	}

	return response.Choices[0].Message.Content, nil
}
