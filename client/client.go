// Package client talks to the conversation server over HTTP, implementing
// the same session operations the in-process registry offers so an
// orchestrator can run against either without caring which.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sleekcode-io/ibot/core/registry"
)

// ErrTransport marks failures reaching the server at all, as opposed to the
// server rejecting the request. Callers can treat these as retryable.
var ErrTransport = errors.New("conversation server unreachable")

const defaultRequestTimeout = 45 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, for tests or custom
// transport tuning.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   defaultRequestTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type startRequest struct {
	RoleID   int    `json:"roleid"`
	Language string `json:"language,omitempty"`
}

type startResponse struct {
	ConversationID int64  `json:"conversationId"`
	Message        string `json:"message"`
}

type endRequest struct {
	ID       int64  `json:"id"`
	Rating   int    `json:"rating,omitempty"`
	Comments string `json:"comments,omitempty"`
}

type messageRequest struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

type messageResponse struct {
	Response string `json:"response"`
}

type jobDataRequest struct {
	ID      int64  `json:"id"`
	Mode    string `json:"mode"`
	JobData string `json:"jobData"`
}

type languageRequest struct {
	ID       int64  `json:"id"`
	Language string `json:"language"`
	Voice    string `json:"voice"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateSession starts a conversation for the role and returns its id and
// greeting.
func (c *Client) CreateSession(ctx context.Context, roleID int, language string) (int64, string, error) {
	var resp startResponse
	err := c.post(ctx, "/conversation/v1/start", startRequest{RoleID: roleID, Language: language}, &resp)
	if err != nil {
		return 0, "", err
	}
	return resp.ConversationID, resp.Message, nil
}

// EndSession finishes a conversation, recording the user's rating and
// comments.
func (c *Client) EndSession(ctx context.Context, id int64, rating int, comments string) error {
	return c.post(ctx, "/conversation/v1/end", endRequest{ID: id, Rating: rating, Comments: comments}, nil)
}

// SubmitTurn sends one finished user utterance and returns the reply.
func (c *Client) SubmitTurn(ctx context.Context, id int64, userText string) (string, error) {
	var resp messageResponse
	err := c.post(ctx, "/conversation/v1/message", messageRequest{ID: id, Content: userText}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// SetJobContext injects job text into the conversation; interactive mode
// returns the bot's reaction to it.
func (c *Client) SetJobContext(ctx context.Context, id int64, jobText string, mode string) (string, error) {
	var resp messageResponse
	err := c.post(ctx, "/conversation/v1/job-data", jobDataRequest{ID: id, Mode: mode, JobData: jobText}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// SetLanguage updates the conversation's language and voice.
func (c *Client) SetLanguage(ctx context.Context, id int64, language, voice string) error {
	return c.post(ctx, "/conversation/v1/language", languageRequest{ID: id, Language: language, Voice: voice}, nil)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", ErrTransport, err)
	}
	return nil
}

// statusError translates HTTP statuses back into the registry's error
// taxonomy so callers handle local and remote registries identically.
func statusError(path string, resp *http.Response) error {
	message := "request rejected"
	var body errorResponse
	if raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			message = body.Error
		}
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", registry.ErrNotFound, message)
	case http.StatusBadRequest:
		switch path {
		case "/conversation/v1/start":
			return fmt.Errorf("%w: %s", registry.ErrInvalidRole, message)
		case "/conversation/v1/message":
			return fmt.Errorf("%w: %s", registry.ErrEmptyInput, message)
		case "/conversation/v1/job-data":
			return fmt.Errorf("%w: %s", registry.ErrInvalidMode, message)
		default:
			return fmt.Errorf("%s %s: %s", http.MethodPost, path, message)
		}
	default:
		return fmt.Errorf("%w: %s", registry.ErrGatewayFailure, message)
	}
}
