package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sleekcode-io/ibot/core/llms"
	"github.com/sleekcode-io/ibot/core/registry"
)

type fakeGateway struct {
	mu  sync.Mutex
	err error
}

func (g *fakeGateway) Complete(ctx context.Context, prompt string, opts ...llms.CompletionOption) (string, error) {
	g.mu.Lock()
	err := g.err
	g.mu.Unlock()
	if err != nil {
		return "", err
	}
	return "echo: " + prompt, nil
}

func (g *fakeGateway) setErr(err error) {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
}

func newTestServer(t *testing.T, gateway *fakeGateway) *httptest.Server {
	t.Helper()
	reg := registry.New(gateway)
	srv := New(Config{MaxBodyBytes: 1 << 20}, reg, slog.New(slog.DiscardHandler))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, raw
}

func startConversation(t *testing.T, ts *httptest.Server, roleID int) int64 {
	t.Helper()
	resp, raw := postJSON(t, ts.URL+"/conversation/v1/start", fmt.Sprintf(`{"roleid":%d}`, roleID))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status=%d body=%q", resp.StatusCode, raw)
	}
	var got struct {
		ConversationID int64  `json:"conversationId"`
		Message        string `json:"message"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	return got.ConversationID
}

func TestStartReturnsIDAndGreeting(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})

	resp, raw := postJSON(t, ts.URL+"/conversation/v1/start", `{"roleid":1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%q", resp.StatusCode, raw)
	}
	var got struct {
		ConversationID int64  `json:"conversationId"`
		Message        string `json:"message"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ConversationID != 0 {
		t.Fatalf("expected the first conversation id to be 0, got %d", got.ConversationID)
	}
	if got.Message != "I am a job interviewer" {
		t.Fatalf("expected the interviewer greeting, got %q", got.Message)
	}
	if got := resp.Header.Get("X-Request-ID"); got == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestStartRejectsInvalidRole(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})

	resp, _ := postJSON(t, ts.URL+"/conversation/v1/start", `{"roleid":7}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown role, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, ts.URL+"/conversation/v1/start", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing role, got %d", resp.StatusCode)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})
	id := startConversation(t, ts, 1)

	resp, raw := postJSON(t, ts.URL+"/conversation/v1/message",
		fmt.Sprintf(`{"id":%d,"content":"hello"}`, id))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%q", resp.StatusCode, raw)
	}
	var got struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Response != "echo: hello" {
		t.Fatalf("expected the gateway reply, got %q", got.Response)
	}
}

func TestMessageRejectsEmptyContent(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})
	id := startConversation(t, ts, 1)

	resp, _ := postJSON(t, ts.URL+"/conversation/v1/message", fmt.Sprintf(`{"id":%d,"content":""}`, id))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty message, got %d", resp.StatusCode)
	}
}

func TestMessageAfterEndIsNotFound(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})
	id := startConversation(t, ts, 1)

	resp, _ := postJSON(t, ts.URL+"/conversation/v1/end", fmt.Sprintf(`{"id":%d,"rating":5}`, id))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected end to succeed, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, ts.URL+"/conversation/v1/message", fmt.Sprintf(`{"id":%d,"content":"hi"}`, id))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after the conversation ended, got %d", resp.StatusCode)
	}
}

func TestEndUnknownConversationIsNotFound(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})

	resp, _ := postJSON(t, ts.URL+"/conversation/v1/end", `{"id":42}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown conversation, got %d", resp.StatusCode)
	}
}

func TestGatewayFailureIsInternalError(t *testing.T) {
	gateway := &fakeGateway{}
	ts := newTestServer(t, gateway)
	id := startConversation(t, ts, 1)

	gateway.setErr(fmt.Errorf("upstream unavailable"))
	resp, raw := postJSON(t, ts.URL+"/conversation/v1/message", fmt.Sprintf(`{"id":%d,"content":"hi"}`, id))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%q", resp.StatusCode, raw)
	}
	var got struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if got.Error == "" {
		t.Fatalf("expected an error message in the body")
	}
}

func TestJobDataInteractiveReturnsResponse(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})
	id := startConversation(t, ts, 1)

	resp, raw := postJSON(t, ts.URL+"/conversation/v1/job-data",
		fmt.Sprintf(`{"id":%d,"mode":"interactive","jobData":"Senior Go engineer"}`, id))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%q", resp.StatusCode, raw)
	}
	var got struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Response != "echo: Senior Go engineer" {
		t.Fatalf("expected the gateway reply, got %q", got.Response)
	}
}

func TestJobDataRejectsUnknownMode(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})
	id := startConversation(t, ts, 1)

	resp, _ := postJSON(t, ts.URL+"/conversation/v1/job-data",
		fmt.Sprintf(`{"id":%d,"mode":"append","jobData":"text"}`, id))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown mode, got %d", resp.StatusCode)
	}
}

func TestLanguageRequiresVoice(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})
	id := startConversation(t, ts, 1)

	resp, _ := postJSON(t, ts.URL+"/conversation/v1/language",
		fmt.Sprintf(`{"id":%d,"language":"German","voice":""}`, id))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing voice, got %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, ts.URL+"/conversation/v1/language",
		fmt.Sprintf(`{"id":%d,"language":"German","voice":"aura-luna-en"}`, id))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected language update to succeed, got %d", resp.StatusCode)
	}
}

func TestHealthReportsActiveSessions(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})
	startConversation(t, ts, 1)
	startConversation(t, ts, 0)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var got struct {
		OK             bool `json:"ok"`
		ActiveSessions int  `json:"activeSessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if !got.OK || got.ActiveSessions != 2 {
		t.Fatalf("expected 2 active sessions, got %+v", got)
	}
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})

	resp, _ := postJSON(t, ts.URL+"/conversation/v1/start", `{"roleid":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed body, got %d", resp.StatusCode)
	}
}

func TestGetOnConversationRouteIsMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})

	resp, err := http.Get(ts.URL + "/conversation/v1/start")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
