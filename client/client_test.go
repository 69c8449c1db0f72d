package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sleekcode-io/ibot/core/llms"
	"github.com/sleekcode-io/ibot/core/registry"
	"github.com/sleekcode-io/ibot/server"
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

func newTestClient(t *testing.T, gateway *fakeGateway) *Client {
	t.Helper()
	srv := server.New(server.Config{MaxBodyBytes: 1 << 20}, registry.New(gateway), slog.New(slog.DiscardHandler))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func TestCreateSubmitEndRoundTrip(t *testing.T) {
	c := newTestClient(t, &fakeGateway{})
	ctx := context.Background()

	id, greeting, err := c.CreateSession(ctx, 1, "")
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if greeting != "I am a job interviewer" {
		t.Fatalf("expected the interviewer greeting, got %q", greeting)
	}

	reply, err := c.SubmitTurn(ctx, id, "hello")
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}
	if reply != "echo: hello" {
		t.Fatalf("expected the gateway reply, got %q", reply)
	}

	if err := c.EndSession(ctx, id, 5, "great"); err != nil {
		t.Fatalf("expected end to succeed, got %v", err)
	}

	if _, err := c.SubmitTurn(ctx, id, "still there?"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after end, got %v", err)
	}
}

func TestCreateSessionInvalidRole(t *testing.T) {
	c := newTestClient(t, &fakeGateway{})

	if _, _, err := c.CreateSession(context.Background(), 99, ""); !errors.Is(err, registry.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestSubmitTurnEmptyInput(t *testing.T) {
	c := newTestClient(t, &fakeGateway{})
	ctx := context.Background()

	id, _, err := c.CreateSession(ctx, 1, "")
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	if _, err := c.SubmitTurn(ctx, id, "   "); !errors.Is(err, registry.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestGatewayFailureMapsToSentinel(t *testing.T) {
	gateway := &fakeGateway{}
	c := newTestClient(t, gateway)
	ctx := context.Background()

	id, _, err := c.CreateSession(ctx, 1, "")
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	gateway.setErr(fmt.Errorf("upstream unavailable"))
	if _, err := c.SubmitTurn(ctx, id, "hello"); !errors.Is(err, registry.ErrGatewayFailure) {
		t.Fatalf("expected ErrGatewayFailure, got %v", err)
	}
}

func TestJobContextModes(t *testing.T) {
	c := newTestClient(t, &fakeGateway{})
	ctx := context.Background()

	id, _, err := c.CreateSession(ctx, 1, "")
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	reply, err := c.SetJobContext(ctx, id, "Senior Go engineer", registry.ModeInteractive)
	if err != nil {
		t.Fatalf("expected interactive job data to succeed, got %v", err)
	}
	if reply != "echo: Senior Go engineer" {
		t.Fatalf("expected the gateway reaction, got %q", reply)
	}

	if _, err := c.SetJobContext(ctx, id, "text", "append"); !errors.Is(err, registry.ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestServerDownIsTransportError(t *testing.T) {
	srv := server.New(server.Config{MaxBodyBytes: 1 << 20}, registry.New(&fakeGateway{}), slog.New(slog.DiscardHandler))
	ts := httptest.NewServer(srv.Handler())
	c := New(ts.URL)
	ts.Close()

	if _, _, err := c.CreateSession(context.Background(), 1, ""); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestSetLanguageRoundTrip(t *testing.T) {
	c := newTestClient(t, &fakeGateway{})
	ctx := context.Background()

	id, _, err := c.CreateSession(ctx, 1, "")
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	if err := c.SetLanguage(ctx, id, "German", "aura-luna-en"); err != nil {
		t.Fatalf("expected language update to succeed, got %v", err)
	}
}
