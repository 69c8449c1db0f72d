// Command ibot-server runs the conversation HTTP server: an OpenAI-backed
// session registry behind the /conversation/v1 surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sleekcode-io/ibot/core/llms/openai"
	"github.com/sleekcode-io/ibot/core/registry"
	"github.com/sleekcode-io/ibot/server"
)

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := server.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gateway, err := openai.NewClient()
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	registryOpts := []registry.Option{registry.WithGatewayTimeout(cfg.GatewayTimeout)}
	if cfg.FeedbackEnabled {
		registryOpts = append(registryOpts, registry.WithFeedbackGeneration())
	}
	reg := registry.New(gateway, registryOpts...)

	srv := server.New(cfg, reg, logger)
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}

	logger.Info("starting conversation server", "addr", cfg.Addr)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("conversation server stopped")
	return nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "ibot-server: %v\n", err)
		os.Exit(1)
	}
}
