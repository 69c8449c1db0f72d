// Package server exposes the session registry over HTTP. The routes mirror
// the conversation surface the terminal client drives: start, end, message,
// job-data, language, plus a health probe reporting live session counts.
package server

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	cfg     Config
	logger  *slog.Logger
	mux     *http.ServeMux
	service Service
}

func New(cfg Config, service Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		mux:     http.NewServeMux(),
		service: service,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", HealthHandler{Service: s.service})

	s.mux.Handle("/conversation/v1/start", StartHandler{Service: s.service, Logger: s.logger, MaxBody: s.cfg.MaxBodyBytes})
	s.mux.Handle("/conversation/v1/end", EndHandler{Service: s.service, Logger: s.logger, MaxBody: s.cfg.MaxBodyBytes})
	s.mux.Handle("/conversation/v1/message", MessageHandler{Service: s.service, Logger: s.logger, MaxBody: s.cfg.MaxBodyBytes})
	s.mux.Handle("/conversation/v1/job-data", JobDataHandler{Service: s.service, Logger: s.logger, MaxBody: s.cfg.MaxBodyBytes})
	s.mux.Handle("/conversation/v1/language", LanguageHandler{Service: s.service, Logger: s.logger, MaxBody: s.cfg.MaxBodyBytes})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = Recover(s.logger, h)
	h = AccessLog(s.logger, h)
	h = RequestID(h)
	h = otelhttp.NewHandler(h, "ibot-server")
	return h
}
