package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sleekcode-io/ibot/core/registry"
)

// Service is the slice of the session registry the HTTP surface exposes.
type Service interface {
	CreateSession(ctx context.Context, roleID int, language string) (int64, string, error)
	EndSession(ctx context.Context, id int64, rating int, comments string) error
	SubmitTurn(ctx context.Context, id int64, userText string) (string, error)
	SetJobContext(ctx context.Context, id int64, jobText string, mode string) (string, error)
	SetLanguage(ctx context.Context, id int64, language, voice string) error
	ActiveCount() int
}

type startRequest struct {
	RoleID   *int   `json:"roleid"`
	Language string `json:"language,omitempty"`
}

type startResponse struct {
	ConversationID int64  `json:"conversationId"`
	Message        string `json:"message"`
}

type endRequest struct {
	ID       *int64 `json:"id"`
	Rating   int    `json:"rating,omitempty"`
	Comments string `json:"comments,omitempty"`
}

type messageRequest struct {
	ID      *int64 `json:"id"`
	Content string `json:"content"`
}

type messageResponse struct {
	Response string `json:"response"`
}

type jobDataRequest struct {
	ID      *int64 `json:"id"`
	Mode    string `json:"mode"`
	JobData string `json:"jobData"`
}

type languageRequest struct {
	ID       *int64 `json:"id"`
	Language string `json:"language"`
	Voice    string `json:"voice"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type StartHandler struct {
	Service Service
	Logger  *slog.Logger
	MaxBody int64
}

func (h StartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeRequest(w, r, h.MaxBody, &req) {
		return
	}
	if req.RoleID == nil {
		writeError(w, http.StatusBadRequest, "missing role id")
		return
	}

	id, greeting, err := h.Service.CreateSession(r.Context(), *req.RoleID, req.Language)
	if err != nil {
		writeServiceError(w, h.Logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, startResponse{ConversationID: id, Message: greeting})
}

type EndHandler struct {
	Service Service
	Logger  *slog.Logger
	MaxBody int64
}

func (h EndHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	if !decodeRequest(w, r, h.MaxBody, &req) {
		return
	}
	if req.ID == nil {
		writeError(w, http.StatusBadRequest, "missing conversation id")
		return
	}

	if err := h.Service.EndSession(r.Context(), *req.ID, req.Rating, req.Comments); err != nil {
		writeServiceError(w, h.Logger, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type MessageHandler struct {
	Service Service
	Logger  *slog.Logger
	MaxBody int64
}

func (h MessageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeRequest(w, r, h.MaxBody, &req) {
		return
	}
	if req.ID == nil {
		writeError(w, http.StatusBadRequest, "missing conversation id")
		return
	}

	botText, err := h.Service.SubmitTurn(r.Context(), *req.ID, req.Content)
	if err != nil {
		writeServiceError(w, h.Logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Response: botText})
}

type JobDataHandler struct {
	Service Service
	Logger  *slog.Logger
	MaxBody int64
}

func (h JobDataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req jobDataRequest
	if !decodeRequest(w, r, h.MaxBody, &req) {
		return
	}
	if req.ID == nil {
		writeError(w, http.StatusBadRequest, "missing conversation id")
		return
	}

	botText, err := h.Service.SetJobContext(r.Context(), *req.ID, req.JobData, req.Mode)
	if err != nil {
		writeServiceError(w, h.Logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Response: botText})
}

type LanguageHandler struct {
	Service Service
	Logger  *slog.Logger
	MaxBody int64
}

func (h LanguageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if !decodeRequest(w, r, h.MaxBody, &req) {
		return
	}
	if req.ID == nil {
		writeError(w, http.StatusBadRequest, "missing conversation id")
		return
	}
	if req.Voice == "" {
		writeError(w, http.StatusBadRequest, "missing voice")
		return
	}

	if err := h.Service.SetLanguage(r.Context(), *req.ID, req.Language, req.Voice); err != nil {
		writeServiceError(w, h.Logger, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type HealthHandler struct {
	Service Service
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		OK             bool `json:"ok"`
		ActiveSessions int  `json:"activeSessions"`
	}{OK: true, ActiveSessions: h.Service.ActiveCount()})
}

func decodeRequest(w http.ResponseWriter, r *http.Request, maxBody int64, dst any) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	if maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// writeServiceError maps the registry error taxonomy onto HTTP statuses:
// unknown sessions are 404, rejected input is 400, gateway trouble is 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrInvalidRole),
		errors.Is(err, registry.ErrEmptyInput),
		errors.Is(err, registry.ErrInvalidMode):
		status = http.StatusBadRequest
	}

	if logger != nil && status == http.StatusInternalServerError {
		reqID, _ := RequestIDFrom(r.Context())
		logger.Error("request failed", "request_id", reqID, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
