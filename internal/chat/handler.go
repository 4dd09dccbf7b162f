package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/metrics"
)

const (
	maxBodyBytes       = 1 << 20
	sessionTemperature = 0.7
	sessionMaxTokens   = 800
	noResponse         = "No response generated"
	sessionHeader      = "X-Session-ID"
)

// Tracker receives analytics events. *analytics.Collector satisfies it.
type Tracker interface {
	Track(event any)
}

type Handler struct {
	completer Completer
	fallback  *FallbackCompleter
	sessions  *SessionStore
	tracker   Tracker
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type HandlerOption func(*Handler)

// WithFallback answers session queries from the dataset when the completer
// is not configured or its upstream fails.
func WithFallback(f *FallbackCompleter) HandlerOption {
	return func(h *Handler) { h.fallback = f }
}

// NewHandler wires the chat endpoints. tracker and m may be nil.
func NewHandler(completer Completer, sessions *SessionStore, tracker Tracker, m *metrics.Metrics, opts ...HandlerOption) *Handler {
	h := &Handler{
		completer: completer,
		sessions:  sessions,
		tracker:   tracker,
		metrics:   m,
		logger:    slog.Default().With("component", "chat-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Completions forwards a raw completion request and returns the upstream
// completion object.
func (h *Handler) Completions(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.complete(r, req)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type sessionRequest struct {
	SessionID string     `json:"session_id"`
	Query     string     `json:"query"`
	Documents []Document `json:"documents"`
	PolicyID  int        `json:"policy_id,omitempty"`
}

type sessionResponse struct {
	SessionID  string `json:"session_id"`
	Response   string `json:"response"`
	Turns      int    `json:"turns"`
	UsedRealAI bool   `json:"used_real_ai"`
}

// Chat answers a query within a session, creating the session when no id
// is supplied.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		h.writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(sessionHeader)
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	session := h.sessions.Get(req.SessionID)
	temperature := sessionTemperature
	firstTurn := len(session.History()) == 0
	resp, err := h.complete(r, Request{
		Messages:    session.BuildMessages(req.Query, req.Documents),
		Temperature: &temperature,
		MaxTokens:   sessionMaxTokens,
	})

	var text string
	switch {
	case err == nil:
		text = resp.Text()
		if text == "" {
			text = noResponse
		}
	case h.fallback != nil && fallbackable(err):
		logger.FromContext(r.Context()).Warn("chat backend unavailable, answering from dataset", "error", err)
		if h.metrics != nil {
			h.metrics.ChatCompletionsTotal.WithLabelValues("fallback").Inc()
		}
		text = h.fallback.Answer(req.Query, req.PolicyID, firstTurn)
	default:
		h.writeAppError(w, r, err)
		return
	}

	session.Record(req.Query, text)
	w.Header().Set(sessionHeader, req.SessionID)
	h.writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:  req.SessionID,
		Response:   text,
		Turns:      len(session.History()),
		UsedRealAI: err == nil,
	})
}

// fallbackable reports whether a dataset answer may stand in for the
// completion. Bad requests and callers that went away get none.
func fallbackable(err error) bool {
	return !errors.Is(err, apperrors.ErrInvalidInput) && !errors.Is(err, context.Canceled)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	turns := []Turn{}
	if s, ok := h.sessions.Lookup(id); ok {
		turns = s.History()
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "history": turns})
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if s, ok := h.sessions.Lookup(id); ok {
		s.Clear()
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "cleared"})
}

func (h *Handler) complete(r *http.Request, req Request) (*Response, error) {
	start := time.Now()
	resp, err := h.completer.Complete(r.Context(), req)
	elapsed := time.Since(start)

	outcome := "ok"
	switch {
	case errors.Is(err, apperrors.ErrNotConfigured):
		outcome = "not_configured"
	case errors.Is(err, apperrors.ErrInvalidInput):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	if h.metrics != nil {
		h.metrics.ChatCompletionsTotal.WithLabelValues(outcome).Inc()
		if outcome == "ok" || outcome == "error" {
			h.metrics.ChatLatency.Observe(elapsed.Seconds())
		}
	}
	if h.tracker != nil && (outcome == "ok" || outcome == "error") {
		model := req.Model
		if resp != nil {
			model = resp.Model
		}
		h.tracker.Track(analytics.ChatEvent{
			Type:          analytics.EventChat,
			Model:         model,
			Messages:      len(req.Messages),
			Success:       err == nil,
			LatencyMillis: elapsed.Milliseconds(),
			Timestamp:     time.Now().UTC(),
			RequestID:     logger.RequestID(r.Context()),
		})
	}
	if err == nil {
		logger.FromContext(r.Context()).Info("chat completion",
			"model", resp.Model,
			"messages", len(req.Messages),
			"usage", resp.Usage.String(),
			"latency_ms", elapsed.Milliseconds(),
		)
	}
	return resp, err
}

func sessionID(r *http.Request) string {
	if id := r.URL.Query().Get("session_id"); id != "" {
		return id
	}
	return r.Header.Get(sessionHeader)
}

func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("chat completion failed", "status", status, "error", err)
	}
	h.writeError(w, status, message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
