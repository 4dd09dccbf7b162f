package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/chat"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/middleware"
)

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, req chat.Request) (*chat.Response, error) {
	last := req.Messages[len(req.Messages)-1]
	return &chat.Response{
		ID:    "chatcmpl-test",
		Model: "test",
		Choices: []chat.Choice{{
			Message:      chat.Message{Role: chat.RoleAssistant, Content: "echo: " + last.Content},
			FinishReason: "stop",
		}},
	}, nil
}

func newRouter(t *testing.T, limit int) http.Handler {
	t.Helper()
	ds, err := policy.Default()
	if err != nil {
		t.Fatal(err)
	}
	eng := engine.New(ds)
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)
	limiter := ratelimit.New(limit, time.Minute)
	t.Cleanup(limiter.Stop)

	checker := health.NewChecker()
	checker.Register("dataset", health.PingCheck(func(context.Context) error { return nil }, true))

	return New(Handlers{
		Search:    handler.New(eng, nil, nil, m, 100),
		Chat:      chat.NewHandler(echoCompleter{}, chat.NewSessionStore("prompt", 10, 10), nil, m),
		Documents: document.NewHandler(),
		Analytics: analytics.NewHandler(analytics.NewAggregator(), nil),
		Health:    checker,
	}, Options{
		Metrics:      m,
		Limiter:      limiter,
		AllowOrigins: []string{"http://localhost:5173"},
		Timeout:      5 * time.Second,
	})
}

func TestRoutes(t *testing.T) {
	router := newRouter(t, 100)
	tests := []struct {
		method string
		target string
		body   string
		want   int
	}{
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusOK},
		{http.MethodGet, "/api/v1/search?q=school", "", http.StatusOK},
		{http.MethodGet, "/api/v1/suggestions?q=digital", "", http.StatusOK},
		{http.MethodGet, "/api/v1/policies/1", "", http.StatusOK},
		{http.MethodGet, "/api/v1/policies/42", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/categories", "", http.StatusOK},
		{http.MethodGet, "/api/v1/stats/budget", "", http.StatusOK},
		{http.MethodGet, "/api/v1/dashboard", "", http.StatusOK},
		{http.MethodGet, "/api/v1/cache/stats", "", http.StatusOK},
		{http.MethodGet, "/api/v1/analytics", "", http.StatusOK},
		{http.MethodGet, "/api/v1/analytics/snapshots", "", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/v1/chat/completions", `{"messages":[{"role":"user","content":"hi"}]}`, http.StatusOK},
		{http.MethodPost, "/api/v1/chat", `{"session_id":"s1","query":"hi"}`, http.StatusOK},
		{http.MethodGet, "/api/v1/chat/history?session_id=s1", "", http.StatusOK},
		{http.MethodDelete, "/api/v1/chat/history?session_id=s1", "", http.StatusOK},
		{http.MethodPost, "/api/v1/documents/analyze", `{"text":"Budget of ₹10 crore"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/search", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d, body = %s", rec.Code, tt.want, rec.Body)
			}
			if rec.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("missing request id header")
			}
		})
	}
}

func TestChatIsRateLimited(t *testing.T) {
	router := newRouter(t, 2)
	body := `{"messages":[{"role":"user","content":"hi"}]}`

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", strings.NewReader(body))
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Search is not limited.
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("search %d status = %d", i, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newRouter(t, 10)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}
