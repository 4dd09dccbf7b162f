// Package server wires the HTTP routes of the policy service and applies
// the middleware chain (RequestID → CORS → Metrics → Timeout).
package server

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/chat"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/middleware"
)

// Handlers are the endpoint groups served by the router. Chat and Analytics
// may be nil, in which case their routes are not registered.
type Handlers struct {
	Search    *handler.Handler
	Chat      *chat.Handler
	Documents *document.Handler
	Analytics *analytics.Handler
	Health    *health.Checker
}

// Options configure the middleware chain. Only TrustedProxies may set the
// client address used for rate limiting through X-Forwarded-For.
type Options struct {
	Metrics        *metrics.Metrics
	Limiter        *ratelimit.Limiter
	AllowOrigins   []string
	Timeout        time.Duration
	TrustedProxies []netip.Prefix
}

// New builds the service handler.
//
// Route table:
//
//	GET    /api/v1/search               → ranked, filtered policies
//	GET    /api/v1/suggestions          → autocomplete strings
//	GET    /api/v1/policies/{id}        → one policy
//	GET    /api/v1/categories           → distinct categories
//	GET    /api/v1/stats/budget         → budget totals
//	GET    /api/v1/dashboard            → dataset overview
//	GET    /api/v1/cache/stats          → query cache counters
//	POST   /api/v1/cache/invalidate     → flush cached searches
//	GET    /api/v1/analytics            → live search analytics
//	GET    /api/v1/analytics/snapshots  → persisted analytics
//	POST   /api/v1/chat/completions     → completion proxy (rate limited)
//	POST   /api/v1/chat                 → session chat (rate limited)
//	GET    /api/v1/chat/history         → session turns
//	DELETE /api/v1/chat/history         → clear session
//	POST   /api/v1/documents/analyze    → upload analysis
//	GET    /health/live, /health/ready
func New(h Handlers, opts Options) http.Handler {
	mux := http.NewServeMux()

	if h.Health != nil {
		mux.HandleFunc("GET /health/live", h.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", h.Health.ReadyHandler())
	}

	// Search API
	mux.HandleFunc("GET /api/v1/search", h.Search.Search)
	mux.HandleFunc("GET /api/v1/suggestions", h.Search.Suggestions)
	mux.HandleFunc("GET /api/v1/policies/{id}", h.Search.Policy)
	mux.HandleFunc("GET /api/v1/categories", h.Search.Categories)
	mux.HandleFunc("GET /api/v1/stats/budget", h.Search.BudgetStats)
	mux.HandleFunc("GET /api/v1/dashboard", h.Search.Dashboard)
	mux.HandleFunc("GET /api/v1/cache/stats", h.Search.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.Search.CacheInvalidate)

	if h.Analytics != nil {
		mux.HandleFunc("GET /api/v1/analytics", h.Analytics.Stats)
		mux.HandleFunc("GET /api/v1/analytics/snapshots", h.Analytics.Snapshots)
	}

	if h.Chat != nil {
		limited := func(fn http.HandlerFunc) http.Handler {
			if opts.Limiter == nil {
				return fn
			}
			return middleware.RateLimit(opts.Limiter, opts.Metrics, opts.TrustedProxies)(fn)
		}
		mux.Handle("POST /api/v1/chat/completions", limited(h.Chat.Completions))
		mux.Handle("POST /api/v1/chat", limited(h.Chat.Chat))
		mux.HandleFunc("GET /api/v1/chat/history", h.Chat.History)
		mux.HandleFunc("DELETE /api/v1/chat/history", h.Chat.ClearHistory)
	}

	if h.Documents != nil {
		mux.HandleFunc("POST /api/v1/documents/analyze", h.Documents.Analyze)
	}

	// request → RequestID → CORS → Metrics → Timeout → mux
	var chain http.Handler = mux
	if opts.Timeout > 0 {
		chain = middleware.Timeout(opts.Timeout)(chain)
	}
	if opts.Metrics != nil {
		chain = middleware.Metrics(opts.Metrics)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig(opts.AllowOrigins))(chain)
	chain = middleware.RequestID(chain)

	return chain
}
