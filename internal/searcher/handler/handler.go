// Package handler exposes the policy search engine over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/tracing"
)

// Tracker receives analytics events. *analytics.Collector satisfies it.
type Tracker interface {
	Track(event any)
}

// Handler serves the search, suggestion, filter and dashboard endpoints.
type Handler struct {
	engine     *engine.Engine
	cache      *cache.QueryCache
	tracker    Tracker
	metrics    *metrics.Metrics
	maxResults int
	logger     *slog.Logger
}

// New builds the search handler. queryCache, tracker and m are optional.
func New(eng *engine.Engine, queryCache *cache.QueryCache, tracker Tracker, m *metrics.Metrics, maxResults int) *Handler {
	return &Handler{
		engine:     eng,
		cache:      queryCache,
		tracker:    tracker,
		metrics:    m,
		maxResults: maxResults,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Search runs a query with optional category, status, budget and sort
// filters. An empty q lists every policy.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "search", logger.RequestID(r.Context()))
	log := logger.FromContext(ctx)
	defer func() {
		span.End()
		span.Log(log)
	}()

	params := r.URL.Query()
	query := params.Get("q")
	f, err := parseFilters(params)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	limit := h.maxResults
	if v := params.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, h.maxResults)
	}
	span.SetAttr("query", query)
	span.SetAttr("limit", limit)

	var (
		result   *engine.SearchResult
		cacheHit bool
	)
	compute := func() (*engine.SearchResult, error) {
		_, child := tracing.StartChildSpan(ctx, "engine.execute")
		defer child.End()
		res := h.engine.Execute(query, f, limit)
		child.SetAttr("total_hits", res.TotalHits)
		return res, nil
	}
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, f, limit, compute)
		if err != nil {
			log.Error("search failed", "query", query, "error", err)
			h.writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
	} else {
		result, _ = compute()
	}
	span.SetAttr("cache_hit", cacheHit)

	elapsed := time.Since(start)
	h.observe(result, cacheHit, elapsed)

	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_us", elapsed.Microseconds(),
	)
	if h.tracker != nil {
		h.tracker.Track(analytics.SearchEvent{
			Type:          analytics.EventSearch,
			Query:         query,
			Terms:         parser.Parse(query).Terms,
			Category:      f.Category,
			Status:        f.Status,
			SortBy:        string(f.SortBy),
			BudgetFilter:  f.BudgetRange != nil,
			TotalHits:     result.TotalHits,
			Returned:      len(result.Results),
			LatencyMicros: elapsed.Microseconds(),
			CacheHit:      cacheHit,
			Timestamp:     time.Now().UTC(),
			RequestID:     logger.RequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) observe(result *engine.SearchResult, cacheHit bool, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	resultType, cacheStatus := "miss", "miss"
	if h.cache == nil {
		cacheStatus = "disabled"
	}
	if cacheHit {
		resultType, cacheStatus = "hit", "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	}
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	h.metrics.SearchResultsCount.Observe(float64(result.TotalHits))
}

// parseFilters reads category, status, min_budget, max_budget and sort.
// Supplying only one budget bound leaves the other side open.
func parseFilters(params url.Values) (filter.Filters, error) {
	get := params.Get
	f := filter.Filters{
		Category: get("category"),
		Status:   get("status"),
		SortBy:   filter.ParseSortOrder(get("sort")),
	}
	if f.Category == "" {
		f.Category = filter.All
	}
	if f.Status == "" {
		f.Status = filter.All
	}

	minRaw, maxRaw := get("min_budget"), get("max_budget")
	if minRaw == "" && maxRaw == "" {
		return f, nil
	}
	br := &filter.BudgetRange{Min: 0, Max: math.MaxFloat64}
	if minRaw != "" {
		v, err := parseBudget(minRaw)
		if err != nil {
			return f, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "min_budget: %v", err)
		}
		br.Min = v
	}
	if maxRaw != "" {
		v, err := parseBudget(maxRaw)
		if err != nil {
			return f, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "max_budget: %v", err)
		}
		br.Max = v
	}
	if br.Min > br.Max {
		return f, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "min_budget exceeds max_budget")
	}
	f.BudgetRange = br
	return f, nil
}

func parseBudget(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%q is negative", s)
	}
	return v, nil
}

// Suggestions serves autocomplete for q.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":       query,
		"suggestions": h.engine.Suggest(query),
	})
}

// Policy serves GET /api/v1/policies/{id}.
func (h *Handler) Policy(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "policy id must be an integer")
		return
	}
	p, ok := h.engine.PolicyByID(id)
	if !ok {
		h.writeAppError(w, apperrors.Newf(apperrors.ErrPolicyNotFound, http.StatusNotFound, "policy %d not found", id))
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"categories": h.engine.Categories()})
}

func (h *Handler) BudgetStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.BudgetStats())
}

// Dashboard serves the aggregate counts and budget breakdowns.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Dashboard())
}

// CacheStats reports the query cache counters, or a disabled status.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
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
