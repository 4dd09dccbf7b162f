// Package health runs registered dependency checks in parallel and serves
// the aggregate as liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the health state of a component or the system overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Check is a function that checks a single dependency and returns its status.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth holds the result of a single component check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the aggregated result of all component checks.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// Checker manages registered health checks and runs them concurrently.
type Checker struct {
	checks map[string]Check
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewChecker creates an empty Checker.
func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]Check),
		logger: slog.Default().With("component", "health"),
	}
}

// Register adds a named health check, replacing any check of that name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
	c.logger.Debug("health check registered", "check", name)
}

// PingCheck adapts a ping function. An optional dependency that fails
// reports degraded; a required one reports down. A nil ping means the
// dependency is not configured.
func PingCheck(ping func(ctx context.Context) error, required bool) Check {
	return func(ctx context.Context) ComponentHealth {
		failed := StatusDegraded
		if required {
			failed = StatusDown
		}
		if ping == nil {
			return ComponentHealth{Status: failed, Message: "not configured"}
		}
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: failed, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// checkTimeout bounds a single dependency check.
const checkTimeout = 2 * time.Second

var severity = map[Status]int{StatusUp: 0, StatusDegraded: 1, StatusDown: 2}

// Run executes all registered checks concurrently and returns an aggregated
// Report. The overall status is the worst status among all components.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for name, check := range checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			start := time.Now()
			result := check(checkCtx)
			result.Latency = time.Since(start).Round(time.Millisecond).String()

			mu.Lock()
			defer mu.Unlock()
			report.Components[name] = result
			if severity[result.Status] > severity[report.Status] {
				report.Status = result.Status
			}
			return nil
		})
	}
	g.Wait()
	if report.Status != StatusUp {
		c.logger.Debug("health degraded", "status", report.Status)
	}
	return report
}

// LiveHandler always answers 200 while the process serves HTTP.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
		})
	}
}

// ReadyHandler answers 503 only when a component is down. A degraded
// optional backend such as the cache keeps the instance in rotation.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		report := c.Run(ctx)
		w.Header().Set("Content-Type", "application/json")
		if report.Status != StatusDown {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
