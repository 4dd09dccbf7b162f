package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunWorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{
			name: "all up",
			checks: map[string]Check{
				"dataset": PingCheck(func(context.Context) error { return nil }, true),
			},
			want: StatusUp,
		},
		{
			name: "optional failure degrades",
			checks: map[string]Check{
				"dataset": PingCheck(func(context.Context) error { return nil }, true),
				"redis":   PingCheck(func(context.Context) error { return errors.New("refused") }, false),
			},
			want: StatusDegraded,
		},
		{
			name: "required failure is down",
			checks: map[string]Check{
				"dataset": PingCheck(nil, true),
				"redis":   PingCheck(nil, false),
			},
			want: StatusDown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s (%+v)", report.Status, tt.want, report.Components)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("components = %d, want %d", len(report.Components), len(tt.checks))
			}
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("redis", PingCheck(nil, false))
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest("GET", "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("degraded readiness = %d, want 200", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Components["redis"].Message != "not configured" {
		t.Errorf("redis component = %+v", report.Components["redis"])
	}

	c.Register("dataset", PingCheck(func(context.Context) error { return errors.New("empty") }, true))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest("GET", "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("down readiness = %d, want 503", rec.Code)
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest("GET", "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live = %d", rec.Code)
	}
}
