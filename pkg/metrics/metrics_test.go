package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHandlerExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg, reg)
	m.SearchQueriesTotal.WithLabelValues("hit").Inc()
	m.ChatCompletionsTotal.WithLabelValues("ok").Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`policy_search_queries_total{result_type="hit"} 1`,
		`chat_completions_total{outcome="ok"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestNewServerRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg, reg)
	srv := m.NewServer(9999)
	if srv.Addr != ":9999" {
		t.Errorf("addr = %q", srv.Addr)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if !strings.Contains(rec.Body.String(), "/metrics") {
		t.Error("index page should link to /metrics")
	}
}
