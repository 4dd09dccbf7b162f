package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/metrics"
)

// unmatchedPath labels requests that no route served.
const unmatchedPath = "unmatched"

// Metrics records HTTP request count, latency and the in-flight gauge,
// labelled by route rather than raw path.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := routeLabel(r.URL.Path, sw.status)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// routeLabel folds the policy id into a placeholder and buckets any other
// 404 under one label so unknown paths cannot grow the label set.
func routeLabel(path string, status int) string {
	if p := normalizePath(path); p != path {
		return p
	}
	if status == http.StatusNotFound {
		return unmatchedPath
	}
	return path
}

// normalizePath collapses the policy id path parameter.
func normalizePath(path string) string {
	const policies = "/api/v1/policies/"
	if rest, ok := strings.CutPrefix(path, policies); ok && rest != "" {
		return policies + "{id}"
	}
	return path
}
