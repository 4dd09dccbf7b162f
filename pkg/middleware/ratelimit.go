package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/metrics"
)

// RateLimit rejects requests with 429 once the client address has used up
// its bucket. X-Forwarded-For is only consulted when the connecting peer is
// one of trusted. m may be nil.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics, trusted []netip.Prefix) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(math.Ceil(limiter.RetryAfter().Seconds())))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r, trusted)
			if !limiter.Allow(key) {
				logger.FromContext(r.Context()).Warn("rate limit exceeded", "client", key, "path", r.URL.Path)
				if m != nil {
					m.RateLimitedTotal.WithLabelValues(normalizePath(r.URL.Path)).Inc()
				}
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ParseTrustedProxies accepts addresses ("10.0.0.1") and CIDR ranges
// ("10.0.0.0/8").
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// ClientKey identifies the caller by its remote host. When that host is a
// trusted proxy, X-Forwarded-For is walked from the right and the first hop
// that is not itself trusted is used instead.
func ClientKey(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !isTrusted(host, trusted) {
		return host
	}
	fwd := r.Header.Values("X-Forwarded-For")
	hops := strings.Split(strings.Join(fwd, ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !isTrusted(hop, trusted) {
			return hop
		}
		host = hop
	}
	return host
}

func isTrusted(host string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
