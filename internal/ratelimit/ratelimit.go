// Package ratelimit keeps one token bucket per client key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter grants each key limit tokens per window, refilled continuously.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int
	window  time.Duration
	every   rate.Limit
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// New creates a limiter and starts its stale-bucket sweeper. Call Stop to
// release it.
func New(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		clients: make(map[string]*client),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if limit > 0 {
		l.every = rate.Every(window / time.Duration(limit))
	}
	go l.cleanup()
	return l
}

// Allow consumes one token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	if l.limit <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.every, l.limit)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// RetryAfter is the time needed to refill one token.
func (l *Limiter) RetryAfter() time.Duration {
	if l.limit <= 0 {
		return l.window
	}
	return l.window / time.Duration(l.limit)
}

// Reset clears the state for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, key)
}

func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops clients idle for more than two windows.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-2 * l.window)
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}
