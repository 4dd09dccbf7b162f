package ratelimit

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(limit int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(limit, window)
	l.now = clock.now
	return l, clock
}

func TestAllowExhaustsBucket(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("4th request should be rejected")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("other keys have their own bucket")
	}
}

func TestAllowRefills(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)
	defer l.Stop()

	l.Allow("k")
	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("bucket should be empty")
	}
	clock.t = clock.t.Add(30 * time.Second)
	if !l.Allow("k") {
		t.Error("half a window should refill one token")
	}
	if l.Allow("k") {
		t.Error("only one token should have been refilled")
	}
}

func TestResetAndSweep(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)
	defer l.Stop()

	l.Allow("k")
	l.Reset("k")
	if !l.Allow("k") {
		t.Error("reset key should get a fresh bucket")
	}

	clock.t = clock.t.Add(3 * time.Minute)
	l.sweep()
	l.mu.Lock()
	n := len(l.clients)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("sweep left %d clients", n)
	}
}

func TestRetryAfter(t *testing.T) {
	l := New(30, time.Minute)
	defer l.Stop()
	if got := l.RetryAfter(); got != 2*time.Second {
		t.Errorf("RetryAfter = %v, want 2s", got)
	}
	l.Stop()
}
