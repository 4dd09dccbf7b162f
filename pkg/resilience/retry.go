package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig shapes the exponential backoff of Retry. Zero fields take
// the defaults of withDefaults.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	// Retryable reports whether an error is worth another attempt. Nil
	// retries every error.
	Retryable func(error) bool
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	if c.JitterFraction <= 0 {
		c.JitterFraction = 0.1
	}
	return c
}

func (c RetryConfig) retryable(err error) bool {
	return c.Retryable == nil || c.Retryable(err)
}

// Retry calls fn until it succeeds, returns a non-retryable error, or
// MaxAttempts is reached. Non-retryable errors are returned unwrapped; an
// exhausted budget wraps the last error.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	log := slog.Default().With("component", "retry", "operation", name)

	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = fn()
		switch {
		case lastErr == nil:
			if attempt > 1 {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		case !cfg.retryable(lastErr):
			return lastErr
		case attempt >= cfg.MaxAttempts:
			return fmt.Errorf("all %d attempts failed for %s: %w", cfg.MaxAttempts, name, lastErr)
		case ctx.Err() != nil:
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		delay := cfg.backoff(attempt)
		log.Warn("operation failed, retrying",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"error", lastErr,
			"next_delay", delay,
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted during backoff: %w", ctx.Err())
		}
	}
}

// backoff is the jittered delay after the given failed attempt, capped at
// MaxDelay.
func (c RetryConfig) backoff(attempt int) time.Duration {
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	d += d * c.JitterFraction * (2*rand.Float64() - 1)
	return time.Duration(min(max(d, float64(c.InitialDelay)/2), float64(c.MaxDelay)))
}
