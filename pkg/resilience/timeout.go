package resilience

import (
	"context"
	"fmt"
	"time"
)

// CallWithTimeout runs fn under a deadline and returns its result. When the
// deadline passes first, the late result is discarded and the error wraps
// context.DeadlineExceeded. A non-positive timeout calls fn directly.
func CallWithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-timeoutCtx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w after %v", name, context.DeadlineExceeded, timeout)
	}
}

// WithTimeout is CallWithTimeout for functions without a result.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	_, err := CallWithTimeout(ctx, timeout, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
