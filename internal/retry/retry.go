// Package retry runs an operation again after a fixed delay while a predicate accepts
// its failure.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 500 * time.Millisecond
)

var ErrInvalidAttempts = errors.New("retry: max attempts must be >= 1")

// Retrier holds no state across calls; one value may be shared by concurrent callers.
type Retrier struct {
	MaxAttempts int
	Delay       time.Duration
	// ShouldRetry reports whether a failure may be retried. Nil retries everything.
	ShouldRetry func(error) bool
	// OnRetry runs after a retryable failure, before the delay.
	OnRetry func(attempt int, err error)
}

func Default() Retrier {
	return Retrier{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

func (r Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Run(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Run returns op's first success, or the last failure once the predicate rejects it
// or MaxAttempts is spent. Cancellation of ctx always wins over the predicate.
func Run[T any](ctx context.Context, r Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if r.MaxAttempts < 1 {
		return zero, fmt.Errorf("%w: got %d", ErrInvalidAttempts, r.MaxAttempts)
	}

	for attempt := 1; ; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if isCancellation(ctx, err) {
			return zero, err
		}
		if attempt >= r.MaxAttempts || !r.shouldRetry(err) {
			return zero, err
		}
		if r.OnRetry != nil {
			r.OnRetry(attempt, err)
		}
		if sleepErr := sleep(ctx, r.Delay); sleepErr != nil {
			return zero, fmt.Errorf("retry: %w after attempt %d: %w", sleepErr, attempt, err)
		}
	}
}

func (r Retrier) shouldRetry(err error) bool {
	if r.ShouldRetry == nil {
		return true
	}
	return r.ShouldRetry(err)
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
