package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/dicewire/internal/testutil/testlog"
)

var errBoom = errors.New("boom")

func TestRunAttemptsExactlyMaxAttempts(t *testing.T) {
	testlog.Start(t)
	for _, n := range []int{1, 2, 5} {
		var calls atomic.Int32
		r := Retrier{MaxAttempts: n, Delay: time.Millisecond, ShouldRetry: func(error) bool { return true }}
		err := r.Do(context.Background(), func(context.Context) error {
			calls.Add(1)
			return errBoom
		})
		if !errors.Is(err, errBoom) {
			t.Fatalf("n=%d expected last error, got %v", n, err)
		}
		if got := calls.Load(); int(got) != n {
			t.Fatalf("n=%d expected %d attempts, got %d", n, n, got)
		}
	}
}

func TestRunReturnsFirstSuccess(t *testing.T) {
	testlog.Start(t)
	var calls int
	out, err := Run(context.Background(), Retrier{MaxAttempts: 4, Delay: time.Millisecond}, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errBoom
		}
		return "ok", nil
	})
	if err != nil || out != "ok" {
		t.Fatalf("unexpected out=%q err=%v", out, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRunPredicateRejectionStopsImmediately(t *testing.T) {
	testlog.Start(t)
	var calls int
	r := Retrier{MaxAttempts: 5, Delay: time.Hour, ShouldRetry: func(error) bool { return false }}
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errBoom
	})
	if !errors.Is(err, errBoom) || calls != 1 {
		t.Fatalf("expected one call with errBoom, calls=%d err=%v", calls, err)
	}
}

func TestRunCancellationDuringDelayPropagates(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	r := Retrier{
		MaxAttempts: 10,
		Delay:       time.Hour,
		ShouldRetry: func(error) bool { return true },
		OnRetry: func(int, error) {
			cancel()
		},
	}
	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, func(context.Context) error {
			calls.Add(1)
			return errBoom
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if calls.Load() != 1 {
			t.Fatalf("expected no attempt after cancel, got %d", calls.Load())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("cancellation was swallowed by the retry delay")
	}
}

func TestRunNeverRetriesCancellationErrors(t *testing.T) {
	testlog.Start(t)
	var calls int
	r := Retrier{MaxAttempts: 3, Delay: time.Millisecond, ShouldRetry: func(error) bool { return true }}
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) || calls != 1 {
		t.Fatalf("expected single attempt, calls=%d err=%v", calls, err)
	}
}

func TestRunRejectsInvalidAttempts(t *testing.T) {
	err := Retrier{MaxAttempts: 0}.Do(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, ErrInvalidAttempts) {
		t.Fatalf("expected ErrInvalidAttempts, got %v", err)
	}
}

func TestOnRetryReceivesAttemptNumbers(t *testing.T) {
	var seen []int
	r := Retrier{MaxAttempts: 3, Delay: time.Millisecond, OnRetry: func(attempt int, _ error) {
		seen = append(seen, attempt)
	}}
	_ = r.Do(context.Background(), func(context.Context) error { return errBoom })
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("unexpected retry attempts: %v", seen)
	}
}
