package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond}.WithSleep(noSleep(&delays))

	attempts := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return RetryableError(errors.New("transient"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(delays) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", len(delays))
	}
	for _, d := range delays {
		if d <= 0 {
			t.Fatalf("expected positive delay, got %v", d)
		}
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}.WithSleep(noSleep(&delays))

	fatal := errors.New("bad request")
	attempts := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
	if len(delays) != 0 {
		t.Fatalf("expected no sleeps, got %d", len(delays))
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}.WithSleep(noSleep(&delays))

	transient := errors.New("still down")
	attempts := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return RetryableError(transient)
	})
	if !errors.Is(err, transient) {
		t.Fatalf("expected underlying error after exhaustion, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoSingleAttemptUnwrapsMarker(t *testing.T) {
	transient := errors.New("once")
	policy := Policy{MaxAttempts: 1}

	err := policy.Do(context.Background(), func(ctx context.Context) error {
		return RetryableError(transient)
	})
	if !errors.Is(err, transient) {
		t.Fatalf("expected unwrapped error, got %v", err)
	}
}

func TestRetryableErrorNil(t *testing.T) {
	if RetryableError(nil) != nil {
		t.Fatal("RetryableError(nil) should be nil")
	}
}
