package retry

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy describes how a transient operation is retried. The zero value
// performs a single attempt; use DefaultPolicy for the standard client
// behavior.
type Policy struct {
	MaxAttempts uint64
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration

	// sleep is swapped out in tests so backoff does not wall-clock wait.
	sleep func(context.Context, time.Duration) error
}

// DefaultPolicy mirrors the settings used for outbound model calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      100 * time.Millisecond,
	}
}

// WithSleep returns a copy of the policy using the provided sleep function.
func (p Policy) WithSleep(sleep func(context.Context, time.Duration) error) Policy {
	p.sleep = sleep
	return p
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	if e.err == nil {
		return "retryable"
	}
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// RetryableError marks err as transient so Do schedules another attempt.
func RetryableError(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// Do runs fn with exponential backoff until it succeeds, returns a
// non-retryable error, or attempts are exhausted. The returned error is the
// last attempt's underlying error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.MaxAttempts <= 1 {
		return unwrapRetryable(fn(ctx))
	}

	backoff := p.backoff()

	if p.sleep == nil {
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			err := fn(ctx)
			var marker *retryableError
			if errors.As(err, &marker) {
				return retry.RetryableError(marker.err)
			}
			return err
		})
		return err
	}

	// Same loop as retry.Do, but sleeping through the injected function so
	// tests can observe delays without waiting on them.
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var marker *retryableError
		if !errors.As(err, &marker) {
			return err
		}

		next, stop := backoff.Next()
		if stop {
			return marker.err
		}
		if sleepErr := p.sleep(ctx, next); sleepErr != nil {
			return sleepErr
		}
	}
}

func (p Policy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	backoff := retry.NewExponential(base)
	if p.Jitter > 0 {
		backoff = retry.WithJitter(p.Jitter, backoff)
	}
	if p.MaxDelay > 0 {
		backoff = retry.WithCappedDuration(p.MaxDelay, backoff)
	}
	return retry.WithMaxRetries(p.MaxAttempts-1, backoff)
}

func unwrapRetryable(err error) error {
	var marker *retryableError
	if errors.As(err, &marker) {
		return marker.err
	}
	return err
}
