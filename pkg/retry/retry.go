package retry

import (
	"context"
	"time"
)

// BackoffFunc returns the delay before the given attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// Policy describes a retry strategy: how many attempts, how long to wait
// between them, and which errors are worth retrying at all.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc
	IsRetryable func(error) bool
}

// Exponential doubles the base delay on every attempt: base, 2*base, 4*base...
func Exponential(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return base << (attempt - 1)
	}
}

// Constant waits the same delay between every attempt.
func Constant(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// Do runs fn until it succeeds, the error is not retryable, attempts are
// exhausted, or ctx is cancelled. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p.IsRetryable != nil && !p.IsRetryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := time.Duration(0)
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
