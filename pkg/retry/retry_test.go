package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	p := Policy{
		MaxAttempts: 3,
		Backoff:     Constant(time.Millisecond),
		IsRetryable: func(error) bool { return true },
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	p := Policy{
		MaxAttempts: 5,
		Backoff:     Constant(time.Millisecond),
		IsRetryable: func(err error) bool { return errors.Is(err, errTransient) },
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	p := Policy{
		MaxAttempts: 3,
		Backoff:     Constant(time.Millisecond),
		IsRetryable: func(error) bool { return true },
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestExponentialBackoffDoubles(t *testing.T) {
	b := Exponential(time.Second)
	assert.Equal(t, time.Second, b(1))
	assert.Equal(t, 2*time.Second, b(2))
	assert.Equal(t, 4*time.Second, b(3))
}

func TestDoRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts: 10,
		Backoff:     Constant(time.Hour),
		IsRetryable: func(error) bool { return true },
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(ctx context.Context) error { return errTransient })
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancel")
	}
}
