package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

var errUpstream = errors.New("upstream down")

func failing(context.Context) error { return errUpstream }

func TestOpensAtThreshold(t *testing.T) {
	b := New(3, time.Minute, testLogger(t))
	defer b.Stop()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := b.Do(ctx, failing)
		assert.ErrorIs(t, err, errUpstream)
	}

	st := b.State()
	assert.True(t, st.Open)
	assert.Equal(t, 3, st.FailureCount)
}

func TestFailsFastWhenOpen(t *testing.T) {
	b := New(2, time.Minute, testLogger(t))
	defer b.Stop()
	ctx := context.Background()

	_ = b.Do(ctx, failing)
	_ = b.Do(ctx, failing)

	invoked := false
	err := b.Do(ctx, func(context.Context) error {
		invoked = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, invoked)
}

func TestAutoReset(t *testing.T) {
	b := New(2, 20*time.Millisecond, testLogger(t))
	defer b.Stop()
	ctx := context.Background()

	_ = b.Do(ctx, failing)
	_ = b.Do(ctx, failing)
	require.True(t, b.State().Open)

	time.Sleep(40 * time.Millisecond)

	st := b.State()
	assert.False(t, st.Open)
	assert.Equal(t, 0, st.FailureCount)

	err := b.Do(ctx, func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestSuccessResetsCounter(t *testing.T) {
	b := New(3, time.Minute, testLogger(t))
	defer b.Stop()
	ctx := context.Background()

	_ = b.Do(ctx, failing)
	_ = b.Do(ctx, failing)
	assert.Equal(t, 2, b.State().FailureCount)

	require.NoError(t, b.Do(ctx, func(context.Context) error { return nil }))
	assert.Equal(t, 0, b.State().FailureCount)

	// the streak starts over
	_ = b.Do(ctx, failing)
	_ = b.Do(ctx, failing)
	assert.False(t, b.State().Open)
}

func TestManualReset(t *testing.T) {
	b := New(1, time.Hour, testLogger(t))
	defer b.Stop()

	_ = b.Do(context.Background(), failing)
	require.True(t, b.State().Open)

	b.Reset()
	st := b.State()
	assert.False(t, st.Open)
	assert.Equal(t, 0, st.FailureCount)
}
