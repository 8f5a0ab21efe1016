package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(Options{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache(Options{DefaultTTL: time.Minute})
	defer c.Close()

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(Options{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheEviction(t *testing.T) {
	c := NewMemoryCache(Options{DefaultTTL: time.Minute, MaxEntries: 2})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))

	// touch "a" so "b" becomes oldest
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "c", 3, 0))

	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache(Options{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGetTyped(t *testing.T) {
	c := NewMemoryCache(Options{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}

	require.NoError(t, c.Set(ctx, "direct", payload{Name: "x", Score: 9}, 0))
	got, err := GetTyped[payload](ctx, c, "direct")
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "x", Score: 9}, got)

	// JSON bytes, as returned by the Redis layer
	require.NoError(t, c.Set(ctx, "raw", []byte(`{"name":"y","score":4}`), 0))
	got, err = GetTyped[payload](ctx, c, "raw")
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "y", Score: 4}, got)
}
