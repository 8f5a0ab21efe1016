package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (interface{}, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Close() error
}

// GetTyped retrieves key and converts the stored value to T. In-memory hits
// come back as the stored value itself; Redis hits come back as JSON bytes.
func GetTyped[T any](ctx context.Context, c Service, key string) (T, error) {
	var zero T

	raw, err := c.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	switch v := raw.(type) {
	case T:
		return v, nil
	case []byte:
		var obj T
		if err := json.Unmarshal(v, &obj); err != nil {
			return zero, err
		}
		return obj, nil
	case string:
		var obj T
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return zero, err
		}
		return obj, nil
	default:
		return zero, ErrCacheMiss
	}
}

// GenerateKey creates a cache key with prefix and ID.
func GenerateKey(prefix string, id string) string {
	return prefix + ":" + id
}
