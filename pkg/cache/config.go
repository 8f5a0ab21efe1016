package cache

import "time"

type Options struct {
	// DefaultTTL applies when Set receives a zero expiration.
	DefaultTTL time.Duration

	// MaxEntries bounds the in-memory store. Oldest entries are evicted
	// once the limit is reached. Zero means unbounded.
	MaxEntries int

	// CleanupInterval controls how often expired in-memory entries are
	// swept. Zero disables the background sweeper.
	CleanupInterval time.Duration

	// Prefix namespaces Redis keys.
	Prefix string
}

func DefaultOptions() Options {
	return Options{
		DefaultTTL:      5 * time.Minute,
		MaxEntries:      10000,
		CleanupInterval: time.Minute,
		Prefix:          "trendpulse",
	}
}
