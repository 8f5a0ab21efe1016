// Package cache provides a resilient fetch wrapper: request coalescing,
// per-key rate limiting, TTL caching, and backoff retries for
// rate-limit-class failures. It fronts the ledger RPC reads and any other
// fetch the orchestrator wants deduplicated.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apphttp "TrendPulse/pkg/http"
	"TrendPulse/pkg/logger"
	"TrendPulse/pkg/retry"
)

// Fetch produces the value for a key.
type Fetch func(ctx context.Context) (interface{}, error)

type entry struct {
	data      interface{}
	writtenAt time.Time
	ttl       time.Duration
}

type inflightCall struct {
	started time.Time
	done    chan struct{}
	val     interface{}
	err     error
}

// Options tune the resilient cache. Zero values fall back to the defaults
// below.
type Options struct {
	CoalesceWindow    time.Duration // share an in-flight call younger than this
	RequestsPerSecond float64       // per-key limit
	RateLimitPause    time.Duration // sleep before re-checking when limited
	RetryAttempts     int
	RetryBaseDelay    time.Duration
	SweepInterval     time.Duration
}

func (o *Options) withDefaults() {
	if o.CoalesceWindow <= 0 {
		o.CoalesceWindow = 5 * time.Second
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 2
	}
	if o.RateLimitPause <= 0 {
		o.RateLimitPause = 500 * time.Millisecond
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 5 * time.Minute
	}
}

// Resilient wraps fetches by key.
type Resilient struct {
	mu       sync.Mutex
	entries  map[string]entry
	inflight map[string]*inflightCall
	limiters map[string]*rate.Limiter

	opts   Options
	policy retry.Policy
	log    *logger.Logger

	stopCh chan struct{}
	once   sync.Once
}

func NewResilient(opts Options, log *logger.Logger) *Resilient {
	opts.withDefaults()
	r := &Resilient{
		entries:  make(map[string]entry),
		inflight: make(map[string]*inflightCall),
		limiters: make(map[string]*rate.Limiter),
		opts:     opts,
		policy: retry.Policy{
			MaxAttempts: opts.RetryAttempts,
			Backoff:     retry.Exponential(opts.RetryBaseDelay),
			IsRetryable: apphttp.IsRateLimited,
		},
		log:    log,
		stopCh: make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// Do returns the cached value for key when fresh, joins an in-flight call
// when one is young enough, and otherwise executes fetch under the per-key
// rate limit with backoff retries for rate-limited failures. Successful
// results are cached for ttl.
func (r *Resilient) Do(ctx context.Context, key string, ttl time.Duration, fetch Fetch) (interface{}, error) {
	for {
		r.mu.Lock()
		if e, ok := r.entries[key]; ok {
			if time.Since(e.writtenAt) < e.ttl {
				r.mu.Unlock()
				return e.data, nil
			}
			delete(r.entries, key)
		}

		if call, ok := r.inflight[key]; ok && time.Since(call.started) < r.opts.CoalesceWindow {
			r.mu.Unlock()
			select {
			case <-call.done:
				return call.val, call.err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if !r.limiterLocked(key).Allow() {
			r.mu.Unlock()
			select {
			case <-time.After(r.opts.RateLimitPause):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		call := &inflightCall{started: time.Now(), done: make(chan struct{})}
		r.inflight[key] = call
		r.mu.Unlock()

		val, err := r.execute(ctx, fetch)
		call.val, call.err = val, err
		close(call.done)

		r.mu.Lock()
		if err == nil {
			r.entries[key] = entry{data: val, writtenAt: time.Now(), ttl: ttl}
		}
		if r.inflight[key] == call {
			delete(r.inflight, key)
		}
		r.mu.Unlock()

		return val, err
	}
}

func (r *Resilient) execute(ctx context.Context, fetch Fetch) (interface{}, error) {
	var val interface{}
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		v, err := fetch(ctx)
		if err != nil {
			return err
		}
		val = v
		return nil
	})
	return val, err
}

// Invalidate removes the cached entry for key.
func (r *Resilient) Invalidate(key string) {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}

// Len returns the number of cached entries, expired or not.
func (r *Resilient) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the background sweeper. Safe to call multiple times.
func (r *Resilient) Close() {
	r.once.Do(func() { close(r.stopCh) })
}

// limiterLocked returns the per-key limiter. Caller holds r.mu.
func (r *Resilient) limiterLocked(key string) *rate.Limiter {
	lim, ok := r.limiters[key]
	if !ok {
		burst := int(r.opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(r.opts.RequestsPerSecond), burst)
		r.limiters[key] = lim
	}
	return lim
}

func (r *Resilient) sweepLoop() {
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Resilient) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	removed := 0
	for key, e := range r.entries {
		if now.Sub(e.writtenAt) >= e.ttl {
			delete(r.entries, key)
			removed++
		}
	}
	if removed > 0 {
		r.log.Debug("cache sweep", logger.Int("removed", removed), logger.Int("remaining", len(r.entries)))
	}
}

// GetAs fetches through the cache and type-asserts the result.
func GetAs[T any](ctx context.Context, r *Resilient, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := r.Do(ctx, key, ttl, func(ctx context.Context) (interface{}, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, apphttp.InternalError("cache value type mismatch")
	}
	return typed, nil
}
