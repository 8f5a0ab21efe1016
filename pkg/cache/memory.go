package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// MemoryCache is an in-process cache with TTL expiry and LRU eviction.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	opts    Options

	stopCh chan struct{}
	once   sync.Once
}

func NewMemoryCache(opts Options) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		opts:    opts,
		stopCh:  make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		go c.cleanupLoop()
	}
	return c
}

func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = c.opts.DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*memoryEntry)
		ent.value = value
		ent.expiresAt = time.Now().Add(expiration)
		c.order.MoveToFront(el)
		return nil
	}

	if c.opts.MaxEntries > 0 && len(c.entries) >= c.opts.MaxEntries {
		c.evictOldest()
	}

	ent := &memoryEntry{key: key, value: value, expiresAt: time.Now().Add(expiration)}
	c.entries[key] = c.order.PushFront(ent)
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	ent := el.Value.(*memoryEntry)
	if time.Now().After(ent.expiresAt) {
		c.removeElement(el)
		return nil, ErrCacheMiss
	}
	c.order.MoveToFront(el)
	return ent.value, nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		if el, ok := c.entries[key]; ok {
			c.removeElement(el)
		}
	}
	return nil
}

func (c *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for _, key := range keys {
		el, ok := c.entries[key]
		if !ok {
			return false, nil
		}
		if now.After(el.Value.(*memoryEntry).expiresAt) {
			c.removeElement(el)
			return false, nil
		}
	}
	return true, nil
}

func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stopCh) })
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) evictOldest() {
	if el := c.order.Back(); el != nil {
		c.removeElement(el)
	}
}

func (c *MemoryCache) removeElement(el *list.Element) {
	ent := el.Value.(*memoryEntry)
	delete(c.entries, ent.key)
	c.order.Remove(el)
}

func (c *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(c.opts.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for _, el := range c.entries {
		if now.After(el.Value.(*memoryEntry).expiresAt) {
			c.removeElement(el)
		}
	}
}
