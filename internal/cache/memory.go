package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Memory is an in-process TTL cache. When full it evicts the entry closest
// to expiry.
type Memory struct {
	mu         sync.RWMutex
	items      map[string]memItem
	defaultTTL time.Duration
	maxEntries int
	now        func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	closed atomic.Bool
}

type memItem struct {
	value     []byte
	expiresAt time.Time
}

func (i memItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

func NewMemory(opts Options) *Memory {
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &Memory{
		items:      make(map[string]memItem),
		defaultTTL: opts.DefaultTTL,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || it.expired(c.now()) {
		c.misses.Add(1)
		if ok {
			_ = c.Delete(ctx, key)
		}
		return nil, ErrMiss
	}
	c.hits.Add(1)
	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, nil
}

func (c *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	it := memItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.evictLocked()
	}
	c.items[key] = it
	return nil
}

func (c *Memory) evictLocked() {
	now := c.now()
	var victim string
	var soonest time.Time
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
			return
		}
		if it.expiresAt.IsZero() {
			continue
		}
		if victim == "" || it.expiresAt.Before(soonest) {
			victim, soonest = k, it.expiresAt
		}
	}
	if victim == "" {
		for k := range c.items {
			victim = k
			break
		}
	}
	delete(c.items, victim)
}

func (c *Memory) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// Len counts stored entries, expired ones included until they are touched.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Memory) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Memory) Close() error {
	c.closed.Store(true)
	c.mu.Lock()
	c.items = make(map[string]memItem)
	c.mu.Unlock()
	return nil
}
