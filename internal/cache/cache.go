// Package cache stores finished route results keyed by a canonical hash of
// the request that produced them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"routeopt/internal/model"
)

const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var (
	// ErrMiss is returned when a key is absent or expired.
	ErrMiss = errors.New("cache miss")
	// ErrClosed is returned by a memory cache after Close.
	ErrClosed = errors.New("cache is closed")
)

// Cache is a byte-oriented TTL cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Options struct {
	Backend    string
	DefaultTTL time.Duration
	MaxEntries int
	RedisURL   string
	// KeyPrefix namespaces Redis keys.
	KeyPrefix string
}

// New builds the configured backend. BackendNone (or "") returns nil, nil.
func New(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemory(opts), nil
	case BackendRedis:
		return NewRedis(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// RouteCache stores RouteResults as JSON.
type RouteCache struct {
	c   Cache
	ttl time.Duration
}

func NewRouteCache(c Cache, ttl time.Duration) *RouteCache {
	return &RouteCache{c: c, ttl: ttl}
}

func (r *RouteCache) Get(ctx context.Context, key string) (model.RouteResult, error) {
	var res model.RouteResult
	b, err := r.c.Get(ctx, key)
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(b, &res); err != nil {
		// A corrupt entry behaves like a miss.
		_ = r.c.Delete(ctx, key)
		return res, ErrMiss
	}
	return res, nil
}

func (r *RouteCache) Set(ctx context.Context, key string, res model.RouteResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return r.c.Set(ctx, key, b, r.ttl)
}
