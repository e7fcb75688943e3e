package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/weather-insights-service/internal/observability"
)

// Cache defines the interface for response caching implementations.
// Get returns cached bytes if present and not expired, Set stores bytes with TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// InMemoryCache implements Cache using a map with TTL-based expiration.
// Expired entries are removed on access. Safe for concurrent use.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
	now  func() time.Time
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
		now:  time.Now,
	}
}

// Get retrieves cached bytes for the key if present and not expired.
// Returns (data, true, nil) on cache hit, (nil, false, nil) on miss or expiration.
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.data, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores a copy of value with the specified TTL.
func (c *InMemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry{
		value:     v,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Instrumented wraps a Cache and counts hits and misses under cacheType.
type Instrumented struct {
	next      Cache
	cacheType string
}

// NewInstrumented returns next wrapped with hit/miss metrics.
func NewInstrumented(next Cache, cacheType string) *Instrumented {
	return &Instrumented{next: next, cacheType: cacheType}
}

func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := c.next.Get(ctx, key)
	if err == nil {
		if ok {
			observability.CacheHitsTotal.WithLabelValues(c.cacheType).Inc()
		} else {
			observability.CacheMissesTotal.WithLabelValues(c.cacheType).Inc()
		}
	}
	return v, ok, err
}

func (c *Instrumented) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.next.Set(ctx, key, value, ttl)
}
