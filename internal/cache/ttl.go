package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// TTLCache is a size-bounded cache backed by ristretto. Every item costs 1,
// so maxItems bounds the number of live keys. Items older than ttl read as
// absent.
type TTLCache[T any] struct {
	store *ristretto.Cache[string, T]
	ttl   time.Duration

	mu   sync.Mutex
	keys map[string]time.Time
}

// Stats is a point in time view of cache effectiveness.
type Stats struct {
	Size   int
	Hits   uint64
	Misses uint64
}

func New[T any](maxItems int, ttl time.Duration) (*TTLCache[T], error) {
	if maxItems < 1 {
		maxItems = 1
	}
	store, err := ristretto.NewCache(&ristretto.Config[string, T]{
		NumCounters:        int64(maxItems) * 10,
		MaxCost:            int64(maxItems),
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &TTLCache[T]{store: store, ttl: ttl, keys: make(map[string]time.Time)}, nil
}

func (c *TTLCache[T]) Get(key string) (T, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		c.forget(key)
	}
	return v, ok
}

// Set stores data and waits for ristretto's write buffer to drain, so a
// following Get sees it. The admission policy may still reject the item.
func (c *TTLCache[T]) Set(key string, data T) {
	if c.store.SetWithTTL(key, data, 1, c.ttl) {
		c.mu.Lock()
		c.keys[key] = time.Now().Add(c.ttl)
		c.mu.Unlock()
	}
	c.store.Wait()
}

// GetOrCompute returns the cached value for key or stores the result of fn.
// Errors are returned without caching. A nil cache always computes.
func (c *TTLCache[T]) GetOrCompute(key string, fn func() (T, error)) (T, error) {
	if c == nil {
		return fn()
	}
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

func (c *TTLCache[T]) Delete(key string) {
	c.store.Del(key)
	c.forget(key)
}

// CleanExpired drops keys whose ttl has passed and returns how many it
// dropped. ristretto already refuses to serve them; this keeps Size honest.
func (c *TTLCache[T]) CleanExpired() int {
	if c.ttl <= 0 {
		return 0
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, expiresAt := range c.keys {
		if now.After(expiresAt) {
			c.store.Del(key)
			delete(c.keys, key)
			removed++
		}
	}
	return removed
}

// Size counts keys written and not yet expired or found missing.
func (c *TTLCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

func (c *TTLCache[T]) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Size:   c.Size(),
		Hits:   c.store.Metrics.Hits(),
		Misses: c.store.Metrics.Misses(),
	}
}

// Close stops ristretto's background goroutines.
func (c *TTLCache[T]) Close() {
	if c != nil {
		c.store.Close()
	}
}

func (c *TTLCache[T]) forget(key string) {
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
}
