package embedding

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// BuildFunc produces an index for a repository root.
type BuildFunc func(ctx context.Context) (*Index, error)

// IndexCache memoizes built indexes per repository root. Concurrent first
// builds for the same root are collapsed into a single build; once built, an
// index is an immutable snapshot and is served without further locking.
type IndexCache struct {
	mu      sync.RWMutex
	indexes map[string]*Index
	flight  singleflight.Group
}

// NewIndexCache creates an empty cache.
func NewIndexCache() *IndexCache {
	return &IndexCache{indexes: make(map[string]*Index)}
}

// Get returns the cached index for root, building it with build on a miss.
// A failed build caches nothing, so the next caller retries.
func (c *IndexCache) Get(ctx context.Context, root string, build BuildFunc) (*Index, error) {
	c.mu.RLock()
	ix, ok := c.indexes[root]
	c.mu.RUnlock()
	if ok {
		return ix, nil
	}

	v, err, _ := c.flight.Do(root, func() (any, error) {
		// Re-check under the flight: a racing caller may have stored it.
		c.mu.RLock()
		ix, ok := c.indexes[root]
		c.mu.RUnlock()
		if ok {
			return ix, nil
		}

		built, err := build(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.indexes[root] = built
		c.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Invalidate drops the cached index for root, forcing the next Get to rebuild.
func (c *IndexCache) Invalidate(root string) {
	c.mu.Lock()
	delete(c.indexes, root)
	c.mu.Unlock()
}
