package workflow

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"archcanvas/internal/domain"
)

// subtypeCache fetches subtype lists lazily, once per component type.
// Concurrent misses for the same type share one remote call; failures are not
// cached.
type subtypeCache struct {
	remote Remote

	mu      sync.RWMutex
	entries map[domain.ComponentType][]domain.SubtypeOption
	group   singleflight.Group
}

func newSubtypeCache(r Remote) *subtypeCache {
	return &subtypeCache{
		remote:  r,
		entries: make(map[domain.ComponentType][]domain.SubtypeOption),
	}
}

func (c *subtypeCache) get(ctx context.Context, componentType domain.ComponentType) ([]domain.SubtypeOption, error) {
	c.mu.RLock()
	opts, ok := c.entries[componentType]
	c.mu.RUnlock()
	if ok {
		return slices.Clone(opts), nil
	}

	v, err, _ := c.group.Do(string(componentType), func() (any, error) {
		c.mu.RLock()
		cached, ok := c.entries[componentType]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		opts, err := c.remote.GetSubtypes(ctx, componentType)
		if err != nil {
			return nil, err
		}
		if opts == nil {
			opts = []domain.SubtypeOption{}
		}
		c.mu.Lock()
		c.entries[componentType] = opts
		c.mu.Unlock()
		return opts, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]domain.SubtypeOption)), nil
}

// reset forgets every cached list
func (c *subtypeCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[domain.ComponentType][]domain.SubtypeOption)
}
