package store

import (
	"context"
	"sync"
)

// BoundedLRU wraps a Cache with a maximum item count, evicting the least
// recently touched key on overflow. Adapted from the teacher's
// LRUEvictionPolicy/EvictingCache pair (storage/cache/eviction.go): the
// access-order slice plus index map is kept, but narrowed from the
// eviction-policy-interface abstraction (LRU/LFU/TTL/adaptive blend) down to
// the one policy this system actually needs — the core treats cache eviction
// as the store's own business and never observes it.
type BoundedLRU struct {
	underlying Cache
	maxItems   int

	mu          sync.Mutex
	accessOrder []string
	position    map[string]int
}

// NewBoundedLRU wraps underlying with an LRU eviction cap of maxItems. A
// non-positive maxItems disables the bound (pure pass-through).
func NewBoundedLRU(underlying Cache, maxItems int) *BoundedLRU {
	return &BoundedLRU{
		underlying: underlying,
		maxItems:   maxItems,
		position:   make(map[string]int),
	}
}

func (c *BoundedLRU) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.underlying.Get(ctx, key)
	if err != nil || !ok {
		return data, ok, err
	}
	c.touch(key)
	return data, ok, nil
}

func (c *BoundedLRU) Put(ctx context.Context, key string, data []byte) error {
	if err := c.underlying.Put(ctx, key, data); err != nil {
		return err
	}
	c.touch(key)
	c.evictIfNeeded(ctx)
	return nil
}

func (c *BoundedLRU) touch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, exists := c.position[key]; exists {
		c.accessOrder = append(c.accessOrder[:idx], c.accessOrder[idx+1:]...)
		for i := idx; i < len(c.accessOrder); i++ {
			c.position[c.accessOrder[i]] = i
		}
	}
	c.accessOrder = append(c.accessOrder, key)
	c.position[key] = len(c.accessOrder) - 1
}

func (c *BoundedLRU) evictIfNeeded(ctx context.Context) {
	if c.maxItems <= 0 {
		return
	}
	for {
		c.mu.Lock()
		if len(c.accessOrder) <= c.maxItems {
			c.mu.Unlock()
			return
		}
		victim := c.accessOrder[0]
		c.accessOrder = c.accessOrder[1:]
		delete(c.position, victim)
		for i := range c.accessOrder {
			c.position[c.accessOrder[i]] = i
		}
		c.mu.Unlock()

		if remover, ok := c.underlying.(interface{ Delete(string) }); ok {
			remover.Delete(victim)
		}
	}
}
