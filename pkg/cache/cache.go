package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is the injected read-model cache capability. Admission only needs
// Invalidate; the room read paths use Get and Set.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Invalidate(key string)
}

type memoryCache struct {
	store *gocache.Cache
}

// NewMemory returns an in-process cache with the given default TTL.
func NewMemory(defaultTTL, cleanupInterval time.Duration) Cache {
	return &memoryCache{
		store: gocache.New(defaultTTL, cleanupInterval),
	}
}

func (c *memoryCache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

func (c *memoryCache) Set(key string, value any, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}

func (c *memoryCache) Invalidate(key string) {
	c.store.Delete(key)
}
