package fiscal

import (
	"sync"
	"time"
)

// Clock abstracts time for cache expiry so tests can control it.
type Clock func() time.Time

// Cache is a read-through cache of decoded fiscal profiles keyed by client
// id. Writes to the store must go through Invalidate so a follow-up read
// never sees a stale profile.
type Cache interface {
	Get(clientID string) (*Data, bool)
	Set(clientID string, data *Data)
	Invalidate(clientID string)
}

type cacheEntry struct {
	data      *Data
	expiresAt time.Time
}

// TTLCache caches fiscal profiles for a fixed window. Safe for concurrent
// use. Cached profiles are shared; callers must treat them as read-only and
// re-read through the repository before mutating.
type TTLCache struct {
	entries sync.Map // clientID -> cacheEntry
	ttl     time.Duration
	now     Clock
}

// NewTTLCache builds a cache with the given TTL. A nil clock uses time.Now.
func NewTTLCache(ttl time.Duration, now Clock) *TTLCache {
	if now == nil {
		now = time.Now
	}
	return &TTLCache{ttl: ttl, now: now}
}

func (c *TTLCache) Get(clientID string) (*Data, bool) {
	v, ok := c.entries.Load(clientID)
	if !ok {
		return nil, false
	}
	entry := v.(cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.entries.Delete(clientID)
		return nil, false
	}
	return entry.data, true
}

func (c *TTLCache) Set(clientID string, data *Data) {
	c.entries.Store(clientID, cacheEntry{data: data, expiresAt: c.now().Add(c.ttl)})
}

func (c *TTLCache) Invalidate(clientID string) {
	c.entries.Delete(clientID)
}
