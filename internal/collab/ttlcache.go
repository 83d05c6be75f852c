package collab

import (
	"sync"
	"time"

	"github.com/prxssh/soulcore/internal/wire"
)

// TTLCache is a generic expiring key-value store guarded by a single
// mutex, in the same shape as syncmap.Map and ratelimit.go's per-IP
// limiter table, just with a value deadline instead of a rate-limiter
// per entry. BrowseShareCache below specialises it into the default
// BrowseCache.
type TTLCache[K comparable, V any] struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[K]entry[V]
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{ttl: ttl, m: make(map[K]entry[V])}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[key]
	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.m, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = entry[V]{value: value, expiresAt: time.Now().Add(c.ttl)}
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

// Reap drops every expired entry, bounding memory use for keys that are
// never looked up again after expiring.
func (c *TTLCache[K, V]) Reap() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, e := range c.m {
		if now.After(e.expiresAt) {
			delete(c.m, k)
		}
	}
}

// BrowseShareCache is the default BrowseCache, a TTLCache specialised
// to wire.SharesReply with a sensible default expiry.
type BrowseShareCache struct {
	*TTLCache[string, wire.SharesReply]
}

func NewBrowseShareCache(ttl time.Duration) *BrowseShareCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &BrowseShareCache{TTLCache: NewTTLCache[string, wire.SharesReply](ttl)}
}

func (c *BrowseShareCache) Invalidate(username string) { c.Delete(username) }
