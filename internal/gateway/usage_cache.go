package gateway

import (
	"sync"
	"time"

	"github.com/modelgate/modelgate/internal/adapter"
)

// DefaultUsageCacheTTL is how long a cached usage report stays fresh.
// Usage probes spend a real upstream call and a credential draw; reports
// change slowly, so a short TTL removes most of that cost.
const DefaultUsageCacheTTL = 1 * time.Minute

// usageEntry is one cached usage report with its expiration time.
type usageEntry struct {
	info     *adapter.UsageInfo
	expireAt time.Time
}

// usageCache is a thread-safe TTL cache of usage reports keyed by provider
// name. The key space is bounded by configuration, so expired entries are
// dropped lazily on read instead of by a background sweeper.
type usageCache struct {
	mu      sync.RWMutex
	entries map[string]usageEntry
	ttl     time.Duration

	hits   int64
	misses int64
}

func newUsageCache(ttl time.Duration) *usageCache {
	if ttl <= 0 {
		ttl = DefaultUsageCacheTTL
	}
	return &usageCache{
		entries: make(map[string]usageEntry),
		ttl:     ttl,
	}
}

// Get returns the cached usage report for a provider, if still fresh.
func (c *usageCache) Get(provider string) (*adapter.UsageInfo, bool) {
	c.mu.RLock()
	entry, ok := c.entries[provider]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expireAt) {
		c.mu.Lock()
		if !ok {
			c.misses++
		} else {
			delete(c.entries, provider)
			c.misses++
		}
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return entry.info, true
}

// Set stores a usage report with the configured TTL.
func (c *usageCache) Set(provider string, info *adapter.UsageInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[provider] = usageEntry{info: info, expireAt: time.Now().Add(c.ttl)}
}

// Stats returns hit/miss counters and the current entry count.
func (c *usageCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.entries)
}
