package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/comuniza/ultracache/pkg/config"
	"github.com/comuniza/ultracache/pkg/observability"
)

// minEvictionScore floors the recency decay so very old entries still rank
// by access frequency instead of all collapsing to zero.
const minEvictionScore = 0.1

// evictionFraction is the share of entries removed per eviction pass.
const evictionFraction = 0.10

// entry is a Tier 1 cache entry. Owned exclusively by LocalCache; never
// handed out.
type entry struct {
	value          any
	storedAt       time.Time
	expiresAt      time.Time
	ttl            time.Duration
	accessCount    int64
	lastAccessedAt time.Time
}

// expired reports whether the entry is past its TTL at now.
func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// score ranks the entry for eviction: a recency decay factor, floored at
// minEvictionScore, weighted by observed access frequency. A rarely
// accessed but recently written entry still scores low, so one-off reads
// cannot starve a genuinely hot working set.
func (e *entry) score(now time.Time) float64 {
	decay := 1 - float64(now.Sub(e.storedAt))/float64(e.ttl)
	if decay < minEvictionScore {
		decay = minEvictionScore
	}
	return decay * float64(e.accessCount+1)
}

// LocalCache is the bounded in-process Tier 1 cache.
//
// A single mutex guards the map and all entry bookkeeping: Get mutates
// access metadata, so it takes the same exclusive lock as writers. Entries
// are small and operations are O(1) amortized, so lock hold time stays
// negligible next to the cost of a mis-synchronized eviction.
type LocalCache struct {
	logger     observability.Logger
	maxEntries int
	defaultTTL time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

// NewLocalCache creates a Tier 1 cache from configuration.
func NewLocalCache(cfg config.LocalCacheConfig, logger observability.Logger) *LocalCache {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = config.DefaultLocalMaxEntries
	}
	defaultTTL := cfg.DefaultTTL.Duration()
	if defaultTTL <= 0 {
		defaultTTL = config.DefaultLocalTTL
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	c := &LocalCache{
		logger:     logger,
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		entries:    make(map[string]*entry),
	}

	logger.Info("local cache initialized",
		observability.Int("maxEntries", maxEntries),
		observability.Duration("defaultTTL", defaultTTL))

	return c
}

// Get returns the value for key if present and unexpired, updating the
// entry's access count and last-access time. Expired entries are removed
// and reported as a miss.
func (c *LocalCache) Get(key string) (any, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if e.expired(now) {
		delete(c.entries, key)
		GetCacheMetrics().sizeGauge.WithLabelValues("local").Set(float64(len(c.entries)))
		return nil, false
	}

	e.accessCount++
	e.lastAccessedAt = now

	return e.value, true
}

// Set stores a value with the given TTL, falling back to the cache default
// when ttl is zero or negative. Inserting a new key at capacity triggers
// eviction first.
func (c *LocalCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evict(now)
	}

	c.entries[key] = &entry{
		value:          value,
		storedAt:       now,
		expiresAt:      now.Add(ttl),
		ttl:            ttl,
		lastAccessedAt: now,
	}

	GetCacheMetrics().sizeGauge.WithLabelValues("local").Set(float64(len(c.entries)))
}

// Delete removes key, reporting whether it was present.
func (c *LocalCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	GetCacheMetrics().sizeGauge.WithLabelValues("local").Set(float64(len(c.entries)))
	return true
}

// DeletePrefix removes every key starting with prefix and returns the
// number removed.
func (c *LocalCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}

	if removed > 0 {
		GetCacheMetrics().sizeGauge.WithLabelValues("local").Set(float64(len(c.entries)))
	}
	return removed
}

// Clear removes all entries.
func (c *LocalCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	GetCacheMetrics().sizeGauge.WithLabelValues("local").Set(0)
}

// Len returns the current number of entries.
func (c *LocalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RemoveExpired deletes all entries past their TTL and returns the number
// removed. Called by the background sweeper.
func (c *LocalCache) RemoveExpired() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}

	if removed > 0 {
		GetCacheMetrics().sizeGauge.WithLabelValues("local").Set(float64(len(c.entries)))
		c.logger.Debug("swept expired entries",
			observability.Int("removed", removed))
	}
	return removed
}

// evict removes the lowest-scoring evictionFraction of entries, at least
// one. Must be called with the lock held.
func (c *LocalCache) evict(now time.Time) {
	type scored struct {
		key   string
		score float64
	}

	ranked := make([]scored, 0, len(c.entries))
	for key, e := range c.entries {
		ranked = append(ranked, scored{key: key, score: e.score(now)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})

	count := int(float64(len(ranked)) * evictionFraction)
	if count < 1 {
		count = 1
	}

	for _, s := range ranked[:count] {
		delete(c.entries, s.key)
	}

	GetCacheMetrics().evictionsTotal.WithLabelValues("local").Add(float64(count))
	c.logger.Debug("evicted low-scoring entries",
		observability.Int("evicted", count),
		observability.Int("remaining", len(c.entries)))
}
