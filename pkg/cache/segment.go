package cache

import (
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/comuniza/ultracache/pkg/config"
)

// Segment is the tier-of-service classification of a cache key.
type Segment string

// Segments, from most to least latency-sensitive.
const (
	SegmentHot  Segment = "hot"
	SegmentWarm Segment = "warm"
	SegmentCold Segment = "cold"
)

// hotPrefixes are identity/ranking key families served from Tier 1 only.
var hotPrefixes = []string{
	"user_",
	"badge_",
	"leaderboard",
	"site_settings",
	"active_categories",
}

// entityPrefixes are content-entity families spread across segments by a
// stable hash so a single family cannot monopolize the hot set.
var entityPrefixes = []string{
	"item",
	"group",
	"loan",
}

// Classify derives the segment for a key. It is a pure function of the key
// string: no value, recency or wall-clock input, so routing stays
// deterministic and testable.
func Classify(key string) Segment {
	for _, p := range hotPrefixes {
		if strings.Contains(key, p) {
			return SegmentHot
		}
	}

	for _, p := range entityPrefixes {
		if strings.Contains(key, p) {
			switch hashKey(key) % 3 {
			case 0:
				return SegmentHot
			case 1:
				return SegmentWarm
			default:
				return SegmentCold
			}
		}
	}

	return SegmentCold
}

// hashKey returns a stable 32-bit hash of the key. FNV-1a keeps the split
// identical across processes and restarts, unlike runtime map hashing.
func hashKey(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}

// SegmentPolicy is the routing decision for one segment.
type SegmentPolicy struct {
	// TTL is the segment's default time-to-live.
	TTL time.Duration

	// UseRedis controls whether Tier 2 is consulted for this segment.
	UseRedis bool
}

// Router maps segments to their policies. The policy table is replaceable
// at runtime for config reload; classification itself is static.
type Router struct {
	mu       sync.RWMutex
	segments config.SegmentsConfig
}

// NewRouter creates a Router from segment configuration.
func NewRouter(segments config.SegmentsConfig) *Router {
	return &Router{segments: segments}
}

// Policy returns the routing policy for a segment.
func (r *Router) Policy(seg Segment) SegmentPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sc config.SegmentConfig
	switch seg {
	case SegmentHot:
		sc = r.segments.Hot
	case SegmentWarm:
		sc = r.segments.Warm
	default:
		sc = r.segments.Cold
	}

	return SegmentPolicy{
		TTL:      sc.TTL.Duration(),
		UseRedis: sc.UseRedis,
	}
}

// Update replaces the policy table. Used by config reload.
func (r *Router) Update(segments config.SegmentsConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments = segments
}
