// Package cache implements the multi-level cache for the Comuniza platform.
//
// The cache combines an in-process Tier 1 with a Redis-backed Tier 2:
//
//   - Tier 1: bounded in-memory map with per-entry TTL and an eviction
//     policy combining recency decay and access frequency
//   - Tier 2: Redis with opaque value serialization, short timeouts,
//     retry with backoff and a circuit breaker
//   - Segment routing: keys classify into hot/warm/cold segments that
//     pick the default TTL and decide whether Tier 2 is consulted
//   - Cache-aside loading with single-flight collapse of concurrent
//     loads for the same key
//   - Prefix invalidation across both tiers
//   - Background sweeping of expired entries and warming of registered
//     high-traffic keys
//
// # Example Usage
//
//	cfg := config.DefaultCacheConfig()
//	svc, err := cache.New(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	key := cache.Key("items_list", cache.Param{Name: "category", Value: 5})
//	items, err := svc.Get(ctx, key, cache.WithLoader(loadItems))
//
// # Thread Safety
//
// The Service and both tiers are safe for concurrent use.
package cache
