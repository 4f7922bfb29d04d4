package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/comuniza/ultracache/pkg/config"
	"github.com/comuniza/ultracache/pkg/observability"
)

// getOptions collects per-call options for Service.Get and Service.Set.
type getOptions struct {
	loader      LoaderFunc
	ttl         time.Duration
	segment     Segment
	segmentSet  bool
	fallback    any
	hasFallback bool
}

// GetOption customizes a single cache operation.
type GetOption func(*getOptions)

// WithLoader supplies the function that computes the value on a full miss.
// The result is stored in the appropriate tiers unless it is nil or the
// loader fails.
func WithLoader(loader LoaderFunc) GetOption {
	return func(o *getOptions) {
		o.loader = loader
	}
}

// WithTTL overrides the segment's default TTL for this operation.
func WithTTL(ttl time.Duration) GetOption {
	return func(o *getOptions) {
		o.ttl = ttl
	}
}

// WithSegment overrides key classification for this operation.
func WithSegment(seg Segment) GetOption {
	return func(o *getOptions) {
		o.segment = seg
		o.segmentSet = true
	}
}

// WithFallback sets the value returned alongside ErrCacheMiss when there is
// no loader and no tier holds the key. The fallback is never cached.
func WithFallback(v any) GetOption {
	return func(o *getOptions) {
		o.fallback = v
		o.hasFallback = true
	}
}

// Service is the two-tier cache facade. Reads go Tier 1, then Tier 2 with
// promotion, then the loader; Tier 2 failures degrade to misses and never
// surface to callers.
type Service struct {
	logger observability.Logger
	local  *LocalCache
	redis  *RedisCache
	router *Router
	codec  Codec

	metrics *Metrics
	group   singleflight.Group
}

// New creates a cache service from configuration. A Tier 2 connection
// failure is logged and the service starts Tier 1 only; a missing Redis
// section does the same silently.
func New(cfg *config.CacheConfig, logger observability.Logger) (*Service, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	s := &Service{
		logger:  logger,
		local:   NewLocalCache(cfg.Local, logger),
		router:  NewRouter(cfg.Segments),
		codec:   NewCodec(),
		metrics: &Metrics{},
	}

	if cfg.Redis != nil && !cfg.Redis.IsEmpty() {
		redisCache, err := NewRedisCache(cfg.Redis, logger)
		if err != nil {
			logger.Warn("tier 2 unavailable, continuing with local cache only",
				observability.Error(err))
		} else {
			s.redis = redisCache
		}
	}

	return s, nil
}

// resolve computes the effective segment, policy and TTL for a key.
func (s *Service) resolve(key string, o *getOptions) (Segment, SegmentPolicy, time.Duration) {
	seg := o.segment
	if !o.segmentSet {
		seg = Classify(key)
	}
	policy := s.router.Policy(seg)
	ttl := o.ttl
	if ttl <= 0 {
		ttl = policy.TTL
	}
	return seg, policy, ttl
}

// Get returns the value for key, consulting Tier 1, then Tier 2 (with
// promotion into Tier 1), then the loader if one was supplied.
//
// Without a loader, a full miss returns the fallback (or nil) and
// ErrCacheMiss. With a loader, concurrent misses on the same key are
// collapsed to a single loader call; a loader error propagates unchanged
// and nothing is cached.
func (s *Service) Get(ctx context.Context, key string, opts ...GetOption) (any, error) {
	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}
	seg, policy, ttl := s.resolve(key, &o)

	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.Get",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.String("cache.segment", string(seg)),
		),
	)
	defer span.End()

	// Tier 1.
	if value, ok := s.local.Get(key); ok {
		s.metrics.RecordHit()
		GetCacheMetrics().hitsTotal.WithLabelValues("local").Inc()
		span.SetAttributes(attribute.String("cache.result", "tier1_hit"))
		return value, nil
	}
	GetCacheMetrics().missesTotal.WithLabelValues("local").Inc()

	// Tier 2, with promotion.
	if policy.UseRedis && s.redis != nil {
		value, err := s.getFromRedis(ctx, key, ttl)
		if err == nil {
			s.metrics.RecordHit()
			span.SetAttributes(attribute.String("cache.result", "tier2_hit"))
			return value, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.metrics.RecordError()
		}
	}

	// Loader.
	if o.loader == nil {
		s.metrics.RecordMiss()
		span.SetAttributes(attribute.String("cache.result", "miss"))
		if o.hasFallback {
			return o.fallback, ErrCacheMiss
		}
		return nil, ErrCacheMiss
	}

	value, err := s.load(ctx, key, ttl, policy, &o)
	if err != nil {
		s.metrics.RecordError()
		span.SetAttributes(attribute.String("cache.result", "loader_error"))
		return nil, err
	}
	span.SetAttributes(attribute.String("cache.result", "loaded"))
	return value, nil
}

// getFromRedis reads key from Tier 2 and promotes a hit into Tier 1 under
// the same TTL.
func (s *Service) getFromRedis(ctx context.Context, key string, ttl time.Duration) (any, error) {
	raw, err := s.redis.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	value, err := s.codec.Decode(raw)
	if err != nil {
		// A corrupt entry is unrecoverable; drop it so the loader can
		// repopulate.
		s.logger.Warn("dropping undecodable tier 2 entry",
			observability.String("key", key),
			observability.Error(err))
		_, _ = s.redis.Delete(ctx, key)
		return nil, err
	}

	s.local.Set(key, value, ttl)
	return value, nil
}

// load runs the loader, collapsing concurrent calls for the same key, and
// stores a non-nil result in the appropriate tiers.
func (s *Service) load(ctx context.Context, key string, ttl time.Duration, policy SegmentPolicy, o *getOptions) (any, error) {
	value, err, _ := s.group.Do(key, func() (any, error) {
		v, loadErr := o.loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if v == nil {
			return nil, nil
		}
		s.store(ctx, key, v, ttl, policy)
		return v, nil
	})
	if err != nil {
		s.logger.Warn("cache loader failed",
			observability.String("key", key),
			observability.Error(err))
		return nil, err
	}
	return value, nil
}

// store writes a value to Tier 1 and, per policy, Tier 2. Tier 2 failures
// are logged and swallowed.
func (s *Service) store(ctx context.Context, key string, value any, ttl time.Duration, policy SegmentPolicy) {
	s.local.Set(key, value, ttl)

	if !policy.UseRedis || s.redis == nil {
		return
	}

	encoded, err := s.codec.Encode(value)
	if err != nil {
		s.metrics.RecordError()
		s.logger.Warn("skipping tier 2 write, value not encodable",
			observability.String("key", key),
			observability.Error(err))
		return
	}
	if err := s.redis.Set(ctx, key, encoded, ttl); err != nil {
		s.metrics.RecordError()
	}
}

// Set stores a value directly, bypassing the read path. The error return is
// reserved for future strict modes; Tier 2 failures are absorbed.
func (s *Service) Set(ctx context.Context, key string, value any, opts ...GetOption) error {
	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}
	seg, policy, ttl := s.resolve(key, &o)

	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.Set",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.String("cache.segment", string(seg)),
		),
	)
	defer span.End()

	s.store(ctx, key, value, ttl, policy)
	return nil
}

// Delete removes key from both tiers, reporting whether any tier held it.
// A Tier 2 failure counts as not removed there.
func (s *Service) Delete(ctx context.Context, key string) bool {
	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.Delete",
		trace.WithAttributes(attribute.String("cache.key", key)),
	)
	defer span.End()

	removed := s.local.Delete(key)

	if s.redis != nil {
		redisRemoved, err := s.redis.Delete(ctx, key)
		if err != nil {
			s.metrics.RecordError()
		} else if redisRemoved {
			removed = true
		}
	}

	return removed
}

// InvalidatePattern removes every key matching pattern from both tiers and
// returns the total number removed. Patterns are prefix globs: trailing ':'
// and '*' characters are stripped and the remainder is matched as a key
// prefix, so "items_list:*" and "items_list" behave identically.
// Invalidating a pattern that matches nothing is a no-op.
func (s *Service) InvalidatePattern(ctx context.Context, pattern string) int {
	prefix := strings.TrimRight(pattern, ":*")

	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.InvalidatePattern",
		trace.WithAttributes(attribute.String("cache.prefix", prefix)),
	)
	defer span.End()

	removed := s.local.DeletePrefix(prefix)

	if s.redis != nil {
		redisRemoved, err := s.redis.InvalidatePrefix(ctx, prefix)
		if err != nil {
			s.metrics.RecordError()
		}
		removed += redisRemoved
	}

	span.SetAttributes(attribute.Int("cache.removed", removed))
	s.logger.Info("invalidated pattern",
		observability.String("pattern", pattern),
		observability.Int("removed", removed))
	return removed
}

// Clear empties both tiers.
func (s *Service) Clear(ctx context.Context) {
	s.local.Clear()
	if s.redis != nil {
		if err := s.redis.Clear(ctx); err != nil {
			s.metrics.RecordError()
		}
	}
	s.logger.Info("cache cleared")
}

// Stats returns a point-in-time snapshot of cache health.
func (s *Service) Stats() ServiceStats {
	return ServiceStats{
		Tier1Size:      s.local.Len(),
		Tier2Available: s.redis != nil && s.redis.Available(),
		Hits:           s.metrics.Hits(),
		Misses:         s.metrics.Misses(),
		Errors:         s.metrics.Errors(),
		HitRate:        s.metrics.HitRate(),
	}
}

// ApplySegments swaps in new segment policies. Used by config reload.
func (s *Service) ApplySegments(segments config.SegmentsConfig) {
	s.router.Update(segments)
	s.logger.Info("segment policies updated")
}

// Close releases the Tier 2 connection. Tier 1 needs no teardown.
func (s *Service) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
