package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/comuniza/ultracache/internal/retry"
	"github.com/comuniza/ultracache/pkg/config"
	"github.com/comuniza/ultracache/pkg/observability"
)

// cacheTracerName is the OpenTelemetry tracer name for cache operations.
const cacheTracerName = "ultracache/cache"

// scanBatchSize is the COUNT hint for SCAN during prefix invalidation.
const scanBatchSize = 100

// redisRetryConfig returns the retry configuration for Redis operations.
// MaxBackoff stays short: Tier 2 is an optimization and must never stall
// the request path.
func redisRetryConfig() *retry.Config {
	return &retry.Config{
		MaxRetries:     2,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
		JitterFactor:   retry.DefaultJitterFactor,
	}
}

// isRetryableRedisError checks if the error is retryable.
func isRetryableRedisError(err error) bool {
	if err == nil {
		return false
	}
	// Cache miss and context errors are never retryable.
	if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// applyTTLJitter adds random jitter to a TTL value so entries written
// together do not expire together.
func applyTTLJitter(ttl time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 || ttl <= 0 {
		return ttl
	}
	if jitterFactor > 1.0 {
		jitterFactor = 1.0
	}
	//nolint:gosec // G404: TTL jitter does not require cryptographic randomness
	jitter := time.Duration(float64(ttl) * jitterFactor * (2*rand.Float64() - 1))
	result := ttl + jitter
	if result <= 0 {
		return ttl
	}
	return result
}

// RedisCache is the Tier 2 distributed cache client. All operations carry
// the configured short timeouts, retry transient errors with backoff, and
// run behind a circuit breaker so a dead Redis degrades to fast misses
// instead of connection stalls.
type RedisCache struct {
	logger    observability.Logger
	client    *redis.Client
	breaker   *gobreaker.CircuitBreaker
	keyPrefix string
	ttlJitter float64
}

// NewRedisCache creates a Tier 2 client and verifies connectivity.
func NewRedisCache(cfg *config.RedisCacheConfig, logger observability.Logger) (*RedisCache, error) {
	if cfg.IsEmpty() {
		return nil, errors.New("redis URL is required")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis URL: %w", ErrInvalidConfig, err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout.Duration()
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout.Duration()
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout.Duration()
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = config.DefaultRedisKeyPrefix
	}

	c := &RedisCache{
		logger:    logger,
		client:    client,
		keyPrefix: keyPrefix,
		ttlJitter: cfg.TTLJitter,
	}
	c.breaker = newRedisBreaker(cfg.Breaker, logger)

	logger.Info("redis cache initialized",
		observability.String("keyPrefix", keyPrefix),
		observability.Float64("ttlJitter", c.ttlJitter))

	return c, nil
}

// newRedisBreaker builds the circuit breaker around Tier 2 operations.
func newRedisBreaker(cfg *config.BreakerConfig, logger observability.Logger) *gobreaker.CircuitBreaker {
	maxFailures := cfg.GetMaxFailures()

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis-cache",
		Timeout: cfg.GetOpenTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures) //nolint:gosec // threshold is small
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("redis circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()))
		},
	})
}

// Available reports whether the circuit currently admits requests.
func (c *RedisCache) Available() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

// execute runs op through the circuit breaker with retry. Cache misses
// pass through as redis.Nil without tripping the breaker.
func (c *RedisCache) execute(ctx context.Context, name string, op func() error) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		missed := false
		err := retry.Do(ctx, redisRetryConfig(), func() error {
			opErr := op()
			if errors.Is(opErr, redis.Nil) {
				missed = true
				return nil
			}
			return opErr
		}, &retry.Options{
			ShouldRetry: isRetryableRedisError,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				c.logger.Debug("retrying redis operation",
					observability.String("operation", name),
					observability.Int("attempt", attempt))
			},
		})
		if err != nil {
			return nil, err
		}
		if missed {
			return nil, nil
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}
	return nil
}

// Get retrieves the raw bytes stored for key.
// Returns ErrCacheMiss when the key is absent.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.redis.Get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.tier", "redis"),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		GetCacheMetrics().operationDuration.WithLabelValues(
			"redis", "get",
		).Observe(time.Since(start).Seconds())
	}()

	fullKey := c.keyPrefix + key

	var result []byte
	var missed bool

	err := c.execute(ctx, "get", func() error {
		val, getErr := c.client.Get(ctx, fullKey).Bytes()
		if getErr == nil {
			result = val
			missed = false
			return nil
		}
		if errors.Is(getErr, redis.Nil) {
			missed = true
		}
		return getErr
	})

	if err != nil {
		GetCacheMetrics().errorsTotal.WithLabelValues("redis", "get").Inc()
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		c.logger.Error("redis get failed",
			observability.String("key", key),
			observability.Error(err))
		return nil, err
	}

	if missed {
		GetCacheMetrics().missesTotal.WithLabelValues("redis").Inc()
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	}

	GetCacheMetrics().hitsTotal.WithLabelValues("redis").Inc()
	span.SetAttributes(
		attribute.Bool("cache.hit", true),
		attribute.Int("cache.value_size", len(result)),
	)
	return result, nil
}

// Set stores bytes under key with the given TTL (plus configured jitter).
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.redis.Set",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.tier", "redis"),
			attribute.String("cache.key", key),
			attribute.Int("cache.value_size", len(value)),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		GetCacheMetrics().operationDuration.WithLabelValues(
			"redis", "set",
		).Observe(time.Since(start).Seconds())
	}()

	ttl = applyTTLJitter(ttl, c.ttlJitter)
	fullKey := c.keyPrefix + key

	err := c.execute(ctx, "set", func() error {
		return c.client.Set(ctx, fullKey, value, ttl).Err()
	})

	if err != nil {
		GetCacheMetrics().errorsTotal.WithLabelValues("redis", "set").Inc()
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		c.logger.Error("redis set failed",
			observability.String("key", key),
			observability.Error(err))
		return err
	}

	c.logger.Debug("redis set",
		observability.String("key", key),
		observability.Duration("ttl", ttl))
	return nil
}

// Delete removes key, reporting whether it was present.
func (c *RedisCache) Delete(ctx context.Context, key string) (bool, error) {
	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.redis.Delete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.tier", "redis"),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		GetCacheMetrics().operationDuration.WithLabelValues(
			"redis", "delete",
		).Observe(time.Since(start).Seconds())
	}()

	fullKey := c.keyPrefix + key

	var removed int64
	err := c.execute(ctx, "delete", func() error {
		var delErr error
		removed, delErr = c.client.Del(ctx, fullKey).Result()
		return delErr
	})

	if err != nil {
		GetCacheMetrics().errorsTotal.WithLabelValues("redis", "delete").Inc()
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		c.logger.Error("redis delete failed",
			observability.String("key", key),
			observability.Error(err))
		return false, err
	}

	return removed > 0, nil
}

// InvalidatePrefix scans for keys starting with prefix and deletes them,
// returning the number removed. Used only for pattern invalidation, never
// on the request path.
func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.redis.InvalidatePrefix",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.tier", "redis"),
			attribute.String("cache.prefix", prefix),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		GetCacheMetrics().operationDuration.WithLabelValues(
			"redis", "scan",
		).Observe(time.Since(start).Seconds())
	}()

	match := c.keyPrefix + prefix + "*"
	removed := 0

	err := c.execute(ctx, "scan", func() error {
		iter := c.client.Scan(ctx, 0, match, scanBatchSize).Iterator()
		for iter.Next(ctx) {
			if delErr := c.client.Del(ctx, iter.Val()).Err(); delErr != nil {
				return delErr
			}
			removed++
		}
		return iter.Err()
	})

	if err != nil {
		GetCacheMetrics().errorsTotal.WithLabelValues("redis", "scan").Inc()
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		c.logger.Error("redis prefix invalidation failed",
			observability.String("prefix", prefix),
			observability.Error(err))
		return removed, err
	}

	span.SetAttributes(attribute.Int("cache.removed", removed))
	c.logger.Debug("redis prefix invalidated",
		observability.String("prefix", prefix),
		observability.Int("removed", removed))
	return removed, nil
}

// Clear removes every key in this cache's namespace.
func (c *RedisCache) Clear(ctx context.Context) error {
	_, err := c.InvalidatePrefix(ctx, "")
	return err
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	c.logger.Info("redis cache closing")
	return c.client.Close()
}
