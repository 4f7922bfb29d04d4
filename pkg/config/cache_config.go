package config

import "time"

// Default cache configuration values.
const (
	// DefaultLocalMaxEntries is the default Tier 1 capacity.
	DefaultLocalMaxEntries = 1000

	// DefaultLocalTTL is the default Tier 1 entry TTL.
	DefaultLocalTTL = 5 * time.Minute

	// DefaultHotTTL is the default TTL for hot-segment entries.
	DefaultHotTTL = 30 * time.Minute

	// DefaultWarmTTL is the default TTL for warm-segment entries.
	DefaultWarmTTL = time.Hour

	// DefaultColdTTL is the default TTL for cold-segment entries.
	DefaultColdTTL = 2 * time.Hour

	// DefaultSweepInterval is how often expired Tier 1 entries are swept.
	DefaultSweepInterval = time.Minute

	// DefaultWarmInterval is how often registered warmup loaders re-run.
	DefaultWarmInterval = 5 * time.Minute

	// DefaultRedisPoolSize is the default Redis connection pool size.
	DefaultRedisPoolSize = 10

	// DefaultRedisConnectTimeout is the default Redis dial timeout.
	DefaultRedisConnectTimeout = 2 * time.Second

	// DefaultRedisReadTimeout is the default Redis read timeout.
	DefaultRedisReadTimeout = 2 * time.Second

	// DefaultRedisWriteTimeout is the default Redis write timeout.
	DefaultRedisWriteTimeout = 2 * time.Second

	// DefaultRedisKeyPrefix is the namespace prefix for Tier 2 keys.
	DefaultRedisKeyPrefix = "comuniza:"

	// DefaultBreakerFailures is the consecutive-failure threshold that
	// opens the Tier 2 circuit breaker.
	DefaultBreakerFailures = 5

	// DefaultBreakerOpenTimeout is how long the Tier 2 circuit stays open
	// before probing again.
	DefaultBreakerOpenTimeout = 30 * time.Second
)

// CacheConfig is the root configuration for the cache service.
type CacheConfig struct {
	// Local configures the in-process Tier 1 cache.
	Local LocalCacheConfig `yaml:"local" json:"local"`

	// Redis configures the distributed Tier 2 cache. When nil, the
	// service runs Tier 1 only.
	Redis *RedisCacheConfig `yaml:"redis,omitempty" json:"redis,omitempty"`

	// Segments maps each segment to its TTL and Tier 2 policy.
	Segments SegmentsConfig `yaml:"segments" json:"segments"`

	// Sweeper configures the expired-entry sweep loop.
	Sweeper SweeperConfig `yaml:"sweeper" json:"sweeper"`

	// Warmer configures the cache warming loop.
	Warmer WarmerConfig `yaml:"warmer" json:"warmer"`
}

// LocalCacheConfig configures the Tier 1 in-memory cache.
type LocalCacheConfig struct {
	// MaxEntries is the maximum number of entries before eviction.
	MaxEntries int `yaml:"maxEntries,omitempty" json:"maxEntries,omitempty"`

	// DefaultTTL applies to entries stored without an explicit TTL.
	DefaultTTL Duration `yaml:"defaultTTL,omitempty" json:"defaultTTL,omitempty"`
}

// RedisCacheConfig configures the Tier 2 distributed cache.
type RedisCacheConfig struct {
	// URL is the Redis connection URL.
	// Format: redis://[user:password@]host:port[/db]
	URL string `yaml:"url" json:"url"`

	// PoolSize is the maximum number of connections in the pool.
	PoolSize int `yaml:"poolSize,omitempty" json:"poolSize,omitempty"`

	// ConnectTimeout is the timeout for establishing connections.
	ConnectTimeout Duration `yaml:"connectTimeout,omitempty" json:"connectTimeout,omitempty"`

	// ReadTimeout is the timeout for read operations.
	ReadTimeout Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`

	// WriteTimeout is the timeout for write operations.
	WriteTimeout Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`

	// KeyPrefix is a namespace prefix added to all Tier 2 keys.
	KeyPrefix string `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`

	// TTLJitter is the maximum fraction of jitter added to TTL values
	// (0.0 to 1.0). For example, 0.1 means ±10% jitter. Default is 0.
	TTLJitter float64 `yaml:"ttlJitter,omitempty" json:"ttlJitter,omitempty"`

	// Breaker configures the circuit breaker around Tier 2 operations.
	Breaker *BreakerConfig `yaml:"breaker,omitempty" json:"breaker,omitempty"`
}

// BreakerConfig configures the Tier 2 circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the consecutive-failure count that opens the circuit.
	MaxFailures int `yaml:"maxFailures,omitempty" json:"maxFailures,omitempty"`

	// OpenTimeout is how long the circuit stays open before a probe.
	OpenTimeout Duration `yaml:"openTimeout,omitempty" json:"openTimeout,omitempty"`
}

// SegmentsConfig holds per-segment routing policy.
type SegmentsConfig struct {
	Hot  SegmentConfig `yaml:"hot" json:"hot"`
	Warm SegmentConfig `yaml:"warm" json:"warm"`
	Cold SegmentConfig `yaml:"cold" json:"cold"`
}

// SegmentConfig is the policy for a single segment.
type SegmentConfig struct {
	// TTL is the default time-to-live for keys in this segment.
	TTL Duration `yaml:"ttl" json:"ttl"`

	// UseRedis controls whether Tier 2 is consulted for this segment.
	UseRedis bool `yaml:"useRedis" json:"useRedis"`
}

// SweeperConfig configures the expired-entry sweeper.
type SweeperConfig struct {
	// Interval between sweeps of Tier 1.
	Interval Duration `yaml:"interval,omitempty" json:"interval,omitempty"`
}

// WarmerConfig configures the cache warmer.
type WarmerConfig struct {
	// Enabled turns the warming loop on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Interval between warming passes.
	Interval Duration `yaml:"interval,omitempty" json:"interval,omitempty"`
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Local: LocalCacheConfig{
			MaxEntries: DefaultLocalMaxEntries,
			DefaultTTL: Duration(DefaultLocalTTL),
		},
		Segments: DefaultSegmentsConfig(),
		Sweeper:  SweeperConfig{Interval: Duration(DefaultSweepInterval)},
		Warmer:   WarmerConfig{Interval: Duration(DefaultWarmInterval)},
	}
}

// DefaultSegmentsConfig returns the default per-segment policy: hot entries
// are served from Tier 1 only, warm and cold fall through to Tier 2.
func DefaultSegmentsConfig() SegmentsConfig {
	return SegmentsConfig{
		Hot:  SegmentConfig{TTL: Duration(DefaultHotTTL), UseRedis: false},
		Warm: SegmentConfig{TTL: Duration(DefaultWarmTTL), UseRedis: true},
		Cold: SegmentConfig{TTL: Duration(DefaultColdTTL), UseRedis: true},
	}
}

// DefaultRedisCacheConfig returns default Redis cache configuration.
func DefaultRedisCacheConfig() *RedisCacheConfig {
	return &RedisCacheConfig{
		PoolSize:       DefaultRedisPoolSize,
		ConnectTimeout: Duration(DefaultRedisConnectTimeout),
		ReadTimeout:    Duration(DefaultRedisReadTimeout),
		WriteTimeout:   Duration(DefaultRedisWriteTimeout),
		KeyPrefix:      DefaultRedisKeyPrefix,
	}
}

// GetMaxFailures returns the effective breaker failure threshold.
func (b *BreakerConfig) GetMaxFailures() int {
	if b == nil || b.MaxFailures <= 0 {
		return DefaultBreakerFailures
	}
	return b.MaxFailures
}

// GetOpenTimeout returns the effective breaker open timeout.
func (b *BreakerConfig) GetOpenTimeout() time.Duration {
	if b == nil || b.OpenTimeout <= 0 {
		return DefaultBreakerOpenTimeout
	}
	return b.OpenTimeout.Duration()
}

// IsEmpty returns true if no Redis endpoint is configured.
func (r *RedisCacheConfig) IsEmpty() bool {
	return r == nil || r.URL == ""
}
