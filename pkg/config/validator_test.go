package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestValidateNil(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrInvalidConfig)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero maxEntries", func(c *Config) { c.Cache.Local.MaxEntries = 0 }},
		{"negative defaultTTL", func(c *Config) { c.Cache.Local.DefaultTTL = -1 }},
		{"zero hot ttl", func(c *Config) { c.Cache.Segments.Hot.TTL = 0 }},
		{"zero warm ttl", func(c *Config) { c.Cache.Segments.Warm.TTL = 0 }},
		{"zero cold ttl", func(c *Config) { c.Cache.Segments.Cold.TTL = 0 }},
		{"zero sweeper interval", func(c *Config) { c.Cache.Sweeper.Interval = 0 }},
		{"warmer enabled without interval", func(c *Config) {
			c.Cache.Warmer.Enabled = true
			c.Cache.Warmer.Interval = 0
		}},
		{"redis without url", func(c *Config) {
			c.Cache.Redis = &RedisCacheConfig{}
		}},
		{"redis bad scheme", func(c *Config) {
			c.Cache.Redis = &RedisCacheConfig{URL: "http://localhost:6379"}
		}},
		{"redis jitter out of range", func(c *Config) {
			c.Cache.Redis = &RedisCacheConfig{URL: "redis://localhost:6379", TTLJitter: 1.5}
		}},
		{"sampling rate out of range", func(c *Config) { c.Tracing.SamplingRate = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
		})
	}
}

func TestValidateRedisVariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Redis = &RedisCacheConfig{URL: "rediss://secure:6380", TTLJitter: 0.5}
	assert.NoError(t, Validate(cfg))
}

func TestBreakerConfigDefaults(t *testing.T) {
	var b *BreakerConfig
	assert.Equal(t, DefaultBreakerFailures, b.GetMaxFailures())
	assert.Equal(t, DefaultBreakerOpenTimeout, b.GetOpenTimeout())

	b = &BreakerConfig{MaxFailures: 2, OpenTimeout: Duration(DefaultBreakerOpenTimeout / 2)}
	assert.Equal(t, 2, b.GetMaxFailures())
	assert.Equal(t, DefaultBreakerOpenTimeout/2, b.GetOpenTimeout())
}

func TestRedisCacheConfigIsEmpty(t *testing.T) {
	var r *RedisCacheConfig
	assert.True(t, r.IsEmpty())
	assert.True(t, (&RedisCacheConfig{}).IsEmpty())
	assert.False(t, (&RedisCacheConfig{URL: "redis://x"}).IsEmpty())
}
