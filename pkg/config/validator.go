package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validation errors.
var (
	// ErrInvalidConfig indicates that configuration validation failed.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Validate checks the configuration for consistency.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: configuration is nil", ErrInvalidConfig)
	}

	if err := validateCache(&cfg.Cache); err != nil {
		return err
	}

	if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
		return fmt.Errorf("%w: tracing samplingRate must be between 0 and 1, got %v",
			ErrInvalidConfig, cfg.Tracing.SamplingRate)
	}

	return nil
}

func validateCache(cfg *CacheConfig) error {
	if cfg.Local.MaxEntries <= 0 {
		return fmt.Errorf("%w: local maxEntries must be positive, got %d",
			ErrInvalidConfig, cfg.Local.MaxEntries)
	}
	if cfg.Local.DefaultTTL <= 0 {
		return fmt.Errorf("%w: local defaultTTL must be positive", ErrInvalidConfig)
	}

	for name, seg := range map[string]SegmentConfig{
		"hot":  cfg.Segments.Hot,
		"warm": cfg.Segments.Warm,
		"cold": cfg.Segments.Cold,
	} {
		if seg.TTL <= 0 {
			return fmt.Errorf("%w: segment %s ttl must be positive", ErrInvalidConfig, name)
		}
	}

	if cfg.Sweeper.Interval <= 0 {
		return fmt.Errorf("%w: sweeper interval must be positive", ErrInvalidConfig)
	}
	if cfg.Warmer.Enabled && cfg.Warmer.Interval <= 0 {
		return fmt.Errorf("%w: warmer interval must be positive", ErrInvalidConfig)
	}

	return validateRedis(cfg.Redis)
}

func validateRedis(cfg *RedisCacheConfig) error {
	if cfg == nil {
		return nil
	}
	if cfg.URL == "" {
		return fmt.Errorf("%w: redis url is required", ErrInvalidConfig)
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return fmt.Errorf("%w: invalid redis url: %v", ErrInvalidConfig, err)
	}
	if parsed.Scheme != "redis" && parsed.Scheme != "rediss" {
		return fmt.Errorf("%w: redis url scheme must be redis or rediss, got %q",
			ErrInvalidConfig, parsed.Scheme)
	}
	if cfg.TTLJitter < 0 || cfg.TTLJitter > 1 {
		return fmt.Errorf("%w: redis ttlJitter must be between 0 and 1, got %v",
			ErrInvalidConfig, cfg.TTLJitter)
	}
	return nil
}
