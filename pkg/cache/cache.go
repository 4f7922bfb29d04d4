package cache

import (
	"context"
	"errors"
)

// Common cache errors.
var (
	// ErrCacheMiss indicates that the key was not found in any tier.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidConfig indicates that the cache configuration is invalid.
	ErrInvalidConfig = errors.New("invalid cache configuration")

	// ErrConnectionFailed indicates that the Tier 2 connection failed.
	ErrConnectionFailed = errors.New("cache connection failed")

	// ErrEncodingFailed indicates that a value could not be serialized.
	ErrEncodingFailed = errors.New("cache encoding failed")

	// ErrDecodingFailed indicates that stored bytes could not be decoded.
	ErrDecodingFailed = errors.New("cache decoding failed")
)

// LoaderFunc computes a value on a cache miss. A nil result is returned to
// the caller but never cached; an error propagates and nothing is cached.
type LoaderFunc func(ctx context.Context) (any, error)

// ServiceStats is the collaborator-facing statistics snapshot.
type ServiceStats struct {
	// Tier1Size is the current number of entries in the local cache.
	Tier1Size int `json:"tier1Size"`

	// Tier2Available reports whether the distributed tier is configured
	// and its circuit is not open.
	Tier2Available bool `json:"tier2Available"`

	// Hits is the number of cache hits across tiers.
	Hits int64 `json:"hits"`

	// Misses is the number of full cache misses.
	Misses int64 `json:"misses"`

	// Errors is the number of Tier 2 failures converted to misses.
	Errors int64 `json:"errors"`

	// HitRate is hits / (hits + misses), 0 when no requests were seen.
	HitRate float64 `json:"hitRate"`
}
