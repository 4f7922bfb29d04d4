package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comuniza/ultracache/pkg/config"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedisCache(&config.RedisCacheConfig{
		URL:       "redis://" + mr.Addr(),
		KeyPrefix: "test:",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, mr
}

func TestNewRedisCacheErrors(t *testing.T) {
	_, err := NewRedisCache(&config.RedisCacheConfig{}, nil)
	assert.Error(t, err, "missing URL")

	_, err = NewRedisCache(&config.RedisCacheConfig{URL: "://bad"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewRedisCache(&config.RedisCacheConfig{
		URL:            "redis://127.0.0.1:1",
		ConnectTimeout: config.Duration(100 * time.Millisecond),
	}, nil)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestRedisCacheSetGet(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "greeting", []byte("hello"), time.Minute))

	got, err := c.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	// Keys are namespaced under the configured prefix.
	assert.True(t, mr.Exists("test:greeting"))
}

func TestRedisCacheGetMiss(t *testing.T) {
	c, _ := newTestRedisCache(t)

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.True(t, c.Available(), "a miss does not trip the breaker")
}

func TestRedisCacheTTL(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCacheDelete(t *testing.T) {
	c, _ := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("v"), time.Minute))

	removed, err := c.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = c.Delete(ctx, "a")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRedisCacheInvalidatePrefix(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "items_list:1", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "items_list:2", []byte("b"), time.Minute))
	require.NoError(t, c.Set(ctx, "other", []byte("c"), time.Minute))

	removed, err := c.InvalidatePrefix(ctx, "items_list")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.True(t, mr.Exists("test:other"))

	removed, err = c.InvalidatePrefix(ctx, "items_list")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestRedisCacheClear(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))

	require.NoError(t, c.Clear(ctx))
	assert.False(t, mr.Exists("test:a"))
	assert.False(t, mr.Exists("test:b"))
}

func TestRedisCacheBreakerOpens(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(&config.RedisCacheConfig{
		URL: "redis://" + mr.Addr(),
		Breaker: &config.BreakerConfig{
			MaxFailures: 2,
			OpenTimeout: config.Duration(time.Minute),
		},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.True(t, c.Available())

	mr.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.Get(ctx, "k")
		require.Error(t, err)
	}

	assert.False(t, c.Available(), "consecutive failures open the circuit")

	_, err = c.Get(ctx, "k")
	assert.Error(t, err, "open circuit rejects immediately")
}

func TestApplyTTLJitter(t *testing.T) {
	base := time.Minute

	assert.Equal(t, base, applyTTLJitter(base, 0))
	assert.Equal(t, base, applyTTLJitter(base, -1))
	assert.Equal(t, time.Duration(0), applyTTLJitter(0, 0.5))

	for i := 0; i < 100; i++ {
		got := applyTTLJitter(base, 0.1)
		assert.GreaterOrEqual(t, got, 54*time.Second)
		assert.LessOrEqual(t, got, 66*time.Second)
	}
}
