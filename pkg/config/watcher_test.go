package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watcherTestConfig = `
logging:
  level: info
cache:
  local:
    maxEntries: 100
    defaultTTL: 1m
`

func newTestWatcher(t *testing.T, callback ReloadCallback, opts ...WatcherOption) (string, *Watcher) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ultracache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watcherTestConfig), 0o600))

	opts = append([]WatcherOption{WithDebounceDelay(20 * time.Millisecond)}, opts...)
	w, err := NewWatcher(path, callback, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	return path, w
}

func TestWatcherInitialLoad(t *testing.T) {
	_, w := newTestWatcher(t, nil)

	require.NoError(t, w.Start(context.Background()))

	cfg := w.LastConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, 100, cfg.Cache.Local.MaxEntries)
}

func TestWatcherReloadOnChange(t *testing.T) {
	var reloads int64
	var lastMax atomic.Int64

	path, w := newTestWatcher(t, func(cfg *Config) {
		atomic.AddInt64(&reloads, 1)
		lastMax.Store(int64(cfg.Cache.Local.MaxEntries))
	})

	require.NoError(t, w.Start(context.Background()))

	updated := []byte("cache:\n  local:\n    maxEntries: 250\n    defaultTTL: 1m\n")
	require.NoError(t, os.WriteFile(path, updated, 0o600))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&reloads) >= 1 && lastMax.Load() == 250
	}, 2*time.Second, 20*time.Millisecond)

	cfg := w.LastConfig()
	assert.Equal(t, 250, cfg.Cache.Local.MaxEntries)
}

func TestWatcherKeepsPreviousConfigOnBadReload(t *testing.T) {
	var errCount atomic.Int64

	path, w := newTestWatcher(t, nil, WithErrorCallback(func(error) {
		errCount.Add(1)
	}))

	require.NoError(t, w.Start(context.Background()))

	// Valid YAML, invalid configuration.
	bad := []byte("cache:\n  local:\n    maxEntries: -5\n")
	require.NoError(t, os.WriteFile(path, bad, 0o600))

	assert.Eventually(t, func() bool {
		return errCount.Load() >= 1
	}, 2*time.Second, 20*time.Millisecond)

	cfg := w.LastConfig()
	assert.Equal(t, 100, cfg.Cache.Local.MaxEntries,
		"previous configuration stays in effect")
}

func TestWatcherStartInvalidInitialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ultracache.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  local:\n    maxEntries: -1\n"), 0o600))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	assert.Error(t, w.Start(context.Background()))
}

func TestWatcherStopIdempotent(t *testing.T) {
	_, w := newTestWatcher(t, nil)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
