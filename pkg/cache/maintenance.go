package cache

import (
	"context"
	"sync"
	"time"

	"github.com/comuniza/ultracache/pkg/config"
	"github.com/comuniza/ultracache/pkg/observability"
)

// warmupTimeout bounds each warmup pass so a hung loader cannot wedge the
// warmer goroutine.
const warmupTimeout = 30 * time.Second

// panicBackoff delays the loop briefly after a recovered panic.
const panicBackoff = 250 * time.Millisecond

// warmupEntry is a registered key with the loader that refreshes it.
type warmupEntry struct {
	name   string
	key    string
	loader LoaderFunc
	opts   []GetOption
}

// Maintainer runs the cache's background work: a sweeper that removes
// expired Tier 1 entries on an interval, and a warmer that periodically
// refreshes registered keys so first requests after expiry never pay the
// load cost.
type Maintainer struct {
	logger  observability.Logger
	service *Service

	sweepInterval time.Duration
	warmInterval  time.Duration
	warmEnabled   bool

	mu      sync.Mutex
	warmups []warmupEntry

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewMaintainer creates a Maintainer for the given service.
func NewMaintainer(svc *Service, sweeper config.SweeperConfig, warmer config.WarmerConfig, logger observability.Logger) *Maintainer {
	if logger == nil {
		logger = observability.NopLogger()
	}

	sweepInterval := sweeper.Interval.Duration()
	if sweepInterval <= 0 {
		sweepInterval = config.DefaultSweepInterval
	}
	warmInterval := warmer.Interval.Duration()
	if warmInterval <= 0 {
		warmInterval = config.DefaultWarmInterval
	}

	return &Maintainer{
		logger:        logger,
		service:       svc,
		sweepInterval: sweepInterval,
		warmInterval:  warmInterval,
		warmEnabled:   warmer.Enabled,
		stopCh:        make(chan struct{}),
	}
}

// RegisterWarmup adds a key to the warm set under a human-readable name
// used in logs. The loader runs on every warmup pass and its result
// overwrites both tiers. Safe to call after Start.
func (m *Maintainer) RegisterWarmup(name, key string, loader LoaderFunc, opts ...GetOption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warmups = append(m.warmups, warmupEntry{name: name, key: key, loader: loader, opts: opts})
}

// WarmNow refreshes every registered key once, returning the number of
// keys warmed and the number that failed. A failed loader skips its key
// and never aborts the pass.
func (m *Maintainer) WarmNow(ctx context.Context) (warmed, failed int) {
	m.mu.Lock()
	entries := make([]warmupEntry, len(m.warmups))
	copy(entries, m.warmups)
	m.mu.Unlock()

	for _, e := range entries {
		value, err := e.loader(ctx)
		if err != nil {
			failed++
			m.logger.Warn("warmup loader failed",
				observability.String("name", e.name),
				observability.String("key", e.key),
				observability.Error(err))
			continue
		}
		if value == nil {
			continue
		}
		if err := m.service.Set(ctx, e.key, value, e.opts...); err != nil {
			failed++
			continue
		}
		warmed++
	}

	if warmed > 0 || failed > 0 {
		m.logger.Info("cache warmup pass complete",
			observability.Int("warmed", warmed),
			observability.Int("failed", failed))
	}
	return warmed, failed
}

// Start launches the background loops. Calling Start twice is a no-op.
func (m *Maintainer) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.sweepLoop()

	if m.warmEnabled {
		m.wg.Add(1)
		go m.warmLoop()
	}

	m.logger.Info("cache maintenance started",
		observability.Duration("sweepInterval", m.sweepInterval),
		observability.Duration("warmInterval", m.warmInterval),
		observability.Bool("warmerEnabled", m.warmEnabled))
}

// Stop signals the loops to exit and waits for them.
func (m *Maintainer) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()
	m.logger.Info("cache maintenance stopped")
}

func (m *Maintainer) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.runProtected("sweep", func(context.Context) {
				removed := m.service.local.RemoveExpired()
				if removed > 0 {
					m.logger.Debug("sweeper removed expired entries",
						observability.Int("removed", removed))
				}
			})
		}
	}
}

func (m *Maintainer) warmLoop() {
	defer m.wg.Done()

	// Warm once at startup so the first interval does not serve cold.
	m.runProtected("warmup", func(ctx context.Context) {
		m.WarmNow(ctx)
	})

	ticker := time.NewTicker(m.warmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.runProtected("warmup", func(ctx context.Context) {
				m.WarmNow(ctx)
			})
		}
	}
}

// runProtected runs one maintenance pass with panic recovery, so a buggy
// loader cannot kill the loop.
func (m *Maintainer) runProtected(name string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("maintenance pass panicked",
				observability.String("pass", name),
				observability.Any("panic", r))
			time.Sleep(panicBackoff)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	defer cancel()
	fn(ctx)
}
