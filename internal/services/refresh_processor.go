package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/log"
)

// RefreshConfig holds the keep-warm loop tuning.
type RefreshConfig struct {
	// Interval is how often the loop wakes up.
	Interval time.Duration

	// MaxStaleness is the snapshot age the loop maintains. It sits just
	// under Interval so each tick usually refreshes.
	MaxStaleness time.Duration
}

// DefaultRefreshConfig returns the standard keep-warm tuning.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval:     5 * time.Minute,
		MaxStaleness: 4 * time.Minute,
	}
}

// RefreshProcessor keeps the snapshot cache warm in the background so
// interactive calls rarely wait on the provider. Fetch failures are
// logged and retried next tick; the loop never dies on them.
type RefreshProcessor struct {
	cache  *cache.SnapshotCache
	config RefreshConfig
	logger *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefreshProcessor creates a processor for the cache.
func NewRefreshProcessor(snapCache *cache.SnapshotCache, config RefreshConfig, logger *log.Logger) *RefreshProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshConfig().Interval
	}
	if config.MaxStaleness <= 0 {
		config.MaxStaleness = DefaultRefreshConfig().MaxStaleness
	}
	return &RefreshProcessor{
		cache:  snapCache,
		config: config,
		logger: logger.WithComponent(log.ComponentRefresh),
	}
}

// Start begins the refresh loop. Returns an error if already running.
func (p *RefreshProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("refresh processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.Info("refresh processor started",
		"interval", p.config.Interval.String(),
		"max_staleness", p.config.MaxStaleness.String())
	return nil
}

// Stop halts the loop and waits for it to exit, or gives up when ctx
// does.
func (p *RefreshProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.Info("refresh processor stopped")
	case <-ctx.Done():
		p.logger.Warn("refresh processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning reports whether the loop is active.
func (p *RefreshProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RefreshProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Warm immediately on startup.
	p.refresh(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *RefreshProcessor) refresh(ctx context.Context) {
	if _, err := p.cache.Get(ctx, p.config.MaxStaleness); err != nil {
		p.logger.Error("background refresh failed", log.FieldError, err.Error())
	}
}
