package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aman-cerp/vaultindex/internal/vectorstore"
)

// IdleCompactorConfig controls when IdleCompactor triggers a maintenance
// cycle for an otherwise-quiet vault.
type IdleCompactorConfig struct {
	// IdleTimeout is how long without a search before the vault is
	// considered idle and eligible for compaction.
	IdleTimeout time.Duration
	// Cooldown is the minimum time between compaction cycles.
	Cooldown time.Duration
}

// WithDefaults fills zero-valued fields with sensible defaults.
func (c IdleCompactorConfig) WithDefaults() IdleCompactorConfig {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
	if c.Cooldown <= 0 {
		c.Cooldown = time.Hour
	}
	return c
}

// IdleCompactor runs RunCycle against a vault's store once it has gone
// IdleTimeout without a search, no more often than every Cooldown. Each
// OnSearchComplete call resets the idle timer; searches still in flight are
// not tracked, so a cycle can overlap a query that started after the last
// OnSearchComplete.
type IdleCompactor struct {
	store *vectorstore.Store
	cfg   IdleCompactorConfig

	mu          sync.Mutex
	idleTimer   *time.Timer
	lastCompact time.Time
	compacting  bool
	stopped     bool
}

// NewIdleCompactor builds an IdleCompactor for store. Call OnSearchComplete
// after every search to arm the idle timer.
func NewIdleCompactor(store *vectorstore.Store, cfg IdleCompactorConfig) *IdleCompactor {
	return &IdleCompactor{store: store, cfg: cfg.WithDefaults()}
}

// OnSearchComplete resets the idle timer, pushing out the next eligible
// compaction by IdleTimeout.
func (c *IdleCompactor) OnSearchComplete(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	c.idleTimer = time.AfterFunc(c.cfg.IdleTimeout, func() {
		c.onIdle(ctx)
	})
}

// Stop cancels any pending idle timer. Safe to call multiple times.
func (c *IdleCompactor) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
}

func (c *IdleCompactor) onIdle(ctx context.Context) {
	c.mu.Lock()
	if c.stopped || c.compacting || time.Since(c.lastCompact) < c.cfg.Cooldown {
		c.mu.Unlock()
		return
	}
	c.compacting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.compacting = false
		c.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return
	default:
	}

	result, err := RunCycle(c.store)
	if err != nil {
		slog.Warn("idle compaction failed", "error", err.Error())
		return
	}

	c.mu.Lock()
	c.lastCompact = time.Now()
	c.mu.Unlock()

	slog.Info("idle compaction complete",
		"run_id", result.RunID,
		"files_removed", result.FilesRemoved,
		"bytes_reclaimed", result.BytesReclaimed,
	)
}
