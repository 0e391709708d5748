// Package maintenance runs periodic background tasks as Go tickers inside
// the API process: refreshing the combined view and pruning the run ledger.
package maintenance

import (
	"context"
	"log/slog"
	"time"
)

// Store is what the maintenance tasks touch.
type Store interface {
	Refresher
	PruneRuns(ctx context.Context, before time.Time) (int64, error)
}

// Flusher drops cached API responses.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Config controls task intervals. Zero duration disables a task.
type Config struct {
	RefreshInterval time.Duration // combined view refresh
	PruneInterval   time.Duration // run ledger pruning
	RunRetention    time.Duration // ledger rows older than this are pruned
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		RefreshInterval: 6 * time.Hour,
		PruneInterval:   24 * time.Hour,
		RunRetention:    90 * 24 * time.Hour,
	}
}

// Start launches the configured tickers and blocks until ctx is cancelled.
// cache may be nil. Intended to be called with `go`.
func Start(ctx context.Context, st Store, cache Flusher, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"refresh", cfg.RefreshInterval,
		"prune", cfg.PruneInterval,
		"retention", cfg.RunRetention)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.RefreshInterval > 0 {
		t := time.NewTicker(cfg.RefreshInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { refresh(ctx, st, cache, logger) })
	}

	if cfg.PruneInterval > 0 && cfg.RunRetention > 0 {
		t := time.NewTicker(cfg.PruneInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { prune(ctx, st, cfg.RunRetention, time.Now(), logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

func refresh(ctx context.Context, st Store, cache Flusher, logger *slog.Logger) {
	if err := RefreshMaterializedViews(ctx, st, logger); err != nil {
		return
	}
	if cache == nil {
		return
	}
	if err := cache.Flush(ctx); err != nil {
		logger.Warn("Refresh: cache flush failed", "error", err)
	}
}

// prune deletes ledger rows that started before now minus retention.
func prune(ctx context.Context, st Store, retention time.Duration, now time.Time, logger *slog.Logger) int64 {
	n, err := st.PruneRuns(ctx, now.Add(-retention))
	if err != nil {
		logger.Warn("Prune: failed to delete old runs", "error", err)
		return 0
	}
	if n > 0 {
		logger.Info("Prune: deleted old runs", "count", n)
	}
	return n
}
