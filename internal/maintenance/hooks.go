package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cameron-eth/firstballotETL/internal/config"
)

// Refresher rebuilds the combined view.
type Refresher interface {
	RefreshCombined(ctx context.Context) error
}

// RefreshMaterializedViews refreshes the combined view. On Postgres the
// refresh runs CONCURRENTLY so reads are not blocked.
func RefreshMaterializedViews(ctx context.Context, st Refresher, logger *slog.Logger) error {
	start := time.Now()
	err := st.RefreshCombined(ctx)
	dur := time.Since(start).Round(time.Millisecond)
	if err != nil {
		logger.Warn("Failed to refresh materialized view",
			"view", config.CombinedView, "duration", dur, "error", err)
		return fmt.Errorf("refresh %s: %w", config.CombinedView, err)
	}
	logger.Info("Refreshed materialized view", "view", config.CombinedView, "duration", dur)
	return nil
}
