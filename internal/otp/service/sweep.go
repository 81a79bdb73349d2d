package service

import (
	"context"
	"log/slog"
	"time"

	"tripmate/internal/otp/metrics"
)

// Sweepable stores can drop stale records in bulk.
type Sweepable interface {
	Sweep(now time.Time, retention time.Duration) int
}

// RunSweeper removes records older than retention every interval until ctx is
// cancelled. Records between the code TTL and retention are left for Verify,
// which reports them Expired and deletes them.
func RunSweeper(ctx context.Context, store Sweepable, retention, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if n := store.Sweep(now, retention); n > 0 {
				m.AddSwept(n)
				logger.DebugContext(ctx, "swept stale otp records", "count", n)
			}
		}
	}
}
