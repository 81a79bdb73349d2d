package worker

import (
	"context"
	"log/slog"
	"time"

	audit "tripmate/pkg/platform/audit"
	auditpg "tripmate/pkg/platform/audit/store/postgres"
)

// Outbox is the pending-row view the relay drains.
type Outbox interface {
	Pending(ctx context.Context, limit int) ([]auditpg.Entry, error)
	MarkPublished(ctx context.Context, ids []string) error
}

// Relay forwards committed outbox rows to a sink. Delivery is at-least-once:
// a row is marked only after the sink accepted it.
type Relay struct {
	outbox   Outbox
	sink     audit.Store
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewRelay(outbox Outbox, sink audit.Store, interval time.Duration, logger *slog.Logger) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{outbox: outbox, sink: sink, interval: interval, batch: 100, logger: logger}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "audit outbox relay failed", "error", err)
			}
		}
	}
}

// RunOnce forwards one batch and returns how many rows were published. It stops
// at the first sink failure so ordering within the batch is preserved.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	entries, err := r.outbox.Pending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	published := make([]string, 0, len(entries))
	var sinkErr error
	for _, e := range entries {
		if sinkErr = r.sink.Append(ctx, e.Event); sinkErr != nil {
			break
		}
		published = append(published, e.ID)
	}
	if err := r.outbox.MarkPublished(ctx, published); err != nil {
		return 0, err
	}
	return len(published), sinkErr
}
