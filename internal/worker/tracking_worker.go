package worker

import (
	"context"
	"log/slog"
	"time"

	"carriersync/internal/tracking"
)

type Runner interface {
	Run(ctx context.Context) (tracking.RunStats, error)
}

// TrackingWorker polls the carrier on a fixed interval.
type TrackingWorker struct {
	runner   Runner
	interval time.Duration
}

func NewTrackingWorker(runner Runner, interval time.Duration) *TrackingWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &TrackingWorker{runner: runner, interval: interval}
}

// Start runs one pass right away, then one per interval until ctx is cancelled.
// A failed run is logged and retried on the next tick.
func (w *TrackingWorker) Start(ctx context.Context) {
	slog.Info("starting tracking worker", "interval", w.interval)
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("tracking worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *TrackingWorker) runOnce(ctx context.Context) {
	stats, err := w.runner.Run(ctx)
	if err != nil {
		slog.Error("tracking run failed", "error", err)
		return
	}
	if stats.Orders > 0 {
		slog.Info("tracking run finished", "orders", stats.Orders, "updated", stats.Updated, "failed", stats.Failed)
	}
}
