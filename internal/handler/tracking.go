package handler

import (
	"context"
	"log/slog"
	"net/http"

	"carriersync/internal/tracking"
)

type TrackingRunner interface {
	Run(ctx context.Context) (tracking.RunStats, error)
}

// RunTrackingHandler performs one tracking pass synchronously and reports its stats.
func RunTrackingHandler(runner TrackingRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := runner.Run(r.Context())
		if err != nil {
			slog.Error("tracking run failed", "error", err)
			http.Error(w, "tracking run failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
