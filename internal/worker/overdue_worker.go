// Package worker hosts the background loops of the settlement service.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hoangtle/renthub-settlement/internal/application/services"
)

// OverdueWorker periodically sweeps unpaid invoices past their due date.
// The sweep is idempotent, so overlapping deployments running the worker
// concurrently are harmless.
type OverdueWorker struct {
	overdue  *services.OverdueService
	interval time.Duration
	logger   *slog.Logger
}

func NewOverdueWorker(overdue *services.OverdueService, interval time.Duration, logger *slog.Logger) *OverdueWorker {
	if interval == 0 {
		interval = time.Hour
	}

	return &OverdueWorker{
		overdue:  overdue,
		interval: interval,
		logger:   logger.With("component", "overdue_worker"),
	}
}

// Start runs the sweep loop until the context is cancelled. It sweeps once
// immediately so a restart never delays overdue marking by a full interval.
func (w *OverdueWorker) Start(ctx context.Context) {
	w.logger.Info("overdue worker started", "interval", w.interval)

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("overdue worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Errors are logged, not fatal: the next
// tick retries.
func (w *OverdueWorker) RunOnce(ctx context.Context) {
	if _, err := w.overdue.SweepOnce(ctx); err != nil {
		w.logger.Error("sweep iteration failed", "error", err)
	}
}
