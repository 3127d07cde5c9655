package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/hoangtle/renthub-settlement/internal/application"
)

// OverdueService moves unpaid invoices past their due date into OVERDUE.
// The underlying update is guarded on status, so a concurrent settlement
// always wins over the sweep.
type OverdueService struct {
	invoices application.InvoiceRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewOverdueService(invoices application.InvoiceRepository, logger *slog.Logger) *OverdueService {
	return &OverdueService{
		invoices: invoices,
		logger:   logger.With("component", "overdue"),
		now:      time.Now,
	}
}

// SweepOnce runs a single sweep and reports how many invoices turned overdue.
func (s *OverdueService) SweepOnce(ctx context.Context) (int64, error) {
	swept, err := s.invoices.SweepOverdue(ctx, s.now())
	if err != nil {
		s.logger.Error("overdue sweep failed", "error", err)
		return 0, err
	}

	if swept > 0 {
		s.logger.Info("invoices marked overdue", "count", swept)
	}
	return swept, nil
}

// MarkOverdue transitions one invoice, reporting whether it moved.
func (s *OverdueService) MarkOverdue(ctx context.Context, invoiceID int64) (bool, error) {
	return s.invoices.MarkOverdue(ctx, invoiceID)
}
