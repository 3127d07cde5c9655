package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/domain"
	"github.com/hoangtle/renthub-settlement/internal/infrastructure/persistence/postgres"
)

// StatusService answers payment status queries. A query for a PENDING
// payment triggers a live poll against the provider, so clients of
// poll-only providers converge without waiting for the next callback.
type StatusService struct {
	payments   application.PaymentRepository
	adapters   application.AdapterResolver
	reconciler *Reconciler
	logger     *slog.Logger
}

func NewStatusService(
	payments application.PaymentRepository,
	adapters application.AdapterResolver,
	reconciler *Reconciler,
	logger *slog.Logger,
) *StatusService {
	return &StatusService{
		payments:   payments,
		adapters:   adapters,
		reconciler: reconciler,
		logger:     logger.With("component", "status"),
	}
}

// GetStatus returns the payment for an external reference, refreshed from
// the provider when it is still PENDING. A provider that cannot be reached
// degrades to reporting the stored state.
func (s *StatusService) GetStatus(ctx context.Context, externalReference string) (*domain.Payment, error) {
	payment, err := s.payments.FindByExternalReference(ctx, externalReference)
	if err != nil {
		if errors.Is(err, postgres.ErrPaymentNotFound) {
			return nil, domain.NewPaymentNotFoundError(externalReference)
		}
		return nil, err
	}

	if payment.IsTerminal() || payment.Provider.IsOffline() {
		return payment, nil
	}

	adapter, err := s.adapters.Get(payment.Provider)
	if err != nil {
		s.logger.Warn("no adapter for pending payment", "provider", payment.Provider)
		return payment, nil
	}

	outcome, err := adapter.QueryStatus(ctx, externalReference)
	if err != nil {
		s.logger.Warn("status poll failed, reporting stored state",
			"external_reference", externalReference,
			"provider", payment.Provider,
			"error", err,
		)
		return payment, nil
	}

	return s.reconciler.Apply(ctx, outcome)
}
