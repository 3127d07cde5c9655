package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/domain"
	"github.com/hoangtle/renthub-settlement/internal/infrastructure/persistence/postgres"
)

// OfflineSettlementService records manager-confirmed settlements: cash
// handed over or a transfer sighted on the bank statement. There is no
// gateway; the manager's word is the verification.
type OfflineSettlementService struct {
	db       application.TxRunner
	invoices application.InvoiceRepository
	payments application.PaymentRepository
	notifier application.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewOfflineSettlementService(
	db application.TxRunner,
	invoices application.InvoiceRepository,
	payments application.PaymentRepository,
	notifier application.Notifier,
	logger *slog.Logger,
) *OfflineSettlementService {
	return &OfflineSettlementService{
		db:       db,
		invoices: invoices,
		payments: payments,
		notifier: notifier,
		logger:   logger.With("component", "offline_settlement"),
		now:      time.Now,
	}
}

// RecordSettlement writes an already-successful payment and marks the
// invoice paid in one transaction. The invoice row is locked first so two
// managers confirming at once cannot both settle it.
func (s *OfflineSettlementService) RecordSettlement(ctx context.Context, invoiceID int64, providerName, principalID string) (*domain.Payment, error) {
	provider, err := domain.ParseProvider(providerName)
	if err != nil {
		return nil, application.NewInvalidInputError(err.Error())
	}
	if !provider.IsOffline() {
		return nil, application.NewInvalidInputError("online providers settle through gateway callbacks")
	}
	if principalID == "" {
		return nil, application.NewInvalidInputError("confirming principal is required")
	}

	var (
		invoice *domain.Invoice
		payment *domain.Payment
	)
	err = s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var txErr error
		invoice, txErr = s.invoices.FindByIDForUpdate(ctx, tx, invoiceID)
		if txErr != nil {
			if errors.Is(txErr, postgres.ErrInvoiceNotFound) {
				return domain.NewInvoiceNotFoundError(invoiceID)
			}
			return txErr
		}
		if invoice.IsPaid() {
			return domain.NewInvalidStateError("invoice is already paid")
		}

		payment, txErr = domain.NewPayment(uuid.NewString(), invoice, provider, principalID)
		if txErr != nil {
			return application.NewInvalidInputError(txErr.Error())
		}

		paidAt := s.now()
		if txErr = payment.Succeed("", paidAt, nil); txErr != nil {
			return txErr
		}
		if txErr = s.payments.Create(ctx, tx, payment); txErr != nil {
			return txErr
		}

		invoice.MarkPaid(paidAt)
		return s.invoices.MarkPaid(ctx, tx, invoice.ID, paidAt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("offline settlement recorded",
		"invoice_id", invoice.ID,
		"payment_id", payment.ID,
		"provider", provider,
		"confirmed_by", principalID,
	)

	if notifyErr := s.notifier.PaymentSucceeded(ctx, invoice, payment); notifyErr != nil {
		s.logger.Error("settlement notification failed",
			"invoice_id", invoice.ID, "error", notifyErr)
	}

	return payment, nil
}
