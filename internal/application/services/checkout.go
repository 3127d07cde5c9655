package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/domain"
	"github.com/hoangtle/renthub-settlement/internal/infrastructure/persistence/postgres"
)

// CheckoutService creates payment requests against online gateways.
type CheckoutService struct {
	db       application.TxRunner
	invoices application.InvoiceRepository
	payments application.PaymentRepository
	adapters application.AdapterResolver
	logger   *slog.Logger
}

func NewCheckoutService(
	db application.TxRunner,
	invoices application.InvoiceRepository,
	payments application.PaymentRepository,
	adapters application.AdapterResolver,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		db:       db,
		invoices: invoices,
		payments: payments,
		adapters: adapters,
		logger:   logger.With("component", "checkout"),
	}
}

// CreatePaymentRequest persists a PENDING payment for the invoice, then asks
// the provider for its request artifact (redirect URL, checkout link or QR).
//
// The payment row is written before the provider call, so a crash in between
// leaves a resolvable PENDING record instead of an orphaned provider order.
// If the provider call fails the local payment is cancelled.
func (s *CheckoutService) CreatePaymentRequest(ctx context.Context, invoiceID int64, providerName string, client application.ClientContext) (*application.CreateRequestResult, error) {
	provider, err := domain.ParseProvider(providerName)
	if err != nil {
		return nil, application.NewInvalidInputError(err.Error())
	}
	if provider.IsOffline() {
		return nil, application.NewInvalidInputError("offline providers are recorded through the settlements endpoint")
	}
	if client.PrincipalID == "" {
		return nil, application.NewInvalidInputError("initiating principal is required")
	}

	adapter, err := s.adapters.Get(provider)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, postgres.ErrInvoiceNotFound) {
			return nil, domain.NewInvoiceNotFoundError(invoiceID)
		}
		return nil, err
	}
	if invoice.IsPaid() {
		return nil, domain.NewInvalidStateError("invoice is already paid")
	}

	payment, err := domain.NewPayment(uuid.NewString(), invoice, provider, client.PrincipalID)
	if err != nil {
		return nil, application.NewInvalidInputError(err.Error())
	}

	if err := s.payments.Create(ctx, nil, payment); err != nil {
		return nil, err
	}

	result, err := adapter.CreateRequest(ctx, invoice, payment, client)
	if err != nil {
		s.cancelAfterFailure(ctx, payment, err)
		return nil, err
	}

	s.logger.Info("payment request created",
		"invoice_id", invoice.ID,
		"payment_id", payment.ID,
		"provider", provider,
		"external_reference", payment.ExternalReference,
	)
	return result, nil
}

// cancelAfterFailure closes the local payment when the provider call failed,
// so no PENDING row lingers for a request that was never issued.
func (s *CheckoutService) cancelAfterFailure(ctx context.Context, payment *domain.Payment, cause error) {
	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, txErr := s.payments.TransitionFromPending(ctx, tx, payment.ID, domain.PaymentCancelled, nil, nil, nil)
		return txErr
	})
	if err != nil {
		s.logger.Error("could not cancel payment after provider failure",
			"payment_id", payment.ID, "error", err)
	}

	s.logger.Warn("provider request failed, payment cancelled",
		"payment_id", payment.ID,
		"provider", payment.Provider,
		"error", cause,
	)
}
