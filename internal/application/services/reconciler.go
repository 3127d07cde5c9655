// Package services orchestrates settlement flows over the domain entities,
// the repositories and the gateway adapters.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/domain"
	"github.com/hoangtle/renthub-settlement/internal/infrastructure/persistence/postgres"
)

// Reconciler is the single writer of payment and invoice settlement state.
// Every verified outcome, whether it arrived on a callback, a webhook or a
// status poll, funnels through Apply.
type Reconciler struct {
	db       application.TxRunner
	invoices application.InvoiceRepository
	payments application.PaymentRepository
	notifier application.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewReconciler(
	db application.TxRunner,
	invoices application.InvoiceRepository,
	payments application.PaymentRepository,
	notifier application.Notifier,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		db:       db,
		invoices: invoices,
		payments: payments,
		notifier: notifier,
		logger:   logger.With("component", "reconciler"),
		now:      time.Now,
	}
}

// Apply folds one verified gateway outcome into the ledger and returns the
// payment as it stands afterwards.
//
// The payment transition and the invoice MarkPaid commit atomically, and the
// success notification fires only for the caller that won the PENDING
// compare-and-swap. A duplicate delivery therefore changes nothing and
// notifies no one.
func (r *Reconciler) Apply(ctx context.Context, outcome domain.PaymentOutcome) (*domain.Payment, error) {
	if outcome.ExternalReference == "" {
		return nil, domain.NewValidationError("outcome carries no external reference")
	}

	payment, err := r.payments.FindByExternalReference(ctx, outcome.ExternalReference)
	if err != nil {
		if errors.Is(err, postgres.ErrPaymentNotFound) {
			return nil, domain.NewPaymentNotFoundError(outcome.ExternalReference)
		}
		return nil, err
	}

	// Idempotent short-circuit: terminal payments never move again.
	if payment.IsTerminal() {
		r.logger.Info("outcome for terminal payment ignored",
			"external_reference", payment.ExternalReference,
			"status", payment.Status,
		)
		return payment, nil
	}

	target, ok := outcome.TargetPaymentStatus()
	if !ok {
		return payment, nil
	}

	if target == domain.PaymentSuccess && outcome.Amount != 0 && outcome.Amount != payment.Amount {
		r.logger.Warn("success outcome with mismatched amount left unapplied",
			"external_reference", payment.ExternalReference,
			"expected", payment.Amount,
			"reported", outcome.Amount,
		)
		return payment, nil
	}

	var transactionID *string
	if outcome.TransactionID != "" {
		transactionID = &outcome.TransactionID
	}

	var paidAt *time.Time
	if target == domain.PaymentSuccess {
		ts := outcome.ProviderTimestamp
		if ts.IsZero() {
			ts = r.now()
		}
		paidAt = &ts
	}

	var won bool
	err = r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var txErr error
		won, txErr = r.payments.TransitionFromPending(ctx, tx, payment.ID, target,
			transactionID, paidAt, outcome.RawPayload)
		if txErr != nil {
			return txErr
		}

		if won && target == domain.PaymentSuccess {
			return r.invoices.MarkPaid(ctx, tx, payment.InvoiceID, *paidAt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !won {
		// Lost the race: someone else already settled this payment.
		current, findErr := r.payments.FindByID(ctx, payment.ID)
		if findErr != nil {
			return nil, findErr
		}
		return current, nil
	}

	switch target {
	case domain.PaymentSuccess:
		_ = payment.Succeed(outcome.TransactionID, *paidAt, outcome.RawPayload)
	case domain.PaymentFailed:
		_ = payment.Fail(outcome.RawPayload)
	case domain.PaymentCancelled:
		_ = payment.Cancel(outcome.RawPayload)
	}

	r.logger.Info("payment reconciled",
		"external_reference", payment.ExternalReference,
		"status", payment.Status,
		"failure_reason", outcome.FailureReason,
	)

	if target == domain.PaymentSuccess {
		r.notifySuccess(ctx, payment)
	}

	return payment, nil
}

// notifySuccess delivers the settlement event after commit. A failed delivery
// is logged and swallowed: the ledger is already consistent.
func (r *Reconciler) notifySuccess(ctx context.Context, payment *domain.Payment) {
	invoice, err := r.invoices.FindByID(ctx, payment.InvoiceID)
	if err != nil {
		r.logger.Error("could not load invoice for notification",
			"invoice_id", payment.InvoiceID, "error", err)
		return
	}

	if err := r.notifier.PaymentSucceeded(ctx, invoice, payment); err != nil {
		r.logger.Error("payment notification failed",
			"invoice_id", invoice.ID,
			"payment_id", payment.ID,
			"error", err,
		)
	}
}
