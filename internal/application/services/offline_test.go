package services

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/domain"
	"github.com/hoangtle/renthub-settlement/internal/infrastructure/persistence/postgres"
	"github.com/hoangtle/renthub-settlement/internal/mocks"
)

type offlineFixture struct {
	service  *OfflineSettlementService
	notifier *mocks.MockNotifier

	created   []*domain.Payment
	markPaids int
}

func newOfflineFixture(t *testing.T, invoice *domain.Invoice) *offlineFixture {
	t.Helper()
	f := &offlineFixture{notifier: &mocks.MockNotifier{}}

	invoices := &mocks.MockInvoiceRepository{
		FindByIDForUpdateFn: func(ctx context.Context, tx pgx.Tx, id int64) (*domain.Invoice, error) {
			if invoice != nil && id == invoice.ID {
				return invoice, nil
			}
			return nil, postgres.ErrInvoiceNotFound
		},
		MarkPaidFn: func(ctx context.Context, tx pgx.Tx, id int64, paidAt time.Time) error {
			f.markPaids++
			return nil
		},
	}
	payments := &mocks.MockPaymentRepository{
		CreateFn: func(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
			f.created = append(f.created, payment)
			return nil
		},
	}

	f.service = NewOfflineSettlementService(&mocks.MockTxRunner{}, invoices, payments, f.notifier, testLogger())
	return f
}

func TestOfflineSettlementService_RecordSettlement(t *testing.T) {
	t.Run("records a successful payment and settles the invoice", func(t *testing.T) {
		invoice := unpaidInvoice(t)
		f := newOfflineFixture(t, invoice)

		payment, err := f.service.RecordSettlement(context.Background(), invoice.ID, "CASH", "manager-3")
		require.NoError(t, err)

		assert.Equal(t, domain.PaymentSuccess, payment.Status)
		assert.Equal(t, invoice.TotalAmount, payment.Amount)
		assert.Equal(t, "manager-3", payment.InitiatedBy)
		require.NotNil(t, payment.PaidAt)

		require.Len(t, f.created, 1)
		assert.Equal(t, 1, f.markPaids)
		assert.Equal(t, 1, f.notifier.Calls)
		assert.True(t, invoice.IsPaid())
	})

	t.Run("bank transfers settle the same way", func(t *testing.T) {
		invoice := unpaidInvoice(t)
		f := newOfflineFixture(t, invoice)

		payment, err := f.service.RecordSettlement(context.Background(), invoice.ID, "BANK_TRANSFER", "manager-3")
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderBankTransfer, payment.Provider)
	})

	t.Run("rejects an already paid invoice", func(t *testing.T) {
		invoice := unpaidInvoice(t)
		invoice.MarkPaid(time.Now())
		f := newOfflineFixture(t, invoice)

		_, err := f.service.RecordSettlement(context.Background(), invoice.ID, "CASH", "manager-3")
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidState))
		assert.Empty(t, f.created)
		assert.Zero(t, f.notifier.Calls)
	})

	t.Run("rejects online providers", func(t *testing.T) {
		invoice := unpaidInvoice(t)
		f := newOfflineFixture(t, invoice)

		_, err := f.service.RecordSettlement(context.Background(), invoice.ID, "BANK_REDIRECT", "manager-3")
		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeInvalidInput, svcErr.Code)
	})

	t.Run("requires a confirming principal", func(t *testing.T) {
		invoice := unpaidInvoice(t)
		f := newOfflineFixture(t, invoice)

		_, err := f.service.RecordSettlement(context.Background(), invoice.ID, "CASH", "")
		require.Error(t, err)
		assert.Empty(t, f.created)
	})

	t.Run("reports a missing invoice", func(t *testing.T) {
		f := newOfflineFixture(t, nil)

		_, err := f.service.RecordSettlement(context.Background(), 9999, "CASH", "manager-3")
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvoiceNotFound))
	})
}
