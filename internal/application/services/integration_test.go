package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/application/services"
	"github.com/hoangtle/renthub-settlement/internal/application/services/testhelpers"
	"github.com/hoangtle/renthub-settlement/internal/domain"
	"github.com/hoangtle/renthub-settlement/internal/infrastructure/persistence/postgres"
	"github.com/hoangtle/renthub-settlement/internal/mocks"
)

type SettlementSuite struct {
	suite.Suite
	testDB      *testhelpers.TestDatabase
	invoiceRepo *postgres.InvoiceRepository
	paymentRepo *postgres.PaymentRepository
	notifier    *mocks.MockNotifier
	reconciler  *services.Reconciler
	offline     *services.OfflineSettlementService
	overdue     *services.OverdueService
	logger      *slog.Logger
}

func TestSettlementSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	suite.Run(t, new(SettlementSuite))
}

func (s *SettlementSuite) SetupSuite() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.testDB = testhelpers.SetupTestDatabase(s.T())
	s.invoiceRepo = postgres.NewInvoiceRepository(s.testDB.DB)
	s.paymentRepo = postgres.NewPaymentRepository(s.testDB.DB)
}

func (s *SettlementSuite) TearDownSuite() {
	s.testDB.Cleanup(s.T())
}

func (s *SettlementSuite) SetupTest() {
	s.testDB.CleanTables(s.T())
	s.notifier = &mocks.MockNotifier{}
	s.reconciler = services.NewReconciler(s.testDB.DB, s.invoiceRepo, s.paymentRepo, s.notifier, s.logger)
	s.offline = services.NewOfflineSettlementService(s.testDB.DB, s.invoiceRepo, s.paymentRepo, s.notifier, s.logger)
	s.overdue = services.NewOverdueService(s.invoiceRepo, s.logger)
}

func (s *SettlementSuite) successOutcome(payment *domain.Payment) domain.PaymentOutcome {
	return domain.PaymentOutcome{
		ExternalReference: payment.ExternalReference,
		Status:            domain.OutcomeSuccess,
		Amount:            payment.Amount,
		TransactionID:     "14226112",
		ProviderTimestamp: time.Now(),
		RawPayload:        []byte(`{"code":"00"}`),
	}
}

func (s *SettlementSuite) TestSuccessOutcomeSettlesInvoice() {
	t := s.T()
	ctx := context.Background()

	invoice := testhelpers.CreateInvoice(t, s.invoiceRepo, time.Now().Add(24*time.Hour))
	payment := testhelpers.CreatePendingPayment(t, s.paymentRepo, invoice, domain.ProviderBankRedirect)

	settled, err := s.reconciler.Apply(ctx, s.successOutcome(payment))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSuccess, settled.Status)

	storedPayment, err := s.paymentRepo.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSuccess, storedPayment.Status)
	require.NotNil(t, storedPayment.TransactionID)
	assert.Equal(t, "14226112", *storedPayment.TransactionID)
	require.NotNil(t, storedPayment.PaidAt)

	storedInvoice, err := s.invoiceRepo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, storedInvoice.Status)
	require.NotNil(t, storedInvoice.PaidAt)

	assert.Equal(t, 1, s.notifier.Calls)
}

func (s *SettlementSuite) TestDuplicateDeliveryIsIdempotent() {
	t := s.T()
	ctx := context.Background()

	invoice := testhelpers.CreateInvoice(t, s.invoiceRepo, time.Now().Add(24*time.Hour))
	payment := testhelpers.CreatePendingPayment(t, s.paymentRepo, invoice, domain.ProviderCheckoutLink)
	outcome := s.successOutcome(payment)

	_, err := s.reconciler.Apply(ctx, outcome)
	require.NoError(t, err)
	firstPaid, err := s.invoiceRepo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)

	// Redelivery of the same webhook.
	settled, err := s.reconciler.Apply(ctx, outcome)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSuccess, settled.Status)

	secondPaid, err := s.invoiceRepo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, firstPaid.PaidAt, secondPaid.PaidAt, "paid_at must be written exactly once")
	assert.Equal(t, 1, s.notifier.Calls, "redelivery must not notify again")
}

func (s *SettlementSuite) TestConcurrentDeliveriesNotifyOnce() {
	t := s.T()
	ctx := context.Background()

	invoice := testhelpers.CreateInvoice(t, s.invoiceRepo, time.Now().Add(24*time.Hour))
	payment := testhelpers.CreatePendingPayment(t, s.paymentRepo, invoice, domain.ProviderCheckoutLink)
	outcome := s.successOutcome(payment)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.reconciler.Apply(ctx, outcome)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	storedPayment, err := s.paymentRepo.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSuccess, storedPayment.Status)
	assert.Equal(t, 1, s.notifier.Calls, "exactly one delivery wins the compare-and-swap")
}

func (s *SettlementSuite) TestFailedOutcomeLeavesInvoiceUnpaid() {
	t := s.T()
	ctx := context.Background()

	invoice := testhelpers.CreateInvoice(t, s.invoiceRepo, time.Now().Add(24*time.Hour))
	payment := testhelpers.CreatePendingPayment(t, s.paymentRepo, invoice, domain.ProviderBankRedirect)

	settled, err := s.reconciler.Apply(ctx, domain.PaymentOutcome{
		ExternalReference: payment.ExternalReference,
		Status:            domain.OutcomeFailed,
		FailureReason:     domain.ReasonProviderDeclined,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, settled.Status)

	storedInvoice, err := s.invoiceRepo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceUnpaid, storedInvoice.Status)
	assert.Zero(t, s.notifier.Calls)
}

func (s *SettlementSuite) TestSecondPaymentAfterSettlementIsHarmless() {
	t := s.T()
	ctx := context.Background()

	invoice := testhelpers.CreateInvoice(t, s.invoiceRepo, time.Now().Add(24*time.Hour))
	first := testhelpers.CreatePendingPayment(t, s.paymentRepo, invoice, domain.ProviderBankRedirect)
	second := testhelpers.CreatePendingPayment(t, s.paymentRepo, invoice, domain.ProviderQRCode)

	_, err := s.reconciler.Apply(ctx, s.successOutcome(first))
	require.NoError(t, err)
	firstPaid, err := s.invoiceRepo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)

	// A second provider reports success for its own attempt; the invoice
	// stays PAID with its original timestamp.
	_, err = s.reconciler.Apply(ctx, s.successOutcome(second))
	require.NoError(t, err)

	secondPaid, err := s.invoiceRepo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, secondPaid.Status)
	assert.Equal(t, firstPaid.PaidAt, secondPaid.PaidAt)
}

func (s *SettlementSuite) TestOfflineSettlement() {
	t := s.T()
	ctx := context.Background()

	invoice := testhelpers.CreateInvoice(t, s.invoiceRepo, time.Now().Add(24*time.Hour))

	payment, err := s.offline.RecordSettlement(ctx, invoice.ID, "CASH", "manager-3")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSuccess, payment.Status)

	storedInvoice, err := s.invoiceRepo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, storedInvoice.Status)

	// A second confirmation must be rejected.
	_, err = s.offline.RecordSettlement(ctx, invoice.ID, "BANK_TRANSFER", "manager-4")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidState))
	assert.Equal(t, 1, s.notifier.Calls)
}

func (s *SettlementSuite) TestOverdueSweep() {
	t := s.T()
	ctx := context.Background()

	pastDue := testhelpers.CreateInvoice(t, s.invoiceRepo, time.Now().Add(-24*time.Hour))
	notDue := testhelpers.CreateInvoice(t, s.invoiceRepo, time.Now().Add(24*time.Hour))
	paid := testhelpers.CreateInvoice(t, s.invoiceRepo, time.Now().Add(-24*time.Hour))

	_, err := s.offline.RecordSettlement(ctx, paid.ID, "CASH", "manager-3")
	require.NoError(t, err)

	swept, err := s.overdue.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	overdueInvoice, err := s.invoiceRepo.FindByID(ctx, pastDue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceOverdue, overdueInvoice.Status)

	unpaidInvoice, err := s.invoiceRepo.FindByID(ctx, notDue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceUnpaid, unpaidInvoice.Status)

	paidInvoice, err := s.invoiceRepo.FindByID(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, paidInvoice.Status, "sweep never touches PAID")

	// Second sweep finds nothing new.
	swept, err = s.overdue.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func (s *SettlementSuite) TestOverduePaymentStillSettles() {
	t := s.T()
	ctx := context.Background()

	invoice := testhelpers.CreateInvoice(t, s.invoiceRepo, time.Now().Add(-24*time.Hour))
	payment := testhelpers.CreatePendingPayment(t, s.paymentRepo, invoice, domain.ProviderBankRedirect)

	_, err := s.overdue.SweepOnce(ctx)
	require.NoError(t, err)

	// Paying an OVERDUE invoice is allowed and settles it.
	_, err = s.reconciler.Apply(ctx, s.successOutcome(payment))
	require.NoError(t, err)

	storedInvoice, err := s.invoiceRepo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, storedInvoice.Status)
}

func (s *SettlementSuite) TestCheckoutCancelsOnProviderFailure() {
	t := s.T()
	ctx := context.Background()

	invoice := testhelpers.CreateInvoice(t, s.invoiceRepo, time.Now().Add(24*time.Hour))

	adapter := &mocks.MockGatewayAdapter{
		ProviderValue: domain.ProviderBankRedirect,
		CreateRequestFn: func(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment, client application.ClientContext) (*application.CreateRequestResult, error) {
			return nil, domain.NewUpstreamUnavailableError("BANK_REDIRECT", assert.AnError)
		},
	}
	resolver := &mocks.MockAdapterResolver{
		GetFn: func(provider domain.Provider) (application.GatewayAdapter, error) {
			return adapter, nil
		},
	}
	checkout := services.NewCheckoutService(s.testDB.DB, s.invoiceRepo, s.paymentRepo, resolver, s.logger)

	_, err := checkout.CreatePaymentRequest(ctx, invoice.ID, "BANK_REDIRECT",
		application.ClientContext{PrincipalID: "tenant-9"})
	require.Error(t, err)

	payments, err := s.paymentRepo.FindByInvoiceID(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, domain.PaymentCancelled, payments[0].Status)
}
