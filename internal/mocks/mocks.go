// Package mocks provides hand-rolled test doubles for the application ports.
package mocks

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/domain"
)

// MockTxRunner runs the transaction body with a nil tx, which repository
// mocks ignore. Set Err to fail the begin.
type MockTxRunner struct {
	Err error
}

func (m *MockTxRunner) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if m.Err != nil {
		return m.Err
	}
	return fn(nil)
}

type MockInvoiceRepository struct {
	CreateFn            func(ctx context.Context, tx pgx.Tx, invoice *domain.Invoice) error
	FindByIDFn          func(ctx context.Context, id int64) (*domain.Invoice, error)
	FindByIDForUpdateFn func(ctx context.Context, tx pgx.Tx, id int64) (*domain.Invoice, error)
	MarkPaidFn          func(ctx context.Context, tx pgx.Tx, id int64, paidAt time.Time) error
	MarkOverdueFn       func(ctx context.Context, id int64) (bool, error)
	SweepOverdueFn      func(ctx context.Context, now time.Time) (int64, error)
}

func (m *MockInvoiceRepository) Create(ctx context.Context, tx pgx.Tx, invoice *domain.Invoice) error {
	return m.CreateFn(ctx, tx, invoice)
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	return m.FindByIDFn(ctx, id)
}

func (m *MockInvoiceRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Invoice, error) {
	return m.FindByIDForUpdateFn(ctx, tx, id)
}

func (m *MockInvoiceRepository) MarkPaid(ctx context.Context, tx pgx.Tx, id int64, paidAt time.Time) error {
	return m.MarkPaidFn(ctx, tx, id, paidAt)
}

func (m *MockInvoiceRepository) MarkOverdue(ctx context.Context, id int64) (bool, error) {
	return m.MarkOverdueFn(ctx, id)
}

func (m *MockInvoiceRepository) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	return m.SweepOverdueFn(ctx, now)
}

type MockPaymentRepository struct {
	CreateFn                  func(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	FindByIDFn                func(ctx context.Context, id string) (*domain.Payment, error)
	FindByExternalReferenceFn func(ctx context.Context, ref string) (*domain.Payment, error)
	FindByInvoiceIDFn         func(ctx context.Context, invoiceID int64) ([]*domain.Payment, error)
	TransitionFromPendingFn   func(ctx context.Context, tx pgx.Tx, id string, target domain.PaymentStatus,
		transactionID *string, paidAt *time.Time, gatewayResponse []byte) (bool, error)
}

func (m *MockPaymentRepository) Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	return m.CreateFn(ctx, tx, payment)
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	return m.FindByIDFn(ctx, id)
}

func (m *MockPaymentRepository) FindByExternalReference(ctx context.Context, ref string) (*domain.Payment, error) {
	return m.FindByExternalReferenceFn(ctx, ref)
}

func (m *MockPaymentRepository) FindByInvoiceID(ctx context.Context, invoiceID int64) ([]*domain.Payment, error) {
	return m.FindByInvoiceIDFn(ctx, invoiceID)
}

func (m *MockPaymentRepository) TransitionFromPending(ctx context.Context, tx pgx.Tx, id string, target domain.PaymentStatus,
	transactionID *string, paidAt *time.Time, gatewayResponse []byte) (bool, error) {
	return m.TransitionFromPendingFn(ctx, tx, id, target, transactionID, paidAt, gatewayResponse)
}

type MockNotifier struct {
	PaymentSucceededFn func(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment) error
	Calls              int
}

func (m *MockNotifier) PaymentSucceeded(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment) error {
	m.Calls++
	if m.PaymentSucceededFn != nil {
		return m.PaymentSucceededFn(ctx, invoice, payment)
	}
	return nil
}

type MockGatewayAdapter struct {
	ProviderValue    domain.Provider
	CreateRequestFn  func(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment, client application.ClientContext) (*application.CreateRequestResult, error)
	VerifyCallbackFn func(ctx context.Context, cb application.Callback) domain.PaymentOutcome
	QueryStatusFn    func(ctx context.Context, externalReference string) (domain.PaymentOutcome, error)
}

func (m *MockGatewayAdapter) Provider() domain.Provider {
	return m.ProviderValue
}

func (m *MockGatewayAdapter) CreateRequest(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment, client application.ClientContext) (*application.CreateRequestResult, error) {
	return m.CreateRequestFn(ctx, invoice, payment, client)
}

func (m *MockGatewayAdapter) VerifyCallback(ctx context.Context, cb application.Callback) domain.PaymentOutcome {
	return m.VerifyCallbackFn(ctx, cb)
}

func (m *MockGatewayAdapter) QueryStatus(ctx context.Context, externalReference string) (domain.PaymentOutcome, error) {
	return m.QueryStatusFn(ctx, externalReference)
}

type MockAdapterResolver struct {
	GetFn func(provider domain.Provider) (application.GatewayAdapter, error)
}

func (m *MockAdapterResolver) Get(provider domain.Provider) (application.GatewayAdapter, error) {
	return m.GetFn(provider)
}
