package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hoangtle/renthub-settlement/internal/domain"
	"github.com/hoangtle/renthub-settlement/internal/infrastructure/persistence/postgres"
)

// CreateInvoice persists a fresh UNPAID invoice with realistic component
// amounts summing to 3,000,000.
func CreateInvoice(t *testing.T, repo *postgres.InvoiceRepository, dueDate time.Time) *domain.Invoice {
	t.Helper()

	invoice, err := domain.NewInvoice(7, 1, 2024, 2_500_000, 350_000, 80_000, 50_000, 20_000, dueDate)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), nil, invoice))
	return invoice
}

// CreatePendingPayment persists a PENDING payment attempt for the invoice.
func CreatePendingPayment(t *testing.T, repo *postgres.PaymentRepository, invoice *domain.Invoice, provider domain.Provider) *domain.Payment {
	t.Helper()

	payment, err := domain.NewPayment(uuid.NewString(), invoice, provider, "tenant-9")
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), nil, payment))
	return payment
}
