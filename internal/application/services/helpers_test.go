package services

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hoangtle/renthub-settlement/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unpaidInvoice(t *testing.T) *domain.Invoice {
	t.Helper()

	invoice, err := domain.NewInvoice(7, 1, 2024, 2_500_000, 350_000, 80_000, 50_000, 20_000,
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	invoice.ID = 42
	return invoice
}

func pendingPayment(t *testing.T, invoice *domain.Invoice, provider domain.Provider) *domain.Payment {
	t.Helper()

	payment, err := domain.NewPayment("7f3a2b1c-0000-4000-8000-000000000000", invoice, provider, "tenant-9")
	require.NoError(t, err)
	return payment
}
