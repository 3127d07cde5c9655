package application

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hoangtle/renthub-settlement/internal/domain"
)

// TxRunner runs a function inside a database transaction. Passing a nil tx
// to repository methods executes against the pool instead.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type InvoiceRepository interface {
	Create(ctx context.Context, tx pgx.Tx, invoice *domain.Invoice) error
	FindByID(ctx context.Context, id int64) (*domain.Invoice, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Invoice, error)
	MarkPaid(ctx context.Context, tx pgx.Tx, id int64, paidAt time.Time) error
	MarkOverdue(ctx context.Context, id int64) (bool, error)
	SweepOverdue(ctx context.Context, now time.Time) (int64, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	FindByID(ctx context.Context, id string) (*domain.Payment, error)
	FindByExternalReference(ctx context.Context, ref string) (*domain.Payment, error)
	FindByInvoiceID(ctx context.Context, invoiceID int64) ([]*domain.Payment, error)
	TransitionFromPending(ctx context.Context, tx pgx.Tx, id string, target domain.PaymentStatus,
		transactionID *string, paidAt *time.Time, gatewayResponse []byte) (bool, error)
}

// AdapterResolver resolves the gateway adapter for an online provider.
type AdapterResolver interface {
	Get(provider domain.Provider) (GatewayAdapter, error)
}
