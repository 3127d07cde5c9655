package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hoangtle/renthub-settlement/internal/domain"
	"github.com/jackc/pgx/v5"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

const invoiceColumns = `id, contract_id, month, year,
	       room_amount, electricity_amount, water_amount, service_amount, common_service_amount,
	       total_amount, status, payment_due_date, paid_at, created_at`

// InvoiceRepository is the only writer of invoices.status; all mutations go
// through conditional updates so concurrent callers cannot regress a state.
type InvoiceRepository struct {
	db *DB
}

func NewInvoiceRepository(db *DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) executor(tx pgx.Tx) Executor {
	if tx != nil {
		return tx
	}
	return r.db.Pool
}

func (r *InvoiceRepository) Create(ctx context.Context, tx pgx.Tx, invoice *domain.Invoice) error {
	query := `
		INSERT INTO invoices (
			contract_id, month, year,
			room_amount, electricity_amount, water_amount, service_amount, common_service_amount,
			total_amount, status, payment_due_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := r.executor(tx).QueryRow(ctx, query,
		invoice.ContractID,
		invoice.Month,
		invoice.Year,
		invoice.RoomAmount,
		invoice.ElectricityAmount,
		invoice.WaterAmount,
		invoice.ServiceAmount,
		invoice.CommonServiceAmount,
		invoice.TotalAmount,
		string(invoice.Status),
		invoice.PaymentDueDate,
		invoice.CreatedAt,
	).Scan(&invoice.ID)

	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

func (r *InvoiceRepository) FindByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	row := r.db.Pool.QueryRow(ctx, query, id)
	return scanInvoice(row)
}

// FindByIDForUpdate retrieves an invoice with a row-level lock.
func (r *InvoiceRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 FOR UPDATE`

	row := r.executor(tx).QueryRow(ctx, query, id)
	return scanInvoice(row)
}

// MarkPaid sets the invoice to PAID unless it already is. The guard makes the
// call idempotent and prevents any regression out of PAID: paid_at is written
// exactly once.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, tx pgx.Tx, id int64, paidAt time.Time) error {
	query := `
		UPDATE invoices
		SET status = $1, paid_at = $2
		WHERE id = $3 AND status <> $1
	`

	_, err := r.executor(tx).Exec(ctx, query, string(domain.InvoicePaid), paidAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}

	return nil
}

// MarkOverdue transitions a single invoice UNPAID -> OVERDUE. Any other
// current state is a no-op; it reports whether the transition happened.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE invoices
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	tag, err := r.db.Pool.Exec(ctx, query, string(domain.InvoiceOverdue), id, string(domain.InvoiceUnpaid))
	if err != nil {
		return false, fmt.Errorf("failed to mark invoice overdue: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SweepOverdue bulk-transitions every unpaid invoice whose due date has
// elapsed. Safe to run arbitrarily often: the status guard keeps it
// idempotent and it never touches PAID rows.
func (r *InvoiceRepository) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE invoices
		SET status = $1
		WHERE status = $2 AND payment_due_date < $3
	`

	tag, err := r.db.Pool.Exec(ctx, query, string(domain.InvoiceOverdue), string(domain.InvoiceUnpaid), now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep overdue invoices: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var m InvoiceModel
	err := row.Scan(
		&m.ID, &m.ContractID, &m.Month, &m.Year,
		&m.RoomAmount, &m.ElectricityAmount, &m.WaterAmount, &m.ServiceAmount, &m.CommonServiceAmount,
		&m.TotalAmount, &m.Status, &m.PaymentDueDate, &m.PaidAt, &m.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}
	return toInvoiceDomain(m), nil
}
