package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hoangtle/renthub-settlement/internal/domain"
	"github.com/jackc/pgx/v5"
)

var ErrPaymentNotFound = errors.New("payment not found")

const paymentColumns = `id, invoice_id, provider, amount, status,
	       external_reference, transaction_id, gateway_response, initiated_by, created_at, paid_at`

type PaymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) executor(tx pgx.Tx) Executor {
	if tx != nil {
		return tx
	}
	return r.db.Pool
}

func (r *PaymentRepository) Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, invoice_id, provider, amount, status,
			external_reference, transaction_id, gateway_response, initiated_by, created_at, paid_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.executor(tx).Exec(ctx, query,
		payment.ID,
		payment.InvoiceID,
		string(payment.Provider),
		payment.Amount,
		string(payment.Status),
		payment.ExternalReference,
		payment.TransactionID,
		payment.GatewayResponse,
		payment.InitiatedBy,
		payment.CreatedAt,
		payment.PaidAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	row := r.db.Pool.QueryRow(ctx, query, id)
	return scanPayment(row)
}

// FindByExternalReference resolves the correlation identifier minted at
// request creation; every inbound callback, webhook and poll goes through it.
func (r *PaymentRepository) FindByExternalReference(ctx context.Context, ref string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE external_reference = $1`

	row := r.db.Pool.QueryRow(ctx, query, ref)
	return scanPayment(row)
}

func (r *PaymentRepository) FindByInvoiceID(ctx context.Context, invoiceID int64) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_id = $1 ORDER BY created_at`

	rows, err := r.db.Pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("query payments by invoice_id: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Payment, error) {
		var m PaymentModel
		err := row.Scan(
			&m.ID, &m.InvoiceID, &m.Provider, &m.Amount, &m.Status,
			&m.ExternalReference, &m.TransactionID, &m.GatewayResponse, &m.InitiatedBy, &m.CreatedAt, &m.PaidAt,
		)
		return toPaymentDomain(m), err
	})

	if err != nil {
		return nil, fmt.Errorf("scan payments by invoice_id: %w", err)
	}
	return results, nil
}

// TransitionFromPending applies a compare-and-swap on the payment status.
// Only a row still in PENDING is updated, so two concurrent reconciler
// invocations cannot both win; it reports whether this caller did.
func (r *PaymentRepository) TransitionFromPending(
	ctx context.Context,
	tx pgx.Tx,
	id string,
	target domain.PaymentStatus,
	transactionID *string,
	paidAt *time.Time,
	gatewayResponse []byte,
) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1,
		    transaction_id = COALESCE($2, transaction_id),
		    paid_at = $3,
		    gateway_response = COALESCE($4, gateway_response)
		WHERE id = $5 AND status = $6
	`

	tag, err := r.executor(tx).Exec(ctx, query,
		string(target),
		transactionID,
		paidAt,
		gatewayResponse,
		id,
		string(domain.PaymentPending),
	)

	if err != nil {
		return false, fmt.Errorf("failed to transition payment: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var m PaymentModel
	err := row.Scan(
		&m.ID, &m.InvoiceID, &m.Provider, &m.Amount, &m.Status,
		&m.ExternalReference, &m.TransactionID, &m.GatewayResponse, &m.InitiatedBy, &m.CreatedAt, &m.PaidAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return toPaymentDomain(m), nil
}
