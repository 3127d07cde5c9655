package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider identifies the settlement channel for a payment.
type Provider string

const (
	ProviderBankRedirect Provider = "BANK_REDIRECT"
	ProviderCheckoutLink Provider = "CHECKOUT_LINK"
	ProviderQRCode       Provider = "QR_CODE"
	ProviderCash         Provider = "CASH"
	ProviderBankTransfer Provider = "BANK_TRANSFER"
)

// ParseProvider normalizes a caller-supplied provider name.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToUpper(strings.TrimSpace(s))) {
	case ProviderBankRedirect:
		return ProviderBankRedirect, nil
	case ProviderCheckoutLink:
		return ProviderCheckoutLink, nil
	case ProviderQRCode:
		return ProviderQRCode, nil
	case ProviderCash:
		return ProviderCash, nil
	case ProviderBankTransfer:
		return ProviderBankTransfer, nil
	}
	return "", fmt.Errorf("unknown payment provider %q", s)
}

// IsOffline reports whether the provider settles without a gateway.
func (p Provider) IsOffline() bool {
	return p == ProviderCash || p == ProviderBankTransfer
}

// PaymentStatus represents the current state of a payment attempt
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSuccess   PaymentStatus = "SUCCESS"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// Payment is one attempt to settle one invoice through one provider.
// Amount is copied from the invoice at creation and never changes.
type Payment struct {
	ID                string
	InvoiceID         int64
	Provider          Provider
	Amount            int64
	Status            PaymentStatus
	ExternalReference string
	TransactionID     *string
	GatewayResponse   []byte
	InitiatedBy       string
	CreatedAt         time.Time
	PaidAt            *time.Time
}

func NewPayment(id string, invoice *Invoice, provider Provider, initiatedBy string) (*Payment, error) {
	if id == "" {
		return nil, errors.New("payment ID is required")
	}
	if invoice == nil || invoice.ID == 0 {
		return nil, errors.New("invoice is required")
	}
	if initiatedBy == "" {
		return nil, errors.New("initiating principal is required")
	}

	now := time.Now()
	return &Payment{
		ID:                id,
		InvoiceID:         invoice.ID,
		Provider:          provider,
		Amount:            invoice.TotalAmount,
		Status:            PaymentPending,
		ExternalReference: NewExternalReference(invoice.ID, id, now),
		InitiatedBy:       initiatedBy,
		CreatedAt:         now,
	}, nil
}

// NewExternalReference mints the correlation identifier embedded in outgoing
// payment requests. It carries the invoice id, a payment id fragment and a
// timestamp so correlation never depends on provider-assigned identifiers.
func NewExternalReference(invoiceID int64, paymentID string, now time.Time) string {
	fragment := paymentID
	if len(fragment) > 8 {
		fragment = fragment[:8]
	}
	return fmt.Sprintf("%d-%s-%d", invoiceID, fragment, now.Unix())
}

// Succeed transitions the payment out of PENDING into SUCCESS and records
// the provider correlation details.
func (p *Payment) Succeed(transactionID string, paidAt time.Time, rawResponse []byte) error {
	if err := p.ensurePending(PaymentSuccess); err != nil {
		return err
	}
	p.Status = PaymentSuccess
	if transactionID != "" {
		p.TransactionID = &transactionID
	}
	p.PaidAt = &paidAt
	p.GatewayResponse = rawResponse
	return nil
}

func (p *Payment) Fail(rawResponse []byte) error {
	if err := p.ensurePending(PaymentFailed); err != nil {
		return err
	}
	p.Status = PaymentFailed
	p.GatewayResponse = rawResponse
	return nil
}

func (p *Payment) Cancel(rawResponse []byte) error {
	if err := p.ensurePending(PaymentCancelled); err != nil {
		return err
	}
	p.Status = PaymentCancelled
	p.GatewayResponse = rawResponse
	return nil
}

// Payments transition at most once out of PENDING; every other state is terminal.
func (p *Payment) ensurePending(target PaymentStatus) error {
	if p.Status != PaymentPending {
		return NewInvalidTransitionError(p.Status, target)
	}
	return nil
}

func (p *Payment) IsTerminal() bool {
	return p.Status != PaymentPending
}

// ReconstitutePayment - special constructor for loading from DB
func ReconstitutePayment(
	id string,
	invoiceID int64,
	provider Provider,
	amount int64,
	status PaymentStatus,
	externalReference string,
	transactionID *string,
	gatewayResponse []byte,
	initiatedBy string,
	createdAt time.Time,
	paidAt *time.Time,
) *Payment {
	return &Payment{
		ID:                id,
		InvoiceID:         invoiceID,
		Provider:          provider,
		Amount:            amount,
		Status:            status,
		ExternalReference: externalReference,
		TransactionID:     transactionID,
		GatewayResponse:   gatewayResponse,
		InitiatedBy:       initiatedBy,
		CreatedAt:         createdAt,
		PaidAt:            paidAt,
	}
}
