// Package domain encodes the invoice and payment entities and their state machines.
package domain

import (
	"errors"
	"time"
)

// InvoiceStatus represents the current state of an invoice in its lifecycle
type InvoiceStatus string

const (
	InvoiceUnpaid  InvoiceStatus = "UNPAID"
	InvoiceOverdue InvoiceStatus = "OVERDUE"
	InvoicePaid    InvoiceStatus = "PAID"
)

// Invoice is the unit of billing truth for one contract and period.
// TotalAmount is computed once at creation and never recomputed.
type Invoice struct {
	ID         int64
	ContractID int64
	Month      int
	Year       int

	RoomAmount          int64
	ElectricityAmount   int64
	WaterAmount         int64
	ServiceAmount       int64
	CommonServiceAmount int64
	TotalAmount         int64

	Status         InvoiceStatus
	PaymentDueDate time.Time
	PaidAt         *time.Time
	CreatedAt      time.Time
}

func NewInvoice(
	contractID int64,
	month, year int,
	room, electricity, water, service, commonService int64,
	paymentDueDate time.Time,
) (*Invoice, error) {
	if contractID == 0 {
		return nil, errors.New("contract ID is required")
	}
	if month < 1 || month > 12 {
		return nil, errors.New("month must be between 1 and 12")
	}
	if year < 2000 {
		return nil, errors.New("year is out of range")
	}
	for _, amount := range []int64{room, electricity, water, service, commonService} {
		if amount < 0 {
			return nil, errors.New("amount cannot be negative")
		}
	}
	if paymentDueDate.IsZero() {
		return nil, errors.New("payment due date is required")
	}

	return &Invoice{
		ContractID:          contractID,
		Month:               month,
		Year:                year,
		RoomAmount:          room,
		ElectricityAmount:   electricity,
		WaterAmount:         water,
		ServiceAmount:       service,
		CommonServiceAmount: commonService,
		TotalAmount:         room + electricity + water + service + commonService,
		Status:              InvoiceUnpaid,
		PaymentDueDate:      paymentDueDate,
		CreatedAt:           time.Now(),
	}, nil
}

// MarkPaid moves the invoice into PAID. Already-paid invoices are left
// untouched: PAID is terminal and PaidAt is set exactly once.
func (i *Invoice) MarkPaid(paidAt time.Time) {
	if i.Status == InvoicePaid {
		return
	}
	i.Status = InvoicePaid
	i.PaidAt = &paidAt
}

// MarkOverdue is only valid from UNPAID; any other state is a no-op.
// It reports whether the transition happened.
func (i *Invoice) MarkOverdue() bool {
	if i.Status != InvoiceUnpaid {
		return false
	}
	i.Status = InvoiceOverdue
	return true
}

func (i *Invoice) IsPaid() bool {
	return i.Status == InvoicePaid
}

// ReconstituteInvoice - special constructor for loading from DB
func ReconstituteInvoice(
	id, contractID int64,
	month, year int,
	room, electricity, water, service, commonService, total int64,
	status InvoiceStatus,
	paymentDueDate time.Time,
	paidAt *time.Time,
	createdAt time.Time,
) *Invoice {
	return &Invoice{
		ID:                  id,
		ContractID:          contractID,
		Month:               month,
		Year:                year,
		RoomAmount:          room,
		ElectricityAmount:   electricity,
		WaterAmount:         water,
		ServiceAmount:       service,
		CommonServiceAmount: commonService,
		TotalAmount:         total,
		Status:              status,
		PaymentDueDate:      paymentDueDate,
		PaidAt:              paidAt,
		CreatedAt:           createdAt,
	}
}
