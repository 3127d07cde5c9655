package postgres

import (
	"time"
)

type InvoiceModel struct {
	ID                  int64
	ContractID          int64
	Month               int
	Year                int
	RoomAmount          int64
	ElectricityAmount   int64
	WaterAmount         int64
	ServiceAmount       int64
	CommonServiceAmount int64
	TotalAmount         int64
	Status              string
	PaymentDueDate      time.Time
	PaidAt              *time.Time
	CreatedAt           time.Time
}

type PaymentModel struct {
	ID                string
	InvoiceID         int64
	Provider          string
	Amount            int64
	Status            string
	ExternalReference string
	TransactionID     *string
	GatewayResponse   []byte
	InitiatedBy       string
	CreatedAt         time.Time
	PaidAt            *time.Time
}
