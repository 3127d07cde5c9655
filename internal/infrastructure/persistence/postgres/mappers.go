package postgres

import (
	"github.com/hoangtle/renthub-settlement/internal/domain"
)

func toInvoiceDomain(m InvoiceModel) *domain.Invoice {
	return domain.ReconstituteInvoice(
		m.ID,
		m.ContractID,
		m.Month,
		m.Year,
		m.RoomAmount,
		m.ElectricityAmount,
		m.WaterAmount,
		m.ServiceAmount,
		m.CommonServiceAmount,
		m.TotalAmount,
		domain.InvoiceStatus(m.Status),
		m.PaymentDueDate,
		m.PaidAt,
		m.CreatedAt,
	)
}

func toPaymentDomain(m PaymentModel) *domain.Payment {
	return domain.ReconstitutePayment(
		m.ID,
		m.InvoiceID,
		domain.Provider(m.Provider),
		m.Amount,
		domain.PaymentStatus(m.Status),
		m.ExternalReference,
		m.TransactionID,
		m.GatewayResponse,
		m.InitiatedBy,
		m.CreatedAt,
		m.PaidAt,
	)
}
