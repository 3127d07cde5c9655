package handlers

import (
	"net/http"
	"time"

	"github.com/hoangtle/renthub-settlement/internal/domain"
	"github.com/hoangtle/renthub-settlement/internal/interfaces/rest"
)

type paymentStatusResponse struct {
	ExternalReference string     `json:"externalReference"`
	InvoiceID         int64      `json:"invoiceId"`
	Provider          string     `json:"provider"`
	Status            string     `json:"status"`
	Amount            int64      `json:"amount"`
	TransactionID     string     `json:"transactionId,omitempty"`
	PaidAt            *time.Time `json:"paidAt,omitempty"`
}

func toStatusResponse(p *domain.Payment) paymentStatusResponse {
	resp := paymentStatusResponse{
		ExternalReference: p.ExternalReference,
		InvoiceID:         p.InvoiceID,
		Provider:          string(p.Provider),
		Status:            string(p.Status),
		Amount:            p.Amount,
		PaidAt:            p.PaidAt,
	}
	if p.TransactionID != nil {
		resp.TransactionID = *p.TransactionID
	}
	return resp
}

// PaymentStatus reports the payment behind an external reference, polling
// the provider first when it is still pending.
func (h *Handlers) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	payment, err := h.status.GetStatus(r.Context(), r.PathValue("ref"))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, toStatusResponse(payment))
}
