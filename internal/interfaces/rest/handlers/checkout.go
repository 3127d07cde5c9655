package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/interfaces/rest"
)

type createPaymentRequest struct {
	Provider  string `json:"provider"`
	ReturnURL string `json:"returnUrl,omitempty"`
}

type createPaymentResponse struct {
	ExternalReference string `json:"externalReference"`
	RedirectURL       string `json:"redirectUrl,omitempty"`
	CheckoutURL       string `json:"checkoutUrl,omitempty"`
	QRCode            string `json:"qrCode,omitempty"`
	QRImagePNG        []byte `json:"qrImagePng,omitempty"`
}

// CreatePayment starts an online payment attempt for an invoice.
func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError("invoice id must be numeric"), h.logger)
		return
	}

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError("invalid request body"), h.logger)
		return
	}

	client := application.ClientContext{
		PrincipalID: r.Header.Get(PrincipalHeader),
		IPAddress:   clientIP(r),
		ReturnURL:   req.ReturnURL,
	}

	result, err := h.checkout.CreatePaymentRequest(r.Context(), invoiceID, req.Provider, client)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, createPaymentResponse{
		ExternalReference: result.ExternalReference,
		RedirectURL:       result.RedirectURL,
		CheckoutURL:       result.CheckoutURL,
		QRCode:            result.QRCode,
		QRImagePNG:        result.QRImagePNG,
	})
}
