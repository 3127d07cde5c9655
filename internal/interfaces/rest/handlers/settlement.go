package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/interfaces/rest"
)

type recordSettlementRequest struct {
	Provider string `json:"provider"`
}

// RecordSettlement registers a manager-confirmed offline payment.
func (h *Handlers) RecordSettlement(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError("invoice id must be numeric"), h.logger)
		return
	}

	var req recordSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError("invalid request body"), h.logger)
		return
	}

	payment, err := h.offline.RecordSettlement(r.Context(), invoiceID, req.Provider, r.Header.Get(PrincipalHeader))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, toStatusResponse(payment))
}
