package handlers

import (
	"net/http"

	"github.com/hoangtle/renthub-settlement/internal/interfaces/rest"
)

type overdueCheckResponse struct {
	SweptCount int64 `json:"sweptCount"`
}

// OverdueCheck triggers one sweep on demand, outside the worker schedule.
func (h *Handlers) OverdueCheck(w http.ResponseWriter, r *http.Request) {
	swept, err := h.overdue.SweepOnce(r.Context())
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, overdueCheckResponse{SweptCount: swept})
}
