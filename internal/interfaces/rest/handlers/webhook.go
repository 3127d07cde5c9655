package handlers

import (
	"io"
	"net/http"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/domain"
	"github.com/hoangtle/renthub-settlement/internal/interfaces/rest"
)

const maxWebhookBody = 1 << 20

// CheckoutLinkWebhook receives server-to-server outcome notifications.
// It always answers 200 so the provider stops redelivering; rejected or
// unverifiable payloads are logged and dropped.
func (h *Handlers) CheckoutLinkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError("could not read webhook body"), h.logger)
		return
	}

	adapter, err := h.adapters.Get(domain.ProviderCheckoutLink)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	outcome := adapter.VerifyCallback(r.Context(), application.Callback{Body: body, Header: r.Header})

	switch outcome.FailureReason {
	case domain.ReasonSignatureInvalid, domain.ReasonMalformedCallback, domain.ReasonUntrustedCallback:
		h.logger.Warn("webhook dropped", "reason", outcome.FailureReason)
	default:
		if _, err := h.reconciler.Apply(r.Context(), outcome); err != nil {
			h.logger.Warn("webhook reconciliation failed", "error", err)
		}
	}

	rest.WriteJSON(w, http.StatusOK, nil)
}
