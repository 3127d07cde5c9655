package handlers

import (
	"net/http"
	"net/url"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/domain"
	"github.com/hoangtle/renthub-settlement/internal/interfaces/rest"
)

// BankRedirectCallback receives the browser redirect coming back from the
// hosted payment page. Whatever happens, the tenant ends up on the frontend
// result page; the query string tells that page what to render.
func (h *Handlers) BankRedirectCallback(w http.ResponseWriter, r *http.Request) {
	adapter, err := h.adapters.Get(domain.ProviderBankRedirect)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	outcome := adapter.VerifyCallback(r.Context(), application.Callback{Query: r.URL.Query()})

	if outcome.FailureReason == domain.ReasonSignatureInvalid || outcome.FailureReason == domain.ReasonMalformedCallback {
		h.redirectToResult(w, r, url.Values{"error": {"invalid_signature"}})
		return
	}

	payment, err := h.reconciler.Apply(r.Context(), outcome)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
			h.redirectToResult(w, r, url.Values{"error": {"payment_not_found"}})
			return
		}
		h.logger.Error("callback reconciliation failed", "error", err)
		h.redirectToResult(w, r, url.Values{"error": {"internal"}})
		return
	}

	params := url.Values{
		"ref":    {payment.ExternalReference},
		"status": {string(payment.Status)},
	}
	if payment.Status == domain.PaymentSuccess {
		params.Set("success", "true")
	}
	h.redirectToResult(w, r, params)
}

func (h *Handlers) redirectToResult(w http.ResponseWriter, r *http.Request, params url.Values) {
	http.Redirect(w, r, h.resultURL+"?"+params.Encode(), http.StatusFound)
}
