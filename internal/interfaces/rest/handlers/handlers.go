// Package handlers wires the settlement services onto the HTTP surface.
package handlers

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/application/services"
)

// PrincipalHeader carries the acting user's identity, set by the upstream
// API gateway after authentication. Handlers never infer it.
const PrincipalHeader = "X-Principal-ID"

type Handlers struct {
	checkout   *services.CheckoutService
	status     *services.StatusService
	offline    *services.OfflineSettlementService
	overdue    *services.OverdueService
	reconciler *services.Reconciler
	adapters   application.AdapterResolver
	resultURL  string
	logger     *slog.Logger
}

func NewHandlers(
	checkout *services.CheckoutService,
	status *services.StatusService,
	offline *services.OfflineSettlementService,
	overdue *services.OverdueService,
	reconciler *services.Reconciler,
	adapters application.AdapterResolver,
	resultURL string,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		checkout:   checkout,
		status:     status,
		offline:    offline,
		overdue:    overdue,
		reconciler: reconciler,
		adapters:   adapters,
		resultURL:  resultURL,
		logger:     logger,
	}
}

// Routes registers every endpoint on the mux.
func (h *Handlers) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/invoices/{id}/payments", h.CreatePayment)
	mux.HandleFunc("GET /api/v1/payments/bankredirect/callback", h.BankRedirectCallback)
	mux.HandleFunc("POST /api/v1/payments/checkoutlink/webhook", h.CheckoutLinkWebhook)
	mux.HandleFunc("GET /api/v1/payments/{ref}/status", h.PaymentStatus)
	mux.HandleFunc("POST /api/v1/invoices/{id}/settlements", h.RecordSettlement)
	mux.HandleFunc("POST /api/v1/invoices/overdue-check", h.OverdueCheck)
	mux.HandleFunc("GET /healthz", h.Health)
}

// clientIP prefers the gateway-set forwarding header over the socket peer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
