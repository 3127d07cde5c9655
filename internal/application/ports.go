package application

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hoangtle/renthub-settlement/internal/domain"
)

// ClientContext carries request-scoped data a provider needs when a payment
// request is created. The principal is always supplied explicitly by the
// caller, never inferred from role tables.
type ClientContext struct {
	PrincipalID string
	IPAddress   string
	ReturnURL   string
}

// Callback is the raw material of an inbound gateway notification: a signed
// query string for redirect providers, a signed body for push providers.
type Callback struct {
	Query  url.Values
	Body   []byte
	Header http.Header
}

// CreateRequestResult is the presentation payload handed back to the client:
// exactly one of the fields besides ExternalReference is meaningful per
// provider.
type CreateRequestResult struct {
	ExternalReference string
	RedirectURL       string
	CheckoutURL       string
	QRCode            string
	QRImagePNG        []byte
}

// GatewayAdapter is the port every payment provider implements.
//
// VerifyCallback fails closed: verification failures of any kind are
// converted into a negative PaymentOutcome, never an error or a panic, so
// the reconciler stays the single decision point.
type GatewayAdapter interface {
	Provider() domain.Provider

	// CreateRequest builds the provider-specific request for a pending
	// payment. Fails with a ConfigurationError when credentials are absent.
	CreateRequest(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment, client ClientContext) (*CreateRequestResult, error)

	// VerifyCallback authenticates an inbound callback or webhook and
	// extracts the normalized outcome.
	VerifyCallback(ctx context.Context, cb Callback) domain.PaymentOutcome

	// QueryStatus actively polls the provider. Provider states this system
	// does not model map to an indeterminate outcome, not a failure.
	QueryStatus(ctx context.Context, externalReference string) (domain.PaymentOutcome, error)
}

// Notifier is the port for the external notification collaborator.
// Implementations are fire-and-forget; settlement never depends on them.
type Notifier interface {
	PaymentSucceeded(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment) error
}
