// Package qrpay implements the dynamic-QR gateway. The provider pushes
// unauthenticated status callbacks, so the only trusted source of truth is
// an active status poll under a fresh OAuth token.
package qrpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/config"
	"github.com/hoangtle/renthub-settlement/internal/domain"
)

const (
	statusPaid      = "PAID"
	statusFailed    = "FAILED"
	statusCancelled = "CANCELLED"
)

type Adapter struct {
	cfg        config.QRPayConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg config.QRPayConfig, logger *slog.Logger) *Adapter {
	timeout := cfg.ConnTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Adapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("adapter", "qr_pay"),
	}
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderQRCode
}

type tokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// fetchToken obtains a bearer token for exactly one API call. Tokens are
// never cached: a stale token mid-settlement is worse than the extra round
// trip.
func (a *Adapter) fetchToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(tokenRequest{ClientID: a.cfg.ClientID, ClientSecret: a.cfg.ClientSecret})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", domain.NewUpstreamUnavailableError(string(a.Provider()), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", domain.NewUpstreamUnavailableError(string(a.Provider()),
			fmt.Errorf("token endpoint returned status %d", resp.StatusCode))
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", domain.NewUpstreamUnavailableError(string(a.Provider()), fmt.Errorf("decode token response: %w", err))
	}
	if parsed.AccessToken == "" {
		return "", domain.NewUpstreamUnavailableError(string(a.Provider()), fmt.Errorf("token endpoint returned an empty token"))
	}
	return parsed.AccessToken, nil
}

type createQRRequest struct {
	ReferenceID string `json:"referenceId"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type createQRResponse struct {
	OrderID string `json:"orderId"`
	QRData  string `json:"qrData"`
}

func (a *Adapter) CreateRequest(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment, client application.ClientContext) (*application.CreateRequestResult, error) {
	if a.cfg.ClientID == "" || a.cfg.ClientSecret == "" || a.cfg.BaseURL == "" {
		return nil, domain.NewConfigurationError(string(a.Provider()), "client id, client secret and base URL are required")
	}

	token, err := a.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(createQRRequest{
		ReferenceID: payment.ExternalReference,
		Amount:      payment.Amount,
		Description: fmt.Sprintf("Hoa don %d", invoice.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal QR request: %w", err)
	}

	var parsed createQRResponse
	if err := a.doAuthorized(ctx, http.MethodPost, "/v1/qr", token, body, &parsed); err != nil {
		return nil, err
	}
	if parsed.QRData == "" {
		return nil, domain.NewUpstreamUnavailableError(string(a.Provider()), fmt.Errorf("provider returned no QR data"))
	}

	return &application.CreateRequestResult{
		ExternalReference: payment.ExternalReference,
		QRCode:            parsed.QRData,
	}, nil
}

// VerifyCallback never trusts the push channel: the provider's callbacks
// carry no verifiable signature, so every one is rejected and settlement
// waits for a status poll.
func (a *Adapter) VerifyCallback(ctx context.Context, cb application.Callback) domain.PaymentOutcome {
	a.logger.Warn("rejected push callback from unverifiable channel")
	return domain.PaymentOutcome{
		Status:        domain.OutcomeFailed,
		FailureReason: domain.ReasonUntrustedCallback,
		RawPayload:    cb.Body,
	}
}

type statusResponse struct {
	ReferenceID   string `json:"referenceId"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transactionId"`
	PaidAt        string `json:"paidAt"`
}

func (a *Adapter) QueryStatus(ctx context.Context, externalReference string) (domain.PaymentOutcome, error) {
	if a.cfg.ClientID == "" || a.cfg.ClientSecret == "" || a.cfg.BaseURL == "" {
		return domain.PaymentOutcome{}, domain.NewConfigurationError(string(a.Provider()), "client id, client secret and base URL are required")
	}

	token, err := a.fetchToken(ctx)
	if err != nil {
		return domain.PaymentOutcome{}, err
	}

	var parsed statusResponse
	if err := a.doAuthorized(ctx, http.MethodGet, "/v1/qr/"+externalReference, token, nil, &parsed); err != nil {
		return domain.PaymentOutcome{}, err
	}

	raw, _ := json.Marshal(parsed)
	outcome := domain.PaymentOutcome{
		ExternalReference: externalReference,
		Amount:            parsed.Amount,
		TransactionID:     parsed.TransactionID,
		RawPayload:        raw,
	}
	if ts, err := time.Parse(time.RFC3339, parsed.PaidAt); err == nil {
		outcome.ProviderTimestamp = ts
	}

	switch parsed.Status {
	case statusPaid:
		outcome.Status = domain.OutcomeSuccess
	case statusFailed:
		outcome.Status = domain.OutcomeFailed
		outcome.FailureReason = domain.ReasonProviderDeclined
	case statusCancelled:
		outcome.Status = domain.OutcomeCancelled
		outcome.FailureReason = domain.ReasonCustomerCancelled
	default:
		outcome.Status = domain.OutcomeIndeterminate
	}

	return outcome, nil
}

func (a *Adapter) doAuthorized(ctx context.Context, method, path, token string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return domain.NewUpstreamUnavailableError(string(a.Provider()), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewUpstreamUnavailableError(string(a.Provider()),
			fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.NewUpstreamUnavailableError(string(a.Provider()), fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}
