// Package bankredirect implements the hosted-page redirect gateway. The
// provider signs every query string, outbound and inbound, with HMAC-SHA512
// over a canonical parameter encoding.
package bankredirect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/config"
	"github.com/hoangtle/renthub-settlement/internal/domain"
)

const (
	timestampLayout = "20060102150405"

	codeSuccess   = "00"
	codeCancelled = "24"
	codeDeclined  = "02"
)

type Adapter struct {
	cfg        config.BankRedirectConfig
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func New(cfg config.BankRedirectConfig, logger *slog.Logger) *Adapter {
	timeout := cfg.ConnTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Adapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("adapter", "bank_redirect"),
		now:        time.Now,
	}
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderBankRedirect
}

// CreateRequest builds the signed redirect URL the tenant's browser is sent
// to. The provider expects amounts in minor units, hence the x100.
func (a *Adapter) CreateRequest(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment, client application.ClientContext) (*application.CreateRequestResult, error) {
	if a.cfg.MerchantCode == "" || a.cfg.Secret == "" || a.cfg.PayURL == "" {
		return nil, domain.NewConfigurationError(string(a.Provider()), "merchant code, secret and pay URL are required")
	}

	returnURL := client.ReturnURL
	if returnURL == "" {
		returnURL = a.cfg.ReturnURL
	}

	params := url.Values{}
	params.Set("pay_Version", "2.1.0")
	params.Set("pay_Command", "pay")
	params.Set("pay_TmnCode", a.cfg.MerchantCode)
	params.Set("pay_Amount", strconv.FormatInt(payment.Amount*100, 10))
	params.Set("pay_CurrCode", "VND")
	params.Set("pay_TxnRef", payment.ExternalReference)
	params.Set("pay_OrderInfo", fmt.Sprintf("Thanh toan hoa don %d", invoice.ID))
	params.Set("pay_CreateDate", a.now().Format(timestampLayout))
	params.Set("pay_IpAddr", client.IPAddress)
	params.Set("pay_ReturnUrl", returnURL)
	params.Set(ParamSecureHash, Sign(params, a.cfg.Secret))

	return &application.CreateRequestResult{
		ExternalReference: payment.ExternalReference,
		RedirectURL:       a.cfg.PayURL + "?" + params.Encode(),
	}, nil
}

// VerifyCallback authenticates the return-redirect query string. A bad
// signature yields a failed outcome with no external reference, so nothing
// downstream can transition on attacker-supplied data.
func (a *Adapter) VerifyCallback(ctx context.Context, cb application.Callback) domain.PaymentOutcome {
	raw := []byte(cb.Query.Encode())

	if !VerifySignature(cb.Query, a.cfg.Secret) {
		a.logger.Warn("rejected callback with invalid signature", "txn_ref", cb.Query.Get("pay_TxnRef"))
		return domain.PaymentOutcome{
			Status:        domain.OutcomeFailed,
			FailureReason: domain.ReasonSignatureInvalid,
			RawPayload:    raw,
		}
	}

	ref := cb.Query.Get("pay_TxnRef")
	if ref == "" {
		return domain.PaymentOutcome{
			Status:        domain.OutcomeFailed,
			FailureReason: domain.ReasonMalformedCallback,
			RawPayload:    raw,
		}
	}

	outcome := domain.PaymentOutcome{
		ExternalReference: ref,
		TransactionID:     cb.Query.Get("pay_TransactionNo"),
		RawPayload:        raw,
	}

	if minor, err := strconv.ParseInt(cb.Query.Get("pay_Amount"), 10, 64); err == nil {
		outcome.Amount = minor / 100
	}
	if ts, err := time.ParseInLocation(timestampLayout, cb.Query.Get("pay_PayDate"), time.Local); err == nil {
		outcome.ProviderTimestamp = ts
	}

	switch cb.Query.Get("pay_ResponseCode") {
	case codeSuccess:
		outcome.Status = domain.OutcomeSuccess
	case codeCancelled:
		outcome.Status = domain.OutcomeCancelled
		outcome.FailureReason = domain.ReasonCustomerCancelled
	default:
		outcome.Status = domain.OutcomeFailed
		outcome.FailureReason = domain.ReasonProviderDeclined
	}

	return outcome
}

type queryRequest struct {
	TmnCode     string `json:"tmnCode"`
	TxnRef      string `json:"txnRef"`
	RequestDate string `json:"requestDate"`
}

type queryResponse struct {
	ResponseCode      string `json:"responseCode"`
	Message           string `json:"message"`
	TransactionStatus string `json:"transactionStatus"`
	Amount            int64  `json:"amount"`
	TransactionNo     string `json:"transactionNo"`
	PayDate           string `json:"payDate"`
}

// QueryStatus polls the provider's transaction query endpoint. We initiated
// this request over TLS, so the response is trusted without a signature.
func (a *Adapter) QueryStatus(ctx context.Context, externalReference string) (domain.PaymentOutcome, error) {
	if a.cfg.MerchantCode == "" || a.cfg.QueryURL == "" {
		return domain.PaymentOutcome{}, domain.NewConfigurationError(string(a.Provider()), "merchant code and query URL are required")
	}

	body, err := json.Marshal(queryRequest{
		TmnCode:     a.cfg.MerchantCode,
		TxnRef:      externalReference,
		RequestDate: a.now().Format(timestampLayout),
	})
	if err != nil {
		return domain.PaymentOutcome{}, fmt.Errorf("marshal query request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.QueryURL, bytes.NewReader(body))
	if err != nil {
		return domain.PaymentOutcome{}, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return domain.PaymentOutcome{}, domain.NewUpstreamUnavailableError(string(a.Provider()), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PaymentOutcome{}, domain.NewUpstreamUnavailableError(string(a.Provider()),
			fmt.Errorf("query endpoint returned status %d", resp.StatusCode))
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.PaymentOutcome{}, domain.NewUpstreamUnavailableError(string(a.Provider()),
			fmt.Errorf("decode query response: %w", err))
	}

	raw, _ := json.Marshal(parsed)
	outcome := domain.PaymentOutcome{
		ExternalReference: externalReference,
		Amount:            parsed.Amount / 100,
		TransactionID:     parsed.TransactionNo,
		RawPayload:        raw,
	}
	if ts, err := time.ParseInLocation(timestampLayout, parsed.PayDate, time.Local); err == nil {
		outcome.ProviderTimestamp = ts
	}

	switch parsed.TransactionStatus {
	case codeSuccess:
		outcome.Status = domain.OutcomeSuccess
	case codeCancelled:
		outcome.Status = domain.OutcomeCancelled
		outcome.FailureReason = domain.ReasonCustomerCancelled
	case codeDeclined:
		outcome.Status = domain.OutcomeFailed
		outcome.FailureReason = domain.ReasonProviderDeclined
	default:
		// Pending, processing and anything unrecognized: no state change.
		outcome.Status = domain.OutcomeIndeterminate
	}

	return outcome, nil
}
