// Package checkoutlink implements the hosted checkout-page gateway. Outcomes
// arrive on a server-to-server webhook carrying an HMAC-SHA256 checksum over
// the data object.
package checkoutlink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/config"
	"github.com/hoangtle/renthub-settlement/internal/domain"
)

const (
	timestampLayout = "2006-01-02 15:04:05"

	codeSuccess = "00"

	statusPaid      = "PAID"
	statusCancelled = "CANCELLED"
	statusExpired   = "EXPIRED"

	qrImageSize = 256
)

type Adapter struct {
	cfg        config.CheckoutLinkConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg config.CheckoutLinkConfig, logger *slog.Logger) *Adapter {
	timeout := cfg.ConnTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Adapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("adapter", "checkout_link"),
	}
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderCheckoutLink
}

type createRequestBody struct {
	OrderCode   string `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
}

type createResponseData struct {
	PaymentLinkID string `json:"paymentLinkId"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
}

type apiEnvelope struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// CreateRequest registers a payment link with the provider. The request
// itself is signed over the five order fields so the provider can reject
// tampered submissions.
func (a *Adapter) CreateRequest(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment, client application.ClientContext) (*application.CreateRequestResult, error) {
	if a.cfg.ClientID == "" || a.cfg.APIKey == "" || a.cfg.ChecksumKey == "" || a.cfg.BaseURL == "" {
		return nil, domain.NewConfigurationError(string(a.Provider()), "client id, api key, checksum key and base URL are required")
	}

	returnURL := client.ReturnURL
	if returnURL == "" {
		returnURL = a.cfg.ReturnURL
	}

	body := createRequestBody{
		OrderCode:   payment.ExternalReference,
		Amount:      payment.Amount,
		Description: fmt.Sprintf("Hoa don %d", invoice.ID),
		ReturnURL:   returnURL,
		CancelURL:   a.cfg.CancelURL,
	}
	body.Signature = SignData(map[string]string{
		"amount":      strconv.FormatInt(body.Amount, 10),
		"cancelUrl":   body.CancelURL,
		"description": body.Description,
		"orderCode":   body.OrderCode,
		"returnUrl":   body.ReturnURL,
	}, a.cfg.ChecksumKey)

	var data createResponseData
	if err := a.doRequest(ctx, http.MethodPost, "/v2/payment-requests", body, &data); err != nil {
		return nil, err
	}

	result := &application.CreateRequestResult{
		ExternalReference: payment.ExternalReference,
		CheckoutURL:       data.CheckoutURL,
		QRCode:            data.QRCode,
	}
	if data.QRCode != "" {
		if png, err := qrcode.Encode(data.QRCode, qrcode.Medium, qrImageSize); err == nil {
			result.QRImagePNG = png
		} else {
			a.logger.Warn("could not render QR image", "error", err)
		}
	}

	return result, nil
}

type webhookEnvelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// VerifyCallback authenticates a webhook body. Any parse or verification
// problem, including a panic out of the checksum primitive, becomes a
// negative outcome with no external reference.
func (a *Adapter) VerifyCallback(ctx context.Context, cb application.Callback) domain.PaymentOutcome {
	var envelope webhookEnvelope
	if err := json.Unmarshal(cb.Body, &envelope); err != nil || len(envelope.Data) == 0 {
		return domain.PaymentOutcome{
			Status:        domain.OutcomeFailed,
			FailureReason: domain.ReasonMalformedCallback,
			RawPayload:    cb.Body,
		}
	}

	data, err := decodeDataFields(envelope.Data)
	if err != nil {
		return domain.PaymentOutcome{
			Status:        domain.OutcomeFailed,
			FailureReason: domain.ReasonMalformedCallback,
			RawPayload:    cb.Body,
		}
	}

	if !a.verifyChecksum(data, envelope.Signature) {
		a.logger.Warn("rejected webhook with invalid checksum", "order_code", data["orderCode"])
		return domain.PaymentOutcome{
			Status:        domain.OutcomeFailed,
			FailureReason: domain.ReasonSignatureInvalid,
			RawPayload:    cb.Body,
		}
	}

	ref := data["orderCode"]
	if ref == "" {
		return domain.PaymentOutcome{
			Status:        domain.OutcomeFailed,
			FailureReason: domain.ReasonMalformedCallback,
			RawPayload:    cb.Body,
		}
	}

	outcome := domain.PaymentOutcome{
		ExternalReference: ref,
		TransactionID:     data["reference"],
		RawPayload:        cb.Body,
	}
	if amount, err := strconv.ParseInt(data["amount"], 10, 64); err == nil {
		outcome.Amount = amount
	}
	if ts, err := time.ParseInLocation(timestampLayout, data["transactionDateTime"], time.Local); err == nil {
		outcome.ProviderTimestamp = ts
	}

	if data["code"] == codeSuccess {
		outcome.Status = domain.OutcomeSuccess
	} else {
		outcome.Status = domain.OutcomeFailed
		outcome.FailureReason = domain.ReasonProviderDeclined
	}

	return outcome
}

// verifyChecksum isolates the throwing checksum primitive: a panic is a
// verification failure, never a crashed request.
func (a *Adapter) verifyChecksum(data map[string]string, signature string) (verified bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("webhook verification panicked", "cause", r)
			verified = false
		}
	}()

	return VerifyData(data, signature, a.cfg.ChecksumKey)
}

// decodeDataFields flattens the webhook data object into the string map the
// checksum is computed over. Numbers keep their wire form via json.Number.
func decodeDataFields(raw json.RawMessage) (map[string]string, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return nil, err
	}

	data := make(map[string]string, len(fields))
	for key, value := range fields {
		switch v := value.(type) {
		case nil:
			data[key] = ""
		case string:
			data[key] = v
		case json.Number:
			data[key] = v.String()
		case bool:
			data[key] = strconv.FormatBool(v)
		default:
			return nil, fmt.Errorf("unsupported webhook field type for %q", key)
		}
	}
	return data, nil
}

type statusResponseData struct {
	PaymentLinkID string `json:"paymentLinkId"`
	OrderCode     string `json:"orderCode"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	Reference     string `json:"reference"`
}

// QueryStatus fetches the payment link state from the provider API.
func (a *Adapter) QueryStatus(ctx context.Context, externalReference string) (domain.PaymentOutcome, error) {
	if a.cfg.ClientID == "" || a.cfg.APIKey == "" || a.cfg.BaseURL == "" {
		return domain.PaymentOutcome{}, domain.NewConfigurationError(string(a.Provider()), "client id, api key and base URL are required")
	}

	var data statusResponseData
	if err := a.doRequest(ctx, http.MethodGet, "/v2/payment-requests/"+externalReference, nil, &data); err != nil {
		return domain.PaymentOutcome{}, err
	}

	raw, _ := json.Marshal(data)
	outcome := domain.PaymentOutcome{
		ExternalReference: externalReference,
		Amount:            data.Amount,
		TransactionID:     data.Reference,
		RawPayload:        raw,
	}

	switch data.Status {
	case statusPaid:
		outcome.Status = domain.OutcomeSuccess
	case statusCancelled:
		outcome.Status = domain.OutcomeCancelled
		outcome.FailureReason = domain.ReasonCustomerCancelled
	case statusExpired:
		outcome.Status = domain.OutcomeFailed
		outcome.FailureReason = domain.ReasonProviderDeclined
	default:
		outcome.Status = domain.OutcomeIndeterminate
	}

	return outcome, nil
}

func (a *Adapter) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", a.cfg.ClientID)
	req.Header.Set("x-api-key", a.cfg.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return domain.NewUpstreamUnavailableError(string(a.Provider()), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewUpstreamUnavailableError(string(a.Provider()),
			fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode))
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return domain.NewUpstreamUnavailableError(string(a.Provider()), fmt.Errorf("decode response: %w", err))
	}
	if envelope.Code != codeSuccess {
		return domain.NewUpstreamUnavailableError(string(a.Provider()),
			fmt.Errorf("provider returned code %s: %s", envelope.Code, envelope.Desc))
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return domain.NewUpstreamUnavailableError(string(a.Provider()), fmt.Errorf("decode response data: %w", err))
		}
	}
	return nil
}
