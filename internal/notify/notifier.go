// Package notify delivers payment events to the external notification
// collaborator. Delivery is best effort: settlement never rolls back because
// a notification could not be sent.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/domain"
)

type HTTPNotifier struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPNotifier(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPNotifier {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HTTPNotifier{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "notifier"),
	}
}

type paymentSucceededEvent struct {
	Event             string    `json:"event"`
	InvoiceID         int64     `json:"invoiceId"`
	ContractID        int64     `json:"contractId"`
	PaymentID         string    `json:"paymentId"`
	Provider          string    `json:"provider"`
	Amount            int64     `json:"amount"`
	ExternalReference string    `json:"externalReference"`
	PaidAt            time.Time `json:"paidAt"`
}

func (n *HTTPNotifier) PaymentSucceeded(ctx context.Context, invoice *domain.Invoice, payment *domain.Payment) error {
	event := paymentSucceededEvent{
		Event:             "payment.succeeded",
		InvoiceID:         invoice.ID,
		ContractID:        invoice.ContractID,
		PaymentID:         payment.ID,
		Provider:          string(payment.Provider),
		Amount:            payment.Amount,
		ExternalReference: payment.ExternalReference,
	}
	if payment.PaidAt != nil {
		event.PaidAt = *payment.PaidAt
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/v1/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}

	n.logger.Debug("notification delivered", "invoice_id", invoice.ID, "payment_id", payment.ID)
	return nil
}

// NoopNotifier stands in when no collaborator is configured.
type NoopNotifier struct{}

func (NoopNotifier) PaymentSucceeded(context.Context, *domain.Invoice, *domain.Payment) error {
	return nil
}

// FromConfig picks the real notifier when a base URL is configured.
func FromConfig(baseURL string, timeout time.Duration, logger *slog.Logger) application.Notifier {
	if baseURL == "" {
		return NoopNotifier{}
	}
	return NewHTTPNotifier(baseURL, timeout, logger)
}
