package checkoutlink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/config"
	"github.com/hoangtle/renthub-settlement/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.CheckoutLinkConfig {
	return config.CheckoutLinkConfig{
		ClientID:    "client-1",
		APIKey:      "api-key-1",
		ChecksumKey: testChecksumKey,
		BaseURL:     "https://api.checkout.example",
		ReturnURL:   "https://app.renthub.example/payments/result",
		CancelURL:   "https://app.renthub.example/payments/cancel",
	}
}

func fixtures(t *testing.T) (*domain.Invoice, *domain.Payment) {
	t.Helper()

	invoice, err := domain.NewInvoice(7, 1, 2024, 2_500_000, 350_000, 80_000, 50_000, 20_000,
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	invoice.ID = 42

	payment, err := domain.NewPayment("7f3a2b1c-0000-4000-8000-000000000000", invoice, domain.ProviderCheckoutLink, "tenant-9")
	require.NoError(t, err)
	return invoice, payment
}

func webhookBody(t *testing.T, data map[string]any, signature string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"code":      "00",
		"desc":      "success",
		"data":      data,
		"signature": signature,
	})
	require.NoError(t, err)
	return body
}

func vectorWebhookData() map[string]any {
	return map[string]any{
		"amount":              3000000,
		"code":                "00",
		"desc":                "success",
		"orderCode":           "42-7f3a2b1c-1700000000",
		"reference":           "FT240115",
		"transactionDateTime": "2024-01-15 10:30:00",
	}
}

func TestAdapter_CreateRequest(t *testing.T) {
	t.Run("registers a signed payment link", func(t *testing.T) {
		invoice, payment := fixtures(t)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v2/payment-requests", r.URL.Path)
			assert.Equal(t, "client-1", r.Header.Get("x-client-id"))
			assert.Equal(t, "api-key-1", r.Header.Get("x-api-key"))

			var body createRequestBody
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, payment.ExternalReference, body.OrderCode)
			assert.Equal(t, payment.Amount, body.Amount)

			expected := SignData(map[string]string{
				"amount":      strconv.FormatInt(body.Amount, 10),
				"cancelUrl":   body.CancelURL,
				"description": body.Description,
				"orderCode":   body.OrderCode,
				"returnUrl":   body.ReturnURL,
			}, testChecksumKey)
			assert.Equal(t, expected, body.Signature)

			fmt.Fprintf(w, `{"code":"00","desc":"success","data":{"paymentLinkId":"pl_1","checkoutUrl":"https://pay.checkout.example/web/pl_1","qrCode":"00020101021238570010A000000727"}}`)
		}))
		defer server.Close()

		cfg := testConfig()
		cfg.BaseURL = server.URL
		adapter := New(cfg, testLogger())

		result, err := adapter.CreateRequest(context.Background(), invoice, payment, application.ClientContext{PrincipalID: "tenant-9"})
		require.NoError(t, err)

		assert.Equal(t, payment.ExternalReference, result.ExternalReference)
		assert.Equal(t, "https://pay.checkout.example/web/pl_1", result.CheckoutURL)
		assert.Equal(t, "00020101021238570010A000000727", result.QRCode)
		assert.NotEmpty(t, result.QRImagePNG)
	})

	t.Run("fails fast on missing credentials", func(t *testing.T) {
		invoice, payment := fixtures(t)
		adapter := New(config.CheckoutLinkConfig{ClientID: "client-1"}, testLogger())

		_, err := adapter.CreateRequest(context.Background(), invoice, payment, application.ClientContext{})
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeConfiguration))
	})

	t.Run("a provider rejection surfaces as upstream unavailable", func(t *testing.T) {
		invoice, payment := fixtures(t)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"code":"231","desc":"duplicate order code"}`)
		}))
		defer server.Close()

		cfg := testConfig()
		cfg.BaseURL = server.URL
		adapter := New(cfg, testLogger())

		_, err := adapter.CreateRequest(context.Background(), invoice, payment, application.ClientContext{})
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeUpstreamUnavailable))
	})
}

func TestAdapter_VerifyCallback(t *testing.T) {
	adapter := New(testConfig(), testLogger())

	t.Run("accepts a correctly signed success webhook", func(t *testing.T) {
		body := webhookBody(t, vectorWebhookData(), vectorChecksum)

		outcome := adapter.VerifyCallback(context.Background(), application.Callback{Body: body})

		assert.Equal(t, domain.OutcomeSuccess, outcome.Status)
		assert.Equal(t, "42-7f3a2b1c-1700000000", outcome.ExternalReference)
		assert.Equal(t, int64(3_000_000), outcome.Amount)
		assert.Equal(t, "FT240115", outcome.TransactionID)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local), outcome.ProviderTimestamp)
	})

	t.Run("a declined code yields a failed outcome", func(t *testing.T) {
		data := vectorWebhookData()
		data["code"] = "07"
		body := webhookBody(t, data, SignData(map[string]string{
			"amount":              "3000000",
			"code":                "07",
			"desc":                "success",
			"orderCode":           "42-7f3a2b1c-1700000000",
			"reference":           "FT240115",
			"transactionDateTime": "2024-01-15 10:30:00",
		}, testChecksumKey))

		outcome := adapter.VerifyCallback(context.Background(), application.Callback{Body: body})

		assert.Equal(t, domain.OutcomeFailed, outcome.Status)
		assert.Equal(t, domain.ReasonProviderDeclined, outcome.FailureReason)
		assert.Equal(t, "42-7f3a2b1c-1700000000", outcome.ExternalReference)
	})

	t.Run("a tampered webhook yields no external reference", func(t *testing.T) {
		data := vectorWebhookData()
		data["amount"] = 1
		body := webhookBody(t, data, vectorChecksum)

		outcome := adapter.VerifyCallback(context.Background(), application.Callback{Body: body})

		assert.Equal(t, domain.OutcomeFailed, outcome.Status)
		assert.Equal(t, domain.ReasonSignatureInvalid, outcome.FailureReason)
		assert.Empty(t, outcome.ExternalReference)
	})

	t.Run("a panic in the checksum primitive is a verification failure", func(t *testing.T) {
		unconfigured := New(config.CheckoutLinkConfig{}, testLogger())
		body := webhookBody(t, vectorWebhookData(), vectorChecksum)

		var outcome domain.PaymentOutcome
		assert.NotPanics(t, func() {
			outcome = unconfigured.VerifyCallback(context.Background(), application.Callback{Body: body})
		})
		assert.Equal(t, domain.OutcomeFailed, outcome.Status)
		assert.Equal(t, domain.ReasonSignatureInvalid, outcome.FailureReason)
	})

	t.Run("a non-JSON body is malformed", func(t *testing.T) {
		outcome := adapter.VerifyCallback(context.Background(), application.Callback{Body: []byte("not json")})

		assert.Equal(t, domain.OutcomeFailed, outcome.Status)
		assert.Equal(t, domain.ReasonMalformedCallback, outcome.FailureReason)
	})

	t.Run("a signed webhook without an order code is malformed", func(t *testing.T) {
		data := map[string]any{"amount": 3000000, "code": "00"}
		body := webhookBody(t, data, SignData(map[string]string{"amount": "3000000", "code": "00"}, testChecksumKey))

		outcome := adapter.VerifyCallback(context.Background(), application.Callback{Body: body})

		assert.Equal(t, domain.OutcomeFailed, outcome.Status)
		assert.Equal(t, domain.ReasonMalformedCallback, outcome.FailureReason)
	})
}

func TestAdapter_QueryStatus(t *testing.T) {
	newServer := func(t *testing.T, status string) *httptest.Server {
		t.Helper()
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/v2/payment-requests/42-7f3a2b1c-1700000000", r.URL.Path)
			fmt.Fprintf(w, `{"code":"00","desc":"success","data":{"paymentLinkId":"pl_1","orderCode":"42-7f3a2b1c-1700000000","amount":3000000,"status":%q,"reference":"FT240115"}}`, status)
		}))
	}

	cases := []struct {
		providerStatus string
		want           domain.OutcomeStatus
	}{
		{statusPaid, domain.OutcomeSuccess},
		{statusCancelled, domain.OutcomeCancelled},
		{statusExpired, domain.OutcomeFailed},
		{"PENDING", domain.OutcomeIndeterminate},
		{"PROCESSING", domain.OutcomeIndeterminate},
	}

	for _, tc := range cases {
		t.Run("maps "+tc.providerStatus, func(t *testing.T) {
			server := newServer(t, tc.providerStatus)
			defer server.Close()

			cfg := testConfig()
			cfg.BaseURL = server.URL
			adapter := New(cfg, testLogger())

			outcome, err := adapter.QueryStatus(context.Background(), "42-7f3a2b1c-1700000000")
			require.NoError(t, err)
			assert.Equal(t, tc.want, outcome.Status)
			assert.Equal(t, "42-7f3a2b1c-1700000000", outcome.ExternalReference)
		})
	}

	t.Run("an unreachable provider surfaces as upstream unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		cfg := testConfig()
		cfg.BaseURL = server.URL
		adapter := New(cfg, testLogger())

		_, err := adapter.QueryStatus(context.Background(), "42-7f3a2b1c-1700000000")
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeUpstreamUnavailable))
	})
}
