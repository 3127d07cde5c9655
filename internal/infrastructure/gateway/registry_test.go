package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/domain"
)

type stubAdapter struct {
	provider domain.Provider
}

func (s *stubAdapter) Provider() domain.Provider { return s.provider }

func (s *stubAdapter) CreateRequest(context.Context, *domain.Invoice, *domain.Payment, application.ClientContext) (*application.CreateRequestResult, error) {
	return &application.CreateRequestResult{}, nil
}

func (s *stubAdapter) VerifyCallback(context.Context, application.Callback) domain.PaymentOutcome {
	return domain.PaymentOutcome{}
}

func (s *stubAdapter) QueryStatus(context.Context, string) (domain.PaymentOutcome, error) {
	return domain.PaymentOutcome{}, nil
}

func TestRegistry(t *testing.T) {
	bank := &stubAdapter{provider: domain.ProviderBankRedirect}
	qr := &stubAdapter{provider: domain.ProviderQRCode}
	registry := NewRegistry(bank, qr, nil)

	t.Run("resolves registered providers", func(t *testing.T) {
		got, err := registry.Get(domain.ProviderBankRedirect)
		require.NoError(t, err)
		assert.Same(t, bank, got)
	})

	t.Run("rejects unregistered providers", func(t *testing.T) {
		_, err := registry.Get(domain.ProviderCheckoutLink)
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeValidation))
	})

	t.Run("offline providers are never registered", func(t *testing.T) {
		_, err := registry.Get(domain.ProviderCash)
		require.Error(t, err)
	})
}
