package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangtle/renthub-settlement/internal/mocks"
)

func TestOverdueService_SweepOnce(t *testing.T) {
	t.Run("reports the number of invoices swept", func(t *testing.T) {
		invoices := &mocks.MockInvoiceRepository{
			SweepOverdueFn: func(ctx context.Context, now time.Time) (int64, error) {
				return 3, nil
			},
		}
		service := NewOverdueService(invoices, testLogger())

		swept, err := service.SweepOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), swept)
	})

	t.Run("surfaces repository errors", func(t *testing.T) {
		invoices := &mocks.MockInvoiceRepository{
			SweepOverdueFn: func(ctx context.Context, now time.Time) (int64, error) {
				return 0, assert.AnError
			},
		}
		service := NewOverdueService(invoices, testLogger())

		_, err := service.SweepOnce(context.Background())
		assert.Error(t, err)
	})
}

func TestOverdueService_MarkOverdue(t *testing.T) {
	invoices := &mocks.MockInvoiceRepository{
		MarkOverdueFn: func(ctx context.Context, id int64) (bool, error) {
			return id == 42, nil
		},
	}
	service := NewOverdueService(invoices, testLogger())

	moved, err := service.MarkOverdue(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = service.MarkOverdue(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, moved)
}
