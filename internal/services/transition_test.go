package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coinbridge/internal/services"
	"github.com/example/coinbridge/internal/testutil"
	"github.com/example/coinbridge/internal/workflow"
)

func TestApplyTransition(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("legal transition is saved", func(t *testing.T) {
		order := testutil.DraftOrder()
		order.Workflow = workflow.FulfillmentID
		store, order := seed(t, order)

		applied, err := services.ApplyTransition(ctx, store, &order, "place", now)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, workflow.StateFulfillment, store.Order(order.ID).State)
		assert.Equal(t, now, *store.Order(order.ID).PlacedAt)
	})

	t.Run("illegal transition is a no-op", func(t *testing.T) {
		order := testutil.DraftOrder()
		order.State = workflow.StateCompleted
		store, order := seed(t, order)
		before := order

		applied, err := services.ApplyTransition(ctx, store, &order, "cancel", now)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, before, order)
		assert.Zero(t, store.OrderSaves)
	})

	t.Run("unknown workflow fails", func(t *testing.T) {
		order := testutil.DraftOrder()
		order.Workflow = "order_missing"
		store, order := seed(t, order)

		_, err := services.ApplyTransition(ctx, store, &order, "place", now)
		assert.ErrorIs(t, err, workflow.ErrUnknownWorkflow)
	})
}
