package trade

import (
	"testing"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	cartID := uuid.New()
	order, err := NewOrder(uuid.New(), &cartID)
	require.NoError(t, err)
	return order
}

func TestOrderStatus(t *testing.T) {
	t.Run("parse is case-insensitive", func(t *testing.T) {
		s, err := ParseOrderStatus("CANCELLED")
		require.NoError(t, err)
		assert.Equal(t, OrderStatusCancelled, s)
	})

	t.Run("parse rejects unknown", func(t *testing.T) {
		_, err := ParseOrderStatus("shipped")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Must be one of")
	})

	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPaid, OrderStatusCancelled, true},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPaid, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrder_Totals(t *testing.T) {
	order := newTestOrder(t)

	_, err := order.AddDetail(uuid.New(), 2, decimal.RequireFromString("19.99"))
	require.NoError(t, err)
	d2, err := order.AddDetail(uuid.New(), 1, decimal.RequireFromString("5.50"))
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("45.48").Equal(order.Total))

	_, err = order.UpdateDetailQuantity(d2.ID, 3)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("56.48").Equal(order.Total))

	require.NoError(t, order.RemoveDetail(d2.ID))
	assert.True(t, decimal.RequireFromString("39.98").Equal(order.Total))
	assert.Equal(t, 1, order.ItemCount())

	t.Run("rejects zero quantity", func(t *testing.T) {
		_, err := order.AddDetail(uuid.New(), 0, decimal.NewFromInt(1))
		require.Error(t, err)
	})

	t.Run("unknown detail", func(t *testing.T) {
		err := order.RemoveDetail(uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestOrder_Lifecycle(t *testing.T) {
	t.Run("place requires details", func(t *testing.T) {
		order := newTestOrder(t)
		require.Error(t, order.Place())
	})

	t.Run("place emits OrderCreated", func(t *testing.T) {
		order := newTestOrder(t)
		_, err := order.AddDetail(uuid.New(), 1, decimal.NewFromInt(10))
		require.NoError(t, err)
		require.NoError(t, order.Place())

		events := order.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeOrderCreated, events[0].EventType())
	})

	t.Run("pay then cancel", func(t *testing.T) {
		order := newTestOrder(t)
		require.NoError(t, order.MarkPaid())
		assert.True(t, order.IsPaid())

		assert.ErrorIs(t, order.MarkPaid(), ErrOrderAlreadyPaid)

		require.NoError(t, order.Cancel())
		assert.True(t, order.IsCancelled())
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		order := newTestOrder(t)
		require.NoError(t, order.Cancel())

		err := order.TransitionTo(OrderStatusPaid)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.ErrorIs(t, order.Cancel(), shared.ErrInvalidState)
	})

	t.Run("paid order cannot be edited", func(t *testing.T) {
		order := newTestOrder(t)
		require.NoError(t, order.MarkPaid())
		_, err := order.AddDetail(uuid.New(), 1, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, ErrOrderNotEditable)
	})

	t.Run("ownership", func(t *testing.T) {
		order := newTestOrder(t)
		assert.True(t, order.BelongsTo(order.UserID))
		assert.False(t, order.BelongsTo(uuid.New()))
	})
}

func TestCart(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()

	t.Run("set item replaces quantity", func(t *testing.T) {
		cart, err := NewCart(userID)
		require.NoError(t, err)

		_, err = cart.SetItem(productID, 2)
		require.NoError(t, err)
		_, err = cart.SetItem(productID, 5)
		require.NoError(t, err)

		require.Len(t, cart.Items, 1)
		assert.Equal(t, 5, cart.Items[0].Quantity)
		assert.Equal(t, cart.ID, cart.Items[0].CartID)
		assert.Equal(t, 5, cart.TotalQuantity())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		cart, err := NewCart(userID)
		require.NoError(t, err)
		_, err = cart.SetItem(productID, 0)
		require.Error(t, err)
	})

	t.Run("remove missing item", func(t *testing.T) {
		cart, err := NewCart(userID)
		require.NoError(t, err)
		_, err = cart.RemoveItem(productID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("checkout", func(t *testing.T) {
		cart, err := NewCart(userID)
		require.NoError(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, cart.Checkout(), &domainErr)
		assert.Equal(t, "EMPTY_CART", domainErr.Code)

		_, err = cart.SetItem(productID, 1)
		require.NoError(t, err)
		require.NoError(t, cart.Checkout())
		assert.True(t, cart.CheckedOut)

		assert.ErrorIs(t, cart.Checkout(), ErrCartCheckedOut)
		_, err = cart.SetItem(uuid.New(), 1)
		assert.ErrorIs(t, err, ErrCartCheckedOut)
	})
}
