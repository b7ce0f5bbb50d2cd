package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/identity"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCartService() (*CartService, *MockCartRepository, *MockProductRepository) {
	carts := new(MockCartRepository)
	products := new(MockProductRepository)
	return NewCartService(carts, products, zap.NewNop()), carts, products
}

func TestCartService_GetMyCart(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("returns existing open cart", func(t *testing.T) {
		svc, carts, _ := newCartService()
		cart, _ := trade.NewCart(userID)
		carts.On("FindActiveByUser", ctx, userID).Return(cart, nil)

		resp, err := svc.GetMyCart(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, cart.ID, resp.ID)
		carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("creates a cart when none is open", func(t *testing.T) {
		svc, carts, _ := newCartService()
		carts.On("FindActiveByUser", ctx, userID).Return(nil, shared.ErrNotFound)
		carts.On("Save", ctx, mock.AnythingOfType("*trade.Cart")).Return(nil)

		resp, err := svc.GetMyCart(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, userID, resp.UserID)
		assert.False(t, resp.CheckedOut)
		assert.Empty(t, resp.Items)
		carts.AssertExpectations(t)
	})

	t.Run("returns the cart a concurrent request created", func(t *testing.T) {
		svc, carts, _ := newCartService()
		winner, _ := trade.NewCart(userID)
		carts.On("FindActiveByUser", ctx, userID).Return(nil, shared.ErrNotFound).Once()
		carts.On("Save", ctx, mock.AnythingOfType("*trade.Cart")).
			Return(shared.WrapDomainError("ALREADY_EXISTS", "Resource already exists", errors.New("duplicate key"))).Once()
		carts.On("FindActiveByUser", ctx, userID).Return(winner, nil).Once()

		resp, err := svc.GetMyCart(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, winner.ID, resp.ID)
		carts.AssertExpectations(t)
	})
}

func TestCartService_SetItem(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("adds product to cart", func(t *testing.T) {
		svc, carts, products := newCartService()
		product := newTestProduct("Laptop", "999.99", 10)
		cart, _ := trade.NewCart(userID)
		products.On("FindByID", ctx, product.ID).Return(product, nil)
		carts.On("FindActiveByUser", ctx, userID).Return(cart, nil)
		carts.On("Save", ctx, cart).Return(nil)

		resp, err := svc.SetItem(ctx, userID, SetCartItemRequest{ProductID: product.ID, Quantity: 3})
		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, 3, resp.Items[0].Quantity)

		resp, err = svc.SetItem(ctx, userID, SetCartItemRequest{ProductID: product.ID, Quantity: 5})
		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, 5, resp.Items[0].Quantity)
	})

	t.Run("rejects quantity above stock", func(t *testing.T) {
		svc, carts, products := newCartService()
		product := newTestProduct("Mouse", "19.99", 2)
		products.On("FindByID", ctx, product.ID).Return(product, nil)

		_, err := svc.SetItem(ctx, userID, SetCartItemRequest{ProductID: product.ID, Quantity: 3})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects unavailable product", func(t *testing.T) {
		svc, _, products := newCartService()
		product := newTestProduct("Keyboard", "49.99", 0)
		products.On("FindByID", ctx, product.ID).Return(product, nil)

		_, err := svc.SetItem(ctx, userID, SetCartItemRequest{ProductID: product.ID, Quantity: 1})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PRODUCT_UNAVAILABLE", domainErr.Code)
	})

	t.Run("unknown product", func(t *testing.T) {
		svc, _, products := newCartService()
		id := uuid.New()
		products.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := svc.SetItem(ctx, userID, SetCartItemRequest{ProductID: id, Quantity: 1})
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestCartService_RemoveItem(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc, carts, _ := newCartService()
	product := newTestProduct("Laptop", "999.99", 10)
	cart, _ := trade.NewCart(userID)
	_, _ = cart.SetItem(product.ID, 1)
	carts.On("FindActiveByUser", ctx, userID).Return(cart, nil)
	carts.On("Save", ctx, cart).Return(nil)

	resp, err := svc.RemoveItem(ctx, userID, product.ID)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	_, err = svc.RemoveItem(ctx, userID, product.ID)
	assert.True(t, shared.IsNotFound(err))
}

func TestCartService_Checkout(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("freezes the cart and publishes event", func(t *testing.T) {
		svc, carts, _ := newCartService()
		publisher := new(MockEventPublisher)
		svc.SetEventPublisher(publisher)
		cart, _ := trade.NewCart(userID)
		_, _ = cart.SetItem(uuid.New(), 2)
		carts.On("FindActiveByUser", ctx, userID).Return(cart, nil)
		carts.On("Save", ctx, cart).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := svc.Checkout(ctx, userID)
		require.NoError(t, err)
		assert.True(t, resp.CheckedOut)
		assert.Empty(t, cart.GetDomainEvents())
		publisher.AssertNumberOfCalls(t, "Publish", 1)
	})

	t.Run("no cart at all", func(t *testing.T) {
		svc, carts, _ := newCartService()
		carts.On("FindActiveByUser", ctx, userID).Return(nil, shared.ErrNotFound)
		carts.On("FindLatestByUser", ctx, userID).Return(nil, shared.ErrNotFound)

		_, err := svc.Checkout(ctx, userID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "EMPTY_CART", domainErr.Code)
	})

	t.Run("latest cart already checked out", func(t *testing.T) {
		svc, carts, _ := newCartService()
		frozen := newCheckedOutCart(userID, map[*catalog.Product]int{newTestProduct("Pen", "1.50", 5): 1})
		carts.On("FindActiveByUser", ctx, userID).Return(nil, shared.ErrNotFound)
		carts.On("FindLatestByUser", ctx, userID).Return(frozen, nil)

		_, err := svc.Checkout(ctx, userID)
		assert.ErrorIs(t, err, trade.ErrCartCheckedOut)
		carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("concurrent change is reported as a conflict", func(t *testing.T) {
		svc, carts, _ := newCartService()
		cart, _ := trade.NewCart(userID)
		_, _ = cart.SetItem(uuid.New(), 1)
		carts.On("FindActiveByUser", ctx, userID).Return(cart, nil)
		carts.On("Save", ctx, cart).Return(trade.ErrCartModified)

		_, err := svc.Checkout(ctx, userID)
		assert.ErrorIs(t, err, trade.ErrCartModified)
	})

	t.Run("empty cart", func(t *testing.T) {
		svc, carts, _ := newCartService()
		cart, _ := trade.NewCart(userID)
		carts.On("FindActiveByUser", ctx, userID).Return(cart, nil)

		_, err := svc.Checkout(ctx, userID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "EMPTY_CART", domainErr.Code)
		carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestCartService_GetByID(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	svc, carts, _ := newCartService()
	cart := newCheckedOutCart(owner, map[*catalog.Product]int{newTestProduct("Pen", "1.50", 5): 1})
	carts.On("FindByID", ctx, cart.ID).Return(cart, nil)

	resp, err := svc.GetByID(ctx, Caller{UserID: owner, Role: identity.RoleClient}, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, resp.ID)

	_, err = svc.GetByID(ctx, Caller{UserID: uuid.New(), Role: identity.RoleClient}, cart.ID)
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = svc.GetByID(ctx, Caller{UserID: uuid.New(), Role: identity.RoleAdmin}, cart.ID)
	assert.NoError(t, err)
}

func TestCartService_List(t *testing.T) {
	ctx := context.Background()
	svc, carts, _ := newCartService()
	c1, _ := trade.NewCart(uuid.New())
	c2, _ := trade.NewCart(uuid.New())
	carts.On("FindAll", ctx, mock.AnythingOfType("shared.Filter")).Return([]trade.Cart{*c1, *c2}, nil)
	carts.On("Count", ctx, mock.AnythingOfType("shared.Filter")).Return(int64(2), nil)

	result, err := svc.List(ctx, ListFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, int64(2), result.Total)
	assert.Equal(t, 1, result.TotalPages)
}
