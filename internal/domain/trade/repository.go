package trade

import (
	"context"
	"time"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CartRepository defines the interface for cart persistence.
// Finders preload items.
type CartRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Cart, error)
	// FindActiveByUser returns the user's cart that is not checked out
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	// FindLatestByUser returns the user's most recently created cart, open or not
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Cart, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	// Save persists the cart and synchronizes its item rows. Saving a cart whose
	// Version no longer matches the stored row fails with ErrCartModified.
	Save(ctx context.Context, cart *Cart) error
}

// OrderFilter narrows order listings
type OrderFilter struct {
	shared.Filter
	UserID *uuid.UUID
	Status *OrderStatus
}

// OrderRepository defines the interface for order persistence.
// Finders preload details.
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByIDForUpdate loads the order and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByCartID(ctx context.Context, cartID uuid.UUID) (*Order, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]Order, error)
	Count(ctx context.Context, filter OrderFilter) (int64, error)
	// FindStalePending returns pending orders created before cutoff
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)
	// Save persists the order and synchronizes its detail rows
	Save(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrderDetailRepository reads line items directly
type OrderDetailRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OrderDetail, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]OrderDetail, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	// FindByUser returns the details of all orders placed by userID
	FindByUser(ctx context.Context, userID uuid.UUID) ([]OrderDetail, error)
}
