package billing

import (
	"context"

	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// UserFinder looks up the customer a payment or invoice belongs to
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// ProductFinder resolves product names for checkout pages and invoice lines
type ProductFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error)
}
