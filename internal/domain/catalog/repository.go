package catalog

import (
	"context"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	FindByName(ctx context.Context, name string) (*Category, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Category, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Category, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	// CountProducts returns how many products are attached to the category
	CountProducts(ctx context.Context, categoryID uuid.UUID) (int64, error)
	Save(ctx context.Context, category *Category) error
	// Delete removes the category and detaches it from its products
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// ProductFilter narrows product listings
type ProductFilter struct {
	shared.Filter
	CategoryID *uuid.UUID
	Available  *bool
}

// ProductRepository defines the interface for product persistence.
// Finders preload categories.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindByIDForUpdate loads the product and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, error)
	Count(ctx context.Context, filter ProductFilter) (int64, error)

	// FindFirstMatching returns the first product whose name or description
	// contains query, case-insensitively
	FindFirstMatching(ctx context.Context, query string) (*Product, error)

	// FindRelated returns available products sharing a category with productID
	FindRelated(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID, limit int) ([]Product, error)

	ExistsByName(ctx context.Context, name string) (bool, error)

	// Save creates or updates a product and replaces its category associations
	Save(ctx context.Context, product *Product) error
	// SaveStock persists only stock and availability, leaving category links untouched
	SaveStock(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}
