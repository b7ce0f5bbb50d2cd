package persistence

import (
	"context"
	"strings"

	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) base(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Categories", func(db *gorm.DB) *gorm.DB {
		return db.Order("name ASC")
	})
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.base(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &product, nil
}

// FindByIDForUpdate locks the product row (SELECT ... FOR UPDATE).
// It must run inside a transaction for the lock to be held.
func (r *GormProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &product, nil
}

// FindByIDs finds products by their IDs. Missing ids are skipped.
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	products := make([]catalog.Product, 0, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	if err := r.base(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindAll finds all products matching the filter
func (r *GormProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	var products []catalog.Product
	query := r.applyFilter(r.base(ctx).Model(&catalog.Product{}), filter)
	query = applyPaging(query, filter.Filter, ProductSortFields, "created_at")
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Count counts products matching the filter
func (r *GormProductRepository) Count(ctx context.Context, filter catalog.ProductFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&catalog.Product{}), filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindFirstMatching returns the oldest product whose name or description
// contains query, or ErrNotFound
func (r *GormProductRepository) FindFirstMatching(ctx context.Context, query string) (*catalog.Product, error) {
	if strings.TrimSpace(query) == "" {
		return nil, shared.ErrNotFound
	}
	pattern := likePattern(query)
	var product catalog.Product
	if err := r.base(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("created_at ASC").
		First(&product).Error; err != nil {
		return nil, translateError(err)
	}
	return &product, nil
}

// FindRelated returns available products sharing one of categoryIDs, excluding productID
func (r *GormProductRepository) FindRelated(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID, limit int) ([]catalog.Product, error) {
	products := make([]catalog.Product, 0)
	if len(categoryIDs) == 0 || limit <= 0 {
		return products, nil
	}
	sub := r.db.Model(&productCategory{}).Select("product_id").Where("category_id IN ?", categoryIDs)
	if err := r.base(ctx).
		Where("id IN (?)", sub).
		Where("id <> ?", productID).
		Where("available = ? AND stock > 0", true).
		Order("stock DESC, name ASC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ExistsByName checks if a product with the given name exists, case-insensitively
func (r *GormProductRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a product and replaces its category links
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(product).Error; err != nil {
			return translateError(err)
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&productCategory{}).Error; err != nil {
			return err
		}
		if len(product.Categories) == 0 {
			return nil
		}
		links := make([]productCategory, len(product.Categories))
		for i, c := range product.Categories {
			links[i] = productCategory{ProductID: product.ID, CategoryID: c.ID}
		}
		return tx.Create(&links).Error
	})
}

// SaveStock persists stock and availability only
func (r *GormProductRepository) SaveStock(ctx context.Context, product *catalog.Product) error {
	result := r.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"stock":      product.Stock,
			"available":  product.Available,
			"updated_at": product.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete deletes a product and its category links
func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&productCategory{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&catalog.Product{}, "id = ?", id)
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *GormProductRepository) applyFilter(query *gorm.DB, filter catalog.ProductFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	if filter.CategoryID != nil {
		sub := r.db.Model(&productCategory{}).Select("product_id").Where("category_id = ?", *filter.CategoryID)
		query = query.Where("id IN (?)", sub)
	}
	if filter.Available != nil {
		query = query.Where("available = ?", *filter.Available)
	}
	return query
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
