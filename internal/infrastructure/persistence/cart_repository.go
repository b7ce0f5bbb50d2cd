package persistence

import (
	"context"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartRepository implements CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) base(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

// FindByID finds a cart by ID with its items
func (r *GormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Cart, error) {
	var cart trade.Cart
	if err := r.base(ctx).First(&cart, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &cart, nil
}

// FindActiveByUser returns the most recent cart of userID that is not checked out
func (r *GormCartRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*trade.Cart, error) {
	var cart trade.Cart
	if err := r.base(ctx).
		Where("user_id = ? AND checked_out = ?", userID, false).
		Order("created_at DESC").
		First(&cart).Error; err != nil {
		return nil, translateError(err)
	}
	return &cart, nil
}

// FindLatestByUser returns the most recently created cart of userID
func (r *GormCartRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*trade.Cart, error) {
	var cart trade.Cart
	if err := r.base(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&cart).Error; err != nil {
		return nil, translateError(err)
	}
	return &cart, nil
}

// FindAll lists carts, newest first by default
func (r *GormCartRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.Cart, error) {
	var carts []trade.Cart
	query := applyPaging(r.base(ctx).Model(&trade.Cart{}), filter, CommonSortFields, "created_at")
	if err := query.Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}

// Count counts carts
func (r *GormCartRepository) Count(ctx context.Context, _ shared.Filter) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&trade.Cart{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save persists the cart and replaces its item rows with the in-memory items.
// Existing rows are updated only while their version still matches the cart's,
// so a write based on a stale read cannot undo a concurrent checkout.
func (r *GormCartRepository) Save(ctx context.Context, cart *trade.Cart) error {
	next := cart.Version + 1
	updated := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&trade.Cart{}).
			Where("id = ? AND version = ?", cart.ID, cart.Version).
			Updates(map[string]any{
				"checked_out": cart.CheckedOut,
				"updated_at":  cart.UpdatedAt,
				"version":     next,
			})
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&trade.Cart{}).Where("id = ?", cart.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return trade.ErrCartModified
			}
			if err := tx.Omit(clause.Associations).Create(cart).Error; err != nil {
				return translateError(err)
			}
		} else {
			updated = true
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&trade.CartItem{}).Error; err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return nil
		}
		for i := range cart.Items {
			cart.Items[i].CartID = cart.ID
		}
		return tx.Create(&cart.Items).Error
	})
	if err != nil {
		return err
	}
	if updated {
		cart.Version = next
	}
	return nil
}

// Ensure GormCartRepository implements CartRepository
var _ trade.CartRepository = (*GormCartRepository)(nil)
