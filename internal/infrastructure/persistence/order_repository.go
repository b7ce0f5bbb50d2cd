package persistence

import (
	"context"
	"time"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) base(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Details", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

// FindByID finds an order by ID with its details
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var order trade.Order
	if err := r.base(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row and loads its details
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var order trade.Order
	if err := r.base(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

// FindByCartID returns the order created from cartID
func (r *GormOrderRepository) FindByCartID(ctx context.Context, cartID uuid.UUID) (*trade.Order, error) {
	var order trade.Order
	if err := r.base(ctx).First(&order, "cart_id = ?", cartID).Error; err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

// FindAll lists orders, newest first by default
func (r *GormOrderRepository) FindAll(ctx context.Context, filter trade.OrderFilter) ([]trade.Order, error) {
	var orders []trade.Order
	query := applyFilterOrders(r.base(ctx).Model(&trade.Order{}), filter)
	query = applyPaging(query, filter.Filter, OrderSortFields, "created_at")
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter trade.OrderFilter) (int64, error) {
	var count int64
	if err := applyFilterOrders(r.db.WithContext(ctx).Model(&trade.Order{}), filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindStalePending returns up to limit pending orders created before cutoff, oldest first
func (r *GormOrderRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]trade.Order, error) {
	var orders []trade.Order
	if err := r.base(ctx).
		Where("status = ? AND created_at < ?", trade.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save persists the order and replaces its detail rows
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(order).Error; err != nil {
			return translateError(err)
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&trade.OrderDetail{}).Error; err != nil {
			return err
		}
		if len(order.Details) == 0 {
			return nil
		}
		for i := range order.Details {
			order.Details[i].OrderID = order.ID
		}
		return tx.Create(&order.Details).Error
	})
}

// Delete removes an order and its details
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&trade.OrderDetail{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&trade.Order{}, "id = ?", id)
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func applyFilterOrders(query *gorm.DB, filter trade.OrderFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

// GormOrderDetailRepository implements OrderDetailRepository using GORM
type GormOrderDetailRepository struct {
	db *gorm.DB
}

// NewGormOrderDetailRepository creates a new GormOrderDetailRepository
func NewGormOrderDetailRepository(db *gorm.DB) *GormOrderDetailRepository {
	return &GormOrderDetailRepository{db: db}
}

// FindByID finds a single line item
func (r *GormOrderDetailRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.OrderDetail, error) {
	var detail trade.OrderDetail
	if err := r.db.WithContext(ctx).First(&detail, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &detail, nil
}

// FindAll lists line items
func (r *GormOrderDetailRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.OrderDetail, error) {
	var details []trade.OrderDetail
	query := r.db.WithContext(ctx).Model(&trade.OrderDetail{}).
		Order("order_id ASC").Order("id ASC").
		Offset(filter.Offset()).Limit(filter.Limit())
	if err := query.Find(&details).Error; err != nil {
		return nil, err
	}
	return details, nil
}

// Count counts line items
func (r *GormOrderDetailRepository) Count(ctx context.Context, _ shared.Filter) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&trade.OrderDetail{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindByUser returns the line items of every order placed by userID
func (r *GormOrderDetailRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]trade.OrderDetail, error) {
	var details []trade.OrderDetail
	sub := r.db.Model(&trade.Order{}).Select("id").Where("user_id = ?", userID)
	if err := r.db.WithContext(ctx).
		Where("order_id IN (?)", sub).
		Find(&details).Error; err != nil {
		return nil, err
	}
	return details, nil
}

// Ensure the GORM repositories implement the trade ports
var (
	_ trade.OrderRepository       = (*GormOrderRepository)(nil)
	_ trade.OrderDetailRepository = (*GormOrderDetailRepository)(nil)
)
