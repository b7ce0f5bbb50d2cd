package chat

import (
	"context"
	"time"

	appcatalog "github.com/ecommerce/backend/internal/application/catalog"
	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockProductAssistant is a mock implementation of ProductAssistant
type MockProductAssistant struct {
	mock.Mock
}

func (m *MockProductAssistant) FindByQuery(ctx context.Context, query string) (*catalog.Product, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductAssistant) StockInfo(ctx context.Context, id uuid.UUID) (*appcatalog.StockResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcatalog.StockResponse), args.Error(1)
}

func (m *MockProductAssistant) Recommendations(ctx context.Context, id uuid.UUID, limit int) ([]appcatalog.ProductResponse, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appcatalog.ProductResponse), args.Error(1)
}

func (m *MockProductAssistant) WarrantyInfo(ctx context.Context, id uuid.UUID) (*appcatalog.WarrantyResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcatalog.WarrantyResponse), args.Error(1)
}

func (m *MockProductAssistant) Compare(ctx context.Context, ids []uuid.UUID) ([]appcatalog.ComparisonItem, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appcatalog.ComparisonItem), args.Error(1)
}

// MockOrderRepository is a mock implementation of trade.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByCartID(ctx context.Context, cartID uuid.UUID) (*trade.Order, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter trade.OrderFilter) ([]trade.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]trade.Order), args.Error(1)
}

func (m *MockOrderRepository) Count(ctx context.Context, filter trade.OrderFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]trade.Order, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]trade.Order), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockProductFinder is a mock implementation of ProductFinder
type MockProductFinder struct {
	mock.Mock
}

func (m *MockProductFinder) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func newTestProduct(name string, price float64, stock int, categories ...string) *catalog.Product {
	p, err := catalog.NewProduct(name, name+" description", decimal.NewFromFloat(price), stock)
	if err != nil {
		panic(err)
	}
	cats := make([]catalog.Category, 0, len(categories))
	for _, c := range categories {
		cat, err := catalog.NewCategory(c, "")
		if err != nil {
			panic(err)
		}
		cats = append(cats, *cat)
	}
	p.SetCategories(cats)
	return p
}

func newTestOrder(userID uuid.UUID, lines map[*catalog.Product]int) *trade.Order {
	order, err := trade.NewOrder(userID, nil)
	if err != nil {
		panic(err)
	}
	for p, qty := range lines {
		if _, err := order.AddDetail(p.ID, qty, p.Price); err != nil {
			panic(err)
		}
	}
	return order
}
