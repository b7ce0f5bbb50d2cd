package trade

import (
	"context"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrOrderDetailNotFound is returned when a line item does not exist or is not visible to the caller
var ErrOrderDetailNotFound = shared.NewDomainError("NOT_FOUND", "Order detail not found")

// OrderDetailService manages individual order line items.
// Edits are limited to pending orders and keep product stock and the order total in step.
type OrderDetailService struct {
	detailRepo trade.OrderDetailRepository
	orderRepo  trade.OrderRepository
	txScope    TransactionScope
	logger     *zap.Logger
}

// NewOrderDetailService creates a new OrderDetailService
func NewOrderDetailService(
	detailRepo trade.OrderDetailRepository,
	orderRepo trade.OrderRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *OrderDetailService {
	return &OrderDetailService{
		detailRepo: detailRepo,
		orderRepo:  orderRepo,
		txScope:    txScope,
		logger:     logger,
	}
}

// List returns line items. Admins see every item; clients see items of their own orders.
func (s *OrderDetailService) List(ctx context.Context, caller Caller, filter ListFilter) (*shared.Paginated[OrderDetailResponse], error) {
	f := toSharedFilter(filter.Page, filter.PageSize, filter.OrderDir)

	if !caller.IsAdmin() {
		details, err := s.detailRepo.FindByUser(ctx, caller.UserID)
		if err != nil {
			return nil, err
		}
		total := int64(len(details))
		start := min(f.Offset(), len(details))
		end := min(start+f.Limit(), len(details))
		result := shared.NewPaginated(toDetailResponses(details[start:end]), total, f.Page, f.Limit())
		return &result, nil
	}

	details, err := s.detailRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.detailRepo.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	result := shared.NewPaginated(toDetailResponses(details), total, f.Page, f.Limit())
	return &result, nil
}

// GetByID returns a line item. Clients only see items of their own orders.
func (s *OrderDetailService) GetByID(ctx context.Context, caller Caller, id uuid.UUID) (*OrderDetailResponse, error) {
	detail, err := s.detailRepo.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrOrderDetailNotFound
		}
		return nil, err
	}
	if !caller.IsAdmin() {
		order, err := s.orderRepo.FindByID(ctx, detail.OrderID)
		if err != nil {
			if shared.IsNotFound(err) {
				return nil, ErrOrderDetailNotFound
			}
			return nil, err
		}
		if !order.BelongsTo(caller.UserID) {
			return nil, ErrOrderDetailNotFound
		}
	}
	resp := ToOrderDetailResponse(detail)
	return &resp, nil
}

// Create adds a line item to a pending order at the product's current price
func (s *OrderDetailService) Create(ctx context.Context, req CreateOrderDetailRequest) (*OrderDetailResponse, error) {
	var resp OrderDetailResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := lockPendingOrder(ctx, repos, req.OrderID)
		if err != nil {
			return err
		}
		product, err := lockProduct(ctx, repos.Products(), req.ProductID)
		if err != nil {
			return err
		}
		if err := product.DeductStock(req.Quantity); err != nil {
			return err
		}
		if err := repos.Products().SaveStock(ctx, product); err != nil {
			return err
		}
		detail, err := order.AddDetail(product.ID, req.Quantity, product.Price)
		if err != nil {
			return err
		}
		resp = ToOrderDetailResponse(detail)
		return repos.Orders().Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Order detail added",
		zap.String("order_id", resp.OrderID.String()),
		zap.String("detail_id", resp.ID.String()),
		zap.Int("quantity", resp.Quantity))
	return &resp, nil
}

// Update changes a line item's quantity, adjusting stock by the difference
func (s *OrderDetailService) Update(ctx context.Context, id uuid.UUID, req UpdateOrderDetailRequest) (*OrderDetailResponse, error) {
	existing, err := s.findDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	var resp OrderDetailResponse
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := lockPendingOrder(ctx, repos, existing.OrderID)
		if err != nil {
			return err
		}
		current := order.FindDetail(id)
		if current == nil {
			return ErrOrderDetailNotFound
		}
		if delta := req.Quantity - current.Quantity; delta != 0 {
			product, err := lockProduct(ctx, repos.Products(), current.ProductID)
			if err != nil {
				return err
			}
			if delta > 0 {
				if err := product.DeductStock(delta); err != nil {
					return err
				}
			} else {
				product.RestoreStock(-delta)
			}
			if err := repos.Products().SaveStock(ctx, product); err != nil {
				return err
			}
		}
		detail, err := order.UpdateDetailQuantity(id, req.Quantity)
		if err != nil {
			return err
		}
		resp = ToOrderDetailResponse(detail)
		return repos.Orders().Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete removes a line item and puts its units back into stock
func (s *OrderDetailService) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.findDetail(ctx, id)
	if err != nil {
		return err
	}

	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := lockPendingOrder(ctx, repos, existing.OrderID)
		if err != nil {
			return err
		}
		current := order.FindDetail(id)
		if current == nil {
			return ErrOrderDetailNotFound
		}
		if err := restockDetails(ctx, repos.Products(), []trade.OrderDetail{*current}); err != nil {
			return err
		}
		if err := order.RemoveDetail(id); err != nil {
			return err
		}
		return repos.Orders().Save(ctx, order)
	})
}

func (s *OrderDetailService) findDetail(ctx context.Context, id uuid.UUID) (*trade.OrderDetail, error) {
	detail, err := s.detailRepo.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrOrderDetailNotFound
		}
		return nil, err
	}
	return detail, nil
}

func lockPendingOrder(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) (*trade.Order, error) {
	order, err := repos.Orders().FindByIDForUpdate(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.IsPending() {
		return nil, trade.ErrOrderNotEditable
	}
	return order, nil
}

func toDetailResponses(details []trade.OrderDetail) []OrderDetailResponse {
	responses := make([]OrderDetailResponse, len(details))
	for i := range details {
		responses[i] = ToOrderDetailResponse(&details[i])
	}
	return responses
}
