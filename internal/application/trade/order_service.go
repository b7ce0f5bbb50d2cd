package trade

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/ecommerce/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Order errors
var (
	ErrOrderNotFound   = shared.NewDomainError("NOT_FOUND", "Order not found")
	ErrOrderNotPending = shared.NewDomainError("ORDER_NOT_PENDING", "Only pending orders can be cancelled")
	ErrClientStatus    = shared.NewDomainError("FORBIDDEN", "Clients can only cancel their own orders")
)

// OrderService places orders from checked-out carts and manages their lifecycle
type OrderService struct {
	orderRepo      trade.OrderRepository
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo trade.OrderRepository, txScope TransactionScope, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		txScope:   txScope,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for order events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create places an order from a checked-out cart.
//
// Every product row is locked, checked and decremented inside one transaction,
// so either all stock is deducted and the order exists, or nothing changes.
// Placing an order for a cart that already has one returns the existing order
// with Created=false.
func (s *OrderService) Create(ctx context.Context, caller Caller, req CreateOrderRequest) (*CreateOrderResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create",
		telemetry.SpanAttrCartID, req.CartID.String(),
		telemetry.SpanAttrUserID, caller.UserID.String(),
	)
	defer span.End()

	var (
		order   *trade.Order
		created bool
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		cart, err := repos.Carts().FindByID(ctx, req.CartID)
		if err != nil {
			if shared.IsNotFound(err) {
				return ErrCartNotFound
			}
			return err
		}
		if !caller.IsAdmin() && cart.UserID != caller.UserID {
			return shared.NewDomainError("FORBIDDEN", "Cart belongs to another user")
		}
		if !cart.CheckedOut {
			return shared.NewDomainError("CART_NOT_CHECKED_OUT", "Cart must be checked out before placing an order")
		}
		if cart.IsEmpty() {
			return shared.NewDomainError("EMPTY_CART", "Cannot place an order from an empty cart")
		}

		existing, err := repos.Orders().FindByCartID(ctx, cart.ID)
		if err == nil {
			order = existing
			return nil
		}
		if !shared.IsNotFound(err) {
			return err
		}

		o, err := trade.NewOrder(cart.UserID, &cart.ID)
		if err != nil {
			return err
		}

		// Lock products in a stable order so concurrent checkouts cannot deadlock
		items := append([]trade.CartItem(nil), cart.Items...)
		sort.Slice(items, func(i, j int) bool {
			return items[i].ProductID.String() < items[j].ProductID.String()
		})
		for _, item := range items {
			product, err := lockProduct(ctx, repos.Products(), item.ProductID)
			if err != nil {
				return err
			}
			if err := product.DeductStock(item.Quantity); err != nil {
				return err
			}
			if err := repos.Products().SaveStock(ctx, product); err != nil {
				return err
			}
			if _, err := o.AddDetail(product.ID, item.Quantity, product.Price); err != nil {
				return err
			}
		}

		if err := o.Place(); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		order = o
		created = true
		return nil
	})
	if err != nil {
		// A concurrent request won the unique cart_id race
		if errors.Is(err, shared.ErrAlreadyExists) {
			if existing, findErr := s.orderRepo.FindByCartID(ctx, req.CartID); findErr == nil {
				resp := ToOrderResponse(existing)
				return &CreateOrderResult{Order: resp}, nil
			}
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, order.ID.String(),
		telemetry.SpanAttrAmount, order.Total.String(),
		telemetry.SpanAttrItemCount, len(order.Details),
	)
	if created {
		s.logger.Info("Order created",
			zap.String("order_id", order.ID.String()),
			zap.String("user_id", order.UserID.String()),
			zap.String("total", order.Total.String()),
			zap.Int("items", len(order.Details)))
		publishEvents(ctx, s.eventPublisher, order, s.logger)
	}

	return &CreateOrderResult{Order: ToOrderResponse(order), Created: created}, nil
}

// GetByID returns an order. Clients only see their own orders.
func (s *OrderService) GetByID(ctx context.Context, caller Caller, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !order.BelongsTo(caller.UserID) {
		return nil, ErrOrderNotFound
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// List returns orders across all users, newest first
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) (*shared.Paginated[OrderResponse], error) {
	f, err := toOrderFilter(filter)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, f)
}

// ListMine returns the orders placed by userID, newest first
func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID, filter OrderListFilter) (*shared.Paginated[OrderResponse], error) {
	filter.UserID = &userID
	f, err := toOrderFilter(filter)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, f)
}

// UpdateStatus moves an order to a new status.
// Admins may apply any allowed transition. Clients may only cancel their own
// pending orders. Cancelling puts the ordered units back into stock.
func (s *OrderService) UpdateStatus(ctx context.Context, caller Caller, id uuid.UUID, req UpdateOrderStatusRequest) (*OrderResponse, error) {
	status, err := trade.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "order", "update_status",
		telemetry.SpanAttrOrderID, id.String(),
		"status", status.String(),
	)
	defer span.End()

	var order *trade.Order
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			if shared.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		if !caller.IsAdmin() {
			if !o.BelongsTo(caller.UserID) {
				return ErrOrderNotFound
			}
			if status != trade.OrderStatusCancelled {
				return ErrClientStatus
			}
			if !o.IsPending() {
				return ErrOrderNotPending
			}
		}

		wasCancelled := o.IsCancelled()
		if err := o.TransitionTo(status); err != nil {
			return err
		}
		if o.IsCancelled() && !wasCancelled {
			if err := restockDetails(ctx, repos.Products(), o.Details); err != nil {
				return err
			}
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", order.Status.String()),
		zap.String("by", caller.UserID.String()))
	publishEvents(ctx, s.eventPublisher, order, s.logger)

	resp := ToOrderResponse(order)
	return &resp, nil
}

// Delete removes an order. Units of a pending order are put back into stock.
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := repos.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			if shared.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.IsPending() {
			if err := restockDetails(ctx, repos.Products(), order.Details); err != nil {
				return err
			}
		}
		return repos.Orders().Delete(ctx, id)
	})
}

// CancelStaleOrders cancels up to limit pending orders created before cutoff,
// restocking their units. Orders that fail to cancel are logged and skipped.
func (s *OrderService) CancelStaleOrders(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	stale, err := s.orderRepo.FindStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range stale {
		id := stale[i].ID
		var order *trade.Order
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			o, err := repos.Orders().FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			// Paid or cancelled since the scan
			if !o.IsPending() {
				return nil
			}
			if err := o.Cancel(); err != nil {
				return err
			}
			if err := restockDetails(ctx, repos.Products(), o.Details); err != nil {
				return err
			}
			if err := repos.Orders().Save(ctx, o); err != nil {
				return err
			}
			order = o
			return nil
		})
		if err != nil {
			s.logger.Warn("Failed to cancel stale order", zap.String("order_id", id.String()), zap.Error(err))
			continue
		}
		if order != nil {
			cancelled++
			publishEvents(ctx, s.eventPublisher, order, s.logger)
		}
	}
	return cancelled, nil
}

func (s *OrderService) list(ctx context.Context, f trade.OrderFilter) (*shared.Paginated[OrderResponse], error) {
	orders, err := s.orderRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.orderRepo.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	result := shared.NewPaginated(ToOrderResponses(orders), total, f.Page, f.PageSize)
	return &result, nil
}

func (s *OrderService) findOrder(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func toOrderFilter(filter OrderListFilter) (trade.OrderFilter, error) {
	f := trade.OrderFilter{
		Filter: toSharedFilter(filter.Page, filter.PageSize, ""),
		UserID: filter.UserID,
	}
	if filter.Status != "" {
		status, err := trade.ParseOrderStatus(filter.Status)
		if err != nil {
			return f, err
		}
		f.Status = &status
	}
	return f, nil
}

// lockProduct loads a product with a row lock, mapping a miss to a descriptive 404
func lockProduct(ctx context.Context, products catalog.ProductRepository, id uuid.UUID) (*catalog.Product, error) {
	product, err := products.FindByIDForUpdate(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Product %s not found", id))
		}
		return nil, err
	}
	return product, nil
}

// restockDetails puts each detail's units back. Products deleted since the
// order was placed are skipped.
func restockDetails(ctx context.Context, products catalog.ProductRepository, details []trade.OrderDetail) error {
	quantities := make(map[uuid.UUID]int, len(details))
	ids := make([]uuid.UUID, 0, len(details))
	for _, d := range details {
		if _, ok := quantities[d.ProductID]; !ok {
			ids = append(ids, d.ProductID)
		}
		quantities[d.ProductID] += d.Quantity
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		product, err := products.FindByIDForUpdate(ctx, id)
		if err != nil {
			if shared.IsNotFound(err) {
				continue
			}
			return err
		}
		product.RestoreStock(quantities[id])
		if err := products.SaveStock(ctx, product); err != nil {
			return err
		}
	}
	return nil
}
