package trade

import (
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeCart  = "Cart"
	AggregateTypeOrder = "Order"
)

// Event type constants
const (
	EventTypeCartCheckedOut = "CartCheckedOut"
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeOrderPaid      = "OrderPaid"
	EventTypeOrderCancelled = "OrderCancelled"
)

// CartCheckedOutEvent is published when a cart is frozen
type CartCheckedOutEvent struct {
	shared.BaseDomainEvent
	CartID    uuid.UUID `json:"cart_id"`
	UserID    uuid.UUID `json:"user_id"`
	ItemCount int       `json:"item_count"`
}

// NewCartCheckedOutEvent creates a new CartCheckedOutEvent
func NewCartCheckedOutEvent(c *Cart) *CartCheckedOutEvent {
	return &CartCheckedOutEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartCheckedOut, AggregateTypeCart, c.ID),
		CartID:          c.ID,
		UserID:          c.UserID,
		ItemCount:       len(c.Items),
	}
}

// OrderCreatedEvent is published when an order has been placed and stock deducted
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID       `json:"order_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		UserID:          o.UserID,
		Total:           o.Total,
		ItemCount:       len(o.Details),
	}
}

// OrderPaidEvent is published when an order transitions to paid
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID       `json:"order_id"`
	UserID  uuid.UUID       `json:"user_id"`
	Total   decimal.Decimal `json:"total"`
}

// NewOrderPaidEvent creates a new OrderPaidEvent
func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		UserID:          o.UserID,
		Total:           o.Total,
	}
}

// OrderCancelledEvent is published when an order is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID   `json:"order_id"`
	UserID         uuid.UUID   `json:"user_id"`
	PreviousStatus OrderStatus `json:"previous_status"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *Order, previous OrderStatus) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		UserID:          o.UserID,
		PreviousStatus:  previous,
	}
}
