package trade

import (
	"fmt"
	"strings"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus accepts a status name in any case
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", shared.NewDomainError("INVALID_STATUS",
			fmt.Sprintf("Invalid order status: %s. Must be one of: pending, paid, cancelled", s))
	}
	return status, nil
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to target.
// Cancelled is terminal.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusPaid || target == OrderStatusCancelled
	case OrderStatusPaid:
		return target == OrderStatusCancelled
	}
	return false
}

// OrderDetail is a purchased line item. Unit price is captured at order time.
type OrderDetail struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
}

// TableName returns the table name for GORM
func (OrderDetail) TableName() string {
	return "order_details"
}

// NewOrderDetail creates a line item with subtotal = unitPrice × quantity
func NewOrderDetail(orderID, productID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*OrderDetail, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be greater than 0")
	}
	if err := shared.ValidateNonNegative("Unit price", unitPrice); err != nil {
		return nil, err
	}
	d := &OrderDetail{
		ID:        uuid.New(),
		OrderID:   orderID,
		ProductID: productID,
		UnitPrice: shared.RoundMoney(unitPrice),
	}
	d.SetQuantity(quantity)
	return d, nil
}

// SetQuantity changes the quantity and recomputes the subtotal
func (d *OrderDetail) SetQuantity(quantity int) {
	d.Quantity = quantity
	d.Subtotal = shared.RoundMoney(d.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Order is an immutable record of purchased line items with a computed total.
// It is created from a checked-out cart; at most one order exists per cart.
type Order struct {
	shared.BaseAggregateRoot
	UserID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	CartID  *uuid.UUID      `gorm:"type:uuid;uniqueIndex" json:"cart_id,omitempty"`
	Total   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total"`
	Status  OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Details []OrderDetail   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"details"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a pending, empty order for userID placed from cartID
func NewOrder(userID uuid.UUID, cartID *uuid.UUID) (*Order, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		CartID:            cartID,
		Total:             decimal.Zero,
		Status:            OrderStatusPending,
		Details:           make([]OrderDetail, 0),
	}, nil
}

// AddDetail appends a line item priced at unitPrice and recomputes the total
func (o *Order) AddDetail(productID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*OrderDetail, error) {
	if o.Status != OrderStatusPending {
		return nil, ErrOrderNotEditable
	}
	d, err := NewOrderDetail(o.ID, productID, quantity, unitPrice)
	if err != nil {
		return nil, err
	}
	o.Details = append(o.Details, *d)
	o.RecalculateTotal()
	return &o.Details[len(o.Details)-1], nil
}

// UpdateDetailQuantity changes a line item's quantity and recomputes the total
func (o *Order) UpdateDetailQuantity(detailID uuid.UUID, quantity int) (*OrderDetail, error) {
	if o.Status != OrderStatusPending {
		return nil, ErrOrderNotEditable
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be greater than 0")
	}
	d := o.FindDetail(detailID)
	if d == nil {
		return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Order detail %s not found", detailID))
	}
	d.SetQuantity(quantity)
	o.RecalculateTotal()
	return d, nil
}

// RemoveDetail drops a line item and recomputes the total
func (o *Order) RemoveDetail(detailID uuid.UUID) error {
	if o.Status != OrderStatusPending {
		return ErrOrderNotEditable
	}
	for i, d := range o.Details {
		if d.ID == detailID {
			o.Details = append(o.Details[:i], o.Details[i+1:]...)
			o.RecalculateTotal()
			return nil
		}
	}
	return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Order detail %s not found", detailID))
}

// FindDetail returns the detail with detailID, or nil
func (o *Order) FindDetail(detailID uuid.UUID) *OrderDetail {
	for i := range o.Details {
		if o.Details[i].ID == detailID {
			return &o.Details[i]
		}
	}
	return nil
}

// RecalculateTotal sets Total to the sum of the detail subtotals
func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for _, d := range o.Details {
		total = total.Add(d.Subtotal)
	}
	o.Total = shared.RoundMoney(total)
	o.Touch()
}

// ItemCount returns the number of line items
func (o *Order) ItemCount() int {
	return len(o.Details)
}

// Place records the OrderCreated event once the order has been filled
func (o *Order) Place() error {
	if len(o.Details) == 0 {
		return shared.NewDomainError("EMPTY_ORDER", "Cannot create an order without items")
	}
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return nil
}

// MarkPaid transitions pending → paid
func (o *Order) MarkPaid() error {
	if o.Status == OrderStatusPaid {
		return ErrOrderAlreadyPaid
	}
	if !o.Status.CanTransitionTo(OrderStatusPaid) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark order as paid in %s status", o.Status))
	}
	o.Status = OrderStatusPaid
	o.Touch()
	o.AddDomainEvent(NewOrderPaidEvent(o))
	return nil
}

// Cancel transitions the order to cancelled. The caller restocks the details.
func (o *Order) Cancel() error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	previous := o.Status
	o.Status = OrderStatusCancelled
	o.Touch()
	o.AddDomainEvent(NewOrderCancelledEvent(o, previous))
	return nil
}

// TransitionTo moves the order to status, dispatching to MarkPaid/Cancel
func (o *Order) TransitionTo(status OrderStatus) error {
	switch status {
	case OrderStatusPaid:
		return o.MarkPaid()
	case OrderStatusCancelled:
		return o.Cancel()
	case OrderStatusPending:
		if o.Status == OrderStatusPending {
			return nil
		}
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot move order from %s back to pending", o.Status))
	}
	return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Invalid order status: %s", status))
}

// IsPending reports whether the order awaits payment
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// IsPaid reports whether the order has been paid
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// IsCancelled reports whether the order was cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// BelongsTo reports whether userID placed the order
func (o *Order) BelongsTo(userID uuid.UUID) bool {
	return o.UserID == userID
}

// Order errors
var (
	ErrOrderNotEditable = shared.NewDomainError("INVALID_STATE", "Only pending orders can be modified")
	ErrOrderAlreadyPaid = shared.NewDomainError("ORDER_ALREADY_PAID", "Order is already paid")
)
