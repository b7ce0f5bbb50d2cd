package trade

import (
	"time"

	"github.com/ecommerce/backend/internal/domain/identity"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Caller is the authenticated user an operation runs for
type Caller struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin reports whether the caller holds the ADMIN role
func (c Caller) IsAdmin() bool {
	return c.Role == identity.RoleAdmin
}

// SetCartItemRequest sets the quantity of one product in the caller's cart
type SetCartItemRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// CartItemResponse represents a cart item in API responses
type CartItemResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// CartResponse represents a cart in API responses
type CartResponse struct {
	ID         uuid.UUID          `json:"id"`
	UserID     uuid.UUID          `json:"userId"`
	CheckedOut bool               `json:"checkedOut"`
	Items      []CartItemResponse `json:"items"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// ListFilter represents paging options for admin listings
type ListFilter struct {
	Page     int    `form:"page" binding:"min=0"`
	PageSize int    `form:"page_size" binding:"min=0,max=100"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CreateOrderRequest places an order from a checked-out cart
type CreateOrderRequest struct {
	CartID uuid.UUID `json:"cartId" binding:"required"`
}

// UpdateOrderStatusRequest changes an order's status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderListFilter represents filter options for order lists
type OrderListFilter struct {
	Status   string     `form:"status"`
	UserID   *uuid.UUID `form:"user_id"`
	Page     int        `form:"page" binding:"min=0"`
	PageSize int        `form:"page_size" binding:"min=0,max=100"`
}

// OrderDetailResponse represents an order line item in API responses
type OrderDetailResponse struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"orderId"`
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID        uuid.UUID             `json:"id"`
	UserID    uuid.UUID             `json:"userId"`
	CartID    *uuid.UUID            `json:"cartId,omitempty"`
	Total     decimal.Decimal       `json:"total"`
	Status    string                `json:"status"`
	Details   []OrderDetailResponse `json:"details"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// CreateOrderResult carries the order and whether this call created it
type CreateOrderResult struct {
	Order   OrderResponse
	Created bool
}

// CreateOrderDetailRequest adds a line item to a pending order
type CreateOrderDetailRequest struct {
	OrderID   uuid.UUID `json:"orderId" binding:"required"`
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// UpdateOrderDetailRequest changes a line item's quantity
type UpdateOrderDetailRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// ToCartResponse converts a domain Cart to CartResponse
func ToCartResponse(c *trade.Cart) CartResponse {
	items := make([]CartItemResponse, len(c.Items))
	for i, item := range c.Items {
		items[i] = CartItemResponse{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return CartResponse{
		ID:         c.ID,
		UserID:     c.UserID,
		CheckedOut: c.CheckedOut,
		Items:      items,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// ToOrderDetailResponse converts a domain OrderDetail to OrderDetailResponse
func ToOrderDetailResponse(d *trade.OrderDetail) OrderDetailResponse {
	return OrderDetailResponse{
		ID:        d.ID,
		OrderID:   d.OrderID,
		ProductID: d.ProductID,
		Quantity:  d.Quantity,
		UnitPrice: d.UnitPrice,
		Subtotal:  d.Subtotal,
	}
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *trade.Order) OrderResponse {
	details := make([]OrderDetailResponse, len(o.Details))
	for i := range o.Details {
		details[i] = ToOrderDetailResponse(&o.Details[i])
	}
	return OrderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		CartID:    o.CartID,
		Total:     o.Total,
		Status:    o.Status.String(),
		Details:   details,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// ToOrderResponses converts a slice of domain Orders
func ToOrderResponses(orders []trade.Order) []OrderResponse {
	responses := make([]OrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderResponse(&orders[i])
	}
	return responses
}
