package trade

import (
	"fmt"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CartItem is a product/quantity pair inside a cart
type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_product,priority:1" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_product,priority:2" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
}

// TableName returns the table name for GORM
func (CartItem) TableName() string {
	return "cart_items"
}

// Cart is a user's pre-order container. A user has at most one cart that is
// not checked out; checking out freezes its contents for order creation.
type Cart struct {
	shared.BaseAggregateRoot
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	CheckedOut bool      `gorm:"not null;default:false;index" json:"checked_out"`
	// Version is bumped on every save; a save carrying a stale version is rejected
	Version int        `gorm:"not null;default:1" json:"version"`
	Items   []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

// TableName returns the table name for GORM
func (Cart) TableName() string {
	return "carts"
}

// NewCart creates an empty open cart for userID
func NewCart(userID uuid.UUID) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	return &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Version:           1,
		Items:             make([]CartItem, 0),
	}, nil
}

// SetItem sets the quantity of productID, adding the item when missing.
// The quantity replaces any previous one.
func (c *Cart) SetItem(productID uuid.UUID, quantity int) (*CartItem, error) {
	if c.CheckedOut {
		return nil, ErrCartCheckedOut
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be greater than 0")
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			c.Touch()
			return &c.Items[i], nil
		}
	}
	c.Items = append(c.Items, CartItem{
		ID:        uuid.New(),
		CartID:    c.ID,
		ProductID: productID,
		Quantity:  quantity,
	})
	c.Touch()
	return &c.Items[len(c.Items)-1], nil
}

// RemoveItem removes productID from the cart
func (c *Cart) RemoveItem(productID uuid.UUID) (*CartItem, error) {
	if c.CheckedOut {
		return nil, ErrCartCheckedOut
	}
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.Touch()
			return &item, nil
		}
	}
	return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Product %s not found in cart", productID))
}

// FindItem returns the item for productID, or nil
func (c *Cart) FindItem(productID uuid.UUID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// IsEmpty reports whether the cart has no items
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// TotalQuantity returns the number of units across all items
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Checkout freezes the cart
func (c *Cart) Checkout() error {
	if c.IsEmpty() {
		return shared.NewDomainError("EMPTY_CART", "Cannot checkout an empty cart")
	}
	if c.CheckedOut {
		return ErrCartCheckedOut
	}
	c.CheckedOut = true
	c.Touch()
	c.AddDomainEvent(NewCartCheckedOutEvent(c))
	return nil
}

// Cart errors
var (
	// ErrCartCheckedOut is returned when a frozen cart is modified
	ErrCartCheckedOut = shared.NewDomainError("CART_CHECKED_OUT", "Cart is already checked out")
	// ErrCartModified is returned when a cart changed between read and save
	ErrCartModified = shared.NewDomainError("CONFLICT", "Cart was modified by another request, reload it and try again")
)
