package catalog

import (
	"fmt"
	"strings"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LowStockThreshold marks products with this many units or fewer as running low
const LowStockThreshold = 5

// Product is a sellable item. It is the aggregate root for catalog and stock operations.
type Product struct {
	shared.BaseAggregateRoot
	Name        string          `gorm:"type:varchar(200);not null;index" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	Available   bool            `gorm:"not null" json:"available"`
	ImageURL    string          `gorm:"type:varchar(500)" json:"image_url"`
	Categories  []Category      `gorm:"many2many:product_categories;constraint:OnDelete:CASCADE" json:"categories"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a product. It is available whenever it has stock.
func NewProduct(name, description string, price decimal.Decimal, stock int) (*Product, error) {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := shared.ValidateNonNegative("Price", price); err != nil {
		return nil, err
	}
	if stock < 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Stock cannot be negative")
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Description:       strings.TrimSpace(description),
		Price:             shared.RoundMoney(price),
		Stock:             stock,
		Available:         stock > 0,
		Categories:        make([]Category, 0),
	}
	product.AddDomainEvent(NewProductChangedEvent(EventTypeProductCreated, product))

	return product, nil
}

// ProductUpdate carries optional product changes
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Available   *bool
	ImageURL    *string
}

// Apply applies the changes. When stock changes and availability is not
// given explicitly, availability follows stock.
func (p *Product) Apply(u ProductUpdate) error {
	if u.Name != nil {
		n := strings.TrimSpace(*u.Name)
		if err := validateProductName(n); err != nil {
			return err
		}
		p.Name = n
	}
	if u.Description != nil {
		p.Description = strings.TrimSpace(*u.Description)
	}
	if u.Price != nil {
		if err := shared.ValidateNonNegative("Price", *u.Price); err != nil {
			return err
		}
		p.Price = shared.RoundMoney(*u.Price)
	}
	if u.Stock != nil {
		if *u.Stock < 0 {
			return shared.NewDomainError("INVALID_INPUT", "Stock cannot be negative")
		}
		p.Stock = *u.Stock
		if u.Available == nil {
			p.Available = p.Stock > 0
		}
	}
	if u.Available != nil {
		p.Available = *u.Available
	}
	if u.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*u.ImageURL)
	}
	p.Touch()
	p.AddDomainEvent(NewProductChangedEvent(EventTypeProductUpdated, p))
	return nil
}

// SetCategories replaces the product's categories
func (p *Product) SetCategories(categories []Category) {
	p.Categories = categories
	p.Touch()
}

// CategoryIDs returns the IDs of the attached categories
func (p *Product) CategoryIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Categories))
	for _, c := range p.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// CategoryNames returns the names of the attached categories
func (p *Product) CategoryNames() []string {
	names := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		names = append(names, c.Name)
	}
	return names
}

// IsPurchasable reports whether the product can be sold right now
func (p *Product) IsPurchasable() bool {
	return p.Available && p.Stock > 0
}

// CheckPurchasable verifies that quantity units can be sold
func (p *Product) CheckPurchasable(quantity int) error {
	if !p.Available {
		return shared.NewDomainError("PRODUCT_UNAVAILABLE", fmt.Sprintf("Product %q is not available", p.Name))
	}
	if p.Stock < quantity {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Product %q has insufficient stock. Available: %d, Requested: %d", p.Name, p.Stock, quantity))
	}
	return nil
}

// DeductStock removes quantity units. Availability drops when stock runs out.
func (p *Product) DeductStock(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Quantity must be greater than 0")
	}
	if err := p.CheckPurchasable(quantity); err != nil {
		return err
	}
	p.Stock -= quantity
	if p.Stock == 0 {
		p.Available = false
	}
	p.Touch()
	return nil
}

// RestoreStock puts quantity units back, e.g. when an order is cancelled
func (p *Product) RestoreStock(quantity int) {
	if quantity <= 0 {
		return
	}
	wasEmpty := p.Stock == 0
	p.Stock += quantity
	if wasEmpty {
		p.Available = true
	}
	p.Touch()
}

// StockInfo summarizes stock for display
type StockInfo struct {
	Quantity  int  `json:"quantity"`
	LowStock  bool `json:"low_stock"`
	Available bool `json:"available"`
}

// StockInfo returns the product's stock summary
func (p *Product) StockInfo() StockInfo {
	return StockInfo{
		Quantity:  p.Stock,
		LowStock:  p.Stock <= LowStockThreshold,
		Available: p.IsPurchasable(),
	}
}

// Features returns the short feature list shown in product comparisons
func (p *Product) Features() []string {
	availability := "Not available"
	if p.Available {
		availability = "Available"
	}
	return []string{
		fmt.Sprintf("Stock: %d units", p.Stock),
		availability,
		"Categories: " + strings.Join(p.CategoryNames(), ", "),
	}
}

func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
