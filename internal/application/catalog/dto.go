package catalog

import (
	"time"

	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=2000"`
}

// UpdateCategoryRequest represents a request to update a category
type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ProductCount *int64    `json:"productCount,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CategoryRef is the short form of a category embedded in products
type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CategoryListFilter represents filter options for category list
type CategoryListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"min=0"`
	PageSize int    `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=200"`
	Description string          `json:"description" binding:"max=5000"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Stock       int             `json:"stock" binding:"min=0"`
	ImageURL    string          `json:"imageUrl" binding:"omitempty,max=500"`
	CategoryIDs []uuid.UUID     `json:"categoryIds"`
}

// UpdateProductRequest represents a request to update a product.
// Available follows stock unless given explicitly.
type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" binding:"omitempty,min=0"`
	Available   *bool            `json:"available"`
	ImageURL    *string          `json:"imageUrl" binding:"omitempty,max=500"`
	CategoryIDs *[]uuid.UUID     `json:"categoryIds"`
}

// ProductListFilter represents filter options for product list
type ProductListFilter struct {
	Search     string     `form:"search"`
	CategoryID *uuid.UUID `form:"category_id"`
	Available  *bool      `form:"available"`
	Page       int        `form:"page" binding:"min=0"`
	PageSize   int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Available   bool            `json:"available"`
	ImageURL    string          `json:"imageUrl"`
	Categories  []CategoryRef   `json:"categories"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ImageUpload is an uploaded product image
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImportResult reports the outcome of an external catalogue import
type ImportResult struct {
	Imported          int `json:"imported"`
	Skipped           int `json:"skipped"`
	CategoriesCreated int `json:"categoriesCreated"`
}

// StockResponse is the stock summary of one product
type StockResponse struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	catalog.StockInfo
}

// WarrantyResponse is the warranty of one product
type WarrantyResponse struct {
	ProductID   uuid.UUID        `json:"productId"`
	ProductName string           `json:"productName"`
	Warranty    catalog.Warranty `json:"warranty"`
}

// ComparisonItem is one column of a product comparison
type ComparisonItem struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Stock       int             `json:"stock"`
	Available   bool            `json:"available"`
	ImageURL    string          `json:"imageUrl"`
	Categories  []string        `json:"categories"`
	Features    []string        `json:"features"`
}

// ToCategoryResponse converts a domain Category to CategoryResponse
func ToCategoryResponse(c *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	categories := make([]CategoryRef, len(p.Categories))
	for i, c := range p.Categories {
		categories[i] = CategoryRef{ID: c.ID, Name: c.Name}
	}
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Available:   p.Available,
		ImageURL:    p.ImageURL,
		Categories:  categories,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of domain Products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	return responses
}

// ToComparisonItem converts a product to a comparison column
func ToComparisonItem(p *catalog.Product) ComparisonItem {
	return ComparisonItem{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Stock:       p.Stock,
		Available:   p.Available,
		ImageURL:    p.ImageURL,
		Categories:  p.CategoryNames(),
		Features:    p.Features(),
	}
}
