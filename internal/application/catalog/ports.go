package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// ObjectStorage stores product images and serves them by URL
type ObjectStorage interface {
	// Upload stores data under key and returns its public URL
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	DeleteObject(ctx context.Context, key string) error
	// KeyFromURL returns the key of an uploaded object, or "" for foreign URLs
	KeyFromURL(url string) string
}

// ExternalProduct is a product read from an external catalogue feed
type ExternalProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    string
	Category    string
}

// ProductSource fetches an external product catalogue
type ProductSource interface {
	FetchProducts(ctx context.Context) ([]ExternalProduct, error)
}
