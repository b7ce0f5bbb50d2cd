package catalog

import (
	"context"
	"strings"

	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultRecommendationLimit is the number of related products suggested
const DefaultRecommendationLimit = 5

// FindByQuery returns the first product whose name or description contains
// query, or nil when nothing matches
func (s *ProductService) FindByQuery(ctx context.Context, query string) (*catalog.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	product, err := s.productRepo.FindFirstMatching(ctx, query)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return product, nil
}

// StockInfo returns the stock summary of a product
func (s *ProductService) StockInfo(ctx context.Context, id uuid.UUID) (*StockResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StockResponse{ProductID: product.ID, Name: product.Name, StockInfo: product.StockInfo()}, nil
}

// Recommendations returns available products sharing a category with the product
func (s *ProductService) Recommendations(ctx context.Context, id uuid.UUID, limit int) ([]ProductResponse, error) {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	related, err := s.productRepo.FindRelated(ctx, product.ID, product.CategoryIDs(), limit)
	if err != nil {
		return nil, err
	}
	return ToProductResponses(related), nil
}

// WarrantyInfo returns the warranty that applies to a product
func (s *ProductService) WarrantyInfo(ctx context.Context, id uuid.UUID) (*WarrantyResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WarrantyResponse{
		ProductID:   product.ID,
		ProductName: product.Name,
		Warranty:    catalog.StandardWarranty(),
	}, nil
}

// Compare returns comparison columns for the given products in request order.
// Unknown ids are left out.
func (s *ProductService) Compare(ctx context.Context, ids []uuid.UUID) ([]ComparisonItem, error) {
	if len(ids) == 0 {
		return []ComparisonItem{}, nil
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	items := make([]ComparisonItem, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			items = append(items, ToComparisonItem(p))
			delete(byID, id)
		}
	}
	return items, nil
}
