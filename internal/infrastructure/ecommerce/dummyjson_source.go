// Package ecommerce fetches product catalogues from external storefront feeds.
package ecommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	catalogapp "github.com/ecommerce/backend/internal/application/catalog"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Limit for response size (10MB)
const maxResponseSize = 10 * 1024 * 1024

// DefaultDummyJSONURL lists 100 demo products
const DefaultDummyJSONURL = "https://dummyjson.com/products?limit=100"

var (
	// ErrFeedUnavailable indicates the feed could not be reached
	ErrFeedUnavailable = errors.New("ecommerce: product feed unavailable")
	// ErrFeedRequestFailed indicates the feed answered with an error status
	ErrFeedRequestFailed = errors.New("ecommerce: product feed request failed")
)

// dummyJSONProduct is one entry of the DummyJSON products feed
type dummyJSONProduct struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Thumbnail   string          `json:"thumbnail"`
	Category    string          `json:"category"`
}

type dummyJSONResponse struct {
	Products []dummyJSONProduct `json:"products"`
	Total    int                `json:"total"`
}

// DummyJSONSource reads products from a DummyJSON compatible endpoint
type DummyJSONSource struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDummyJSONSource creates a source for url. Zero timeout means 15s.
func NewDummyJSONSource(url string, timeout time.Duration, logger *zap.Logger) *DummyJSONSource {
	if url == "" {
		url = DefaultDummyJSONURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DummyJSONSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchProducts downloads and converts the feed
func (s *DummyJSONSource) FetchProducts(ctx context.Context) ([]catalogapp.ExternalProduct, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("ecommerce: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("ecommerce: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFeedRequestFailed, resp.StatusCode)
	}

	var payload dummyJSONResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("ecommerce: failed to decode product feed: %w", err)
	}

	products := make([]catalogapp.ExternalProduct, 0, len(payload.Products))
	for _, p := range payload.Products {
		if strings.TrimSpace(p.Title) == "" {
			continue
		}
		products = append(products, catalogapp.ExternalProduct{
			Name:        strings.TrimSpace(p.Title),
			Description: p.Description,
			Price:       p.Price,
			Stock:       max(p.Stock, 0),
			ImageURL:    p.Thumbnail,
			Category:    humanizeCategory(p.Category),
		})
	}

	s.logger.Info("Fetched external product feed",
		zap.String("url", s.url),
		zap.Int("products", len(products)))
	return products, nil
}

// humanizeCategory turns feed slugs like "home-decoration" into "home decoration"
func humanizeCategory(slug string) string {
	return strings.TrimSpace(strings.ReplaceAll(slug, "-", " "))
}

var _ catalogapp.ProductSource = (*DummyJSONSource)(nil)
