package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageSize is the largest accepted product image (5MB)
const MaxImageSize = 5 * 1024 * 1024

// AllowedImageTypes maps accepted image content types to file extensions.
// SVG is excluded since it can carry scripts.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ErrCategoriesNotFound is returned when a product references unknown categories
var ErrCategoriesNotFound = shared.NewDomainError("NOT_FOUND", "One or more categories do not exist")

// ProductService handles product-related business operations
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
	storage      ObjectStorage
	source       ProductSource
	logger       *zap.Logger
}

// NewProductService creates a new ProductService.
// storage and source may be nil, which disables image upload and import.
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	storage ObjectStorage,
	source ProductSource,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		storage:      storage,
		source:       source,
		logger:       logger,
	}
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	product, err := catalog.NewProduct(req.Name, req.Description, req.Price, req.Stock)
	if err != nil {
		return nil, err
	}
	if req.ImageURL != "" {
		imageURL := req.ImageURL
		if err := product.Apply(catalog.ProductUpdate{ImageURL: &imageURL}); err != nil {
			return nil, err
		}
	}

	categories, err := s.loadCategories(ctx, req.CategoryIDs)
	if err != nil {
		return nil, err
	}
	product.SetCategories(categories)

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	response := ToProductResponse(product)
	return &response, nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// List retrieves a paginated list of products
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) ([]ProductResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := catalog.ProductFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   strings.TrimSpace(filter.Search),
		},
		CategoryID: filter.CategoryID,
		Available:  filter.Available,
	}

	products, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToProductResponses(products), total, nil
}

// Update updates a product
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := product.Apply(catalog.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Available:   req.Available,
		ImageURL:    req.ImageURL,
	}); err != nil {
		return nil, err
	}

	if req.CategoryIDs != nil {
		categories, err := s.loadCategories(ctx, *req.CategoryIDs)
		if err != nil {
			return nil, err
		}
		product.SetCategories(categories)
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	response := ToProductResponse(product)
	return &response, nil
}

// Delete deletes a product. Products referenced by orders cannot be deleted.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeImage(ctx, product.ImageURL)
	return nil
}

// UploadImage stores a new product image and points the product at it.
// The previous image is removed when it was uploaded here.
func (s *ProductService) UploadImage(ctx context.Context, id uuid.UUID, upload ImageUpload) (*ProductResponse, error) {
	if s.storage == nil {
		return nil, shared.NewDomainError("STORAGE_DISABLED", "Image storage is not configured")
	}
	ext, ok := AllowedImageTypes[strings.ToLower(upload.ContentType)]
	if !ok {
		return nil, shared.NewDomainError("INVALID_FILE_TYPE",
			fmt.Sprintf("Content type %q is not allowed", upload.ContentType))
	}
	if len(upload.Data) == 0 {
		return nil, shared.NewDomainError("INVALID_FILE", "Image is empty")
	}
	if len(upload.Data) > MaxImageSize {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "Image cannot exceed 5MB")
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := imageKey(product.ID, upload.Filename, ext)
	url, err := s.storage.Upload(ctx, key, upload.Data, upload.ContentType)
	if err != nil {
		s.logger.Error("Failed to upload product image",
			zap.String("product_id", id.String()),
			zap.Error(err))
		return nil, shared.WrapDomainError("UPLOAD_FAILED", "Failed to store image", err)
	}

	previous := product.ImageURL
	if err := product.Apply(catalog.ProductUpdate{ImageURL: &url}); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		s.removeImage(ctx, url)
		return nil, err
	}
	s.removeImage(ctx, previous)

	s.logger.Info("Product image uploaded",
		zap.String("product_id", id.String()),
		zap.String("key", key))

	response := ToProductResponse(product)
	return &response, nil
}

// Import copies an external catalogue. Missing categories are created and
// products whose name already exists are skipped.
func (s *ProductService) Import(ctx context.Context) (*ImportResult, error) {
	if s.source == nil {
		return nil, shared.NewDomainError("IMPORT_DISABLED", "Product import is not configured")
	}

	external, err := s.source.FetchProducts(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch external products", zap.Error(err))
		return nil, shared.WrapDomainError("IMPORT_FAILED", "Failed to fetch external products", err)
	}

	result := &ImportResult{}
	categories := make(map[string]*catalog.Category)
	for _, item := range external {
		exists, err := s.productRepo.ExistsByName(ctx, item.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			result.Skipped++
			continue
		}

		product, err := catalog.NewProduct(item.Name, item.Description, item.Price, item.Stock)
		if err != nil {
			s.logger.Warn("Skipping invalid external product",
				zap.String("name", item.Name),
				zap.Error(err))
			result.Skipped++
			continue
		}
		if item.ImageURL != "" {
			imageURL := item.ImageURL
			_ = product.Apply(catalog.ProductUpdate{ImageURL: &imageURL})
		}

		if name := strings.TrimSpace(item.Category); name != "" {
			category, created, err := s.findOrCreateCategory(ctx, categories, name)
			if err != nil {
				return nil, err
			}
			if created {
				result.CategoriesCreated++
			}
			product.SetCategories([]catalog.Category{*category})
		}

		if err := s.productRepo.Save(ctx, product); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				result.Skipped++
				continue
			}
			return nil, err
		}
		result.Imported++
	}

	s.logger.Info("External products imported",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("categories_created", result.CategoriesCreated))
	return result, nil
}

func (s *ProductService) findOrCreateCategory(
	ctx context.Context,
	cache map[string]*catalog.Category,
	name string,
) (*catalog.Category, bool, error) {
	key := strings.ToLower(name)
	if c, ok := cache[key]; ok {
		return c, false, nil
	}

	category, err := s.categoryRepo.FindByName(ctx, name)
	if err == nil {
		cache[key] = category
		return category, false, nil
	}
	if !shared.IsNotFound(err) {
		return nil, false, err
	}

	category, err = catalog.NewCategory(name, "")
	if err != nil {
		return nil, false, err
	}
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, false, err
	}
	cache[key] = category
	return category, true, nil
}

// loadCategories resolves category ids, failing when any is unknown
func (s *ProductService) loadCategories(ctx context.Context, ids []uuid.UUID) ([]catalog.Category, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return []catalog.Category{}, nil
	}

	categories, err := s.categoryRepo.FindByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(categories) != len(unique) {
		return nil, ErrCategoriesNotFound
	}
	return categories, nil
}

func (s *ProductService) removeImage(ctx context.Context, url string) {
	if s.storage == nil || url == "" {
		return
	}
	key := s.storage.KeyFromURL(url)
	if key == "" {
		return
	}
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		s.logger.Warn("Failed to delete product image", zap.String("key", key), zap.Error(err))
	}
}

func imageKey(productID uuid.UUID, filename, ext string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, base)
	base = strings.Trim(base, "-")
	if base == "" || base == "." {
		base = "image"
	}
	return fmt.Sprintf("products/%s/%s-%s%s", productID, uuid.NewString()[:8], base, ext)
}
