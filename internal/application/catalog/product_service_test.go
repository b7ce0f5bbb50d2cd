package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type productFixture struct {
	products   *MockProductRepository
	categories *MockCategoryRepository
	storage    *MockObjectStorage
	source     *MockProductSource
	service    *ProductService
}

func newProductFixture() *productFixture {
	f := &productFixture{
		products:   new(MockProductRepository),
		categories: new(MockCategoryRepository),
		storage:    new(MockObjectStorage),
		source:     new(MockProductSource),
	}
	f.service = NewProductService(f.products, f.categories, f.storage, f.source, zap.NewNop())
	return f
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	phones := newTestCategory("Phones")

	f.categories.On("FindByIDs", ctx, []uuid.UUID{phones.ID}).Return([]catalog.Category{phones}, nil)
	f.products.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

	resp, err := f.service.Create(ctx, CreateProductRequest{
		Name:        "Pixel",
		Price:       decimal.RequireFromString("499.999"),
		Stock:       3,
		CategoryIDs: []uuid.UUID{phones.ID, phones.ID},
	})
	require.NoError(t, err)
	assert.True(t, resp.Available)
	assert.True(t, decimal.NewFromInt(500).Equal(resp.Price), resp.Price.String())
	require.Len(t, resp.Categories, 1)
	assert.Equal(t, "Phones", resp.Categories[0].Name)
}

func TestProductService_Create_OutOfStockIsUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	f.products.On("Save", ctx, mock.Anything).Return(nil)

	resp, err := f.service.Create(ctx, CreateProductRequest{Name: "Ghost", Price: decimal.NewFromInt(1), Stock: 0})
	require.NoError(t, err)
	assert.False(t, resp.Available)
	f.categories.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
}

func TestProductService_Create_UnknownCategory(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	missing := uuid.New()
	f.categories.On("FindByIDs", ctx, []uuid.UUID{missing}).Return([]catalog.Category{}, nil)

	_, err := f.service.Create(ctx, CreateProductRequest{Name: "X", Price: decimal.NewFromInt(1), Stock: 1, CategoryIDs: []uuid.UUID{missing}})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	f.products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProductService_Update_StockDrivesAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("stock to zero", func(t *testing.T) {
		f := newProductFixture()
		p := newTestProduct("Lamp", "10", 4)
		f.products.On("FindByID", ctx, p.ID).Return(p, nil)
		f.products.On("Save", ctx, p).Return(nil)

		zero := 0
		resp, err := f.service.Update(ctx, p.ID, UpdateProductRequest{Stock: &zero})
		require.NoError(t, err)
		assert.False(t, resp.Available)
	})

	t.Run("explicit availability wins", func(t *testing.T) {
		f := newProductFixture()
		p := newTestProduct("Lamp", "10", 4)
		f.products.On("FindByID", ctx, p.ID).Return(p, nil)
		f.products.On("Save", ctx, p).Return(nil)

		stock, available := 9, false
		resp, err := f.service.Update(ctx, p.ID, UpdateProductRequest{Stock: &stock, Available: &available})
		require.NoError(t, err)
		assert.Equal(t, 9, resp.Stock)
		assert.False(t, resp.Available)
	})
}

func TestProductService_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	id := uuid.New()
	f.products.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

	_, err := f.service.Update(ctx, id, UpdateProductRequest{})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestProductService_UploadImage(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	p := newTestProduct("Camera", "250", 2)
	p.ImageURL = "https://cdn.example/products/old.png"

	f.products.On("FindByID", ctx, p.ID).Return(p, nil)
	f.storage.On("Upload", ctx, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "products/"+p.ID.String()+"/") && strings.HasSuffix(key, "-front-view.png")
	}), []byte("png-bytes"), "image/png").Return("https://cdn.example/products/new.png", nil)
	f.products.On("Save", ctx, p).Return(nil)
	f.storage.On("KeyFromURL", "https://cdn.example/products/old.png").Return("products/old.png")
	f.storage.On("DeleteObject", ctx, "products/old.png").Return(nil)

	resp, err := f.service.UploadImage(ctx, p.ID, ImageUpload{
		Filename:    "Front View.PNG",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/products/new.png", resp.ImageURL)
	f.storage.AssertExpectations(t)
}

func TestProductService_UploadImage_Rejected(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	id := uuid.New()

	_, err := f.service.UploadImage(ctx, id, ImageUpload{ContentType: "image/svg+xml", Data: []byte("<svg/>")})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_FILE_TYPE", domainErr.Code)

	_, err = f.service.UploadImage(ctx, id, ImageUpload{ContentType: "image/png", Data: make([]byte, MaxImageSize+1)})
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FILE_TOO_LARGE", domainErr.Code)
	f.products.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestProductService_Import(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	existing := newTestCategory("beauty")

	f.source.On("FetchProducts", ctx).Return([]ExternalProduct{
		{Name: "Mascara", Price: decimal.RequireFromString("9.99"), Stock: 5, Category: "beauty", ImageURL: "https://cdn/1.png"},
		{Name: "Lipstick", Price: decimal.RequireFromString("4.50"), Stock: 0, Category: "Beauty"},
		{Name: "Lamp", Price: decimal.NewFromInt(30), Stock: 2, Category: "home decoration"},
		{Name: "Old Lamp", Price: decimal.NewFromInt(5), Stock: 1, Category: "home decoration"},
		{Name: "Broken", Price: decimal.NewFromInt(-1), Stock: 1},
	}, nil)
	f.products.On("ExistsByName", ctx, "Old Lamp").Return(true, nil)
	f.products.On("ExistsByName", ctx, mock.Anything).Return(false, nil)
	f.categories.On("FindByName", ctx, "beauty").Return(&existing, nil)
	f.categories.On("FindByName", ctx, "home decoration").Return(nil, shared.ErrNotFound)
	f.categories.On("Save", ctx, mock.AnythingOfType("*catalog.Category")).Return(nil)
	f.products.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

	result, err := f.service.Import(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 1, result.CategoriesCreated)
	f.categories.AssertNumberOfCalls(t, "FindByName", 2)
}

func TestProductService_Import_FeedFailure(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	f.source.On("FetchProducts", ctx).Return(nil, errors.New("timeout"))

	_, err := f.service.Import(ctx)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "IMPORT_FAILED", domainErr.Code)
}

func TestProductService_Delete_RemovesUploadedImage(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	p := newTestProduct("Mug", "8", 1)
	p.ImageURL = "https://cdn.example/products/mug.png"

	f.products.On("FindByID", ctx, p.ID).Return(p, nil)
	f.products.On("Delete", ctx, p.ID).Return(nil)
	f.storage.On("KeyFromURL", p.ImageURL).Return("products/mug.png")
	f.storage.On("DeleteObject", ctx, "products/mug.png").Return(nil)

	require.NoError(t, f.service.Delete(ctx, p.ID))
	f.storage.AssertExpectations(t)
}

func TestProductService_Delete_ReferencedByOrders(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	p := newTestProduct("Mug", "8", 1)
	f.products.On("FindByID", ctx, p.ID).Return(p, nil)
	f.products.On("Delete", ctx, p.ID).Return(shared.NewDomainError("CONFLICT", "Product is referenced by orders"))

	err := f.service.Delete(ctx, p.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestImageKey(t *testing.T) {
	id := uuid.MustParse("3f1b1f0e-8a2b-4c3d-9e4f-5a6b7c8d9e0f")
	key := imageKey(id, "../../etc/My Photo!.jpeg", ".jpg")
	assert.True(t, strings.HasPrefix(key, "products/3f1b1f0e-8a2b-4c3d-9e4f-5a6b7c8d9e0f/"))
	assert.True(t, strings.HasSuffix(key, "-my-photo.jpg"), key)
	assert.NotContains(t, key, "..")

	assert.True(t, strings.HasSuffix(imageKey(id, "", ".png"), "-image.png"))
}
