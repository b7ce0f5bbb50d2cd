package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	catalogapp "github.com/ecommerce/backend/internal/application/catalog"
	"github.com/ecommerce/backend/internal/domain/identity"
	"github.com/ecommerce/backend/internal/infrastructure/persistence"
	"github.com/ecommerce/backend/internal/infrastructure/storage"
	"github.com/ecommerce/backend/internal/interfaces/http/dto"
	"github.com/ecommerce/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pngHeader is enough for content sniffing to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubProductSource struct {
	products []catalogapp.ExternalProduct
	err      error
}

func (s *stubProductSource) FetchProducts(context.Context) ([]catalogapp.ExternalProduct, error) {
	return s.products, s.err
}

type catalogFixture struct {
	env     *testEnv
	engine  *gin.Engine
	storage *storage.MemoryObjectStorage
	admin   string
	client  string
}

func newCatalogFixture(t *testing.T, source catalogapp.ProductSource) *catalogFixture {
	t.Helper()
	env := newTestEnv(t)
	objects := storage.NewMemoryObjectStorage("http://cdn.test/static")
	categoryRepo := persistence.NewGormCategoryRepository(env.db)

	products := NewProductHandler(catalogapp.NewProductService(env.products, categoryRepo, objects, source, zap.NewNop()))
	categories := NewCategoryHandler(catalogapp.NewCategoryService(categoryRepo))

	r := gin.New()
	r.GET("/products", products.List)
	r.GET("/products/:id", products.GetByID)
	r.GET("/categories", categories.List)
	r.GET("/categories/:id", categories.GetByID)

	admin := r.Group("", env.authenticated(), middleware.RequireRoles(identity.RoleAdmin))
	admin.POST("/products", products.Create)
	admin.PATCH("/products/:id", products.Update)
	admin.DELETE("/products/:id", products.Delete)
	admin.POST("/products/:id/image", products.UploadImage)
	admin.POST("/products/import", products.Import)
	admin.POST("/categories", categories.Create)
	admin.PATCH("/categories/:id", categories.Update)
	admin.DELETE("/categories/:id", categories.Delete)

	return &catalogFixture{
		env:     env,
		engine:  r,
		storage: objects,
		admin:   env.tokenFor(t, env.seedUser(t, "admin@example.com", identity.RoleAdmin)),
		client:  env.tokenFor(t, env.seedUser(t, "client@example.com", identity.RoleClient)),
	}
}

func TestProductHandler_CreateRequiresAdmin(t *testing.T) {
	f := newCatalogFixture(t, nil)
	body := catalogapp.CreateProductRequest{Name: "Mug", Price: decimal.RequireFromString("9.50"), Stock: 3}

	w := doRequest(t, f.engine, http.MethodPost, "/products", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, f.engine, http.MethodPost, "/products", f.client, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, f.engine, http.MethodPost, "/products", f.admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created catalogapp.ProductResponse
	decodeData(t, w, &created)
	assert.Equal(t, "Mug", created.Name)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("9.50")))
	assert.True(t, created.Available)
}

func TestProductHandler_CreateWithCategories(t *testing.T) {
	f := newCatalogFixture(t, nil)

	w := doRequest(t, f.engine, http.MethodPost, "/categories", f.admin, catalogapp.CreateCategoryRequest{Name: "Kitchen"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var category catalogapp.CategoryResponse
	decodeData(t, w, &category)

	w = doRequest(t, f.engine, http.MethodPost, "/products", f.admin, catalogapp.CreateProductRequest{
		Name:        "Kettle",
		Price:       decimal.RequireFromString("30"),
		Stock:       1,
		CategoryIDs: []uuid.UUID{category.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product catalogapp.ProductResponse
	decodeData(t, w, &product)
	require.Len(t, product.Categories, 1)
	assert.Equal(t, "Kitchen", product.Categories[0].Name)

	w = doRequest(t, f.engine, http.MethodGet, "/categories/"+category.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched catalogapp.CategoryResponse
	decodeData(t, w, &fetched)
	require.NotNil(t, fetched.ProductCount)
	assert.Equal(t, int64(1), *fetched.ProductCount)

	w = doRequest(t, f.engine, http.MethodPost, "/products", f.admin, catalogapp.CreateProductRequest{
		Name:        "Toaster",
		Price:       decimal.RequireFromString("25"),
		CategoryIDs: []uuid.UUID{uuid.New()},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandler_CreateValidation(t *testing.T) {
	f := newCatalogFixture(t, nil)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing name", body: map[string]any{"price": "10"}},
		{name: "negative stock", body: map[string]any{"name": "Mug", "price": "10", "stock": -1}},
		{name: "negative price", body: map[string]any{"name": "Mug", "price": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, f.engine, http.MethodPost, "/products", f.admin, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.False(t, decodeEnvelope(t, w).Success)
		})
	}
}

func TestProductHandler_GetByID(t *testing.T) {
	f := newCatalogFixture(t, nil)
	product := f.env.seedProduct(t, "Lamp", "45.00", 4)

	w := doRequest(t, f.engine, http.MethodGet, "/products/"+product.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got catalogapp.ProductResponse
	decodeData(t, w, &got)
	assert.Equal(t, product.ID, got.ID)
	assert.Equal(t, 4, got.Stock)

	w = doRequest(t, f.engine, http.MethodGet, "/products/"+uuid.New().String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, decodeEnvelope(t, w).Error.Code)

	w = doRequest(t, f.engine, http.MethodGet, "/products/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductHandler_List(t *testing.T) {
	f := newCatalogFixture(t, nil)
	f.env.seedProduct(t, "Red Lamp", "45.00", 4)
	f.env.seedProduct(t, "Blue Lamp", "40.00", 0)
	f.env.seedProduct(t, "Chair", "80.00", 2)

	w := doRequest(t, f.engine, http.MethodGet, "/products?page_size=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(3), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)

	w = doRequest(t, f.engine, http.MethodGet, "/products?search=lamp&available=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lamps []catalogapp.ProductResponse
	decodeData(t, w, &lamps)
	require.Len(t, lamps, 1)
	assert.Equal(t, "Red Lamp", lamps[0].Name)

	w = doRequest(t, f.engine, http.MethodGet, "/products?page_size=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductHandler_UpdateAndDelete(t *testing.T) {
	f := newCatalogFixture(t, nil)
	product := f.env.seedProduct(t, "Desk", "120.00", 1)
	path := "/products/" + product.ID.String()

	w := doRequest(t, f.engine, http.MethodPatch, path, f.admin, map[string]any{"stock": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated catalogapp.ProductResponse
	decodeData(t, w, &updated)
	assert.Equal(t, 0, updated.Stock)
	assert.False(t, updated.Available)

	w = doRequest(t, f.engine, http.MethodDelete, path, f.admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, f.engine, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func uploadImage(t *testing.T, engine http.Handler, path, token, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if data != nil {
		part, err := writer.CreateFormFile(ImageFormField, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestProductHandler_UploadImage(t *testing.T) {
	f := newCatalogFixture(t, nil)
	product := f.env.seedProduct(t, "Vase", "15.00", 2)
	path := "/products/" + product.ID.String() + "/image"

	w := uploadImage(t, f.engine, path, f.admin, "../../vase.png", pngHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated catalogapp.ProductResponse
	decodeData(t, w, &updated)
	require.NotEmpty(t, updated.ImageURL)

	key := f.storage.KeyFromURL(updated.ImageURL)
	require.NotEmpty(t, key)
	assert.NotContains(t, key, "..")
	stored, contentType, ok := f.storage.Get(key)
	require.True(t, ok)
	assert.Equal(t, pngHeader, stored)
	assert.Equal(t, "image/png", contentType)

	t.Run("missing file", func(t *testing.T) {
		w := uploadImage(t, f.engine, path, f.admin, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects non images", func(t *testing.T) {
		w := uploadImage(t, f.engine, path, f.admin, "notes.txt", []byte("plain text, not an image"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_FILE_TYPE", decodeEnvelope(t, w).Error.Code)
	})

	t.Run("clients cannot upload", func(t *testing.T) {
		w := uploadImage(t, f.engine, path, f.client, "vase.png", pngHeader)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestProductHandler_Import(t *testing.T) {
	source := &stubProductSource{products: []catalogapp.ExternalProduct{
		{Name: "Phone", Price: decimal.RequireFromString("500"), Stock: 5, Category: "smartphones"},
		{Name: "Laptop", Price: decimal.RequireFromString("1200"), Stock: 2, Category: "laptops"},
		{Name: "Existing", Price: decimal.RequireFromString("10"), Stock: 1, Category: "misc"},
	}}
	f := newCatalogFixture(t, source)
	f.env.seedProduct(t, "Existing", "10", 1)

	w := doRequest(t, f.engine, http.MethodPost, "/products/import", f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result catalogapp.ImportResult
	decodeData(t, w, &result)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 2, result.CategoriesCreated)

	source.err = errors.New("upstream timeout")
	w = doRequest(t, f.engine, http.MethodPost, "/products/import", f.admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "IMPORT_FAILED", decodeEnvelope(t, w).Error.Code)
}

func TestProductHandler_ImportDisabled(t *testing.T) {
	f := newCatalogFixture(t, nil)

	w := doRequest(t, f.engine, http.MethodPost, "/products/import", f.admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "IMPORT_DISABLED", decodeEnvelope(t, w).Error.Code)
}

func TestCategoryHandler_DuplicateName(t *testing.T) {
	f := newCatalogFixture(t, nil)

	w := doRequest(t, f.engine, http.MethodPost, "/categories", f.admin, catalogapp.CreateCategoryRequest{Name: "Garden"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, f.engine, http.MethodPost, "/categories", f.admin, catalogapp.CreateCategoryRequest{Name: "Garden"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeAlreadyExists, decodeEnvelope(t, w).Error.Code)

	w = doRequest(t, f.engine, http.MethodGet, "/categories?search=gard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []catalogapp.CategoryResponse
	decodeData(t, w, &list)
	assert.Len(t, list, 1)
}
