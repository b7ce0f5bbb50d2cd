package catalog

import (
	"context"
	"testing"

	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductService_FindByQuery(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	p := newTestProduct("Gaming Mouse", "40", 3)
	f.products.On("FindFirstMatching", ctx, "mouse").Return(p, nil)
	f.products.On("FindFirstMatching", ctx, "keyboard").Return(nil, shared.ErrNotFound)

	found, err := f.service.FindByQuery(ctx, " mouse ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	found, err = f.service.FindByQuery(ctx, "keyboard")
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = f.service.FindByQuery(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestProductService_StockInfo(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	low := newTestProduct("Cable", "5", 5)
	plenty := newTestProduct("Charger", "15", 6)
	f.products.On("FindByID", ctx, low.ID).Return(low, nil)
	f.products.On("FindByID", ctx, plenty.ID).Return(plenty, nil)

	info, err := f.service.StockInfo(ctx, low.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, info.Quantity)
	assert.True(t, info.LowStock)
	assert.True(t, info.Available)

	info, err = f.service.StockInfo(ctx, plenty.ID)
	require.NoError(t, err)
	assert.False(t, info.LowStock)
}

func TestProductService_Recommendations(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	audio := newTestCategory("Audio")
	p := newTestProduct("Headphones", "80", 2, audio)
	other := newTestProduct("Speaker", "60", 4, audio)

	f.products.On("FindByID", ctx, p.ID).Return(p, nil)
	f.products.On("FindRelated", ctx, p.ID, []uuid.UUID{audio.ID}, DefaultRecommendationLimit).
		Return([]catalog.Product{*other}, nil)

	recs, err := f.service.Recommendations(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Speaker", recs[0].Name)
}

func TestProductService_WarrantyInfo(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	p := newTestProduct("Laptop", "999", 1)
	f.products.On("FindByID", ctx, p.ID).Return(p, nil)

	info, err := f.service.WarrantyInfo(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", info.ProductName)
	assert.Equal(t, "12 months", info.Warranty.Duration)
	assert.Equal(t, "Manufacturer warranty", info.Warranty.Type)
	assert.Len(t, info.Warranty.Coverage, 3)
}

func TestProductService_Compare_KeepsRequestOrder(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture()
	tv := newTestCategory("TV")
	a := newTestProduct("OLED 55", "1200", 0, tv)
	b := newTestProduct("LED 50", "600", 8, tv)
	missing := uuid.New()
	ids := []uuid.UUID{a.ID, missing, b.ID}

	f.products.On("FindByIDs", ctx, ids).Return([]catalog.Product{*b, *a}, nil)

	items, err := f.service.Compare(ctx, ids)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "OLED 55", items[0].Name)
	assert.Equal(t, []string{"Stock: 0 units", "Not available", "Categories: TV"}, items[0].Features)
	assert.Equal(t, []string{"Stock: 8 units", "Available", "Categories: TV"}, items[1].Features)
}
