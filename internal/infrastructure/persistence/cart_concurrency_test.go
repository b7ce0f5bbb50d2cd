package persistence

import (
	"context"
	"testing"

	apptrade "github.com/ecommerce/backend/internal/application/trade"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// interleavingCartRepository runs afterRead once, right after the first
// FindActiveByUser returns, to commit another write between read and save.
type interleavingCartRepository struct {
	*GormCartRepository
	afterRead func()
}

func (r *interleavingCartRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*trade.Cart, error) {
	cart, err := r.GormCartRepository.FindActiveByUser(ctx, userID)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return cart, err
}

func TestCartService_SetItemCannotReopenCheckedOutCart(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	userID := uuid.New()
	keyboard := seedProduct(t, db, "Keyboard", "49.99", 10)
	mouse := seedProduct(t, db, "Mouse", "19.99", 10)

	plain := apptrade.NewCartService(NewGormCartRepository(db), NewGormProductRepository(db), zap.NewNop())
	_, err := plain.SetItem(ctx, userID, apptrade.SetCartItemRequest{ProductID: keyboard.ID, Quantity: 1})
	require.NoError(t, err)

	racing := &interleavingCartRepository{GormCartRepository: NewGormCartRepository(db)}
	racing.afterRead = func() {
		_, err := plain.Checkout(ctx, userID)
		require.NoError(t, err)
	}
	svc := apptrade.NewCartService(racing, NewGormProductRepository(db), zap.NewNop())

	_, err = svc.SetItem(ctx, userID, apptrade.SetCartItemRequest{ProductID: mouse.ID, Quantity: 3})
	assert.ErrorIs(t, err, trade.ErrCartModified)

	latest, err := NewGormCartRepository(db).FindLatestByUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, latest.CheckedOut, "checkout must stick")
	require.Len(t, latest.Items, 1, "frozen cart contents must not change")
	assert.Equal(t, keyboard.ID, latest.Items[0].ProductID)
	assert.Equal(t, 1, latest.Items[0].Quantity)
}

func TestGormCartRepository_RejectsStaleVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewGormCartRepository(db)
	userID := uuid.New()

	cart, err := trade.NewCart(userID)
	require.NoError(t, err)
	_, err = cart.SetItem(uuid.New(), 1)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, cart))
	assert.Equal(t, 1, cart.Version, "inserting keeps the initial version")

	first, err := repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)

	_, err = first.SetItem(uuid.New(), 2)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, 2, first.Version)

	require.NoError(t, second.Checkout())
	assert.ErrorIs(t, repo.Save(ctx, second), trade.ErrCartModified)

	stored, err := repo.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.False(t, stored.CheckedOut)
	assert.Len(t, stored.Items, 2)
	assert.Equal(t, 2, stored.Version)
}

func TestGormCartRepository_FindLatestByUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewGormCartRepository(db)
	userID := uuid.New()

	_, err := repo.FindLatestByUser(ctx, userID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	cart, err := trade.NewCart(userID)
	require.NoError(t, err)
	_, err = cart.SetItem(uuid.New(), 1)
	require.NoError(t, err)
	require.NoError(t, cart.Checkout())
	require.NoError(t, repo.Save(ctx, cart))

	latest, err := repo.FindLatestByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, latest.ID)
	assert.True(t, latest.CheckedOut)
}
