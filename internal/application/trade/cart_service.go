package trade

import (
	"context"
	"errors"

	"github.com/ecommerce/backend/internal/domain/catalog"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrCartNotFound is returned when a cart does not exist or is not visible to the caller
var ErrCartNotFound = shared.NewDomainError("NOT_FOUND", "Cart not found")

// CartService manages the caller's open cart
type CartService struct {
	cartRepo       trade.CartRepository
	productRepo    catalog.ProductRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCartService creates a new CartService
func NewCartService(cartRepo trade.CartRepository, productRepo catalog.ProductRepository, logger *zap.Logger) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for cart events
func (s *CartService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetMyCart returns the user's open cart, creating an empty one when there is none
func (s *CartService) GetMyCart(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	cart, err := s.activeCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToCartResponse(cart)
	return &resp, nil
}

// SetItem sets how many units of a product are in the user's open cart.
// The product must be available with enough stock for the requested quantity.
func (s *CartService) SetItem(ctx context.Context, userID uuid.UUID, req SetCartItemRequest) (*CartResponse, error) {
	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if err := product.CheckPurchasable(req.Quantity); err != nil {
		return nil, err
	}

	cart, err := s.activeCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := cart.SetItem(product.ID, req.Quantity); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, err
	}

	resp := ToCartResponse(cart)
	return &resp, nil
}

// RemoveItem drops a product from the user's open cart
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartResponse, error) {
	cart, err := s.activeCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := cart.RemoveItem(productID); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, err
	}

	resp := ToCartResponse(cart)
	return &resp, nil
}

// Checkout freezes the user's open cart so an order can be placed from it
func (s *CartService) Checkout(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	cart, err := s.cartRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, s.noOpenCart(ctx, userID)
		}
		return nil, err
	}
	if err := cart.Checkout(); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, err
	}
	s.logger.Info("Cart checked out",
		zap.String("cart_id", cart.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("items", len(cart.Items)))

	publishEvents(ctx, s.eventPublisher, cart, s.logger)

	resp := ToCartResponse(cart)
	return &resp, nil
}

// GetByID returns a cart. Clients only see their own carts.
func (s *CartService) GetByID(ctx context.Context, caller Caller, id uuid.UUID) (*CartResponse, error) {
	cart, err := s.cartRepo.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	if !caller.IsAdmin() && cart.UserID != caller.UserID {
		return nil, ErrCartNotFound
	}
	resp := ToCartResponse(cart)
	return &resp, nil
}

// List returns all carts, newest first
func (s *CartService) List(ctx context.Context, filter ListFilter) (*shared.Paginated[CartResponse], error) {
	f := toSharedFilter(filter.Page, filter.PageSize, filter.OrderDir)

	carts, err := s.cartRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.cartRepo.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	items := make([]CartResponse, len(carts))
	for i := range carts {
		items[i] = ToCartResponse(&carts[i])
	}
	result := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &result, nil
}

func (s *CartService) activeCart(ctx context.Context, userID uuid.UUID) (*trade.Cart, error) {
	cart, err := s.cartRepo.FindActiveByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	cart, err = trade.NewCart(userID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		// A concurrent request created the open cart first
		if errors.Is(err, shared.ErrAlreadyExists) {
			return s.cartRepo.FindActiveByUser(ctx, userID)
		}
		return nil, err
	}
	s.logger.Debug("Cart created", zap.String("cart_id", cart.ID.String()), zap.String("user_id", userID.String()))
	return cart, nil
}

// noOpenCart explains why a user without an open cart cannot check out
func (s *CartService) noOpenCart(ctx context.Context, userID uuid.UUID) error {
	latest, err := s.cartRepo.FindLatestByUser(ctx, userID)
	switch {
	case err == nil && latest.CheckedOut:
		return trade.ErrCartCheckedOut
	case err == nil, shared.IsNotFound(err):
		return shared.NewDomainError("EMPTY_CART", "Cannot checkout an empty cart")
	}
	return err
}

func toSharedFilter(page, pageSize int, orderDir string) shared.Filter {
	f := shared.DefaultFilter()
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 {
		f.PageSize = pageSize
	}
	if orderDir != "" {
		f.OrderDir = orderDir
	}
	return f
}
