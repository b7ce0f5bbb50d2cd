package handler

import (
	"net/http"

	apptrade "github.com/ecommerce/backend/internal/application/trade"
	"github.com/ecommerce/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// CartHandler handles shopping cart endpoints
type CartHandler struct {
	BaseHandler
	cartService *apptrade.CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService *apptrade.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetMyCart godoc
// @ID           getMyCart
// @Summary      Get the active cart
// @Description  Returns the caller's open cart, creating an empty one when none exists
// @Tags         carts
// @Produce      json
// @Success      200 {object} APIResponse[trade.CartResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /carts/my [get]
func (h *CartHandler) GetMyCart(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	cart, err := h.cartService.GetMyCart(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cart)
}

// SetItem godoc
// @ID           setCartItem
// @Summary      Set a cart item
// @Description  Sets (not adds) the quantity of a product in the active cart
// @Tags         carts
// @Accept       json
// @Produce      json
// @Param        request body trade.SetCartItemRequest true "Product and quantity"
// @Success      200 {object} APIResponse[trade.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /carts/item [post]
func (h *CartHandler) SetItem(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req apptrade.SetCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// quantity 0 fails "required"; report it the same way as a negative one
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "productId and a quantity of at least 1 are required")
		return
	}

	cart, err := h.cartService.SetItem(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cart)
}

// RemoveItem godoc
// @ID           removeCartItem
// @Summary      Remove a product from the active cart
// @Tags         carts
// @Produce      json
// @Param        productId path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[trade.CartResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /carts/item/{productId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	productID, ok := h.paramUUID(c, "productId")
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveItem(c.Request.Context(), userID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cart)
}

// Checkout godoc
// @ID           checkoutCart
// @Summary      Check out the active cart
// @Description  Freezes the cart contents so an order can be placed from it
// @Tags         carts
// @Produce      json
// @Success      200 {object} APIResponse[trade.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /carts/checkout [patch]
func (h *CartHandler) Checkout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	cart, err := h.cartService.Checkout(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cart)
}

// GetByID godoc
// @ID           getCartById
// @Summary      Get cart by ID
// @Tags         carts
// @Produce      json
// @Param        id path string true "Cart ID" format(uuid)
// @Success      200 {object} APIResponse[trade.CartResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /carts/{id} [get]
func (h *CartHandler) GetByID(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	cart, err := h.cartService.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cart)
}

// List godoc
// @ID           listCarts
// @Summary      List carts
// @Tags         carts
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        order_dir query string false "Order direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]trade.CartResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /carts [get]
func (h *CartHandler) List(c *gin.Context) {
	var filter apptrade.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.cartService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	respondPage(c, page)
}
