package handler

import (
	apptrade "github.com/ecommerce/backend/internal/application/trade"
	"github.com/gin-gonic/gin"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	BaseHandler
	orderService *apptrade.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *apptrade.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Create godoc
// @ID           createOrder
// @Summary      Place an order from a checked-out cart
// @Description  Locks and decrements stock in one transaction. Placing an order for a
// @Description  cart that already has one returns the existing order with status 200.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body trade.CreateOrderRequest true "Cart to order"
// @Success      201 {object} APIResponse[trade.OrderResponse]
// @Success      200 {object} APIResponse[trade.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req apptrade.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.orderService.Create(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Created {
		h.Created(c, result.Order)
		return
	}
	h.Success(c, result.Order)
}

// GetByID godoc
// @ID           getOrderById
// @Summary      Get order by ID
// @Description  Clients only see their own orders
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[trade.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetByID(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// List godoc
// @ID           listOrders
// @Summary      List all orders
// @Tags         orders
// @Produce      json
// @Param        status query string false "Status" Enums(pending, paid, cancelled)
// @Param        user_id query string false "User ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]trade.OrderResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	var filter apptrade.OrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	respondPage(c, page)
}

// ListMine godoc
// @ID           listMyOrders
// @Summary      List own orders
// @Tags         orders
// @Produce      json
// @Param        status query string false "Status" Enums(pending, paid, cancelled)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]trade.OrderResponse]
// @Security     BearerAuth
// @Router       /orders/my-orders [get]
func (h *OrderHandler) ListMine(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var filter apptrade.OrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.orderService.ListMine(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	respondPage(c, page)
}

// UpdateStatus godoc
// @ID           updateOrderStatus
// @Summary      Change order status
// @Description  Clients may only cancel their own pending orders. Cancelling restocks every line.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body trade.UpdateOrderStatusRequest true "New status"
// @Success      200 {object} APIResponse[trade.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	var req apptrade.UpdateOrderStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), caller, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// Update godoc
// @ID           updateOrder
// @Summary      Update an order
// @Description  Only the status can be changed
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body trade.UpdateOrderStatusRequest true "Order changes"
// @Success      200 {object} APIResponse[trade.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [patch]
func (h *OrderHandler) Update(c *gin.Context) {
	h.UpdateStatus(c)
}

// Delete godoc
// @ID           deleteOrder
// @Summary      Delete an order
// @Description  A pending order is restocked before it is removed
// @Tags         orders
// @Param        id path string true "Order ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [delete]
func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
