package handler

import (
	apptrade "github.com/ecommerce/backend/internal/application/trade"
	"github.com/gin-gonic/gin"
)

// OrderDetailHandler handles order line endpoints
type OrderDetailHandler struct {
	BaseHandler
	detailService *apptrade.OrderDetailService
}

// NewOrderDetailHandler creates a new OrderDetailHandler
func NewOrderDetailHandler(detailService *apptrade.OrderDetailService) *OrderDetailHandler {
	return &OrderDetailHandler{detailService: detailService}
}

// List godoc
// @ID           listOrderDetails
// @Summary      List order details
// @Tags         order-details
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]trade.OrderDetailResponse]
// @Security     BearerAuth
// @Router       /order-details [get]
func (h *OrderDetailHandler) List(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var filter apptrade.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.detailService.List(c.Request.Context(), caller, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	respondPage(c, page)
}

// GetByID godoc
// @ID           getOrderDetailById
// @Summary      Get order detail by ID
// @Tags         order-details
// @Produce      json
// @Param        id path string true "Order detail ID" format(uuid)
// @Success      200 {object} APIResponse[trade.OrderDetailResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /order-details/{id} [get]
func (h *OrderDetailHandler) GetByID(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	detail, err := h.detailService.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, detail)
}

// Create godoc
// @ID           createOrderDetail
// @Summary      Add a line to a pending order
// @Description  Unit price comes from the product; the order total is recomputed
// @Tags         order-details
// @Accept       json
// @Produce      json
// @Param        request body trade.CreateOrderDetailRequest true "Order line"
// @Success      201 {object} APIResponse[trade.OrderDetailResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /order-details [post]
func (h *OrderDetailHandler) Create(c *gin.Context) {
	var req apptrade.CreateOrderDetailRequest
	if !h.bindJSON(c, &req) {
		return
	}

	detail, err := h.detailService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, detail)
}

// Update godoc
// @ID           updateOrderDetail
// @Summary      Change the quantity of an order line
// @Tags         order-details
// @Accept       json
// @Produce      json
// @Param        id path string true "Order detail ID" format(uuid)
// @Param        request body trade.UpdateOrderDetailRequest true "New quantity"
// @Success      200 {object} APIResponse[trade.OrderDetailResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /order-details/{id} [patch]
func (h *OrderDetailHandler) Update(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	var req apptrade.UpdateOrderDetailRequest
	if !h.bindJSON(c, &req) {
		return
	}

	detail, err := h.detailService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, detail)
}

// Delete godoc
// @ID           deleteOrderDetail
// @Summary      Remove a line from a pending order
// @Tags         order-details
// @Param        id path string true "Order detail ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /order-details/{id} [delete]
func (h *OrderDetailHandler) Delete(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.detailService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
