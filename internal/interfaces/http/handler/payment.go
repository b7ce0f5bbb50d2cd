package handler

import (
	"errors"
	"io"
	"net/http"

	billingapp "github.com/ecommerce/backend/internal/application/billing"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Maximum webhook payload size (64KB - Stripe webhooks are typically small)
const maxWebhookPayloadSize = 65536

// StripeSignatureHeader carries the webhook signature
const StripeSignatureHeader = "Stripe-Signature"

// PaymentHandler handles payment endpoints, including the Stripe webhook
type PaymentHandler struct {
	BaseHandler
	paymentService *billingapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *billingapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// StripeWebhookResponse represents the response for Stripe webhook
//
//	@Description	Stripe webhook response
type StripeWebhookResponse struct {
	Received bool   `json:"received,omitempty" example:"true"`
	Message  string `json:"message,omitempty" example:"Webhook signature verification failed"`
}

// VerifyQuery carries the checkout session to verify
type VerifyQuery struct {
	SessionID string `form:"sessionId"`
}

// CreateStripeCheckout godoc
//
//	@ID				createStripeCheckout
//	@Summary		Start a Stripe Checkout session
//	@Description	Creates a hosted checkout for the caller's pending order and records a pending payment
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		billing.StripeCheckoutRequest	true	"Order to pay"
//	@Success		200		{object}	APIResponse[billing.StripeCheckoutResult]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/stripe/checkout [post]
func (h *PaymentHandler) CreateStripeCheckout(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req billingapp.StripeCheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.CreateStripeCheckout(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// VerifyCheckout godoc
//
//	@ID				verifyStripeCheckout
//	@Summary		Verify a Stripe Checkout session
//	@Description	Completes the payment when Stripe reports the session paid. Safe to call repeatedly. Clients may only verify their own sessions.
//	@Tags			payments
//	@Produce		json
//	@Param			sessionId	query		string	true	"Checkout session ID"
//	@Success		200			{object}	APIResponse[billing.VerifyPaymentResult]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/verify [get]
func (h *PaymentHandler) VerifyCheckout(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var q VerifyQuery
	if !h.bindQuery(c, &q) {
		return
	}

	result, err := h.paymentService.VerifyCheckout(c.Request.Context(), caller, q.SessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// RecordManualPayment godoc
//
//	@ID				recordManualPayment
//	@Summary		Record a cash or transfer payment
//	@Description	Amount defaults to the order total and may not be lower. The order is marked paid.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		billing.ManualPaymentRequest	true	"Payment details"
//	@Success		201		{object}	APIResponse[billing.PaymentResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/manual [post]
func (h *PaymentHandler) RecordManualPayment(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req billingapp.ManualPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	payment, err := h.paymentService.RecordManualPayment(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, payment)
}

// GetByID godoc
//
//	@ID				getPaymentById
//	@Summary		Get payment by ID
//	@Tags			payments
//	@Produce		json
//	@Param			id	path		string	true	"Payment ID"	format(uuid)
//	@Success		200	{object}	APIResponse[billing.PaymentResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// List godoc
//
//	@ID				listPayments
//	@Summary		List payments
//	@Tags			payments
//	@Produce		json
//	@Param			status		query		string	false	"Status"	Enums(pending, paid, failed, refunded)
//	@Param			order_id	query		string	false	"Order ID"	format(uuid)
//	@Param			user_id		query		string	false	"User ID"	format(uuid)
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)
//	@Success		200			{object}	APIResponse[[]billing.PaymentResponse]
//	@Security		BearerAuth
//	@Router			/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var filter billingapp.PaymentListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.paymentService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	respondPage(c, page)
}

// Update godoc
//
//	@ID				updatePayment
//	@Summary		Update a payment
//	@Description	Setting the status to paid also settles the order
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"Payment ID"	format(uuid)
//	@Param			request	body		billing.UpdatePaymentRequest	true	"Payment changes"
//	@Success		200		{object}	APIResponse[billing.PaymentResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/{id} [patch]
func (h *PaymentHandler) Update(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	var req billingapp.UpdatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	payment, err := h.paymentService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// Delete godoc
//
//	@ID				deletePayment
//	@Summary		Delete a payment
//	@Tags			payments
//	@Param			id	path	string	true	"Payment ID"	format(uuid)
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := h.paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.paymentService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// HandleStripeWebhook godoc
//
//	@ID				handleStripeWebhook
//	@Summary		Handle Stripe webhook
//	@Description	Receives checkout and payment intent events from Stripe. Redeliveries are acknowledged without effect.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			Stripe-Signature	header		string					true	"Stripe webhook signature"
//	@Success		200					{object}	StripeWebhookResponse	"Webhook processed"
//	@Failure		400					{object}	StripeWebhookResponse	"Invalid signature or payload"
//	@Failure		413					{object}	StripeWebhookResponse	"Payload too large"
//	@Failure		500					{object}	StripeWebhookResponse	"Processing failed, Stripe will retry"
//	@Failure		503					{object}	StripeWebhookResponse	"Payments not configured"
//	@Router			/payments/webhook [post]
func (h *PaymentHandler) HandleStripeWebhook(c *gin.Context) {
	// Stripe signs the raw body, so it is read before any decoding
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, StripeWebhookResponse{Message: "Failed to read request body"})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, StripeWebhookResponse{Message: "Payload too large"})
		return
	}

	signature := c.GetHeader(StripeSignatureHeader)
	if signature == "" {
		c.JSON(http.StatusBadRequest, StripeWebhookResponse{Message: "Missing Stripe-Signature header"})
		return
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			switch domainErr.Code {
			case billingapp.ErrBadSignature.Code:
				c.JSON(http.StatusBadRequest, StripeWebhookResponse{Message: domainErr.Message})
				return
			case billingapp.ErrPaymentsDisabled.Code:
				c.JSON(http.StatusServiceUnavailable, StripeWebhookResponse{Message: domainErr.Message})
				return
			}
		}
		logger.GetGinLogger(c).Error("Stripe webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, StripeWebhookResponse{Message: "Webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, StripeWebhookResponse{Received: true})
}
