package billing

import (
	"time"

	"github.com/ecommerce/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StripeCheckoutRequest opens a Stripe Checkout session for an order
type StripeCheckoutRequest struct {
	OrderID uuid.UUID `json:"orderId" binding:"required"`
}

// StripeCheckoutResult is returned to the client, which redirects to URL
type StripeCheckoutResult struct {
	SessionID string    `json:"sessionId"`
	URL       string    `json:"url"`
	PaymentID uuid.UUID `json:"paymentId"`
}

// VerifyPaymentResult reports the state of a checkout session after redirect
type VerifyPaymentResult struct {
	Payment PaymentResponse `json:"payment"`
	Status  string          `json:"status"`
	Paid    bool            `json:"paid"`
}

// ManualPaymentRequest records a payment collected outside Stripe
type ManualPaymentRequest struct {
	OrderID       uuid.UUID        `json:"orderId" binding:"required"`
	UserID        *uuid.UUID       `json:"userId"`
	Amount        *decimal.Decimal `json:"amount"`
	Method        string           `json:"method" binding:"omitempty,payment_method"`
	TransactionID *string          `json:"transactionId" binding:"omitempty,max=255"`
}

// UpdatePaymentRequest carries administrative corrections
type UpdatePaymentRequest struct {
	Amount        *decimal.Decimal `json:"amount"`
	Method        *string          `json:"method" binding:"omitempty,payment_method"`
	TransactionID *string          `json:"transactionId" binding:"omitempty,max=255"`
	Status        *string          `json:"status" binding:"omitempty,oneof=pending paid failed refunded"`
}

// PaymentListFilter represents filter options for payment lists
type PaymentListFilter struct {
	Status   string     `form:"status"`
	OrderID  *uuid.UUID `form:"order_id"`
	UserID   *uuid.UUID `form:"user_id"`
	Page     int        `form:"page" binding:"min=0"`
	PageSize int        `form:"page_size" binding:"min=0,max=100"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"orderId"`
	UserID        uuid.UUID       `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Status        string          `json:"status"`
	TransactionID *string         `json:"transactionId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// CreateInvoiceRequest issues an invoice manually
type CreateInvoiceRequest struct {
	UserID        uuid.UUID        `json:"userId" binding:"required"`
	OrderID       uuid.UUID        `json:"orderId" binding:"required"`
	PaymentID     uuid.UUID        `json:"paymentId" binding:"required"`
	TotalAmount   *decimal.Decimal `json:"totalAmount"`
	InvoiceNumber string           `json:"invoiceNumber" binding:"omitempty,max=64"`
}

// UpdateInvoiceRequest carries administrative corrections
type UpdateInvoiceRequest struct {
	TotalAmount   *decimal.Decimal `json:"totalAmount"`
	InvoiceNumber *string          `json:"invoiceNumber" binding:"omitempty,min=1,max=64"`
	PaymentID     *uuid.UUID       `json:"paymentId"`
}

// InvoiceListFilter represents paging options for invoice lists
type InvoiceListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"min=0"`
	PageSize int    `form:"page_size" binding:"min=0,max=100"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"userId"`
	OrderID       uuid.UUID       `json:"orderId"`
	PaymentID     *uuid.UUID      `json:"paymentId,omitempty"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        string          `json:"status"`
	InvoiceNumber string          `json:"invoiceNumber"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// InvoicePDF is a rendered invoice ready for download
type InvoicePDF struct {
	Filename string
	Content  []byte
}

// ToPaymentResponse converts a domain Payment to PaymentResponse
func ToPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		Method:        string(p.Method),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ToInvoiceResponse converts a domain Invoice to InvoiceResponse
func ToInvoiceResponse(i *billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            i.ID,
		UserID:        i.UserID,
		OrderID:       i.OrderID,
		PaymentID:     i.PaymentID,
		TotalAmount:   i.TotalAmount,
		Status:        string(i.Status),
		InvoiceNumber: i.InvoiceNumber,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}
