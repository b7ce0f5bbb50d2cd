package billing

import (
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypePayment = "Payment"
	AggregateTypeInvoice = "Invoice"
)

// Event type constants
const (
	EventTypePaymentCompleted = "PaymentCompleted"
	EventTypePaymentFailed    = "PaymentFailed"
	EventTypeInvoiceIssued    = "InvoiceIssued"
	EventTypeInvoiceCanceled  = "InvoiceCanceled"
)

// PaymentCompletedEvent is published when a payment settles.
// The invoice issuer subscribes to it.
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	OrderID   uuid.UUID       `json:"order_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
}

// NewPaymentCompletedEvent creates a new PaymentCompletedEvent
func NewPaymentCompletedEvent(p *Payment) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCompleted, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		OrderID:         p.OrderID,
		UserID:          p.UserID,
		Amount:          p.Amount,
		Method:          p.Method,
	}
}

// PaymentFailedEvent is published when the provider reports a failure
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID     `json:"payment_id"`
	OrderID   uuid.UUID     `json:"order_id"`
	Method    PaymentMethod `json:"method"`
	Reason    string        `json:"reason"`
}

// NewPaymentFailedEvent creates a new PaymentFailedEvent
func NewPaymentFailedEvent(p *Payment, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentFailed, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		OrderID:         p.OrderID,
		Method:          p.Method,
		Reason:          reason,
	}
}

// InvoiceIssuedEvent is published when an invoice is issued
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewInvoiceIssuedEvent creates a new InvoiceIssuedEvent
func NewInvoiceIssuedEvent(i *Invoice) *InvoiceIssuedEvent {
	return &InvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceIssued, AggregateTypeInvoice, i.ID),
		InvoiceID:       i.ID,
		OrderID:         i.OrderID,
		InvoiceNumber:   i.InvoiceNumber,
		TotalAmount:     i.TotalAmount,
	}
}

// InvoiceCanceledEvent is published when an invoice is voided
type InvoiceCanceledEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
}

// NewInvoiceCanceledEvent creates a new InvoiceCanceledEvent
func NewInvoiceCanceledEvent(i *Invoice) *InvoiceCanceledEvent {
	return &InvoiceCanceledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCanceled, AggregateTypeInvoice, i.ID),
		InvoiceID:       i.ID,
		InvoiceNumber:   i.InvoiceNumber,
	}
}
