package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceDocument is everything printed on an invoice PDF
type InvoiceDocument struct {
	InvoiceID     uuid.UUID
	InvoiceNumber string
	Status        string
	IssuedAt      time.Time
	OrderID       uuid.UUID
	CustomerName  string
	CustomerEmail string
	PaymentMethod string
	Lines         []InvoiceLine
	Total         decimal.Decimal
}

// InvoiceLine is one printed order detail
type InvoiceLine struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// InvoicePDFRenderer turns an invoice document into PDF bytes
type InvoicePDFRenderer interface {
	RenderInvoice(ctx context.Context, doc *InvoiceDocument) ([]byte, error)
}
