package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusIssued   InvoiceStatus = "issued"
	InvoiceStatusCanceled InvoiceStatus = "canceled"
)

// Invoice is the fiscal document for a paid order. Invoice numbers are unique.
type Invoice struct {
	shared.BaseAggregateRoot
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoices_order_issued,where:status = 'issued'" json:"order_id"`
	PaymentID     *uuid.UUID      `gorm:"type:uuid;index" json:"payment_id,omitempty"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status        InvoiceStatus   `gorm:"type:varchar(50);not null;default:'issued'" json:"status"`
	InvoiceNumber string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"invoice_number"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// GenerateInvoiceNumber returns a number like INV-20250101-1A2B3C4D
func GenerateInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), suffix)
}

// NewInvoice issues an invoice. An empty number is generated.
func NewInvoice(userID, orderID uuid.UUID, paymentID *uuid.UUID, total decimal.Decimal, number string) (*Invoice, error) {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "User and order are required")
	}
	if err := shared.ValidateNonNegative("Total amount", total); err != nil {
		return nil, err
	}
	number = strings.TrimSpace(number)
	if number == "" {
		number = GenerateInvoiceNumber(time.Now())
	}
	if len(number) > 64 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invoice number cannot exceed 64 characters")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		OrderID:           orderID,
		PaymentID:         paymentID,
		TotalAmount:       shared.RoundMoney(total),
		Status:            InvoiceStatusIssued,
		InvoiceNumber:     number,
	}
	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))
	return inv, nil
}

// InvoiceUpdate carries optional administrative changes
type InvoiceUpdate struct {
	TotalAmount   *decimal.Decimal
	InvoiceNumber *string
	PaymentID     *uuid.UUID
}

// Apply applies administrative corrections to an issued invoice
func (i *Invoice) Apply(u InvoiceUpdate) error {
	if i.IsCanceled() {
		return shared.NewDomainError("INVALID_STATE", "Canceled invoices cannot be modified")
	}
	if u.TotalAmount != nil {
		if err := shared.ValidateNonNegative("Total amount", *u.TotalAmount); err != nil {
			return err
		}
		i.TotalAmount = shared.RoundMoney(*u.TotalAmount)
	}
	if u.InvoiceNumber != nil {
		n := strings.TrimSpace(*u.InvoiceNumber)
		if n == "" || len(n) > 64 {
			return shared.NewDomainError("INVALID_INPUT", "Invoice number must be 1-64 characters")
		}
		i.InvoiceNumber = n
	}
	if u.PaymentID != nil {
		id := *u.PaymentID
		i.PaymentID = &id
	}
	i.Touch()
	return nil
}

// Cancel voids the invoice
func (i *Invoice) Cancel() error {
	if i.IsCanceled() {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already canceled")
	}
	i.Status = InvoiceStatusCanceled
	i.Touch()
	i.AddDomainEvent(NewInvoiceCanceledEvent(i))
	return nil
}

// IsCanceled reports whether the invoice was voided
func (i *Invoice) IsCanceled() bool {
	return i.Status == InvoiceStatusCanceled
}
