package billing

import (
	"fmt"
	"strings"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer paid
type PaymentMethod string

const (
	PaymentMethodStripe   PaymentMethod = "STRIPE"
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

// IsValid checks if the method is supported
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodStripe, PaymentMethodCash, PaymentMethodTransfer:
		return true
	}
	return false
}

// ParsePaymentMethod accepts a method name in any case
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", shared.NewDomainError("INVALID_PAYMENT_METHOD",
			fmt.Sprintf("Payment method must be one of: STRIPE, CASH, TRANSFER (got %q)", s))
	}
	return m, nil
}

// PaymentStatus represents the state of a payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// IsValid checks if the status is known
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// ParsePaymentStatus accepts a status name in any case
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.NewDomainError("INVALID_STATUS",
			fmt.Sprintf("Payment status must be one of: pending, paid, failed, refunded (got %q)", s))
	}
	return st, nil
}

// Payment records money received (or expected) for an order
type Payment struct {
	shared.BaseAggregateRoot
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method        PaymentMethod   `gorm:"type:varchar(50);not null" json:"method"`
	Status        PaymentStatus   `gorm:"type:varchar(50);not null;default:'pending';index" json:"status"`
	TransactionID *string         `gorm:"type:varchar(255);uniqueIndex" json:"transaction_id,omitempty"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a pending payment
func NewPayment(orderID, userID uuid.UUID, amount decimal.Decimal, method PaymentMethod) (*Payment, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be greater than 0")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unsupported payment method")
	}
	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		UserID:            userID,
		Amount:            shared.RoundMoney(amount),
		Method:            method,
		Status:            PaymentStatusPending,
	}, nil
}

// SetTransactionID stores the provider reference (e.g. Stripe checkout session id)
func (p *Payment) SetTransactionID(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		p.TransactionID = nil
	} else {
		p.TransactionID = &id
	}
	p.Touch()
}

// TransactionRef returns the provider reference or ""
func (p *Payment) TransactionRef() string {
	if p.TransactionID == nil {
		return ""
	}
	return *p.TransactionID
}

// Complete marks the payment as paid. Completing a paid payment is a no-op
// that reports false so callers can skip side effects.
func (p *Payment) Complete() (bool, error) {
	switch p.Status {
	case PaymentStatusPaid:
		return false, nil
	case PaymentStatusPending, PaymentStatusFailed:
		p.Status = PaymentStatusPaid
		p.Touch()
		p.AddDomainEvent(NewPaymentCompletedEvent(p))
		return true, nil
	}
	return false, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete payment in %s status", p.Status))
}

// Fail marks a pending payment as failed
func (p *Payment) Fail(reason string) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail payment in %s status", p.Status))
	}
	p.Status = PaymentStatusFailed
	p.Touch()
	p.AddDomainEvent(NewPaymentFailedEvent(p, reason))
	return nil
}

// PaymentUpdate carries optional administrative changes
type PaymentUpdate struct {
	Amount        *decimal.Decimal
	Method        *PaymentMethod
	TransactionID *string
	Status        *PaymentStatus
}

// Apply applies administrative corrections
func (p *Payment) Apply(u PaymentUpdate) error {
	if u.Amount != nil {
		if !u.Amount.IsPositive() {
			return shared.NewDomainError("INVALID_AMOUNT", "Amount must be greater than 0")
		}
		p.Amount = shared.RoundMoney(*u.Amount)
	}
	if u.Method != nil {
		if !u.Method.IsValid() {
			return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unsupported payment method")
		}
		p.Method = *u.Method
	}
	if u.TransactionID != nil {
		p.SetTransactionID(*u.TransactionID)
	}
	if u.Status != nil {
		if !u.Status.IsValid() {
			return shared.NewDomainError("INVALID_STATUS", "Unsupported payment status")
		}
		if *u.Status == PaymentStatusPaid && p.Status != PaymentStatusPaid {
			if _, err := p.Complete(); err != nil {
				return err
			}
		} else {
			p.Status = *u.Status
		}
	}
	p.Touch()
	return nil
}

// IsPaid reports whether the payment has settled
func (p *Payment) IsPaid() bool {
	return p.Status == PaymentStatusPaid
}
