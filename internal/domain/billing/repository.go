package billing

import (
	"context"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	shared.Filter
	UserID  *uuid.UUID
	OrderID *uuid.UUID
	Status  *PaymentStatus
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindByIDForUpdate loads the payment and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindByTransactionID finds the payment created for a provider reference
	FindByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]Payment, error)
	FindAll(ctx context.Context, filter PaymentFilter) ([]Payment, error)
	Count(ctx context.Context, filter PaymentFilter) (int64, error)
	Save(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindActiveByOrderID returns the issued (not canceled) invoice of an order
	FindActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	// Save fails with ALREADY_EXISTS when the order already has an issued invoice
	Save(ctx context.Context, invoice *Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
}
