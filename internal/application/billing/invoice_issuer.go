package billing

import (
	"context"

	"github.com/ecommerce/backend/internal/domain/billing"
	"github.com/ecommerce/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InvoiceIssuer issues an invoice whenever a payment completes
type InvoiceIssuer struct {
	invoices *InvoiceService
	logger   *zap.Logger
}

// NewInvoiceIssuer creates a new InvoiceIssuer
func NewInvoiceIssuer(invoices *InvoiceService, logger *zap.Logger) *InvoiceIssuer {
	return &InvoiceIssuer{invoices: invoices, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *InvoiceIssuer) EventTypes() []string {
	return []string{billing.EventTypePaymentCompleted}
}

// Handle processes a PaymentCompleted event
func (h *InvoiceIssuer) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*billing.PaymentCompletedEvent)
	if !ok {
		h.logger.Warn("Unexpected event type", zap.String("event_type", event.EventType()))
		return nil
	}
	_, err := h.invoices.IssueForPayment(ctx, e.PaymentID)
	return err
}

var _ shared.EventHandler = (*InvoiceIssuer)(nil)
