package billing

import (
	"context"
	"errors"
)

// Webhook event types handled by the payment service
const (
	WebhookCheckoutCompleted    = "checkout.session.completed"
	WebhookCheckoutExpired      = "checkout.session.expired"
	WebhookPaymentIntentFailed  = "payment_intent.payment_failed"
	CheckoutPaymentStatusPaid   = "paid"
	CheckoutPaymentStatusUnpaid = "unpaid"
)

// ErrInvalidSignature is returned when a webhook payload fails signature verification
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutLineItem is one priced line of a hosted checkout page. Amounts are in cents.
type CheckoutLineItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
}

// CheckoutSessionInput describes the checkout to open for an order
type CheckoutSessionInput struct {
	OrderID       string
	UserID        string
	CustomerEmail string
	Currency      string
	Items         []CheckoutLineItem
}

// CheckoutSession is the provider's view of a hosted checkout
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentStatus   string
	AmountTotal     int64
	PaymentIntentID string
	Metadata        map[string]string
}

// OrderID returns the order id recorded in the session metadata
func (s *CheckoutSession) OrderID() string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata["order_id"]
}

// IsPaid reports whether the provider collected the money
func (s *CheckoutSession) IsPaid() bool {
	return s.PaymentStatus == CheckoutPaymentStatusPaid
}

// WebhookEvent is a verified provider callback
type WebhookEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession // set for checkout.session.* events
	// OrderID comes from the session or payment intent metadata
	OrderID       string
	FailureReason string
}

// PaymentGateway is the port to the hosted payment provider (Stripe Checkout)
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	// ParseWebhook verifies the signature header and decodes the event
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
