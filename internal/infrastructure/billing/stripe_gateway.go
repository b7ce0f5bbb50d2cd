package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	appbilling "github.com/ecommerce/backend/internal/application/billing"
	"github.com/ecommerce/backend/internal/infrastructure/config"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when Stripe is called without a secret key
var ErrNotConfigured = errors.New("stripe: secret key is not configured")

// StripeGateway implements the payment gateway port with Stripe Checkout
type StripeGateway struct {
	cfg      config.StripeConfig
	sessions *session.Client
	logger   *zap.Logger
}

// NewStripeGateway creates a gateway. A nil backend uses the default Stripe API backend.
func NewStripeGateway(cfg config.StripeConfig, backend stripe.Backend, logger *zap.Logger) *StripeGateway {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &StripeGateway{
		cfg:      cfg,
		sessions: &session.Client{B: backend, Key: cfg.SecretKey},
		logger:   logger,
	}
}

// CreateCheckoutSession opens a hosted payment page with one line item per order detail
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, input appbilling.CheckoutSessionInput) (*appbilling.CheckoutSession, error) {
	if !g.cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("stripe: checkout requires at least one line item")
	}

	currency := input.Currency
	if currency == "" {
		currency = g.cfg.Currency
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL(g.cfg.SuccessURL)),
		CancelURL:         stripe.String(g.cfg.CancelURL),
		ClientReferenceID: stripe.String(input.OrderID),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"order_id": input.OrderID,
				"user_id":  input.UserID,
			},
		},
	}
	if input.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(input.CustomerEmail)
	}
	for _, item := range input.Items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			productData.Description = stripe.String(item.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(strings.ToLower(currency)),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}
	params.AddMetadata("order_id", input.OrderID)
	params.AddMetadata("user_id", input.UserID)
	params.Context = ctx

	s, err := g.sessions.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe checkout session",
			zap.String("order_id", input.OrderID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	g.logger.Info("Created Stripe checkout session",
		zap.String("order_id", input.OrderID),
		zap.String("session_id", s.ID))

	return toCheckoutSession(s), nil
}

// GetCheckoutSession retrieves a session to check whether it was paid
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*appbilling.CheckoutSession, error) {
	if !g.cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.sessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: failed to retrieve checkout session %s: %w", sessionID, err)
	}
	return toCheckoutSession(s), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the events we act on.
// Other event types are returned with only ID and Type set.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*appbilling.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		g.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appbilling.ErrInvalidSignature, err)
	}

	result := &appbilling.WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if event.Data == nil {
		return result, nil
	}

	switch result.Type {
	case appbilling.WebhookCheckoutCompleted, appbilling.WebhookCheckoutExpired:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("stripe: failed to decode checkout session: %w", err)
		}
		result.Session = toCheckoutSession(&s)
		result.OrderID = result.Session.OrderID()
		if result.OrderID == "" {
			result.OrderID = s.ClientReferenceID
		}
	case appbilling.WebhookPaymentIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("stripe: failed to decode payment intent: %w", err)
		}
		result.OrderID = pi.Metadata["order_id"]
		if pi.LastPaymentError != nil {
			result.FailureReason = pi.LastPaymentError.Msg
		}
	}
	return result, nil
}

func toCheckoutSession(s *stripe.CheckoutSession) *appbilling.CheckoutSession {
	out := &appbilling.CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}

// successURL makes sure Stripe substitutes the session id into the redirect
func successURL(base string) string {
	if strings.Contains(base, "{CHECKOUT_SESSION_ID}") {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "session_id={CHECKOUT_SESSION_ID}"
}

var _ appbilling.PaymentGateway = (*StripeGateway)(nil)
