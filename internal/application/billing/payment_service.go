package billing

import (
	"context"
	"errors"
	"fmt"

	apptrade "github.com/ecommerce/backend/internal/application/trade"
	"github.com/ecommerce/backend/internal/domain/billing"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/domain/trade"
	"github.com/ecommerce/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Payment errors
var (
	ErrPaymentNotFound  = shared.NewDomainError("NOT_FOUND", "Payment not found")
	ErrOrderNotFound    = shared.NewDomainError("NOT_FOUND", "Order not found")
	ErrUserNotFound     = shared.NewDomainError("NOT_FOUND", "User not found")
	ErrPaymentsDisabled = shared.NewDomainError("PAYMENTS_DISABLED", "Online payments are not configured")
	ErrSessionRequired  = shared.NewDomainError("INVALID_INPUT", "sessionId is required")
	ErrBadSignature     = shared.NewDomainError("INVALID_SIGNATURE", "Webhook signature verification failed")
)

const webhookKeyPrefix = "stripe:event:"

// PaymentService settles orders through Stripe Checkout or manually recorded payments.
// Every path that completes a payment also marks its order paid in the same transaction.
type PaymentService struct {
	paymentRepo    billing.PaymentRepository
	orderRepo      trade.OrderRepository
	users          UserFinder
	products       ProductFinder
	txScope        apptrade.TransactionScope
	gateway        PaymentGateway
	idempotency    shared.IdempotencyStore
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService. A nil gateway disables Stripe checkout.
func NewPaymentService(
	paymentRepo billing.PaymentRepository,
	orderRepo trade.OrderRepository,
	users UserFinder,
	products ProductFinder,
	txScope apptrade.TransactionScope,
	gateway PaymentGateway,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		users:       users,
		products:    products,
		txScope:     txScope,
		gateway:     gateway,
		idempotency: idempotency,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for payment events
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateStripeCheckout opens a Stripe Checkout session for the caller's pending order
// and records a pending payment keyed by the session id.
func (s *PaymentService) CreateStripeCheckout(ctx context.Context, caller apptrade.Caller, req StripeCheckoutRequest) (*StripeCheckoutResult, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "stripe_checkout",
		telemetry.SpanAttrOrderID, req.OrderID.String(),
		telemetry.SpanAttrUserID, caller.UserID.String(),
	)
	defer span.End()

	order, err := s.findOrder(ctx, req.OrderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !caller.IsAdmin() && !order.BelongsTo(caller.UserID) {
		return nil, ErrOrderNotFound
	}
	if err := checkPayable(order); err != nil {
		return nil, err
	}

	input, err := s.checkoutInput(ctx, order)
	if err != nil {
		return nil, err
	}
	session, err := s.gateway.CreateCheckoutSession(ctx, input)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError("PAYMENT_FAILED", "Failed to create checkout session", err)
	}

	payment, err := billing.NewPayment(order.ID, order.UserID, order.Total, billing.PaymentMethodStripe)
	if err != nil {
		return nil, err
	}
	payment.SetTransactionID(session.ID)
	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, payment.ID.String())
	s.logger.Info("Stripe checkout created",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("session_id", session.ID))

	return &StripeCheckoutResult{SessionID: session.ID, URL: session.URL, PaymentID: payment.ID}, nil
}

// VerifyCheckout checks a session after the customer is redirected back and
// completes the payment when Stripe reports it paid. Repeated calls are harmless.
// Clients can only verify their own payments.
func (s *PaymentService) VerifyCheckout(ctx context.Context, caller apptrade.Caller, sessionID string) (*VerifyPaymentResult, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}

	payment, err := s.paymentRepo.FindByTransactionID(ctx, sessionID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if !caller.IsAdmin() && payment.UserID != caller.UserID {
		return nil, ErrPaymentNotFound
	}
	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, shared.WrapDomainError("PAYMENT_FAILED", "Failed to retrieve checkout session", err)
	}

	if session.IsPaid() {
		payment, err = s.completePayment(ctx, payment.ID)
		if err != nil {
			return nil, err
		}
	}

	return &VerifyPaymentResult{
		Payment: ToPaymentResponse(payment),
		Status:  session.PaymentStatus,
		Paid:    payment.IsPaid(),
	}, nil
}

// HandleWebhook verifies and applies a Stripe webhook delivery.
// Each event id is applied at most once; redeliveries are acknowledged without effect.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return ErrPaymentsDisabled
	}
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			return ErrBadSignature
		}
		return err
	}

	key := webhookKeyPrefix + event.ID
	if s.idempotency != nil {
		fresh, err := s.idempotency.MarkProcessed(ctx, key, shared.DefaultIdempotencyTTL)
		if err != nil {
			s.logger.Warn("Idempotency store unavailable, processing webhook anyway",
				zap.String("event_id", event.ID), zap.Error(err))
		} else if !fresh {
			s.logger.Info("Duplicate webhook ignored", zap.String("event_id", event.ID), zap.String("type", event.Type))
			return nil
		}
	}

	if err := s.applyWebhook(ctx, event); err != nil {
		if s.idempotency != nil {
			if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
				s.logger.Warn("Failed to release webhook key", zap.String("event_id", event.ID), zap.Error(releaseErr))
			}
		}
		return err
	}
	return nil
}

func (s *PaymentService) applyWebhook(ctx context.Context, event *WebhookEvent) error {
	logger := s.logger.With(zap.String("event_id", event.ID), zap.String("type", event.Type))

	switch event.Type {
	case WebhookCheckoutCompleted:
		if event.Session == nil || !event.Session.IsPaid() {
			logger.Info("Checkout completed without payment, waiting for settlement")
			return nil
		}
		payment, err := s.paymentRepo.FindByTransactionID(ctx, event.Session.ID)
		if err != nil {
			if shared.IsNotFound(err) {
				logger.Warn("No payment recorded for checkout session", zap.String("session_id", event.Session.ID))
				return nil
			}
			return err
		}
		_, err = s.completePayment(ctx, payment.ID)
		return err

	case WebhookCheckoutExpired:
		if event.Session == nil {
			return nil
		}
		payment, err := s.paymentRepo.FindByTransactionID(ctx, event.Session.ID)
		if err != nil {
			if shared.IsNotFound(err) {
				return nil
			}
			return err
		}
		return s.failPayment(ctx, payment.ID, "checkout session expired")

	case WebhookPaymentIntentFailed:
		orderID, err := uuid.Parse(event.OrderID)
		if err != nil {
			logger.Warn("Payment failure without order reference", zap.String("order_id", event.OrderID))
			return nil
		}
		payments, err := s.paymentRepo.FindByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		for i := range payments {
			p := &payments[i]
			if p.Method != billing.PaymentMethodStripe || p.Status != billing.PaymentStatusPending {
				continue
			}
			if err := s.failPayment(ctx, p.ID, event.FailureReason); err != nil {
				return err
			}
		}
		return nil
	}

	logger.Debug("Unhandled webhook event")
	return nil
}

// RecordManualPayment records a cash or transfer payment and marks the order paid.
// Non-admin callers can only pay their own orders.
func (s *PaymentService) RecordManualPayment(ctx context.Context, caller apptrade.Caller, req ManualPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record_manual",
		telemetry.SpanAttrOrderID, req.OrderID.String(),
	)
	defer span.End()

	method := billing.PaymentMethodCash
	if req.Method != "" {
		m, err := billing.ParsePaymentMethod(req.Method)
		if err != nil {
			return nil, err
		}
		method = m
	}

	userID := caller.UserID
	if caller.IsAdmin() && req.UserID != nil {
		userID = *req.UserID
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var payment *billing.Payment
	var order *trade.Order
	err := s.txScope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, req.OrderID)
		if err != nil {
			if shared.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		if !caller.IsAdmin() && !o.BelongsTo(caller.UserID) {
			return ErrOrderNotFound
		}
		if err := checkPayable(o); err != nil {
			return err
		}

		amount := o.Total
		if req.Amount != nil {
			amount = *req.Amount
		}
		if amount.LessThan(o.Total) {
			return shared.NewDomainError("INVALID_AMOUNT",
				fmt.Sprintf("Insufficient amount. Expected %s, received %s", o.Total.StringFixed(2), amount.StringFixed(2)))
		}

		p, err := billing.NewPayment(o.ID, userID, amount, method)
		if err != nil {
			return err
		}
		if req.TransactionID != nil {
			p.SetTransactionID(*req.TransactionID)
		}
		if _, err := p.Complete(); err != nil {
			return err
		}
		if err := o.MarkPaid(); err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, p); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}
		payment, order = p, o
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Manual payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("method", string(payment.Method)),
		zap.String("amount", payment.Amount.String()))
	s.publish(ctx, payment, order)

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// GetByID returns a payment. Clients only see their own payments.
func (s *PaymentService) GetByID(ctx context.Context, caller apptrade.Caller, id uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.findPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && payment.UserID != caller.UserID {
		return nil, ErrPaymentNotFound
	}
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// List returns payments, newest first
func (s *PaymentService) List(ctx context.Context, filter PaymentListFilter) (*shared.Paginated[PaymentResponse], error) {
	f := billing.PaymentFilter{
		Filter:  pageFilter(filter.Page, filter.PageSize),
		UserID:  filter.UserID,
		OrderID: filter.OrderID,
	}
	if filter.Status != "" {
		status, err := billing.ParsePaymentStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		f.Status = &status
	}

	payments, err := s.paymentRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.paymentRepo.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	items := make([]PaymentResponse, len(payments))
	for i := range payments {
		items[i] = ToPaymentResponse(&payments[i])
	}
	result := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &result, nil
}

// Update applies administrative corrections. Setting the status to paid
// completes the payment and marks its order paid.
func (s *PaymentService) Update(ctx context.Context, id uuid.UUID, req UpdatePaymentRequest) (*PaymentResponse, error) {
	update := billing.PaymentUpdate{
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
	}
	if req.Method != nil {
		m, err := billing.ParsePaymentMethod(*req.Method)
		if err != nil {
			return nil, err
		}
		update.Method = &m
	}
	if req.Status != nil {
		st, err := billing.ParsePaymentStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		update.Status = &st
	}

	var payment *billing.Payment
	var order *trade.Order
	err := s.txScope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		p, err := repos.Payments().FindByIDForUpdate(ctx, id)
		if err != nil {
			if shared.IsNotFound(err) {
				return ErrPaymentNotFound
			}
			return err
		}
		wasPaid := p.IsPaid()
		if err := p.Apply(update); err != nil {
			return err
		}
		if !wasPaid && p.IsPaid() {
			o, err := s.settleOrder(ctx, repos, p)
			if err != nil {
				return err
			}
			order = o
		}
		if err := repos.Payments().Save(ctx, p); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, payment, order)
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// Delete removes a payment record
func (s *PaymentService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.findPayment(ctx, id); err != nil {
		return err
	}
	return s.paymentRepo.Delete(ctx, id)
}

// completePayment marks a payment and its order paid in one transaction.
// Completing an already paid payment returns it unchanged. The payment row is
// locked so racing completions (redirect and webhook) publish only once.
func (s *PaymentService) completePayment(ctx context.Context, paymentID uuid.UUID) (*billing.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "complete",
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)
	defer span.End()

	var payment *billing.Payment
	var order *trade.Order
	err := s.txScope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		p, err := repos.Payments().FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		payment = p
		changed, err := p.Complete()
		if err != nil || !changed {
			return err
		}
		o, err := s.settleOrder(ctx, repos, p)
		if err != nil {
			return err
		}
		order = o
		return repos.Payments().Save(ctx, p)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, payment, order)
	return payment, nil
}

// settleOrder marks the payment's order paid. Orders cancelled before the money
// arrived stay cancelled; the payment is kept for reconciliation.
func (s *PaymentService) settleOrder(ctx context.Context, repos apptrade.TransactionalRepositories, p *billing.Payment) (*trade.Order, error) {
	o, err := repos.Orders().FindByIDForUpdate(ctx, p.OrderID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	switch {
	case o.IsPaid():
		return o, nil
	case o.IsCancelled():
		s.logger.Warn("Payment completed for cancelled order",
			zap.String("payment_id", p.ID.String()),
			zap.String("order_id", o.ID.String()))
		return o, nil
	}
	if err := o.MarkPaid(); err != nil {
		return nil, err
	}
	if err := repos.Orders().Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// failPayment marks a pending payment failed. Payments settled in the meantime are left alone.
func (s *PaymentService) failPayment(ctx context.Context, paymentID uuid.UUID, reason string) error {
	var payment *billing.Payment
	err := s.txScope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		p, err := repos.Payments().FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			if shared.IsNotFound(err) {
				return nil
			}
			return err
		}
		if p.Status != billing.PaymentStatusPending {
			return nil
		}
		if err := p.Fail(reason); err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, p); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil || payment == nil {
		return err
	}
	s.logger.Info("Payment marked failed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID.String()),
		zap.String("reason", reason))
	s.publish(ctx, payment, nil)
	return nil
}

func (s *PaymentService) checkoutInput(ctx context.Context, order *trade.Order) (CheckoutSessionInput, error) {
	input := CheckoutSessionInput{
		OrderID: order.ID.String(),
		UserID:  order.UserID.String(),
	}
	if user, err := s.users.FindByID(ctx, order.UserID); err == nil {
		input.CustomerEmail = user.Email
	}

	ids := make([]uuid.UUID, len(order.Details))
	for i, d := range order.Details {
		ids[i] = d.ProductID
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return input, err
	}
	names := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	for _, d := range order.Details {
		name, ok := names[d.ProductID]
		if !ok {
			name = "Product " + d.ProductID.String()
		}
		input.Items = append(input.Items, CheckoutLineItem{
			Name:       name,
			UnitAmount: toCents(d.UnitPrice),
			Quantity:   int64(d.Quantity),
		})
	}
	return input, nil
}

func (s *PaymentService) publish(ctx context.Context, payment *billing.Payment, order *trade.Order) {
	var events []shared.DomainEvent
	if payment != nil {
		events = append(events, payment.GetDomainEvents()...)
		payment.ClearDomainEvents()
	}
	if order != nil {
		events = append(events, order.GetDomainEvents()...)
		order.ClearDomainEvents()
	}
	if len(events) == 0 || s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish payment events", zap.Error(err))
	}
}

func (s *PaymentService) findOrder(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *PaymentService) findPayment(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

func checkPayable(order *trade.Order) error {
	switch {
	case order.IsPaid():
		return trade.ErrOrderAlreadyPaid
	case !order.IsPending():
		return shared.NewDomainError("ORDER_NOT_PENDING", "Only pending orders can be paid")
	}
	return nil
}

// toCents converts a money amount to the smallest currency unit
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func pageFilter(page, pageSize int) shared.Filter {
	f := shared.DefaultFilter()
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 {
		f.PageSize = pageSize
	}
	return f
}
