package telemetry

import (
	"context"

	"github.com/ecommerce/backend/internal/domain/billing"
	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/domain/trade"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ShopMetrics records storefront business metrics. It subscribes to domain
// events on the bus; chat traffic is recorded directly by the chat gateway.
type ShopMetrics struct {
	ordersCreated   *Counter
	ordersPaid      *Counter
	ordersCancelled *Counter
	orderAmount     *Histogram
	payments        *Counter
	invoicesIssued  *Counter
	chatMessages    *Counter
	chatConnections metric.Int64UpDownCounter
	logger          *zap.Logger
}

// NewShopMetrics creates the business instruments on meter
func NewShopMetrics(meter metric.Meter, logger *zap.Logger) (*ShopMetrics, error) {
	m := &ShopMetrics{logger: logger}
	var err error

	if m.ordersCreated, err = NewCounter(meter, "shop_order_created_total", "Orders placed", "{order}"); err != nil {
		return nil, err
	}
	if m.ordersPaid, err = NewCounter(meter, "shop_order_paid_total", "Orders paid", "{order}"); err != nil {
		return nil, err
	}
	if m.ordersCancelled, err = NewCounter(meter, "shop_order_cancelled_total", "Orders cancelled", "{order}"); err != nil {
		return nil, err
	}
	if m.orderAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "shop_order_amount",
		Description: "Order total distribution",
		Unit:        "{currency}",
		Boundaries:  OrderAmountBuckets,
	}); err != nil {
		return nil, err
	}
	if m.payments, err = NewCounter(meter, "shop_payment_total", "Payments by method and outcome", "{payment}"); err != nil {
		return nil, err
	}
	if m.invoicesIssued, err = NewCounter(meter, "shop_invoice_issued_total", "Invoices issued", "{invoice}"); err != nil {
		return nil, err
	}
	if m.chatMessages, err = NewCounter(meter, "shop_chat_message_total", "Chat bot messages by outcome", "{message}"); err != nil {
		return nil, err
	}
	if m.chatConnections, err = meter.Int64UpDownCounter("shop_chat_connections",
		metric.WithDescription("Open chat connections"),
		metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}
	return m, nil
}

// Handle implements shared.EventHandler
func (m *ShopMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *trade.OrderCreatedEvent:
		m.ordersCreated.Inc(ctx)
		m.orderAmount.Record(ctx, e.Total.InexactFloat64())
	case *trade.OrderPaidEvent:
		m.ordersPaid.Inc(ctx)
	case *trade.OrderCancelledEvent:
		m.ordersCancelled.Inc(ctx, AttrOrderStatus.String(string(e.PreviousStatus)))
	case *billing.PaymentCompletedEvent:
		m.payments.Inc(ctx,
			AttrPaymentMethod.String(string(e.Method)),
			AttrPaymentStatus.String("completed"))
	case *billing.PaymentFailedEvent:
		m.payments.Inc(ctx,
			AttrPaymentMethod.String(string(e.Method)),
			AttrPaymentStatus.String("failed"))
	case *billing.InvoiceIssuedEvent:
		m.invoicesIssued.Inc(ctx)
	default:
		m.logger.Debug("Metrics ignoring event", zap.String("event_type", event.EventType()))
	}
	return nil
}

// EventTypes implements shared.EventHandler
func (m *ShopMetrics) EventTypes() []string {
	return []string{
		trade.EventTypeOrderCreated,
		trade.EventTypeOrderPaid,
		trade.EventTypeOrderCancelled,
		billing.EventTypePaymentCompleted,
		billing.EventTypePaymentFailed,
		billing.EventTypeInvoiceIssued,
	}
}

// RecordChatMessage counts one answered chat message
func (m *ShopMetrics) RecordChatMessage(ctx context.Context, outcome string) {
	m.chatMessages.Inc(ctx, AttrChatOutcome.String(outcome))
}

// ChatConnected adjusts the open connection count by delta
func (m *ShopMetrics) ChatConnected(ctx context.Context, delta int64) {
	m.chatConnections.Add(ctx, delta)
}

var _ shared.EventHandler = (*ShopMetrics)(nil)
