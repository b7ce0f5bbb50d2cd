package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ecommerce/backend/internal/domain/shared"
	"github.com/ecommerce/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Order", uuid.New())}
}

type testHandler struct {
	eventTypes []string
	mu         sync.Mutex
	handled    []shared.DomainEvent
	err        error
	panics     bool
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_SyncBeforeStart(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	paid := newTestHandler("OrderPaid")
	bus.Subscribe(paid)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderPaid"), newTestEvent("OrderCreated")))

	assert.Equal(t, 1, paid.count())
}

func TestInMemoryEventBus_Wildcard(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	all := newTestHandler()
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("A"), newTestEvent("B")))

	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := newTestHandler("X")
	failing.err = errors.New("handler error")
	panicking := newTestHandler("X")
	panicking.panics = true
	healthy := newTestHandler("X")
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("X"))

	assert.NoError(t, err)
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("X")
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("X")))

	assert.Zero(t, handler.count())
	assert.Zero(t, bus.registry.Count())
}

func TestInMemoryEventBus_AsyncDrainsOnStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithWorkers(2), WithQueueSize(32))
	handler := newTestHandler("X")
	bus.Subscribe(handler)
	require.NoError(t, bus.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(ctx, newTestEvent("X")))
	}
	cancel() // request finished; handlers still run

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, bus.Stop(stopCtx))

	assert.Equal(t, 10, handler.count())
}

func TestInMemoryEventBus_QueueFull(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithWorkers(1), WithQueueSize(1))
	block := make(chan struct{})
	bus.Subscribe(blockingHandler{block: block})
	require.NoError(t, bus.Start(context.Background()))

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, newTestEvent("X"))) // taken by the worker
	require.Eventually(t, func() bool { return len(bus.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, bus.Publish(ctx, newTestEvent("X"))) // fills the queue
	assert.ErrorIs(t, bus.Publish(ctx, newTestEvent("X")), ErrBusFull)

	close(block)
	require.NoError(t, bus.Stop(context.Background()))
}

type blockingHandler struct{ block chan struct{} }

func (h blockingHandler) Handle(context.Context, shared.DomainEvent) error {
	<-h.block
	return nil
}

func (blockingHandler) EventTypes() []string { return nil }

func TestIdempotentHandler(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("handles each event once", func(t *testing.T) {
		inner := newTestHandler("PaymentCompleted")
		h := NewIdempotentHandler("invoice-issuer", inner, store, time.Hour, zap.NewNop())
		event := newTestEvent("PaymentCompleted")

		require.NoError(t, h.Handle(ctx, event))
		require.NoError(t, h.Handle(ctx, event))

		assert.Equal(t, 1, inner.count())
		assert.Equal(t, IdempotencyStats{Processed: 1, Duplicate: 1}, h.Stats())
		assert.Equal(t, []string{"PaymentCompleted"}, h.EventTypes())
	})

	t.Run("keys are scoped per handler", func(t *testing.T) {
		event := newTestEvent("PaymentCompleted")
		a := newTestHandler()
		b := newTestHandler()

		require.NoError(t, NewIdempotentHandler("a", a, store, 0, zap.NewNop()).Handle(ctx, event))
		require.NoError(t, NewIdempotentHandler("b", b, store, 0, zap.NewNop()).Handle(ctx, event))

		assert.Equal(t, 1, a.count())
		assert.Equal(t, 1, b.count())
	})

	t.Run("failure releases the key", func(t *testing.T) {
		inner := newTestHandler()
		inner.err = errors.New("temporary")
		h := NewIdempotentHandler("retry", inner, store, time.Hour, zap.NewNop())
		event := newTestEvent("PaymentCompleted")

		assert.Error(t, h.Handle(ctx, event))
		inner.err = nil
		assert.NoError(t, h.Handle(ctx, event))

		assert.Equal(t, 2, inner.count())
		assert.Equal(t, int64(1), h.Stats().Failed)
	})
}
