package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ecommerce/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusFull is returned by Publish when the queue cannot take more events
var ErrBusFull = errors.New("event bus queue is full")

const (
	defaultQueueSize = 256
	defaultWorkers   = 4
)

// envelope carries an event together with the publisher's context values
type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// InMemoryEventBus implements EventBus with in-process pub/sub.
// Before Start, Publish dispatches synchronously. After Start, events are
// queued and dispatched by a worker pool so that HTTP handlers return
// without waiting for side effects like invoice issuing.
type InMemoryEventBus struct {
	registry  *HandlerRegistry
	logger    *zap.Logger
	queue     chan envelope
	workers   int
	running   atomic.Bool
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closeOnce sync.Once
}

// BusOption configures the event bus
type BusOption func(*InMemoryEventBus)

// WithQueueSize sets the async queue capacity
func WithQueueSize(size int) BusOption {
	return func(b *InMemoryEventBus) {
		if size > 0 {
			b.queue = make(chan envelope, size)
		}
	}
}

// WithWorkers sets the number of dispatch goroutines
func WithWorkers(n int) BusOption {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
		queue:    make(chan envelope, defaultQueueSize),
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands events to their subscribers. Handler errors are logged and
// never returned to the publisher.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.running.Load() {
		for _, event := range events {
			b.dispatch(ctx, event)
		}
		return nil
	}

	// handlers outlive the request that published the event
	detached := context.WithoutCancel(ctx)
	for _, event := range events {
		select {
		case b.queue <- envelope{ctx: detached, event: event}:
		default:
			b.logger.Error("event dropped, queue full",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
			)
			return ErrBusFull
		}
	}
	return nil
}

// Subscribe registers a handler. Without explicit types the handler's own
// EventTypes are used; if those are empty too, it receives every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start launches the worker pool
func (b *InMemoryEventBus) Start(_ context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	b.logger.Info("event bus started", zap.Int("workers", b.workers))
	return nil
}

// Stop drains the queue and waits for the workers, or gives up when ctx ends
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	wasRunning := b.running.CompareAndSwap(true, false)
	if wasRunning {
		b.closeOnce.Do(func() { close(b.queue) })
	}
	b.mu.Unlock()
	if !wasRunning {
		return nil
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *InMemoryEventBus) worker() {
	defer b.wg.Done()
	for env := range b.queue {
		b.dispatch(env.ctx, env.event)
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler shields the bus from panicking handlers
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
			err = errors.New("handler panicked")
		}
	}()

	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
