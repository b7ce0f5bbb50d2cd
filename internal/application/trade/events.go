package trade

import (
	"context"

	"github.com/ecommerce/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// publishEvents hands the aggregate's queued events to publisher and clears them.
// Publishing failures are logged; the state change has already been committed.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, aggregate shared.AggregateRoot, logger *zap.Logger) {
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	aggregate.ClearDomainEvents()
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.String("aggregate_id", aggregate.GetID().String()),
			zap.Int("events", len(events)),
			zap.Error(err))
	}
}
