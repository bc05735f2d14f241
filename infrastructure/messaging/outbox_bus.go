package messaging

import (
	"context"

	"astraea-backend/application/ports"
	"astraea-backend/domain/events"

	"go.uber.org/zap"
)

// OutboxEventBus publishes by persisting. Events land in the store with
// pending status inside the request path; the outbox processor relays them
// to the real bus afterwards. Once the store write succeeds the event cannot
// be lost, which is the property the direct-publish path cannot give.
type OutboxEventBus struct {
	store  ports.EventStore
	logger *zap.Logger
}

var _ ports.EventBus = (*OutboxEventBus)(nil)

// NewOutboxEventBus creates a bus whose publish step is a durable write.
func NewOutboxEventBus(store ports.EventStore, logger *zap.Logger) *OutboxEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxEventBus{
		store:  store,
		logger: logger,
	}
}

// Publish records one event for the relay.
func (b *OutboxEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	return b.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch records events for the relay.
func (b *OutboxEventBus) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	if err := b.store.SaveEvents(ctx, domainEvents); err != nil {
		return err
	}

	b.logger.Debug("events queued for relay", zap.Int("count", len(domainEvents)))
	return nil
}

// Subscribe has no in-process delivery; consumers attach to the downstream
// bus the relay publishes to.
func (b *OutboxEventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	b.logger.Warn("outbox bus has no in-process subscriptions",
		zap.String("eventType", eventType),
	)
	return nil
}

// Unsubscribe mirrors Subscribe.
func (b *OutboxEventBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.logger.Warn("outbox bus has no in-process subscriptions",
		zap.String("eventType", eventType),
	)
	return nil
}
