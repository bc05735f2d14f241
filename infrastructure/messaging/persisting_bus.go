package messaging

import (
	"context"

	"astraea-backend/application/ports"
	"astraea-backend/domain/events"

	"go.uber.org/zap"
)

// PersistingEventBus decorates a bus with an event-store audit trail.
// Delivery comes first; the store write is best effort, so a storage hiccup
// never turns a delivered event into a reported failure.
type PersistingEventBus struct {
	inner  ports.EventBus
	store  ports.EventStore
	logger *zap.Logger
}

var _ ports.EventBus = (*PersistingEventBus)(nil)

// NewPersistingEventBus wraps inner so every published event is also saved.
func NewPersistingEventBus(inner ports.EventBus, store ports.EventStore, logger *zap.Logger) *PersistingEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersistingEventBus{
		inner:  inner,
		store:  store,
		logger: logger,
	}
}

// Publish delivers the event, then records it.
func (b *PersistingEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	return b.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch delivers the events, then records them.
func (b *PersistingEventBus) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	if err := b.inner.PublishBatch(ctx, domainEvents); err != nil {
		return err
	}

	if err := b.store.SaveEvents(ctx, domainEvents); err != nil {
		b.logger.Warn("failed to record published events",
			zap.Int("count", len(domainEvents)),
			zap.Error(err),
		)
	}

	return nil
}

// Subscribe registers on the inner bus.
func (b *PersistingEventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	return b.inner.Subscribe(eventType, handler)
}

// Unsubscribe removes from the inner bus.
func (b *PersistingEventBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	return b.inner.Unsubscribe(eventType, handler)
}
