// Package messaging provides the event bus implementations behind
// ports.EventBus: an in-process bus for the memory and sqlite drivers, a
// persisting decorator that keeps the event store as an audit trail, and an
// outbox bus that makes storage itself the publish step.
package messaging

import (
	"context"
	"sync"

	"astraea-backend/application/ports"
	"astraea-backend/domain/events"

	"go.uber.org/zap"
)

// LocalEventBus dispatches events to in-process subscribers. Delivery is
// synchronous so tests observe effects without sleeping; a failing handler
// is logged and does not stop the others.
type LocalEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	logger   *zap.Logger
}

var _ ports.EventBus = (*LocalEventBus)(nil)

// NewLocalEventBus creates an empty in-process bus.
func NewLocalEventBus(logger *zap.Logger) *LocalEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalEventBus{
		handlers: make(map[string][]ports.EventHandler),
		logger:   logger,
	}
}

// Publish delivers one event to every subscriber of its type.
func (b *LocalEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.mu.RLock()
	subscribers := make([]ports.EventHandler, len(b.handlers[event.GetEventType()]))
	copy(subscribers, b.handlers[event.GetEventType()])
	b.mu.RUnlock()

	for _, handler := range subscribers {
		if !handler.CanHandle(event.GetEventType()) {
			continue
		}
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Error("event handler failed",
				zap.String("eventType", event.GetEventType()),
				zap.String("aggregateId", event.GetAggregateID()),
				zap.Error(err),
			)
		}
	}

	return nil
}

// PublishBatch delivers events in order.
func (b *LocalEventBus) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a handler for an event type.
func (b *LocalEventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Unsubscribe removes a previously registered handler.
func (b *LocalEventBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers := b.handlers[eventType]
	for i, registered := range subscribers {
		if registered == handler {
			b.handlers[eventType] = append(subscribers[:i], subscribers[i+1:]...)
			break
		}
	}
	return nil
}
