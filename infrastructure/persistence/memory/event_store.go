package memory

import (
	"context"
	"sort"
	"sync"

	"astraea-backend/application/ports"
	"astraea-backend/domain/events"
)

// EventStore is an in-memory ports.EventStore for development and tests.
type EventStore struct {
	mu     sync.RWMutex
	events map[string][]events.DomainEvent // aggregateID -> ordered events
}

var _ ports.EventStore = (*EventStore)(nil)

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		events: make(map[string][]events.DomainEvent),
	}
}

// SaveEvents appends events under their aggregate IDs.
func (s *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range domainEvents {
		id := event.GetAggregateID()
		s.events[id] = append(s.events[id], event)
	}

	return nil
}

// GetEvents returns all events for an aggregate in append order.
func (s *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.events[aggregateID]
	out := make([]events.DomainEvent, len(stored))
	copy(out, stored)
	return out, nil
}

// GetEventsByType returns up to limit events of one type, newest first.
func (s *EventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	s.mu.RLock()
	matched := make([]events.DomainEvent, 0)
	for _, stored := range s.events {
		for _, event := range stored {
			if event.GetEventType() == eventType {
				matched = append(matched, event)
			}
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].GetTimestamp().After(matched[j].GetTimestamp())
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// DeleteEvents removes all events for an aggregate.
func (s *EventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.events, aggregateID)
	return nil
}

// DeleteEventsBatch removes all events for multiple aggregates.
func (s *EventStore) DeleteEventsBatch(ctx context.Context, aggregateIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range aggregateIDs {
		delete(s.events, id)
	}
	return nil
}
