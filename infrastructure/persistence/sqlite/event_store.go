package sqlite

import (
	"context"
	"encoding/json"

	"astraea-backend/application/ports"
	"astraea-backend/domain/events"
	pkgerrors "astraea-backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// EventStore implements ports.EventStore on the events table. Payloads are
// stored as the event's JSON form, so the table never needs a column per
// event field.
type EventStore struct {
	store  *Store
	logger *zap.Logger
}

var _ ports.EventStore = (*EventStore)(nil)

// NewEventStore creates a SQLite-backed event store.
func NewEventStore(store *Store, logger *zap.Logger) *EventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventStore{store: store, logger: logger}
}

type eventRow struct {
	EventType string `db:"event_type"`
	Payload   []byte `db:"payload"`
}

// SaveEvents persists domain events in one transaction.
func (es *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	tx, err := es.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return pkgerrors.NewDatabaseError("begin event transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO events
			(event_id, aggregate_id, event_type, user_id, version, occurred_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return pkgerrors.NewDatabaseError("prepare event insert", err)
	}
	defer stmt.Close()

	for _, event := range domainEvents {
		payload, err := json.Marshal(event)
		if err != nil {
			return pkgerrors.NewDatabaseError("encode event", err)
		}

		var owner struct {
			UserID string `json:"user_id"`
		}
		// Best effort; not every event type carries an owner.
		_ = json.Unmarshal(payload, &owner)

		_, err = stmt.ExecContext(ctx,
			uuid.New().String(),
			event.GetAggregateID(),
			event.GetEventType(),
			owner.UserID,
			event.GetVersion(),
			event.GetTimestamp().UnixMilli(),
			string(payload),
		)
		if err != nil {
			return pkgerrors.NewDatabaseError("insert event", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.NewDatabaseError("commit events", err)
	}

	return nil
}

// GetEvents retrieves all events for an aggregate, oldest first.
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	var rows []eventRow
	err := es.store.db.SelectContext(ctx, &rows, `
		SELECT event_type, payload FROM events
		WHERE aggregate_id = ?
		ORDER BY occurred_at ASC, rowid ASC`,
		aggregateID,
	)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query events", err)
	}

	return decodeEventRows(rows)
}

// GetEventsByType retrieves the most recent events of one type.
func (es *EventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []eventRow
	err := es.store.db.SelectContext(ctx, &rows, `
		SELECT event_type, payload FROM events
		WHERE event_type = ?
		ORDER BY occurred_at DESC, rowid DESC
		LIMIT ?`,
		eventType, limit,
	)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query events by type", err)
	}

	return decodeEventRows(rows)
}

// DeleteEvents removes all events for an aggregate.
func (es *EventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	if _, err := es.store.db.ExecContext(ctx,
		"DELETE FROM events WHERE aggregate_id = ?", aggregateID,
	); err != nil {
		return pkgerrors.NewDatabaseError("delete events", err)
	}
	return nil
}

// DeleteEventsBatch removes all events for multiple aggregates.
func (es *EventStore) DeleteEventsBatch(ctx context.Context, aggregateIDs []string) error {
	if len(aggregateIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In("DELETE FROM events WHERE aggregate_id IN (?)", aggregateIDs)
	if err != nil {
		return pkgerrors.NewDatabaseError("build batch event delete", err)
	}

	if _, err := es.store.db.ExecContext(ctx, es.store.db.Rebind(query), args...); err != nil {
		return pkgerrors.NewDatabaseError("batch delete events", err)
	}

	return nil
}

func decodeEventRows(rows []eventRow) ([]events.DomainEvent, error) {
	decoded := make([]events.DomainEvent, 0, len(rows))
	for _, row := range rows {
		event, err := events.Unmarshal(row.EventType, row.Payload)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("decode event", err)
		}
		decoded = append(decoded, event)
	}
	return decoded, nil
}
