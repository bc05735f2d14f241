package ports

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/domain/events"
	"astraea-backend/pkg/utils"
)

// ListPage carries cursor pagination parameters for list reads. NextToken is
// opaque to callers; each repository driver mints and consumes its own.
type ListPage struct {
	Limit     int
	NextToken string
}

// AnalysisRepository is the persistence port for relationship analyses.
// Implementations exist for DynamoDB, SQLite, and an in-memory store; every
// operation is scoped to the owning user, so a caller can never read or
// delete another account's analyses.
type AnalysisRepository interface {
	// Save persists a freshly generated analysis.
	Save(ctx context.Context, analysis *aggregates.RelationshipAnalysis) error

	// FindByID retrieves one analysis owned by the user.
	FindByID(ctx context.Context, userID valueobjects.UserID, id valueobjects.AnalysisID) (*aggregates.RelationshipAnalysis, error)

	// FindByUser lists the user's analyses, newest first.
	FindByUser(ctx context.Context, userID valueobjects.UserID, page ListPage) ([]*aggregates.RelationshipAnalysis, string, error)

	// Delete removes one analysis owned by the user.
	Delete(ctx context.Context, userID valueobjects.UserID, id valueobjects.AnalysisID) error

	// DeleteBatch removes multiple analyses owned by the user.
	DeleteBatch(ctx context.Context, userID valueobjects.UserID, ids []valueobjects.AnalysisID) error

	// PurgeOlderThan removes every analysis generated before the cutoff,
	// across all users. With dryRun it only counts what would go.
	PurgeOlderThan(ctx context.Context, before time.Time, dryRun bool) (int, error)
}

// EventStore persists domain events for audit and the outbox relay.
type EventStore interface {
	// SaveEvents persists domain events
	SaveEvents(ctx context.Context, events []events.DomainEvent) error

	// GetEvents retrieves events for an aggregate
	GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error)

	// GetEventsByType retrieves events of a specific type
	GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error)

	// DeleteEvents removes all events for an aggregate
	DeleteEvents(ctx context.Context, aggregateID string) error

	// DeleteEventsBatch removes all events for multiple aggregates
	DeleteEventsBatch(ctx context.Context, aggregateIDs []string) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

// BirthData is the raw birth information a client may send instead of a
// fully computed chart. The ephemeris collaborator turns it into positions.
type BirthData struct {
	// DateTime is the birth instant in UTC.
	DateTime time.Time `json:"dateTime" validate:"required"`
	// Latitude in decimal degrees, north positive.
	Latitude float64 `json:"latitude" validate:"min=-90,max=90"`
	// Longitude in decimal degrees, east positive.
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// UnmarshalJSON accepts the lenient birth datetime layouts clients actually
// send (naive timestamps read as UTC), not just strict RFC3339.
func (b *BirthData) UnmarshalJSON(data []byte) error {
	var raw struct {
		DateTime  string  `json:"dateTime"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	b.Latitude = raw.Latitude
	b.Longitude = raw.Longitude
	b.DateTime = time.Time{}
	if raw.DateTime != "" {
		parsed, err := utils.ParseBirthDateTime(raw.DateTime)
		if err != nil {
			return err
		}
		b.DateTime = parsed
	}
	return nil
}

// EphemerisProvider computes a birth chart from birth data. The only
// implementation is the anti-corruption adapter over the external ephemeris
// service; positions are never computed in-process.
type EphemerisProvider interface {
	ChartAt(ctx context.Context, data BirthData) (*entities.BirthChart, error)
}

// ErrLockHeld is returned by UnitLock.Acquire when another owner holds the
// lock. Callers treat it as "duplicate request in flight", not a failure.
var ErrLockHeld = errors.New("lock already held")

// LockLease is a held lock. Release is idempotent.
type LockLease interface {
	Release(ctx context.Context) error
}

// UnitLock is a coarse mutual-exclusion port used to suppress duplicate
// analysis generation for the same chart pair. Locks expire on their own
// after the TTL, so a crashed holder cannot wedge the resource.
type UnitLock interface {
	Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (LockLease, error)
}
