package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"astraea-backend/application/ports"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/domain/events"
)

// MockAnalysisRepository is a mock implementation of ports.AnalysisRepository
type MockAnalysisRepository struct {
	mock.Mock
}

func (m *MockAnalysisRepository) Save(ctx context.Context, analysis *aggregates.RelationshipAnalysis) error {
	args := m.Called(ctx, analysis)
	return args.Error(0)
}

func (m *MockAnalysisRepository) FindByID(ctx context.Context, userID valueobjects.UserID, id valueobjects.AnalysisID) (*aggregates.RelationshipAnalysis, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregates.RelationshipAnalysis), args.Error(1)
}

func (m *MockAnalysisRepository) FindByUser(ctx context.Context, userID valueobjects.UserID, page ports.ListPage) ([]*aggregates.RelationshipAnalysis, string, error) {
	args := m.Called(ctx, userID, page)
	var analyses []*aggregates.RelationshipAnalysis
	if args.Get(0) != nil {
		analyses = args.Get(0).([]*aggregates.RelationshipAnalysis)
	}
	return analyses, args.String(1), args.Error(2)
}

func (m *MockAnalysisRepository) Delete(ctx context.Context, userID valueobjects.UserID, id valueobjects.AnalysisID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockAnalysisRepository) DeleteBatch(ctx context.Context, userID valueobjects.UserID, ids []valueobjects.AnalysisID) error {
	args := m.Called(ctx, userID, ids)
	return args.Error(0)
}

func (m *MockAnalysisRepository) PurgeOlderThan(ctx context.Context, before time.Time, dryRun bool) (int, error) {
	args := m.Called(ctx, before, dryRun)
	return args.Int(0), args.Error(1)
}

// MockEventStore is a mock implementation of ports.EventStore
type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) SaveEvents(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

func (m *MockEventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	args := m.Called(ctx, aggregateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]events.DomainEvent), args.Error(1)
}

func (m *MockEventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	args := m.Called(ctx, eventType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]events.DomainEvent), args.Error(1)
}

func (m *MockEventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	args := m.Called(ctx, aggregateID)
	return args.Error(0)
}

func (m *MockEventStore) DeleteEventsBatch(ctx context.Context, aggregateIDs []string) error {
	args := m.Called(ctx, aggregateIDs)
	return args.Error(0)
}

// MockEventBus is a mock implementation of ports.EventBus
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventBus) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	args := m.Called(eventType, handler)
	return args.Error(0)
}

func (m *MockEventBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	args := m.Called(eventType, handler)
	return args.Error(0)
}

// MockCache is a mock implementation of ports.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (interface{}, bool) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Bool(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockLockLease is a mock implementation of ports.LockLease
type MockLockLease struct {
	mock.Mock
}

func (m *MockLockLease) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockUnitLock is a mock implementation of ports.UnitLock
type MockUnitLock struct {
	mock.Mock
}

func (m *MockUnitLock) Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (ports.LockLease, error) {
	args := m.Called(ctx, resource, owner, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.LockLease), args.Error(1)
}

// MockEphemerisProvider is a mock implementation of ports.EphemerisProvider
type MockEphemerisProvider struct {
	mock.Mock
}

func (m *MockEphemerisProvider) ChartAt(ctx context.Context, data ports.BirthData) (*entities.BirthChart, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BirthChart), args.Error(1)
}
