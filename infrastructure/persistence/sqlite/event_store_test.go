package sqlite

import (
	"context"
	"testing"
	"time"

	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventStore_SaveAndGetEvents(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore(openTestStore(t), zap.NewNop())

	analysisID := valueobjects.NewAnalysisID()
	base := time.Now()
	requested := events.NewAnalysisRequested(analysisID, "user-123", "Alice", "Ben", base.Add(-time.Minute))
	completed := events.NewAnalysisCompleted(analysisID, "user-123", "Alice", "Ben", 72, "Very Strong", base)

	require.NoError(t, store.SaveEvents(ctx, []events.DomainEvent{requested, completed}))

	stored, err := store.GetEvents(ctx, analysisID.String())
	require.NoError(t, err)
	require.Len(t, stored, 2)

	// Oldest first.
	assert.Equal(t, "analysis.requested", stored[0].GetEventType())
	assert.Equal(t, "analysis.completed", stored[1].GetEventType())

	first, ok := stored[0].(events.AnalysisRequested)
	require.True(t, ok)
	assert.Equal(t, "user-123", first.UserID)
	assert.Equal(t, "Alice", first.Chart1Label)

	second, ok := stored[1].(events.AnalysisCompleted)
	require.True(t, ok)
	assert.Equal(t, 72, second.OverallScore)
	assert.Equal(t, "Very Strong", second.Rating)
}

func TestEventStore_GetEventsByType(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore(openTestStore(t), zap.NewNop())

	base := time.Now()
	older := events.NewAnalysisDeleted(valueobjects.NewAnalysisID(), "user-123", false, base.Add(-time.Hour))
	newer := events.NewAnalysisDeleted(valueobjects.NewAnalysisID(), "user-123", true, base)
	other := events.NewAnalysisCompleted(valueobjects.NewAnalysisID(), "user-123", "A", "B", 50, "Moderate", base)

	require.NoError(t, store.SaveEvents(ctx, []events.DomainEvent{older, newer, other}))

	deleted, err := store.GetEventsByType(ctx, "analysis.deleted", 10)
	require.NoError(t, err)
	require.Len(t, deleted, 2)

	// Newest first.
	assert.Equal(t, newer.GetAggregateID(), deleted[0].GetAggregateID())
	assert.Equal(t, older.GetAggregateID(), deleted[1].GetAggregateID())

	limited, err := store.GetEventsByType(ctx, "analysis.deleted", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestEventStore_DeleteEvents(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore(openTestStore(t), zap.NewNop())

	analysisID := valueobjects.NewAnalysisID()
	completed := events.NewAnalysisCompleted(analysisID, "user-123", "A", "B", 60, "Strong", time.Now())
	require.NoError(t, store.SaveEvents(ctx, []events.DomainEvent{completed}))

	require.NoError(t, store.DeleteEvents(ctx, analysisID.String()))

	stored, err := store.GetEvents(ctx, analysisID.String())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestEventStore_DeleteEventsBatch(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore(openTestStore(t), zap.NewNop())

	first := events.NewAnalysisCompleted(valueobjects.NewAnalysisID(), "user-123", "A", "B", 60, "Strong", time.Now())
	second := events.NewAnalysisCompleted(valueobjects.NewAnalysisID(), "user-123", "C", "D", 40, "Moderate", time.Now())
	keep := events.NewAnalysisCompleted(valueobjects.NewAnalysisID(), "user-123", "E", "F", 80, "Exceptional", time.Now())

	require.NoError(t, store.SaveEvents(ctx, []events.DomainEvent{first, second, keep}))

	require.NoError(t, store.DeleteEventsBatch(ctx, []string{
		first.GetAggregateID(),
		second.GetAggregateID(),
	}))

	remaining, err := store.GetEvents(ctx, keep.GetAggregateID())
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	gone, err := store.GetEvents(ctx, first.GetAggregateID())
	require.NoError(t, err)
	assert.Empty(t, gone)
}
