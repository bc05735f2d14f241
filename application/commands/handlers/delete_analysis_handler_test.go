package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"astraea-backend/application/commands"
	"astraea-backend/tests/fixtures"
	"astraea-backend/tests/mocks"
)

func TestDeleteAnalysisHandlerDeletesOwnedAnalysis(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockAnalysisRepository)
	eventStore := new(mocks.MockEventStore)
	eventBus := new(mocks.MockEventBus)

	analysis := fixtures.NewAnalysisBuilder().WithUserID("user-123").MustBuild()
	cmd := commands.DeleteAnalysisCommand{
		UserID:     "user-123",
		AnalysisID: analysis.ID().String(),
	}

	repo.On("FindByID", ctx, analysis.UserID(), analysis.ID()).Return(analysis, nil)
	repo.On("Delete", ctx, analysis.UserID(), analysis.ID()).Return(nil)
	eventStore.On("DeleteEvents", ctx, analysis.ID().String()).Return(nil)
	eventBus.On("Publish", ctx, mock.AnythingOfType("events.AnalysisDeleted")).Return(nil)

	handler := NewDeleteAnalysisHandler(repo, eventStore, eventBus, zap.NewNop())

	err := handler.Handle(ctx, cmd)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	eventStore.AssertExpectations(t)
	eventBus.AssertExpectations(t)
}

func TestDeleteAnalysisHandlerAnalysisNotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockAnalysisRepository)
	eventStore := new(mocks.MockEventStore)
	eventBus := new(mocks.MockEventBus)

	analysis := fixtures.NewAnalysisBuilder().WithUserID("user-123").MustBuild()
	cmd := commands.DeleteAnalysisCommand{
		UserID:     "user-123",
		AnalysisID: analysis.ID().String(),
	}

	repo.On("FindByID", ctx, analysis.UserID(), analysis.ID()).
		Return(nil, errors.New("analysis not found"))

	handler := NewDeleteAnalysisHandler(repo, eventStore, eventBus, zap.NewNop())

	err := handler.Handle(ctx, cmd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get analysis")
	repo.AssertNumberOfCalls(t, "Delete", 0)
}

func TestDeleteAnalysisHandlerInvalidAnalysisID(t *testing.T) {
	handler := NewDeleteAnalysisHandler(
		new(mocks.MockAnalysisRepository),
		new(mocks.MockEventStore),
		new(mocks.MockEventBus),
		zap.NewNop(),
	)

	err := handler.Handle(context.Background(), commands.DeleteAnalysisCommand{
		UserID:     "user-123",
		AnalysisID: "not-a-valid-id",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid analysis ID")
}

func TestDeleteAnalysisHandlerEmptyAnalysisID(t *testing.T) {
	handler := NewDeleteAnalysisHandler(
		new(mocks.MockAnalysisRepository),
		new(mocks.MockEventStore),
		new(mocks.MockEventBus),
		zap.NewNop(),
	)

	err := handler.Handle(context.Background(), commands.DeleteAnalysisCommand{
		UserID: "user-123",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis ID is required")
}

func TestDeleteAnalysisHandlerDeleteError(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockAnalysisRepository)

	analysis := fixtures.NewAnalysisBuilder().WithUserID("user-123").MustBuild()
	cmd := commands.DeleteAnalysisCommand{
		UserID:     "user-123",
		AnalysisID: analysis.ID().String(),
	}

	repo.On("FindByID", ctx, analysis.UserID(), analysis.ID()).Return(analysis, nil)
	repo.On("Delete", ctx, analysis.UserID(), analysis.ID()).Return(errors.New("conditional check failed"))

	handler := NewDeleteAnalysisHandler(repo, new(mocks.MockEventStore), new(mocks.MockEventBus), zap.NewNop())

	err := handler.Handle(ctx, cmd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete analysis")
}

func TestDeleteAnalysisHandlerEventCleanupFailureDoesNotFailDelete(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockAnalysisRepository)
	eventStore := new(mocks.MockEventStore)
	eventBus := new(mocks.MockEventBus)

	analysis := fixtures.NewAnalysisBuilder().WithUserID("user-123").MustBuild()
	cmd := commands.DeleteAnalysisCommand{
		UserID:     "user-123",
		AnalysisID: analysis.ID().String(),
	}

	repo.On("FindByID", ctx, analysis.UserID(), analysis.ID()).Return(analysis, nil)
	repo.On("Delete", ctx, analysis.UserID(), analysis.ID()).Return(nil)
	eventStore.On("DeleteEvents", ctx, analysis.ID().String()).Return(errors.New("event table offline"))
	eventBus.On("Publish", ctx, mock.AnythingOfType("events.AnalysisDeleted")).Return(errors.New("bus offline"))

	handler := NewDeleteAnalysisHandler(repo, eventStore, eventBus, zap.NewNop())

	err := handler.Handle(ctx, cmd)

	// The analysis itself is gone; event cleanup and notification are best effort
	assert.NoError(t, err)
	repo.AssertExpectations(t)
	eventStore.AssertExpectations(t)
	eventBus.AssertExpectations(t)
}
