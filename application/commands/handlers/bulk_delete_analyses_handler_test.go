package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"astraea-backend/application/commands"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/tests/fixtures"
	"astraea-backend/tests/mocks"
)

func TestBulkDeleteAnalysesHandlerDeletesAllConfirmed(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockAnalysisRepository)
	eventStore := new(mocks.MockEventStore)
	eventBus := new(mocks.MockEventBus)

	first := fixtures.NewAnalysisBuilder().WithUserID("user-123").MustBuild()
	second := fixtures.NewAnalysisBuilder().WithUserID("user-123").MustBuild()
	userID := first.UserID()

	cmd := commands.BulkDeleteAnalysesCommand{
		UserID:      "user-123",
		AnalysisIDs: []string{first.ID().String(), second.ID().String()},
	}

	repo.On("FindByID", ctx, userID, first.ID()).Return(first, nil)
	repo.On("FindByID", ctx, userID, second.ID()).Return(second, nil)
	repo.On("DeleteBatch", ctx, userID, []valueobjects.AnalysisID{first.ID(), second.ID()}).Return(nil)
	eventStore.On("DeleteEventsBatch", ctx, []string{first.ID().String(), second.ID().String()}).Return(nil)
	eventBus.On("PublishBatch", ctx, mock.AnythingOfType("[]events.DomainEvent")).Return(nil)

	handler := NewBulkDeleteAnalysesHandler(repo, eventStore, eventBus, zap.NewNop())

	result, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.DeletedCount)
	assert.Empty(t, result.FailedIDs)
	assert.Empty(t, result.Errors)

	repo.AssertExpectations(t)
	eventStore.AssertExpectations(t)
	eventBus.AssertExpectations(t)
}

func TestBulkDeleteAnalysesHandlerPartialFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockAnalysisRepository)
	eventStore := new(mocks.MockEventStore)
	eventBus := new(mocks.MockEventBus)

	found := fixtures.NewAnalysisBuilder().WithUserID("user-123").MustBuild()
	missingID := valueobjects.NewAnalysisID()
	userID := found.UserID()

	cmd := commands.BulkDeleteAnalysesCommand{
		UserID: "user-123",
		AnalysisIDs: []string{
			"not-a-valid-id",
			found.ID().String(),
			missingID.String(),
		},
	}

	repo.On("FindByID", ctx, userID, found.ID()).Return(found, nil)
	repo.On("FindByID", ctx, userID, missingID).Return(nil, errors.New("not found"))
	repo.On("DeleteBatch", ctx, userID, []valueobjects.AnalysisID{found.ID()}).Return(nil)
	eventStore.On("DeleteEventsBatch", ctx, []string{found.ID().String()}).Return(nil)
	eventBus.On("PublishBatch", ctx, mock.AnythingOfType("[]events.DomainEvent")).Return(nil)

	handler := NewBulkDeleteAnalysesHandler(repo, eventStore, eventBus, zap.NewNop())

	result, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedCount)
	assert.ElementsMatch(t, []string{"not-a-valid-id", missingID.String()}, result.FailedIDs)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not found")

	repo.AssertExpectations(t)
}

func TestBulkDeleteAnalysesHandlerAllIDsInvalid(t *testing.T) {
	repo := new(mocks.MockAnalysisRepository)
	handler := NewBulkDeleteAnalysesHandler(repo, new(mocks.MockEventStore), new(mocks.MockEventBus), zap.NewNop())

	result, err := handler.Handle(context.Background(), commands.BulkDeleteAnalysesCommand{
		UserID:      "user-123",
		AnalysisIDs: []string{"bad-one", "bad-two"},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.DeletedCount)
	assert.Equal(t, []string{"bad-one", "bad-two"}, result.FailedIDs)
	assert.Contains(t, result.Errors, "All provided analysis IDs are invalid")
	assert.Empty(t, repo.Calls)
}

func TestBulkDeleteAnalysesHandlerNothingConfirmed(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockAnalysisRepository)

	missingID := valueobjects.NewAnalysisID()
	userID, err := valueobjects.NewUserID("user-123")
	require.NoError(t, err)

	repo.On("FindByID", ctx, userID, missingID).Return(nil, errors.New("not found"))

	handler := NewBulkDeleteAnalysesHandler(repo, new(mocks.MockEventStore), new(mocks.MockEventBus), zap.NewNop())

	result, err := handler.Handle(ctx, commands.BulkDeleteAnalysesCommand{
		UserID:      "user-123",
		AnalysisIDs: []string{missingID.String()},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.DeletedCount)
	assert.Equal(t, []string{missingID.String()}, result.FailedIDs)
	repo.AssertNumberOfCalls(t, "DeleteBatch", 0)
}

func TestBulkDeleteAnalysesHandlerBatchDeleteError(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockAnalysisRepository)

	analysis := fixtures.NewAnalysisBuilder().WithUserID("user-123").MustBuild()
	userID := analysis.UserID()

	repo.On("FindByID", ctx, userID, analysis.ID()).Return(analysis, nil)
	repo.On("DeleteBatch", ctx, userID, []valueobjects.AnalysisID{analysis.ID()}).
		Return(errors.New("transaction cancelled"))

	handler := NewBulkDeleteAnalysesHandler(repo, new(mocks.MockEventStore), new(mocks.MockEventBus), zap.NewNop())

	result, err := handler.Handle(ctx, commands.BulkDeleteAnalysesCommand{
		UserID:      "user-123",
		AnalysisIDs: []string{analysis.ID().String()},
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "failed to delete analyses in batch")
}

func TestBulkDeleteAnalysesHandlerRejectsDuplicateIDs(t *testing.T) {
	analysis := fixtures.NewAnalysisBuilder().MustBuild()
	handler := NewBulkDeleteAnalysesHandler(
		new(mocks.MockAnalysisRepository),
		new(mocks.MockEventStore),
		new(mocks.MockEventBus),
		zap.NewNop(),
	)

	_, err := handler.Handle(context.Background(), commands.BulkDeleteAnalysesCommand{
		UserID:      "user-123",
		AnalysisIDs: []string{analysis.ID().String(), analysis.ID().String()},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate analysis ID")
}

func TestBulkDeleteAnalysesHandlerRejectsOversizedBatch(t *testing.T) {
	ids := make([]string, 101)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d-frag%d", 1700000000000+i, i)
	}

	handler := NewBulkDeleteAnalysesHandler(
		new(mocks.MockAnalysisRepository),
		new(mocks.MockEventStore),
		new(mocks.MockEventBus),
		zap.NewNop(),
	)

	_, err := handler.Handle(context.Background(), commands.BulkDeleteAnalysesCommand{
		UserID:      "user-123",
		AnalysisIDs: ids,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot delete more than 100 analyses at once")
}
