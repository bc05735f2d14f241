package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"astraea-backend/application/ports"
	"astraea-backend/application/queries"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/tests/fixtures"
	"astraea-backend/tests/mocks"
)

func TestListAnalysesHandlerProjectsSummaries(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockAnalysisRepository)

	first := fixtures.NewAnalysisBuilder().WithUserID("user-123").WithLabels("Alice", "Ben").MustBuild()
	second := fixtures.NewAnalysisBuilder().WithUserID("user-123").MustBuild()
	userID := first.UserID()

	repo.On("FindByUser", ctx, userID, ports.ListPage{Limit: 20}).
		Return([]*aggregates.RelationshipAnalysis{first, second}, "cursor-2", nil)

	handler := NewListAnalysesHandler(repo, zap.NewNop())

	result, err := handler.Handle(ctx, queries.ListAnalysesQuery{UserID: "user-123"})

	require.NoError(t, err)
	require.Len(t, result.Analyses, 2)
	assert.Equal(t, "cursor-2", result.NextToken)

	summary := result.Analyses[0]
	compatibility := first.Compatibility()
	assert.Equal(t, first.ID().String(), summary.AnalysisID)
	assert.Equal(t, "Alice", summary.Chart1Label)
	assert.Equal(t, "Ben", summary.Chart2Label)
	assert.Equal(t, compatibility.Overall, summary.OverallScore)
	assert.Equal(t, compatibility.Rating.Label, summary.Rating)
	assert.Equal(t, first.Summary().RelationshipType, summary.RelationshipType)
	assert.Equal(t, first.GeneratedAt().Format(time.RFC3339), summary.GeneratedAt)

	repo.AssertExpectations(t)
}

func TestListAnalysesHandlerPassesPageThrough(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockAnalysisRepository)

	userID, err := valueobjects.NewUserID("user-123")
	require.NoError(t, err)
	repo.On("FindByUser", ctx, userID, ports.ListPage{Limit: 5, NextToken: "cursor-1"}).
		Return([]*aggregates.RelationshipAnalysis{}, "", nil)

	handler := NewListAnalysesHandler(repo, zap.NewNop())

	result, err := handler.Handle(ctx, queries.ListAnalysesQuery{
		UserID:    "user-123",
		Limit:     5,
		NextToken: "cursor-1",
	})

	require.NoError(t, err)
	assert.Empty(t, result.Analyses)
	assert.Empty(t, result.NextToken)
	repo.AssertExpectations(t)
}

func TestListAnalysesHandlerRejectsInvalidQuery(t *testing.T) {
	repo := new(mocks.MockAnalysisRepository)
	handler := NewListAnalysesHandler(repo, zap.NewNop())

	_, err := handler.Handle(context.Background(), queries.ListAnalysesQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid query")

	_, err = handler.Handle(context.Background(), queries.ListAnalysesQuery{UserID: "user-123", Limit: 101})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit cannot exceed 100")

	assert.Empty(t, repo.Calls)
}

func TestListAnalysesHandlerRepositoryError(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockAnalysisRepository)

	userID, err := valueobjects.NewUserID("user-123")
	require.NoError(t, err)
	repo.On("FindByUser", ctx, userID, ports.ListPage{Limit: 20}).
		Return(nil, "", errors.New("query throttled"))

	handler := NewListAnalysesHandler(repo, zap.NewNop())

	_, err = handler.Handle(ctx, queries.ListAnalysesQuery{UserID: "user-123"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list analyses")
}
