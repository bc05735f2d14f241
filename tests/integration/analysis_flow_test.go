// Package integration exercises the full stack over the memory driver:
// configuration, the wired container, command and query buses, persistence,
// and in-process event delivery. Nothing here talks to AWS.
package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astraea-backend/application/commands"
	"astraea-backend/application/queries"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/events"
	"astraea-backend/infrastructure/config"
	"astraea-backend/infrastructure/di"
	apperrors "astraea-backend/pkg/errors"
	"astraea-backend/tests/fixtures"
)

func newTestContainer(t *testing.T) *di.Container {
	t.Helper()
	t.Setenv("PERSISTENCE_DRIVER", config.DriverMemory)
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := config.Load()
	require.NoError(t, err)

	container, err := di.InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Shutdown(context.Background()))
	})
	return container
}

func generateAnalysis(t *testing.T, c *di.Container, userID string) *aggregates.RelationshipAnalysis {
	t.Helper()
	chart1, chart2 := fixtures.SextileChartPair()
	analysis, err := c.GenerateHandler.Handle(context.Background(), commands.GenerateAnalysisCommand{
		UserID:      userID,
		Chart1:      chart1,
		Chart2:      chart2,
		Chart1Label: "Ana",
		Chart2Label: "Ben",
	})
	require.NoError(t, err)
	return analysis
}

// capturingHandler records every event it receives.
type capturingHandler struct {
	mu   sync.Mutex
	seen []events.DomainEvent
}

func (h *capturingHandler) Handle(_ context.Context, event events.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event)
	return nil
}

func (h *capturingHandler) CanHandle(string) bool { return true }

func (h *capturingHandler) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.seen))
	for i, ev := range h.seen {
		out[i] = ev.GetEventType()
	}
	return out
}

func TestAnalysisLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)

	completed := &capturingHandler{}
	require.NoError(t, c.Storage.EventBus.Subscribe("analysis.completed", completed))
	deleted := &capturingHandler{}
	require.NoError(t, c.Storage.EventBus.Subscribe("analysis.deleted", deleted))

	analysis := generateAnalysis(t, c, "user-lifecycle")
	analysisID := analysis.ID().String()

	assert.Equal(t, "user-lifecycle", analysis.UserID().String())
	assert.Equal(t, "Ana", analysis.Chart1Label().String())
	assert.Equal(t, "Ben", analysis.Chart2Label().String())
	score := analysis.Compatibility().Overall
	assert.GreaterOrEqual(t, score, 0)
	assert.LessOrEqual(t, score, 100)
	assert.WithinDuration(t, time.Now(), analysis.GeneratedAt(), time.Minute)

	// The local bus dispatches synchronously, so the completion event has
	// already landed.
	assert.Equal(t, []string{"analysis.completed"}, completed.types())

	got, err := c.QueryBus.Ask(ctx, queries.GetAnalysisQuery{
		UserID:     "user-lifecycle",
		AnalysisID: analysisID,
	})
	require.NoError(t, err)
	fetched, ok := got.(*aggregates.RelationshipAnalysis)
	require.True(t, ok)
	assert.Equal(t, analysisID, fetched.ID().String())
	assert.Equal(t, score, fetched.Compatibility().Overall)

	listed, err := c.QueryBus.Ask(ctx, queries.ListAnalysesQuery{
		UserID: "user-lifecycle",
		Limit:  10,
	})
	require.NoError(t, err)
	list, ok := listed.(*queries.ListAnalysesResult)
	require.True(t, ok)
	require.Len(t, list.Analyses, 1)
	assert.Equal(t, analysisID, list.Analyses[0].AnalysisID)
	assert.Empty(t, list.NextToken)

	trail, err := c.Storage.EventStore.GetEvents(ctx, analysisID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "analysis.completed", trail[0].GetEventType())
	assert.Equal(t, analysisID, trail[0].GetAggregateID())

	require.NoError(t, c.CommandBus.Send(ctx, commands.DeleteAnalysisCommand{
		UserID:     "user-lifecycle",
		AnalysisID: analysisID,
	}))
	assert.Equal(t, []string{"analysis.deleted"}, deleted.types())

	_, err = c.QueryBus.Ask(ctx, queries.GetAnalysisQuery{
		UserID:     "user-lifecycle",
		AnalysisID: analysisID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAnalysisIsolatedByUser(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)

	analysis := generateAnalysis(t, c, "user-owner")

	_, err := c.QueryBus.Ask(ctx, queries.GetAnalysisQuery{
		UserID:     "user-other",
		AnalysisID: analysis.ID().String(),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	listed, err := c.QueryBus.Ask(ctx, queries.ListAnalysesQuery{UserID: "user-other", Limit: 10})
	require.NoError(t, err)
	list, ok := listed.(*queries.ListAnalysesResult)
	require.True(t, ok)
	assert.Empty(t, list.Analyses)
}

func TestListAnalysesPaginates(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)

	want := make(map[string]bool, 3)
	for i := 0; i < 3; i++ {
		analysis := generateAnalysis(t, c, "user-pages")
		want[analysis.ID().String()] = true
	}

	first, err := c.QueryBus.Ask(ctx, queries.ListAnalysesQuery{UserID: "user-pages", Limit: 2})
	require.NoError(t, err)
	page1, ok := first.(*queries.ListAnalysesResult)
	require.True(t, ok)
	require.Len(t, page1.Analyses, 2)
	require.NotEmpty(t, page1.NextToken)

	second, err := c.QueryBus.Ask(ctx, queries.ListAnalysesQuery{
		UserID:    "user-pages",
		Limit:     2,
		NextToken: page1.NextToken,
	})
	require.NoError(t, err)
	page2, ok := second.(*queries.ListAnalysesResult)
	require.True(t, ok)
	require.Len(t, page2.Analyses, 1)
	assert.Empty(t, page2.NextToken)

	got := make(map[string]bool, 3)
	for _, summary := range append(page1.Analyses, page2.Analyses...) {
		got[summary.AnalysisID] = true
	}
	assert.Equal(t, want, got)
}

func TestBulkDeleteReportsPerEntryFailures(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)

	first := generateAnalysis(t, c, "user-bulk")
	second := generateAnalysis(t, c, "user-bulk")

	result, err := c.BulkDeleteHandler.Handle(ctx, commands.BulkDeleteAnalysesCommand{
		OperationID: "op-test-1",
		UserID:      "user-bulk",
		AnalysisIDs: []string{
			first.ID().String(),
			second.ID().String(),
			"not-a-valid-id-at-all",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.DeletedCount)
	assert.Equal(t, []string{"not-a-valid-id-at-all"}, result.FailedIDs)

	listed, err := c.QueryBus.Ask(ctx, queries.ListAnalysesQuery{UserID: "user-bulk", Limit: 10})
	require.NoError(t, err)
	list, ok := listed.(*queries.ListAnalysesResult)
	require.True(t, ok)
	assert.Empty(t, list.Analyses)

	// The generation trail is dropped with the analysis; the deletion event
	// published afterwards is the only record left under the aggregate.
	trail, err := c.Storage.EventStore.GetEvents(ctx, first.ID().String())
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "analysis.deleted", trail[0].GetEventType())
}

func TestPurgeExpiredAnalyses(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)

	analysis := generateAnalysis(t, c, "user-purge")
	cutoff := time.Now().Add(time.Hour)

	dry, err := c.PurgeHandler.Handle(ctx, commands.PurgeExpiredAnalysesCommand{
		Before: cutoff,
		DryRun: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, dry.PurgedCount)
	assert.True(t, dry.DryRun)

	// Dry run must leave the data alone.
	_, err = c.QueryBus.Ask(ctx, queries.GetAnalysisQuery{
		UserID:     "user-purge",
		AnalysisID: analysis.ID().String(),
	})
	require.NoError(t, err)

	purged, err := c.PurgeHandler.Handle(ctx, commands.PurgeExpiredAnalysesCommand{Before: cutoff})
	require.NoError(t, err)
	assert.Equal(t, 1, purged.PurgedCount)
	assert.False(t, purged.DryRun)

	// Purge does not invalidate per-analysis cache entries, so verify through
	// a fresh list read rather than the cached get.
	listed, err := c.QueryBus.Ask(ctx, queries.ListAnalysesQuery{UserID: "user-purge", Limit: 10})
	require.NoError(t, err)
	list, ok := listed.(*queries.ListAnalysesResult)
	require.True(t, ok)
	assert.Empty(t, list.Analyses)
}
