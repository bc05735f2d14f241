package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astraea-backend/application/ports"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/valueobjects"
	pkgerrors "astraea-backend/pkg/errors"
	"astraea-backend/tests/fixtures"
)

func mustUserID(t *testing.T, id string) valueobjects.UserID {
	t.Helper()
	userID, err := valueobjects.NewUserID(id)
	require.NoError(t, err)
	return userID
}

func saveAnalyses(t *testing.T, store *AnalysisStore, userID string, n int) []*aggregates.RelationshipAnalysis {
	t.Helper()
	saved := make([]*aggregates.RelationshipAnalysis, 0, n)
	for i := 0; i < n; i++ {
		analysis := fixtures.NewAnalysisBuilder().WithUserID(userID).MustBuild()
		require.NoError(t, store.Save(context.Background(), analysis))
		saved = append(saved, analysis)
		time.Sleep(2 * time.Millisecond) // distinct generation instants
	}
	return saved
}

func TestAnalysisStore_SaveAndFindByID(t *testing.T) {
	store := NewAnalysisStore(0)
	analysis := fixtures.NewAnalysisBuilder().
		WithUserID("user-123").
		WithLabels("Alice", "Ben").
		MustBuild()

	require.NoError(t, store.Save(context.Background(), analysis))

	found, err := store.FindByID(context.Background(), analysis.UserID(), analysis.ID())

	require.NoError(t, err)
	assert.Equal(t, analysis.ID(), found.ID())
	assert.Equal(t, "Alice", found.Chart1Label().String())
	assert.Equal(t, analysis.Compatibility().Overall, found.Compatibility().Overall)
	// Reads rebuild the aggregate; they never alias the saved instance.
	assert.NotSame(t, analysis, found)
}

func TestAnalysisStore_FindByIDNotFound(t *testing.T) {
	store := NewAnalysisStore(0)

	_, err := store.FindByID(context.Background(), mustUserID(t, "user-123"), valueobjects.NewAnalysisID())

	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAnalysisStore_FindByIDScopedToOwner(t *testing.T) {
	store := NewAnalysisStore(0)
	analysis := fixtures.NewAnalysisBuilder().WithUserID("owner").MustBuild()
	require.NoError(t, store.Save(context.Background(), analysis))

	_, err := store.FindByID(context.Background(), mustUserID(t, "intruder"), analysis.ID())

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAnalysisStore_FindByUserNewestFirst(t *testing.T) {
	store := NewAnalysisStore(0)
	saved := saveAnalyses(t, store, "user-123", 3)

	results, nextToken, err := store.FindByUser(context.Background(), saved[0].UserID(), ports.ListPage{Limit: 10})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Empty(t, nextToken)
	assert.Equal(t, saved[2].ID(), results[0].ID())
	assert.Equal(t, saved[1].ID(), results[1].ID())
	assert.Equal(t, saved[0].ID(), results[2].ID())
}

func TestAnalysisStore_FindByUserPaginates(t *testing.T) {
	store := NewAnalysisStore(0)
	saved := saveAnalyses(t, store, "user-123", 5)
	userID := saved[0].UserID()

	first, token, err := store.FindByUser(context.Background(), userID, ports.ListPage{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotEmpty(t, token)

	second, token2, err := store.FindByUser(context.Background(), userID, ports.ListPage{Limit: 2, NextToken: token})
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.NotEmpty(t, token2)

	third, token3, err := store.FindByUser(context.Background(), userID, ports.ListPage{Limit: 2, NextToken: token2})
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Empty(t, token3)

	// The three pages cover all five analyses without overlap
	seen := map[string]bool{}
	for _, page := range [][]*aggregates.RelationshipAnalysis{first, second, third} {
		for _, analysis := range page {
			assert.False(t, seen[analysis.ID().String()])
			seen[analysis.ID().String()] = true
		}
	}
	assert.Len(t, seen, 5)
}

func TestAnalysisStore_FindByUserEmpty(t *testing.T) {
	store := NewAnalysisStore(0)

	results, nextToken, err := store.FindByUser(context.Background(), mustUserID(t, "user-123"), ports.ListPage{Limit: 10})

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, nextToken)
}

func TestAnalysisStore_Delete(t *testing.T) {
	store := NewAnalysisStore(0)
	analysis := fixtures.NewAnalysisBuilder().WithUserID("user-123").MustBuild()
	require.NoError(t, store.Save(context.Background(), analysis))

	require.NoError(t, store.Delete(context.Background(), analysis.UserID(), analysis.ID()))

	_, err := store.FindByID(context.Background(), analysis.UserID(), analysis.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAnalysisStore_DeleteMissing(t *testing.T) {
	store := NewAnalysisStore(0)

	err := store.Delete(context.Background(), mustUserID(t, "user-123"), valueobjects.NewAnalysisID())

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAnalysisStore_DeleteBatchSkipsMissing(t *testing.T) {
	store := NewAnalysisStore(0)
	saved := saveAnalyses(t, store, "user-123", 2)
	userID := saved[0].UserID()

	err := store.DeleteBatch(context.Background(), userID, []valueobjects.AnalysisID{
		saved[0].ID(),
		valueobjects.NewAnalysisID(), // not stored
		saved[1].ID(),
	})

	require.NoError(t, err)
	results, _, err := store.FindByUser(context.Background(), userID, ports.ListPage{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAnalysisStore_PurgeOlderThan(t *testing.T) {
	store := NewAnalysisStore(0)
	saveAnalyses(t, store, "user-1", 2)
	saveAnalyses(t, store, "user-2", 1)
	cutoff := time.Now().Add(time.Second)

	dryCount, err := store.PurgeOlderThan(context.Background(), cutoff, true)
	require.NoError(t, err)
	assert.Equal(t, 3, dryCount)

	// Dry run removed nothing
	results, _, err := store.FindByUser(context.Background(), mustUserID(t, "user-1"), ports.ListPage{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	purged, err := store.PurgeOlderThan(context.Background(), cutoff, false)
	require.NoError(t, err)
	assert.Equal(t, 3, purged)

	results, _, err = store.FindByUser(context.Background(), mustUserID(t, "user-1"), ports.ListPage{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAnalysisStore_PurgeSparesNewerRecords(t *testing.T) {
	store := NewAnalysisStore(0)
	saved := saveAnalyses(t, store, "user-1", 1)
	cutoff := saved[0].GeneratedAt() // strictly-before semantics

	count, err := store.PurgeOlderThan(context.Background(), cutoff, false)

	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAnalysisStore_TTLExpiry(t *testing.T) {
	store := NewAnalysisStore(time.Hour)
	defer store.Close()
	analysis := fixtures.NewAnalysisBuilder().WithUserID("user-123").MustBuild()
	require.NoError(t, store.Save(context.Background(), analysis))

	// Backdate the record past the TTL rather than sleeping
	store.mu.Lock()
	store.analyses[analysis.UserID().String()][analysis.ID().String()].storedAt = time.Now().Add(-2 * time.Hour)
	store.mu.Unlock()

	_, err := store.FindByID(context.Background(), analysis.UserID(), analysis.ID())
	assert.True(t, pkgerrors.IsNotFound(err))

	results, _, err := store.FindByUser(context.Background(), analysis.UserID(), ports.ListPage{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, store.CleanupExpired(context.Background(), store.ttl))
	store.mu.RLock()
	assert.Empty(t, store.analyses)
	store.mu.RUnlock()
}
