package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"astraea-backend/application/ports"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/valueobjects"
	pkgerrors "astraea-backend/pkg/errors"
	"astraea-backend/tests/fixtures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "astraea.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func mustUserID(t *testing.T, raw string) valueobjects.UserID {
	t.Helper()
	userID, err := valueobjects.NewUserID(raw)
	require.NoError(t, err)
	return userID
}

// saveAnalyses stores n analyses for the user with distinct generation
// instants, oldest first.
func saveAnalyses(t *testing.T, repo *AnalysisRepository, userID string, n int) []*aggregates.RelationshipAnalysis {
	t.Helper()
	ctx := context.Background()

	saved := make([]*aggregates.RelationshipAnalysis, 0, n)
	for i := 0; i < n; i++ {
		analysis := fixtures.NewAnalysisBuilder().WithUserID(userID).MustBuild()
		require.NoError(t, repo.Save(ctx, analysis))
		saved = append(saved, analysis)
		time.Sleep(2 * time.Millisecond)
	}
	return saved
}

func TestAnalysisRepository_SaveAndFindByID(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(openTestStore(t), zap.NewNop())

	analysis := fixtures.NewAnalysisBuilder().WithLabels("Alice", "Ben").MustBuild()
	require.NoError(t, repo.Save(ctx, analysis))

	found, err := repo.FindByID(ctx, analysis.UserID(), analysis.ID())
	require.NoError(t, err)

	assert.Equal(t, analysis.ID().String(), found.ID().String())
	assert.Equal(t, "Alice", found.Chart1Label().String())
	assert.Equal(t, "Ben", found.Chart2Label().String())
	assert.Equal(t, analysis.Compatibility().Overall, found.Compatibility().Overall)
	assert.WithinDuration(t, analysis.GeneratedAt(), found.GeneratedAt(), time.Millisecond)
}

func TestAnalysisRepository_FindByIDNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(openTestStore(t), zap.NewNop())

	_, err := repo.FindByID(ctx, mustUserID(t, "user-123"), valueobjects.NewAnalysisID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAnalysisRepository_FindByIDScopedToOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(openTestStore(t), zap.NewNop())

	analysis := fixtures.NewAnalysisBuilder().WithUserID("user-owner").MustBuild()
	require.NoError(t, repo.Save(ctx, analysis))

	_, err := repo.FindByID(ctx, mustUserID(t, "user-other"), analysis.ID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAnalysisRepository_SaveOverwritesSameID(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(openTestStore(t), zap.NewNop())

	analysis := fixtures.NewAnalysisBuilder().MustBuild()
	require.NoError(t, repo.Save(ctx, analysis))
	require.NoError(t, repo.Save(ctx, analysis))

	analyses, nextToken, err := repo.FindByUser(ctx, analysis.UserID(), ports.ListPage{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, analyses, 1)
	assert.Empty(t, nextToken)
}

func TestAnalysisRepository_FindByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(openTestStore(t), zap.NewNop())

	saved := saveAnalyses(t, repo, "user-123", 3)

	analyses, _, err := repo.FindByUser(ctx, saved[0].UserID(), ports.ListPage{Limit: 10})
	require.NoError(t, err)
	require.Len(t, analyses, 3)

	assert.Equal(t, saved[2].ID().String(), analyses[0].ID().String())
	assert.Equal(t, saved[1].ID().String(), analyses[1].ID().String())
	assert.Equal(t, saved[0].ID().String(), analyses[2].ID().String())
}

func TestAnalysisRepository_FindByUserPaginates(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(openTestStore(t), zap.NewNop())

	saved := saveAnalyses(t, repo, "user-123", 5)
	userID := saved[0].UserID()

	seen := make(map[string]bool)
	token := ""
	pages := 0
	for {
		analyses, nextToken, err := repo.FindByUser(ctx, userID, ports.ListPage{Limit: 2, NextToken: token})
		require.NoError(t, err)
		pages++

		for _, analysis := range analyses {
			assert.False(t, seen[analysis.ID().String()], "page overlap on %s", analysis.ID())
			seen[analysis.ID().String()] = true
		}

		if nextToken == "" {
			break
		}
		token = nextToken
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 5)
}

func TestAnalysisRepository_FindByUserRejectsBadToken(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(openTestStore(t), zap.NewNop())

	_, _, err := repo.FindByUser(ctx, mustUserID(t, "user-123"), ports.ListPage{Limit: 2, NextToken: "!!not-a-token!!"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestAnalysisRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(openTestStore(t), zap.NewNop())

	analysis := fixtures.NewAnalysisBuilder().MustBuild()
	require.NoError(t, repo.Save(ctx, analysis))

	require.NoError(t, repo.Delete(ctx, analysis.UserID(), analysis.ID()))

	_, err := repo.FindByID(ctx, analysis.UserID(), analysis.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAnalysisRepository_DeleteMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(openTestStore(t), zap.NewNop())

	err := repo.Delete(ctx, mustUserID(t, "user-123"), valueobjects.NewAnalysisID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAnalysisRepository_DeleteBatchSkipsMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(openTestStore(t), zap.NewNop())

	saved := saveAnalyses(t, repo, "user-123", 2)
	userID := saved[0].UserID()

	ids := []valueobjects.AnalysisID{saved[0].ID(), valueobjects.NewAnalysisID(), saved[1].ID()}
	require.NoError(t, repo.DeleteBatch(ctx, userID, ids))

	analyses, _, err := repo.FindByUser(ctx, userID, ports.ListPage{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, analyses)
}

func TestAnalysisRepository_PurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(openTestStore(t), zap.NewNop())

	saved := saveAnalyses(t, repo, "user-123", 3)
	cutoff := saved[2].GeneratedAt() // strictly before the newest

	count, err := repo.PurgeOlderThan(ctx, cutoff, true)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Dry run removed nothing.
	analyses, _, err := repo.FindByUser(ctx, saved[0].UserID(), ports.ListPage{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, analyses, 3)

	count, err = repo.PurgeOlderThan(ctx, cutoff, false)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	analyses, _, err = repo.FindByUser(ctx, saved[0].UserID(), ports.ListPage{Limit: 10})
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, saved[2].ID().String(), analyses[0].ID().String())
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "astraea.db")

	store, err := Open(path, zap.NewNop())
	require.NoError(t, err)

	repo := NewAnalysisRepository(store, zap.NewNop())
	analysis := fixtures.NewAnalysisBuilder().MustBuild()
	require.NoError(t, repo.Save(context.Background(), analysis))
	require.NoError(t, store.Close())

	// Reopen over the same file; migrations must not disturb stored rows.
	reopened, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	found, err := NewAnalysisRepository(reopened, zap.NewNop()).FindByID(
		context.Background(), analysis.UserID(), analysis.ID(),
	)
	require.NoError(t, err)
	assert.Equal(t, analysis.ID().String(), found.ID().String())
}
