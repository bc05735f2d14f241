package sqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"astraea-backend/application/ports"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/infrastructure/persistence/schema"
	pkgerrors "astraea-backend/pkg/errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// AnalysisRepository implements ports.AnalysisRepository on the analyses
// table. The full record document lives in the document column; the other
// columns exist for keys, ordering, and purge filters.
type AnalysisRepository struct {
	store  *Store
	logger *zap.Logger
}

var _ ports.AnalysisRepository = (*AnalysisRepository)(nil)

// NewAnalysisRepository creates a SQLite-backed analysis repository.
func NewAnalysisRepository(store *Store, logger *zap.Logger) *AnalysisRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisRepository{store: store, logger: logger}
}

type analysisRow struct {
	ID          string `db:"id"`
	Document    []byte `db:"document"`
	GeneratedAt int64  `db:"generated_at"`
}

// Save persists a freshly generated analysis. A replay of the same analysis
// ID overwrites in place.
func (r *AnalysisRepository) Save(ctx context.Context, analysis *aggregates.RelationshipAnalysis) error {
	document, err := schema.NewAnalysisRecord(analysis).Encode()
	if err != nil {
		return pkgerrors.NewDatabaseError("encode analysis", err)
	}

	_, err = r.store.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO analyses
			(id, user_id, chart1_label, chart2_label, schema_version,
			 document, generated_at, system_version, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		analysis.ID().String(),
		analysis.UserID().String(),
		analysis.Chart1Label().String(),
		analysis.Chart2Label().String(),
		schema.CurrentVersion,
		string(document),
		analysis.GeneratedAt().UnixMilli(),
		analysis.SystemVersion(),
		analysis.Version(),
	)
	if err != nil {
		return pkgerrors.NewDatabaseError("save analysis", err)
	}

	r.logger.Debug("analysis saved",
		zap.String("analysisId", analysis.ID().String()),
		zap.String("userId", analysis.UserID().String()),
	)

	return nil
}

// FindByID retrieves one analysis owned by the user.
func (r *AnalysisRepository) FindByID(ctx context.Context, userID valueobjects.UserID, id valueobjects.AnalysisID) (*aggregates.RelationshipAnalysis, error) {
	var document []byte
	err := r.store.db.GetContext(ctx, &document,
		"SELECT document FROM analyses WHERE user_id = ? AND id = ?",
		userID.String(), id.String(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("analysis")
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get analysis", err)
	}

	return decodeDocument(document)
}

// FindByUser lists the user's analyses, newest first, with keyset
// pagination over (generated_at, id).
func (r *AnalysisRepository) FindByUser(ctx context.Context, userID valueobjects.UserID, page ports.ListPage) ([]*aggregates.RelationshipAnalysis, string, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}

	var rows []analysisRow
	var err error

	if page.NextToken == "" {
		err = r.store.db.SelectContext(ctx, &rows, `
			SELECT id, document, generated_at FROM analyses
			WHERE user_id = ?
			ORDER BY generated_at DESC, id DESC
			LIMIT ?`,
			userID.String(), limit+1,
		)
	} else {
		token, tokenErr := decodeListToken(page.NextToken)
		if tokenErr != nil {
			return nil, "", pkgerrors.NewValidationError("invalid pagination token")
		}
		err = r.store.db.SelectContext(ctx, &rows, `
			SELECT id, document, generated_at FROM analyses
			WHERE user_id = ?
			  AND (generated_at < ? OR (generated_at = ? AND id < ?))
			ORDER BY generated_at DESC, id DESC
			LIMIT ?`,
			userID.String(), token.GeneratedAt, token.GeneratedAt, token.ID, limit+1,
		)
	}
	if err != nil {
		return nil, "", pkgerrors.NewDatabaseError("list analyses", err)
	}

	nextToken := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[limit-1]
		nextToken, err = encodeListToken(listToken{GeneratedAt: last.GeneratedAt, ID: last.ID})
		if err != nil {
			return nil, "", pkgerrors.NewDatabaseError("encode pagination token", err)
		}
	}

	analyses := make([]*aggregates.RelationshipAnalysis, 0, len(rows))
	for _, row := range rows {
		analysis, err := decodeDocument(row.Document)
		if err != nil {
			r.logger.Warn("skipping unreadable analysis record",
				zap.String("analysisId", row.ID),
				zap.Error(err),
			)
			continue
		}
		analyses = append(analyses, analysis)
	}

	return analyses, nextToken, nil
}

// Delete removes one analysis owned by the user.
func (r *AnalysisRepository) Delete(ctx context.Context, userID valueobjects.UserID, id valueobjects.AnalysisID) error {
	result, err := r.store.db.ExecContext(ctx,
		"DELETE FROM analyses WHERE user_id = ? AND id = ?",
		userID.String(), id.String(),
	)
	if err != nil {
		return pkgerrors.NewDatabaseError("delete analysis", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return pkgerrors.NewDatabaseError("delete analysis", err)
	}
	if affected == 0 {
		return pkgerrors.NewNotFoundError("analysis")
	}

	return nil
}

// DeleteBatch removes multiple analyses owned by the user. Missing IDs are
// skipped silently.
func (r *AnalysisRepository) DeleteBatch(ctx context.Context, userID valueobjects.UserID, ids []valueobjects.AnalysisID) error {
	if len(ids) == 0 {
		return nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query, args, err := sqlx.In(
		"DELETE FROM analyses WHERE user_id = ? AND id IN (?)",
		userID.String(), idStrings,
	)
	if err != nil {
		return pkgerrors.NewDatabaseError("build batch delete", err)
	}

	if _, err := r.store.db.ExecContext(ctx, r.store.db.Rebind(query), args...); err != nil {
		return pkgerrors.NewDatabaseError("batch delete analyses", err)
	}

	return nil
}

// PurgeOlderThan removes every analysis generated before the cutoff, across
// all users. With dryRun it only counts what would go.
func (r *AnalysisRepository) PurgeOlderThan(ctx context.Context, before time.Time, dryRun bool) (int, error) {
	cutoff := before.UnixMilli()

	if dryRun {
		var count int
		err := r.store.db.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM analyses WHERE generated_at < ?", cutoff,
		)
		if err != nil {
			return 0, pkgerrors.NewDatabaseError("count purgeable analyses", err)
		}
		return count, nil
	}

	result, err := r.store.db.ExecContext(ctx,
		"DELETE FROM analyses WHERE generated_at < ?", cutoff,
	)
	if err != nil {
		return 0, pkgerrors.NewDatabaseError("purge analyses", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, pkgerrors.NewDatabaseError("purge analyses", err)
	}

	r.logger.Info("purge pass finished",
		zap.Time("cutoff", before),
		zap.Int64("removed", affected),
	)

	return int(affected), nil
}

func decodeDocument(document []byte) (*aggregates.RelationshipAnalysis, error) {
	record, err := schema.DecodeAnalysisRecord(document)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("decode analysis document", err)
	}
	return record.ToDomain()
}

// listToken is the cursor for keyset pagination.
type listToken struct {
	GeneratedAt int64  `json:"g"`
	ID          string `json:"id"`
}

func encodeListToken(token listToken) (string, error) {
	data, err := json.Marshal(token)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeListToken(encoded string) (listToken, error) {
	var token listToken
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return token, err
	}
	if err := json.Unmarshal(data, &token); err != nil {
		return token, err
	}
	if token.ID == "" {
		return token, errors.New("pagination token is incomplete")
	}
	return token, nil
}
