// Package sqlite implements the persistence ports on a local SQLite file.
// It backs self-hosted deployments that want durability without AWS; the
// same record document format as the DynamoDB driver keeps data portable
// between the two.
package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// migrations run in order; PRAGMA user_version tracks how far a database
// has been upgraded. Append only, never edit a shipped step.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS analyses (
		id             TEXT    NOT NULL,
		user_id        TEXT    NOT NULL,
		chart1_label   TEXT    NOT NULL,
		chart2_label   TEXT    NOT NULL,
		schema_version INTEGER NOT NULL,
		document       TEXT    NOT NULL,
		generated_at   INTEGER NOT NULL,
		system_version TEXT    NOT NULL,
		version        INTEGER NOT NULL,
		PRIMARY KEY (user_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_user_generated
		ON analyses(user_id, generated_at DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_analyses_generated
		ON analyses(generated_at);`,

	`CREATE TABLE IF NOT EXISTS events (
		event_id     TEXT    PRIMARY KEY,
		aggregate_id TEXT    NOT NULL,
		event_type   TEXT    NOT NULL,
		user_id      TEXT    NOT NULL,
		version      INTEGER NOT NULL,
		occurred_at  INTEGER NOT NULL,
		payload      TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_aggregate
		ON events(aggregate_id, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_events_type
		ON events(event_type, occurred_at DESC);`,
}

// Store owns the SQLite connection pool shared by the repositories.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open opens or creates the database at path and applies pending
// migrations. The _pragma DSN parameters apply to every pooled connection.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite database: %w", err)
	}

	return store, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.Get(&version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version >= len(migrations) {
		return nil
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.Beginx()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("bump schema version to %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}

		s.logger.Info("applied sqlite migration", zap.Int("version", i+1))
	}

	return nil
}

// Ping verifies the database file is reachable. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
