// Package schema versions the stored analysis document and migrates old
// records forward when they are read. Every persistence driver shares the
// same document shape, so migrations live here rather than per driver.
package schema

import (
	"fmt"

	domaincfg "astraea-backend/domain/config"
)

// CurrentVersion is the schema version new records are written at.
//
// History:
//
//	1 - initial shape; compatibility rating stored as a bare label string
//	2 - rating stored as the full band {label, description}
const CurrentVersion = 2

// MigrationFunc rewrites a decoded record document in place. Documents are
// raw JSON objects so a migration can reshape fields the current structs no
// longer describe.
type MigrationFunc func(doc map[string]interface{}) error

// Migration upgrades a record document by exactly one version.
type Migration struct {
	FromVersion int
	ToVersion   int
	Description string
	Up          MigrationFunc
}

// Evolution holds the ordered chain of record migrations.
type Evolution struct {
	migrations []Migration
}

// NewEvolution returns the evolution chain with all known migrations
// registered.
func NewEvolution() *Evolution {
	e := &Evolution{migrations: []Migration{}}

	// Registration of the built-in chain cannot fail; the panics guard
	// against a bad edit to this file, not runtime input.
	mustRegister(e, Migration{
		FromVersion: 1,
		ToVersion:   2,
		Description: "expand bare rating label into the full rating band",
		Up:          expandRatingBand,
	})

	return e
}

func mustRegister(e *Evolution, m Migration) {
	if err := e.RegisterMigration(m); err != nil {
		panic(fmt.Sprintf("schema: invalid built-in migration: %v", err))
	}
}

// RegisterMigration adds a migration to the chain.
func (e *Evolution) RegisterMigration(m Migration) error {
	if m.FromVersion >= m.ToVersion {
		return fmt.Errorf("invalid migration: from_version must be less than to_version")
	}
	if m.Up == nil {
		return fmt.Errorf("invalid migration: missing Up function")
	}

	for _, existing := range e.migrations {
		if existing.FromVersion == m.FromVersion && existing.ToVersion == m.ToVersion {
			return fmt.Errorf("migration from %d to %d already exists", m.FromVersion, m.ToVersion)
		}
	}

	e.migrations = append(e.migrations, m)
	return nil
}

// Upgrade walks the document forward to CurrentVersion, one step at a time.
// Documents without a schemaVersion field are treated as version 1.
func (e *Evolution) Upgrade(doc map[string]interface{}) error {
	version := documentVersion(doc)
	if version > CurrentVersion {
		return fmt.Errorf("record schema version %d is newer than supported version %d", version, CurrentVersion)
	}

	for version < CurrentVersion {
		migration := e.findMigration(version, version+1)
		if migration == nil {
			return fmt.Errorf("no migration found from version %d to %d", version, version+1)
		}

		if err := migration.Up(doc); err != nil {
			return fmt.Errorf("migration %d->%d failed: %w", migration.FromVersion, migration.ToVersion, err)
		}

		version = migration.ToVersion
		doc["schemaVersion"] = version
	}

	return nil
}

// findMigration finds the migration between two adjacent versions.
func (e *Evolution) findMigration(from, to int) *Migration {
	for i := range e.migrations {
		if e.migrations[i].FromVersion == from && e.migrations[i].ToVersion == to {
			return &e.migrations[i]
		}
	}
	return nil
}

// documentVersion reads the schema version of a record document.
func documentVersion(doc map[string]interface{}) int {
	raw, ok := doc["schemaVersion"]
	if !ok {
		return 1
	}
	// JSON numbers decode as float64
	if n, ok := raw.(float64); ok && n >= 1 {
		return int(n)
	}
	return 1
}

// expandRatingBand is the 1->2 migration. Version 1 stored only the rating
// label; the full band is rebuilt from the overall score through the same
// tables that produced it.
func expandRatingBand(doc map[string]interface{}) error {
	compat, ok := doc["compatibility"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("record has no compatibility block")
	}

	if _, isString := compat["rating"].(string); !isString {
		return nil // already the expanded shape
	}

	overall := 0
	if n, ok := compat["overall"].(float64); ok {
		overall = int(n)
	}

	rating := domaincfg.DefaultScoringConfig().RatingFor(overall)
	compat["rating"] = map[string]interface{}{
		"label":       rating.Label,
		"description": rating.Description,
	}

	return nil
}
