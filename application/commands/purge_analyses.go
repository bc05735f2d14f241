package commands

import (
	"errors"
	"time"
)

// PurgeExpiredAnalysesCommand represents the retention purge: remove every
// stored analysis generated before the cutoff, across all users. DryRun
// counts without deleting.
type PurgeExpiredAnalysesCommand struct {
	Before time.Time `json:"before"`
	DryRun bool      `json:"dry_run"`
}

// Validate validates the purge command
func (c PurgeExpiredAnalysesCommand) Validate() error {
	if c.Before.IsZero() {
		return errors.New("purge cutoff is required")
	}
	if c.Before.After(time.Now()) {
		return errors.New("purge cutoff cannot be in the future")
	}
	return nil
}

// PurgeExpiredAnalysesResult reports what the purge removed, or would have
// removed under dry run
type PurgeExpiredAnalysesResult struct {
	PurgedCount int  `json:"purged_count"`
	DryRun      bool `json:"dry_run"`
}
