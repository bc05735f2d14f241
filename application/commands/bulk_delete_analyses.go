package commands

import (
	"errors"
	"fmt"
)

// BulkDeleteAnalysesCommand represents a command to delete multiple stored
// analyses belonging to one user
type BulkDeleteAnalysesCommand struct {
	OperationID string   `json:"operation_id"` // For async operation tracking
	UserID      string   `json:"user_id"`
	AnalysisIDs []string `json:"analysis_ids"`
}

// Validate validates the bulk delete command
func (c BulkDeleteAnalysesCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user ID is required")
	}

	if len(c.AnalysisIDs) == 0 {
		return errors.New("at least one analysis ID is required")
	}

	if len(c.AnalysisIDs) > 100 {
		return errors.New("cannot delete more than 100 analyses at once")
	}

	// Check for duplicate IDs
	seen := make(map[string]bool)
	for _, id := range c.AnalysisIDs {
		if id == "" {
			return errors.New("analysis ID cannot be empty")
		}
		if seen[id] {
			return fmt.Errorf("duplicate analysis ID: %s", id)
		}
		seen[id] = true
	}

	return nil
}

// BulkDeleteAnalysesResult represents the result of bulk delete operation
type BulkDeleteAnalysesResult struct {
	DeletedCount int      `json:"deleted_count"`
	FailedIDs    []string `json:"failed_ids,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}
