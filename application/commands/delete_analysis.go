package commands

import "errors"

// DeleteAnalysisCommand represents a command to delete a stored analysis
type DeleteAnalysisCommand struct {
	UserID     string
	AnalysisID string
}

// Validate validates the DeleteAnalysisCommand
func (c DeleteAnalysisCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user ID is required")
	}
	if c.AnalysisID == "" {
		return errors.New("analysis ID is required")
	}
	return nil
}
