package commands

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"astraea-backend/domain/core/entities"
)

// GenerateAnalysisCommand represents the command to compute and store a
// relationship analysis for a pair of birth charts. Blank labels fall back
// to the configured defaults when the aggregate is minted.
type GenerateAnalysisCommand struct {
	UserID      string               `json:"user_id" validate:"required"`
	Chart1      *entities.BirthChart `json:"chart1" validate:"required"`
	Chart2      *entities.BirthChart `json:"chart2" validate:"required"`
	Chart1Label string               `json:"chart1_label" validate:"max=100"`
	Chart2Label string               `json:"chart2_label" validate:"max=100"`
}

// Validate validates the command
func (cmd GenerateAnalysisCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.Chart1 == nil {
		return errors.New("chart1 is required")
	}
	if cmd.Chart2 == nil {
		return errors.New("chart2 is required")
	}
	if utf8.RuneCountInString(cmd.Chart1Label) > MaxLabelLength {
		return fmt.Errorf("chart1 label exceeds maximum length of %d characters", MaxLabelLength)
	}
	if utf8.RuneCountInString(cmd.Chart2Label) > MaxLabelLength {
		return fmt.Errorf("chart2 label exceeds maximum length of %d characters", MaxLabelLength)
	}
	return nil
}

const MaxLabelLength = 100
