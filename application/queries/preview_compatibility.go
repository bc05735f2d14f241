package queries

import (
	"errors"

	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
)

// PreviewCompatibilityQuery computes compatibility and dynamics for a chart
// pair without storing anything. It backs the anonymous preview endpoint.
type PreviewCompatibilityQuery struct {
	Chart1 *entities.BirthChart `json:"chart1"`
	Chart2 *entities.BirthChart `json:"chart2"`
}

// Validate validates the query
func (q PreviewCompatibilityQuery) Validate() error {
	if q.Chart1 == nil {
		return errors.New("chart1 is required")
	}
	if q.Chart2 == nil {
		return errors.New("chart2 is required")
	}
	return nil
}

// PreviewCompatibilityResult carries the unstored computation
type PreviewCompatibilityResult struct {
	Compatibility aggregates.CompatibilityResult `json:"compatibility"`
	Dynamics      aggregates.DynamicsResult      `json:"dynamics"`
}
