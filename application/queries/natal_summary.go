package queries

import (
	"errors"

	"astraea-backend/domain/core/entities"
)

// NatalSummaryQuery reads a single birth chart: placements, balance,
// internal aspects, signature
type NatalSummaryQuery struct {
	Chart *entities.BirthChart `json:"chart"`
}

// Validate validates the query
func (q NatalSummaryQuery) Validate() error {
	if q.Chart == nil {
		return errors.New("chart is required")
	}
	return nil
}
