package validators

import (
	"fmt"

	"astraea-backend/domain/core/entities"
	"astraea-backend/pkg/errors"
)

// ChartValidator guards the entry points of every relationship computation.
// Violations surface before any math runs, as validation errors naming the
// offending field ("chart1", "chart2.angles", ...).
type ChartValidator struct{}

// NewChartValidator creates a new chart validator
func NewChartValidator() *ChartValidator {
	return &ChartValidator{}
}

// ValidateChartPair checks both charts of a relationship computation.
// The first violation wins; nothing is computed on invalid input.
func (v *ChartValidator) ValidateChartPair(chart1, chart2 *entities.BirthChart) error {
	if err := v.ValidateChart("chart1", chart1); err != nil {
		return err
	}
	return v.ValidateChart("chart2", chart2)
}

// ValidateChart checks a single chart under the given field name.
func (v *ChartValidator) ValidateChart(field string, chart *entities.BirthChart) error {
	if chart == nil {
		return fieldError(errors.ErrChartRequired, field)
	}

	if chart.PlanetCount() == 0 {
		return fieldError(errors.ErrChartPlanetsRequired, field+".planets")
	}

	if chart.Angles().IsZero() {
		return fieldError(errors.ErrChartAnglesRequired, field+".angles")
	}

	return nil
}

// fieldError clones a predefined validation error and stamps the offending
// field into both the message and the details map.
func fieldError(base *errors.DomainError, field string) *errors.DomainError {
	err := base.Clone().WithDetail("field", field)
	err.Message = fmt.Sprintf("%s: %s", field, err.Message)
	return err
}
