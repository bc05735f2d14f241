package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
	pkgerrors "astraea-backend/pkg/errors"
)

func validChart(t *testing.T) *entities.BirthChart {
	t.Helper()

	sun, err := valueobjects.NewEclipticLongitude(10)
	require.NoError(t, err)
	angles, err := valueobjects.NewChartAnglesFromLongitudes(15, 280)
	require.NoError(t, err)

	chart, err := entities.NewBirthChart(
		map[valueobjects.Planet]valueobjects.PlanetPosition{valueobjects.Sun: sun},
		valueobjects.WholeSignCusps(angles.Ascendant()),
		angles,
	)
	require.NoError(t, err)
	return chart
}

func TestValidateChartPair(t *testing.T) {
	validator := NewChartValidator()
	chart := validChart(t)

	assert.NoError(t, validator.ValidateChartPair(chart, chart))

	err := validator.ValidateChartPair(nil, chart)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrChartRequired)
	assert.Contains(t, err.Error(), "chart1")

	err = validator.ValidateChartPair(chart, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrChartRequired)
	assert.Contains(t, err.Error(), "chart2")

	// The first violation wins.
	err = validator.ValidateChartPair(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chart1")
	assert.NotContains(t, err.Error(), "chart2")
}

func TestValidateChartNamesTheField(t *testing.T) {
	validator := NewChartValidator()

	err := validator.ValidateChart("partner", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrChartRequired)
	assert.Contains(t, err.Error(), "partner")

	var domainErr *pkgerrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "partner", domainErr.Details["field"])
}

func TestValidateChartRejectsEmptyPlanets(t *testing.T) {
	validator := NewChartValidator()

	err := validator.ValidateChart("chart1", &entities.BirthChart{})
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrChartPlanetsRequired)
	assert.Contains(t, err.Error(), "chart1.planets")
}

func TestFieldErrorDoesNotMutateTheShared(t *testing.T) {
	validator := NewChartValidator()

	before := pkgerrors.ErrChartRequired.Message
	_ = validator.ValidateChart("chart1", nil)
	assert.Equal(t, before, pkgerrors.ErrChartRequired.Message)
	assert.NotContains(t, pkgerrors.ErrChartRequired.Details, "field")
}
