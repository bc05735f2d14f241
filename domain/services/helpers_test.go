package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
)

// chartWith builds a valid chart carrying the given planet longitudes, with
// whole-sign cusps derived from the ascendant.
func chartWith(t *testing.T, planets map[valueobjects.Planet]float64, asc, mc float64) *entities.BirthChart {
	t.Helper()

	positions := make(map[valueobjects.Planet]valueobjects.PlanetPosition, len(planets))
	for planet, lon := range planets {
		positions[planet] = position(t, lon)
	}
	angles, err := valueobjects.NewChartAnglesFromLongitudes(asc, mc)
	require.NoError(t, err)

	chart, err := entities.NewBirthChart(positions, valueobjects.WholeSignCusps(angles.Ascendant()), angles)
	require.NoError(t, err)
	return chart
}

func position(t *testing.T, longitude float64) valueobjects.PlanetPosition {
	t.Helper()
	pos, err := valueobjects.NewEclipticLongitude(longitude)
	require.NoError(t, err)
	return pos
}

func aspectOf(t *testing.T, kind valueobjects.AspectKind, angle, orb float64) valueobjects.Aspect {
	t.Helper()
	aspect, err := valueobjects.NewAspect(kind, angle, orb, false)
	require.NoError(t, err)
	return aspect
}

// quietChartPair returns two single-sun charts whose suns sit outside every
// aspect band of each other's planets and angles: no inter-aspects at all,
// just the two structural house overlays.
func quietChartPair(t *testing.T) (*entities.BirthChart, *entities.BirthChart) {
	t.Helper()
	chart1 := chartWith(t, map[valueobjects.Planet]float64{valueobjects.Sun: 0}, 20, 290)
	chart2 := chartWith(t, map[valueobjects.Planet]float64{valueobjects.Sun: 70}, 45, 315)
	return chart1, chart2
}

// sextileChartPair is quietChartPair with the second sun moved onto an exact
// sextile of the first: exactly one inter-aspect.
func sextileChartPair(t *testing.T) (*entities.BirthChart, *entities.BirthChart) {
	t.Helper()
	chart1 := chartWith(t, map[valueobjects.Planet]float64{valueobjects.Sun: 0}, 20, 290)
	chart2 := chartWith(t, map[valueobjects.Planet]float64{valueobjects.Sun: 60}, 45, 315)
	return chart1, chart2
}
