package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
	pkgerrors "astraea-backend/pkg/errors"
)

func chartWithExtras(t *testing.T, planets map[valueobjects.Planet]float64, asc, mc float64, vertex *float64) *entities.BirthChart {
	t.Helper()

	positions := make(map[valueobjects.Planet]valueobjects.PlanetPosition, len(planets))
	for planet, lon := range planets {
		positions[planet] = position(t, lon)
	}
	angles, err := valueobjects.NewChartAnglesFromLongitudes(asc, mc)
	require.NoError(t, err)
	if vertex != nil {
		angles = angles.WithVertex(position(t, *vertex))
	}

	chart, err := entities.NewBirthChart(positions, valueobjects.WholeSignCusps(angles.Ascendant()), angles)
	require.NoError(t, err)
	return chart
}

func TestSynastryGenerateValidatesInputs(t *testing.T) {
	service := NewSynastryService(nil)
	chart1, chart2 := quietChartPair(t)

	_, err := service.Generate(nil, chart2)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrChartRequired)
	assert.Contains(t, err.Error(), "chart1")

	_, err = service.Generate(chart1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrChartRequired)
	assert.Contains(t, err.Error(), "chart2")
}

func TestSynastryQuietPair(t *testing.T) {
	service := NewSynastryService(nil)
	chart1, chart2 := quietChartPair(t)

	result, err := service.Generate(chart1, chart2)
	require.NoError(t, err)

	assert.Empty(t, result.InterAspects)
	assert.Empty(t, result.VertexConnections)
	assert.Empty(t, result.LunarNodeConnections)

	// One overlay per direction: sun 1 lands in partner house 12, sun 2 in
	// partner house 3.
	require.Len(t, result.HouseOverlays, 2)
	assert.Equal(t, 1, result.HouseOverlays[0].Person)
	assert.Equal(t, 12, result.HouseOverlays[0].House)
	assert.InDelta(t, 0.3, result.HouseOverlays[0].Significance, 1e-9)
	assert.Equal(t, 2, result.HouseOverlays[1].Person)
	assert.Equal(t, 3, result.HouseOverlays[1].House)
	assert.InDelta(t, 0.5, result.HouseOverlays[1].Significance, 1e-9)

	// No aspects, overlay average (30+50)/2 = 40, blended 0.6*0 + 0.4*40.
	assert.InDelta(t, 16.0, result.Score, 1e-9)
}

func TestSynastrySingleSextile(t *testing.T) {
	service := NewSynastryService(nil)
	chart1, chart2 := sextileChartPair(t)

	result, err := service.Generate(chart1, chart2)
	require.NoError(t, err)

	require.Len(t, result.InterAspects, 1)
	contact := result.InterAspects[0]
	assert.Equal(t, 1, contact.From.Person)
	assert.Equal(t, 2, contact.To.Person)
	assert.Equal(t, valueobjects.PlanetPoint(valueobjects.Sun), contact.From.Point)
	assert.Equal(t, valueobjects.PlanetPoint(valueobjects.Sun), contact.To.Point)
	assert.Equal(t, valueobjects.Sextile, contact.Aspect.Kind())
	assert.InDelta(t, 0, contact.Aspect.Orb(), 1e-9)

	// Aspect score 0.6*1.0*100 = 60, overlay average 40, blended
	// 0.6*60 + 0.4*40 = 52.
	assert.InDelta(t, 52.0, result.Score, 1e-9)
}

func TestSynastryVertexConnections(t *testing.T) {
	service := NewSynastryService(nil)

	vertex1, vertex2 := 160.0, 120.0
	chart1 := chartWithExtras(t, map[valueobjects.Planet]float64{valueobjects.Sun: 0}, 20, 290, &vertex1)
	chart2 := chartWithExtras(t, map[valueobjects.Planet]float64{valueobjects.Sun: 70}, 45, 315, &vertex2)

	result, err := service.Generate(chart1, chart2)
	require.NoError(t, err)

	require.Len(t, result.VertexConnections, 2)

	first := result.VertexConnections[0]
	assert.Equal(t, 1, first.From.Person)
	assert.Equal(t, valueobjects.PlanetPoint(valueobjects.Sun), first.From.Point)
	assert.Equal(t, 2, first.To.Person)
	assert.Equal(t, valueobjects.AnglePointRef(valueobjects.Vertex), first.To.Point)
	assert.Equal(t, valueobjects.Trine, first.Aspect.Kind())

	second := result.VertexConnections[1]
	assert.Equal(t, 2, second.From.Person)
	assert.Equal(t, 1, second.To.Person)
	assert.Equal(t, valueobjects.Square, second.Aspect.Kind())
}

func TestSynastryVertexRequiresBothCharts(t *testing.T) {
	service := NewSynastryService(nil)

	vertex1 := 160.0
	chart1 := chartWithExtras(t, map[valueobjects.Planet]float64{valueobjects.Sun: 0}, 20, 290, &vertex1)
	chart2 := chartWithExtras(t, map[valueobjects.Planet]float64{valueobjects.Sun: 70}, 45, 315, nil)

	result, err := service.Generate(chart1, chart2)
	require.NoError(t, err)
	assert.Empty(t, result.VertexConnections)
}

func TestSynastryLunarNodeConnections(t *testing.T) {
	service := NewSynastryService(nil)

	chart1 := chartWith(t, map[valueobjects.Planet]float64{
		valueobjects.Sun:  0,
		valueobjects.Rahu: 100,
		valueobjects.Ketu: 280,
	}, 20, 290)
	chart2 := chartWith(t, map[valueobjects.Planet]float64{
		valueobjects.Sun:  70,
		valueobjects.Rahu: 215,
		valueobjects.Ketu: 35,
	}, 45, 315)

	result, err := service.Generate(chart1, chart2)
	require.NoError(t, err)

	// Sun 2 at 70 sits exactly quincunx Ketu 1 at 280; every other
	// planet-node separation misses its band.
	require.Len(t, result.LunarNodeConnections, 1)
	contact := result.LunarNodeConnections[0]
	assert.Equal(t, 2, contact.From.Person)
	assert.Equal(t, valueobjects.PlanetPoint(valueobjects.Sun), contact.From.Point)
	assert.Equal(t, 1, contact.To.Person)
	assert.Equal(t, valueobjects.PlanetPoint(valueobjects.Ketu), contact.To.Point)
	assert.Equal(t, valueobjects.Quincunx, contact.Aspect.Kind())
}

func TestSynastryLunarNodesRequireBothCharts(t *testing.T) {
	service := NewSynastryService(nil)

	chart1 := chartWith(t, map[valueobjects.Planet]float64{
		valueobjects.Sun:  0,
		valueobjects.Rahu: 100,
		valueobjects.Ketu: 280,
	}, 20, 290)
	chart2 := chartWith(t, map[valueobjects.Planet]float64{valueobjects.Sun: 70}, 45, 315)

	result, err := service.Generate(chart1, chart2)
	require.NoError(t, err)
	assert.Empty(t, result.LunarNodeConnections)
}

func TestSynastryScoreStaysInBounds(t *testing.T) {
	service := NewSynastryService(nil)

	// A crowded pair with many tight contacts saturates without escaping
	// the band.
	chart1 := chartWith(t, map[valueobjects.Planet]float64{
		valueobjects.Sun:     0,
		valueobjects.Moon:    90,
		valueobjects.Mercury: 120,
		valueobjects.Venus:   150,
		valueobjects.Mars:    180,
	}, 15, 270)
	chart2 := chartWith(t, map[valueobjects.Planet]float64{
		valueobjects.Sun:     5,
		valueobjects.Moon:    95,
		valueobjects.Mercury: 125,
		valueobjects.Venus:   155,
		valueobjects.Mars:    185,
	}, 20, 275)

	result, err := service.Generate(chart1, chart2)
	require.NoError(t, err)

	assert.NotEmpty(t, result.InterAspects)
	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 100.0)

	require.Len(t, result.HouseOverlays, 10)
	for _, overlay := range result.HouseOverlays {
		assert.Contains(t, []int{1, 2}, overlay.Person)
		assert.GreaterOrEqual(t, overlay.House, 1)
		assert.LessOrEqual(t, overlay.House, 12)
		assert.Greater(t, overlay.Significance, 0.0)
		assert.LessOrEqual(t, overlay.Significance, 1.0)
	}
}
