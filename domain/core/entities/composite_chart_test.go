package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astraea-backend/domain/core/valueobjects"
)

func mustPosition(t *testing.T, longitude float64) valueobjects.PlanetPosition {
	t.Helper()
	pos, err := valueobjects.NewEclipticLongitude(longitude)
	require.NoError(t, err)
	return pos
}

// mustCompositeChart builds a composite with ASC 25° (whole-sign cusp 1 at
// 0°, cusp 10 at 270°) and planets spanning the angularity bands.
func mustCompositeChart(t *testing.T) *CompositeChart {
	t.Helper()
	planets := map[valueobjects.Planet]valueobjects.PlanetPosition{
		valueobjects.Sun:     mustPosition(t, 12),  // 12° from cusp 1 -> moderate
		valueobjects.Moon:    mustPosition(t, 284), // 14° from cusp 10 -> moderate
		valueobjects.Mercury: mustPosition(t, 100), // 100° from cusp 1 -> weak
		valueobjects.Venus:   mustPosition(t, 18),  // 18° from cusp 1 -> weak
	}
	chart, err := NewCompositeChart(planets, mustPosition(t, 25), mustPosition(t, 295), nil)
	require.NoError(t, err)
	return chart
}

func TestClassifyAngularity(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     AngularityClass
	}{
		{name: "exact conjunction with cusp", distance: 0, want: AngularityStrong},
		{name: "strong boundary", distance: 2, want: AngularityStrong},
		{name: "angular just past strong", distance: 2.1, want: AngularityAngular},
		{name: "angular boundary", distance: 5, want: AngularityAngular},
		{name: "moderate middle band", distance: 10, want: AngularityModerate},
		{name: "weak boundary", distance: 15, want: AngularityWeak},
		{name: "far from both cusps", distance: 90, want: AngularityWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAngularity(tt.distance))
		})
	}
}

func TestCompositeChartDerivesWholeSignHouses(t *testing.T) {
	chart := mustCompositeChart(t)

	// ASC at 25° Aries -> whole-sign cusp 1 at 0° Aries.
	first, err := chart.Houses().Cusp(1)
	require.NoError(t, err)
	assert.InDelta(t, 0, first, 1e-9)

	tenth, err := chart.Houses().Cusp(10)
	require.NoError(t, err)
	assert.InDelta(t, 270, tenth, 1e-9)
}

func TestCompositeChartOppositePointLaw(t *testing.T) {
	chart := mustCompositeChart(t)
	angles := chart.Angles()

	wantDSC := valueobjects.SignForLongitude(angles.Ascendant().Longitude() + 180)
	assert.Equal(t, wantDSC, angles.Descendant().Sign())
	assert.InDelta(t, 205, angles.Descendant().Longitude(), 1e-9)
	assert.InDelta(t, 115, angles.ImumCoeli().Longitude(), 1e-9)
}

func TestCompositeChartAngularityGrades(t *testing.T) {
	chart := mustCompositeChart(t)

	grades := chart.Angularity()
	require.Len(t, grades, 4)

	byPlanet := make(map[valueobjects.Planet]PlanetAngularity, len(grades))
	for _, grade := range grades {
		byPlanet[grade.Planet] = grade
	}

	sun := byPlanet[valueobjects.Sun]
	assert.InDelta(t, 12, sun.Distance, 1e-9)
	assert.Equal(t, AngularityModerate, sun.Class)

	moon := byPlanet[valueobjects.Moon]
	assert.InDelta(t, 14, moon.Distance, 1e-9)
	assert.Equal(t, AngularityModerate, moon.Class)

	mercury := byPlanet[valueobjects.Mercury]
	assert.InDelta(t, 100, mercury.Distance, 1e-9)
	assert.Equal(t, AngularityWeak, mercury.Class)

	venus := byPlanet[valueobjects.Venus]
	assert.InDelta(t, 18, venus.Distance, 1e-9)
	assert.Equal(t, AngularityWeak, venus.Class)
}

func TestCompositeChartAngularCount(t *testing.T) {
	planets := map[valueobjects.Planet]valueobjects.PlanetPosition{
		valueobjects.Sun:   mustPosition(t, 1),   // strong (cusp 1 at 0°)
		valueobjects.Moon:  mustPosition(t, 274), // angular (cusp 10 at 270°)
		valueobjects.Venus: mustPosition(t, 130), // weak
	}
	chart, err := NewCompositeChart(planets, mustPosition(t, 10), mustPosition(t, 280), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, chart.AngularCount())
}

func TestCompositeChartCanonicalOrder(t *testing.T) {
	chart := mustCompositeChart(t)
	assert.Equal(t, []valueobjects.Planet{
		valueobjects.Sun, valueobjects.Moon, valueobjects.Mercury, valueobjects.Venus,
	}, chart.PlanetsCanonical())
}

func TestCompositeChartJSONRoundTrip(t *testing.T) {
	chart := mustCompositeChart(t)

	data, err := json.Marshal(chart)
	require.NoError(t, err)

	var decoded CompositeChart
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, chart.PlanetCount(), decoded.PlanetCount())
	assert.Equal(t, chart.AngularCount(), decoded.AngularCount())
	assert.InDelta(t,
		chart.Angles().Descendant().Longitude(),
		decoded.Angles().Descendant().Longitude(), 1e-9)

	first, err := decoded.Houses().Cusp(1)
	require.NoError(t, err)
	assert.InDelta(t, 0, first, 1e-9)
}
