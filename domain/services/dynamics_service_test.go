package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
)

func interContact(t *testing.T, from, to valueobjects.Planet, kind valueobjects.AspectKind, angle, orb float64) aggregates.InterAspect {
	t.Helper()
	return aggregates.InterAspect{
		From:   aggregates.PointRef{Person: 1, Point: valueobjects.PlanetPoint(from)},
		To:     aggregates.PointRef{Person: 2, Point: valueobjects.PlanetPoint(to)},
		Aspect: aspectOf(t, kind, angle, orb),
	}
}

func compositeAspect(t *testing.T, p1, p2 valueobjects.Planet, kind valueobjects.AspectKind, angle, orb float64) entities.PointAspect {
	t.Helper()
	return entities.PointAspect{
		Point1: valueobjects.PlanetPoint(p1),
		Point2: valueobjects.PlanetPoint(p2),
		Aspect: aspectOf(t, kind, angle, orb),
	}
}

// dynamicsFixture builds a synastry and composite pair whose dimension
// scores are small enough to check by hand.
func dynamicsFixture(t *testing.T) (aggregates.SynastryResult, aggregates.CompositeResult) {
	t.Helper()

	synastry := aggregates.SynastryResult{
		InterAspects: []aggregates.InterAspect{
			interContact(t, valueobjects.Mercury, valueobjects.Moon, valueobjects.Trine, 118, 2),
			interContact(t, valueobjects.Venus, valueobjects.Mars, valueobjects.Conjunction, 1, 1),
			interContact(t, valueobjects.Saturn, valueobjects.Sun, valueobjects.Sextile, 61, 1),
			interContact(t, valueobjects.Uranus, valueobjects.Sun, valueobjects.Square, 92, 2),
			interContact(t, valueobjects.Jupiter, valueobjects.Sun, valueobjects.Trine, 119, 1),
		},
		HouseOverlays: []aggregates.HouseOverlay{
			{Person: 1, Planet: valueobjects.Venus, House: 3, Significance: 0.5},
			{Person: 2, Planet: valueobjects.Moon, House: 4, Significance: 0.8},
			{Person: 1, Planet: valueobjects.Mars, House: 5, Significance: 0.9},
			{Person: 2, Planet: valueobjects.Pluto, House: 2, Significance: 0.4},
			{Person: 1, Planet: valueobjects.Jupiter, House: 9, Significance: 0.5},
		},
	}

	chart, err := entities.NewCompositeChart(
		map[valueobjects.Planet]valueobjects.PlanetPosition{
			valueobjects.Sun:   position(t, 40),
			valueobjects.Moon:  position(t, 100),
			valueobjects.Venus: position(t, 185),
		},
		position(t, 35), position(t, 300),
		[]entities.PointAspect{
			compositeAspect(t, valueobjects.Mercury, valueobjects.Venus, valueobjects.Conjunction, 1, 1),
			compositeAspect(t, valueobjects.Moon, valueobjects.Sun, valueobjects.Trine, 120, 0),
			compositeAspect(t, valueobjects.Jupiter, valueobjects.Saturn, valueobjects.Square, 90, 1),
			compositeAspect(t, valueobjects.Mars, valueobjects.Neptune, valueobjects.Square, 88, 2),
		},
	)
	require.NoError(t, err)

	return synastry, aggregates.CompositeResult{Chart: chart}
}

func TestDynamicsDimensionRecipes(t *testing.T) {
	service := NewDynamicsService(nil)
	synastry, composite := dynamicsFixture(t)

	result := service.Analyze(synastry, composite, aggregates.CompatibilityResult{Overall: 75})

	// Communication: 50 + 10 (Mercury contact) + 5 (house 3) + 3 (composite
	// Mercury).
	assert.InDelta(t, 68, result.Communication.Score, 1e-9)
	assert.Equal(t, []string{"Mercury trine Moon", "Venus in house 3", "composite Mercury conjunction Venus"}, result.Communication.Evidence)

	// Emotional: 50 + 12 (Moon contact) + 8 (house 4) + 4 (composite Moon).
	assert.InDelta(t, 74, result.Emotional.Score, 1e-9)

	// Intimacy: 50 + 15 (Venus-Mars) + 10 (house 5) + 10 (Pluto overlay)
	// + 5 + 5 (composite Venus and Mars aspects).
	assert.InDelta(t, 95, result.Intimacy.Score, 1e-9)

	// Conflict resolution: 70 + 5 (harmonious Saturn contact), one
	// challenging contact stays under the threshold of three, -6 for the
	// two challenging composite aspects.
	assert.InDelta(t, 69, result.ConflictResolution.Score, 1e-9)
	assert.Contains(t, result.ConflictResolution.Evidence, "2 challenging composite aspects")

	// Growth: 50 + 10 (Jupiter) + 4 (Uranus) + 8 (house 9) + 3 (composite
	// Jupiter).
	assert.InDelta(t, 75, result.Growth.Score, 1e-9)

	// Stability: 50 + 8 (Saturn) + 0.4*98.125 (balance: three singly
	// occupied houses) + 2 (composite sun in Taurus).
	assert.InDelta(t, 99.25, result.Stability.Score, 1e-9)
	assert.Contains(t, result.Stability.Evidence, "composite Sun in Taurus")
}

func TestDynamicsEvolutionIntensity(t *testing.T) {
	service := NewDynamicsService(nil)

	outerContacts := func(n int) aggregates.SynastryResult {
		aspects := make([]aggregates.InterAspect, 0, n)
		for i := 0; i < n; i++ {
			aspects = append(aspects, interContact(t, valueobjects.Pluto, valueobjects.Sun, valueobjects.Square, 90, 1))
		}
		return aggregates.SynastryResult{InterAspects: aspects}
	}

	tests := []struct {
		contacts       int
		transformative bool
		intensity      aggregates.EvolutionIntensity
	}{
		{0, false, aggregates.IntensityLow},
		{1, true, aggregates.IntensityModerate},
		{2, true, aggregates.IntensityModerate},
		{3, true, aggregates.IntensityHigh},
		{4, true, aggregates.IntensityHigh},
		{5, true, aggregates.IntensityVeryHigh},
		{7, true, aggregates.IntensityVeryHigh},
	}

	for _, tt := range tests {
		result := service.Analyze(outerContacts(tt.contacts), aggregates.CompositeResult{}, aggregates.CompatibilityResult{})
		assert.Equal(t, tt.transformative, result.Evolution.Transformative, "contacts=%d", tt.contacts)
		assert.Equal(t, tt.intensity, result.Evolution.Intensity, "contacts=%d", tt.contacts)
	}
}

func TestDynamicsScoresClampToBand(t *testing.T) {
	service := NewDynamicsService(nil)

	// Ten Moon trines blow far past 100 before clamping.
	aspects := make([]aggregates.InterAspect, 0, 10)
	for i := 0; i < 10; i++ {
		aspects = append(aspects, interContact(t, valueobjects.Moon, valueobjects.Sun, valueobjects.Trine, 120, 1))
	}
	rich := service.Analyze(aggregates.SynastryResult{InterAspects: aspects}, aggregates.CompositeResult{}, aggregates.CompatibilityResult{})
	assert.InDelta(t, 100, rich.Emotional.Score, 1e-9)

	// Twelve squares drive conflict resolution to the floor.
	hard := make([]aggregates.InterAspect, 0, 12)
	for i := 0; i < 12; i++ {
		hard = append(hard, interContact(t, valueobjects.Sun, valueobjects.Moon, valueobjects.Square, 90, 1))
	}
	tense := service.Analyze(aggregates.SynastryResult{InterAspects: hard}, aggregates.CompositeResult{}, aggregates.CompatibilityResult{})
	assert.InDelta(t, 0, tense.ConflictResolution.Score, 1e-9)
}

func TestDynamicsRollUp(t *testing.T) {
	service := NewDynamicsService(nil)
	synastry, composite := dynamicsFixture(t)

	result := service.Analyze(synastry, composite, aggregates.CompatibilityResult{Overall: 75})

	want := (result.Communication.Score + result.Emotional.Score + result.Intimacy.Score +
		result.ConflictResolution.Score + result.Growth.Score + result.Stability.Score) / 6
	assert.InDelta(t, want, result.Overall.AverageScore, 1e-9)

	assert.ElementsMatch(t, []string{"Emotional Connection", "Intimacy", "Growth Potential", "Stability"}, result.Overall.DominantStrengths)
	assert.Empty(t, result.Overall.KeyChallenges)
	assert.Equal(t, "Grounded partnership built to last", result.Overall.RelationshipStyle)
	assert.Equal(t, "Excellent long-term prospects", result.Overall.LongTermOutlook)
}

func TestDynamicsOutlookNeedsBothScores(t *testing.T) {
	service := NewDynamicsService(nil)
	synastry, composite := dynamicsFixture(t)

	// Same high dimension average, but a weak overall verdict tempers the
	// outlook.
	result := service.Analyze(synastry, composite, aggregates.CompatibilityResult{Overall: 40})
	assert.Equal(t, "Good long-term prospects with steady effort", result.Overall.LongTermOutlook)
}
