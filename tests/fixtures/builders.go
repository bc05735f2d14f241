package fixtures

import (
	"context"
	"strings"

	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/domain/services"
)

// ChartBuilder helps create valid birth charts with default values. House
// cusps are derived from the ascendant with whole-sign houses, which is what
// the scoring services assume for fixture charts.
type ChartBuilder struct {
	planets map[valueobjects.Planet]float64
	asc     float64
	mc      float64
}

func NewChartBuilder() *ChartBuilder {
	return &ChartBuilder{
		planets: map[valueobjects.Planet]float64{valueobjects.Sun: 0},
		asc:     20,
		mc:      290,
	}
}

func (b *ChartBuilder) WithPlanet(planet valueobjects.Planet, longitude float64) *ChartBuilder {
	b.planets[planet] = longitude
	return b
}

func (b *ChartBuilder) WithoutPlanets() *ChartBuilder {
	b.planets = make(map[valueobjects.Planet]float64)
	return b
}

func (b *ChartBuilder) WithAngles(ascendant, midheaven float64) *ChartBuilder {
	b.asc, b.mc = ascendant, midheaven
	return b
}

func (b *ChartBuilder) Build() (*entities.BirthChart, error) {
	positions := make(map[valueobjects.Planet]valueobjects.PlanetPosition, len(b.planets))
	for planet, lon := range b.planets {
		pos, err := valueobjects.NewEclipticLongitude(lon)
		if err != nil {
			return nil, err
		}
		positions[planet] = pos
	}

	angles, err := valueobjects.NewChartAnglesFromLongitudes(b.asc, b.mc)
	if err != nil {
		return nil, err
	}

	return entities.NewBirthChart(positions, valueobjects.WholeSignCusps(angles.Ascendant()), angles)
}

func (b *ChartBuilder) MustBuild() *entities.BirthChart {
	chart, err := b.Build()
	if err != nil {
		panic(err)
	}
	return chart
}

// QuietChartPair returns two single-sun charts whose suns sit outside every
// aspect band of each other's planets and angles: no inter-aspects at all.
func QuietChartPair() (*entities.BirthChart, *entities.BirthChart) {
	chart1 := NewChartBuilder().MustBuild()
	chart2 := NewChartBuilder().
		WithoutPlanets().
		WithPlanet(valueobjects.Sun, 70).
		WithAngles(45, 315).
		MustBuild()
	return chart1, chart2
}

// SextileChartPair is QuietChartPair with the second sun moved onto an exact
// sextile of the first: exactly one inter-aspect.
func SextileChartPair() (*entities.BirthChart, *entities.BirthChart) {
	chart1 := NewChartBuilder().MustBuild()
	chart2 := NewChartBuilder().
		WithoutPlanets().
		WithPlanet(valueobjects.Sun, 60).
		WithAngles(45, 315).
		MustBuild()
	return chart1, chart2
}

// AnalysisBuilder produces fully scored relationship analyses by running the
// real analysis pipeline over fixture charts.
type AnalysisBuilder struct {
	userID      string
	chart1      *entities.BirthChart
	chart2        *entities.BirthChart
	chart1Label   string
	chart2Label   string
	systemVersion string
}

func NewAnalysisBuilder() *AnalysisBuilder {
	chart1, chart2 := SextileChartPair()
	return &AnalysisBuilder{
		userID: "test-user-123",
		chart1: chart1,
		chart2: chart2,
	}
}

func (b *AnalysisBuilder) WithUserID(userID string) *AnalysisBuilder {
	b.userID = userID
	return b
}

func (b *AnalysisBuilder) WithCharts(chart1, chart2 *entities.BirthChart) *AnalysisBuilder {
	b.chart1, b.chart2 = chart1, chart2
	return b
}

func (b *AnalysisBuilder) WithLabels(chart1Label, chart2Label string) *AnalysisBuilder {
	b.chart1Label, b.chart2Label = chart1Label, chart2Label
	return b
}

// WithSystemVersion stamps a different engine tag onto the built analysis,
// as if an older deployment had stored it.
func (b *AnalysisBuilder) WithSystemVersion(tag string) *AnalysisBuilder {
	b.systemVersion = tag
	return b
}

func (b *AnalysisBuilder) Build() (*aggregates.RelationshipAnalysis, error) {
	userID, err := valueobjects.NewUserID(b.userID)
	if err != nil {
		return nil, err
	}

	chart1Label, err := buildLabel(b.chart1Label)
	if err != nil {
		return nil, err
	}
	chart2Label, err := buildLabel(b.chart2Label)
	if err != nil {
		return nil, err
	}

	orchestrator := services.NewAnalysisOrchestrator(nil)
	analysis, err := orchestrator.GenerateAnalysis(context.Background(), services.AnalysisRequest{
		UserID:      userID,
		Chart1:      b.chart1,
		Chart2:      b.chart2,
		Chart1Label: chart1Label,
		Chart2Label: chart2Label,
	})
	if err != nil || b.systemVersion == "" {
		return analysis, err
	}

	return aggregates.ReconstructAnalysis(
		analysis.ID(),
		analysis.UserID(),
		analysis.Chart1Label(),
		analysis.Chart2Label(),
		analysis.Synastry(),
		analysis.Composite(),
		analysis.Compatibility(),
		analysis.Dynamics(),
		analysis.Summary(),
		analysis.GeneratedAt(),
		b.systemVersion,
		analysis.Version(),
	)
}

func (b *AnalysisBuilder) MustBuild() *aggregates.RelationshipAnalysis {
	analysis, err := b.Build()
	if err != nil {
		panic(err)
	}
	// Mark generation events as committed so tests don't see them
	analysis.MarkEventsAsCommitted()
	return analysis
}

func buildLabel(value string) (valueobjects.ChartLabel, error) {
	if strings.TrimSpace(value) == "" {
		return valueobjects.ChartLabel{}, nil
	}
	return valueobjects.NewChartLabel(value)
}
