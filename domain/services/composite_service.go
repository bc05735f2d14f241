package services

import (
	"fmt"

	"astraea-backend/domain/astro"
	"astraea-backend/domain/config"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/validators"
	"astraea-backend/domain/core/valueobjects"
)

// CompositeService derives the relationship's own chart from two birth
// charts by midpoint composition, then reads it with fixed threshold rules.
type CompositeService struct {
	config     *config.ScoringConfig
	calculator *AspectCalculator
	validator  *validators.ChartValidator
}

// NewCompositeService creates a composite service. A nil config falls back
// to the default orb table.
func NewCompositeService(cfg *config.ScoringConfig) *CompositeService {
	if cfg == nil {
		cfg = config.DefaultScoringConfig()
	}
	return &CompositeService{
		config:     cfg,
		calculator: NewAspectCalculator(cfg),
		validator:  validators.NewChartValidator(),
	}
}

// Generate builds the composite chart and its interpretation.
//
// Positions exist only for planets present in both charts: longitude is the
// circular midpoint, latitude the arithmetic mean. Composite ASC and MC are
// circular midpoints of the source angles; DSC and IC fall opposite them by
// construction, and houses are whole-sign from the composite ASC.
func (s *CompositeService) Generate(chart1, chart2 *entities.BirthChart) (aggregates.CompositeResult, error) {
	if err := s.validator.ValidateChartPair(chart1, chart2); err != nil {
		return aggregates.CompositeResult{}, err
	}

	planets, err := midpointPlanets(chart1, chart2)
	if err != nil {
		return aggregates.CompositeResult{}, err
	}

	angles1, angles2 := chart1.Angles(), chart2.Angles()
	ascendant, err := midpointPosition(angles1.Ascendant(), angles2.Ascendant())
	if err != nil {
		return aggregates.CompositeResult{}, err
	}
	midheaven, err := midpointPosition(angles1.Midheaven(), angles2.Midheaven())
	if err != nil {
		return aggregates.CompositeResult{}, err
	}

	aspects := s.internalAspects(planets, valueobjects.NewChartAngles(ascendant, midheaven))

	chart, err := entities.NewCompositeChart(planets, ascendant, midheaven, aspects)
	if err != nil {
		return aggregates.CompositeResult{}, err
	}

	return aggregates.CompositeResult{
		Chart:          chart,
		Interpretation: s.interpret(chart),
	}, nil
}

// midpointPlanets composes every planet present in both charts, lunar nodes
// included. A planet carried by only one chart contributes nothing.
func midpointPlanets(chart1, chart2 *entities.BirthChart) (map[valueobjects.Planet]valueobjects.PlanetPosition, error) {
	planets := make(map[valueobjects.Planet]valueobjects.PlanetPosition)
	for _, planet := range append(valueobjects.CorePlanets(), valueobjects.Rahu, valueobjects.Ketu) {
		pos1, ok1 := chart1.Position(planet)
		pos2, ok2 := chart2.Position(planet)
		if !ok1 || !ok2 {
			continue
		}
		midpoint, err := midpointPosition(pos1, pos2)
		if err != nil {
			return nil, err
		}
		planets[planet] = midpoint
	}
	return planets, nil
}

// midpointPosition composes two positions: circular midpoint of the
// longitudes, arithmetic mean of the latitudes.
func midpointPosition(a, b valueobjects.PlanetPosition) (valueobjects.PlanetPosition, error) {
	return valueobjects.NewPlanetPosition(
		astro.CircularMidpoint(a.Longitude(), b.Longitude()),
		(a.Latitude()+b.Latitude())/2,
	)
}

// internalAspects finds every pairwise aspect among the composite positions,
// angle-to-angle contacts included. The structural ASC-DSC and MC-IC
// oppositions always appear; the scoring layer weighs them like any other
// contact.
func (s *CompositeService) internalAspects(
	planets map[valueobjects.Planet]valueobjects.PlanetPosition,
	angles valueobjects.ChartAngles,
) []entities.PointAspect {
	type placedPoint struct {
		point    valueobjects.ChartPoint
		position valueobjects.PlanetPosition
	}

	points := []placedPoint{}
	for _, planet := range append(valueobjects.CorePlanets(), valueobjects.Rahu, valueobjects.Ketu) {
		if pos, ok := planets[planet]; ok {
			points = append(points, placedPoint{valueobjects.PlanetPoint(planet), pos})
		}
	}
	for _, angle := range valueobjects.ChartAnglePoints() {
		if pos, ok := angles.PointFor(angle); ok {
			points = append(points, placedPoint{valueobjects.AnglePointRef(angle), pos})
		}
	}

	aspects := []entities.PointAspect{}
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			if aspect := s.calculator.FindAspectBetween(points[i].position, points[j].position); aspect != nil {
				aspects = append(aspects, entities.PointAspect{
					Point1: points[i].point,
					Point2: points[j].point,
					Aspect: *aspect,
				})
			}
		}
	}
	return aspects
}

// interpret derives the qualitative layer from the chart's aspect mix and
// angularity using fixed thresholds, so equal charts always read the same.
func (s *CompositeService) interpret(chart *entities.CompositeChart) aggregates.CompositeInterpretation {
	var harmonious, challenging, exact int
	for _, contact := range chart.Aspects() {
		if contact.Aspect.Kind().IsHarmonious() {
			harmonious++
		} else {
			challenging++
		}
		if contact.Aspect.IsExactish() {
			exact++
		}
	}

	graded := chart.Angularity()
	angular := chart.AngularCount()
	var weak int
	for _, grade := range graded {
		if grade.Class == entities.AngularityWeak {
			weak++
		}
	}

	themes := []string{}
	if harmonious >= challenging+2 {
		themes = append(themes, "Harmony and mutual support")
	}
	if challenging >= harmonious+2 {
		themes = append(themes, "Friction that fuels growth")
	}
	if exact >= 3 {
		themes = append(themes, "Sharply defined shared purpose")
	}
	if angular >= 3 {
		themes = append(themes, "Strong public presence")
	}
	if len(themes) == 0 {
		themes = append(themes, "Balanced give and take")
	}

	var style string
	switch {
	case harmonious > challenging*2:
		style = "Easygoing and mutually affirming"
	case challenging > harmonious:
		style = "Dynamic and demanding"
	default:
		style = "Steady with creative tension"
	}

	strengths := []string{}
	if harmonious >= 5 {
		strengths = append(strengths, "Flowing aspects make cooperation natural")
	}
	if angular >= 2 {
		strengths = append(strengths, "Angular planets give the couple visible direction")
	}
	if exact >= 1 {
		strengths = append(strengths, fmt.Sprintf("%d exact aspects anchor the relationship's identity", exact))
	}

	challengeList := []string{}
	if challenging >= 5 {
		challengeList = append(challengeList, "Many hard aspects demand conscious effort")
	}
	if angular == 0 {
		challengeList = append(challengeList, "No planets near the angles can keep the partnership overly private")
	}
	if len(graded) > 0 && weak*2 > len(graded) {
		challengeList = append(challengeList, "Most planets sit far from the angles, so shared initiative takes deliberate work")
	}

	return aggregates.CompositeInterpretation{
		DominantThemes:    themes,
		RelationshipStyle: style,
		Strengths:         strengths,
		Challenges:        challengeList,
	}
}
