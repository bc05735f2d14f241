package services

import (
	"astraea-backend/domain/config"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/validators"
	"astraea-backend/domain/core/valueobjects"
)

// SynastryService compares two birth charts: every inter-chart aspect, house
// overlays in both directions, and the optional vertex and lunar-node
// contact lists.
type SynastryService struct {
	config     *config.ScoringConfig
	calculator *AspectCalculator
	locator    *HouseLocator
	validator  *validators.ChartValidator
}

// NewSynastryService creates a synastry service. A nil config falls back to
// the default weighting model.
func NewSynastryService(cfg *config.ScoringConfig) *SynastryService {
	if cfg == nil {
		cfg = config.DefaultScoringConfig()
	}
	return &SynastryService{
		config:     cfg,
		calculator: NewAspectCalculator(cfg),
		locator:    NewHouseLocator(),
		validator:  validators.NewChartValidator(),
	}
}

// Generate computes the full inter-chart comparison. Validation runs before
// any math; the synastry score blends 60% aspects with 40% overlays.
func (s *SynastryService) Generate(chart1, chart2 *entities.BirthChart) (aggregates.SynastryResult, error) {
	if err := s.validator.ValidateChartPair(chart1, chart2); err != nil {
		return aggregates.SynastryResult{}, err
	}

	interAspects := s.interAspects(chart1, chart2)

	overlays := s.houseOverlays(1, chart1, chart2)
	overlays = append(overlays, s.houseOverlays(2, chart2, chart1)...)

	result := aggregates.SynastryResult{
		InterAspects:         interAspects,
		HouseOverlays:        overlays,
		VertexConnections:    s.vertexConnections(chart1, chart2),
		LunarNodeConnections: s.lunarNodeConnections(chart1, chart2),
	}

	aspectShare, overlayShare := s.config.SynastryBlend()
	result.Score = aspectShare*scoreInterAspects(s.config, interAspects) +
		overlayShare*scoreHouseOverlays(s.config, overlays)

	return result, nil
}

// interAspects computes planet×planet contacts plus planet→partner-angle
// contacts in both directions.
func (s *SynastryService) interAspects(chart1, chart2 *entities.BirthChart) []aggregates.InterAspect {
	aspects := []aggregates.InterAspect{}

	// Planet × planet, chart 1 against chart 2.
	for _, planet1 := range valueobjects.CorePlanets() {
		pos1, ok := chart1.Position(planet1)
		if !ok {
			continue
		}
		for _, planet2 := range valueobjects.CorePlanets() {
			pos2, ok := chart2.Position(planet2)
			if !ok {
				continue
			}
			if aspect := s.calculator.FindAspectBetween(pos1, pos2); aspect != nil {
				aspects = append(aspects, aggregates.InterAspect{
					From:   aggregates.PointRef{Person: 1, Point: valueobjects.PlanetPoint(planet1)},
					To:     aggregates.PointRef{Person: 2, Point: valueobjects.PlanetPoint(planet2)},
					Aspect: *aspect,
				})
			}
		}
	}

	// Planets against the partner's angles, both directions.
	aspects = append(aspects, s.planetToAngles(1, chart1, 2, chart2)...)
	aspects = append(aspects, s.planetToAngles(2, chart2, 1, chart1)...)

	return aspects
}

// planetToAngles tests every planet of one chart against the partner's
// ASC/MC/DSC/IC. DSC and IC always resolve because the angles derive them as
// opposite points when they were not supplied; the Vertex is excluded here
// and handled as optional data.
func (s *SynastryService) planetToAngles(
	planetPerson int, planetChart *entities.BirthChart,
	anglePerson int, angleChart *entities.BirthChart,
) []aggregates.InterAspect {
	aspects := []aggregates.InterAspect{}
	angles := angleChart.Angles()

	for _, planet := range valueobjects.CorePlanets() {
		pos, ok := planetChart.Position(planet)
		if !ok {
			continue
		}
		for _, anglePoint := range valueobjects.ChartAnglePoints() {
			anglePos, ok := angles.PointFor(anglePoint)
			if !ok {
				continue
			}
			if aspect := s.calculator.FindAspectBetween(pos, anglePos); aspect != nil {
				aspects = append(aspects, aggregates.InterAspect{
					From:   aggregates.PointRef{Person: planetPerson, Point: valueobjects.PlanetPoint(planet)},
					To:     aggregates.PointRef{Person: anglePerson, Point: valueobjects.AnglePointRef(anglePoint)},
					Aspect: *aspect,
				})
			}
		}
	}

	return aspects
}

// houseOverlays maps one person's planets into the partner's house system.
// Charts without cusps degrade to house 1 via the locator.
func (s *SynastryService) houseOverlays(
	person int, planetChart, houseChart *entities.BirthChart,
) []aggregates.HouseOverlay {
	overlays := []aggregates.HouseOverlay{}
	cusps := houseChart.Houses()

	for _, planet := range valueobjects.CorePlanets() {
		pos, ok := planetChart.Position(planet)
		if !ok {
			continue
		}
		house := s.locator.HouseForLongitude(pos.Longitude(), cusps)
		overlays = append(overlays, aggregates.HouseOverlay{
			Person:       person,
			Planet:       planet,
			House:        house,
			Significance: s.config.HouseWeight(house),
		})
	}

	return overlays
}

// vertexConnections tests each chart's planets against the partner's Vertex.
// Both charts must carry a Vertex; otherwise the list is empty, never an
// error.
func (s *SynastryService) vertexConnections(chart1, chart2 *entities.BirthChart) []aggregates.InterAspect {
	if !chart1.HasVertex() || !chart2.HasVertex() {
		return []aggregates.InterAspect{}
	}

	connections := []aggregates.InterAspect{}
	connections = append(connections, s.pointContacts(1, chart1, 2, chart2, valueobjects.AnglePointRef(valueobjects.Vertex))...)
	connections = append(connections, s.pointContacts(2, chart2, 1, chart1, valueobjects.AnglePointRef(valueobjects.Vertex))...)
	return connections
}

// lunarNodeConnections tests each chart's planets against the partner's
// Rahu and Ketu. Both charts must carry the nodes; otherwise the list is
// empty, never an error.
func (s *SynastryService) lunarNodeConnections(chart1, chart2 *entities.BirthChart) []aggregates.InterAspect {
	if !chart1.HasLunarNodes() || !chart2.HasLunarNodes() {
		return []aggregates.InterAspect{}
	}

	connections := []aggregates.InterAspect{}
	for _, node := range []valueobjects.Planet{valueobjects.Rahu, valueobjects.Ketu} {
		connections = append(connections, s.pointContacts(1, chart1, 2, chart2, valueobjects.PlanetPoint(node))...)
		connections = append(connections, s.pointContacts(2, chart2, 1, chart1, valueobjects.PlanetPoint(node))...)
	}
	return connections
}

// pointContacts tests every core planet of one chart against a single point
// of the partner chart.
func (s *SynastryService) pointContacts(
	planetPerson int, planetChart *entities.BirthChart,
	targetPerson int, targetChart *entities.BirthChart,
	target valueobjects.ChartPoint,
) []aggregates.InterAspect {
	targetPos, ok := targetChart.PointPosition(target)
	if !ok {
		return nil
	}

	contacts := []aggregates.InterAspect{}
	for _, planet := range valueobjects.CorePlanets() {
		pos, ok := planetChart.Position(planet)
		if !ok {
			continue
		}
		if aspect := s.calculator.FindAspectBetween(pos, targetPos); aspect != nil {
			contacts = append(contacts, aggregates.InterAspect{
				From:   aggregates.PointRef{Person: planetPerson, Point: valueobjects.PlanetPoint(planet)},
				To:     aggregates.PointRef{Person: targetPerson, Point: target},
				Aspect: *aspect,
			})
		}
	}
	return contacts
}
