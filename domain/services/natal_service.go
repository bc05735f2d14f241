package services

import (
	"fmt"
	"strings"

	"astraea-backend/domain/config"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/validators"
	"astraea-backend/domain/core/valueobjects"
)

// NatalPlacement is one planet's position read against its own chart.
type NatalPlacement struct {
	Planet       valueobjects.Planet     `json:"planet"`
	Sign         valueobjects.ZodiacSign `json:"sign"`
	DegreeInSign float64                 `json:"degreeInSign"`
	House        int                     `json:"house"`
}

// NatalSummary is a single-chart reading: placements, elemental and modal
// balance, internal aspects, and the chart signature.
type NatalSummary struct {
	Placements       []NatalPlacement              `json:"placements"`
	ElementBalance   map[valueobjects.Element]int  `json:"elementBalance"`
	ModalityBalance  map[valueobjects.Modality]int `json:"modalityBalance"`
	DominantElement  valueobjects.Element          `json:"dominantElement"`
	DominantModality valueobjects.Modality         `json:"dominantModality"`
	InternalAspects  []entities.PointAspect        `json:"internalAspects"`
	Signature        string                        `json:"signature"`
}

// NatalService reads a single birth chart. It powers the chart-display side
// of the app and never persists anything.
type NatalService struct {
	config     *config.ScoringConfig
	calculator *AspectCalculator
	locator    *HouseLocator
	validator  *validators.ChartValidator
}

// NewNatalService creates a natal service. A nil config falls back to the
// default orb table.
func NewNatalService(cfg *config.ScoringConfig) *NatalService {
	if cfg == nil {
		cfg = config.DefaultScoringConfig()
	}
	return &NatalService{
		config:     cfg,
		calculator: NewAspectCalculator(cfg),
		locator:    NewHouseLocator(),
		validator:  validators.NewChartValidator(),
	}
}

// Summarize reads the chart: per-planet placements against its own cusps,
// element and modality balance over the core planets, internal aspects, and
// the signature built from the dominant modality and element.
func (s *NatalService) Summarize(chart *entities.BirthChart) (NatalSummary, error) {
	if err := s.validator.ValidateChart("chart", chart); err != nil {
		return NatalSummary{}, err
	}

	summary := NatalSummary{
		Placements:      []NatalPlacement{},
		ElementBalance:  map[valueobjects.Element]int{},
		ModalityBalance: map[valueobjects.Modality]int{},
	}

	cusps := chart.Houses()
	for _, planet := range append(valueobjects.CorePlanets(), valueobjects.Rahu, valueobjects.Ketu) {
		pos, ok := chart.Position(planet)
		if !ok {
			continue
		}
		summary.Placements = append(summary.Placements, NatalPlacement{
			Planet:       planet,
			Sign:         pos.Sign(),
			DegreeInSign: pos.DegreeInSign(),
			House:        s.locator.HouseForLongitude(pos.Longitude(), cusps),
		})
		// Balance counts cover the ten core bodies only; the nodes always
		// oppose each other and would cancel any skew they report.
		if !planet.IsLunarNode() {
			summary.ElementBalance[pos.Sign().Element()]++
			summary.ModalityBalance[pos.Sign().Modality()]++
		}
	}

	summary.DominantElement = dominantElement(summary.ElementBalance)
	summary.DominantModality = dominantModality(summary.ModalityBalance)
	summary.InternalAspects = s.internalAspects(chart)
	summary.Signature = chartSignature(summary.DominantElement, summary.DominantModality)

	return summary, nil
}

// internalAspects finds every pairwise aspect among the chart's own planets
// and its four cardinal angles.
func (s *NatalService) internalAspects(chart *entities.BirthChart) []entities.PointAspect {
	type placedPoint struct {
		point    valueobjects.ChartPoint
		position valueobjects.PlanetPosition
	}

	points := []placedPoint{}
	for _, planet := range append(valueobjects.CorePlanets(), valueobjects.Rahu, valueobjects.Ketu) {
		if pos, ok := chart.Position(planet); ok {
			points = append(points, placedPoint{valueobjects.PlanetPoint(planet), pos})
		}
	}
	angles := chart.Angles()
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

// dominantElement picks the most frequent element; ties resolve in the fixed
// fire, earth, air, water order so the result is deterministic.
func dominantElement(balance map[valueobjects.Element]int) valueobjects.Element {
	dominant := valueobjects.Fire
	best := -1
	for _, element := range []valueobjects.Element{valueobjects.Fire, valueobjects.Earth, valueobjects.Air, valueobjects.Water} {
		if balance[element] > best {
			dominant = element
			best = balance[element]
		}
	}
	return dominant
}

// dominantModality picks the most frequent modality; ties resolve in the
// fixed cardinal, fixed, mutable order.
func dominantModality(balance map[valueobjects.Modality]int) valueobjects.Modality {
	dominant := valueobjects.Cardinal
	best := -1
	for _, modality := range []valueobjects.Modality{valueobjects.Cardinal, valueobjects.Fixed, valueobjects.Mutable} {
		if balance[modality] > best {
			dominant = modality
			best = balance[modality]
		}
	}
	return dominant
}

// chartSignature names the unique sign carrying the dominant modality and
// element pairing, e.g. cardinal fire is Aries.
func chartSignature(element valueobjects.Element, modality valueobjects.Modality) string {
	for sign := valueobjects.ZodiacSign(0); sign < 12; sign++ {
		if sign.Element() == element && sign.Modality() == modality {
			return fmt.Sprintf("%s %s (%s)", titleCase(string(modality)), titleCase(string(element)), sign)
		}
	}
	return fmt.Sprintf("%s %s", titleCase(string(modality)), titleCase(string(element)))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
