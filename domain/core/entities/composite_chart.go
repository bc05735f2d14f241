package entities

import (
	"encoding/json"

	"astraea-backend/domain/astro"
	"astraea-backend/domain/core/valueobjects"
	pkgerrors "astraea-backend/pkg/errors"
)

// AngularityClass grades how close a composite planet sits to an angular
// house cusp.
type AngularityClass string

const (
	// AngularityStrong is within 2° of the ASC or MC cusp.
	AngularityStrong AngularityClass = "strong"
	// AngularityAngular is within 5°.
	AngularityAngular AngularityClass = "angular"
	// AngularityModerate is the unremarkable middle band.
	AngularityModerate AngularityClass = "moderate"
	// AngularityWeak is 15° or more from both cusps.
	AngularityWeak AngularityClass = "weak"
)

// Angularity distance thresholds, degrees.
const (
	strongAngularityOrb = 2.0
	angularityOrb       = 5.0
	weakAngularityFloor = 15.0
)

// ClassifyAngularity grades a distance (degrees to the nearest angular cusp).
func ClassifyAngularity(distance float64) AngularityClass {
	switch {
	case distance <= strongAngularityOrb:
		return AngularityStrong
	case distance <= angularityOrb:
		return AngularityAngular
	case distance >= weakAngularityFloor:
		return AngularityWeak
	default:
		return AngularityModerate
	}
}

// PointAspect is one internal aspect between two composite chart points.
type PointAspect struct {
	Point1 valueobjects.ChartPoint `json:"point1"`
	Point2 valueobjects.ChartPoint `json:"point2"`
	Aspect valueobjects.Aspect     `json:"aspect"`
}

// PlanetAngularity records how close a composite planet sits to the ASC/MC
// cusps and its resulting grade.
type PlanetAngularity struct {
	Planet   valueobjects.Planet `json:"planet"`
	Distance float64             `json:"distance"`
	Class    AngularityClass     `json:"class"`
}

// CompositeChart is the derived relationship chart: every position is the
// circular midpoint of the two source charts' positions. It is computed fresh
// per analysis and never mutated afterwards.
//
// Two structural laws hold by construction:
//   - DSC and IC are always the exact opposite points of ASC and MC; they are
//     never midpointed independently.
//   - Houses are whole-sign from the composite ASC, a documented
//     simplification (midpointing house cusps directly is not meaningful).
type CompositeChart struct {
	planets    map[valueobjects.Planet]valueobjects.PlanetPosition
	angles     valueobjects.ChartAngles
	houses     valueobjects.HouseCusps
	aspects    []PointAspect
	angularity []PlanetAngularity
}

// NewCompositeChart builds a composite chart from midpointed planets and the
// midpointed ASC/MC. Houses and angularity grades are derived here; internal
// aspects are computed by the caller (they need the aspect calculator).
func NewCompositeChart(
	planets map[valueobjects.Planet]valueobjects.PlanetPosition,
	ascendant, midheaven valueobjects.PlanetPosition,
	aspects []PointAspect,
) (*CompositeChart, error) {
	for planet := range planets {
		if !planet.IsValid() {
			return nil, pkgerrors.ErrUnknownPlanet.Clone().
				WithDetail("planet", planet.String())
		}
	}

	owned := make(map[valueobjects.Planet]valueobjects.PlanetPosition, len(planets))
	for planet, position := range planets {
		owned[planet] = position
	}

	ownedAspects := make([]PointAspect, len(aspects))
	copy(ownedAspects, aspects)

	chart := &CompositeChart{
		planets: owned,
		angles:  valueobjects.NewChartAngles(ascendant, midheaven),
		houses:  valueobjects.WholeSignCusps(ascendant),
		aspects: ownedAspects,
	}
	chart.angularity = chart.gradeAngularity()

	return chart, nil
}

// ReconstructCompositeChart rebuilds a composite chart from storage without
// re-deriving houses or angularity (stored values are kept verbatim so
// round-tripping is loss-free).
func ReconstructCompositeChart(
	planets map[valueobjects.Planet]valueobjects.PlanetPosition,
	angles valueobjects.ChartAngles,
	houses valueobjects.HouseCusps,
	aspects []PointAspect,
	angularity []PlanetAngularity,
) (*CompositeChart, error) {
	for planet := range planets {
		if !planet.IsValid() {
			return nil, pkgerrors.ErrUnknownPlanet.Clone().
				WithDetail("planet", planet.String())
		}
	}

	owned := make(map[valueobjects.Planet]valueobjects.PlanetPosition, len(planets))
	for planet, position := range planets {
		owned[planet] = position
	}

	ownedAspects := make([]PointAspect, len(aspects))
	copy(ownedAspects, aspects)

	ownedAngularity := make([]PlanetAngularity, len(angularity))
	copy(ownedAngularity, angularity)

	return &CompositeChart{
		planets:    owned,
		angles:     angles,
		houses:     houses,
		aspects:    ownedAspects,
		angularity: ownedAngularity,
	}, nil
}

// gradeAngularity measures every planet against the ASC and MC cusps (house
// array positions 0 and 9) and grades the nearer distance.
func (c *CompositeChart) gradeAngularity() []PlanetAngularity {
	ascCusp, err := c.houses.Cusp(1)
	if err != nil {
		return nil
	}
	mcCusp, err := c.houses.Cusp(10)
	if err != nil {
		return nil
	}

	grades := make([]PlanetAngularity, 0, len(c.planets))
	for _, planet := range allPlanetsCanonical() {
		position, ok := c.planets[planet]
		if !ok {
			continue
		}
		toASC := astro.AngularSeparation(position.Longitude(), ascCusp)
		toMC := astro.AngularSeparation(position.Longitude(), mcCusp)
		distance := toASC
		if toMC < distance {
			distance = toMC
		}
		grades = append(grades, PlanetAngularity{
			Planet:   planet,
			Distance: distance,
			Class:    ClassifyAngularity(distance),
		})
	}
	return grades
}

// allPlanetsCanonical is the core bodies followed by the lunar nodes.
func allPlanetsCanonical() []valueobjects.Planet {
	return append(valueobjects.CorePlanets(), valueobjects.Rahu, valueobjects.Ketu)
}

// Planets returns a copy of the composite positions map.
func (c *CompositeChart) Planets() map[valueobjects.Planet]valueobjects.PlanetPosition {
	planets := make(map[valueobjects.Planet]valueobjects.PlanetPosition, len(c.planets))
	for planet, position := range c.planets {
		planets[planet] = position
	}
	return planets
}

// PlanetsCanonical returns the composite planets in canonical order.
func (c *CompositeChart) PlanetsCanonical() []valueobjects.Planet {
	ordered := make([]valueobjects.Planet, 0, len(c.planets))
	for _, planet := range allPlanetsCanonical() {
		if _, ok := c.planets[planet]; ok {
			ordered = append(ordered, planet)
		}
	}
	return ordered
}

// Position returns the position of one composite planet.
func (c *CompositeChart) Position(planet valueobjects.Planet) (valueobjects.PlanetPosition, bool) {
	position, ok := c.planets[planet]
	return position, ok
}

// PointPosition resolves any chart point, planet or angle, to its position.
func (c *CompositeChart) PointPosition(point valueobjects.ChartPoint) (valueobjects.PlanetPosition, bool) {
	if planet, ok := point.Planet(); ok {
		return c.Position(planet)
	}
	if angle, ok := point.Angle(); ok {
		return c.angles.PointFor(angle)
	}
	return valueobjects.PlanetPosition{}, false
}

// PlanetCount returns how many midpointed bodies the chart carries.
func (c *CompositeChart) PlanetCount() int {
	return len(c.planets)
}

// Angles returns the composite angle set. DSC/IC derive as opposite points.
func (c *CompositeChart) Angles() valueobjects.ChartAngles {
	return c.angles
}

// Houses returns the whole-sign cusps derived from the composite ASC.
func (c *CompositeChart) Houses() valueobjects.HouseCusps {
	return c.houses
}

// Aspects returns a copy of the internal aspect list.
func (c *CompositeChart) Aspects() []PointAspect {
	aspects := make([]PointAspect, len(c.aspects))
	copy(aspects, c.aspects)
	return aspects
}

// Angularity returns a copy of the per-planet angularity grades.
func (c *CompositeChart) Angularity() []PlanetAngularity {
	grades := make([]PlanetAngularity, len(c.angularity))
	copy(grades, c.angularity)
	return grades
}

// AngularityFor returns the grade for one planet.
func (c *CompositeChart) AngularityFor(planet valueobjects.Planet) (PlanetAngularity, bool) {
	for _, grade := range c.angularity {
		if grade.Planet == planet {
			return grade, true
		}
	}
	return PlanetAngularity{}, false
}

// AngularCount returns how many planets grade angular or strong.
func (c *CompositeChart) AngularCount() int {
	count := 0
	for _, grade := range c.angularity {
		if grade.Class == AngularityAngular || grade.Class == AngularityStrong {
			count++
		}
	}
	return count
}

type compositeChartJSON struct {
	Planets    map[valueobjects.Planet]valueobjects.PlanetPosition `json:"planets"`
	Angles     valueobjects.ChartAngles                            `json:"angles"`
	Houses     valueobjects.HouseCusps                             `json:"houses"`
	Aspects    []PointAspect                                       `json:"aspects"`
	Angularity []PlanetAngularity                                  `json:"angularity"`
}

// MarshalJSON implements json.Marshaler
func (c *CompositeChart) MarshalJSON() ([]byte, error) {
	return json.Marshal(compositeChartJSON{
		Planets:    c.Planets(),
		Angles:     c.angles,
		Houses:     c.houses,
		Aspects:    c.Aspects(),
		Angularity: c.Angularity(),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (c *CompositeChart) UnmarshalJSON(data []byte) error {
	var raw compositeChartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	chart, err := ReconstructCompositeChart(raw.Planets, raw.Angles, raw.Houses, raw.Aspects, raw.Angularity)
	if err != nil {
		return err
	}

	*c = *chart
	return nil
}
