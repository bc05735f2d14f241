package entities

import (
	"encoding/json"

	"astraea-backend/domain/core/valueobjects"
	pkgerrors "astraea-backend/pkg/errors"
)

// BirthChart is the immutable input entity for all relationship computations.
// It never changes after construction; every accessor returns a copy so
// callers cannot reach back into the chart's state.
//
// Ephemeris computation is out of scope: positions arrive already calculated,
// either from the request body or from the ephemeris provider.
type BirthChart struct {
	// Private fields ensure encapsulation
	planets map[valueobjects.Planet]valueobjects.PlanetPosition
	houses  valueobjects.HouseCusps
	angles  valueobjects.ChartAngles
}

// NewBirthChart creates a birth chart with full validation.
// Planets must be non-empty with known keys; angles must carry ASC and MC.
// House cusps are optional; charts without them still support aspects, and
// house placement degrades to house 1 downstream.
func NewBirthChart(
	planets map[valueobjects.Planet]valueobjects.PlanetPosition,
	houses valueobjects.HouseCusps,
	angles valueobjects.ChartAngles,
) (*BirthChart, error) {
	if len(planets) == 0 {
		return nil, pkgerrors.ErrChartPlanetsRequired
	}

	for planet := range planets {
		if !planet.IsValid() {
			return nil, pkgerrors.ErrUnknownPlanet.Clone().
				WithDetail("planet", planet.String())
		}
	}

	if angles.IsZero() {
		return nil, pkgerrors.ErrChartAnglesRequired
	}

	// Copy the map so the chart owns its state
	owned := make(map[valueobjects.Planet]valueobjects.PlanetPosition, len(planets))
	for planet, position := range planets {
		owned[planet] = position
	}

	return &BirthChart{
		planets: owned,
		houses:  houses,
		angles:  angles,
	}, nil
}

// ReconstructBirthChart rebuilds a chart from storage or transport data.
// The same validation applies: persisted data is not trusted blindly.
func ReconstructBirthChart(
	planets map[valueobjects.Planet]valueobjects.PlanetPosition,
	houses valueobjects.HouseCusps,
	angles valueobjects.ChartAngles,
) (*BirthChart, error) {
	return NewBirthChart(planets, houses, angles)
}

// Planets returns a copy of the planet position map.
func (c *BirthChart) Planets() map[valueobjects.Planet]valueobjects.PlanetPosition {
	planets := make(map[valueobjects.Planet]valueobjects.PlanetPosition, len(c.planets))
	for planet, position := range c.planets {
		planets[planet] = position
	}
	return planets
}

// Position returns the position of one planet and whether it is present.
func (c *BirthChart) Position(planet valueobjects.Planet) (valueobjects.PlanetPosition, bool) {
	position, ok := c.planets[planet]
	return position, ok
}

// HasPlanet reports whether the chart carries a position for the planet.
func (c *BirthChart) HasPlanet(planet valueobjects.Planet) bool {
	_, ok := c.planets[planet]
	return ok
}

// PlanetCount returns how many bodies the chart carries.
func (c *BirthChart) PlanetCount() int {
	return len(c.planets)
}

// Houses returns the chart's house cusps. Zero when the chart was built
// without a house system.
func (c *BirthChart) Houses() valueobjects.HouseCusps {
	return c.houses
}

// HasHouses reports whether the chart carries a usable house system.
func (c *BirthChart) HasHouses() bool {
	return !c.houses.IsZero()
}

// Angles returns the chart's angle set (ASC/MC always present).
func (c *BirthChart) Angles() valueobjects.ChartAngles {
	return c.angles
}

// HasVertex reports whether the chart carries a Vertex point.
func (c *BirthChart) HasVertex() bool {
	_, ok := c.angles.Vertex()
	return ok
}

// HasLunarNodes reports whether both Rahu and Ketu are present.
func (c *BirthChart) HasLunarNodes() bool {
	return c.HasPlanet(valueobjects.Rahu) && c.HasPlanet(valueobjects.Ketu)
}

// PointPosition resolves any chart point, planet or angle, to its position.
func (c *BirthChart) PointPosition(point valueobjects.ChartPoint) (valueobjects.PlanetPosition, bool) {
	if planet, ok := point.Planet(); ok {
		return c.Position(planet)
	}
	if angle, ok := point.Angle(); ok {
		return c.angles.PointFor(angle)
	}
	return valueobjects.PlanetPosition{}, false
}

type birthChartJSON struct {
	Planets map[valueobjects.Planet]valueobjects.PlanetPosition `json:"planets"`
	Houses  *valueobjects.HouseCusps                            `json:"houses,omitempty"`
	Angles  valueobjects.ChartAngles                            `json:"angles"`
}

// MarshalJSON implements json.Marshaler
func (c *BirthChart) MarshalJSON() ([]byte, error) {
	doc := birthChartJSON{
		Planets: c.Planets(),
		Angles:  c.angles,
	}
	if !c.houses.IsZero() {
		houses := c.houses
		doc.Houses = &houses
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler; the decoded chart is re-validated.
func (c *BirthChart) UnmarshalJSON(data []byte) error {
	var raw birthChartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var houses valueobjects.HouseCusps
	if raw.Houses != nil {
		houses = *raw.Houses
	}

	chart, err := ReconstructBirthChart(raw.Planets, houses, raw.Angles)
	if err != nil {
		return err
	}

	*c = *chart
	return nil
}
