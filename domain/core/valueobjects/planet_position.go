package valueobjects

import (
	"encoding/json"
	"math"

	"astraea-backend/domain/astro"
	pkgerrors "astraea-backend/pkg/errors"
)

// PlanetPosition is a value object for a body's place on the ecliptic:
// longitude normalized to [0, 360) and latitude within [-90, 90].
type PlanetPosition struct {
	longitude float64
	latitude  float64
}

// NewPlanetPosition creates a position with validation. The longitude is
// normalized; the latitude must already be in range.
func NewPlanetPosition(longitude, latitude float64) (PlanetPosition, error) {
	if !astro.IsValidDegrees(longitude) {
		return PlanetPosition{}, pkgerrors.ErrInvalidLongitude.Clone().WithDetail("longitude", longitude)
	}
	if math.IsNaN(latitude) || math.IsInf(latitude, 0) || latitude < -90 || latitude > 90 {
		return PlanetPosition{}, pkgerrors.ErrInvalidLatitude.Clone().WithDetail("latitude", latitude)
	}
	return PlanetPosition{
		longitude: astro.NormalizeDegrees(longitude),
		latitude:  latitude,
	}, nil
}

// NewEclipticLongitude creates a position on the ecliptic itself (latitude 0).
// Used for angles and house cusps, which carry no latitude of their own.
func NewEclipticLongitude(longitude float64) (PlanetPosition, error) {
	return NewPlanetPosition(longitude, 0)
}

// Longitude returns the ecliptic longitude in [0, 360).
func (p PlanetPosition) Longitude() float64 {
	return p.longitude
}

// Latitude returns the ecliptic latitude in [-90, 90].
func (p PlanetPosition) Latitude() float64 {
	return p.latitude
}

// Sign returns the zodiac sign containing the position.
func (p PlanetPosition) Sign() ZodiacSign {
	return SignForLongitude(p.longitude)
}

// DegreeInSign returns the position's offset within its sign, [0, 30).
func (p PlanetPosition) DegreeInSign() float64 {
	return math.Mod(p.longitude, 30)
}

// SeparationFrom returns the shortest arc to another position's longitude.
func (p PlanetPosition) SeparationFrom(other PlanetPosition) float64 {
	return astro.AngularSeparation(p.longitude, other.longitude)
}

// Equals checks if two positions are equal within floating-point tolerance.
func (p PlanetPosition) Equals(other PlanetPosition) bool {
	const epsilon = 1e-9
	return math.Abs(p.longitude-other.longitude) < epsilon &&
		math.Abs(p.latitude-other.latitude) < epsilon
}

type planetPositionJSON struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// MarshalJSON implements json.Marshaler
func (p PlanetPosition) MarshalJSON() ([]byte, error) {
	return json.Marshal(planetPositionJSON{Longitude: p.longitude, Latitude: p.latitude})
}

// UnmarshalJSON implements json.Unmarshaler; the decoded value is re-validated.
func (p *PlanetPosition) UnmarshalJSON(data []byte) error {
	var raw planetPositionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pos, err := NewPlanetPosition(raw.Longitude, raw.Latitude)
	if err != nil {
		return err
	}
	*p = pos
	return nil
}
