package valueobjects

import (
	"strings"

	pkgerrors "astraea-backend/pkg/errors"
)

// Planet is a value object identifying one of the bodies a chart carries.
// Value objects are immutable and have no identity beyond their value.
type Planet string

const (
	Sun     Planet = "sun"
	Moon    Planet = "moon"
	Mercury Planet = "mercury"
	Venus   Planet = "venus"
	Mars    Planet = "mars"
	Jupiter Planet = "jupiter"
	Saturn  Planet = "saturn"
	Uranus  Planet = "uranus"
	Neptune Planet = "neptune"
	Pluto   Planet = "pluto"

	// Lunar nodes, optional chart data
	Rahu Planet = "rahu"
	Ketu Planet = "ketu"
)

// corePlanets lists the ten primary bodies in traditional descending order.
var corePlanets = []Planet{
	Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto,
}

// CorePlanets returns the ten primary bodies in canonical order.
// The returned slice is a copy; callers may reorder it freely.
func CorePlanets() []Planet {
	out := make([]Planet, len(corePlanets))
	copy(out, corePlanets)
	return out
}

// NewPlanetFromString parses a planet name, case-insensitively.
func NewPlanetFromString(name string) (Planet, error) {
	p := Planet(strings.ToLower(strings.TrimSpace(name)))
	if !p.IsValid() {
		return "", pkgerrors.ErrUnknownPlanet.Clone().WithDetail("planet", name)
	}
	return p, nil
}

// IsValid reports whether the planet is one of the known bodies.
func (p Planet) IsValid() bool {
	switch p {
	case Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto, Rahu, Ketu:
		return true
	}
	return false
}

// IsLunarNode reports whether the body is Rahu or Ketu.
func (p Planet) IsLunarNode() bool {
	return p == Rahu || p == Ketu
}

// String returns the canonical lowercase name.
func (p Planet) String() string {
	return string(p)
}

// DisplayName returns the name with an initial capital for interpretation text.
func (p Planet) DisplayName() string {
	if p == "" {
		return ""
	}
	s := string(p)
	return strings.ToUpper(s[:1]) + s[1:]
}

// AnglePoint identifies one of the chart's angles.
type AnglePoint string

const (
	Ascendant  AnglePoint = "asc"
	Midheaven  AnglePoint = "mc"
	Descendant AnglePoint = "dsc"
	ImumCoeli  AnglePoint = "ic"
	Vertex     AnglePoint = "vertex"
)

// ChartAnglePoints returns the four cardinal angles in canonical order.
func ChartAnglePoints() []AnglePoint {
	return []AnglePoint{Ascendant, Midheaven, Descendant, ImumCoeli}
}

// IsValid reports whether the angle point is one of the known angles.
func (a AnglePoint) IsValid() bool {
	switch a {
	case Ascendant, Midheaven, Descendant, ImumCoeli, Vertex:
		return true
	}
	return false
}

// String returns the canonical lowercase name.
func (a AnglePoint) String() string {
	return string(a)
}

// DisplayName returns the conventional label used in interpretation text.
func (a AnglePoint) DisplayName() string {
	switch a {
	case Ascendant:
		return "Ascendant"
	case Midheaven:
		return "Midheaven"
	case Descendant:
		return "Descendant"
	case ImumCoeli:
		return "Imum Coeli"
	case Vertex:
		return "Vertex"
	default:
		return string(a)
	}
}
