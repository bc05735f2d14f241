package valueobjects

import (
	"errors"
	"fmt"
)

// ChartPoint identifies a single body within one chart: either a planet or
// an angle. Aspect results use it so a contact can name any pairing, e.g.
// sun-moon or venus-asc.
type ChartPoint struct {
	planet Planet
	angle  AnglePoint
}

// PlanetPoint wraps a planet as a chart point.
func PlanetPoint(p Planet) ChartPoint {
	return ChartPoint{planet: p}
}

// AnglePointRef wraps a chart angle as a chart point.
func AnglePointRef(a AnglePoint) ChartPoint {
	return ChartPoint{angle: a}
}

// NewChartPointFromString parses a point name, trying planets first.
func NewChartPointFromString(name string) (ChartPoint, error) {
	if p, err := NewPlanetFromString(name); err == nil {
		return PlanetPoint(p), nil
	}
	a := AnglePoint(name)
	if a.IsValid() {
		return AnglePointRef(a), nil
	}
	return ChartPoint{}, fmt.Errorf("unknown chart point: %s", name)
}

// IsPlanet reports whether the point is a planet.
func (p ChartPoint) IsPlanet() bool {
	return p.planet != ""
}

// IsAngle reports whether the point is a chart angle.
func (p ChartPoint) IsAngle() bool {
	return p.angle != ""
}

// Planet returns the wrapped planet when the point is one.
func (p ChartPoint) Planet() (Planet, bool) {
	return p.planet, p.planet != ""
}

// Angle returns the wrapped angle when the point is one.
func (p ChartPoint) Angle() (AnglePoint, bool) {
	return p.angle, p.angle != ""
}

// IsZero checks if the ChartPoint is the zero value.
func (p ChartPoint) IsZero() bool {
	return p.planet == "" && p.angle == ""
}

// String returns the point's wire name, e.g. "sun" or "asc".
func (p ChartPoint) String() string {
	if p.planet != "" {
		return p.planet.String()
	}
	return p.angle.String()
}

// DisplayName returns the point's human readable name.
func (p ChartPoint) DisplayName() string {
	if p.planet != "" {
		return p.planet.DisplayName()
	}
	return p.angle.DisplayName()
}

// MarshalJSON implements json.Marshaler
func (p ChartPoint) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (p *ChartPoint) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("ChartPoint must be a string")
	}
	parsed, err := NewChartPointFromString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
