package valueobjects

import (
	"encoding/json"

	"astraea-backend/domain/astro"
	pkgerrors "astraea-backend/pkg/errors"
)

// ChartAngles is a value object for a chart's angular points. Ascendant and
// Midheaven are required; Descendant, Imum Coeli and Vertex are optional and
// reported through ok-style accessors.
type ChartAngles struct {
	ascendant  PlanetPosition
	midheaven  PlanetPosition
	descendant *PlanetPosition
	imumCoeli  *PlanetPosition
	vertex     *PlanetPosition
}

// NewChartAngles creates the required pair of angles.
func NewChartAngles(ascendant, midheaven PlanetPosition) ChartAngles {
	return ChartAngles{ascendant: ascendant, midheaven: midheaven}
}

// NewChartAnglesFromLongitudes creates angles from raw degrees with validation.
func NewChartAnglesFromLongitudes(ascendant, midheaven float64) (ChartAngles, error) {
	asc, err := NewEclipticLongitude(ascendant)
	if err != nil {
		return ChartAngles{}, pkgerrors.ErrChartAnglesRequired.Clone().WithCause(err).WithDetail("angle", "asc")
	}
	mc, err := NewEclipticLongitude(midheaven)
	if err != nil {
		return ChartAngles{}, pkgerrors.ErrChartAnglesRequired.Clone().WithCause(err).WithDetail("angle", "mc")
	}
	return NewChartAngles(asc, mc), nil
}

// WithDescendant returns a copy carrying an explicit Descendant.
func (a ChartAngles) WithDescendant(dsc PlanetPosition) ChartAngles {
	a.descendant = &dsc
	return a
}

// WithImumCoeli returns a copy carrying an explicit Imum Coeli.
func (a ChartAngles) WithImumCoeli(ic PlanetPosition) ChartAngles {
	a.imumCoeli = &ic
	return a
}

// WithVertex returns a copy carrying a Vertex point.
func (a ChartAngles) WithVertex(vertex PlanetPosition) ChartAngles {
	a.vertex = &vertex
	return a
}

// IsZero checks if the ChartAngles is the zero value. A real chart never
// carries ascendant and midheaven conjunct at 0 Aries, so the zero position
// pair is a safe sentinel.
func (a ChartAngles) IsZero() bool {
	return a.ascendant == PlanetPosition{} && a.midheaven == PlanetPosition{} &&
		a.descendant == nil && a.imumCoeli == nil && a.vertex == nil
}

// Ascendant returns the ASC position.
func (a ChartAngles) Ascendant() PlanetPosition {
	return a.ascendant
}

// Midheaven returns the MC position.
func (a ChartAngles) Midheaven() PlanetPosition {
	return a.midheaven
}

// Descendant returns the DSC. When not explicitly set it is derived as the
// point opposite the Ascendant.
func (a ChartAngles) Descendant() PlanetPosition {
	if a.descendant != nil {
		return *a.descendant
	}
	dsc, _ := NewEclipticLongitude(astro.OppositePoint(a.ascendant.Longitude()))
	return dsc
}

// ImumCoeli returns the IC. When not explicitly set it is derived as the
// point opposite the Midheaven.
func (a ChartAngles) ImumCoeli() PlanetPosition {
	if a.imumCoeli != nil {
		return *a.imumCoeli
	}
	ic, _ := NewEclipticLongitude(astro.OppositePoint(a.midheaven.Longitude()))
	return ic
}

// Vertex returns the vertex point and whether the chart carries one.
func (a ChartAngles) Vertex() (PlanetPosition, bool) {
	if a.vertex == nil {
		return PlanetPosition{}, false
	}
	return *a.vertex, true
}

// PointFor returns the position of a named angle. Vertex reports ok=false
// when absent; the four cardinal angles are always resolvable.
func (a ChartAngles) PointFor(point AnglePoint) (PlanetPosition, bool) {
	switch point {
	case Ascendant:
		return a.ascendant, true
	case Midheaven:
		return a.midheaven, true
	case Descendant:
		return a.Descendant(), true
	case ImumCoeli:
		return a.ImumCoeli(), true
	case Vertex:
		return a.Vertex()
	default:
		return PlanetPosition{}, false
	}
}

type chartAnglesJSON struct {
	Ascendant  PlanetPosition  `json:"ascendant"`
	Midheaven  PlanetPosition  `json:"midheaven"`
	Descendant *PlanetPosition `json:"descendant,omitempty"`
	ImumCoeli  *PlanetPosition `json:"imumCoeli,omitempty"`
	Vertex     *PlanetPosition `json:"vertex,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (a ChartAngles) MarshalJSON() ([]byte, error) {
	return json.Marshal(chartAnglesJSON{
		Ascendant:  a.ascendant,
		Midheaven:  a.midheaven,
		Descendant: a.descendant,
		ImumCoeli:  a.imumCoeli,
		Vertex:     a.vertex,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (a *ChartAngles) UnmarshalJSON(data []byte) error {
	var raw chartAnglesJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.ascendant = raw.Ascendant
	a.midheaven = raw.Midheaven
	a.descendant = raw.Descendant
	a.imumCoeli = raw.ImumCoeli
	a.vertex = raw.Vertex
	return nil
}
