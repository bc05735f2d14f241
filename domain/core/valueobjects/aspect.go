package valueobjects

import (
	"encoding/json"
	"fmt"

	"astraea-backend/domain/astro"
	pkgerrors "astraea-backend/pkg/errors"
)

// AspectKind identifies one of the major angular relationships between two
// chart points. Kinds are ordered by exact angle so a matcher can walk them
// ascending and stop at the first hit.
type AspectKind string

const (
	Conjunction AspectKind = "conjunction"
	Sextile     AspectKind = "sextile"
	Square      AspectKind = "square"
	Trine       AspectKind = "trine"
	Quincunx    AspectKind = "quincunx"
	Opposition  AspectKind = "opposition"
)

// aspectKindsByAngle lists every recognized kind in ascending exact angle.
var aspectKindsByAngle = []AspectKind{
	Conjunction,
	Sextile,
	Square,
	Trine,
	Quincunx,
	Opposition,
}

var aspectExactAngles = map[AspectKind]float64{
	Conjunction: 0,
	Sextile:     60,
	Square:      90,
	Trine:       120,
	Quincunx:    150,
	Opposition:  180,
}

var aspectMaxOrbs = map[AspectKind]float64{
	Conjunction: 8,
	Sextile:     6,
	Square:      8,
	Trine:       8,
	Quincunx:    3,
	Opposition:  8,
}

// AspectKindsByAngle returns every recognized aspect kind in ascending order
// of exact angle.
func AspectKindsByAngle() []AspectKind {
	kinds := make([]AspectKind, len(aspectKindsByAngle))
	copy(kinds, aspectKindsByAngle)
	return kinds
}

// NewAspectKindFromString parses a case-sensitive aspect kind name.
func NewAspectKindFromString(name string) (AspectKind, error) {
	kind := AspectKind(name)
	if !kind.IsValid() {
		return "", pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"UNKNOWN_ASPECT",
			fmt.Sprintf("unknown aspect kind: %s", name),
		)
	}
	return kind, nil
}

// IsValid reports whether the kind is one of the recognized aspects.
func (k AspectKind) IsValid() bool {
	_, ok := aspectExactAngles[k]
	return ok
}

// ExactAngle returns the separation in degrees at which the aspect is exact.
func (k AspectKind) ExactAngle() float64 {
	return aspectExactAngles[k]
}

// MaxOrb returns the widest deviation from exact that still counts as this
// aspect.
func (k AspectKind) MaxOrb() float64 {
	return aspectMaxOrbs[k]
}

// IsHarmonious reports whether the aspect is traditionally read as flowing
// rather than frictional. Conjunctions are counted as harmonious here; the
// scoring layer weighs them separately.
func (k AspectKind) IsHarmonious() bool {
	switch k {
	case Conjunction, Trine, Sextile:
		return true
	default:
		return false
	}
}

// IsChallenging reports whether the aspect is traditionally read as
// frictional.
func (k AspectKind) IsChallenging() bool {
	switch k {
	case Square, Opposition, Quincunx:
		return true
	default:
		return false
	}
}

// String returns the lowercase kind name.
func (k AspectKind) String() string {
	return string(k)
}

// Aspect is a value object capturing a matched angular relationship between
// two chart points: the kind, the raw separation, how far it deviates from
// exact, and whether the faster body is closing toward exactness.
type Aspect struct {
	kind     AspectKind
	angle    float64
	orb      float64
	applying bool
}

// NewAspect creates an Aspect, validating that the orb falls within the
// kind's allowed band.
func NewAspect(kind AspectKind, angle float64, orb float64, applying bool) (Aspect, error) {
	if !kind.IsValid() {
		return Aspect{}, pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"UNKNOWN_ASPECT",
			fmt.Sprintf("unknown aspect kind: %s", kind),
		)
	}
	if !astro.IsValidDegrees(angle) || angle < 0 || angle > 180 {
		return Aspect{}, pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"INVALID_ASPECT_ANGLE",
			fmt.Sprintf("aspect angle must be within [0, 180], got %.4f", angle),
		)
	}
	if orb < 0 || orb > kind.MaxOrb() {
		return Aspect{}, pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"INVALID_ASPECT_ORB",
			fmt.Sprintf("orb %.4f exceeds maximum %.1f for %s", orb, kind.MaxOrb(), kind),
		)
	}
	return Aspect{kind: kind, angle: angle, orb: orb, applying: applying}, nil
}

// Kind returns the aspect kind.
func (a Aspect) Kind() AspectKind {
	return a.kind
}

// Angle returns the raw angular separation in degrees.
func (a Aspect) Angle() float64 {
	return a.angle
}

// Orb returns the deviation from the exact angle in degrees.
func (a Aspect) Orb() float64 {
	return a.orb
}

// Applying reports whether the aspect is tightening toward exact.
func (a Aspect) Applying() bool {
	return a.applying
}

// IsExactish reports whether the aspect sits within the tight-orb band used
// to flag standout contacts.
func (a Aspect) IsExactish() bool {
	return a.orb < 2
}

// IsZero checks if the Aspect is the zero value.
func (a Aspect) IsZero() bool {
	return a.kind == ""
}

type aspectJSON struct {
	Kind     AspectKind `json:"kind"`
	Angle    float64    `json:"angle"`
	Orb      float64    `json:"orb"`
	Applying bool       `json:"applying"`
}

// MarshalJSON implements json.Marshaler
func (a Aspect) MarshalJSON() ([]byte, error) {
	return json.Marshal(aspectJSON{
		Kind:     a.kind,
		Angle:    a.angle,
		Orb:      a.orb,
		Applying: a.applying,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Aspect) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw aspectJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewAspect(raw.Kind, raw.Angle, raw.Orb, raw.Applying)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
