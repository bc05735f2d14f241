package valueobjects

import (
	"math"

	"astraea-backend/domain/astro"
)

// ZodiacSign is a value object for one of the twelve 30-degree segments of
// the ecliptic, indexed 0 (Aries) through 11 (Pisces).
type ZodiacSign int

const (
	Aries ZodiacSign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

// Element is a sign's classical element.
type Element string

const (
	Fire  Element = "fire"
	Earth Element = "earth"
	Air   Element = "air"
	Water Element = "water"
)

// Modality is a sign's quality.
type Modality string

const (
	Cardinal Modality = "cardinal"
	Fixed    Modality = "fixed"
	Mutable  Modality = "mutable"
)

var signNames = [12]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// SignForLongitude returns the sign containing an ecliptic longitude.
// The longitude is normalized first, so any finite input is acceptable.
func SignForLongitude(longitude float64) ZodiacSign {
	normalized := astro.NormalizeDegrees(longitude)
	return ZodiacSign(int(math.Floor(normalized/30)) % 12)
}

// IsValid reports whether the sign index is within the twelve signs.
func (s ZodiacSign) IsValid() bool {
	return s >= Aries && s <= Pisces
}

// String returns the sign's conventional name.
func (s ZodiacSign) String() string {
	if !s.IsValid() {
		return "Unknown"
	}
	return signNames[s]
}

// Element returns the sign's classical element. Signs cycle
// fire/earth/air/water starting from Aries.
func (s ZodiacSign) Element() Element {
	switch s % 4 {
	case 0:
		return Fire
	case 1:
		return Earth
	case 2:
		return Air
	default:
		return Water
	}
}

// Modality returns the sign's quality. Signs cycle
// cardinal/fixed/mutable starting from Aries.
func (s ZodiacSign) Modality() Modality {
	switch s % 3 {
	case 0:
		return Cardinal
	case 1:
		return Fixed
	default:
		return Mutable
	}
}

// CuspLongitude returns the ecliptic longitude where the sign begins.
func (s ZodiacSign) CuspLongitude() float64 {
	return float64(s) * 30
}
