// Package astro provides the circular arithmetic underneath chart comparison:
// longitude normalization, angular separation, and short-arc midpoints on the
// 360-degree ecliptic circle.
package astro

import "math"

// NormalizeDegrees maps any finite angle onto [0, 360).
func NormalizeDegrees(deg float64) float64 {
	normalized := math.Mod(deg, 360)
	if normalized < 0 {
		normalized += 360
	}
	return normalized
}

// AngularSeparation returns the shortest arc between two ecliptic longitudes.
// The result is symmetric and always within [0, 180].
func AngularSeparation(a, b float64) float64 {
	diff := math.Abs(NormalizeDegrees(a) - NormalizeDegrees(b))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// CircularMidpoint returns the midpoint of the shorter arc between two
// longitudes. Midpoint(350, 10) is 0, not the naive arithmetic 180.
func CircularMidpoint(a, b float64) float64 {
	a = NormalizeDegrees(a)
	b = NormalizeDegrees(b)

	diff := math.Abs(a - b)
	mid := (a + b) / 2
	if diff > 180 {
		// The short arc crosses 0 Aries; flip to the other side.
		mid = NormalizeDegrees(mid + 180)
	}
	return NormalizeDegrees(mid)
}

// OppositePoint returns the longitude directly across the circle.
func OppositePoint(deg float64) float64 {
	return NormalizeDegrees(deg + 180)
}

// IsValidDegrees reports whether a value is a usable angle (finite number).
func IsValidDegrees(deg float64) bool {
	return !math.IsNaN(deg) && !math.IsInf(deg, 0)
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
