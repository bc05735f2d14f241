package services

import (
	"astraea-backend/domain/astro"
	"astraea-backend/domain/core/valueobjects"
)

// HouseLocator places ecliptic longitudes into a 12-house system.
type HouseLocator struct{}

// NewHouseLocator creates a house locator.
func NewHouseLocator() *HouseLocator {
	return &HouseLocator{}
}

// HouseForLongitude returns the house (1..12) containing a longitude.
//
// Consecutive cusp pairs are tested with wraparound: when cusp N is below
// cusp N+1 the house is the plain interval [cuspN, cuspN+1); when the pair
// straddles 0° Aries the house is [cuspN, 360) ∪ [0, cuspN+1). A malformed
// cusp array places everything in house 1, a documented degraded default,
// never an error.
func (l *HouseLocator) HouseForLongitude(longitude float64, cusps valueobjects.HouseCusps) int {
	values := cusps.Cusps()
	if len(values) != valueobjects.HouseCount {
		return 1
	}

	lon := astro.NormalizeDegrees(longitude)
	for i := 0; i < valueobjects.HouseCount; i++ {
		cusp1 := values[i]
		cusp2 := values[(i+1)%valueobjects.HouseCount]

		if cusp1 < cusp2 {
			if lon >= cusp1 && lon < cusp2 {
				return i + 1
			}
		} else if lon >= cusp1 || lon < cusp2 {
			return i + 1
		}
	}

	return 1
}
