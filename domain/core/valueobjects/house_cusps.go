package valueobjects

import (
	"encoding/json"
	"fmt"

	"astraea-backend/domain/astro"
	pkgerrors "astraea-backend/pkg/errors"
)

// HouseCount is the number of houses in every supported house system.
const HouseCount = 12

// HouseCusps is a value object for the twelve ordered house-cusp longitudes.
// Cusp i marks where house i+1 begins.
type HouseCusps struct {
	cusps []float64
}

// NewHouseCusps creates a cusp set, validating count and each longitude.
func NewHouseCusps(cusps []float64) (HouseCusps, error) {
	if len(cusps) != HouseCount {
		return HouseCusps{}, pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"INVALID_HOUSE_CUSPS",
			fmt.Sprintf("house cusps require exactly %d entries, got %d", HouseCount, len(cusps)),
		).WithDetail("count", len(cusps))
	}
	normalized := make([]float64, HouseCount)
	for i, cusp := range cusps {
		if !astro.IsValidDegrees(cusp) {
			return HouseCusps{}, pkgerrors.ErrInvalidLongitude.Clone().
				WithDetail("house", i+1).
				WithDetail("longitude", cusp)
		}
		normalized[i] = astro.NormalizeDegrees(cusp)
	}
	return HouseCusps{cusps: normalized}, nil
}

// WholeSignCusps derives cusps from an ascendant using the whole-sign system:
// house 1 starts at the first degree of the ascendant's sign and each
// following house at 30-degree steps.
func WholeSignCusps(ascendant PlanetPosition) HouseCusps {
	start := ascendant.Sign().CuspLongitude()
	cusps := make([]float64, HouseCount)
	for i := range cusps {
		cusps[i] = astro.NormalizeDegrees(start + float64(i)*30)
	}
	return HouseCusps{cusps: cusps}
}

// IsZero reports whether the cusp set is absent.
func (h HouseCusps) IsZero() bool {
	return len(h.cusps) == 0
}

// Cusps returns a copy of the twelve cusp longitudes.
func (h HouseCusps) Cusps() []float64 {
	out := make([]float64, len(h.cusps))
	copy(out, h.cusps)
	return out
}

// Cusp returns the longitude where the given house (1-12) begins.
func (h HouseCusps) Cusp(house int) (float64, error) {
	if h.IsZero() || house < 1 || house > HouseCount {
		return 0, pkgerrors.NewDomainError(
			pkgerrors.DomainValidationError,
			"INVALID_HOUSE_NUMBER",
			fmt.Sprintf("house number must be 1-%d", HouseCount),
		).WithDetail("house", house)
	}
	return h.cusps[house-1], nil
}

// Equals checks if two cusp sets are equal.
func (h HouseCusps) Equals(other HouseCusps) bool {
	if len(h.cusps) != len(other.cusps) {
		return false
	}
	for i := range h.cusps {
		if h.cusps[i] != other.cusps[i] {
			return false
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler
func (h HouseCusps) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.cusps)
}

// UnmarshalJSON implements json.Unmarshaler; the decoded set is re-validated.
func (h *HouseCusps) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		h.cusps = nil
		return nil
	}
	cusps, err := NewHouseCusps(raw)
	if err != nil {
		return err
	}
	*h = cusps
	return nil
}
