package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func equalSpacedCusps(start float64) []float64 {
	cusps := make([]float64, HouseCount)
	for i := range cusps {
		cusps[i] = start + float64(i)*30
	}
	return cusps
}

func TestNewHouseCusps(t *testing.T) {
	tests := []struct {
		name    string
		cusps   []float64
		wantErr bool
	}{
		{name: "twelve equal houses", cusps: equalSpacedCusps(0)},
		{name: "wrapping placidus-like cusps", cusps: []float64{350, 14, 42, 75, 108, 139, 170, 194, 222, 255, 288, 319}},
		{name: "too few cusps", cusps: []float64{0, 30, 60}, wantErr: true},
		{name: "too many cusps", cusps: append(equalSpacedCusps(0), 15), wantErr: true},
		{name: "nil cusps", cusps: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cusps, err := NewHouseCusps(tt.cusps)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, cusps.IsZero())
			assert.Len(t, cusps.Cusps(), HouseCount)
		})
	}
}

func TestWholeSignCusps(t *testing.T) {
	asc, err := NewEclipticLongitude(135.5) // mid Leo
	require.NoError(t, err)

	cusps := WholeSignCusps(asc)
	got := cusps.Cusps()
	require.Len(t, got, HouseCount)

	// First cusp snaps to the start of the ascendant's sign.
	assert.InDelta(t, 120, got[0], 1e-9)
	assert.InDelta(t, 150, got[1], 1e-9)
	// Wraps past 360.
	assert.InDelta(t, 90, got[11], 1e-9)
}

func TestHouseCuspsCuspAccessor(t *testing.T) {
	cusps, err := NewHouseCusps(equalSpacedCusps(10))
	require.NoError(t, err)

	first, err := cusps.Cusp(1)
	require.NoError(t, err)
	assert.InDelta(t, 10, first, 1e-9)

	last, err := cusps.Cusp(12)
	require.NoError(t, err)
	assert.InDelta(t, 340, last, 1e-9)

	_, err = cusps.Cusp(0)
	require.Error(t, err)
	_, err = cusps.Cusp(13)
	require.Error(t, err)
}

func TestHouseCuspsCopySemantics(t *testing.T) {
	cusps, err := NewHouseCusps(equalSpacedCusps(0))
	require.NoError(t, err)

	out := cusps.Cusps()
	out[0] = 999

	fresh, err := cusps.Cusp(1)
	require.NoError(t, err)
	assert.InDelta(t, 0, fresh, 1e-9)
}

func TestHouseCuspsJSONRoundTrip(t *testing.T) {
	cusps, err := NewHouseCusps(equalSpacedCusps(15))
	require.NoError(t, err)

	data, err := json.Marshal(cusps)
	require.NoError(t, err)

	var decoded HouseCusps
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, cusps.Equals(decoded))

	// Empty array decodes to the zero value, not an error.
	var empty HouseCusps
	require.NoError(t, json.Unmarshal([]byte(`[]`), &empty))
	assert.True(t, empty.IsZero())
}
