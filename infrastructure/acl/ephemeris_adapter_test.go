package acl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"astraea-backend/application/ports"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/infrastructure/config"
	pkgerrors "astraea-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBirthData() ports.BirthData {
	return ports.BirthData{
		DateTime:  time.Date(1990, 6, 15, 8, 30, 0, 0, time.UTC),
		Latitude:  51.5074,
		Longitude: -0.1278,
	}
}

func newTestAdapter(t *testing.T, serverURL string, maxFailures int) *EphemerisAdapter {
	t.Helper()
	return NewEphemerisAdapter(config.EphemerisConfig{
		Enabled:     true,
		BaseURL:     serverURL,
		Timeout:     2000,
		MaxFailures: maxFailures,
		OpenSeconds: 30,
	}, zap.NewNop())
}

func validChartResponse() chartResponse {
	vertex := 123.4
	return chartResponse{
		Positions: []bodyPosition{
			{Body: "Sun", Longitude: 84.2, Latitude: 0.0},
			{Body: "Moon", Longitude: 210.7, Latitude: -2.1},
			{Body: "Mercury", Longitude: 95.0, Latitude: 1.4},
			{Body: "Ceres", Longitude: 12.0, Latitude: 0.3}, // not modeled, skipped
		},
		Houses: &houseSystem{
			System: "placidus",
			Cusps:  []float64{100, 130, 160, 190, 220, 250, 280, 310, 340, 10, 40, 70},
		},
		Angles: chartAngles{Ascendant: 100.0, Midheaven: 10.0, Vertex: &vertex},
	}
}

func TestChartAt_TranslatesExternalChart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chart", r.URL.Path)

		var req chartRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "1990-06-15T08:30:00Z", req.DateTime)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(validChartResponse())
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server.URL, 5)

	chart, err := adapter.ChartAt(context.Background(), testBirthData())
	require.NoError(t, err)

	// Ceres drops out; the three known bodies remain.
	assert.Equal(t, 3, chart.PlanetCount())
	sun, ok := chart.Position(valueobjects.Sun)
	require.True(t, ok)
	assert.InDelta(t, 84.2, sun.Longitude(), 1e-9)

	assert.True(t, chart.HasHouses())
	assert.True(t, chart.HasVertex())
	assert.InDelta(t, 100.0, chart.Angles().Ascendant().Longitude(), 1e-9)
}

func TestChartAt_NoHousesStillBuilds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := validChartResponse()
		resp.Houses = nil
		resp.Angles.Vertex = nil
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server.URL, 5)

	chart, err := adapter.ChartAt(context.Background(), testBirthData())
	require.NoError(t, err)
	assert.False(t, chart.HasHouses())
	assert.False(t, chart.HasVertex())
}

func TestChartAt_BadBirthDataIsValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"date out of ephemeris range"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server.URL, 5)

	_, err := adapter.ChartAt(context.Background(), testBirthData())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestChartAt_InvalidPositionRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := validChartResponse()
		resp.Positions[0].Longitude = 400 // out of range
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server.URL, 5)

	_, err := adapter.ChartAt(context.Background(), testBirthData())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeExternal))
}

func TestChartAt_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server.URL, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := adapter.ChartAt(ctx, testBirthData())
		require.Error(t, err)
		assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeExternal))
	}

	// Breaker is open now; the server must not be reached again.
	_, err := adapter.ChartAt(ctx, testBirthData())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
	assert.Equal(t, int32(2), hits.Load())
}
