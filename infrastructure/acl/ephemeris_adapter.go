// Package acl holds anti-corruption adapters over external collaborators.
// External wire formats stop here; the domain only ever sees its own types.
package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"astraea-backend/application/ports"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/infrastructure/config"
	pkgerrors "astraea-backend/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// chartPath is the ephemeris collaborator's chart computation endpoint.
const chartPath = "/v1/chart"

// EphemerisAdapter implements ports.EphemerisProvider against the external
// ephemeris HTTP service, behind a circuit breaker so a slow or failing
// collaborator degrades requests that need it instead of piling up.
type EphemerisAdapter struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

var _ ports.EphemerisProvider = (*EphemerisAdapter)(nil)

// NewEphemerisAdapter creates the adapter from the ephemeris configuration.
func NewEphemerisAdapter(cfg config.EphemerisConfig, logger *zap.Logger) *EphemerisAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxFailures := uint32(cfg.MaxFailures)
	if maxFailures == 0 {
		maxFailures = 5
	}
	openFor := time.Duration(cfg.OpenSeconds) * time.Second
	if openFor <= 0 {
		openFor = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ephemeris",
		MaxRequests: 3, // probes allowed while half-open
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &EphemerisAdapter{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		breaker:    breaker,
		logger:     logger,
	}
}

// External wire format. Field names belong to the collaborator's API, not
// to this codebase.

type chartRequest struct {
	DateTime  string  `json:"dateTime"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type chartResponse struct {
	Positions []bodyPosition `json:"positions"`
	Houses    *houseSystem   `json:"houses,omitempty"`
	Angles    chartAngles    `json:"angles"`
}

type bodyPosition struct {
	Body      string  `json:"body"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

type houseSystem struct {
	System string    `json:"system"`
	Cusps  []float64 `json:"cusps"`
}

type chartAngles struct {
	Ascendant float64  `json:"ascendant"`
	Midheaven float64  `json:"midheaven"`
	Vertex    *float64 `json:"vertex,omitempty"`
}

// ChartAt computes a birth chart for the given birth data.
func (a *EphemerisAdapter) ChartAt(ctx context.Context, data ports.BirthData) (*entities.BirthChart, error) {
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.fetchChart(ctx, data)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, pkgerrors.NewUnavailableError("ephemeris")
		}
		return nil, err
	}

	return result.(*entities.BirthChart), nil
}

func (a *EphemerisAdapter) fetchChart(ctx context.Context, data ports.BirthData) (*entities.BirthChart, error) {
	payload, err := json.Marshal(chartRequest{
		DateTime:  data.DateTime.UTC().Format(time.RFC3339),
		Latitude:  data.Latitude,
		Longitude: data.Longitude,
	})
	if err != nil {
		return nil, pkgerrors.NewInternalError("encode ephemeris request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+chartPath, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.NewInternalError("build ephemeris request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.NewNetworkError("ephemeris request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		a.logger.Debug("ephemeris rejected birth data",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, pkgerrors.NewValidationError("ephemeris rejected the birth data")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.NewExternalError("ephemeris",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var dto chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, pkgerrors.NewExternalError("ephemeris", fmt.Errorf("decode response: %w", err))
	}

	return a.translate(dto)
}

// translate validates external data and maps it into domain types. Unknown
// bodies are skipped: the collaborator also serves asteroid positions this
// system does not model.
func (a *EphemerisAdapter) translate(dto chartResponse) (*entities.BirthChart, error) {
	positions := make(map[valueobjects.Planet]valueobjects.PlanetPosition, len(dto.Positions))
	for _, raw := range dto.Positions {
		planet, err := valueobjects.NewPlanetFromString(raw.Body)
		if err != nil {
			a.logger.Debug("skipping unmodeled body", zap.String("body", raw.Body))
			continue
		}

		position, err := valueobjects.NewPlanetPosition(raw.Longitude, raw.Latitude)
		if err != nil {
			return nil, pkgerrors.NewExternalError("ephemeris",
				fmt.Errorf("invalid position for %s: %w", raw.Body, err))
		}
		positions[planet] = position
	}

	angles, err := valueobjects.NewChartAnglesFromLongitudes(dto.Angles.Ascendant, dto.Angles.Midheaven)
	if err != nil {
		return nil, pkgerrors.NewExternalError("ephemeris", fmt.Errorf("invalid angles: %w", err))
	}
	if dto.Angles.Vertex != nil {
		vertex, err := valueobjects.NewEclipticLongitude(*dto.Angles.Vertex)
		if err != nil {
			return nil, pkgerrors.NewExternalError("ephemeris", fmt.Errorf("invalid vertex: %w", err))
		}
		angles = angles.WithVertex(vertex)
	}

	var houses valueobjects.HouseCusps
	if dto.Houses != nil && len(dto.Houses.Cusps) > 0 {
		houses, err = valueobjects.NewHouseCusps(dto.Houses.Cusps)
		if err != nil {
			return nil, pkgerrors.NewExternalError("ephemeris", fmt.Errorf("invalid house cusps: %w", err))
		}
	}

	chart, err := entities.NewBirthChart(positions, houses, angles)
	if err != nil {
		return nil, pkgerrors.NewExternalError("ephemeris", fmt.Errorf("chart rejected: %w", err))
	}

	return chart, nil
}
