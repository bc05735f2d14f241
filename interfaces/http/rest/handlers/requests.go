package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"astraea-backend/application/ports"
	"astraea-backend/domain/core/entities"
	"astraea-backend/pkg/common"
	apperrors "astraea-backend/pkg/errors"
)

// maxRequestBytes caps request bodies. A two-chart payload with full house
// systems stays well under 64 KiB; anything near the cap is abuse.
const maxRequestBytes = 1 << 20

// chartPairRequest carries the two charts an analysis operates on. Callers
// either send fully computed placements (chart1/chart2) or raw birth data
// (birthData1/birthData2) for the ephemeris to resolve. Mixing is allowed per
// slot; explicit placements win.
type chartPairRequest struct {
	Chart1      *entities.BirthChart `json:"chart1,omitempty"`
	Chart2      *entities.BirthChart `json:"chart2,omitempty"`
	BirthData1  *ports.BirthData     `json:"birthData1,omitempty"`
	BirthData2  *ports.BirthData     `json:"birthData2,omitempty"`
	Chart1Label string               `json:"chart1Label,omitempty" validate:"omitempty,max=100"`
	Chart2Label string               `json:"chart2Label,omitempty" validate:"omitempty,max=100"`
}

type singleChartRequest struct {
	Chart     *entities.BirthChart `json:"chart,omitempty"`
	BirthData *ports.BirthData     `json:"birthData,omitempty"`
}

// chartResolver turns birth data into a computed chart. Satisfied by
// services.AnalysisService.
type chartResolver interface {
	ResolveChart(ctx context.Context, data ports.BirthData) (*entities.BirthChart, error)
}

// decodeRequest reads a JSON body into v, translating decode failures into
// typed validation errors. Chart payloads validate themselves during
// unmarshalling, so their errors already arrive typed.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := common.DecodeJSONBody(w, r, v, maxRequestBytes); err != nil {
		if appErr := apperrors.GetAppError(err); appErr != nil {
			return appErr
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.NewValidationError(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		}
		return apperrors.NewValidationError("malformed request body: " + err.Error())
	}
	return nil
}

func resolveChart(ctx context.Context, resolver chartResolver, chart *entities.BirthChart, data *ports.BirthData, field string) (*entities.BirthChart, error) {
	if chart != nil {
		return chart, nil
	}
	if data == nil {
		return nil, apperrors.NewFieldValidationError(field, "chart placements or birth data required")
	}
	return resolver.ResolveChart(ctx, *data)
}

func resolvePair(ctx context.Context, resolver chartResolver, req chartPairRequest) (*entities.BirthChart, *entities.BirthChart, error) {
	chart1, err := resolveChart(ctx, resolver, req.Chart1, req.BirthData1, "chart1")
	if err != nil {
		return nil, nil, err
	}
	chart2, err := resolveChart(ctx, resolver, req.Chart2, req.BirthData2, "chart2")
	if err != nil {
		return nil, nil, err
	}
	return chart1, chart2, nil
}
