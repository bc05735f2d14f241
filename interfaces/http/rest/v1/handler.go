package v1

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"astraea-backend/application/queries"
	querybus "astraea-backend/application/queries/bus"
	"astraea-backend/domain/core/entities"
	domainservices "astraea-backend/domain/services"
	apperrors "astraea-backend/pkg/errors"
)

// Handler serves the legacy v1 endpoints. The old frontend always sends
// fully computed charts and expects bare result objects back, without the
// v2 response envelope. Nothing here persists.
type Handler struct {
	queryBus  *querybus.QueryBus
	synastry  *domainservices.SynastryService
	composite *domainservices.CompositeService
	logger    *zap.Logger
}

// NewHandler creates the legacy handler.
func NewHandler(
	queryBus *querybus.QueryBus,
	synastry *domainservices.SynastryService,
	composite *domainservices.CompositeService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		queryBus:  queryBus,
		synastry:  synastry,
		composite: composite,
		logger:    logger,
	}
}

type pairRequest struct {
	Chart1 *entities.BirthChart `json:"chart1"`
	Chart2 *entities.BirthChart `json:"chart2"`
}

// Compatibility handles POST /api/v1/compatibility: the full scored preview.
func (h *Handler) Compatibility(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePair(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.PreviewCompatibilityQuery{Chart1: req.Chart1, Chart2: req.Chart2})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Synastry handles POST /api/v1/synastry.
func (h *Handler) Synastry(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePair(w, r)
	if !ok {
		return
	}

	result, err := h.synastry.Generate(req.Chart1, req.Chart2)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Composite handles POST /api/v1/composite.
func (h *Handler) Composite(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePair(w, r)
	if !ok {
		return
	}

	result, err := h.composite.Generate(req.Chart1, req.Chart2)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) decodePair(w http.ResponseWriter, r *http.Request) (pairRequest, bool) {
	var req pairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondLegacyError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	if req.Chart1 == nil || req.Chart2 == nil {
		h.respondLegacyError(w, http.StatusBadRequest, "chart1 and chart2 are required")
		return req, false
	}
	return req, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		h.respondLegacyError(w, status, appErr.Message)
		return
	}
	h.logger.Error("legacy endpoint failure", zap.Error(err))
	h.respondLegacyError(w, http.StatusInternalServerError, "internal error")
}

// respondLegacyError keeps the flat {"error": "..."} shape the v1 clients
// were built against.
func (h *Handler) respondLegacyError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode legacy response", zap.Error(err))
	}
}
