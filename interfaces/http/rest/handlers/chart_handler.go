package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"astraea-backend/application/queries"
	querybus "astraea-backend/application/queries/bus"
	"astraea-backend/domain/core/entities"
	domainservices "astraea-backend/domain/services"
	"astraea-backend/pkg/common"
	apperrors "astraea-backend/pkg/errors"
	"astraea-backend/pkg/observability"
	"astraea-backend/pkg/utils"
)

// ChartHandler serves the single-stage chart computations: synastry and
// composite without the surrounding analysis lifecycle, plus natal summaries.
type ChartHandler struct {
	resolver  chartResolver
	synastry  *domainservices.SynastryService
	composite *domainservices.CompositeService
	queryBus  *querybus.QueryBus
	responder *apperrors.ErrorHandler
	metrics   *observability.Collector
	logger    *zap.Logger
}

// NewChartHandler creates a ChartHandler.
func NewChartHandler(
	resolver chartResolver,
	synastry *domainservices.SynastryService,
	composite *domainservices.CompositeService,
	queryBus *querybus.QueryBus,
	responder *apperrors.ErrorHandler,
	metrics *observability.Collector,
	logger *zap.Logger,
) *ChartHandler {
	return &ChartHandler{
		resolver:  resolver,
		synastry:  synastry,
		composite: composite,
		queryBus:  queryBus,
		responder: responder,
		metrics:   metrics,
		logger:    logger,
	}
}

// Synastry handles POST /api/v2/synastry.
func (h *ChartHandler) Synastry(w http.ResponseWriter, r *http.Request) {
	chart1, chart2, ok := h.decodePair(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := h.synastry.Generate(chart1, chart2)
	h.metrics.ObserveAnalysis("synastry", time.Since(start), err)
	if err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	common.RespondWithMeta(w, http.StatusOK, result, common.NewMeta(common.ExtractRequestID(r)))
}

// Composite handles POST /api/v2/composite.
func (h *ChartHandler) Composite(w http.ResponseWriter, r *http.Request) {
	chart1, chart2, ok := h.decodePair(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := h.composite.Generate(chart1, chart2)
	h.metrics.ObserveAnalysis("composite", time.Since(start), err)
	if err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	common.RespondWithMeta(w, http.StatusOK, result, common.NewMeta(common.ExtractRequestID(r)))
}

// NatalSummary handles POST /api/v2/charts/summary.
func (h *ChartHandler) NatalSummary(w http.ResponseWriter, r *http.Request) {
	if _, ok := authPrincipal(w, r, h.responder); !ok {
		return
	}

	var req singleChartRequest
	if err := decodeRequest(w, r, &req); err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	chart, err := resolveChart(r.Context(), h.resolver, req.Chart, req.BirthData, "chart")
	if err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	summary, err := h.queryBus.Ask(r.Context(), queries.NatalSummaryQuery{Chart: chart})
	if err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	common.RespondWithMeta(w, http.StatusOK, summary, common.NewMeta(common.ExtractRequestID(r)))
}

func (h *ChartHandler) decodePair(w http.ResponseWriter, r *http.Request) (chart1, chart2 *entities.BirthChart, ok bool) {
	if _, authed := authPrincipal(w, r, h.responder); !authed {
		return nil, nil, false
	}

	var req chartPairRequest
	if err := decodeRequest(w, r, &req); err != nil {
		h.responder.Handle(w, r, err)
		return nil, nil, false
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.responder.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return nil, nil, false
	}

	c1, c2, err := resolvePair(r.Context(), h.resolver, req)
	if err != nil {
		h.responder.Handle(w, r, err)
		return nil, nil, false
	}
	return c1, c2, true
}
