package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"astraea-backend/application/commands"
	cmdbus "astraea-backend/application/commands/bus"
	cmdhandlers "astraea-backend/application/commands/handlers"
	"astraea-backend/application/ports"
	"astraea-backend/application/queries"
	querybus "astraea-backend/application/queries/bus"
	"astraea-backend/application/services"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/domain/events"
	"astraea-backend/pkg/auth"
	"astraea-backend/pkg/common"
	apperrors "astraea-backend/pkg/errors"
	"astraea-backend/pkg/observability"
	"astraea-backend/pkg/utils"
)

// AnalysisHandler serves the full relationship-analysis lifecycle: generate,
// read, list, preview, delete. Writes go through the command side, reads
// through the query bus; the one exception is generation, which calls its
// handler directly because the response needs the computed analysis back.
type AnalysisHandler struct {
	service    *services.AnalysisService
	generate   *cmdhandlers.GenerateAnalysisHandler
	bulkDelete *cmdhandlers.BulkDeleteAnalysesHandler
	commandBus *cmdbus.CommandBus
	queryBus   *querybus.QueryBus
	eventBus   ports.EventBus
	responder  *apperrors.ErrorHandler
	metrics    *observability.Collector
	tracer     *observability.Tracer
	logger     *zap.Logger
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(
	service *services.AnalysisService,
	generate *cmdhandlers.GenerateAnalysisHandler,
	bulkDelete *cmdhandlers.BulkDeleteAnalysesHandler,
	commandBus *cmdbus.CommandBus,
	queryBus *querybus.QueryBus,
	eventBus ports.EventBus,
	responder *apperrors.ErrorHandler,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		service:    service,
		generate:   generate,
		bulkDelete: bulkDelete,
		commandBus: commandBus,
		queryBus:   queryBus,
		eventBus:   eventBus,
		responder:  responder,
		metrics:    metrics,
		tracer:     tracer,
		logger:     logger,
	}
}

// analysisResponse is the wire shape of a full analysis. It mirrors the
// stored document but drops storage internals like the schema version.
type analysisResponse struct {
	AnalysisID    string                         `json:"analysisId"`
	UserID        string                         `json:"userId"`
	Chart1Label   string                         `json:"chart1Label,omitempty"`
	Chart2Label   string                         `json:"chart2Label,omitempty"`
	Synastry      aggregates.SynastryResult      `json:"synastry"`
	Composite     aggregates.CompositeResult     `json:"composite"`
	Compatibility aggregates.CompatibilityResult `json:"compatibility"`
	Dynamics      aggregates.DynamicsResult      `json:"dynamics"`
	Summary       aggregates.AnalysisSummary     `json:"summary"`
	GeneratedAt   time.Time                      `json:"generatedAt"`
	SystemVersion string                         `json:"systemVersion"`
}

func newAnalysisResponse(a *aggregates.RelationshipAnalysis) analysisResponse {
	return analysisResponse{
		AnalysisID:    a.ID().String(),
		UserID:        a.UserID().String(),
		Chart1Label:   a.Chart1Label().String(),
		Chart2Label:   a.Chart2Label().String(),
		Synastry:      a.Synastry(),
		Composite:     a.Composite(),
		Compatibility: a.Compatibility(),
		Dynamics:      a.Dynamics(),
		Summary:       a.Summary(),
		GeneratedAt:   a.GeneratedAt(),
		SystemVersion: a.SystemVersion(),
	}
}

// GenerateAnalysis handles POST /api/v2/analyses. The default mode computes,
// persists, and returns the full analysis with 201. With ?mode=async the
// request is validated, queued as an analysis.requested event, and answered
// with 202 before any computation runs.
func (h *AnalysisHandler) GenerateAnalysis(w http.ResponseWriter, r *http.Request) {
	principal, ok := authPrincipal(w, r, h.responder)
	if !ok {
		return
	}

	var req chartPairRequest
	if err := decodeRequest(w, r, &req); err != nil {
		h.responder.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.responder.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	chart1, chart2, err := resolvePair(r.Context(), h.service, req)
	if err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	if r.URL.Query().Get("mode") == "async" {
		h.acceptAsync(w, r, principal.UserID, req, chart1, chart2)
		return
	}

	cmd := commands.GenerateAnalysisCommand{
		UserID:      principal.UserID,
		Chart1:      chart1,
		Chart2:      chart2,
		Chart1Label: req.Chart1Label,
		Chart2Label: req.Chart2Label,
	}

	start := time.Now()
	var analysis *aggregates.RelationshipAnalysis
	err = h.tracer.Capture(r.Context(), "generate_analysis", func(ctx context.Context) error {
		var handleErr error
		analysis, handleErr = h.generate.Handle(ctx, cmd)
		if handleErr == nil {
			h.tracer.AnnotateAnalysis(ctx, cmd.UserID, analysis.ID().String())
		}
		return handleErr
	})
	h.metrics.ObserveAnalysis("full", time.Since(start), err)
	if err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	h.logger.Info("analysis generated",
		zap.String("analysis_id", analysis.ID().String()),
		zap.String("user_id", principal.UserID),
	)
	common.RespondWithMeta(w, http.StatusCreated, newAnalysisResponse(analysis), common.NewMeta(common.ExtractRequestID(r)))
}

// analysisAccepted acknowledges an async request. The stored analysis mints
// its own ID when the worker runs, so the caller gets a tracking ID here and
// learns the real one from the analysis.completed notification.
type analysisAccepted struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

func (h *AnalysisHandler) acceptAsync(w http.ResponseWriter, r *http.Request, userID string, req chartPairRequest, chart1, chart2 *entities.BirthChart) {
	requestID := valueobjects.NewAnalysisID()
	event := events.NewAnalysisRequested(requestID, userID, req.Chart1Label, req.Chart2Label, time.Now().UTC()).
		WithCharts(chart1, chart2)

	if err := h.eventBus.Publish(r.Context(), event); err != nil {
		h.responder.Handle(w, r, apperrors.NewInternalError("failed to queue analysis request").WithCause(err))
		return
	}

	h.logger.Info("analysis queued",
		zap.String("request_id", requestID.String()),
		zap.String("user_id", userID),
	)
	common.RespondWithMeta(w, http.StatusAccepted, analysisAccepted{
		RequestID: requestID.String(),
		Status:    "accepted",
	}, common.NewMeta(common.ExtractRequestID(r)))
}

// GetAnalysis handles GET /api/v2/analyses/{analysisID}.
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	principal, ok := authPrincipal(w, r, h.responder)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetAnalysisQuery{
		UserID:     principal.UserID,
		AnalysisID: chi.URLParam(r, "analysisID"),
	})
	if err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	analysis, ok := result.(*aggregates.RelationshipAnalysis)
	if !ok {
		h.responder.Handle(w, r, apperrors.NewInternalError("unexpected analysis result type"))
		return
	}

	common.RespondWithMeta(w, http.StatusOK, newAnalysisResponse(analysis), common.NewMeta(common.ExtractRequestID(r)))
}

// ListAnalyses handles GET /api/v2/analyses with limit/nextToken pagination.
func (h *AnalysisHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	principal, ok := authPrincipal(w, r, h.responder)
	if !ok {
		return
	}

	params := common.ExtractListParams(r)
	result, err := h.queryBus.Ask(r.Context(), queries.ListAnalysesQuery{
		UserID:    principal.UserID,
		Limit:     params.Limit,
		NextToken: params.NextToken,
	})
	if err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	list, ok := result.(*queries.ListAnalysesResult)
	if !ok {
		h.responder.Handle(w, r, apperrors.NewInternalError("unexpected list result type"))
		return
	}

	meta := common.NewMeta(common.ExtractRequestID(r))
	meta.Page = common.NewPageInfo(len(list.Analyses), params.Limit, list.NextToken)
	common.RespondWithMeta(w, http.StatusOK, list.Analyses, meta)
}

// DeleteAnalysis handles DELETE /api/v2/analyses/{analysisID}.
func (h *AnalysisHandler) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	principal, ok := authPrincipal(w, r, h.responder)
	if !ok {
		return
	}

	err := h.commandBus.Send(r.Context(), commands.DeleteAnalysisCommand{
		UserID:     principal.UserID,
		AnalysisID: chi.URLParam(r, "analysisID"),
	})
	if err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	h.metrics.ObserveDeletion(1)
	w.WriteHeader(http.StatusNoContent)
}

// PreviewAnalysis handles POST /api/v2/analyses/preview: the same computation
// as GenerateAnalysis but nothing is stored and no events fire.
func (h *AnalysisHandler) PreviewAnalysis(w http.ResponseWriter, r *http.Request) {
	if _, ok := authPrincipal(w, r, h.responder); !ok {
		return
	}

	var req chartPairRequest
	if err := decodeRequest(w, r, &req); err != nil {
		h.responder.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.responder.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	chart1, chart2, err := resolvePair(r.Context(), h.service, req)
	if err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	start := time.Now()
	var preview interface{}
	err = h.tracer.Capture(r.Context(), "preview_compatibility", func(ctx context.Context) error {
		var askErr error
		preview, askErr = h.queryBus.Ask(ctx, queries.PreviewCompatibilityQuery{Chart1: chart1, Chart2: chart2})
		return askErr
	})
	h.metrics.ObserveAnalysis("preview", time.Since(start), err)
	if err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	common.RespondWithMeta(w, http.StatusOK, preview, common.NewMeta(common.ExtractRequestID(r)))
}

type bulkDeleteRequest struct {
	AnalysisIDs []string `json:"analysisIds" validate:"required,min=1,max=100"`
}

// BulkDelete handles POST /api/v2/analyses/bulk-delete. Partial failure is a
// 200: the result reports which IDs could not be removed.
func (h *AnalysisHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	principal, ok := authPrincipal(w, r, h.responder)
	if !ok {
		return
	}

	var req bulkDeleteRequest
	if err := decodeRequest(w, r, &req); err != nil {
		h.responder.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.responder.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.bulkDelete.Handle(r.Context(), commands.BulkDeleteAnalysesCommand{
		OperationID: uuid.NewString(),
		UserID:      principal.UserID,
		AnalysisIDs: req.AnalysisIDs,
	})
	if err != nil {
		h.responder.Handle(w, r, err)
		return
	}

	h.metrics.ObserveDeletion(result.DeletedCount)
	common.RespondWithMeta(w, http.StatusOK, result, common.NewMeta(common.ExtractRequestID(r)))
}

// authPrincipal pulls the authenticated principal set by the auth middleware.
// A miss means the route was mounted outside the auth group, which is a
// programming error, but it must not panic in production.
func authPrincipal(w http.ResponseWriter, r *http.Request, responder *apperrors.ErrorHandler) (*auth.Principal, bool) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		responder.HandleStatus(w, r, http.StatusUnauthorized, "no authenticated user")
		return nil, false
	}
	return principal, true
}
