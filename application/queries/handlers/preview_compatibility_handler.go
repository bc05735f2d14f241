package handlers

import (
	"context"
	"fmt"

	"astraea-backend/application/queries"
	"astraea-backend/domain/services"
	"go.uber.org/zap"
)

// PreviewCompatibilityHandler runs the scoring stages without persistence.
// Nothing is stored and no identity is minted.
type PreviewCompatibilityHandler struct {
	orchestrator *services.AnalysisOrchestrator
	logger       *zap.Logger
}

// NewPreviewCompatibilityHandler creates a new preview handler
func NewPreviewCompatibilityHandler(orchestrator *services.AnalysisOrchestrator, logger *zap.Logger) *PreviewCompatibilityHandler {
	return &PreviewCompatibilityHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Handle executes the preview compatibility query
func (h *PreviewCompatibilityHandler) Handle(ctx context.Context, query queries.PreviewCompatibilityQuery) (*queries.PreviewCompatibilityResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	compatibility, dynamics, err := h.orchestrator.Preview(ctx, query.Chart1, query.Chart2)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("Compatibility preview computed",
		zap.Int("overallScore", compatibility.Overall),
	)

	return &queries.PreviewCompatibilityResult{
		Compatibility: compatibility,
		Dynamics:      dynamics,
	}, nil
}
