package handlers

import (
	"context"
	"fmt"

	"astraea-backend/application/queries"
	"astraea-backend/domain/services"
	"go.uber.org/zap"
)

// NatalSummaryHandler reads single birth charts
type NatalSummaryHandler struct {
	natal  *services.NatalService
	logger *zap.Logger
}

// NewNatalSummaryHandler creates a new natal summary handler
func NewNatalSummaryHandler(natal *services.NatalService, logger *zap.Logger) *NatalSummaryHandler {
	return &NatalSummaryHandler{
		natal:  natal,
		logger: logger,
	}
}

// Handle executes the natal summary query
func (h *NatalSummaryHandler) Handle(ctx context.Context, query queries.NatalSummaryQuery) (*services.NatalSummary, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	summary, err := h.natal.Summarize(query.Chart)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("Natal summary computed",
		zap.Int("placements", len(summary.Placements)),
		zap.String("signature", summary.Signature),
	)

	return &summary, nil
}
