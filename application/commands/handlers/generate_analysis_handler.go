package handlers

import (
	"context"
	"fmt"

	"astraea-backend/application/commands"
	"astraea-backend/application/services"
	"astraea-backend/domain/core/aggregates"
)

// GenerateAnalysisHandler handles analysis generation commands. It is a thin
// adapter over the AnalysisService so the async worker path and the direct
// invocation path run the same pipeline.
type GenerateAnalysisHandler struct {
	service *services.AnalysisService
}

// NewGenerateAnalysisHandler creates a new generate analysis handler
func NewGenerateAnalysisHandler(service *services.AnalysisService) *GenerateAnalysisHandler {
	return &GenerateAnalysisHandler{service: service}
}

// Handle executes the generate analysis command
func (h *GenerateAnalysisHandler) Handle(ctx context.Context, cmd commands.GenerateAnalysisCommand) (*aggregates.RelationshipAnalysis, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	return h.service.Generate(ctx, services.GenerateAnalysisInput{
		UserID:      cmd.UserID,
		Chart1:      cmd.Chart1,
		Chart2:      cmd.Chart2,
		Chart1Label: cmd.Chart1Label,
		Chart2Label: cmd.Chart2Label,
	})
}
