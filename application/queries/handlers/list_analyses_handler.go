package handlers

import (
	"context"
	"fmt"
	"time"

	"astraea-backend/application/ports"
	"astraea-backend/application/queries"
	"astraea-backend/domain/core/valueobjects"
	"go.uber.org/zap"
)

const defaultListLimit = 20

// ListAnalysesHandler handles paginated list queries
type ListAnalysesHandler struct {
	analysisRepo ports.AnalysisRepository
	logger       *zap.Logger
}

// NewListAnalysesHandler creates a new list analyses handler
func NewListAnalysesHandler(analysisRepo ports.AnalysisRepository, logger *zap.Logger) *ListAnalysesHandler {
	return &ListAnalysesHandler{
		analysisRepo: analysisRepo,
		logger:       logger,
	}
}

// Handle executes the list analyses query
func (h *ListAnalysesHandler) Handle(ctx context.Context, query queries.ListAnalysesQuery) (*queries.ListAnalysesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	userID, err := valueobjects.NewUserID(query.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	limit := query.Limit
	if limit == 0 {
		limit = defaultListLimit
	}

	analyses, nextToken, err := h.analysisRepo.FindByUser(ctx, userID, ports.ListPage{
		Limit:     limit,
		NextToken: query.NextToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	result := &queries.ListAnalysesResult{
		Analyses:  make([]queries.AnalysisSummary, 0, len(analyses)),
		NextToken: nextToken,
	}

	for _, analysis := range analyses {
		compatibility := analysis.Compatibility()
		result.Analyses = append(result.Analyses, queries.AnalysisSummary{
			AnalysisID:       analysis.ID().String(),
			Chart1Label:      analysis.Chart1Label().String(),
			Chart2Label:      analysis.Chart2Label().String(),
			OverallScore:     compatibility.Overall,
			Rating:           compatibility.Rating.Label,
			RelationshipType: analysis.Summary().RelationshipType,
			GeneratedAt:      analysis.GeneratedAt().Format(time.RFC3339),
		})
	}

	h.logger.Debug("Analyses listed",
		zap.String("userID", query.UserID),
		zap.Int("count", len(result.Analyses)),
		zap.Bool("hasMore", result.NextToken != ""),
	)

	return result, nil
}
