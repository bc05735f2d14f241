package handlers

import (
	"context"
	"fmt"

	"astraea-backend/application/commands"
	"astraea-backend/application/ports"
	"go.uber.org/zap"
)

// PurgeExpiredAnalysesHandler runs the retention purge. The analysis-worker
// fires it on a schedule; the admin CLI runs it by hand, usually dry first.
type PurgeExpiredAnalysesHandler struct {
	analysisRepo ports.AnalysisRepository
	logger       *zap.Logger
}

// NewPurgeExpiredAnalysesHandler creates a new purge handler
func NewPurgeExpiredAnalysesHandler(analysisRepo ports.AnalysisRepository, logger *zap.Logger) *PurgeExpiredAnalysesHandler {
	return &PurgeExpiredAnalysesHandler{
		analysisRepo: analysisRepo,
		logger:       logger,
	}
}

// Handle executes the purge command
func (h *PurgeExpiredAnalysesHandler) Handle(ctx context.Context, cmd commands.PurgeExpiredAnalysesCommand) (*commands.PurgeExpiredAnalysesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	count, err := h.analysisRepo.PurgeOlderThan(ctx, cmd.Before, cmd.DryRun)
	if err != nil {
		return nil, fmt.Errorf("failed to purge analyses: %w", err)
	}

	if cmd.DryRun {
		h.logger.Info("Retention purge dry run",
			zap.Time("before", cmd.Before),
			zap.Int("wouldPurge", count),
		)
	} else {
		h.logger.Info("Retention purge completed",
			zap.Time("before", cmd.Before),
			zap.Int("purged", count),
		)
	}

	return &commands.PurgeExpiredAnalysesResult{
		PurgedCount: count,
		DryRun:      cmd.DryRun,
	}, nil
}
