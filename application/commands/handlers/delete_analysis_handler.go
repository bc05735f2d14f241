package handlers

import (
	"context"
	"fmt"
	"time"

	"astraea-backend/application/commands"
	"astraea-backend/application/ports"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/domain/events"
	"go.uber.org/zap"
)

// DeleteAnalysisHandler handles analysis deletion commands
type DeleteAnalysisHandler struct {
	analysisRepo ports.AnalysisRepository
	eventStore   ports.EventStore
	eventBus     ports.EventBus
	logger       *zap.Logger
}

// NewDeleteAnalysisHandler creates a new delete analysis handler
func NewDeleteAnalysisHandler(
	analysisRepo ports.AnalysisRepository,
	eventStore ports.EventStore,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *DeleteAnalysisHandler {
	return &DeleteAnalysisHandler{
		analysisRepo: analysisRepo,
		eventStore:   eventStore,
		eventBus:     eventBus,
		logger:       logger,
	}
}

// Handle executes the delete analysis command
func (h *DeleteAnalysisHandler) Handle(ctx context.Context, cmd commands.DeleteAnalysisCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	userID, err := valueobjects.NewUserID(cmd.UserID)
	if err != nil {
		return fmt.Errorf("invalid user ID: %w", err)
	}

	analysisID, err := valueobjects.NewAnalysisIDFromString(cmd.AnalysisID)
	if err != nil {
		return fmt.Errorf("invalid analysis ID: %w", err)
	}

	// FindByID is user-scoped, so another account's analysis comes back as
	// not found and the ownership check falls out of the read.
	if _, err := h.analysisRepo.FindByID(ctx, userID, analysisID); err != nil {
		return fmt.Errorf("failed to get analysis: %w", err)
	}

	if err := h.analysisRepo.Delete(ctx, userID, analysisID); err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	// Drop the stored event trail along with the analysis
	if err := h.eventStore.DeleteEvents(ctx, cmd.AnalysisID); err != nil {
		h.logger.Warn("Failed to delete stored events for analysis",
			zap.String("analysisID", cmd.AnalysisID),
			zap.Error(err),
		)
		// Continue; the analysis itself is already gone
	}

	event := events.NewAnalysisDeleted(analysisID, cmd.UserID, false, time.Now())
	if err := h.eventBus.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish deletion event", zap.Error(err))
	}

	h.logger.Info("Analysis deleted",
		zap.String("analysisID", cmd.AnalysisID),
		zap.String("userID", cmd.UserID),
	)

	return nil
}
