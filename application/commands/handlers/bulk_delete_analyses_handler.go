package handlers

import (
	"context"
	"fmt"
	"time"

	"astraea-backend/application/commands"
	"astraea-backend/application/ports"
	"astraea-backend/domain/core/valueobjects"
	domainevents "astraea-backend/domain/events"
	"go.uber.org/zap"
)

// BulkDeleteAnalysesHandler handles bulk delete commands. Invalid and foreign
// IDs are reported per entry; the valid remainder is removed in one batch.
type BulkDeleteAnalysesHandler struct {
	analysisRepo ports.AnalysisRepository
	eventStore   ports.EventStore
	eventBus     ports.EventBus
	logger       *zap.Logger
}

// NewBulkDeleteAnalysesHandler creates a new bulk delete handler
func NewBulkDeleteAnalysesHandler(
	analysisRepo ports.AnalysisRepository,
	eventStore ports.EventStore,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *BulkDeleteAnalysesHandler {
	return &BulkDeleteAnalysesHandler{
		analysisRepo: analysisRepo,
		eventStore:   eventStore,
		eventBus:     eventBus,
		logger:       logger,
	}
}

// Handle executes the bulk delete command
func (h *BulkDeleteAnalysesHandler) Handle(ctx context.Context, cmd commands.BulkDeleteAnalysesCommand) (*commands.BulkDeleteAnalysesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	userID, err := valueobjects.NewUserID(cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	// Parse all IDs upfront so malformed entries fail the entry, not the batch
	analysisIDs := make([]valueobjects.AnalysisID, 0, len(cmd.AnalysisIDs))
	invalidIDs := make([]string, 0)

	for _, idStr := range cmd.AnalysisIDs {
		analysisID, err := valueobjects.NewAnalysisIDFromString(idStr)
		if err != nil {
			invalidIDs = append(invalidIDs, idStr)
			continue
		}
		analysisIDs = append(analysisIDs, analysisID)
	}

	if len(analysisIDs) == 0 {
		return &commands.BulkDeleteAnalysesResult{
			DeletedCount: 0,
			FailedIDs:    invalidIDs,
			Errors:       []string{"All provided analysis IDs are invalid"},
		}, nil
	}

	// Verify each analysis exists under this user before deleting any
	confirmed := make([]valueobjects.AnalysisID, 0, len(analysisIDs))
	failedIDs := make([]string, 0)
	errs := make([]string, 0)

	for _, analysisID := range analysisIDs {
		if _, err := h.analysisRepo.FindByID(ctx, userID, analysisID); err != nil {
			failedIDs = append(failedIDs, analysisID.String())
			errs = append(errs, fmt.Sprintf("Analysis %s not found: %v", analysisID.String(), err))
			continue
		}
		confirmed = append(confirmed, analysisID)
	}

	if len(confirmed) == 0 {
		return &commands.BulkDeleteAnalysesResult{
			DeletedCount: 0,
			FailedIDs:    append(invalidIDs, failedIDs...),
			Errors:       errs,
		}, nil
	}

	if err := h.analysisRepo.DeleteBatch(ctx, userID, confirmed); err != nil {
		return nil, fmt.Errorf("failed to delete analyses in batch: %w", err)
	}

	// Drop stored event trails for everything that went away
	aggregateIDs := make([]string, len(confirmed))
	for i, analysisID := range confirmed {
		aggregateIDs[i] = analysisID.String()
	}
	if err := h.eventStore.DeleteEventsBatch(ctx, aggregateIDs); err != nil {
		h.logger.Warn("Failed to delete stored events for analyses",
			zap.Strings("analysisIDs", aggregateIDs),
			zap.Error(err),
		)
		// Don't fail the operation - the analyses are already gone
	}

	deletionEvents := make([]domainevents.DomainEvent, len(confirmed))
	now := time.Now()
	for i, analysisID := range confirmed {
		deletionEvents[i] = domainevents.NewAnalysisDeleted(analysisID, cmd.UserID, false, now)
	}
	if err := h.eventBus.PublishBatch(ctx, deletionEvents); err != nil {
		h.logger.Warn("Failed to publish deletion events", zap.Error(err))
	}

	result := &commands.BulkDeleteAnalysesResult{
		DeletedCount: len(confirmed),
		FailedIDs:    append(invalidIDs, failedIDs...),
		Errors:       errs,
	}

	h.logger.Info("Bulk delete completed",
		zap.String("userID", cmd.UserID),
		zap.String("operationID", cmd.OperationID),
		zap.Int("requested", len(cmd.AnalysisIDs)),
		zap.Int("deleted", result.DeletedCount),
		zap.Int("failed", len(result.FailedIDs)),
	)

	return result, nil
}
