package dynamodb

import (
	"context"
	"fmt"
	"time"

	"astraea-backend/application/ports"

	"go.uber.org/zap"
)

// OutboxProcessor relays stored events to the event bus in the background.
// Events are written as pending by EventStore.SaveEvents; this loop picks
// them up, publishes, and records the outcome, so a bus outage never loses
// an event that made it to storage.
type OutboxProcessor struct {
	eventStore     *EventStore
	eventPublisher ports.EventPublisher
	logger         *zap.Logger

	batchSize          int32
	processingInterval time.Duration
	maxRetries         int

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewOutboxProcessor creates an outbox processor with default pacing.
func NewOutboxProcessor(
	eventStore *EventStore,
	eventPublisher ports.EventPublisher,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		eventStore:         eventStore,
		eventPublisher:     eventPublisher,
		logger:             logger,
		batchSize:          50,
		processingInterval: 5 * time.Second,
		maxRetries:         maxPublishAttempts,
		stopChan:           make(chan struct{}),
		stoppedChan:        make(chan struct{}),
	}
}

// Start begins background processing. Returns immediately.
func (op *OutboxProcessor) Start(ctx context.Context) {
	op.logger.Info("starting outbox processor",
		zap.Int32("batchSize", op.batchSize),
		zap.Duration("interval", op.processingInterval),
	)

	go op.processLoop(ctx)
}

// Stop blocks until the processing loop has exited.
func (op *OutboxProcessor) Stop() {
	op.logger.Info("stopping outbox processor")
	close(op.stopChan)
	<-op.stoppedChan
	op.logger.Info("outbox processor stopped")
}

func (op *OutboxProcessor) processLoop(ctx context.Context) {
	defer close(op.stoppedChan)

	ticker := time.NewTicker(op.processingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			op.logger.Info("context cancelled, stopping outbox processor")
			return
		case <-op.stopChan:
			return
		case <-ticker.C:
			if err := op.processBatch(ctx); err != nil {
				op.logger.Error("outbox batch failed", zap.Error(err))
			}
		}
	}
}

func (op *OutboxProcessor) processBatch(ctx context.Context) error {
	pending, err := op.eventStore.GetPendingEvents(ctx, op.batchSize)
	if err != nil {
		return fmt.Errorf("get pending events: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	op.logger.Debug("processing outbox batch", zap.Int("eventCount", len(pending)))

	successCount := 0
	failureCount := 0

	for _, record := range pending {
		if err := op.processEvent(ctx, record); err != nil {
			op.logger.Error("outbox event failed",
				zap.String("eventId", record.EventID),
				zap.String("eventType", record.EventType),
				zap.Error(err),
			)
			failureCount++
		} else {
			successCount++
		}
	}

	op.logger.Debug("outbox batch done",
		zap.Int("published", successCount),
		zap.Int("failed", failureCount),
	)

	return nil
}

func (op *OutboxProcessor) processEvent(ctx context.Context, record *EventRecord) error {
	domainEvent, err := recordToEvent(*record)
	if err != nil {
		// Malformed records can never publish; park them immediately.
		return op.markEventFailed(ctx, record, fmt.Sprintf("decode event: %v", err))
	}

	if err := op.eventPublisher.Publish(ctx, domainEvent); err != nil {
		return op.markEventFailed(ctx, record, fmt.Sprintf("publish failed: %v", err))
	}

	return op.markEventPublished(ctx, record)
}

func (op *OutboxProcessor) markEventPublished(ctx context.Context, record *EventRecord) error {
	if err := op.eventStore.MarkEventAsPublished(ctx, record.PK, record.SK); err != nil {
		op.logger.Error("failed to mark event published",
			zap.String("eventId", record.EventID),
			zap.Error(err),
		)
		return err
	}

	op.logger.Debug("event published",
		zap.String("eventId", record.EventID),
		zap.String("eventType", record.EventType),
	)

	return nil
}

func (op *OutboxProcessor) markEventFailed(ctx context.Context, record *EventRecord, errorMsg string) error {
	newAttempts := record.PublishAttempts + 1

	if err := op.eventStore.MarkEventAsFailed(ctx, record.PK, record.SK, errorMsg, newAttempts); err != nil {
		op.logger.Error("failed to mark event failed",
			zap.String("eventId", record.EventID),
			zap.Error(err),
		)
		return err
	}

	if newAttempts >= op.maxRetries {
		op.logger.Warn("event permanently failed",
			zap.String("eventId", record.EventID),
			zap.String("eventType", record.EventType),
			zap.Int("attempts", newAttempts),
			zap.String("error", errorMsg),
		)
	} else {
		op.logger.Debug("event queued for retry",
			zap.String("eventId", record.EventID),
			zap.String("eventType", record.EventType),
			zap.Int("attempts", newAttempts),
		)
	}

	return fmt.Errorf("event processing failed: %s", errorMsg)
}
