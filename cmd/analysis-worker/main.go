// Package main implements the Lambda worker for asynchronous analysis
// generation. It consumes analysis.requested events from EventBridge and
// runs the same generation path the synchronous API uses.
package main

import (
	"context"
	"log"
	"time"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"astraea-backend/application/commands"
	"astraea-backend/domain/events"
	"astraea-backend/infrastructure/config"
	"astraea-backend/infrastructure/di"
	apperrors "astraea-backend/pkg/errors"
)

var container *di.Container

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.IsLambda = true

	container, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	container.Logger.Info("analysis worker initialized",
		zap.String("persistence_driver", cfg.PersistenceDriver),
	)
}

// handler consumes one EventBridge event. Malformed payloads are dropped
// rather than returned as errors: a retry can never fix them, and the DLQ
// should hold genuine failures only.
func handler(ctx context.Context, event awsevents.CloudWatchEvent) error {
	if event.DetailType != "analysis.requested" {
		container.Logger.Warn("ignoring unexpected event",
			zap.String("detail_type", event.DetailType),
			zap.String("source", event.Source),
		)
		return nil
	}

	decoded, err := events.Unmarshal(event.DetailType, event.Detail)
	if err != nil {
		container.Logger.Error("failed to decode event", zap.Error(err))
		container.CloudWatch.RecordError(ctx, "worker_decode")
		return nil
	}

	requested, ok := decoded.(events.AnalysisRequested)
	if !ok {
		container.Logger.Error("unexpected payload for analysis.requested")
		return nil
	}

	return generate(ctx, requested)
}

func generate(ctx context.Context, requested events.AnalysisRequested) error {
	logger := container.Logger.With(
		zap.String("request_id", requested.AnalysisID.String()),
		zap.String("user_id", requested.UserID),
	)

	if requested.Chart1 == nil || requested.Chart2 == nil {
		logger.Error("analysis request carries no chart payload")
		publishFailure(ctx, requested, "decode", "event carries no chart payload")
		return nil
	}

	cmd := commands.GenerateAnalysisCommand{
		UserID:      requested.UserID,
		Chart1:      requested.Chart1,
		Chart2:      requested.Chart2,
		Chart1Label: requested.Chart1Label,
		Chart2Label: requested.Chart2Label,
	}

	start := time.Now()
	err := container.CommandBus.Send(ctx, cmd)
	container.CloudWatch.RecordAnalysis(ctx, "async", time.Since(start), err)

	if err != nil {
		if apperrors.IsValidation(err) || apperrors.IsCalculation(err) {
			// Permanent: retrying reruns the same math on the same inputs.
			logger.Error("async analysis rejected", zap.Error(err))
			publishFailure(ctx, requested, "generate", err.Error())
			return nil
		}
		// Transient (storage, publishing): let Lambda retry.
		logger.Error("async analysis failed", zap.Error(err))
		return err
	}

	logger.Info("async analysis completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// publishFailure announces a permanently failed request so notification
// consumers can tell the user instead of leaving the request dangling.
func publishFailure(ctx context.Context, requested events.AnalysisRequested, stage, reason string) {
	failed := events.NewAnalysisFailed(requested.AnalysisID, requested.UserID, stage, reason, time.Now().UTC())
	if err := container.Storage.EventBus.Publish(ctx, failed); err != nil {
		container.Logger.Error("failed to publish analysis.failed", zap.Error(err))
	}
}

func main() {
	lambda.Start(handler)
}
