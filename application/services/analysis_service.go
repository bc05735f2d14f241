package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"astraea-backend/application/ports"
	"astraea-backend/application/sagas"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/validators"
	"astraea-backend/domain/core/valueobjects"
	domainservices "astraea-backend/domain/services"
	"astraea-backend/domain/versioning"
	pkgerrors "astraea-backend/pkg/errors"
	"astraea-backend/pkg/extensions"
	"go.uber.org/zap"
)

const (
	// generationLockTTL bounds how long a crashed run can block the pair.
	generationLockTTL = 30 * time.Second

	publishMaxRetries = 3
	publishRetryDelay = 200 * time.Millisecond
)

// AnalysisService runs the generate-and-store pipeline behind both the REST
// handler and the async worker. Lambda entrypoints call it directly, without
// the overhead of the command bus; the GenerateAnalysisHandler delegates
// here too, so both paths share one transaction script.
type AnalysisService struct {
	orchestrator *domainservices.AnalysisOrchestrator
	validator    *validators.ChartValidator
	versioning   *versioning.VersioningService
	repo         ports.AnalysisRepository
	eventBus     ports.EventBus
	lock         ports.UnitLock
	ephemeris    ports.EphemerisProvider
	hooks        *extensions.HookManager
	logger       *zap.Logger
}

// NewAnalysisService creates a new analysis service. The ephemeris provider
// may be nil when the deployment only accepts precomputed charts.
func NewAnalysisService(
	orchestrator *domainservices.AnalysisOrchestrator,
	repo ports.AnalysisRepository,
	eventBus ports.EventBus,
	lock ports.UnitLock,
	ephemeris ports.EphemerisProvider,
	hooks *extensions.HookManager,
	logger *zap.Logger,
) *AnalysisService {
	if hooks == nil {
		hooks = extensions.NewHookManager()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{
		orchestrator: orchestrator,
		validator:    validators.NewChartValidator(),
		versioning:   versioning.NewVersioningService(),
		repo:         repo,
		eventBus:     eventBus,
		lock:         lock,
		ephemeris:    ephemeris,
		hooks:        hooks,
		logger:       logger,
	}
}

// GenerateAnalysisInput carries the raw inputs for one generation run.
type GenerateAnalysisInput struct {
	UserID      string
	Chart1      *entities.BirthChart
	Chart2      *entities.BirthChart
	Chart1Label string
	Chart2Label string
}

// Generate computes, persists, and announces one relationship analysis.
// A per-chart-pair lock suppresses duplicate concurrent runs; the saga
// deletes the stored record if publishing ultimately fails.
func (s *AnalysisService) Generate(ctx context.Context, input GenerateAnalysisInput) (*aggregates.RelationshipAnalysis, error) {
	userID, err := valueobjects.NewUserID(input.UserID)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError("userId", err.Error())
	}
	if err := s.validator.ValidateChartPair(input.Chart1, input.Chart2); err != nil {
		return nil, err
	}

	chart1Label, err := labelOrZero(input.Chart1Label)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError("chart1Label", err.Error())
	}
	chart2Label, err := labelOrZero(input.Chart2Label)
	if err != nil {
		return nil, pkgerrors.NewFieldValidationError("chart2Label", err.Error())
	}

	start := time.Now()
	s.hooks.ExecuteAsync(ctx, extensions.HookBeforeAnalysisGenerate, extensions.AnalysisHookData{
		UserID:    input.UserID,
		Operation: "generate",
	})

	// One generation per chart pair at a time. A held lock means the same
	// pair is already in flight, which callers surface as a conflict. The
	// fingerprint is order-independent, so a swapped resubmission of the
	// same pair maps to the same resource.
	fingerprint, err := s.versioning.ChartPairFingerprint(input.Chart1, input.Chart2)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to fingerprint chart pair")
	}
	resource := fmt.Sprintf("analysis_generation_%s_%s", input.UserID, fingerprint[:16])
	lease, err := s.lock.Acquire(ctx, resource, input.UserID, generationLockTTL)
	if err != nil {
		if errors.Is(err, ports.ErrLockHeld) {
			return nil, pkgerrors.NewConflictError("an analysis for this chart pair is already being generated")
		}
		return nil, pkgerrors.Wrap(err, "failed to acquire generation lock")
	}
	defer func() {
		if releaseErr := lease.Release(ctx); releaseErr != nil {
			s.logger.Warn("Failed to release generation lock",
				zap.String("resource", resource),
				zap.Error(releaseErr),
			)
		}
	}()

	request := domainservices.AnalysisRequest{
		UserID:      userID,
		Chart1:      input.Chart1,
		Chart2:      input.Chart2,
		Chart1Label: chart1Label,
		Chart2Label: chart2Label,
	}

	saga := sagas.NewSagaBuilder("generate-analysis", s.logger).
		WithStep("compute", func(ctx context.Context, _ interface{}) (interface{}, error) {
			return s.orchestrator.GenerateAnalysis(ctx, request)
		}).
		WithCompensableStep("persist",
			func(ctx context.Context, data interface{}) (interface{}, error) {
				analysis := data.(*aggregates.RelationshipAnalysis)
				if err := s.repo.Save(ctx, analysis); err != nil {
					return nil, pkgerrors.NewDatabaseError("save analysis", err)
				}
				return analysis, nil
			},
			func(ctx context.Context, data interface{}) error {
				analysis := data.(*aggregates.RelationshipAnalysis)
				return s.repo.Delete(ctx, analysis.UserID(), analysis.ID())
			},
		).
		WithRetryableStep("publish",
			func(ctx context.Context, data interface{}) (interface{}, error) {
				analysis := data.(*aggregates.RelationshipAnalysis)
				if err := s.eventBus.PublishBatch(ctx, analysis.GetUncommittedEvents()); err != nil {
					return nil, err
				}
				analysis.MarkEventsAsCommitted()
				return analysis, nil
			},
			publishMaxRetries, publishRetryDelay,
		).
		WithMetadata("user_id", input.UserID).
		Build()

	result, err := saga.Execute(ctx, nil)
	if err != nil {
		s.hooks.ExecuteAsync(ctx, extensions.HookAnalysisFailed, extensions.AnalysisHookData{
			UserID:     input.UserID,
			Operation:  "generate",
			DurationMS: time.Since(start).Milliseconds(),
		})
		return nil, err
	}

	analysis := result.(*aggregates.RelationshipAnalysis)
	compatibility := analysis.Compatibility()

	s.hooks.ExecuteAsync(ctx, extensions.HookAfterAnalysisGenerate, extensions.AnalysisHookData{
		AnalysisID:   analysis.ID().String(),
		UserID:       input.UserID,
		Operation:    "generate",
		OverallScore: compatibility.Overall,
		Rating:       compatibility.Rating.Label,
		DurationMS:   time.Since(start).Milliseconds(),
	})

	s.logger.Info("Analysis generated",
		zap.String("analysisID", analysis.ID().String()),
		zap.String("userID", input.UserID),
		zap.Int("overallScore", compatibility.Overall),
		zap.Duration("elapsed", time.Since(start)),
	)

	return analysis, nil
}

// ResolveChart computes a birth chart from raw birth data through the
// ephemeris provider. Callers that already carry positions never hit this.
func (s *AnalysisService) ResolveChart(ctx context.Context, data ports.BirthData) (*entities.BirthChart, error) {
	if s.ephemeris == nil {
		return nil, pkgerrors.NewUnavailableError("ephemeris")
	}
	return s.ephemeris.ChartAt(ctx, data)
}

// labelOrZero parses a label, mapping blank input to the zero value so the
// aggregate can apply the configured default.
func labelOrZero(value string) (valueobjects.ChartLabel, error) {
	if strings.TrimSpace(value) == "" {
		return valueobjects.ChartLabel{}, nil
	}
	return valueobjects.NewChartLabel(value)
}
