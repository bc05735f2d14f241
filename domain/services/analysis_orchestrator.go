package services

import (
	"context"

	"astraea-backend/domain/config"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/validators"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/domain/versioning"
	pkgerrors "astraea-backend/pkg/errors"
)

// AnalysisRequest carries the inputs for one full analysis run.
type AnalysisRequest struct {
	UserID      valueobjects.UserID
	Chart1      *entities.BirthChart
	Chart2      *entities.BirthChart
	Chart1Label valueobjects.ChartLabel
	Chart2Label valueobjects.ChartLabel
}

// AnalysisOrchestrator runs the full pipeline: synastry and composite
// concurrently, then compatibility, dynamics, and the summary synthesis,
// finally assembling the aggregate.
type AnalysisOrchestrator struct {
	validator     *validators.ChartValidator
	synastry      *SynastryService
	composite     *CompositeService
	compatibility *CompatibilityService
	dynamics      *DynamicsService
	systemVersion string
}

// NewAnalysisOrchestrator wires every stage onto one scoring config. A nil
// config falls back to the default weighting model throughout.
func NewAnalysisOrchestrator(cfg *config.ScoringConfig) *AnalysisOrchestrator {
	if cfg == nil {
		cfg = config.DefaultScoringConfig()
	}
	return &AnalysisOrchestrator{
		validator:     validators.NewChartValidator(),
		synastry:      NewSynastryService(cfg),
		composite:     NewCompositeService(cfg),
		compatibility: NewCompatibilityService(cfg),
		dynamics:      NewDynamicsService(cfg),
		systemVersion: versioning.SystemVersion,
	}
}

// GenerateAnalysis validates once, runs the pipeline, and mints the
// aggregate. Validation failures surface untouched before any computation;
// later stage failures come back as calculation errors naming the stage.
func (o *AnalysisOrchestrator) GenerateAnalysis(ctx context.Context, req AnalysisRequest) (*aggregates.RelationshipAnalysis, error) {
	if err := o.validator.ValidateChartPair(req.Chart1, req.Chart2); err != nil {
		return nil, err
	}

	synastry, composite, err := o.generateCharts(ctx, req.Chart1, req.Chart2)
	if err != nil {
		return nil, err
	}

	compatibility := o.compatibility.Calculate(synastry, composite)
	dynamics := o.dynamics.Analyze(synastry, composite, compatibility)
	summary := o.synthesizeSummary(compatibility, dynamics)

	return aggregates.NewRelationshipAnalysis(
		req.UserID,
		req.Chart1Label, req.Chart2Label,
		synastry, composite, compatibility, dynamics, summary,
		o.systemVersion,
	)
}

// Preview runs the scoring stages without minting an aggregate: no identity,
// no event, nothing to persist. It backs the anonymous preview endpoint.
func (o *AnalysisOrchestrator) Preview(ctx context.Context, chart1, chart2 *entities.BirthChart) (aggregates.CompatibilityResult, aggregates.DynamicsResult, error) {
	if err := o.validator.ValidateChartPair(chart1, chart2); err != nil {
		return aggregates.CompatibilityResult{}, aggregates.DynamicsResult{}, err
	}

	synastry, composite, err := o.generateCharts(ctx, chart1, chart2)
	if err != nil {
		return aggregates.CompatibilityResult{}, aggregates.DynamicsResult{}, err
	}

	compatibility := o.compatibility.Calculate(synastry, composite)
	return compatibility, o.dynamics.Analyze(synastry, composite, compatibility), nil
}

type synastryOutcome struct {
	result aggregates.SynastryResult
	err    error
}

type compositeOutcome struct {
	result aggregates.CompositeResult
	err    error
}

// generateCharts runs the synastry and composite stages concurrently and
// joins them. The channels are buffered so neither goroutine leaks when the
// context expires first.
func (o *AnalysisOrchestrator) generateCharts(ctx context.Context, chart1, chart2 *entities.BirthChart) (aggregates.SynastryResult, aggregates.CompositeResult, error) {
	if err := ctx.Err(); err != nil {
		return aggregates.SynastryResult{}, aggregates.CompositeResult{},
			pkgerrors.NewTimeoutError("generateCharts").WithCause(err)
	}

	synastryCh := make(chan synastryOutcome, 1)
	compositeCh := make(chan compositeOutcome, 1)

	go func() {
		result, err := o.synastry.Generate(chart1, chart2)
		synastryCh <- synastryOutcome{result, wrapStageError("generateSynastryChart", err)}
	}()
	go func() {
		result, err := o.composite.Generate(chart1, chart2)
		compositeCh <- compositeOutcome{result, wrapStageError("generateCompositeChart", err)}
	}()

	var (
		synastry  aggregates.SynastryResult
		composite aggregates.CompositeResult
		firstErr  error
	)
	for pending := 2; pending > 0; pending-- {
		select {
		case out := <-synastryCh:
			synastry = out.result
			if out.err != nil && firstErr == nil {
				firstErr = out.err
			}
		case out := <-compositeCh:
			composite = out.result
			if out.err != nil && firstErr == nil {
				firstErr = out.err
			}
		case <-ctx.Done():
			return aggregates.SynastryResult{}, aggregates.CompositeResult{},
				pkgerrors.NewTimeoutError("generateCharts").WithCause(ctx.Err())
		}
	}
	if firstErr != nil {
		return aggregates.SynastryResult{}, aggregates.CompositeResult{}, firstErr
	}
	return synastry, composite, nil
}

// wrapStageError turns a stage failure into a calculation error naming the
// stage. Validation errors pass through untouched so callers can still route
// them to 400 responses.
func wrapStageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.IsDomainValidationError(err) {
		return err
	}
	return pkgerrors.NewCalculationError(stage, err)
}

// synthesizeSummary derives the top-level read: relationship type from the
// overall score with a transformative override, long-term potential as a
// weighted blend, and a deduplicated top-five recommendation list.
func (o *AnalysisOrchestrator) synthesizeSummary(compatibility aggregates.CompatibilityResult, dynamics aggregates.DynamicsResult) aggregates.AnalysisSummary {
	potential := 0.4*float64(compatibility.Overall) +
		0.25*dynamics.Stability.Score +
		0.2*dynamics.Growth.Score +
		0.15*dynamics.Communication.Score

	recommendations := append([]string{}, compatibility.Recommendations...)
	if dynamics.Communication.Score < 50 {
		recommendations = append(recommendations, "Practice explicit, structured communication; assumptions will misfire")
	}
	if dynamics.ConflictResolution.Score < 50 {
		recommendations = append(recommendations, "Agree on conflict ground rules before disagreements heat up")
	}
	if dynamics.Stability.Score >= 70 {
		recommendations = append(recommendations, "Use the relationship's stability as a base for individual risks")
	}
	if dynamics.Growth.Score >= 70 {
		recommendations = append(recommendations, "Pursue shared learning projects; this bond thrives on growth")
	}
	if dynamics.Evolution.Transformative {
		recommendations = append(recommendations, "Expect periods of deep change and give each other room to evolve")
	}

	return aggregates.AnalysisSummary{
		RelationshipType:  relationshipTypeFor(compatibility.Overall, dynamics.Evolution),
		LongTermPotential: clampScore(potential),
		Recommendations:   topRecommendations(recommendations, 5),
	}
}

// relationshipTypeFor classifies by descending overall score. A strong
// transformative read overrides the score-based label.
func relationshipTypeFor(overall int, evolution aggregates.RelationshipEvolution) string {
	if evolution.Transformative &&
		(evolution.Intensity == aggregates.IntensityHigh || evolution.Intensity == aggregates.IntensityVeryHigh) {
		return "Transformative Bond"
	}
	switch {
	case overall >= 80:
		return "Soulmate Connection"
	case overall >= 70:
		return "Power Couple"
	case overall >= 60:
		return "Harmonious Partnership"
	case overall >= 50:
		return "Growth Partnership"
	case overall >= 40:
		return "Karmic Relationship"
	default:
		return "Challenging Bond"
	}
}

// topRecommendations deduplicates while preserving order, then caps the
// list.
func topRecommendations(recommendations []string, limit int) []string {
	seen := make(map[string]struct{}, len(recommendations))
	out := []string{}
	for _, recommendation := range recommendations {
		if _, ok := seen[recommendation]; ok {
			continue
		}
		seen[recommendation] = struct{}{}
		out = append(out, recommendation)
		if len(out) == limit {
			break
		}
	}
	return out
}
