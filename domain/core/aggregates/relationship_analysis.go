package aggregates

import (
	"time"

	"astraea-backend/domain/config"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/domain/events"
	pkgerrors "astraea-backend/pkg/errors"
)

// RelationshipAnalysis is the aggregate root for one full compatibility
// analysis between two birth charts. It is generated in a single pass by the
// orchestrator and never mutated afterwards; deletions happen at the
// repository level.
type RelationshipAnalysis struct {
	// Private fields ensure encapsulation
	id            valueobjects.AnalysisID
	userID        valueobjects.UserID
	chart1Label   valueobjects.ChartLabel
	chart2Label   valueobjects.ChartLabel
	synastry      SynastryResult
	composite     CompositeResult
	compatibility CompatibilityResult
	dynamics      DynamicsResult
	summary       AnalysisSummary
	generatedAt   time.Time
	systemVersion string
	version       int

	// Domain events that occurred during this aggregate's lifetime
	events []events.DomainEvent
}

// NewRelationshipAnalysis assembles a freshly computed analysis. The
// AnalysisID and GeneratedAt timestamp are minted here; an
// analysis.completed event is queued for the outbox.
func NewRelationshipAnalysis(
	userID valueobjects.UserID,
	chart1Label, chart2Label valueobjects.ChartLabel,
	synastry SynastryResult,
	composite CompositeResult,
	compatibility CompatibilityResult,
	dynamics DynamicsResult,
	summary AnalysisSummary,
	systemVersion string,
) (*RelationshipAnalysis, error) {
	if userID.IsZero() {
		return nil, pkgerrors.ErrUserNotFound.Clone().WithDetail("field", "userID")
	}

	defaults := config.DefaultDomainConfig()
	if chart1Label.IsZero() {
		chart1Label, _ = valueobjects.NewChartLabel(defaults.DefaultChart1Label)
	}
	if chart2Label.IsZero() {
		chart2Label, _ = valueobjects.NewChartLabel(defaults.DefaultChart2Label)
	}

	now := time.Now()
	analysis := &RelationshipAnalysis{
		id:            valueobjects.NewAnalysisID(),
		userID:        userID,
		chart1Label:   chart1Label,
		chart2Label:   chart2Label,
		synastry:      synastry,
		composite:     composite,
		compatibility: compatibility,
		dynamics:      dynamics,
		summary:       summary,
		generatedAt:   now,
		systemVersion: systemVersion,
		version:       1,
		events:        []events.DomainEvent{},
	}

	analysis.addEvent(events.NewAnalysisCompleted(
		analysis.id,
		userID.String(),
		chart1Label.String(),
		chart2Label.String(),
		compatibility.Overall,
		compatibility.Rating.Label,
		now,
	))

	return analysis, nil
}

// ReconstructAnalysis rebuilds an analysis from stored data with preserved
// identity and timestamps. No events are raised.
func ReconstructAnalysis(
	id valueobjects.AnalysisID,
	userID valueobjects.UserID,
	chart1Label, chart2Label valueobjects.ChartLabel,
	synastry SynastryResult,
	composite CompositeResult,
	compatibility CompatibilityResult,
	dynamics DynamicsResult,
	summary AnalysisSummary,
	generatedAt time.Time,
	systemVersion string,
	version int,
) (*RelationshipAnalysis, error) {
	if id.IsZero() {
		return nil, pkgerrors.ErrAnalysisNotFound.Clone().WithDetail("field", "analysisId")
	}
	if userID.IsZero() {
		return nil, pkgerrors.ErrUserNotFound.Clone().WithDetail("field", "userID")
	}
	if version < 1 {
		version = 1
	}

	return &RelationshipAnalysis{
		id:            id,
		userID:        userID,
		chart1Label:   chart1Label,
		chart2Label:   chart2Label,
		synastry:      synastry,
		composite:     composite,
		compatibility: compatibility,
		dynamics:      dynamics,
		summary:       summary,
		generatedAt:   generatedAt,
		systemVersion: systemVersion,
		version:       version,
		events:        []events.DomainEvent{},
	}, nil
}

// ID returns the analysis identifier.
func (a *RelationshipAnalysis) ID() valueobjects.AnalysisID {
	return a.id
}

// UserID returns the owning user.
func (a *RelationshipAnalysis) UserID() valueobjects.UserID {
	return a.userID
}

// Chart1Label returns the display label of the first chart.
func (a *RelationshipAnalysis) Chart1Label() valueobjects.ChartLabel {
	return a.chart1Label
}

// Chart2Label returns the display label of the second chart.
func (a *RelationshipAnalysis) Chart2Label() valueobjects.ChartLabel {
	return a.chart2Label
}

// Synastry returns the inter-chart comparison result.
func (a *RelationshipAnalysis) Synastry() SynastryResult {
	return a.synastry
}

// Composite returns the midpoint chart result.
func (a *RelationshipAnalysis) Composite() CompositeResult {
	return a.composite
}

// Compatibility returns the multi-factor score result.
func (a *RelationshipAnalysis) Compatibility() CompatibilityResult {
	return a.compatibility
}

// Dynamics returns the six-dimension dynamics result.
func (a *RelationshipAnalysis) Dynamics() DynamicsResult {
	return a.dynamics
}

// Summary returns the human-readable synthesis.
func (a *RelationshipAnalysis) Summary() AnalysisSummary {
	return a.summary
}

// GeneratedAt returns when the analysis was computed.
func (a *RelationshipAnalysis) GeneratedAt() time.Time {
	return a.generatedAt
}

// SystemVersion returns the engine version tag the analysis was computed
// with.
func (a *RelationshipAnalysis) SystemVersion() string {
	return a.systemVersion
}

// Version returns the aggregate version for optimistic locking.
func (a *RelationshipAnalysis) Version() int {
	return a.version
}

// GetUncommittedEvents returns all uncommitted domain events
func (a *RelationshipAnalysis) GetUncommittedEvents() []events.DomainEvent {
	uncommitted := make([]events.DomainEvent, len(a.events))
	copy(uncommitted, a.events)
	return uncommitted
}

// MarkEventsAsCommitted clears the uncommitted events
func (a *RelationshipAnalysis) MarkEventsAsCommitted() {
	a.events = []events.DomainEvent{}
}

// addEvent adds a domain event to the uncommitted list
func (a *RelationshipAnalysis) addEvent(event events.DomainEvent) {
	a.events = append(a.events, event)
}
