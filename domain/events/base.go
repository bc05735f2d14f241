package events

import (
	"time"

	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
)

// SourceAstraea is the event source attached to every event this service emits.
const SourceAstraea = "astraea.backend"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Analysis Events

// AnalysisRequested is raised when a relationship analysis has been asked for
// but not yet computed. The analysis-worker consumes it for async generation,
// so the event carries the full chart payload: the worker must be able to run
// from the event alone.
type AnalysisRequested struct {
	BaseEvent
	AnalysisID  valueobjects.AnalysisID `json:"analysis_id"`
	UserID      string                  `json:"user_id"`
	Chart1      *entities.BirthChart    `json:"chart1,omitempty"`
	Chart2      *entities.BirthChart    `json:"chart2,omitempty"`
	Chart1Label string                  `json:"chart1_label"`
	Chart2Label string                  `json:"chart2_label"`
}

// NewAnalysisRequested creates an AnalysisRequested event
func NewAnalysisRequested(analysisID valueobjects.AnalysisID, userID, chart1Label, chart2Label string, timestamp time.Time) AnalysisRequested {
	return AnalysisRequested{
		BaseEvent: BaseEvent{
			AggregateID: analysisID.String(),
			EventType:   "analysis.requested",
			Timestamp:   timestamp,
			Version:     1,
		},
		AnalysisID:  analysisID,
		UserID:      userID,
		Chart1Label: chart1Label,
		Chart2Label: chart2Label,
	}
}

// WithCharts attaches the chart payload for async consumers.
func (e AnalysisRequested) WithCharts(chart1, chart2 *entities.BirthChart) AnalysisRequested {
	e.Chart1 = chart1
	e.Chart2 = chart2
	return e
}

// AnalysisCompleted is raised when a relationship analysis has been fully
// computed and persisted. ws-notify fans it out to live connections.
type AnalysisCompleted struct {
	BaseEvent
	AnalysisID   valueobjects.AnalysisID `json:"analysis_id"`
	UserID       string                  `json:"user_id"`
	Chart1Label  string                  `json:"chart1_label"`
	Chart2Label  string                  `json:"chart2_label"`
	OverallScore int                     `json:"overall_score"`
	Rating       string                  `json:"rating"`
}

// NewAnalysisCompleted creates an AnalysisCompleted event
func NewAnalysisCompleted(analysisID valueobjects.AnalysisID, userID, chart1Label, chart2Label string, overallScore int, rating string, timestamp time.Time) AnalysisCompleted {
	return AnalysisCompleted{
		BaseEvent: BaseEvent{
			AggregateID: analysisID.String(),
			EventType:   "analysis.completed",
			Timestamp:   timestamp,
			Version:     1,
		},
		AnalysisID:   analysisID,
		UserID:       userID,
		Chart1Label:  chart1Label,
		Chart2Label:  chart2Label,
		OverallScore: overallScore,
		Rating:       rating,
	}
}

// AnalysisDeleted is raised when a stored analysis is removed, either by the
// owning user or by the retention purge.
type AnalysisDeleted struct {
	BaseEvent
	AnalysisID valueobjects.AnalysisID `json:"analysis_id"`
	UserID     string                  `json:"user_id"`
	Purged     bool                    `json:"purged"`
}

// NewAnalysisDeleted creates an AnalysisDeleted event
func NewAnalysisDeleted(analysisID valueobjects.AnalysisID, userID string, purged bool, timestamp time.Time) AnalysisDeleted {
	return AnalysisDeleted{
		BaseEvent: BaseEvent{
			AggregateID: analysisID.String(),
			EventType:   "analysis.deleted",
			Timestamp:   timestamp,
			Version:     1,
		},
		AnalysisID: analysisID,
		UserID:     userID,
		Purged:     purged,
	}
}

// AnalysisFailed is raised when the generation pipeline fails after the
// request was accepted. Carries the failing stage for diagnostics.
type AnalysisFailed struct {
	BaseEvent
	AnalysisID valueobjects.AnalysisID `json:"analysis_id"`
	UserID     string                  `json:"user_id"`
	Stage      string                  `json:"stage"`
	Reason     string                  `json:"reason"`
}

// NewAnalysisFailed creates an AnalysisFailed event
func NewAnalysisFailed(analysisID valueobjects.AnalysisID, userID, stage, reason string, timestamp time.Time) AnalysisFailed {
	return AnalysisFailed{
		BaseEvent: BaseEvent{
			AggregateID: analysisID.String(),
			EventType:   "analysis.failed",
			Timestamp:   timestamp,
			Version:     1,
		},
		AnalysisID: analysisID,
		UserID:     userID,
		Stage:      stage,
		Reason:     reason,
	}
}
