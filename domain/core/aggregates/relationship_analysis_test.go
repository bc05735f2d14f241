package aggregates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astraea-backend/domain/config"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/domain/events"
)

func testUserID(t *testing.T) valueobjects.UserID {
	t.Helper()
	userID, err := valueobjects.NewUserID("user-123")
	require.NoError(t, err)
	return userID
}

func testCompatibility() CompatibilityResult {
	return CompatibilityResult{
		Overall:   72,
		Breakdown: ScoreBreakdown{Synastry: 70, Composite: 75, Dynamics: 70},
		Rating:    config.Rating{Label: "Very Strong", Description: "A naturally supportive pairing."},
	}
}

func TestNewRelationshipAnalysis(t *testing.T) {
	label1, err := valueobjects.NewChartLabel("Alice")
	require.NoError(t, err)
	label2, err := valueobjects.NewChartLabel("Bob")
	require.NoError(t, err)

	analysis, err := NewRelationshipAnalysis(
		testUserID(t),
		label1, label2,
		SynastryResult{Score: 70},
		CompositeResult{},
		testCompatibility(),
		DynamicsResult{},
		AnalysisSummary{RelationshipType: "Harmonious Partnership"},
		"astraea-core/1.4.0",
	)
	require.NoError(t, err)

	assert.False(t, analysis.ID().IsZero())
	assert.Equal(t, "user-123", analysis.UserID().String())
	assert.Equal(t, "Alice", analysis.Chart1Label().String())
	assert.Equal(t, "Bob", analysis.Chart2Label().String())
	assert.Equal(t, 72, analysis.Compatibility().Overall)
	assert.Equal(t, 1, analysis.Version())
	assert.WithinDuration(t, time.Now(), analysis.GeneratedAt(), time.Second)

	uncommitted := analysis.GetUncommittedEvents()
	require.Len(t, uncommitted, 1)
	completed, ok := uncommitted[0].(events.AnalysisCompleted)
	require.True(t, ok)
	assert.Equal(t, "analysis.completed", completed.GetEventType())
	assert.Equal(t, analysis.ID().String(), completed.GetAggregateID())
	assert.Equal(t, 72, completed.OverallScore)
	assert.Equal(t, "Very Strong", completed.Rating)

	analysis.MarkEventsAsCommitted()
	assert.Empty(t, analysis.GetUncommittedEvents())
}

func TestNewRelationshipAnalysisDefaultsLabels(t *testing.T) {
	analysis, err := NewRelationshipAnalysis(
		testUserID(t),
		valueobjects.ChartLabel{}, valueobjects.ChartLabel{},
		SynastryResult{},
		CompositeResult{},
		testCompatibility(),
		DynamicsResult{},
		AnalysisSummary{},
		"astraea-core/1.4.0",
	)
	require.NoError(t, err)

	defaults := config.DefaultDomainConfig()
	assert.Equal(t, defaults.DefaultChart1Label, analysis.Chart1Label().String())
	assert.Equal(t, defaults.DefaultChart2Label, analysis.Chart2Label().String())
}

func TestNewRelationshipAnalysisRequiresUser(t *testing.T) {
	_, err := NewRelationshipAnalysis(
		valueobjects.UserID{},
		valueobjects.ChartLabel{}, valueobjects.ChartLabel{},
		SynastryResult{},
		CompositeResult{},
		testCompatibility(),
		DynamicsResult{},
		AnalysisSummary{},
		"astraea-core/1.4.0",
	)
	require.Error(t, err)
}

func TestReconstructAnalysis(t *testing.T) {
	id := valueobjects.NewAnalysisID()
	generatedAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	analysis, err := ReconstructAnalysis(
		id,
		testUserID(t),
		valueobjects.ChartLabel{}, valueobjects.ChartLabel{},
		SynastryResult{Score: 61.5},
		CompositeResult{},
		testCompatibility(),
		DynamicsResult{},
		AnalysisSummary{},
		generatedAt,
		"astraea-core/1.3.9",
		3,
	)
	require.NoError(t, err)

	assert.True(t, analysis.ID().Equals(id))
	assert.Equal(t, generatedAt, analysis.GeneratedAt())
	assert.Equal(t, "astraea-core/1.3.9", analysis.SystemVersion())
	assert.Equal(t, 3, analysis.Version())
	assert.InDelta(t, 61.5, analysis.Synastry().Score, 1e-9)

	// Reconstruction never raises events.
	assert.Empty(t, analysis.GetUncommittedEvents())
}

func TestReconstructAnalysisRejectsZeroID(t *testing.T) {
	_, err := ReconstructAnalysis(
		valueobjects.AnalysisID{},
		testUserID(t),
		valueobjects.ChartLabel{}, valueobjects.ChartLabel{},
		SynastryResult{},
		CompositeResult{},
		testCompatibility(),
		DynamicsResult{},
		AnalysisSummary{},
		time.Now(),
		"astraea-core/1.4.0",
		1,
	)
	require.Error(t, err)
}
