package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/valueobjects"
)

// AnalysisRecord is the storage document for one relationship analysis.
// All drivers persist this same JSON shape; DynamoDB additionally splits a
// few fields into top-level attributes for keys and indexes.
type AnalysisRecord struct {
	SchemaVersion int    `json:"schemaVersion"`
	ID            string `json:"id"`
	UserID        string `json:"userId"`
	Chart1Label   string `json:"chart1Label"`
	Chart2Label   string `json:"chart2Label"`

	Synastry      aggregates.SynastryResult      `json:"synastry"`
	Composite     aggregates.CompositeResult     `json:"composite"`
	Compatibility aggregates.CompatibilityResult `json:"compatibility"`
	Dynamics      aggregates.DynamicsResult      `json:"dynamics"`
	Summary       aggregates.AnalysisSummary     `json:"summary"`

	GeneratedAt   time.Time `json:"generatedAt"`
	SystemVersion string    `json:"systemVersion"`
	Version       int       `json:"version"`
}

// NewAnalysisRecord converts an aggregate into its storage document.
func NewAnalysisRecord(analysis *aggregates.RelationshipAnalysis) *AnalysisRecord {
	return &AnalysisRecord{
		SchemaVersion: CurrentVersion,
		ID:            analysis.ID().String(),
		UserID:        analysis.UserID().String(),
		Chart1Label:   analysis.Chart1Label().String(),
		Chart2Label:   analysis.Chart2Label().String(),
		Synastry:      analysis.Synastry(),
		Composite:     analysis.Composite(),
		Compatibility: analysis.Compatibility(),
		Dynamics:      analysis.Dynamics(),
		Summary:       analysis.Summary(),
		GeneratedAt:   analysis.GeneratedAt(),
		SystemVersion: analysis.SystemVersion(),
		Version:       analysis.Version(),
	}
}

// Encode serializes the record for storage.
func (r *AnalysisRecord) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis record: %w", err)
	}
	return data, nil
}

// DecodeAnalysisRecord deserializes a stored document, migrating old schema
// versions forward before the final decode.
func DecodeAnalysisRecord(data []byte) (*AnalysisRecord, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode analysis record: %w", err)
	}

	if err := NewEvolution().Upgrade(doc); err != nil {
		return nil, err
	}

	migrated, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode migrated record: %w", err)
	}

	var record AnalysisRecord
	if err := json.Unmarshal(migrated, &record); err != nil {
		return nil, fmt.Errorf("failed to decode migrated record: %w", err)
	}

	return &record, nil
}

// ToDomain rebuilds the aggregate from the record.
func (r *AnalysisRecord) ToDomain() (*aggregates.RelationshipAnalysis, error) {
	id, err := valueobjects.NewAnalysisIDFromString(r.ID)
	if err != nil {
		return nil, fmt.Errorf("stored record has invalid analysis ID %q: %w", r.ID, err)
	}

	userID, err := valueobjects.NewUserID(r.UserID)
	if err != nil {
		return nil, fmt.Errorf("stored record has invalid user ID: %w", err)
	}

	chart1Label, err := recordLabel(r.Chart1Label)
	if err != nil {
		return nil, err
	}
	chart2Label, err := recordLabel(r.Chart2Label)
	if err != nil {
		return nil, err
	}

	return aggregates.ReconstructAnalysis(
		id,
		userID,
		chart1Label,
		chart2Label,
		r.Synastry,
		r.Composite,
		r.Compatibility,
		r.Dynamics,
		r.Summary,
		r.GeneratedAt,
		r.SystemVersion,
		r.Version,
	)
}

// recordLabel parses a stored chart label. Early records could store blank
// labels; those stay zero rather than failing the read.
func recordLabel(value string) (valueobjects.ChartLabel, error) {
	if value == "" {
		return valueobjects.ChartLabel{}, nil
	}
	label, err := valueobjects.NewChartLabel(value)
	if err != nil {
		return valueobjects.ChartLabel{}, fmt.Errorf("stored record has invalid chart label: %w", err)
	}
	return label, nil
}
