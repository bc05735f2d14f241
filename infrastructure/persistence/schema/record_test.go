package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astraea-backend/tests/fixtures"
)

func TestAnalysisRecord_RoundTrip(t *testing.T) {
	analysis := fixtures.NewAnalysisBuilder().
		WithLabels("Alice", "Ben").
		MustBuild()

	data, err := NewAnalysisRecord(analysis).Encode()
	require.NoError(t, err)

	record, err := DecodeAnalysisRecord(data)
	require.NoError(t, err)

	restored, err := record.ToDomain()
	require.NoError(t, err)

	assert.Equal(t, analysis.ID(), restored.ID())
	assert.Equal(t, analysis.UserID(), restored.UserID())
	assert.Equal(t, "Alice", restored.Chart1Label().String())
	assert.Equal(t, "Ben", restored.Chart2Label().String())
	assert.Equal(t, analysis.Compatibility().Overall, restored.Compatibility().Overall)
	assert.Equal(t, analysis.Compatibility().Rating, restored.Compatibility().Rating)
	assert.Equal(t, analysis.Dynamics().Overall, restored.Dynamics().Overall)
	assert.Equal(t, analysis.Summary(), restored.Summary())
	assert.Equal(t, analysis.SystemVersion(), restored.SystemVersion())
	assert.WithinDuration(t, analysis.GeneratedAt(), restored.GeneratedAt(), 0)
	assert.Empty(t, restored.GetUncommittedEvents())

	// Composite chart survives with its positions intact
	require.NotNil(t, restored.Composite().Chart)
	assert.Equal(t, analysis.Composite().Chart.PlanetCount(), restored.Composite().Chart.PlanetCount())
	assert.Len(t, restored.Synastry().InterAspects, len(analysis.Synastry().InterAspects))
}

func TestDecodeAnalysisRecord_MigratesVersionOne(t *testing.T) {
	// Version 1 stored the rating as a bare label and carried no
	// schemaVersion field.
	analysis := fixtures.NewAnalysisBuilder().MustBuild()
	record := NewAnalysisRecord(analysis)
	data, err := record.Encode()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	delete(doc, "schemaVersion")
	compat := doc["compatibility"].(map[string]interface{})
	compat["rating"] = "Strong"
	compat["overall"] = float64(65)
	legacy, err := json.Marshal(doc)
	require.NoError(t, err)

	migrated, err := DecodeAnalysisRecord(legacy)

	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, migrated.SchemaVersion)
	assert.Equal(t, 65, migrated.Compatibility.Overall)
	assert.Equal(t, "Strong", migrated.Compatibility.Rating.Label)
	assert.NotEmpty(t, migrated.Compatibility.Rating.Description)
}

func TestDecodeAnalysisRecord_RejectsNewerVersion(t *testing.T) {
	analysis := fixtures.NewAnalysisBuilder().MustBuild()
	data, err := NewAnalysisRecord(analysis).Encode()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	doc["schemaVersion"] = float64(CurrentVersion + 1)
	future, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = DecodeAnalysisRecord(future)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestDecodeAnalysisRecord_RejectsGarbage(t *testing.T) {
	_, err := DecodeAnalysisRecord([]byte("not json"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode analysis record")
}

func TestEvolution_RegisterMigrationValidation(t *testing.T) {
	e := NewEvolution()

	err := e.RegisterMigration(Migration{FromVersion: 3, ToVersion: 2, Up: func(map[string]interface{}) error { return nil }})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from_version must be less than to_version")

	err = e.RegisterMigration(Migration{FromVersion: 1, ToVersion: 2, Up: func(map[string]interface{}) error { return nil }})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestEvolution_UpgradeFailsOnGap(t *testing.T) {
	e := &Evolution{}

	doc := map[string]interface{}{"schemaVersion": float64(1)}
	err := e.Upgrade(doc)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no migration found")
}
