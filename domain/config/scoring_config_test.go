package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "astraea-backend/domain/core/valueobjects"
)

func TestDefaultScoringConfigTables(t *testing.T) {
	cfg := DefaultScoringConfig()

	assert.Equal(t, 1.0, cfg.AspectWeight(vo.Conjunction))
	assert.Equal(t, 0.8, cfg.AspectWeight(vo.Trine))
	assert.Equal(t, 0.2, cfg.AspectWeight(vo.Quincunx))

	assert.Equal(t, 1.0, cfg.PlanetWeight(vo.Sun))
	assert.Equal(t, 0.1, cfg.PlanetWeight(vo.Pluto))
	assert.Equal(t, 0.4, cfg.PlanetWeight(vo.Rahu))
	assert.Equal(t, 0.0, cfg.PlanetWeight(vo.Planet("ceres")))

	assert.Equal(t, 1.0, cfg.AngleWeight(vo.Ascendant))
	assert.Equal(t, 0.5, cfg.AngleWeight(vo.Vertex))

	assert.Equal(t, 1.0, cfg.HouseWeight(1))
	assert.Equal(t, 1.0, cfg.HouseWeight(7))
	assert.Equal(t, 0.3, cfg.HouseWeight(12))
	assert.Equal(t, 0.0, cfg.HouseWeight(13))
}

func TestScoringConfigOrbsFollowKindDefaults(t *testing.T) {
	cfg := DefaultScoringConfig()
	for _, kind := range vo.AspectKindsByAngle() {
		assert.Equal(t, kind.MaxOrb(), cfg.MaxOrb(kind), "kind %s", kind)
	}
}

func TestScoringConfigRatingBands(t *testing.T) {
	cfg := DefaultScoringConfig()

	tests := []struct {
		score int
		want  string
	}{
		{95, "Exceptional"},
		{80, "Exceptional"},
		{79, "Very Strong"},
		{70, "Very Strong"},
		{65, "Strong"},
		{55, "Moderate"},
		{45, "Challenging"},
		{39, "Very Challenging"},
		{0, "Very Challenging"},
	}

	for _, tt := range tests {
		got := cfg.RatingFor(tt.score)
		assert.Equal(t, tt.want, got.Label, "score %d", tt.score)
		assert.NotEmpty(t, got.Description)
	}
}

func TestScoringConfigBlendsSumToOne(t *testing.T) {
	cfg := DefaultScoringConfig()

	a, o := cfg.SynastryBlend()
	assert.InDelta(t, 1.0, a+o, 1e-9)

	ca, can, cb := cfg.CompositeBlend()
	assert.InDelta(t, 1.0, ca+can+cb, 1e-9)

	os, oc, od := cfg.OverallBlend()
	assert.InDelta(t, 1.0, os+oc+od, 1e-9)
}

func TestDomainConfigValidate(t *testing.T) {
	require.NoError(t, DefaultDomainConfig().Validate())
	require.NoError(t, ProductionDomainConfig().Validate())
	require.NoError(t, DevelopmentDomainConfig().Validate())

	bad := DefaultDomainConfig()
	bad.MaxBatchDeleteSize = 100
	require.Error(t, bad.Validate())

	bad = DefaultDomainConfig()
	bad.MinLabelLength = 50
	bad.MaxLabelLength = 10
	require.Error(t, bad.Validate())
}

func TestLoadDomainConfig(t *testing.T) {
	assert.Equal(t, ProductionDomainConfig(), LoadDomainConfig("production"))
	assert.Equal(t, DevelopmentDomainConfig(), LoadDomainConfig("development"))
	assert.Equal(t, DefaultDomainConfig(), LoadDomainConfig("anything-else"))
}
