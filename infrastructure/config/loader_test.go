package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoader_DefaultsWhenNoFiles(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	dir := t.TempDir()

	cfg, err := NewLoader(dir, "development").Load()

	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.PersistenceDriver)
	assert.Equal(t, "astraea", cfg.DynamoDBTable)
	assert.Equal(t, "astraea-events", cfg.EventBusName)
	assert.Equal(t, 300, cfg.CacheTTL)
	assert.Equal(t, []string{"defaults", "environment"}, cfg.LoadedFrom)
}

func TestLoader_BaseFileOverridesDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", "cache_ttl_seconds: 60\nretention_days: 90\n")

	cfg, err := NewLoader(dir, "development").Load()

	require.NoError(t, err)
	assert.Equal(t, 60, cfg.CacheTTL)
	assert.Equal(t, 90, cfg.RetentionDays)
	// Untouched settings keep their defaults
	assert.Equal(t, DriverMemory, cfg.PersistenceDriver)
	assert.Contains(t, cfg.LoadedFrom, filepath.Join(dir, "base.yaml"))
}

func TestLoader_EnvironmentFileOverridesBase(t *testing.T) {
	t.Setenv("ENVIRONMENT", "staging")
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", "cache_ttl_seconds: 60\nsqlite_path: base.db\n")
	writeConfigFile(t, dir, "staging.yaml", "cache_ttl_seconds: 120\n")

	cfg, err := NewLoader(dir, "staging").Load()

	require.NoError(t, err)
	assert.Equal(t, 120, cfg.CacheTTL)
	assert.Equal(t, "base.db", cfg.SQLitePath)
}

func TestLoader_LocalOverridesOnlyInDevelopment(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "local.yaml", "cache_ttl_seconds: 5\n")

	t.Setenv("ENVIRONMENT", "development")
	dev, err := NewLoader(dir, "development").Load()
	require.NoError(t, err)
	assert.Equal(t, 5, dev.CacheTTL)

	t.Setenv("ENVIRONMENT", "staging")
	staging, err := NewLoader(dir, "staging").Load()
	require.NoError(t, err)
	assert.Equal(t, 300, staging.CacheTTL)
}

func TestLoader_EnvVarsWinOverFiles(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("CACHE_TTL_SECONDS", "7")
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", "cache_ttl_seconds: 60\n")

	cfg, err := NewLoader(dir, "development").Load()

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.CacheTTL)
}

func TestLoader_EmptyFileOverlaysNothing(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", "")

	cfg, err := NewLoader(dir, "development").Load()

	require.NoError(t, err)
	assert.Equal(t, 300, cfg.CacheTTL)
}

func TestLoader_MalformedFileFails(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", "cache_ttl_seconds: [not an int\n")

	_, err := NewLoader(dir, "development").Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load base config")
}

func TestLoader_JSONFallback(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.json", `{"retention_days": 30}`)

	cfg, err := NewLoader(dir, "development").Load()

	require.NoError(t, err)
	assert.Equal(t, 30, cfg.RetentionDays)
}

func TestConfig_ValidateRejectsUnknownDriver(t *testing.T) {
	cfg := defaultConfig()
	cfg.PersistenceDriver = "etcd"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown persistence driver")
}

func TestConfig_ValidateEphemerisNeedsURL(t *testing.T) {
	cfg := defaultConfig()
	cfg.Ephemeris.Enabled = true
	cfg.Ephemeris.BaseURL = ""

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "EPHEMERIS_URL")
}

func TestConfig_ValidateProductionRequirements(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) {},
			wantErr: "JWT_SECRET",
		},
		{
			name: "memory driver forbidden",
			mutate: func(c *Config) {
				c.JWTSecret = "secret"
			},
			wantErr: "memory driver",
		},
		{
			name: "valid production config",
			mutate: func(c *Config) {
				c.JWTSecret = "secret"
				c.PersistenceDriver = DriverDynamoDB
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Environment = "production"
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
