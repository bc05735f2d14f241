package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Persistence driver names accepted by PERSISTENCE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`
	ReadTimeout   int    `yaml:"read_timeout_seconds"`
	WriteTimeout  int    `yaml:"write_timeout_seconds"`
	IdleTimeout   int    `yaml:"idle_timeout_seconds"`

	// Persistence configuration
	PersistenceDriver string `yaml:"persistence_driver"` // memory | sqlite | dynamodb
	SQLitePath        string `yaml:"sqlite_path"`

	// AWS configuration
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	IndexName     string `yaml:"index_name"` // GSI1 - user analyses ordered by generation time
	EventBusName  string `yaml:"event_bus_name"`

	// Lambda configuration
	IsLambda           bool   `yaml:"is_lambda"`
	LambdaFunctionName string `yaml:"-"`
	ColdStartTimeout   int    `yaml:"cold_start_timeout"` // milliseconds

	// WebSocket configuration
	WebSocketEndpoint string `yaml:"websocket_endpoint"`
	ConnectionsTable  string `yaml:"connections_table"`

	// Ephemeris collaborator (charts computed externally from birth data)
	Ephemeris EphemerisConfig `yaml:"ephemeris"`

	// Rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Retention: analyses older than this are eligible for purge. Zero keeps forever.
	RetentionDays int `yaml:"retention_days"`

	// Read-side cache TTL in seconds
	CacheTTL int `yaml:"cache_ttl_seconds"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Authentication
	JWTSecret   string `yaml:"jwt_secret"`
	JWTIssuer   string `yaml:"jwt_issuer"`
	SupabaseURL string `yaml:"supabase_url"`
	SupabaseKey string `yaml:"supabase_key"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing"`
	EnableCORS    bool `yaml:"enable_cors"`

	// Files that contributed to this configuration, in load order.
	LoadedFrom []string `yaml:"-"`
}

// EphemerisConfig controls the external chart-position provider.
// Scoring never depends on these values; they only shape the ACL client.
type EphemerisConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BaseURL     string `yaml:"base_url"`
	Timeout     int    `yaml:"timeout_ms"`
	MaxFailures int    `yaml:"max_failures"`      // consecutive failures before the breaker opens
	OpenSeconds int    `yaml:"open_interval_sec"` // how long the breaker stays open
}

// RateLimitConfig controls per-user request throttling on the REST API.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()
	cfg.applyEnvOverrides()

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

// defaultConfig returns the baseline configuration before files and env vars apply.
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":8080",
		Environment:   "development",
		ReadTimeout:   15,
		WriteTimeout:  15,
		IdleTimeout:   60,

		PersistenceDriver: DriverMemory,
		SQLitePath:        "astraea.db",

		AWSRegion:     "us-west-2",
		DynamoDBTable: "astraea",
		IndexName:     "AnalysisDateIndex",
		EventBusName:  "astraea-events",

		ColdStartTimeout: 3000,
		ConnectionsTable: "astraea-connections",

		Ephemeris: EphemerisConfig{
			Enabled:     false,
			Timeout:     5000,
			MaxFailures: 5,
			OpenSeconds: 30,
		},

		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
			Burst:             20,
		},

		CacheTTL: 300,

		LogLevel:  "info",
		JWTIssuer: "astraea-backend",

		EnableCORS: true,
	}
}

// applyEnvOverrides layers environment variables over the current values.
// Environment variables always win, including over file-loaded values.
func (c *Config) applyEnvOverrides() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ReadTimeout = getEnvInt("SERVER_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvInt("SERVER_WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = getEnvInt("SERVER_IDLE_TIMEOUT", c.IdleTimeout)

	c.PersistenceDriver = getEnv("PERSISTENCE_DRIVER", c.PersistenceDriver)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.IndexName = getEnv("INDEX_NAME", c.IndexName)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda)
	c.LambdaFunctionName = getEnv("AWS_LAMBDA_FUNCTION_NAME", c.LambdaFunctionName)
	c.ColdStartTimeout = getEnvInt("COLD_START_TIMEOUT", c.ColdStartTimeout)

	c.WebSocketEndpoint = getEnv("WEBSOCKET_ENDPOINT", c.WebSocketEndpoint)
	c.ConnectionsTable = getEnv("CONNECTIONS_TABLE", c.ConnectionsTable)

	c.Ephemeris.Enabled = getEnvBool("EPHEMERIS_ENABLED", c.Ephemeris.Enabled)
	c.Ephemeris.BaseURL = getEnv("EPHEMERIS_URL", c.Ephemeris.BaseURL)
	c.Ephemeris.Timeout = getEnvInt("EPHEMERIS_TIMEOUT_MS", c.Ephemeris.Timeout)
	c.Ephemeris.MaxFailures = getEnvInt("EPHEMERIS_MAX_FAILURES", c.Ephemeris.MaxFailures)
	c.Ephemeris.OpenSeconds = getEnvInt("EPHEMERIS_OPEN_INTERVAL", c.Ephemeris.OpenSeconds)

	c.RateLimit.Enabled = getEnvBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RequestsPerMinute = getEnvInt("RATE_LIMIT_RPM", c.RateLimit.RequestsPerMinute)
	c.RateLimit.Burst = getEnvInt("RATE_LIMIT_BURST", c.RateLimit.Burst)

	c.RetentionDays = getEnvInt("RETENTION_DAYS", c.RetentionDays)
	c.CacheTTL = getEnvInt("CACHE_TTL_SECONDS", c.CacheTTL)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.SupabaseURL = getEnv("SUPABASE_URL", c.SupabaseURL)
	c.SupabaseKey = getEnv("SUPABASE_ANON_KEY", c.SupabaseKey)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.PersistenceDriver {
	case DriverMemory, DriverSQLite, DriverDynamoDB:
	default:
		return fmt.Errorf("unknown persistence driver %q", c.PersistenceDriver)
	}

	if c.PersistenceDriver == DriverSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
	}

	if c.Ephemeris.Enabled && c.Ephemeris.BaseURL == "" {
		return fmt.Errorf("EPHEMERIS_URL is required when the ephemeris provider is enabled")
	}

	if c.RetentionDays < 0 {
		return fmt.Errorf("RETENTION_DAYS cannot be negative")
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.PersistenceDriver == DriverMemory {
			return fmt.Errorf("the memory driver is not allowed in production")
		}
		if c.PersistenceDriver == DriverDynamoDB && c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// EphemerisTimeout returns the ephemeris client timeout as a duration.
func (c *Config) EphemerisTimeout() time.Duration {
	return time.Duration(c.Ephemeris.Timeout) * time.Millisecond
}

// CacheTTLDuration returns the read-cache TTL as a duration.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
