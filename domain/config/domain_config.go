package config

import (
	"fmt"
	"time"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Analysis constraints
	MaxAnalysesPerUser  int
	MaxBatchDeleteSize  int
	DefaultChart1Label  string
	DefaultChart2Label  string

	// Performance limits
	MaxConcurrentAnalyses int
	MaxAnalysesPerQuery   int
	EphemerisTimeout      time.Duration

	// Label constraints
	MaxLabelLength int
	MinLabelLength int

	// Time constraints
	AnalysisTTL       time.Duration
	AnalysisCacheTTL  time.Duration
	LockTimeout       time.Duration
	SessionTimeout    time.Duration
	ConnectionTimeout time.Duration

	// Validation settings
	AllowEmptyLabels     bool
	RequireHouseCusps    bool
	AllowPartialPlanets  bool

	// Feature flags
	EnableVertexConnections bool
	EnableLunarNodes        bool
	EnableResultCaching     bool
	EnableRealTimeNotify    bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Analysis constraints
		MaxAnalysesPerUser: 500,
		MaxBatchDeleteSize: 25,
		DefaultChart1Label: "Person 1",
		DefaultChart2Label: "Person 2",

		// Performance limits
		MaxConcurrentAnalyses: 10,
		MaxAnalysesPerQuery:   100,
		EphemerisTimeout:      10 * time.Second,

		// Label constraints
		MaxLabelLength: 100,
		MinLabelLength: 1,

		// Time constraints
		AnalysisTTL:       0, // No expiration by default
		AnalysisCacheTTL:  5 * time.Minute,
		LockTimeout:       30 * time.Second,
		SessionTimeout:    24 * time.Hour,
		ConnectionTimeout: 30 * time.Second,

		// Validation settings
		AllowEmptyLabels:    true,
		RequireHouseCusps:   false,
		AllowPartialPlanets: true,

		// Feature flags
		EnableVertexConnections: true,
		EnableLunarNodes:        true,
		EnableResultCaching:     true,
		EnableRealTimeNotify:    true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More restrictive limits for production
	config.MaxAnalysesPerUser = 200
	config.MaxConcurrentAnalyses = 5
	config.MaxAnalysesPerQuery = 50
	config.AnalysisTTL = 90 * 24 * time.Hour

	// Stricter validation
	config.AllowEmptyLabels = false

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development
	config.MaxAnalysesPerUser = 10000
	config.MaxConcurrentAnalyses = 50
	config.AllowEmptyLabels = true
	config.AllowPartialPlanets = true

	// Disable caching so changes show up immediately
	config.EnableResultCaching = false

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.MaxAnalysesPerUser <= 0 {
		return fmt.Errorf("MaxAnalysesPerUser must be positive, got %d", c.MaxAnalysesPerUser)
	}
	if c.MaxBatchDeleteSize <= 0 || c.MaxBatchDeleteSize > 25 {
		return fmt.Errorf("MaxBatchDeleteSize must be within (0, 25], got %d", c.MaxBatchDeleteSize)
	}
	if c.MinLabelLength < 0 || c.MaxLabelLength < c.MinLabelLength {
		return fmt.Errorf("label length bounds invalid: min %d, max %d", c.MinLabelLength, c.MaxLabelLength)
	}
	if c.AnalysisTTL < 0 || c.AnalysisCacheTTL < 0 {
		return fmt.Errorf("TTL values cannot be negative")
	}
	if c.MaxConcurrentAnalyses <= 0 {
		return fmt.Errorf("MaxConcurrentAnalyses must be positive, got %d", c.MaxConcurrentAnalyses)
	}
	return nil
}
