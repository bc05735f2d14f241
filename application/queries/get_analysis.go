package queries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"astraea-backend/application/ports"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/domain/versioning"
	pkgerrors "astraea-backend/pkg/errors"
)

// GetAnalysisQuery represents a query to retrieve one stored analysis
type GetAnalysisQuery struct {
	UserID     string `json:"user_id"`
	AnalysisID string `json:"analysis_id"`
}

// Validate validates the query
func (q GetAnalysisQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	if q.AnalysisID == "" {
		return errors.New("analysis ID is required")
	}
	return nil
}

// GetAnalysisHandler handles the GetAnalysisQuery
type GetAnalysisHandler struct {
	analysisRepo ports.AnalysisRepository
	cache        ports.Cache
	versioning   *versioning.VersioningService
	policy       versioning.RegenerationPolicy
	nowFn        func() time.Time
}

// NewGetAnalysisHandler creates a new handler instance
func NewGetAnalysisHandler(analysisRepo ports.AnalysisRepository, cache ports.Cache) *GetAnalysisHandler {
	return &GetAnalysisHandler{
		analysisRepo: analysisRepo,
		cache:        cache,
		versioning:   versioning.NewVersioningService(),
		policy:       versioning.DefaultRegenerationPolicy(),
		nowFn:        time.Now,
	}
}

// Handle executes the get analysis query
func (h *GetAnalysisHandler) Handle(ctx context.Context, query GetAnalysisQuery) (*aggregates.RelationshipAnalysis, error) {
	// Check cache first. Keys are user-scoped so one account can never see
	// another's cached read.
	cacheKey := fmt.Sprintf("analysis:%s:%s", query.UserID, query.AnalysisID)
	if cached, found := h.cache.Get(ctx, cacheKey); found {
		if analysis, ok := cached.(*aggregates.RelationshipAnalysis); ok {
			return analysis, nil
		}
	}

	userID, err := valueobjects.NewUserID(query.UserID)
	if err != nil {
		return nil, err
	}

	analysisID, err := valueobjects.NewAnalysisIDFromString(query.AnalysisID)
	if err != nil {
		return nil, err
	}

	analysis, err := h.analysisRepo.FindByID(ctx, userID, analysisID)
	if err != nil {
		return nil, err
	}

	// Results from an engine with a different major version are built from
	// different tables and cannot be served beside fresh ones. The charts
	// are not stored, so regeneration is the caller's move. Cached entries
	// skip the check: the process and its cache restart with the engine.
	provenance, err := h.versioning.DescribeVersion(analysis)
	if err != nil {
		return nil, err
	}
	if h.policy.ShouldRegenerate(provenance, h.versioning, h.nowFn()) {
		return nil, pkgerrors.ErrAnalysisOutdated.Clone().
			WithDetail("storedVersion", provenance.SystemVersion).
			WithDetail("currentVersion", h.versioning.CurrentVersion())
	}

	// Cache for 5 minutes. Analyses are immutable once stored, so the only
	// staleness is a deleted record lingering until the TTL runs out.
	h.cache.Set(ctx, cacheKey, analysis, 300)

	return analysis, nil
}
