package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
)

// SystemVersion is the engine tag stamped into every generated analysis.
// Bump the major segment whenever a scoring table or formula changes in a
// way that makes stored results incomparable with fresh ones.
const SystemVersion = "astraea-core/1.4.0"

// AnalysisVersion is the provenance record of one stored analysis.
type AnalysisVersion struct {
	AnalysisID    string    `json:"analysis_id"`
	SystemVersion string    `json:"system_version"`
	Checksum      string    `json:"checksum"`
	OverallScore  int       `json:"overall_score"`
	GeneratedAt   time.Time `json:"generated_at"`
	CreatedBy     string    `json:"created_by"`
}

// VersioningService fingerprints analyses and their inputs and decides
// whether stored results from older engine versions are still servable.
type VersioningService struct {
	currentVersion string
}

// NewVersioningService creates a versioning service pinned to the running
// engine version.
func NewVersioningService() *VersioningService {
	return &VersioningService{currentVersion: SystemVersion}
}

// CurrentVersion returns the running engine version tag.
func (s *VersioningService) CurrentVersion() string {
	return s.currentVersion
}

// DescribeVersion builds the provenance record for a stored analysis.
func (s *VersioningService) DescribeVersion(analysis *aggregates.RelationshipAnalysis) (*AnalysisVersion, error) {
	if analysis == nil {
		return nil, fmt.Errorf("analysis cannot be nil")
	}

	checksum, err := s.Fingerprint(analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return &AnalysisVersion{
		AnalysisID:    analysis.ID().String(),
		SystemVersion: analysis.SystemVersion(),
		Checksum:      checksum,
		OverallScore:  analysis.Compatibility().Overall,
		GeneratedAt:   analysis.GeneratedAt(),
		CreatedBy:     analysis.UserID().String(),
	}, nil
}

// Fingerprint hashes the deterministic parts of an analysis. Two analyses of
// identical charts under the same engine version produce identical
// fingerprints (AnalysisID and GeneratedAt are deliberately excluded).
func (s *VersioningService) Fingerprint(analysis *aggregates.RelationshipAnalysis) (string, error) {
	if analysis == nil {
		return "", fmt.Errorf("analysis cannot be nil")
	}

	data := struct {
		SystemVersion string                         `json:"system_version"`
		Synastry      aggregates.SynastryResult      `json:"synastry"`
		Composite     aggregates.CompositeResult     `json:"composite"`
		Compatibility aggregates.CompatibilityResult `json:"compatibility"`
		Dynamics      aggregates.DynamicsResult      `json:"dynamics"`
	}{
		SystemVersion: analysis.SystemVersion(),
		Synastry:      analysis.Synastry(),
		Composite:     analysis.Composite(),
		Compatibility: analysis.Compatibility(),
		Dynamics:      analysis.Dynamics(),
	}

	return hashJSON(data)
}

// ChartPairFingerprint hashes a pair of input charts. The generate path uses
// it as the duplicate-suppression lock key: the same two charts in either
// order map to the same fingerprint, so a swapped resubmission of a pair
// already in flight still counts as a duplicate.
func (s *VersioningService) ChartPairFingerprint(chart1, chart2 *entities.BirthChart) (string, error) {
	if chart1 == nil || chart2 == nil {
		return "", fmt.Errorf("both charts are required for a pair fingerprint")
	}

	doc1, err := json.Marshal(chart1)
	if err != nil {
		return "", err
	}
	doc2, err := json.Marshal(chart2)
	if err != nil {
		return "", err
	}

	a, b := string(doc1), string(doc2)
	if b < a {
		a, b = b, a
	}

	hash := sha256.Sum256([]byte(s.currentVersion + "|" + a + "|" + b))
	return hex.EncodeToString(hash[:]), nil
}

// IsCompatible reports whether a stored analysis generated under the given
// engine tag can still be served without regeneration. Only the major
// segment has to agree.
func (s *VersioningService) IsCompatible(systemVersion string) bool {
	return majorSegment(systemVersion) == majorSegment(s.currentVersion)
}

func majorSegment(tag string) string {
	// Tags look like "astraea-core/1.4.0".
	_, version, found := strings.Cut(tag, "/")
	if !found {
		version = tag
	}
	major, _, _ := strings.Cut(version, ".")
	return major
}

func hashJSON(data interface{}) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:]), nil
}

// RegenerationPolicy decides when a stored analysis should be recomputed
// instead of served.
type RegenerationPolicy struct {
	RegenerateOnMajorChange bool          `json:"regenerate_on_major_change"`
	MaxAge                  time.Duration `json:"max_age"`
}

// DefaultRegenerationPolicy returns the default policy: recompute on engine
// major changes, never on age alone.
func DefaultRegenerationPolicy() RegenerationPolicy {
	return RegenerationPolicy{
		RegenerateOnMajorChange: true,
		MaxAge:                  0, // disabled
	}
}

// ShouldRegenerate reports whether a stored analysis is too old or too
// version-skewed to serve.
func (p *RegenerationPolicy) ShouldRegenerate(
	stored *AnalysisVersion,
	service *VersioningService,
	now time.Time,
) bool {
	if stored == nil {
		return true
	}

	if p.RegenerateOnMajorChange && !service.IsCompatible(stored.SystemVersion) {
		return true
	}

	if p.MaxAge > 0 && now.Sub(stored.GeneratedAt) >= p.MaxAge {
		return true
	}

	return false
}
