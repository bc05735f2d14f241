package queries

import "errors"

// ListAnalysesQuery represents a query to list a user's stored analyses,
// newest first
type ListAnalysesQuery struct {
	UserID    string
	Limit     int
	NextToken string
}

// Validate validates the query
func (q ListAnalysesQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit > 100 {
		return errors.New("limit cannot exceed 100")
	}
	return nil
}

// ListAnalysesResult represents one page of stored analyses
type ListAnalysesResult struct {
	Analyses  []AnalysisSummary `json:"analyses"`
	NextToken string            `json:"nextToken,omitempty"`
}

// AnalysisSummary is the list projection of a stored analysis
type AnalysisSummary struct {
	AnalysisID       string `json:"analysisId"`
	Chart1Label      string `json:"chart1Label"`
	Chart2Label      string `json:"chart2Label"`
	OverallScore     int    `json:"overallScore"`
	Rating           string `json:"rating"`
	RelationshipType string `json:"relationshipType"`
	GeneratedAt      string `json:"generatedAt"`
}
