package common

import (
	"net/http"
	"strconv"
)

// List endpoints page with opaque cursor tokens rather than offsets: the
// stores behind them (DynamoDB included) cannot seek to an arbitrary page.

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// ListParams carries the pagination inputs of a list request.
type ListParams struct {
	Limit     int    `json:"limit"`
	NextToken string `json:"next_token,omitempty"`
}

// ExtractListParams reads limit and next_token query parameters. Limits
// are clamped to [1, MaxPageLimit]; anything unparseable keeps the default.
func ExtractListParams(r *http.Request) ListParams {
	params := ListParams{Limit: DefaultPageLimit}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			if limit > MaxPageLimit {
				limit = MaxPageLimit
			}
			params.Limit = limit
		}
	}

	params.NextToken = r.URL.Query().Get("next_token")
	return params
}

// PageInfo describes the page actually returned.
type PageInfo struct {
	Count     int    `json:"count"`
	Limit     int    `json:"limit"`
	NextToken string `json:"next_token,omitempty"`
}

// NewPageInfo builds page metadata. An empty nextToken means the listing
// is exhausted.
func NewPageInfo(count, limit int, nextToken string) *PageInfo {
	return &PageInfo{Count: count, Limit: limit, NextToken: nextToken}
}
