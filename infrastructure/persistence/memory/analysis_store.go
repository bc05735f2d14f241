// Package memory provides in-process implementations of the persistence
// ports. It is the default driver for development and tests; nothing here
// survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"astraea-backend/application/ports"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/infrastructure/persistence/schema"
	pkgerrors "astraea-backend/pkg/errors"
)

const janitorInterval = 5 * time.Minute

// storedAnalysis keeps the encoded record so reads rebuild a fresh aggregate
// instead of sharing mutable state with earlier callers.
type storedAnalysis struct {
	id          string
	data        []byte
	generatedAt time.Time
	storedAt    time.Time
}

// AnalysisStore is an in-memory AnalysisRepository with optional TTL expiry.
type AnalysisStore struct {
	mu       sync.RWMutex
	analyses map[string]map[string]*storedAnalysis // userID -> analysisID -> record
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

var _ ports.AnalysisRepository = (*AnalysisStore)(nil)

// NewAnalysisStore creates an in-memory analysis store. A zero TTL keeps
// records until the process exits.
func NewAnalysisStore(ttl time.Duration) *AnalysisStore {
	store := &AnalysisStore{
		analyses: make(map[string]map[string]*storedAnalysis),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}

	if ttl > 0 {
		go store.janitor()
	}

	return store
}

// Save persists a freshly generated analysis.
func (s *AnalysisStore) Save(ctx context.Context, analysis *aggregates.RelationshipAnalysis) error {
	data, err := schema.NewAnalysisRecord(analysis).Encode()
	if err != nil {
		return pkgerrors.NewDatabaseError("encode analysis", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userKey := analysis.UserID().String()
	if s.analyses[userKey] == nil {
		s.analyses[userKey] = make(map[string]*storedAnalysis)
	}
	s.analyses[userKey][analysis.ID().String()] = &storedAnalysis{
		id:          analysis.ID().String(),
		data:        data,
		generatedAt: analysis.GeneratedAt(),
		storedAt:    time.Now(),
	}

	return nil
}

// FindByID retrieves one analysis owned by the user.
func (s *AnalysisStore) FindByID(ctx context.Context, userID valueobjects.UserID, id valueobjects.AnalysisID) (*aggregates.RelationshipAnalysis, error) {
	s.mu.RLock()
	entry, ok := s.analyses[userID.String()][id.String()]
	s.mu.RUnlock()

	if !ok || s.expired(entry) {
		return nil, pkgerrors.NewNotFoundError("analysis")
	}

	return decodeStored(entry)
}

// FindByUser lists the user's analyses, newest first. The returned token is
// the last analysis ID of the page and resumes the listing after it.
func (s *AnalysisStore) FindByUser(ctx context.Context, userID valueobjects.UserID, page ports.ListPage) ([]*aggregates.RelationshipAnalysis, string, error) {
	s.mu.RLock()
	entries := make([]*storedAnalysis, 0, len(s.analyses[userID.String()]))
	for _, entry := range s.analyses[userID.String()] {
		if !s.expired(entry) {
			entries = append(entries, entry)
		}
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].generatedAt.Equal(entries[j].generatedAt) {
			return entries[i].generatedAt.After(entries[j].generatedAt)
		}
		return entries[i].id > entries[j].id
	})

	start := 0
	if page.NextToken != "" {
		for i, entry := range entries {
			if entry.id == page.NextToken {
				start = i + 1
				break
			}
		}
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}

	results := make([]*aggregates.RelationshipAnalysis, 0, limit)
	nextToken := ""
	for i := start; i < len(entries) && len(results) < limit; i++ {
		analysis, err := decodeStored(entries[i])
		if err != nil {
			return nil, "", err
		}
		results = append(results, analysis)
		if len(results) == limit && i+1 < len(entries) {
			nextToken = entries[i].id
		}
	}

	return results, nextToken, nil
}

// Delete removes one analysis owned by the user.
func (s *AnalysisStore) Delete(ctx context.Context, userID valueobjects.UserID, id valueobjects.AnalysisID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userKey := userID.String()
	if _, ok := s.analyses[userKey][id.String()]; !ok {
		return pkgerrors.NewNotFoundError("analysis")
	}

	delete(s.analyses[userKey], id.String())
	return nil
}

// DeleteBatch removes multiple analyses owned by the user. Missing IDs are
// skipped; batch deletes are best effort like the DynamoDB driver.
func (s *AnalysisStore) DeleteBatch(ctx context.Context, userID valueobjects.UserID, ids []valueobjects.AnalysisID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userKey := userID.String()
	for _, id := range ids {
		delete(s.analyses[userKey], id.String())
	}

	return nil
}

// PurgeOlderThan removes every analysis generated before the cutoff, across
// all users. With dryRun it only counts what would go.
func (s *AnalysisStore) PurgeOlderThan(ctx context.Context, before time.Time, dryRun bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for userKey, userAnalyses := range s.analyses {
		for id, entry := range userAnalyses {
			if entry.generatedAt.Before(before) {
				count++
				if !dryRun {
					delete(userAnalyses, id)
				}
			}
		}
		if !dryRun && len(userAnalyses) == 0 {
			delete(s.analyses, userKey)
		}
	}

	return count, nil
}

// CleanupExpired removes records stored longer ago than olderThan.
func (s *AnalysisStore) CleanupExpired(ctx context.Context, olderThan time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for userKey, userAnalyses := range s.analyses {
		for id, entry := range userAnalyses {
			if now.Sub(entry.storedAt) > olderThan {
				delete(userAnalyses, id)
			}
		}
		if len(userAnalyses) == 0 {
			delete(s.analyses, userKey)
		}
	}

	return nil
}

// Close stops the janitor goroutine.
func (s *AnalysisStore) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *AnalysisStore) expired(entry *storedAnalysis) bool {
	return s.ttl > 0 && time.Since(entry.storedAt) > s.ttl
}

func (s *AnalysisStore) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupExpired(context.Background(), s.ttl)
		case <-s.stopCh:
			return
		}
	}
}

func decodeStored(entry *storedAnalysis) (*aggregates.RelationshipAnalysis, error) {
	record, err := schema.DecodeAnalysisRecord(entry.data)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("decode analysis", err)
	}
	return record.ToDomain()
}
