package journal

import (
	"sync"

	"github.com/psantana5/navloader/pkg/models"
)

// MemoryStore is an in-memory implementation of the attempt journal
type MemoryStore struct {
	mu       sync.RWMutex
	attempts []*models.SourceAttempt
	outcomes []*models.PageViewOutcome
}

// NewMemoryStore creates a new in-memory journal
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attempts: make([]*models.SourceAttempt, 0),
		outcomes: make([]*models.PageViewOutcome, 0),
	}
}

// RecordAttempt appends an attempt record
func (s *MemoryStore) RecordAttempt(attempt *models.SourceAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *attempt
	s.attempts = append(s.attempts, &copied)
	return nil
}

// ListAttempts returns the most recent attempts, newest first
func (s *MemoryStore) ListAttempts(limit int) ([]*models.SourceAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.SourceAttempt, 0, limit)
	for i := len(s.attempts) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.attempts[i])
	}
	return result, nil
}

// RecordOutcome appends a page view outcome
func (s *MemoryStore) RecordOutcome(outcome *models.PageViewOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *outcome
	s.outcomes = append(s.outcomes, &copied)
	return nil
}

// ListOutcomes returns the most recent outcomes, newest first
func (s *MemoryStore) ListOutcomes(limit int) ([]*models.PageViewOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.PageViewOutcome, 0, limit)
	for i := len(s.outcomes) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.outcomes[i])
	}
	return result, nil
}

// Summary returns aggregate statistics
func (s *MemoryStore) Summary() (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &Summary{
		ByTier:   make(map[string]int64),
		ByStatus: make(map[string]int64),
	}

	for _, a := range s.attempts {
		summary.TotalAttempts++
		summary.ByTier[string(a.Tier)]++
		summary.ByStatus[string(a.Status)]++
	}
	for _, o := range s.outcomes {
		summary.TotalViews++
		if o.Degraded {
			summary.DegradedViews++
		}
	}

	return summary, nil
}

// Vacuum is a no-op for the in-memory store
func (s *MemoryStore) Vacuum() error {
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
