package journal

import (
	"github.com/psantana5/navloader/pkg/models"
)

// Store defines the interface for attempt journal persistence.
// Both the in-memory and SQLite implementations satisfy it.
// Journal writes from the loader are best-effort: callers log and move on.
type Store interface {
	// Attempt operations
	RecordAttempt(attempt *models.SourceAttempt) error
	ListAttempts(limit int) ([]*models.SourceAttempt, error)

	// Page view outcome operations
	RecordOutcome(outcome *models.PageViewOutcome) error
	ListOutcomes(limit int) ([]*models.PageViewOutcome, error)

	// Aggregates
	Summary() (*Summary, error)

	// Maintenance
	Vacuum() error
	Close() error
}

// Summary contains aggregate journal statistics
type Summary struct {
	TotalAttempts int64            `json:"total_attempts"`
	ByTier        map[string]int64 `json:"by_tier"`
	ByStatus      map[string]int64 `json:"by_status"`
	TotalViews    int64            `json:"total_views"`
	DegradedViews int64            `json:"degraded_views"`
}
