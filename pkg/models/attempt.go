package models

import (
	"time"
)

// SourceTier identifies which configured source a load attempt used
type SourceTier string

const (
	TierPrimary   SourceTier = "primary"
	TierSecondary SourceTier = "secondary"
)

// AttemptStatus tracks the outcome of a single load attempt
type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"   // Request in flight
	AttemptSucceeded AttemptStatus = "succeeded" // Payload fetched and non-empty
	AttemptFailed    AttemptStatus = "failed"    // Network or HTTP-level failure
	AttemptTimedOut  AttemptStatus = "timed_out" // Did not resolve within the configured budget
)

// SourceAttempt represents one load attempt against one source tier.
// Attempts are never retried beyond the two configured tiers.
type SourceAttempt struct {
	PageViewID string        `json:"page_view_id"`
	Tier       SourceTier    `json:"tier"`
	URL        string        `json:"url"`
	Status     AttemptStatus `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	ResolvedAt time.Time     `json:"resolved_at,omitempty"`
	Duration   time.Duration `json:"duration_ms,omitempty"`
	Error      string        `json:"error,omitempty"`
	BytesRead  int64         `json:"bytes_read,omitempty"`
}

// Resolve marks the attempt finished with the given status
func (a *SourceAttempt) Resolve(status AttemptStatus, errMsg string) {
	a.Status = status
	a.ResolvedAt = time.Now()
	a.Duration = a.ResolvedAt.Sub(a.StartedAt)
	a.Error = errMsg
}

// IsResolved returns true once the attempt has a final status
func (a *SourceAttempt) IsResolved() bool {
	return a.Status != AttemptPending
}

// PageViewOutcome summarizes how one page view ended up
type PageViewOutcome struct {
	PageViewID  string     `json:"page_view_id"`
	FinalState  InitState  `json:"final_state"`
	WinningTier SourceTier `json:"winning_tier,omitempty"`
	Degraded    bool       `json:"degraded"`
	RecordedAt  time.Time  `json:"recorded_at"`
}
