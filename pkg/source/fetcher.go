package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/psantana5/navloader/pkg/logging"
	"github.com/psantana5/navloader/pkg/models"
)

// Recorder receives attempt-level events for instrumentation.
// Implementations must be safe for concurrent use.
type Recorder interface {
	RecordAttempt(attempt *models.SourceAttempt)
	RecordFallback()
}

// FetchResult is the outcome of a dual-source fetch
type FetchResult struct {
	Payload     []byte
	WinningTier models.SourceTier
	Attempts    []*models.SourceAttempt
}

// Fetcher acquires the script payload from the configured sources
type Fetcher struct {
	client   *http.Client
	logger   *logging.Logger
	recorder Recorder
}

// NewFetcher creates a new fetcher
func NewFetcher(logger *logging.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SetRecorder attaches an instrumentation recorder
func (f *Fetcher) SetRecorder(r Recorder) {
	f.recorder = r
}

// SetClient overrides the HTTP client (used by tests)
func (f *Fetcher) SetClient(c *http.Client) {
	f.client = c
}

// tierResult carries one resolved attempt back to the join point
type tierResult struct {
	tier    models.SourceTier
	payload []byte
	attempt *models.SourceAttempt
	err     error
}

// fetchOne performs a single load attempt against one tier. The returned
// attempt is always resolved.
func (f *Fetcher) fetchOne(ctx context.Context, pageViewID string, tier models.SourceTier, url string) *tierResult {
	attempt := &models.SourceAttempt{
		PageViewID: pageViewID,
		Tier:       tier,
		URL:        url,
		Status:     models.AttemptPending,
		StartedAt:  time.Now(),
	}

	fail := func(kind ErrorKind, message string, err error) *tierResult {
		loadErr := NewLoadError(kind, tier, url, message, err)
		attempt.Resolve(models.AttemptFailed, loadErr.Error())
		return &tierResult{tier: tier, attempt: attempt, err: loadErr}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fail(ErrorKindNetwork, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/javascript, text/javascript")

	resp, err := f.client.Do(req)
	if err != nil {
		return fail(ErrorKindNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(ErrorKindStatus, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(ErrorKindPayload, "failed to read payload", err)
	}
	if len(payload) == 0 {
		return fail(ErrorKindPayload, "empty payload", nil)
	}

	attempt.Resolve(models.AttemptSucceeded, "")
	attempt.BytesRead = int64(len(payload))
	return &tierResult{tier: tier, payload: payload, attempt: attempt}
}

// FetchWithFallback acquires the payload from the primary source, starting
// the secondary source if the primary hard-errors or does not resolve within
// timeout. The fallback is additive: a primary request left in flight past
// the timeout may still win. The first successful arrival wins; the loser
// resolves into a no-op. Both sources exhausted yields ErrAllSourcesFailed.
func (f *Fetcher) FetchWithFallback(ctx context.Context, pageViewID, primaryURL, secondaryURL string, timeout time.Duration) (*FetchResult, error) {
	results := make(chan *tierResult, 2)
	attempts := make([]*models.SourceAttempt, 0, 3)

	primaryStart := time.Now()
	go func() {
		results <- f.fetchOne(ctx, pageViewID, models.TierPrimary, primaryURL)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	startSecondary := func(reason string) {
		f.logger.Warn("Falling back to secondary source", map[string]interface{}{
			"page_view": pageViewID,
			"reason":    reason,
			"secondary": secondaryURL,
		})
		if f.recorder != nil {
			f.recorder.RecordFallback()
		}
		go func() {
			results <- f.fetchOne(ctx, pageViewID, models.TierSecondary, secondaryURL)
		}()
	}

	record := func(a *models.SourceAttempt) {
		attempts = append(attempts, a)
		if f.recorder != nil {
			f.recorder.RecordAttempt(a)
		}
	}

	pending := 1
	secondaryStarted := false
	var lastErr error

	for {
		select {
		case res := <-results:
			pending--
			record(res.attempt)

			if res.err == nil {
				return &FetchResult{
					Payload:     res.payload,
					WinningTier: res.tier,
					Attempts:    attempts,
				}, nil
			}

			lastErr = res.err
			f.logger.Warn("Source load failed", map[string]interface{}{
				"page_view": pageViewID,
				"tier":      string(res.tier),
				"error":     res.err.Error(),
			})

			// Hard error on the primary: no need to wait out the budget
			if res.tier == models.TierPrimary && !secondaryStarted {
				secondaryStarted = true
				pending++
				timer.Stop()
				startSecondary("primary error")
			}

			if pending == 0 {
				f.logger.Error("All script sources failed", map[string]interface{}{
					"page_view": pageViewID,
				})
				return &FetchResult{Attempts: attempts},
					fmt.Errorf("%w: %w", ErrAllSourcesFailed, lastErr)
			}

		case <-timer.C:
			if !secondaryStarted {
				secondaryStarted = true
				pending++

				// The primary request stays in flight and may still win;
				// the record marks that it missed its budget.
				timedOut := &models.SourceAttempt{
					PageViewID: pageViewID,
					Tier:       models.TierPrimary,
					URL:        primaryURL,
					Status:     models.AttemptPending,
					StartedAt:  primaryStart,
				}
				timedOut.Resolve(models.AttemptTimedOut,
					NewLoadError(ErrorKindTimeout, models.TierPrimary, primaryURL,
						fmt.Sprintf("did not resolve within %v", timeout), nil).Error())
				record(timedOut)

				startSecondary("primary timeout")
			}

		case <-ctx.Done():
			return &FetchResult{Attempts: attempts},
				fmt.Errorf("fetch cancelled: %w", ctx.Err())
		}
	}
}
