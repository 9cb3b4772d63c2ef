package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/psantana5/navloader/pkg/analytics"
	"github.com/psantana5/navloader/pkg/config"
	"github.com/psantana5/navloader/pkg/journal"
	"github.com/psantana5/navloader/pkg/logging"
	"github.com/psantana5/navloader/pkg/models"
	"github.com/psantana5/navloader/pkg/readiness"
	"github.com/psantana5/navloader/pkg/source"
)

// InitRoutine is the guarded initialization body. It runs at most once
// per page view, after readiness is reached and a payload has resolved.
type InitRoutine func(payload []byte) error

// InitRecorder receives initialization outcomes for instrumentation
type InitRecorder interface {
	RecordInit(result string)
}

// Loader guarantees the navigation initialization routine runs exactly
// once per page view, sourced from a resilient two-tier script origin.
// Create a fresh Loader per logical page view.
type Loader struct {
	mu      sync.Mutex
	state   models.InitState
	loading bool // a guarded load owns this page view right now

	pageViewID string
	doc        readiness.Document
	fetcher    *source.Fetcher
	routine    InitRoutine

	primaryURL   string
	secondaryURL string
	timeout      time.Duration
	selector     string

	logger   *logging.Logger
	sink     analytics.Sink
	journal  journal.Store
	recorder InitRecorder
}

// New creates a loader for one page view
func New(cfg *config.Config, doc readiness.Document, logger *logging.Logger) *Loader {
	l := &Loader{
		state:        models.InitStateNotStarted,
		pageViewID:   uuid.New().String(),
		doc:          doc,
		fetcher:      source.NewFetcher(logger),
		primaryURL:   cfg.PrimaryURL,
		secondaryURL: cfg.SecondaryURL,
		timeout:      cfg.Timeout(),
		selector:     cfg.Selector,
		logger:       logger,
		sink:         analytics.NoopSink{},
	}
	l.routine = AttachRoutine(doc, cfg.Selector, logger)
	return l
}

// PageViewID returns the identifier of this loader's page view
func (l *Loader) PageViewID() string {
	return l.pageViewID
}

// State returns the current initialization state
func (l *Loader) State() models.InitState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

// Fetcher exposes the underlying fetcher for instrumentation wiring
func (l *Loader) Fetcher() *source.Fetcher {
	return l.fetcher
}

// SetSink attaches an analytics sink
func (l *Loader) SetSink(s analytics.Sink) {
	l.sink = s
}

// SetJournal attaches an attempt journal
func (l *Loader) SetJournal(j journal.Store) {
	l.journal = j
}

// SetRecorder attaches an initialization outcome recorder
func (l *Loader) SetRecorder(r InitRecorder) {
	l.recorder = r
}

// SetRoutine overrides the default attach routine
func (l *Loader) SetRoutine(fn InitRoutine) {
	l.routine = fn
}

// EnsureInitialized runs the guarded initialization sequence. It is
// idempotent: concurrent and repeated calls within the page view run the
// routine at most once; losers return nil immediately.
//
// The payload fetch starts right away; the routine itself waits for the
// document readiness signal. A total load failure leaves the state at
// not_started (degraded page view) and is reported, never panicked.
func (l *Loader) EnsureInitialized(ctx context.Context) error {
	l.mu.Lock()
	if l.state != models.InitStateNotStarted || l.loading {
		l.mu.Unlock()
		return nil
	}
	l.loading = true
	l.mu.Unlock()

	result, err := l.fetcher.FetchWithFallback(ctx, l.pageViewID, l.primaryURL, l.secondaryURL, l.timeout)
	l.journalAttempts(result)

	if err != nil {
		l.mu.Lock()
		l.loading = false
		l.mu.Unlock()
		l.reportLoadFailure(err)
		return err
	}

	if !l.doc.ReadyState().StructureAvailable() {
		select {
		case <-l.doc.Ready():
		case <-ctx.Done():
			l.mu.Lock()
			l.loading = false
			l.mu.Unlock()
			return fmt.Errorf("initialization cancelled: %w", ctx.Err())
		}
	}

	l.run(result)
	return nil
}

// run drives the FSM through running → completed around the routine.
// A lost transition race means another arrival already owns execution.
func (l *Loader) run(result *source.FetchResult) {
	l.mu.Lock()
	if err := models.ValidateTransition(l.state, models.InitStateRunning); err != nil {
		l.mu.Unlock()
		return
	}
	l.state = models.InitStateRunning
	l.mu.Unlock()

	routineErr := l.invoke(result.Payload)

	// Completed is reached even on routine failure so a later spurious
	// re-invocation stays suppressed
	l.mu.Lock()
	l.state = models.InitStateCompleted
	l.loading = false
	l.mu.Unlock()

	outcome := "completed"
	switch {
	case errors.Is(routineErr, ErrTargetMissing):
		outcome = "target_missing"
	case routineErr != nil:
		outcome = "routine_error"
		l.logger.Warn("Initialization routine failed", map[string]interface{}{
			"page_view": l.pageViewID,
			"error":     routineErr.Error(),
		})
	default:
		l.logger.Info("Navigation initialized", map[string]interface{}{
			"page_view": l.pageViewID,
			"tier":      string(result.WinningTier),
			"bytes":     len(result.Payload),
		})
	}

	if l.recorder != nil {
		l.recorder.RecordInit(outcome)
	}
	l.journalOutcome(&models.PageViewOutcome{
		PageViewID:  l.pageViewID,
		FinalState:  models.InitStateCompleted,
		WinningTier: result.WinningTier,
		RecordedAt:  time.Now(),
	})
}

// invoke runs the routine, containing panics so nothing ever propagates
// to the hosting page
func (l *Loader) invoke(payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("init routine panicked: %v", r)
		}
	}()
	return l.routine(payload)
}

// reportLoadFailure logs and reports a total load failure
func (l *Loader) reportLoadFailure(err error) {
	l.logger.Error("Navigation load failed, page degrades without navigation", map[string]interface{}{
		"page_view": l.pageViewID,
		"error":     err.Error(),
	})

	if l.recorder != nil {
		l.recorder.RecordInit("degraded")
	}
	l.journalOutcome(&models.PageViewOutcome{
		PageViewID: l.pageViewID,
		FinalState: models.InitStateNotStarted,
		Degraded:   true,
		RecordedAt: time.Now(),
	})

	l.sink.Emit(analytics.Event{
		Name: "nav_load_failure",
		Fields: map[string]string{
			"page_view": l.pageViewID,
			"error":     err.Error(),
		},
	})
}

// journalAttempts mirrors attempt records into the journal, best-effort
func (l *Loader) journalAttempts(result *source.FetchResult) {
	if l.journal == nil || result == nil {
		return
	}
	for _, attempt := range result.Attempts {
		if err := l.journal.RecordAttempt(attempt); err != nil {
			l.logger.Debug("Failed to journal attempt", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// journalOutcome mirrors the page view outcome into the journal, best-effort
func (l *Loader) journalOutcome(outcome *models.PageViewOutcome) {
	if l.journal == nil {
		return
	}
	if err := l.journal.RecordOutcome(outcome); err != nil {
		l.logger.Debug("Failed to journal outcome", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
