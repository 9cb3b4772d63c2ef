package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/psantana5/navloader/pkg/analytics"
	"github.com/psantana5/navloader/pkg/config"
	"github.com/psantana5/navloader/pkg/journal"
	"github.com/psantana5/navloader/pkg/logging"
	"github.com/psantana5/navloader/pkg/models"
	"github.com/psantana5/navloader/pkg/readiness"
	"github.com/psantana5/navloader/pkg/source"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.ERROR, false)
}

func testConfig(primary, secondary string) *config.Config {
	cfg := config.Default()
	cfg.PrimaryURL = primary
	cfg.SecondaryURL = secondary
	cfg.TimeoutMs = 5000
	return cfg
}

// captureSink records emitted events for assertions
type captureSink struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (s *captureSink) Emit(event analytics.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func okServer(hits *int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt64(hits, 1)
		}
		w.Write([]byte("initNav();"))
	}))
}

func failServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
}

func hangServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
}

func countedLoader(t *testing.T, cfg *config.Config, doc *readiness.SimDocument, runs *int64) *Loader {
	t.Helper()
	l := New(cfg, doc, testLogger())
	l.SetRoutine(func(payload []byte) error {
		atomic.AddInt64(runs, 1)
		return nil
	})
	return l
}

func TestRunsExactlyOnceWhenAlreadyReady(t *testing.T) {
	var primaryHits, secondaryHits, runs int64
	primary := okServer(&primaryHits)
	defer primary.Close()
	secondary := okServer(&secondaryHits)
	defer secondary.Close()

	doc := readiness.NewSimDocument(readiness.StateInteractive)
	l := countedLoader(t, testConfig(primary.URL, secondary.URL), doc, &runs)

	if err := l.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("EnsureInitialized failed: %v", err)
	}

	if atomic.LoadInt64(&runs) != 1 {
		t.Errorf("Expected routine to run once, ran %d times", runs)
	}
	if l.State() != models.InitStateCompleted {
		t.Errorf("Expected completed state, got %s", l.State())
	}
	if atomic.LoadInt64(&secondaryHits) != 0 {
		t.Errorf("Secondary should not be contacted, got %d hits", secondaryHits)
	}
}

func TestRunsAfterReadinessSignal(t *testing.T) {
	var runs int64
	primary := okServer(nil)
	defer primary.Close()

	doc := readiness.NewSimDocument(readiness.StateLoading)
	l := countedLoader(t, testConfig(primary.URL, primary.URL), doc, &runs)

	done := make(chan error, 1)
	go func() {
		done <- l.EnsureInitialized(context.Background())
	}()

	// Payload resolves quickly, but the routine must wait for readiness
	time.Sleep(200 * time.Millisecond)
	if atomic.LoadInt64(&runs) != 0 {
		t.Fatal("Routine ran before the readiness signal")
	}

	doc.SignalReady()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("EnsureInitialized failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("EnsureInitialized did not finish after readiness signal")
	}

	if atomic.LoadInt64(&runs) != 1 {
		t.Errorf("Expected routine to run once, ran %d times", runs)
	}
	if l.State() != models.InitStateCompleted {
		t.Errorf("Expected completed state, got %s", l.State())
	}
}

func TestIdempotentAcrossRepeatedCalls(t *testing.T) {
	var primaryHits, runs int64
	primary := okServer(&primaryHits)
	defer primary.Close()

	doc := readiness.NewSimDocument(readiness.StateComplete)
	l := countedLoader(t, testConfig(primary.URL, primary.URL), doc, &runs)

	for i := 0; i < 5; i++ {
		if err := l.EnsureInitialized(context.Background()); err != nil {
			t.Fatalf("EnsureInitialized call %d failed: %v", i, err)
		}
	}

	if atomic.LoadInt64(&runs) != 1 {
		t.Errorf("Expected routine to run once across 5 calls, ran %d times", runs)
	}
	if atomic.LoadInt64(&primaryHits) != 1 {
		t.Errorf("Expected one payload fetch across 5 calls, got %d", primaryHits)
	}
}

func TestIdempotentAcrossConcurrentCalls(t *testing.T) {
	var runs int64
	primary := okServer(nil)
	defer primary.Close()

	doc := readiness.NewSimDocument(readiness.StateInteractive)
	l := countedLoader(t, testConfig(primary.URL, primary.URL), doc, &runs)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.EnsureInitialized(context.Background())
		}()
	}
	wg.Wait()

	// Losers return immediately; the winner may still be finishing
	deadline := time.Now().Add(5 * time.Second)
	for l.State() != models.InitStateCompleted && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if atomic.LoadInt64(&runs) != 1 {
		t.Errorf("Expected routine to run once across concurrent calls, ran %d times", runs)
	}
}

func TestFallbackToSecondarySource(t *testing.T) {
	var runs int64
	primary := failServer()
	defer primary.Close()
	secondary := okServer(nil)
	defer secondary.Close()

	doc := readiness.NewSimDocument(readiness.StateInteractive)
	l := countedLoader(t, testConfig(primary.URL, secondary.URL), doc, &runs)

	if err := l.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("Expected fallback success, got: %v", err)
	}
	if atomic.LoadInt64(&runs) != 1 {
		t.Errorf("Expected routine to run once via secondary, ran %d times", runs)
	}
	if l.State() != models.InitStateCompleted {
		t.Errorf("Expected completed state, got %s", l.State())
	}
}

func TestSecondarySuccessBeforeReadiness(t *testing.T) {
	// Scenario: readiness not yet reached, primary hard-errors, secondary
	// succeeds; the routine still waits for the readiness signal.
	var runs int64
	primary := failServer()
	defer primary.Close()
	secondary := okServer(nil)
	defer secondary.Close()

	doc := readiness.NewSimDocument(readiness.StateLoading)
	l := countedLoader(t, testConfig(primary.URL, secondary.URL), doc, &runs)

	done := make(chan error, 1)
	go func() {
		done <- l.EnsureInitialized(context.Background())
	}()

	time.Sleep(200 * time.Millisecond)
	if atomic.LoadInt64(&runs) != 0 {
		t.Fatal("Routine ran before the readiness signal")
	}

	doc.SignalReady()

	if err := <-done; err != nil {
		t.Fatalf("EnsureInitialized failed: %v", err)
	}
	if atomic.LoadInt64(&runs) != 1 {
		t.Errorf("Expected routine to run once, ran %d times", runs)
	}
}

func TestMissingTargetStillCompletes(t *testing.T) {
	primary := okServer(nil)
	defer primary.Close()

	// No AddTarget call: the default attach routine finds nothing
	doc := readiness.NewSimDocument(readiness.StateInteractive)
	l := New(testConfig(primary.URL, primary.URL), doc, testLogger())

	if err := l.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("Missing target must not surface an error, got: %v", err)
	}
	if l.State() != models.InitStateCompleted {
		t.Errorf("Expected completed state despite missing target, got %s", l.State())
	}

	// A later spurious re-invocation stays suppressed
	if err := l.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("Re-invocation after completion must no-op, got: %v", err)
	}
}

func TestAttachesWhenTargetPresent(t *testing.T) {
	primary := okServer(nil)
	defer primary.Close()

	doc := readiness.NewSimDocument(readiness.StateInteractive)
	doc.AddTarget("#site-nav")
	l := New(testConfig(primary.URL, primary.URL), doc, testLogger())

	if err := l.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("EnsureInitialized failed: %v", err)
	}
	if l.State() != models.InitStateCompleted {
		t.Errorf("Expected completed state, got %s", l.State())
	}
}

func TestRoutinePanicIsContained(t *testing.T) {
	primary := okServer(nil)
	defer primary.Close()

	doc := readiness.NewSimDocument(readiness.StateInteractive)
	l := New(testConfig(primary.URL, primary.URL), doc, testLogger())
	l.SetRoutine(func(payload []byte) error {
		panic("boom")
	})

	if err := l.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("Routine panic must not propagate, got: %v", err)
	}
	if l.State() != models.InitStateCompleted {
		t.Errorf("Expected completed state after contained panic, got %s", l.State())
	}
}

func TestTotalLoadFailureDegradesCleanly(t *testing.T) {
	var runs int64
	primary := hangServer()
	defer primary.Close()
	secondary := failServer()
	defer secondary.Close()

	doc := readiness.NewSimDocument(readiness.StateInteractive)
	cfg := testConfig(primary.URL, secondary.URL)
	cfg.TimeoutMs = 100

	sink := &captureSink{}
	store := journal.NewMemoryStore()

	l := countedLoader(t, cfg, doc, &runs)
	l.SetSink(sink)
	l.SetJournal(store)
	// Bound the hanging primary so exhaustion is reached quickly
	l.Fetcher().SetClient(&http.Client{Timeout: 300 * time.Millisecond})

	err := l.EnsureInitialized(context.Background())
	if !errors.Is(err, source.ErrAllSourcesFailed) {
		t.Fatalf("Expected ErrAllSourcesFailed, got %v", err)
	}

	if atomic.LoadInt64(&runs) != 0 {
		t.Errorf("Routine must not run on total failure, ran %d times", runs)
	}
	if l.State() != models.InitStateNotStarted {
		t.Errorf("Expected not_started state after total failure, got %s", l.State())
	}
	if sink.count() != 1 {
		t.Errorf("Expected 1 analytics failure event, got %d", sink.count())
	}

	outcomes, _ := store.ListOutcomes(10)
	if len(outcomes) != 1 || !outcomes[0].Degraded {
		t.Errorf("Expected one degraded outcome in journal, got %+v", outcomes)
	}
	attempts, _ := store.ListAttempts(10)
	if len(attempts) == 0 {
		t.Error("Expected attempts in journal")
	}
}

func TestJournalRecordsWinningAttempts(t *testing.T) {
	primary := okServer(nil)
	defer primary.Close()

	doc := readiness.NewSimDocument(readiness.StateInteractive)
	doc.AddTarget("#site-nav")
	l := New(testConfig(primary.URL, primary.URL), doc, testLogger())
	store := journal.NewMemoryStore()
	l.SetJournal(store)

	if err := l.EnsureInitialized(context.Background()); err != nil {
		t.Fatalf("EnsureInitialized failed: %v", err)
	}

	attempts, _ := store.ListAttempts(10)
	if len(attempts) != 1 || attempts[0].Status != models.AttemptSucceeded {
		t.Errorf("Expected one succeeded attempt in journal, got %+v", attempts)
	}
	outcomes, _ := store.ListOutcomes(10)
	if len(outcomes) != 1 || outcomes[0].FinalState != models.InitStateCompleted {
		t.Errorf("Expected one completed outcome in journal, got %+v", outcomes)
	}
	if outcomes[0].WinningTier != models.TierPrimary {
		t.Errorf("Expected primary winning tier, got %s", outcomes[0].WinningTier)
	}
}
