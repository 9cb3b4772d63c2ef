package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/navloader/pkg/analytics"
	"github.com/psantana5/navloader/pkg/diag"
	"github.com/psantana5/navloader/pkg/journal"
	"github.com/psantana5/navloader/pkg/loader"
	"github.com/psantana5/navloader/pkg/metrics"
	"github.com/psantana5/navloader/pkg/models"
	"github.com/psantana5/navloader/pkg/readiness"
)

var (
	checkPrimary    string
	checkSecondary  string
	checkTimeoutMs  int
	checkJournal    bool
	checkDropTarget bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one guarded load against the configured sources",
	Long: `Performs a single guarded navigation load: primary source with
timeout fallback to secondary, readiness-gated, exactly-once. Prints the
attempt records and the final initialization state.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkPrimary, "primary", "", "primary source URL (overrides config)")
	checkCmd.Flags().StringVar(&checkSecondary, "secondary", "", "secondary source URL (overrides config)")
	checkCmd.Flags().IntVar(&checkTimeoutMs, "timeout-ms", 0, "primary budget in milliseconds (overrides config)")
	checkCmd.Flags().BoolVar(&checkJournal, "journal", false, "record attempts to the journal database")
	checkCmd.Flags().BoolVar(&checkDropTarget, "drop-target", false, "simulate a missing insertion target")
}

// hostContextSink enriches failure events with a host snapshot so origin
// trouble can be told apart from local saturation
type hostContextSink struct {
	inner analytics.Sink
}

func (s hostContextSink) Emit(event analytics.Event) {
	if event.Fields == nil {
		event.Fields = make(map[string]string)
	}
	for k, v := range diag.Snapshot() {
		event.Fields[k] = v
	}
	s.inner.Emit(event)
}

// teeJournal fans writes out to several stores; reads come from the first
type teeJournal struct {
	stores []journal.Store
}

func (t *teeJournal) RecordAttempt(a *models.SourceAttempt) error {
	for _, s := range t.stores {
		if err := s.RecordAttempt(a); err != nil {
			return err
		}
	}
	return nil
}

func (t *teeJournal) RecordOutcome(o *models.PageViewOutcome) error {
	for _, s := range t.stores {
		if err := s.RecordOutcome(o); err != nil {
			return err
		}
	}
	return nil
}

func (t *teeJournal) ListAttempts(limit int) ([]*models.SourceAttempt, error) {
	return t.stores[0].ListAttempts(limit)
}

func (t *teeJournal) ListOutcomes(limit int) ([]*models.PageViewOutcome, error) {
	return t.stores[0].ListOutcomes(limit)
}

func (t *teeJournal) Summary() (*journal.Summary, error) {
	return t.stores[0].Summary()
}

func (t *teeJournal) Vacuum() error { return nil }

func (t *teeJournal) Close() error {
	var firstErr error
	for _, s := range t.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}
	if checkPrimary != "" {
		cfg.PrimaryURL = checkPrimary
	}
	if checkSecondary != "" {
		cfg.SecondaryURL = checkSecondary
	}
	if checkTimeoutMs > 0 {
		cfg.TimeoutMs = checkTimeoutMs
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)

	doc := readiness.NewSimDocument(readiness.StateInteractive)
	if !checkDropTarget {
		doc.AddTarget(cfg.Selector)
	}

	collector := metrics.NewCollector()

	store := &teeJournal{stores: []journal.Store{journal.NewMemoryStore()}}
	if checkJournal {
		if err := os.MkdirAll(filepath.Dir(cfg.JournalPath), 0755); err != nil {
			return fmt.Errorf("failed to create journal directory: %w", err)
		}
		sqlite, err := journal.NewSQLiteStore(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		store.stores = append(store.stores, sqlite)
		defer sqlite.Close()
	}

	l := loader.New(cfg, doc, logger)
	l.Fetcher().SetRecorder(collector)
	l.SetRecorder(collector)
	l.SetJournal(store)

	if cfg.AnalyticsEndpoint != "" {
		sink := analytics.NewHTTPSink(cfg.AnalyticsEndpoint, cfg.AnalyticsRPS, cfg.AnalyticsBurst, logger)
		l.SetSink(hostContextSink{inner: sink})
	}

	loadErr := l.EnsureInitialized(context.Background())

	attempts, err := store.ListAttempts(10)
	if err != nil {
		return fmt.Errorf("failed to read attempts: %w", err)
	}
	outcomes, err := store.ListOutcomes(1)
	if err != nil {
		return fmt.Errorf("failed to read outcome: %w", err)
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(map[string]interface{}{
			"page_view": l.PageViewID(),
			"state":     l.State(),
			"degraded":  loadErr != nil,
			"attempts":  attempts,
			"outcomes":  outcomes,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
	} else {
		printAttemptsTable(attempts)
		fmt.Printf("\nFinal state: %s\n", l.State())
		if len(outcomes) > 0 && outcomes[0].WinningTier != "" {
			fmt.Printf("Winning tier: %s\n", outcomes[0].WinningTier)
		}
		if loadErr != nil {
			fmt.Printf("Degraded: %v\n", loadErr)
		}
	}

	return nil
}

func printAttemptsTable(attempts []*models.SourceAttempt) {
	if len(attempts) == 0 {
		fmt.Println("No attempts recorded")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Tier", "Status", "Duration", "Bytes", "Error")

	// Journal listings are newest first; show them in load order
	for i := len(attempts) - 1; i >= 0; i-- {
		a := attempts[i]
		table.Append(
			string(a.Tier),
			string(a.Status),
			a.Duration.String(),
			fmt.Sprintf("%d", a.BytesRead),
			a.Error,
		)
	}

	table.Render()
}
