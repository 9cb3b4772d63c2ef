package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/navloader/pkg/journal"
)

var (
	historyLimit   int
	historySummary bool
	historyVacuum  bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded load attempts and page view outcomes",
	Long: `Reads the journal database and shows recent load attempts,
page view outcomes, and aggregate statistics.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum records to show")
	historyCmd.Flags().BoolVar(&historySummary, "summary", false, "show aggregate statistics only")
	historyCmd.Flags().BoolVar(&historyVacuum, "vacuum", false, "compact the journal database before reading")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}

	store, err := journal.NewSQLiteStore(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("failed to open journal at %s: %w", cfg.JournalPath, err)
	}
	defer store.Close()

	if historyVacuum {
		if err := store.Vacuum(); err != nil {
			return fmt.Errorf("failed to vacuum journal: %w", err)
		}
	}

	summary, err := store.Summary()
	if err != nil {
		return fmt.Errorf("failed to read summary: %w", err)
	}

	if historySummary {
		return printSummary(summary)
	}

	attempts, err := store.ListAttempts(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list attempts: %w", err)
	}
	outcomes, err := store.ListOutcomes(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list outcomes: %w", err)
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(map[string]interface{}{
			"attempts": attempts,
			"outcomes": outcomes,
			"summary":  summary,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Println("Recent attempts:")
	attemptTable := tablewriter.NewWriter(os.Stdout)
	attemptTable.Header("Page View", "Tier", "Status", "Duration", "Started", "Error")
	for _, a := range attempts {
		attemptTable.Append(
			shortID(a.PageViewID),
			string(a.Tier),
			string(a.Status),
			a.Duration.String(),
			a.StartedAt.Format("15:04:05"),
			a.Error,
		)
	}
	attemptTable.Render()

	fmt.Println("\nRecent page views:")
	outcomeTable := tablewriter.NewWriter(os.Stdout)
	outcomeTable.Header("Page View", "Final State", "Winning Tier", "Degraded", "Recorded")
	for _, o := range outcomes {
		outcomeTable.Append(
			shortID(o.PageViewID),
			string(o.FinalState),
			string(o.WinningTier),
			fmt.Sprintf("%t", o.Degraded),
			o.RecordedAt.Format("15:04:05"),
		)
	}
	outcomeTable.Render()

	fmt.Println()
	return printSummary(summary)
}

func printSummary(summary *journal.Summary) error {
	if IsJSONOutput() {
		output, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Attempts: %d total", summary.TotalAttempts)
	for tier, n := range summary.ByTier {
		fmt.Printf(", %s=%d", tier, n)
	}
	fmt.Println()
	fmt.Printf("Statuses:")
	for status, n := range summary.ByStatus {
		fmt.Printf(" %s=%d", status, n)
	}
	fmt.Println()
	fmt.Printf("Page views: %d total, %d degraded\n", summary.TotalViews, summary.DegradedViews)
	return nil
}

// shortID trims a UUID down to its first block for table display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
