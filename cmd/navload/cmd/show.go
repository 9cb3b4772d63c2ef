package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/navloader/pkg/logging"
)

// configCmd groups configuration subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect navload configuration",
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Prints the configuration after merging defaults, the config file,
and NAVLOAD_* environment variables.`,
	RunE: runConfigShow,
}

// configLogrotateCmd represents the config logrotate command
var configLogrotateCmd = &cobra.Command{
	Use:   "logrotate",
	Short: "Print a logrotate config for the navload log file",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(logging.GenerateLogrotateConfig("navload"))
	},
}

var configShowYAML bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configLogrotateCmd)

	configShowCmd.Flags().BoolVar(&configShowYAML, "yaml", false, "print as YAML instead of a table")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}

	if configShowYAML {
		output, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Print(string(output))
		return nil
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Setting", "Value")
	table.Append("primary_url", cfg.PrimaryURL)
	table.Append("secondary_url", cfg.SecondaryURL)
	table.Append("timeout_ms", fmt.Sprintf("%d", cfg.TimeoutMs))
	table.Append("selector", cfg.Selector)
	table.Append("analytics_endpoint", cfg.AnalyticsEndpoint)
	table.Append("analytics_rps", fmt.Sprintf("%.1f", cfg.AnalyticsRPS))
	table.Append("analytics_burst", fmt.Sprintf("%d", cfg.AnalyticsBurst))
	table.Append("journal_path", cfg.JournalPath)
	table.Append("log_level", cfg.LogLevel)
	table.Append("json_logs", fmt.Sprintf("%t", cfg.JSONLogs))
	table.Render()

	return nil
}
