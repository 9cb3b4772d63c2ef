package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/navloader/pkg/config"
	"github.com/psantana5/navloader/pkg/logging"
)

var (
	cfgFile      string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "navload",
	Short: "CLI for the navloader guarded navigation loader",
	Long: `navload exercises and inspects the guarded navigation loader:
run checks against the configured script sources, review the attempt
journal, and drill fallback behavior against a stub origin.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.navload/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".navload"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("NAVLOAD")
	viper.AutomaticEnv()

	viper.BindEnv("primary_url")
	viper.BindEnv("secondary_url")
	viper.BindEnv("timeout_ms")
	viper.BindEnv("journal_path")

	// Missing config file is fine; env vars and flags still apply
	_ = viper.ReadInConfig()
}

// effectiveConfig merges defaults, config file, and environment
func effectiveConfig() (*config.Config, error) {
	cfg := config.Default()

	if v := viper.GetString("primary_url"); v != "" {
		cfg.PrimaryURL = v
	}
	if v := viper.GetString("secondary_url"); v != "" {
		cfg.SecondaryURL = v
	}
	if v := viper.GetInt("timeout_ms"); v > 0 {
		cfg.TimeoutMs = v
	}
	if v := viper.GetString("selector"); v != "" {
		cfg.Selector = v
	}
	if v := viper.GetString("analytics_endpoint"); v != "" {
		cfg.AnalyticsEndpoint = v
	}
	if v := viper.GetFloat64("analytics_rps"); v > 0 {
		cfg.AnalyticsRPS = v
	}
	if v := viper.GetInt("analytics_burst"); v > 0 {
		cfg.AnalyticsBurst = v
	}
	if v := viper.GetString("journal_path"); v != "" {
		cfg.JournalPath = v
	}
	if v := viper.GetString("log_level"); v != "" {
		cfg.LogLevel = v
	}
	if viper.IsSet("json_logs") {
		cfg.JSONLogs = viper.GetBool("json_logs")
	}

	if cfg.JournalPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.JournalPath = filepath.Join(home, ".navload", "journal.db")
		}
	}

	return cfg, nil
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

// newLogger builds a logger from the effective configuration
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.JSONLogs)
}
