package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/psantana5/navloader/internal/origin"
	"github.com/psantana5/navloader/pkg/loader"
	"github.com/psantana5/navloader/pkg/metrics"
	"github.com/psantana5/navloader/pkg/readiness"
)

var (
	drillRuns        int
	drillLatencyMs   int
	drillFailureRate float64
	drillMetricsAddr string
)

// drillCmd represents the drill command
var drillCmd = &cobra.Command{
	Use:   "drill",
	Short: "Drill fallback behavior against a flaky stub origin",
	Long: `Starts two stub origins on loopback: a primary with injected
latency and failure rate, and a clean secondary. Runs a series of guarded
loads against them and reports the fallback and outcome metrics.`,
	RunE: runDrill,
}

func init() {
	rootCmd.AddCommand(drillCmd)

	drillCmd.Flags().IntVar(&drillRuns, "runs", 10, "number of guarded loads to run")
	drillCmd.Flags().IntVar(&drillLatencyMs, "latency-ms", 0, "injected primary latency in milliseconds")
	drillCmd.Flags().Float64Var(&drillFailureRate, "failure-rate", 0.5, "injected primary failure rate [0,1]")
	drillCmd.Flags().StringVar(&drillMetricsAddr, "metrics-addr", "", "also serve /metrics on this address while drilling")
}

func runDrill(cmd *cobra.Command, args []string) error {
	cfg, err := effectiveConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	collector := metrics.NewCollector()

	primary := origin.NewServer(origin.Options{
		Latency:     time.Duration(drillLatencyMs) * time.Millisecond,
		FailureRate: drillFailureRate,
	}, logger)
	secondary := origin.NewServer(origin.Options{}, logger)

	primaryURL, stopPrimary, err := serveOrigin(primary)
	if err != nil {
		return fmt.Errorf("failed to start primary origin: %w", err)
	}
	defer stopPrimary()

	secondaryURL, stopSecondary, err := serveOrigin(secondary)
	if err != nil {
		return fmt.Errorf("failed to start secondary origin: %w", err)
	}
	defer stopSecondary()

	var stopMetrics func()
	if drillMetricsAddr != "" {
		srv := &http.Server{Addr: drillMetricsAddr, Handler: collector.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
		stopMetrics = func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}
		defer stopMetrics()
		logger.Info("Serving drill metrics", map[string]interface{}{
			"addr": drillMetricsAddr,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.PrimaryURL = primaryURL + "/nav.js"
	cfg.SecondaryURL = secondaryURL + "/nav.js"

	logger.Info("Starting drill", map[string]interface{}{
		"runs":         drillRuns,
		"primary":      cfg.PrimaryURL,
		"secondary":    cfg.SecondaryURL,
		"latency_ms":   drillLatencyMs,
		"failure_rate": drillFailureRate,
	})

	degraded := 0
	for i := 0; i < drillRuns; i++ {
		if ctx.Err() != nil {
			logger.Warn("Drill interrupted", map[string]interface{}{
				"completed_runs": i,
			})
			break
		}

		doc := readiness.NewSimDocument(readiness.StateInteractive)
		doc.AddTarget(cfg.Selector)

		l := loader.New(cfg, doc, logger)
		l.Fetcher().SetRecorder(collector)
		l.SetRecorder(collector)

		if err := l.EnsureInitialized(ctx); err != nil {
			degraded++
		}
	}

	dump, err := collector.Dump()
	if err != nil {
		return fmt.Errorf("failed to dump metrics: %w", err)
	}

	fmt.Println(dump)
	fmt.Printf("Drill complete: %d runs, %d degraded\n", drillRuns, degraded)
	return nil
}

// serveOrigin binds a stub origin to an ephemeral loopback port and
// returns its base URL plus a shutdown func
func serveOrigin(s *origin.Server) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}

	srv := &http.Server{Handler: s}
	go srv.Serve(listener)

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}

	return "http://" + listener.Addr().String(), stop, nil
}
