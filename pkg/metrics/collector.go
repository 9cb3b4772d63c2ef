package metrics

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/psantana5/navloader/pkg/models"
)

// Collector tracks loader activity as Prometheus metrics
type Collector struct {
	registry *prometheus.Registry

	attempts     *prometheus.CounterVec
	fallbacks    prometheus.Counter
	initOutcomes *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navload_source_attempts_total",
				Help: "Total load attempts by source tier and final status",
			},
			[]string{"tier", "status"},
		),
		fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "navload_fallbacks_total",
				Help: "Total times the secondary source load was initiated",
			},
		),
		initOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "navload_init_total",
				Help: "Initialization outcomes by result",
			},
			[]string{"result"}, // "completed", "target_missing", "degraded"
		),
		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "navload_load_duration_seconds",
				Help:    "Resolved load attempt duration by source tier",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"tier"},
		),
	}

	c.registry.MustRegister(c.attempts)
	c.registry.MustRegister(c.fallbacks)
	c.registry.MustRegister(c.initOutcomes)
	c.registry.MustRegister(c.loadDuration)

	return c
}

// RecordAttempt records a resolved source attempt
func (c *Collector) RecordAttempt(attempt *models.SourceAttempt) {
	c.attempts.WithLabelValues(string(attempt.Tier), string(attempt.Status)).Inc()
	if attempt.IsResolved() {
		c.loadDuration.WithLabelValues(string(attempt.Tier)).Observe(attempt.Duration.Seconds())
	}
}

// RecordFallback records initiation of the secondary load
func (c *Collector) RecordFallback() {
	c.fallbacks.Inc()
}

// RecordInit records an initialization outcome
func (c *Collector) RecordInit(result string) {
	c.initOutcomes.WithLabelValues(result).Inc()
}

// Handler returns an HTTP handler serving the collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Dump renders all gathered metrics in Prometheus text format
func (c *Collector) Dump() (string, error) {
	metricFamilies, err := c.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range metricFamilies {
		if err := encoder.Encode(mf); err != nil {
			return "", fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}

	return buf.String(), nil
}
