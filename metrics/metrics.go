// Package metrics exposes sweep outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"moviesweep/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the sweep metrics and the registry they live in
type Collector struct {
	registry *prometheus.Registry

	verdicts         *prometheus.CounterVec
	skips            *prometheus.CounterVec
	deletionFailures *prometheus.CounterVec
	sweeps           *prometheus.CounterVec
	sweepDuration    *prometheus.HistogramVec
	expiringSoon     *prometheus.GaugeVec
	lastSweep        *prometheus.GaugeVec
}

// NewCollector registers the sweep metrics. A nil registry gets a fresh one.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "moviesweep"
	}

	c := &Collector{
		registry: registry,
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Retention verdicts by tier, outcome and reason code.",
		}, []string{"tier", "outcome", "reason"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movies_skipped_total",
			Help:      "Movies skipped during a sweep because their record could not be built.",
		}, []string{"tier"}),
		deletionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletion_failures_total",
			Help:      "Delete verdicts the library manager failed to carry out.",
		}, []string{"tier"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Finished sweeps by tier and final status.",
		}, []string{"tier", "status", "dry_run"}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a tier sweep.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"tier"}),
		expiringSoon: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "movies_expiring_soon",
			Help:      "Kept movies whose retention window ends within the warning horizon.",
		}, []string{"tier"}),
		lastSweep: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sweep_timestamp_seconds",
			Help:      "Unix time the last sweep of a tier finished.",
		}, []string{"tier"}),
	}

	registry.MustRegister(
		c.verdicts,
		c.skips,
		c.deletionFailures,
		c.sweeps,
		c.sweepDuration,
		c.expiringSoon,
		c.lastSweep,
	)
	return c
}

// Registry returns the registry the collector writes to
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordVerdict counts a decision
func (c *Collector) RecordVerdict(v models.Verdict) {
	c.verdicts.WithLabelValues(string(v.Tier), string(v.Outcome), string(v.Reason)).Inc()
}

// RecordSkip counts a movie that could not be evaluated
func (c *Collector) RecordSkip(tier models.LibraryTier) {
	c.skips.WithLabelValues(string(tier)).Inc()
}

// RecordDeletionFailure counts a failed deletion
func (c *Collector) RecordDeletionFailure(tier models.LibraryTier) {
	c.deletionFailures.WithLabelValues(string(tier)).Inc()
}

// RecordSweep records the end of a tier sweep
func (c *Collector) RecordSweep(run *models.SweepRun, duration time.Duration) {
	tier := string(run.Tier)
	dryRun := "false"
	if run.DryRun {
		dryRun = "true"
	}

	c.sweeps.WithLabelValues(tier, string(run.Status), dryRun).Inc()
	c.sweepDuration.WithLabelValues(tier).Observe(duration.Seconds())
	c.expiringSoon.WithLabelValues(tier).Set(float64(run.ExpiringSoon))

	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	c.lastSweep.WithLabelValues(tier).Set(float64(finished.Unix()))
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
