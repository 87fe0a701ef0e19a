package pipeline

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects pipeline observability counters. All metrics are optional;
// a nil *Metrics disables collection.
type Metrics struct {
	runsTotal      *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	repairAttempts *prometheus.HistogramVec
	oracleFailures *prometheus.CounterVec
}

// NewMetrics registers the pipeline metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "policygen",
			Name:      "runs_total",
			Help:      "Pipeline runs by terminal status.",
		}, []string{"status"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "policygen",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
		repairAttempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "policygen",
			Name:      "repair_attempts",
			Help:      "Repair loop attempts consumed per run.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}, []string{"conformant"}),
		oracleFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "policygen",
			Name:      "oracle_failures_total",
			Help:      "Oracle failures by pipeline stage.",
		}, []string{"stage"}),
	}
}

// ObserveRun records a run's terminal status.
func (m *Metrics) ObserveRun(status Status) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(status)).Inc()
}

// ObserveStage records one stage's duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRepairAttempts records the attempts a repair loop consumed.
func (m *Metrics) ObserveRepairAttempts(attempts int, conformant bool) {
	if m == nil {
		return
	}
	m.repairAttempts.WithLabelValues(strconv.FormatBool(conformant)).Observe(float64(attempts))
}

// ObserveOracleFailure records an oracle failure at a stage.
func (m *Metrics) ObserveOracleFailure(stage string) {
	if m == nil {
		return
	}
	m.oracleFailures.WithLabelValues(stage).Inc()
}
