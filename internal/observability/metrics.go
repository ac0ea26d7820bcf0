// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "memecoin_scout"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scan metrics
	ScansTotal     *prometheus.CounterVec
	ScanDuration   prometheus.Histogram
	Candidates     *prometheus.CounterVec
	FilterRejected *prometheus.CounterVec
	EnrichTimeouts prometheus.Counter
	MomentumSpikes prometheus.Counter
	ScannerState   *prometheus.GaugeVec
	SeenSetSize    prometheus.Gauge

	// Source metrics
	SourceCalls   *prometheus.CounterVec
	SourceLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulScan prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = Namespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		ScansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Total number of scans by outcome",
		}, []string{"outcome"}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Scan duration in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		}),
		Candidates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "candidates_total",
			Help:      "Candidates counted at each pipeline stage",
		}, []string{"stage"}),
		FilterRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "rejected_total",
			Help:      "Candidates rejected by the filter engine by reason",
		}, []string{"reason"}),
		EnrichTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "enrich_timeouts_total",
			Help:      "Candidates dropped because enrichment missed the deadline",
		}),
		MomentumSpikes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "momentum_spikes_total",
			Help:      "Published candidates flagged with a momentum spike",
		}),
		ScannerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "state",
			Help:      "1 for the scanner's current state, 0 otherwise",
		}, []string{"state"}),
		SeenSetSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "seen",
			Name:      "size",
			Help:      "Number of keys in the seen set",
		}),

		SourceCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "calls_total",
			Help:      "Adapter calls by source and outcome",
		}, []string{"source", "outcome"}),
		SourceLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "call_latency_seconds",
			Help:      "Adapter call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulScan: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scan_timestamp",
			Help:      "Unix timestamp of the last scan that did not fail",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordScan records a finished scan.
func RecordScan(failed bool, duration time.Duration, finishedAt time.Time) {
	outcome := "completed"
	if failed {
		outcome = "failed"
	} else {
		DefaultMetrics.LastSuccessfulScan.Set(float64(finishedAt.Unix()))
	}
	DefaultMetrics.ScansTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.ScanDuration.Observe(duration.Seconds())
}

// RecordCandidates adds n candidates at a pipeline stage.
func RecordCandidates(stage string, n int) {
	if n > 0 {
		DefaultMetrics.Candidates.WithLabelValues(stage).Add(float64(n))
	}
}

// RecordRejections adds filter rejections by reason.
func RecordRejections(byReason map[string]int) {
	for reason, n := range byReason {
		DefaultMetrics.FilterRejected.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordEnrichTimeouts adds candidates that missed the enrichment deadline.
func RecordEnrichTimeouts(n int) {
	if n > 0 {
		DefaultMetrics.EnrichTimeouts.Add(float64(n))
	}
}

// RecordMomentumSpikes adds published momentum spikes.
func RecordMomentumSpikes(n int) {
	if n > 0 {
		DefaultMetrics.MomentumSpikes.Add(float64(n))
	}
}

// SetScannerState marks state as the current one among states.
func SetScannerState(state string, states []string) {
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		DefaultMetrics.ScannerState.WithLabelValues(s).Set(v)
	}
}

// SetSeenSetSize updates the seen set gauge.
func SetSeenSetSize(n int) {
	DefaultMetrics.SeenSetSize.Set(float64(n))
}

// RecordSourceCall records one adapter call.
func RecordSourceCall(source, outcome string, latency time.Duration) {
	DefaultMetrics.SourceCalls.WithLabelValues(source, outcome).Inc()
	DefaultMetrics.SourceLatency.WithLabelValues(source).Observe(latency.Seconds())
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
