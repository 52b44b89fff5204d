// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Validation metrics
	ChecksTotal     *prometheus.CounterVec
	FindingsTotal   *prometheus.CounterVec
	AccuracyRatings *prometheus.CounterVec

	// Repair metrics
	RepairsTotal         *prometheus.CounterVec
	RepairErrorsTotal    *prometheus.CounterVec
	RepairBatchesAborted prometheus.Counter

	// Quality metrics
	QualityOverallScore prometheus.Gauge
	QualitySubscore     *prometheus.GaugeVec
	QualityRecords      prometheus.Gauge

	// Queue metrics
	QueueDepth     prometheus.Gauge
	QueueRejected  prometheus.Counter
	QueueExpired   prometheus.Counter
	QueueMalformed prometheus.Counter

	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
	WSSubscribers       prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "forecast_guard"
	}

	return &Metrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "checks_total",
			Help:      "Total number of records checked by overall severity",
		}, []string{"severity"}),
		FindingsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "findings_total",
			Help:      "Total number of findings by check kind and severity",
		}, []string{"check_kind", "severity"}),
		AccuracyRatings: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "variance",
			Name:      "ratings_total",
			Help:      "Total number of accuracy analyses by rating",
		}, []string{"rating"}),

		RepairsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repair",
			Name:      "repairs_total",
			Help:      "Total number of repair attempts by status",
		}, []string{"status"}),
		RepairErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repair",
			Name:      "errors_total",
			Help:      "Total number of per-record repair errors by kind",
		}, []string{"kind"}),
		RepairBatchesAborted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repair",
			Name:      "batches_aborted_total",
			Help:      "Total number of batch repairs aborted by store connectivity failures",
		}),

		QualityOverallScore: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "quality",
			Name:      "overall_score",
			Help:      "Most recent overall data quality score",
		}),
		QualitySubscore: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "quality",
			Name:      "subscore",
			Help:      "Most recent data quality sub-score by name",
		}, []string{"name"}),
		QualityRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "quality",
			Name:      "records_in_window",
			Help:      "Number of records in the most recent quality window",
		}),

		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Current number of forecast ids waiting in the update queue",
		}),
		QueueRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "rejected_total",
			Help:      "Total number of enqueue attempts rejected at capacity",
		}),
		QueueExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "expired_total",
			Help:      "Total number of queue items dropped after their TTL",
		}),
		QueueMalformed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "malformed_total",
			Help:      "Total number of undecodable queue items discarded",
		}),

		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Total number of validation cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Validation cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last successful validation cycle",
		}),
		WSSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Number of connected websocket subscribers",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCheck records one validated record by overall severity.
func RecordCheck(severity string) {
	DefaultMetrics.ChecksTotal.WithLabelValues(severity).Inc()
}

// RecordFinding records one finding.
func RecordFinding(checkKind, severity string) {
	DefaultMetrics.FindingsTotal.WithLabelValues(checkKind, severity).Inc()
}

// RecordRating records one accuracy analysis.
func RecordRating(rating string) {
	DefaultMetrics.AccuracyRatings.WithLabelValues(rating).Inc()
}

// RecordRepair records one repair attempt outcome.
func RecordRepair(status string) {
	DefaultMetrics.RepairsTotal.WithLabelValues(status).Inc()
}

// RecordRepairError records one per-record repair failure.
func RecordRepairError(kind string) {
	DefaultMetrics.RepairErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordRepairAborted records a batch stopped by a connectivity failure.
func RecordRepairAborted() {
	DefaultMetrics.RepairBatchesAborted.Inc()
}

// UpdateQuality publishes the latest quality snapshot.
func UpdateQuality(overall, completeness, accuracy, consistency, timeliness float64, records int) {
	DefaultMetrics.QualityOverallScore.Set(overall)
	DefaultMetrics.QualitySubscore.WithLabelValues("completeness").Set(completeness)
	DefaultMetrics.QualitySubscore.WithLabelValues("accuracy").Set(accuracy)
	DefaultMetrics.QualitySubscore.WithLabelValues("consistency").Set(consistency)
	DefaultMetrics.QualitySubscore.WithLabelValues("timeliness").Set(timeliness)
	DefaultMetrics.QualityRecords.Set(float64(records))
}

// UpdateQueueDepth updates the queue depth gauge.
func UpdateQueueDepth(n int) {
	DefaultMetrics.QueueDepth.Set(float64(n))
}

// RecordQueueRejected increments the rejected enqueue counter.
func RecordQueueRejected() {
	DefaultMetrics.QueueRejected.Inc()
}

// RecordQueueExpired adds n expired items.
func RecordQueueExpired(n int) {
	DefaultMetrics.QueueExpired.Add(float64(n))
}

// RecordQueueMalformed counts one discarded undecodable item.
func RecordQueueMalformed() {
	DefaultMetrics.QueueMalformed.Inc()
}

// RecordCycle records a validation cycle.
func RecordCycle(status string, duration time.Duration) {
	DefaultMetrics.CyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(duration.Seconds())
	if status == "success" {
		DefaultMetrics.LastSuccessfulCycle.SetToCurrentTime()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// UpdateSubscribers updates the websocket subscriber gauge.
func UpdateSubscribers(n int) {
	DefaultMetrics.WSSubscribers.Set(float64(n))
}
