package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Investigation metrics
	InvestigationsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orderscope_investigations_started_total",
			Help: "Total number of investigations started",
		},
	)

	InvestigationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderscope_investigations_completed_total",
			Help: "Total number of investigations completed",
		},
		[]string{"intent", "status"},
	)

	InvestigationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderscope_investigation_duration_seconds",
			Help:    "Investigation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"intent"},
	)

	PhaseFlips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orderscope_phase_flips_total",
			Help: "Total number of primary-to-comparison phase transitions",
		},
	)

	// Worker metrics
	WorkerExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderscope_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "purpose", "status"},
	)

	WorkerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderscope_worker_duration_ms",
			Help:    "Worker execution duration in milliseconds",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000},
		},
		[]string{"worker"},
	)

	WorkerRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderscope_worker_retries_total",
			Help: "Total number of retried worker attempts",
		},
		[]string{"worker"},
	)

	DegradedFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderscope_degraded_findings_total",
			Help: "Total number of degraded findings stored after unrecoverable worker failures",
		},
		[]string{"worker"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orderscope_finding_cache_hits_total",
			Help: "Total number of finding cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orderscope_finding_cache_misses_total",
			Help: "Total number of finding cache misses",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orderscope_finding_cache_evictions_total",
			Help: "Total number of finding cache evictions",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orderscope_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderscope_circuit_breaker_trips_total",
			Help: "Total number of circuit breaker open transitions",
		},
		[]string{"name"},
	)
)

// RecordWorkerMetrics records one worker execution.
func RecordWorkerMetrics(workerName, purpose, status string, durationMs float64) {
	WorkerExecutions.WithLabelValues(workerName, purpose, status).Inc()
	WorkerDuration.WithLabelValues(workerName).Observe(durationMs)
}
