// Package metrics provides Prometheus metrics for the spotcheck validator service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the validator.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Scoring pipeline
	scoringRequests   *prometheus.CounterVec
	scoringLatency    prometheus.Histogram
	minersScored      *prometheus.CounterVec
	minerScore        prometheus.Histogram
	cohortSize        prometheus.Histogram
	preprocessLatency prometheus.Histogram

	// Spot checks
	spotCheckBatches    *prometheus.CounterVec
	spotCheckBatchSize  prometheus.Histogram
	spotCheckLatency    prometheus.Histogram
	spotCheckMismatches *prometheus.CounterVec
	circuitBreakerState *prometheus.GaugeVec
	syntheticTasks      *prometheus.CounterVec

	// Digestion queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueUtilization        prometheus.Gauge
	queueEnqueueRate        prometheus.Counter
	queueDequeueRate        prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	digestionResults        *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "spotcheck",
		subsystem:        "validator",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// name applies the optional metric prefix.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)
	secondsBuckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

	m.scoringRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("scoring_requests_total"),
		Help:        "Total number of scoring requests by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("scoring_duration_seconds"),
		Help:        "End-to-end duration of a scoring request in seconds",
		Buckets:     secondsBuckets,
		ConstLabels: constLabels,
	})

	m.minersScored = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("miners_scored_total"),
		Help:        "Total number of miner results by verdict",
		ConstLabels: constLabels,
	}, []string{"verdict"})

	m.minerScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("miner_score"),
		Help:        "Distribution of final composite miner scores",
		Buckets:     prometheus.LinearBuckets(0, 0.1, 11),
		ConstLabels: constLabels,
	})

	m.cohortSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("cohort_size"),
		Help:        "Number of miner submissions per scoring request",
		Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
		ConstLabels: constLabels,
	})

	m.preprocessLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("preprocess_duration_milliseconds"),
		Help:        "Duration of submission preprocessing for a whole cohort",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.spotCheckBatches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("spot_check_batches_total"),
		Help:        "Total number of batched spot checks by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.spotCheckBatchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("spot_check_batch_reviews"),
		Help:        "Number of review URLs sent per batched spot check",
		Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
		ConstLabels: constLabels,
	})

	m.spotCheckLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("spot_check_duration_seconds"),
		Help:        "Duration of the batched verification call in seconds",
		Buckets:     secondsBuckets,
		ConstLabels: constLabels,
	})

	m.spotCheckMismatches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("spot_check_mismatches_total"),
		Help:        "Total number of spot check reconciliation failures by field",
		ConstLabels: constLabels,
	}, []string{"field"})

	m.circuitBreakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("circuit_breaker_state"),
		Help:        "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		ConstLabels: constLabels,
	}, []string{"name"})

	m.syntheticTasks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("synthetic_tasks_total"),
		Help:        "Total number of synthetic task creations by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("digest_queue_size"),
		Help:        "Current number of digestion jobs waiting in the queue",
		ConstLabels: constLabels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("digest_queue_capacity"),
		Help:        "Maximum capacity of the digestion queue",
		ConstLabels: constLabels,
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("digest_queue_utilization_ratio"),
		Help:        "Digestion queue utilization (size / capacity)",
		ConstLabels: constLabels,
	})

	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("digest_queue_enqueued_total"),
		Help:        "Total number of digestion jobs enqueued",
		ConstLabels: constLabels,
	})

	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("digest_queue_dequeued_total"),
		Help:        "Total number of digestion jobs dequeued",
		ConstLabels: constLabels,
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("digest_queue_dropped_total"),
		Help:        "Total number of digestion jobs dropped because the queue was full or closed",
		ConstLabels: constLabels,
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("digest_workers"),
		Help:        "Number of digestion workers",
		ConstLabels: constLabels,
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("digest_send_duration_milliseconds"),
		Help:        "Duration of a single digestion delivery in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.digestionResults = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("digestion_results_total"),
		Help:        "Total number of digestion deliveries by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_component_total"),
			Help:        "Total number of errors by component",
			ConstLabels: constLabels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_type_total"),
			Help:        "Total number of errors by type",
			ConstLabels: constLabels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Total number of errors by endpoint",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("error_latency_milliseconds"),
			Help:        "Latency of operations that resulted in errors",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: constLabels,
	})
}

// Enabled reports whether the global manager records anything.
func Enabled() bool {
	return globalManager.enabled
}

// Scoring pipeline.

// RecordScoringRequest counts a scoring request by outcome (success, bad_request, error).
func RecordScoringRequest(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.scoringRequests.WithLabelValues(outcome).Inc()
}

// RecordScoringDuration records the end-to-end scoring duration.
func RecordScoringDuration(d time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.scoringLatency.Observe(d.Seconds())
}

// RecordMinerScored counts one miner verdict and observes its score.
func RecordMinerScored(verdict string, score float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.minersScored.WithLabelValues(verdict).Inc()
	globalManager.minerScore.Observe(score)
}

// RecordCohortSize observes the number of submissions in one scoring request.
func RecordCohortSize(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.cohortSize.Observe(float64(n))
}

// RecordPreprocessLatency records cohort preprocessing time in milliseconds.
func RecordPreprocessLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.preprocessLatency.Observe(latencyMs)
}

// Spot check metrics.

// RecordSpotCheckBatch records one batched verification call.
func RecordSpotCheckBatch(outcome string, reviews int, d time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.spotCheckBatches.WithLabelValues(outcome).Inc()
	globalManager.spotCheckBatchSize.Observe(float64(reviews))
	globalManager.spotCheckLatency.Observe(d.Seconds())
}

// RecordSpotCheckMismatch counts a reconciliation failure on field.
func RecordSpotCheckMismatch(field string) {
	if !globalManager.enabled {
		return
	}
	globalManager.spotCheckMismatches.WithLabelValues(field).Inc()
}

// UpdateCircuitBreakerState sets the breaker gauge (0=closed, 1=half-open, 2=open).
func UpdateCircuitBreakerState(name string, state float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.circuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordSyntheticTask counts a synthetic task creation attempt by outcome.
func RecordSyntheticTask(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.syntheticTasks.WithLabelValues(outcome).Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the dropped job counter.
func RecordQueueEnqueueError() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of digestion workers.
func UpdateWorkerActiveCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records digestion delivery latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordDigestion counts a digestion delivery by outcome (sent, failed, skipped).
func RecordDigestion(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.digestionResults.WithLabelValues(outcome).Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
