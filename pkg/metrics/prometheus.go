// Package metrics provides Prometheus metrics for the spoofwatch detection engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the detection engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Detection Metrics - what the pipeline produced
	chunksProcessed  *prometheus.CounterVec
	recordsRead      prometheus.Counter
	recordsCleaned   prometheus.Counter
	recordsDropped   prometheus.Counter
	anomaliesFlagged *prometheus.CounterVec
	chunkLatency     *prometheus.HistogramVec

	// Execution Metrics - pool and queue behaviour
	workersActive    prometheus.Gauge
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	invocations      *prometheus.CounterVec
	invocationTiming *prometheus.HistogramVec

	// Error Metrics
	errorsByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "spoofwatch",
		subsystem:        "detector",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.chunksProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "chunks_processed_total",
		Help:        "Total number of chunks processed, by execution strategy",
		ConstLabels: m.constLabels,
	}, []string{"strategy"})

	m.recordsRead = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "records_read_total",
		Help:        "Raw position records handed to the chunk processor",
		ConstLabels: m.constLabels,
	})

	m.recordsCleaned = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "records_cleaned_total",
		Help:        "Valid position records kept after filtering",
		ConstLabels: m.constLabels,
	})

	m.recordsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "records_dropped_total",
		Help:        "Position records dropped for bad coordinates, timestamps or vessel id",
		ConstLabels: m.constLabels,
	})

	m.anomaliesFlagged = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "anomalies_total",
		Help:        "Deduplicated anomalies flagged, by reason",
		ConstLabels: m.constLabels,
	}, []string{"reason"})

	m.chunkLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "chunk_processing_latency_milliseconds",
		Help:        "Time spent processing one chunk in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"strategy"})

	m.workersActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "workers_active",
		Help:        "Number of running chunk workers",
		ConstLabels: m.constLabels,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_size",
		Help:        "Chunks waiting for a worker",
		ConstLabels: m.constLabels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_capacity",
		Help:        "Maximum number of chunks buffered for workers",
		ConstLabels: m.constLabels,
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_enqueue_total",
		Help:        "Chunks submitted to the worker queue",
		ConstLabels: m.constLabels,
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_dequeue_total",
		Help:        "Chunks taken from the worker queue",
		ConstLabels: m.constLabels,
	})

	m.invocations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "invocations_total",
		Help:        "Engine invocations by strategy and outcome",
		ConstLabels: m.constLabels,
	}, []string{"strategy", "outcome"})

	m.invocationTiming = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "invocation_duration_milliseconds",
		Help:        "Wall time of a whole engine invocation in milliseconds",
		Buckets:     prometheus.ExponentialBuckets(10, 2, 16),
		ConstLabels: m.constLabels,
	}, []string{"strategy"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_component_total",
		Help:        "Errors by component and type",
		ConstLabels: m.constLabels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})
}

// RecordChunkProcessed counts a finished chunk and its processing latency.
func RecordChunkProcessed(strategy string, latencyMs float64) {
	globalManager.chunksProcessed.WithLabelValues(strategy).Inc()
	globalManager.chunkLatency.WithLabelValues(strategy).Observe(latencyMs)
}

// RecordRecords adds the read, cleaned and dropped row counts of one chunk.
func RecordRecords(read, cleaned, dropped int) {
	globalManager.recordsRead.Add(float64(read))
	globalManager.recordsCleaned.Add(float64(cleaned))
	globalManager.recordsDropped.Add(float64(dropped))
}

// RecordAnomalies adds n anomalies for the given reason.
func RecordAnomalies(reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.anomaliesFlagged.WithLabelValues(reason).Add(float64(n))
}

// UpdateWorkersActive sets the number of running workers.
func UpdateWorkersActive(count int) {
	globalManager.workersActive.Set(float64(count))
}

// UpdateQueueSize sets the number of chunks waiting in the queue.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueued chunk counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeued chunk counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordInvocation records the outcome and duration of one engine run.
func RecordInvocation(strategy, outcome string, durationMs float64) {
	globalManager.invocations.WithLabelValues(strategy, outcome).Inc()
	globalManager.invocationTiming.WithLabelValues(strategy).Observe(durationMs)
}

// RecordErrorByComponent records an error for a specific component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
