// Package metrics provides Prometheus metrics for the crease question engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the crease service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Core Business Metrics - question pipeline outcomes
	questionsProcessed prometheus.Counter
	questionsByShape   *prometheus.CounterVec
	questionFailures   *prometheus.CounterVec
	pipelineLatency    *prometheus.HistogramVec

	// Resolver Metrics - how entity mentions got matched
	resolverOutcomes  *prometheus.CounterVec
	registryEntities  *prometheus.GaugeVec
	thresholdInjected *prometheus.CounterVec

	// Cache Metrics - answer cache effectiveness
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheSize   prometheus.Gauge

	// Row Store Metrics - external query execution
	rowstoreQueryLatency prometheus.Histogram
	rowstoreRowsReturned prometheus.Histogram
	rowstoreRetries      prometheus.Counter
	rowstoreTimeouts     prometheus.Counter
	rowstoreInFlight     prometheus.Gauge

	// Fallback Metrics - language-model suggestion path
	fallbackAttempts prometheus.Counter
	fallbackAccepted prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Enhanced Error Metrics - Detailed error tracking
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
		namespace:        "crease",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Business Metrics - Question pipeline outcomes
	m.questionsProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "questions_processed_total",
		Help:      "Total number of questions answered successfully",
	})

	m.questionsByShape = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "questions_by_shape_total",
			Help:      "Total number of classified questions by intent shape",
		},
		[]string{"shape"},
	)

	m.questionFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "question_failures_total",
			Help:      "Total number of failed questions by error code",
		},
		[]string{"code"},
	)

	m.pipelineLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "pipeline_stage_latency_milliseconds",
			Help:      "Latency of pipeline stages (resolve, classify, assemble, execute, narrate)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"stage"},
	)

	// Resolver Metrics
	m.resolverOutcomes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "resolver_outcomes_total",
			Help:      "Entity resolution outcomes (exact, alias, token, fuzzy, ambiguous, none)",
		},
		[]string{"outcome"},
	)

	m.registryEntities = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "registry_entities",
			Help:      "Number of canonical entities loaded by kind (player, team, venue)",
		},
		[]string{"kind"},
	)

	m.thresholdInjected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "threshold_injected_total",
			Help:      "Default minimum-sample thresholds injected, by metric",
		},
		[]string{"metric"},
	)

	// Cache Metrics
	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Total number of answer cache hits",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Total number of answer cache misses",
	})

	m.cacheSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_size",
		Help:      "Current number of cached answers",
	})

	// Row Store Metrics
	m.rowstoreQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rowstore_query_latency_milliseconds",
		Help:      "Row store query execution latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.rowstoreRowsReturned = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rowstore_rows_returned",
		Help:      "Number of rows returned per executed query",
		Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 500},
	})

	m.rowstoreRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rowstore_retries_total",
		Help:      "Total number of transient row store failures retried",
	})

	m.rowstoreTimeouts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rowstore_timeouts_total",
		Help:      "Total number of row store queries that exceeded the deadline",
	})

	m.rowstoreInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rowstore_in_flight",
		Help:      "Current number of queries executing against the row store",
	})

	// Fallback Metrics
	m.fallbackAttempts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fallback_attempts_total",
		Help:      "Total number of language-model fallback suggestions requested",
	})

	m.fallbackAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fallback_accepted_total",
		Help:      "Total number of fallback suggestions that passed validation",
	})

	// HTTP Performance Metrics - User experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Enhanced Error Metrics - Detailed error tracking
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total number of errors by type",
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of operations that resulted in errors",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordQuestionProcessed increments the processed questions counter.
func RecordQuestionProcessed() {
	globalManager.questionsProcessed.Inc()
}

// RecordQuestionShape increments the per-shape question counter.
func RecordQuestionShape(shape string) {
	globalManager.questionsByShape.WithLabelValues(shape).Inc()
}

// RecordQuestionFailure increments the per-code failure counter.
func RecordQuestionFailure(code string) {
	globalManager.questionFailures.WithLabelValues(code).Inc()
}

// RecordPipelineStageLatency records the latency of a pipeline stage.
func RecordPipelineStageLatency(stage string, latencyMs float64) {
	globalManager.pipelineLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordResolverOutcome increments the resolver outcome counter.
func RecordResolverOutcome(outcome string) {
	globalManager.resolverOutcomes.WithLabelValues(outcome).Inc()
}

// UpdateRegistryEntities sets the number of loaded entities for a kind.
func UpdateRegistryEntities(kind string, count int) {
	globalManager.registryEntities.WithLabelValues(kind).Set(float64(count))
}

// RecordThresholdInjected increments the injected-threshold counter for a metric.
func RecordThresholdInjected(metric string) {
	globalManager.thresholdInjected.WithLabelValues(metric).Inc()
}

// RecordCacheHit increments the answer cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the answer cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// UpdateCacheSize sets the current answer cache size.
func UpdateCacheSize(size int) {
	globalManager.cacheSize.Set(float64(size))
}

// RecordRowStoreQueryLatency records row store execution latency.
func RecordRowStoreQueryLatency(latencyMs float64) {
	globalManager.rowstoreQueryLatency.Observe(latencyMs)
}

// RecordRowStoreRowsReturned records the number of rows an executed query returned.
func RecordRowStoreRowsReturned(rows int) {
	globalManager.rowstoreRowsReturned.Observe(float64(rows))
}

// RecordRowStoreRetry increments the transient-retry counter.
func RecordRowStoreRetry() {
	globalManager.rowstoreRetries.Inc()
}

// RecordRowStoreTimeout increments the query timeout counter.
func RecordRowStoreTimeout() {
	globalManager.rowstoreTimeouts.Inc()
}

// UpdateRowStoreInFlight sets the number of queries currently executing.
func UpdateRowStoreInFlight(n int) {
	globalManager.rowstoreInFlight.Set(float64(n))
}

// RecordFallbackAttempt increments the fallback attempt counter.
func RecordFallbackAttempt() {
	globalManager.fallbackAttempts.Inc()
}

// RecordFallbackAccepted increments the accepted fallback counter.
func RecordFallbackAccepted() {
	globalManager.fallbackAccepted.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Enhanced Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
