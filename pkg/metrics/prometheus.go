// Package metrics provides Prometheus metrics for the podium scoring service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ingestion
	winnersIngested *prometheus.CounterVec
	matchFailures   *prometheus.CounterVec

	// Recomputation
	recomputeDuration prometheus.Histogram
	recomputeRuns     *prometheus.CounterVec
	scoreRowsWritten  prometheus.Counter
	skippedPicks      prometheus.Counter
	lockWait          prometheus.Histogram

	// Analytics
	analyticsDuration  prometheus.Histogram
	analyticsCacheHits *prometheus.CounterVec

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueCoalesced   prometheus.Counter
	queueDequeued    prometheus.Counter
	queueEnqueueErrs *prometheus.CounterVec

	// Workers
	workerCount   prometheus.Gauge
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter
	workerRetries prometheus.Counter

	// Repository
	repositoryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before anything records or serves
// metrics.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// RefreshInterval returns how often the global manager's gauges should be
// refreshed.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "podium",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		refreshInterval:  defaultRefreshInterval,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// RefreshInterval returns how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.winnersIngested = auto.NewCounterVec(
		m.counterOpts("winners_ingested_total", "Winner candidates processed, by result outcome"),
		[]string{"outcome"},
	)
	m.matchFailures = auto.NewCounterVec(
		m.counterOpts("match_failures_total", "Winner candidates dropped by the identity matcher, by reason"),
		[]string{"reason"},
	)

	m.recomputeDuration = auto.NewHistogram(m.histogramOpts("recompute_duration_milliseconds", "Full score recomputation latency per event"))
	m.recomputeRuns = auto.NewCounterVec(
		m.counterOpts("recompute_runs_total", "Score recomputations, by status"),
		[]string{"status"},
	)
	m.scoreRowsWritten = auto.NewCounter(m.counterOpts("score_rows_written_total", "Score rows upserted by recomputation"))
	m.skippedPicks = auto.NewCounter(m.counterOpts("skipped_picks_total", "Picks excluded from scoring because their category or nominee is missing"))
	m.lockWait = auto.NewHistogram(m.histogramOpts("event_lock_wait_milliseconds", "Time spent waiting for the per-event recompute lock"))

	m.analyticsDuration = auto.NewHistogram(m.histogramOpts("analytics_duration_milliseconds", "Analytics snapshot computation latency"))
	m.analyticsCacheHits = auto.NewCounterVec(
		m.counterOpts("analytics_cache_total", "Analytics cache lookups, by result"),
		[]string{"result"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Pending recompute jobs"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Recompute queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Recompute jobs enqueued"))
	m.queueCoalesced = auto.NewCounter(m.counterOpts("queue_coalesced_total", "Recompute triggers merged into an already pending job"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Recompute jobs handed to workers"))
	m.queueEnqueueErrs = auto.NewCounterVec(
		m.counterOpts("queue_enqueue_errors_total", "Rejected recompute jobs, by reason"),
		[]string{"reason"},
	)

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Recompute workers running"))
	m.workerLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Recompute job processing latency"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Recompute jobs that failed"))
	m.workerRetries = auto.NewCounter(m.counterOpts("worker_retries_total", "Recompute jobs re-enqueued after a retryable failure"))

	m.repositoryLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_latency_milliseconds", "Datastore operation latency"),
		[]string{"operation"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
		ConstLabels: m.constLabels,
	})
}

// Ingestion.

// RecordWinnerIngested counts a processed candidate by outcome
// (created, updated, unchanged, no_match, error).
func RecordWinnerIngested(outcome string) {
	globalManager.winnersIngested.WithLabelValues(outcome).Inc()
}

// RecordMatchFailure counts a candidate dropped by the matcher.
func RecordMatchFailure(reason string) {
	globalManager.matchFailures.WithLabelValues(reason).Inc()
}

// Recomputation.

// RecordRecompute records one recomputation run.
func RecordRecompute(status string, latencyMs float64, rows int) {
	globalManager.recomputeRuns.WithLabelValues(status).Inc()
	globalManager.recomputeDuration.Observe(latencyMs)
	if rows > 0 {
		globalManager.scoreRowsWritten.Add(float64(rows))
	}
}

// RecordSkippedPicks counts picks excluded for referencing missing catalog rows.
func RecordSkippedPicks(n int) {
	if n > 0 {
		globalManager.skippedPicks.Add(float64(n))
	}
}

// RecordLockWait records how long a recomputation waited for its event lock.
func RecordLockWait(latencyMs float64) {
	globalManager.lockWait.Observe(latencyMs)
}

// Analytics.

// RecordAnalytics records analytics computation latency.
func RecordAnalytics(latencyMs float64) {
	globalManager.analyticsDuration.Observe(latencyMs)
}

// RecordAnalyticsCache counts a cache lookup ("hit" or "miss").
func RecordAnalyticsCache(result string) {
	globalManager.analyticsCacheHits.WithLabelValues(result).Inc()
}

// Queue.

// UpdateQueueSize sets the number of pending jobs.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueCoalesced counts a trigger merged into a pending job.
func RecordQueueCoalesced() {
	globalManager.queueCoalesced.Inc()
}

// RecordQueueDequeue counts a job handed to a worker.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrs.WithLabelValues(reason).Inc()
}

// Workers.

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records job processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerRetry counts a re-enqueued job.
func RecordWorkerRetry() {
	globalManager.workerRetries.Inc()
}

// Repository.

// RecordRepositoryLatency records the latency of a datastore operation.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
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

// Since returns the milliseconds elapsed since start.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
