// Package metrics provides Prometheus metrics for the farbklang service.
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

// Manager owns every collector the service exports.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ratings
	savesAccepted  prometheus.Counter
	savesDuplicate prometheus.Counter
	savesRejected  *prometheus.CounterVec
	savesPersisted prometheus.Counter
	savesFailed    prometheus.Counter

	// Similarity
	rankingLatency    prometheus.Histogram
	rankingCandidates prometheus.Histogram
	recordsSkipped    prometheus.Counter

	// Store
	recordsTotal       prometheus.Gauge
	storeLoadLatency   prometheus.Histogram
	storeWriteLatency  prometheus.Histogram
	snapshotRefreshes  *prometheus.CounterVec
	snapshotLastUnix   prometheus.Gauge
	storeWatchTriggers prometheus.Counter

	// Save queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerCount        prometheus.Gauge
	workerErrors       prometheus.Counter
	workerLatency      prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

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
	globalManager = NewManager(WithRegistry(customRegistry))
}

// Init replaces the global manager and its registry. It must run before any
// metric is recorded or served.
func Init(opts ...Option) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithRegistry(reg))...)
	customRegistry = reg
	return reg
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "farbklang",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// RefreshInterval is how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.savesAccepted = auto.NewCounter(m.counterOpts("saves_accepted_total", "Ratings accepted for saving"))
	m.savesDuplicate = auto.NewCounter(m.counterOpts("saves_duplicate_total", "Repeated submissions ignored by submission id"))
	m.savesRejected = auto.NewCounterVec(m.counterOpts("saves_rejected_total", "Ratings rejected before queueing, by reason"), []string{"reason"})
	m.savesPersisted = auto.NewCounter(m.counterOpts("saves_persisted_total", "Ratings written to the store"))
	m.savesFailed = auto.NewCounter(m.counterOpts("saves_failed_total", "Ratings the store failed to write"))

	m.rankingLatency = auto.NewHistogram(m.histogramOpts("ranking_latency_milliseconds", "Similarity ranking latency in milliseconds", nil))
	m.rankingCandidates = auto.NewHistogram(m.histogramOpts("ranking_candidates", "Candidates considered per ranking",
		prometheus.ExponentialBuckets(1, 4, 8)))
	m.recordsSkipped = auto.NewCounter(m.counterOpts("records_skipped_total", "Stored records skipped because a color did not parse"))

	m.recordsTotal = auto.NewGauge(m.gaugeOpts("records_total", "Records in the current snapshot"))
	m.storeLoadLatency = auto.NewHistogram(m.histogramOpts("store_load_latency_milliseconds", "Full store load latency in milliseconds", nil))
	m.storeWriteLatency = auto.NewHistogram(m.histogramOpts("store_write_latency_milliseconds", "Store upsert latency in milliseconds", nil))
	m.snapshotRefreshes = auto.NewCounterVec(m.counterOpts("snapshot_refresh_total", "Snapshot refreshes by trigger"), []string{"trigger"})
	m.snapshotLastUnix = auto.NewGauge(m.gaugeOpts("snapshot_last_unix", "Unix time of the last snapshot"))
	m.storeWatchTriggers = auto.NewCounter(m.counterOpts("store_watch_events_total", "File change events seen on the store file"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Saves waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Save queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Saves enqueued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Saves the queue refused"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Save workers running"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Save worker errors"))
	m.workerLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Time to persist one save in milliseconds", nil))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", nil),
		[]string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total", "Errors by type and severity"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

func on() bool { return globalManager != nil && globalManager.enabled }

// RecordSaveAccepted counts a rating that was queued for saving.
func RecordSaveAccepted() {
	if on() {
		globalManager.savesAccepted.Inc()
	}
}

// RecordSaveDuplicate counts a repeated submission.
func RecordSaveDuplicate() {
	if on() {
		globalManager.savesDuplicate.Inc()
	}
}

// RecordSaveRejected counts a rating refused before queueing.
func RecordSaveRejected(reason string) {
	if on() {
		globalManager.savesRejected.WithLabelValues(reason).Inc()
	}
}

// RecordSavePersisted counts a rating written to the store.
func RecordSavePersisted() {
	if on() {
		globalManager.savesPersisted.Inc()
	}
}

// RecordSaveFailed counts a rating the store could not write.
func RecordSaveFailed() {
	if on() {
		globalManager.savesFailed.Inc()
	}
}

// RecordRanking records one similarity ranking.
func RecordRanking(latencyMs float64, candidates, skipped int) {
	if !on() {
		return
	}
	globalManager.rankingLatency.Observe(latencyMs)
	globalManager.rankingCandidates.Observe(float64(candidates))
	if skipped > 0 {
		globalManager.recordsSkipped.Add(float64(skipped))
	}
}

// UpdateRecordsTotal sets the snapshot size.
func UpdateRecordsTotal(count int) {
	if on() {
		globalManager.recordsTotal.Set(float64(count))
	}
}

// RecordStoreLoadLatency records a full store load.
func RecordStoreLoadLatency(latencyMs float64) {
	if on() {
		globalManager.storeLoadLatency.Observe(latencyMs)
	}
}

// RecordStoreWriteLatency records one upsert.
func RecordStoreWriteLatency(latencyMs float64) {
	if on() {
		globalManager.storeWriteLatency.Observe(latencyMs)
	}
}

// RecordSnapshotRefresh counts a snapshot refresh and stamps its time.
func RecordSnapshotRefresh(trigger string) {
	if !on() {
		return
	}
	globalManager.snapshotRefreshes.WithLabelValues(trigger).Inc()
	globalManager.snapshotLastUnix.Set(float64(time.Now().Unix()))
}

// RecordStoreWatchEvent counts a file change on the store file.
func RecordStoreWatchEvent() {
	if on() {
		globalManager.storeWatchTriggers.Inc()
	}
}

// UpdateQueueSize sets the number of queued saves.
func UpdateQueueSize(size int) {
	if on() {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if on() {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue counts an accepted enqueue.
func RecordQueueEnqueue() {
	if on() {
		globalManager.queueEnqueued.Inc()
	}
}

// RecordQueueEnqueueError counts a refused enqueue.
func RecordQueueEnqueueError() {
	if on() {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the number of save workers.
func UpdateWorkerCount(count int) {
	if on() {
		globalManager.workerCount.Set(float64(count))
	}
}

// RecordWorkerError counts a failed save.
func RecordWorkerError() {
	if on() {
		globalManager.workerErrors.Inc()
	}
}

// RecordWorkerProcessingLatency records the time to persist one save.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if on() {
		globalManager.workerLatency.Observe(latencyMs)
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if on() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if on() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	if on() {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByType counts an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	if on() {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint counts an error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if on() {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if on() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if on() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if on() {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// SinceMs returns the time elapsed since start in fractional milliseconds.
func SinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1e3
}

// GetRegistry returns the registry all service metrics live on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval returns the global manager's refresh interval.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
