// Package metrics provides Prometheus metrics for the eduquest service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Gamification
	eventsRecorded     *prometheus.CounterVec
	eventsDuplicate    prometheus.Counter
	eventsIgnored      *prometheus.CounterVec
	eventsRejected     *prometheus.CounterVec
	creditsAwarded     prometheus.Counter
	experienceAwarded  prometheus.Counter
	pointsAwarded      prometheus.Counter
	levelUps           prometheus.Counter
	creditsSpent       prometheus.Counter
	spendRejected      prometheus.Counter
	usersTotal         prometheus.Gauge
	insightLatency     prometheus.Histogram
	leaderboardBuilds  *prometheus.CounterVec
	leaderboardLatency prometheus.Histogram

	// Store and index
	storeLatency     *prometheus.HistogramVec
	storeErrors      *prometheus.CounterVec
	indexUpdates     prometheus.Counter
	indexErrors      prometheus.Counter
	indexRebuildTime prometheus.Histogram
	indexSize        prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // avoids default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "eduquest",
		subsystem:        "gamification",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	m.eventsRecorded = m.counterVec("events_recorded_total", "Events applied to user counters", "kind")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Events dropped because their id was already recorded")
	m.eventsIgnored = m.counterVec("events_ignored_total", "Events with an unknown kind, recorded as a zero delta", "kind")
	m.eventsRejected = m.counterVec("events_rejected_total", "Events rejected before scoring", "reason")
	m.creditsAwarded = m.counter("credits_awarded_total", "Credits granted, including level-up bonuses")
	m.experienceAwarded = m.counter("experience_awarded_total", "Experience granted")
	m.pointsAwarded = m.counter("points_awarded_total", "Leaderboard points granted")
	m.levelUps = m.counter("level_ups_total", "Levels gained across all users")
	m.creditsSpent = m.counter("credits_spent_total", "Credits spent")
	m.spendRejected = m.counter("spend_rejected_total", "Spend requests rejected for insufficient credits")
	m.usersTotal = m.gauge("users_total", "Registered users")
	m.insightLatency = m.histogram("insight_derivation_milliseconds", "Insight snapshot derivation latency", m.histogramBuckets)
	m.leaderboardBuilds = m.counterVec("leaderboard_builds_total", "Leaderboard builds by candidate source", "source")
	m.leaderboardLatency = m.histogram("leaderboard_build_milliseconds", "Leaderboard build latency", m.histogramBuckets)

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Store operation errors", "op")
	m.indexUpdates = m.counter("index_updates_total", "Leaderboard index upserts")
	m.indexErrors = m.counter("index_errors_total", "Leaderboard index failures")
	m.indexRebuildTime = m.histogram("index_rebuild_milliseconds", "Leaderboard index rebuild duration", m.histogramBuckets)
	m.indexSize = m.gauge("index_size", "Users tracked by the leaderboard index")

	m.queueSize = m.gauge("queue_size", "Current size of the async event queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum async event queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Events enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Events dequeued")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Enqueue failures", "reason")

	m.workerCount = m.gauge("worker_count", "Async event workers")
	m.workerProcessingLatency = m.histogram("worker_processing_milliseconds", "Worker per-event processing latency", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Events that failed inside a worker")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordEventRecorded counts an event applied to a user's counters.
func RecordEventRecorded(kind string) {
	globalManager.eventsRecorded.WithLabelValues(kind).Inc()
}

// RecordEventDuplicate counts a duplicate event id.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordEventIgnored counts an event whose kind has no reward rule.
func RecordEventIgnored(kind string) {
	globalManager.eventsIgnored.WithLabelValues(kind).Inc()
}

// RecordEventRejected counts an event rejected before scoring.
func RecordEventRejected(reason string) {
	globalManager.eventsRejected.WithLabelValues(reason).Inc()
}

// RecordRewards adds an applied delta to the award counters.
func RecordRewards(credits, experience, points int) {
	if credits > 0 {
		globalManager.creditsAwarded.Add(float64(credits))
	}
	if experience > 0 {
		globalManager.experienceAwarded.Add(float64(experience))
	}
	if points > 0 {
		globalManager.pointsAwarded.Add(float64(points))
	}
}

// RecordLevelUp counts levels gained by one apply.
func RecordLevelUp(levels int) {
	if levels > 0 {
		globalManager.levelUps.Add(float64(levels))
	}
}

// RecordCreditsSpent counts credits removed by a successful spend.
func RecordCreditsSpent(amount int) {
	if amount > 0 {
		globalManager.creditsSpent.Add(float64(amount))
	}
}

// RecordSpendRejected counts a spend refused for insufficient credits.
func RecordSpendRejected() {
	globalManager.spendRejected.Inc()
}

// UpdateUsersTotal sets the registered users gauge.
func UpdateUsersTotal(count int) {
	globalManager.usersTotal.Set(float64(count))
}

// RecordInsightLatency observes one insight derivation.
func RecordInsightLatency(latencyMs float64) {
	globalManager.insightLatency.Observe(latencyMs)
}

// RecordLeaderboardBuild observes one leaderboard build.
func RecordLeaderboardBuild(source string, latencyMs float64) {
	globalManager.leaderboardBuilds.WithLabelValues(source).Inc()
	globalManager.leaderboardLatency.Observe(latencyMs)
}

// RecordStoreLatency observes a store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// RecordIndexUpdate counts a leaderboard index upsert.
func RecordIndexUpdate() {
	globalManager.indexUpdates.Inc()
}

// RecordIndexError counts a leaderboard index failure.
func RecordIndexError() {
	globalManager.indexErrors.Inc()
}

// RecordIndexRebuild observes an index rebuild and its resulting size.
func RecordIndexRebuild(latencyMs float64, size int) {
	globalManager.indexRebuildTime.Observe(latencyMs)
	globalManager.indexSize.Set(float64(size))
}

// UpdateIndexSize sets the leaderboard index size gauge.
func UpdateIndexSize(size int) {
	globalManager.indexSize.Set(float64(size))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts an enqueue failure by reason.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the worker gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency observes worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
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

// GetRegistry returns the registry the service metrics live on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
