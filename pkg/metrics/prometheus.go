// Package metrics provides Prometheus metrics for the ladder ranking service.
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

// Manager manages all Prometheus metrics for the ladder service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Core business metrics
	rankingQueries    *prometheus.CounterVec
	scoreUpdates      prometheus.Counter
	scoreUpdateErrors prometheus.Counter
	pointEvents       prometheus.Counter
	duplicateEvents   prometheus.Counter

	// Cache metrics
	cacheSize          prometheus.Gauge
	cacheUpdateLatency prometheus.Histogram
	cacheQueryLatency  prometheus.Histogram
	cacheReloads       prometheus.Counter

	// Durable store metrics
	storeQueryLatency prometheus.Histogram
	storeErrors       prometheus.Counter

	// Scheduled job metrics
	jobRuns     *prometheus.CounterVec
	jobFailures *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobLastUnix *prometheus.GaugeVec

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	queueDequeues      prometheus.Counter

	// Worker metrics
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec
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
		namespace:        "ladder",
		subsystem:        "ranking",
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

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.rankingQueries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "queries_total",
			Help:      "Total number of ranking queries by kind (top, filtered, rival)",
		},
		[]string{"kind"},
	)

	m.scoreUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_updates_total",
		Help:      "Total number of write-through score updates applied to the cache",
	})

	m.scoreUpdateErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_update_errors_total",
		Help:      "Total number of score updates that failed to reach the cache",
	})

	m.pointEvents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "point_events_total",
		Help:      "Total number of point events accepted for processing",
	})

	m.duplicateEvents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "point_events_duplicate_total",
		Help:      "Total number of duplicate point events detected",
	})

	m.cacheSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_members",
		Help:      "Current number of members held by the order-statistics cache",
	})

	m.cacheUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_update_latency_milliseconds",
		Help:      "Histogram of cache upsert latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.cacheQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_query_latency_milliseconds",
		Help:      "Histogram of cache rank/top-K query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.cacheReloads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_reloads_total",
		Help:      "Total number of full cache reloads from the durable store",
	})

	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_milliseconds",
		Help:      "Histogram of durable store query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Total number of durable store errors",
	})

	m.jobRuns = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job runs by job name",
		},
		[]string{"job"},
	)

	m.jobFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "job_failures_total",
			Help:      "Total number of scheduled job failures by job name",
		},
		[]string{"job"},
	)

	m.jobDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "job_duration_milliseconds",
			Help:      "Histogram of scheduled job duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"job"},
	)

	m.jobLastUnix = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "job_last_success_unix",
			Help:      "Unix timestamp of the last successful run by job name",
		},
		[]string{"job"},
	)

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the update queue (backlog indicator)",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured capacity of the update queue",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueues_total",
		Help:      "Total number of successful enqueues",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of rejected enqueues (closed or full queue)",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeues_total",
		Help:      "Total number of dequeued events",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of active workers",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Histogram of per-event worker processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of worker processing errors",
	})

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
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component and kind",
		},
		[]string{"component", "kind"},
	)
}

// GetRegistry returns the custom Prometheus registry used by the service.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers delegating to the global manager.

// RecordRankingQuery counts a ranking query by kind: top, filtered, rival.
func RecordRankingQuery(kind string) {
	globalManager.rankingQueries.WithLabelValues(kind).Inc()
}

// RecordScoreUpdate counts a write-through update applied to the cache.
func RecordScoreUpdate() { globalManager.scoreUpdates.Inc() }

// RecordScoreUpdateError counts a write-through update that never reached the cache.
func RecordScoreUpdateError() { globalManager.scoreUpdateErrors.Inc() }

// RecordPointEvent counts an accepted point event.
func RecordPointEvent() { globalManager.pointEvents.Inc() }

// RecordDuplicateEvent counts a duplicate point event.
func RecordDuplicateEvent() { globalManager.duplicateEvents.Inc() }

// UpdateCacheSize sets the current member count of the cache.
func UpdateCacheSize(n int) { globalManager.cacheSize.Set(float64(n)) }

// RecordCacheUpdateLatency observes an upsert latency in milliseconds.
func RecordCacheUpdateLatency(ms float64) { globalManager.cacheUpdateLatency.Observe(ms) }

// RecordCacheQueryLatency observes a rank/top-K query latency in milliseconds.
func RecordCacheQueryLatency(ms float64) { globalManager.cacheQueryLatency.Observe(ms) }

// RecordCacheReload counts a full reload of the cache.
func RecordCacheReload() { globalManager.cacheReloads.Inc() }

// RecordStoreQueryLatency observes a durable store query latency in milliseconds.
func RecordStoreQueryLatency(ms float64) { globalManager.storeQueryLatency.Observe(ms) }

// RecordStoreError counts a durable store error.
func RecordStoreError() { globalManager.storeErrors.Inc() }

// RecordJobRun counts a scheduled job run.
func RecordJobRun(job string) { globalManager.jobRuns.WithLabelValues(job).Inc() }

// RecordJobFailure counts a scheduled job failure.
func RecordJobFailure(job string) { globalManager.jobFailures.WithLabelValues(job).Inc() }

// RecordJobDuration observes a job duration in milliseconds.
func RecordJobDuration(job string, ms float64) {
	globalManager.jobDuration.WithLabelValues(job).Observe(ms)
}

// UpdateJobLastSuccess sets the unix timestamp of the last successful run.
func UpdateJobLastSuccess(job string, unix float64) {
	globalManager.jobLastUnix.WithLabelValues(job).Set(unix)
}

// UpdateQueueSize sets the current queue backlog size.
func UpdateQueueSize(n int) { globalManager.queueSize.Set(float64(n)) }

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }

// RecordQueueEnqueue counts a successful enqueue.
func RecordQueueEnqueue() { globalManager.queueEnqueues.Inc() }

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueDequeue counts a dequeued event.
func RecordQueueDequeue() { globalManager.queueDequeues.Inc() }

// UpdateWorkerCount sets the number of active workers.
func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }

// RecordWorkerProcessingLatency observes a per-event latency in milliseconds.
func RecordWorkerProcessingLatency(ms float64) {
	globalManager.workerProcessingLatency.Observe(ms)
}

// RecordWorkerError counts a worker processing error.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest counts an HTTP request by endpoint, method and status.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordErrorByComponent counts an error for a component and kind.
func RecordErrorByComponent(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}
