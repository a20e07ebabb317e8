// Package metrics provides Prometheus metrics for the Oura bridge.
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

// Manager manages all Prometheus metrics for the bridge.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Poll cycle metrics
	cyclesTotal      *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	cycleLastSuccess prometheus.Gauge
	cycleStale       prometheus.Gauge
	snapshotRecords  prometheus.Gauge

	// Upstream fetch metrics
	fetchTotal   *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec

	// Published sensor state
	sensorValue     *prometheus.GaugeVec
	sensorAvailable *prometheus.GaugeVec

	// Publisher metrics
	publishTotal *prometheus.CounterVec

	// HTTP metrics for the status API
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "oura",
		subsystem:        "bridge",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often gauge-style system metrics should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.cyclesTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cycles_total",
		Help:        "Poll cycles by result (success, failure, busy)",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.cycleDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cycle_duration_milliseconds",
		Help:        "Wall time of a full poll cycle in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.cycleLastSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cycle_last_success_unix",
		Help:        "Unix timestamp of the last successful poll cycle",
		ConstLabels: m.constLabels,
	})

	m.cycleStale = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_stale",
		Help:        "1 when the last cycle failed and the published snapshot is stale",
		ConstLabels: m.constLabels,
	})

	m.snapshotRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_records",
		Help:        "Number of records in the current snapshot",
		ConstLabels: m.constLabels,
	})

	m.fetchTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_total",
		Help:        "Upstream resource fetches by resource and outcome",
		ConstLabels: m.constLabels,
	}, []string{"resource", "outcome"})

	m.fetchLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_latency_milliseconds",
		Help:        "Upstream resource fetch latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"resource"})

	m.sensorValue = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sensor_value",
		Help:        "Current numeric value of each published sensor",
		ConstLabels: m.constLabels,
	}, []string{"sensor"})

	m.sensorAvailable = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sensor_available",
		Help:        "1 when the sensor's metric is present in the current snapshot",
		ConstLabels: m.constLabels,
	}, []string{"sensor"})

	m.publishTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "publish_total",
		Help:        "Snapshot publications by publisher and result",
		ConstLabels: m.constLabels,
	}, []string{"publisher", "result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "Heap bytes allocated",
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

// RecordCycle records the result and duration of one poll cycle.
func (m *Manager) RecordCycle(result string, durationMs float64) {
	m.cyclesTotal.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(durationMs)
}

// RecordCycleBusy counts a cycle request rejected because one was running.
func (m *Manager) RecordCycleBusy() {
	m.cyclesTotal.WithLabelValues("busy").Inc()
}

// RecordCycleSuccess marks a successful cycle at t with n records published.
func (m *Manager) RecordCycleSuccess(t time.Time, n int) {
	m.cycleLastSuccess.Set(float64(t.Unix()))
	m.snapshotRecords.Set(float64(n))
	m.cycleStale.Set(0)
}

// SetStale flags the published snapshot as stale or fresh.
func (m *Manager) SetStale(stale bool) {
	if stale {
		m.cycleStale.Set(1)
		return
	}
	m.cycleStale.Set(0)
}

// RecordFetch records one upstream fetch.
func (m *Manager) RecordFetch(resource, outcome string, latencyMs float64) {
	m.fetchTotal.WithLabelValues(resource, outcome).Inc()
	m.fetchLatency.WithLabelValues(resource).Observe(latencyMs)
}

// SetSensor publishes a sensor's numeric value and availability.
func (m *Manager) SetSensor(sensor string, value float64, available bool) {
	if !available {
		m.sensorAvailable.WithLabelValues(sensor).Set(0)
		m.sensorValue.DeleteLabelValues(sensor)
		return
	}
	m.sensorAvailable.WithLabelValues(sensor).Set(1)
	m.sensorValue.WithLabelValues(sensor).Set(value)
}

// SetSensorAvailability publishes availability for non-numeric sensors.
func (m *Manager) SetSensorAvailability(sensor string, available bool) {
	v := 0.0
	if available {
		v = 1
	}
	m.sensorAvailable.WithLabelValues(sensor).Set(v)
	m.sensorValue.DeleteLabelValues(sensor)
}

// RecordPublish records the result of handing a snapshot to a publisher.
func (m *Manager) RecordPublish(publisher, result string) {
	m.publishTotal.WithLabelValues(publisher, result).Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystem sets memory and goroutine gauges.
func (m *Manager) UpdateSystem(memBytes uint64, goroutines int) {
	m.systemMemoryUsage.Set(float64(memBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
}

// Package-level helpers delegate to the global manager.

// RecordCycle records the result and duration of one poll cycle.
func RecordCycle(result string, durationMs float64) { globalManager.RecordCycle(result, durationMs) }

// RecordCycleBusy counts a rejected overlapping cycle.
func RecordCycleBusy() { globalManager.RecordCycleBusy() }

// RecordCycleSuccess marks a successful cycle.
func RecordCycleSuccess(t time.Time, n int) { globalManager.RecordCycleSuccess(t, n) }

// SetStale flags the published snapshot as stale.
func SetStale(stale bool) { globalManager.SetStale(stale) }

// RecordFetch records one upstream fetch.
func RecordFetch(resource, outcome string, latencyMs float64) {
	globalManager.RecordFetch(resource, outcome, latencyMs)
}

// SetSensor publishes a numeric sensor value.
func SetSensor(sensor string, value float64, available bool) {
	globalManager.SetSensor(sensor, value, available)
}

// SetSensorAvailability publishes availability for a non-numeric sensor.
func SetSensorAvailability(sensor string, available bool) {
	globalManager.SetSensorAvailability(sensor, available)
}

// RecordPublish records a publisher result.
func RecordPublish(publisher, result string) { globalManager.RecordPublish(publisher, result) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// UpdateSystem sets memory and goroutine gauges.
func UpdateSystem(memBytes uint64, goroutines int) { globalManager.UpdateSystem(memBytes, goroutines) }

// RefreshInterval returns the global manager's refresh interval.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
