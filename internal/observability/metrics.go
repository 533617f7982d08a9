package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	requestCount     *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
	errorCount       *prometheus.CounterVec
	hubConnections   prometheus.Gauge
	hubBroadcasts    *prometheus.CounterVec
	hubDeliveries    *prometheus.CounterVec
	hubCallErrors    *prometheus.CounterVec
	dispatchFailures *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP requests that ended with a domain error, by code.",
		}, []string{"method", "path", "code"}),
		hubConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hub_connections",
			Help: "Currently connected realtime clients.",
		}),
		hubBroadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Broadcasts issued by the hub, by event.",
		}, []string{"event"}),
		hubDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_deliveries_total",
			Help: "Frames written to connections, by event and outcome.",
		}, []string{"event", "outcome"}),
		hubCallErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_call_errors_total",
			Help: "Hub calls rejected, by error code.",
		}, []string{"code"}),
		dispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_dispatch_failures_total",
			Help: "Notification dispatches that failed, by event.",
		}, []string{"event"}),
	}
	m.registry.MustRegister(
		m.requestCount,
		m.requestLatency,
		m.errorCount,
		m.hubConnections,
		m.hubBroadcasts,
		m.hubDeliveries,
		m.hubCallErrors,
		m.dispatchFailures,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(method, path, code).Inc()
}

// ConnectionOpened tracks a new hub connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.hubConnections.Inc()
}

// ConnectionClosed tracks a closed hub connection.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.hubConnections.Dec()
}

// RecordBroadcast counts one fan-out and its per-recipient outcomes.
func (m *Metrics) RecordBroadcast(event string, delivered, failed int) {
	if m == nil {
		return
	}
	m.hubBroadcasts.WithLabelValues(event).Inc()
	m.hubDeliveries.WithLabelValues(event, "delivered").Add(float64(delivered))
	m.hubDeliveries.WithLabelValues(event, "failed").Add(float64(failed))
}

// RecordCallError counts a rejected hub call.
func (m *Metrics) RecordCallError(code string) {
	if m == nil {
		return
	}
	m.hubCallErrors.WithLabelValues(code).Inc()
}

// RecordDispatchFailure counts a notification that could not be pushed.
func (m *Metrics) RecordDispatchFailure(event string) {
	if m == nil {
		return
	}
	m.dispatchFailures.WithLabelValues(event).Inc()
}
