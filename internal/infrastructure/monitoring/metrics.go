package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive   prometheus.Gauge
	SessionsLaunched prometheus.Counter
	SessionsClosed   prometheus.Counter

	// Port pool metrics
	PortsInUse prometheus.Gauge

	// Poller metrics
	PollsTotal prometheus.Counter
	PollErrors prometheus.Counter

	// Discovery metrics
	AppsDiscovered prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nwlens_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nwlens_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nwlens_sessions_active",
				Help: "Number of live debug sessions",
			},
		),
		SessionsLaunched: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nwlens_sessions_launched_total",
				Help: "Total number of debug sessions launched",
			},
		),
		SessionsClosed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nwlens_sessions_closed_total",
				Help: "Total number of debug sessions closed",
			},
		),

		PortsInUse: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nwlens_ports_in_use",
				Help: "Number of debugging ports currently allocated",
			},
		),

		PollsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nwlens_polls_total",
				Help: "Total number of target-list polls",
			},
		),
		PollErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nwlens_poll_errors_total",
				Help: "Total number of failed target-list polls",
			},
		),

		AppsDiscovered: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nwlens_apps_discovered",
				Help: "Number of applications known to the store",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nwlens_ws_connections",
				Help: "Number of active WebSocket observers",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nwlens_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest records metrics for an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateUptime refreshes the uptime gauge
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
