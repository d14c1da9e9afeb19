package prometheus

import (
	"time"

	"github.com/marmos91/netsspi/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// dispatchMetrics is the Prometheus implementation of metrics.DispatchMetrics.
type dispatchMetrics struct {
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	decodeErrors     *prometheus.CounterVec
	frameBytes       *prometheus.HistogramVec
	activeConns      prometheus.Gauge
	acceptedConns    prometheus.Counter
	closedConns      prometheus.Counter
	forceClosedConns prometheus.Counter
}

// NewDispatchMetrics creates a Prometheus-backed DispatchMetrics on the
// process registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewDispatchMetrics() metrics.DispatchMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return NewDispatchMetricsWith(metrics.GetRegistry())
}

// NewDispatchMetricsWith registers the collectors on reg.
func NewDispatchMetricsWith(reg prometheus.Registerer) metrics.DispatchMetrics {
	return &dispatchMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "netsspi_requests_total",
				Help: "Total number of completed calls by role, function and status",
			},
			[]string{"role", "function", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "netsspi_request_duration_milliseconds",
				Help: "Duration of calls in milliseconds",
				Buckets: []float64{
					0.1,  // 100us - handle lookups
					0.5,  // 500us
					1,    // 1ms
					5,    // 5ms - signing and sealing
					10,   // 10ms
					50,   // 50ms - handshake legs
					100,  // 100ms
					500,  // 500ms
					1000, // 1s - remote round trips over slow links
				},
			},
			[]string{"role", "function"},
		),
		decodeErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "netsspi_decode_errors_total",
				Help: "Total number of rejected messages by role and error kind",
			},
			[]string{"role", "kind"},
		),
		frameBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "netsspi_frame_bytes",
				Help: "Distribution of framed message sizes",
				Buckets: []float64{
					16,    // header-only frames
					64,    // handle-only payloads
					256,   // negotiate messages
					1024,  // challenge and authenticate messages
					4096,  // sealed messages
					16384, // 16KB
					65536, // 64KB
				},
			},
			[]string{"role", "direction"},
		),
		activeConns: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "netsspi_active_connections",
				Help: "Current number of served connections",
			},
		),
		acceptedConns: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "netsspi_connections_accepted_total",
				Help: "Total number of accepted connections",
			},
		),
		closedConns: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "netsspi_connections_closed_total",
				Help: "Total number of closed connections",
			},
		),
		forceClosedConns: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "netsspi_connections_force_closed_total",
				Help: "Total number of connections force-closed at shutdown",
			},
		),
	}
}

func (m *dispatchMetrics) RecordRequest(role, function string, duration time.Duration, status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(role, function, status).Inc()
	m.requestDuration.WithLabelValues(role, function).Observe(duration.Seconds() * 1000)
}

func (m *dispatchMetrics) RecordDecodeError(role, kind string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(role, kind).Inc()
}

func (m *dispatchMetrics) RecordBytes(role, direction string, bytes int) {
	if m == nil || bytes <= 0 {
		return
	}
	m.frameBytes.WithLabelValues(role, direction).Observe(float64(bytes))
}

func (m *dispatchMetrics) SetActiveConnections(count int32) {
	if m == nil {
		return
	}
	m.activeConns.Set(float64(count))
}

func (m *dispatchMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.acceptedConns.Inc()
}

func (m *dispatchMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.closedConns.Inc()
}

func (m *dispatchMetrics) RecordConnectionForceClosed() {
	if m == nil {
		return
	}
	m.forceClosedConns.Inc()
}
