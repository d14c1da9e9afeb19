package prometheus

import (
	"github.com/marmos91/netsspi/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterProviderMetricsConstructor(NewProviderMetrics)
}

// providerMetrics is the Prometheus implementation of metrics.ProviderMetrics.
type providerMetrics struct {
	logons       *prometheus.CounterVec
	handles      *prometheus.GaugeVec
	messages     *prometheus.CounterVec
	messageBytes *prometheus.HistogramVec
}

// NewProviderMetrics creates a Prometheus-backed ProviderMetrics on the
// process registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewProviderMetrics() metrics.ProviderMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return NewProviderMetricsWith(metrics.GetRegistry())
}

// NewProviderMetricsWith registers the collectors on reg.
func NewProviderMetricsWith(reg prometheus.Registerer) metrics.ProviderMetrics {
	return &providerMetrics{
		logons: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "netsspi_provider_logons_total",
				Help: "Total number of logon validations by package and result",
			},
			[]string{"package", "result"}, // "success", "anonymous", "denied"
		),
		handles: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netsspi_provider_handles",
				Help: "Live provider handles by kind",
			},
			[]string{"kind"}, // "credential", "context"
		),
		messages: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "netsspi_provider_messages_total",
				Help: "Total number of signing and sealing operations",
			},
			[]string{"op"},
		),
		messageBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "netsspi_provider_message_bytes",
				Help: "Distribution of protected payload sizes",
				Buckets: []float64{
					64,      // small tokens and control messages
					512,     // 512B
					4096,    // 4KB
					32768,   // 32KB
					262144,  // 256KB
					1048576, // 1MB - default max message size
				},
			},
			[]string{"op"},
		),
	}
}

func (m *providerMetrics) RecordLogon(pkg, result string) {
	if m == nil {
		return
	}
	m.logons.WithLabelValues(pkg, result).Inc()
}

func (m *providerMetrics) SetHandles(kind string, count int) {
	if m == nil {
		return
	}
	m.handles.WithLabelValues(kind).Set(float64(count))
}

func (m *providerMetrics) RecordMessage(op string, bytes int) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(op).Inc()
	m.messageBytes.WithLabelValues(op).Observe(float64(bytes))
}
