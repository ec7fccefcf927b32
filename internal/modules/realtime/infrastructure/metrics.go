package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"posDisplayWs/internal/modules/realtime/domain"
)

const metricsNamespace = "pos_display"

// Drop reasons recorded on the dropped envelopes counter.
const (
	DropMalformed  = "malformed"
	DropUnknownTag = "unknown_tag"
	DropUnhandled  = "unhandled"
)

// Metrics holds the relay collectors on a private registry. A nil *Metrics records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	connections prometheus.Gauge
	received    *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	deliveries  prometheus.Counter
	failures    prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "connections_active",
			Help:      "Number of open websocket connections.",
		}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "envelopes_received_total",
			Help:      "Envelopes received from peers by type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "envelopes_dropped_total",
			Help:      "Inbound payloads dropped without fan-out.",
		}, []string{"reason"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "fanout_deliveries_total",
			Help:      "Envelopes queued to peers.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "fanout_failures_total",
			Help:      "Peer deliveries that failed during fan-out.",
		}),
	}
	m.registry.MustRegister(m.connections, m.received, m.dropped, m.deliveries, m.failures)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) connectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) connectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) envelopeReceived(tag domain.Tag) {
	if m != nil {
		m.received.WithLabelValues(tag.String()).Inc()
	}
}

func (m *Metrics) envelopeDropped(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) delivered(n int) {
	if m != nil && n > 0 {
		m.deliveries.Add(float64(n))
	}
}

func (m *Metrics) deliveryFailed() {
	if m != nil {
		m.failures.Inc()
	}
}
