package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	// Connection metrics
	activeConnections prometheus.Gauge
	connectionsOpened prometheus.Counter
	connectionsClosed prometheus.Counter

	// Envelope metrics
	envelopesReceived *prometheus.CounterVec // by op code
	envelopesSent     *prometheus.CounterVec // by op code
	decodeErrors      prometheus.Counter
	envelopesDropped  prometheus.Counter // outbound queue overflow

	// Lobby metrics
	activeLobbies    prometheus.Gauge
	messagesRelayed  prometheus.Counter
	relayedFanout    prometheus.Histogram
	broadcastFanout  prometheus.Histogram
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		activeConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lobic_active_connections",
				Help: "Current number of open websocket connections",
			},
		),
		connectionsOpened: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lobic_connections_opened_total",
				Help: "Total number of websocket connections opened",
			},
		),
		connectionsClosed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lobic_connections_closed_total",
				Help: "Total number of websocket connections closed",
			},
		),
		envelopesReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lobic_envelopes_received_total",
				Help: "Total number of envelopes received from clients by op code",
			},
			[]string{"op"},
		),
		envelopesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lobic_envelopes_sent_total",
				Help: "Total number of envelopes sent to clients by op code",
			},
			[]string{"op"},
		),
		decodeErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lobic_decode_errors_total",
				Help: "Total number of inbound frames that failed envelope decoding",
			},
		),
		envelopesDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lobic_envelopes_dropped_total",
				Help: "Total number of envelopes dropped due to outbound queue overflow",
			},
		),
		activeLobbies: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lobic_active_lobbies",
				Help: "Current number of lobbies",
			},
		),
		messagesRelayed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lobic_messages_relayed_total",
				Help: "Total number of chat messages relayed between lobby members",
			},
		),
		relayedFanout: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lobic_relay_fanout",
				Help:    "Number of members each relayed message was delivered to",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		broadcastFanout: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lobic_broadcast_fanout",
				Help:    "Number of connections each lobby-list broadcast reached",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
	}
}

// RecordActiveConnections updates the open connection count.
func (m *Metrics) RecordActiveConnections(count int) {
	m.activeConnections.Set(float64(count))
}

// RecordConnectionOpened increments the opened-connection counter.
func (m *Metrics) RecordConnectionOpened() {
	m.connectionsOpened.Inc()
}

// RecordConnectionClosed increments the closed-connection counter.
func (m *Metrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

// RecordEnvelopeReceived counts an inbound envelope by op code.
func (m *Metrics) RecordEnvelopeReceived(op string) {
	m.envelopesReceived.WithLabelValues(op).Inc()
}

// RecordEnvelopeSent counts an outbound envelope by op code.
func (m *Metrics) RecordEnvelopeSent(op string) {
	m.envelopesSent.WithLabelValues(op).Inc()
}

// RecordDecodeError counts a frame that failed envelope decoding.
func (m *Metrics) RecordDecodeError() {
	m.decodeErrors.Inc()
}

// RecordEnvelopeDropped counts an envelope lost to queue overflow.
func (m *Metrics) RecordEnvelopeDropped() {
	m.envelopesDropped.Inc()
}

// RecordActiveLobbies updates the lobby count.
func (m *Metrics) RecordActiveLobbies(count int) {
	m.activeLobbies.Set(float64(count))
}

// RecordMessageRelayed counts one relayed message and its delivery fanout.
func (m *Metrics) RecordMessageRelayed(recipients int) {
	m.messagesRelayed.Inc()
	m.relayedFanout.Observe(float64(recipients))
}

// RecordBroadcastFanout records how many connections a broadcast reached.
func (m *Metrics) RecordBroadcastFanout(recipients int) {
	m.broadcastFanout.Observe(float64(recipients))
}
