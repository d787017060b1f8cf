// Package metrics exposes Prometheus instrumentation for the broker.
//
// All BrokerMetrics methods are nil-safe: a nil receiver is a no-op, so
// callers never need to guard instrumentation sites behind an enabled
// check.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BrokerMetrics holds the broker's Prometheus collectors.
type BrokerMetrics struct {
	sessionsActive    prometheus.Gauge
	sessionsTotal     prometheus.Counter
	channelsActive    prometheus.Gauge
	messagesPublished prometheus.Counter
	messagesDelivered prometheus.Counter
	requestDuration   *prometheus.HistogramVec
}

// NewBrokerMetrics registers the broker collectors on reg and returns the
// handle. Pass the result (or nil, to disable instrumentation) to the
// broker and API layers.
func NewBrokerMetrics(reg prometheus.Registerer) *BrokerMetrics {
	return &BrokerMetrics{
		sessionsActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "cometd_sessions_active",
			Help: "Number of live client sessions",
		}),
		sessionsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "cometd_sessions_registered_total",
			Help: "Total number of handshakes that registered a session",
		}),
		channelsActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "cometd_channels_active",
			Help: "Number of channels with at least one subscriber",
		}),
		messagesPublished: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "cometd_messages_published_total",
			Help: "Total number of messages accepted for publication",
		}),
		messagesDelivered: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "cometd_messages_delivered_total",
			Help: "Total number of message copies placed on session queues",
		}),
		requestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cometd_request_duration_seconds",
			Help:    "Bayeux request handling latency by endpoint",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// SessionRegistered records a successful handshake.
func (m *BrokerMetrics) SessionRegistered() {
	if m == nil {
		return
	}
	m.sessionsTotal.Inc()
	m.sessionsActive.Inc()
}

// SessionRemoved records a disconnect or eviction.
func (m *BrokerMetrics) SessionRemoved() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// ChannelCreated records a channel gaining its first subscriber.
func (m *BrokerMetrics) ChannelCreated() {
	if m == nil {
		return
	}
	m.channelsActive.Inc()
}

// ChannelRemoved records a channel losing its last subscriber.
func (m *BrokerMetrics) ChannelRemoved() {
	if m == nil {
		return
	}
	m.channelsActive.Dec()
}

// MessagePublished records one accepted publish.
func (m *BrokerMetrics) MessagePublished() {
	if m == nil {
		return
	}
	m.messagesPublished.Inc()
}

// MessageDelivered records n message copies placed on session queues.
func (m *BrokerMetrics) MessageDelivered(n int) {
	if m == nil {
		return
	}
	m.messagesDelivered.Add(float64(n))
}

// ObserveRequest records the handling latency of one Bayeux request.
func (m *BrokerMetrics) ObserveRequest(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(endpoint).Observe(seconds)
}
