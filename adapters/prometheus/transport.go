package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relaykit/relay/core/metrics"
	"github.com/relaykit/relay/ports/transport"
)

// transportMetrics implements transport.Metrics using Prometheus.
type transportMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	notifiesTotal   *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	handlersTotal   *prometheus.CounterVec
}

// NewTransportMetrics creates a new Prometheus implementation of transport.Metrics.
func NewTransportMetrics(reg prometheus.Registerer) transport.Metrics {
	m := &transportMetrics{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_transport_request_duration_seconds",
			Help:    "Client-side request/reply round-trip time by op",
			Buckets: defaultBuckets,
		}, []string{"op"}),

		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_transport_requests_total",
			Help: "Total number of client-side requests by op and outcome",
		}, []string{"op", "success"}),

		notifiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_transport_notifies_total",
			Help: "Total number of client-side fire-and-forget notifies by op and outcome",
		}, []string{"op", "success"}),

		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_transport_handler_duration_seconds",
			Help:    "Server-side inbound envelope handling time by op",
			Buckets: defaultBuckets,
		}, []string{"op"}),

		handlersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_transport_handled_total",
			Help: "Total number of server-side inbound envelopes handled by op and outcome",
		}, []string{"op", "success"}),
	}

	reg.MustRegister(
		m.requestDuration,
		m.requestsTotal,
		m.notifiesTotal,
		m.handlerDuration,
		m.handlersTotal,
	)

	return m
}

func (m *transportMetrics) RequestDuration(op string) metrics.Timer {
	return newTimer(m.requestDuration.WithLabelValues(op))
}

func (m *transportMetrics) RequestCompleted(op string, success bool) {
	m.requestsTotal.WithLabelValues(op, boolToStr(success)).Inc()
}

func (m *transportMetrics) NotifyCompleted(op string, success bool) {
	m.notifiesTotal.WithLabelValues(op, boolToStr(success)).Inc()
}

func (m *transportMetrics) HandlerDuration(op string) metrics.Timer {
	return newTimer(m.handlerDuration.WithLabelValues(op))
}

func (m *transportMetrics) HandlerCompleted(op string, success bool) {
	m.handlersTotal.WithLabelValues(op, boolToStr(success)).Inc()
}

var _ transport.Metrics = (*transportMetrics)(nil)
