package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relaykit/relay/core/clock"
)

// clockMetrics implements clock.Metrics using Prometheus.
type clockMetrics struct {
	scheduled      prometheus.Gauge
	periodicStalls *prometheus.CounterVec
	periodicFails  prometheus.Counter
}

// NewClockMetrics creates a new Prometheus implementation of clock.Metrics.
func NewClockMetrics(reg prometheus.Registerer) clock.Metrics {
	m := &clockMetrics{
		scheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_clock_scheduled_count",
			Help: "Number of outstanding one-shot and periodic deadlines",
		}),
		periodicStalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_clock_periodic_stalls_total",
			Help: "Total number of periodic ticks that found the previous tick still outstanding, by stall policy",
		}, []string{"policy"}),
		periodicFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_clock_periodic_failures_total",
			Help: "Total number of periodic actions reported via onFailure",
		}),
	}

	reg.MustRegister(m.scheduled, m.periodicStalls, m.periodicFails)
	return m
}

func (m *clockMetrics) ScheduledCount(n int) { m.scheduled.Set(float64(n)) }

func (m *clockMetrics) PeriodicStalled(policy clock.StallPolicy) {
	m.periodicStalls.WithLabelValues(policy.String()).Inc()
}

func (m *clockMetrics) PeriodicFailed() { m.periodicFails.Inc() }

var _ clock.Metrics = (*clockMetrics)(nil)
