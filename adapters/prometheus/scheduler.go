package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relaykit/relay/core/metrics"
	"github.com/relaykit/relay/core/scheduler"
)

// schedulerMetrics implements scheduler.Metrics using Prometheus.
type schedulerMetrics struct {
	queueDepth     prometheus.Gauge
	resumeDuration prometheus.Histogram
	resumedTotal   *prometheus.CounterVec
	stealAttempts  *prometheus.CounterVec
}

// NewSchedulerMetrics creates a new Prometheus implementation of scheduler.Metrics.
func NewSchedulerMetrics(reg prometheus.Registerer) scheduler.Metrics {
	m := &schedulerMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_scheduler_queue_depth",
			Help: "Number of runnable control blocks waiting for a worker",
		}),
		resumeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_scheduler_resume_duration_seconds",
			Help:    "Time spent in one Resume call",
			Buckets: defaultBuckets,
		}),
		resumedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_scheduler_resumed_total",
			Help: "Total number of Resume calls by outcome",
		}, []string{"result"}),
		stealAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_scheduler_steal_attempts_total",
			Help: "Total number of work-steal attempts by a worker with an empty local deque",
		}, []string{"success"}),
	}

	reg.MustRegister(m.queueDepth, m.resumeDuration, m.resumedTotal, m.stealAttempts)
	return m
}

func (m *schedulerMetrics) QueueDepth(n int) { m.queueDepth.Set(float64(n)) }

func (m *schedulerMetrics) ResumeDuration() metrics.Timer {
	return newTimer(m.resumeDuration)
}

func (m *schedulerMetrics) Resumed(result scheduler.ResumeResult) {
	m.resumedTotal.WithLabelValues(result.String()).Inc()
}

func (m *schedulerMetrics) StealAttempt(success bool) {
	m.stealAttempts.WithLabelValues(boolToStr(success)).Inc()
}

var _ scheduler.Metrics = (*schedulerMetrics)(nil)
