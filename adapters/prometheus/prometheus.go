// Package prometheus provides Prometheus implementations of the
// core/metrics interfaces for each of this module's pillars: actor,
// scheduler, clock and transport.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/relaykit/relay/core/metrics"
)

// timer wraps a Prometheus histogram to implement the Timer interface.
type timer struct {
	h     prometheus.Observer
	start time.Time
}

func newTimer(h prometheus.Observer) metrics.Timer {
	return &timer{h: h, start: time.Now()}
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// AllMetrics holds Prometheus implementations for every pillar. Use this
// to initialize metrics for an entire actor system and its transport at
// once.
type AllMetrics struct {
	Actor     *actorMetrics
	Scheduler *schedulerMetrics
	Clock     *clockMetrics
	Transport *transportMetrics
}

// NewAllMetrics creates Prometheus metrics for every pillar, all
// registered against reg.
func NewAllMetrics(reg prometheus.Registerer) *AllMetrics {
	return &AllMetrics{
		Actor:     NewActorMetrics(reg).(*actorMetrics),
		Scheduler: NewSchedulerMetrics(reg).(*schedulerMetrics),
		Clock:     NewClockMetrics(reg).(*clockMetrics),
		Transport: NewTransportMetrics(reg).(*transportMetrics),
	}
}
