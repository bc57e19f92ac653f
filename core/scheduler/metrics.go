package scheduler

import "github.com/relaykit/relay/core/metrics"

// Metrics is the instrumentation surface the scheduler drives: queue depth
// and per-resume outcomes, on its own pillar separate from the actor
// runtime's message-level metrics.
type Metrics interface {
	QueueDepth(n int)
	ResumeDuration() metrics.Timer
	Resumed(result ResumeResult)
	StealAttempt(success bool)
}

type nopMetrics struct{}

func (nopMetrics) QueueDepth(int)                {}
func (nopMetrics) ResumeDuration() metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) Resumed(ResumeResult)          {}
func (nopMetrics) StealAttempt(bool)             {}

// NopMetrics returns a no-op Metrics, the default when Options.Metrics is nil.
func NopMetrics() Metrics { return nopMetrics{} }
