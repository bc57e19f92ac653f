package transport

import "github.com/relaykit/relay/core/metrics"

// Metrics is the instrumentation surface Client and Node drive: request
// latency and outcome on the send side, handler latency and outcome on
// the receive side — grounded on the teacher's ClusterMetrics, narrowed
// to what this package's Client/Node split actually produces.
type Metrics interface {
	RequestDuration(op string) metrics.Timer
	RequestCompleted(op string, success bool)
	NotifyCompleted(op string, success bool)
	HandlerDuration(op string) metrics.Timer
	HandlerCompleted(op string, success bool)
}

type nopMetrics struct{}

func (nopMetrics) RequestDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) RequestCompleted(string, bool)        {}
func (nopMetrics) NotifyCompleted(string, bool)         {}
func (nopMetrics) HandlerDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) HandlerCompleted(string, bool)        {}

// NopMetrics returns a no-op Metrics, the default for Client/Node.
func NopMetrics() Metrics { return nopMetrics{} }
