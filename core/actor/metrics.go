package actor

import "github.com/relaykit/relay/core/metrics"

// ActorMetrics is the instrumentation surface the actor runtime drives,
// grounded on the teacher's own ActorMetrics interface but retargeted
// from the cluster pillar to the actor/mailbox/scheduler pillars this
// runtime actually has.
type ActorMetrics interface {
	MessageDuration(typeName string) metrics.Timer
	MessageProcessed(typeName string, success bool)
	MessagePanic(typeName string)
	MailboxDepth(actorID string, depth int)
}

type nopActorMetrics struct{}

func (nopActorMetrics) MessageDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopActorMetrics) MessageProcessed(string, bool)        {}
func (nopActorMetrics) MessagePanic(string)                  {}
func (nopActorMetrics) MailboxDepth(string, int)             {}

// NopActorMetrics returns a no-op ActorMetrics.
func NopActorMetrics() ActorMetrics { return nopActorMetrics{} }
