package actor

import (
	"time"

	"github.com/relaykit/relay/core/clock"
	"github.com/relaykit/relay/core/flow"
	"github.com/relaykit/relay/core/mailbox"
	"github.com/relaykit/relay/core/message"
	"github.com/relaykit/relay/core/scheduler"
)

// Context is the capability surface a HandlerFunc runs with: spec §4.F/G's
// "self" plus send/request/become/link/monitor/stop. One Context is
// allocated per Control and reused across dispatches — safe because a
// control block's Resume calls never overlap.
type Context struct {
	ctrl *Control
	cur  *mailbox.Element
}

// Self returns a strong ref to the running actor.
func (c *Context) Self() mailbox.Ref { return c.ctrl.Strong() }

// Sender returns the weak ref of whoever sent the message currently being
// handled, or nil for messages with no attributable sender (e.g. a timer).
func (c *Context) Sender() mailbox.Ref {
	if c.cur == nil {
		return nil
	}
	return c.cur.Sender
}

// NewMessage builds a Message from values using the owning system's type
// registry and interner.
func (c *Context) NewMessage(values ...any) (*message.Message, error) {
	return message.New(c.ctrl.sys.registry(), c.ctrl.sys.interner(), values...)
}

// Send delivers values to target's normal lane, fire-and-forget.
func (c *Context) Send(target mailbox.Ref, values ...any) error {
	return c.send(target, mailbox.Normal, values...)
}

// SendUrgent delivers values to target's urgent lane, jumping the normal
// queue (spec §3's urgent-before-normal ordering).
func (c *Context) SendUrgent(target mailbox.Ref, values ...any) error {
	return c.send(target, mailbox.Urgent, values...)
}

func (c *Context) send(target mailbox.Ref, lane mailbox.Lane, values ...any) error {
	msg, err := c.NewMessage(values...)
	if err != nil {
		return err
	}
	return deliver(target, &mailbox.Element{
		Sender:      c.ctrl.Weak(),
		Receiver:    target,
		Correlation: mailbox.Async,
		Content:     msg,
	}, lane)
}

// Request sends values to target and arranges for cont to be called,
// exactly once, from this actor's own execution: with the reply on
// success, or ErrRequestTimeout once timeout elapses with no answer.
func (c *Context) Request(target mailbox.Ref, timeout time.Duration, cont continuation, values ...any) error {
	msg, err := c.NewMessage(values...)
	if err != nil {
		return err
	}

	corrID := c.ctrl.reqs.alloc(cont)

	if err := deliver(target, &mailbox.Element{
		Sender:      c.ctrl.Weak(),
		Receiver:    target,
		Correlation: corrID,
		Content:     msg,
	}, mailbox.Normal); err != nil {
		c.ctrl.reqs.expire(corrID.RequestNumber())
		return err
	}

	if timeout > 0 {
		n := corrID.RequestNumber()
		disp := c.ctrl.sys.clock().ScheduleAt(c.ctrl.sys.clock().Now().Add(timeout), func() {
			sig, buildErr := message.New(c.ctrl.sys.registry(), c.ctrl.sys.interner(), requestTimeoutSignal(n))
			if buildErr != nil {
				return
			}
			_ = c.ctrl.mbox.Enqueue(mailbox.Urgent, &mailbox.Element{
				Receiver:    c.ctrl.Strong(),
				Correlation: mailbox.Async,
				Content:     sig,
			})
		})
		c.ctrl.reqs.setCancel(corrID, disp.Dispose)
	}
	return nil
}

// Become installs next as the actor's behavior, replacing the current one.
func (c *Context) Become(next *Behavior) { c.ctrl.become(next, false) }

// BecomeKeep pushes next on top of the behavior stack; Unbecome returns
// to what is underneath.
func (c *Context) BecomeKeep(next *Behavior) { c.ctrl.become(next, true) }

// Unbecome pops the behavior stack, if more than one entry remains.
func (c *Context) Unbecome() { c.ctrl.unbecome() }

// Link establishes a bidirectional link: if either side exits abnormally,
// the other is stopped with the same reason (spec §4.F). If other has
// already exited, its exit reason is delivered to this actor right away
// instead of being registered into a link set finish has already walked.
func (c *Context) Link(other mailbox.Ref) {
	lr, ok := other.(localRef)
	if !ok {
		return
	}

	select {
	case <-lr.ctrl.done:
		reason := lr.ctrl.exitRes
		if !reason.Normal {
			c.ctrl.requestStop(reason)
		}
		c.ctrl.sys.notifyDown(newWeakRef(c.ctrl), lr.id, reason)
		return
	default:
	}

	c.ctrl.link(lr)
	lr.ctrl.link(newWeakRef(c.ctrl))
}

// Unlink removes a previously established link, in both directions.
func (c *Context) Unlink(other mailbox.Ref) {
	c.ctrl.unlink(other.ActorID())
	if lr, ok := other.(localRef); ok {
		lr.ctrl.unlink(c.ctrl.id)
	}
}

// Monitor arranges for a Down message to be delivered to this actor when
// other exits, for any reason.
func (c *Context) Monitor(other mailbox.Ref) {
	if lr, ok := other.(localRef); ok {
		lr.ctrl.monitor(newWeakRef(c.ctrl))
	}
}

// Demonitor cancels a previous Monitor call.
func (c *Context) Demonitor(other mailbox.Ref) {
	if lr, ok := other.(localRef); ok {
		lr.ctrl.demonitor(c.ctrl.id)
	}
}

// Stop requests this actor's shutdown with reason, effective once the
// handler returns.
func (c *Context) Stop(reason ExitReason) { c.ctrl.requestStop(reason) }

// Scheduler exposes the owning system's scheduler, for flow.Coordinator's
// delay/watch continuations.
func (c *Context) Scheduler() scheduler.Scheduler { return c.ctrl.sys.scheduler() }

// Clock exposes the owning system's clock.
func (c *Context) Clock() *clock.Clock { return c.ctrl.sys.clock() }

// System returns the owning actor system.
func (c *Context) System() *System { return c.ctrl.sys }

// Flow returns this actor's Coordinator, the handle used to subscribe to
// flow.Publisher pipelines so their callbacks run on the actor's own
// thread, drained once per dispatch quantum (spec §4.H).
func (c *Context) Flow() *flow.Coordinator { return c.ctrl.coord }

// Deliver enqueues el into target's mailbox on lane. target may be a
// local control block's ref (enqueued directly) or any mailbox.Ref
// implementing Deliver(mailbox.Lane, *mailbox.Element) error — the shape
// ports/transport's remote refs satisfy so an inbound wire message can be
// handed to a local actor through the same path a local Send would take.
func Deliver(target mailbox.Ref, lane mailbox.Lane, el *mailbox.Element) error {
	return deliver(target, el, lane)
}

// deliver enqueues el into target's mailbox, whether target is a local
// control block or (per ports/transport) a remote-backed mailbox.Ref.
func deliver(target mailbox.Ref, el *mailbox.Element, lane mailbox.Lane) error {
	if lr, ok := target.(localRef); ok {
		return lr.ctrl.mbox.Enqueue(lane, el)
	}
	if d, ok := target.(interface {
		Deliver(mailbox.Lane, *mailbox.Element) error
	}); ok {
		return d.Deliver(lane, el)
	}
	return ErrStopped
}
