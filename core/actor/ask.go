package actor

import (
	"context"
	"errors"
	"time"

	"github.com/relaykit/relay/core/mailbox"
	"github.com/relaykit/relay/core/message"
)

// Asker is a dedicated actor spawned purely to issue requests from
// non-actor code (a CLI driver, an HTTP handler, a test) and block for the
// typed reply, the way Context.Request already does for code running
// inside an actor.
//
// Grounded on the teacher's cluster.Request[IN, OUT]/NewRequest generic
// request helper, adapted from its JSON-over-the-wire shape to this
// runtime's in-process Context.Request/continuation pair.
type Asker struct {
	sys  *System
	ctrl *Control
}

// NewAsker spawns the actor Ask calls run against. One Asker can issue
// any number of sequential Ask calls; it is not safe for concurrent use
// by multiple goroutines (spawn one Asker per goroutine, same as any
// other actor-bound resource).
func NewAsker(sys *System) *Asker {
	ref := sys.Spawn(NewBehavior(), SpawnOptions{})
	return &Asker{sys: sys, ctrl: ref.(localRef).Control()}
}

// Stop releases the underlying actor. Call once the Asker is no longer
// needed.
func (a *Asker) Stop() { a.ctrl.requestStop(ExitNormal) }

// Notify sends values to target without waiting for a reply, for
// non-actor code that wants the fire-and-forget half of spec §4.C's
// send/request split (the teacher's cluster.Client.Notify, in-process).
func (a *Asker) Notify(target mailbox.Ref, values ...any) error {
	return a.ctrl.ctx.Send(target, values...)
}

// Ask sends req to target and blocks until timeout elapses or a reply
// arrives, type-asserting it to *Resp.
func Ask[Resp any](ctx context.Context, a *Asker, target mailbox.Ref, timeout time.Duration, req any) (*Resp, error) {
	done := make(chan struct {
		reply *message.Message
		err   error
	}, 1)

	err := a.ctrl.ctx.Request(target, timeout, func(reply *message.Message, err error) {
		done <- struct {
			reply *message.Message
			err   error
		}{reply, err}
	}, req)
	if err != nil {
		return nil, err
	}

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if failure, ok := r.reply.At(0).(FailureReason); ok {
			return nil, errors.New(failure.Message)
		}
		return r.reply.At(0).(*Resp), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
