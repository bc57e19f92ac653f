package actor

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/relaykit/relay/core/flow"
	"github.com/relaykit/relay/core/mailbox"
	"github.com/relaykit/relay/core/message"
	"github.com/relaykit/relay/core/scheduler"
)

// Control is an actor's control block (spec component F): mailbox,
// behavior stack, link/monitor sets and outstanding-request table, driven
// one Resume call at a time by the scheduler.
type Control struct {
	id  mailbox.ActorID
	sys *System
	log *slog.Logger

	mbox  *mailbox.Mailbox
	reqs  *requestTable
	coord *flow.Coordinator
	ctx   *Context // reused across dispatches; never touched concurrently

	stackMu sync.Mutex
	stack   []*Behavior

	linksMu sync.Mutex
	links   map[mailbox.ActorID]localRef

	monitorsMu sync.Mutex
	monitors   map[mailbox.ActorID]localRef

	refs atomic.Int32

	stopOnce  sync.Once
	stopWant  atomic.Bool
	wantedRes ExitReason
	exitOnce  sync.Once
	exitRes   ExitReason
	done      chan struct{}
}

func newControl(sys *System, id mailbox.ActorID, initial *Behavior, log *slog.Logger) *Control {
	c := &Control{
		id:       id,
		sys:      sys,
		log:      log,
		mbox:     mailbox.New(),
		reqs:     newRequestTable(),
		coord:    flow.NewCoordinator(),
		links:    make(map[mailbox.ActorID]localRef),
		monitors: make(map[mailbox.ActorID]localRef),
		done:     make(chan struct{}),
	}
	c.stack = []*Behavior{initial}
	c.ctx = &Context{ctrl: c}
	c.mbox.SetNotify(func() { sys.scheduler().Schedule(c) })
	return c
}

// ActorID returns the control block's process-wide identity, satisfying
// mailbox.Ref.
func (c *Control) ActorID() mailbox.ActorID { return c.id }

// Strong returns a strong reference to this control block.
func (c *Control) Strong() mailbox.Ref { return newStrongRef(c) }

// Weak returns a weak reference to this control block.
func (c *Control) Weak() mailbox.Ref { return newWeakRef(c) }

// Done is closed once this actor has fully exited.
func (c *Control) Done() <-chan struct{} { return c.done }

// ExitReason blocks until the actor has exited and returns why.
func (c *Control) ExitReason() ExitReason {
	<-c.done
	return c.exitRes
}

// Retain/Release satisfy scheduler.Resumable. The scheduler calls Retain
// before queuing and Release once Resume reports Done, AwaitingMessage or
// Shutdown — mirroring the strong-reference discipline the teacher's own
// scheduler applies around HandlerCtx.Schedule tasks.
func (c *Control) Retain()  { c.refs.Add(1) }
func (c *Control) Release() { c.refs.Add(-1) }

func (c *Control) currentBehavior() *Behavior {
	c.stackMu.Lock()
	defer c.stackMu.Unlock()
	return c.stack[len(c.stack)-1]
}

// become installs next. If keep is true it is pushed on top of the
// current stack (Unbecome later returns to what's underneath); otherwise
// it replaces the top entry outright.
func (c *Control) become(next *Behavior, keep bool) {
	c.stackMu.Lock()
	if keep {
		c.stack = append(c.stack, next)
	} else {
		c.stack[len(c.stack)-1] = next
	}
	c.stackMu.Unlock()
	c.mbox.PromoteStashed()
}

func (c *Control) unbecome() {
	c.stackMu.Lock()
	if len(c.stack) > 1 {
		c.stack = c.stack[:len(c.stack)-1]
	}
	c.stackMu.Unlock()
	c.mbox.PromoteStashed()
}

func (c *Control) link(other localRef) {
	c.linksMu.Lock()
	c.links[other.ActorID()] = other
	c.linksMu.Unlock()
}

func (c *Control) unlink(id mailbox.ActorID) {
	c.linksMu.Lock()
	delete(c.links, id)
	c.linksMu.Unlock()
}

func (c *Control) monitor(other localRef) {
	c.monitorsMu.Lock()
	c.monitors[other.ActorID()] = other
	c.monitorsMu.Unlock()
}

func (c *Control) demonitor(id mailbox.ActorID) {
	c.monitorsMu.Lock()
	delete(c.monitors, id)
	c.monitorsMu.Unlock()
}

// requestStop marks this actor for shutdown. The actual exit runs on the
// actor's own goroutine-of-the-moment, the next time Resume is called.
func (c *Control) requestStop(reason ExitReason) {
	c.stopOnce.Do(func() {
		c.wantedRes = reason
		c.stopWant.Store(true)
	})
	c.sys.scheduler().Schedule(c)
}

// Resume implements scheduler.Resumable: it drains up to maxThroughput
// mailbox elements, dispatching each through the current behavior.
func (c *Control) Resume(worker int, maxThroughput int) scheduler.ResumeResult {
	processed := 0
	for maxThroughput <= 0 || processed < maxThroughput {
		if c.stopWant.Load() {
			c.finish(c.wantedRes)
			return scheduler.Shutdown
		}

		c.coord.RunPending()

		el, ok := c.mbox.Dequeue()
		if !ok {
			if c.mbox.SetAwaiting() {
				continue // raced with a concurrent enqueue; still runnable
			}
			if c.coord.HasPendingWork() {
				return scheduler.ResumeLater
			}
			return scheduler.AwaitingMessage
		}

		c.dispatchSafely(el)
		processed++
	}
	return scheduler.ResumeLater
}

func (c *Control) dispatchSafely(el *mailbox.Element) {
	typeName := c.sys.typeNameOf(el.Content)
	timer := c.sys.metrics.MessageDuration(typeName)
	defer timer.ObserveDuration()

	defer func() {
		if r := recover(); r != nil {
			c.sys.metrics.MessagePanic(typeName)
			c.log.Error("actor panicked", slog.Any("recovered", r), slog.Any("stack", debug.Stack()))
			c.finish(ExitAbnormal(panicError{r}))
		}
	}()
	c.dispatch(el)
	c.sys.metrics.MessageProcessed(typeName, true)
	c.sys.metrics.MailboxDepth(strconv.FormatUint(uint64(c.id), 10), c.mbox.Depth())
}

type panicError struct{ v any }

func (p panicError) Error() string {
	if err, ok := p.v.(error); ok {
		return "panic: " + err.Error()
	}
	return fmt.Sprintf("panic: %v", p.v)
}

func (c *Control) dispatch(el *mailbox.Element) {
	if el.Correlation.IsResponse() {
		if !c.reqs.resolve(el.Correlation, el.Content, nil) {
			c.log.Warn("response for unknown or expired request", slog.Uint64("correlation", uint64(el.Correlation)))
		}
		return
	}

	if c.sys.isTimeoutSignal(el.Content) {
		n, _ := el.Content.At(0).(requestTimeoutSignal)
		if cont, ok := c.reqs.expire(uint64(n)); ok {
			cont(nil, ErrRequestTimeout)
		}
		return
	}

	behavior := c.currentBehavior()
	handler, skip, matched := behavior.match(el.Content.Types())
	if !matched {
		c.log.Warn("no matching handler", slog.Any("types", el.Content.Types().IDs()))
		if !el.Correlation.IsAsync() && el.Sender != nil {
			c.replyTo(el, nil, ErrNoMatchingHandler)
		}
		return
	}
	if skip {
		c.mbox.Stash(el)
		return
	}

	c.ctx.cur = el
	result, err := handler(c.ctx, el.Content)
	c.ctx.cur = nil
	if err != nil {
		c.log.Warn("handler returned error", slog.Any("error", err))
	}

	if !el.Correlation.IsAsync() && el.Sender != nil {
		c.replyTo(el, result, err)
	}
}

func (c *Control) replyTo(el *mailbox.Element, result any, err error) {
	var values []any
	switch {
	case err != nil:
		values = []any{FailureReason{Message: err.Error()}}
	case result == nil:
		values = []any{Ack{}}
	default:
		values = []any{result}
	}
	msg, buildErr := message.New(c.sys.registry(), c.sys.interner(), values...)
	if buildErr != nil {
		c.log.Error("failed to build reply message", slog.Any("error", buildErr))
		return
	}
	if lr, ok := el.Sender.(localRef); ok {
		_ = lr.ctrl.mbox.Enqueue(mailbox.Normal, &mailbox.Element{
			Sender:      newWeakRef(c),
			Receiver:    el.Sender,
			Correlation: el.Correlation.Response(),
			Content:     msg,
		})
		return
	}
	if d, ok := el.Sender.(interface {
		Deliver(mailbox.Lane, *mailbox.Element) error
	}); ok {
		_ = d.Deliver(mailbox.Normal, &mailbox.Element{
			Sender:      newWeakRef(c),
			Receiver:    el.Sender,
			Correlation: el.Correlation.Response(),
			Content:     msg,
		})
	}
}

// finish runs exactly once: closes the mailbox, propagates the exit
// reason to links and monitors, and unblocks anything waiting on Done.
func (c *Control) finish(reason ExitReason) {
	c.exitOnce.Do(func() {
		c.exitRes = reason
		c.mbox.Close()
		c.reqs.cancelAll()

		c.linksMu.Lock()
		links := make([]localRef, 0, len(c.links))
		for _, r := range c.links {
			links = append(links, r)
		}
		c.linksMu.Unlock()

		c.monitorsMu.Lock()
		monitors := make([]localRef, 0, len(c.monitors))
		for _, r := range c.monitors {
			monitors = append(monitors, r)
		}
		c.monitorsMu.Unlock()

		for _, l := range links {
			if !reason.Normal {
				l.ctrl.requestStop(reason)
			}
			c.sys.notifyDown(l, c.id, reason)
		}
		for _, m := range monitors {
			c.sys.notifyDown(m, c.id, reason)
		}

		close(c.done)
	})
}
