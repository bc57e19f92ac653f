// Package clock implements the monotonic scheduling service of spec
// component D: one-shot and periodic actions/messages, driven by a
// single clock goroutine holding a deadline-ordered heap. The clock
// never executes user handlers directly — every fired entry either
// calls a scheduler-provided thunk or performs a mailbox enqueue.
package clock

import (
	"container/heap"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/relaykit/relay/core/mailbox"
)

// StallPolicy governs what happens when a periodic action's previous
// tick is still outstanding at the next tick (spec §4.D / §9 open question).
type StallPolicy int

const (
	// StallFail disposes the recurring action and reports
	// ErrPeriodicActionFailed via the schedule's onFailure callback.
	StallFail StallPolicy = iota
	// StallSkip drops the current tick silently and reschedules.
	StallSkip
)

// String renders a StallPolicy for logging and metric labels.
func (p StallPolicy) String() string {
	switch p {
	case StallFail:
		return "fail"
	case StallSkip:
		return "skip"
	default:
		return "unknown"
	}
}

type entry struct {
	token    string
	deadline time.Time
	fire     func()
	index    int // heap index, maintained by container/heap
	disposed *atomic.Bool
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *entryHeap) Push(x interface{}) { e := x.(*entry); e.index = len(*h); *h = append(*h, e) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	e.index = -1
	return e
}

// Options configures a Clock.
type Options struct {
	Logger  *slog.Logger
	Metrics Metrics // default: NopMetrics()
}

// Clock is a monotonic timeline that schedules one-shot and periodic
// actions or mailbox deliveries.
type Clock struct {
	log     *slog.Logger
	metrics Metrics

	mu   sync.Mutex
	h    entryHeap
	wake chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// New starts a Clock's goroutine and returns it.
func New(opts Options) *Clock {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	m := opts.Metrics
	if m == nil {
		m = NopMetrics()
	}
	c := &Clock{
		log:     log,
		metrics: m,
		wake:    make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}
	go c.run()
	return c
}

// Now returns the current monotonic time, per spec §4.D.
func (c *Clock) Now() time.Time { return time.Now() }

// Shutdown stops the clock goroutine. Pending entries never fire.
func (c *Clock) Shutdown() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Clock) scheduleEntry(deadline time.Time, fire func()) Disposable {
	disposedFlag := &atomic.Bool{}
	e := &entry{
		token:    gonanoid.MustGenerate("abcdefghijklmnopqrstuvwxyz0123456789", 8),
		deadline: deadline,
		fire:     fire,
		disposed: disposedFlag,
	}

	c.mu.Lock()
	heap.Push(&c.h, e)
	soonest := c.h[0] == e
	depth := len(c.h)
	c.mu.Unlock()
	c.metrics.ScheduledCount(depth)

	if soonest {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}

	return NewDisposable(func() {
		disposedFlag.Store(true)
		c.remove(e)
	})
}

func (c *Clock) remove(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.index < 0 || e.index >= len(c.h) || c.h[e.index] != e {
		return
	}
	heap.Remove(&c.h, e.index)
}

// ScheduleAt runs action once, at t. The returned Disposable cancels it
// (idempotent); cancellation after the action has already fired is a no-op.
func (c *Clock) ScheduleAt(t time.Time, action func()) Disposable {
	return c.scheduleEntry(t, action)
}

// ScheduleMessage delivers el to mbox's lane when t is reached, converting
// the timer into an ordinary mailbox delivery — the clock never calls a
// user handler directly.
func (c *Clock) ScheduleMessage(t time.Time, mbox *mailbox.Mailbox, lane mailbox.Lane, el *mailbox.Element) Disposable {
	return c.scheduleEntry(t, func() {
		_ = mbox.Enqueue(lane, el)
	})
}

// SchedulePeriodic runs action every interval. If a previous invocation
// of action is still running when the next tick comes due, policy decides
// what happens: StallFail disposes the schedule and calls onFailure(err)
// with ErrPeriodicActionFailed; StallSkip drops the tick silently and
// reschedules. onFailure is also called, under either policy, if action
// itself returns a non-nil error — wrapped as ErrPeriodicActionFailed.
func (c *Clock) SchedulePeriodic(interval time.Duration, action func() error, policy StallPolicy, onFailure func(error)) Disposable {
	running := &atomic.Bool{}
	var disp Disposable

	var tick func()
	tick = func() {
		if disp.Disposed() {
			return
		}

		if !running.CompareAndSwap(false, true) {
			c.metrics.PeriodicStalled(policy)
			switch policy {
			case StallFail:
				disp.Dispose()
				c.metrics.PeriodicFailed()
				if onFailure != nil {
					onFailure(ErrPeriodicActionFailed)
				}
				return
			case StallSkip:
				// drop this tick; fall through to reschedule.
			}
		} else {
			go func() {
				defer running.Store(false)
				if err := action(); err != nil {
					c.log.Warn("periodic action failed", slog.Any("error", err))
					c.metrics.PeriodicFailed()
					if onFailure != nil {
						onFailure(ErrPeriodicActionFailed)
					}
				}
			}()
		}

		if !disp.Disposed() {
			c.scheduleEntry(time.Now().Add(interval), tick)
		}
	}

	disp = c.scheduleEntry(time.Now().Add(interval), tick)
	return disp
}

func (c *Clock) run() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		c.mu.Lock()
		var wait time.Duration
		hasNext := len(c.h) > 0
		if hasNext {
			wait = time.Until(c.h[0].deadline)
			if wait < 0 {
				wait = 0
			}
		}
		c.mu.Unlock()

		if hasNext {
			timer.Reset(wait)
		}

		select {
		case <-c.closed:
			return
		case <-c.wake:
			if !hasNext {
				continue
			}
			timer.Stop()
			continue
		case <-timer.C:
			c.fireDue()
		}
	}
}

func (c *Clock) fireDue() {
	now := time.Now()
	var due []*entry

	c.mu.Lock()
	for len(c.h) > 0 && !c.h[0].deadline.After(now) {
		due = append(due, heap.Pop(&c.h).(*entry))
	}
	depth := len(c.h)
	c.mu.Unlock()
	if len(due) > 0 {
		c.metrics.ScheduledCount(depth)
	}

	for _, e := range due {
		if e.disposed.Load() {
			continue
		}
		e.fire()
	}
}
