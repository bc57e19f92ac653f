package flow

import (
	"sync"
	"time"

	"github.com/relaykit/relay/core/clock"
)

// Coordinator is the per-actor cooperative continuation queue of spec
// §4.H: delay/delay_fn post work to run before the next mailbox dequeue,
// and watch extends the actor's liveness while a Disposable is still
// outstanding. The actor runtime calls RunPending once per dispatch
// quantum; Coordinator itself never spawns a goroutine.
type Coordinator struct {
	mu      sync.Mutex
	delayed []func()
	watched []clock.Disposable
}

// NewCoordinator creates an empty Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Delay enqueues action to run before the next mailbox dequeue.
func (c *Coordinator) Delay(action func()) {
	c.mu.Lock()
	c.delayed = append(c.delayed, action)
	c.mu.Unlock()
}

// DelayFn is sugar for Delay.
func (c *Coordinator) DelayFn(fn func()) { c.Delay(fn) }

// Watch extends liveness: HasPendingWork reports true while d is
// undisposed, even with an empty delay queue.
func (c *Coordinator) Watch(d clock.Disposable) {
	c.mu.Lock()
	c.watched = append(c.watched, d)
	c.mu.Unlock()
}

// RunPending drains every currently queued delayed action, including
// ones newly enqueued by actions that ran earlier in the same drain (so a
// map/filter chain that re-delays itself keeps draining within one
// quantum, per the execution-order guarantee in spec §4.H).
func (c *Coordinator) RunPending() {
	for {
		c.mu.Lock()
		if len(c.delayed) == 0 {
			c.mu.Unlock()
			return
		}
		batch := c.delayed
		c.delayed = nil
		c.mu.Unlock()

		for _, action := range batch {
			action()
		}
	}
}

// HasPendingWork reports whether any delayed action or live watched
// disposable remains — the actor runtime consults this before letting
// the actor become eligible for garbage collection.
func (c *Coordinator) HasPendingWork() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.delayed) > 0 {
		return true
	}
	alive := c.watched[:0]
	for _, d := range c.watched {
		if !d.Disposed() {
			alive = append(alive, d)
		}
	}
	c.watched = alive
	return len(c.watched) > 0
}

// ScopedCoordinator is the non-actor-thread variant of spec §4.H: Run
// blocks the calling goroutine, draining delayed actions and watched
// disposables until both are empty, waking on every new Delay/Watch call.
type ScopedCoordinator struct {
	*Coordinator
	wake   chan struct{}
	closed chan struct{}
}

// NewScopedCoordinator creates a ScopedCoordinator ready for Run.
func NewScopedCoordinator() *ScopedCoordinator {
	return &ScopedCoordinator{
		Coordinator: NewCoordinator(),
		wake:        make(chan struct{}, 1),
		closed:      make(chan struct{}),
	}
}

func (s *ScopedCoordinator) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Delay overrides Coordinator.Delay to also wake a blocked Run.
func (s *ScopedCoordinator) Delay(action func()) {
	s.Coordinator.Delay(action)
	s.signal()
}

// Watch overrides Coordinator.Watch to also wake a blocked Run.
func (s *ScopedCoordinator) Watch(d clock.Disposable) {
	s.Coordinator.Watch(d)
	s.signal()
}

// Run blocks until Close is called and both the delay queue and the
// watched-disposable set are empty. A watched disposable that disposes
// itself asynchronously (e.g. a clock schedule firing) is polled on a
// short tick rather than spun on, since nothing else wakes Run for it.
func (s *ScopedCoordinator) Run() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	closing := false
	for {
		s.RunPending()
		if !s.HasPendingWork() && closing {
			return
		}

		select {
		case <-s.closed:
			closing = true
			if !s.HasPendingWork() {
				return
			}
		case <-s.wake:
		case <-ticker.C:
		}
	}
}

// Close unblocks Run once pending work drains to empty.
func (s *ScopedCoordinator) Close() {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	s.signal()
}
