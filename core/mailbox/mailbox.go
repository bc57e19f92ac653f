package mailbox

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// Lane is a mailbox priority class, per spec §3/§5: urgent strictly
// before normal in a single dispatch step; delayed is only consulted
// when a handler skips a message that was previously stashed there.
type Lane int

const (
	Normal Lane = iota
	Urgent
	Delayed
)

// Mailbox is the bounded-unbounded, three-lane MPSC queue addressed to
// one actor. Many writers call Enqueue concurrently; exactly one reader
// (the actor's own execution, driven by the scheduler) calls Dequeue.
// Writers never block each other: each lane has its own mutex.
type Mailbox struct {
	urgentMu sync.Mutex
	urgent   []*Element

	normalMu sync.Mutex
	normal   []*Element

	stashMu sync.Mutex
	stash   *list.List // skipped elements, awaiting PromoteStashed

	closed   atomic.Bool
	awaiting atomic.Bool // true once the runtime has flipped to awaiting_message

	rejected atomic.Int64

	// notify, if set, is called (outside any lock) whenever Enqueue
	// observes awaiting==true — i.e. the mailbox must tell the scheduler
	// to re-submit the actor. It is set once by the owning actor runtime.
	notifyMu sync.RWMutex
	notify   func()
}

// New creates an empty mailbox.
func New() *Mailbox {
	return &Mailbox{stash: list.New()}
}

// SetNotify installs the callback invoked when an enqueue arrives while
// the mailbox is in the awaiting_message state. Exactly one callback is
// supported; later calls replace earlier ones.
func (m *Mailbox) SetNotify(fn func()) {
	m.notifyMu.Lock()
	m.notify = fn
	m.notifyMu.Unlock()
}

// Enqueue appends el to lane. It returns ErrClosed (and increments the
// bouncer's rejected counter) if the mailbox has already been closed.
func (m *Mailbox) Enqueue(lane Lane, el *Element) error {
	if m.closed.Load() {
		m.rejected.Add(1)
		return ErrClosed
	}

	switch lane {
	case Urgent:
		m.urgentMu.Lock()
		m.urgent = append(m.urgent, el)
		m.urgentMu.Unlock()
	case Delayed:
		m.stashMu.Lock()
		m.stash.PushBack(el)
		m.stashMu.Unlock()
	default:
		m.normalMu.Lock()
		m.normal = append(m.normal, el)
		m.normalMu.Unlock()
	}

	// Re-check closed: a Close racing with this Enqueue may have drained
	// after we checked above but before we pushed. Re-draining here keeps
	// "every enqueued element is dispatched or bounced exactly once".
	if m.closed.Load() {
		m.drainAllInto(nil)
		return nil
	}

	if m.awaiting.CompareAndSwap(true, false) {
		m.notifyMu.RLock()
		fn := m.notify
		m.notifyMu.RUnlock()
		if fn != nil {
			fn()
		}
	}
	return nil
}

// Dequeue pops the next element to dispatch: urgent lane strictly before
// normal. The delayed/stash lane is never drained here — only
// PromoteStashed moves it back into normal.
func (m *Mailbox) Dequeue() (*Element, bool) {
	m.urgentMu.Lock()
	if len(m.urgent) > 0 {
		el := m.urgent[0]
		m.urgent = m.urgent[1:]
		m.urgentMu.Unlock()
		return el, true
	}
	m.urgentMu.Unlock()

	m.normalMu.Lock()
	if len(m.normal) > 0 {
		el := m.normal[0]
		m.normal = m.normal[1:]
		m.normalMu.Unlock()
		return el, true
	}
	m.normalMu.Unlock()

	return nil, false
}

// Stash moves el into the delayed lane: used by the dispatcher when a
// behavior returns "skip" for el, so it can be reconsidered after a
// become() installs a new behavior.
func (m *Mailbox) Stash(el *Element) {
	m.stashMu.Lock()
	m.stash.PushBack(el)
	m.stashMu.Unlock()
}

// PromoteStashed moves every stashed element back to the front of the
// normal lane, preserving relative order, and clears the stash. Call
// this after installing a new behavior so previously skipped messages
// get a chance to match it.
func (m *Mailbox) PromoteStashed() {
	m.stashMu.Lock()
	if m.stash.Len() == 0 {
		m.stashMu.Unlock()
		return
	}
	promoted := make([]*Element, 0, m.stash.Len())
	for e := m.stash.Front(); e != nil; e = e.Next() {
		promoted = append(promoted, e.Value.(*Element))
	}
	m.stash.Init()
	m.stashMu.Unlock()

	m.normalMu.Lock()
	m.normal = append(promoted, m.normal...)
	m.normalMu.Unlock()
}

// Depth returns the combined urgent+normal queue length, for instrumentation.
func (m *Mailbox) Depth() int {
	m.urgentMu.Lock()
	u := len(m.urgent)
	m.urgentMu.Unlock()
	m.normalMu.Lock()
	n := len(m.normal)
	m.normalMu.Unlock()
	return u + n
}

// Empty reports whether both the urgent and normal lanes are empty. The
// stash lane is excluded: a mailbox with only stashed messages is still
// "empty" from the scheduler's point of view until something promotes them.
func (m *Mailbox) Empty() bool {
	m.urgentMu.Lock()
	u := len(m.urgent)
	m.urgentMu.Unlock()
	if u > 0 {
		return false
	}
	m.normalMu.Lock()
	n := len(m.normal)
	m.normalMu.Unlock()
	return n == 0
}

// SetAwaiting atomically marks the mailbox as awaiting_message and
// reports whether it was already non-empty at that instant — in which
// case the caller (the actor runtime) must not actually suspend, since an
// Enqueue may have already raced past the notify check.
func (m *Mailbox) SetAwaiting() (stillRunnable bool) {
	m.awaiting.Store(true)
	if !m.Empty() {
		m.awaiting.Store(false)
		return true
	}
	return false
}

// Close closes the mailbox and drains any remaining elements into the
// bouncer's rejected counter, per spec §4.E's exit processing.
func (m *Mailbox) Close() {
	m.closed.Store(true)
	m.drainAllInto(nil)
}

func (m *Mailbox) drainAllInto(sink func(*Element)) {
	m.urgentMu.Lock()
	urgent := m.urgent
	m.urgent = nil
	m.urgentMu.Unlock()

	m.normalMu.Lock()
	normal := m.normal
	m.normal = nil
	m.normalMu.Unlock()

	m.stashMu.Lock()
	stashed := make([]*Element, 0, m.stash.Len())
	for e := m.stash.Front(); e != nil; e = e.Next() {
		stashed = append(stashed, e.Value.(*Element))
	}
	m.stash.Init()
	m.stashMu.Unlock()

	total := len(urgent) + len(normal) + len(stashed)
	m.rejected.Add(int64(total))

	if sink == nil {
		return
	}
	for _, el := range urgent {
		sink(el)
	}
	for _, el := range normal {
		sink(el)
	}
	for _, el := range stashed {
		sink(el)
	}
}

// Rejected returns the running count of elements dropped into the
// bouncer: those that arrived after Close, or were still queued at Close.
func (m *Mailbox) Rejected() int64 { return m.rejected.Load() }

// Closed reports whether Close has been called.
func (m *Mailbox) Closed() bool { return m.closed.Load() }
