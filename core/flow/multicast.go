package flow

import "sync"

// Share multicasts a single upstream subscription to any number of
// downstream subscribers (spec §4.I's mcast). The upstream is connected
// lazily on the first Subscribe and torn down once the last subscriber
// cancels; each subscriber gets its own demand and buffer, so a slow
// subscriber falls behind without blocking the others.
func Share[T any](upstream Publisher[T]) *Multicast[T] {
	return &Multicast[T]{upstream: upstream, arms: make(map[int]*mcastArm[T])}
}

type Multicast[T any] struct {
	mu          sync.Mutex
	upstream    Publisher[T]
	coord       *Coordinator
	upstreamSub Subscription
	connected   bool
	closed      bool
	err         error
	arms        map[int]*mcastArm[T]
	nextArmID   int

	// upstreamRequested is the demand already granted to upstream that
	// hasn't been fulfilled yet — decremented on every upstream OnNext,
	// topped back up to the largest demand any arm currently holds.
	upstreamRequested int64
}

func (m *Multicast[T]) Subscribe(coord *Coordinator, obs Observer[T]) {
	m.mu.Lock()
	if m.coord == nil {
		m.coord = coord
	}
	arm := &mcastArm[T]{parent: m, id: m.nextArmID, down: obs}
	m.nextArmID++
	m.arms[arm.id] = arm
	needConnect := !m.connected
	m.connected = true
	closedNow := m.closed
	m.mu.Unlock()

	obs.OnSubscribe(&funcSubscription{request: arm.request, cancel: arm.cancel})

	if closedNow {
		coord.Delay(arm.doRun)
	}
	if needConnect {
		m.upstream.Subscribe(coord, &mcastObserver[T]{parent: m})
	}
}

type mcastObserver[T any] struct{ parent *Multicast[T] }

func (o *mcastObserver[T]) OnSubscribe(sub Subscription) {
	o.parent.mu.Lock()
	o.parent.upstreamSub = sub
	o.parent.mu.Unlock()
	o.parent.ensureUpstreamDemand()
}

func (o *mcastObserver[T]) OnNext(v T) {
	o.parent.mu.Lock()
	if o.parent.upstreamRequested > 0 {
		o.parent.upstreamRequested--
	}
	o.parent.mu.Unlock()
	o.parent.broadcast(v)
}
func (o *mcastObserver[T]) OnComplete() { o.parent.finish(nil) }
func (o *mcastObserver[T]) OnError(e error) { o.parent.finish(e) }

// ensureUpstreamDemand tops up the upstream subscription's granted demand
// to the largest demand any arm currently holds (spec §4.I "upstream
// demand = max downstream demand"), never asking for less than already
// granted — a low-demand arm joining after a high-demand one must not
// starve it.
func (m *Multicast[T]) ensureUpstreamDemand() {
	m.mu.Lock()
	sub := m.upstreamSub
	if sub == nil {
		m.mu.Unlock()
		return
	}
	arms := make([]*mcastArm[T], 0, len(m.arms))
	for _, a := range m.arms {
		arms = append(arms, a)
	}
	m.mu.Unlock()

	var want int64
	for _, a := range arms {
		if d := a.currentDemand(); d > want {
			want = d
		}
	}

	m.mu.Lock()
	delta := want - m.upstreamRequested
	if delta <= 0 {
		m.mu.Unlock()
		return
	}
	m.upstreamRequested = want
	m.mu.Unlock()
	sub.Request(delta)
}

func (m *Multicast[T]) broadcast(v T) {
	m.mu.Lock()
	arms := make([]*mcastArm[T], 0, len(m.arms))
	for _, a := range m.arms {
		arms = append(arms, a)
	}
	m.mu.Unlock()
	for _, a := range arms {
		a.push(v)
	}
}

func (m *Multicast[T]) finish(err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.err = err
	arms := make([]*mcastArm[T], 0, len(m.arms))
	for _, a := range m.arms {
		arms = append(arms, a)
	}
	m.mu.Unlock()
	for _, a := range arms {
		m.coord.Delay(a.doRun)
	}
}

func (m *Multicast[T]) terminal() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed, m.err
}

func (m *Multicast[T]) removeArm(id int) {
	m.mu.Lock()
	delete(m.arms, id)
	empty := len(m.arms) == 0
	sub := m.upstreamSub
	m.mu.Unlock()
	if empty && sub != nil {
		sub.Cancel()
	}
}

// mcastArm is spec §4.I's mcast_sub_state: buf and demand hold this
// subscriber's own backlog and outstanding requests, running is the
// do_run exclusive-drain guard ("at most one instance of do_run executes
// at a time"), and whenDisposed/whenConsumedSome are hooks fired on
// cancel and on any successful drain respectively.
type mcastArm[T any] struct {
	mu     sync.Mutex
	parent *Multicast[T]
	id     int
	down   Observer[T]

	buf     []T
	demand  int64
	running bool
	closed  bool

	whenDisposed     func()
	whenConsumedSome func()
}

func (a *mcastArm[T]) push(v T) {
	a.mu.Lock()
	a.buf = append(a.buf, v)
	a.mu.Unlock()
	a.parent.coord.Delay(a.doRun)
}

func (a *mcastArm[T]) request(n int64) {
	if n <= 0 {
		return
	}
	a.mu.Lock()
	a.demand += n
	a.mu.Unlock()
	a.parent.ensureUpstreamDemand()
	a.parent.coord.Delay(a.doRun)
}

func (a *mcastArm[T]) currentDemand() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.demand
}

func (a *mcastArm[T]) doRun() {
	a.mu.Lock()
	if a.running || a.closed {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()

	consumedAny := false
	for {
		a.mu.Lock()
		if len(a.buf) == 0 {
			done, err := a.parent.terminal()
			if done {
				a.closed = true
				a.running = false
				a.mu.Unlock()
				a.fireConsumedSome(consumedAny)
				if err != nil {
					a.down.OnError(err)
				} else {
					a.down.OnComplete()
				}
				return
			}
			a.running = false
			a.mu.Unlock()
			a.fireConsumedSome(consumedAny)
			return
		}
		if a.demand <= 0 {
			a.running = false
			a.mu.Unlock()
			a.fireConsumedSome(consumedAny)
			return
		}
		v := a.buf[0]
		a.buf = a.buf[1:]
		if a.demand < unboundedDemand {
			a.demand--
		}
		a.mu.Unlock()
		consumedAny = true
		a.down.OnNext(v)
	}
}

func (a *mcastArm[T]) fireConsumedSome(consumed bool) {
	if consumed && a.whenConsumedSome != nil {
		a.whenConsumedSome()
	}
}

func (a *mcastArm[T]) cancel() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.parent.removeArm(a.id)
	if a.whenDisposed != nil {
		a.whenDisposed()
	}
}
