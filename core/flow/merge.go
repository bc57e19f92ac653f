package flow

import "sync"

// Merge subscribes to up to MaxConcurrent inputs at once, activating the
// next queued input whenever an active one completes, and completes
// downstream only once every input has completed (spec §4.I). The first
// error from any branch aborts the whole merge.
type Merge[T any] struct {
	Inputs        []Publisher[T]
	MaxConcurrent int
}

func (m Merge[T]) Subscribe(coord *Coordinator, obs Observer[T]) {
	if len(m.Inputs) == 0 {
		Empty[T]{}.Subscribe(coord, obs)
		return
	}
	max := m.MaxConcurrent
	if max <= 0 || max > len(m.Inputs) {
		max = len(m.Inputs)
	}

	s := &mergeSub[T]{
		inputs:        m.Inputs,
		maxConcurrent: max,
		remaining:     len(m.Inputs),
		down:          obs,
		coord:         coord,
		subs:          make(map[int]Subscription),
	}
	obs.OnSubscribe(&funcSubscription{
		request: s.requestDemand,
		cancel:  s.cancel,
	})

	for i := 0; i < max; i++ {
		coord.Delay(s.activateNext)
	}
}

type mergeSub[T any] struct {
	mu sync.Mutex

	inputs        []Publisher[T]
	coord         *Coordinator
	down          Observer[T]
	maxConcurrent int

	nextIdx     int
	activeCount int
	remaining   int
	demand      int64
	subs        map[int]Subscription
	cancelled   bool
	finished    bool
}

type mergeObserver[T any] struct {
	parent *mergeSub[T]
	key    int
}

func (o *mergeObserver[T]) OnSubscribe(sub Subscription) { o.parent.onSubscribe(o.key, sub) }
func (o *mergeObserver[T]) OnNext(v T)                   { o.parent.down.OnNext(v) }
func (o *mergeObserver[T]) OnComplete()                  { o.parent.onComplete(o.key) }
func (o *mergeObserver[T]) OnError(e error)              { o.parent.onError(e) }

func (s *mergeSub[T]) activateNext() {
	s.mu.Lock()
	if s.cancelled || s.nextIdx >= len(s.inputs) {
		s.mu.Unlock()
		return
	}
	idx := s.nextIdx
	s.nextIdx++
	s.activeCount++
	s.mu.Unlock()

	s.inputs[idx].Subscribe(s.coord, &mergeObserver[T]{parent: s, key: idx})
}

func (s *mergeSub[T]) onSubscribe(key int, sub Subscription) {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		sub.Cancel()
		return
	}
	s.subs[key] = sub
	demand := s.demand
	s.mu.Unlock()

	if demand > 0 {
		sub.Request(demand)
	}
}

func (s *mergeSub[T]) requestDemand(n int64) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.demand += n
	active := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		active = append(active, sub)
	}
	s.mu.Unlock()
	for _, sub := range active {
		sub.Request(n)
	}
}

func (s *mergeSub[T]) onComplete(key int) {
	s.mu.Lock()
	delete(s.subs, key)
	s.activeCount--
	s.remaining--
	done := s.remaining == 0
	hasMore := s.nextIdx < len(s.inputs) && !s.cancelled
	s.mu.Unlock()

	if done {
		s.finish(nil)
		return
	}
	if hasMore {
		s.coord.Delay(s.activateNext)
	}
}

func (s *mergeSub[T]) onError(err error) {
	s.mu.Lock()
	if s.cancelled || s.finished {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	subs := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	s.finish(err)
}

func (s *mergeSub[T]) finish(err error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.mu.Unlock()

	if err != nil {
		s.down.OnError(err)
		return
	}
	s.down.OnComplete()
}

func (s *mergeSub[T]) cancel() {
	s.mu.Lock()
	s.cancelled = true
	subs := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
}
