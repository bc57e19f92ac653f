package flow

import "sync"

// Concat subscribes to each input in order, completing one before
// subscribing to the next; demand left over from a finished input
// carries over to the next. DelayError buffers the first error and
// keeps going instead of aborting immediately (spec §4.I's concat_sub).
type Concat[T any] struct {
	Inputs     []Publisher[T]
	DelayError bool
}

func (c Concat[T]) Subscribe(coord *Coordinator, obs Observer[T]) {
	if len(c.Inputs) == 0 {
		Empty[T]{}.Subscribe(coord, obs)
		return
	}
	s := &concatSub[T]{inputs: c.Inputs, delayError: c.DelayError, down: obs, coord: coord}
	obs.OnSubscribe(&funcSubscription{
		request: s.requestDemand,
		cancel:  s.cancel,
	})
}

// concatSub is spec §4.I's concat_sub state machine: activeKey/activeSub
// name which input is currently subscribed, inFlight tracks whether a
// Subscribe call for activeKey is outstanding, and demand is the total
// downstream demand not yet satisfied by a value from the active (or
// about-to-be-subscribed) input — decremented on every OnNext, so
// whatever is left when an input completes is exactly what carries over
// to the next one (spec §8 scenario 5).
type concatSub[T any] struct {
	mu sync.Mutex

	inputs     []Publisher[T]
	coord      *Coordinator
	down       Observer[T]
	delayError bool

	activeKey int
	activeSub Subscription
	inFlight  bool
	demand    int64
	err       error
	cancelled bool
}

type concatObserver[T any] struct {
	parent *concatSub[T]
	key    int
}

func (o *concatObserver[T]) OnSubscribe(sub Subscription) { o.parent.onSubscribe(o.key, sub) }
func (o *concatObserver[T]) OnNext(v T)                   { o.parent.onNext(v) }
func (o *concatObserver[T]) OnComplete()                  { o.parent.onComplete(o.key) }
func (o *concatObserver[T]) OnError(e error)              { o.parent.onError(o.key, e) }

func (s *concatSub[T]) requestDemand(n int64) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.demand += n
	if s.activeSub != nil {
		sub := s.activeSub
		s.mu.Unlock()
		sub.Request(n)
		return
	}
	needSubscribe := !s.inFlight
	if needSubscribe {
		s.inFlight = true
	}
	key := s.activeKey
	s.mu.Unlock()

	if needSubscribe {
		s.coord.Delay(func() { s.inputs[key].Subscribe(s.coord, &concatObserver[T]{parent: s, key: key}) })
	}
}

func (s *concatSub[T]) onNext(v T) {
	s.mu.Lock()
	if s.demand > 0 {
		s.demand--
	}
	s.mu.Unlock()
	s.down.OnNext(v)
}

// onSubscribe adopts s if it names the currently expected input; a
// subscription that shows up for a key we've already moved past (a stale
// reply from a previous cancel, in principle) is disposed instead.
func (s *concatSub[T]) onSubscribe(key int, sub Subscription) {
	s.mu.Lock()
	if s.cancelled || key != s.activeKey || s.activeSub != nil {
		s.mu.Unlock()
		sub.Cancel()
		return
	}
	s.activeSub = sub
	s.inFlight = false
	demand := s.demand
	s.mu.Unlock()

	if demand > 0 {
		sub.Request(demand)
	}
}

func (s *concatSub[T]) onComplete(key int) {
	s.mu.Lock()
	if key != s.activeKey {
		s.mu.Unlock()
		return
	}
	s.activeSub = nil
	s.activeKey++
	next := s.activeKey
	cancelled := s.cancelled
	carry := s.demand
	s.mu.Unlock()

	if cancelled {
		return
	}
	if next >= len(s.inputs) {
		s.finish()
		return
	}
	if carry <= 0 {
		return // subscribing the next input waits for the next real Request
	}
	s.mu.Lock()
	needSubscribe := !s.inFlight
	if needSubscribe {
		s.inFlight = true
	}
	s.mu.Unlock()
	if needSubscribe {
		s.coord.Delay(func() { s.inputs[next].Subscribe(s.coord, &concatObserver[T]{parent: s, key: next}) })
	}
}

func (s *concatSub[T]) onError(key int, err error) {
	s.mu.Lock()
	if key != s.activeKey {
		s.mu.Unlock()
		return
	}
	if s.delayError {
		if s.err == nil {
			s.err = err
		}
		s.mu.Unlock()
		s.onComplete(key)
		return
	}
	s.cancelled = true
	s.mu.Unlock()
	s.down.OnError(err)
}

func (s *concatSub[T]) finish() {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		s.down.OnError(err)
		return
	}
	s.down.OnComplete()
}

func (s *concatSub[T]) cancel() {
	s.mu.Lock()
	s.cancelled = true
	sub := s.activeSub
	s.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}
