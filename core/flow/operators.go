package flow

// Map transforms each upstream value 1-to-1; an error from Fn aborts the
// stream with OnError and cancels the upstream subscription.
type Map[T, U any] struct {
	Upstream Publisher[T]
	Fn       func(T) (U, error)
}

func (m Map[T, U]) Subscribe(coord *Coordinator, obs Observer[U]) {
	m.Upstream.Subscribe(coord, &mapObserver[T, U]{down: obs, fn: m.Fn})
}

type mapObserver[T, U any] struct {
	down Observer[U]
	fn   func(T) (U, error)
	sub  Subscription
}

func (o *mapObserver[T, U]) OnSubscribe(sub Subscription) {
	o.sub = sub
	o.down.OnSubscribe(sub)
}

func (o *mapObserver[T, U]) OnNext(v T) {
	u, err := o.fn(v)
	if err != nil {
		o.sub.Cancel()
		o.down.OnError(err)
		return
	}
	o.down.OnNext(u)
}

func (o *mapObserver[T, U]) OnComplete()    { o.down.OnComplete() }
func (o *mapObserver[T, U]) OnError(e error) { o.down.OnError(e) }

// Filter passes through values for which Pred returns true; a filtered
// value re-requests one unit of upstream demand so downstream's request
// count is honored by item count, not by upstream emission count.
type Filter[T any] struct {
	Upstream Publisher[T]
	Pred     func(T) bool
}

func (f Filter[T]) Subscribe(coord *Coordinator, obs Observer[T]) {
	f.Upstream.Subscribe(coord, &filterObserver[T]{down: obs, pred: f.Pred})
}

type filterObserver[T any] struct {
	down Observer[T]
	pred func(T) bool
	sub  Subscription
}

func (o *filterObserver[T]) OnSubscribe(sub Subscription) {
	o.sub = sub
	o.down.OnSubscribe(sub)
}

func (o *filterObserver[T]) OnNext(v T) {
	if o.pred(v) {
		o.down.OnNext(v)
		return
	}
	o.sub.Request(1)
}

func (o *filterObserver[T]) OnComplete()    { o.down.OnComplete() }
func (o *filterObserver[T]) OnError(e error) { o.down.OnError(e) }

// Take emits at most N values, then completes and cancels upstream.
type Take[T any] struct {
	Upstream Publisher[T]
	N        int64
}

func (t Take[T]) Subscribe(coord *Coordinator, obs Observer[T]) {
	if t.N <= 0 {
		Empty[T]{}.Subscribe(coord, obs)
		return
	}
	t.Upstream.Subscribe(coord, &takeObserver[T]{down: obs, remaining: t.N})
}

type takeObserver[T any] struct {
	down      Observer[T]
	sub       Subscription
	remaining int64
	done      bool
}

func (o *takeObserver[T]) OnSubscribe(sub Subscription) {
	o.sub = sub
	o.down.OnSubscribe(sub)
}

func (o *takeObserver[T]) OnNext(v T) {
	if o.done || o.remaining <= 0 {
		return
	}
	o.remaining--
	o.down.OnNext(v)
	if o.remaining == 0 {
		o.done = true
		o.sub.Cancel()
		o.down.OnComplete()
	}
}

func (o *takeObserver[T]) OnComplete() {
	if !o.done {
		o.done = true
		o.down.OnComplete()
	}
}

func (o *takeObserver[T]) OnError(e error) {
	if !o.done {
		o.done = true
		o.down.OnError(e)
	}
}

// Skip discards the first N values, re-requesting upstream demand for
// each one, then passes the rest through unchanged.
type Skip[T any] struct {
	Upstream Publisher[T]
	N        int64
}

func (s Skip[T]) Subscribe(coord *Coordinator, obs Observer[T]) {
	s.Upstream.Subscribe(coord, &skipObserver[T]{down: obs, remaining: s.N})
}

type skipObserver[T any] struct {
	down      Observer[T]
	sub       Subscription
	remaining int64
}

func (o *skipObserver[T]) OnSubscribe(sub Subscription) {
	o.sub = sub
	o.down.OnSubscribe(sub)
}

func (o *skipObserver[T]) OnNext(v T) {
	if o.remaining > 0 {
		o.remaining--
		o.sub.Request(1)
		return
	}
	o.down.OnNext(v)
}

func (o *skipObserver[T]) OnComplete()    { o.down.OnComplete() }
func (o *skipObserver[T]) OnError(e error) { o.down.OnError(e) }
