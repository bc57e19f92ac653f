package flow

import (
	"sync/atomic"
	"time"

	"github.com/relaykit/relay/core/clock"
)

// Empty never emits a value: the first Request call completes it.
type Empty[T any] struct{}

func (Empty[T]) Subscribe(coord *Coordinator, obs Observer[T]) {
	done := &atomic.Bool{}
	obs.OnSubscribe(&funcSubscription{
		request: func(n int64) {
			if n <= 0 || !done.CompareAndSwap(false, true) {
				return
			}
			coord.Delay(obs.OnComplete)
		},
	})
}

// Just emits values, in order, then completes — cold: every Subscribe
// starts a fresh cursor at 0.
type Just[T any] struct {
	Values []T
}

func (j Just[T]) Subscribe(coord *Coordinator, obs Observer[T]) {
	subscribeSlice(coord, obs, j.Values)
}

// Iota emits 0..n-1 as int64, cold and restartable.
type Iota struct {
	N int64
}

func (it Iota) Subscribe(coord *Coordinator, obs Observer[int64]) {
	values := make([]int64, it.N)
	for i := range values {
		values[i] = int64(i)
	}
	subscribeSlice(coord, obs, values)
}

// subscribeSlice drives obs from a fixed, pre-materialized slice,
// emitting exactly as much as outstanding demand allows per drain.
func subscribeSlice[T any](coord *Coordinator, obs Observer[T], values []T) {
	idx := &atomic.Int64{}
	dem := &demand{}
	cancelled := &atomic.Bool{}

	var drain func()
	drain = func() {
		for dem.take() {
			if cancelled.Load() {
				return
			}
			i := idx.Add(1) - 1
			if i >= int64(len(values)) {
				obs.OnComplete()
				return
			}
			obs.OnNext(values[i])
		}
	}

	obs.OnSubscribe(&funcSubscription{
		request: func(n int64) {
			dem.add(n)
			coord.Delay(drain)
		},
		cancel: func() { cancelled.Store(true) },
	})
}

// Interval emits a monotonically increasing counter on every tick of d,
// hot: subscribing late misses earlier ticks, and a stalled downstream
// skips (rather than buffers) missed ticks.
type Interval struct {
	Clock    *clock.Clock
	Interval time.Duration
}

func (iv Interval) Subscribe(coord *Coordinator, obs Observer[int64]) {
	dem := &demand{}
	counter := &atomic.Int64{}
	cancelled := &atomic.Bool{}

	var disp clock.Disposable
	disp = iv.Clock.SchedulePeriodic(iv.Interval, func() error {
		coord.Delay(func() {
			if cancelled.Load() {
				return
			}
			if !dem.take() {
				return // no outstanding demand: this tick is skipped, not buffered
			}
			obs.OnNext(counter.Add(1) - 1)
		})
		return nil
	}, clock.StallSkip, nil)

	coord.Watch(disp)
	obs.OnSubscribe(&funcSubscription{
		request: func(n int64) { dem.add(n) },
		cancel: func() {
			cancelled.Store(true)
			disp.Dispose()
		},
	})
}

// funcSubscription adapts two closures to the Subscription interface.
type funcSubscription struct {
	request func(n int64)
	cancel  func()
}

func (f *funcSubscription) Request(n int64) {
	if f.request != nil {
		f.request(n)
	}
}

func (f *funcSubscription) Cancel() {
	if f.cancel != nil {
		f.cancel()
	}
}
