package flow

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestIotaMapFilterForEach(t *testing.T) {
	coord := NewCoordinator()

	pub := Filter[int64]{
		Upstream: Map[int64, int64]{
			Upstream: Iota{N: 10},
			Fn:       func(v int64) (int64, error) { return v * 2, nil },
		},
		Pred: func(v int64) bool { return v%4 == 0 },
	}

	var got []int64
	var done bool
	ForEach[int64](coord, pub, func(v int64) { got = append(got, v) }, func() { done = true }, nil)

	deadline := time.Now().Add(time.Second)
	for !done && time.Now().Before(deadline) {
		coord.RunPending()
		time.Sleep(time.Millisecond)
	}
	if !done {
		t.Fatalf("expected completion")
	}
	want := []int64{0, 4, 8, 12, 16}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTakeAndSkip(t *testing.T) {
	coord := NewCoordinator()

	pub := Take[int64]{Upstream: Skip[int64]{Upstream: Iota{N: 10}, N: 3}, N: 4}

	var got []int64
	var done bool
	ForEach[int64](coord, pub, func(v int64) { got = append(got, v) }, func() { done = true }, nil)

	drainUntil(t, coord, func() bool { return done })
	want := []int64{3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestConcatPreservesOrder(t *testing.T) {
	coord := NewCoordinator()

	pub := Concat[int64]{Inputs: []Publisher[int64]{Just[int64]{Values: []int64{1, 2}}, Just[int64]{Values: []int64{3, 4}}}}

	var got []int64
	var done bool
	ForEach[int64](coord, pub, func(v int64) { got = append(got, v) }, func() { done = true }, nil)

	drainUntil(t, coord, func() bool { return done })
	want := []int64{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestConcatDelayErrorSurfacesOnce(t *testing.T) {
	coord := NewCoordinator()
	boom := errors.New("boom")

	pub := Concat[int64]{
		Inputs:     []Publisher[int64]{Just[int64]{Values: []int64{1}}, failingPublisher[int64]{err: boom}, Just[int64]{Values: []int64{2}}},
		DelayError: true,
	}

	var got []int64
	var finalErr error
	ForEach[int64](coord, pub, func(v int64) { got = append(got, v) }, nil, func(err error) { finalErr = err })

	drainUntil(t, coord, func() bool { return finalErr != nil })
	if !errors.Is(finalErr, boom) {
		t.Fatalf("expected boom, got %v", finalErr)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected both inputs drained before surfacing the delayed error, got %v", got)
	}
}

func TestMergeCompletesWhenAllInputsComplete(t *testing.T) {
	coord := NewCoordinator()

	pub := Merge[int64]{
		Inputs:        []Publisher[int64]{Just[int64]{Values: []int64{1, 2}}, Just[int64]{Values: []int64{3, 4}}},
		MaxConcurrent: 1,
	}

	var mu sync.Mutex
	var got []int64
	var done bool
	ForEach[int64](coord, pub, func(v int64) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	}, func() { done = true }, nil)

	drainUntil(t, coord, func() bool { return done })
	if len(got) != 4 {
		t.Fatalf("expected 4 values across both inputs, got %v", got)
	}
}

func TestShareFansOutToMultipleSubscribers(t *testing.T) {
	coord := NewCoordinator()
	shared := Share[int64](Just[int64]{Values: []int64{1, 2, 3}})

	var got1, got2 []int64
	var done1, done2 bool
	ForEach[int64](coord, shared, func(v int64) { got1 = append(got1, v) }, func() { done1 = true }, nil)
	ForEach[int64](coord, shared, func(v int64) { got2 = append(got2, v) }, func() { done2 = true }, nil)

	drainUntil(t, coord, func() bool { return done1 && done2 })
	if len(got1) != 3 || len(got2) != 3 {
		t.Fatalf("expected both subscribers to see all 3 values, got %v and %v", got1, got2)
	}
}

// TestConcatCarriesOverUnusedDemand reproduces spec §8 scenario 5: a
// downstream request of 10 against concat(a, b) where a only has 3 values
// must leave b subscribed with the remaining demand of 7, not 0.
func TestConcatCarriesOverUnusedDemand(t *testing.T) {
	coord := NewCoordinator()

	var bDemand int64
	var bSubscribed bool
	b := &demandRecorder{onSubscribed: func(n int64) {
		bDemand = n
		bSubscribed = true
	}}

	pub := Concat[int64]{Inputs: []Publisher[int64]{
		Just[int64]{Values: []int64{1, 2, 3}},
		b,
	}}

	obs := &manualObserver[int64]{}
	pub.Subscribe(coord, obs)
	obs.sub.Request(10)

	drainUntil(t, coord, func() bool { return bSubscribed })
	if bDemand != 7 {
		t.Fatalf("expected carried-over demand of 7, got %d", bDemand)
	}
	want := []int64{1, 2, 3}
	if len(obs.got) != len(want) {
		t.Fatalf("got %v, want %v", obs.got, want)
	}
	for i := range want {
		if obs.got[i] != want[i] {
			t.Fatalf("got %v, want %v", obs.got, want)
		}
	}
}

// TestMulticastUpstreamDemandTracksMaxArm reproduces spec §8 scenario 4: a
// 100-item source shared between a sink requesting 10 and a sink requesting
// 5 must issue upstream demand of only max(10,5)=10, and each sink must
// receive exactly the demand it asked for.
func TestMulticastUpstreamDemandTracksMaxArm(t *testing.T) {
	coord := NewCoordinator()

	source := &trackingSource{count: 100}
	shared := Share[int64](source)

	obsX := &manualObserver[int64]{}
	shared.Subscribe(coord, obsX)
	obsX.sub.Request(10)

	obsY := &manualObserver[int64]{}
	shared.Subscribe(coord, obsY)
	obsY.sub.Request(5)

	drainUntil(t, coord, func() bool { return len(obsX.got) >= 10 && len(obsY.got) >= 5 })

	if len(obsX.got) != 10 {
		t.Fatalf("expected sink X to see exactly 10 values, got %d", len(obsX.got))
	}
	if len(obsY.got) != 5 {
		t.Fatalf("expected sink Y to see exactly 5 values, got %d", len(obsY.got))
	}
	if got := source.requested(); got != 10 {
		t.Fatalf("expected total upstream demand of max(10,5)=10, got %d", got)
	}
}

func TestOnBackpressureBufferDisconnectsOnOverflow(t *testing.T) {
	coord := NewCoordinator()

	upstream := fastSource{count: 100}
	pub := OnBackpressureBuffer[int64]{Upstream: upstream, Capacity: 4}

	var gotErr error
	sub := ForEach[int64](coord, pub, func(v int64) {}, nil, func(err error) { gotErr = err })
	_ = sub

	drainUntil(t, coord, func() bool { return gotErr != nil })
	if !errors.Is(gotErr, ErrBackpressureOverflow) {
		t.Fatalf("expected overflow error, got %v", gotErr)
	}
}

func drainUntil(t *testing.T, coord *Coordinator, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() && time.Now().Before(deadline) {
		coord.RunPending()
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatalf("timed out waiting for condition")
	}
}

type failingPublisher[T any] struct{ err error }

func (f failingPublisher[T]) Subscribe(coord *Coordinator, obs Observer[T]) {
	obs.OnSubscribe(&funcSubscription{request: func(n int64) {
		coord.Delay(func() { obs.OnError(f.err) })
	}})
}

// fastSource emits count values the instant it is subscribed to, regardless
// of downstream demand, to exercise OnBackpressureBuffer's overflow path.
type fastSource struct{ count int64 }

func (f fastSource) Subscribe(coord *Coordinator, obs Observer[int64]) {
	obs.OnSubscribe(&funcSubscription{})
	for i := int64(0); i < f.count; i++ {
		obs.OnNext(i)
	}
	obs.OnComplete()
}

// manualObserver is a bare Observer that captures its Subscription instead
// of requesting anything on its own, so a test can drive demand by hand.
type manualObserver[T any] struct {
	sub Subscription
	got []T
}

func (m *manualObserver[T]) OnSubscribe(sub Subscription) { m.sub = sub }
func (m *manualObserver[T]) OnNext(v T)                   { m.got = append(m.got, v) }
func (m *manualObserver[T]) OnComplete()                  {}
func (m *manualObserver[T]) OnError(error)                {}

// demandRecorder is a Publisher whose only job is to report the demand it
// was subscribed and immediately requested with, for asserting on a
// Concat's carried-over demand.
type demandRecorder struct {
	onSubscribed func(n int64)
}

func (d *demandRecorder) Subscribe(coord *Coordinator, obs Observer[int64]) {
	obs.OnSubscribe(&funcSubscription{request: d.onSubscribed})
}

// trackingSource is a demand-driven source like Iota, except it counts the
// total demand ever granted to it across the whole subscription, so a
// multicast test can assert on the upstream demand actually issued.
type trackingSource struct {
	count int64
	total atomic.Int64
}

func (s *trackingSource) requested() int64 { return s.total.Load() }

func (s *trackingSource) Subscribe(coord *Coordinator, obs Observer[int64]) {
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
			if i >= s.count {
				obs.OnComplete()
				return
			}
			obs.OnNext(i)
		}
	}

	obs.OnSubscribe(&funcSubscription{
		request: func(n int64) {
			if n <= 0 {
				return
			}
			s.total.Add(n)
			dem.add(n)
			coord.Delay(drain)
		},
		cancel: func() { cancelled.Store(true) },
	})
}
