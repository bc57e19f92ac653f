package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// countingResumable resumes runs times before reporting Done, counting how
// many distinct Resume calls it received.
type countingResumable struct {
	runsLeft atomic.Int32
	resumes  atomic.Int32
	refs     atomic.Int32
	done     chan struct{}
}

func newCountingResumable(runs int32) *countingResumable {
	return &countingResumable{done: make(chan struct{})}
}

func (r *countingResumable) Retain() { r.refs.Add(1) }
func (r *countingResumable) Release() {
	if r.refs.Add(-1) == 0 {
		select {
		case <-r.done:
		default:
			close(r.done)
		}
	}
}

func (r *countingResumable) Resume(worker int, maxThroughput int) ResumeResult {
	r.resumes.Add(1)
	if r.runsLeft.Add(-1) > 0 {
		return ResumeLater
	}
	return Done
}

func runToCompletion(t *testing.T, s Scheduler, runs int32) *countingResumable {
	t.Helper()
	r := newCountingResumable(runs)
	r.runsLeft.Store(runs)
	s.Schedule(r)

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("resumable never completed")
	}
	return r
}

func TestSharingSchedulerRunsToCompletion(t *testing.T) {
	s := New(Options{Policy: Sharing, MaxThreads: 2, MaxThroughput: 3})
	defer s.Shutdown(context.Background())

	r := runToCompletion(t, s, 5)
	if got := r.resumes.Load(); got != 5 {
		t.Fatalf("expected 5 Resume calls, got %d", got)
	}
}

func TestStealingSchedulerRunsToCompletion(t *testing.T) {
	s := New(Options{Policy: Stealing, MaxThreads: 4, MaxThroughput: 3})
	defer s.Shutdown(context.Background())

	r := runToCompletion(t, s, 5)
	if got := r.resumes.Load(); got != 5 {
		t.Fatalf("expected 5 Resume calls, got %d", got)
	}
}

func TestStealingSchedulerBalancesAcrossWorkers(t *testing.T) {
	s := New(Options{Policy: Stealing, MaxThreads: 4, MaxThroughput: 1})
	defer s.Shutdown(context.Background())

	const n = 40
	resumables := make([]*countingResumable, n)
	for i := range resumables {
		resumables[i] = newCountingResumable(1)
		resumables[i].runsLeft.Store(1)
		s.Schedule(resumables[i])
	}

	for _, r := range resumables {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatal("a resumable never completed")
		}
	}
}

func TestSharingSchedulerShutdownDrainsQueue(t *testing.T) {
	s := New(Options{Policy: Sharing, MaxThreads: 2, MaxThroughput: 10})

	const n = 10
	resumables := make([]*countingResumable, n)
	for i := range resumables {
		resumables[i] = newCountingResumable(1)
		resumables[i].runsLeft.Store(1)
		s.Schedule(resumables[i])
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	for i, r := range resumables {
		if r.resumes.Load() == 0 {
			t.Fatalf("resumable %d never resumed before shutdown completed", i)
		}
	}
}

func TestShutdownTimesOutUnderContextDeadline(t *testing.T) {
	s := New(Options{Policy: Sharing, MaxThreads: 1, MaxThroughput: 1})

	// A resumable that never finishes keeps the worker busy forever.
	blocker := newCountingResumable(1 << 30)
	blocker.runsLeft.Store(1 << 30)
	s.Schedule(blocker)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Shutdown(ctx); err == nil {
		t.Fatal("expected Shutdown to time out")
	}
}
