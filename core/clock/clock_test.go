package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleAtFiresOnce(t *testing.T) {
	c := New(Options{})
	defer c.Shutdown()

	var n atomic.Int32
	c.ScheduleAt(c.Now().Add(10*time.Millisecond), func() { n.Add(1) })

	time.Sleep(50 * time.Millisecond)
	if got := n.Load(); got != 1 {
		t.Fatalf("expected 1 fire, got %d", got)
	}
}

func TestDisposeCancelsBeforeFire(t *testing.T) {
	c := New(Options{})
	defer c.Shutdown()

	var n atomic.Int32
	d := c.ScheduleAt(c.Now().Add(50*time.Millisecond), func() { n.Add(1) })
	d.Dispose()
	d.Dispose() // idempotent

	time.Sleep(100 * time.Millisecond)
	if got := n.Load(); got != 0 {
		t.Fatalf("expected disposed action not to fire, got %d calls", got)
	}
	if !d.Disposed() {
		t.Fatalf("expected Disposed() == true")
	}
}

func TestEarlierDeadlinePreemptsWait(t *testing.T) {
	c := New(Options{})
	defer c.Shutdown()

	var order []int
	done := make(chan struct{}, 2)
	c.ScheduleAt(c.Now().Add(200*time.Millisecond), func() { order = append(order, 2); done <- struct{}{} })
	c.ScheduleAt(c.Now().Add(20*time.Millisecond), func() { order = append(order, 1); done <- struct{}{} })

	<-done
	<-done
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected fire order [1 2], got %v", order)
	}
}

func TestSchedulePeriodicSkipPolicy(t *testing.T) {
	c := New(Options{})
	defer c.Shutdown()

	var ticks atomic.Int32
	release := make(chan struct{})
	d := c.SchedulePeriodic(10*time.Millisecond, func() error {
		ticks.Add(1)
		<-release // block the first tick so the next one stalls
		return nil
	}, StallSkip, nil)
	defer d.Dispose()

	time.Sleep(60 * time.Millisecond)
	close(release)
	time.Sleep(30 * time.Millisecond)

	// With the first tick blocked for ~60ms, only a handful of further
	// ticks should have been skipped rather than piled up.
	if got := ticks.Load(); got < 1 || got > 3 {
		t.Fatalf("expected a small number of ticks under stall+skip, got %d", got)
	}
}

func TestSchedulePeriodicFailPolicyDisposesAndReports(t *testing.T) {
	c := New(Options{})
	defer c.Shutdown()

	failed := make(chan error, 1)
	release := make(chan struct{})
	d := c.SchedulePeriodic(10*time.Millisecond, func() error {
		<-release
		return nil
	}, StallFail, func(err error) { failed <- err })
	defer d.Dispose()

	select {
	case err := <-failed:
		if err != ErrPeriodicActionFailed {
			t.Fatalf("expected ErrPeriodicActionFailed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for stall failure")
	}
	close(release)

	if !d.Disposed() {
		t.Fatalf("expected schedule to be disposed after a stall under StallFail")
	}
}
