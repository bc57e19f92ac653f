package mailbox

import (
	"sync"
	"testing"
)

type fakeRef ActorID

func (f fakeRef) ActorID() ActorID { return ActorID(f) }

func elem(n int) *Element { return &Element{Receiver: fakeRef(1), Correlation: Async} }

func TestUrgentBeforeNormal(t *testing.T) {
	mb := New()
	_ = mb.Enqueue(Normal, elem(1))
	urgent := elem(2)
	_ = mb.Enqueue(Urgent, urgent)
	_ = mb.Enqueue(Normal, elem(3))

	first, ok := mb.Dequeue()
	if !ok || first != urgent {
		t.Fatalf("expected the urgent message first")
	}

	// urgent lane must drain fully before normal, regardless of arrival order.
	if mb.Empty() {
		t.Fatalf("mailbox should still have 2 messages")
	}
	second, _ := mb.Dequeue()
	third, _ := mb.Dequeue()
	_ = second
	_ = third
	if !mb.Empty() {
		t.Fatalf("mailbox should be drained")
	}
}

func TestStashAndPromote(t *testing.T) {
	mb := New()
	e := elem(1)
	mb.Stash(e)

	if !mb.Empty() {
		t.Fatalf("stashed messages must not count as runnable")
	}
	if _, ok := mb.Dequeue(); ok {
		t.Fatalf("Dequeue must not see stashed messages")
	}

	mb.PromoteStashed()
	if mb.Empty() {
		t.Fatalf("promoted messages must be runnable")
	}
	got, ok := mb.Dequeue()
	if !ok || got != e {
		t.Fatalf("expected to dequeue the promoted element")
	}
}

func TestCloseBouncesRemaining(t *testing.T) {
	mb := New()
	_ = mb.Enqueue(Normal, elem(1))
	_ = mb.Enqueue(Urgent, elem(2))
	mb.Stash(elem(3))

	mb.Close()
	if mb.Rejected() != 3 {
		t.Fatalf("expected 3 rejected, got %d", mb.Rejected())
	}

	if err := mb.Enqueue(Normal, elem(4)); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if mb.Rejected() != 4 {
		t.Fatalf("expected 4 rejected after post-close enqueue, got %d", mb.Rejected())
	}
}

func TestSetAwaitingRace(t *testing.T) {
	mb := New()

	// Empty mailbox: SetAwaiting should suspend (stillRunnable == false).
	if still := mb.SetAwaiting(); still {
		t.Fatalf("expected suspend on empty mailbox")
	}

	// Non-empty mailbox: SetAwaiting must report stillRunnable and not suspend.
	_ = mb.Enqueue(Normal, elem(1))
	if still := mb.SetAwaiting(); !still {
		t.Fatalf("expected stillRunnable==true on non-empty mailbox")
	}
}

func TestNotifyFiresOnlyWhileAwaiting(t *testing.T) {
	mb := New()
	var mu sync.Mutex
	calls := 0
	mb.SetNotify(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	_ = mb.Enqueue(Normal, elem(1))
	mu.Lock()
	if calls != 0 {
		t.Fatalf("notify must not fire while not awaiting")
	}
	mu.Unlock()

	mb.Dequeue()
	mb.SetAwaiting()
	_ = mb.Enqueue(Normal, elem(2))

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected exactly 1 notify call, got %d", calls)
	}
}
