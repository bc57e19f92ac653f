package actor

import (
	"testing"
	"time"

	"github.com/relaykit/relay/core/mailbox"
	"github.com/relaykit/relay/core/message"
)

type ping struct{ N int }
type pong struct{ N int }

func newTestSystem(t *testing.T) *System {
	t.Helper()
	sys, err := NewSystem(SystemOptions{})
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	if _, err := RegisterMessageType[ping](sys); err != nil {
		t.Fatalf("register ping: %v", err)
	}
	if _, err := RegisterMessageType[pong](sys); err != nil {
		t.Fatalf("register pong: %v", err)
	}
	return sys
}

func TestSendDispatchesToMatchingBehavior(t *testing.T) {
	sys := newTestSystem(t)

	pingType, err := TypeListOf[ping](sys)
	if err != nil {
		t.Fatalf("TypeListOf(ping): %v", err)
	}

	received := make(chan int, 1)
	echo := NewBehavior().On(pingType, func(ctx *Context, msg *message.Message) (any, error) {
		received <- msg.At(0).(*ping).N
		return nil, nil
	})

	ref := sys.Spawn(echo, SpawnOptions{})

	sender := sys.Spawn(NewBehavior(), SpawnOptions{})
	senderCtrl := sender.(localRef).ctrl
	if err := senderCtrl.ctx.Send(ref, &ping{N: 7}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case n := <-received:
		if n != 7 {
			t.Fatalf("expected 7, got %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch")
	}
}

func TestBecomeSwitchesHandling(t *testing.T) {
	sys := newTestSystem(t)
	pingType, _ := TypeListOf[ping](sys)

	first := make(chan int, 1)
	second := make(chan int, 1)

	var switched *Behavior
	switched = NewBehavior().On(pingType, func(ctx *Context, msg *message.Message) (any, error) {
		second <- msg.At(0).(*ping).N
		return nil, nil
	})

	initial := NewBehavior().On(pingType, func(ctx *Context, msg *message.Message) (any, error) {
		first <- msg.At(0).(*ping).N
		ctx.Become(switched)
		return nil, nil
	})

	ref := sys.Spawn(initial, SpawnOptions{})
	sender := sys.Spawn(NewBehavior(), SpawnOptions{}).(localRef).ctrl

	_ = sender.ctx.Send(ref, &ping{N: 1})
	select {
	case n := <-first:
		if n != 1 {
			t.Fatalf("expected 1, got %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first behavior")
	}

	_ = sender.ctx.Send(ref, &ping{N: 2})
	select {
	case n := <-second:
		if n != 2 {
			t.Fatalf("expected 2, got %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for become'd behavior")
	}
}

func TestRequestResolvesWithReply(t *testing.T) {
	sys := newTestSystem(t)
	pingType, _ := TypeListOf[ping](sys)

	pingPong := NewBehavior().On(pingType, func(ctx *Context, msg *message.Message) (any, error) {
		return &pong{N: msg.At(0).(*ping).N * 2}, nil
	})
	server := sys.Spawn(pingPong, SpawnOptions{})

	client := sys.Spawn(NewBehavior(), SpawnOptions{}).(localRef).ctrl

	done := make(chan *pong, 1)
	err := client.ctx.Request(server, time.Second, func(reply *message.Message, err error) {
		if err != nil {
			t.Errorf("unexpected request error: %v", err)
			close(done)
			return
		}
		done <- reply.At(0).(*pong)
	}, &ping{N: 21})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	select {
	case p := <-done:
		if p.N != 42 {
			t.Fatalf("expected 42, got %d", p.N)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for request reply")
	}
}

func TestRequestTimesOutWhenNoReply(t *testing.T) {
	sys := newTestSystem(t)

	// A control block that is deliberately never scheduled: its mailbox
	// accumulates the request forever, so only the clock-backed deadline
	// can resolve it.
	server := mailbox.Ref(newControl(sys, mailbox.ActorID(sys.nextID.Add(1)), NewBehavior(), sys.log).Strong())
	client := sys.Spawn(NewBehavior(), SpawnOptions{}).(localRef).ctrl

	result := make(chan error, 1)
	err := client.ctx.Request(server, 20*time.Millisecond, func(reply *message.Message, err error) {
		result <- err
	}, &ping{N: 1})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	select {
	case err := <-result:
		if err != ErrRequestTimeout {
			t.Fatalf("expected ErrRequestTimeout, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the request's own timeout to fire")
	}
}

func TestMonitorReceivesDownOnExit(t *testing.T) {
	sys := newTestSystem(t)

	target := sys.Spawn(NewBehavior(), SpawnOptions{})

	down := make(chan Down, 1)
	watcher := NewBehavior().On(sys.DownType(), func(ctx *Context, msg *message.Message) (any, error) {
		down <- *msg.At(0).(*Down)
		return nil, nil
	})
	watcherRef := sys.Spawn(watcher, SpawnOptions{}).(localRef).ctrl
	watcherRef.ctx.Monitor(target)

	target.(localRef).ctrl.requestStop(ExitNormal)

	select {
	case d := <-down:
		if d.Who != target.ActorID() {
			t.Fatalf("expected down from %v, got %v", target.ActorID(), d.Who)
		}
		if !d.Reason.Normal {
			t.Fatalf("expected normal exit, got %v", d.Reason)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for down notification")
	}
}

func TestLinkCascadesAbnormalExit(t *testing.T) {
	sys := newTestSystem(t)

	a := sys.Spawn(NewBehavior(), SpawnOptions{}).(localRef).ctrl
	b := sys.Spawn(NewBehavior(), SpawnOptions{}).(localRef).ctrl
	a.ctx.Link(b.Strong())

	a.requestStop(ExitAbnormal(errBoom))

	select {
	case <-b.Done():
		if b.exitRes.Normal {
			t.Fatalf("expected b's exit to be abnormal, got %v", b.exitRes)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for linked actor to be cascaded-stopped")
	}
}

func TestLinkToAlreadyExitedPeerDeliversExitImmediately(t *testing.T) {
	sys := newTestSystem(t)

	b := sys.Spawn(NewBehavior(), SpawnOptions{}).(localRef).ctrl
	b.requestStop(ExitAbnormal(errBoom))
	<-b.Done()

	down := make(chan Down, 1)
	a := sys.Spawn(NewBehavior().On(sys.DownType(), func(ctx *Context, msg *message.Message) (any, error) {
		down <- *msg.At(0).(*Down)
		return nil, nil
	}), SpawnOptions{}).(localRef).ctrl

	a.ctx.Link(b.Strong())

	select {
	case d := <-down:
		if d.Who != b.ActorID() {
			t.Fatalf("expected down from %v, got %v", b.ActorID(), d.Who)
		}
		if d.Reason.Normal {
			t.Fatalf("expected abnormal exit reason, got %v", d.Reason)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for immediate down notification")
	}

	select {
	case <-a.Done():
		if a.exitRes.Normal {
			t.Fatalf("expected a's exit to be abnormal, got %v", a.exitRes)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a to be cascaded-stopped")
	}
}

var errBoom = errBoomType{}

type errBoomType struct{}

func (errBoomType) Error() string { return "boom" }
