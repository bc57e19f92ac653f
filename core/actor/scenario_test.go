package actor

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/relaykit/relay/core/mailbox"
	"github.com/relaykit/relay/core/message"
)

type pingPongStart struct{}

// TestPingPongDeterministicSequence reproduces the ping/pong scenario end
// to end: P sends (ping, 3) to Q; Q replies (pong, n); P sends (ping, n-1)
// to Q while n>1. The dispatched sequence and final mailbox counts must
// match exactly.
func TestPingPongDeterministicSequence(t *testing.T) {
	sys := newTestSystem(t)
	if _, err := RegisterMessageType[pingPongStart](sys); err != nil {
		t.Fatalf("register pingPongStart: %v", err)
	}
	pingType, _ := TypeListOf[ping](sys)
	pongType, _ := TypeListOf[pong](sys)
	startType, _ := TypeListOf[pingPongStart](sys)

	var mu sync.Mutex
	var seq []string
	record := func(step string) {
		mu.Lock()
		seq = append(seq, step)
		mu.Unlock()
	}
	done := make(chan struct{})

	var qRef mailbox.Ref

	qBehavior := NewBehavior().On(pingType, func(ctx *Context, msg *message.Message) (any, error) {
		n := msg.At(0).(*ping).N
		record("ping " + strconv.Itoa(n) + "@Q")
		return nil, ctx.Send(ctx.Sender(), &pong{N: n})
	})
	qRef = sys.Spawn(qBehavior, SpawnOptions{})

	pBehavior := NewBehavior().
		On(startType, func(ctx *Context, msg *message.Message) (any, error) {
			return nil, ctx.Send(qRef, &ping{N: 3})
		}).
		On(pongType, func(ctx *Context, msg *message.Message) (any, error) {
			n := msg.At(0).(*pong).N
			record("pong " + strconv.Itoa(n) + "@P")
			if n > 1 {
				return nil, ctx.Send(qRef, &ping{N: n - 1})
			}
			close(done)
			return nil, nil
		})
	pRef := sys.Spawn(pBehavior, SpawnOptions{})

	starter := sys.Spawn(NewBehavior(), SpawnOptions{})
	if err := starter.(localRef).Control().ctx.Send(pRef, &pingPongStart{}); err != nil {
		t.Fatalf("kick off: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ping/pong sequence did not complete")
	}

	want := []string{
		"ping 3@Q", "pong 3@P",
		"ping 2@Q", "pong 2@P",
		"ping 1@Q", "pong 1@P",
	}
	mu.Lock()
	got := append([]string(nil), seq...)
	mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sequence[%d] = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}
