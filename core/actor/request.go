package actor

import (
	"sync"
	"sync/atomic"

	"github.com/relaykit/relay/core/mailbox"
	"github.com/relaykit/relay/core/message"
)

// continuation is invoked exactly once, from the requester's own actor
// loop, when its request either resolves or times out.
type continuation func(reply *message.Message, err error)

type requestEntry struct {
	cont   continuation
	cancel func() // disposes the clock-backed timeout
}

// requestTable is a single actor's outstanding-request set, per spec §4.H:
// every Request allocates a correlation id and a deadline; a matching
// response or an elapsed deadline resolves it exactly once.
type requestTable struct {
	next atomic.Uint64

	mu      sync.Mutex
	entries map[uint64]*requestEntry
}

func newRequestTable() *requestTable {
	return &requestTable{entries: make(map[uint64]*requestEntry)}
}

// alloc reserves a fresh correlation id for an outgoing request and files
// cont to be called on resolution. The timeout's disposal hook is attached
// afterwards with setCancel.
func (t *requestTable) alloc(cont continuation) mailbox.CorrelationID {
	n := t.next.Add(1)
	t.mu.Lock()
	t.entries[n] = &requestEntry{cont: cont}
	t.mu.Unlock()
	return mailbox.NewRequestID(n)
}

// setCancel attaches the timeout-disposal hook once the caller has
// actually scheduled one (it needs the correlation id alloc returned
// first, so this is a separate step).
func (t *requestTable) setCancel(id mailbox.CorrelationID, cancel func()) {
	t.mu.Lock()
	if e, ok := t.entries[id.RequestNumber()]; ok {
		e.cancel = cancel
	}
	t.mu.Unlock()
}

// resolve fires the continuation for the request that respID answers, if
// still pending. Returns false if the request already timed out or this
// response is a duplicate.
func (t *requestTable) resolve(respID mailbox.CorrelationID, reply *message.Message, err error) bool {
	n := respID.RequestNumber()
	t.mu.Lock()
	e, ok := t.entries[n]
	if ok {
		delete(t.entries, n)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	e.cont(reply, err)
	return true
}

// expire resolves requestNumber with ErrRequestTimeout if it is still
// outstanding. Called from Control.dispatch once the clock's timeout
// signal has been posted to and dequeued from the actor's own mailbox, so
// the continuation still runs on the actor's single thread; Context.Request
// also calls it to drop the entry when sending the request fails.
func (t *requestTable) expire(requestNumber uint64) (continuation, bool) {
	t.mu.Lock()
	e, ok := t.entries[requestNumber]
	if ok {
		delete(t.entries, requestNumber)
	}
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	return e.cont, true
}

func (t *requestTable) cancelAll() {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[uint64]*requestEntry)
	t.mu.Unlock()
	for _, e := range entries {
		if e.cancel != nil {
			e.cancel()
		}
		e.cont(nil, ErrStopped)
	}
}
