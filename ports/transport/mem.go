package transport

import (
	"context"
	"fmt"
	"sync"
)

// MemoryTransport is an in-process Transport: Notify/Request dispatch
// directly to a node's subscribed handler with no encoding round trip,
// for tests and single-process examples that still want to exercise the
// full Client/Node/Envelope path.
//
// Adapted from the teacher's core/cluster.MemoryTransport, generalized
// from shard-keyed subscriptions to node-id-keyed ones.
type MemoryTransport struct {
	mu     sync.RWMutex
	closed bool

	// node id -> handler
	nodes map[string]ServerHandlerFunc
}

// NewMemoryTransport constructs an empty MemoryTransport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{nodes: map[string]ServerHandlerFunc{}}
}

var _ Transport = (*MemoryTransport)(nil)

func (t *MemoryTransport) Notify(ctx context.Context, env Envelope) error {
	h, err := t.handlerFor(env.ToNode)
	if err != nil {
		return err
	}
	go func() {
		if _, err := h(ctx, env); err != nil {
			_ = err // fire-and-forget: nothing to report to
		}
	}()
	return nil
}

func (t *MemoryTransport) Request(ctx context.Context, env Envelope) (Envelope, error) {
	h, err := t.handlerFor(env.ToNode)
	if err != nil {
		return Envelope{}, err
	}

	type result struct {
		env Envelope
		err error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := h(ctx, env)
		done <- result{env: reply, err: err}
	}()

	select {
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	case r := <-done:
		return r.env, r.err
	}
}

func (t *MemoryTransport) handlerFor(node string) (ServerHandlerFunc, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return nil, ErrTransportClosed
	}
	h, ok := t.nodes[node]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSubscriber, node)
	}
	return h, nil
}

func (t *MemoryTransport) SubscribeNode(ctx context.Context, nodeID string, h ServerHandlerFunc) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}
	t.nodes[nodeID] = h

	sub := &memSubscription{t: t, nodeID: nodeID}
	context.AfterFunc(ctx, func() { _ = sub.Unsubscribe() })
	return sub, nil
}

func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for k := range t.nodes {
		delete(t.nodes, k)
	}
	return nil
}

type memSubscription struct {
	t      *MemoryTransport
	nodeID string
	once   sync.Once
}

func (s *memSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.t.mu.Lock()
		defer s.t.mu.Unlock()
		delete(s.t.nodes, s.nodeID)
	})
	return nil
}
