// Package transport implements spec §6's Transport external collaborator:
// open(port)/connect(host, port)/remote_spawn bridging remote actor
// handles, plus message forwarding on top of node routing. The core actor
// runtime (core/actor) never imports this package — it only ever sees a
// mailbox.Ref, local or remote, and a Deliver(lane, element) method; this
// package is what a remote.Ref's Deliver call forwards over the wire.
//
// Grounded on the teacher's core/cluster transport/envelope split,
// generalized from shard-keyed to actor/node-keyed routing.
package transport

import "context"

// Envelope is the wire-level encoding of a mailbox.Element: a Message's
// type names and per-value serialized payloads (via the owning process's
// type registry), plus the routing metadata core/mailbox.Element carries
// in-process. Type *names* travel on the wire, never TypeIDs — TypeIDs are
// only meaningful within one process's registry (spec §4.A).
type Envelope struct {
	ToNode      string
	ToActor     uint64
	FromNode    string
	FromActor   uint64
	Correlation uint64
	TypeNames   []string
	Payloads    [][]byte
	// Op distinguishes a plain message delivery ("") from the one control
	// operation Node handles, "spawn" (remote_spawn); Node delivers any
	// other Op as a plain message.
	Op string
	// SpawnType names the registered actor type a "spawn" Op should
	// instantiate; empty for any other Op.
	SpawnType string
	Headers   map[string]string
}

// Subscription is returned by ServerTransport.SubscribeNode; Unsubscribe tears
// the handler down.
type Subscription interface {
	Unsubscribe() error
}

// ServerHandlerFunc processes one inbound Envelope and returns the
// Envelope to publish as its reply (zero value if none is expected).
type ServerHandlerFunc = func(ctx context.Context, env Envelope) (Envelope, error)

// ClientTransport is the send side: publish with no expectation of a
// reply (Notify) or publish-and-wait (Request).
type ClientTransport interface {
	Notify(ctx context.Context, env Envelope) error
	Request(ctx context.Context, env Envelope) (Envelope, error)
	Close() error
}

// ServerTransport is the receive side: one subscription per node identity
// this process answers for.
type ServerTransport interface {
	SubscribeNode(ctx context.Context, nodeID string, h ServerHandlerFunc) (Subscription, error)
	Close() error
}

// Transport combines both directions — what open(port)/connect(host,
// port) hand back in spec §6.
type Transport interface {
	ClientTransport
	ServerTransport
}
