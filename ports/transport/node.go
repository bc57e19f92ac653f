package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/relaykit/relay/core/actor"
	"github.com/relaykit/relay/core/mailbox"
)

// SpawnFunc builds the initial Behavior for a remote_spawn request naming
// typeName. Registered once per Node per actor type it accepts remote
// spawns for; arg is the caller-supplied placement key passed through
// unopened, for the factory to use as it sees fit (tenant id, shard key).
type SpawnFunc func(arg string) (*actor.Behavior, error)

// Node is the server side of this package: it answers inbound envelopes
// addressed to its node id by resolving the target actor (a previously
// spawned local actor, or a remote_spawn request) and handing the decoded
// message to the local actor.System through the same Deliver path a
// same-process Send would take.
//
// Grounded on the teacher's core/cluster.Node, generalized from the
// event-sourcing command/shard model to actor-id/node-id routing.
type Node struct {
	id       string
	sys      *actor.System
	log      *slog.Logger
	local    *localRegistry
	spawners map[string]SpawnFunc
	metrics  Metrics

	mu  sync.Mutex
	sub Subscription
}

// NodeOptions configures a Node.
type NodeOptions struct {
	ID      string
	System  *actor.System
	Logger  *slog.Logger
	Metrics Metrics // default: NopMetrics()
}

// NewNode constructs a Node bound to sys. RegisterSpawn must be called for
// every actor type this node should accept remote_spawn requests for
// before Serve is called.
func NewNode(opts NodeOptions) *Node {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	m := opts.Metrics
	if m == nil {
		m = NopMetrics()
	}
	return &Node{
		id:       opts.ID,
		sys:      opts.System,
		log:      log,
		local:    newLocalRegistry(),
		spawners: map[string]SpawnFunc{},
		metrics:  m,
	}
}

// ID returns the node identity Serve subscribes under.
func (n *Node) ID() string { return n.id }

// RegisterSpawn makes typeName a valid remote_spawn target on this node.
func (n *Node) RegisterSpawn(typeName string, fn SpawnFunc) {
	n.spawners[typeName] = fn
}

// Register makes an already-locally-spawned actor addressable by inbound
// envelopes naming actorID, returning the id to hand back to the spawning
// caller.
func (n *Node) Register(ref mailbox.Ref) mailbox.ActorID {
	n.local.put(ref)
	return ref.ActorID()
}

// Unregister drops actorID from this node's addressable set, once the
// actor has exited (spec §4.F's Down notification is the usual trigger).
func (n *Node) Unregister(actorID mailbox.ActorID) {
	n.local.delete(actorID)
}

// Serve subscribes this node's identity on tr and begins answering
// inbound envelopes until ctx is canceled or Close is called.
func (n *Node) Serve(ctx context.Context, tr ServerTransport) error {
	sub, err := tr.SubscribeNode(ctx, n.id, n.handle)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.sub = sub
	n.mu.Unlock()
	return nil
}

// Close unsubscribes this node from its transport.
func (n *Node) Close() error {
	n.mu.Lock()
	sub := n.sub
	n.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}

func (n *Node) handle(ctx context.Context, env Envelope) (Envelope, error) {
	op := env.Op
	if op == "" {
		op = "deliver"
	}
	timer := n.metrics.HandlerDuration(op)

	var reply Envelope
	var err error
	switch env.Op {
	case opSpawn:
		reply, err = n.handleSpawn(env)
	default:
		reply, err = n.handleDeliver(env)
	}

	timer.ObserveDuration()
	n.metrics.HandlerCompleted(op, err == nil)
	return reply, err
}

func (n *Node) handleDeliver(env Envelope) (Envelope, error) {
	target, ok := n.local.get(mailbox.ActorID(env.ToActor))
	if !ok {
		return Envelope{}, fmt.Errorf("%w: actor %d", ErrActorNotFound, env.ToActor)
	}

	msg, err := decodeMessage(n.sys.Registry(), n.sys.Interner(), env.TypeNames, env.Payloads)
	if err != nil {
		return Envelope{}, err
	}

	lane := mailbox.Normal
	corr := mailbox.Async
	if env.Correlation != 0 {
		corr = mailbox.CorrelationID(env.Correlation)
	}

	el := &mailbox.Element{
		Sender:      remoteSender{node: env.FromNode, id: mailbox.ActorID(env.FromActor)},
		Receiver:    target,
		Correlation: corr,
		Content:     msg,
	}
	if err := actor.Deliver(target, lane, el); err != nil {
		return Envelope{}, err
	}
	return Envelope{}, nil
}

const opSpawn = "spawn"

func (n *Node) handleSpawn(env Envelope) (Envelope, error) {
	fn, ok := n.spawners[env.SpawnType]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownSpawnType, env.SpawnType)
	}
	arg := env.Headers["arg"]
	behavior, err := fn(arg)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrRemoteSpawnFailed, err)
	}
	ref := n.sys.Spawn(behavior, actor.SpawnOptions{Logger: n.log})
	actorID := n.Register(ref)
	return Envelope{ToActor: uint64(actorID), FromNode: n.id}, nil
}

// localRegistry maps actor ids to their strong local refs, guarded by a
// mutex — inbound envelopes arrive from arbitrary transport goroutines.
type localRegistry struct {
	mu   sync.RWMutex
	refs map[mailbox.ActorID]mailbox.Ref
}

func newLocalRegistry() *localRegistry {
	return &localRegistry{refs: map[mailbox.ActorID]mailbox.Ref{}}
}

func (r *localRegistry) put(ref mailbox.Ref) {
	r.mu.Lock()
	r.refs[ref.ActorID()] = ref
	r.mu.Unlock()
}

func (r *localRegistry) get(id mailbox.ActorID) (mailbox.Ref, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.refs[id]
	return ref, ok
}

func (r *localRegistry) delete(id mailbox.ActorID) {
	r.mu.Lock()
	delete(r.refs, id)
	r.mu.Unlock()
}

// remoteSender is the mailbox.Ref a locally-delivered, remotely-sourced
// element carries as Sender: enough identity for Context.Sender() to be
// passed back to Context.Send, which resolves it to a RemoteRef via the
// owning Client.
type remoteSender struct {
	node string
	id   mailbox.ActorID
}

func (r remoteSender) ActorID() mailbox.ActorID { return r.id }

// Node returns the remote node identity this sender ref is hosted on.
func (r remoteSender) Node() string { return r.node }
