package transport

import (
	"fmt"
	"strconv"

	"github.com/relaykit/relay/core/cache"
	"github.com/relaykit/relay/core/ds"
	"github.com/relaykit/relay/internal/hrw"
)

// Router owns the set of node identities this process knows about and
// resolves which node owns a given remote actor key, by rendezvous (HRW)
// hashing — the same blake2b-backed scheme the teacher's core/cluster
// used for shard ownership, generalized from "shard id" to "remote actor
// key" (typically the spawn-time type name plus a caller-chosen key).
type Router struct {
	seed  string
	nodes *ds.StringSet
	cache cache.TypedCache[string] // actor key -> resolved owning node, LRU-bounded
}

// RouterOptions configures a Router.
type RouterOptions struct {
	Seed      string // disambiguates routing across independent clusters
	CacheSize int    // resolved-owner cache entries; default 1024
}

// NewRouter creates a Router with no known nodes. AddNode/RemoveNode grow
// and shrink the known set as the cluster's membership changes.
func NewRouter(opts RouterOptions) *Router {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	return &Router{
		seed:  opts.Seed,
		nodes: ds.NewSet[string](),
		cache: cache.NewTyped[string](cache.NewLRU(cache.LRUOpts{Size: opts.CacheSize})),
	}
}

// AddNode registers node as reachable. Idempotent.
func (r *Router) AddNode(node string) { r.nodes.Add(node) }

// RemoveNode drops node from the known set.
func (r *Router) RemoveNode(node string) { r.nodes.Remove(node) }

// Nodes returns the currently known node identities, in insertion order.
func (r *Router) Nodes() []string { return r.nodes.Values() }

// OwnerOf returns the node that owns actorKey under rendezvous hashing
// over the currently known node set. Results are cached so repeated sends
// to the same key don't re-hash against the whole node list. AddNode and
// RemoveNode do not touch the cache: a cached owner is re-resolved only once
// it has left the known set, and Invalidate drops every cached entry.
func (r *Router) OwnerOf(actorKey string) (string, error) {
	if v, ok := r.cache.Get(actorKey); ok {
		if r.nodes.Contains(v) {
			return v, nil
		}
		// v fell out of the known set since it was cached; re-resolve.
	}
	best, ok := hrw.Best(actorKey, r.nodes.Values(), r.seed)
	if !ok {
		return "", fmt.Errorf("%w: no nodes registered", ErrUnknownNode)
	}
	r.cache.Put(actorKey, best)
	return best, nil
}

// Invalidate drops every cached actor-key -> owner resolution. Call after
// AddNode/RemoveNode so previously-resolved keys are re-ranked against
// the new membership instead of sticking to a now-stale owner.
func (r *Router) Invalidate(size int) {
	if size <= 0 {
		size = 1024
	}
	r.cache = cache.NewTyped[string](cache.NewLRU(cache.LRUOpts{Size: size}))
}

// ActorKey builds the rendezvous-hashing key for a remotely spawned
// actor: its type name plus caller-chosen placement key (often a tenant
// or shard identifier). Two spawns with the same (typeName, key) land on
// the same node as long as membership hasn't changed.
func ActorKey(typeName, key string) string {
	return typeName + ":" + key
}

// ActorIDKey builds the rendezvous-hashing key for routing to an
// already-spawned remote actor by its numeric id, once it has been
// assigned a home node at spawn time and that assignment is being
// re-derived (e.g. after a cache miss) rather than carried on the Ref.
func ActorIDKey(actorID uint64) string {
	return strconv.FormatUint(actorID, 10)
}
