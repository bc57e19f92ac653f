// Package transport wires core/actor's mailbox.Ref extension point to a
// remote node: Node answers inbound envelopes for actors it hosts,
// Client forwards outbound sends to RemoteRef targets, and Router picks
// the owning node for a remote_spawn placement key by rendezvous
// hashing. ports/transport/nats is the NATS-backed Transport; mem.go's
// MemoryTransport is the in-process reference implementation used by
// this package's own tests and by single-process examples.
package transport
