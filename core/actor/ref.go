package actor

import "github.com/relaykit/relay/core/mailbox"

// RefKind distinguishes a strong ref (keeps the actor's user-visible
// handle alive; holding one is a vote that the actor should keep running)
// from a weak ref (names a control block without expressing an opinion
// about its lifetime — the shape a Sender field carries, per spec §4.C).
type RefKind int

const (
	Strong RefKind = iota
	Weak
)

// localRef is a mailbox.Ref that resolves directly to an in-process
// control block. Remote refs are ports/transport's concern; they satisfy
// the same mailbox.Ref interface without embedding a *Control.
type localRef struct {
	id   mailbox.ActorID
	kind RefKind
	ctrl *Control
}

func (r localRef) ActorID() mailbox.ActorID { return r.id }

// Kind reports whether this ref is strong or weak.
func (r localRef) Kind() RefKind { return r.kind }

// Control returns the referenced control block, for in-process delivery
// short-circuits (Send/Request use this instead of a system-wide lookup).
func (r localRef) Control() *Control { return r.ctrl }

func newStrongRef(c *Control) localRef { return localRef{id: c.id, kind: Strong, ctrl: c} }
func newWeakRef(c *Control) localRef   { return localRef{id: c.id, kind: Weak, ctrl: c} }
