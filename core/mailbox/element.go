// Package mailbox implements the mailbox element (spec component C) and
// the three-lane, multi-producer single-consumer mailbox queue that backs
// every actor.
package mailbox

import "github.com/relaykit/relay/core/message"

// ActorID identifies an actor's control block process-wide.
type ActorID uint64

// Ref is an opaque handle to a control block: strong (keeps the actor
// object alive) or weak (keeps only its control block alive). Strength is
// a property of how the holder obtained the ref, not of Ref itself — the
// mailbox package only ever carries refs, never interprets their
// lifetime; that is core/actor's job (spec component A).
type Ref interface {
	ActorID() ActorID
}

// CorrelationID tags a mailbox element as asynchronous, a request, or a
// response, per spec §3. Bit 63 marks a response; bits 0-62 carry the
// request number; the zero value means "asynchronous message".
type CorrelationID uint64

const (
	// Async is the correlation id of a fire-and-forget message.
	Async CorrelationID = 0

	responseBit = uint64(1) << 63
)

// NewRequestID builds a request-side correlation id from a monotonically
// allocated request number. n must be < 2^63.
func NewRequestID(n uint64) CorrelationID { return CorrelationID(n) }

// Response returns the correlation id that a reply to this request id
// must carry.
func (c CorrelationID) Response() CorrelationID { return CorrelationID(uint64(c) | responseBit) }

// IsResponse reports whether bit 63 is set.
func (c CorrelationID) IsResponse() bool { return uint64(c)&responseBit != 0 }

// IsAsync reports whether this is the zero (fire-and-forget) correlation id.
func (c CorrelationID) IsAsync() bool { return c == Async }

// RequestNumber returns bits 0-62: the request number this id — request
// or response — correlates to.
func (c CorrelationID) RequestNumber() uint64 { return uint64(c) &^ responseBit }

// StreamMarker optionally tags an element as belonging to a flow
// subscription, carrying the demand-signal semantics of spec §4.I.
type StreamMarker struct {
	SubscriptionID uint64
	Kind           StreamKind
}

// StreamKind discriminates the flow-protocol purpose of a stream-tagged element.
type StreamKind int

const (
	StreamNone StreamKind = iota
	StreamRequest
	StreamNext
	StreamComplete
	StreamError
)

// Element is the envelope wrapping a Message with routing metadata —
// spec component C. A correlation id with bit 63 set must be the id of a
// prior outgoing request from the receiver named in Sender.
type Element struct {
	Sender      Ref // weak ref to the sending control block, or nil
	Receiver    Ref // strong ref to the receiving control block
	Correlation CorrelationID
	Content     *message.Message
	Stream      *StreamMarker
}
