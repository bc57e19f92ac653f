// Package flow implements the flow coordinator (spec component I) and the
// reactive-stream operator set (component J): observable/observer graphs
// with demand-based backpressure, serialized on the owning actor's single
// thread via a Coordinator. Nothing here spawns a goroutine per
// subscription — operators are driven entirely by Request/OnNext calls
// and the Coordinator's delay queue, the same cooperative-scheduling
// discipline the actor runtime itself uses.
package flow
