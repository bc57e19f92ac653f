// Package message implements the immutable, type-tagged, reference-counted
// message payload of spec component B.
package message

import (
	"sync/atomic"

	"github.com/relaykit/relay/core/types"
)

// Message carries a fixed, ordered list of type-ids (interned, so list
// equality is pointer equality) plus a packed value tuple. A Message's
// type list never changes after construction. Messages are
// reference-counted: cheap clones via Retain share storage, and a handler
// may mutate the value tuple in place only when it holds the sole
// reference (copy-on-write).
type Message struct {
	refs   atomic.Int32
	types  *types.TypeList
	values []any
}

// New builds a Message from values, inferring each element's TypeID by
// looking up its reflected type name in reg. Every value's concrete type
// must already be registered (e.g. via types.RegisterDefault) — New does
// not implicitly register types, matching spec §4.A's "table is
// initialized once before actor systems start" discipline.
func New(reg *types.Registry, interner *types.Interner, values ...any) (*Message, error) {
	ids := make([]types.TypeID, len(values))
	for i, v := range values {
		name := types.TypeInfoOf(v).Name
		id, err := reg.LookupByName(name)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	m := &Message{types: interner.Intern(ids), values: values}
	m.refs.Store(1)
	return m, nil
}

// Retain increments the reference count and returns m, for chaining at
// send sites: `mbox.Enqueue(lane, &Element{Content: msg.Retain(), ...})`.
func (m *Message) Retain() *Message {
	m.refs.Add(1)
	return m
}

// Release decrements the reference count. A Go Message has nothing to
// free explicitly (the GC reclaims it once unreferenced); Release exists
// so call sites mirror the C++ original's ownership discipline and so
// RefCount accurately reflects outstanding owners for Mutable's
// uniqueness check.
func (m *Message) Release() {
	m.refs.Add(-1)
}

// RefCount returns the current reference count.
func (m *Message) RefCount() int32 { return m.refs.Load() }

// Types returns the interned type-id list for this message. Dispatch
// compares the result against a handler's declared list by pointer
// equality (types.Equal).
func (m *Message) Types() *types.TypeList { return m.types }

// Len returns the number of values in the tuple.
func (m *Message) Len() int { return len(m.values) }

// At returns the i'th value, for a const (shared) view.
func (m *Message) At(i int) any { return m.values[i] }

// Values returns the underlying value slice. Callers that have not
// established unique ownership via Mutable must treat the result as
// read-only.
func (m *Message) Values() []any { return m.values }

// Mutable returns a handle suitable for in-place mutation. If m is
// uniquely owned (RefCount()==1) it returns m itself and its own backing
// slice. Otherwise it copies the value tuple into a fresh, uniquely-owned
// Message (refcount 1) sharing the same interned type list, and returns
// that — leaving the original m and its other owners untouched.
func (m *Message) Mutable() (*Message, []any) {
	if m.refs.Load() == 1 {
		return m, m.values
	}
	cp := make([]any, len(m.values))
	copy(cp, m.values)
	nm := &Message{types: m.types, values: cp}
	nm.refs.Store(1)
	return nm, cp
}
