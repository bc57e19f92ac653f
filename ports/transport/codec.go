package transport

import (
	"fmt"

	"github.com/relaykit/relay/core/message"
	"github.com/relaykit/relay/core/types"
)

// encodeMessage serializes msg's value tuple into wire payloads, one per
// value, using each value's own registered Meta.Serialize (not the
// Inspector binary codec of ports/codec).
func encodeMessage(reg *types.Registry, msg *message.Message) (names []string, payloads [][]byte, err error) {
	ids := msg.Types().IDs()
	names = make([]string, len(ids))
	payloads = make([][]byte, len(ids))
	for i, id := range ids {
		meta, lookupErr := reg.Lookup(id)
		if lookupErr != nil {
			return nil, nil, lookupErr
		}
		if meta.Serialize == nil {
			return nil, nil, fmt.Errorf("transport: type %q has no Serialize capability", meta.Name)
		}
		b, serErr := meta.Serialize(msg.At(i))
		if serErr != nil {
			return nil, nil, fmt.Errorf("transport: serialize %q: %w", meta.Name, serErr)
		}
		names[i] = meta.Name
		payloads[i] = b
	}
	return names, payloads, nil
}

// decodeMessage reconstructs a message.Message on the receiving process
// from wire-traveled type names and payloads, resolving each name against
// the local registry — the names must have been registered identically
// on both ends (spec §4.A's process-wide table, mirrored per process).
func decodeMessage(reg *types.Registry, interner *types.Interner, names []string, payloads [][]byte) (*message.Message, error) {
	values := make([]any, len(names))
	for i, name := range names {
		id, err := reg.LookupByName(name)
		if err != nil {
			return nil, err
		}
		meta, err := reg.Lookup(id)
		if err != nil {
			return nil, err
		}
		if meta.Deserialize == nil {
			return nil, fmt.Errorf("transport: type %q has no Deserialize capability", name)
		}
		v, err := meta.Deserialize(payloads[i])
		if err != nil {
			return nil, fmt.Errorf("transport: deserialize %q: %w", name, err)
		}
		values[i] = v
	}
	return message.New(reg, interner, values...)
}
