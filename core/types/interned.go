package types

import (
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// TypeList is an immutable, interned ordered list of TypeIDs. Two TypeLists
// built from the same ids (in the same order) are the same *TypeList, so
// dispatch can compare lists by pointer equality instead of slice
// comparison, per spec §4.B/§4.F.
type TypeList struct {
	ids []TypeID
}

// IDs returns the underlying type-id slice. Callers must not mutate it.
func (l *TypeList) IDs() []TypeID { return l.ids }

// Len returns the number of type-ids in the list.
func (l *TypeList) Len() int { return len(l.ids) }

// internKey is a 16-byte blake2b digest of the id sequence, used as the
// intern-set key instead of a string-joined slice — grounded on the
// teacher's shard-hashing use of blake2b for stable, collision-resistant
// keys over arbitrary byte sequences.
type internKey [16]byte

func keyFor(ids []TypeID) internKey {
	h, _ := blake2b.New(16, nil)
	buf := make([]byte, 4)
	for _, id := range ids {
		binary.BigEndian.PutUint32(buf, uint32(id))
		_, _ = h.Write(buf)
	}
	var k internKey
	copy(k[:], h.Sum(nil))
	return k
}

// Interner deduplicates TypeLists process-wide.
type Interner struct {
	mu   sync.RWMutex
	sets map[internKey]*TypeList
}

// NewInterner creates an empty Interner.
func NewInterner() *Interner {
	return &Interner{sets: make(map[internKey]*TypeList)}
}

// Intern returns the canonical *TypeList for ids. The input slice is
// copied; repeated calls with an equal sequence return the identical
// pointer.
func (in *Interner) Intern(ids []TypeID) *TypeList {
	key := keyFor(ids)

	in.mu.RLock()
	if l, ok := in.sets[key]; ok {
		in.mu.RUnlock()
		return l
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if l, ok := in.sets[key]; ok {
		return l
	}
	owned := make([]TypeID, len(ids))
	copy(owned, ids)
	l := &TypeList{ids: owned}
	in.sets[key] = l
	return l
}

// Equal reports whether two interned lists carry the same type-id
// sequence. Because both come from the same Interner this reduces to a
// pointer comparison; Equal also tolerates lists from different
// Interners (e.g. in tests) by falling back to a slice comparison.
func Equal(a, b *TypeList) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || len(a.ids) != len(b.ids) {
		return false
	}
	for i := range a.ids {
		if a.ids[i] != b.ids[i] {
			return false
		}
	}
	return true
}
