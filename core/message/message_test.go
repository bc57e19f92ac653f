package message

import (
	"testing"

	"github.com/relaykit/relay/core/types"
)

type pingMsg struct{ N int }
type pongMsg struct{ N int }

func newRegistry(t *testing.T) (*types.Registry, *types.Interner) {
	t.Helper()
	reg := types.NewRegistry()
	if _, err := types.RegisterDefault[pingMsg](reg); err != nil {
		t.Fatal(err)
	}
	if _, err := types.RegisterDefault[pongMsg](reg); err != nil {
		t.Fatal(err)
	}
	return reg, types.NewInterner()
}

func TestNewInfersTypeList(t *testing.T) {
	reg, in := newRegistry(t)

	m, err := New(reg, in, pingMsg{N: 3})
	if err != nil {
		t.Fatal(err)
	}
	if m.Types().Len() != 1 {
		t.Fatalf("expected 1 type-id, got %d", m.Types().Len())
	}
	if m.RefCount() != 1 {
		t.Fatalf("expected refcount 1, got %d", m.RefCount())
	}
}

func TestSameShapeInterns(t *testing.T) {
	reg, in := newRegistry(t)

	a, _ := New(reg, in, pingMsg{N: 1})
	b, _ := New(reg, in, pingMsg{N: 2})

	if a.Types() != b.Types() {
		t.Fatalf("expected same type shape to intern to the same *TypeList")
	}
}

func TestRetainReleaseMutableCOW(t *testing.T) {
	reg, in := newRegistry(t)

	m, _ := New(reg, in, pingMsg{N: 1})
	clone := m.Retain()
	if clone != m {
		t.Fatalf("Retain should return the same pointer")
	}
	if m.RefCount() != 2 {
		t.Fatalf("expected refcount 2 after Retain, got %d", m.RefCount())
	}

	// Not uniquely owned: Mutable must hand back a fresh copy.
	mutant, vals := m.Mutable()
	if mutant == m {
		t.Fatalf("expected a COW copy when refcount > 1")
	}
	vals[0] = pingMsg{N: 99}
	if m.Values()[0].(pingMsg).N == 99 {
		t.Fatalf("mutation of the COW copy leaked into the original")
	}

	m.Release()
	if m.RefCount() != 1 {
		t.Fatalf("expected refcount 1 after Release, got %d", m.RefCount())
	}

	// Uniquely owned: Mutable must hand back the same message/slice.
	same, _ := m.Mutable()
	if same != m {
		t.Fatalf("expected in-place Mutable when refcount == 1")
	}
}

func TestUnregisteredTypeFails(t *testing.T) {
	reg, in := newRegistry(t)
	type unregistered struct{}
	if _, err := New(reg, in, unregistered{}); err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}
