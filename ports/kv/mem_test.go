package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Memory(t *testing.T) {
	type Foo struct {
		Name string
		Age  int
	}
	s := NewMemStore()

	_, err := Get[Foo](context.Background(), s, "foobar")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, Put[Foo](context.Background(), s, "p1", Foo{Name: "P1", Age: 10}, PutOptions{}))
	require.NoError(t, Put[Foo](context.Background(), s, "p2", Foo{Name: "P2", Age: 20}, PutOptions{}))

	loaded, err := Get[Foo](context.Background(), s, "p1")
	require.NoError(t, err)
	require.Equal(t, Foo{Name: "P1", Age: 10}, loaded)

	require.NoError(t, s.Delete(context.Background(), "p1"))
	_, err = Get[Foo](context.Background(), s, "p1")
	require.ErrorIs(t, err, ErrNotFound)
}
