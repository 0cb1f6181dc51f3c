package sets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetBasics(t *testing.T) {
	s := New("b", "a")
	s.Add("c")
	require.True(t, s.Has("a"))
	require.False(t, s.Has("z"))

	s.Delete("a")
	require.False(t, s.Has("a"))
	require.Equal(t, []string{"b", "c"}, Sorted(s))
}

func TestNilSetHas(t *testing.T) {
	var s Set[string]
	require.False(t, s.Has("x"))
	require.Empty(t, Sorted(s))
}

func TestCloneAndEqual(t *testing.T) {
	s := New(1, 2, 3)
	c := s.Clone()
	require.True(t, s.Equal(c))

	c.Add(4)
	require.False(t, s.Equal(c))
	require.False(t, s.Has(4))
}
