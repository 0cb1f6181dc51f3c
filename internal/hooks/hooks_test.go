package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/autoapi/internal/apinode"
	errs "git.home.luguber.info/inful/autoapi/internal/errors"
)

func tree() *apinode.Node {
	root := apinode.New("mypkg", apinode.KindPackage, "mypkg")
	a := apinode.New("a", apinode.KindModule, "mypkg.a")
	a.AddChild(apinode.New("f", apinode.KindFunction, "mypkg.a.f"))
	root.AddChild(a)
	root.AddChild(apinode.New("b", apinode.KindModule, "mypkg.b"))
	return root
}

func TestDispatch_ParentsFirst(t *testing.T) {
	d := NewDispatcher()
	var seen []string
	require.NoError(t, d.Register("order", func(_ context.Context, n *apinode.Node, _ *HostContext) error {
		seen = append(seen, n.QualifiedPath)
		return nil
	}))
	require.NoError(t, d.Register("title", func(_ context.Context, n *apinode.Node, _ *HostContext) error {
		n.Annotations["title"] = "T " + n.Name
		return nil
	}))

	root := tree()
	require.Empty(t, d.Dispatch(context.Background(), root, &HostContext{Root: "mypkg"}))
	assert.Equal(t, []string{"mypkg", "mypkg.a", "mypkg.a.f", "mypkg.b"}, seen)
	assert.Equal(t, "T a", root.Children[0].Annotations["title"])
}

func TestDispatch_FailureIsScopedToNode(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register("mutate", func(_ context.Context, n *apinode.Node, _ *HostContext) error {
		n.Annotations["touched"] = true
		n.Doc = "changed"
		return nil
	}))
	require.NoError(t, d.Register("fail-on-a", func(_ context.Context, n *apinode.Node, _ *HostContext) error {
		if n.Name == "a" {
			return errors.New("boom")
		}
		return nil
	}))
	var after []string
	require.NoError(t, d.Register("after", func(_ context.Context, n *apinode.Node, _ *HostContext) error {
		after = append(after, n.QualifiedPath)
		return nil
	}))

	root := tree()
	problems := d.Dispatch(context.Background(), root, &HostContext{})
	require.Len(t, problems, 1)
	assert.True(t, errs.IsCategory(problems[0], errs.CategoryHook))
	assert.Contains(t, problems[0].Error(), "node=mypkg.a")

	a := root.Children[0]
	assert.NotContains(t, a.Annotations, "touched")
	assert.Empty(t, a.Doc)
	require.Len(t, a.Children, 1)
	assert.Equal(t, true, a.Children[0].Annotations["touched"])
	assert.Equal(t, true, root.Children[1].Annotations["touched"])
	assert.Equal(t, []string{"mypkg", "mypkg.a.f", "mypkg.b"}, after)
}

func TestDispatch_PanicIsRecovered(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register("panics", func(_ context.Context, n *apinode.Node, _ *HostContext) error {
		if n.Name == "b" {
			panic("listener bug")
		}
		return nil
	}))
	problems := d.Dispatch(context.Background(), tree(), &HostContext{})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Error(), "listener bug")
}

func TestRegister(t *testing.T) {
	d := NewDispatcher()
	noop := func(context.Context, *apinode.Node, *HostContext) error { return nil }
	require.NoError(t, d.Register("x", noop))
	require.Error(t, d.Register("x", noop))
	require.Error(t, d.Register("nil", nil))
	assert.Equal(t, 1, d.Len())
}

func TestRevisionListener(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register("revision", RevisionListener))
	root := tree()
	require.Empty(t, d.Dispatch(context.Background(), root, &HostContext{Revision: "abc123"}))
	assert.Equal(t, "abc123", root.Annotations[RevisionAnnotation])
	assert.NotContains(t, root.Children[0].Children[0].Annotations, RevisionAnnotation)
}
