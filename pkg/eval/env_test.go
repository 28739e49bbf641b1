package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/defog/pkg/syntax"
)

func TestDeclareIsIdempotent(t *testing.T) {
	env := NewEnvironment(nil)
	env.Declare("x")
	env.Assign("x", FromValue(Number(5)))
	env.Declare("x")
	c, err := env.Resolve("x")
	require.NoError(t, err)
	require.Equal(t, Number(5), c.Value)
}

func TestResolveNormalizesAncestorNode(t *testing.T) {
	root := NewEnvironment(nil)
	root.Declare("x")
	root.Assign("x", FromValue(Number(1)))
	child := NewEnvironment(root)
	c, err := child.Resolve("x")
	require.NoError(t, err)
	require.False(t, c.Tainted)
	require.Equal(t, Number(1), c.Value)
	id, ok := c.Node.(*syntax.Identifier)
	require.True(t, ok)
	require.Equal(t, "x", id.Name)
}

func TestResolveSelfReturnsAsIs(t *testing.T) {
	env := NewEnvironment(nil)
	env.Declare("x")
	env.Assign("x", FromValue(Number(1)))
	c, err := env.Resolve("x")
	require.NoError(t, err)
	require.Nil(t, c.Node)
}

func TestResolveThroughTaintParentReads(t *testing.T) {
	root := NewEnvironment(nil)
	root.Declare("x")
	root.Assign("x", FromValue(Number(1)))
	child := NewEnvironment(root)
	child.TaintParentReads = true
	c, err := child.Resolve("x")
	require.NoError(t, err)
	require.True(t, c.Tainted)
	require.False(t, c.HasValue)
}

func TestResolveUnresolved(t *testing.T) {
	env := NewEnvironment(nil)
	_, err := env.Resolve("ghost")
	var d *Diagnostic
	require.ErrorAs(t, err, &d)
	require.Equal(t, ReferenceUnresolved, d.Kind)

	env.IgnoreReferenceExc = true
	c, err := env.Resolve("ghost")
	require.NoError(t, err)
	require.True(t, c.Tainted)
	require.True(t, env.Has("ghost"))
}

func TestAssignDegradesAcrossTaintBoundary(t *testing.T) {
	root := NewEnvironment(nil)
	root.Declare("x")
	root.Assign("x", FromValue(Number(1)))
	child := NewEnvironment(root)
	child.TaintParentWrites = true
	child.Assign("x", FromValue(Number(2)))

	c, err := root.Resolve("x")
	require.NoError(t, err)
	require.True(t, c.Tainted)
	require.False(t, c.HasValue, "a concrete post-conditional value must never reach the parent")
}

func TestAssignUnboundBindsAtRoot(t *testing.T) {
	root := NewEnvironment(nil)
	child := NewEnvironment(root)
	child.Assign("fresh", FromValue(Number(3)))
	require.True(t, root.Has("fresh"))
	require.False(t, child.Has("fresh"))
}

func TestSetTaintKeepsValue(t *testing.T) {
	env := NewEnvironment(nil)
	env.Declare("x")
	env.Assign("x", FromValue(Number(9)))
	env.SetTaint("x", true)
	c, err := env.Resolve("x")
	require.NoError(t, err)
	require.True(t, c.Tainted)
	require.Equal(t, Number(9), c.Value)
	require.NotNil(t, c.Node)
}

func TestAssignMemberPolicies(t *testing.T) {
	newArrayEnv := func() *Environment {
		env := NewEnvironment(nil)
		env.Declare("a")
		env.Assign("a", FromValue(Array([]*Carrier{
			FromValue(Number(10)), FromValue(Number(20)),
		})))
		return env
	}

	t.Run("tainted object is a no-op", func(t *testing.T) {
		env := NewEnvironment(nil)
		env.DeclareTainted("a")
		env.AssignMember("a", FromValue(Number(0)), FromValue(Number(1)), nil)
		c, _ := env.Resolve("a")
		require.True(t, c.Tainted)
		require.False(t, c.HasValue)
	})

	t.Run("tainted key is a no-op on the value", func(t *testing.T) {
		env := newArrayEnv()
		env.AssignMember("a", TaintedRef("k"), FromValue(Number(1)), nil)
		c, _ := env.Resolve("a")
		require.Equal(t, Number(10), c.Value.Arr.Elems[0].Value)
	})

	t.Run("cross-boundary write degrades slot and entry", func(t *testing.T) {
		root := newArrayEnv()
		child := NewEnvironment(root)
		child.TaintParentWrites = true
		child.AssignMember("a", FromValue(Number(0)), FromValue(Number(99)), nil)

		c, _ := root.Resolve("a")
		require.False(t, c.Tainted, "entry stays readable")
		require.NotNil(t, c.Node, "entry shows reference-only form")
		require.True(t, c.Value.Arr.Elems[0].Tainted)
		require.Equal(t, Number(20), c.Value.Arr.Elems[1].Value)
	})

	t.Run("plain indexed store", func(t *testing.T) {
		env := newArrayEnv()
		env.AssignMember("a", FromValue(Number(1)), FromValue(Number(99)), nil)
		c, _ := env.Resolve("a")
		require.Equal(t, Number(99), c.Value.Arr.Elems[1].Value)
	})

	t.Run("store grows the array", func(t *testing.T) {
		env := newArrayEnv()
		env.AssignMember("a", FromValue(Number(4)), FromValue(Number(5)), nil)
		c, _ := env.Resolve("a")
		require.Len(t, c.Value.Arr.Elems, 5)
		require.Equal(t, Number(5), c.Value.Arr.Elems[4].Value)
	})
}

func TestAssignNestedMemberTaintsDeepestReachable(t *testing.T) {
	env := NewEnvironment(nil)
	inner := FromValue(Array([]*Carrier{FromValue(Number(1))}))
	env.Declare("a")
	env.Assign("a", FromValue(Array([]*Carrier{inner})))

	env.AssignNestedMember("a",
		[]*Carrier{FromValue(Number(0)), TaintedRef("k")},
		FromValue(Number(2)), nil)
	require.True(t, inner.Tainted)
}

func TestIsTaintedEnv(t *testing.T) {
	root := NewEnvironment(nil)
	mid := NewEnvironment(root)
	mid.TaintParentWrites = true
	leaf := NewEnvironment(mid)

	require.True(t, leaf.IsTaintedEnv(nil))
	require.True(t, leaf.IsTaintedEnv(root))
	require.False(t, leaf.IsTaintedEnv(mid))
	require.False(t, root.IsTaintedEnv(nil))
}

func TestFlattenChainShadows(t *testing.T) {
	root := NewEnvironment(nil)
	root.Declare("x")
	root.Assign("x", FromValue(Number(1)))
	root.Declare("y")
	child := NewEnvironment(root)
	child.Bind("x", FromValue(Number(2)))

	flat := child.FlattenChain()
	require.Len(t, flat, 2)
	require.Equal(t, Number(2), flat["x"].Value)
}
