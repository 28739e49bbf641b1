package eval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallstackSearches(t *testing.T) {
	s := NewCallstack()
	prog := &ExecutionContext{Env: NewEnvironment(nil), Kind: KindProgram}
	fn := &ExecutionContext{Env: NewEnvironment(prog.Env), Kind: KindFuncCtx}
	label := &ExecutionContext{Env: NewEnvironment(fn.Env), Kind: KindLabel, Label: "outer"}
	loop := &ExecutionContext{Env: NewEnvironment(label.Env), Kind: KindWhile}
	for _, ctx := range []*ExecutionContext{prog, fn, label, loop} {
		s.Push(ctx)
	}

	require.Equal(t, fn, s.FindFunction())
	require.Equal(t, loop, s.FindBreakTarget(""))
	require.Equal(t, label, s.FindBreakTarget("outer"))
	require.Nil(t, s.FindBreakTarget("missing"))
	require.Equal(t, loop, s.FindContinueTarget(""))
}

func TestCallstackPopPast(t *testing.T) {
	s := NewCallstack()
	a := &ExecutionContext{Kind: KindProgram, Env: NewEnvironment(nil)}
	b := &ExecutionContext{Kind: KindWhile, Env: NewEnvironment(a.Env)}
	c := &ExecutionContext{Kind: KindBlock, Env: NewEnvironment(b.Env)}
	s.Push(a)
	s.Push(b)
	s.Push(c)

	require.NoError(t, s.PopPast(b))
	require.Equal(t, a, s.Top())
	require.False(t, s.Contains(b))
	require.False(t, s.Contains(c))
}

func TestCallstackPopWhileUntainted(t *testing.T) {
	s := NewCallstack()
	root := &ExecutionContext{Kind: KindProgram, Env: NewEnvironment(nil)}
	fn := &ExecutionContext{Kind: KindFuncCtx, Env: NewEnvironment(root.Env)}
	cond := &ExecutionContext{Kind: KindIf, Env: NewEnvironment(fn.Env)}
	cond.Env.TaintParentWrites = true
	inner := &ExecutionContext{Kind: KindBlock, Env: NewEnvironment(cond.Env)}
	for _, ctx := range []*ExecutionContext{root, fn, cond, inner} {
		s.Push(ctx)
	}

	require.NoError(t, s.PopWhileUntainted(fn))
	// Unwinding stops at the tainted conditional scope, not the target.
	require.Equal(t, cond, s.Top())
}

func TestCallstackPopEmpty(t *testing.T) {
	s := NewCallstack()
	_, err := s.Pop()
	var d *Diagnostic
	require.ErrorAs(t, err, &d)
	require.Equal(t, InternalInvariant, d.Kind)
}
