package eval

import (
	"go.uber.org/zap"

	"github.com/lcalzada-xor/defog/pkg/syntax"
)

// Limits bounds the concrete and fixed-point execution phases so a
// hostile input cannot spin the evaluator forever.
type Limits struct {
	// MaxLoopIterations caps a concrete loop run; past it the loop is
	// treated as ambiguous and simplified instead.
	MaxLoopIterations int
	// MaxFixpointPasses caps ambiguous-loop simplification; past it the
	// latest residual is emitted.
	MaxFixpointPasses int
	// MaxCallDepth caps closure recursion; past it the evaluator raises
	// a catchable range error, like the source language's engines do.
	MaxCallDepth int
}

// DefaultLimits returns the limits used when a caller passes the zero
// value.
func DefaultLimits() Limits {
	return Limits{
		MaxLoopIterations: 10000,
		MaxFixpointPasses: 32,
		MaxCallDepth:      512,
	}
}

func (l Limits) orDefaults() Limits {
	d := DefaultLimits()
	if l.MaxLoopIterations <= 0 {
		l.MaxLoopIterations = d.MaxLoopIterations
	}
	if l.MaxFixpointPasses <= 0 {
		l.MaxFixpointPasses = d.MaxFixpointPasses
	}
	if l.MaxCallDepth <= 0 {
		l.MaxCallDepth = d.MaxCallDepth
	}
	return l
}

// Evaluator is the recursive partial evaluator. It is single-threaded
// and synchronous: one callstack, one output, no concurrent calls into
// Run.
type Evaluator struct {
	stack     *Callstack
	program   *ExecutionContext
	limits    Limits
	log       *zap.Logger
	callDepth int
}

// New builds an evaluator with a fresh program context.
func New(limits Limits, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	ev := &Evaluator{
		stack:  NewCallstack(),
		limits: limits.orDefaults(),
		log:    log,
	}
	ev.program = &ExecutionContext{Env: NewEnvironment(nil), Kind: KindProgram}
	ev.stack.Push(ev.program)
	return ev
}

// TaintGlobals pre-declares ambient names (host globals the input is
// expected to touch) as tainted references in the program scope.
func (ev *Evaluator) TaintGlobals(names ...string) {
	for _, name := range names {
		ev.program.Env.DeclareTainted(name)
	}
}

// Run evaluates a program and returns the residual top-level statement
// list. On a fatal diagnostic the statements reduced so far are
// returned alongside the error.
func (ev *Evaluator) Run(prog *syntax.Program) ([]syntax.Statement, error) {
	var out []syntax.Statement
	for _, stmt := range prog.Body {
		res, err := ev.evalStmt(stmt)
		if err != nil {
			return out, err
		}
		out = append(out, res...)
		if ev.stack.Top() != ev.program {
			return out, internalInvariant("top-level statement unwound the program context")
		}
	}
	return out, nil
}

// env returns the current context's environment.
func (ev *Evaluator) env() *Environment {
	top := ev.stack.Top()
	if top == nil {
		return ev.program.Env
	}
	return top.Env
}

// popIfPresent unwinds through ctx when a non-local exit has not
// already removed it.
func (ev *Evaluator) popIfPresent(ctx *ExecutionContext) {
	if ev.stack.Contains(ctx) {
		_ = ev.stack.PopPast(ctx)
	}
}

// evalStmt dispatches on statement shape and returns the residual
// statements the construct reduces to.
func (ev *Evaluator) evalStmt(stmt syntax.Statement) ([]syntax.Statement, error) {
	switch n := stmt.(type) {
	case *syntax.EmptyStatement:
		return nil, nil
	case *syntax.ExpressionStatement:
		return ev.evalExpressionStatement(n)
	case *syntax.VariableDeclaration:
		return ev.evalVariableDeclaration(n)
	case *syntax.BlockStatement:
		res, err := ev.evalStmtList(n.Body)
		if err != nil {
			return nil, err
		}
		if len(res) == 0 {
			return nil, nil
		}
		return []syntax.Statement{syntax.Block(res)}, nil
	case *syntax.IfStatement:
		return ev.evalIf(n)
	case *syntax.WhileStatement:
		return ev.evalWhile(n)
	case *syntax.DoWhileStatement:
		return ev.evalDoWhile(n)
	case *syntax.ForStatement:
		return ev.evalFor(n)
	case *syntax.FunctionDeclaration:
		return ev.evalFunctionDeclaration(n)
	case *syntax.ReturnStatement:
		return ev.evalReturn(n)
	case *syntax.TryStatement:
		return ev.evalTry(n)
	case *syntax.LabeledStatement:
		return ev.evalLabeled(n)
	case *syntax.BreakStatement:
		return ev.evalBreak(n)
	case *syntax.ContinueStatement:
		return ev.evalContinue(n)
	}
	return nil, notImplemented("statement %T", stmt)
}

// evalStmtList evaluates a statement list in the current context,
// collecting non-empty residuals. It stops the moment the callstack top
// ceases to be the caller's context, which means a return, break or
// label jumped past this list. A failing child decorates the error with
// the collected prefix, the faulting original statement and the
// unreached remainder, for try recovery.
func (ev *Evaluator) evalStmtList(stmts []syntax.Statement) ([]syntax.Statement, error) {
	self := ev.stack.Top()
	collected := make([]syntax.Statement, 0, len(stmts))
	for i, s := range stmts {
		res, err := ev.evalStmt(s)
		if err != nil {
			state := make([]syntax.Statement, 0, len(collected)+1+len(stmts)-i-1)
			state = append(state, collected...)
			state = append(state, s)
			state = append(state, stmts[i+1:]...)
			return collected, withErrorState(err, state)
		}
		collected = append(collected, res...)
		if ev.stack.Top() != self {
			break
		}
		if self != nil && self.Continued {
			break
		}
	}
	return collected, nil
}

func (ev *Evaluator) evalExpressionStatement(n *syntax.ExpressionStatement) ([]syntax.Statement, error) {
	c, err := ev.evalExpr(n.Expression)
	if err != nil {
		return nil, err
	}
	node, err := c.Repr()
	if err != nil {
		return nil, err
	}
	return []syntax.Statement{&syntax.ExpressionStatement{Expression: node}}, nil
}

func (ev *Evaluator) evalVariableDeclaration(n *syntax.VariableDeclaration) ([]syntax.Statement, error) {
	if n.Kind != "var" {
		return nil, notImplemented("%s declaration", n.Kind)
	}
	decls := make([]*syntax.VariableDeclarator, 0, len(n.Declarations))
	for _, d := range n.Declarations {
		id, ok := d.ID.(*syntax.Identifier)
		if !ok {
			return nil, notImplemented("destructuring declarator target")
		}
		ev.env().Declare(id.Name)
		if d.Init == nil {
			decls = append(decls, &syntax.VariableDeclarator{ID: &syntax.Identifier{Name: id.Name}})
			continue
		}
		c, err := ev.evalExpr(d.Init)
		if err != nil {
			return nil, err
		}
		node, err := c.Repr()
		if err != nil {
			return nil, err
		}
		if c.Tainted {
			ev.env().Assign(id.Name, TaintedNode(node))
		} else {
			ev.env().Assign(id.Name, &Carrier{Value: c.Value, HasValue: true})
		}
		decls = append(decls, &syntax.VariableDeclarator{ID: &syntax.Identifier{Name: id.Name}, Init: node})
	}
	return []syntax.Statement{&syntax.VariableDeclaration{Kind: "var", Declarations: decls}}, nil
}

// wrapBranch shapes a residual statement list after the original
// branch: blocks stay blocks, single statements stay bare.
func wrapBranch(orig syntax.Statement, list []syntax.Statement) syntax.Statement {
	if _, ok := orig.(*syntax.BlockStatement); ok {
		return syntax.Block(list)
	}
	switch len(list) {
	case 0:
		return syntax.Block(nil)
	case 1:
		return list[0]
	default:
		return syntax.Block(list)
	}
}
