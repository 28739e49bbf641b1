package eval

import (
	"errors"

	"github.com/lcalzada-xor/defog/pkg/syntax"
)

// evalIf folds an untainted test down to the chosen branch and rewrites
// a tainted test into a residual conditional whose branches are
// simplified under ambiguous flow.
func (ev *Evaluator) evalIf(n *syntax.IfStatement) ([]syntax.Statement, error) {
	t, err := ev.evalExpr(n.Test)
	if err != nil {
		return nil, err
	}
	if !t.Tainted {
		if truthy(t.Value) {
			return ev.evalStmt(n.Consequent)
		}
		if n.Alternate != nil {
			return ev.evalStmt(n.Alternate)
		}
		return nil, nil
	}
	res, err := ev.evalTaintedIf(n, t)
	if err != nil {
		return nil, err
	}
	return []syntax.Statement{res}, nil
}

// evalTaintedIf rebuilds an if statement whose execution is
// indeterminate. Nested else-if chains keep their structure, each
// level's test re-evaluated once under the tainted envelope.
func (ev *Evaluator) evalTaintedIf(n *syntax.IfStatement, test *Carrier) (*syntax.IfStatement, error) {
	if test == nil {
		var err error
		test, err = ev.evalExpr(n.Test)
		if err != nil {
			return nil, err
		}
	}
	testNode, err := test.Repr()
	if err != nil {
		return nil, err
	}
	cons, err := ev.evalAmbiguousStmt(KindIf, n.Consequent)
	if err != nil {
		return nil, err
	}
	out := &syntax.IfStatement{Test: testNode, Consequent: cons}
	switch alt := n.Alternate.(type) {
	case nil:
	case *syntax.IfStatement:
		nested, err := ev.evalTaintedIf(alt, nil)
		if err != nil {
			return nil, err
		}
		out.Alternate = nested
	default:
		altRes, err := ev.evalAmbiguousStmt(KindIf, alt)
		if err != nil {
			return nil, err
		}
		out.Alternate = altRes
	}
	return out, nil
}

// evalAmbiguousStmt simplifies a statement whose execution is
// indeterminate: a fresh child environment taints parent writes, and
// names declared inside leak to the parent as tainted references so
// later reads see them as unknown.
func (ev *Evaluator) evalAmbiguousStmt(kind ContextKind, stmt syntax.Statement) (syntax.Statement, error) {
	parent := ev.env()
	env := NewEnvironment(parent)
	env.TaintParentWrites = true
	ctx := &ExecutionContext{Env: env, Kind: kind}
	ev.stack.Push(ctx)
	var list []syntax.Statement
	var err error
	if block, ok := stmt.(*syntax.BlockStatement); ok {
		list, err = ev.evalStmtList(block.Body)
	} else {
		list, err = ev.evalStmt(stmt)
	}
	ev.popIfPresent(ctx)
	if err != nil {
		return nil, err
	}
	leakDeclarations(env, parent)
	return wrapBranch(stmt, list), nil
}

// leakDeclarations declares the branch-local names in the parent as
// tainted references, once per name.
func leakDeclarations(env, parent *Environment) {
	for _, name := range env.Names() {
		if !parent.Has(name) {
			parent.DeclareTainted(name)
		}
	}
}

// taintedPathTo reports whether non-local control from the current
// scope to target crosses (or lands on) a parent-write-tainting scope,
// which makes the jump conditional.
func (ev *Evaluator) taintedPathTo(target *ExecutionContext) bool {
	return ev.env().IsTaintedEnv(target.Env) || target.Env.TaintParentWrites
}

func (ev *Evaluator) evalReturn(n *syntax.ReturnStatement) ([]syntax.Statement, error) {
	c := UndefinedCarrier()
	if n.Argument != nil {
		var err error
		c, err = ev.evalExpr(n.Argument)
		if err != nil {
			return nil, err
		}
	}
	fnCtx := ev.stack.FindFunction()
	if fnCtx == nil {
		return nil, internalInvariant("return outside a function context")
	}
	fnCtx.RetVal = c
	node, err := c.Repr()
	if err != nil {
		return nil, err
	}
	if !ev.taintedPathTo(fnCtx) {
		if err := ev.stack.PopPast(fnCtx); err != nil {
			return nil, err
		}
	} else {
		if err := ev.stack.PopWhileUntainted(fnCtx); err != nil {
			return nil, err
		}
		fnCtx.Env.TaintParentWrites = true
	}
	if n.Argument == nil {
		return []syntax.Statement{&syntax.ReturnStatement{}}, nil
	}
	return []syntax.Statement{&syntax.ReturnStatement{Argument: node}}, nil
}

func (ev *Evaluator) evalBreak(n *syntax.BreakStatement) ([]syntax.Statement, error) {
	label := ""
	if n.Label != nil {
		label = n.Label.Name
	}
	target := ev.stack.FindBreakTarget(label)
	if target == nil {
		if label != "" {
			return nil, referenceUnresolved("break label %s", label)
		}
		return nil, referenceUnresolved("break outside a loop")
	}
	if !ev.taintedPathTo(target) {
		if err := ev.stack.PopPast(target); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := ev.stack.PopWhileUntainted(target); err != nil {
		return nil, err
	}
	target.Env.TaintParentWrites = true
	return []syntax.Statement{&syntax.BreakStatement{Label: n.Label}}, nil
}

func (ev *Evaluator) evalContinue(n *syntax.ContinueStatement) ([]syntax.Statement, error) {
	label := ""
	if n.Label != nil {
		label = n.Label.Name
	}
	target := ev.stack.FindContinueTarget(label)
	if target == nil {
		if label != "" {
			return nil, referenceUnresolved("continue label %s", label)
		}
		return nil, referenceUnresolved("continue outside a loop")
	}
	if !ev.taintedPathTo(target) {
		if err := ev.stack.PopUntilTop(target); err != nil {
			return nil, err
		}
		target.Continued = true
		return nil, nil
	}
	if err := ev.stack.PopWhileUntainted(target); err != nil {
		return nil, err
	}
	target.Env.TaintParentWrites = true
	return []syntax.Statement{&syntax.ContinueStatement{Label: n.Label}}, nil
}

func (ev *Evaluator) evalLabeled(n *syntax.LabeledStatement) ([]syntax.Statement, error) {
	ctx := &ExecutionContext{Env: NewEnvironment(ev.env()), Kind: KindLabel, Label: n.Label.Name}
	ev.stack.Push(ctx)
	body, err := ev.evalStmt(n.Body)
	ev.popIfPresent(ctx)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	return []syntax.Statement{&syntax.LabeledStatement{
		Label: n.Label,
		Body:  wrapBranch(n.Body, body),
	}}, nil
}

func (ev *Evaluator) evalTry(n *syntax.TryStatement) ([]syntax.Statement, error) {
	blockRes, err := ev.evalStmtList(n.Block.Body)
	out := &syntax.TryStatement{}
	if err != nil {
		if !catchable(err) || n.Handler == nil {
			// For a catchable error the finalizer still runs before the
			// error propagates; an internal invariant skips it. Its
			// residual is dropped: the outer recovery keeps the whole
			// original try statement verbatim.
			if n.Finalizer != nil && catchable(err) {
				if _, ferr := ev.evalStmtList(n.Finalizer.Body); ferr != nil {
					return nil, ferr
				}
			}
			return nil, err
		}
		state, ok := errorState(err)
		if !ok {
			state = n.Block.Body
		}
		out.Block = syntax.Block(state)
		handler, herr := ev.runCatchConcretely(n.Handler, err)
		if herr != nil {
			return nil, herr
		}
		out.Handler = handler
	} else {
		out.Block = syntax.Block(blockRes)
		if n.Handler != nil {
			handler, herr := ev.simplifyCatch(n.Handler)
			if herr != nil {
				return nil, herr
			}
			out.Handler = handler
		}
	}
	if n.Finalizer != nil {
		finRes, ferr := ev.evalStmtList(n.Finalizer.Body)
		if ferr != nil {
			return nil, ferr
		}
		out.Finalizer = syntax.Block(finRes)
	}
	return []syntax.Statement{out}, nil
}

// runCatchConcretely executes a catch handler for real, binding the
// runtime error to its parameter.
func (ev *Evaluator) runCatchConcretely(handler *syntax.CatchClause, cause error) (*syntax.CatchClause, error) {
	param, err := catchParamName(handler)
	if err != nil {
		return nil, err
	}
	env := NewEnvironment(ev.env())
	ctx := &ExecutionContext{Env: env, Kind: KindCatch}
	ev.stack.Push(ctx)
	if param != "" {
		env.Bind(param, caughtPayload(cause))
	}
	body, err := ev.evalStmtList(handler.Body.Body)
	ev.popIfPresent(ctx)
	if err != nil {
		return nil, err
	}
	return &syntax.CatchClause{Param: handler.Param, Body: syntax.Block(body)}, nil
}

// simplifyCatch processes a handler that never ran: the error parameter
// binds as tainted and the body is simplified under ambiguous flow.
func (ev *Evaluator) simplifyCatch(handler *syntax.CatchClause) (*syntax.CatchClause, error) {
	param, err := catchParamName(handler)
	if err != nil {
		return nil, err
	}
	parent := ev.env()
	env := NewEnvironment(parent)
	env.TaintParentWrites = true
	env.IgnoreReferenceExc = true
	ctx := &ExecutionContext{Env: env, Kind: KindCatch}
	ev.stack.Push(ctx)
	if param != "" {
		env.DeclareTainted(param)
	}
	body, berr := ev.evalStmtList(handler.Body.Body)
	ev.popIfPresent(ctx)
	if berr != nil {
		return nil, berr
	}
	if param != "" {
		delete(env.record, param)
	}
	leakDeclarations(env, parent)
	return &syntax.CatchClause{Param: handler.Param, Body: syntax.Block(body)}, nil
}

func catchParamName(handler *syntax.CatchClause) (string, error) {
	if handler.Param == nil {
		return "", nil
	}
	id, ok := handler.Param.(*syntax.Identifier)
	if !ok {
		return "", notImplemented("catch parameter pattern")
	}
	return id.Name, nil
}

// caughtPayload converts a propagating error to the value the catch
// parameter observes. Runtime throws carry their payload; diagnostics
// surface as their message string.
func caughtPayload(err error) *Carrier {
	var t *Throw
	if errors.As(err, &t) && t.Payload != nil {
		return t.Payload
	}
	var d *Diagnostic
	if errors.As(err, &d) {
		return FromValue(String(d.Error()))
	}
	return FromValue(String(err.Error()))
}
