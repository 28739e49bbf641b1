package eval

import (
	"go.uber.org/zap"

	"github.com/lcalzada-xor/defog/pkg/syntax"
)

// buildClosure constructs the callable handle for a function literal
// and simplifies its body in isolation: a sandbox environment with no
// parent chain tolerates unresolved references and binds every
// parameter (and arguments) as a tainted reference, so the residual
// body keeps its free variables while everything computable folds.
func (ev *Evaluator) buildClosure(id *syntax.Identifier, params []syntax.Expression, body *syntax.BlockStatement, generator, async bool) (*Closure, error) {
	if generator {
		return nil, notImplemented("generator function")
	}
	if async {
		return nil, notImplemented("async function")
	}
	names := make([]string, len(params))
	for i, p := range params {
		pid, ok := p.(*syntax.Identifier)
		if !ok {
			return nil, notImplemented("parameter pattern")
		}
		names[i] = pid.Name
	}
	closure := &Closure{Params: names, Body: body}
	if id != nil {
		closure.Name = id.Name
	}

	sandbox := NewEnvironment(nil)
	sandbox.IgnoreReferenceExc = true
	for _, name := range names {
		sandbox.DeclareTainted(name)
	}
	sandbox.DeclareTainted("arguments")
	ctx := &ExecutionContext{Env: sandbox, Kind: KindFuncCtx}
	ev.stack.Push(ctx)
	simplified, err := ev.evalStmtList(body.Body)
	ev.popIfPresent(ctx)
	if err != nil {
		return nil, err
	}

	outParams := make([]syntax.Expression, len(names))
	for i, name := range names {
		outParams[i] = &syntax.Identifier{Name: name}
	}
	closure.Simplified = &syntax.FunctionExpression{
		ID:     id,
		Params: outParams,
		Body:   syntax.Block(simplified),
	}
	return closure, nil
}

// evalFunctionDeclaration builds the closure, binds the name in the
// enclosing environment and emits the simplified declaration.
func (ev *Evaluator) evalFunctionDeclaration(n *syntax.FunctionDeclaration) ([]syntax.Statement, error) {
	if n.ID == nil {
		return nil, notImplemented("anonymous function declaration")
	}
	closure, err := ev.buildClosure(n.ID, n.Params, n.Body, n.Generator, n.Async)
	if err != nil {
		return nil, err
	}
	ev.env().Declare(n.ID.Name)
	ev.env().Assign(n.ID.Name, FromValue(Function(closure)))
	decl := &syntax.FunctionDeclaration{
		ID:     n.ID,
		Params: closure.Simplified.Params,
		Body:   closure.Simplified.Body,
	}
	return []syntax.Statement{decl}, nil
}

func (ev *Evaluator) evalFunctionExpression(n *syntax.FunctionExpression) (*Carrier, error) {
	closure, err := ev.buildClosure(n.ID, n.Params, n.Body, n.Generator, n.Async)
	if err != nil {
		return nil, err
	}
	return &Carrier{
		Value:    Function(closure),
		HasValue: true,
		Node:     closure.Simplified,
	}, nil
}

// evalCall evaluates the callee and arguments, then invokes the
// closure with the caller's environment as lexical parent. A concrete
// return value is made observable downstream by wrapping the residual
// as (simplified_call, literal); a tainted return keeps just the call.
func (ev *Evaluator) evalCall(n *syntax.CallExpression) (*Carrier, error) {
	calleeC, err := ev.evalExpr(n.Callee)
	if err != nil {
		return nil, err
	}
	args := make([]*Carrier, len(n.Arguments))
	argNodes := make([]syntax.Expression, len(n.Arguments))
	for i, a := range n.Arguments {
		c, aerr := ev.evalExpr(a)
		if aerr != nil {
			return nil, aerr
		}
		args[i] = c
		argNodes[i], aerr = c.Repr()
		if aerr != nil {
			return nil, aerr
		}
	}
	calleeNode, err := calleeC.Repr()
	if err != nil {
		return nil, err
	}
	callNode := &syntax.CallExpression{Callee: calleeNode, Arguments: argNodes}
	if calleeC.Tainted {
		return TaintedNode(callNode), nil
	}
	if calleeC.Value.Kind != KindFunction {
		return nil, typeError("%s is not a function", calleeC.Value.Kind)
	}
	ret, taintedExit, err := ev.invoke(calleeC.Value.Fn, args)
	if err != nil {
		return nil, err
	}
	if ret.Tainted || taintedExit {
		return TaintedNode(callNode), nil
	}
	lifted, err := Lift(ret.Value)
	if err != nil {
		return nil, err
	}
	return &Carrier{
		Value:    ret.Value,
		HasValue: true,
		Node:     &syntax.SequenceExpression{Expressions: []syntax.Expression{callNode, lifted}},
	}, nil
}

// invoke runs a closure body concretely in a function context whose
// environment chains to the caller's scope. The body's residual is
// discarded; only its side effects and the return carrier matter, the
// output carries the separately simplified body instead.
func (ev *Evaluator) invoke(fn *Closure, args []*Carrier) (*Carrier, bool, error) {
	if ev.callDepth >= ev.limits.MaxCallDepth {
		return nil, false, rangeError("maximum call depth exceeded")
	}
	env := NewEnvironment(ev.env())
	ctx := &ExecutionContext{Env: env, Kind: KindFuncCtx}
	for i, name := range fn.Params {
		if i < len(args) {
			env.Bind(name, args[i])
		} else {
			env.Bind(name, UndefinedCarrier())
		}
	}
	env.Bind("arguments", TaintedRef("arguments"))
	ev.stack.Push(ctx)
	ev.callDepth++
	_, err := ev.evalStmtList(fn.Body.Body)
	ev.callDepth--
	ev.popIfPresent(ctx)
	if err != nil {
		return nil, false, err
	}
	ret := ctx.RetVal
	if ret == nil {
		ret = UndefinedCarrier()
	}
	taintedExit := ctx.Env.TaintParentWrites
	if taintedExit {
		ev.log.Debug("call exited through a tainted scope",
			zap.String("function", fn.Name))
	}
	return ret, taintedExit, nil
}
