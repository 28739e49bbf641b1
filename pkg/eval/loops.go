package eval

import (
	"go.uber.org/zap"

	"github.com/lcalzada-xor/defog/pkg/syntax"
)

// Loops run in two modes. The concrete pass actually iterates,
// unrolling each iteration's residual, and stops the moment the test
// taints, the loop environment taints (an ambiguous control inside the
// body) or the iteration cap trips. An ambiguous loop is then rebuilt
// from scratch: the unrolled prefix is discarded and the body and test
// are simplified to a fixed point in a parent-write-tainting,
// reference-tolerant scope, so the single residual loop reproduces
// every iteration at runtime.

func (ev *Evaluator) evalWhile(n *syntax.WhileStatement) ([]syntax.Statement, error) {
	iterations, ambiguous, done, err := ev.concreteLoop(KindWhile, n.Test, n.Body, nil, false)
	if err != nil {
		return nil, err
	}
	if done {
		return iterations, nil
	}
	if !ambiguous {
		if len(iterations) == 0 {
			return nil, nil
		}
		return []syntax.Statement{syntax.Block(iterations)}, nil
	}
	testNode, _, body, err := ev.simplifyAmbiguousLoop(KindWhile, n.Test, n.Body, nil, false)
	if err != nil {
		return nil, err
	}
	return []syntax.Statement{&syntax.WhileStatement{
		Test: testNode,
		Body: syntax.Block(body),
	}}, nil
}

func (ev *Evaluator) evalDoWhile(n *syntax.DoWhileStatement) ([]syntax.Statement, error) {
	iterations, ambiguous, done, err := ev.concreteLoop(KindDoWhile, n.Test, n.Body, nil, true)
	if err != nil {
		return nil, err
	}
	if done {
		return iterations, nil
	}
	if !ambiguous {
		if len(iterations) == 0 {
			return nil, nil
		}
		return []syntax.Statement{syntax.Block(iterations)}, nil
	}
	testNode, _, body, err := ev.simplifyAmbiguousLoop(KindDoWhile, n.Test, n.Body, nil, true)
	if err != nil {
		return nil, err
	}
	return []syntax.Statement{&syntax.DoWhileStatement{
		Body: syntax.Block(body),
		Test: testNode,
	}}, nil
}

func (ev *Evaluator) evalFor(n *syntax.ForStatement) ([]syntax.Statement, error) {
	// The init runs once in the enclosing scope so its variables leak
	// outward; its residual leads the produced statements.
	initStmts, err := ev.evalForInit(n.Init)
	if err != nil {
		return nil, err
	}
	iterations, ambiguous, done, err := ev.concreteLoop(KindFor, n.Test, n.Body, n.Update, false)
	if err != nil {
		return nil, err
	}
	if done {
		return append(initStmts, iterations...), nil
	}
	if !ambiguous {
		out := append(initStmts, iterations...)
		if len(out) == 0 {
			return nil, nil
		}
		return []syntax.Statement{syntax.Block(out)}, nil
	}
	testNode, updateNode, body, err := ev.simplifyAmbiguousLoop(KindFor, n.Test, n.Body, n.Update, false)
	if err != nil {
		return nil, err
	}
	residual := &syntax.ForStatement{
		Test:   testNode,
		Update: updateNode,
		Body:   syntax.Block(body),
	}
	return append(initStmts, residual), nil
}

func (ev *Evaluator) evalForInit(init syntax.Node) ([]syntax.Statement, error) {
	switch init := init.(type) {
	case nil:
		return nil, nil
	case *syntax.VariableDeclaration:
		return ev.evalStmt(init)
	case syntax.Expression:
		return ev.evalExpressionStatement(&syntax.ExpressionStatement{Expression: init})
	}
	return nil, notImplemented("for-loop initializer %T", init)
}

// concreteLoop runs iterations for real. It reports the unrolled
// residuals, whether the loop turned ambiguous, and whether control
// already left the loop (a concrete break or an unwind past it), in
// which case the unrolled residuals are final.
func (ev *Evaluator) concreteLoop(kind ContextKind, test syntax.Expression, body syntax.Statement, update syntax.Expression, bodyFirst bool) ([]syntax.Statement, bool, bool, error) {
	env := NewEnvironment(ev.env())
	ctx := &ExecutionContext{Env: env, Kind: kind}
	ev.stack.Push(ctx)
	var iterations []syntax.Statement
	runTest := func() (bool, bool, error) {
		if test == nil {
			return true, false, nil
		}
		t, err := ev.evalExpr(test)
		if err != nil {
			return false, false, err
		}
		if t.Tainted {
			return false, true, nil
		}
		return truthy(t.Value), false, nil
	}
	for iter := 0; ; iter++ {
		if iter >= ev.limits.MaxLoopIterations {
			ev.log.Debug("concrete loop hit the iteration cap",
				zap.Int("iterations", iter))
			ev.popIfPresent(ctx)
			return nil, true, false, nil
		}
		if !bodyFirst || iter > 0 {
			ok, tainted, err := runTest()
			if err != nil {
				ev.popIfPresent(ctx)
				return nil, false, false, err
			}
			if tainted {
				ev.popIfPresent(ctx)
				return nil, true, false, nil
			}
			if !ok {
				break
			}
		}
		res, err := ev.evalStmt(body)
		if err != nil {
			ev.popIfPresent(ctx)
			return nil, false, false, err
		}
		iterations = append(iterations, res...)
		if !ev.stack.Contains(ctx) {
			// A concrete break consumed the loop, or a return unwound
			// past it; either way iteration is over.
			return iterations, false, true, nil
		}
		ctx.Continued = false
		if env.TaintParentWrites {
			ev.popIfPresent(ctx)
			return nil, true, false, nil
		}
		if bodyFirst {
			ok, tainted, err := runTest()
			if err != nil {
				ev.popIfPresent(ctx)
				return nil, false, false, err
			}
			if tainted {
				ev.popIfPresent(ctx)
				return nil, true, false, nil
			}
			if !ok {
				break
			}
		}
		if update != nil {
			if _, err := ev.evalExpr(update); err != nil {
				ev.popIfPresent(ctx)
				return nil, false, false, err
			}
		}
	}
	ev.popIfPresent(ctx)
	return iterations, false, false, nil
}

// simplifyAmbiguousLoop rebuilds a loop whose iteration count is
// unknown. The body, test and update are re-simplified until two
// successive passes agree under tree equivalence, clearing the loop's
// local record between passes so stale concrete values cannot poison
// the fixed point.
func (ev *Evaluator) simplifyAmbiguousLoop(kind ContextKind, test syntax.Expression, body syntax.Statement, update syntax.Expression, bodyFirst bool) (syntax.Expression, syntax.Expression, []syntax.Statement, error) {
	parent := ev.env()
	env := NewEnvironment(parent)
	env.TaintParentWrites = true
	env.IgnoreReferenceExc = true
	ctx := &ExecutionContext{Env: env, Kind: kind}
	ev.stack.Push(ctx)

	var testNode, updateNode syntax.Expression
	var bodyRes []syntax.Statement
	var prevTest, prevUpdate syntax.Expression
	var prevBody []syntax.Statement
	converged := false
	for pass := 0; pass < ev.limits.MaxFixpointPasses; pass++ {
		env.Clear()
		var err error
		evalParts := func() error {
			if test != nil {
				t, terr := ev.evalExpr(test)
				if terr != nil {
					return terr
				}
				testNode, terr = t.Repr()
				if terr != nil {
					return terr
				}
			}
			return nil
		}
		evalBody := func() error {
			var berr error
			if block, ok := body.(*syntax.BlockStatement); ok {
				bodyRes, berr = ev.evalStmtList(block.Body)
			} else {
				bodyRes, berr = ev.evalStmt(body)
			}
			return berr
		}
		if bodyFirst {
			err = evalBody()
			if err == nil {
				err = evalParts()
			}
		} else {
			err = evalParts()
			if err == nil {
				err = evalBody()
			}
		}
		if err == nil && update != nil {
			u, uerr := ev.evalExpr(update)
			if uerr != nil {
				err = uerr
			} else {
				updateNode, err = u.Repr()
			}
		}
		if err != nil {
			ev.popIfPresent(ctx)
			return nil, nil, nil, err
		}
		if pass > 0 &&
			syntax.Equivalent(testNode, prevTest) &&
			syntax.Equivalent(updateNode, prevUpdate) &&
			syntax.EquivalentStatements(bodyRes, prevBody) {
			converged = true
			break
		}
		prevTest, prevUpdate, prevBody = testNode, updateNode, bodyRes
	}
	if !converged {
		ev.log.Warn("ambiguous loop did not reach a fixed point",
			zap.Int("passes", ev.limits.MaxFixpointPasses))
	}
	ev.popIfPresent(ctx)
	leakDeclarations(env, parent)
	return testNode, updateNode, bodyRes, nil
}
