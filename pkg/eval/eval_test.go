package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/defog/pkg/printer"
	"github.com/lcalzada-xor/defog/pkg/syntax"
)

func ident(name string) *syntax.Identifier      { return &syntax.Identifier{Name: name} }
func num(f float64) *syntax.NumericLiteral      { return &syntax.NumericLiteral{Value: f} }
func str(s string) *syntax.StringLiteral        { return &syntax.StringLiteral{Value: s} }
func boolean(b bool) *syntax.BooleanLiteral     { return &syntax.BooleanLiteral{Value: b} }
func exprStmt(e syntax.Expression) syntax.Statement {
	return &syntax.ExpressionStatement{Expression: e}
}

func binary(l syntax.Expression, op string, r syntax.Expression) *syntax.BinaryExpression {
	return &syntax.BinaryExpression{Operator: op, Left: l, Right: r}
}

func logical(l syntax.Expression, op string, r syntax.Expression) *syntax.LogicalExpression {
	return &syntax.LogicalExpression{Operator: op, Left: l, Right: r}
}

func assign(target syntax.Expression, op string, value syntax.Expression) *syntax.AssignmentExpression {
	return &syntax.AssignmentExpression{Operator: op, Left: target, Right: value}
}

func varDecl(name string, init syntax.Expression) *syntax.VariableDeclaration {
	return &syntax.VariableDeclaration{
		Kind: "var",
		Declarations: []*syntax.VariableDeclarator{
			{ID: ident(name), Init: init},
		},
	}
}

func member(obj syntax.Expression, index float64) *syntax.MemberExpression {
	return &syntax.MemberExpression{Object: obj, Property: num(index), Computed: true}
}

func block(stmts ...syntax.Statement) *syntax.BlockStatement {
	return &syntax.BlockStatement{Body: stmts}
}

func program(stmts ...syntax.Statement) *syntax.Program {
	return &syntax.Program{Body: stmts}
}

// reduce runs a program with the given tainted globals and renders the
// residual for assertion.
func reduce(t *testing.T, prog *syntax.Program, globals ...string) (string, []syntax.Statement) {
	t.Helper()
	ev := New(Limits{}, nil)
	ev.TaintGlobals(globals...)
	res, err := ev.Run(prog)
	require.NoError(t, err)
	return printer.Print(res), res
}

func TestStraightLineFolding(t *testing.T) {
	out, _ := reduce(t, program(
		varDecl("a", binary(num(1), "+", num(2))),
		exprStmt(ident("a")),
	))
	require.Equal(t, "var a = 3;\n3;\n", out)
}

func TestTaintedIfKeepsBranchAndTaintsVariable(t *testing.T) {
	out, _ := reduce(t, program(
		varDecl("a", num(1)),
		&syntax.IfStatement{
			Test:       ident("t"),
			Consequent: block(exprStmt(assign(ident("a"), "=", num(2)))),
		},
		exprStmt(ident("a")),
	), "t")
	require.Equal(t, "var a = 1;\nif (t) {\n  a = 2;\n}\na;\n", out)
}

func TestUntaintedIfDropsDeadBranch(t *testing.T) {
	out, _ := reduce(t, program(
		&syntax.IfStatement{
			Test:       boolean(false),
			Consequent: block(exprStmt(num(1))),
			Alternate:  block(exprStmt(num(2))),
		},
	))
	require.Equal(t, "{\n  2;\n}\n", out)
}

func TestFunctionSimplificationAndCallWrapping(t *testing.T) {
	fn := &syntax.FunctionDeclaration{
		ID:     ident("f"),
		Params: []syntax.Expression{ident("x")},
		Body: block(
			&syntax.ReturnStatement{Argument: binary(ident("x"), "+", num(1))},
		),
	}
	out, _ := reduce(t, program(
		fn,
		exprStmt(&syntax.CallExpression{Callee: ident("f"), Arguments: []syntax.Expression{num(3)}}),
	))
	require.Equal(t, "function f(x) {\n  return x + 1;\n}\n(f(3), 4);\n", out)
}

func TestCallPreservedExactlyOnce(t *testing.T) {
	fn := &syntax.FunctionDeclaration{
		ID:     ident("f"),
		Params: nil,
		Body:   block(&syntax.ReturnStatement{Argument: num(7)}),
	}
	out, _ := reduce(t, program(
		fn,
		varDecl("r", &syntax.CallExpression{Callee: ident("f")}),
		exprStmt(ident("r")),
	))
	require.Equal(t, "function f() {\n  return 7;\n}\nvar r = (f(), 7);\n7;\n", out)
}

func TestTaintedWhileReachesFixpoint(t *testing.T) {
	loop := &syntax.WhileStatement{
		Test: ident("t"),
		Body: block(exprStmt(assign(ident("x"), "=", num(1)))),
	}
	out, res := reduce(t, program(loop), "t")
	require.Equal(t, "while (t) {\n  x = 1;\n}\n", out)

	// Idempotence: simplifying the residual again yields an equivalent
	// tree.
	ev := New(Limits{}, nil)
	ev.TaintGlobals("t")
	again, err := ev.Run(&syntax.Program{Body: res})
	require.NoError(t, err)
	require.True(t, syntax.EquivalentStatements(res, again))
}

func TestConcreteLoopUnrolls(t *testing.T) {
	// var i = 0; var s = 0; while (i < 2) { s = s + i; i = i + 1; } s;
	loop := &syntax.WhileStatement{
		Test: binary(ident("i"), "<", num(2)),
		Body: block(
			exprStmt(assign(ident("s"), "=", binary(ident("s"), "+", ident("i")))),
			exprStmt(assign(ident("i"), "=", binary(ident("i"), "+", num(1)))),
		),
	}
	out, _ := reduce(t, program(
		varDecl("i", num(0)),
		varDecl("s", num(0)),
		loop,
		exprStmt(ident("s")),
	))
	require.Contains(t, out, "var i = 0;")
	require.Contains(t, out, "var s = 0;")
	// The final read folds to the concrete sum.
	require.Contains(t, out, "\n1;\n")
}

func TestArrayPartialTaint(t *testing.T) {
	out, _ := reduce(t, program(
		varDecl("a", &syntax.ArrayExpression{Elements: []syntax.Expression{num(10), num(20), num(30)}}),
		&syntax.IfStatement{
			Test:       ident("t"),
			Consequent: block(exprStmt(assign(member(ident("a"), 0), "+=", num(5)))),
		},
		exprStmt(member(ident("a"), 0)),
		exprStmt(member(ident("a"), 1)),
	), "t")
	require.Equal(t, "var a = [10, 20, 30];\nif (t) {\n  a[0] += 5;\n}\na[0];\n20;\n", out)
}

func TestTryCatchRunsConcretelyOnFailure(t *testing.T) {
	tryStmt := &syntax.TryStatement{
		Block: block(exprStmt(&syntax.MemberExpression{
			Object:   ident("definitely"),
			Property: ident("fails"),
		})),
		Handler: &syntax.CatchClause{
			Param: ident("e"),
			Body:  block(exprStmt(assign(ident("y"), "=", num(1)))),
		},
	}
	out, _ := reduce(t, program(tryStmt, exprStmt(ident("y"))))
	require.Equal(t, "try {\n  definitely.fails;\n} catch (e) {\n  y = 1;\n}\n1;\n", out)
}

func TestTryCatchSimplifiedWhenNeverExecuted(t *testing.T) {
	tryStmt := &syntax.TryStatement{
		Block: block(exprStmt(assign(ident("y"), "=", num(1)))),
		Handler: &syntax.CatchClause{
			Param: ident("e"),
			Body:  block(exprStmt(assign(ident("y"), "=", num(2)))),
		},
	}
	out, _ := reduce(t, program(tryStmt, exprStmt(ident("y"))))
	// The catch body survives in residual form; the read of y stays
	// tainted because the handler could have reassigned it.
	require.Contains(t, out, "try {")
	require.Contains(t, out, "y = 2;")
	require.Contains(t, out, "\ny;\n")
}

func TestShortCircuitBeatsTaint(t *testing.T) {
	out, _ := reduce(t, program(
		exprStmt(logical(boolean(false), "&&", ident("t"))),
		exprStmt(logical(boolean(true), "||", ident("t"))),
	), "t")
	require.Equal(t, "false;\ntrue;\n", out)
}

func TestTaintedLogicalEmitsResidual(t *testing.T) {
	out, _ := reduce(t, program(
		exprStmt(logical(ident("t"), "&&", num(1))),
	), "t")
	require.Equal(t, "t && 1;\n", out)
}

func TestTaintedConditionalLeaksNamesOnce(t *testing.T) {
	cond := &syntax.ConditionalExpression{
		Test:       ident("t"),
		Consequent: assign(ident("z"), "=", num(1)),
		Alternate:  assign(ident("z"), "=", num(2)),
	}
	out, _ := reduce(t, program(
		exprStmt(cond),
		exprStmt(ident("z")),
	), "t")
	require.Equal(t, "t ? z = 1 : z = 2;\nz;\n", out)
}

func TestVoidYieldsUndefinedEvenUnderTaint(t *testing.T) {
	out, _ := reduce(t, program(
		exprStmt(&syntax.UnaryExpression{Operator: "void", Prefix: true, Argument: ident("t")}),
	), "t")
	require.Equal(t, "undefined;\n", out)
}

func TestThrowIsCatchable(t *testing.T) {
	tryStmt := &syntax.TryStatement{
		Block: block(exprStmt(&syntax.UnaryExpression{
			Operator: "throw", Prefix: true, Argument: str("boom"),
		})),
		Handler: &syntax.CatchClause{
			Param: ident("e"),
			Body:  block(exprStmt(assign(ident("msg"), "=", ident("e")))),
		},
	}
	out, _ := reduce(t, program(tryStmt, exprStmt(ident("msg"))))
	require.Contains(t, out, "\"boom\";\n")
}

func TestUnresolvedReferenceIsFatalOutsideTry(t *testing.T) {
	ev := New(Limits{}, nil)
	_, err := ev.Run(program(exprStmt(ident("nowhere"))))
	require.Error(t, err)
	var d *Diagnostic
	require.ErrorAs(t, err, &d)
	require.Equal(t, ReferenceUnresolved, d.Kind)
}

func TestInternalInvariantEscapesTry(t *testing.T) {
	tryStmt := &syntax.TryStatement{
		Block: block(&syntax.ReturnStatement{}),
		Handler: &syntax.CatchClause{
			Param: ident("e"),
			Body:  block(),
		},
	}
	ev := New(Limits{}, nil)
	_, err := ev.Run(program(tryStmt))
	require.Error(t, err)
	var d *Diagnostic
	require.ErrorAs(t, err, &d)
	require.Equal(t, InternalInvariant, d.Kind)
}

func TestLetDeclarationRejected(t *testing.T) {
	ev := New(Limits{}, nil)
	_, err := ev.Run(program(&syntax.VariableDeclaration{
		Kind:         "let",
		Declarations: []*syntax.VariableDeclarator{{ID: ident("x")}},
	}))
	var d *Diagnostic
	require.ErrorAs(t, err, &d)
	require.Equal(t, NotImplemented, d.Kind)
}

func TestGeneratorRejected(t *testing.T) {
	ev := New(Limits{}, nil)
	_, err := ev.Run(program(&syntax.FunctionDeclaration{
		ID:        ident("g"),
		Body:      block(),
		Generator: true,
	}))
	var d *Diagnostic
	require.ErrorAs(t, err, &d)
	require.Equal(t, NotImplemented, d.Kind)
}

func TestUndefinedIdentifierReads(t *testing.T) {
	out, _ := reduce(t, program(exprStmt(ident("undefined"))))
	require.Equal(t, "undefined;\n", out)
}

func TestOutOfBoundsIndexYieldsUndefined(t *testing.T) {
	out, _ := reduce(t, program(
		varDecl("a", &syntax.ArrayExpression{Elements: []syntax.Expression{num(1)}}),
		exprStmt(member(ident("a"), 5)),
	))
	require.Equal(t, "var a = [1];\nundefined;\n", out)
}

func TestOptionalMemberShortCircuits(t *testing.T) {
	out, _ := reduce(t, program(
		varDecl("o", &syntax.NullLiteral{}),
		exprStmt(&syntax.OptionalMemberExpression{Object: ident("o"), Property: ident("p")}),
	))
	require.Equal(t, "var o = null;\nundefined;\n", out)
}

func TestSequenceKeepsAllFragments(t *testing.T) {
	out, _ := reduce(t, program(
		exprStmt(&syntax.SequenceExpression{Expressions: []syntax.Expression{
			assign(ident("q"), "=", num(1)),
			binary(num(2), "+", num(3)),
		}}),
		exprStmt(ident("q")),
	))
	require.Equal(t, "(q = 1, 5);\n1;\n", out)
}

func TestBreakInsideConcreteLoop(t *testing.T) {
	// var i = 0; while (true) { i = i + 1; if (i > 2) { break; } } i;
	loop := &syntax.WhileStatement{
		Test: boolean(true),
		Body: block(
			exprStmt(assign(ident("i"), "=", binary(ident("i"), "+", num(1)))),
			&syntax.IfStatement{
				Test:       binary(ident("i"), ">", num(2)),
				Consequent: block(&syntax.BreakStatement{}),
			},
		),
	}
	out, _ := reduce(t, program(varDecl("i", num(0)), loop, exprStmt(ident("i"))))
	require.Contains(t, out, "\n3;\n")
}

func TestTaintedReturnMarksFunctionEnvironment(t *testing.T) {
	// function f(x) { if (x) { return 1; } return 2; } While the body is
	// simplified in isolation x is tainted, so the first return is
	// conditional: it marks the function environment instead of
	// unwinding, and the second return stays in the residual. The call
	// itself runs with a concrete x and folds to 2.
	fn := &syntax.FunctionDeclaration{
		ID:     ident("f"),
		Params: []syntax.Expression{ident("x")},
		Body: block(
			&syntax.IfStatement{
				Test:       ident("x"),
				Consequent: block(&syntax.ReturnStatement{Argument: num(1)}),
			},
			&syntax.ReturnStatement{Argument: num(2)},
		),
	}
	out, _ := reduce(t, program(
		fn,
		exprStmt(&syntax.CallExpression{Callee: ident("f"), Arguments: []syntax.Expression{num(0)}}),
	))
	require.Contains(t, out, "function f(x)")
	require.Contains(t, out, "  if (x) {\n    return 1;\n  }\n  return 2;\n}\n")
	// Concrete falsy argument folds the call to its second return.
	require.Contains(t, out, "(f(0), 2);\n")
}

func TestBigIntArithmetic(t *testing.T) {
	out, _ := reduce(t, program(
		varDecl("b", binary(&syntax.BigIntLiteral{Value: "9007199254740993"}, "+", &syntax.BigIntLiteral{Value: "1"})),
		exprStmt(ident("b")),
	))
	require.Equal(t, "var b = 9007199254740994n;\n9007199254740994n;\n", out)
}

func TestLabeledBreak(t *testing.T) {
	// outer: while (true) { break outer; } 1;
	loop := &syntax.LabeledStatement{
		Label: ident("outer"),
		Body: &syntax.WhileStatement{
			Test: boolean(true),
			Body: block(&syntax.BreakStatement{Label: ident("outer")}),
		},
	}
	out, _ := reduce(t, program(loop, exprStmt(num(1))))
	require.Equal(t, "1;\n", out)
}

func TestForLoopConcrete(t *testing.T) {
	// for (var i = 0; i < 3; i = i + 1) { s = s + 2; } with var s = 0
	loop := &syntax.ForStatement{
		Init: varDecl("i", num(0)),
		Test: binary(ident("i"), "<", num(3)),
		Update: assign(ident("i"), "=",
			binary(ident("i"), "+", num(1))),
		Body: block(exprStmt(assign(ident("s"), "=", binary(ident("s"), "+", num(2))))),
	}
	out, _ := reduce(t, program(varDecl("s", num(0)), loop, exprStmt(ident("s"))))
	require.Contains(t, out, "\n6;\n")
}

func TestTaintedForEmitsResidualLoop(t *testing.T) {
	loop := &syntax.ForStatement{
		Init:   varDecl("i", num(0)),
		Test:   binary(ident("i"), "<", ident("t")),
		Update: assign(ident("i"), "=", binary(ident("i"), "+", num(1))),
		Body:   block(exprStmt(assign(ident("s"), "=", num(1)))),
	}
	out, _ := reduce(t, program(loop), "t")
	require.Contains(t, out, "var i = 0;")
	require.Contains(t, out, "for (; i < t; i = i + 1) {")
	require.Contains(t, out, "s = 1;")
}
