package printer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/defog/pkg/syntax"
)

func TestPrintExpressionPrecedence(t *testing.T) {
	tests := []struct {
		name string
		expr syntax.Expression
		want string
	}{
		{
			"no redundant parens",
			&syntax.BinaryExpression{
				Operator: "+",
				Left:     &syntax.NumericLiteral{Value: 1},
				Right: &syntax.BinaryExpression{
					Operator: "*",
					Left:     &syntax.NumericLiteral{Value: 2},
					Right:    &syntax.NumericLiteral{Value: 3},
				},
			},
			"1 + 2 * 3",
		},
		{
			"parens around looser right operand",
			&syntax.BinaryExpression{
				Operator: "*",
				Left:     &syntax.NumericLiteral{Value: 2},
				Right: &syntax.BinaryExpression{
					Operator: "+",
					Left:     &syntax.NumericLiteral{Value: 1},
					Right:    &syntax.NumericLiteral{Value: 3},
				},
			},
			"2 * (1 + 3)",
		},
		{
			"left associativity keeps parens on right",
			&syntax.BinaryExpression{
				Operator: "-",
				Left:     &syntax.NumericLiteral{Value: 1},
				Right: &syntax.BinaryExpression{
					Operator: "-",
					Left:     &syntax.NumericLiteral{Value: 2},
					Right:    &syntax.NumericLiteral{Value: 3},
				},
			},
			"1 - (2 - 3)",
		},
		{
			"member of call",
			&syntax.MemberExpression{
				Object: &syntax.CallExpression{
					Callee: &syntax.Identifier{Name: "f"},
				},
				Property: &syntax.Identifier{Name: "p"},
			},
			"(f()).p",
		},
		{
			"computed string key",
			&syntax.MemberExpression{
				Object:   &syntax.Identifier{Name: "a"},
				Property: &syntax.StringLiteral{Value: "b c"},
				Computed: true,
			},
			`a["b c"]`,
		},
		{
			"conditional",
			&syntax.ConditionalExpression{
				Test:       &syntax.Identifier{Name: "t"},
				Consequent: &syntax.NumericLiteral{Value: 1},
				Alternate:  &syntax.NumericLiteral{Value: 2},
			},
			"t ? 1 : 2",
		},
		{
			"logical mixes need parens",
			&syntax.LogicalExpression{
				Operator: "&&",
				Left: &syntax.LogicalExpression{
					Operator: "||",
					Left:     &syntax.Identifier{Name: "a"},
					Right:    &syntax.Identifier{Name: "b"},
				},
				Right: &syntax.Identifier{Name: "c"},
			},
			"(a || b) && c",
		},
		{
			"typeof",
			&syntax.UnaryExpression{Operator: "typeof", Prefix: true, Argument: &syntax.Identifier{Name: "x"}},
			"typeof x",
		},
		{
			"negative number literal",
			&syntax.UnaryExpression{Operator: "-", Prefix: true, Argument: &syntax.NumericLiteral{Value: 5}},
			"-5",
		},
		{
			"postfix update",
			&syntax.UpdateExpression{Operator: "++", Argument: &syntax.Identifier{Name: "i"}},
			"i++",
		},
		{
			"string escaping",
			&syntax.StringLiteral{Value: "a\"b\n"},
			`"a\"b\n"`,
		},
		{
			"regex literal",
			&syntax.RegExpLiteral{Pattern: "a+", Flags: "gi"},
			"/a+/gi",
		},
		{
			"bigint literal",
			&syntax.BigIntLiteral{Value: "42"},
			"42n",
		},
		{
			"array with hole",
			&syntax.ArrayExpression{Elements: []syntax.Expression{
				&syntax.NumericLiteral{Value: 1}, nil, &syntax.NumericLiteral{Value: 3},
			}},
			"[1, , 3]",
		},
		{
			"optional member",
			&syntax.OptionalMemberExpression{
				Object:   &syntax.Identifier{Name: "o"},
				Property: &syntax.Identifier{Name: "p"},
			},
			"o?.p",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, PrintExpression(tt.expr))
		})
	}
}

func TestPrintStatements(t *testing.T) {
	stmts := []syntax.Statement{
		&syntax.VariableDeclaration{
			Kind: "var",
			Declarations: []*syntax.VariableDeclarator{
				{ID: &syntax.Identifier{Name: "a"}, Init: &syntax.NumericLiteral{Value: 3}},
			},
		},
		&syntax.WhileStatement{
			Test: &syntax.Identifier{Name: "t"},
			Body: &syntax.BlockStatement{Body: []syntax.Statement{
				&syntax.ExpressionStatement{Expression: &syntax.AssignmentExpression{
					Operator: "=",
					Left:     &syntax.Identifier{Name: "x"},
					Right:    &syntax.NumericLiteral{Value: 1},
				}},
			}},
		},
		&syntax.ReturnStatement{},
	}
	want := "var a = 3;\nwhile (t) {\n  x = 1;\n}\nreturn;\n"
	require.Equal(t, want, Print(stmts))
}

func TestPrintElseIfChain(t *testing.T) {
	chain := &syntax.IfStatement{
		Test:       &syntax.Identifier{Name: "a"},
		Consequent: &syntax.BlockStatement{Body: []syntax.Statement{&syntax.ExpressionStatement{Expression: &syntax.NumericLiteral{Value: 1}}}},
		Alternate: &syntax.IfStatement{
			Test:       &syntax.Identifier{Name: "b"},
			Consequent: &syntax.BlockStatement{Body: []syntax.Statement{&syntax.ExpressionStatement{Expression: &syntax.NumericLiteral{Value: 2}}}},
			Alternate:  &syntax.BlockStatement{Body: []syntax.Statement{&syntax.ExpressionStatement{Expression: &syntax.NumericLiteral{Value: 3}}}},
		},
	}
	want := "if (a) {\n  1;\n} else if (b) {\n  2;\n} else {\n  3;\n}\n"
	require.Equal(t, want, Print([]syntax.Statement{chain}))
}

func TestSequenceStatementParenthesized(t *testing.T) {
	stmt := &syntax.ExpressionStatement{Expression: &syntax.SequenceExpression{
		Expressions: []syntax.Expression{
			&syntax.CallExpression{Callee: &syntax.Identifier{Name: "f"}},
			&syntax.NumericLiteral{Value: 4},
		},
	}}
	require.Equal(t, "(f(), 4);\n", Print([]syntax.Statement{stmt}))
}

func TestTryCatchFinally(t *testing.T) {
	stmt := &syntax.TryStatement{
		Block: &syntax.BlockStatement{Body: []syntax.Statement{
			&syntax.ExpressionStatement{Expression: &syntax.Identifier{Name: "x"}},
		}},
		Handler: &syntax.CatchClause{
			Param: &syntax.Identifier{Name: "e"},
			Body:  &syntax.BlockStatement{},
		},
		Finalizer: &syntax.BlockStatement{Body: []syntax.Statement{
			&syntax.ExpressionStatement{Expression: &syntax.NumericLiteral{Value: 1}},
		}},
	}
	want := "try {\n  x;\n} catch (e) {\n} finally {\n  1;\n}\n"
	require.Equal(t, want, Print([]syntax.Statement{stmt}))
}
