package syntax

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEquivalentIgnoresMemberForm(t *testing.T) {
	dot := &MemberExpression{
		Object:   &Identifier{Name: "a"},
		Property: &Identifier{Name: "b"},
	}
	computed := &MemberExpression{
		Object:   &Identifier{Name: "a"},
		Property: &StringLiteral{Value: "b"},
		Computed: true,
	}
	require.True(t, Equivalent(dot, computed))

	nonIdent := &MemberExpression{
		Object:   &Identifier{Name: "a"},
		Property: &StringLiteral{Value: "b c"},
		Computed: true,
	}
	require.False(t, Equivalent(dot, nonIdent))
}

func TestEquivalentDeepStructures(t *testing.T) {
	mk := func() Statement {
		return &IfStatement{
			Test: &BinaryExpression{Operator: "<", Left: &Identifier{Name: "i"}, Right: &NumericLiteral{Value: 3}},
			Consequent: &BlockStatement{Body: []Statement{
				&ExpressionStatement{Expression: &AssignmentExpression{
					Operator: "=",
					Left:     &Identifier{Name: "x"},
					Right:    &NumericLiteral{Value: 1},
				}},
			}},
		}
	}
	require.True(t, Equivalent(mk(), mk()))
}

func TestEquivalentDistinguishesOperators(t *testing.T) {
	a := &BinaryExpression{Operator: "+", Left: &NumericLiteral{Value: 1}, Right: &NumericLiteral{Value: 2}}
	b := &BinaryExpression{Operator: "-", Left: &NumericLiteral{Value: 1}, Right: &NumericLiteral{Value: 2}}
	require.False(t, Equivalent(a, b))
}

func TestEquivalentNils(t *testing.T) {
	require.True(t, Equivalent(nil, nil))
	require.False(t, Equivalent(&NullLiteral{}, nil))
}

func TestEquivalentStatementsLength(t *testing.T) {
	a := []Statement{&EmptyStatement{}}
	require.False(t, EquivalentStatements(a, nil))
	require.True(t, EquivalentStatements(a, []Statement{&EmptyStatement{}}))
}

func TestIsIdentifierName(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"x", true},
		{"_x$1", true},
		{"1x", false},
		{"", false},
		{"a b", false},
		{"for", false},
		{"length", true},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, IsIdentifierName(tt.in), "IsIdentifierName(%q)", tt.in)
	}
}
