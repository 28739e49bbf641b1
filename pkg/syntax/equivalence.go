package syntax

import (
	"github.com/google/go-cmp/cmp"
)

// Equivalent reports whether two nodes are structurally equal up to
// residual-form noise: a computed member access with a string key that
// is a valid identifier name compares equal to the dot form.
func Equivalent(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return cmp.Equal(canon(a), canon(b))
}

// EquivalentStatements compares two statement lists pairwise.
func EquivalentStatements(a, b []Statement) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equivalent(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Diff renders a human-readable structural diff, for test output.
func Diff(a, b Node) string {
	return cmp.Diff(canon(a), canon(b))
}

func canonExpr(e Expression) Expression {
	if e == nil {
		return nil
	}
	return canon(e).(Expression)
}

func canonStmt(s Statement) Statement {
	if s == nil {
		return nil
	}
	return canon(s).(Statement)
}

func canonStmts(list []Statement) []Statement {
	if list == nil {
		return nil
	}
	out := make([]Statement, len(list))
	for i, s := range list {
		out[i] = canonStmt(s)
	}
	return out
}

func canonExprs(list []Expression) []Expression {
	if list == nil {
		return nil
	}
	out := make([]Expression, len(list))
	for i, e := range list {
		out[i] = canonExpr(e)
	}
	return out
}

func canonBlock(b *BlockStatement) *BlockStatement {
	if b == nil {
		return nil
	}
	return &BlockStatement{Body: canonStmts(b.Body)}
}

// canonMemberKey collapses a computed access with an identifier-shaped
// string key to the dot form.
func canonMemberKey(property Expression, computed bool) (Expression, bool) {
	if computed {
		if s, ok := property.(*StringLiteral); ok && IsIdentifierName(s.Value) {
			return &Identifier{Name: s.Value}, false
		}
	}
	return canonExpr(property), computed
}

func canon(n Node) Node {
	switch n := n.(type) {
	case *Program:
		return &Program{Body: canonStmts(n.Body)}
	case *ExpressionStatement:
		return &ExpressionStatement{Expression: canonExpr(n.Expression)}
	case *BlockStatement:
		return canonBlock(n)
	case *EmptyStatement:
		return &EmptyStatement{}
	case *VariableDeclaration:
		decls := make([]*VariableDeclarator, len(n.Declarations))
		for i, d := range n.Declarations {
			decls[i] = &VariableDeclarator{ID: canonExpr(d.ID), Init: canonExpr(d.Init)}
		}
		return &VariableDeclaration{Kind: n.Kind, Declarations: decls}
	case *VariableDeclarator:
		return &VariableDeclarator{ID: canonExpr(n.ID), Init: canonExpr(n.Init)}
	case *Identifier:
		return &Identifier{Name: n.Name}
	case *StringLiteral:
		return &StringLiteral{Value: n.Value}
	case *NumericLiteral:
		return &NumericLiteral{Value: n.Value}
	case *BooleanLiteral:
		return &BooleanLiteral{Value: n.Value}
	case *NullLiteral:
		return &NullLiteral{}
	case *RegExpLiteral:
		return &RegExpLiteral{Pattern: n.Pattern, Flags: n.Flags}
	case *BigIntLiteral:
		return &BigIntLiteral{Value: n.Value}
	case *BinaryExpression:
		return &BinaryExpression{Operator: n.Operator, Left: canonExpr(n.Left), Right: canonExpr(n.Right)}
	case *LogicalExpression:
		return &LogicalExpression{Operator: n.Operator, Left: canonExpr(n.Left), Right: canonExpr(n.Right)}
	case *UnaryExpression:
		return &UnaryExpression{Operator: n.Operator, Prefix: n.Prefix, Argument: canonExpr(n.Argument)}
	case *UpdateExpression:
		return &UpdateExpression{Operator: n.Operator, Prefix: n.Prefix, Argument: canonExpr(n.Argument)}
	case *SequenceExpression:
		return &SequenceExpression{Expressions: canonExprs(n.Expressions)}
	case *AssignmentExpression:
		return &AssignmentExpression{Operator: n.Operator, Left: canonExpr(n.Left), Right: canonExpr(n.Right)}
	case *MemberExpression:
		prop, computed := canonMemberKey(n.Property, n.Computed)
		return &MemberExpression{Object: canonExpr(n.Object), Property: prop, Computed: computed}
	case *OptionalMemberExpression:
		prop, computed := canonMemberKey(n.Property, n.Computed)
		return &OptionalMemberExpression{Object: canonExpr(n.Object), Property: prop, Computed: computed}
	case *ConditionalExpression:
		return &ConditionalExpression{Test: canonExpr(n.Test), Consequent: canonExpr(n.Consequent), Alternate: canonExpr(n.Alternate)}
	case *IfStatement:
		return &IfStatement{Test: canonExpr(n.Test), Consequent: canonStmt(n.Consequent), Alternate: canonStmt(n.Alternate)}
	case *WhileStatement:
		return &WhileStatement{Test: canonExpr(n.Test), Body: canonStmt(n.Body)}
	case *DoWhileStatement:
		return &DoWhileStatement{Body: canonStmt(n.Body), Test: canonExpr(n.Test)}
	case *ForStatement:
		var init Node
		if n.Init != nil {
			init = canon(n.Init)
		}
		return &ForStatement{Init: init, Test: canonExpr(n.Test), Update: canonExpr(n.Update), Body: canonStmt(n.Body)}
	case *ArrayExpression:
		return &ArrayExpression{Elements: canonExprs(n.Elements)}
	case *FunctionDeclaration:
		return &FunctionDeclaration{ID: n.ID, Params: canonExprs(n.Params), Body: canonBlock(n.Body), Generator: n.Generator, Async: n.Async}
	case *FunctionExpression:
		return &FunctionExpression{ID: n.ID, Params: canonExprs(n.Params), Body: canonBlock(n.Body), Generator: n.Generator, Async: n.Async}
	case *CallExpression:
		return &CallExpression{Callee: canonExpr(n.Callee), Arguments: canonExprs(n.Arguments)}
	case *ReturnStatement:
		return &ReturnStatement{Argument: canonExpr(n.Argument)}
	case *TryStatement:
		out := &TryStatement{Block: canonBlock(n.Block), Finalizer: canonBlock(n.Finalizer)}
		if n.Handler != nil {
			out.Handler = &CatchClause{Param: canonExpr(n.Handler.Param), Body: canonBlock(n.Handler.Body)}
		}
		return out
	case *CatchClause:
		return &CatchClause{Param: canonExpr(n.Param), Body: canonBlock(n.Body)}
	case *LabeledStatement:
		return &LabeledStatement{Label: n.Label, Body: canonStmt(n.Body)}
	case *BreakStatement:
		return &BreakStatement{Label: n.Label}
	case *ContinueStatement:
		return &ContinueStatement{Label: n.Label}
	}
	return n
}
