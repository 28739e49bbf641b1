// Package frontend parses JavaScript source with goja and converts the
// resulting tree into the evaluator's dialect. Constructs outside the
// supported subset surface as NotImplemented diagnostics naming the
// construct.
package frontend

import (
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	"github.com/lcalzada-xor/defog/pkg/eval"
	"github.com/lcalzada-xor/defog/pkg/syntax"
)

// Parse parses source text and returns the converted program.
func Parse(src string) (*syntax.Program, error) {
	prog, err := parser.ParseFile(nil, "", src, 0)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return Convert(prog)
}

// Convert maps a goja program into the evaluator's dialect.
func Convert(prog *ast.Program) (*syntax.Program, error) {
	out := &syntax.Program{}
	for _, s := range prog.Body {
		conv, err := convertStmt(s)
		if err != nil {
			return nil, err
		}
		out.Body = append(out.Body, conv)
	}
	return out, nil
}

func unsupported(format string, args ...interface{}) error {
	return &eval.Diagnostic{Kind: eval.NotImplemented, Msg: fmt.Sprintf(format, args...)}
}

func convertStmt(s ast.Statement) (syntax.Statement, error) {
	switch n := s.(type) {
	case *ast.EmptyStatement:
		return &syntax.EmptyStatement{}, nil
	case *ast.ExpressionStatement:
		e, err := convertExpr(n.Expression)
		if err != nil {
			return nil, err
		}
		return &syntax.ExpressionStatement{Expression: e}, nil
	case *ast.VariableStatement:
		return convertVarStatement(n.List)
	case *ast.LexicalDeclaration:
		return nil, unsupported("%s declaration", n.Token.String())
	case *ast.BlockStatement:
		body, err := convertStmtList(n.List)
		if err != nil {
			return nil, err
		}
		return &syntax.BlockStatement{Body: body}, nil
	case *ast.IfStatement:
		test, err := convertExpr(n.Test)
		if err != nil {
			return nil, err
		}
		cons, err := convertStmt(n.Consequent)
		if err != nil {
			return nil, err
		}
		out := &syntax.IfStatement{Test: test, Consequent: cons}
		if n.Alternate != nil {
			alt, err := convertStmt(n.Alternate)
			if err != nil {
				return nil, err
			}
			out.Alternate = alt
		}
		return out, nil
	case *ast.WhileStatement:
		test, err := convertExpr(n.Test)
		if err != nil {
			return nil, err
		}
		body, err := convertStmt(n.Body)
		if err != nil {
			return nil, err
		}
		return &syntax.WhileStatement{Test: test, Body: body}, nil
	case *ast.DoWhileStatement:
		test, err := convertExpr(n.Test)
		if err != nil {
			return nil, err
		}
		body, err := convertStmt(n.Body)
		if err != nil {
			return nil, err
		}
		return &syntax.DoWhileStatement{Body: body, Test: test}, nil
	case *ast.ForStatement:
		return convertFor(n)
	case *ast.FunctionDeclaration:
		fn, err := convertFunction(n.Function)
		if err != nil {
			return nil, err
		}
		if fn.ID == nil {
			return nil, unsupported("anonymous function declaration")
		}
		return &syntax.FunctionDeclaration{ID: fn.ID, Params: fn.Params, Body: fn.Body}, nil
	case *ast.ReturnStatement:
		out := &syntax.ReturnStatement{}
		if n.Argument != nil {
			arg, err := convertExpr(n.Argument)
			if err != nil {
				return nil, err
			}
			out.Argument = arg
		}
		return out, nil
	case *ast.ThrowStatement:
		// The dialect models throw as a unary operator.
		arg, err := convertExpr(n.Argument)
		if err != nil {
			return nil, err
		}
		return &syntax.ExpressionStatement{
			Expression: &syntax.UnaryExpression{Operator: "throw", Prefix: true, Argument: arg},
		}, nil
	case *ast.TryStatement:
		return convertTry(n)
	case *ast.LabelledStatement:
		body, err := convertStmt(n.Statement)
		if err != nil {
			return nil, err
		}
		return &syntax.LabeledStatement{
			Label: &syntax.Identifier{Name: n.Label.Name.String()},
			Body:  body,
		}, nil
	case *ast.BranchStatement:
		var label *syntax.Identifier
		if n.Label != nil {
			label = &syntax.Identifier{Name: n.Label.Name.String()}
		}
		switch n.Token.String() {
		case "break":
			return &syntax.BreakStatement{Label: label}, nil
		case "continue":
			return &syntax.ContinueStatement{Label: label}, nil
		}
		return nil, unsupported("branch statement %s", n.Token.String())
	}
	return nil, unsupported("statement %T", s)
}

func convertStmtList(list []ast.Statement) ([]syntax.Statement, error) {
	out := make([]syntax.Statement, 0, len(list))
	for _, s := range list {
		conv, err := convertStmt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}

func convertVarStatement(list []*ast.Binding) (*syntax.VariableDeclaration, error) {
	decls, err := convertBindings(list)
	if err != nil {
		return nil, err
	}
	return &syntax.VariableDeclaration{Kind: "var", Declarations: decls}, nil
}

func convertBindings(list []*ast.Binding) ([]*syntax.VariableDeclarator, error) {
	decls := make([]*syntax.VariableDeclarator, 0, len(list))
	for _, b := range list {
		id, ok := b.Target.(*ast.Identifier)
		if !ok {
			return nil, unsupported("destructuring declarator target")
		}
		d := &syntax.VariableDeclarator{ID: &syntax.Identifier{Name: id.Name.String()}}
		if b.Initializer != nil {
			init, err := convertExpr(b.Initializer)
			if err != nil {
				return nil, err
			}
			d.Init = init
		}
		decls = append(decls, d)
	}
	return decls, nil
}

func convertFor(n *ast.ForStatement) (*syntax.ForStatement, error) {
	out := &syntax.ForStatement{}
	switch init := n.Initializer.(type) {
	case nil:
	case *ast.ForLoopInitializerExpression:
		e, err := convertExpr(init.Expression)
		if err != nil {
			return nil, err
		}
		out.Init = e
	case *ast.ForLoopInitializerVarDeclList:
		decl, err := convertVarStatement(init.List)
		if err != nil {
			return nil, err
		}
		out.Init = decl
	default:
		return nil, unsupported("for-loop initializer %T", n.Initializer)
	}
	if n.Test != nil {
		test, err := convertExpr(n.Test)
		if err != nil {
			return nil, err
		}
		out.Test = test
	}
	if n.Update != nil {
		update, err := convertExpr(n.Update)
		if err != nil {
			return nil, err
		}
		out.Update = update
	}
	body, err := convertStmt(n.Body)
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

func convertTry(n *ast.TryStatement) (*syntax.TryStatement, error) {
	block, err := convertStmt(n.Body)
	if err != nil {
		return nil, err
	}
	out := &syntax.TryStatement{Block: block.(*syntax.BlockStatement)}
	if n.Catch != nil {
		body, err := convertStmt(n.Catch.Body)
		if err != nil {
			return nil, err
		}
		handler := &syntax.CatchClause{Body: body.(*syntax.BlockStatement)}
		if n.Catch.Parameter != nil {
			var pnode ast.Node = n.Catch.Parameter
			id, ok := pnode.(*ast.Identifier)
			if !ok {
				return nil, unsupported("catch parameter pattern")
			}
			handler.Param = &syntax.Identifier{Name: id.Name.String()}
		}
		out.Handler = handler
	}
	if n.Finally != nil {
		fin, err := convertStmt(n.Finally)
		if err != nil {
			return nil, err
		}
		out.Finalizer = fin.(*syntax.BlockStatement)
	}
	return out, nil
}

type convertedFunction struct {
	ID     *syntax.Identifier
	Params []syntax.Expression
	Body   *syntax.BlockStatement
}

func convertFunction(fn *ast.FunctionLiteral) (*convertedFunction, error) {
	out := &convertedFunction{}
	if fn.Name != nil {
		out.ID = &syntax.Identifier{Name: fn.Name.Name.String()}
	}
	for _, p := range fn.ParameterList.List {
		id, ok := p.Target.(*ast.Identifier)
		if !ok {
			return nil, unsupported("parameter pattern")
		}
		if p.Initializer != nil {
			return nil, unsupported("default parameter value")
		}
		out.Params = append(out.Params, &syntax.Identifier{Name: id.Name.String()})
	}
	body, err := convertStmt(fn.Body)
	if err != nil {
		return nil, err
	}
	block, ok := body.(*syntax.BlockStatement)
	if !ok {
		return nil, unsupported("non-block function body")
	}
	out.Body = block
	return out, nil
}

func convertExpr(e ast.Expression) (syntax.Expression, error) {
	switch n := e.(type) {
	case *ast.Identifier:
		return &syntax.Identifier{Name: n.Name.String()}, nil
	case *ast.NullLiteral:
		return &syntax.NullLiteral{}, nil
	case *ast.BooleanLiteral:
		return &syntax.BooleanLiteral{Value: n.Value}, nil
	case *ast.StringLiteral:
		return &syntax.StringLiteral{Value: n.Value.String()}, nil
	case *ast.NumberLiteral:
		switch v := n.Value.(type) {
		case int64:
			return &syntax.NumericLiteral{Value: float64(v)}, nil
		case float64:
			return &syntax.NumericLiteral{Value: v}, nil
		}
		return nil, unsupported("numeric literal payload %T", n.Value)
	case *ast.RegExpLiteral:
		return &syntax.RegExpLiteral{Pattern: n.Pattern, Flags: n.Flags}, nil
	case *ast.BinaryExpression:
		left, err := convertExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := convertExpr(n.Right)
		if err != nil {
			return nil, err
		}
		op := n.Operator.String()
		switch op {
		case "&&", "||", "??":
			return &syntax.LogicalExpression{Operator: op, Left: left, Right: right}, nil
		}
		return &syntax.BinaryExpression{Operator: op, Left: left, Right: right}, nil
	case *ast.UnaryExpression:
		arg, err := convertExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		op := n.Operator.String()
		if op == "++" || op == "--" {
			return &syntax.UpdateExpression{Operator: op, Prefix: !n.Postfix, Argument: arg}, nil
		}
		return &syntax.UnaryExpression{Operator: op, Prefix: true, Argument: arg}, nil
	case *ast.AssignExpression:
		left, err := convertExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := convertExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return &syntax.AssignmentExpression{
			Operator: assignOperator(n.Operator.String()),
			Left:     left,
			Right:    right,
		}, nil
	case *ast.ConditionalExpression:
		test, err := convertExpr(n.Test)
		if err != nil {
			return nil, err
		}
		cons, err := convertExpr(n.Consequent)
		if err != nil {
			return nil, err
		}
		alt, err := convertExpr(n.Alternate)
		if err != nil {
			return nil, err
		}
		return &syntax.ConditionalExpression{Test: test, Consequent: cons, Alternate: alt}, nil
	case *ast.SequenceExpression:
		exprs := make([]syntax.Expression, 0, len(n.Sequence))
		for _, sub := range n.Sequence {
			conv, err := convertExpr(sub)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, conv)
		}
		return &syntax.SequenceExpression{Expressions: exprs}, nil
	case *ast.DotExpression:
		obj, err := convertExpr(n.Left)
		if err != nil {
			return nil, err
		}
		return &syntax.MemberExpression{
			Object:   obj,
			Property: &syntax.Identifier{Name: n.Identifier.Name.String()},
		}, nil
	case *ast.BracketExpression:
		obj, err := convertExpr(n.Left)
		if err != nil {
			return nil, err
		}
		member, err := convertExpr(n.Member)
		if err != nil {
			return nil, err
		}
		return &syntax.MemberExpression{Object: obj, Property: member, Computed: true}, nil
	case *ast.ArrayLiteral:
		elems := make([]syntax.Expression, len(n.Value))
		for i, el := range n.Value {
			if el == nil {
				continue
			}
			conv, err := convertExpr(el)
			if err != nil {
				return nil, err
			}
			elems[i] = conv
		}
		return &syntax.ArrayExpression{Elements: elems}, nil
	case *ast.FunctionLiteral:
		fn, err := convertFunction(n)
		if err != nil {
			return nil, err
		}
		return &syntax.FunctionExpression{ID: fn.ID, Params: fn.Params, Body: fn.Body}, nil
	case *ast.CallExpression:
		callee, err := convertExpr(n.Callee)
		if err != nil {
			return nil, err
		}
		args := make([]syntax.Expression, 0, len(n.ArgumentList))
		for _, a := range n.ArgumentList {
			conv, err := convertExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, conv)
		}
		return &syntax.CallExpression{Callee: callee, Arguments: args}, nil
	}
	return nil, unsupported("expression %T", e)
}

// assignOperator normalizes the operator of an assignment node to its
// surface form: goja records the underlying arithmetic token for
// compound assignments.
func assignOperator(op string) string {
	if op == "=" || strings.HasSuffix(op, "=") {
		return op
	}
	return op + "="
}
