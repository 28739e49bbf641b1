// Package printer renders a syntax tree back to JavaScript source. It
// is the output side of the pipeline: the evaluator's residual
// statements go in, formatted code comes out. Comments never survive
// the trip: the tree dialect has no comment nodes, so the frontend
// drops them when it converts the parsed source.
package printer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lcalzada-xor/defog/pkg/syntax"
)

// Print renders a statement list as a program.
func Print(stmts []syntax.Statement) string {
	p := &printer{}
	for _, s := range stmts {
		p.stmt(s)
	}
	return p.sb.String()
}

// PrintProgram renders a full program node.
func PrintProgram(prog *syntax.Program) string {
	return Print(prog.Body)
}

// PrintExpression renders a single expression.
func PrintExpression(e syntax.Expression) string {
	p := &printer{}
	p.expr(e, precSequence)
	return p.sb.String()
}

type printer struct {
	sb     strings.Builder
	indent int
}

// Operator precedence, loosest first. An operand prints parenthesized
// when its own precedence is below the context's.
const (
	precSequence = iota
	precAssign
	precConditional
	precNullish
	precLogicalOr
	precLogicalAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precExponent
	precUnary
	precPostfix
	precCall
	precMember
	precPrimary
)

func binaryPrec(op string) int {
	switch op {
	case "|":
		return precBitOr
	case "^":
		return precBitXor
	case "&":
		return precBitAnd
	case "==", "!=", "===", "!==":
		return precEquality
	case "<", ">", "<=", ">=", "in", "instanceof":
		return precRelational
	case "<<", ">>", ">>>":
		return precShift
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMultiplicative
	case "**":
		return precExponent
	}
	return precPrimary
}

func logicalPrec(op string) int {
	switch op {
	case "??":
		return precNullish
	case "||":
		return precLogicalOr
	}
	return precLogicalAnd
}

func (p *printer) line(s string) {
	p.sb.WriteString(strings.Repeat("  ", p.indent))
	p.sb.WriteString(s)
	p.sb.WriteString("\n")
}

func (p *printer) stmt(s syntax.Statement) {
	switch n := s.(type) {
	case *syntax.EmptyStatement:
		p.line(";")
	case *syntax.ExpressionStatement:
		p.line(p.exprStmtString(n.Expression) + ";")
	case *syntax.VariableDeclaration:
		p.line(p.varDeclString(n) + ";")
	case *syntax.BlockStatement:
		p.line("{")
		p.indent++
		for _, inner := range n.Body {
			p.stmt(inner)
		}
		p.indent--
		p.line("}")
	case *syntax.IfStatement:
		p.ifChain(n)
	case *syntax.WhileStatement:
		p.line("while (" + exprString(n.Test, precSequence) + ") {")
		p.blockBody(n.Body)
		p.line("}")
	case *syntax.DoWhileStatement:
		p.line("do {")
		p.blockBody(n.Body)
		p.line("} while (" + exprString(n.Test, precSequence) + ");")
	case *syntax.ForStatement:
		p.line("for (" + p.forHead(n) + ") {")
		p.blockBody(n.Body)
		p.line("}")
	case *syntax.FunctionDeclaration:
		p.line("function " + n.ID.Name + "(" + paramList(n.Params) + ") {")
		p.indent++
		for _, inner := range n.Body.Body {
			p.stmt(inner)
		}
		p.indent--
		p.line("}")
	case *syntax.ReturnStatement:
		if n.Argument == nil {
			p.line("return;")
		} else {
			p.line("return " + exprString(n.Argument, precSequence) + ";")
		}
	case *syntax.TryStatement:
		p.line("try {")
		p.indent++
		for _, inner := range n.Block.Body {
			p.stmt(inner)
		}
		p.indent--
		if n.Handler != nil {
			head := "} catch "
			if n.Handler.Param != nil {
				head += "(" + exprString(n.Handler.Param, precSequence) + ") "
			}
			p.line(head + "{")
			p.indent++
			for _, inner := range n.Handler.Body.Body {
				p.stmt(inner)
			}
			p.indent--
		}
		if n.Finalizer != nil {
			p.line("} finally {")
			p.indent++
			for _, inner := range n.Finalizer.Body {
				p.stmt(inner)
			}
			p.indent--
		}
		p.line("}")
	case *syntax.LabeledStatement:
		p.line(n.Label.Name + ":")
		p.stmt(n.Body)
	case *syntax.BreakStatement:
		if n.Label != nil {
			p.line("break " + n.Label.Name + ";")
		} else {
			p.line("break;")
		}
	case *syntax.ContinueStatement:
		if n.Label != nil {
			p.line("continue " + n.Label.Name + ";")
		} else {
			p.line("continue;")
		}
	default:
		p.line(fmt.Sprintf("/* unprintable %T */;", s))
	}
}

// ifChain renders else-if ladders flat instead of nesting blocks.
func (p *printer) ifChain(n *syntax.IfStatement) {
	p.line("if (" + exprString(n.Test, precSequence) + ") {")
	p.blockBody(n.Consequent)
	for {
		switch alt := n.Alternate.(type) {
		case nil:
			p.line("}")
			return
		case *syntax.IfStatement:
			p.line("} else if (" + exprString(alt.Test, precSequence) + ") {")
			p.blockBody(alt.Consequent)
			n = alt
		default:
			p.line("} else {")
			p.blockBody(alt)
			p.line("}")
			return
		}
	}
}

// blockBody prints a statement as a block interior: blocks splice
// their children, other statements indent one level.
func (p *printer) blockBody(s syntax.Statement) {
	p.indent++
	if block, ok := s.(*syntax.BlockStatement); ok {
		for _, inner := range block.Body {
			p.stmt(inner)
		}
	} else if s != nil {
		p.stmt(s)
	}
	p.indent--
}

func (p *printer) forHead(n *syntax.ForStatement) string {
	var head strings.Builder
	switch init := n.Init.(type) {
	case nil:
	case *syntax.VariableDeclaration:
		head.WriteString(p.varDeclString(init))
	case syntax.Expression:
		head.WriteString(exprString(init, precSequence))
	}
	head.WriteString("; ")
	if n.Test != nil {
		head.WriteString(exprString(n.Test, precSequence))
	}
	head.WriteString("; ")
	if n.Update != nil {
		head.WriteString(exprString(n.Update, precSequence))
	}
	return head.String()
}

func (p *printer) varDeclString(n *syntax.VariableDeclaration) string {
	parts := make([]string, len(n.Declarations))
	for i, d := range n.Declarations {
		s := exprString(d.ID, precAssign)
		if d.Init != nil {
			s += " = " + exprString(d.Init, precAssign)
		}
		parts[i] = s
	}
	return n.Kind + " " + strings.Join(parts, ", ")
}

// exprStmtString guards the two expression forms that would be
// misparsed at statement position.
func (p *printer) exprStmtString(e syntax.Expression) string {
	s := exprString(e, precSequence)
	switch e.(type) {
	case *syntax.FunctionExpression, *syntax.SequenceExpression:
		return "(" + s + ")"
	}
	return s
}

func (p *printer) expr(e syntax.Expression, ctx int) {
	p.sb.WriteString(exprString(e, ctx))
}

func exprString(e syntax.Expression, ctx int) string {
	prec, s := rawExpr(e)
	if prec < ctx {
		return "(" + s + ")"
	}
	return s
}

func rawExpr(e syntax.Expression) (int, string) {
	switch n := e.(type) {
	case *syntax.Identifier:
		return precPrimary, n.Name
	case *syntax.StringLiteral:
		return precPrimary, quoteString(n.Value)
	case *syntax.NumericLiteral:
		return precPrimary, formatNumber(n.Value)
	case *syntax.BooleanLiteral:
		if n.Value {
			return precPrimary, "true"
		}
		return precPrimary, "false"
	case *syntax.NullLiteral:
		return precPrimary, "null"
	case *syntax.RegExpLiteral:
		return precPrimary, "/" + n.Pattern + "/" + n.Flags
	case *syntax.BigIntLiteral:
		return precPrimary, n.Value + "n"
	case *syntax.ArrayExpression:
		parts := make([]string, len(n.Elements))
		for i, el := range n.Elements {
			if el == nil {
				continue
			}
			parts[i] = exprString(el, precAssign)
		}
		return precPrimary, "[" + strings.Join(parts, ", ") + "]"
	case *syntax.BinaryExpression:
		prec := binaryPrec(n.Operator)
		left := exprString(n.Left, prec)
		// Binary operators associate left, the right operand needs one
		// level more.
		right := exprString(n.Right, prec+1)
		return prec, left + " " + n.Operator + " " + right
	case *syntax.LogicalExpression:
		prec := logicalPrec(n.Operator)
		return prec, exprString(n.Left, prec) + " " + n.Operator + " " + exprString(n.Right, prec+1)
	case *syntax.UnaryExpression:
		arg := exprString(n.Argument, precUnary)
		switch n.Operator {
		case "typeof", "void", "throw", "delete":
			return precUnary, n.Operator + " " + arg
		}
		return precUnary, n.Operator + arg
	case *syntax.UpdateExpression:
		if n.Prefix {
			return precUnary, n.Operator + exprString(n.Argument, precUnary)
		}
		return precPostfix, exprString(n.Argument, precPostfix) + n.Operator
	case *syntax.SequenceExpression:
		parts := make([]string, len(n.Expressions))
		for i, sub := range n.Expressions {
			parts[i] = exprString(sub, precAssign)
		}
		return precSequence, strings.Join(parts, ", ")
	case *syntax.AssignmentExpression:
		return precAssign, exprString(n.Left, precCall) + " " + n.Operator + " " + exprString(n.Right, precAssign)
	case *syntax.ConditionalExpression:
		return precConditional, exprString(n.Test, precNullish) + " ? " +
			exprString(n.Consequent, precAssign) + " : " + exprString(n.Alternate, precAssign)
	case *syntax.MemberExpression:
		obj := exprString(n.Object, precMember)
		if n.Computed {
			return precMember, obj + "[" + exprString(n.Property, precSequence) + "]"
		}
		return precMember, obj + "." + exprString(n.Property, precPrimary)
	case *syntax.OptionalMemberExpression:
		obj := exprString(n.Object, precMember)
		if n.Computed {
			return precMember, obj + "?.[" + exprString(n.Property, precSequence) + "]"
		}
		return precMember, obj + "?." + exprString(n.Property, precPrimary)
	case *syntax.CallExpression:
		parts := make([]string, len(n.Arguments))
		for i, a := range n.Arguments {
			parts[i] = exprString(a, precAssign)
		}
		return precCall, exprString(n.Callee, precCall) + "(" + strings.Join(parts, ", ") + ")"
	case *syntax.FunctionExpression:
		var sb strings.Builder
		sb.WriteString("function ")
		if n.ID != nil {
			sb.WriteString(n.ID.Name)
		}
		sb.WriteString("(" + paramList(n.Params) + ") ")
		sb.WriteString(blockString(n.Body))
		return precPrimary, sb.String()
	}
	return precPrimary, fmt.Sprintf("/* unprintable %T */", e)
}

func blockString(b *syntax.BlockStatement) string {
	inner := &printer{indent: 1}
	for _, s := range b.Body {
		inner.stmt(s)
	}
	body := inner.sb.String()
	if body == "" {
		return "{}"
	}
	return "{\n" + body + "}"
}

func paramList(params []syntax.Expression) string {
	parts := make([]string, len(params))
	for i, prm := range params {
		parts[i] = exprString(prm, precAssign)
	}
	return strings.Join(parts, ", ")
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 0):
		return "Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\r':
			sb.WriteString("\\r")
		case '\t':
			sb.WriteString("\\t")
		default:
			if r < 0x20 {
				sb.WriteString(fmt.Sprintf("\\x%02x", r))
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
