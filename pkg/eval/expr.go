package eval

import (
	"errors"
	"math"
	"math/big"

	"github.com/lcalzada-xor/defog/pkg/syntax"
)

// evalExpr dispatches on expression shape and returns the carrier for
// the computed or residual value.
func (ev *Evaluator) evalExpr(expr syntax.Expression) (*Carrier, error) {
	switch n := expr.(type) {
	case *syntax.NullLiteral:
		return FromValue(Null()), nil
	case *syntax.BooleanLiteral:
		return FromValue(Boolean(n.Value)), nil
	case *syntax.NumericLiteral:
		return FromValue(Number(n.Value)), nil
	case *syntax.StringLiteral:
		return FromValue(String(n.Value)), nil
	case *syntax.RegExpLiteral:
		return FromValue(Regex(n.Pattern, n.Flags)), nil
	case *syntax.BigIntLiteral:
		i, ok := new(big.Int).SetString(n.Value, 10)
		if !ok {
			return nil, internalInvariant("malformed bigint literal %q", n.Value)
		}
		return FromValue(BigInt(i)), nil
	case *syntax.Identifier:
		return ev.evalIdentifier(n)
	case *syntax.ArrayExpression:
		return ev.evalArray(n)
	case *syntax.BinaryExpression:
		return ev.evalBinary(n)
	case *syntax.LogicalExpression:
		return ev.evalLogical(n)
	case *syntax.UnaryExpression:
		return ev.evalUnary(n)
	case *syntax.UpdateExpression:
		return ev.evalUpdate(n)
	case *syntax.SequenceExpression:
		return ev.evalSequence(n)
	case *syntax.AssignmentExpression:
		return ev.evalAssignment(n)
	case *syntax.ConditionalExpression:
		return ev.evalConditional(n)
	case *syntax.MemberExpression:
		return ev.evalMember(n.Object, n.Property, n.Computed, false)
	case *syntax.OptionalMemberExpression:
		return ev.evalMember(n.Object, n.Property, n.Computed, true)
	case *syntax.FunctionExpression:
		return ev.evalFunctionExpression(n)
	case *syntax.CallExpression:
		return ev.evalCall(n)
	}
	return nil, notImplemented("expression %T", expr)
}

func (ev *Evaluator) evalIdentifier(n *syntax.Identifier) (*Carrier, error) {
	switch n.Name {
	case "undefined":
		return UndefinedCarrier(), nil
	case "NaN":
		return FromValue(Number(math.NaN())), nil
	case "Infinity":
		return FromValue(Number(math.Inf(1))), nil
	}
	c, err := ev.env().Resolve(n.Name)
	if err != nil {
		return nil, err
	}
	// Function values print by reference, never by their literal form.
	if c.Node == nil && c.HasValue && c.Value.Kind == KindFunction {
		return c.withRef(n.Name), nil
	}
	return c, nil
}

func (ev *Evaluator) evalArray(n *syntax.ArrayExpression) (*Carrier, error) {
	elems := make([]*Carrier, len(n.Elements))
	for i, el := range n.Elements {
		if el == nil {
			continue
		}
		c, err := ev.evalExpr(el)
		if err != nil {
			return nil, err
		}
		elems[i] = c
	}
	return FromValue(Array(elems)), nil
}

func (ev *Evaluator) evalBinary(n *syntax.BinaryExpression) (*Carrier, error) {
	if n.Operator == "|>" {
		return nil, notImplemented("pipeline operator")
	}
	l, err := ev.evalExpr(n.Left)
	if err != nil {
		return nil, err
	}
	r, err := ev.evalExpr(n.Right)
	if err != nil {
		return nil, err
	}
	residual := func() (*Carrier, error) {
		ln, err := l.Repr()
		if err != nil {
			return nil, err
		}
		rn, err := r.Repr()
		if err != nil {
			return nil, err
		}
		return TaintedNode(&syntax.BinaryExpression{Operator: n.Operator, Left: ln, Right: rn}), nil
	}
	if l.Tainted || r.Tainted {
		return residual()
	}
	v, err := binaryOp(n.Operator, l.Value, r.Value)
	if err != nil {
		if errors.Is(err, errNotStatic) {
			return residual()
		}
		return nil, err
	}
	return FromValue(v), nil
}

// evalLogical short-circuits before taint: an untainted left side that
// decides the expression wins regardless of the right side. Only an
// indeterminate outcome produces a residual, with the right side
// simplified under ambiguous flow since it may never run.
func (ev *Evaluator) evalLogical(n *syntax.LogicalExpression) (*Carrier, error) {
	l, err := ev.evalExpr(n.Left)
	if err != nil {
		return nil, err
	}
	if !l.Tainted {
		var decided bool
		switch n.Operator {
		case "&&":
			decided = !truthy(l.Value)
		case "||":
			decided = truthy(l.Value)
		case "??":
			decided = !l.Value.IsNullish()
		default:
			return nil, notImplemented("logical operator %q", n.Operator)
		}
		if decided {
			return l, nil
		}
		return ev.evalExpr(n.Right)
	}
	r, err := ev.evalAmbiguousExpr(KindConditional, n.Right)
	if err != nil {
		return nil, err
	}
	ln, err := l.Repr()
	if err != nil {
		return nil, err
	}
	rn, err := r.Repr()
	if err != nil {
		return nil, err
	}
	return TaintedNode(&syntax.LogicalExpression{Operator: n.Operator, Left: ln, Right: rn}), nil
}

// evalAmbiguousExpr evaluates an expression that may never execute at
// runtime: a fresh child environment taints parent writes and local
// declarations leak to the parent as tainted references.
func (ev *Evaluator) evalAmbiguousExpr(kind ContextKind, expr syntax.Expression) (*Carrier, error) {
	parent := ev.env()
	env := NewEnvironment(parent)
	env.TaintParentWrites = true
	ctx := &ExecutionContext{Env: env, Kind: kind}
	ev.stack.Push(ctx)
	c, err := ev.evalExpr(expr)
	ev.popIfPresent(ctx)
	if err != nil {
		return nil, err
	}
	leakDeclarations(env, parent)
	return c, nil
}

func (ev *Evaluator) evalUnary(n *syntax.UnaryExpression) (*Carrier, error) {
	c, err := ev.evalExpr(n.Argument)
	if err != nil {
		return nil, err
	}
	if n.Operator == "void" {
		// void reduces to the reserved identifier even under taint.
		return UndefinedCarrier(), nil
	}
	if c.Tainted {
		node, err := c.Repr()
		if err != nil {
			return nil, err
		}
		return TaintedNode(&syntax.UnaryExpression{Operator: n.Operator, Prefix: true, Argument: node}), nil
	}
	switch n.Operator {
	case "typeof":
		return FromValue(String(typeofString(c.Value))), nil
	case "!":
		return FromValue(Boolean(!truthy(c.Value))), nil
	case "+":
		f, err := toNumber(c.Value)
		if err != nil {
			return ev.unaryFallback(n, c, err)
		}
		return FromValue(Number(f)), nil
	case "-":
		if c.Value.Kind == KindBigInt {
			return FromValue(BigInt(new(big.Int).Neg(c.Value.Big))), nil
		}
		f, err := toNumber(c.Value)
		if err != nil {
			return ev.unaryFallback(n, c, err)
		}
		return FromValue(Number(-f)), nil
	case "~":
		if c.Value.Kind == KindBigInt {
			return FromValue(BigInt(new(big.Int).Not(c.Value.Big))), nil
		}
		f, err := toNumber(c.Value)
		if err != nil {
			return ev.unaryFallback(n, c, err)
		}
		return FromValue(Number(float64(^toInt32(f)))), nil
	case "throw":
		return nil, &Throw{Payload: c}
	}
	return nil, notImplemented("unary operator %q", n.Operator)
}

// unaryFallback turns an indeterminate coercion into a residual and
// propagates real throws.
func (ev *Evaluator) unaryFallback(n *syntax.UnaryExpression, c *Carrier, cause error) (*Carrier, error) {
	if !errors.Is(cause, errNotStatic) {
		return nil, cause
	}
	node, err := c.Repr()
	if err != nil {
		return nil, err
	}
	return TaintedNode(&syntax.UnaryExpression{Operator: n.Operator, Prefix: true, Argument: node}), nil
}

func (ev *Evaluator) evalSequence(n *syntax.SequenceExpression) (*Carrier, error) {
	nodes := make([]syntax.Expression, 0, len(n.Expressions))
	var last *Carrier
	for _, e := range n.Expressions {
		c, err := ev.evalExpr(e)
		if err != nil {
			return nil, err
		}
		node, err := c.Repr()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
		last = c
	}
	if last == nil {
		return nil, internalInvariant("empty sequence expression")
	}
	return &Carrier{
		Value:    last.Value,
		HasValue: last.HasValue,
		Node:     &syntax.SequenceExpression{Expressions: nodes},
		Tainted:  last.Tainted,
	}, nil
}

// evalConditional executes the chosen branch when the test is concrete
// and otherwise simplifies both branches under ambiguous flow.
func (ev *Evaluator) evalConditional(n *syntax.ConditionalExpression) (*Carrier, error) {
	t, err := ev.evalExpr(n.Test)
	if err != nil {
		return nil, err
	}
	if !t.Tainted {
		if truthy(t.Value) {
			return ev.evalExpr(n.Consequent)
		}
		return ev.evalExpr(n.Alternate)
	}
	cons, err := ev.evalAmbiguousExpr(KindConditional, n.Consequent)
	if err != nil {
		return nil, err
	}
	alt, err := ev.evalAmbiguousExpr(KindConditional, n.Alternate)
	if err != nil {
		return nil, err
	}
	tn, err := t.Repr()
	if err != nil {
		return nil, err
	}
	cn, err := cons.Repr()
	if err != nil {
		return nil, err
	}
	an, err := alt.Repr()
	if err != nil {
		return nil, err
	}
	return TaintedNode(&syntax.ConditionalExpression{Test: tn, Consequent: cn, Alternate: an}), nil
}

// evalMember resolves property access. Optional access short-circuits
// to undefined on a concrete nullish object.
func (ev *Evaluator) evalMember(object, property syntax.Expression, computed, optional bool) (*Carrier, error) {
	objC, err := ev.evalExpr(object)
	if err != nil {
		return nil, err
	}
	var keyC *Carrier
	if computed {
		keyC, err = ev.evalExpr(property)
		if err != nil {
			return nil, err
		}
	} else {
		id, ok := property.(*syntax.Identifier)
		if !ok {
			return nil, notImplemented("non-identifier property in dot access")
		}
		keyC = FromValue(String(id.Name))
	}
	if optional && !objC.Tainted && objC.Value.IsNullish() {
		return UndefinedCarrier(), nil
	}
	if objC.Tainted || keyC.Tainted {
		node, err := memberResidual(objC, keyC, optional)
		if err != nil {
			return nil, err
		}
		return TaintedNode(node), nil
	}
	return ev.concreteMember(objC, keyC)
}

func (ev *Evaluator) concreteMember(objC, keyC *Carrier) (*Carrier, error) {
	v := objC.Value
	switch v.Kind {
	case KindArray:
		if isLengthKey(keyC) {
			return FromValue(Number(float64(len(v.Arr.Elems)))), nil
		}
		idx, ok := elementIndex(keyC)
		if !ok {
			return UndefinedCarrier(), nil
		}
		if idx >= len(v.Arr.Elems) || v.Arr.Elems[idx] == nil {
			return UndefinedCarrier(), nil
		}
		return v.Arr.Elems[idx], nil
	case KindString:
		if isLengthKey(keyC) {
			return FromValue(Number(float64(len(v.Str)))), nil
		}
		idx, ok := elementIndex(keyC)
		if !ok {
			return UndefinedCarrier(), nil
		}
		if idx >= len(v.Str) {
			return UndefinedCarrier(), nil
		}
		return FromValue(String(v.Str[idx : idx+1])), nil
	case KindUndefined, KindNull:
		key, _ := toString(keyC.Value)
		return nil, typeError("cannot read properties of %s (reading %q)", v.Kind, key)
	}
	return UndefinedCarrier(), nil
}

func isLengthKey(keyC *Carrier) bool {
	return keyC.HasValue && keyC.Value.Kind == KindString && keyC.Value.Str == "length"
}

// memberResidual builds the residual access, preferring the dot form
// for identifier-shaped string keys.
func memberResidual(objC, keyC *Carrier, optional bool) (syntax.Expression, error) {
	objNode, err := objC.Repr()
	if err != nil {
		return nil, err
	}
	var propNode syntax.Expression
	computed := true
	if !keyC.Tainted && keyC.HasValue && keyC.Value.Kind == KindString && syntax.IsIdentifierName(keyC.Value.Str) {
		propNode = &syntax.Identifier{Name: keyC.Value.Str}
		computed = false
	} else {
		propNode, err = keyC.Repr()
		if err != nil {
			return nil, err
		}
	}
	if optional {
		return &syntax.OptionalMemberExpression{Object: objNode, Property: propNode, Computed: computed}, nil
	}
	return &syntax.MemberExpression{Object: objNode, Property: propNode, Computed: computed}, nil
}
