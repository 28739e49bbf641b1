package eval

import (
	"errors"
	"math/big"

	"github.com/lcalzada-xor/defog/pkg/syntax"
)

// memberPath is a member chain rooted at an identifier, with every key
// already evaluated so the residual reflects the simplified form
// (a[2+2][1] prints as a[4][1]).
type memberPath struct {
	rootName string
	rootC    *Carrier
	keys     []*Carrier
	// simplified is the rebuilt member expression over the evaluated
	// keys.
	simplified syntax.Expression
}

// walkMemberPath evaluates a member chain used as an assignment or
// update target. A non-identifier root has no storable location and
// returns ok=false.
func (ev *Evaluator) walkMemberPath(m *syntax.MemberExpression) (*memberPath, bool, error) {
	var parts []*syntax.MemberExpression
	obj := syntax.Expression(m)
	for {
		me, isMember := obj.(*syntax.MemberExpression)
		if !isMember {
			break
		}
		parts = append(parts, me)
		obj = me.Object
	}
	rootID, ok := obj.(*syntax.Identifier)
	if !ok {
		return nil, false, nil
	}
	rootC, err := ev.env().Resolve(rootID.Name)
	if err != nil {
		return nil, false, err
	}
	path := &memberPath{rootName: rootID.Name, rootC: rootC}
	node := syntax.Expression(&syntax.Identifier{Name: rootID.Name})
	for i := len(parts) - 1; i >= 0; i-- {
		me := parts[i]
		var keyC *Carrier
		if me.Computed {
			keyC, err = ev.evalExpr(me.Property)
			if err != nil {
				return nil, false, err
			}
		} else {
			id, isID := me.Property.(*syntax.Identifier)
			if !isID {
				return nil, false, notImplemented("non-identifier property in dot access")
			}
			keyC = FromValue(String(id.Name))
		}
		path.keys = append(path.keys, keyC)
		node, err = appendMemberKey(node, keyC)
		if err != nil {
			return nil, false, err
		}
	}
	path.simplified = node
	return path, true, nil
}

func appendMemberKey(object syntax.Expression, keyC *Carrier) (syntax.Expression, error) {
	if !keyC.Tainted && keyC.HasValue {
		switch keyC.Value.Kind {
		case KindString:
			if syntax.IsIdentifierName(keyC.Value.Str) {
				return &syntax.MemberExpression{Object: object, Property: &syntax.Identifier{Name: keyC.Value.Str}}, nil
			}
		case KindNumber:
			return syntax.IndexMember(object, keyC.Value.Num), nil
		}
	}
	keyNode, err := keyC.Repr()
	if err != nil {
		return nil, err
	}
	return &syntax.MemberExpression{Object: object, Property: keyNode, Computed: true}, nil
}

// leafCarrier fetches the stored carrier at the end of an untainted
// path, reporting whether the walk stayed inside known array values.
func leafCarrier(rootC *Carrier, keys []*Carrier) (*Carrier, bool) {
	current := rootC
	for i, key := range keys {
		arr := arrayOf(current)
		if arr == nil {
			return nil, false
		}
		idx, ok := elementIndex(key)
		if !ok {
			return nil, false
		}
		if idx >= len(arr.Elems) || arr.Elems[idx] == nil {
			if i == len(keys)-1 {
				return UndefinedCarrier(), true
			}
			return nil, false
		}
		current = arr.Elems[idx]
	}
	return current, true
}

func (ev *Evaluator) evalAssignment(n *syntax.AssignmentExpression) (*Carrier, error) {
	switch target := n.Left.(type) {
	case *syntax.Identifier:
		return ev.assignIdentifier(n, target)
	case *syntax.MemberExpression:
		return ev.assignMember(n, target)
	}
	return nil, notImplemented("assignment target %T", n.Left)
}

func (ev *Evaluator) assignIdentifier(n *syntax.AssignmentExpression, target *syntax.Identifier) (*Carrier, error) {
	name := target.Name
	var cur *Carrier
	if n.Operator == "=" {
		// A plain write may bind a previously unseen name.
		if c, err := ev.env().Resolve(name); err == nil {
			cur = c
		} else {
			var d *Diagnostic
			if !errors.As(err, &d) || d.Kind != ReferenceUnresolved {
				return nil, err
			}
		}
	} else {
		c, err := ev.env().Resolve(name)
		if err != nil {
			return nil, err
		}
		cur = c
	}
	rhs, err := ev.evalExpr(n.Right)
	if err != nil {
		return nil, err
	}
	residual := func() (*Carrier, error) {
		rn, err := rhs.Repr()
		if err != nil {
			return nil, err
		}
		node := &syntax.AssignmentExpression{
			Operator: n.Operator,
			Left:     &syntax.Identifier{Name: name},
			Right:    rn,
		}
		ev.env().Assign(name, TaintedRef(name))
		return TaintedNode(node), nil
	}
	if rhs.Tainted || (n.Operator != "=" && cur.Tainted) {
		return residual()
	}
	newVal := rhs.Value
	if n.Operator != "=" {
		v, err := binaryOp(compoundOp(n.Operator), cur.Value, rhs.Value)
		if err != nil {
			if errors.Is(err, errNotStatic) {
				return residual()
			}
			return nil, err
		}
		newVal = v
	}
	ev.env().Assign(name, FromValue(newVal))
	rn, err := rhs.Repr()
	if err != nil {
		return nil, err
	}
	return &Carrier{
		Value:    newVal,
		HasValue: true,
		Node: &syntax.AssignmentExpression{
			Operator: n.Operator,
			Left:     &syntax.Identifier{Name: name},
			Right:    rn,
		},
	}, nil
}

// assignMember implements the member-target case matrix: a tainted root
// stores nothing; a tainted key taints the deepest reachable
// sub-object; a tainted stored value or right side keeps the compound
// form and propagates taint; a fully concrete path computes and stores
// the new value.
func (ev *Evaluator) assignMember(n *syntax.AssignmentExpression, target *syntax.MemberExpression) (*Carrier, error) {
	path, ok, err := ev.walkMemberPath(target)
	if err != nil {
		return nil, err
	}
	rhs, err := ev.evalExpr(n.Right)
	if err != nil {
		return nil, err
	}
	rn, err := rhs.Repr()
	if err != nil {
		return nil, err
	}
	if !ok {
		// No storable root: keep the residual form untouched.
		return TaintedNode(&syntax.AssignmentExpression{Operator: n.Operator, Left: target, Right: rn}), nil
	}
	node := &syntax.AssignmentExpression{Operator: n.Operator, Left: path.simplified, Right: rn}
	if path.rootC.Tainted {
		return TaintedNode(node), nil
	}
	for _, key := range path.keys {
		if key.Tainted {
			ev.env().AssignNestedMember(path.rootName, path.keys, TaintedNode(node), path.simplified)
			return TaintedNode(node), nil
		}
	}
	cur, reachable := leafCarrier(path.rootC, path.keys)
	if !reachable {
		ev.env().SetTaint(path.rootName, true)
		return TaintedNode(node), nil
	}
	if cur.Tainted || rhs.Tainted {
		ev.env().AssignNestedMember(path.rootName, path.keys, TaintedNode(path.simplified), path.simplified)
		return TaintedNode(node), nil
	}
	newVal := rhs.Value
	if n.Operator != "=" {
		v, err := binaryOp(compoundOp(n.Operator), cur.Value, rhs.Value)
		if err != nil {
			if errors.Is(err, errNotStatic) {
				ev.env().AssignNestedMember(path.rootName, path.keys, TaintedNode(path.simplified), path.simplified)
				return TaintedNode(node), nil
			}
			return nil, err
		}
		newVal = v
	}
	ev.env().AssignNestedMember(path.rootName, path.keys, FromValue(newVal), path.simplified)
	return &Carrier{Value: newVal, HasValue: true, Node: node}, nil
}

// compoundOp strips the trailing "=" of a compound assignment operator.
func compoundOp(op string) string {
	return op[:len(op)-1]
}

func (ev *Evaluator) evalUpdate(n *syntax.UpdateExpression) (*Carrier, error) {
	switch target := n.Argument.(type) {
	case *syntax.Identifier:
		return ev.updateIdentifier(n, target)
	case *syntax.MemberExpression:
		return ev.updateMember(n, target)
	}
	return nil, notImplemented("update target %T", n.Argument)
}

func (ev *Evaluator) updateIdentifier(n *syntax.UpdateExpression, target *syntax.Identifier) (*Carrier, error) {
	cur, err := ev.env().Resolve(target.Name)
	if err != nil {
		return nil, err
	}
	node := &syntax.UpdateExpression{
		Operator: n.Operator,
		Prefix:   n.Prefix,
		Argument: &syntax.Identifier{Name: target.Name},
	}
	if cur.Tainted {
		return TaintedNode(node), nil
	}
	oldVal, newVal, err := stepValue(n.Operator, cur.Value)
	if err != nil {
		if errors.Is(err, errNotStatic) {
			ev.env().SetTaint(target.Name, true)
			return TaintedNode(node), nil
		}
		return nil, err
	}
	ev.env().Assign(target.Name, FromValue(newVal))
	res := &Carrier{HasValue: true, Node: node}
	if n.Prefix {
		res.Value = newVal
	} else {
		res.Value = oldVal
	}
	return res, nil
}

func (ev *Evaluator) updateMember(n *syntax.UpdateExpression, target *syntax.MemberExpression) (*Carrier, error) {
	path, ok, err := ev.walkMemberPath(target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return TaintedNode(&syntax.UpdateExpression{Operator: n.Operator, Prefix: n.Prefix, Argument: target}), nil
	}
	node := &syntax.UpdateExpression{Operator: n.Operator, Prefix: n.Prefix, Argument: path.simplified}
	keyTainted := false
	for _, key := range path.keys {
		if key.Tainted {
			keyTainted = true
			break
		}
	}
	if path.rootC.Tainted || keyTainted {
		if keyTainted && !path.rootC.Tainted {
			// The write lands at an unknown slot, so the whole object
			// becomes unknown.
			ev.env().SetTaint(path.rootName, true)
		}
		return TaintedNode(node), nil
	}
	cur, reachable := leafCarrier(path.rootC, path.keys)
	if !reachable {
		ev.env().SetTaint(path.rootName, true)
		return TaintedNode(node), nil
	}
	if cur.Tainted {
		return TaintedNode(node), nil
	}
	oldVal, newVal, err := stepValue(n.Operator, cur.Value)
	if err != nil {
		if errors.Is(err, errNotStatic) {
			ev.env().AssignNestedMember(path.rootName, path.keys, TaintedNode(path.simplified), path.simplified)
			return TaintedNode(node), nil
		}
		return nil, err
	}
	ev.env().AssignNestedMember(path.rootName, path.keys, FromValue(newVal), path.simplified)
	res := &Carrier{HasValue: true, Node: node}
	if n.Prefix {
		res.Value = newVal
	} else {
		res.Value = oldVal
	}
	return res, nil
}

// stepValue computes the pre/post pair for "++" and "--" with the
// source language's numeric coercion.
func stepValue(op string, v Value) (Value, Value, error) {
	if v.Kind == KindBigInt {
		one := big.NewInt(1)
		if op == "++" {
			return v, BigInt(new(big.Int).Add(v.Big, one)), nil
		}
		return v, BigInt(new(big.Int).Sub(v.Big, one)), nil
	}
	f, err := toNumber(v)
	if err != nil {
		return Value{}, Value{}, err
	}
	old := Number(f)
	if op == "++" {
		return old, Number(f + 1), nil
	}
	return old, Number(f - 1), nil
}
