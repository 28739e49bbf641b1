package eval

import "github.com/lcalzada-xor/defog/pkg/syntax"

// Carrier moves a value through the evaluator together with the
// residual fragment that reproduces it and a taint bit. Untainted
// carriers are authoritative on Value; tainted carriers are
// authoritative on Node. A carrier with neither is ill-formed.
//
// Carriers are replaced, not mutated: updating a binding swaps the
// entry in its owning environment record. Array elements are the one
// exception, since each slot is itself a carrier.
type Carrier struct {
	Value    Value
	HasValue bool
	Node     syntax.Expression
	Tainted  bool
}

// FromValue builds an untainted carrier around a concrete value.
func FromValue(v Value) *Carrier {
	return &Carrier{Value: v, HasValue: true}
}

// UndefinedCarrier is an untainted undefined.
func UndefinedCarrier() *Carrier { return FromValue(Undefined()) }

// TaintedRef builds a tainted reference-form carrier for name.
func TaintedRef(name string) *Carrier {
	return &Carrier{Node: &syntax.Identifier{Name: name}, Tainted: true}
}

// TaintedNode builds a tainted carrier around a residual fragment.
func TaintedNode(node syntax.Expression) *Carrier {
	return &Carrier{Node: node, Tainted: true}
}

// Repr returns the residual fragment for the carrier: the recorded node
// when present, otherwise the lifted literal form of the value. This is
// the sole way a carrier becomes output tree.
func (c *Carrier) Repr() (syntax.Expression, error) {
	if c.Node != nil {
		return c.Node, nil
	}
	if !c.HasValue {
		return nil, internalInvariant("carrier with neither value nor node")
	}
	return Lift(c.Value)
}

// withRef returns a copy of the carrier whose node is a reference to
// name, so callers see "identifier X" rather than X's stored residual.
func (c *Carrier) withRef(name string) *Carrier {
	return &Carrier{
		Value:    c.Value,
		HasValue: c.HasValue,
		Node:     &syntax.Identifier{Name: name},
		Tainted:  c.Tainted,
	}
}
