package eval

import "github.com/lcalzada-xor/defog/pkg/syntax"

// Environment is a scope record with a parent link. The three gate
// flags control how mutations and reads cross the chain:
//
//   - TaintParentWrites: a write reaching a parent scope stores a
//     tainted reference, never a concrete value.
//   - TaintParentReads: a read resolving in a non-self scope returns a
//     fresh tainted reference, never the stored carrier.
//   - IgnoreReferenceExc: an unresolved read implicitly declares the
//     name locally as tainted instead of failing.
type Environment struct {
	record map[string]*Carrier
	parent *Environment

	TaintParentWrites  bool
	TaintParentReads   bool
	IgnoreReferenceExc bool
}

// NewEnvironment creates a scope record linked to parent (nil for the
// root).
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{record: make(map[string]*Carrier), parent: parent}
}

// Parent returns the enclosing scope, or nil at the root.
func (e *Environment) Parent() *Environment { return e.parent }

// Declare idempotently inserts name as untainted undefined. Existing
// entries are tolerated, the obfuscated source model permits
// redeclaration.
func (e *Environment) Declare(name string) {
	if _, ok := e.record[name]; !ok {
		e.record[name] = UndefinedCarrier()
	}
}

// DeclareTainted inserts name as a tainted reference, replacing any
// existing entry.
func (e *Environment) DeclareTainted(name string) *Carrier {
	c := TaintedRef(name)
	e.record[name] = c
	return c
}

// Bind installs a carrier directly in the local record, shadowing any
// outer binding. Used for parameters and the caught error value.
func (e *Environment) Bind(name string, c *Carrier) {
	e.record[name] = c
}

// Has reports whether name is bound in this scope only.
func (e *Environment) Has(name string) bool {
	_, ok := e.record[name]
	return ok
}

// Names returns the names bound in this scope only.
func (e *Environment) Names() []string {
	out := make([]string, 0, len(e.record))
	for name := range e.record {
		out = append(out, name)
	}
	return out
}

// Clear drops every local binding. Used between loop simplification
// passes so stale concrete values do not poison the fixed point.
func (e *Environment) Clear() {
	e.record = make(map[string]*Carrier)
}

// owner walks the chain to the scope binding name.
func (e *Environment) owner(name string) *Environment {
	for s := e; s != nil; s = s.parent {
		if _, ok := s.record[name]; ok {
			return s
		}
	}
	return nil
}

// root returns the outermost scope.
func (e *Environment) root() *Environment {
	s := e
	for s.parent != nil {
		s = s.parent
	}
	return s
}

// taintedReadPath reports whether any scope from e (inclusive) up to
// owner (exclusive) taints parent reads.
func (e *Environment) taintedReadPath(owner *Environment) bool {
	for s := e; s != nil && s != owner; s = s.parent {
		if s.TaintParentReads {
			return true
		}
	}
	return false
}

// IsTaintedEnv reports whether any scope between e (inclusive) and
// limit (exclusive, or the root when nil) taints parent writes.
func (e *Environment) IsTaintedEnv(limit *Environment) bool {
	for s := e; s != nil && s != limit; s = s.parent {
		if s.TaintParentWrites {
			return true
		}
	}
	return false
}

// Resolve walks the chain for name. A hit in self is returned as-is; a
// hit through a read-tainting scope becomes a fresh tainted reference;
// any other ancestor hit is returned with its node normalized to a
// reference so callers see the identifier rather than the stored
// residual. Unresolved names fail with ReferenceUnresolved unless
// IgnoreReferenceExc, which implicitly declares them tainted.
func (e *Environment) Resolve(name string) (*Carrier, error) {
	if c, ok := e.record[name]; ok {
		return c, nil
	}
	for s := e.parent; s != nil; s = s.parent {
		c, ok := s.record[name]
		if !ok {
			continue
		}
		if e.taintedReadPath(s) {
			return TaintedRef(name), nil
		}
		return c.withRef(name), nil
	}
	if e.IgnoreReferenceExc {
		return e.DeclareTainted(name), nil
	}
	return nil, referenceUnresolved("%s is not defined", name)
}

// Assign stores a carrier under name in its owning scope. A write that
// crosses a parent-write-tainting boundary degrades to a tainted
// reference so no concrete post-conditional value ever reaches the
// parent. Unbound names bind at the root.
func (e *Environment) Assign(name string, c *Carrier) {
	owner := e.owner(name)
	if owner == nil {
		owner = e.root()
	}
	if owner != e && e.IsTaintedEnv(owner) {
		owner.record[name] = TaintedRef(name)
		return
	}
	owner.record[name] = c
}

// SetTaint flips the taint bit on the resolved entry without altering
// value or node. Tainting an entry with no node gives it a reference
// node so the carrier stays well-formed.
func (e *Environment) SetTaint(name string, tainted bool) {
	owner := e.owner(name)
	if owner == nil {
		return
	}
	c := owner.record[name]
	next := &Carrier{Value: c.Value, HasValue: c.HasValue, Node: c.Node, Tainted: tainted}
	if tainted && next.Node == nil {
		next.Node = &syntax.Identifier{Name: name}
	}
	owner.record[name] = next
}

// AssignMember writes a carrier at key inside the array bound to
// objName. Policy:
//
//	(a) tainted object entry: no-op;
//	(b) tainted key: no-op on the value, the caller taints the path;
//	(c) write crossing a parent-write-tainting boundary: the element
//	    becomes a tainted reference and the object entry degrades to a
//	    reference-form tainted carrier, keeping its value internally so
//	    iteration still works;
//	(d) otherwise a plain indexed store.
func (e *Environment) AssignMember(objName string, key *Carrier, c *Carrier, residual syntax.Expression) {
	owner := e.owner(objName)
	if owner == nil {
		return
	}
	entry := owner.record[objName]
	if entry.Tainted {
		return
	}
	if key.Tainted {
		return
	}
	arr := arrayOf(entry)
	if arr == nil {
		e.SetTaint(objName, true)
		return
	}
	idx, ok := elementIndex(key)
	if !ok {
		e.SetTaint(objName, true)
		return
	}
	growTo(arr, idx)
	if owner != e && e.IsTaintedEnv(owner) {
		ref := residual
		if ref == nil {
			ref = memberNode(objName, key)
		}
		arr.Elems[idx] = TaintedNode(ref)
		// The object entry degrades to reference-only form: the value
		// stays internally so untainted slots still read concretely,
		// but the residual shows the bare reference.
		owner.record[objName] = &Carrier{
			Value:    entry.Value,
			HasValue: entry.HasValue,
			Node:     &syntax.Identifier{Name: objName},
		}
		return
	}
	arr.Elems[idx] = c
}

// AssignNestedMember walks a member path rooted at objName and stores a
// carrier at its leaf. A tainted step taints the deepest reachable
// sub-object in place and returns; the final step obeys the same
// parent-write rules as AssignMember.
func (e *Environment) AssignNestedMember(objName string, path []*Carrier, c *Carrier, residual syntax.Expression) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		e.AssignMember(objName, path[0], c, residual)
		return
	}
	owner := e.owner(objName)
	if owner == nil {
		return
	}
	entry := owner.record[objName]
	if entry.Tainted {
		return
	}
	current := entry
	for i := 0; i < len(path)-1; i++ {
		step := path[i]
		arr := arrayOf(current)
		if arr == nil {
			return
		}
		if step.Tainted {
			taintInPlace(current, objName)
			return
		}
		idx, ok := elementIndex(step)
		if !ok || idx >= len(arr.Elems) || arr.Elems[idx] == nil {
			return
		}
		current = arr.Elems[idx]
	}
	last := path[len(path)-1]
	if current.Tainted || last.Tainted {
		taintInPlace(current, objName)
		return
	}
	arr := arrayOf(current)
	if arr == nil {
		taintInPlace(current, objName)
		return
	}
	idx, ok := elementIndex(last)
	if !ok {
		taintInPlace(current, objName)
		return
	}
	growTo(arr, idx)
	if owner != e && e.IsTaintedEnv(owner) {
		ref := residual
		if ref == nil {
			ref = &syntax.Identifier{Name: objName}
		}
		arr.Elems[idx] = TaintedNode(ref)
		owner.record[objName] = &Carrier{
			Value:    entry.Value,
			HasValue: entry.HasValue,
			Node:     &syntax.Identifier{Name: objName},
		}
		return
	}
	arr.Elems[idx] = c
}

// FlattenChain snapshots the whole chain into one map, inner scopes
// shadowing outer ones.
func (e *Environment) FlattenChain() map[string]*Carrier {
	out := make(map[string]*Carrier)
	var walk func(s *Environment)
	walk = func(s *Environment) {
		if s == nil {
			return
		}
		walk(s.parent)
		for name, c := range s.record {
			out[name] = c
		}
	}
	walk(e)
	return out
}

// taintInPlace flips a sub-object carrier to tainted, keeping its value
// so iteration over already-known elements still works.
func taintInPlace(c *Carrier, objName string) {
	c.Tainted = true
	if c.Node == nil {
		c.Node = &syntax.Identifier{Name: objName}
	}
}

func arrayOf(c *Carrier) *ArrayObject {
	if c == nil || !c.HasValue || c.Value.Kind != KindArray {
		return nil
	}
	return c.Value.Arr
}

func growTo(arr *ArrayObject, idx int) {
	for len(arr.Elems) <= idx {
		arr.Elems = append(arr.Elems, UndefinedCarrier())
	}
}

// elementIndex converts an untainted key carrier to an array slot
// index, honoring the string/number index equivalence of the source
// language.
func elementIndex(key *Carrier) (int, bool) {
	if !key.HasValue {
		return 0, false
	}
	switch key.Value.Kind {
	case KindNumber:
		n := key.Value.Num
		if n != float64(int(n)) || n < 0 {
			return 0, false
		}
		return int(n), true
	case KindString:
		n, err := canonicalIndex(key.Value.Str)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func memberNode(objName string, key *Carrier) syntax.Expression {
	node, err := key.Repr()
	if err != nil {
		node = &syntax.Identifier{Name: "undefined"}
	}
	return &syntax.MemberExpression{
		Object:   &syntax.Identifier{Name: objName},
		Property: node,
		Computed: true,
	}
}
