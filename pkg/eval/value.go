// Package eval implements the taint-propagating partial evaluator. It
// walks a syntax tree, folds every statically determinable value and
// rewrites everything else into a minimal residual form, tracking a
// taint bit through a scoped environment chain and a callstack.
package eval

import (
	"math/big"

	"github.com/lcalzada-xor/defog/pkg/syntax"
)

// Kind discriminates the concrete value payload.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindBigInt
	KindString
	KindRegex
	KindArray
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindBigInt:
		return "bigint"
	case KindString:
		return "string"
	case KindRegex:
		return "regex"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	}
	return "invalid"
}

// ArrayObject holds array elements by slot. It is shared by reference so
// aliasing assignments observe each other's writes, and slots hold
// carriers so elements keep their own taint.
type ArrayObject struct {
	Elems []*Carrier
}

// Value is the tagged union behind an untainted carrier.
type Value struct {
	Kind    Kind
	Bool    bool
	Num     float64
	Big     *big.Int
	Str     string
	Pattern string
	Flags   string
	Arr     *ArrayObject
	Fn      *Closure
}

// Undefined is the undefined value.
func Undefined() Value { return Value{Kind: KindUndefined} }

// Null is the null value.
func Null() Value { return Value{Kind: KindNull} }

// Boolean wraps a bool.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Number wraps a float64.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// BigInt wraps an arbitrary-precision integer.
func BigInt(i *big.Int) Value { return Value{Kind: KindBigInt, Big: i} }

// String wraps a string.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Regex wraps a pattern/flags pair.
func Regex(pattern, flags string) Value {
	return Value{Kind: KindRegex, Pattern: pattern, Flags: flags}
}

// Array wraps an element slice in a fresh shared array object.
func Array(elems []*Carrier) Value {
	return Value{Kind: KindArray, Arr: &ArrayObject{Elems: elems}}
}

// Function wraps a closure handle.
func Function(fn *Closure) Value { return Value{Kind: KindFunction, Fn: fn} }

// IsNullish reports null or undefined.
func (v Value) IsNullish() bool {
	return v.Kind == KindUndefined || v.Kind == KindNull
}

// Closure is the callable handle built for a function literal. The
// evaluator threads itself explicitly at call time; the handle keeps no
// interpreter back-pointer.
type Closure struct {
	Name   string
	Params []string
	Body   *syntax.BlockStatement

	// Simplified is the isolated residual form of the function, built
	// once at declaration time with free variables preserved.
	Simplified *syntax.FunctionExpression
}
