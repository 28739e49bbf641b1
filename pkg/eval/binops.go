package eval

import (
	"math"
	"math/big"
)

// binaryOp computes a binary operator over two concrete operands,
// faithful to the source language: string concatenation on "+", signed
// and unsigned shifts with masked counts, number/string identity on
// "==="/"!==", and bigint arithmetic that refuses to mix with numbers.
func binaryOp(op string, l, r Value) (Value, error) {
	switch op {
	case "+":
		return addValues(l, r)
	case "-", "*", "/", "%", "**":
		return arithmetic(op, l, r)
	case "&", "|", "^", "<<", ">>", ">>>":
		return bitwise(op, l, r)
	case "==":
		eq, err := looseEquals(l, r)
		if err != nil {
			return Value{}, err
		}
		return Boolean(eq), nil
	case "!=":
		eq, err := looseEquals(l, r)
		if err != nil {
			return Value{}, err
		}
		return Boolean(!eq), nil
	case "===":
		return Boolean(strictEquals(l, r)), nil
	case "!==":
		return Boolean(!strictEquals(l, r)), nil
	case "<":
		less, undef, err := compareValues(l, r)
		if err != nil {
			return Value{}, err
		}
		return Boolean(less && !undef), nil
	case ">":
		less, undef, err := compareValues(r, l)
		if err != nil {
			return Value{}, err
		}
		return Boolean(less && !undef), nil
	case "<=":
		less, undef, err := compareValues(r, l)
		if err != nil {
			return Value{}, err
		}
		return Boolean(!less && !undef), nil
	case ">=":
		less, undef, err := compareValues(l, r)
		if err != nil {
			return Value{}, err
		}
		return Boolean(!less && !undef), nil
	case "in":
		return inOperator(l, r)
	case "instanceof":
		return instanceofOperator(l, r)
	}
	return Value{}, notImplemented("binary operator %q", op)
}

func addValues(l, r Value) (Value, error) {
	lp, err := toPrimitive(l)
	if err != nil {
		return Value{}, err
	}
	rp, err := toPrimitive(r)
	if err != nil {
		return Value{}, err
	}
	if lp.Kind == KindString || rp.Kind == KindString {
		ls, err := toString(lp)
		if err != nil {
			return Value{}, err
		}
		rs, err := toString(rp)
		if err != nil {
			return Value{}, err
		}
		return String(ls + rs), nil
	}
	if lp.Kind == KindBigInt || rp.Kind == KindBigInt {
		lb, rb, err := bigPair(lp, rp)
		if err != nil {
			return Value{}, err
		}
		return BigInt(new(big.Int).Add(lb, rb)), nil
	}
	ln, err := toNumber(lp)
	if err != nil {
		return Value{}, err
	}
	rn, err := toNumber(rp)
	if err != nil {
		return Value{}, err
	}
	return Number(ln + rn), nil
}

func arithmetic(op string, l, r Value) (Value, error) {
	lp, err := toPrimitive(l)
	if err != nil {
		return Value{}, err
	}
	rp, err := toPrimitive(r)
	if err != nil {
		return Value{}, err
	}
	if lp.Kind == KindBigInt || rp.Kind == KindBigInt {
		lb, rb, err := bigPair(lp, rp)
		if err != nil {
			return Value{}, err
		}
		return bigArithmetic(op, lb, rb)
	}
	ln, err := toNumber(lp)
	if err != nil {
		return Value{}, err
	}
	rn, err := toNumber(rp)
	if err != nil {
		return Value{}, err
	}
	switch op {
	case "-":
		return Number(ln - rn), nil
	case "*":
		return Number(ln * rn), nil
	case "/":
		return Number(ln / rn), nil
	case "%":
		return Number(math.Mod(ln, rn)), nil
	case "**":
		return Number(math.Pow(ln, rn)), nil
	}
	return Value{}, internalInvariant("arithmetic dispatch on %q", op)
}

func bigArithmetic(op string, l, r *big.Int) (Value, error) {
	switch op {
	case "-":
		return BigInt(new(big.Int).Sub(l, r)), nil
	case "*":
		return BigInt(new(big.Int).Mul(l, r)), nil
	case "/":
		if r.Sign() == 0 {
			return Value{}, rangeError("division by zero")
		}
		return BigInt(new(big.Int).Quo(l, r)), nil
	case "%":
		if r.Sign() == 0 {
			return Value{}, rangeError("division by zero")
		}
		return BigInt(new(big.Int).Rem(l, r)), nil
	case "**":
		if r.Sign() < 0 {
			return Value{}, rangeError("exponent must be non-negative")
		}
		return BigInt(new(big.Int).Exp(l, r, nil)), nil
	}
	return Value{}, internalInvariant("bigint arithmetic dispatch on %q", op)
}

// bigPair requires both operands to be bigints; mixing bigint and
// number in arithmetic throws.
func bigPair(l, r Value) (*big.Int, *big.Int, error) {
	if l.Kind != KindBigInt || r.Kind != KindBigInt {
		return nil, nil, typeError("cannot mix BigInt and other types")
	}
	return l.Big, r.Big, nil
}

func bitwise(op string, l, r Value) (Value, error) {
	lp, err := toPrimitive(l)
	if err != nil {
		return Value{}, err
	}
	rp, err := toPrimitive(r)
	if err != nil {
		return Value{}, err
	}
	if lp.Kind == KindBigInt || rp.Kind == KindBigInt {
		lb, rb, err := bigPair(lp, rp)
		if err != nil {
			return Value{}, err
		}
		return bigBitwise(op, lb, rb)
	}
	ln, err := toNumber(lp)
	if err != nil {
		return Value{}, err
	}
	rn, err := toNumber(rp)
	if err != nil {
		return Value{}, err
	}
	switch op {
	case "&":
		return Number(float64(toInt32(ln) & toInt32(rn))), nil
	case "|":
		return Number(float64(toInt32(ln) | toInt32(rn))), nil
	case "^":
		return Number(float64(toInt32(ln) ^ toInt32(rn))), nil
	case "<<":
		return Number(float64(toInt32(ln) << (toUint32(rn) & 31))), nil
	case ">>":
		return Number(float64(toInt32(ln) >> (toUint32(rn) & 31))), nil
	case ">>>":
		return Number(float64(toUint32(ln) >> (toUint32(rn) & 31))), nil
	}
	return Value{}, internalInvariant("bitwise dispatch on %q", op)
}

func bigBitwise(op string, l, r *big.Int) (Value, error) {
	switch op {
	case "&":
		return BigInt(new(big.Int).And(l, r)), nil
	case "|":
		return BigInt(new(big.Int).Or(l, r)), nil
	case "^":
		return BigInt(new(big.Int).Xor(l, r)), nil
	case "<<":
		if !r.IsUint64() {
			return Value{}, rangeError("shift count out of range")
		}
		return BigInt(new(big.Int).Lsh(l, uint(r.Uint64()))), nil
	case ">>":
		if !r.IsUint64() {
			return Value{}, rangeError("shift count out of range")
		}
		return BigInt(new(big.Int).Rsh(l, uint(r.Uint64()))), nil
	case ">>>":
		return Value{}, typeError("BigInts have no unsigned right shift")
	}
	return Value{}, internalInvariant("bigint bitwise dispatch on %q", op)
}

// inOperator supports the array form: a numeric key is "in" when the
// slot exists. A function right side depends on runtime properties the
// evaluator does not model.
func inOperator(l, r Value) (Value, error) {
	switch r.Kind {
	case KindArray:
		if l.Kind == KindString && l.Str == "length" {
			return Boolean(true), nil
		}
		idx, ok := elementIndex(FromValue(l))
		if !ok {
			return Boolean(false), nil
		}
		return Boolean(idx < len(r.Arr.Elems) && r.Arr.Elems[idx] != nil), nil
	case KindFunction:
		return Value{}, errNotStatic
	}
	return Value{}, typeError("cannot use 'in' operator on a non-object")
}

// instanceofOperator: primitives are never instances; an array or
// function against a user function handle depends on prototype chains
// the evaluator does not model.
func instanceofOperator(l, r Value) (Value, error) {
	if r.Kind != KindFunction {
		return Value{}, typeError("right-hand side of 'instanceof' is not callable")
	}
	switch l.Kind {
	case KindArray, KindFunction, KindRegex:
		return Value{}, errNotStatic
	}
	return Boolean(false), nil
}
