package eval

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// errNotStatic marks a computation whose result depends on something
// the evaluator cannot determine (a tainted array element, a function's
// string form). Dispatch arms catch it and fall back to a tainted
// residual; it never escapes the evaluator.
var errNotStatic = errors.New("not statically determinable")

func truthy(v Value) bool {
	switch v.Kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num != 0 && !math.IsNaN(v.Num)
	case KindBigInt:
		return v.Big.Sign() != 0
	case KindString:
		return v.Str != ""
	}
	return true
}

func typeofString(v Value) string {
	switch v.Kind {
	case KindUndefined:
		return "undefined"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindBigInt:
		return "bigint"
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	}
	// null, regex and array objects
	return "object"
}

// toPrimitive reduces objects to a primitive with number hint
// semantics. Arrays stringify by joining, regexes by their literal
// form; functions have no static primitive form.
func toPrimitive(v Value) (Value, error) {
	switch v.Kind {
	case KindArray:
		s, err := arrayJoin(v.Arr)
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case KindRegex:
		return String("/" + v.Pattern + "/" + v.Flags), nil
	case KindFunction:
		return Value{}, errNotStatic
	}
	return v, nil
}

func arrayJoin(arr *ArrayObject) (string, error) {
	var b strings.Builder
	for i, el := range arr.Elems {
		if i > 0 {
			b.WriteString(",")
		}
		if el == nil {
			continue
		}
		if el.Tainted || !el.HasValue {
			return "", errNotStatic
		}
		if el.Value.IsNullish() {
			continue
		}
		s, err := toString(el.Value)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func toString(v Value) (string, error) {
	switch v.Kind {
	case KindUndefined:
		return "undefined", nil
	case KindNull:
		return "null", nil
	case KindBool:
		if v.Bool {
			return "true", nil
		}
		return "false", nil
	case KindNumber:
		return jsNumberToString(v.Num), nil
	case KindBigInt:
		return v.Big.String(), nil
	case KindString:
		return v.Str, nil
	case KindRegex, KindArray:
		p, err := toPrimitive(v)
		if err != nil {
			return "", err
		}
		return p.Str, nil
	}
	return "", errNotStatic
}

func toNumber(v Value) (float64, error) {
	switch v.Kind {
	case KindUndefined:
		return math.NaN(), nil
	case KindNull:
		return 0, nil
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	case KindNumber:
		return v.Num, nil
	case KindBigInt:
		return 0, typeError("cannot convert a BigInt to a number")
	case KindString:
		return jsStringToNumber(v.Str), nil
	case KindArray:
		p, err := toPrimitive(v)
		if err != nil {
			return 0, err
		}
		return toNumber(p)
	}
	return 0, errNotStatic
}

// jsNumberToString matches the source language's number formatting for
// the common cases: integral values print without a fraction, others in
// the shortest round-tripping form.
func jsNumberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// jsStringToNumber implements string-to-number coercion: trimmed empty
// input is zero, radix prefixes are honored, anything else parses as a
// decimal literal or NaN.
func jsStringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			if n, err := strconv.ParseUint(s[2:], 16, 64); err == nil {
				return float64(n)
			}
			return math.NaN()
		case 'o', 'O':
			if n, err := strconv.ParseUint(s[2:], 8, 64); err == nil {
				return float64(n)
			}
			return math.NaN()
		case 'b', 'B':
			if n, err := strconv.ParseUint(s[2:], 2, 64); err == nil {
				return float64(n)
			}
			return math.NaN()
		}
	}
	body := s
	neg := false
	switch body[0] {
	case '+':
		body = body[1:]
	case '-':
		neg = true
		body = body[1:]
	}
	if body == "Infinity" {
		if neg {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// canonicalIndex parses a canonical non-negative integer index string.
func canonicalIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errNotStatic
	}
	if strconv.Itoa(n) != s {
		return 0, errNotStatic
	}
	return n, nil
}

// toInt32 truncates modulo 2^32 with sign, matching the source
// language's bitwise operand coercion.
func toInt32(f float64) int32 {
	i := int32(f)
	if float64(i) == f {
		return i
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	i = int32(uint32(math.Mod(math.Abs(f), 4294967296)))
	if math.Signbit(f) {
		return -i
	}
	return i
}

func toUint32(f float64) uint32 {
	return uint32(toInt32(f))
}

func strictEquals(l, r Value) bool {
	if l.Kind == KindBigInt && r.Kind == KindBigInt {
		return l.Big.Cmp(r.Big) == 0
	}
	if l.Kind != r.Kind {
		return false
	}
	switch l.Kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return l.Bool == r.Bool
	case KindNumber:
		return l.Num == r.Num
	case KindString:
		return l.Str == r.Str
	case KindArray:
		return l.Arr == r.Arr
	case KindFunction:
		return l.Fn == r.Fn
	case KindRegex:
		// Distinct regex literals are distinct objects.
		return false
	}
	return false
}

func looseEquals(l, r Value) (bool, error) {
	if l.Kind == r.Kind {
		return strictEquals(l, r), nil
	}
	switch {
	case l.IsNullish() && r.IsNullish():
		return true, nil
	case l.IsNullish() || r.IsNullish():
		return false, nil
	case l.Kind == KindBool:
		return looseEquals(Number(boolToNum(l.Bool)), r)
	case r.Kind == KindBool:
		return looseEquals(l, Number(boolToNum(r.Bool)))
	case l.Kind == KindNumber && r.Kind == KindString:
		return l.Num == jsStringToNumber(r.Str), nil
	case l.Kind == KindString && r.Kind == KindNumber:
		return jsStringToNumber(l.Str) == r.Num, nil
	case l.Kind == KindBigInt && r.Kind == KindString:
		n, ok := new(big.Int).SetString(strings.TrimSpace(r.Str), 10)
		return ok && l.Big.Cmp(n) == 0, nil
	case l.Kind == KindString && r.Kind == KindBigInt:
		return looseEquals(r, l)
	case l.Kind == KindBigInt && r.Kind == KindNumber:
		return bigEqualsNumber(l.Big, r.Num), nil
	case l.Kind == KindNumber && r.Kind == KindBigInt:
		return bigEqualsNumber(r.Big, l.Num), nil
	case l.Kind == KindArray || l.Kind == KindRegex:
		p, err := toPrimitive(l)
		if err != nil {
			return false, err
		}
		return looseEquals(p, r)
	case r.Kind == KindArray || r.Kind == KindRegex:
		p, err := toPrimitive(r)
		if err != nil {
			return false, err
		}
		return looseEquals(l, p)
	}
	return false, nil
}

func boolToNum(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func bigEqualsNumber(b *big.Int, f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return false
	}
	n, _ := big.NewFloat(f).Int(nil)
	return b.Cmp(n) == 0
}

// compareValues implements the abstract relational comparison. The
// returned undefined flag mirrors NaN operands, which make every
// ordering false.
func compareValues(l, r Value) (less bool, undefined bool, err error) {
	lp, err := toPrimitive(l)
	if err != nil {
		return false, false, err
	}
	rp, err := toPrimitive(r)
	if err != nil {
		return false, false, err
	}
	if lp.Kind == KindString && rp.Kind == KindString {
		return lp.Str < rp.Str, false, nil
	}
	if lp.Kind == KindBigInt && rp.Kind == KindBigInt {
		return lp.Big.Cmp(rp.Big) < 0, false, nil
	}
	if lp.Kind == KindBigInt || rp.Kind == KindBigInt {
		lf, lnan, err := toBigFloat(lp)
		if err != nil {
			return false, false, err
		}
		rf, rnan, err := toBigFloat(rp)
		if err != nil {
			return false, false, err
		}
		if lnan || rnan {
			return false, true, nil
		}
		return lf.Cmp(rf) < 0, false, nil
	}
	ln, err := toNumber(lp)
	if err != nil {
		return false, false, err
	}
	rn, err := toNumber(rp)
	if err != nil {
		return false, false, err
	}
	if math.IsNaN(ln) || math.IsNaN(rn) {
		return false, true, nil
	}
	return ln < rn, false, nil
}

// toBigFloat widens a bigint or numeric operand for a mixed-type
// comparison without losing precision. Infinities survive the widening;
// NaN is reported separately.
func toBigFloat(v Value) (*big.Float, bool, error) {
	if v.Kind == KindBigInt {
		return new(big.Float).SetInt(v.Big), false, nil
	}
	f, err := toNumber(v)
	if err != nil {
		return nil, false, err
	}
	if math.IsNaN(f) {
		return nil, true, nil
	}
	if math.IsInf(f, 1) {
		return new(big.Float).SetInf(false), false, nil
	}
	if math.IsInf(f, -1) {
		return new(big.Float).SetInf(true), false, nil
	}
	return big.NewFloat(f), false, nil
}
