package eval

import (
	"math"
	"math/big"

	"github.com/lcalzada-xor/defog/pkg/syntax"
)

// Lift converts a concrete value back to a literal tree fragment.
// Negative numbers lift to unary minus forms and non-finite numbers to
// the NaN and Infinity identifiers (negative infinity as -Infinity), so
// a printer can emit them directly.
func Lift(v Value) (syntax.Expression, error) {
	switch v.Kind {
	case KindUndefined:
		return &syntax.Identifier{Name: "undefined"}, nil
	case KindNull:
		return &syntax.NullLiteral{}, nil
	case KindBool:
		return &syntax.BooleanLiteral{Value: v.Bool}, nil
	case KindNumber:
		return liftNumber(v.Num), nil
	case KindBigInt:
		if v.Big == nil {
			return nil, internalInvariant("bigint value without payload")
		}
		if v.Big.Sign() < 0 {
			abs := new(big.Int).Neg(v.Big)
			return &syntax.UnaryExpression{
				Operator: "-",
				Prefix:   true,
				Argument: &syntax.BigIntLiteral{Value: abs.String()},
			}, nil
		}
		return &syntax.BigIntLiteral{Value: v.Big.String()}, nil
	case KindString:
		return &syntax.StringLiteral{Value: v.Str}, nil
	case KindRegex:
		return &syntax.RegExpLiteral{Pattern: v.Pattern, Flags: v.Flags}, nil
	case KindArray:
		if v.Arr == nil {
			return nil, internalInvariant("array value without payload")
		}
		elems := make([]syntax.Expression, len(v.Arr.Elems))
		for i, el := range v.Arr.Elems {
			if el == nil {
				continue
			}
			node, err := el.Repr()
			if err != nil {
				return nil, err
			}
			elems[i] = node
		}
		return &syntax.ArrayExpression{Elements: elems}, nil
	case KindFunction:
		if v.Fn == nil || v.Fn.Simplified == nil {
			return nil, internalInvariant("function value without residual form")
		}
		return v.Fn.Simplified, nil
	}
	return nil, internalInvariant("unsupported value kind %q in lift", v.Kind)
}

func liftNumber(f float64) syntax.Expression {
	if math.IsNaN(f) {
		return &syntax.Identifier{Name: "NaN"}
	}
	if math.IsInf(f, 1) {
		return &syntax.Identifier{Name: "Infinity"}
	}
	if math.IsInf(f, -1) {
		return &syntax.UnaryExpression{Operator: "-", Prefix: true, Argument: &syntax.Identifier{Name: "Infinity"}}
	}
	if f < 0 || (f == 0 && math.Signbit(f)) {
		return &syntax.UnaryExpression{Operator: "-", Prefix: true, Argument: &syntax.NumericLiteral{Value: -f}}
	}
	return &syntax.NumericLiteral{Value: f}
}
