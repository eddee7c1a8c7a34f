package convert

import (
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
)

func unboxed(t types.Type) types.Type {
	if p, ok := types.Unbox(t); ok {
		return p
	}
	return t
}

// NumericPromotion returns the binary numeric promotion of a and b: each
// side is unboxed, then both promote to the widest of double, float, long
// and int present, defaulting to int.
func NumericPromotion(a, b types.Type) types.Type {
	ua, ub := unboxed(a), unboxed(b)
	if !ua.IsNumeric() || !ub.IsNumeric() {
		util.Throw(util.IncompatibleType("operands %s and %s are not numeric", a, b))
	}
	switch {
	case ua == types.Double || ub == types.Double:
		return types.Double
	case ua == types.Float || ub == types.Float:
		return types.Float
	case ua == types.Long || ub == types.Long:
		return types.Long
	default:
		return types.Int
	}
}

// UnaryPromotion unboxes t and widens byte, short and char to int.
func UnaryPromotion(t types.Type) types.Type {
	u := unboxed(t)
	if !u.IsNumeric() {
		util.Throw(util.IncompatibleType("operand %s is not numeric", t))
	}
	if rank[u.Kind()] < rank[types.KindInt] {
		return types.Int
	}
	return u
}

// BitwiseType returns the operand type of &, | and ^: boolean when both
// sides are (possibly boxed) booleans, otherwise the numeric promotion,
// which must be integral.
func BitwiseType(a, b types.Type) types.Type {
	ua, ub := unboxed(a), unboxed(b)
	if ua.IsBoolean() && ub.IsBoolean() {
		return types.Boolean
	}
	t := NumericPromotion(a, b)
	if !t.IsIntegral() {
		util.Throw(util.IncompatibleType("bitwise operands %s and %s are not integral", a, b))
	}
	return t
}

// Comparison describes how to compare two operands.
type Comparison struct {
	// Operand is the type both sides are converted to.
	Operand types.Type
	// Promoted reports whether numeric promotion was applied.
	Promoted bool
}

// CompareOrdering returns the operand type of <, <=, > and >=, which always
// promote.
func CompareOrdering(a, b types.Type) Comparison {
	return Comparison{Operand: NumericPromotion(a, b), Promoted: true}
}

// CompareEquality returns the operand type of == and !=. Promotion applies
// only when at least one side is a non-boolean primitive.
func CompareEquality(a, b types.Type) Comparison {
	nonBoolPrim := func(t types.Type) bool { return t.IsPrimitive() && !t.IsBoolean() }
	if nonBoolPrim(a) || nonBoolPrim(b) {
		return Comparison{Operand: NumericPromotion(a, b), Promoted: true}
	}
	switch {
	case a.Repr() == b.Repr():
		if a.IsReference() {
			return Comparison{Operand: types.Object}
		}
		return Comparison{Operand: a}
	case a.IsBoolean() && unboxed(b).IsBoolean():
		return Comparison{Operand: types.Boolean}
	case b.IsBoolean() && unboxed(a).IsBoolean():
		return Comparison{Operand: types.Boolean}
	}
	util.Throw(util.IncompatibleType("cannot compare %s with %s", a, b))
	return Comparison{}
}
