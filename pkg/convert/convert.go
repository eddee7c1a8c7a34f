// Package convert computes the primitive conversion steps that make a value
// of one type usable where another type is required.
package convert

import (
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
)

type StepKind int

const (
	StepBox StepKind = iota
	StepUnbox
	StepWiden     // primitive widening
	StepNarrow    // primitive narrowing, explicit contexts only
	StepRefWiden  // reference widening to the top type; emits nothing
	StepRefNarrow // runtime-checked reference cast
)

var stepNames = [...]string{"box", "unbox", "widen", "narrow", "ref-widen", "ref-narrow"}

func (k StepKind) String() string { return stepNames[k] }

// Step converts a value of type From into type To.
type Step struct {
	Kind     StepKind
	From, To types.Type
}

// Context selects which conversions are allowed.
type Context int

const (
	// Assignment allows the implicit conversions.
	Assignment Context = iota
	// Casting additionally allows primitive narrowing and arbitrary
	// checked reference casts.
	Casting
)

// Find returns the shortest chain converting from into to, trying
// conversions in priority order. An empty chain means identity.
func Find(from, to types.Type, ctx Context) ([]Step, bool) {
	if from == to {
		return nil, true
	}
	if from.IsVoid() || to.IsVoid() || to.IsNull() {
		return nil, false
	}

	// boxing, to the exact wrapper or one of its supertypes
	if from.IsPrimitive() && to.IsReference() {
		w, _ := types.Box(from)
		if w == to {
			return []Step{{StepBox, from, w}}, true
		}
		for _, sup := range types.WrapperSupertypes(from) {
			if sup == to {
				return []Step{{StepBox, from, w}, {StepRefWiden, w, to}}, true
			}
		}
	}

	// unboxing
	if p, ok := types.Unbox(from); ok && p == to {
		return []Step{{StepUnbox, from, p}}, true
	}

	if from.IsPrimitive() && to.IsPrimitive() {
		if Widens(from, to) {
			return []Step{{StepWiden, from, to}}, true
		}
	}

	// unboxing then widening
	if p, ok := types.Unbox(from); ok && to.IsPrimitive() && Widens(p, to) {
		return []Step{{StepUnbox, from, p}, {StepWiden, p, to}}, true
	}

	// widening then boxing
	if from.IsPrimitive() {
		if p, ok := types.Unbox(to); ok && Widens(from, p) {
			return []Step{{StepWiden, from, p}, {StepBox, p, to}}, true
		}
	}

	if from.IsReference() && to.IsReference() {
		// null converts to every reference type
		if from.IsNull() {
			return []Step{{StepRefWiden, from, to}}, true
		}
		if to == types.Object {
			return []Step{{StepRefWiden, from, to}}, true
		}
		// wrappers are final, so a cast between two of them always fails
		bothWrappers := types.IsWrapper(from) && types.IsWrapper(to)
		if from == types.Object || (ctx == Casting && !bothWrappers) {
			return []Step{{StepRefNarrow, from, to}}, true
		}
	}

	// narrowing then unboxing
	if from == types.Object && to.IsPrimitive() {
		w, _ := types.Box(to)
		return []Step{{StepRefNarrow, from, w}, {StepUnbox, w, to}}, true
	}

	if ctx == Casting {
		if from.IsPrimitive() && to.IsPrimitive() && Narrows(from, to) {
			return []Step{{StepNarrow, from, to}}, true
		}
		// a wrapper cast to an unrelated primitive: unbox, then convert
		if p, ok := types.Unbox(from); ok && to.IsPrimitive() && Narrows(p, to) {
			return []Step{{StepUnbox, from, p}, {StepNarrow, p, to}}, true
		}
		// a primitive cast to a reference other than its wrapper's
		// supertypes, e.g. (String) 1: box then checked cast
		if from.IsPrimitive() && to.IsReference() && !types.IsWrapper(to) {
			w, _ := types.Box(from)
			return []Step{{StepBox, from, w}, {StepRefNarrow, w, to}}, true
		}
	}
	return nil, false
}

// Assign returns the assignment conversion chain or an IncompatibleType
// error.
func Assign(from, to types.Type) []Step {
	steps, ok := Find(from, to, Assignment)
	if !ok {
		util.Throw(util.IncompatibleType("cannot convert %s to %s", from, to))
	}
	return steps
}

// Cast returns the casting conversion chain or an IncompatibleType error.
func Cast(from, to types.Type) []Step {
	steps, ok := Find(from, to, Casting)
	if !ok {
		util.Throw(util.IncompatibleType("cannot cast %s to %s", from, to))
	}
	return steps
}

// Result returns the type a chain produces, or from when it is empty.
func Result(from types.Type, steps []Step) types.Type {
	if len(steps) == 0 {
		return from
	}
	return steps[len(steps)-1].To
}

var rank = map[types.Kind]int{
	types.KindByte:   1,
	types.KindShort:  2,
	types.KindInt:    3,
	types.KindLong:   4,
	types.KindFloat:  5,
	types.KindDouble: 6,
}

// Widens reports whether from → to is a primitive widening conversion.
func Widens(from, to types.Type) bool {
	if from == to || !from.IsNumeric() || !to.IsNumeric() {
		return false
	}
	if from.Kind() == types.KindChar {
		return rank[to.Kind()] >= rank[types.KindInt]
	}
	if to.Kind() == types.KindChar {
		return false
	}
	return rank[from.Kind()] < rank[to.Kind()]
}

// Narrows reports whether from → to is a primitive narrowing conversion,
// including byte → char which widens to int then narrows.
func Narrows(from, to types.Type) bool {
	if from == to || !from.IsNumeric() || !to.IsNumeric() {
		return false
	}
	return !Widens(from, to)
}
