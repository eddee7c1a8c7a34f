package convert

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
)

func catch(fn func()) (err error) {
	defer util.Recover(&err)
	fn()
	return nil
}

func TestFind(t *testing.T) {
	tests := []struct {
		name     string
		from, to types.Type
		ctx      Context
		want     []StepKind
	}{
		{"identity", types.Int, types.Int, Assignment, nil},
		{"box", types.Int, types.IntegerBox, Assignment, []StepKind{StepBox}},
		{"box to supertype", types.Int, types.Number, Assignment, []StepKind{StepBox, StepRefWiden}},
		{"unbox", types.LongBox, types.Long, Assignment, []StepKind{StepUnbox}},
		{"widen", types.Char, types.Int, Assignment, []StepKind{StepWiden}},
		{"unbox then widen", types.IntegerBox, types.Double, Assignment, []StepKind{StepUnbox, StepWiden}},
		{"null to reference", types.Null, types.String, Assignment, []StepKind{StepRefWiden}},
		{"to top type", types.String, types.Object, Assignment, []StepKind{StepRefWiden}},
		{"from top type", types.Object, types.String, Assignment, []StepKind{StepRefNarrow}},
		{"top type to primitive", types.Object, types.Int, Assignment, []StepKind{StepRefNarrow, StepUnbox}},
		{"narrow", types.Int, types.Byte, Casting, []StepKind{StepNarrow}},
		{"unbox then narrow", types.IntegerBox, types.Short, Casting, []StepKind{StepUnbox, StepNarrow}},
		{"reference cast", types.Number, types.String, Casting, []StepKind{StepRefNarrow}},
		{"box then cast", types.Int, types.String, Casting, []StepKind{StepBox, StepRefNarrow}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, ok := Find(tt.from, tt.to, tt.ctx)
			be.True(t, ok)
			var got []StepKind
			for _, s := range steps {
				got = append(got, s.Kind)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("steps mismatch (-want +got):\n%s", diff)
			}
			be.Equal(t, Result(tt.from, steps), tt.to)
		})
	}
}

func TestFindRejects(t *testing.T) {
	tests := []struct {
		name     string
		from, to types.Type
		ctx      Context
	}{
		{"narrow without cast", types.Int, types.Byte, Assignment},
		{"unrelated references", types.Number, types.String, Assignment},
		{"wrapper to wrapper", types.IntegerBox, types.LongBox, Casting},
		{"from void", types.Void, types.Int, Casting},
		{"to null", types.String, types.Null, Casting},
		{"boolean to int", types.Boolean, types.Int, Casting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Find(tt.from, tt.to, tt.ctx)
			be.Equal(t, ok, false)
		})
	}

	err := catch(func() { Assign(types.Double, types.Int) })
	be.True(t, errors.Is(err, util.ErrIncompatibleType))
	err = catch(func() { Cast(types.Boolean, types.Int) })
	be.True(t, errors.Is(err, util.ErrIncompatibleType))
}

func TestWidensAndNarrows(t *testing.T) {
	be.True(t, Widens(types.Byte, types.Short))
	be.True(t, Widens(types.Char, types.Int))
	be.True(t, Widens(types.Long, types.Float))
	be.Equal(t, Widens(types.Byte, types.Char), false)
	be.Equal(t, Widens(types.Char, types.Short), false)
	be.Equal(t, Widens(types.Int, types.Int), false)
	be.True(t, Narrows(types.Byte, types.Char))
	be.True(t, Narrows(types.Double, types.Long))
	be.Equal(t, Narrows(types.Boolean, types.Int), false)
}

func TestPromotion(t *testing.T) {
	be.Equal(t, NumericPromotion(types.Byte, types.Char), types.Int)
	be.Equal(t, NumericPromotion(types.IntegerBox, types.Float), types.Float)
	be.Equal(t, NumericPromotion(types.Long, types.Int), types.Long)
	be.Equal(t, UnaryPromotion(types.ShortBox), types.Int)
	be.Equal(t, UnaryPromotion(types.Double), types.Double)
	be.Equal(t, BitwiseType(types.Boolean, types.BooleanBox), types.Boolean)
	be.Equal(t, BitwiseType(types.Byte, types.Long), types.Long)

	err := catch(func() { BitwiseType(types.Int, types.Double) })
	be.True(t, errors.Is(err, util.ErrIncompatibleType))
	err = catch(func() { NumericPromotion(types.String, types.Int) })
	be.True(t, errors.Is(err, util.ErrIncompatibleType))
}

func TestPromotionIsSymmetric(t *testing.T) {
	var numeric []types.Type
	for _, p := range types.Primitives {
		if !p.IsNumeric() {
			continue
		}
		w, _ := types.Box(p)
		numeric = append(numeric, p, w)
	}
	for _, a := range numeric {
		for _, b := range numeric {
			be.Equal(t, NumericPromotion(a, b), NumericPromotion(b, a))
		}
	}
}

func TestPrimitiveRoundTrip(t *testing.T) {
	for _, p := range types.Primitives {
		t.Run(p.String(), func(t *testing.T) {
			steps, ok := Find(p, p, Assignment)
			be.True(t, ok)
			be.Equal(t, len(steps), 0)

			w, ok := types.Box(p)
			be.True(t, ok)
			boxed, ok := Find(p, w, Assignment)
			be.True(t, ok)
			be.Equal(t, Result(p, boxed), w)
			unboxed, ok := Find(w, p, Assignment)
			be.True(t, ok)
			be.Equal(t, Result(Result(p, boxed), unboxed), p)
		})
	}
}

func TestComparisons(t *testing.T) {
	be.Equal(t, CompareOrdering(types.Char, types.Byte), Comparison{Operand: types.Int, Promoted: true})
	be.Equal(t, CompareEquality(types.Int, types.LongBox), Comparison{Operand: types.Long, Promoted: true})
	be.Equal(t, CompareEquality(types.String, types.Object), Comparison{Operand: types.Object})
	be.Equal(t, CompareEquality(types.Boolean, types.BooleanBox), Comparison{Operand: types.Boolean})
	be.Equal(t, CompareEquality(types.Boolean, types.Boolean), Comparison{Operand: types.Boolean})

	err := catch(func() { CompareEquality(types.Boolean, types.String) })
	be.True(t, errors.Is(err, util.ErrIncompatibleType))
}
