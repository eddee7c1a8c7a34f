// Package ir is the boundary between the code generator and the binary
// emission backend: a stack-machine instruction writer, labels, exception
// ranges, and a recording implementation that keeps the emitted stream for
// rendering, fingerprinting and interpretation.
package ir

import (
	"fmt"
	"strconv"

	"github.com/xplshn/gizmo/pkg/types"
)

// Label is an opaque branch target. Every label is bound exactly once.
type Label int

const NoLabel Label = -1

func (l Label) String() string { return "L" + strconv.Itoa(int(l)) }

// Constant is a loadable constant. Value holds int32, int64, float32,
// float64, string, nil (for null) or types.Type (for class literals).
type Constant struct {
	Type  types.Type
	Value any
}

func IntConst(v int32) Constant        { return Constant{types.Int, v} }
func LongConst(v int64) Constant       { return Constant{types.Long, v} }
func FloatConst(v float32) Constant    { return Constant{types.Float, v} }
func DoubleConst(v float64) Constant   { return Constant{types.Double, v} }
func StringConst(v string) Constant    { return Constant{types.String, v} }
func NullConst() Constant              { return Constant{types.Null, nil} }
func ClassConst(t types.Type) Constant { return Constant{types.ClassType, t} }

func (c Constant) String() string {
	switch v := c.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case types.Type:
		return v.Descriptor() + ".class"
	default:
		return fmt.Sprintf("%s %v", c.Type, v)
	}
}

// Writer receives instructions in exactly the order they must appear in
// the method body. The backend computes stack and local limits itself.
type Writer interface {
	NewLabel() Label
	Bind(l Label)

	Const(c Constant)
	Load(r types.Repr, slot int)
	Store(r types.Repr, slot int)
	Iinc(slot, delta int)
	// Insn emits a zero-operand instruction; r selects the typed variant
	// for arithmetic, conversions, returns and stack shuffles.
	Insn(op Op, r types.Repr)
	Jump(op Op, target Label)
	TableSwitch(low int32, dflt Label, targets []Label)
	LookupSwitch(dflt Label, keys []int32, targets []Label)
	Invoke(op Op, m types.MethodDesc)
	Field(op Op, f types.FieldDesc)
	// TypeInsn emits new, newarray, checkcast or instanceof.
	TypeInsn(op Op, t types.Type)
	// ArrayInsn emits an array element load or store for elements of elem.
	ArrayInsn(op Op, elem types.Type)

	// TryCatch declares an exception range [start, end) handled at handler.
	// A void catch type catches everything.
	TryCatch(start, end, handler Label, catchType types.Type)
	Line(line int)
	LocalVar(name string, t types.Type, slot int, start, end Label)
}

type Instruction struct {
	Op      Op
	Repr    types.Repr
	Const   Constant
	Slot    int
	Delta   int
	Target  Label
	Default Label
	Targets []Label
	Keys    []int32
	Low     int32
	Method  types.MethodDesc
	Field   types.FieldDesc
	Type    types.Type
}

type Handler struct {
	Start, End, Handler Label
	Type                types.Type
}

type LineEntry struct {
	PC   int
	Line int
}

type LocalEntry struct {
	Name       string
	Type       types.Type
	Slot       int
	Start, End Label
}
