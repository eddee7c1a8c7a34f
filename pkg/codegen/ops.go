package codegen

import (
	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/convert"
	"github.com/xplshn/gizmo/pkg/ir"
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
)

func (b *Block) arith(op binOp, x, y Expr) Expr {
	t := convert.NumericPromotion(x.Type(), y.Type())
	deps := []NodeID{b.coerce(x, t), b.coerce(y, t)}
	return b.append(node{kind: nkBinary, typ: t, deps: deps, bin: op, operand: t})
}

func (b *Block) Add(x, y Expr) Expr { return b.arith(opAdd, x, y) }
func (b *Block) Sub(x, y Expr) Expr { return b.arith(opSub, x, y) }
func (b *Block) Mul(x, y Expr) Expr { return b.arith(opMul, x, y) }
func (b *Block) Div(x, y Expr) Expr { return b.arith(opDiv, x, y) }
func (b *Block) Rem(x, y Expr) Expr { return b.arith(opRem, x, y) }

func (b *Block) bitwise(op binOp, x, y Expr) Expr {
	t := convert.BitwiseType(x.Type(), y.Type())
	deps := []NodeID{b.coerce(x, t), b.coerce(y, t)}
	return b.append(node{kind: nkBinary, typ: t, deps: deps, bin: op, operand: t})
}

// And, Or and Xor are the non-short-circuit bitwise and boolean operators.
func (b *Block) And(x, y Expr) Expr { return b.bitwise(opAnd, x, y) }
func (b *Block) Or(x, y Expr) Expr  { return b.bitwise(opOr, x, y) }
func (b *Block) Xor(x, y Expr) Expr { return b.bitwise(opXor, x, y) }

func (b *Block) shift(op binOp, x, y Expr) Expr {
	t := convert.UnaryPromotion(x.Type())
	d := convert.UnaryPromotion(y.Type())
	if !t.IsIntegral() || !d.IsIntegral() {
		b.fail(util.IncompatibleType("shift operands %s and %s are not integral", x.Type(), y.Type()))
	}
	dist := b.coerce(y, d)
	if d == types.Long {
		dist = b.convertNode(dist, types.Int, convert.Casting)
	}
	deps := []NodeID{b.coerce(x, t), dist}
	return b.append(node{kind: nkBinary, typ: t, deps: deps, bin: op, operand: t})
}

func (b *Block) Shl(x, y Expr) Expr  { return b.shift(opShl, x, y) }
func (b *Block) Shr(x, y Expr) Expr  { return b.shift(opShr, x, y) }
func (b *Block) UShr(x, y Expr) Expr { return b.shift(opUShr, x, y) }

func (b *Block) Neg(x Expr) Expr {
	t := convert.UnaryPromotion(x.Type())
	return b.append(node{kind: nkNeg, typ: t, deps: []NodeID{b.coerce(x, t)}, operand: t})
}

// Not is boolean negation.
func (b *Block) Not(x Expr) Expr {
	return b.append(node{kind: nkNot, typ: types.Boolean, deps: []NodeID{b.coerce(x, types.Boolean)}})
}

func (b *Block) compare(op cmpOp, x, y Expr) Expr {
	var c convert.Comparison
	if op == cmpEq || op == cmpNe {
		c = convert.CompareEquality(x.Type(), y.Type())
	} else {
		c = convert.CompareOrdering(x.Type(), y.Type())
	}
	deps := []NodeID{b.coerce(x, c.Operand), b.coerce(y, c.Operand)}
	return b.append(node{kind: nkCompare, typ: types.Boolean, deps: deps, cmp: op, operand: c.Operand})
}

func (b *Block) Eq(x, y Expr) Expr { return b.compare(cmpEq, x, y) }
func (b *Block) Ne(x, y Expr) Expr { return b.compare(cmpNe, x, y) }
func (b *Block) Lt(x, y Expr) Expr { return b.compare(cmpLt, x, y) }
func (b *Block) Le(x, y Expr) Expr { return b.compare(cmpLe, x, y) }
func (b *Block) Gt(x, y Expr) Expr { return b.compare(cmpGt, x, y) }
func (b *Block) Ge(x, y Expr) Expr { return b.compare(cmpGe, x, y) }

// IsNull and IsNotNull compare a reference with null.
func (b *Block) IsNull(x Expr) Expr    { return b.Eq(x, Null(types.Object)) }
func (b *Block) IsNotNull(x Expr) Expr { return b.Ne(x, Null(types.Object)) }

// Cast converts x to t in a casting context, which allows primitive
// narrowing and checked reference casts.
func (b *Block) Cast(x Expr, t types.Type) Expr {
	id := b.use(x)
	from := b.m.g.at(id).typ
	steps, ok := convert.Find(from, t, convert.Casting)
	if !ok {
		b.fail(util.IncompatibleType("cannot cast %s to %s", from, t))
	}
	if len(steps) == 0 {
		return value{b.m, id}
	}
	return b.append(node{kind: nkCast, typ: t, deps: []NodeID{id}, steps: steps})
}

func (b *Block) InstanceOf(x Expr, t types.Type) Expr {
	id := b.use(x)
	if !b.m.g.at(id).typ.IsReference() || !t.IsReference() || t.IsNull() {
		b.fail(util.IncompatibleType("instanceof needs reference operands, got %s and %s", x.Type(), t))
	}
	return b.append(node{kind: nkInstanceOf, typ: types.Boolean, deps: []NodeID{id}, ref: t})
}

// GetStatic reads a static field. The read is repeated at every use.
func (b *Block) GetStatic(f types.FieldDesc) Expr {
	return value{b.m, b.m.g.add(node{kind: nkGetStatic, typ: f.Type, field: f})}
}

// GetField reads an instance field. The read is repeated at every use; the
// receiver is evaluated once.
func (b *Block) GetField(obj Expr, f types.FieldDesc) Expr {
	recv := b.coerce(obj, f.Owner)
	return value{b.m, b.m.g.add(node{kind: nkGetField, typ: f.Type, deps: []NodeID{recv}, field: f})}
}

func (b *Block) PutStatic(f types.FieldDesc, v Expr) {
	b.append(node{kind: nkPutStatic, typ: types.Void, deps: []NodeID{b.coerce(v, f.Type)}, field: f})
}

func (b *Block) PutField(obj Expr, f types.FieldDesc, v Expr) {
	deps := []NodeID{b.coerce(obj, f.Owner), b.coerce(v, f.Type)}
	b.append(node{kind: nkPutField, typ: types.Void, deps: deps, field: f})
}

func (b *Block) invoke(op ir.Op, m types.MethodDesc, recv Expr, args []Expr) Expr {
	if len(args) != len(m.Params) {
		b.fail(util.IncompatibleType("%s takes %d arguments, got %d", m, len(m.Params), len(args)))
	}
	deps := make([]NodeID, 0, len(args)+1)
	if op != ir.OpInvokeStatic {
		deps = append(deps, b.coerce(recv, m.Owner))
	}
	for i, a := range args {
		deps = append(deps, b.coerce(a, m.Params[i]))
	}
	return b.append(node{kind: nkInvoke, typ: m.Return, deps: deps, invokeOp: op, method: m})
}

func (b *Block) InvokeStatic(m types.MethodDesc, args ...Expr) Expr {
	return b.invoke(ir.OpInvokeStatic, m, nil, args)
}

func (b *Block) InvokeVirtual(m types.MethodDesc, recv Expr, args ...Expr) Expr {
	return b.invoke(ir.OpInvokeVirtual, m, recv, args)
}

func (b *Block) InvokeInterface(m types.MethodDesc, recv Expr, args ...Expr) Expr {
	m.Interface = true
	return b.invoke(ir.OpInvokeInterface, m, recv, args)
}

// InvokeSpecial calls a constructor, private or super method on recv
// without dynamic dispatch.
func (b *Block) InvokeSpecial(m types.MethodDesc, recv Expr, args ...Expr) Expr {
	return b.invoke(ir.OpInvokeSpecial, m, recv, args)
}

// New allocates an object and runs the constructor on it.
func (b *Block) New(ctor types.MethodDesc, args ...Expr) Expr {
	if !ctor.IsConstructor() {
		b.fail(util.IncompatibleType("%s is not a constructor", ctor))
	}
	if len(args) != len(ctor.Params) {
		b.fail(util.IncompatibleType("%s takes %d arguments, got %d", ctor, len(ctor.Params), len(args)))
	}
	deps := make([]NodeID, len(args))
	for i, a := range args {
		deps[i] = b.coerce(a, ctor.Params[i])
	}
	return b.append(node{kind: nkNew, typ: ctor.Owner, deps: deps, method: ctor, ref: ctor.Owner})
}

func (b *Block) NewArray(elem types.Type, length Expr) Expr {
	if elem.IsVoid() || elem.IsNull() {
		b.fail(util.IncompatibleType("invalid array component %s", elem))
	}
	n := b.coerce(length, types.Int)
	return b.append(node{kind: nkNewArray, typ: types.ArrayOf(elem), deps: []NodeID{n}, ref: elem})
}

// NewArrayOf allocates an array holding vals.
func (b *Block) NewArrayOf(elem types.Type, vals ...Expr) Expr {
	arr := b.NewArray(elem, Int(int32(len(vals))))
	for i, v := range vals {
		b.ArrayStore(arr, Int(int32(i)), v)
	}
	return arr
}

func (b *Block) array(arr Expr) (NodeID, types.Type) {
	id := b.use(arr)
	t := b.m.g.at(id).typ
	if !t.IsArray() {
		b.fail(util.IncompatibleType("%s is not an array", t))
	}
	return id, t.Elem()
}

func (b *Block) ArrayLoad(arr, idx Expr) Expr {
	a, elem := b.array(arr)
	deps := []NodeID{a, b.coerce(idx, types.Int)}
	return b.append(node{kind: nkArrayLoad, typ: elem, deps: deps, ref: elem})
}

func (b *Block) ArrayStore(arr, idx, v Expr) {
	a, elem := b.array(arr)
	deps := []NodeID{a, b.coerce(idx, types.Int), b.coerce(v, elem)}
	b.append(node{kind: nkArrayStore, typ: types.Void, deps: deps, ref: elem})
}

func (b *Block) ArrayLength(arr Expr) Expr {
	a, _ := b.array(arr)
	return b.append(node{kind: nkArrayLength, typ: types.Int, deps: []NodeID{a}})
}

// Line marks the source line of the code that follows.
func (b *Block) Line(line int) {
	b.append(node{kind: nkLine, typ: types.Void, line: line})
}

// Discard evaluates x for its effects only.
func (b *Block) Discard(x Expr) {
	id := x.resolve(b)
	if n := b.m.g.at(id); !n.bound {
		util.Warn(b.m.cfg, config.WarnExtra, b.m.loc(), "discarding %s of type %s has no effect", n.kind, n.typ)
		return
	}
	b.m.g.at(id).discard = true
}
