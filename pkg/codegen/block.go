package codegen

import (
	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/convert"
	"github.com/xplshn/gizmo/pkg/ir"
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
)

type blockKind int

const (
	blockMethod blockKind = iota
	blockPlain
	blockLoop
	blockArm
	blockExpr // yields a value; non-local exits may not cross it
	blockCase
	blockSwitch
	blockTry
	blockTryBody
	blockCatch
	blockCleanup
)

type blockState int

const (
	stateActive blockState = iota
	stateInactive
	stateClosed
)

// Block is a lexical region of a method body. Exactly one block of a method
// accepts new operations at any time: while a nested block is being built
// its parent is inactive, and once a block is terminated by a jump, return,
// throw or yield it accepts nothing more.
type Block struct {
	m      *MethodCreator
	id     int
	parent *Block
	kind   blockKind
	state  blockState
	done   bool
	head   *entry

	yields types.Type // result type of expression blocks, Void otherwise

	start, end ir.Label
	broken     bool // a break (or a nested yield) targets this block
	redone     bool // a redo targets this block
	yielded    bool // ends with a yield of its own

	// breakTo redirects Break on a loop body to the loop itself.
	breakTo *Block
	// continueRedo makes Continue restart the block rather than leave it.
	continueRedo bool
	continuable  bool

	cleanup *cleanup // innermost finally region enclosing this block
	hasTry  bool

	locals   []*LocalVar
	scopeEnd ir.Label
}

func (m *MethodCreator) newBlock(parent *Block, kind blockKind) *Block {
	m.nextBlock++
	b := &Block{
		m:        m,
		id:       m.nextBlock,
		parent:   parent,
		kind:     kind,
		yields:   types.Void,
		start:    ir.NoLabel,
		end:      ir.NoLabel,
		scopeEnd: ir.NoLabel,
	}
	if parent != nil {
		b.cleanup = parent.cleanup
	}
	return b
}

// nested builds child with fn while b is suspended.
func (b *Block) nested(child *Block, fn func(*Block)) {
	b.requireActive("nested block")
	b.state = stateInactive
	child.state = stateActive
	if fn != nil {
		fn(child)
	}
	child.close()
	b.state = stateActive
}

// close handles falling off the end of a block.
func (b *Block) close() {
	if !b.done {
		switch b.kind {
		case blockMethod:
			if !b.m.ret.IsVoid() {
				b.fail(util.IllegalBlockState("method returning %s can complete without a return", b.m.ret))
			}
			b.Return()
		case blockLoop:
			b.Redo(b)
		case blockExpr:
			b.fail(util.IllegalBlockState("expression block completes without yielding a value"))
		case blockTryBody, blockCatch:
			b.route(exitBreak, b.parent, 0)
		}
	}
	b.state = stateClosed
}

func (b *Block) startLabel() ir.Label {
	if b.start == ir.NoLabel {
		b.start = b.m.w.NewLabel()
	}
	return b.start
}

func (b *Block) endLabel() ir.Label {
	if b.end == ir.NoLabel {
		b.end = b.m.w.NewLabel()
	}
	return b.end
}

// completes reports whether control can leave the block by its end.
func (b *Block) completes() bool { return !b.done || b.broken }

// flows reports whether the enclosing construct continues after the block:
// by completing, or for expression blocks by yielding.
func (b *Block) flows() bool {
	if b.kind == blockExpr {
		return b.yielded || b.broken
	}
	return b.completes()
}

func (b *Block) fail(e *util.Error) {
	if e.Block == 0 {
		e.Block = b.id
	}
	util.Throw(e)
}

func (b *Block) requireActive(op string) {
	var e *util.Error
	switch {
	case b.done:
		e = util.IllegalBlockState("block is already terminated")
	case b.state == stateInactive:
		e = util.IllegalBlockState("block is suspended while a nested block is built")
	case b.state == stateClosed:
		e = util.IllegalBlockState("block is closed")
	default:
		return
	}
	e.Op = op
	b.fail(e)
}

// append schedules a new node at the end of the block.
func (b *Block) append(n node) value {
	b.requireActive(n.kind.String())
	id := b.m.g.add(n)
	b.schedule(id)
	return value{b.m, id}
}

// terminate appends an exit node and marks the block done.
func (b *Block) terminate(n node) {
	b.append(n)
	b.done = true
}

// statement appends a structured statement and applies reachability.
func (b *Block) statement(n node, completes bool) {
	b.append(n)
	if !completes && b.m.cfg.IsFeatureEnabled(config.FeatReachability) {
		b.done = true
	}
}

// use resolves an operand, which must have a value.
func (b *Block) use(e Expr) NodeID {
	if e == nil {
		b.fail(util.IncompatibleType("missing operand"))
	}
	id := e.resolve(b)
	if b.m.g.at(id).typ.IsVoid() {
		b.fail(util.IncompatibleType("void expression used as a value"))
	}
	return id
}

// coerce resolves e and converts it for assignment to t.
func (b *Block) coerce(e Expr, t types.Type) NodeID {
	id := b.use(e)
	return b.convertNode(id, t, convert.Assignment)
}

func (b *Block) convertNode(id NodeID, t types.Type, ctx convert.Context) NodeID {
	from := b.m.g.at(id).typ
	steps, ok := convert.Find(from, t, ctx)
	if !ok && trustedReference(from, t) {
		return id
	}
	if !ok {
		b.fail(util.IncompatibleType("cannot convert %s to %s", from, t))
	}
	if len(steps) == 0 {
		return id
	}
	return b.m.g.add(node{kind: nkConvert, typ: t, deps: []NodeID{id}, steps: steps})
}

// trustedReference reports whether a reference conversion the type bridge
// cannot check, for lack of class hierarchy, is accepted as a widening.
// Conversions involving a wrapper class are always checked.
func trustedReference(from, to types.Type) bool {
	return from.IsReference() && !from.IsNull() && to.IsReference() &&
		!types.IsWrapper(from) && !types.IsWrapper(to)
}

// LocalVar is a named or synthetic local variable slot. It can be used
// directly as an Expr; every use re-reads the slot.
type LocalVar struct {
	m     *MethodCreator
	name  string
	typ   types.Type
	slot  int
	scope *Block // nil for parameters
	start ir.Label
}

func (v *LocalVar) Type() types.Type { return v.typ }
func (v *LocalVar) Name() string     { return v.name }
func (v *LocalVar) Slot() int        { return v.slot }

func (v *LocalVar) resolve(b *Block) NodeID {
	b.checkLocal(v)
	return b.m.g.add(node{kind: nkLocalLoad, typ: v.typ, local: v})
}

func (b *Block) checkLocal(v *LocalVar) {
	if v.m != b.m {
		b.fail(util.IllegalBlockState("local %s belongs to method %s", v.name, v.m.name))
	}
	if v.scope != nil && !b.within(v.scope) {
		b.fail(util.IllegalBlockState("local %s is not in scope", v.name))
	}
}

// within reports whether a is b or one of its ancestors.
func (b *Block) within(a *Block) bool {
	for x := b; x != nil; x = x.parent {
		if x == a {
			return true
		}
	}
	return false
}

// LocalVar declares a local of type t in this block, initialized to init.
func (b *Block) LocalVar(name string, t types.Type, init Expr) *LocalVar {
	b.requireActive("local")
	if t.IsVoid() || t.IsNull() {
		b.fail(util.IncompatibleType("local %s cannot have type %s", name, t))
	}
	if init == nil {
		init = zero(t)
	}
	v := b.m.newLocal(name, t, b)
	b.locals = append(b.locals, v)
	b.append(node{kind: nkLocalStore, typ: types.Void, deps: []NodeID{b.coerce(init, t)}, local: v, decl: true})
	return v
}

// Local declares a local typed after its initializer.
func (b *Block) Local(name string, init Expr) *LocalVar {
	t := init.Type()
	if t.IsNull() {
		b.fail(util.IncompatibleType("cannot infer the type of local %s from null", name))
	}
	return b.LocalVar(name, t, init)
}

// Set assigns v to the local.
func (b *Block) Set(lv *LocalVar, v Expr) {
	b.checkLocal(lv)
	b.append(node{kind: nkLocalStore, typ: types.Void, deps: []NodeID{b.coerce(v, lv.typ)}, local: lv})
}

// Inc adds delta to a numeric local.
func (b *Block) Inc(lv *LocalVar, delta int) {
	b.checkLocal(lv)
	if lv.typ == types.Int && delta >= -32768 && delta <= 32767 {
		b.append(node{kind: nkInc, typ: types.Void, local: lv, delta: delta})
		return
	}
	if !convert.UnaryPromotion(lv.typ).IsNumeric() {
		b.fail(util.IncompatibleType("cannot increment %s", lv.typ))
	}
	sum := b.Add(lv, Int(int32(delta)))
	b.Set(lv, b.Cast(sum, lv.typ))
}

func zero(t types.Type) Expr {
	switch t.Repr() {
	case types.ReprInt:
		return typedConst(t, 0)
	case types.ReprLong:
		return Long(0)
	case types.ReprFloat:
		return Float(0)
	case types.ReprDouble:
		return Double(0)
	}
	return Null(t)
}
