package codegen

import (
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
)

// If runs then when cond holds.
func (b *Block) If(cond Expr, then func(*Block)) {
	b.IfElse(cond, then, nil)
}

// Unless runs then when cond does not hold.
func (b *Block) Unless(cond Expr, then func(*Block)) {
	b.If(b.Not(cond), then)
}

func (b *Block) IfElse(cond Expr, then, els func(*Block)) {
	c := b.coerce(cond, types.Boolean)
	t := b.m.newBlock(b, blockArm)
	b.nested(t, then)
	blocks := []*Block{t}
	completes := true
	if els != nil {
		e := b.m.newBlock(b, blockArm)
		b.nested(e, els)
		blocks = append(blocks, e)
		completes = t.completes() || e.completes()
	}
	b.statement(node{kind: nkIf, typ: types.Void, deps: []NodeID{c}, blocks: blocks}, completes)
}

// Block runs fn in a nested block, which can be the target of Break and
// Redo.
func (b *Block) Block(fn func(*Block)) {
	x := b.m.newBlock(b, blockPlain)
	b.nested(x, fn)
	b.statement(node{kind: nkNested, typ: types.Void, blocks: []*Block{x}}, x.completes())
}

// Cond is the conditional expression: then or els, whichever cond selects,
// is evaluated and its value converted to t.
func (b *Block) Cond(t types.Type, cond Expr, then, els func(*Block) Expr) Expr {
	c := b.coerce(cond, types.Boolean)
	arms := []*Block{b.exprArm(t, then), b.exprArm(t, els)}
	return b.append(node{kind: nkCond, typ: t, deps: []NodeID{c}, blocks: arms, emptyStack: anyTry(arms)})
}

func (b *Block) exprArm(t types.Type, fn func(*Block) Expr) *Block {
	arm := b.m.newBlock(b, blockExpr)
	arm.yields = t
	b.nested(arm, func(a *Block) {
		v := fn(a)
		if !a.done {
			a.Yield(v)
		}
	})
	return arm
}

// LogicalAnd evaluates rhs only when x is true.
func (b *Block) LogicalAnd(x Expr, rhs func(*Block) Expr) Expr {
	return b.Cond(types.Boolean, x, rhs, func(*Block) Expr { return Bool(false) })
}

// LogicalOr evaluates rhs only when x is false.
func (b *Block) LogicalOr(x Expr, rhs func(*Block) Expr) Expr {
	return b.Cond(types.Boolean, x, func(*Block) Expr { return Bool(true) }, rhs)
}

// BlockExpr runs fn in a nested block whose value, of type t, is given by
// Yield.
func (b *Block) BlockExpr(t types.Type, fn func(*Block)) Expr {
	if t.IsVoid() {
		b.fail(util.IncompatibleType("expression block must have a value type"))
	}
	x := b.m.newBlock(b, blockExpr)
	x.yields = t
	b.nested(x, fn)
	return b.append(node{kind: nkBlockExpr, typ: t, blocks: []*Block{x}, emptyStack: x.hasTry})
}

// Yield completes the innermost enclosing expression block with v.
func (b *Block) Yield(v Expr) {
	x := b
	for x != nil && x.kind != blockExpr {
		x = x.parent
	}
	if x == nil {
		b.fail(util.UnsupportedConstruct("yield outside an expression"))
	}
	if x.cleanup != b.cleanup {
		b.fail(util.UnsupportedConstruct("yield out of a try with finally"))
	}
	val := b.coerce(v, x.yields)
	n := node{kind: nkYield, typ: types.Void, deps: []NodeID{val}}
	if x != b {
		n.target = x
		x.broken = true
		x.endLabel()
	} else {
		b.yielded = true
	}
	b.terminate(n)
}

func anyTry(bs []*Block) bool {
	for _, x := range bs {
		if x.hasTry {
			return true
		}
	}
	return false
}

// Loop runs body forever. Falling off the end restarts it; Break on the
// body block leaves the loop and Continue restarts it.
func (b *Block) Loop(body func(*Block)) {
	l := b.m.newBlock(b, blockLoop)
	l.continuable = true
	l.continueRedo = true
	b.nested(l, body)
	b.statement(node{kind: nkLoop, typ: types.Void, blocks: []*Block{l}}, l.broken)
}

// loop builds a loop whose body block is nested in the loop block so that
// Continue on it leaves the body and falls into the loop's tail.
func (b *Block) loop(head, tail func(l *Block), body func(*Block)) {
	l := b.m.newBlock(b, blockLoop)
	b.nested(l, func(l *Block) {
		if head != nil {
			head(l)
		}
		x := l.m.newBlock(l, blockPlain)
		x.breakTo = l
		x.continuable = true
		l.nested(x, body)
		l.statement(node{kind: nkNested, typ: types.Void, blocks: []*Block{x}}, x.completes())
		if tail != nil && !l.done {
			tail(l)
		}
	})
	b.statement(node{kind: nkLoop, typ: types.Void, blocks: []*Block{l}}, l.broken)
}

// While evaluates cond in the loop head before every iteration.
func (b *Block) While(cond func(*Block) Expr, body func(*Block)) {
	b.loop(func(l *Block) {
		l.Unless(cond(l), func(x *Block) { x.Break(l) })
	}, nil, body)
}

// DoWhile runs body once, then repeats it while cond holds.
func (b *Block) DoWhile(body func(*Block), cond func(*Block) Expr) {
	b.loop(nil, func(l *Block) {
		l.Unless(cond(l), func(x *Block) { x.Break(l) })
	}, body)
}

// ForEach runs body for every element of an array, in index order.
func (b *Block) ForEach(arr Expr, body func(b *Block, item Expr)) {
	a, elem := b.array(arr)
	av := b.m.newLocal("", b.m.g.at(a).typ, b)
	b.append(node{kind: nkLocalStore, typ: types.Void, deps: []NodeID{a}, local: av})
	i := b.m.newLocal("", types.Int, b)
	b.append(node{kind: nkLocalStore, typ: types.Void, deps: []NodeID{b.use(Int(0))}, local: i})
	var item *LocalVar
	b.loop(func(l *Block) {
		l.If(l.Ge(i, l.ArrayLength(av)), func(x *Block) { x.Break(l) })
		item = l.m.newLocal("", elem, l)
		l.Set(item, l.ArrayLoad(av, i))
	}, func(l *Block) {
		l.Inc(i, 1)
	}, func(x *Block) {
		body(x, item)
	})
}

// Break leaves target, which must enclose b. Break on a loop body leaves the
// loop.
func (b *Block) Break(target *Block) {
	if target.breakTo != nil {
		target = target.breakTo
	}
	b.checkExit(target, "break")
	b.route(exitBreak, target, 0)
}

// Redo restarts target, which must enclose b.
func (b *Block) Redo(target *Block) {
	b.checkExit(target, "redo")
	b.route(exitRedo, target, 0)
}

// Continue starts the next iteration of the loop whose body is target.
func (b *Block) Continue(target *Block) {
	if !target.continuable {
		b.fail(util.UnsupportedConstruct("continue target is not a loop body"))
	}
	b.checkExit(target, "continue")
	if target.continueRedo {
		b.route(exitRedo, target, 0)
		return
	}
	b.route(exitBreak, target, 0)
}

// Return leaves a void method.
func (b *Block) Return() {
	if !b.m.ret.IsVoid() {
		b.fail(util.IncompatibleType("method returning %s needs a return value", b.m.ret))
	}
	b.checkExit(nil, "return")
	b.route(exitReturn, nil, 0)
}

// ReturnValue leaves the method with v.
func (b *Block) ReturnValue(v Expr) {
	if b.m.ret.IsVoid() {
		b.fail(util.IncompatibleType("void method cannot return a value"))
	}
	b.checkExit(nil, "return")
	b.route(exitReturn, nil, b.coerce(v, b.m.ret))
}

// Throw raises the throwable v.
func (b *Block) Throw(v Expr) {
	id := b.use(v)
	if t := b.m.g.at(id).typ; !t.IsReference() {
		b.fail(util.IncompatibleType("cannot throw %s", t))
	}
	b.terminate(node{kind: nkThrow, typ: types.Void, deps: []NodeID{id}})
}

// checkExit validates a non-local exit from b to target, or out of the
// method when target is nil.
func (b *Block) checkExit(target *Block, op string) {
	b.requireActive(op)
	for x := b; x != nil; x = x.parent {
		if x.kind == blockExpr {
			e := util.UnsupportedConstruct("%s out of an expression", op)
			e.Op = op
			b.fail(e)
		}
		if x == target {
			if x.kind == blockMethod {
				b.fail(util.UnsupportedConstruct("%s targeting the method body", op))
			}
			return
		}
	}
	if target != nil {
		e := util.IllegalBlockState("%s target #%d does not enclose block #%d", op, target.id, b.id)
		e.Op = op
		b.fail(e)
	}
}
