package codegen

import (
	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
)

type exitKind int

const (
	exitBreak exitKind = iota
	exitRedo
	exitReturn
)

// cleanup is a finally region. Every exit that leaves the region is routed
// through a trampoline that runs a fresh copy of the finally body and then
// continues to the real target, through the next enclosing region if that
// one is left as well.
type cleanup struct {
	id     int
	fin    func(*Block)
	try    *tryInfo
	outer  *cleanup
	copies int
	warned bool
	byExit map[cleanupKey]*Block
}

type cleanupKey struct {
	kind   exitKind
	target int // block id; zero for return
}

// covers reports whether x is inside the region's protected blocks.
func (c *cleanup) covers(x *Block) bool {
	for ; x != nil; x = x.parent {
		if x == c.try.body {
			return true
		}
		for _, h := range c.try.catches {
			if x == h.block {
				return true
			}
		}
	}
	return false
}

func (c *cleanup) leftBy(kind exitKind, target *Block) bool {
	return kind == exitReturn || !c.covers(target)
}

// trampoline returns the block that runs the finally body for an exit of
// the given kind to target, building it on first use.
func (c *cleanup) trampoline(m *MethodCreator, kind exitKind, target *Block) *Block {
	key := cleanupKey{kind: kind}
	if target != nil {
		key.target = target.id
	}
	if tb, ok := c.byExit[key]; ok {
		return tb
	}
	tb := c.copy(m)
	c.byExit[key] = tb
	c.try.trampolines = append(c.try.trampolines, tb)

	tb.state = stateActive
	c.fin(tb)
	if !tb.done {
		tb.route(kind, target, 0)
	}
	tb.state = stateClosed
	return tb
}

// copy creates a block for one replica of the finally body. Replicas sit
// outside the protected range, in the scope of the try statement.
func (c *cleanup) copy(m *MethodCreator) *Block {
	c.copies++
	if c.copies > m.cfg.MaxFinallyCopies && !c.warned {
		c.warned = true
		util.Warn(m.cfg, config.WarnDuplicateFinally, m.loc(), "finally body replicated %d times", c.copies)
	}
	tb := m.newBlock(c.try.wrap, blockCleanup)
	tb.cleanup = c.outer
	return tb
}

// route emits the jump for an exit from b. A return value, if any, is
// passed in val; within finally regions it travels in the method's return
// slot.
func (b *Block) route(kind exitKind, target *Block, val NodeID) {
	m := b.m
	if c := b.cleanup; c != nil && c.leftBy(kind, target) {
		if val != 0 {
			b.append(node{kind: nkLocalStore, typ: types.Void, deps: []NodeID{val}, local: m.returnSlot()})
		}
		tb := c.trampoline(m, kind, target)
		tb.startLabel()
		b.terminate(node{kind: nkJump, typ: types.Void, jump: jumpTrampoline, target: tb})
		return
	}
	switch kind {
	case exitReturn:
		var deps []NodeID
		if val == 0 && !m.ret.IsVoid() {
			val = b.use(m.returnSlot())
		}
		if val != 0 {
			deps = []NodeID{val}
		}
		b.terminate(node{kind: nkReturn, typ: types.Void, deps: deps})
	case exitBreak:
		target.broken = true
		target.endLabel()
		b.terminate(node{kind: nkJump, typ: types.Void, jump: jumpBreak, target: target})
	case exitRedo:
		target.redone = true
		target.startLabel()
		b.terminate(node{kind: nkJump, typ: types.Void, jump: jumpRedo, target: target})
	}
}

type catchClause struct {
	classes []types.Type
	block   *Block
	caught  *LocalVar
	fn      func(*Block, *LocalVar)
}

type tryInfo struct {
	wrap        *Block // parent of every part; the target of normal completion
	body        *Block
	catches     []*catchClause
	cleanup     *cleanup
	finAny      *Block // runs the finally body on the exceptional path
	excSlot     *LocalVar
	trampolines []*Block
}

// TryCreator collects the parts of a try statement. The parts are built
// after the Try callback returns, body first.
type TryCreator struct {
	b       *Block
	body    func(*Block)
	catches []*catchClause
	fin     func(*Block)
}

func (t *TryCreator) Body(fn func(*Block)) {
	if t.body != nil {
		t.b.fail(util.DuplicateDeclaration("try body declared twice"))
	}
	t.body = fn
}

// Catch adds a handler for exceptions of the given types, tried in
// declaration order. The caught exception is stored in a local.
func (t *TryCreator) Catch(fn func(b *Block, caught *LocalVar), classes ...types.Type) {
	if len(classes) == 0 {
		t.b.fail(util.IncompatibleType("catch clause without exception types"))
	}
	for _, c := range t.catches {
		for _, have := range c.classes {
			for _, want := range classes {
				if have == want {
					t.b.fail(util.DuplicateDeclaration("%s is already caught", want))
				}
			}
		}
	}
	for _, ct := range classes {
		if !ct.IsReference() || ct.IsArray() || ct.IsNull() {
			t.b.fail(util.IncompatibleType("cannot catch %s", ct))
		}
	}
	t.catches = append(t.catches, &catchClause{classes: classes, fn: fn})
}

// Finally sets the cleanup body. It is built once for every distinct way
// of leaving the try statement, so it must not depend on being run once.
func (t *TryCreator) Finally(fn func(*Block)) {
	if t.fin != nil {
		t.b.fail(util.DuplicateDeclaration("finally declared twice"))
	}
	t.fin = fn
}

// Try builds a try statement.
func (b *Block) Try(fn func(*TryCreator)) {
	b.requireActive("try")
	tc := &TryCreator{b: b}
	fn(tc)
	if tc.body == nil {
		b.fail(util.IllegalBlockState("try without a body"))
	}

	m := b.m
	for x := b; x != nil; x = x.parent {
		x.hasTry = true
	}
	t := &tryInfo{catches: tc.catches}
	t.wrap = m.newBlock(b, blockTry)
	t.wrap.state = stateClosed
	inner := b.cleanup
	if tc.fin != nil {
		m.nextCleanup++
		t.cleanup = &cleanup{
			id:     m.nextCleanup,
			fin:    tc.fin,
			try:    t,
			outer:  b.cleanup,
			byExit: make(map[cleanupKey]*Block),
		}
		inner = t.cleanup
	}

	t.body = m.newBlock(t.wrap, blockTryBody)
	t.body.cleanup = inner
	for _, c := range t.catches {
		c.block = m.newBlock(t.wrap, blockCatch)
		c.block.cleanup = inner
	}

	b.state = stateInactive
	t.body.state = stateActive
	tc.body(t.body)
	t.body.close()

	for _, c := range t.catches {
		ct := types.Throwable
		if len(c.classes) == 1 {
			ct = c.classes[0]
		}
		c.caught = m.newLocal("", ct, c.block)
		c.block.state = stateActive
		if c.fn != nil {
			c.fn(c.block, c.caught)
		}
		c.block.close()
	}

	if cl := t.cleanup; cl != nil {
		fa := cl.copy(m)
		t.finAny = fa
		t.excSlot = m.newLocal("", types.Throwable, fa)
		fa.state = stateActive
		cl.fin(fa)
		if !fa.done {
			fa.Throw(t.excSlot)
		}
		fa.state = stateClosed
	}
	b.state = stateActive

	b.statement(node{kind: nkTry, typ: types.Void, try: t}, t.wrap.broken)
}
