package codegen

import (
	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/util"
)

type entryRole int

const (
	roleHome     entryRole = iota // computes a scheduled node
	roleLoad                      // reloads a spilled node
	roleEval                      // inline copy of a materialized node
	rolePrologue                  // allocation preceding a constructor's arguments
)

// entry is one item of a block's instruction list. Lists are linked from
// the newest entry backwards so that entries can be inserted in front of
// any position in constant time.
type entry struct {
	id   NodeID
	role entryRole
	prev *entry
	// seg is the first entry of the contiguous run that ends with this
	// home and leaves exactly its value on the stack.
	seg *entry
}

// entries returns the block's list in program order.
func (b *Block) entries() []*entry {
	var out []*entry
	for e := b.head; e != nil; e = e.prev {
		out = append(out, e)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// placer resolves the operands of one consumer. Walking the operands from
// last to first with a cursor, an operand whose home sits directly before
// the cursor is consumed from the stack in place; materialized operands are
// copied in at the cursor; anything else is spilled and reloaded.
type placer struct {
	b       *Block
	skipped map[NodeID]bool
	inlined []NodeID
	undo    []*entry // cursors that received an insertion, newest last
	clash   bool
}

func (p *placer) node(id NodeID) *node { return p.b.m.g.at(id) }

func (p *placer) insert(cursor *entry, e *entry) *entry {
	e.prev = cursor.prev
	cursor.prev = e
	p.undo = append(p.undo, cursor)
	return e
}

func (p *placer) rollback() {
	for i := len(p.undo) - 1; i >= 0; i-- {
		c := p.undo[i]
		c.prev = c.prev.prev
	}
	for _, id := range p.inlined {
		p.node(id).inline = false
	}
	p.undo, p.inlined, p.skipped = nil, nil, nil
}

// skip records every scheduled node whose home lies in the run ending at e.
func (p *placer) skip(e *entry) {
	if p.skipped == nil {
		p.skipped = make(map[NodeID]bool)
	}
	for x := e; ; x = x.prev {
		if x.role == roleHome {
			p.skipped[x.id] = true
		}
		if x == e.seg {
			return
		}
	}
}

func (p *placer) operand(cursor *entry, id NodeID) *entry {
	n := p.node(id)
	if !n.bound {
		c := p.insert(cursor, &entry{id: id, role: roleEval})
		for i := len(n.deps) - 1; i >= 0 && !p.clash; i-- {
			c = p.operand(c, n.deps[i])
		}
		return c
	}
	p.b.checkVisible(n)
	if prev := cursor.prev; prev != nil && prev.role == roleHome && prev.id == id &&
		n.block == p.b && !n.inline && !n.emptyStack {
		n.inline = true
		p.inlined = append(p.inlined, id)
		p.skip(prev)
		return prev.seg
	}
	if p.skipped[id] {
		// the operand's home is already committed later in this run
		p.clash = true
		return cursor
	}
	p.b.m.spill(n)
	return p.insert(cursor, &entry{id: id, role: roleLoad})
}

// reloadAll is the fallback when the operands cannot be ordered on the
// stack: every scheduled operand is spilled and reloaded in order right
// before the consumer.
func (p *placer) reloadAll(at *entry, deps []NodeID) *entry {
	start := at
	var walk func(id NodeID)
	walk = func(id NodeID) {
		n := p.node(id)
		if n.bound {
			p.b.m.spill(n)
			e := p.insert(at, &entry{id: id, role: roleLoad})
			if start == at {
				start = e
			}
			return
		}
		for _, d := range n.deps {
			walk(d)
		}
		e := p.insert(at, &entry{id: id, role: roleEval})
		if start == at {
			start = e
		}
	}
	for _, d := range deps {
		walk(d)
	}
	return start
}

// schedule appends a bound node to the block and places its operands.
func (b *Block) schedule(id NodeID) {
	g := b.m.g
	n := g.at(id)
	g.bind(id)
	n.block = b

	e := &entry{id: id, role: roleHome, prev: b.head}
	b.head = e

	p := &placer{b: b}
	cursor := e
	for i := len(n.deps) - 1; i >= 0 && !p.clash; i-- {
		cursor = p.operand(cursor, n.deps[i])
	}
	if p.clash {
		p.rollback()
		cursor = p.reloadAll(e, n.deps)
	}
	if n.kind == nkNew {
		cursor = p.insert(cursor, &entry{id: id, role: rolePrologue})
	}
	e.seg = cursor
}

// checkVisible rejects a reference to a scheduled node whose home is not in
// this block or one of its ancestors.
func (b *Block) checkVisible(n *node) {
	for x := b; x != nil; x = x.parent {
		if x == n.block {
			return
		}
	}
	b.fail(util.IllegalBlockState("value computed in block #%d is not available in block #%d", n.block.id, b.id))
}

// spill assigns a temporary to n. The home stores into it and every
// out-of-place use reloads it.
func (m *MethodCreator) spill(n *node) {
	if n.spilled {
		return
	}
	n.spilled = true
	n.spillSlot = m.allocSlot(n.typ)
	util.Warn(m.cfg, config.WarnSpill, m.loc(), "%s value of type %s spilled to slot %d", n.kind, n.typ, n.spillSlot)
}
