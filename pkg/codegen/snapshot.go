package codegen

// NodeInfo describes one node of a built method's expression graph.
type NodeInfo struct {
	ID      NodeID
	Kind    string
	Type    string
	Block   int // block holding the node's single evaluation; 0 if re-evaluated per use
	Deps    []NodeID
	Inline  bool // consumed directly from the operand stack
	Spilled bool
	Slot    int
}

// GraphSnapshot is a read-only view of a method's expression graph and
// the placement decided for it.
type GraphSnapshot struct {
	Class  string
	Method string
	Blocks int
	Slots  int
	Nodes  []NodeInfo
}

func (m *MethodCreator) Snapshot() GraphSnapshot {
	s := GraphSnapshot{
		Class:  m.cc.class.Name.InternalName(),
		Method: m.name,
		Blocks: m.nextBlock,
		Slots:  m.nextSlot,
	}
	for i := 1; i < len(m.g.nodes); i++ {
		n := &m.g.nodes[i]
		info := NodeInfo{
			ID:      NodeID(i),
			Kind:    n.kind.String(),
			Type:    n.typ.String(),
			Deps:    n.deps,
			Inline:  n.inline,
			Spilled: n.spilled,
		}
		if n.block != nil {
			info.Block = n.block.id
		}
		if n.spilled {
			info.Slot = n.spillSlot
		}
		s.Nodes = append(s.Nodes, info)
	}
	return s
}
