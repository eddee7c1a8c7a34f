package codegen

import (
	"sort"

	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/convert"
	"github.com/xplshn/gizmo/pkg/ir"
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
)

// EnumConst names an enum constant as a switch key. Ordinal is the
// constant's declaration index, or negative when unknown.
type EnumConst struct {
	Name    string
	Ordinal int
}

type keyKind int

const (
	keyInt keyKind = iota
	keyLong
	keyString
	keyEnum
	keyClass
)

var keyKindNames = [...]string{"int", "long", "String", "enum", "Class"}

func (k keyKind) String() string { return keyKindNames[k] }

// strategy is the dispatch shape of a switch.
type strategy int

const (
	strategyTable  strategy = iota // jump table over a dense key range
	strategyLookup                 // sorted key/target pairs
)

func (s strategy) String() string {
	if s == strategyTable {
		return "table"
	}
	return "lookup"
}

// chooseStrategy picks a jump table when the keys cover at least density
// of their range.
func chooseStrategy(keys []int32, density float64, tables bool) strategy {
	if !tables || len(keys) == 0 {
		return strategyLookup
	}
	lo, hi := keys[0], keys[0]
	for _, k := range keys {
		lo, hi = min(lo, k), max(hi, k)
	}
	span := float64(int64(hi) - int64(lo) + 1)
	if float64(len(keys))/span >= density {
		return strategyTable
	}
	return strategyLookup
}

type caseKey struct {
	i     int64
	s     string
	enum  EnumConst
	class types.Type
	hash  int32 // dispatch key: the value itself for int switches
}

type switchCase struct {
	index int
	keys  []caseKey
	block *Block
	label ir.Label
}

type switchInfo struct {
	kind    keyKind
	owner   types.Type // scrutinee type of enum switches
	wrap    *Block
	cases   []*switchCase
	dflt    *switchCase
	expr    bool
	ordinal bool // enum switch dispatching on ordinal()
	temp    *LocalVar
	seen    map[any]int
	strat   strategy
}

// SwitchCreator declares the cases of a switch. Case bodies are built as
// they are declared and laid out in declaration order.
type SwitchCreator struct {
	b    *Block
	info *switchInfo
}

// Case adds a body selected by any of keys. Keys are Go integers for
// integral scrutinees, strings for String, EnumConst for enums and
// types.Type for Class.
func (s *SwitchCreator) Case(body func(*Block), keys ...any) {
	if len(keys) == 0 {
		s.b.fail(util.IncompatibleType("case without keys"))
	}
	sc := &switchCase{index: len(s.info.cases)}
	for _, k := range keys {
		sc.keys = append(sc.keys, s.key(k))
	}
	s.info.cases = append(s.info.cases, sc)
	s.build(sc, body)
}

// Default adds the body selected when no case matches.
func (s *SwitchCreator) Default(body func(*Block)) {
	if s.info.dflt != nil {
		s.b.fail(util.DuplicateDeclaration("switch has two default cases"))
	}
	sc := &switchCase{index: len(s.info.cases)}
	s.info.dflt = sc
	s.info.cases = append(s.info.cases, sc)
	s.build(sc, body)
}

func (s *SwitchCreator) build(sc *switchCase, body func(*Block)) {
	m := s.b.m
	kind := blockCase
	if s.info.expr {
		kind = blockExpr
	}
	cb := m.newBlock(s.info.wrap, kind)
	if s.info.expr {
		cb.yields = s.info.wrap.yields
	} else {
		cb.breakTo = s.info.wrap
	}
	sc.block = cb
	s.b.nested(cb, body)
}

func (s *SwitchCreator) key(k any) caseKey {
	info := s.info
	var ck caseKey
	var dup any
	switch info.kind {
	case keyInt, keyLong:
		v, ok := integer(k)
		if !ok {
			s.b.fail(util.IncompatibleType("%T key in a %s switch", k, info.kind))
		}
		if info.kind == keyInt && !fits(v, s.info.owner) {
			s.b.fail(util.IncompatibleType("key %d does not fit %s", v, s.info.owner))
		}
		ck.i, dup = v, v
		if info.kind == keyInt {
			ck.hash = int32(v)
		} else {
			ck.hash = types.LongHash(v)
		}
	case keyString:
		v, ok := k.(string)
		if !ok {
			s.b.fail(util.IncompatibleType("%T key in a String switch", k))
		}
		ck.s, ck.hash, dup = v, types.StringHash(v), v
	case keyEnum:
		v, ok := k.(EnumConst)
		if !ok {
			s.b.fail(util.IncompatibleType("%T key in an enum switch", k))
		}
		ck.enum, ck.hash, dup = v, types.StringHash(v.Name), "enum:"+v.Name
	case keyClass:
		v, ok := k.(types.Type)
		if !ok || !v.IsReference() || v.IsNull() {
			s.b.fail(util.IncompatibleType("%v is not a class key", k))
		}
		ck.class, ck.hash, dup = v, types.StringHash(v.BinaryName()), v
	}
	if prev, ok := info.seen[dup]; ok {
		s.b.fail(util.DuplicateDeclaration("switch key %v already selects case %d", k, prev))
	}
	info.seen[dup] = len(info.cases)
	return ck
}

func integer(k any) (int64, bool) {
	switch v := k.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	}
	return 0, false
}

func fits(v int64, t types.Type) bool {
	switch t.Kind() {
	case types.KindByte:
		return v >= -128 && v <= 127
	case types.KindShort:
		return v >= -32768 && v <= 32767
	case types.KindChar:
		return v >= 0 && v <= 65535
	}
	return v >= -1<<31 && v <= 1<<31-1
}

// scrutineeKind classifies the (unboxed) type of a switch scrutinee.
func scrutineeKind(t types.Type) (keyKind, bool) {
	switch {
	case t.IsIntLike() && !t.IsBoolean():
		return keyInt, true
	case t == types.Long:
		return keyLong, true
	case t == types.String:
		return keyString, true
	case t == types.ClassType:
		return keyClass, true
	case t.IsReference() && !t.IsArray() && !t.IsNull() && !types.IsWrapper(t) && t != types.Object:
		return keyEnum, true
	}
	return 0, false
}

// Switch builds a switch statement over x.
func (b *Block) Switch(x Expr, fn func(*SwitchCreator)) {
	n := b.switchNode(types.Void, x, fn)
	info := n.sw
	completes := info.dflt == nil || info.wrap.broken
	for _, c := range info.cases {
		completes = completes || c.block.flows()
	}
	b.statement(n, completes)
}

// SwitchExpr builds a switch expression of type t over x. Every case must
// yield; without a default, an unmatched value raises the configured
// no-match error.
func (b *Block) SwitchExpr(t types.Type, x Expr, fn func(*SwitchCreator)) Expr {
	if t.IsVoid() {
		b.fail(util.IncompatibleType("switch expression must have a value type"))
	}
	n := b.switchNode(t, x, fn)
	n.emptyStack = n.sw.wrap.hasTry
	return b.append(n)
}

func (b *Block) switchNode(t types.Type, x Expr, fn func(*SwitchCreator)) node {
	b.requireActive("switch")
	m := b.m
	id := b.use(x)
	st := m.g.at(id).typ
	if p, ok := types.Unbox(st); ok {
		st = p
	}
	kind, ok := scrutineeKind(st)
	if !ok {
		b.fail(util.UnsupportedConstruct("cannot switch on %s", m.g.at(id).typ))
	}
	scrut := b.convertNode(id, st, convert.Assignment)

	info := &switchInfo{kind: kind, owner: st, expr: !t.IsVoid(), seen: make(map[any]int)}
	info.wrap = m.newBlock(b, blockSwitch)
	info.wrap.yields = t
	info.wrap.state = stateClosed
	fn(&SwitchCreator{b: b, info: info})

	m.planSwitch(info)
	return node{kind: nkSwitch, typ: t, deps: []NodeID{scrut}, sw: info}
}

// planSwitch fixes the dispatch shape once every key is known.
func (m *MethodCreator) planSwitch(info *switchInfo) {
	if info.kind == keyEnum && m.cfg.IsFeatureEnabled(config.FeatEnumOrdinal) {
		info.ordinal = true
		for _, c := range info.cases {
			for _, k := range c.keys {
				if k.enum.Ordinal < 0 {
					info.ordinal = false
				}
			}
		}
		if info.ordinal {
			byOrdinal := make(map[int]string)
			for _, c := range info.cases {
				for i, k := range c.keys {
					if prev, ok := byOrdinal[k.enum.Ordinal]; ok {
						util.Throw(util.DuplicateDeclaration("enum constants %s and %s share ordinal %d", prev, k.enum.Name, k.enum.Ordinal))
					}
					byOrdinal[k.enum.Ordinal] = k.enum.Name
					c.keys[i].hash = int32(k.enum.Ordinal)
				}
			}
		}
	}
	if info.hashed() {
		info.temp = m.newLocal("", info.owner, nil)
	}
	var keys []int32
	seen := make(map[int32]bool)
	for _, c := range info.cases {
		for _, k := range c.keys {
			if !seen[k.hash] {
				seen[k.hash] = true
				keys = append(keys, k.hash)
			}
		}
	}
	info.strat = chooseStrategy(keys, m.cfg.SwitchDensity, m.cfg.IsFeatureEnabled(config.FeatTableSwitch))
}

// hashed reports whether dispatch goes through a hash of the scrutinee
// followed by equality checks.
func (info *switchInfo) hashed() bool {
	return info.kind != keyInt && !info.ordinal
}

// buckets groups the keys by dispatch value, in ascending order; keys of a
// bucket keep declaration order.
func (info *switchInfo) buckets() ([]int32, map[int32][]bucketEntry) {
	groups := make(map[int32][]bucketEntry)
	var order []int32
	for _, c := range info.cases {
		for _, k := range c.keys {
			if _, ok := groups[k.hash]; !ok {
				order = append(order, k.hash)
			}
			groups[k.hash] = append(groups[k.hash], bucketEntry{key: k, c: c})
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return order, groups
}

type bucketEntry struct {
	key caseKey
	c   *switchCase
}
