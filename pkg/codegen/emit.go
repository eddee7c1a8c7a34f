package codegen

import (
	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/convert"
	"github.com/xplshn/gizmo/pkg/ir"
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
)

// emit writes the finished method body to the listing. Placement was fully
// decided while the graph was built, so this is a single in-order walk.
func (m *MethodCreator) emit() {
	w := m.w
	debug := m.cfg.IsFeatureEnabled(config.FeatLocalVarTable)
	begin := ir.NoLabel
	if debug && len(m.params) > 0 {
		begin = w.NewLabel()
		w.Bind(begin)
	}
	m.emitBlock(m.root)
	if !debug {
		return
	}
	for _, p := range m.params {
		w.LocalVar(p.name, p.typ, p.slot, begin, m.root.scopeEnd)
	}
	for _, v := range m.named {
		if v.start != ir.NoLabel && v.scope.scopeEnd != ir.NoLabel {
			w.LocalVar(v.name, v.typ, v.slot, v.start, v.scope.scopeEnd)
		}
	}
}

func (m *MethodCreator) emitBlock(b *Block) {
	if b.start != ir.NoLabel {
		m.w.Bind(b.start)
	}
	for _, e := range b.entries() {
		m.emitEntry(e)
	}
	if m.cfg.IsFeatureEnabled(config.FeatLocalVarTable) && b.hasNamed() {
		b.scopeEnd = m.w.NewLabel()
		m.w.Bind(b.scopeEnd)
	}
}

func (b *Block) hasNamed() bool {
	if b.kind == blockMethod && len(b.m.params) > 0 {
		return true
	}
	for _, v := range b.locals {
		if v.name != "" {
			return true
		}
	}
	return false
}

// emitNested emits a child block and binds its end label if anything
// breaks out of it.
func (m *MethodCreator) emitNested(b *Block) {
	m.emitBlock(b)
	if b.end != ir.NoLabel {
		m.w.Bind(b.end)
	}
}

func (m *MethodCreator) emitEntry(e *entry) {
	n := m.g.at(e.id)
	switch e.role {
	case roleLoad:
		m.w.Load(n.typ.Repr(), n.spillSlot)
	case roleEval:
		m.emitNode(n)
	case rolePrologue:
		m.w.TypeInsn(ir.OpNew, n.ref)
		m.w.Insn(ir.OpDup, types.ReprRef)
	case roleHome:
		m.emitNode(n)
		m.epilogue(n)
	}
}

// epilogue disposes of a scheduled value: stored for later reloads, left
// for the consumer that sits right after it, or popped.
func (m *MethodCreator) epilogue(n *node) {
	if n.typ.IsVoid() {
		return
	}
	r := n.typ.Repr()
	wide := n.typ.Slots() == 2
	switch {
	case n.spilled:
		if n.inline {
			m.w.Insn(pick(wide, ir.OpDup2, ir.OpDup), r)
		}
		m.w.Store(r, n.spillSlot)
	case !n.inline:
		m.w.Insn(pick(wide, ir.OpPop2, ir.OpPop), r)
		if !n.discard {
			util.Warn(m.cfg, config.WarnDiscardedValue, m.loc(), "%s result of type %s is never used", n.kind, n.typ)
		}
	}
}

func pick(cond bool, a, b ir.Op) ir.Op {
	if cond {
		return a
	}
	return b
}

func (m *MethodCreator) emitNode(n *node) {
	w := m.w
	switch n.kind {
	case nkConst:
		w.Const(n.cnst)
	case nkLocalLoad:
		w.Load(n.typ.Repr(), n.local.slot)
	case nkGetStatic:
		w.Field(ir.OpGetStatic, n.field)
	case nkGetField:
		w.Field(ir.OpGetField, n.field)
	case nkConvert, nkCast:
		m.emitSteps(n.steps)
	case nkBinary:
		w.Insn(binOpCodes[n.bin], n.operand.Repr())
	case nkNeg:
		w.Insn(ir.OpNeg, n.operand.Repr())
	case nkNot:
		w.Const(ir.IntConst(1))
		w.Insn(ir.OpXor, types.ReprInt)
	case nkCompare:
		m.emitCompare(n)
	case nkInstanceOf:
		w.TypeInsn(ir.OpInstanceOf, n.ref)
	case nkInvoke:
		w.Invoke(n.invokeOp, n.method)
	case nkNew:
		w.Invoke(ir.OpInvokeSpecial, n.method)
	case nkNewArray:
		w.TypeInsn(ir.OpNewArray, n.ref)
	case nkArrayLoad:
		w.ArrayInsn(ir.OpArrayLoad, n.ref)
	case nkArrayStore:
		w.ArrayInsn(ir.OpArrayStore, n.ref)
	case nkArrayLength:
		w.Insn(ir.OpArrayLength, types.ReprInt)
	case nkPutStatic:
		w.Field(ir.OpPutStatic, n.field)
	case nkPutField:
		w.Field(ir.OpPutField, n.field)
	case nkLocalStore:
		w.Store(n.local.typ.Repr(), n.local.slot)
		if n.decl && n.local.name != "" && m.cfg.IsFeatureEnabled(config.FeatLocalVarTable) {
			n.local.start = w.NewLabel()
			w.Bind(n.local.start)
		}
	case nkInc:
		w.Iinc(n.local.slot, n.delta)
	case nkIf:
		m.emitIf(n)
	case nkCond:
		m.emitIf(n)
	case nkBlockExpr, nkNested, nkLoop:
		m.emitNested(n.blocks[0])
	case nkSwitch:
		m.emitSwitch(n)
	case nkTry:
		m.emitTry(n)
	case nkReturn:
		r := types.ReprVoid
		if len(n.deps) > 0 {
			r = m.ret.Repr()
		}
		w.Insn(ir.OpReturn, r)
	case nkThrow:
		w.Insn(ir.OpThrow, types.ReprRef)
	case nkJump:
		if n.jump == jumpBreak {
			w.Jump(ir.OpGoto, n.target.endLabel())
		} else {
			w.Jump(ir.OpGoto, n.target.startLabel())
		}
	case nkYield:
		if n.target != nil {
			w.Jump(ir.OpGoto, n.target.endLabel())
		}
	case nkLine:
		if m.cfg.IsFeatureEnabled(config.FeatLineNumbers) {
			w.Line(n.line)
		}
	}
}

// emitIf lowers if, if/else and the conditional expression. The condition
// is on the stack.
func (m *MethodCreator) emitIf(n *node) {
	w := m.w
	then := n.blocks[0]
	if len(n.blocks) == 1 {
		end := w.NewLabel()
		w.Jump(ir.OpIfEq, end)
		m.emitNested(then)
		w.Bind(end)
		return
	}
	els := n.blocks[1]
	elseL := w.NewLabel()
	w.Jump(ir.OpIfEq, elseL)
	m.emitNested(then)
	end := ir.NoLabel
	if then.flows() {
		end = w.NewLabel()
		w.Jump(ir.OpGoto, end)
	}
	w.Bind(elseL)
	m.emitNested(els)
	if end != ir.NoLabel {
		w.Bind(end)
	}
}

var zeroBranch = [...]ir.Op{ir.OpIfEq, ir.OpIfNe, ir.OpIfLt, ir.OpIfLe, ir.OpIfGt, ir.OpIfGe}
var intBranch = [...]ir.Op{ir.OpIfICmpEq, ir.OpIfICmpNe, ir.OpIfICmpLt, ir.OpIfICmpLe, ir.OpIfICmpGt, ir.OpIfICmpGe}

// emitCompare turns a comparison into 0 or 1. Floating point orderings pick
// the compare variant that makes NaN operands yield false.
func (m *MethodCreator) emitCompare(n *node) {
	w := m.w
	var br ir.Op
	switch n.operand.Repr() {
	case types.ReprInt:
		br = intBranch[n.cmp]
	case types.ReprRef:
		br = pick(n.cmp == cmpEq, ir.OpIfACmpEq, ir.OpIfACmpNe)
	case types.ReprLong:
		w.Insn(ir.OpLCmp, types.ReprLong)
		br = zeroBranch[n.cmp]
	case types.ReprFloat:
		w.Insn(pick(n.cmp == cmpLt || n.cmp == cmpLe, ir.OpFCmpG, ir.OpFCmpL), types.ReprFloat)
		br = zeroBranch[n.cmp]
	case types.ReprDouble:
		w.Insn(pick(n.cmp == cmpLt || n.cmp == cmpLe, ir.OpDCmpG, ir.OpDCmpL), types.ReprDouble)
		br = zeroBranch[n.cmp]
	}
	yes, end := w.NewLabel(), w.NewLabel()
	w.Jump(br, yes)
	w.Const(ir.IntConst(0))
	w.Jump(ir.OpGoto, end)
	w.Bind(yes)
	w.Const(ir.IntConst(1))
	w.Bind(end)
}

func (m *MethodCreator) emitSteps(steps []convert.Step) {
	w := m.w
	for _, s := range steps {
		switch s.Kind {
		case convert.StepBox:
			w.Invoke(ir.OpInvokeStatic, types.BoxMethod(s.From))
		case convert.StepUnbox:
			w.Invoke(ir.OpInvokeVirtual, types.UnboxMethod(s.To))
		case convert.StepWiden, convert.StepNarrow:
			m.emitPrimitive(s.From, s.To)
		case convert.StepRefNarrow:
			if s.From == types.Object && !m.cfg.IsFeatureEnabled(config.FeatCheckedCasts) {
				continue
			}
			w.TypeInsn(ir.OpCheckCast, s.To)
		}
	}
}

var reprConv = map[[2]types.Repr]ir.Op{
	{types.ReprInt, types.ReprLong}:     ir.OpI2L,
	{types.ReprInt, types.ReprFloat}:    ir.OpI2F,
	{types.ReprInt, types.ReprDouble}:   ir.OpI2D,
	{types.ReprLong, types.ReprInt}:     ir.OpL2I,
	{types.ReprLong, types.ReprFloat}:   ir.OpL2F,
	{types.ReprLong, types.ReprDouble}:  ir.OpL2D,
	{types.ReprFloat, types.ReprInt}:    ir.OpF2I,
	{types.ReprFloat, types.ReprLong}:   ir.OpF2L,
	{types.ReprFloat, types.ReprDouble}: ir.OpF2D,
	{types.ReprDouble, types.ReprInt}:   ir.OpD2I,
	{types.ReprDouble, types.ReprLong}:  ir.OpD2L,
	{types.ReprDouble, types.ReprFloat}: ir.OpD2F,
}

// emitPrimitive converts between primitive types: first between stack
// representations, then truncating to a sub-int type if needed.
func (m *MethodCreator) emitPrimitive(from, to types.Type) {
	fr, tr := from.Repr(), to.Repr()
	if fr != tr {
		m.w.Insn(reprConv[[2]types.Repr{fr, tr}], tr)
	}
	if tr != types.ReprInt {
		return
	}
	fk := from.Kind()
	switch to.Kind() {
	case types.KindByte:
		if fk != types.KindByte {
			m.w.Insn(ir.OpI2B, tr)
		}
	case types.KindShort:
		if fk != types.KindByte && fk != types.KindShort {
			m.w.Insn(ir.OpI2S, tr)
		}
	case types.KindChar:
		if fk != types.KindChar {
			m.w.Insn(ir.OpI2C, tr)
		}
	}
}

var (
	stringHashCode = types.Method(types.String, "hashCode", types.Int)
	stringEquals   = types.Method(types.String, "equals", types.Boolean, types.Object)
	longHashCode   = types.Method(types.LongBox, "hashCode", types.Int, types.Long)
	enumName       = types.Method(types.Enum, "name", types.String)
	enumOrdinal    = types.Method(types.Enum, "ordinal", types.Int)
	className      = types.Method(types.ClassType, "getName", types.String)
)

// emitSwitch lowers a switch whose scrutinee is on the stack. Case bodies
// follow the dispatch in declaration order and never fall into each other.
func (m *MethodCreator) emitSwitch(n *node) {
	w := m.w
	info := n.sw
	exit := info.wrap.endLabel()
	for _, c := range info.cases {
		c.label = w.NewLabel()
	}
	nomatch := ir.NoLabel
	dflt := exit
	switch {
	case info.dflt != nil:
		dflt = info.dflt.label
	case info.expr:
		nomatch = w.NewLabel()
		dflt = nomatch
	}

	order, groups := info.buckets()
	if info.hashed() {
		r := info.owner.Repr()
		w.Store(r, info.temp.slot)
		w.Load(r, info.temp.slot)
		switch info.kind {
		case keyLong:
			w.Invoke(ir.OpInvokeStatic, longHashCode)
		case keyEnum:
			w.Invoke(ir.OpInvokeVirtual, enumName)
		case keyClass:
			w.Invoke(ir.OpInvokeVirtual, className)
		}
		if info.kind != keyLong {
			w.Invoke(ir.OpInvokeVirtual, stringHashCode)
		}
		buckets := make([]ir.Label, len(order))
		for i := range order {
			buckets[i] = w.NewLabel()
		}
		m.dispatch(info.strat, order, buckets, dflt)
		for i, h := range order {
			w.Bind(buckets[i])
			for _, be := range groups[h] {
				m.emitKeyTest(info, be.key, be.c.label)
			}
			w.Jump(ir.OpGoto, dflt)
		}
	} else {
		if info.ordinal {
			w.Invoke(ir.OpInvokeVirtual, enumOrdinal)
		}
		targets := make([]ir.Label, len(order))
		for i, h := range order {
			targets[i] = groups[h][0].c.label
		}
		m.dispatch(info.strat, order, targets, dflt)
	}

	for i, c := range info.cases {
		w.Bind(c.label)
		m.emitNested(c.block)
		last := i == len(info.cases)-1 && nomatch == ir.NoLabel
		if c.block.flows() && !last {
			w.Jump(ir.OpGoto, exit)
		}
	}
	if nomatch != ir.NoLabel {
		t := types.Class(m.cfg.NoMatchError)
		w.Bind(nomatch)
		w.TypeInsn(ir.OpNew, t)
		w.Insn(ir.OpDup, types.ReprRef)
		w.Invoke(ir.OpInvokeSpecial, types.Constructor(t))
		w.Insn(ir.OpThrow, types.ReprRef)
	}
	w.Bind(exit)
}

func (m *MethodCreator) dispatch(s strategy, keys []int32, targets []ir.Label, dflt ir.Label) {
	if s != strategyTable {
		m.w.LookupSwitch(dflt, keys, targets)
		return
	}
	lo, hi := keys[0], keys[len(keys)-1]
	table := make([]ir.Label, 0, int64(hi)-int64(lo)+1)
	k := 0
	for v := int64(lo); v <= int64(hi); v++ {
		if int64(keys[k]) == v {
			table = append(table, targets[k])
			k++
		} else {
			table = append(table, dflt)
		}
	}
	m.w.TableSwitch(lo, dflt, table)
}

// emitKeyTest compares the saved scrutinee with one key of a hash bucket.
func (m *MethodCreator) emitKeyTest(info *switchInfo, k caseKey, target ir.Label) {
	w := m.w
	w.Load(info.owner.Repr(), info.temp.slot)
	switch info.kind {
	case keyString:
		w.Const(ir.StringConst(k.s))
		w.Invoke(ir.OpInvokeVirtual, stringEquals)
		w.Jump(ir.OpIfNe, target)
	case keyLong:
		w.Const(ir.LongConst(k.i))
		w.Insn(ir.OpLCmp, types.ReprLong)
		w.Jump(ir.OpIfEq, target)
	case keyEnum:
		w.Field(ir.OpGetStatic, types.Field(info.owner, k.enum.Name, info.owner))
		w.Jump(ir.OpIfACmpEq, target)
	case keyClass:
		w.Const(ir.ClassConst(k.class))
		w.Jump(ir.OpIfACmpEq, target)
	}
}

// emitTry lays out body, handlers, the exceptional finally replica and the
// trampolines, in that order. Only the body is covered by the catch
// clauses; body and handlers are covered by the finally replica.
func (m *MethodCreator) emitTry(n *node) {
	w := m.w
	t := n.try
	start := w.NewLabel()
	w.Bind(start)
	m.emitNested(t.body)
	bodyEnd := w.NewLabel()
	w.Bind(bodyEnd)

	handlers := make([]ir.Label, len(t.catches))
	for i, c := range t.catches {
		handlers[i] = w.NewLabel()
		w.Bind(handlers[i])
		w.Store(types.ReprRef, c.caught.slot)
		m.emitNested(c.block)
	}
	handlersEnd := w.NewLabel()
	w.Bind(handlersEnd)

	anyL := ir.NoLabel
	if t.finAny != nil {
		anyL = w.NewLabel()
		w.Bind(anyL)
		w.Store(types.ReprRef, t.excSlot.slot)
		m.emitNested(t.finAny)
	}
	for _, tb := range t.trampolines {
		m.emitNested(tb)
	}
	if t.wrap.end != ir.NoLabel {
		w.Bind(t.wrap.end)
	}

	for i, c := range t.catches {
		for _, ct := range c.classes {
			w.TryCatch(start, bodyEnd, handlers[i], ct)
		}
	}
	if anyL != ir.NoLabel {
		w.TryCatch(start, handlersEnd, anyL, types.Void)
	}
}
