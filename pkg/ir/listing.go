package ir

import (
	"fmt"

	"github.com/xplshn/gizmo/pkg/types"
)

// Listing is a Writer that records the instruction stream in memory.
type Listing struct {
	Instructions []Instruction
	Handlers     []Handler
	Lines        []LineEntry
	Locals       []LocalEntry

	labels []int // label -> pc, -1 while unbound
	used   map[Label]bool
}

func NewListing() *Listing { return &Listing{used: make(map[Label]bool)} }

var _ Writer = (*Listing)(nil)

func (l *Listing) NewLabel() Label {
	l.labels = append(l.labels, -1)
	return Label(len(l.labels) - 1)
}

func (l *Listing) Bind(lbl Label) {
	if l.labels[lbl] >= 0 {
		panic(fmt.Sprintf("ir: label %s bound twice", lbl))
	}
	l.labels[lbl] = len(l.Instructions)
}

// PC returns the instruction index a bound label refers to.
func (l *Listing) PC(lbl Label) int {
	if lbl < 0 || int(lbl) >= len(l.labels) {
		return -1
	}
	return l.labels[lbl]
}

// LabelsAt returns the labels bound to pc in allocation order.
func (l *Listing) LabelsAt(pc int) []Label {
	var out []Label
	for i, p := range l.labels {
		if p == pc {
			out = append(out, Label(i))
		}
	}
	return out
}

func (l *Listing) add(in Instruction) { l.Instructions = append(l.Instructions, in) }

func (l *Listing) use(lbls ...Label) {
	for _, lbl := range lbls {
		l.used[lbl] = true
	}
}

func (l *Listing) Const(c Constant) { l.add(Instruction{Op: OpConst, Const: c, Repr: c.Type.Repr()}) }

func (l *Listing) Load(r types.Repr, slot int) { l.add(Instruction{Op: OpLoad, Repr: r, Slot: slot}) }

func (l *Listing) Store(r types.Repr, slot int) { l.add(Instruction{Op: OpStore, Repr: r, Slot: slot}) }

func (l *Listing) Iinc(slot, delta int) { l.add(Instruction{Op: OpIinc, Slot: slot, Delta: delta}) }

func (l *Listing) Insn(op Op, r types.Repr) { l.add(Instruction{Op: op, Repr: r}) }

func (l *Listing) Jump(op Op, target Label) {
	l.use(target)
	l.add(Instruction{Op: op, Target: target})
}

func (l *Listing) TableSwitch(low int32, dflt Label, targets []Label) {
	l.use(dflt)
	l.use(targets...)
	l.add(Instruction{Op: OpTableSwitch, Low: low, Default: dflt, Targets: append([]Label(nil), targets...)})
}

func (l *Listing) LookupSwitch(dflt Label, keys []int32, targets []Label) {
	l.use(dflt)
	l.use(targets...)
	l.add(Instruction{
		Op: OpLookupSwitch, Default: dflt,
		Keys: append([]int32(nil), keys...), Targets: append([]Label(nil), targets...),
	})
}

func (l *Listing) Invoke(op Op, m types.MethodDesc) {
	l.add(Instruction{Op: op, Method: m, Repr: m.Return.Repr()})
}

func (l *Listing) Field(op Op, f types.FieldDesc) {
	l.add(Instruction{Op: op, Field: f, Repr: f.Type.Repr()})
}

func (l *Listing) TypeInsn(op Op, t types.Type) { l.add(Instruction{Op: op, Type: t}) }

func (l *Listing) ArrayInsn(op Op, elem types.Type) {
	l.add(Instruction{Op: op, Type: elem, Repr: elem.Repr()})
}

func (l *Listing) TryCatch(start, end, handler Label, catchType types.Type) {
	l.use(start, end, handler)
	l.Handlers = append(l.Handlers, Handler{start, end, handler, catchType})
}

func (l *Listing) Line(line int) {
	l.Lines = append(l.Lines, LineEntry{PC: len(l.Instructions), Line: line})
}

func (l *Listing) LocalVar(name string, t types.Type, slot int, start, end Label) {
	l.use(start, end)
	l.Locals = append(l.Locals, LocalEntry{name, t, slot, start, end})
}

// Verify checks the structural contract of the stream: every referenced
// label is bound, and the last instruction does not fall off the end.
func (l *Listing) Verify() error {
	for lbl := range l.used {
		switch pc := l.labels[lbl]; {
		case pc < 0:
			return fmt.Errorf("label %s referenced but never bound", lbl)
		case pc == len(l.Instructions) && !l.endsRange(lbl):
			return fmt.Errorf("label %s is bound past the last instruction", lbl)
		}
	}
	for _, h := range l.Handlers {
		if l.labels[h.Start] >= l.labels[h.End] {
			return fmt.Errorf("empty exception range %s..%s", h.Start, h.End)
		}
	}
	if n := len(l.Instructions); n == 0 || !l.Instructions[n-1].Op.IsTerminator() {
		return fmt.Errorf("control falls off the end of the code")
	}
	return nil
}

// Count returns how many instructions satisfy match.
func (l *Listing) Count(match func(Instruction) bool) int {
	n := 0
	for _, in := range l.Instructions {
		if match(in) {
			n++
		}
	}
	return n
}

// endsRange reports whether lbl closes an exception range or a local
// variable scope; only those may sit past the last instruction.
func (l *Listing) endsRange(lbl Label) bool {
	for _, h := range l.Handlers {
		if h.End == lbl {
			return true
		}
	}
	for _, v := range l.Locals {
		if v.End == lbl {
			return true
		}
	}
	return false
}
