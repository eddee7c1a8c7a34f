package ir

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/gizmo/pkg/types"
)

type AccessFlags uint16

const (
	AccPublic    AccessFlags = 0x0001
	AccPrivate   AccessFlags = 0x0002
	AccProtected AccessFlags = 0x0004
	AccStatic    AccessFlags = 0x0008
	AccFinal     AccessFlags = 0x0010
	AccSynthetic AccessFlags = 0x1000
)

func (f AccessFlags) String() string {
	var parts []string
	for _, e := range []struct {
		flag AccessFlags
		name string
	}{
		{AccPublic, "public"}, {AccPrivate, "private"}, {AccProtected, "protected"},
		{AccStatic, "static"}, {AccFinal, "final"}, {AccSynthetic, "synthetic"},
	} {
		if f&e.flag != 0 {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, " ")
}

// Program is the set of classes produced by one or more builds.
type Program struct {
	Classes []*Class
}

type Class struct {
	Name       types.Type
	Super      types.Type
	Interfaces []types.Type
	Flags      AccessFlags
	Fields     []*Field
	Methods    []*Method
	Pool       *ConstPool
}

type Field struct {
	Name  string
	Type  types.Type
	Flags AccessFlags
}

type Method struct {
	Desc      types.MethodDesc
	Flags     AccessFlags
	Code      *Listing
	MaxLocals int
}

func (p *Program) FindClass(name types.Type) *Class {
	for _, c := range p.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (c *Class) FindMethod(name string) *Method {
	for _, m := range c.Methods {
		if m.Desc.Name == name {
			return m
		}
	}
	return nil
}

// Intern adds every constant referenced by the class' code to its pool.
func (c *Class) Intern() {
	if c.Pool == nil {
		c.Pool = NewConstPool()
	}
	for _, m := range c.Methods {
		if m.Code == nil {
			continue
		}
		for _, in := range m.Code.Instructions {
			if in.Op == OpConst && in.Const.Value != nil {
				c.Pool.Index(in.Const)
			}
		}
	}
}

// Render returns the text listing of every class in declaration order.
func (p *Program) Render() string {
	var sb strings.Builder
	for i, c := range p.Classes {
		if i > 0 {
			sb.WriteString("\n")
		}
		c.render(&sb)
	}
	return sb.String()
}

// Fingerprint is a content hash of the rendered program; two builds of the
// same classes with the same configuration produce the same fingerprint.
func (p *Program) Fingerprint() uint64 { return xxhash.Sum64String(p.Render()) }

// Fingerprint hashes the method's instruction listing alone.
func (m *Method) Fingerprint() uint64 {
	if m.Code == nil {
		return 0
	}
	return xxhash.Sum64String(m.Code.Render(nil))
}

func (c *Class) render(sb *strings.Builder) {
	fmt.Fprintf(sb, "class %s", c.Name.InternalName())
	if c.Super != types.Void {
		fmt.Fprintf(sb, " extends %s", c.Super.InternalName())
	}
	if len(c.Interfaces) > 0 {
		names := make([]string, len(c.Interfaces))
		for i, t := range c.Interfaces {
			names[i] = t.InternalName()
		}
		fmt.Fprintf(sb, " implements %s", strings.Join(names, ", "))
	}
	sb.WriteString(" {\n")
	for _, f := range c.Fields {
		fmt.Fprintf(sb, "  field %s %s %s\n", f.Flags, f.Name, f.Type.Descriptor())
	}
	for _, m := range c.Methods {
		fmt.Fprintf(sb, "\n  method %s %s%s", m.Flags, m.Desc.Name, m.Desc.Descriptor())
		if m.Code == nil {
			sb.WriteString("\n")
			continue
		}
		fmt.Fprintf(sb, " locals=%d\n", m.MaxLocals)
		sb.WriteString(m.Code.Render(c.Pool))
	}
	sb.WriteString("}\n")
}

// Render formats the instructions, one per line, with label definitions
// and the exception table. pool may be nil.
func (l *Listing) Render(pool *ConstPool) string {
	var sb strings.Builder
	lines := make(map[int][]int)
	for _, le := range l.Lines {
		lines[le.PC] = append(lines[le.PC], le.Line)
	}
	for pc := 0; pc <= len(l.Instructions); pc++ {
		for _, lbl := range l.LabelsAt(pc) {
			if l.used[lbl] {
				fmt.Fprintf(&sb, "  %s:\n", lbl)
			}
		}
		for _, n := range lines[pc] {
			fmt.Fprintf(&sb, "    // line %d\n", n)
		}
		if pc < len(l.Instructions) {
			fmt.Fprintf(&sb, "    %s\n", FormatInstruction(l.Instructions[pc], pool))
		}
	}
	for _, h := range l.Handlers {
		catch := "any"
		if h.Type != types.Void {
			catch = h.Type.InternalName()
		}
		fmt.Fprintf(&sb, "    try %s..%s -> %s %s\n", h.Start, h.End, h.Handler, catch)
	}
	locals := append([]LocalEntry(nil), l.Locals...)
	sort.SliceStable(locals, func(i, j int) bool { return locals[i].Slot < locals[j].Slot })
	for _, lv := range locals {
		fmt.Fprintf(&sb, "    local %d %s %s %s..%s\n", lv.Slot, lv.Name, lv.Type.Descriptor(), lv.Start, lv.End)
	}
	return sb.String()
}

var typedOps = map[Op]bool{
	OpLoad: true, OpStore: true, OpAdd: true, OpSub: true, OpMul: true, OpDiv: true,
	OpRem: true, OpNeg: true, OpShl: true, OpShr: true, OpUShr: true, OpAnd: true,
	OpOr: true, OpXor: true, OpReturn: true,
}

func arrayPrefix(elem types.Type) string {
	switch elem.Kind() {
	case types.KindBoolean, types.KindByte:
		return "b"
	case types.KindChar:
		return "c"
	case types.KindShort:
		return "s"
	}
	return elem.Repr().String()
}

// FormatInstruction renders one instruction in a javap-like syntax.
func FormatInstruction(in Instruction, pool *ConstPool) string {
	name := in.Op.String()
	if typedOps[in.Op] && !(in.Op == OpReturn && in.Repr == types.ReprVoid) {
		name = in.Repr.String() + name
	}
	switch in.Op {
	case OpConst:
		if pool != nil && in.Const.Value != nil {
			return fmt.Sprintf("ldc #%d // %s", pool.Index(in.Const), in.Const)
		}
		return "ldc " + in.Const.String()
	case OpLoad, OpStore:
		return fmt.Sprintf("%s %d", name, in.Slot)
	case OpIinc:
		return fmt.Sprintf("iinc %d %d", in.Slot, in.Delta)
	case OpTableSwitch:
		var sb strings.Builder
		fmt.Fprintf(&sb, "tableswitch low=%d", in.Low)
		for i, t := range in.Targets {
			fmt.Fprintf(&sb, " %d:%s", in.Low+int32(i), t)
		}
		fmt.Fprintf(&sb, " default:%s", in.Default)
		return sb.String()
	case OpLookupSwitch:
		var sb strings.Builder
		sb.WriteString("lookupswitch")
		for i, k := range in.Keys {
			fmt.Fprintf(&sb, " %d:%s", k, in.Targets[i])
		}
		fmt.Fprintf(&sb, " default:%s", in.Default)
		return sb.String()
	case OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic, OpInvokeInterface:
		return fmt.Sprintf("%s %s", name, in.Method)
	case OpGetStatic, OpPutStatic, OpGetField, OpPutField:
		return fmt.Sprintf("%s %s", name, in.Field)
	case OpNew, OpCheckCast, OpInstanceOf:
		return fmt.Sprintf("%s %s", name, in.Type.InternalName())
	case OpNewArray:
		return fmt.Sprintf("%s %s", name, in.Type.Descriptor())
	case OpArrayLoad, OpArrayStore:
		return arrayPrefix(in.Type) + name
	}
	if in.Op.IsBranch() {
		return fmt.Sprintf("%s %s", name, in.Target)
	}
	return name
}
