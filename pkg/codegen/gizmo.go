// Package codegen builds method bodies for stack-machine class files from a
// graph of expression nodes and structured blocks.
//
// Operations are recorded into a per-method node arena as the caller builds
// them. Every value-producing operation is scheduled exactly once, at the
// point it was built, and consumers take their operands straight from the
// operand stack where possible; out-of-order and shared uses go through
// temporaries. Control flow is structured: blocks, conditionals, loops,
// switches and try statements nest, and jumps may only target enclosing
// blocks. Finally bodies are replicated on every path that leaves their
// region.
//
// Structural errors panic internally and are returned from Gizmo.Class as
// *util.Error; a failed class produces no output.
package codegen

import (
	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/ir"
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
)

// Gizmo builds classes under one configuration. It is not safe for
// concurrent use; distinct instances are independent.
type Gizmo struct {
	cfg  *config.Config
	prog *ir.Program

	// OnMethod, if set, receives the expression graph of every method
	// after it has been built.
	OnMethod func(GraphSnapshot)
}

func New(cfg *config.Config) *Gizmo {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Gizmo{cfg: cfg, prog: &ir.Program{}}
}

// Program returns every class built successfully so far.
func (g *Gizmo) Program() *ir.Program { return g.prog }

// Class builds the class with the given internal name. On error the class
// is discarded.
func (g *Gizmo) Class(name string, fn func(*ClassCreator)) (cls *ir.Class, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, ok := r.(*util.Error)
		if !ok {
			panic(r)
		}
		if e.Class == "" {
			e.Class = name
		}
		cls, err = nil, e
	}()

	cc := &ClassCreator{
		g: g,
		class: &ir.Class{
			Name:  types.Class(name),
			Super: types.Object,
			Flags: ir.AccPublic,
		},
		fields:  make(map[string]bool),
		methods: make(map[string]bool),
	}
	fn(cc)
	cc.class.Intern()
	g.prog.Classes = append(g.prog.Classes, cc.class)
	util.Info(g.cfg, "built class %s with %d methods", name, len(cc.class.Methods))
	return cc.class, nil
}

// ClassCreator declares the members of one class.
type ClassCreator struct {
	g       *Gizmo
	class   *ir.Class
	fields  map[string]bool
	methods map[string]bool
}

func (c *ClassCreator) Type() types.Type { return c.class.Name }

func (c *ClassCreator) Extends(super types.Type) { c.class.Super = super }

func (c *ClassCreator) Implements(ifaces ...types.Type) {
	c.class.Interfaces = append(c.class.Interfaces, ifaces...)
}

func (c *ClassCreator) Flags(f ir.AccessFlags) { c.class.Flags = f }

func (c *ClassCreator) field(name string, t types.Type, flags ir.AccessFlags) types.FieldDesc {
	if c.fields[name] {
		util.Throw(util.DuplicateDeclaration("field %s already declared", name))
	}
	if t.IsVoid() || t.IsNull() {
		util.Throw(util.IncompatibleType("field %s cannot have type %s", name, t))
	}
	c.fields[name] = true
	c.class.Fields = append(c.class.Fields, &ir.Field{Name: name, Type: t, Flags: flags})
	return types.Field(c.class.Name, name, t)
}

func (c *ClassCreator) Field(name string, t types.Type) types.FieldDesc {
	return c.field(name, t, ir.AccPrivate)
}

func (c *ClassCreator) StaticField(name string, t types.Type) types.FieldDesc {
	return c.field(name, t, ir.AccPrivate|ir.AccStatic)
}

// Method builds an instance method.
func (c *ClassCreator) Method(name string, fn func(*MethodCreator)) types.MethodDesc {
	return c.method(name, false, fn)
}

func (c *ClassCreator) StaticMethod(name string, fn func(*MethodCreator)) types.MethodDesc {
	return c.method(name, true, fn)
}

// Constructor builds an instance initializer. The body must invoke a
// superclass or sibling constructor on This.
func (c *ClassCreator) Constructor(fn func(*MethodCreator)) types.MethodDesc {
	return c.method("<init>", false, fn)
}

// DefaultConstructor adds a no-argument constructor delegating to the
// superclass.
func (c *ClassCreator) DefaultConstructor() types.MethodDesc {
	return c.Constructor(func(mc *MethodCreator) {
		mc.Body(func(b *Block) {
			b.InvokeSpecial(types.Constructor(c.class.Super), mc.This())
			b.Return()
		})
	})
}

func (c *ClassCreator) method(name string, static bool, fn func(*MethodCreator)) types.MethodDesc {
	m := &MethodCreator{
		cc:     c,
		cfg:    c.g.cfg,
		name:   name,
		static: static,
		flags:  ir.AccPublic,
		ret:    types.Void,
		g:      newGraph(),
		w:      ir.NewListing(),
	}
	if static {
		m.flags |= ir.AccStatic
	} else {
		m.this = &LocalVar{m: m, name: "this", typ: c.class.Name, slot: m.allocSlot(c.class.Name), start: ir.NoLabel}
	}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*util.Error); ok && e.Method == "" {
				e.Method = name
			}
			panic(r)
		}
	}()
	fn(m)
	c.class.Methods = append(c.class.Methods, m.build())
	return m.Desc()
}

// MethodCreator declares a method's signature and body.
type MethodCreator struct {
	cc     *ClassCreator
	cfg    *config.Config
	name   string
	static bool
	flags  ir.AccessFlags
	params []*LocalVar
	ret    types.Type
	body   func(*Block)
	this   *LocalVar

	g           *graph
	w           *ir.Listing
	root        *Block
	nextSlot    int
	nextBlock   int
	nextCleanup int
	named       []*LocalVar
	retSlot     *LocalVar
}

// Param declares the next parameter.
func (m *MethodCreator) Param(name string, t types.Type) *LocalVar {
	if m.body != nil {
		util.Throw(util.IllegalBlockState("parameter %s declared after the body", name))
	}
	for _, p := range m.params {
		if p.name == name {
			util.Throw(util.DuplicateDeclaration("parameter %s already declared", name))
		}
	}
	if t.IsVoid() || t.IsNull() {
		util.Throw(util.IncompatibleType("parameter %s cannot have type %s", name, t))
	}
	p := &LocalVar{m: m, name: name, typ: t, slot: m.allocSlot(t), start: ir.NoLabel}
	m.params = append(m.params, p)
	return p
}

func (m *MethodCreator) Returning(t types.Type) {
	if t.IsNull() {
		util.Throw(util.IncompatibleType("method cannot return the null type"))
	}
	m.ret = t
}

func (m *MethodCreator) Flags(f ir.AccessFlags) {
	m.flags = f
	if m.static {
		m.flags |= ir.AccStatic
	}
}

// This returns the receiver of an instance method.
func (m *MethodCreator) This() *LocalVar {
	if m.this == nil {
		util.Throw(util.IllegalBlockState("static method %s has no receiver", m.name))
	}
	return m.this
}

// Body sets the function that builds the method body.
func (m *MethodCreator) Body(fn func(*Block)) {
	if m.body != nil {
		util.Throw(util.DuplicateDeclaration("method %s already has a body", m.name))
	}
	m.body = fn
}

func (m *MethodCreator) Desc() types.MethodDesc {
	ps := make([]types.Type, len(m.params))
	for i, p := range m.params {
		ps[i] = p.typ
	}
	return types.Method(m.cc.class.Name, m.name, m.ret, ps...)
}

func (m *MethodCreator) build() *ir.Method {
	desc := m.Desc()
	if m.cc.methods[desc.Key()] {
		util.Throw(util.DuplicateDeclaration("method %s already declared", desc))
	}
	m.cc.methods[desc.Key()] = true
	if desc.IsConstructor() && !m.ret.IsVoid() {
		util.Throw(util.IncompatibleType("constructor cannot return %s", m.ret))
	}
	if m.body == nil {
		util.Throw(util.IllegalBlockState("method %s has no body", m.name))
	}

	m.root = m.newBlock(nil, blockMethod)
	m.root.state = stateActive
	m.body(m.root)
	m.root.close()
	m.emit()
	if err := m.w.Verify(); err != nil {
		util.Throw(util.IllegalBlockState("malformed code: %v", err))
	}
	if m.cc.g.OnMethod != nil {
		m.cc.g.OnMethod(m.Snapshot())
	}
	return &ir.Method{Desc: desc, Flags: m.flags, Code: m.w, MaxLocals: m.nextSlot}
}

func (m *MethodCreator) allocSlot(t types.Type) int {
	s := m.nextSlot
	m.nextSlot += t.Slots()
	return s
}

// newLocal allocates a fresh slot; slots are never reused within a method.
func (m *MethodCreator) newLocal(name string, t types.Type, scope *Block) *LocalVar {
	v := &LocalVar{m: m, name: name, typ: t, slot: m.allocSlot(t), scope: scope, start: ir.NoLabel}
	if name != "" {
		m.named = append(m.named, v)
	}
	return v
}

// returnSlot holds the pending return value while finally bodies run.
func (m *MethodCreator) returnSlot() *LocalVar {
	if m.retSlot == nil {
		m.retSlot = m.newLocal("", m.ret, nil)
	}
	return m.retSlot
}

func (m *MethodCreator) loc() util.Location {
	return util.Location{Class: m.cc.class.Name.InternalName(), Method: m.name}
}
