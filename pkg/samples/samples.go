// Package samples holds the demonstration classes built by the gizmo
// driver. Each sample names a static entry point the driver can execute.
package samples

import (
	"github.com/xplshn/gizmo/pkg/codegen"
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/vm"
)

type Sample struct {
	Class string
	Build func(c *codegen.ClassCreator)
	Entry string
	// Args returns the entry arguments; it may look up runtime constants.
	Args func(m *vm.VM) []any
	// Setup registers the runtime pieces the sample relies on.
	Setup func(m *vm.VM)
}

var (
	planet      = types.Class("demo/Planet")
	arithmetic  = types.Class("java/lang/ArithmeticException")
	planetNames = []string{"MERCURY", "VENUS", "EARTH", "MARS"}
)

func ints(vs ...int32) func(*vm.VM) []any {
	return func(*vm.VM) []any {
		out := make([]any, len(vs))
		for i, v := range vs {
			out[i] = v
		}
		return out
	}
}

// All returns the samples in build order.
func All() []Sample {
	return []Sample{
		{Class: "demo/Fib", Build: fib, Entry: "fib", Args: ints(20)},
		{Class: "demo/Words", Build: words, Entry: "classify", Args: func(*vm.VM) []any { return []any{"BB"} }},
		{
			Class: "demo/Planets",
			Build: planets,
			Entry: "moons",
			Args: func(m *vm.VM) []any {
				return []any{m.Static(types.Field(planet, "MARS", planet))}
			},
			Setup: func(m *vm.VM) { m.DefineEnum(planet, planetNames...) },
		},
		{Class: "demo/SafeDiv", Build: safeDiv, Entry: "div", Args: ints(7, 0)},
		{Class: "demo/Grades", Build: grades, Entry: "grade", Args: ints(87)},
		{Class: "demo/Counter", Build: counter, Entry: "make", Args: ints(41)},
	}
}

// Find returns the sample building class, if any.
func Find(class string) (Sample, bool) {
	for _, s := range All() {
		if s.Class == class {
			return s, true
		}
	}
	return Sample{}, false
}

// Build adds every sample class to g, stopping at the first failure.
func Build(g *codegen.Gizmo, ss []Sample) error {
	for _, s := range ss {
		if _, err := g.Class(s.Class, s.Build); err != nil {
			return err
		}
	}
	return nil
}

func fib(c *codegen.ClassCreator) {
	c.StaticMethod("fib", func(m *codegen.MethodCreator) {
		n := m.Param("n", types.Int)
		m.Returning(types.Int)
		m.Body(func(b *codegen.Block) {
			b.Line(1)
			a := b.LocalVar("a", types.Int, codegen.Int(0))
			x := b.LocalVar("b", types.Int, codegen.Int(1))
			i := b.LocalVar("i", types.Int, codegen.Int(0))
			b.While(func(l *codegen.Block) codegen.Expr { return l.Lt(i, n) }, func(body *codegen.Block) {
				body.Line(2)
				t := body.Local("t", body.Add(a, x))
				body.Set(a, x)
				body.Set(x, t)
				body.Inc(i, 1)
			})
			b.Line(3)
			b.ReturnValue(a)
		})
	})
}

// words switches on strings, two of which share a hash code.
func words(c *codegen.ClassCreator) {
	c.StaticMethod("classify", func(m *codegen.MethodCreator) {
		w := m.Param("w", types.String)
		m.Returning(types.Int)
		m.Body(func(b *codegen.Block) {
			b.Switch(w, func(s *codegen.SwitchCreator) {
				s.Case(func(x *codegen.Block) { x.ReturnValue(codegen.Int(0)) }, "zero")
				s.Case(func(x *codegen.Block) { x.ReturnValue(codegen.Int(1)) }, "one", "uno")
				s.Case(func(x *codegen.Block) { x.ReturnValue(codegen.Int(2)) }, "Aa")
				s.Case(func(x *codegen.Block) { x.ReturnValue(codegen.Int(3)) }, "BB")
				s.Default(func(x *codegen.Block) { x.ReturnValue(codegen.Int(-1)) })
			})
		})
	})
}

func planets(c *codegen.ClassCreator) {
	c.StaticMethod("moons", func(m *codegen.MethodCreator) {
		p := m.Param("p", planet)
		m.Returning(types.Int)
		m.Body(func(b *codegen.Block) {
			n := b.SwitchExpr(types.Int, p, func(s *codegen.SwitchCreator) {
				s.Case(func(x *codegen.Block) { x.Yield(codegen.Int(0)) }, codegen.EnumConst{Name: "MERCURY", Ordinal: 0}, codegen.EnumConst{Name: "VENUS", Ordinal: 1})
				s.Case(func(x *codegen.Block) { x.Yield(codegen.Int(1)) }, codegen.EnumConst{Name: "EARTH", Ordinal: 2})
				s.Case(func(x *codegen.Block) { x.Yield(codegen.Int(2)) }, codegen.EnumConst{Name: "MARS", Ordinal: 3})
			})
			b.ReturnValue(n)
		})
	})
}

// safeDiv counts its calls in a finally body and maps division by zero
// to -1.
func safeDiv(c *codegen.ClassCreator) {
	calls := c.StaticField("calls", types.Int)
	c.StaticMethod("div", func(m *codegen.MethodCreator) {
		a := m.Param("a", types.Int)
		d := m.Param("d", types.Int)
		m.Returning(types.Int)
		m.Body(func(b *codegen.Block) {
			b.Try(func(t *codegen.TryCreator) {
				t.Body(func(x *codegen.Block) { x.ReturnValue(x.Div(a, d)) })
				t.Catch(func(x *codegen.Block, _ *codegen.LocalVar) { x.ReturnValue(codegen.Int(-1)) }, arithmetic)
				t.Finally(func(f *codegen.Block) {
					f.PutStatic(calls, f.Add(f.GetStatic(calls), codegen.Int(1)))
				})
			})
		})
	})
	c.StaticMethod("calls", func(m *codegen.MethodCreator) {
		m.Returning(types.Int)
		m.Body(func(b *codegen.Block) { b.ReturnValue(b.GetStatic(calls)) })
	})
}

// grades maps a score to a letter through a dense switch on score/10.
func grades(c *codegen.ClassCreator) {
	c.StaticMethod("grade", func(m *codegen.MethodCreator) {
		score := m.Param("score", types.Int)
		m.Returning(types.Char)
		m.Body(func(b *codegen.Block) {
			b.Switch(b.Div(score, codegen.Int(10)), func(s *codegen.SwitchCreator) {
				s.Case(func(x *codegen.Block) { x.ReturnValue(codegen.Char('A')) }, 9, 10)
				s.Case(func(x *codegen.Block) { x.ReturnValue(codegen.Char('B')) }, 8)
				s.Case(func(x *codegen.Block) { x.ReturnValue(codegen.Char('C')) }, 7)
				s.Case(func(x *codegen.Block) { x.ReturnValue(codegen.Char('D')) }, 6)
				s.Default(func(x *codegen.Block) { x.ReturnValue(codegen.Char('F')) })
			})
		})
	})
}

func counter(c *codegen.ClassCreator) {
	n := c.Field("n", types.Int)
	ctor := c.Constructor(func(m *codegen.MethodCreator) {
		start := m.Param("start", types.Int)
		m.Body(func(b *codegen.Block) {
			b.InvokeSpecial(types.Constructor(types.Object), m.This())
			b.PutField(m.This(), n, start)
		})
	})
	next := c.Method("next", func(m *codegen.MethodCreator) {
		m.Returning(types.Int)
		m.Body(func(b *codegen.Block) {
			v := b.Add(b.GetField(m.This(), n), codegen.Int(1))
			b.PutField(m.This(), n, v)
			b.ReturnValue(v)
		})
	})
	c.StaticMethod("make", func(m *codegen.MethodCreator) {
		start := m.Param("start", types.Int)
		m.Returning(types.Int)
		m.Body(func(b *codegen.Block) {
			obj := b.Local("c", b.New(ctor, start))
			b.ReturnValue(b.InvokeVirtual(next, obj))
		})
	})
}
