package codegen

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/ir"
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
	"github.com/xplshn/gizmo/pkg/vm"
)

// counterClass declares a class with an int field, a constructor setting
// it, an instance getter and a static factory calling both.
func counterClass(c *ClassCreator) {
	n := c.Field("n", types.Int)
	ctor := c.Constructor(func(m *MethodCreator) {
		start := m.Param("start", types.Int)
		m.Body(func(b *Block) {
			b.InvokeSpecial(types.Constructor(types.Object), m.This())
			b.PutField(m.This(), n, start)
		})
	})
	get := c.Method("get", func(m *MethodCreator) {
		m.Returning(types.Int)
		m.Body(func(b *Block) {
			b.ReturnValue(b.Add(b.GetField(m.This(), n), Int(1)))
		})
	})
	c.StaticMethod("make", func(m *MethodCreator) {
		m.Returning(types.Int)
		m.Body(func(b *Block) {
			obj := b.New(ctor, Int(41))
			b.ReturnValue(b.InvokeVirtual(get, obj))
		})
	})
}

func TestInstanceMembers(t *testing.T) {
	g := New(nil)
	cls, err := g.Class("t/Counter", counterClass)
	be.Err(t, err, nil)
	be.Equal(t, len(cls.Methods), 3)
	be.Equal(t, cls.FindMethod("get").MaxLocals, 1)

	v, err := vm.New(g.Program()).Invoke("t/Counter", "make")
	be.Err(t, err, nil)
	be.Equal(t, v, any(int32(42)))
}

func TestDuplicateMembers(t *testing.T) {
	g := New(nil)
	_, err := g.Class("t/Dup", func(c *ClassCreator) {
		c.Field("x", types.Int)
		c.StaticField("x", types.Long)
	})
	be.True(t, errors.Is(err, util.ErrDuplicateDeclaration))

	_, err = g.Class("t/Dup", func(c *ClassCreator) {
		for range 2 {
			c.StaticMethod("f", func(m *MethodCreator) {
				m.Body(func(b *Block) {})
			})
		}
	})
	be.True(t, errors.Is(err, util.ErrDuplicateDeclaration))

	_, err = g.Class("t/Dup", func(c *ClassCreator) {
		c.StaticMethod("f", func(m *MethodCreator) {
			m.Param("a", types.Int)
			m.Param("a", types.Int)
		})
	})
	be.True(t, errors.Is(err, util.ErrDuplicateDeclaration))
	be.Equal(t, len(g.Program().Classes), 0)
}

func TestOverloadsByDescriptor(t *testing.T) {
	g := New(nil)
	_, err := g.Class("t/Over", func(c *ClassCreator) {
		c.StaticMethod("f", func(m *MethodCreator) { m.Body(func(b *Block) {}) })
		c.StaticMethod("f", func(m *MethodCreator) {
			m.Param("a", types.Int)
			m.Body(func(b *Block) {})
		})
	})
	be.Err(t, err, nil)
}

func TestMethodDeclarationErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func(c *ClassCreator)
		want error
	}{
		{"no body", func(c *ClassCreator) {
			c.StaticMethod("f", func(*MethodCreator) {})
		}, util.ErrIllegalBlockState},
		{"static this", func(c *ClassCreator) {
			c.StaticMethod("f", func(m *MethodCreator) { m.This() })
		}, util.ErrIllegalBlockState},
		{"void param", func(c *ClassCreator) {
			c.StaticMethod("f", func(m *MethodCreator) { m.Param("a", types.Void) })
		}, util.ErrIncompatibleType},
		{"constructor result", func(c *ClassCreator) {
			c.Constructor(func(m *MethodCreator) {
				m.Returning(types.Int)
				m.Body(func(b *Block) { b.ReturnValue(Int(1)) })
			})
		}, util.ErrIncompatibleType},
		{"null of primitive", func(c *ClassCreator) {
			c.StaticMethod("f", func(m *MethodCreator) {
				m.Returning(types.Int)
				m.Body(func(b *Block) { b.ReturnValue(Null(types.Int)) })
			})
		}, util.ErrIncompatibleType},
		{"return value from void", func(c *ClassCreator) {
			c.StaticMethod("f", func(m *MethodCreator) {
				m.Body(func(b *Block) { b.ReturnValue(Int(1)) })
			})
		}, util.ErrIncompatibleType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).Class("t/Bad", tt.fn)
			be.True(t, errors.Is(err, tt.want))
		})
	}
}

func TestGraphSnapshot(t *testing.T) {
	g := New(nil)
	var snaps []GraphSnapshot
	g.OnMethod = func(s GraphSnapshot) { snaps = append(snaps, s) }
	_, err := g.Class("t/Snap", func(c *ClassCreator) {
		c.StaticMethod("sum", func(m *MethodCreator) {
			a := m.Param("a", types.Int)
			b := m.Param("b", types.Int)
			m.Returning(types.Int)
			m.Body(func(x *Block) { x.ReturnValue(x.Add(a, b)) })
		})
		c.StaticMethod("square", func(m *MethodCreator) {
			a := m.Param("a", types.Int)
			m.Returning(types.Int)
			m.Body(func(b *Block) {
				x := b.Add(a, a)
				b.ReturnValue(b.Mul(x, x))
			})
		})
	})
	be.Err(t, err, nil)
	be.Equal(t, len(snaps), 2)

	kinds := func(s GraphSnapshot) []string {
		var ks []string
		for _, n := range s.Nodes {
			ks = append(ks, n.Kind)
		}
		return ks
	}
	want := []string{"local", "local", "binary", "return"}
	if diff := cmp.Diff(want, kinds(snaps[0])); diff != "" {
		t.Errorf("sum nodes mismatch (-want +got):\n%s", diff)
	}
	be.Equal(t, snaps[0].Class, "t/Snap")
	be.Equal(t, snaps[0].Slots, 2)
	sum := snaps[0].Nodes[2]
	be.Equal(t, sum.Deps, []NodeID{1, 2})
	be.True(t, sum.Block != 0)
	be.Equal(t, snaps[0].Nodes[0].Block, 0)

	spilled := 0
	for _, n := range snaps[1].Nodes {
		if n.Spilled {
			spilled++
			be.Equal(t, n.Slot, 1)
		}
	}
	be.Equal(t, spilled, 1)
	be.Equal(t, snaps[1].Slots, 2)
}

func buildSample(g *Gizmo) {
	g.Class("t/Sample", func(c *ClassCreator) {
		c.DefaultConstructor()
		c.StaticMethod("f", func(m *MethodCreator) {
			a := m.Param("a", types.String)
			m.Returning(types.Int)
			m.Body(func(b *Block) {
				b.Switch(a, func(s *SwitchCreator) {
					s.Case(func(x *Block) { x.ReturnValue(Int(1)) }, "one")
					s.Default(func(x *Block) { x.ReturnValue(Int(0)) })
				})
			})
		})
	})
}

func TestFingerprintIsStable(t *testing.T) {
	g1, g2 := New(nil), New(nil)
	buildSample(g1)
	buildSample(g2)
	be.Equal(t, g1.Program().Fingerprint(), g2.Program().Fingerprint())

	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatLocalVarTable, false)
	g3 := New(cfg)
	buildSample(g3)
	be.True(t, g1.Program().Fingerprint() != g3.Program().Fingerprint())
}

func TestBackends(t *testing.T) {
	g := New(nil)
	buildSample(g)
	cfg := config.NewConfig()

	lb, err := NewBackend("listing")
	be.Err(t, err, nil)
	out, err := lb.Generate(g.Program(), cfg)
	be.Err(t, err, nil)
	text := out.String()
	be.True(t, strings.Contains(text, "class t/Sample extends java/lang/Object {"))
	be.True(t, strings.Contains(text, "method public static f(Ljava/lang/String;)I"))
	be.True(t, strings.Contains(text, "invokevirtual java/lang/String.hashCode()I"))

	_, err = NewBackend("jvm")
	be.Err(t, err, "unknown backend")

	db, err := NewBackend("dump")
	be.Err(t, err, nil)
	out, err = db.Generate(g.Program(), cfg)
	be.Err(t, err, nil)
	be.True(t, out.Len() > 0)
}

func TestListingBackendRejectsMalformedCode(t *testing.T) {
	l := ir.NewListing()
	l.Const(ir.IntConst(1))
	prog := &ir.Program{Classes: []*ir.Class{{
		Name:    types.Class("t/Broken"),
		Methods: []*ir.Method{{Desc: types.Method(types.Class("t/Broken"), "f", types.Void), Code: l}},
	}}}
	lb, _ := NewBackend("listing")
	_, err := lb.Generate(prog, config.NewConfig())
	be.Err(t, err, "falls off the end")
}
