package codegen

import (
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
	"github.com/xplshn/gizmo/pkg/vm"
)

func throwNew(b *Block, cls types.Type) {
	b.Throw(b.New(types.Constructor(cls)))
}

func TestFinallyOnFallThrough(t *testing.T) {
	h := newHarness(t)
	h.method(types.Void, nil, func(b *Block, _ []*LocalVar) {
		b.Try(func(tc *TryCreator) {
			tc.Body(func(x *Block) { mark(x, 1) })
			tc.Finally(func(f *Block) { mark(f, 9) })
		})
		mark(b, 2)
	})
	h.call()
	be.Equal(t, h.marks, []int32{1, 9, 2})
}

func TestFinallyOnReturn(t *testing.T) {
	h := newHarness(t)
	code := h.method(types.Int, oneInt, func(b *Block, p []*LocalVar) {
		b.Try(func(tc *TryCreator) {
			tc.Body(func(x *Block) { x.ReturnValue(x.Mul(p[0], Int(2))) })
			tc.Finally(func(f *Block) { mark(f, 9) })
		})
	})
	be.Equal(t, h.call(int32(5)), any(int32(10)))
	be.Equal(t, h.marks, []int32{9})
	// one replica for the return, one for the exceptional path
	be.Equal(t, code.Count(invokes(markFn)), 2)
}

func TestFinallyOnBreak(t *testing.T) {
	h := newHarness(t)
	h.method(types.Void, nil, func(b *Block, _ []*LocalVar) {
		b.Loop(func(l *Block) {
			l.Try(func(tc *TryCreator) {
				tc.Body(func(x *Block) { x.Break(l) })
				tc.Finally(func(f *Block) { mark(f, 9) })
			})
		})
		mark(b, 4)
	})
	h.call()
	be.Equal(t, h.marks, []int32{9, 4})
}

func TestFinallyOnContinue(t *testing.T) {
	h := newHarness(t)
	h.method(types.Void, nil, func(b *Block, _ []*LocalVar) {
		i := b.LocalVar("i", types.Int, nil)
		b.While(func(l *Block) Expr { return l.Lt(i, Int(3)) }, func(x *Block) {
			x.Inc(i, 1)
			x.Try(func(tc *TryCreator) {
				tc.Body(func(y *Block) {
					y.If(y.Eq(i, Int(2)), func(z *Block) { z.Continue(x) })
					y.InvokeStatic(markFn, i)
				})
				tc.Finally(func(f *Block) { mark(f, 9) })
			})
		})
	})
	h.call()
	be.Equal(t, h.marks, []int32{1, 9, 9, 3, 9})
}

func TestFinallyOnCaughtException(t *testing.T) {
	h := newHarness(t)
	code := h.method(types.Void, nil, func(b *Block, _ []*LocalVar) {
		b.Try(func(tc *TryCreator) {
			tc.Body(func(x *Block) {
				mark(x, 1)
				throwNew(x, runtimeExc)
			})
			tc.Catch(func(c *Block, _ *LocalVar) { mark(c, 3) }, runtimeExc)
			tc.Finally(func(f *Block) { mark(f, 9) })
		})
		mark(b, 4)
	})
	h.call()
	be.Equal(t, h.marks, []int32{1, 3, 9, 4})
	be.Equal(t, len(code.Handlers), 2)
	be.Equal(t, code.Handlers[1].Type, types.Void)
}

func TestFinallyOnUncaughtException(t *testing.T) {
	h := newHarness(t)
	h.method(types.Int, oneInt, func(b *Block, p []*LocalVar) {
		b.Try(func(tc *TryCreator) {
			tc.Body(func(x *Block) { x.ReturnValue(x.Div(Int(12), p[0])) })
			tc.Finally(func(f *Block) { mark(f, 9) })
		})
	})
	be.Equal(t, h.call(int32(4)), any(int32(3)))
	be.Equal(t, h.marks, []int32{9})

	_, err := h.invoke(int32(0))
	var exc *vm.Exception
	be.True(t, errors.As(err, &exc))
	be.Equal(t, exc.Obj.Class, arithExc)
	be.Equal(t, h.marks, []int32{9})
}

func TestFinallyInCatchThrow(t *testing.T) {
	h := newHarness(t)
	h.method(types.Void, nil, func(b *Block, _ []*LocalVar) {
		b.Try(func(tc *TryCreator) {
			tc.Body(func(x *Block) { throwNew(x, arithExc) })
			tc.Catch(func(c *Block, caught *LocalVar) { c.Throw(caught) }, arithExc)
			tc.Finally(func(f *Block) { mark(f, 9) })
		})
	})
	_, err := h.invoke()
	var exc *vm.Exception
	be.True(t, errors.As(err, &exc))
	be.Equal(t, exc.Obj.Class, arithExc)
	be.Equal(t, h.marks, []int32{9})
}

func TestNestedFinally(t *testing.T) {
	h := newHarness(t)
	h.method(types.Void, nil, func(b *Block, _ []*LocalVar) {
		b.Try(func(outer *TryCreator) {
			outer.Body(func(x *Block) {
				x.Try(func(inner *TryCreator) {
					inner.Body(func(y *Block) {
						mark(y, 0)
						y.Return()
					})
					inner.Finally(func(f *Block) { mark(f, 1) })
				})
			})
			outer.Finally(func(f *Block) { mark(f, 2) })
		})
	})
	h.call()
	be.Equal(t, h.marks, []int32{0, 1, 2})
}

func TestNestedFinallyOnException(t *testing.T) {
	h := newHarness(t)
	h.method(types.Void, nil, func(b *Block, _ []*LocalVar) {
		b.Try(func(outer *TryCreator) {
			outer.Body(func(x *Block) {
				x.Try(func(inner *TryCreator) {
					inner.Body(func(y *Block) { throwNew(y, runtimeExc) })
					inner.Finally(func(f *Block) { mark(f, 1) })
				})
			})
			outer.Catch(func(c *Block, _ *LocalVar) { mark(c, 2) }, runtimeExc)
			outer.Finally(func(f *Block) { mark(f, 3) })
		})
	})
	h.call()
	be.Equal(t, h.marks, []int32{1, 2, 3})
}

func TestFinallyOverridesReturn(t *testing.T) {
	h := newHarness(t)
	h.method(types.Int, nil, func(b *Block, _ []*LocalVar) {
		b.Try(func(tc *TryCreator) {
			tc.Body(func(x *Block) { x.ReturnValue(Int(1)) })
			tc.Finally(func(f *Block) { f.ReturnValue(Int(2)) })
		})
	})
	be.Equal(t, h.call(), any(int32(2)))
}

func TestCatchClausesInOrder(t *testing.T) {
	h := newHarness(t)
	h.method(types.Int, oneInt, func(b *Block, p []*LocalVar) {
		r := b.LocalVar("r", types.Int, nil)
		b.Try(func(tc *TryCreator) {
			tc.Body(func(x *Block) {
				x.If(x.Eq(p[0], Int(0)), func(y *Block) { throwNew(y, arithExc) })
				x.If(x.Eq(p[0], Int(1)), func(y *Block) { throwNew(y, runtimeExc) })
				x.Set(r, Int(-1))
			})
			tc.Catch(func(c *Block, _ *LocalVar) { c.Set(r, Int(10)) }, arithExc)
			tc.Catch(func(c *Block, _ *LocalVar) { c.Set(r, Int(20)) }, runtimeExc)
		})
		b.ReturnValue(r)
	})
	be.Equal(t, h.call(int32(0)), any(int32(10)))
	be.Equal(t, h.call(int32(1)), any(int32(20)))
	be.Equal(t, h.call(int32(2)), any(int32(-1)))
}

func TestMultiCatch(t *testing.T) {
	h := newHarness(t)
	npe := types.Class("java/lang/NullPointerException")
	code := h.method(types.Int, nil, func(b *Block, _ []*LocalVar) {
		b.Try(func(tc *TryCreator) {
			tc.Body(func(x *Block) { throwNew(x, npe) })
			tc.Catch(func(c *Block, caught *LocalVar) {
				c.ReturnValue(c.Cond(types.Int, c.InstanceOf(caught, npe),
					func(*Block) Expr { return Int(1) },
					func(*Block) Expr { return Int(2) }))
			}, arithExc, npe)
		})
	})
	be.Equal(t, len(code.Handlers), 2)
	be.Equal(t, code.Handlers[0].Handler, code.Handlers[1].Handler)
	be.Equal(t, h.call(), any(int32(1)))
}

func TestTryInsideExpression(t *testing.T) {
	h := newHarness(t)
	h.method(types.Int, oneInt, func(b *Block, p []*LocalVar) {
		x := b.Mul(p[0], Int(3))
		v := b.BlockExpr(types.Int, func(e *Block) {
			r := e.LocalVar("r", types.Int, nil)
			e.Try(func(tc *TryCreator) {
				tc.Body(func(y *Block) { y.Set(r, y.Div(Int(10), p[0])) })
				tc.Catch(func(c *Block, _ *LocalVar) { c.Set(r, Int(-1)) }, arithExc)
			})
			e.Yield(r)
		})
		b.ReturnValue(b.Add(x, v))
	})
	be.Equal(t, h.call(int32(2)), any(int32(11)))
	be.Equal(t, h.call(int32(0)), any(int32(-1)))
}

func TestYieldOutOfFinallyRegion(t *testing.T) {
	h := newHarness(t)
	_, err := h.build(types.Int, nil, func(b *Block, _ []*LocalVar) {
		b.ReturnValue(b.BlockExpr(types.Int, func(e *Block) {
			e.Try(func(tc *TryCreator) {
				tc.Body(func(y *Block) { y.Yield(Int(1)) })
				tc.Finally(func(f *Block) { mark(f, 9) })
			})
			e.Yield(Int(0))
		}))
	})
	be.True(t, errors.Is(err, util.ErrUnsupportedConstruct))
}

func TestDuplicateFinallyWarning(t *testing.T) {
	h := newHarness(t)
	h.cfg.MaxFinallyCopies = 1
	h.method(types.Void, oneInt, func(b *Block, p []*LocalVar) {
		b.Try(func(tc *TryCreator) {
			tc.Body(func(x *Block) {
				x.If(x.Eq(p[0], Int(0)), func(y *Block) { y.Return() })
			})
			tc.Finally(func(f *Block) { mark(f, 9) })
		})
	})
	be.Equal(t, strings.Count(h.diag.String(), "finally body replicated 2 times"), 1)
}

func TestTryDeclarationErrors(t *testing.T) {
	nop := func(*Block) {}
	tests := []struct {
		name string
		fn   func(tc *TryCreator)
		want error
	}{
		{"no body", func(tc *TryCreator) {}, util.ErrIllegalBlockState},
		{"two bodies", func(tc *TryCreator) {
			tc.Body(nop)
			tc.Body(nop)
		}, util.ErrDuplicateDeclaration},
		{"two finally", func(tc *TryCreator) {
			tc.Body(nop)
			tc.Finally(nop)
			tc.Finally(nop)
		}, util.ErrDuplicateDeclaration},
		{"caught twice", func(tc *TryCreator) {
			tc.Body(nop)
			tc.Catch(nil, runtimeExc)
			tc.Catch(nil, arithExc, runtimeExc)
		}, util.ErrDuplicateDeclaration},
		{"primitive catch", func(tc *TryCreator) {
			tc.Body(nop)
			tc.Catch(nil, types.Int)
		}, util.ErrIncompatibleType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.build(types.Void, nil, func(b *Block, _ []*LocalVar) { b.Try(tt.fn) })
			be.True(t, errors.Is(err, tt.want))
		})
	}
}

func TestHandlerRangesAreOrdered(t *testing.T) {
	h := newHarness(t)
	code := h.method(types.Void, nil, func(b *Block, _ []*LocalVar) {
		b.Try(func(outer *TryCreator) {
			outer.Body(func(x *Block) {
				x.Try(func(inner *TryCreator) {
					inner.Body(func(y *Block) { mark(y, 1) })
					inner.Catch(nil, arithExc)
				})
			})
			outer.Catch(nil, runtimeExc)
		})
	})
	be.Equal(t, len(code.Handlers), 2)
	be.Equal(t, code.Handlers[0].Type, arithExc)
	in, out := code.Handlers[0], code.Handlers[1]
	be.True(t, code.PC(out.Start) <= code.PC(in.Start) && code.PC(in.End) <= code.PC(out.End))
	be.Err(t, code.Verify(), nil)
}
