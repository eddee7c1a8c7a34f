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

func TestOperandsStayOnStack(t *testing.T) {
	h := newHarness(t)
	code := h.method(types.Int, intInt, func(b *Block, p []*LocalVar) {
		b.ReturnValue(b.Sub(b.Mul(p[0], p[1]), Int(7)))
	})
	want := []string{"iload 0", "iload 1", "imul", "ldc int 7", "isub", "ireturn"}
	if diff := cmp.Diff(want, text(code)); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
	be.Equal(t, h.call(int32(6), int32(9)), any(int32(47)))
}

func TestSharedValueIsSpilledOnce(t *testing.T) {
	h := newHarness(t)
	h.cfg.SetWarning(config.WarnSpill, true)
	code := h.method(types.Int, intInt, func(b *Block, p []*LocalVar) {
		x := b.Add(p[0], p[1])
		b.ReturnValue(b.Mul(x, x))
	})
	want := []string{"iload 0", "iload 1", "iadd", "istore 2", "iload 2", "iload 2", "imul", "ireturn"}
	if diff := cmp.Diff(want, text(code)); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
	be.True(t, strings.Contains(h.diag.String(), "spilled to slot 2"))
	be.Equal(t, h.call(int32(2), int32(3)), any(int32(25)))
}

func TestOutOfOrderUse(t *testing.T) {
	h := newHarness(t)
	code := h.method(types.Int, intInt, func(b *Block, p []*LocalVar) {
		x := b.Add(p[0], Int(1))
		y := b.Add(p[1], Int(2))
		b.ReturnValue(b.Sub(y, x))
	})
	want := []string{
		"iload 0", "ldc int 1", "iadd", "istore 2",
		"iload 1", "ldc int 2", "iadd", "iload 2", "isub", "ireturn",
	}
	if diff := cmp.Diff(want, text(code)); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
	be.Equal(t, h.call(int32(10), int32(3)), any(int32(-6)))
}

func TestCallEvaluatedOnce(t *testing.T) {
	h := newHarness(t)
	code := h.method(types.Int, nil, func(b *Block, _ []*LocalVar) {
		v := b.InvokeStatic(nextFn)
		b.ReturnValue(b.Add(v, v))
	})
	be.Equal(t, code.Count(invokes(nextFn)), 1)
	be.Equal(t, h.call(), any(int32(2)))
	be.Equal(t, h.calls, int32(1))
}

func TestUnusedValueIsPopped(t *testing.T) {
	h := newHarness(t)
	h.cfg.SetWarning(config.WarnDiscardedValue, true)
	code := h.method(types.Void, nil, func(b *Block, _ []*LocalVar) {
		b.InvokeStatic(nextFn)
		b.Discard(b.InvokeStatic(nextFn))
	})
	be.Equal(t, code.Count(isOp(ir.OpPop)), 2)
	be.Equal(t, strings.Count(h.diag.String(), "never used"), 1)
	h.call()
	be.Equal(t, h.calls, int32(2))
}

func TestDiscardWithoutEffect(t *testing.T) {
	h := newHarness(t)
	code := h.method(types.Void, oneInt, func(b *Block, p []*LocalVar) {
		b.Discard(p[0])
		b.Discard(Int(7))
	})
	be.Equal(t, code.Count(isOp(ir.OpPop)), 0)
	be.Equal(t, strings.Count(h.diag.String(), "has no effect"), 2)
	be.True(t, strings.Contains(h.diag.String(), "[-Wextra]"))

	h = newHarness(t)
	h.cfg.SetWarning(config.WarnExtra, false)
	h.method(types.Void, nil, func(b *Block, _ []*LocalVar) { b.Discard(Int(7)) })
	be.Equal(t, h.diag.String(), "")
}

func TestValueUsedInNestedBlock(t *testing.T) {
	h := newHarness(t)
	h.method(types.Int, oneInt, func(b *Block, p []*LocalVar) {
		x := b.Add(p[0], Int(1))
		b.If(b.Gt(p[0], Int(0)), func(y *Block) { y.ReturnValue(x) })
		b.ReturnValue(Int(0))
	})
	be.Equal(t, h.call(int32(5)), any(int32(6)))
	be.Equal(t, h.call(int32(-1)), any(int32(0)))
}

func TestValueFromSiblingBlock(t *testing.T) {
	h := newHarness(t)
	_, err := h.build(types.Int, oneInt, func(b *Block, p []*LocalVar) {
		var x Expr
		b.Block(func(y *Block) { x = y.Add(p[0], Int(1)) })
		b.ReturnValue(x)
	})
	be.True(t, errors.Is(err, util.ErrIllegalBlockState))
}

func TestConstructorArgumentsFollowAllocation(t *testing.T) {
	h := newHarness(t)
	getMessage := types.Method(types.Throwable, "getMessage", types.String)
	code := h.method(types.String, nil, func(b *Block, _ []*LocalVar) {
		e := b.New(types.Constructor(runtimeExc, types.String), String("boom"))
		b.ReturnValue(b.InvokeVirtual(getMessage, e))
	})
	want := []string{
		"new java/lang/RuntimeException", "dup", `ldc "boom"`,
		"invokespecial java/lang/RuntimeException.<init>(Ljava/lang/String;)V",
		"invokevirtual java/lang/Throwable.getMessage()Ljava/lang/String;",
		"areturn",
	}
	if diff := cmp.Diff(want, text(code)); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
	be.Equal(t, h.call(), any("boom"))
}

func TestConversions(t *testing.T) {
	h := newHarness(t)
	h.method(types.Long, []types.Type{types.Int, types.IntegerBox}, func(b *Block, p []*LocalVar) {
		narrowed := b.Cast(p[0], types.Byte)
		b.ReturnValue(b.Add(narrowed, p[1]))
	})
	six := &vm.Object{Class: types.IntegerBox, Fields: map[string]any{}, Value: int32(6)}
	got := h.call(int32(200), six)
	be.Equal(t, got, any(int64(-50)))
}

func TestLocalVariableTable(t *testing.T) {
	h := newHarness(t)
	code := h.method(types.Int, oneInt, func(b *Block, p []*LocalVar) {
		x := b.LocalVar("x", types.Int, Int(3))
		b.Inc(x, 4)
		b.ReturnValue(b.Add(x, p[0]))
	})
	var names []string
	for _, lv := range code.Locals {
		names = append(names, lv.Name)
	}
	be.Equal(t, names, []string{"p0", "x"})
	be.Equal(t, code.Count(isOp(ir.OpIinc)), 1)
	be.Equal(t, h.call(int32(1)), any(int32(8)))
}

func TestLineNumbers(t *testing.T) {
	h := newHarness(t)
	code := h.method(types.Void, nil, func(b *Block, _ []*LocalVar) {
		b.Line(12)
		mark(b, 1)
	})
	be.Equal(t, code.Lines, []ir.LineEntry{{PC: 0, Line: 12}})

	h = newHarness(t)
	h.cfg.SetFeature(config.FeatLineNumbers, false)
	code = h.method(types.Void, nil, func(b *Block, _ []*LocalVar) {
		b.Line(12)
		mark(b, 1)
	})
	be.Equal(t, len(code.Lines), 0)
}
