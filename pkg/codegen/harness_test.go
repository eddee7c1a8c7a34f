package codegen

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/ir"
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/vm"
)

var (
	host   = types.Class("t/Host")
	markFn = types.Method(host, "mark", types.Void, types.Int)
	nextFn = types.Method(host, "next", types.Int)

	runtimeExc = types.Class("java/lang/RuntimeException")
	arithExc   = types.Class("java/lang/ArithmeticException")
)

// harness builds one class and runs it on the interpreter. The host
// natives record marks and count calls.
type harness struct {
	t     *testing.T
	cfg   *config.Config
	g     *Gizmo
	diag  bytes.Buffer
	marks []int32
	calls int32
	vm    *vm.VM
}

func newHarness(t *testing.T) *harness {
	h := &harness{t: t, cfg: config.NewConfig()}
	h.cfg.Diagnostics = &h.diag
	h.cfg.Color = false
	h.g = New(h.cfg)
	return h
}

// build adds a static method f with the given signature to class
// t/Subject.
func (h *harness) build(ret types.Type, params []types.Type, body func(b *Block, p []*LocalVar)) (*ir.Listing, error) {
	cls, err := h.g.Class("t/Subject", func(c *ClassCreator) {
		c.StaticMethod("f", func(m *MethodCreator) {
			args := make([]*LocalVar, len(params))
			for i, pt := range params {
				args[i] = m.Param(fmt.Sprintf("p%d", i), pt)
			}
			m.Returning(ret)
			m.Body(func(b *Block) { body(b, args) })
		})
	})
	if err != nil {
		return nil, err
	}
	return cls.FindMethod("f").Code, nil
}

func (h *harness) method(ret types.Type, params []types.Type, body func(b *Block, p []*LocalVar)) *ir.Listing {
	h.t.Helper()
	code, err := h.build(ret, params, body)
	be.Err(h.t, err, nil)
	return code
}

func (h *harness) machine() *vm.VM {
	if h.vm == nil {
		h.vm = vm.New(h.g.Program())
		h.vm.Register(markFn, func(_ *vm.VM, args []any) any {
			h.marks = append(h.marks, args[0].(int32))
			return nil
		})
		h.vm.Register(nextFn, func(*vm.VM, []any) any {
			h.calls++
			return h.calls
		})
	}
	return h.vm
}

// invoke runs f with fresh marks.
func (h *harness) invoke(args ...any) (any, error) {
	h.marks = nil
	return h.machine().Invoke("t/Subject", "f", args...)
}

func (h *harness) call(args ...any) any {
	h.t.Helper()
	v, err := h.invoke(args...)
	be.Err(h.t, err, nil)
	return v
}

func isOp(op ir.Op) func(ir.Instruction) bool {
	return func(in ir.Instruction) bool { return in.Op == op }
}

func invokes(m types.MethodDesc) func(ir.Instruction) bool {
	return func(in ir.Instruction) bool {
		return in.Op >= ir.OpInvokeVirtual && in.Op <= ir.OpInvokeInterface && in.Method.Key() == m.Key() && in.Method.Owner == m.Owner
	}
}

// text renders the instructions without labels or pool indices.
func text(code *ir.Listing) []string {
	out := make([]string, len(code.Instructions))
	for i, in := range code.Instructions {
		out[i] = ir.FormatInstruction(in, nil)
	}
	return out
}

func mark(b *Block, n int32) { b.InvokeStatic(markFn, Int(n)) }

var (
	intInt = []types.Type{types.Int, types.Int}
	oneInt = []types.Type{types.Int}
)
