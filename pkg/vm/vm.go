// Package vm interprets recorded listings. It runs generated methods in
// tests and in the driver's --run mode, with a small runtime of boxing,
// string, enum and throwable intrinsics and host-provided natives.
package vm

import (
	"errors"
	"fmt"
	"math"

	"github.com/xplshn/gizmo/pkg/ir"
	"github.com/xplshn/gizmo/pkg/types"
)

// Native implements a method outside the program. It may raise a
// throwable with vm.Throw.
type Native func(vm *VM, args []any) any

var ErrStepBudget = errors.New("vm: step budget exhausted")

type VM struct {
	prog    *ir.Program
	natives map[string]Native
	statics map[string]any
	enums   map[string]*Object
	// enumOwners marks classes registered with DefineEnum.
	enumOwners map[string]bool

	// MaxSteps bounds the instructions executed by one Invoke; zero means
	// the default.
	MaxSteps int
	steps    int
	depth    int
}

const defaultMaxSteps = 1_000_000

func New(prog *ir.Program) *VM {
	vm := &VM{
		prog:       prog,
		natives:    make(map[string]Native),
		statics:    make(map[string]any),
		enums:      make(map[string]*Object),
		enumOwners: make(map[string]bool),
	}
	vm.installIntrinsics()
	return vm
}

func nativeKey(m types.MethodDesc) string {
	return m.Owner.InternalName() + "." + m.Name + m.Descriptor()
}

// Register binds a native implementation to m.
func (vm *VM) Register(m types.MethodDesc, fn Native) { vm.natives[nativeKey(m)] = fn }

// DefineEnum registers an enum class whose constants, with ordinals in
// order, are read through getstatic.
func (vm *VM) DefineEnum(owner types.Type, names ...string) {
	vm.enumOwners[owner.InternalName()] = true
	for i, n := range names {
		vm.enums[owner.InternalName()+"."+n] = &Object{
			Class:  owner,
			Fields: map[string]any{"name": n, "ordinal": int32(i)},
		}
	}
}

// Static returns the value of a static field or enum constant.
func (vm *VM) Static(f types.FieldDesc) any {
	key := f.Owner.InternalName() + "." + f.Name
	if e, ok := vm.enums[key]; ok {
		return e
	}
	if v, ok := vm.statics[key]; ok {
		return v
	}
	return zeroOf(f.Type)
}

// thrown carries a throwable through Go panics inside one interpreter
// step; it never crosses Invoke.
type thrown struct{ obj *Object }

// Throw raises a new throwable of class cls from a native.
func (vm *VM) Throw(cls string, msg string) {
	panic(thrown{&Object{Class: types.Class(cls), Fields: map[string]any{}, Value: msg}})
}

// Invoke runs the method name of class owner with args, the receiver
// first for instance methods. An uncaught throwable is returned as an
// *Exception.
func (vm *VM) Invoke(owner, name string, args ...any) (any, error) {
	cls := vm.prog.FindClass(types.Class(owner))
	if cls == nil {
		return nil, fmt.Errorf("vm: class %s not found", owner)
	}
	m := cls.FindMethod(name)
	if m == nil {
		return nil, fmt.Errorf("vm: method %s.%s not found", owner, name)
	}
	vm.steps = 0
	v, exc, err := vm.run(m, args)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		trace, _ := exc.Fields["stackTrace"].([]string)
		return nil, &Exception{Obj: exc, Trace: trace}
	}
	return v, nil
}

type frame struct {
	m      *ir.Method
	code   *ir.Listing
	locals []any
	stack  []any
	pc     int
}

func (f *frame) push(v any) { f.stack = append(f.stack, v) }

func (f *frame) pop() any {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *frame) popN(n int) []any {
	args := make([]any, n)
	copy(args, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return args
}

func (f *frame) jump(l ir.Label) { f.pc = f.code.PC(l) }

// run executes m. It returns the result, or the throwable that escaped it.
func (vm *VM) run(m *ir.Method, args []any) (result any, exc *Object, err error) {
	vm.depth++
	defer func() { vm.depth-- }()
	if vm.depth > 512 {
		return nil, nil, fmt.Errorf("vm: call depth exceeded in %s", m.Desc)
	}
	f := &frame{m: m, code: m.Code, locals: make([]any, max(m.MaxLocals, 1))}
	slot := 0
	for _, a := range args {
		f.locals[slot] = a
		switch a.(type) {
		case int64, float64:
			slot += 2
		default:
			slot++
		}
	}
	limit := vm.MaxSteps
	if limit == 0 {
		limit = defaultMaxSteps
	}

	for {
		if f.pc >= len(f.code.Instructions) {
			return nil, nil, fmt.Errorf("vm: %s fell off the end of its code", m.Desc)
		}
		vm.steps++
		if vm.steps > limit {
			return nil, nil, ErrStepBudget
		}
		in := f.code.Instructions[f.pc]
		f.pc++

		ret, done, t, err := vm.step(f, in)
		if err != nil {
			return nil, nil, err
		}
		if t != nil {
			if !vm.handle(f, t) {
				trace, _ := t.Fields["stackTrace"].([]string)
				t.Fields["stackTrace"] = append(trace, m.Desc.String())
				return nil, t, nil
			}
			continue
		}
		if done {
			return ret, nil, nil
		}
	}
}

// handle transfers control to the first handler covering the faulting
// instruction that accepts t.
func (vm *VM) handle(f *frame, t *Object) bool {
	pc := f.pc - 1
	for _, h := range f.code.Handlers {
		if pc < f.code.PC(h.Start) || pc >= f.code.PC(h.End) {
			continue
		}
		if h.Type.IsVoid() || vm.isInstance(t, h.Type) {
			f.stack = append(f.stack[:0], t)
			f.jump(h.Handler)
			return true
		}
	}
	return false
}

// step executes one instruction. A throwable raised by it, by an
// intrinsic or by a callee is returned in t.
func (vm *VM) step(f *frame, in ir.Instruction) (ret any, done bool, t *Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			th, ok := r.(thrown)
			if !ok {
				panic(r)
			}
			t = th.obj
		}
	}()

	switch in.Op {
	case ir.OpNop, ir.OpMonitorEnter, ir.OpMonitorExit:
		if in.Op != ir.OpNop {
			vm.nonNull(f.pop())
		}
	case ir.OpConst:
		f.push(in.Const.Value)
	case ir.OpLoad:
		f.push(f.locals[in.Slot])
	case ir.OpStore:
		f.locals[in.Slot] = f.pop()
	case ir.OpIinc:
		f.locals[in.Slot] = f.locals[in.Slot].(int32) + int32(in.Delta)
	case ir.OpPop, ir.OpPop2:
		f.pop()
	case ir.OpDup, ir.OpDup2:
		f.push(f.stack[len(f.stack)-1])
	case ir.OpSwap:
		n := len(f.stack)
		f.stack[n-1], f.stack[n-2] = f.stack[n-2], f.stack[n-1]

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpRem,
		ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpShr, ir.OpUShr:
		y := f.pop()
		x := f.pop()
		f.push(vm.arith(in.Op, x, y))
	case ir.OpNeg:
		switch x := f.pop().(type) {
		case int32:
			f.push(-x)
		case int64:
			f.push(-x)
		case float32:
			f.push(-x)
		case float64:
			f.push(-x)
		}

	case ir.OpI2L, ir.OpI2F, ir.OpI2D, ir.OpL2I, ir.OpL2F, ir.OpL2D,
		ir.OpF2I, ir.OpF2L, ir.OpF2D, ir.OpD2I, ir.OpD2L, ir.OpD2F,
		ir.OpI2B, ir.OpI2C, ir.OpI2S:
		f.push(convert(in.Op, f.pop()))

	case ir.OpLCmp:
		y, x := f.pop().(int64), f.pop().(int64)
		f.push(cmp3(x < y, x > y))
	case ir.OpFCmpL, ir.OpFCmpG:
		y, x := f.pop().(float32), f.pop().(float32)
		f.push(fcmp(float64(x), float64(y), in.Op == ir.OpFCmpG))
	case ir.OpDCmpL, ir.OpDCmpG:
		y, x := f.pop().(float64), f.pop().(float64)
		f.push(fcmp(x, y, in.Op == ir.OpDCmpG))

	case ir.OpIfEq, ir.OpIfNe, ir.OpIfLt, ir.OpIfGe, ir.OpIfGt, ir.OpIfLe:
		if zeroTest(in.Op, f.pop().(int32)) {
			f.jump(in.Target)
		}
	case ir.OpIfICmpEq, ir.OpIfICmpNe, ir.OpIfICmpLt, ir.OpIfICmpGe, ir.OpIfICmpGt, ir.OpIfICmpLe:
		y, x := f.pop().(int32), f.pop().(int32)
		if zeroTest(in.Op-ir.OpIfICmpEq+ir.OpIfEq, cmp3(x < y, x > y)) {
			f.jump(in.Target)
		}
	case ir.OpIfACmpEq, ir.OpIfACmpNe:
		y, x := f.pop(), f.pop()
		if same(x, y) == (in.Op == ir.OpIfACmpEq) {
			f.jump(in.Target)
		}
	case ir.OpIfNull, ir.OpIfNonNull:
		if (f.pop() == nil) == (in.Op == ir.OpIfNull) {
			f.jump(in.Target)
		}
	case ir.OpGoto:
		f.jump(in.Target)
	case ir.OpTableSwitch:
		k := int64(f.pop().(int32))
		i := k - int64(in.Low)
		if i >= 0 && i < int64(len(in.Targets)) {
			f.jump(in.Targets[i])
		} else {
			f.jump(in.Default)
		}
	case ir.OpLookupSwitch:
		k := f.pop().(int32)
		f.jump(in.Default)
		for i, key := range in.Keys {
			if key == k {
				f.jump(in.Targets[i])
				break
			}
		}

	case ir.OpReturn:
		if in.Repr == types.ReprVoid {
			return nil, true, nil, nil
		}
		return f.pop(), true, nil, nil
	case ir.OpThrow:
		o, ok := vm.nonNull(f.pop()).(*Object)
		if !ok {
			vm.Throw("java/lang/ClassCastException", "not a throwable")
		}
		return nil, false, o, nil

	case ir.OpGetStatic:
		f.push(vm.Static(in.Field))
	case ir.OpPutStatic:
		vm.statics[in.Field.Owner.InternalName()+"."+in.Field.Name] = f.pop()
	case ir.OpGetField:
		o := vm.object(f.pop())
		v, ok := o.Fields[in.Field.Name]
		if !ok {
			v = zeroOf(in.Field.Type)
		}
		f.push(v)
	case ir.OpPutField:
		v := f.pop()
		vm.object(f.pop()).Fields[in.Field.Name] = v

	case ir.OpInvokeStatic, ir.OpInvokeVirtual, ir.OpInvokeSpecial, ir.OpInvokeInterface:
		n := len(in.Method.Params)
		if in.Op != ir.OpInvokeStatic {
			n++
		}
		args := f.popN(n)
		if in.Op != ir.OpInvokeStatic {
			vm.nonNull(args[0])
		}
		v, exc, err := vm.call(in.Op, in.Method, args)
		if err != nil {
			return nil, false, nil, err
		}
		if exc != nil {
			return nil, false, exc, nil
		}
		if !in.Method.Return.IsVoid() {
			f.push(v)
		}

	case ir.OpNew:
		f.push(&Object{Class: in.Type, Fields: make(map[string]any)})
	case ir.OpNewArray:
		n := f.pop().(int32)
		if n < 0 {
			vm.Throw("java/lang/NegativeArraySizeException", fmt.Sprint(n))
		}
		a := &Array{Elem: in.Type, Data: make([]any, n)}
		for i := range a.Data {
			a.Data[i] = zeroOf(in.Type)
		}
		f.push(a)
	case ir.OpArrayLength:
		f.push(int32(len(vm.array(f.pop()).Data)))
	case ir.OpArrayLoad:
		i := f.pop().(int32)
		a := vm.array(f.pop())
		vm.bounds(a, i)
		f.push(a.Data[i])
	case ir.OpArrayStore:
		v := f.pop()
		i := f.pop().(int32)
		a := vm.array(f.pop())
		vm.bounds(a, i)
		a.Data[i] = v
	case ir.OpCheckCast:
		v := f.stack[len(f.stack)-1]
		if v != nil && !vm.isInstance(v, in.Type) {
			vm.Throw("java/lang/ClassCastException", fmt.Sprintf("cannot cast to %s", in.Type))
		}
	case ir.OpInstanceOf:
		f.push(boolInt(vm.isInstance(f.pop(), in.Type)))
	default:
		return nil, false, nil, fmt.Errorf("vm: unsupported instruction %s", in.Op)
	}
	return nil, false, nil, nil
}

func (vm *VM) nonNull(v any) any {
	if v == nil {
		vm.Throw("java/lang/NullPointerException", "")
	}
	return v
}

func (vm *VM) object(v any) *Object {
	o, ok := vm.nonNull(v).(*Object)
	if !ok {
		panic(fmt.Sprintf("vm: %T has no fields", v))
	}
	return o
}

func (vm *VM) array(v any) *Array {
	a, ok := vm.nonNull(v).(*Array)
	if !ok {
		panic(fmt.Sprintf("vm: %T is not an array", v))
	}
	return a
}

func (vm *VM) bounds(a *Array, i int32) {
	if i < 0 || int(i) >= len(a.Data) {
		vm.Throw("java/lang/ArrayIndexOutOfBoundsException", fmt.Sprintf("index %d out of bounds for length %d", i, len(a.Data)))
	}
}

// call dispatches an invocation to program code, a registered native or an
// intrinsic, in that order.
func (vm *VM) call(op ir.Op, m types.MethodDesc, args []any) (any, *Object, error) {
	if target := vm.resolve(op, m, args); target != nil {
		return vm.run(target, args)
	}
	if fn, ok := vm.natives[nativeKey(m)]; ok {
		return vm.native(fn, args)
	}
	if m.IsConstructor() {
		// constructors of runtime classes keep their first argument
		o := args[0].(*Object)
		if len(args) > 1 {
			o.Value = args[1]
		}
		return nil, nil, nil
	}
	return nil, nil, fmt.Errorf("vm: no implementation for %s", m)
}

func (vm *VM) native(fn Native, args []any) (v any, exc *Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			th, ok := r.(thrown)
			if !ok {
				panic(r)
			}
			exc = th.obj
		}
	}()
	return fn(vm, args), nil, nil
}

// resolve finds program code for m. Virtual calls dispatch on the
// receiver's class, walking up the program's superclasses.
func (vm *VM) resolve(op ir.Op, m types.MethodDesc, args []any) *ir.Method {
	owner := m.Owner
	if op == ir.OpInvokeVirtual || op == ir.OpInvokeInterface {
		if o, ok := args[0].(*Object); ok {
			owner = o.Class
		}
	}
	key := m.Key()
	for c := vm.prog.FindClass(owner); c != nil; c = vm.prog.FindClass(c.Super) {
		for _, cm := range c.Methods {
			if cm.Desc.Key() == key {
				return cm
			}
		}
		if op == ir.OpInvokeSpecial || op == ir.OpInvokeStatic {
			break
		}
	}
	return nil
}

func (vm *VM) arith(op ir.Op, x, y any) any {
	switch a := x.(type) {
	case int32:
		b := y.(int32)
		switch op {
		case ir.OpAdd:
			return a + b
		case ir.OpSub:
			return a - b
		case ir.OpMul:
			return a * b
		case ir.OpDiv, ir.OpRem:
			if b == 0 {
				vm.Throw("java/lang/ArithmeticException", "/ by zero")
			}
			if op == ir.OpDiv {
				return a / b
			}
			return a % b
		case ir.OpAnd:
			return a & b
		case ir.OpOr:
			return a | b
		case ir.OpXor:
			return a ^ b
		case ir.OpShl:
			return a << (b & 31)
		case ir.OpShr:
			return a >> (b & 31)
		case ir.OpUShr:
			return int32(uint32(a) >> (b & 31))
		}
	case int64:
		if op == ir.OpShl || op == ir.OpShr || op == ir.OpUShr {
			s := y.(int32) & 63
			switch op {
			case ir.OpShl:
				return a << s
			case ir.OpShr:
				return a >> s
			default:
				return int64(uint64(a) >> s)
			}
		}
		b := y.(int64)
		switch op {
		case ir.OpAdd:
			return a + b
		case ir.OpSub:
			return a - b
		case ir.OpMul:
			return a * b
		case ir.OpDiv, ir.OpRem:
			if b == 0 {
				vm.Throw("java/lang/ArithmeticException", "/ by zero")
			}
			if op == ir.OpDiv {
				return a / b
			}
			return a % b
		case ir.OpAnd:
			return a & b
		case ir.OpOr:
			return a | b
		case ir.OpXor:
			return a ^ b
		}
	case float32:
		b := y.(float32)
		switch op {
		case ir.OpAdd:
			return a + b
		case ir.OpSub:
			return a - b
		case ir.OpMul:
			return a * b
		case ir.OpDiv:
			return a / b
		case ir.OpRem:
			return float32(math.Mod(float64(a), float64(b)))
		}
	case float64:
		b := y.(float64)
		switch op {
		case ir.OpAdd:
			return a + b
		case ir.OpSub:
			return a - b
		case ir.OpMul:
			return a * b
		case ir.OpDiv:
			return a / b
		case ir.OpRem:
			return math.Mod(a, b)
		}
	}
	panic(fmt.Sprintf("vm: bad operands for %s: %T, %T", op, x, y))
}

func convert(op ir.Op, v any) any {
	switch op {
	case ir.OpI2L:
		return int64(v.(int32))
	case ir.OpI2F:
		return float32(v.(int32))
	case ir.OpI2D:
		return float64(v.(int32))
	case ir.OpL2I:
		return int32(v.(int64))
	case ir.OpL2F:
		return float32(v.(int64))
	case ir.OpL2D:
		return float64(v.(int64))
	case ir.OpF2I:
		return int32(saturate(float64(v.(float32)), math.MinInt32, math.MaxInt32))
	case ir.OpF2L:
		return saturate(float64(v.(float32)), math.MinInt64, math.MaxInt64)
	case ir.OpF2D:
		return float64(v.(float32))
	case ir.OpD2I:
		return int32(saturate(v.(float64), math.MinInt32, math.MaxInt32))
	case ir.OpD2L:
		return saturate(v.(float64), math.MinInt64, math.MaxInt64)
	case ir.OpD2F:
		return float32(v.(float64))
	case ir.OpI2B:
		return int32(int8(v.(int32)))
	case ir.OpI2C:
		return int32(uint16(v.(int32)))
	case ir.OpI2S:
		return int32(int16(v.(int32)))
	}
	panic("vm: bad conversion " + op.String())
}

// saturate converts a floating value to an integer the way the machine
// does: NaN is zero and out-of-range values clamp.
func saturate(f float64, lo, hi int64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f <= float64(lo):
		return lo
	case f >= float64(hi):
		return hi
	}
	return int64(f)
}

func cmp3(less, greater bool) int32 {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// fcmp compares floating values; NaN yields 1 for the g variant and -1
// for the l variant.
func fcmp(x, y float64, g bool) int32 {
	if math.IsNaN(x) || math.IsNaN(y) {
		if g {
			return 1
		}
		return -1
	}
	return cmp3(x < y, x > y)
}

func zeroTest(op ir.Op, v int32) bool {
	switch op {
	case ir.OpIfEq:
		return v == 0
	case ir.OpIfNe:
		return v != 0
	case ir.OpIfLt:
		return v < 0
	case ir.OpIfGe:
		return v >= 0
	case ir.OpIfGt:
		return v > 0
	case ir.OpIfLe:
		return v <= 0
	}
	return false
}

// same is reference identity. Strings and class literals compare by value
// since the runtime interns them.
func same(x, y any) bool {
	switch a := x.(type) {
	case *Object:
		b, ok := y.(*Object)
		return ok && a == b
	case *Array:
		b, ok := y.(*Array)
		return ok && a == b
	}
	return x == y
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
