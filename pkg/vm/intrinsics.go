package vm

import "github.com/xplshn/gizmo/pkg/types"

var (
	stringHashCode = types.Method(types.String, "hashCode", types.Int)
	stringEquals   = types.Method(types.String, "equals", types.Boolean, types.Object)
	longHashCode   = types.Method(types.LongBox, "hashCode", types.Int, types.Long)
	enumName       = types.Method(types.Enum, "name", types.String)
	enumOrdinal    = types.Method(types.Enum, "ordinal", types.Int)
	className      = types.Method(types.ClassType, "getName", types.String)
	throwableMsg   = types.Method(types.Throwable, "getMessage", types.String)
)

// installIntrinsics registers the runtime methods generated code calls
// without the program defining them.
func (vm *VM) installIntrinsics() {
	for _, p := range types.Primitives {
		w, _ := types.Box(p)
		vm.Register(types.BoxMethod(p), func(_ *VM, args []any) any {
			return &Object{Class: w, Fields: map[string]any{}, Value: args[0]}
		})
		vm.Register(types.UnboxMethod(p), func(vm *VM, args []any) any {
			return vm.object(args[0]).Value
		})
	}
	vm.Register(stringHashCode, func(_ *VM, args []any) any {
		return types.StringHash(args[0].(string))
	})
	vm.Register(stringEquals, func(_ *VM, args []any) any {
		s, ok := args[1].(string)
		return boolInt(ok && s == args[0].(string))
	})
	vm.Register(longHashCode, func(_ *VM, args []any) any {
		return types.LongHash(args[0].(int64))
	})
	vm.Register(enumName, func(vm *VM, args []any) any {
		return vm.object(args[0]).Fields["name"]
	})
	vm.Register(enumOrdinal, func(vm *VM, args []any) any {
		return vm.object(args[0]).Fields["ordinal"]
	})
	vm.Register(className, func(_ *VM, args []any) any {
		return args[0].(types.Type).BinaryName()
	})
	vm.Register(throwableMsg, func(vm *VM, args []any) any {
		return vm.object(args[0]).Value
	})
}
