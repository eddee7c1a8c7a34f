package vm

import (
	"fmt"
	"strings"

	"github.com/xplshn/gizmo/pkg/types"
)

// Values on the operand stack and in locals are int32, int64, float32,
// float64, nil, string (a String instance), types.Type (a Class instance),
// *Object or *Array. Values of every width take one stack entry.

// Object is an instance of a class. Boxed primitives keep their value in
// Value; throwables keep their message there.
type Object struct {
	Class  types.Type
	Fields map[string]any
	Value  any
}

func (o *Object) String() string {
	if o.Value != nil {
		return fmt.Sprintf("%s(%v)", o.Class, o.Value)
	}
	return o.Class.String()
}

type Array struct {
	Elem types.Type
	Data []any
}

// Exception is an uncaught throwable that escaped Invoke.
type Exception struct {
	Obj   *Object
	Trace []string
}

func (e *Exception) Error() string {
	msg := e.Obj.Class.String()
	if s, ok := e.Obj.Value.(string); ok && s != "" {
		msg += ": " + s
	}
	if len(e.Trace) > 0 {
		msg += "\n\tat " + strings.Join(e.Trace, "\n\tat ")
	}
	return msg
}

// builtinSupers is the superclass chain of the runtime classes the
// interpreter raises itself or commonly sees caught.
var builtinSupers = map[string]string{
	"java/lang/Throwable":                      "java/lang/Object",
	"java/lang/Exception":                      "java/lang/Throwable",
	"java/lang/Error":                          "java/lang/Throwable",
	"java/lang/RuntimeException":               "java/lang/Exception",
	"java/lang/ArithmeticException":            "java/lang/RuntimeException",
	"java/lang/NullPointerException":           "java/lang/RuntimeException",
	"java/lang/ClassCastException":             "java/lang/RuntimeException",
	"java/lang/IllegalStateException":          "java/lang/RuntimeException",
	"java/lang/IllegalArgumentException":       "java/lang/RuntimeException",
	"java/lang/IndexOutOfBoundsException":      "java/lang/RuntimeException",
	"java/lang/ArrayIndexOutOfBoundsException": "java/lang/IndexOutOfBoundsException",
	"java/lang/NegativeArraySizeException":     "java/lang/RuntimeException",
	"java/lang/IncompatibleClassChangeError":   "java/lang/LinkageError",
	"java/lang/LinkageError":                   "java/lang/Error",
	"java/lang/MatchException":                 "java/lang/RuntimeException",
	"java/lang/Enum":                           "java/lang/Object",
	"java/lang/Number":                         "java/lang/Object",
	"java/lang/Integer":                        "java/lang/Number",
	"java/lang/Long":                           "java/lang/Number",
	"java/lang/Short":                          "java/lang/Number",
	"java/lang/Byte":                           "java/lang/Number",
	"java/lang/Float":                          "java/lang/Number",
	"java/lang/Double":                         "java/lang/Number",
}

// superOf returns the superclass of a class, or "" at the root or when the
// class is unknown.
func (vm *VM) superOf(name string) string {
	if c := vm.prog.FindClass(types.Class(name)); c != nil {
		if c.Super.IsVoid() {
			return "java/lang/Object"
		}
		return c.Super.InternalName()
	}
	if vm.enumOwners[name] {
		return "java/lang/Enum"
	}
	return builtinSupers[name]
}

// isInstance reports whether v is an instance of t. Classes outside the
// program and the builtin table are only known by name, so an unknown
// chain accepts any reference.
func (vm *VM) isInstance(v any, t types.Type) bool {
	if v == nil {
		return false
	}
	if t == types.Object {
		return true
	}
	var cls types.Type
	switch x := v.(type) {
	case string:
		cls = types.String
	case types.Type:
		cls = types.ClassType
	case *Array:
		if t.IsArray() {
			return t.Elem() == x.Elem || (t.Elem().IsReference() && x.Elem.IsReference())
		}
		return false
	case *Object:
		cls = x.Class
	default:
		return false
	}
	want := t.InternalName()
	known := true
	for c := cls.InternalName(); c != ""; {
		if c == want {
			return true
		}
		next := vm.superOf(c)
		if next == "" && c != "java/lang/Object" {
			known = false
		}
		c = next
	}
	return !known && !types.IsWrapper(cls) && cls != types.String
}

func zeroOf(t types.Type) any {
	switch t.Repr() {
	case types.ReprInt:
		return int32(0)
	case types.ReprLong:
		return int64(0)
	case types.ReprFloat:
		return float32(0)
	case types.ReprDouble:
		return float64(0)
	}
	return nil
}
