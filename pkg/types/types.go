// Package types holds the immutable type descriptors consumed by the code
// generator: primitive kinds, reference descriptors, and method and field
// signatures. Descriptors are plain values and compare with ==.
package types

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindVoid Kind = iota
	KindBoolean
	KindByte
	KindShort
	KindChar
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindReference
	KindNull // type of the null constant, assignable to any reference
)

var kindNames = [...]string{"void", "boolean", "byte", "short", "char", "int", "long", "float", "double", "reference", "null"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Repr is the loadable representation of a value on the operand stack.
// boolean, byte, short, char and int all share ReprInt.
type Repr int

const (
	ReprVoid Repr = iota
	ReprInt
	ReprLong
	ReprFloat
	ReprDouble
	ReprRef
)

var reprNames = [...]string{"v", "i", "l", "f", "d", "a"}

func (r Repr) String() string { return reprNames[r] }

// Type is a field-type descriptor. The zero value is void.
type Type struct {
	kind Kind
	desc string
}

var (
	Void    = Type{KindVoid, "V"}
	Boolean = Type{KindBoolean, "Z"}
	Byte    = Type{KindByte, "B"}
	Short   = Type{KindShort, "S"}
	Char    = Type{KindChar, "C"}
	Int     = Type{KindInt, "I"}
	Long    = Type{KindLong, "J"}
	Float   = Type{KindFloat, "F"}
	Double  = Type{KindDouble, "D"}
	Null    = Type{KindNull, "null"}

	Object       = Class("java/lang/Object")
	String       = Class("java/lang/String")
	ClassType    = Class("java/lang/Class")
	Number       = Class("java/lang/Number")
	Comparable   = Class("java/lang/Comparable")
	Serializable = Class("java/io/Serializable")
	Constable    = Class("java/lang/constant/Constable")
	ConstantDesc = Class("java/lang/constant/ConstantDesc")
	Enum         = Class("java/lang/Enum")
	Throwable    = Class("java/lang/Throwable")
)

// Primitives lists every non-void primitive kind in declaration order.
var Primitives = []Type{Boolean, Byte, Short, Char, Int, Long, Float, Double}

// Class returns the reference type for an internal class name such as
// "java/lang/String".
func Class(internalName string) Type {
	return Type{KindReference, "L" + internalName + ";"}
}

// ArrayOf returns the array type whose component is elem.
func ArrayOf(elem Type) Type {
	if elem.kind == KindVoid || elem.kind == KindNull {
		panic("types: invalid array component " + elem.String())
	}
	return Type{KindReference, "[" + elem.desc}
}

// Parse decodes a single field descriptor.
func Parse(desc string) (Type, error) {
	t, rest, err := parseOne(desc)
	if err != nil {
		return Void, err
	}
	if rest != "" {
		return Void, fmt.Errorf("trailing characters in descriptor %q", desc)
	}
	return t, nil
}

func parseOne(s string) (Type, string, error) {
	if s == "" {
		return Void, "", fmt.Errorf("empty descriptor")
	}
	switch s[0] {
	case 'V':
		return Void, s[1:], nil
	case 'Z':
		return Boolean, s[1:], nil
	case 'B':
		return Byte, s[1:], nil
	case 'S':
		return Short, s[1:], nil
	case 'C':
		return Char, s[1:], nil
	case 'I':
		return Int, s[1:], nil
	case 'J':
		return Long, s[1:], nil
	case 'F':
		return Float, s[1:], nil
	case 'D':
		return Double, s[1:], nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 2 {
			return Void, "", fmt.Errorf("unterminated class descriptor %q", s)
		}
		return Class(s[1:end]), s[end+1:], nil
	case '[':
		elem, rest, err := parseOne(s[1:])
		if err != nil {
			return Void, "", err
		}
		if elem.IsVoid() {
			return Void, "", fmt.Errorf("void array component in %q", s)
		}
		return ArrayOf(elem), rest, nil
	}
	return Void, "", fmt.Errorf("bad descriptor character %q in %q", s[0], s)
}

func (t Type) Kind() Kind            { return t.kind }
func (t Type) Descriptor() string    { return t.desc }
func (t Type) IsVoid() bool          { return t.kind == KindVoid }
func (t Type) IsNull() bool          { return t.kind == KindNull }
func (t Type) IsPrimitive() bool     { return t.kind >= KindBoolean && t.kind <= KindDouble }
func (t Type) IsReference() bool     { return t.kind == KindReference || t.kind == KindNull }
func (t Type) IsArray() bool         { return t.kind == KindReference && t.desc[0] == '[' }
func (t Type) IsBoolean() bool       { return t.kind == KindBoolean }
func (t Type) IsNumeric() bool       { return t.kind >= KindByte && t.kind <= KindDouble }
func (t Type) IsIntegral() bool      { return t.kind >= KindByte && t.kind <= KindLong }
func (t Type) IsFloatingPoint() bool { return t.kind == KindFloat || t.kind == KindDouble }

// IsIntLike reports whether values of t are carried as a single int on the
// stack and fit a 32-bit switch key.
func (t Type) IsIntLike() bool { return t.kind >= KindBoolean && t.kind <= KindInt }

// InternalName returns the class-file internal name for reference types:
// "java/lang/String" for classes and the full descriptor for arrays.
func (t Type) InternalName() string {
	switch {
	case t.kind != KindReference:
		return ""
	case t.desc[0] == '[':
		return t.desc
	default:
		return t.desc[1 : len(t.desc)-1]
	}
}

// Elem returns the component type of an array type.
func (t Type) Elem() Type {
	if !t.IsArray() {
		panic("types: Elem of non-array " + t.String())
	}
	elem, _, err := parseOne(t.desc[1:])
	if err != nil {
		panic(err)
	}
	return elem
}

// Slots returns the number of local-variable slots (machine words) a value
// of t occupies.
func (t Type) Slots() int {
	switch t.kind {
	case KindVoid:
		return 0
	case KindLong, KindDouble:
		return 2
	default:
		return 1
	}
}

func (t Type) Repr() Repr {
	switch t.kind {
	case KindVoid:
		return ReprVoid
	case KindBoolean, KindByte, KindShort, KindChar, KindInt:
		return ReprInt
	case KindLong:
		return ReprLong
	case KindFloat:
		return ReprFloat
	case KindDouble:
		return ReprDouble
	default:
		return ReprRef
	}
}

func (t Type) String() string {
	switch t.kind {
	case KindReference:
		if t.IsArray() {
			return t.Elem().String() + "[]"
		}
		return strings.ReplaceAll(t.InternalName(), "/", ".")
	default:
		return t.kind.String()
	}
}

// MethodDesc identifies a method or constructor. Constructors are named
// "<init>" and return void.
type MethodDesc struct {
	Owner     Type
	Name      string
	Params    []Type
	Return    Type
	Interface bool
}

func Method(owner Type, name string, ret Type, params ...Type) MethodDesc {
	return MethodDesc{Owner: owner, Name: name, Params: params, Return: ret}
}

func Constructor(owner Type, params ...Type) MethodDesc {
	return MethodDesc{Owner: owner, Name: "<init>", Params: params, Return: Void}
}

// Descriptor returns the method descriptor, e.g. "(ILjava/lang/String;)V".
func (m MethodDesc) Descriptor() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range m.Params {
		sb.WriteString(p.desc)
	}
	sb.WriteByte(')')
	if m.Return.desc == "" {
		sb.WriteByte('V')
	} else {
		sb.WriteString(m.Return.desc)
	}
	return sb.String()
}

func (m MethodDesc) IsConstructor() bool { return m.Name == "<init>" }

// Key identifies a method within its owner, ignoring the return type's
// position in overload resolution the same way the class-file format does.
func (m MethodDesc) Key() string { return m.Name + m.Descriptor() }

func (m MethodDesc) String() string {
	return m.Owner.InternalName() + "." + m.Name + m.Descriptor()
}

type FieldDesc struct {
	Owner Type
	Name  string
	Type  Type
}

func Field(owner Type, name string, typ Type) FieldDesc {
	return FieldDesc{Owner: owner, Name: name, Type: typ}
}

func (f FieldDesc) String() string {
	return f.Owner.InternalName() + "." + f.Name + ":" + f.Type.desc
}
