package types

var (
	BooleanBox   = Class("java/lang/Boolean")
	ByteBox      = Class("java/lang/Byte")
	ShortBox     = Class("java/lang/Short")
	CharacterBox = Class("java/lang/Character")
	IntegerBox   = Class("java/lang/Integer")
	LongBox      = Class("java/lang/Long")
	FloatBox     = Class("java/lang/Float")
	DoubleBox    = Class("java/lang/Double")
)

var boxes = map[Kind]Type{
	KindBoolean: BooleanBox,
	KindByte:    ByteBox,
	KindShort:   ShortBox,
	KindChar:    CharacterBox,
	KindInt:     IntegerBox,
	KindLong:    LongBox,
	KindFloat:   FloatBox,
	KindDouble:  DoubleBox,
}

var unboxes = func() map[Type]Type {
	m := make(map[Type]Type, len(boxes))
	for _, p := range Primitives {
		m[boxes[p.kind]] = p
	}
	return m
}()

// Box returns the wrapper class of a primitive type.
func Box(p Type) (Type, bool) {
	if !p.IsPrimitive() {
		return Void, false
	}
	return boxes[p.kind], true
}

// Unbox returns the primitive type wrapped by w.
func Unbox(w Type) (Type, bool) {
	p, ok := unboxes[w]
	return p, ok
}

func IsWrapper(t Type) bool {
	_, ok := unboxes[t]
	return ok
}

// WrapperSupertypes lists the supertypes and interfaces of the wrapper of p,
// not including the wrapper itself.
func WrapperSupertypes(p Type) []Type {
	switch p.kind {
	case KindBoolean, KindChar:
		return []Type{Object, Serializable, Comparable, Constable}
	case KindByte, KindShort:
		return []Type{Object, Number, Serializable, Comparable, Constable}
	case KindInt, KindLong, KindFloat, KindDouble:
		return []Type{Object, Number, Serializable, Comparable, Constable, ConstantDesc}
	}
	return nil
}

// BoxMethod returns the static valueOf method that boxes p.
func BoxMethod(p Type) MethodDesc {
	w := boxes[p.kind]
	return Method(w, "valueOf", w, p)
}

// UnboxMethod returns the instance accessor that unboxes a wrapper of p,
// e.g. Integer.intValue().
func UnboxMethod(p Type) MethodDesc {
	return Method(boxes[p.kind], p.kind.String()+"Value", p)
}
