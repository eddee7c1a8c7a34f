package types

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestStringHash(t *testing.T) {
	tests := []struct {
		in   string
		want int32
	}{
		{"", 0},
		{"a", 97},
		{"hello", 99162322},
		{"Aa", 2112},
		{"BB", 2112},
		{"polygenelubricants", -2147483648},
		{"\U0001F600", 1772899},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			be.Equal(t, StringHash(tt.in), tt.want)
		})
	}
}

func TestLongHash(t *testing.T) {
	be.Equal(t, LongHash(0), int32(0))
	be.Equal(t, LongHash(42), int32(42))
	be.Equal(t, LongHash(1<<32), int32(1))
	be.Equal(t, LongHash(-1), int32(0))
}

func TestParse(t *testing.T) {
	tests := []struct {
		desc string
		want Type
	}{
		{"I", Int},
		{"J", Long},
		{"Ljava/lang/String;", String},
		{"[I", ArrayOf(Int)},
		{"[[Ljava/lang/Object;", ArrayOf(ArrayOf(Object))},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := Parse(tt.desc)
			be.Err(t, err, nil)
			be.Equal(t, got, tt.want)
			be.Equal(t, got.Descriptor(), tt.desc)
		})
	}

	for _, bad := range []string{"", "Q", "L;", "Ljava/lang/String", "[V", "II"} {
		_, err := Parse(bad)
		be.True(t, err != nil)
	}
}

func TestNames(t *testing.T) {
	arr := ArrayOf(String)
	be.Equal(t, String.InternalName(), "java/lang/String")
	be.Equal(t, arr.InternalName(), "[Ljava/lang/String;")
	be.Equal(t, String.BinaryName(), "java.lang.String")
	be.Equal(t, arr.BinaryName(), "[Ljava.lang.String;")
	be.Equal(t, arr.String(), "java.lang.String[]")
	be.Equal(t, arr.Elem(), String)
	be.Equal(t, Int.InternalName(), "")
}

func TestSlotsAndRepr(t *testing.T) {
	be.Equal(t, Void.Slots(), 0)
	be.Equal(t, Int.Slots(), 1)
	be.Equal(t, Long.Slots(), 2)
	be.Equal(t, Double.Slots(), 2)
	be.Equal(t, String.Slots(), 1)
	be.Equal(t, Char.Repr(), ReprInt)
	be.Equal(t, Boolean.Repr(), ReprInt)
	be.Equal(t, Float.Repr(), ReprFloat)
	be.Equal(t, Null.Repr(), ReprRef)
}

func TestMethodDescriptor(t *testing.T) {
	m := Method(String, "substring", String, Int, Int)
	be.Equal(t, m.Descriptor(), "(II)Ljava/lang/String;")
	be.Equal(t, m.String(), "java/lang/String.substring(II)Ljava/lang/String;")
	be.Equal(t, m.Key(), "substring(II)Ljava/lang/String;")

	c := Constructor(Object)
	be.True(t, c.IsConstructor())
	be.Equal(t, c.Descriptor(), "()V")
}

func TestBoxing(t *testing.T) {
	for _, p := range Primitives {
		w, ok := Box(p)
		be.True(t, ok)
		be.True(t, IsWrapper(w))
		u, ok := Unbox(w)
		be.True(t, ok)
		be.Equal(t, u, p)
	}
	_, ok := Box(String)
	be.Equal(t, ok, false)
	be.Equal(t, UnboxMethod(Int).String(), "java/lang/Integer.intValue()I")
	be.Equal(t, BoxMethod(Char).String(), "java/lang/Character.valueOf(C)Ljava/lang/Character;")
}
