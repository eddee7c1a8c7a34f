package types

import "unicode/utf16"

// StringHash is the runtime hash of a string value: the polynomial
// s[0]*31^(n-1) + ... + s[n-1] over UTF-16 code units in 32-bit wrapping
// arithmetic. Hashed switches depend on it matching the runtime exactly.
func StringHash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}

// LongHash folds a long into an int the way the boxed Long does.
func LongHash(v int64) int32 { return int32(v ^ int64(uint64(v)>>32)) }

// BinaryName returns the dotted class name reported by the runtime for a
// reference type, e.g. "java.lang.String" or "[Ljava.lang.String;".
func (t Type) BinaryName() string {
	n := t.InternalName()
	out := []byte(n)
	for i := range out {
		if out[i] == '/' {
			out[i] = '.'
		}
	}
	return string(out)
}
