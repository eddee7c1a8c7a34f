package util

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies construction-time failures. Every kind aborts the
// build of the enclosing class.
type ErrorKind int

const (
	KindIncompatibleType ErrorKind = iota
	KindIllegalBlockState
	KindDuplicateDeclaration
	KindUnsupportedConstruct
)

var kindNames = map[ErrorKind]string{
	KindIncompatibleType:     "incompatible type",
	KindIllegalBlockState:    "illegal block state",
	KindDuplicateDeclaration: "duplicate declaration",
	KindUnsupportedConstruct: "unsupported construct",
}

func (k ErrorKind) String() string { return kindNames[k] }

// Sentinels for errors.Is.
var (
	ErrIncompatibleType     = &Error{Kind: KindIncompatibleType}
	ErrIllegalBlockState    = &Error{Kind: KindIllegalBlockState}
	ErrDuplicateDeclaration = &Error{Kind: KindDuplicateDeclaration}
	ErrUnsupportedConstruct = &Error{Kind: KindUnsupportedConstruct}
)

// Error is a structural error found while building the expression graph.
type Error struct {
	Kind   ErrorKind
	Msg    string
	Class  string
	Method string
	Block  int
	Op     string
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Class != "" {
		sb.WriteString(e.Class)
		if e.Method != "" {
			sb.WriteString(".")
			sb.WriteString(e.Method)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.String())
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Op != "" {
		fmt.Fprintf(&sb, " (in %s", e.Op)
		if e.Block > 0 {
			fmt.Fprintf(&sb, " on block #%d", e.Block)
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// Is matches any *Error of the same kind, so the sentinels work with
// errors.Is regardless of message and context.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func IncompatibleType(format string, args ...any) *Error {
	return newError(KindIncompatibleType, format, args...)
}

func IllegalBlockState(format string, args ...any) *Error {
	return newError(KindIllegalBlockState, format, args...)
}

func DuplicateDeclaration(format string, args ...any) *Error {
	return newError(KindDuplicateDeclaration, format, args...)
}

func UnsupportedConstruct(format string, args ...any) *Error {
	return newError(KindUnsupportedConstruct, format, args...)
}

// Throw aborts graph construction. It is recovered by Recover at the
// class-building boundary.
func Throw(e *Error) { panic(e) }

// Recover converts a panicking *Error into *errp. Any other panic value is
// re-raised. Use as `defer util.Recover(&err)`.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*Error); ok {
		*errp = e
		return
	}
	panic(r)
}
