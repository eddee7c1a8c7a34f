package ir

type Op int

const (
	OpNop Op = iota
	OpConst
	OpLoad
	OpStore
	OpIinc
	OpPop
	OpPop2
	OpDup
	OpDup2
	OpSwap

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg
	OpShl
	OpShr
	OpUShr
	OpAnd
	OpOr
	OpXor

	// primitive conversions
	OpI2L
	OpI2F
	OpI2D
	OpL2I
	OpL2F
	OpL2D
	OpF2I
	OpF2L
	OpF2D
	OpD2I
	OpD2L
	OpD2F
	OpI2B
	OpI2C
	OpI2S

	// comparisons pushing -1, 0 or 1
	OpLCmp
	OpFCmpL
	OpFCmpG
	OpDCmpL
	OpDCmpG

	// branches
	OpIfEq
	OpIfNe
	OpIfLt
	OpIfGe
	OpIfGt
	OpIfLe
	OpIfICmpEq
	OpIfICmpNe
	OpIfICmpLt
	OpIfICmpGe
	OpIfICmpGt
	OpIfICmpLe
	OpIfACmpEq
	OpIfACmpNe
	OpIfNull
	OpIfNonNull
	OpGoto
	OpTableSwitch
	OpLookupSwitch

	OpReturn
	OpThrow

	OpGetStatic
	OpPutStatic
	OpGetField
	OpPutField
	OpInvokeVirtual
	OpInvokeSpecial
	OpInvokeStatic
	OpInvokeInterface

	OpNew
	OpNewArray
	OpArrayLength
	OpArrayLoad
	OpArrayStore
	OpCheckCast
	OpInstanceOf
	OpMonitorEnter
	OpMonitorExit
)

var opNames = map[Op]string{
	OpNop: "nop", OpConst: "const", OpLoad: "load", OpStore: "store", OpIinc: "iinc",
	OpPop: "pop", OpPop2: "pop2", OpDup: "dup", OpDup2: "dup2", OpSwap: "swap",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpRem: "rem", OpNeg: "neg",
	OpShl: "shl", OpShr: "shr", OpUShr: "ushr", OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpI2L: "i2l", OpI2F: "i2f", OpI2D: "i2d", OpL2I: "l2i", OpL2F: "l2f", OpL2D: "l2d",
	OpF2I: "f2i", OpF2L: "f2l", OpF2D: "f2d", OpD2I: "d2i", OpD2L: "d2l", OpD2F: "d2f",
	OpI2B: "i2b", OpI2C: "i2c", OpI2S: "i2s",
	OpLCmp: "lcmp", OpFCmpL: "fcmpl", OpFCmpG: "fcmpg", OpDCmpL: "dcmpl", OpDCmpG: "dcmpg",
	OpIfEq: "ifeq", OpIfNe: "ifne", OpIfLt: "iflt", OpIfGe: "ifge", OpIfGt: "ifgt", OpIfLe: "ifle",
	OpIfICmpEq: "if_icmpeq", OpIfICmpNe: "if_icmpne", OpIfICmpLt: "if_icmplt",
	OpIfICmpGe: "if_icmpge", OpIfICmpGt: "if_icmpgt", OpIfICmpLe: "if_icmple",
	OpIfACmpEq: "if_acmpeq", OpIfACmpNe: "if_acmpne", OpIfNull: "ifnull", OpIfNonNull: "ifnonnull",
	OpGoto: "goto", OpTableSwitch: "tableswitch", OpLookupSwitch: "lookupswitch",
	OpReturn: "return", OpThrow: "athrow",
	OpGetStatic: "getstatic", OpPutStatic: "putstatic", OpGetField: "getfield", OpPutField: "putfield",
	OpInvokeVirtual: "invokevirtual", OpInvokeSpecial: "invokespecial",
	OpInvokeStatic: "invokestatic", OpInvokeInterface: "invokeinterface",
	OpNew: "new", OpNewArray: "newarray", OpArrayLength: "arraylength",
	OpArrayLoad: "aload", OpArrayStore: "astore", OpCheckCast: "checkcast", OpInstanceOf: "instanceof",
	OpMonitorEnter: "monitorenter", OpMonitorExit: "monitorexit",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "op?"
}

// IsBranch reports whether op takes a single label operand.
func (op Op) IsBranch() bool { return op >= OpIfEq && op <= OpGoto }

// IsConditional reports whether op is a conditional branch.
func (op Op) IsConditional() bool { return op >= OpIfEq && op < OpGoto }

// IsTerminator reports whether control never falls through op.
func (op Op) IsTerminator() bool {
	switch op {
	case OpGoto, OpTableSwitch, OpLookupSwitch, OpReturn, OpThrow:
		return true
	}
	return false
}

// Negate returns the conditional branch with the opposite outcome.
func (op Op) Negate() Op {
	switch op {
	case OpIfEq:
		return OpIfNe
	case OpIfNe:
		return OpIfEq
	case OpIfLt:
		return OpIfGe
	case OpIfGe:
		return OpIfLt
	case OpIfGt:
		return OpIfLe
	case OpIfLe:
		return OpIfGt
	case OpIfICmpEq:
		return OpIfICmpNe
	case OpIfICmpNe:
		return OpIfICmpEq
	case OpIfICmpLt:
		return OpIfICmpGe
	case OpIfICmpGe:
		return OpIfICmpLt
	case OpIfICmpGt:
		return OpIfICmpLe
	case OpIfICmpLe:
		return OpIfICmpGt
	case OpIfACmpEq:
		return OpIfACmpNe
	case OpIfACmpNe:
		return OpIfACmpEq
	case OpIfNull:
		return OpIfNonNull
	case OpIfNonNull:
		return OpIfNull
	}
	panic("ir: Negate of non-conditional " + op.String())
}
