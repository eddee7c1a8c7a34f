package codegen

import (
	"github.com/xplshn/gizmo/pkg/convert"
	"github.com/xplshn/gizmo/pkg/ir"
	"github.com/xplshn/gizmo/pkg/types"
	"github.com/xplshn/gizmo/pkg/util"
)

// NodeID addresses a node in a method's arena. Zero is never a valid node.
type NodeID int32

type nodeKind int

const (
	// materialized at each use
	nkConst nodeKind = iota
	nkLocalLoad
	nkGetStatic
	nkGetField
	nkConvert

	// scheduled exactly once
	nkBinary
	nkNeg
	nkNot
	nkCompare
	nkCast
	nkInstanceOf
	nkInvoke
	nkNew
	nkNewArray
	nkArrayLoad
	nkArrayStore
	nkArrayLength
	nkPutStatic
	nkPutField
	nkLocalStore
	nkInc

	// structure
	nkIf
	nkCond
	nkBlockExpr
	nkNested
	nkLoop
	nkSwitch
	nkTry

	// exits and markers
	nkReturn
	nkThrow
	nkJump
	nkYield
	nkLine
)

var nodeKindNames = [...]string{
	"const", "local", "getstatic", "getfield", "convert",
	"binary", "neg", "not", "compare", "cast", "instanceof", "invoke", "new", "newarray",
	"arrayload", "arraystore", "arraylength", "putstatic", "putfield", "store", "inc",
	"if", "cond", "blockexpr", "nested", "loop", "switch", "try",
	"return", "throw", "jump", "yield", "line",
}

func (k nodeKind) String() string { return nodeKindNames[k] }

// materialized reports whether nodes of this kind are re-evaluated at every
// use instead of being scheduled once.
func (k nodeKind) materialized() bool { return k <= nkConvert }

type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
	opRem
	opAnd
	opOr
	opXor
	opShl
	opShr
	opUShr
)

var binOpCodes = [...]ir.Op{ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpRem, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpShr, ir.OpUShr}

type cmpOp int

const (
	cmpEq cmpOp = iota
	cmpNe
	cmpLt
	cmpLe
	cmpGt
	cmpGe
)

var cmpNames = [...]string{"==", "!=", "<", "<=", ">", ">="}

func (c cmpOp) String() string { return cmpNames[c] }

// jumpKind distinguishes the unstructured exits.
type jumpKind int

const (
	jumpBreak jumpKind = iota
	jumpRedo
	jumpTrampoline
)

type node struct {
	kind  nodeKind
	typ   types.Type
	deps  []NodeID
	block *Block // owner of the node's home entry; nil when materialized
	bound bool

	// placement, decided during construction and read during emission
	inline    bool // the home leaves the value on the stack for its consumer
	spilled   bool // the home stores the value in spillSlot
	spillSlot int

	// payload, by kind
	cnst       ir.Constant
	local      *LocalVar
	steps      []convert.Step
	bin        binOp
	cmp        cmpOp
	operand    types.Type // operand type of compare, binary, neg and inc
	invokeOp   ir.Op
	method     types.MethodDesc
	field      types.FieldDesc
	ref        types.Type // new, newarray component, checkcast, instanceof
	delta      int
	line       int
	blocks     []*Block
	jump       jumpKind
	target     *Block
	sw         *switchInfo
	try        *tryInfo
	emptyStack bool // the value must be produced on an empty operand stack
	discard    bool // unused on purpose
	decl       bool // first store of a declared local
}

// graph is the node arena of one method.
type graph struct {
	nodes []node
}

func newGraph() *graph { return &graph{nodes: make([]node, 1, 64)} }

func (g *graph) add(n node) NodeID {
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

func (g *graph) at(id NodeID) *node { return &g.nodes[id] }

// bind marks a node as scheduled for exactly-once evaluation.
func (g *graph) bind(id NodeID) {
	n := g.at(id)
	if n.bound {
		panic("codegen: node bound twice")
	}
	n.bound = true
}

// Expr is a value-producing (or, with void type, effect-only) expression.
// The set of implementations is closed: values returned by Block methods,
// local variables, and constants.
type Expr interface {
	Type() types.Type
	resolve(b *Block) NodeID
}

// value is an Expr backed by an arena node.
type value struct {
	m  *MethodCreator
	id NodeID
}

func (v value) Type() types.Type { return v.m.g.at(v.id).typ }

func (v value) resolve(b *Block) NodeID {
	if v.m != b.m {
		b.fail(util.IllegalBlockState("expression belongs to method %s", v.m.name))
	}
	return v.id
}

// constant is an Expr that is not tied to any method until used.
type constant struct {
	c ir.Constant
	t types.Type
}

func (c constant) Type() types.Type { return c.t }

func (c constant) resolve(b *Block) NodeID {
	return b.m.g.add(node{kind: nkConst, typ: c.t, cnst: c.c})
}

func Int(v int32) Expr          { return constant{ir.IntConst(v), types.Int} }
func Long(v int64) Expr         { return constant{ir.LongConst(v), types.Long} }
func Float(v float32) Expr      { return constant{ir.FloatConst(v), types.Float} }
func Double(v float64) Expr     { return constant{ir.DoubleConst(v), types.Double} }
func String(v string) Expr      { return constant{ir.StringConst(v), types.String} }
func ClassOf(t types.Type) Expr { return constant{ir.ClassConst(t), types.ClassType} }

func Bool(v bool) Expr {
	if v {
		return constant{ir.IntConst(1), types.Boolean}
	}
	return constant{ir.IntConst(0), types.Boolean}
}

// Null returns the null constant typed as t.
func Null(t types.Type) Expr {
	if !t.IsReference() {
		util.Throw(util.IncompatibleType("null cannot have primitive type %s", t))
	}
	return constant{ir.NullConst(), t}
}

// typedConst builds an int-carried constant of a narrower primitive type,
// e.g. a char or byte literal.
func typedConst(t types.Type, v int32) Expr { return constant{ir.IntConst(v), t} }

func Char(v rune) Expr   { return typedConst(types.Char, int32(uint16(v))) }
func Byte(v int8) Expr   { return typedConst(types.Byte, int32(v)) }
func Short(v int16) Expr { return typedConst(types.Short, int32(v)) }
