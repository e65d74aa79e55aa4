package hir

import (
	"ember/internal/source"
	"ember/internal/types"
)

// ExprKind enumerates HIR expression kinds.
type ExprKind uint8

const (
	ExprLiteral ExprKind = iota
	ExprVarRef
	ExprUnary
	ExprBinary
	// ExprCall calls a free function by name, optionally with explicit type arguments.
	ExprCall
	// ExprMethodCall calls an impl method or a synthesized derive on a receiver.
	ExprMethodCall
	ExprField
	ExprIndex
	ExprStructLit
	// ExprEnumLit constructs an enum variant; Expr.Type names the enum.
	ExprEnumLit
	ExprTupleLit
	ExprArrayLit
	ExprCast
	ExprIf
	ExprMatch
	ExprBlock
)

var exprKindNames = [...]string{
	ExprLiteral:    "Literal",
	ExprVarRef:     "VarRef",
	ExprUnary:      "Unary",
	ExprBinary:     "Binary",
	ExprCall:       "Call",
	ExprMethodCall: "MethodCall",
	ExprField:      "Field",
	ExprIndex:      "Index",
	ExprStructLit:  "StructLit",
	ExprEnumLit:    "EnumLit",
	ExprTupleLit:   "TupleLit",
	ExprArrayLit:   "ArrayLit",
	ExprCast:       "Cast",
	ExprIf:         "If",
	ExprMatch:      "Match",
	ExprBlock:      "Block",
}

func (k ExprKind) String() string {
	if int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return "Unknown"
}

// Expr represents an HIR expression with its checked type.
type Expr struct {
	Kind ExprKind
	Type *types.Type
	Span source.Span
	Data ExprData
}

// ExprData is the interface for expression-specific data.
type ExprData interface {
	exprData()
}

// LiteralKind enumerates literal value kinds.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralBool
	LiteralString
	LiteralChar
	LiteralUnit
)

// LiteralData holds a literal value. Chars use IntValue for the code point.
type LiteralData struct {
	Kind        LiteralKind
	IntValue    int64
	FloatValue  float64
	BoolValue   bool
	StringValue string
}

func (*LiteralData) exprData() {}

type VarRefData struct {
	Name string
}

func (*VarRefData) exprData() {}

type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
	UnaryDeref
	UnaryAddrOf
	UnaryAddrOfMut
)

type UnaryData struct {
	Op      UnaryOp
	Operand *Expr
}

func (*UnaryData) exprData() {}

type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinAnd // short-circuit
	BinOr  // short-circuit
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
)

// IsComparison reports ==, !=, <, <=, >, >=.
func (op BinaryOp) IsComparison() bool {
	return op >= BinEq && op <= BinGe
}

type BinaryData struct {
	Op    BinaryOp
	Left  *Expr
	Right *Expr
}

func (*BinaryData) exprData() {}

type CallData struct {
	Callee   string // "name" or "module::name"
	TypeArgs []*types.Type
	Args     []*Expr
}

func (*CallData) exprData() {}

type MethodCallData struct {
	Receiver *Expr
	Method   string
	Args     []*Expr
}

func (*MethodCallData) exprData() {}

// FieldData accesses a struct field; tuple elements use "0", "1", ...
type FieldData struct {
	Object *Expr
	Field  string
}

func (*FieldData) exprData() {}

type IndexData struct {
	Object *Expr
	Index  *Expr
}

func (*IndexData) exprData() {}

type FieldInit struct {
	Name  string
	Value *Expr
}

type StructLitData struct {
	Fields []FieldInit
}

func (*StructLitData) exprData() {}

type EnumLitData struct {
	Variant string
	Args    []*Expr
}

func (*EnumLitData) exprData() {}

type TupleLitData struct {
	Elems []*Expr
}

func (*TupleLitData) exprData() {}

type ArrayLitData struct {
	Elems []*Expr
}

func (*ArrayLitData) exprData() {}

// CastData converts Value to the expression's type.
type CastData struct {
	Value *Expr
}

func (*CastData) exprData() {}

// IfData: Else may be nil; else-if chains nest an If as the else block's tail.
type IfData struct {
	Cond *Expr
	Then *Block
	Else *Block
}

func (*IfData) exprData() {}

type MatchArm struct {
	Pattern *Pattern
	Body    *Expr
	Span    source.Span
}

type MatchData struct {
	Scrutinee *Expr
	Arms      []MatchArm
}

func (*MatchData) exprData() {}

type BlockData struct {
	Block *Block
}

func (*BlockData) exprData() {}
