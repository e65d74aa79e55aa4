// Package types models the semantic types the backend receives from the
// checker. Values are immutable once built and shared by pointer.
package types

import "fmt"

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindNever
	KindBool
	KindChar
	KindStr
	KindInt
	KindUint
	KindFloat
	KindNamed   // struct or enum, possibly with generic arguments
	KindTuple   // anonymous product
	KindFunc    // function value
	KindPointer // reference or raw pointer
	KindArray   // fixed-size array
	KindParam   // generic parameter not yet substituted
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindNever:
		return "never"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindStr:
		return "str"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindNamed:
		return "named"
	case KindTuple:
		return "tuple"
	case KindFunc:
		return "func"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindParam:
		return "param"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integers/floats in bits.
type Width uint8

const (
	WidthAny Width = 0
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
	Width128 Width = 128
)

// Type is a node of the semantic type tree.
//
//	Named:   Name + Args
//	Tuple:   Args are the elements
//	Func:    Args are the parameters, Elem the result
//	Pointer: Elem + Mutable
//	Array:   Elem + Len
//	Param:   Name
type Type struct {
	Kind    Kind
	Width   Width
	Name    string
	Args    []*Type
	Elem    *Type
	Len     uint64
	Mutable bool
}

var (
	Unit  = &Type{Kind: KindUnit}
	Never = &Type{Kind: KindNever}
	Bool  = &Type{Kind: KindBool, Width: 1}
	Char  = &Type{Kind: KindChar, Width: Width32}
	Str   = &Type{Kind: KindStr}
	I8    = &Type{Kind: KindInt, Width: Width8}
	I16   = &Type{Kind: KindInt, Width: Width16}
	I32   = &Type{Kind: KindInt, Width: Width32}
	I64   = &Type{Kind: KindInt, Width: Width64}
	I128  = &Type{Kind: KindInt, Width: Width128}
	U8    = &Type{Kind: KindUint, Width: Width8}
	U16   = &Type{Kind: KindUint, Width: Width16}
	U32   = &Type{Kind: KindUint, Width: Width32}
	U64   = &Type{Kind: KindUint, Width: Width64}
	U128  = &Type{Kind: KindUint, Width: Width128}
	F32   = &Type{Kind: KindFloat, Width: Width32}
	F64   = &Type{Kind: KindFloat, Width: Width64}
)

var primitiveByName = map[string]*Type{
	"Unit": Unit, "Never": Never, "Bool": Bool, "Char": Char, "Str": Str,
	"I8": I8, "I16": I16, "I32": I32, "I64": I64, "I128": I128,
	"U8": U8, "U16": U16, "U32": U32, "U64": U64, "U128": U128,
	"F32": F32, "F64": F64,
}

// Primitive looks up a builtin type by its source name.
func Primitive(name string) (*Type, bool) {
	t, ok := primitiveByName[name]
	return t, ok
}

func Named(name string, args ...*Type) *Type {
	return &Type{Kind: KindNamed, Name: name, Args: args}
}

func Tuple(elems ...*Type) *Type {
	return &Type{Kind: KindTuple, Args: elems}
}

func Func(params []*Type, result *Type) *Type {
	return &Type{Kind: KindFunc, Args: params, Elem: result}
}

func Pointer(elem *Type, mutable bool) *Type {
	return &Type{Kind: KindPointer, Elem: elem, Mutable: mutable}
}

func Array(elem *Type, n uint64) *Type {
	return &Type{Kind: KindArray, Elem: elem, Len: n}
}

func Param(name string) *Type {
	return &Type{Kind: KindParam, Name: name}
}
