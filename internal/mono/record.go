package mono

import (
	"ember/internal/hir"
	"ember/internal/source"
	"ember/internal/types"
)

// Kind identifies what an instantiation record stands for.
type Kind uint8

const (
	KindStruct Kind = iota
	KindEnum
	KindTuple
	KindContainer
	// KindOpaque is the fallback for bases that could not be located.
	KindOpaque
	KindFunc
	KindMethod
)

func (k Kind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindTuple:
		return "tuple"
	case KindContainer:
		return "container"
	case KindOpaque:
		return "opaque"
	case KindFunc:
		return "func"
	case KindMethod:
		return "method"
	default:
		return "unknown"
	}
}

// Record is one instantiation: a (base, args) tuple and its specialized name.
type Record struct {
	Name        string
	Base        string
	Args        []*types.Type
	Kind        Kind
	Generated   bool
	Placeholder bool
	Span        source.Span
}

// FuncInstance is a function or method body waiting to be lowered under Subst.
type FuncInstance struct {
	Name  string
	Decl  *hir.Func
	Impl  *hir.ImplDecl
	Subst types.Subst
	// Self is the concrete receiver type for methods.
	Self *types.Type
	// Generic instances get linkonce_odr linkage.
	Generic bool
}

// Deferred is a request that still mentioned generic parameters.
type Deferred struct {
	Base string
	Args []*types.Type
	Span source.Span
}
