// Package hir is the type-checked program tree the backend lowers.
//
// Every expression carries its checked type; generic declarations keep
// their parameters as types.Param nodes. Trees are produced by the front end
// and shipped to the backend as msgpack-encoded Units (see codec.go).
package hir

import (
	"ember/internal/source"
	"ember/internal/types"
)

// Unit is one compilation unit: a module plus the modules it imports.
type Unit struct {
	Name    string
	Files   []source.FileInfo
	Module  *Module
	Imports []*Module
}

// Module groups the declarations of one source module.
type Module struct {
	Name    string
	Structs []*StructDecl
	Enums   []*EnumDecl
	Funcs   []*Func
	Impls   []*ImplDecl
}

type StructDecl struct {
	Name       string
	TypeParams []string
	Fields     []FieldDecl
	Derives    []Trait
	Span       source.Span
}

type FieldDecl struct {
	Name string
	Type *types.Type
}

type EnumDecl struct {
	Name       string
	TypeParams []string
	Variants   []VariantDecl
	Derives    []Trait
	Span       source.Span
}

// VariantDecl is a unit variant when Fields is empty, a tuple variant otherwise.
type VariantDecl struct {
	Name   string
	Fields []*types.Type
}

// ImplDecl attaches methods to Target. Behavior is empty for inherent impls;
// "Drop" marks a destructor impl whose single method is named "drop".
type ImplDecl struct {
	Behavior   string
	Target     *types.Type
	TypeParams []string
	Methods    []*Func
	Span       source.Span
}

// Func is a function or method. Methods take the receiver as the first
// parameter, named "this", typed as a pointer to the impl target.
// Body is nil for external declarations.
type Func struct {
	Name       string
	TypeParams []string
	Params     []Param
	Result     *types.Type
	Body       *Block
	Span       source.Span
}

type Param struct {
	Name string
	Type *types.Type
}

// Block is a braced sequence of statements with an optional tail value.
type Block struct {
	Stmts []*Stmt
	Tail  *Expr
	Span  source.Span
}

// IsGeneric reports whether the declaration needs instantiation before lowering.
func (f *Func) IsGeneric() bool { return f != nil && len(f.TypeParams) > 0 }

// Field returns the field declaration by name.
func (s *StructDecl) Field(name string) (FieldDecl, int, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return FieldDecl{}, -1, false
}

// Variant returns the variant declaration and its tag.
func (e *EnumDecl) Variant(name string) (VariantDecl, int, bool) {
	for i, v := range e.Variants {
		if v.Name == name {
			return v, i, true
		}
	}
	return VariantDecl{}, -1, false
}

// HasPayload reports whether any variant carries data.
func (e *EnumDecl) HasPayload() bool {
	for _, v := range e.Variants {
		if len(v.Fields) > 0 {
			return true
		}
	}
	return false
}

func derives(list []Trait, trait Trait) bool {
	for _, t := range list {
		if t == trait {
			return true
		}
	}
	return false
}

// HasDerive reports whether the declaration lists trait among its derives.
func (s *StructDecl) HasDerive(trait Trait) bool { return derives(s.Derives, trait) }

// HasDerive reports whether the declaration lists trait among its derives.
func (e *EnumDecl) HasDerive(trait Trait) bool { return derives(e.Derives, trait) }
