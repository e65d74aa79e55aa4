// Package layout holds the concrete field layouts and variant tags of every
// specialized aggregate, and computes their sizes for the target.
package layout

import (
	"fmt"
	"strings"

	"ember/internal/types"
)

// Kind classifies an aggregate layout.
type Kind uint8

const (
	KindStruct Kind = iota
	KindEnum
	KindTuple
	// KindOpaque is a single-handle layout: containers and unknown bases.
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindTuple:
		return "tuple"
	case KindOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Field is one concrete field of a struct, tuple or variant payload.
type Field struct {
	Name   string
	Index  int
	LLType string
	Sem    *types.Type
	Offset int
}

// Variant is one enum alternative. Payload fields are laid out as the
// literal struct PayloadType placed at PayloadOffset.
type Variant struct {
	Name        string
	Tag         int
	Fields      []Field
	PayloadType string
}

// HasPayload reports whether the variant carries data.
func (v *Variant) HasPayload() bool { return len(v.Fields) > 0 }

// TypeLayout is the layout of one specialized aggregate.
type TypeLayout struct {
	Name   string // specialized name
	LLType string // e.g. %struct.Pair__I32__Str
	Kind   Kind
	Sem    *types.Type
	Decl   string // declaration name before specialization

	Fields   []Field
	Variants []Variant

	// Enum-only: payload storage is [PayloadWords x i64] at PayloadOffset.
	PayloadWords  int
	PayloadOffset int

	Size  int
	Align int

	// Placeholder marks a best-effort layout built from unresolved inputs.
	Placeholder bool
}

// Body renders the type body used in the type definition.
func (l *TypeLayout) Body() string {
	switch l.Kind {
	case KindOpaque:
		return "{ ptr }"
	case KindEnum:
		if l.PayloadWords == 0 {
			return "{ i32 }"
		}
		return fmt.Sprintf("{ i32, [%d x i64] }", l.PayloadWords)
	default:
		if len(l.Fields) == 0 {
			return "{}"
		}
		parts := make([]string, len(l.Fields))
		for i, f := range l.Fields {
			parts[i] = f.LLType
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	}
}

// Field returns a struct or tuple field by name.
func (l *TypeLayout) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Variant returns an enum variant by name.
func (l *TypeLayout) Variant(name string) (*Variant, bool) {
	for i := range l.Variants {
		if l.Variants[i].Name == name {
			return &l.Variants[i], true
		}
	}
	return nil, false
}

// VariantByTag returns the variant with the given discriminant.
func (l *TypeLayout) VariantByTag(tag int) (*Variant, bool) {
	for i := range l.Variants {
		if l.Variants[i].Tag == tag {
			return &l.Variants[i], true
		}
	}
	return nil, false
}

// IsEnum reports an enum layout.
func (l *TypeLayout) IsEnum() bool { return l.Kind == KindEnum }

func literalStruct(fields []Field) string {
	if len(fields) == 0 {
		return "{}"
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.LLType
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}
