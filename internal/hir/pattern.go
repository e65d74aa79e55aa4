package hir

import "ember/internal/source"

// PatternKind enumerates the closed set of match patterns.
type PatternKind uint8

const (
	PatLiteral PatternKind = iota
	PatBinding
	PatWildcard
	PatEnumVariant
	PatStruct
	PatTuple
	PatArray
	PatRange
	PatOr
)

var patternKindNames = [...]string{
	PatLiteral:     "Literal",
	PatBinding:     "Binding",
	PatWildcard:    "Wildcard",
	PatEnumVariant: "EnumVariant",
	PatStruct:      "Struct",
	PatTuple:       "Tuple",
	PatArray:       "Array",
	PatRange:       "Range",
	PatOr:          "Or",
}

func (k PatternKind) String() string {
	if int(k) < len(patternKindNames) {
		return patternKindNames[k]
	}
	return "Unknown"
}

type Pattern struct {
	Kind PatternKind
	Span source.Span
	Data PatternData
}

type PatternData interface {
	patternData()
}

type LiteralPat struct {
	Value LiteralData
}

func (*LiteralPat) patternData() {}

type BindingPat struct {
	Name string
	Mut  bool
}

func (*BindingPat) patternData() {}

type WildcardPat struct{}

func (*WildcardPat) patternData() {}

// EnumVariantPat matches a variant; Payload holds one sub-pattern per field.
type EnumVariantPat struct {
	Variant string
	Payload []*Pattern
}

func (*EnumVariantPat) patternData() {}

type FieldPat struct {
	Name    string
	Pattern *Pattern
}

type StructPat struct {
	Fields []FieldPat
}

func (*StructPat) patternData() {}

type TuplePat struct {
	Elems []*Pattern
}

func (*TuplePat) patternData() {}

// ArrayPat matches fixed arrays. Without Rest, Prefix must cover every
// element; with Rest, Prefix matches the head and Suffix the tail.
type ArrayPat struct {
	Prefix []*Pattern
	Rest   bool
	Suffix []*Pattern
}

func (*ArrayPat) patternData() {}

// RangePat is "Lo to Hi" (exclusive) or "Lo through Hi" (inclusive).
type RangePat struct {
	Lo        LiteralData
	Hi        LiteralData
	Inclusive bool
}

func (*RangePat) patternData() {}

type OrPat struct {
	Alts []*Pattern
}

func (*OrPat) patternData() {}

// Irrefutable reports whether the pattern matches every value of its type.
func (p *Pattern) Irrefutable() bool {
	if p == nil {
		return true
	}
	switch d := p.Data.(type) {
	case *WildcardPat, *BindingPat:
		return true
	case *StructPat:
		for _, f := range d.Fields {
			if !f.Pattern.Irrefutable() {
				return false
			}
		}
		return true
	case *TuplePat:
		return allIrrefutable(d.Elems)
	case *ArrayPat:
		return allIrrefutable(d.Prefix) && allIrrefutable(d.Suffix)
	case *OrPat:
		for _, alt := range d.Alts {
			if alt.Irrefutable() {
				return true
			}
		}
		return false
	}
	return false
}

func allIrrefutable(list []*Pattern) bool {
	for _, p := range list {
		if !p.Irrefutable() {
			return false
		}
	}
	return true
}

// Bindings lists the names a pattern binds in left-to-right order.
// Or-patterns contribute the names of their first alternative.
func (p *Pattern) Bindings() []string {
	var out []string
	var walk func(*Pattern)
	walk = func(p *Pattern) {
		if p == nil {
			return
		}
		switch d := p.Data.(type) {
		case *BindingPat:
			out = append(out, d.Name)
		case *EnumVariantPat:
			for _, s := range d.Payload {
				walk(s)
			}
		case *StructPat:
			for _, f := range d.Fields {
				walk(f.Pattern)
			}
		case *TuplePat:
			for _, s := range d.Elems {
				walk(s)
			}
		case *ArrayPat:
			for _, s := range d.Prefix {
				walk(s)
			}
			for _, s := range d.Suffix {
				walk(s)
			}
		case *OrPat:
			if len(d.Alts) > 0 {
				walk(d.Alts[0])
			}
		}
	}
	walk(p)
	return out
}
