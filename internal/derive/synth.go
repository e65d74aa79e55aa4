// Package derive synthesizes comparison, hashing, copying, reflection and
// text rendering methods from concrete field layouts.
//
// Every (type, trait) pair is generated at most once per session. Nested
// fields dispatch to a user impl when one exists and to their own
// synthesized method otherwise.
package derive

import (
	"fmt"

	"ember/internal/diag"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/layout"
	"ember/internal/mono"
	"ember/internal/source"
	"ember/internal/types"
)

// FNV-1a 64-bit parameters.
const (
	FNVOffset uint64 = 14695981039346656037
	FNVPrime  uint64 = 1099511628211
)

// Options tune the synthesized bodies.
type Options struct {
	// EnumPayloads makes Eq, Ord, Hash and Duplicate recurse into the
	// active variant's payload. When false only the tag participates.
	EnumPayloads bool
}

// DefaultOptions returns the settings used when a project configures nothing.
func DefaultOptions() Options { return Options{EnumPayloads: true} }

type key struct {
	typeName string
	trait    hir.Trait
}

// Synthesizer generates derived methods into the registry's module.
type Synthesizer struct {
	reg  *mono.Registry
	mod  *emit.Module
	opts Options
	done map[key]string
}

func New(reg *mono.Registry, opts Options) *Synthesizer {
	return &Synthesizer{
		reg:  reg,
		mod:  reg.Module(),
		opts: opts,
		done: make(map[key]string),
	}
}

// Symbol is the global name a derived method of typeName is emitted under.
func (s *Synthesizer) Symbol(typeName, method string) string {
	return s.mod.Symbol(mono.MethodName(typeName, method))
}

// Generated reports whether (typeName, trait) was already synthesized.
func (s *Synthesizer) Generated(typeName string, trait hir.Trait) bool {
	_, ok := s.done[key{typeName, trait}]
	return ok
}

// Request emits trait for the specialized type typeName and returns the
// symbol. Re-requests return the memoized symbol without emitting.
// Unspecialized generic declarations and placeholder layouts are skipped.
func (s *Synthesizer) Request(typeName string, trait hir.Trait) (string, bool) {
	if sym, ok := s.done[key{typeName, trait}]; ok {
		return sym, true
	}
	l, ok := s.layoutFor(typeName)
	if !ok || l.Placeholder {
		return "", false
	}
	sym := s.Symbol(typeName, trait.Method())
	s.done[key{typeName, trait}] = sym
	linkage := s.reg.Linkage(typeName)

	switch trait {
	case hir.TraitPartialEq:
		s.genEq(l, sym, linkage)
	case hir.TraitOrd:
		s.genOrd(l, sym, linkage, false)
	case hir.TraitPartialOrd:
		s.genOrd(l, sym, linkage, true)
	case hir.TraitHash:
		s.genHash(l, sym, linkage)
	case hir.TraitDuplicate:
		s.genDuplicate(l, sym, linkage)
	case hir.TraitReflect:
		s.genReflect(l, sym, linkage)
	case hir.TraitDebug:
		s.genDebug(l, sym, linkage)
	case hir.TraitDisplay:
		s.genDisplay(l, sym, linkage)
	default:
		delete(s.done, key{typeName, trait})
		return "", false
	}
	return sym, true
}

// RequestFor is Request for a semantic type.
func (s *Synthesizer) RequestFor(t *types.Type, trait hir.Trait, span source.Span) (string, bool) {
	name := s.reg.TypeName(t, span)
	if name == "" {
		return "", false
	}
	return s.Request(name, trait)
}

// layoutFor finds the concrete layout, specializing non-generic
// declarations on demand.
func (s *Synthesizer) layoutFor(typeName string) (*layout.TypeLayout, bool) {
	if l, ok := s.reg.Layouts().Get(typeName); ok {
		return l, true
	}
	env := s.reg.Env()
	if d, ok := env.LookupStruct(typeName); ok {
		if len(d.TypeParams) > 0 {
			return nil, false
		}
	} else if d, ok := env.LookupEnum(typeName); ok {
		if len(d.TypeParams) > 0 {
			return nil, false
		}
	} else {
		return nil, false
	}
	name := s.reg.Require(typeName, nil, source.Span{})
	return s.reg.Layouts().Get(name)
}

// DeriveDeclared synthesizes every trait the declaration behind typeName
// lists in its derives. Called for each newly defined type.
func (s *Synthesizer) DeriveDeclared(typeName string) {
	rec, ok := s.reg.Lookup(typeName)
	if !ok || rec.Placeholder {
		return
	}
	var derives []hir.Trait
	env := s.reg.Env()
	switch rec.Kind {
	case mono.KindStruct:
		if d, ok := env.LookupStruct(rec.Base); ok {
			derives = d.Derives
		}
	case mono.KindEnum:
		if d, ok := env.LookupEnum(rec.Base); ok {
			derives = d.Derives
		}
	default:
		return
	}
	for _, tr := range derives {
		if _, _, user := env.LookupMethod(rec.Base, tr.Method()); user {
			continue
		}
		s.Request(typeName, tr)
	}
}

// nested returns the symbol implementing method for a field of type sem:
// a user impl first, then a synthesized one.
func (s *Synthesizer) nested(sem *types.Type, trait hir.Trait) (string, bool) {
	if sem.Kind == types.KindNamed {
		if name, ok := s.reg.RequireMethod(sem, trait.Method(), source.Span{}); ok {
			return s.mod.Symbol(name), true
		}
	}
	sym, ok := s.RequestFor(sem, trait, source.Span{})
	if !ok {
		diag.ReportWarning(s.reg.Reporter(), diag.CgMissingLayout, source.Span{},
			fmt.Sprintf("cannot derive %s for field of type %s; the field is ignored", trait, sem)).Emit()
	}
	return sym, ok
}

func (s *Synthesizer) orderingType() string {
	return emit.StructType(s.reg.Require("Ordering", nil, source.Span{}))
}

func (s *Synthesizer) maybeOrderingType() string {
	return emit.StructType(s.reg.Require("Maybe", []*types.Type{types.Named("Ordering")}, source.Span{}))
}
