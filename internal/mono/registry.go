// Package mono is the instantiation registry: it turns (base, args) pairs
// into memoized specialized names, emits their layouts once, and queues
// generic function and method bodies for lowering.
package mono

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"ember/internal/diag"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/layout"
	"ember/internal/source"
	"ember/internal/typeenv"
	"ember/internal/types"
)

// Mode selects how requests with unresolved parameters are handled.
type Mode uint8

const (
	// ModePlaceholder keeps a best-effort layout and warns.
	ModePlaceholder Mode = iota
	// ModeStrict additionally turns every deferred request into an error at Finish.
	ModeStrict
)

// Registry memoizes instantiations for one session.
type Registry struct {
	env     typeenv.Env
	mod     *emit.Module
	layouts *layout.Table
	rep     diag.Reporter
	mode    Mode

	records    map[string]*Record
	inProgress map[string]bool
	substs     []types.Subst

	deferred []Deferred
	newTypes []string

	funcs     map[string]*FuncInstance
	funcQueue []*FuncInstance
}

// New creates a registry writing type definitions into mod.
func New(env typeenv.Env, mod *emit.Module, layouts *layout.Table, rep diag.Reporter, mode Mode) *Registry {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return &Registry{
		env:        env,
		mod:        mod,
		layouts:    layouts,
		rep:        rep,
		mode:       mode,
		records:    make(map[string]*Record, 64),
		inProgress: make(map[string]bool),
		funcs:      make(map[string]*FuncInstance, 64),
	}
}

func (r *Registry) Env() typeenv.Env        { return r.env }
func (r *Registry) Module() *emit.Module    { return r.mod }
func (r *Registry) Layouts() *layout.Table  { return r.layouts }
func (r *Registry) Reporter() diag.Reporter { return r.rep }

// PushSubst makes s the active substitution. Nested pushes are composed
// so inner bodies see outer bindings.
func (r *Registry) PushSubst(s types.Subst) {
	if n := len(r.substs); n > 0 {
		s = r.substs[n-1].Compose(s)
	}
	r.substs = append(r.substs, s)
}

func (r *Registry) PopSubst() {
	if len(r.substs) > 0 {
		r.substs = r.substs[:len(r.substs)-1]
	}
}

// Resolve applies the active substitution to t.
func (r *Registry) Resolve(t *types.Type) *types.Type {
	if n := len(r.substs); n > 0 {
		return r.substs[n-1].Apply(t)
	}
	return t
}

func (r *Registry) resolveAll(args []*types.Type) []*types.Type {
	if len(args) == 0 {
		return nil
	}
	out := make([]*types.Type, len(args))
	for i, a := range args {
		out[i] = r.Resolve(a)
	}
	return out
}

// Lookup returns the record of a specialized name.
func (r *Registry) Lookup(name string) (*Record, bool) {
	rec, ok := r.records[name]
	return rec, ok
}

// Records returns all records sorted by name.
func (r *Registry) Records() []*Record {
	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Deferred lists requests that still mentioned generic parameters.
func (r *Registry) Deferred() []Deferred {
	return append([]Deferred(nil), r.deferred...)
}

// NewTypes drains the names of types defined since the previous call.
func (r *Registry) NewTypes() []string {
	out := r.newTypes
	r.newTypes = nil
	return out
}

// LLType returns the value type of t: void for Unit and Never.
func (r *Registry) LLType(t *types.Type, span source.Span) string {
	return r.llType(r.Resolve(t), span, false)
}

// StorageType is LLType with void widened to i8 for slots and fields.
func (r *Registry) StorageType(t *types.Type, span source.Span) string {
	ll := r.llType(r.Resolve(t), span, false)
	if ll == "void" {
		return "i8"
	}
	return ll
}

func (r *Registry) llType(t *types.Type, span source.Span, quiet bool) string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case types.KindUnit, types.KindNever:
		return "void"
	case types.KindBool:
		return "i1"
	case types.KindChar:
		return "i32"
	case types.KindStr, types.KindPointer, types.KindFunc:
		return "ptr"
	case types.KindInt, types.KindUint:
		return fmt.Sprintf("i%d", t.Width)
	case types.KindFloat:
		if t.Width == types.Width32 {
			return "float"
		}
		return "double"
	case types.KindArray:
		elem := r.llType(t.Elem, span, quiet)
		if elem == "void" {
			elem = "i8"
		}
		return fmt.Sprintf("[%d x %s]", t.Len, elem)
	case types.KindTuple:
		return emit.StructType(r.requireTuple(t, span))
	case types.KindNamed:
		return emit.StructType(r.Require(t.Name, t.Args, span))
	case types.KindParam:
		if !quiet {
			diag.Warnf(r.rep, diag.CgUnresolvedGeneric, span,
				"generic parameter %s is unresolved here; lowered as i64", t.Name).Emit()
		}
		return "i64"
	}
	diag.Errorf(r.rep, diag.CgUnsupported, span, "type %s has no lowering", t).Emit()
	return "i64"
}

// TypeName returns the specialized name of a named or tuple type.
func (r *Registry) TypeName(t *types.Type, span source.Span) string {
	t = r.Resolve(t)
	switch {
	case t == nil:
		return ""
	case t.Kind == types.KindTuple:
		return r.requireTuple(t, span)
	case t.Kind == types.KindNamed:
		return r.Require(t.Name, t.Args, span)
	}
	return ""
}

// LayoutOf returns the concrete layout of a named or tuple type.
func (r *Registry) LayoutOf(t *types.Type, span source.Span) (*layout.TypeLayout, bool) {
	name := r.TypeName(t, span)
	if name == "" {
		return nil, false
	}
	return r.layouts.Get(name)
}

// Require returns the specialized name of base[args], defining its layout
// on first use. Arguments are resolved against the active substitution.
func (r *Registry) Require(base string, args []*types.Type, span source.Span) string {
	args = r.resolveAll(args)
	if canon, ok := ContainerBase(base); ok {
		return r.requireContainer(canon, span)
	}
	name := Mangle(base, args)
	if rec, ok := r.records[name]; ok {
		if rec.Kind == KindFunc || rec.Kind == KindMethod || rec.Base != base || !sameArgs(rec.Args, args) {
			diag.Errorf(r.rep, diag.CgLayoutConflict, span,
				"%s[%s] and %s[%s] share the specialized name %s",
				rec.Base, joinTypes(rec.Args), base, joinTypes(args), name).Emit()
		}
		return name
	}
	if r.inProgress[name] {
		diag.Errorf(r.rep, diag.CgUnsupported, span,
			"recursive value type %s has infinite size", name).Emit()
		return name
	}
	placeholder := false
	for _, a := range args {
		if a.ContainsParam() {
			placeholder = true
			break
		}
	}
	if placeholder {
		diag.Warnf(r.rep, diag.CgUnresolvedGeneric, span,
			"%s instantiated with unresolved parameters; using a placeholder layout", name).Emit()
		r.deferred = append(r.deferred, Deferred{Base: base, Args: args, Span: span})
	}

	if s, ok := r.env.LookupStruct(base); ok {
		r.defineStruct(name, s, args, span, placeholder)
		return name
	}
	if e, ok := r.env.LookupEnum(base); ok {
		r.defineEnum(name, e, args, span, placeholder)
		return name
	}
	if len(args) > 0 {
		diag.Warnf(r.rep, diag.CgMissingGenericBase, span,
			"generic base %s not found in this unit or its imports; using an opaque layout", base).Emit()
	} else {
		diag.Warnf(r.rep, diag.CgMissingLayout, span,
			"type %s is not declared; using an opaque layout", base).Emit()
	}
	r.defineOpaque(name, base, args, KindOpaque, span, true)
	return name
}

// requireContainer maps every element type onto one handle layout.
func (r *Registry) requireContainer(canon string, span source.Span) string {
	if _, ok := r.records[canon]; !ok {
		r.defineOpaque(canon, canon, nil, KindContainer, span, false)
	}
	return canon
}

func (r *Registry) defineOpaque(name, base string, args []*types.Type, kind Kind, span source.Span, placeholder bool) {
	l := &layout.TypeLayout{
		Name:        name,
		LLType:      emit.StructType(name),
		Kind:        layout.KindOpaque,
		Decl:        base,
		Placeholder: placeholder,
	}
	r.finishType(&Record{Name: name, Base: base, Args: args, Kind: kind, Placeholder: placeholder, Span: span}, l, span)
}

func (r *Registry) requireTuple(t *types.Type, span source.Span) string {
	name := TupleName(t)
	if _, ok := r.records[name]; ok {
		return name
	}
	fields := make([]layout.Field, len(t.Args))
	placeholder := false
	for i, elem := range t.Args {
		if elem.ContainsParam() {
			placeholder = true
		}
		fields[i] = layout.Field{
			Name:   fmt.Sprintf("%d", i),
			Index:  i,
			LLType: r.storage(elem, span, placeholder),
			Sem:    elem,
		}
	}
	l := &layout.TypeLayout{
		Name:        name,
		LLType:      emit.StructType(name),
		Kind:        layout.KindTuple,
		Sem:         t,
		Fields:      fields,
		Placeholder: placeholder,
	}
	r.finishType(&Record{Name: name, Base: "tuple", Args: t.Args, Kind: KindTuple, Placeholder: placeholder, Span: span}, l, span)
	return name
}

func (r *Registry) storage(t *types.Type, span source.Span, quiet bool) string {
	ll := r.llType(t, span, quiet)
	if ll == "void" {
		return "i8"
	}
	return ll
}

func (r *Registry) defineStruct(name string, s *hir.StructDecl, args []*types.Type, span source.Span, placeholder bool) {
	r.inProgress[name] = true
	defer delete(r.inProgress, name)

	subst := types.Bind(s.TypeParams, args)
	fields := make([]layout.Field, len(s.Fields))
	for i, f := range s.Fields {
		ft := subst.Apply(f.Type)
		fields[i] = layout.Field{
			Name:   f.Name,
			Index:  i,
			LLType: r.storage(ft, span, placeholder),
			Sem:    ft,
		}
	}
	l := &layout.TypeLayout{
		Name:        name,
		LLType:      emit.StructType(name),
		Kind:        layout.KindStruct,
		Sem:         types.Named(s.Name, args...),
		Decl:        s.Name,
		Fields:      fields,
		Placeholder: placeholder,
	}
	r.finishType(&Record{Name: name, Base: s.Name, Args: args, Kind: KindStruct, Placeholder: placeholder, Span: span}, l, span)
}

func (r *Registry) defineEnum(name string, e *hir.EnumDecl, args []*types.Type, span source.Span, placeholder bool) {
	r.inProgress[name] = true
	defer delete(r.inProgress, name)

	subst := types.Bind(e.TypeParams, args)
	variants := make([]layout.Variant, len(e.Variants))
	for tag, v := range e.Variants {
		fields := make([]layout.Field, len(v.Fields))
		for i, ft := range v.Fields {
			ft = subst.Apply(ft)
			fields[i] = layout.Field{
				Name:   fmt.Sprintf("%d", i),
				Index:  i,
				LLType: r.storage(ft, span, placeholder),
				Sem:    ft,
			}
		}
		variants[tag] = layout.Variant{Name: v.Name, Tag: tag, Fields: fields}
	}
	l := &layout.TypeLayout{
		Name:        name,
		LLType:      emit.StructType(name),
		Kind:        layout.KindEnum,
		Sem:         types.Named(e.Name, args...),
		Decl:        e.Name,
		Variants:    variants,
		Placeholder: placeholder,
	}
	r.finishType(&Record{Name: name, Base: e.Name, Args: args, Kind: KindEnum, Placeholder: placeholder, Span: span}, l, span)
}

// finishType records the layout and writes the type definition. Field
// types were required first, so nested definitions precede this one.
func (r *Registry) finishType(rec *Record, l *layout.TypeLayout, span source.Span) {
	r.records[rec.Name] = rec
	if err := r.layouts.Put(l); err != nil {
		code := diag.CgMissingLayout
		var lerr *layout.LayoutError
		if errors.As(err, &lerr) && lerr.Kind == layout.LayoutErrConflict {
			code = diag.CgLayoutConflict
		}
		diag.ReportError(r.rep, code, span, err.Error()).Emit()
		return
	}
	if r.mod != nil {
		r.mod.DefineType(rec.Name, l.Body())
	}
	rec.Generated = true
	r.newTypes = append(r.newTypes, rec.Name)
}

// Finish reports persistent deferred requests. In strict mode each one is
// an error; otherwise the placeholder warnings already emitted stand.
func (r *Registry) Finish() {
	if r.mode != ModeStrict {
		return
	}
	for _, d := range r.deferred {
		diag.Errorf(r.rep, diag.CgDeferredGeneric, d.Span,
			"%s never became concrete", Mangle(d.Base, d.Args)).Emit()
	}
}

// Linkage returns the linkage for functions attached to a specialized
// type: instantiations and tuples may be generated by several shards.
func (r *Registry) Linkage(typeName string) string {
	rec, ok := r.records[typeName]
	if !ok {
		return ""
	}
	if len(rec.Args) > 0 || rec.Kind == KindTuple {
		return "linkonce_odr"
	}
	return ""
}

func sameArgs(a, b []*types.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !types.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func joinTypes(ts []*types.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
