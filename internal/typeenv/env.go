// Package typeenv is the backend's read-only view of checked declarations.
package typeenv

import (
	"strings"

	"ember/internal/hir"
	"ember/internal/types"
)

// Env answers declaration queries during code generation. Implementations
// never mutate and are safe to share between sessions.
type Env interface {
	LookupStruct(name string) (*hir.StructDecl, bool)
	LookupEnum(name string) (*hir.EnumDecl, bool)
	// Implements reports whether t (or the generic base of an instantiation)
	// has an impl of behavior, or derives it.
	Implements(t *types.Type, behavior string) bool
	// Resolve finds a free function by "name" or "module::name".
	Resolve(path string) (*hir.Func, bool)
	// LookupMethod finds an impl method declared for the named base type.
	LookupMethod(base, method string) (*hir.Func, *hir.ImplDecl, bool)
}

type moduleIndex struct {
	name    string
	structs map[string]*hir.StructDecl
	enums   map[string]*hir.EnumDecl
	funcs   map[string]*hir.Func
}

type methodKey struct {
	base   string
	method string
}

type implKey struct {
	base     string
	behavior string
}

// Table is the in-memory Env built from a unit. The unit's own module is
// searched first, then imports in order, then the prelude.
type Table struct {
	modules []*moduleIndex
	byName  map[string]*moduleIndex
	methods map[methodKey]methodEntry
	impls   map[implKey]*hir.ImplDecl
}

type methodEntry struct {
	fn   *hir.Func
	impl *hir.ImplDecl
}

// NewTable indexes the unit. A nil unit yields a table with only the prelude.
func NewTable(unit *hir.Unit) *Table {
	t := &Table{
		byName:  make(map[string]*moduleIndex),
		methods: make(map[methodKey]methodEntry),
		impls:   make(map[implKey]*hir.ImplDecl),
	}
	if unit != nil {
		t.add(unit.Module)
		for _, imp := range unit.Imports {
			t.add(imp)
		}
	}
	t.add(Prelude())
	return t
}

func (t *Table) add(m *hir.Module) {
	if m == nil {
		return
	}
	idx := &moduleIndex{
		name:    m.Name,
		structs: make(map[string]*hir.StructDecl, len(m.Structs)),
		enums:   make(map[string]*hir.EnumDecl, len(m.Enums)),
		funcs:   make(map[string]*hir.Func, len(m.Funcs)),
	}
	for _, s := range m.Structs {
		idx.structs[s.Name] = s
	}
	for _, e := range m.Enums {
		idx.enums[e.Name] = e
	}
	for _, f := range m.Funcs {
		idx.funcs[f.Name] = f
	}
	for _, impl := range m.Impls {
		if impl.Target == nil {
			continue
		}
		base := impl.Target.Name
		if impl.Behavior != "" {
			if _, dup := t.impls[implKey{base, impl.Behavior}]; !dup {
				t.impls[implKey{base, impl.Behavior}] = impl
			}
		}
		for _, fn := range impl.Methods {
			key := methodKey{base, fn.Name}
			if _, dup := t.methods[key]; !dup {
				t.methods[key] = methodEntry{fn: fn, impl: impl}
			}
		}
	}
	t.modules = append(t.modules, idx)
	if _, dup := t.byName[m.Name]; !dup {
		t.byName[m.Name] = idx
	}
}

// splitPath turns "a::b::Name" into ("a::b", "Name").
func splitPath(path string) (string, string) {
	if i := strings.LastIndex(path, "::"); i >= 0 {
		return path[:i], path[i+2:]
	}
	return "", path
}

func (t *Table) LookupStruct(name string) (*hir.StructDecl, bool) {
	mod, short := splitPath(name)
	if mod != "" {
		if idx, ok := t.byName[mod]; ok {
			s, ok := idx.structs[short]
			return s, ok
		}
		return nil, false
	}
	for _, idx := range t.modules {
		if s, ok := idx.structs[short]; ok {
			return s, true
		}
	}
	return nil, false
}

func (t *Table) LookupEnum(name string) (*hir.EnumDecl, bool) {
	mod, short := splitPath(name)
	if mod != "" {
		if idx, ok := t.byName[mod]; ok {
			e, ok := idx.enums[short]
			return e, ok
		}
		return nil, false
	}
	for _, idx := range t.modules {
		if e, ok := idx.enums[short]; ok {
			return e, true
		}
	}
	return nil, false
}

func (t *Table) Resolve(path string) (*hir.Func, bool) {
	mod, short := splitPath(path)
	if mod != "" {
		if idx, ok := t.byName[mod]; ok {
			f, ok := idx.funcs[short]
			return f, ok
		}
		return nil, false
	}
	for _, idx := range t.modules {
		if f, ok := idx.funcs[short]; ok {
			return f, true
		}
	}
	return nil, false
}

func (t *Table) LookupMethod(base, method string) (*hir.Func, *hir.ImplDecl, bool) {
	e, ok := t.methods[methodKey{base, method}]
	if !ok {
		return nil, nil, false
	}
	return e.fn, e.impl, true
}

func (t *Table) Implements(ty *types.Type, behavior string) bool {
	if ty == nil || ty.Kind != types.KindNamed {
		return false
	}
	base := ty.Name
	if _, ok := t.impls[implKey{base, behavior}]; ok {
		return true
	}
	trait, ok := hir.ParseTrait(behavior)
	if !ok {
		return false
	}
	if s, ok := t.LookupStruct(base); ok {
		return s.HasDerive(trait)
	}
	if e, ok := t.LookupEnum(base); ok {
		return e.HasDerive(trait)
	}
	return false
}
