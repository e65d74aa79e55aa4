// Package emit accumulates textual IR. A Module keeps separate sections for
// type definitions, globals, declarations and function bodies and joins them
// in that order, so a type may be defined at any point during generation and
// still precede every function that uses it.
package emit

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultTriple is used when the project does not configure a target.
const DefaultTriple = "x86_64-unknown-linux-gnu"

type Module struct {
	name   string
	triple string
	prefix string

	typeOrder []string
	typeDefs  map[string]string

	globals  []string
	strs     map[string]string
	strCount int

	runtime  map[string]bool
	externs  map[string]string
	funcs    []string
	funcSyms map[string]bool
}

// NewModule creates an empty module. prefix is prepended to every user symbol.
func NewModule(name, triple, prefix string) *Module {
	if triple == "" {
		triple = DefaultTriple
	}
	return &Module{
		name:     name,
		triple:   triple,
		prefix:   prefix,
		typeDefs: make(map[string]string),
		strs:     make(map[string]string),
		runtime:  make(map[string]bool),
		externs:  make(map[string]string),
		funcSyms: make(map[string]bool),
	}
}

func (m *Module) Name() string   { return m.name }
func (m *Module) Triple() string { return m.triple }
func (m *Module) Prefix() string { return m.prefix }

// StructType returns the IR spelling of a named aggregate.
func StructType(name string) string {
	return "%struct." + Escape(name)
}

// DefineType records "%struct.name = type body". A second definition of
// the same name is ignored and reported as false.
func (m *Module) DefineType(name, body string) bool {
	if _, ok := m.typeDefs[name]; ok {
		return false
	}
	m.typeDefs[name] = body
	m.typeOrder = append(m.typeOrder, name)
	return true
}

func (m *Module) HasType(name string) bool {
	_, ok := m.typeDefs[name]
	return ok
}

// TypeBody returns the body a type was defined with.
func (m *Module) TypeBody(name string) (string, bool) {
	body, ok := m.typeDefs[name]
	return body, ok
}

// TypeNames lists defined types in definition order.
func (m *Module) TypeNames() []string {
	return append([]string(nil), m.typeOrder...)
}

// AddGlobal appends a complete global definition line.
func (m *Module) AddGlobal(line string) {
	m.globals = append(m.globals, line)
}

// StringConst interns a NUL-terminated string constant and returns its symbol.
func (m *Module) StringConst(s string) string {
	if sym, ok := m.strs[s]; ok {
		return sym
	}
	sym := fmt.Sprintf("@.str.%d", m.strCount)
	m.strCount++
	m.strs[s] = sym
	m.globals = append(m.globals, fmt.Sprintf("%s = private unnamed_addr constant [%d x i8] c\"%s\\00\"",
		sym, len(s)+1, escapeBytes(s)))
	return sym
}

// Symbol returns the global name of a user function.
func (m *Module) Symbol(name string) string {
	return "@" + m.prefix + Escape(name)
}

// GlobalName returns "@<name>" escaped, without the user prefix.
func GlobalName(name string) string {
	return "@" + Escape(name)
}

// Runtime declares a runtime helper on first use and returns its symbol.
func (m *Module) Runtime(name string) string {
	if _, known := runtimeDecls[name]; !known {
		panic(fmt.Sprintf("emit: unknown runtime helper %q", name))
	}
	m.runtime[name] = true
	return "@" + name
}

// UsesRuntime reports whether the helper has been declared.
func (m *Module) UsesRuntime(name string) bool { return m.runtime[name] }

// Declare records an external function declaration.
func (m *Module) Declare(sym, ret string, params []string) {
	if _, ok := m.externs[sym]; ok {
		return
	}
	m.externs[sym] = fmt.Sprintf("declare %s %s(%s)", ret, sym, strings.Join(params, ", "))
}

// HasFunc reports whether a body was already emitted for sym.
func (m *Module) HasFunc(sym string) bool { return m.funcSyms[sym] }

func (m *Module) addFunc(sym, text string) {
	m.funcSyms[sym] = true
	m.funcs = append(m.funcs, text)
}

// String assembles the final text.
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; ModuleID = '%s'\n", m.name)
	fmt.Fprintf(&sb, "source_filename = \"%s\"\n", m.name)
	fmt.Fprintf(&sb, "target triple = \"%s\"\n", m.triple)

	if len(m.typeOrder) > 0 {
		sb.WriteString("\n")
		for _, name := range m.typeOrder {
			fmt.Fprintf(&sb, "%s = type %s\n", StructType(name), m.typeDefs[name])
		}
	}
	if len(m.globals) > 0 {
		sb.WriteString("\n")
		for _, g := range m.globals {
			sb.WriteString(g)
			sb.WriteString("\n")
		}
	}
	decls := make([]string, 0, len(m.runtime)+len(m.externs))
	for name := range m.runtime {
		decls = append(decls, runtimeDecls[name])
	}
	for sym, line := range m.externs {
		if !m.funcSyms[sym] {
			decls = append(decls, line)
		}
	}
	if len(decls) > 0 {
		sort.Strings(decls)
		sb.WriteString("\n")
		for _, d := range decls {
			sb.WriteString(d)
			sb.WriteString("\n")
		}
	}
	for _, f := range m.funcs {
		sb.WriteString("\n")
		sb.WriteString(f)
	}
	return sb.String()
}

func escapeBytes(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			sb.WriteByte(c)
			continue
		}
		fmt.Fprintf(&sb, "\\%02X", c)
	}
	return sb.String()
}
