package emit

import (
	"fmt"
	"strings"
)

// Param is a function parameter; Name is the bare register name.
type Param struct {
	Type string
	Name string
}

// Func builds the body of one function. Instructions are appended to the
// current block; emitting after a terminator opens an unreachable block so
// the output stays well formed.
type Func struct {
	mod     *Module
	sym     string
	linkage string
	ret     string
	params  []Param
	attrs   string

	entry []string
	lines []string

	regs       int
	labels     map[string]int
	cur        string
	terminated bool
}

// NewFunc starts a function body. linkage may be empty for external
// linkage or e.g. "internal", "linkonce_odr".
func (m *Module) NewFunc(sym, linkage, ret string, params []Param) *Func {
	return &Func{
		mod:     m,
		sym:     sym,
		linkage: linkage,
		ret:     ret,
		params:  params,
		labels:  make(map[string]int),
		cur:     "entry",
	}
}

func (f *Func) Module() *Module  { return f.mod }
func (f *Func) Symbol() string   { return f.sym }
func (f *Func) RetType() string { return f.ret }

// SetAttrs sets trailing function attributes, e.g. "nounwind".
func (f *Func) SetAttrs(attrs string) { f.attrs = attrs }

// Reg allocates a fresh SSA register name.
func (f *Func) Reg() string {
	r := fmt.Sprintf("%%t%d", f.regs)
	f.regs++
	return r
}

// Label returns a fresh block label derived from hint.
func (f *Func) Label(hint string) string {
	n := f.labels[hint]
	f.labels[hint] = n + 1
	return fmt.Sprintf("%s.%d", hint, n)
}

// Current returns the label of the block being filled.
func (f *Func) Current() string { return f.cur }

// Terminated reports whether the current block already ends in a terminator.
func (f *Func) Terminated() bool { return f.terminated }

// Emitf appends one instruction to the current block.
func (f *Func) Emitf(format string, args ...any) {
	if f.terminated {
		f.openDead()
	}
	f.lines = append(f.lines, "  "+fmt.Sprintf(format, args...))
}

// Assign emits "%r = <instr>" and returns %r.
func (f *Func) Assign(format string, args ...any) string {
	r := f.Reg()
	f.Emitf("%s = %s", r, fmt.Sprintf(format, args...))
	return r
}

// Alloca reserves a stack slot in the entry block.
func (f *Func) Alloca(ty string) string {
	r := f.Reg()
	f.entry = append(f.entry, fmt.Sprintf("  %s = alloca %s", r, ty))
	return r
}

// EntryStore initializes a slot at function entry.
func (f *Func) EntryStore(ty, value, ptr string) {
	f.entry = append(f.entry, fmt.Sprintf("  store %s %s, ptr %s", ty, value, ptr))
}

// Store writes value into ptr.
func (f *Func) Store(ty, value, ptr string) {
	f.Emitf("store %s %s, ptr %s", ty, value, ptr)
}

// Load reads a value of type ty from ptr.
func (f *Func) Load(ty, ptr string) string {
	return f.Assign("load %s, ptr %s", ty, ptr)
}

// GEP computes the address of field idx of an aggregate.
func (f *Func) GEP(aggTy, ptr string, idx ...int) string {
	var sb strings.Builder
	sb.WriteString("i32 0")
	for _, i := range idx {
		fmt.Fprintf(&sb, ", i32 %d", i)
	}
	return f.Assign("getelementptr inbounds %s, ptr %s, %s", aggTy, ptr, sb.String())
}

// Value returns a usable SSA value for op, loading places.
func (f *Func) Value(op Operand) string {
	if op.Place {
		return f.Load(op.Type, op.Ref)
	}
	return op.Ref
}

// Addr returns the address of op, spilling values to a fresh slot.
func (f *Func) Addr(op Operand) string {
	if op.Place {
		return op.Ref
	}
	slot := f.Alloca(op.Type)
	f.Store(op.Type, op.Ref, slot)
	return slot
}

// Block starts a new block. A block left open falls through with a branch.
func (f *Func) Block(label string) {
	if !f.terminated {
		f.lines = append(f.lines, fmt.Sprintf("  br label %%%s", label))
	}
	f.lines = append(f.lines, label+":")
	f.cur = label
	f.terminated = false
}

func (f *Func) openDead() {
	label := f.Label("dead")
	f.lines = append(f.lines, label+":")
	f.cur = label
	f.terminated = false
}

func (f *Func) terminate(format string, args ...any) {
	if f.terminated {
		return
	}
	f.lines = append(f.lines, "  "+fmt.Sprintf(format, args...))
	f.terminated = true
}

func (f *Func) Br(label string) { f.terminate("br label %%%s", label) }

func (f *Func) CondBr(cond, then, els string) {
	f.terminate("br i1 %s, label %%%s, label %%%s", cond, then, els)
}

// Case is one arm of a switch terminator.
type Case struct {
	Value string
	Label string
}

func (f *Func) Switch(ty, value, def string, cases []Case) {
	var sb strings.Builder
	for _, c := range cases {
		fmt.Fprintf(&sb, " %s %s, label %%%s", ty, c.Value, c.Label)
	}
	f.terminate("switch %s %s, label %%%s [%s ]", ty, value, def, sb.String())
}

func (f *Func) Ret(ty, value string) { f.terminate("ret %s %s", ty, value) }
func (f *Func) RetVoid()             { f.terminate("ret void") }
func (f *Func) Unreachable()         { f.terminate("unreachable") }

// Hole reserves a position in the current block that can be filled later.
type Hole struct {
	f   *Func
	idx int
}

func (f *Func) Hole() *Hole {
	if f.terminated {
		f.openDead()
	}
	f.lines = append(f.lines, "")
	return &Hole{f: f, idx: len(f.lines) - 1}
}

// Fill writes instructions into the hole. Repeated calls append.
func (h *Hole) Fill(format string, args ...any) {
	line := "  " + fmt.Sprintf(format, args...)
	if h.f.lines[h.idx] == "" {
		h.f.lines[h.idx] = line
		return
	}
	h.f.lines[h.idx] += "\n" + line
}

func (h *Hole) Filled() bool { return h.f.lines[h.idx] != "" }

// Finish closes the function and adds it to the module. A block left open
// is closed with unreachable, or ret void for void functions.
func (f *Func) Finish() {
	if !f.terminated {
		if f.ret == "void" {
			f.RetVoid()
		} else {
			f.Unreachable()
		}
	}
	var sb strings.Builder
	sb.WriteString("define ")
	if f.linkage != "" {
		sb.WriteString(f.linkage)
		sb.WriteString(" ")
	}
	params := make([]string, len(f.params))
	for i, p := range f.params {
		params[i] = fmt.Sprintf("%s %%%s", p.Type, p.Name)
	}
	fmt.Fprintf(&sb, "%s %s(%s)", f.ret, f.sym, strings.Join(params, ", "))
	if f.attrs != "" {
		sb.WriteString(" ")
		sb.WriteString(f.attrs)
	}
	sb.WriteString(" {\nentry:\n")
	for _, l := range f.entry {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	for _, l := range f.lines {
		if l == "" {
			continue
		}
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("}\n")
	f.mod.addFunc(f.sym, sb.String())
}
