// Package drop inserts destructor calls at scope exits.
//
// Variables whose type has its own Drop impl, or whose fields transitively
// need dropping, are tracked on a stack of lexical scopes. Every tracked
// variable that still owns its value gets exactly one destructor call on
// each path that leaves its scope. Moves along straight-line code are
// resolved at compile time; moves under a condition use a one-bit flag.
package drop

import (
	"fmt"
	"slices"

	"ember/internal/emit"
	"ember/internal/layout"
	"ember/internal/mono"
	"ember/internal/source"
	"ember/internal/types"
)

// Options tune destructor insertion.
type Options struct {
	// PartialDrops destroys only the still-owned fields of a field-level
	// type after one of its fields was moved. When false the whole
	// variable is exempt, as it always is for types with their own Drop.
	PartialDrops bool
}

func DefaultOptions() Options { return Options{PartialDrops: true} }

// DropBehavior is the behavior name of destructor impls.
const DropBehavior = "Drop"

type Manager struct {
	reg  *mono.Registry
	mod  *emit.Module
	opts Options

	f         *emit.Func
	scopes    []*scope
	condDepth int

	needs  map[string]bool
	visits map[string]bool
	glue   map[string]string
}

func New(reg *mono.Registry, opts Options) *Manager {
	return &Manager{
		reg:    reg,
		mod:    reg.Module(),
		opts:   opts,
		needs:  make(map[string]bool),
		visits: make(map[string]bool),
		glue:   make(map[string]string),
	}
}

// Begin starts a function body: the stack is reset and the function
// scope is opened.
func (m *Manager) Begin(f *emit.Func) {
	m.f = f
	m.scopes = m.scopes[:0]
	m.condDepth = 0
	m.EnterScope(ScopeFunction)
}

// Depth is the number of open scopes.
func (m *Manager) Depth() int { return len(m.scopes) }

func (m *Manager) EnterScope(kind ScopeKind) {
	m.scopes = append(m.scopes, &scope{kind: kind})
}

// LeaveScope emits the current scope's destructors, unless control already
// left the block, and pops it.
func (m *Manager) LeaveScope() {
	if len(m.scopes) == 0 {
		return
	}
	if !m.f.Terminated() {
		m.EmitScopeExit()
	}
	m.scopes = m.scopes[:len(m.scopes)-1]
}

// BeginConditional marks code that runs on some paths only, such as the
// right operand of a short-circuit operator.
func (m *Manager) BeginConditional() { m.condDepth++ }

func (m *Manager) EndConditional() {
	if m.condDepth > 0 {
		m.condDepth--
	}
}

// Track registers a variable stored at loc. Returns false when the type
// needs no destruction.
func (m *Manager) Track(name, loc string, sem *types.Type) bool {
	if len(m.scopes) == 0 || !m.NeedsDrop(sem) {
		return false
	}
	sym, own := m.dropFor(sem)
	e := &entry{
		name:     name,
		loc:      loc,
		sem:      sem,
		llType:   m.reg.StorageType(sem, source.Span{}),
		dropSym:  sym,
		own:      own,
		depth:    len(m.scopes),
		cond:     m.condDepth,
		initHole: m.f.Hole(),
	}
	top := m.scopes[len(m.scopes)-1]
	top.entries = append(top.entries, e)
	return true
}

// Tracked reports whether name resolves to a tracked variable.
func (m *Manager) Tracked(name string) bool { return m.find(name) != nil }

func (m *Manager) find(name string) *entry {
	for i := len(m.scopes) - 1; i >= 0; i-- {
		es := m.scopes[i].entries
		for j := len(es) - 1; j >= 0; j-- {
			if es[j].name == name {
				return es[j]
			}
		}
	}
	return nil
}

func (m *Manager) conditional(e *entry) bool {
	return len(m.scopes) > e.depth || m.condDepth > e.cond
}

// MarkMoved records that ownership of name left the variable.
func (m *Manager) MarkMoved(name string) {
	e := m.find(name)
	if e == nil {
		return
	}
	m.markMoved(e, &e.whole)
}

// MarkFieldMoved records a move out of name.field.
func (m *Manager) MarkFieldMoved(name, field string) {
	e := m.find(name)
	if e == nil {
		return
	}
	if e.own || !m.opts.PartialDrops {
		m.markMoved(e, &e.whole)
		return
	}
	if e.fields == nil {
		e.fields = make(map[string]*moveState)
	}
	st, ok := e.fields[field]
	if !ok {
		st = &moveState{}
		e.fields[field] = st
	}
	m.markMoved(e, st)
}

func (m *Manager) markMoved(e *entry, st *moveState) {
	if m.conditional(e) {
		m.ensureFlag(e, st)
		m.f.Store("i1", "false", st.flag)
		st.moved = true
		return
	}
	st.moved = true
	if st.flag != "" {
		m.f.Store("i1", "false", st.flag)
		return
	}
	st.moveHoles = append(st.moveHoles, m.f.Hole())
}

func (m *Manager) ensureFlag(e *entry, st *moveState) {
	if st.flag != "" {
		return
	}
	st.flag = m.f.Alloca("i1")
	e.initHole.Fill("store i1 true, ptr %s", st.flag)
	for _, h := range st.moveHoles {
		h.Fill("store i1 false, ptr %s", st.flag)
	}
	st.moveHoles = nil
}

// Reinit is called before a new value is stored into a tracked variable:
// the old value is destroyed if still owned and the variable owns again.
func (m *Manager) Reinit(name string) {
	e := m.find(name)
	if e == nil {
		return
	}
	m.emitDrop(e)
	if m.conditional(e) {
		m.ensureFlag(e, &e.whole)
	}
	e.whole.moved = false
	if e.whole.flag != "" {
		m.f.Store("i1", "true", e.whole.flag)
	}
	for _, st := range e.fields {
		if m.conditional(e) {
			m.ensureFlag(e, st)
		}
		st.moved = false
		if st.flag != "" {
			m.f.Store("i1", "true", st.flag)
		}
	}
}

// ReinitField is Reinit for one field of a tracked variable: the old field
// value is destroyed if still owned and the field owns again.
func (m *Manager) ReinitField(name, field string) {
	e := m.find(name)
	if e == nil || (e.whole.moved && e.whole.flag == "") {
		return
	}
	l, ok := m.reg.LayoutOf(e.sem, source.Span{})
	if !ok {
		return
	}
	fl, ok := l.Field(field)
	if !ok || !m.NeedsDrop(fl.Sem) {
		return
	}
	st := e.fields[field]
	if st == nil || !st.moved || st.flag != "" {
		flag := ""
		if st != nil {
			flag = st.flag
		}
		m.guarded(e.whole.flag, func() {
			m.guarded(flag, func() {
				sym, _ := m.dropFor(fl.Sem)
				m.call(sym, m.f.GEP(l.LLType, e.loc, fl.Index))
			})
		})
	}
	if st == nil {
		return
	}
	if m.conditional(e) {
		m.ensureFlag(e, st)
	}
	st.moved = false
	if st.flag != "" {
		m.f.Store("i1", "true", st.flag)
	}
}

// EmitScopeExit destroys the current scope's entries, last-declared first.
func (m *Manager) EmitScopeExit() {
	if len(m.scopes) == 0 {
		return
	}
	m.emitFrame(m.scopes[len(m.scopes)-1])
}

// EmitAllScopeExits destroys every open scope innermost-out, for return.
func (m *Manager) EmitAllScopeExits() {
	for i := len(m.scopes) - 1; i >= 0; i-- {
		m.emitFrame(m.scopes[i])
	}
}

// EmitLoopExits destroys the scopes opened inside the innermost loop,
// including the loop body scope itself, for break and continue.
func (m *Manager) EmitLoopExits() {
	for i := len(m.scopes) - 1; i >= 0; i-- {
		m.emitFrame(m.scopes[i])
		if m.scopes[i].kind == ScopeLoop {
			return
		}
	}
}

func (m *Manager) emitFrame(s *scope) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		m.emitDrop(s.entries[i])
	}
}

func (m *Manager) emitDrop(e *entry) {
	if !e.whole.touched() && !m.anyFieldTouched(e) {
		m.call(e.dropSym, e.loc)
		return
	}
	if e.whole.flag == "" && e.whole.moved {
		return
	}
	if !m.anyFieldTouched(e) {
		m.guarded(e.whole.flag, func() { m.call(e.dropSym, e.loc) })
		return
	}
	m.guarded(e.whole.flag, func() { m.dropFields(e) })
}

func (m *Manager) anyFieldTouched(e *entry) bool {
	for _, st := range e.fields {
		if st.touched() {
			return true
		}
	}
	return false
}

// guarded runs body only when flag is set; an empty flag means always.
func (m *Manager) guarded(flag string, body func()) {
	if flag == "" {
		body()
		return
	}
	f := m.f
	v := f.Load("i1", flag)
	run := f.Label("drop")
	skip := f.Label("drop.skip")
	f.CondBr(v, run, skip)
	f.Block(run)
	body()
	f.Br(skip)
	f.Block(skip)
}

// dropFields destroys the fields of a field-level type that are still
// owned, last field first.
func (m *Manager) dropFields(e *entry) {
	l, ok := m.reg.LayoutOf(e.sem, source.Span{})
	if !ok {
		return
	}
	for _, fl := range slices.Backward(l.Fields) {
		if !m.NeedsDrop(fl.Sem) {
			continue
		}
		st := e.fields[fl.Name]
		if st != nil && st.flag == "" && st.moved {
			continue
		}
		flag := ""
		if st != nil {
			flag = st.flag
		}
		m.guarded(flag, func() {
			addr := m.f.GEP(l.LLType, e.loc, fl.Index)
			sym, _ := m.dropFor(fl.Sem)
			m.call(sym, addr)
		})
	}
}

func (m *Manager) call(sym, addr string) {
	if sym == "" {
		return
	}
	m.f.Emitf("call void %s(ptr %s)", sym, addr)
}

// NeedsDrop reports whether values of t require a destructor call.
func (m *Manager) NeedsDrop(t *types.Type) bool {
	t = m.reg.Resolve(t)
	if t == nil {
		return false
	}
	switch t.Kind {
	case types.KindArray:
		return m.NeedsDrop(t.Elem)
	case types.KindNamed, types.KindTuple:
	default:
		return false
	}
	key := mono.TupleName(t)
	if v, ok := m.needs[key]; ok {
		return v
	}
	if m.visits[key] {
		return false
	}
	m.visits[key] = true
	defer delete(m.visits, key)

	v := m.hasOwnDrop(t) || m.fieldsNeedDrop(t)
	m.needs[key] = v
	return v
}

func (m *Manager) hasOwnDrop(t *types.Type) bool {
	return t.Kind == types.KindNamed && m.reg.Env().Implements(t, DropBehavior)
}

func (m *Manager) fieldsNeedDrop(t *types.Type) bool {
	l, ok := m.reg.LayoutOf(t, source.Span{})
	if !ok {
		return false
	}
	for _, f := range l.Fields {
		if m.NeedsDrop(f.Sem) {
			return true
		}
	}
	for _, v := range l.Variants {
		for _, f := range v.Fields {
			if m.NeedsDrop(f.Sem) {
				return true
			}
		}
	}
	return false
}

// dropFor returns the destructor symbol for t and whether it is a user
// Drop impl called directly.
func (m *Manager) dropFor(t *types.Type) (string, bool) {
	t = m.reg.Resolve(t)
	own := m.hasOwnDrop(t)
	if own && (t.Kind != types.KindNamed || !m.fieldsNeedDrop(t)) {
		name, ok := m.reg.RequireMethod(t, "drop", source.Span{})
		if ok {
			return m.mod.Symbol(name), true
		}
	}
	return m.glueFor(t), own
}

func (m *Manager) glueFor(t *types.Type) string {
	key := mono.TupleName(t)
	if sym, ok := m.glue[key]; ok {
		return sym
	}
	sym := m.mod.Symbol(key + "_drop_glue")
	m.glue[key] = sym
	m.genGlue(t, sym)
	return sym
}

func (m *Manager) genGlue(t *types.Type, sym string) {
	f := m.mod.NewFunc(sym, "linkonce_odr", "void", []emit.Param{{Type: "ptr", Name: "this"}})
	if t.Kind == types.KindArray {
		arrLL := m.reg.StorageType(t, source.Span{})
		elemSym, _ := m.dropFor(t.Elem)
		m.glueArray(f, arrLL, t.Len, elemSym)
		f.RetVoid()
		f.Finish()
		return
	}
	if m.hasOwnDrop(t) {
		if name, ok := m.reg.RequireMethod(t, "drop", source.Span{}); ok {
			f.Emitf("call void %s(ptr %%this)", m.mod.Symbol(name))
		}
	}
	l, ok := m.reg.LayoutOf(t, source.Span{})
	if ok {
		m.glueFields(f, l)
	}
	f.RetVoid()
	f.Finish()
}

func (m *Manager) glueFields(f *emit.Func, l *layout.TypeLayout) {
	dropAt := func(sem *types.Type, addr string) {
		if !m.NeedsDrop(sem) {
			return
		}
		sym, _ := m.dropFor(sem)
		f.Emitf("call void %s(ptr %s)", sym, addr)
	}
	if l.Kind != layout.KindEnum {
		for _, fl := range slices.Backward(l.Fields) {
			if m.NeedsDrop(fl.Sem) {
				dropAt(fl.Sem, f.GEP(l.LLType, "%this", fl.Index))
			}
		}
		return
	}
	tag := f.Load("i32", f.GEP(l.LLType, "%this", 0))
	after := f.Label("glue.done")
	var cases []emit.Case
	var targets []*layout.Variant
	for i := range l.Variants {
		v := &l.Variants[i]
		needs := false
		for _, fl := range v.Fields {
			if m.NeedsDrop(fl.Sem) {
				needs = true
			}
		}
		if !needs {
			continue
		}
		cases = append(cases, emit.Case{Value: fmt.Sprintf("%d", v.Tag), Label: f.Label("glue." + emit.Escape(v.Name))})
		targets = append(targets, v)
	}
	if len(cases) == 0 {
		return
	}
	f.Switch("i32", tag, after, cases)
	for i, v := range targets {
		f.Block(cases[i].Label)
		pay := f.GEP(l.LLType, "%this", 1)
		for _, fl := range slices.Backward(v.Fields) {
			if m.NeedsDrop(fl.Sem) {
				dropAt(fl.Sem, f.GEP(v.PayloadType, pay, fl.Index))
			}
		}
		f.Br(after)
	}
	f.Block(after)
}

func (m *Manager) glueArray(f *emit.Func, arrLL string, n uint64, elemSym string) {
	idx := f.Alloca("i64")
	f.Store("i64", "0", idx)
	cond, body, done := f.Label("arr.cond"), f.Label("arr.body"), f.Label("arr.done")
	f.Br(cond)
	f.Block(cond)
	i := f.Load("i64", idx)
	c := f.Assign("icmp ult i64 %s, %d", i, n)
	f.CondBr(c, body, done)
	f.Block(body)
	p := f.Assign("getelementptr inbounds %s, ptr %%this, i64 0, i64 %s", arrLL, i)
	f.Emitf("call void %s(ptr %s)", elemSym, p)
	f.Store("i64", f.Assign("add i64 %s, 1", i), idx)
	f.Br(cond)
	f.Block(done)
}
