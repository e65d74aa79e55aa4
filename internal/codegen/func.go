package codegen

import (
	"fmt"

	"ember/internal/diag"
	"ember/internal/drop"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/mono"
	"ember/internal/pattern"
	"ember/internal/types"
)

// local is a named stack slot.
type local struct {
	op emit.Operand
	// deferred is set for a let without initializer until its first assignment.
	deferred bool
	tracked  bool
	depth    int
	// owner is set for match bindings, which borrow from the scrutinee.
	owner pattern.Owner
}

type frame struct {
	vars map[string]*local
}

type loopTarget struct {
	brk  string
	cont string
}

func (s *Session) symbolFor(inst *mono.FuncInstance) string {
	if s.isEntry(inst) {
		return "@main"
	}
	return s.mod.Symbol(inst.Name)
}

func (s *Session) isEntry(inst *mono.FuncInstance) bool {
	return inst.Impl == nil && !inst.Generic && inst.Decl.Name == "main" && len(inst.Decl.Params) == 0
}

func (s *Session) lowerFunc(inst *mono.FuncInstance) {
	decl := inst.Decl
	if decl == nil || decl.Body == nil {
		return
	}
	s.reg.PushSubst(inst.Subst)
	defer s.reg.PopSubst()

	s.inst = inst
	s.isMain = s.isEntry(inst)
	s.retSem = s.reg.Resolve(decl.Result)
	s.frames = s.frames[:0]
	s.loops = s.loops[:0]
	s.temps = 0

	ret := s.reg.LLType(s.retSem, decl.Span)
	if s.isMain {
		ret = "i32"
	}
	params := make([]emit.Param, len(decl.Params))
	for i, p := range decl.Params {
		params[i] = emit.Param{Type: s.reg.StorageType(p.Type, decl.Span), Name: "arg." + emit.Escape(p.Name)}
	}
	linkage := ""
	if inst.Generic {
		linkage = "linkonce_odr"
	}
	s.f = s.mod.NewFunc(s.symbolFor(inst), linkage, ret, params)
	s.drops.Begin(s.f)
	s.frames = append(s.frames, &frame{vars: map[string]*local{}})

	for i, p := range decl.Params {
		sem := s.reg.Resolve(p.Type)
		ll := params[i].Type
		slot := s.f.Alloca(ll)
		s.f.EntryStore(ll, "%"+params[i].Name, slot)
		loc := &local{op: emit.Place(slot, ll, sem), depth: s.drops.Depth()}
		s.frames[0].vars[p.Name] = loc
		loc.tracked = s.drops.Track(p.Name, slot, sem)
	}

	v := s.lowerBlock(decl.Body)
	if !s.f.Terminated() {
		val := ""
		if !v.IsVoid() {
			val = s.f.Value(v)
		}
		s.drops.EmitAllScopeExits()
		s.emitRet(val, v)
	}
	s.f.Finish()
	s.f = nil
}

// emitRet returns val from the current function. The entry point always
// returns an i32 exit status.
func (s *Session) emitRet(val string, op emit.Operand) {
	f := s.f
	if s.isMain {
		switch {
		case val == "" || !s.retSem.IsInteger():
			f.Ret("i32", "0")
		case op.Type == "i32":
			f.Ret("i32", val)
		case s.retSem.Bits() > 32:
			f.Ret("i32", f.Assign("trunc %s %s to i32", op.Type, val))
		case s.retSem.IsSigned():
			f.Ret("i32", f.Assign("sext %s %s to i32", op.Type, val))
		default:
			f.Ret("i32", f.Assign("zext %s %s to i32", op.Type, val))
		}
		return
	}
	ret := f.RetType()
	switch {
	case ret == "void":
		f.RetVoid()
	case val == "":
		f.Ret(ret, "undef")
	default:
		f.Ret(ret, val)
	}
}

func (s *Session) pushScope(kind drop.ScopeKind) {
	s.drops.EnterScope(kind)
	s.frames = append(s.frames, &frame{vars: map[string]*local{}})
}

func (s *Session) popScope() {
	s.drops.LeaveScope()
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *Session) declare(name string, l *local) {
	s.frames[len(s.frames)-1].vars[name] = l
}

func (s *Session) lookup(name string) *local {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if l, ok := s.frames[i].vars[name]; ok {
			return l
		}
	}
	return nil
}

// The methods below let the pattern compiler drive this session.

func (s *Session) Func() *emit.Func        { return s.f }
func (s *Session) Reporter() diag.Reporter { return s.rep }

func (s *Session) PushScope(k drop.ScopeKind) {
	s.pushScope(k)
}

func (s *Session) PopScope() {
	s.popScope()
}

func (s *Session) Lower(e *hir.Expr) emit.Operand   { return s.lowerExpr(e) }
func (s *Session) Consume(e *hir.Expr) emit.Operand { return s.consume(e) }

func (s *Session) Declare(name string, place emit.Operand, owner pattern.Owner) {
	s.declare(name, &local{op: place, depth: s.drops.Depth(), owner: s.rootOwner(owner)})
}

func (s *Session) TrackTemp(slot string, sem *types.Type) string {
	s.temps++
	name := fmt.Sprintf(".tmp%d", s.temps)
	if !s.drops.Track(name, slot, sem) {
		return ""
	}
	return name
}

// rootOwner follows bindings of bindings back to a tracked variable.
func (s *Session) rootOwner(o pattern.Owner) pattern.Owner {
	loc := s.lookup(o.Root)
	if loc == nil || loc.tracked || loc.owner.Root == "" {
		return o
	}
	return loc.owner
}

// moveOwner records a move out of a binding as a move out of the variable
// it borrows from. Inside an arm the move is conditional, so the owner's
// destructor ends up behind a drop flag.
func (s *Session) moveOwner(o pattern.Owner) {
	if o.Root == "" {
		return
	}
	if o.Field != "" {
		s.drops.MarkFieldMoved(o.Root, o.Field)
		return
	}
	s.drops.MarkMoved(o.Root)
}
