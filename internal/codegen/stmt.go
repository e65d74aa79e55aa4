package codegen

import (
	"ember/internal/diag"
	"ember/internal/drop"
	"ember/internal/emit"
	"ember/internal/hir"
)

// lowerBlock lowers b in the current scope and returns its tail value.
func (s *Session) lowerBlock(b *hir.Block) emit.Operand {
	if b == nil {
		return emit.VoidOperand
	}
	for _, st := range b.Stmts {
		s.lowerStmt(st)
	}
	if b.Tail == nil {
		return emit.VoidOperand
	}
	return s.consume(b.Tail)
}

// scoped lowers b inside a fresh scope. Scalar results are read before the
// scope's destructors run.
func (s *Session) scoped(kind drop.ScopeKind, b *hir.Block) emit.Operand {
	s.pushScope(kind)
	v := s.lowerBlock(b)
	if v.Place && !s.f.Terminated() && v.Sem.IsScalar() {
		v = emit.Value(s.f.Value(v), v.Type, v.Sem)
	}
	s.popScope()
	return v
}

func (s *Session) lowerStmt(st *hir.Stmt) {
	switch d := st.Data.(type) {
	case *hir.LetData:
		s.lowerLet(st, d)
	case *hir.ExprStmtData:
		s.lowerExprStmt(d.Expr)
	case *hir.AssignData:
		s.lowerAssign(st, d)
	case *hir.ReturnData:
		val := ""
		var op emit.Operand
		if d.Value != nil {
			op = s.consume(d.Value)
			if !op.IsVoid() && !s.f.Terminated() {
				val = s.f.Value(op)
			}
		}
		if s.f.Terminated() {
			return
		}
		s.drops.EmitAllScopeExits()
		s.emitRet(val, op)
	case *hir.BreakData:
		s.lowerJump(st, true)
	case *hir.ContinueData:
		s.lowerJump(st, false)
	case *hir.WhileData:
		s.lowerWhile(d)
	case *hir.LoopData:
		s.lowerLoop(d)
	case *hir.BlockStmtData:
		s.scoped(drop.ScopeBlock, d.Block)
	default:
		s.errorf(diag.CgUnsupported, st.Span, "statement %s is not supported", st.Kind)
	}
}

func (s *Session) lowerLet(st *hir.Stmt, d *hir.LetData) {
	sem := s.reg.Resolve(d.Type)
	if sem == nil && d.Value != nil {
		sem = s.reg.Resolve(d.Value.Type)
	}
	ll := s.reg.StorageType(sem, st.Span)
	slot := s.f.Alloca(ll)
	loc := &local{op: emit.Place(slot, ll, sem), depth: s.drops.Depth()}
	if d.Value == nil {
		loc.deferred = true
		s.declare(d.Name, loc)
		return
	}
	op := s.consume(d.Value)
	if !s.f.Terminated() {
		s.store(slot, ll, op)
	}
	s.declare(d.Name, loc)
	loc.tracked = s.drops.Track(d.Name, slot, sem)
}

// lowerExprStmt evaluates e for its effects. A discarded temporary that
// needs destruction is kept in a hidden local of the current scope.
func (s *Session) lowerExprStmt(e *hir.Expr) {
	op := s.lowerExpr(e)
	if op.IsVoid() || s.f.Terminated() || !isTemporary(e) {
		return
	}
	sem := s.reg.Resolve(e.Type)
	if !s.drops.NeedsDrop(sem) {
		return
	}
	s.TrackTemp(s.f.Addr(op), sem)
}

func isTemporary(e *hir.Expr) bool {
	switch e.Kind {
	case hir.ExprCall, hir.ExprMethodCall, hir.ExprStructLit, hir.ExprEnumLit, hir.ExprTupleLit, hir.ExprArrayLit:
		return true
	}
	return false
}

func (s *Session) lowerAssign(st *hir.Stmt, d *hir.AssignData) {
	op := s.consume(d.Value)
	if s.f.Terminated() {
		return
	}
	switch d.Target.Kind {
	case hir.ExprVarRef:
		name := d.Target.Data.(*hir.VarRefData).Name
		loc := s.lookup(name)
		if loc == nil {
			s.errorf(diag.CgInvalidAssignTarget, st.Span, "assignment to undeclared variable %s", name)
			return
		}
		if loc.deferred {
			loc.deferred = false
			s.store(loc.op.Ref, loc.op.Type, op)
			if s.drops.Depth() == loc.depth {
				loc.tracked = s.drops.Track(name, loc.op.Ref, loc.op.Sem)
			} else if s.drops.NeedsDrop(loc.op.Sem) {
				s.warnf(diag.CgUnsupported, st.Span, "%s is first initialized in a nested scope and will not be destroyed", name)
			}
			return
		}
		if loc.tracked {
			s.drops.Reinit(name)
		}
		s.store(loc.op.Ref, loc.op.Type, op)
	case hir.ExprField, hir.ExprIndex, hir.ExprUnary:
		place := s.lowerExpr(d.Target)
		if !place.Place {
			s.errorf(diag.CgInvalidAssignTarget, st.Span, "%s is not assignable", d.Target.Kind)
			return
		}
		if fd, ok := d.Target.Data.(*hir.FieldData); ok && fd.Object.Kind == hir.ExprVarRef {
			name := fd.Object.Data.(*hir.VarRefData).Name
			if loc := s.lookup(name); loc != nil && loc.tracked {
				s.drops.ReinitField(name, fd.Field)
			}
		}
		s.store(place.Ref, place.Type, op)
	default:
		s.errorf(diag.CgInvalidAssignTarget, st.Span, "%s is not assignable", d.Target.Kind)
	}
}

// store writes op into slot. Unit values have nothing to store.
func (s *Session) store(slot, ll string, op emit.Operand) {
	if op.IsVoid() {
		return
	}
	s.f.Store(ll, s.f.Value(op), slot)
}

func (s *Session) lowerJump(st *hir.Stmt, isBreak bool) {
	if len(s.loops) == 0 {
		s.errorf(diag.CgUnsupported, st.Span, "%s outside of a loop", st.Kind)
		return
	}
	lp := s.loops[len(s.loops)-1]
	s.drops.EmitLoopExits()
	if isBreak {
		s.f.Br(lp.brk)
	} else {
		s.f.Br(lp.cont)
	}
}

func (s *Session) lowerWhile(d *hir.WhileData) {
	f := s.f
	condL := f.Label("while.cond")
	bodyL := f.Label("while.body")
	endL := f.Label("while.end")
	f.Br(condL)
	f.Block(condL)
	c := f.Value(s.lowerExpr(d.Cond))
	f.CondBr(c, bodyL, endL)
	f.Block(bodyL)
	s.loops = append(s.loops, loopTarget{brk: endL, cont: condL})
	s.scoped(drop.ScopeLoop, d.Body)
	s.loops = s.loops[:len(s.loops)-1]
	f.Br(condL)
	f.Block(endL)
}

func (s *Session) lowerLoop(d *hir.LoopData) {
	f := s.f
	bodyL := f.Label("loop.body")
	endL := f.Label("loop.end")
	f.Br(bodyL)
	f.Block(bodyL)
	s.loops = append(s.loops, loopTarget{brk: endL, cont: bodyL})
	s.scoped(drop.ScopeLoop, d.Body)
	s.loops = s.loops[:len(s.loops)-1]
	f.Br(bodyL)
	f.Block(endL)
}
