package codegen

import (
	"ember/internal/diag"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/typeenv"
	"ember/internal/types"
)

func (s *Session) lowerBinary(e *hir.Expr, d *hir.BinaryData) emit.Operand {
	if d.Op == hir.BinAnd || d.Op == hir.BinOr {
		return s.lowerShortCircuit(e, d)
	}
	if d.Op.IsComparison() {
		return s.lowerCompare(e, d)
	}
	f := s.f
	sem := s.reg.Resolve(e.Type)
	l := s.lowerExpr(d.Left)
	r := s.lowerExpr(d.Right)
	lv, rv := f.Value(l), f.Value(r)
	ll := l.Type

	var opcode string
	if sem.IsFloat() {
		switch d.Op {
		case hir.BinAdd:
			opcode = "fadd"
		case hir.BinSub:
			opcode = "fsub"
		case hir.BinMul:
			opcode = "fmul"
		case hir.BinDiv:
			opcode = "fdiv"
		case hir.BinRem:
			opcode = "frem"
		}
	} else if sem.IsInteger() || sem.IsBool() || sem.Kind == types.KindChar {
		signed := sem.IsSigned()
		switch d.Op {
		case hir.BinAdd:
			opcode = "add"
		case hir.BinSub:
			opcode = "sub"
		case hir.BinMul:
			opcode = "mul"
		case hir.BinDiv:
			opcode = pick(signed, "sdiv", "udiv")
		case hir.BinRem:
			opcode = pick(signed, "srem", "urem")
		case hir.BinBitAnd:
			opcode = "and"
		case hir.BinBitOr:
			opcode = "or"
		case hir.BinBitXor:
			opcode = "xor"
		case hir.BinShl:
			opcode = "shl"
		case hir.BinShr:
			opcode = pick(signed, "ashr", "lshr")
		}
		if r.Type != ll && (d.Op == hir.BinShl || d.Op == hir.BinShr) {
			rv = s.widen(rv, r.Type, s.reg.Resolve(d.Right.Type), ll)
		}
	}
	if opcode == "" {
		s.errorf(diag.CgUnsupported, e.Span, "operator %s on %s is not supported", opName(d.Op), sem)
		return emit.Value("undef", s.reg.LLType(sem, e.Span), sem)
	}
	return emit.Value(f.Assign("%s %s %s, %s", opcode, ll, lv, rv), ll, sem)
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

// lowerShortCircuit evaluates the right operand only when needed. Moves in
// the right operand happen on some paths only.
func (s *Session) lowerShortCircuit(e *hir.Expr, d *hir.BinaryData) emit.Operand {
	f := s.f
	lv := f.Value(s.lowerExpr(d.Left))
	start := f.Current()
	rhsL := f.Label("sc.rhs")
	endL := f.Label("sc.end")
	short := "false"
	if d.Op == hir.BinAnd {
		f.CondBr(lv, rhsL, endL)
	} else {
		short = "true"
		f.CondBr(lv, endL, rhsL)
	}
	f.Block(rhsL)
	s.drops.BeginConditional()
	rv := f.Value(s.lowerExpr(d.Right))
	s.drops.EndConditional()
	rhsEnd := f.Current()
	reached := !f.Terminated()
	f.Br(endL)
	f.Block(endL)
	sem := s.reg.Resolve(e.Type)
	if !reached {
		return emit.Value(short, "i1", sem)
	}
	return emit.Value(f.Assign("phi i1 [ %s, %%%s ], [ %s, %%%s ]", short, start, rv, rhsEnd), "i1", sem)
}

func (s *Session) lowerCompare(e *hir.Expr, d *hir.BinaryData) emit.Operand {
	f := s.f
	sem := s.reg.Resolve(d.Left.Type)
	res := s.reg.Resolve(e.Type)
	if sem != nil && (sem.Kind == types.KindNamed || sem.Kind == types.KindTuple) {
		return s.lowerDerivedCompare(e, d, sem)
	}
	l := s.lowerExpr(d.Left)
	r := s.lowerExpr(d.Right)
	lv, rv := f.Value(l), f.Value(r)

	switch {
	case sem.IsStr():
		if d.Op == hir.BinEq || d.Op == hir.BinNe {
			c := f.Assign("call i32 %s(ptr %s, ptr %s)", s.mod.Runtime("rt_str_eq"), lv, rv)
			return emit.Value(f.Assign("icmp %s i32 %s, 0", pick(d.Op == hir.BinEq, "ne", "eq"), c), "i1", res)
		}
		c := f.Assign("call i32 %s(ptr %s, ptr %s)", s.mod.Runtime("rt_str_cmp"), lv, rv)
		return emit.Value(f.Assign("icmp %s i32 %s, 0", intPred(d.Op, true), c), "i1", res)
	case sem.IsFloat():
		return emit.Value(f.Assign("fcmp %s %s %s, %s", floatPred(d.Op), l.Type, lv, rv), "i1", res)
	case sem.IsVoid():
		return emit.Value(emit.BoolConst(d.Op == hir.BinEq || d.Op == hir.BinLe || d.Op == hir.BinGe), "i1", res)
	}
	return emit.Value(f.Assign("icmp %s %s %s, %s", intPred(d.Op, sem.IsSigned()), l.Type, lv, rv), "i1", res)
}

func intPred(op hir.BinaryOp, signed bool) string {
	switch op {
	case hir.BinEq:
		return "eq"
	case hir.BinNe:
		return "ne"
	case hir.BinLt:
		return pick(signed, "slt", "ult")
	case hir.BinLe:
		return pick(signed, "sle", "ule")
	case hir.BinGt:
		return pick(signed, "sgt", "ugt")
	default:
		return pick(signed, "sge", "uge")
	}
}

func floatPred(op hir.BinaryOp) string {
	switch op {
	case hir.BinEq:
		return "oeq"
	case hir.BinNe:
		return "une"
	case hir.BinLt:
		return "olt"
	case hir.BinLe:
		return "ole"
	case hir.BinGt:
		return "ogt"
	default:
		return "oge"
	}
}

// lowerDerivedCompare compares aggregates through their eq or cmp method,
// user-written first, synthesized otherwise.
func (s *Session) lowerDerivedCompare(e *hir.Expr, d *hir.BinaryData, sem *types.Type) emit.Operand {
	f := s.f
	res := s.reg.Resolve(e.Type)
	la := f.Addr(s.lowerExpr(d.Left))
	ra := f.Addr(s.lowerExpr(d.Right))

	if d.Op == hir.BinEq || d.Op == hir.BinNe {
		sym, ok := s.methodSymbol(sem, hir.TraitPartialEq, e)
		if !ok {
			return emit.Value("false", "i1", res)
		}
		v := f.Assign("call i1 %s(ptr %s, ptr %s)", sym, la, ra)
		if d.Op == hir.BinNe {
			v = f.Assign("xor i1 %s, true", v)
		}
		return emit.Value(v, "i1", res)
	}

	sym, ok := s.methodSymbol(sem, hir.TraitOrd, e)
	if !ok {
		return emit.Value("false", "i1", res)
	}
	ordTy := emit.StructType(s.reg.Require("Ordering", nil, e.Span))
	r := f.Assign("call %s %s(ptr %s, ptr %s)", ordTy, sym, la, ra)
	tag := f.Assign("extractvalue %s %s, 0", ordTy, r)
	var v string
	switch d.Op {
	case hir.BinLt:
		v = f.Assign("icmp eq i32 %s, %d", tag, typeenv.OrderingLess)
	case hir.BinLe:
		v = f.Assign("icmp ne i32 %s, %d", tag, typeenv.OrderingGreater)
	case hir.BinGt:
		v = f.Assign("icmp eq i32 %s, %d", tag, typeenv.OrderingGreater)
	default:
		v = f.Assign("icmp ne i32 %s, %d", tag, typeenv.OrderingLess)
	}
	return emit.Value(v, "i1", res)
}

// methodSymbol finds the implementation of trait's method for sem.
func (s *Session) methodSymbol(sem *types.Type, trait hir.Trait, e *hir.Expr) (string, bool) {
	if name, ok := s.reg.RequireMethod(sem, trait.Method(), e.Span); ok {
		return s.mod.Symbol(name), true
	}
	if sym, ok := s.synth.RequestFor(sem, trait, e.Span); ok {
		s.note("derive", sym)
		return sym, true
	}
	s.errorf(diag.CgUnknownMethod, e.Span, "%s has no %s implementation", sem, trait)
	return "", false
}
