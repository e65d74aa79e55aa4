package codegen

import (
	"ember/internal/diag"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/types"
)

func (s *Session) lowerCast(e *hir.Expr, d *hir.CastData) emit.Operand {
	f := s.f
	to := s.reg.Resolve(e.Type)
	from := s.reg.Resolve(d.Value.Type)
	op := s.lowerExpr(d.Value)
	if types.Equal(from, to) {
		return op
	}
	v := f.Value(op)
	fromLL, toLL := op.Type, s.reg.LLType(to, e.Span)
	intLike := func(t *types.Type) bool {
		return t.IsInteger() || t.IsBool() || t.Kind == types.KindChar
	}

	switch {
	case intLike(from) && intLike(to):
		if fromLL == toLL {
			return emit.Value(v, toLL, to)
		}
		if to.IsBool() {
			return emit.Value(f.Assign("icmp ne %s %s, 0", fromLL, v), "i1", to)
		}
		return emit.Value(s.widen(v, fromLL, from, toLL), toLL, to)
	case intLike(from) && to.IsFloat():
		return emit.Value(f.Assign("%s %s %s to %s", pick(from.IsSigned(), "sitofp", "uitofp"), fromLL, v, toLL), toLL, to)
	case from.IsFloat() && intLike(to):
		return emit.Value(f.Assign("%s %s %s to %s", pick(to.IsSigned(), "fptosi", "fptoui"), fromLL, v, toLL), toLL, to)
	case from.IsFloat() && to.IsFloat():
		if from.Bits() < to.Bits() {
			return emit.Value(f.Assign("fpext %s %s to %s", fromLL, v, toLL), toLL, to)
		}
		return emit.Value(f.Assign("fptrunc %s %s to %s", fromLL, v, toLL), toLL, to)
	case fromLL == "ptr" && toLL == "ptr":
		return emit.Value(v, "ptr", to)
	}
	s.errorf(diag.CgUnsupported, e.Span, "cast from %s to %s is not supported", from, to)
	return emit.Value("undef", toLL, to)
}
