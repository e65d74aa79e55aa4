package codegen

import (
	"strings"

	"ember/internal/derive"
	"ember/internal/diag"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/mono"
	"ember/internal/types"
)

func (s *Session) lowerCall(e *hir.Expr, d *hir.CallData) emit.Operand {
	switch d.Callee {
	case "print":
		return s.lowerPrint(e, d)
	case "panic":
		return s.lowerPanic(e, d)
	}
	decl, ok := s.env.Resolve(d.Callee)
	if !ok {
		s.errorf(diag.CgUnknownSymbol, e.Span, "unknown function %s", d.Callee)
		return s.undef(e)
	}
	if len(d.Args) != len(decl.Params) {
		s.errorf(diag.CgUnsupported, e.Span, "%s takes %d arguments, got %d", d.Callee, len(decl.Params), len(d.Args))
		return s.undef(e)
	}

	var sym string
	bind := types.Subst{}
	switch {
	case decl.Body == nil:
		s.declareExtern(decl)
		sym = s.mod.Symbol(mono.Mangle(decl.Name, nil))
	case decl.IsGeneric():
		args := s.typeArgs(decl, d, e)
		bind = types.Bind(decl.TypeParams, args)
		sym = s.mod.Symbol(s.reg.RequireFunc(decl, args, e.Span))
	default:
		sym = s.mod.Symbol(s.reg.RequireFunc(decl, nil, e.Span))
	}

	params := make([]string, len(decl.Params))
	for i, p := range decl.Params {
		params[i] = s.reg.StorageType(bind.Apply(p.Type), e.Span)
	}
	retSem := s.reg.Resolve(bind.Apply(decl.Result))
	return s.emitCall(e, sym, nil, params, d.Args, retSem)
}

// typeArgs returns explicit type arguments, or infers them by matching the
// parameter and result types against the call site.
func (s *Session) typeArgs(decl *hir.Func, d *hir.CallData, e *hir.Expr) []*types.Type {
	if len(d.TypeArgs) > 0 {
		out := make([]*types.Type, len(d.TypeArgs))
		for i, a := range d.TypeArgs {
			out[i] = s.reg.Resolve(a)
		}
		return out
	}
	sub := types.Subst{}
	for i, p := range decl.Params {
		types.Match(p.Type, s.reg.Resolve(d.Args[i].Type), sub)
	}
	types.Match(decl.Result, s.reg.Resolve(e.Type), sub)
	out := make([]*types.Type, len(decl.TypeParams))
	for i, tp := range decl.TypeParams {
		if a, ok := sub[tp]; ok {
			out[i] = a
		} else {
			out[i] = types.Param(tp)
		}
	}
	return out
}

// emitCall evaluates args, moving them into the callee, and emits the call.
// pre holds already-lowered leading arguments such as a receiver address.
func (s *Session) emitCall(e *hir.Expr, sym string, pre []string, params []string, args []*hir.Expr, retSem *types.Type) emit.Operand {
	f := s.f
	list := append([]string(nil), pre...)
	for i, a := range args {
		op := s.consume(a)
		if f.Terminated() {
			return emit.VoidOperand
		}
		ll := op.Type
		if i < len(params) {
			ll = params[i]
		}
		v := "0"
		if !op.IsVoid() {
			v = f.Value(op)
		} else if ll == "void" {
			ll = "i8"
		}
		list = append(list, ll+" "+v)
	}
	ret := s.reg.LLType(retSem, e.Span)
	argList := strings.Join(list, ", ")
	if ret == "void" {
		f.Emitf("call void %s(%s)", sym, argList)
		if retSem != nil && retSem.Kind == types.KindNever {
			f.Unreachable()
		}
		return emit.VoidOperand
	}
	return emit.Value(f.Assign("call %s %s(%s)", ret, sym, argList), ret, retSem)
}

func (s *Session) undef(e *hir.Expr) emit.Operand {
	sem := s.reg.Resolve(e.Type)
	ll := s.reg.LLType(sem, e.Span)
	if ll == "void" {
		return emit.VoidOperand
	}
	return emit.Value("undef", ll, sem)
}

// lowerMethodCall dispatches to a user impl, then to a synthesized derive,
// then to the reflection variant accessor.
func (s *Session) lowerMethodCall(e *hir.Expr, d *hir.MethodCallData) emit.Operand {
	recv, sem := s.object(d.Receiver)
	retSem := s.reg.Resolve(e.Type)

	if name, ok := s.reg.RequireMethod(sem, d.Method, e.Span); ok {
		params := make([]string, len(d.Args))
		for i, a := range d.Args {
			params[i] = s.reg.StorageType(a.Type, e.Span)
		}
		return s.emitCall(e, s.mod.Symbol(name), []string{"ptr " + recv}, params, d.Args, retSem)
	}

	if d.Method == derive.VariantNameMethod {
		if _, ok := s.synth.RequestFor(sem, hir.TraitReflect, e.Span); ok {
			sym := s.synth.Symbol(s.reg.TypeName(sem, e.Span), derive.VariantNameMethod)
			return emit.Value(s.f.Assign("call ptr %s(ptr %s)", sym, recv), "ptr", retSem)
		}
	}

	trait, ok := hir.TraitForMethod(d.Method)
	if !ok {
		s.errorf(diag.CgUnknownMethod, e.Span, "%s has no method %s", sem, d.Method)
		return s.undef(e)
	}
	sym, ok := s.synth.RequestFor(sem, trait, e.Span)
	if !ok {
		s.errorf(diag.CgUnknownMethod, e.Span, "cannot derive %s for %s", trait, sem)
		return s.undef(e)
	}
	s.note("derive", sym)
	f := s.f
	switch trait {
	case hir.TraitReflect:
		return emit.Value(f.Assign("call ptr %s()", sym), "ptr", retSem)
	case hir.TraitHash:
		return emit.Value(f.Assign("call i64 %s(ptr %s)", sym, recv), "i64", retSem)
	case hir.TraitDebug, hir.TraitDisplay:
		return emit.Value(f.Assign("call ptr %s(ptr %s)", sym, recv), "ptr", retSem)
	case hir.TraitDuplicate:
		ll := s.reg.LLType(sem, e.Span)
		return emit.Value(f.Assign("call %s %s(ptr %s)", ll, sym, recv), ll, sem)
	}
	if len(d.Args) != 1 {
		s.errorf(diag.CgUnsupported, e.Span, "%s takes one argument", d.Method)
		return s.undef(e)
	}
	other, _ := s.object(d.Args[0])
	ret := s.reg.LLType(retSem, e.Span)
	return emit.Value(f.Assign("call %s %s(ptr %s, ptr %s)", ret, sym, recv, other), ret, retSem)
}

// lowerPrint writes one value through the runtime print helpers.
func (s *Session) lowerPrint(e *hir.Expr, d *hir.CallData) emit.Operand {
	f := s.f
	if len(d.Args) != 1 {
		s.errorf(diag.CgUnsupported, e.Span, "print takes one argument")
		return emit.VoidOperand
	}
	op := s.lowerExpr(d.Args[0])
	sem := s.reg.Resolve(d.Args[0].Type)
	if op.IsVoid() {
		return emit.VoidOperand
	}
	if sem.Kind == types.KindNamed || sem.Kind == types.KindTuple {
		s.printText(e, op, sem)
		return emit.VoidOperand
	}
	v := f.Value(op)
	switch {
	case sem.IsStr():
		f.Emitf("call void %s(ptr %s)", s.mod.Runtime("rt_print_str"), v)
	case sem.IsFloat():
		if op.Type != "double" {
			v = f.Assign("fpext %s %s to double", op.Type, v)
		}
		f.Emitf("call void %s(double %s)", s.mod.Runtime("rt_print_f64"), v)
	case sem.IsSigned():
		f.Emitf("call void %s(i64 %s)", s.mod.Runtime("rt_print_i64"), s.widen(v, op.Type, sem, "i64"))
	case sem.IsInteger() || sem.IsBool() || sem.Kind == types.KindChar:
		f.Emitf("call void %s(i64 %s)", s.mod.Runtime("rt_print_u64"), s.widen(v, op.Type, sem, "i64"))
	default:
		s.errorf(diag.CgUnsupported, e.Span, "cannot print a value of type %s", sem)
	}
	return emit.VoidOperand
}

// printText prints an aggregate through its to_string method, user
// written or derived.
func (s *Session) printText(e *hir.Expr, op emit.Operand, sem *types.Type) {
	f := s.f
	addr := f.Addr(op)
	var sym string
	if name, ok := s.reg.RequireMethod(sem, hir.TraitDisplay.Method(), e.Span); ok {
		sym = s.mod.Symbol(name)
	} else if derived, ok := s.synth.RequestFor(sem, hir.TraitDisplay, e.Span); ok {
		sym = derived
	} else {
		s.errorf(diag.CgUnsupported, e.Span, "cannot print a value of type %s", sem)
		return
	}
	text := f.Assign("call ptr %s(ptr %s)", sym, addr)
	f.Emitf("call void %s(ptr %s)", s.mod.Runtime("rt_print_str"), text)
}

func (s *Session) lowerPanic(e *hir.Expr, d *hir.CallData) emit.Operand {
	f := s.f
	msg := s.mod.StringConst("panic")
	if len(d.Args) == 1 {
		op := s.lowerExpr(d.Args[0])
		if f.Terminated() {
			return emit.VoidOperand
		}
		if !op.IsVoid() {
			msg = f.Value(op)
		}
	}
	f.Emitf("call void %s(ptr %s)", s.mod.Runtime("rt_panic"), msg)
	f.Unreachable()
	return emit.VoidOperand
}
