package codegen

import (
	"fmt"
	"strconv"

	"ember/internal/diag"
	"ember/internal/drop"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/mono"
	"ember/internal/pattern"
	"ember/internal/types"
)

// consume lowers e as a value that leaves its place: moving out of a
// tracked variable or one of its fields is recorded with the drop manager.
func (s *Session) consume(e *hir.Expr) emit.Operand {
	op := s.lowerExpr(e)
	s.markMoved(e)
	return op
}

func (s *Session) markMoved(e *hir.Expr) {
	switch d := e.Data.(type) {
	case *hir.VarRefData:
		loc := s.lookup(d.Name)
		switch {
		case loc == nil:
		case loc.tracked:
			s.drops.MarkMoved(d.Name)
		case loc.owner.Root != "" && s.drops.NeedsDrop(s.reg.Resolve(e.Type)):
			s.moveOwner(loc.owner)
		}
	case *hir.FieldData:
		v, ok := d.Object.Data.(*hir.VarRefData)
		if !ok || d.Object.Type.Kind == types.KindPointer || !s.drops.NeedsDrop(s.reg.Resolve(e.Type)) {
			return
		}
		loc := s.lookup(v.Name)
		switch {
		case loc == nil:
		case loc.tracked:
			s.drops.MarkFieldMoved(v.Name, d.Field)
		case loc.owner.Root != "":
			s.moveOwner(loc.owner)
		}
	}
}

func (s *Session) lowerExpr(e *hir.Expr) emit.Operand {
	if e == nil {
		return emit.VoidOperand
	}
	switch d := e.Data.(type) {
	case *hir.LiteralData:
		return s.lowerLiteral(e, d)
	case *hir.VarRefData:
		return s.lowerVar(e, d)
	case *hir.UnaryData:
		return s.lowerUnary(e, d)
	case *hir.BinaryData:
		return s.lowerBinary(e, d)
	case *hir.CallData:
		return s.lowerCall(e, d)
	case *hir.MethodCallData:
		return s.lowerMethodCall(e, d)
	case *hir.FieldData:
		return s.lowerField(e, d)
	case *hir.IndexData:
		return s.lowerIndex(e, d)
	case *hir.StructLitData:
		return s.lowerStructLit(e, d)
	case *hir.EnumLitData:
		return s.lowerEnumLit(e, d)
	case *hir.TupleLitData:
		return s.lowerTupleLit(e, d)
	case *hir.ArrayLitData:
		return s.lowerArrayLit(e, d)
	case *hir.CastData:
		return s.lowerCast(e, d)
	case *hir.IfData:
		return s.lowerIf(e, d)
	case *hir.MatchData:
		return s.pats.Compile(d, e.Type, e.Span)
	case *hir.BlockData:
		return s.scoped(drop.ScopeBlock, d.Block)
	}
	s.errorf(diag.CgUnsupported, e.Span, "expression %s is not supported", e.Kind)
	return emit.VoidOperand
}

func (s *Session) lowerLiteral(e *hir.Expr, d *hir.LiteralData) emit.Operand {
	sem := s.reg.Resolve(e.Type)
	ll := s.reg.LLType(sem, e.Span)
	switch d.Kind {
	case hir.LiteralInt, hir.LiteralChar:
		if sem.IsFloat() {
			return emit.Value(emit.FloatConst(float64(d.IntValue), sem.Bits()), ll, sem)
		}
		if !pattern.FitsWidth(d.IntValue, sem) {
			s.errorf(diag.CgLiteralOutOfRange, e.Span, "literal %d does not fit %s", d.IntValue, sem)
		}
		return emit.Value(strconv.FormatInt(d.IntValue, 10), ll, sem)
	case hir.LiteralFloat:
		return emit.Value(emit.FloatConst(d.FloatValue, sem.Bits()), ll, sem)
	case hir.LiteralBool:
		return emit.Value(emit.BoolConst(d.BoolValue), "i1", sem)
	case hir.LiteralString:
		return emit.Value(s.mod.StringConst(d.StringValue), "ptr", sem)
	case hir.LiteralUnit:
		return emit.VoidOperand
	}
	s.errorf(diag.CgUnsupported, e.Span, "literal kind %d is not supported", d.Kind)
	return emit.VoidOperand
}

func (s *Session) lowerVar(e *hir.Expr, d *hir.VarRefData) emit.Operand {
	if loc := s.lookup(d.Name); loc != nil {
		if loc.op.IsVoid() || loc.op.Sem.IsVoid() {
			return emit.VoidOperand
		}
		return loc.op
	}
	if fn, ok := s.env.Resolve(d.Name); ok && !fn.IsGeneric() {
		return emit.Value(s.funcRef(fn), "ptr", s.reg.Resolve(e.Type))
	}
	s.errorf(diag.CgUnknownSymbol, e.Span, "unknown name %s", d.Name)
	return emit.Value("undef", s.reg.LLType(e.Type, e.Span), s.reg.Resolve(e.Type))
}

func (s *Session) lowerUnary(e *hir.Expr, d *hir.UnaryData) emit.Operand {
	f := s.f
	sem := s.reg.Resolve(e.Type)
	switch d.Op {
	case hir.UnaryNeg:
		op := s.lowerExpr(d.Operand)
		v := f.Value(op)
		if sem.IsFloat() {
			return emit.Value(f.Assign("fneg %s %s", op.Type, v), op.Type, sem)
		}
		return emit.Value(f.Assign("sub %s 0, %s", op.Type, v), op.Type, sem)
	case hir.UnaryNot:
		op := s.lowerExpr(d.Operand)
		v := f.Value(op)
		if op.Type == "i1" {
			return emit.Value(f.Assign("xor i1 %s, true", v), "i1", sem)
		}
		return emit.Value(f.Assign("xor %s %s, -1", op.Type, v), op.Type, sem)
	case hir.UnaryDeref:
		op := s.lowerExpr(d.Operand)
		ptr := f.Value(op)
		elem := s.reg.Resolve(sem)
		return emit.Place(ptr, s.reg.StorageType(elem, e.Span), elem)
	case hir.UnaryAddrOf, hir.UnaryAddrOfMut:
		op := s.lowerExpr(d.Operand)
		if op.IsVoid() {
			s.errorf(diag.CgUnsupported, e.Span, "cannot take the address of a unit value")
			return emit.Value("null", "ptr", sem)
		}
		return emit.Value(f.Addr(op), "ptr", sem)
	}
	s.errorf(diag.CgUnsupported, e.Span, "unary operator %d is not supported", d.Op)
	return emit.VoidOperand
}

// object evaluates the receiver of a field access or method call and
// returns its address and value type, looking through one pointer.
func (s *Session) object(e *hir.Expr) (string, *types.Type) {
	op := s.lowerExpr(e)
	sem := s.reg.Resolve(e.Type)
	if sem != nil && sem.Kind == types.KindPointer {
		return s.f.Value(op), s.reg.Resolve(sem.Elem)
	}
	if op.IsVoid() {
		return "null", sem
	}
	return s.f.Addr(op), sem
}

func (s *Session) lowerField(e *hir.Expr, d *hir.FieldData) emit.Operand {
	addr, sem := s.object(d.Object)
	l, ok := s.reg.LayoutOf(sem, e.Span)
	if !ok {
		s.errorf(diag.CgUnknownField, e.Span, "%s has no fields", sem)
		return emit.Value("undef", s.reg.LLType(e.Type, e.Span), s.reg.Resolve(e.Type))
	}
	fl, ok := l.Field(d.Field)
	if !ok {
		s.errorf(diag.CgUnknownField, e.Span, "%s has no field %s", l.Name, d.Field)
		return emit.Value("undef", s.reg.LLType(e.Type, e.Span), s.reg.Resolve(e.Type))
	}
	return emit.Place(s.f.GEP(l.LLType, addr, fl.Index), fl.LLType, s.reg.Resolve(fl.Sem))
}

// lowerIndex handles fixed arrays with a bounds check. Dynamic containers
// are runtime handles the backend cannot index.
func (s *Session) lowerIndex(e *hir.Expr, d *hir.IndexData) emit.Operand {
	f := s.f
	addr, sem := s.object(d.Object)
	if sem == nil || sem.Kind != types.KindArray {
		s.errorf(diag.CgUnsupported, e.Span, "indexing %s is not supported", sem)
		return emit.Value("undef", s.reg.LLType(e.Type, e.Span), s.reg.Resolve(e.Type))
	}
	arrLL := s.reg.StorageType(sem, e.Span)
	idxOp := s.lowerExpr(d.Index)
	idx := s.widen(f.Value(idxOp), idxOp.Type, s.reg.Resolve(d.Index.Type), "i64")

	inb := f.Assign("icmp ult i64 %s, %d", idx, sem.Len)
	okL := f.Label("idx.ok")
	badL := f.Label("idx.oob")
	f.CondBr(inb, okL, badL)
	f.Block(badL)
	f.Emitf("call void %s(ptr %s)", s.mod.Runtime("rt_panic"), s.mod.StringConst("index out of bounds"))
	f.Unreachable()
	f.Block(okL)

	elem := s.reg.Resolve(sem.Elem)
	p := f.Assign("getelementptr inbounds %s, ptr %s, i64 0, i64 %s", arrLL, addr, idx)
	return emit.Place(p, s.reg.StorageType(elem, e.Span), elem)
}

// widen converts an integer value to the integer type to, extending by
// the signedness of sem.
func (s *Session) widen(v, from string, sem *types.Type, to string) string {
	if from == to {
		return v
	}
	fb, tb := intBits(from), intBits(to)
	switch {
	case fb > tb:
		return s.f.Assign("trunc %s %s to %s", from, v, to)
	case sem.IsSigned():
		return s.f.Assign("sext %s %s to %s", from, v, to)
	default:
		return s.f.Assign("zext %s %s to %s", from, v, to)
	}
}

func intBits(ll string) int {
	if len(ll) < 2 || ll[0] != 'i' {
		return 0
	}
	n, err := strconv.Atoi(ll[1:])
	if err != nil {
		return 0
	}
	return n
}

func (s *Session) lowerStructLit(e *hir.Expr, d *hir.StructLitData) emit.Operand {
	sem := s.reg.Resolve(e.Type)
	l, ok := s.reg.LayoutOf(sem, e.Span)
	if !ok {
		s.errorf(diag.CgUnsupported, e.Span, "%s is not a struct", sem)
		return emit.VoidOperand
	}
	slot := s.f.Alloca(l.LLType)
	for _, init := range d.Fields {
		fl, ok := l.Field(init.Name)
		if !ok {
			s.errorf(diag.CgUnknownField, e.Span, "%s has no field %s", l.Name, init.Name)
			continue
		}
		op := s.consume(init.Value)
		if s.f.Terminated() {
			return emit.VoidOperand
		}
		s.store(s.f.GEP(l.LLType, slot, fl.Index), fl.LLType, op)
	}
	return emit.Place(slot, l.LLType, sem)
}

func (s *Session) lowerEnumLit(e *hir.Expr, d *hir.EnumLitData) emit.Operand {
	f := s.f
	sem := s.reg.Resolve(e.Type)
	l, ok := s.reg.LayoutOf(sem, e.Span)
	if !ok || !l.IsEnum() {
		s.errorf(diag.CgUnsupported, e.Span, "%s is not an enum", sem)
		return emit.VoidOperand
	}
	v, ok := l.Variant(d.Variant)
	if !ok {
		s.errorf(diag.CgUnknownVariant, e.Span, "%s has no variant %s", l.Name, d.Variant)
		return emit.Value("undef", l.LLType, sem)
	}
	if len(d.Args) != len(v.Fields) {
		s.errorf(diag.CgUnsupported, e.Span, "variant %s takes %d values, got %d", d.Variant, len(v.Fields), len(d.Args))
		return emit.Value("undef", l.LLType, sem)
	}
	tag, ok := s.reg.Layouts().Tag(l.Name, d.Variant)
	if !ok {
		tag = v.Tag
	}
	slot := f.Alloca(l.LLType)
	var pay string
	for i, arg := range d.Args {
		op := s.consume(arg)
		if f.Terminated() {
			return emit.VoidOperand
		}
		if pay == "" {
			pay = f.GEP(l.LLType, slot, 1)
		}
		s.store(f.GEP(v.PayloadType, pay, i), v.Fields[i].LLType, op)
	}
	f.Store("i32", strconv.Itoa(tag), f.GEP(l.LLType, slot, 0))
	return emit.Place(slot, l.LLType, sem)
}

func (s *Session) lowerTupleLit(e *hir.Expr, d *hir.TupleLitData) emit.Operand {
	sem := s.reg.Resolve(e.Type)
	if len(d.Elems) == 0 {
		return emit.VoidOperand
	}
	l, ok := s.reg.LayoutOf(sem, e.Span)
	if !ok || len(l.Fields) != len(d.Elems) {
		s.errorf(diag.CgUnsupported, e.Span, "tuple literal does not match %s", sem)
		return emit.VoidOperand
	}
	slot := s.f.Alloca(l.LLType)
	for i, el := range d.Elems {
		op := s.consume(el)
		if s.f.Terminated() {
			return emit.VoidOperand
		}
		s.store(s.f.GEP(l.LLType, slot, i), l.Fields[i].LLType, op)
	}
	return emit.Place(slot, l.LLType, sem)
}

func (s *Session) lowerArrayLit(e *hir.Expr, d *hir.ArrayLitData) emit.Operand {
	sem := s.reg.Resolve(e.Type)
	if sem == nil || sem.Kind != types.KindArray {
		s.errorf(diag.CgUnsupported, e.Span, "array literal of type %s is not supported", sem)
		return emit.VoidOperand
	}
	arrLL := s.reg.StorageType(sem, e.Span)
	elemLL := s.reg.StorageType(sem.Elem, e.Span)
	slot := s.f.Alloca(arrLL)
	for i, el := range d.Elems {
		op := s.consume(el)
		if s.f.Terminated() {
			return emit.VoidOperand
		}
		p := s.f.Assign("getelementptr inbounds %s, ptr %s, i64 0, i64 %d", arrLL, slot, i)
		s.store(p, elemLL, op)
	}
	return emit.Place(slot, arrLL, sem)
}

// lowerIf joins both branches through a result slot; i1 results are
// widened to i8 in storage.
func (s *Session) lowerIf(e *hir.Expr, d *hir.IfData) emit.Operand {
	f := s.f
	sem := s.reg.Resolve(e.Type)
	resLL := s.reg.LLType(sem, e.Span)
	if d.Else == nil {
		resLL = "void"
	}
	slotLL := resLL
	if slotLL == "i1" {
		slotLL = "i8"
	}
	var res string
	if resLL != "void" {
		res = f.Alloca(slotLL)
	}

	c := f.Value(s.lowerExpr(d.Cond))
	thenL := f.Label("if.then")
	endL := f.Label("if.end")
	elseL := endL
	if d.Else != nil {
		elseL = f.Label("if.else")
	}
	f.CondBr(c, thenL, elseL)

	reached := d.Else == nil
	branch := func(label string, b *hir.Block) {
		f.Block(label)
		v := s.scoped(drop.ScopeBlock, b)
		if f.Terminated() {
			return
		}
		if res != "" && !v.IsVoid() {
			val := f.Value(v)
			if resLL == "i1" {
				val = f.Assign("zext i1 %s to i8", val)
			}
			f.Store(slotLL, val, res)
		}
		f.Br(endL)
		reached = true
	}
	branch(thenL, d.Then)
	if d.Else != nil {
		branch(elseL, d.Else)
	}

	f.Block(endL)
	if !reached {
		f.Unreachable()
		if resLL == "void" {
			return emit.VoidOperand
		}
		return emit.Value("undef", resLL, sem)
	}
	if res == "" {
		return emit.VoidOperand
	}
	v := f.Load(slotLL, res)
	if resLL == "i1" {
		v = f.Assign("trunc i8 %s to i1", v)
	}
	return emit.Value(v, resLL, sem)
}

func (s *Session) funcRef(fn *hir.Func) string {
	if fn.Body == nil {
		s.declareExtern(fn)
		return s.mod.Symbol(mono.Mangle(fn.Name, nil))
	}
	name := s.reg.RequireFunc(fn, nil, fn.Span)
	return s.mod.Symbol(name)
}

// declareExtern emits a declaration for a body-less function.
func (s *Session) declareExtern(fn *hir.Func) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = s.reg.StorageType(p.Type, fn.Span)
	}
	s.mod.Declare(s.mod.Symbol(mono.Mangle(fn.Name, nil)), s.reg.LLType(fn.Result, fn.Span), params)
}

func opName(op hir.BinaryOp) string {
	names := [...]string{"+", "-", "*", "/", "%", "==", "!=", "<", "<=", ">", ">=", "&&", "||", "&", "|", "^", "<<", ">>"}
	if int(op) < len(names) {
		return names[op]
	}
	return fmt.Sprintf("op%d", op)
}
