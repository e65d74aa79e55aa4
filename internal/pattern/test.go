package pattern

import (
	"fmt"
	"math"

	"fortio.org/safecast"

	"ember/internal/diag"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/layout"
	"ember/internal/types"
)

// test emits the checks of p against s. On failure control jumps to fail;
// on success it continues in the current block. Bindings are appended to
// binds. Returns whether any check was emitted.
func (c *Compiler) test(p *hir.Pattern, s *subject, fail string, binds *[]binding) bool {
	if p == nil {
		return false
	}
	switch d := p.Data.(type) {
	case *hir.WildcardPat:
		return false
	case *hir.BindingPat:
		*binds = append(*binds, binding{name: d.Name, sub: *s})
		return false
	case *hir.LiteralPat:
		cond, ok := c.literalCond(d.Value, s, p)
		if !ok {
			c.h.Func().Br(fail)
			return true
		}
		c.branch(cond, fail)
		return true
	case *hir.RangePat:
		cond, ok := c.rangeCond(d, s, p)
		if !ok {
			c.h.Func().Br(fail)
			return true
		}
		c.branch(cond, fail)
		return true
	case *hir.EnumVariantPat:
		return c.testVariant(d, s, fail, binds, p)
	case *hir.StructPat:
		return c.testStruct(d, s, fail, binds, p)
	case *hir.TuplePat:
		return c.testTuple(d, s, fail, binds, p)
	case *hir.ArrayPat:
		return c.testArray(d, s, fail, binds, p)
	case *hir.OrPat:
		return c.testOr(d, s, fail, binds, p)
	}
	c.errorf(diag.CgBadPattern, p.Span, "unsupported pattern kind %s", p.Kind)
	c.h.Func().Br(fail)
	return true
}

// branch continues on cond and jumps to fail otherwise.
func (c *Compiler) branch(cond, fail string) {
	f := c.h.Func()
	ok := f.Label("pat.ok")
	f.CondBr(cond, ok, fail)
	f.Block(ok)
}

func (c *Compiler) literalCond(lit hir.LiteralData, s *subject, p *hir.Pattern) (string, bool) {
	f := c.h.Func()
	sem := s.sem
	switch {
	case sem.IsStr():
		if lit.Kind != hir.LiteralString {
			break
		}
		v := s.load(f)
		r := f.Assign("call i32 %s(ptr %s, ptr %s)", f.Module().Runtime("rt_str_eq"), v, f.Module().StringConst(lit.StringValue))
		return f.Assign("icmp ne i32 %s, 0", r), true
	case sem.IsFloat():
		k, ok := c.floatConst(lit, sem, p)
		if !ok {
			return "", false
		}
		return f.Assign("fcmp oeq %s %s, %s", s.ll, s.load(f), k), true
	case sem.IsBool():
		if lit.Kind != hir.LiteralBool {
			break
		}
		return f.Assign("icmp eq i1 %s, %s", s.load(f), emit.BoolConst(lit.BoolValue)), true
	case sem.IsInteger() || sem.Kind == types.KindChar:
		k, ok := c.intConst(lit, sem, p)
		if !ok {
			return "", false
		}
		return f.Assign("icmp eq %s %s, %s", s.ll, s.load(f), k), true
	}
	c.errorf(diag.CgBadPattern, p.Span, "literal pattern does not fit a value of type %s", sem)
	return "", false
}

func (c *Compiler) rangeCond(r *hir.RangePat, s *subject, p *hir.Pattern) (string, bool) {
	f := c.h.Func()
	sem := s.sem
	var lo, hi string
	var ok bool
	if sem.IsFloat() {
		if lo, ok = c.floatConst(r.Lo, sem, p); !ok {
			return "", false
		}
		if hi, ok = c.floatConst(r.Hi, sem, p); !ok {
			return "", false
		}
	} else if sem.IsInteger() || sem.Kind == types.KindChar {
		if lo, ok = c.intConst(r.Lo, sem, p); !ok {
			return "", false
		}
		if hi, ok = c.intConst(r.Hi, sem, p); !ok {
			return "", false
		}
	} else {
		c.errorf(diag.CgBadPattern, p.Span, "range pattern on a value of type %s", sem)
		return "", false
	}

	v := s.load(f)
	var geOp, ltOp string
	switch {
	case sem.IsFloat():
		geOp, ltOp = "fcmp oge", "fcmp olt"
		if r.Inclusive {
			ltOp = "fcmp ole"
		}
	case sem.IsSigned():
		geOp, ltOp = "icmp sge", "icmp slt"
		if r.Inclusive {
			ltOp = "icmp sle"
		}
	default:
		geOp, ltOp = "icmp uge", "icmp ult"
		if r.Inclusive {
			ltOp = "icmp ule"
		}
	}
	a := f.Assign("%s %s %s, %s", geOp, s.ll, v, lo)
	b := f.Assign("%s %s %s, %s", ltOp, s.ll, v, hi)
	return f.Assign("and i1 %s, %s", a, b), true
}

// intConst spells an integer literal at the scrutinee's width, reporting
// literals that do not fit.
func (c *Compiler) intConst(lit hir.LiteralData, sem *types.Type, p *hir.Pattern) (string, bool) {
	if lit.Kind != hir.LiteralInt && lit.Kind != hir.LiteralChar {
		c.errorf(diag.CgBadPattern, p.Span, "expected an integer literal for %s", sem)
		return "", false
	}
	if !FitsWidth(lit.IntValue, sem) {
		c.errorf(diag.CgLiteralOutOfRange, p.Span, "literal %d does not fit %s", lit.IntValue, sem)
		return "", false
	}
	return fmt.Sprintf("%d", lit.IntValue), true
}

func (c *Compiler) floatConst(lit hir.LiteralData, sem *types.Type, p *hir.Pattern) (string, bool) {
	switch lit.Kind {
	case hir.LiteralFloat:
		if sem.Bits() == 32 && math.Abs(lit.FloatValue) > math.MaxFloat32 && !math.IsInf(lit.FloatValue, 0) {
			c.errorf(diag.CgLiteralOutOfRange, p.Span, "literal %g does not fit %s", lit.FloatValue, sem)
			return "", false
		}
		return emit.FloatConst(lit.FloatValue, sem.Bits()), true
	case hir.LiteralInt:
		return emit.FloatConst(float64(lit.IntValue), sem.Bits()), true
	}
	c.errorf(diag.CgBadPattern, p.Span, "expected a numeric literal for %s", sem)
	return "", false
}

// FitsWidth reports whether v is representable in the integer type t.
func FitsWidth(v int64, t *types.Type) bool {
	var err error
	signed := t.IsSigned()
	switch t.Bits() {
	case 8:
		if signed {
			_, err = safecast.Conv[int8](v)
		} else {
			_, err = safecast.Conv[uint8](v)
		}
	case 16:
		if signed {
			_, err = safecast.Conv[int16](v)
		} else {
			_, err = safecast.Conv[uint16](v)
		}
	case 32:
		if signed {
			_, err = safecast.Conv[int32](v)
		} else {
			_, err = safecast.Conv[uint32](v)
		}
	case 64:
		if !signed {
			_, err = safecast.Conv[uint64](v)
		}
	case 128:
		if !signed && v < 0 {
			return false
		}
	default:
		return false
	}
	return err == nil
}

func (c *Compiler) layoutOf(s *subject, p *hir.Pattern) (*layout.TypeLayout, bool) {
	l, ok := c.h.Registry().LayoutOf(s.sem, p.Span)
	if !ok {
		c.errorf(diag.CgBadPattern, p.Span, "pattern %s on a value of type %s", p.Kind, s.sem)
	}
	return l, ok
}

func (c *Compiler) testVariant(d *hir.EnumVariantPat, s *subject, fail string, binds *[]binding, p *hir.Pattern) bool {
	f := c.h.Func()
	l, ok := c.layoutOf(s, p)
	if !ok || !l.IsEnum() {
		if ok {
			c.errorf(diag.CgBadPattern, p.Span, "variant pattern %s on non-enum %s", d.Variant, s.sem)
		}
		f.Br(fail)
		return true
	}
	v, ok := l.Variant(d.Variant)
	if !ok {
		c.errorf(diag.CgUnknownVariant, p.Span, "%s has no variant %s", l.Name, d.Variant)
		f.Br(fail)
		return true
	}
	tag, ok := c.h.Registry().Layouts().Tag(l.Name, d.Variant)
	if !ok {
		tag = v.Tag
	}
	if s.tag == "" {
		s.tag = f.Load("i32", f.GEP(l.LLType, s.addr, 0))
	}
	c.branch(f.Assign("icmp eq i32 %s, %d", s.tag, tag), fail)

	if len(d.Payload) > len(v.Fields) {
		c.errorf(diag.CgBadPattern, p.Span, "variant %s has %d fields, pattern has %d", d.Variant, len(v.Fields), len(d.Payload))
		f.Br(fail)
		return true
	}
	var pay string
	for i, sub := range d.Payload {
		if sub == nil || sub.Kind == hir.PatWildcard {
			continue
		}
		if pay == "" {
			pay = f.GEP(l.LLType, s.addr, 1)
		}
		fl := v.Fields[i]
		child := s.child(fl.Sem, fl.LLType, f.GEP(v.PayloadType, pay, i), "")
		c.test(sub, &child, fail, binds)
	}
	return true
}

func (c *Compiler) testStruct(d *hir.StructPat, s *subject, fail string, binds *[]binding, p *hir.Pattern) bool {
	l, ok := c.layoutOf(s, p)
	if !ok {
		c.h.Func().Br(fail)
		return true
	}
	refutable := false
	for _, fp := range d.Fields {
		fl, ok := l.Field(fp.Name)
		if !ok {
			c.errorf(diag.CgUnknownField, p.Span, "%s has no field %s", l.Name, fp.Name)
			c.h.Func().Br(fail)
			return true
		}
		child := s.child(fl.Sem, fl.LLType, c.h.Func().GEP(l.LLType, s.addr, fl.Index), fl.Name)
		if c.test(fp.Pattern, &child, fail, binds) {
			refutable = true
		}
	}
	return refutable
}

func (c *Compiler) testTuple(d *hir.TuplePat, s *subject, fail string, binds *[]binding, p *hir.Pattern) bool {
	l, ok := c.layoutOf(s, p)
	if !ok || len(d.Elems) != len(l.Fields) {
		if ok {
			c.errorf(diag.CgBadPattern, p.Span, "tuple pattern has %d elements, value has %d", len(d.Elems), len(l.Fields))
		}
		c.h.Func().Br(fail)
		return true
	}
	refutable := false
	for i, sub := range d.Elems {
		fl := l.Fields[i]
		child := s.child(fl.Sem, fl.LLType, c.h.Func().GEP(l.LLType, s.addr, i), "")
		if c.test(sub, &child, fail, binds) {
			refutable = true
		}
	}
	return refutable
}

func (c *Compiler) testArray(d *hir.ArrayPat, s *subject, fail string, binds *[]binding, p *hir.Pattern) bool {
	f := c.h.Func()
	if s.sem.Kind != types.KindArray {
		c.errorf(diag.CgUnsupported, p.Span, "array patterns on %s are not supported", s.sem)
		f.Br(fail)
		return true
	}
	n := s.sem.Len
	fixed := uint64(len(d.Prefix) + len(d.Suffix))
	if fixed > n || (!d.Rest && fixed != n) {
		f.Br(fail)
		return true
	}
	elem := c.h.Registry().Resolve(s.sem.Elem)
	elemLL := c.h.Registry().StorageType(elem, p.Span)
	refutable := false
	at := func(idx uint64, sub *hir.Pattern) {
		child := s.child(elem, elemLL, f.Assign("getelementptr inbounds %s, ptr %s, i64 0, i64 %d", s.ll, s.addr, idx), "")
		if c.test(sub, &child, fail, binds) {
			refutable = true
		}
	}
	for i, sub := range d.Prefix {
		at(uint64(i), sub)
	}
	for j, sub := range d.Suffix {
		at(n-uint64(len(d.Suffix))+uint64(j), sub)
	}
	return refutable
}

// testOr tries each alternative in order. Alternatives bind the same names,
// so each binding gets one shared slot written by whichever alternative
// matched.
func (c *Compiler) testOr(d *hir.OrPat, s *subject, fail string, binds *[]binding, p *hir.Pattern) bool {
	f := c.h.Func()
	if len(d.Alts) == 0 {
		f.Br(fail)
		return true
	}
	matched := f.Label("or.ok")
	shared := map[string]*binding{}
	var order []string

	for i, alt := range d.Alts {
		next := fail
		if i < len(d.Alts)-1 {
			next = f.Label("or.next")
		}
		sub := *s
		var local []binding
		c.test(alt, &sub, next, &local)
		for _, b := range local {
			sb, ok := shared[b.name]
			if !ok {
				sb = &binding{name: b.name, sub: b.sub, ptr: byReference(b.sub)}
				if sb.ptr {
					sb.shared = f.Alloca("ptr")
				} else {
					sb.shared = f.Alloca(b.sub.ll)
				}
				shared[b.name] = sb
				order = append(order, b.name)
			}
			if sb.ptr {
				f.Store("ptr", b.sub.addr, sb.shared)
			} else {
				bs := b.sub
				f.Store(bs.ll, bs.load(f), sb.shared)
			}
		}
		f.Br(matched)
		if next != fail {
			f.Block(next)
		}
	}
	f.Block(matched)
	for _, name := range order {
		*binds = append(*binds, *shared[name])
	}
	return true
}
