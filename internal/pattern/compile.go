package pattern

import (
	"ember/internal/diag"
	"ember/internal/drop"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/source"
	"ember/internal/types"
)

// Compiler lowers match expressions for one host.
type Compiler struct {
	h Host
}

func New(h Host) *Compiler { return &Compiler{h: h} }

// Compile lowers a match expression whose value has type result.
func (c *Compiler) Compile(m *hir.MatchData, result *types.Type, span source.Span) emit.Operand {
	f := c.h.Func()
	reg := c.h.Registry()
	result = reg.Resolve(result)

	scrut := c.scrutinee(m.Scrutinee)

	resLL := reg.LLType(result, span)
	slotLL := resLL
	if slotLL == "i1" {
		slotLL = "i8"
	}
	var res string
	if resLL != "void" {
		res = f.Alloca(slotLL)
	}

	join := f.Label("match.end")
	reached := false
	for i, arm := range m.Arms {
		last := i == len(m.Arms)-1
		fail := join
		if !last {
			fail = f.Label("match.next")
		}
		sub := scrut
		var binds []binding
		refutable := c.test(arm.Pattern, &sub, fail, &binds)
		if last && refutable {
			reached = true
		}

		c.h.PushScope(drop.ScopeArm)
		c.bind(binds)
		v := c.h.Consume(arm.Body)
		if !f.Terminated() {
			if res != "" && !v.IsVoid() {
				val := f.Value(v)
				if resLL == "i1" {
					val = f.Assign("zext i1 %s to i8", val)
				}
				f.Store(slotLL, val, res)
			}
		}
		c.h.PopScope()
		if !f.Terminated() {
			f.Br(join)
			reached = true
		}
		if !last {
			f.Block(fail)
		}
	}

	f.Block(join)
	if !reached {
		f.Unreachable()
		if resLL == "void" {
			return emit.VoidOperand
		}
		return emit.Value("undef", resLL, result)
	}
	if res == "" {
		return emit.VoidOperand
	}
	v := f.Load(slotLL, res)
	if resLL == "i1" {
		v = f.Assign("trunc i8 %s to i1", v)
	}
	return emit.Value(v, resLL, result)
}

// scrutinee evaluates the matched expression once. Tagged values are kept
// addressable; temporaries are spilled into a tracked hidden slot. Matching
// through a pointer borrows, so such subjects have no owner.
func (c *Compiler) scrutinee(e *hir.Expr) subject {
	f := c.h.Func()
	reg := c.h.Registry()
	op := c.h.Lower(e)
	sem := reg.Resolve(e.Type)
	if sem != nil && sem.Kind == types.KindPointer && !sem.Elem.IsMatchPrimitive() {
		sem = reg.Resolve(sem.Elem)
		addr := f.Value(op)
		return c.tagged(subject{sem: sem, ll: reg.StorageType(sem, e.Span), addr: addr})
	}
	ll := reg.StorageType(sem, e.Span)
	if sem.IsMatchPrimitive() {
		return subject{sem: sem, ll: ll, value: f.Value(op)}
	}
	if op.Place {
		return c.tagged(subject{sem: sem, ll: ll, addr: op.Ref, owner: ownerOf(e)})
	}
	slot := f.Alloca(ll)
	if !op.IsVoid() {
		f.Store(ll, op.Ref, slot)
	}
	hidden := c.h.TrackTemp(slot, sem)
	return c.tagged(subject{sem: sem, ll: ll, addr: slot, owner: Owner{Root: hidden}})
}

// ownerOf names the variable an addressable scrutinee lives in.
func ownerOf(e *hir.Expr) Owner {
	switch d := e.Data.(type) {
	case *hir.VarRefData:
		return Owner{Root: d.Name}
	case *hir.FieldData:
		v, ok := d.Object.Data.(*hir.VarRefData)
		if ok && d.Object.Type != nil && d.Object.Type.Kind != types.KindPointer {
			return Owner{Root: v.Name, Field: d.Field}
		}
	}
	return Owner{}
}

func (c *Compiler) tagged(s subject) subject {
	l, ok := c.h.Registry().LayoutOf(s.sem, source.Span{})
	if ok && l.IsEnum() {
		f := c.h.Func()
		s.tag = f.Load("i32", f.GEP(l.LLType, s.addr, 0))
	}
	return s
}

// bind materializes bindings: aggregates by reference, scalars by value
// in a fresh slot.
func (c *Compiler) bind(binds []binding) {
	f := c.h.Func()
	for _, b := range binds {
		switch {
		case b.shared != "" && b.ptr:
			addr := f.Load("ptr", b.shared)
			c.h.Declare(b.name, emit.Place(addr, b.sub.ll, b.sub.sem), b.sub.owner)
		case b.shared != "":
			c.h.Declare(b.name, emit.Place(b.shared, b.sub.ll, b.sub.sem), b.sub.owner)
		case byReference(b.sub):
			c.h.Declare(b.name, emit.Place(b.sub.addr, b.sub.ll, b.sub.sem), b.sub.owner)
		default:
			sub := b.sub
			v := sub.load(f)
			slot := f.Alloca(sub.ll)
			f.Store(sub.ll, v, slot)
			c.h.Declare(b.name, emit.Place(slot, sub.ll, sub.sem), sub.owner)
		}
	}
}

func byReference(s subject) bool {
	return s.addr != "" && !s.sem.IsScalar()
}

func (c *Compiler) errorf(code diag.Code, span source.Span, format string, args ...any) {
	diag.Errorf(c.h.Reporter(), code, span, format, args...).Emit()
}
