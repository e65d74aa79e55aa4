package derive

import (
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/layout"
	"ember/internal/typeenv"
	"ember/internal/types"
)

// ordGen builds cmp and partial_cmp. The running ordering lives in res;
// the first field that is not Equal stores its ordering and jumps to exit.
type ordGen struct {
	s       *Synthesizer
	f       *emit.Func
	partial bool
	res     string
	exit    string
	none    string
}

func (s *Synthesizer) genOrd(l *layout.TypeLayout, sym, linkage string, partial bool) {
	retTy := s.orderingType()
	if partial {
		retTy = s.maybeOrderingType()
	}
	f := s.mod.NewFunc(sym, linkage, retTy, []emit.Param{{Type: "ptr", Name: "this"}, {Type: "ptr", Name: "other"}})
	g := &ordGen{s: s, f: f, partial: partial}
	g.res = f.Alloca("i32")
	f.EntryStore("i32", itoa(typeenv.OrderingEqual), g.res)
	g.exit = f.Label("exit")
	if partial {
		g.none = f.Label("none")
	}

	if l.Kind == layout.KindEnum {
		g.enum(l)
	} else {
		for i, fl := range fieldsOf(l) {
			if classify(fl.Sem) == classSkip {
				continue
			}
			a := fieldAddrs(f, l, i, "%this", "%other")
			g.compare(fl.Sem, fl.LLType, a[0], a[1])
		}
	}
	f.Br(g.exit)

	f.Block(g.exit)
	o := f.Load("i32", g.res)
	if partial {
		g.retMaybe(retTy, typeenv.MaybeJust, o)
		f.Block(g.none)
		g.retMaybe(retTy, typeenv.MaybeNothing, "0")
	} else {
		v := f.Assign("insertvalue %s undef, i32 %s, 0", retTy, o)
		f.Ret(retTy, v)
	}
	f.Finish()
}

func (g *ordGen) retMaybe(maybeTy string, tag int, ord string) {
	f := g.f
	slot := f.Alloca(maybeTy)
	f.Store("i32", itoa(tag), f.GEP(maybeTy, slot, 0))
	word := ord
	if ord != "0" {
		word = f.Assign("zext i32 %s to i64", ord)
	}
	f.Store("i64", word, f.GEP(maybeTy, slot, 1, 0))
	v := f.Load(maybeTy, slot)
	f.Ret(maybeTy, v)
}

func (g *ordGen) enum(l *layout.TypeLayout) {
	f := g.f
	ta := tagOf(f, l, "%this")
	tb := tagOf(f, l, "%other")
	g.decide(g.ordScalar(classUnsigned, "i32", ta, tb))
	if !g.s.opts.EnumPayloads || l.PayloadWords == 0 {
		return
	}
	payloadSwitch(f, l, ta, func(v *layout.Variant) {
		for i, fl := range v.Fields {
			if classify(fl.Sem) == classSkip {
				continue
			}
			a := payloadFieldAddrs(f, l, v, i, "%this", "%other")
			g.compare(fl.Sem, fl.LLType, a[0], a[1])
		}
	})
}

// compare emits the comparison of two values of type sem at addresses a, b.
func (g *ordGen) compare(sem *types.Type, ll, a, b string) {
	f := g.f
	switch cls := classify(sem); cls {
	case classSkip:
		return
	case classArray:
		loopArray(f, ll, sem.Len, []string{a, b}, func(e []string) {
			g.compare(sem.Elem, g.s.reg.StorageType(sem.Elem, spanNone), e[0], e[1])
		})
	case classAggregate:
		trait := hir.TraitOrd
		if g.partial {
			trait = hir.TraitPartialOrd
		}
		sym, ok := g.s.nested(sem, trait)
		if !ok {
			return
		}
		if !g.partial {
			r := f.Assign("call %s %s(ptr %s, ptr %s)", g.s.orderingType(), sym, a, b)
			g.decide(f.Assign("extractvalue %s %s, 0", g.s.orderingType(), r))
			return
		}
		maybeTy := g.s.maybeOrderingType()
		r := f.Assign("call %s %s(ptr %s, ptr %s)", maybeTy, sym, a, b)
		tag := f.Assign("extractvalue %s %s, 0", maybeTy, r)
		isNone := f.Assign("icmp eq i32 %s, %d", tag, typeenv.MaybeNothing)
		cont := f.Label("just")
		f.CondBr(isNone, g.none, cont)
		f.Block(cont)
		word := f.Assign("extractvalue %s %s, 1, 0", maybeTy, r)
		g.decide(f.Assign("trunc i64 %s to i32", word))
	default:
		va := f.Load(ll, a)
		vb := f.Load(ll, b)
		if cls == classFloat && g.partial {
			uno := f.Assign("fcmp uno %s %s, %s", ll, va, vb)
			cont := f.Label("ordered")
			f.CondBr(uno, g.none, cont)
			f.Block(cont)
		}
		g.decide(g.ordScalar(cls, ll, va, vb))
	}
}

// ordScalar returns the i32 ordering of two loaded scalars.
func (g *ordGen) ordScalar(cls valueClass, ll, a, b string) string {
	f := g.f
	var lt, gt string
	switch cls {
	case classSigned:
		lt = f.Assign("icmp slt %s %s, %s", ll, a, b)
		gt = f.Assign("icmp sgt %s %s, %s", ll, a, b)
	case classFloat:
		lt = f.Assign("fcmp olt %s %s, %s", ll, a, b)
		gt = f.Assign("fcmp ogt %s %s, %s", ll, a, b)
	case classStr:
		c := f.Assign("call i32 %s(ptr %s, ptr %s)", f.Module().Runtime("rt_str_cmp"), a, b)
		lt = f.Assign("icmp slt i32 %s, 0", c)
		gt = f.Assign("icmp sgt i32 %s, 0", c)
	default:
		lt = f.Assign("icmp ult %s %s, %s", ll, a, b)
		gt = f.Assign("icmp ugt %s %s, %s", ll, a, b)
	}
	hi := f.Assign("select i1 %s, i32 %d, i32 %d", gt, typeenv.OrderingGreater, typeenv.OrderingEqual)
	return f.Assign("select i1 %s, i32 %d, i32 %s", lt, typeenv.OrderingLess, hi)
}

func (g *ordGen) decide(ord string) {
	f := g.f
	f.Store("i32", ord, g.res)
	ne := f.Assign("icmp ne i32 %s, %d", ord, typeenv.OrderingEqual)
	next := f.Label("next")
	f.CondBr(ne, g.exit, next)
	f.Block(next)
}
