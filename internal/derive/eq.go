package derive

import (
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/layout"
	"ember/internal/types"
)

func (s *Synthesizer) genEq(l *layout.TypeLayout, sym, linkage string) {
	f := s.mod.NewFunc(sym, linkage, "i1", []emit.Param{{Type: "ptr", Name: "this"}, {Type: "ptr", Name: "other"}})
	ne := f.Label("ne")
	check := func(c string) {
		next := f.Label("next")
		f.CondBr(c, next, ne)
		f.Block(next)
	}
	var eqAt func(sem *types.Type, ll, a, b string)
	eqAt = func(sem *types.Type, ll, a, b string) {
		switch cls := classify(sem); cls {
		case classSkip:
		case classArray:
			loopArray(f, ll, sem.Len, []string{a, b}, func(e []string) {
				eqAt(sem.Elem, s.reg.StorageType(sem.Elem, spanNone), e[0], e[1])
			})
		case classAggregate:
			if sym, ok := s.nested(sem, hir.TraitPartialEq); ok {
				check(f.Assign("call i1 %s(ptr %s, ptr %s)", sym, a, b))
			}
		case classStr:
			va, vb := f.Load(ll, a), f.Load(ll, b)
			r := f.Assign("call i32 %s(ptr %s, ptr %s)", s.mod.Runtime("rt_str_eq"), va, vb)
			check(f.Assign("icmp ne i32 %s, 0", r))
		case classFloat:
			va, vb := f.Load(ll, a), f.Load(ll, b)
			check(f.Assign("fcmp oeq %s %s, %s", ll, va, vb))
		default:
			va, vb := f.Load(ll, a), f.Load(ll, b)
			check(f.Assign("icmp eq %s %s, %s", ll, va, vb))
		}
	}

	if l.Kind == layout.KindEnum {
		ta, tb := tagOf(f, l, "%this"), tagOf(f, l, "%other")
		check(f.Assign("icmp eq i32 %s, %s", ta, tb))
		if s.opts.EnumPayloads && l.PayloadWords > 0 {
			payloadSwitch(f, l, ta, func(v *layout.Variant) {
				for i, fl := range v.Fields {
					a := payloadFieldAddrs(f, l, v, i, "%this", "%other")
					eqAt(fl.Sem, fl.LLType, a[0], a[1])
				}
			})
		}
	} else {
		for i, fl := range fieldsOf(l) {
			if classify(fl.Sem) == classSkip {
				continue
			}
			a := fieldAddrs(f, l, i, "%this", "%other")
			eqAt(fl.Sem, fl.LLType, a[0], a[1])
		}
	}
	f.Ret("i1", "true")
	f.Block(ne)
	f.Ret("i1", "false")
	f.Finish()
}
