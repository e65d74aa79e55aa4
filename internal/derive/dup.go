package derive

import (
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/layout"
	"ember/internal/types"
)

func (s *Synthesizer) genDuplicate(l *layout.TypeLayout, sym, linkage string) {
	f := s.mod.NewFunc(sym, linkage, l.LLType, []emit.Param{{Type: "ptr", Name: "this"}})

	var copyAt func(sem *types.Type, ll, src, dst string)
	copyAt = func(sem *types.Type, ll, src, dst string) {
		switch classify(sem) {
		case classArray:
			if !needsDeepCopy(sem.Elem) {
				f.Store(ll, f.Load(ll, src), dst)
				return
			}
			loopArray(f, ll, sem.Len, []string{src, dst}, func(e []string) {
				copyAt(sem.Elem, s.reg.StorageType(sem.Elem, spanNone), e[0], e[1])
			})
		case classAggregate:
			if sym, ok := s.nested(sem, hir.TraitDuplicate); ok {
				f.Store(ll, f.Assign("call %s %s(ptr %s)", ll, sym, src), dst)
				return
			}
			f.Store(ll, f.Load(ll, src), dst)
		default:
			f.Store(ll, f.Load(ll, src), dst)
		}
	}

	if l.Kind == layout.KindEnum && !(s.opts.EnumPayloads && l.PayloadWords > 0) {
		f.Ret(l.LLType, f.Load(l.LLType, "%this"))
		f.Finish()
		return
	}

	out := f.Alloca(l.LLType)
	if l.Kind == layout.KindEnum {
		tag := tagOf(f, l, "%this")
		f.Store("i32", tag, f.GEP(l.LLType, out, 0))
		payloadSwitch(f, l, tag, func(v *layout.Variant) {
			for i, fl := range v.Fields {
				a := payloadFieldAddrs(f, l, v, i, "%this", out)
				copyAt(fl.Sem, fl.LLType, a[0], a[1])
			}
		})
	} else {
		for i, fl := range fieldsOf(l) {
			a := fieldAddrs(f, l, i, "%this", out)
			copyAt(fl.Sem, fl.LLType, a[0], a[1])
		}
	}
	f.Ret(l.LLType, f.Load(l.LLType, out))
	f.Finish()
}

func needsDeepCopy(sem *types.Type) bool {
	switch classify(sem) {
	case classAggregate:
		return true
	case classArray:
		return needsDeepCopy(sem.Elem)
	}
	return false
}
