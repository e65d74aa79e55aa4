package derive

import (
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/layout"
	"ember/internal/types"
)

// fnvOffsetBits is a variable so the conversion to the signed i64
// spelling wraps instead of overflowing at compile time.
var fnvOffsetBits = FNVOffset

func (s *Synthesizer) genHash(l *layout.TypeLayout, sym, linkage string) {
	f := s.mod.NewFunc(sym, linkage, "i64", []emit.Param{{Type: "ptr", Name: "this"}})
	h := f.Alloca("i64")
	f.EntryStore("i64", itoa64(int64(fnvOffsetBits)), h)

	fold := func(bits string) {
		cur := f.Load("i64", h)
		x := f.Assign("xor i64 %s, %s", cur, bits)
		m := f.Assign("mul i64 %s, %d", x, FNVPrime)
		f.Store("i64", m, h)
	}
	var hashAt func(sem *types.Type, ll, a string)
	hashAt = func(sem *types.Type, ll, a string) {
		switch classify(sem) {
		case classSkip:
		case classArray:
			loopArray(f, ll, sem.Len, []string{a}, func(e []string) {
				hashAt(sem.Elem, s.reg.StorageType(sem.Elem, spanNone), e[0])
			})
		case classAggregate:
			if sym, ok := s.nested(sem, hir.TraitHash); ok {
				fold(f.Assign("call i64 %s(ptr %s)", sym, a))
			}
		case classStr:
			v := f.Load(ll, a)
			fold(f.Assign("call i64 %s(ptr %s)", s.mod.Runtime("rt_str_hash"), v))
		default:
			v := f.Load(ll, a)
			for _, bits := range bitWords(f, ll, v) {
				fold(bits)
			}
		}
	}

	if l.Kind == layout.KindEnum {
		tag := tagOf(f, l, "%this")
		fold(f.Assign("zext i32 %s to i64", tag))
		if s.opts.EnumPayloads && l.PayloadWords > 0 {
			payloadSwitch(f, l, tag, func(v *layout.Variant) {
				for i, fl := range v.Fields {
					a := payloadFieldAddrs(f, l, v, i, "%this")
					hashAt(fl.Sem, fl.LLType, a[0])
				}
			})
		}
	} else {
		for i, fl := range fieldsOf(l) {
			if classify(fl.Sem) == classSkip {
				continue
			}
			a := fieldAddrs(f, l, i, "%this")
			hashAt(fl.Sem, fl.LLType, a[0])
		}
	}
	f.Ret("i64", f.Load("i64", h))
	f.Finish()
}

// bitWords widens a scalar's bit pattern to one or more i64 words.
func bitWords(f *emit.Func, ll, v string) []string {
	switch ll {
	case "i64":
		return []string{v}
	case "ptr":
		return []string{f.Assign("ptrtoint ptr %s to i64", v)}
	case "double":
		return []string{f.Assign("bitcast double %s to i64", v)}
	case "float":
		w := f.Assign("bitcast float %s to i32", v)
		return []string{f.Assign("zext i32 %s to i64", w)}
	case "i128":
		lo := f.Assign("trunc i128 %s to i64", v)
		sh := f.Assign("lshr i128 %s, 64", v)
		hi := f.Assign("trunc i128 %s to i64", sh)
		return []string{lo, hi}
	}
	return []string{f.Assign("zext %s %s to i64", ll, v)}
}
