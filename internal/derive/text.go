package derive

import (
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/layout"
	"ember/internal/types"
)

// textBuilder accumulates a runtime string in a stack slot through
// rt_str_concat.
type textBuilder struct {
	s   *Synthesizer
	f   *emit.Func
	acc string
}

func (s *Synthesizer) newText(f *emit.Func) *textBuilder {
	acc := f.Alloca("ptr")
	f.EntryStore("ptr", s.mod.StringConst(""), acc)
	return &textBuilder{s: s, f: f, acc: acc}
}

// lit appends a constant.
func (b *textBuilder) lit(text string) {
	if text == "" {
		return
	}
	b.add(b.s.mod.StringConst(text))
}

// add appends the runtime string v.
func (b *textBuilder) add(v string) {
	cur := b.f.Load("ptr", b.acc)
	b.f.Store("ptr", b.f.Assign("call ptr %s(ptr %s, ptr %s)", b.s.mod.Runtime("rt_str_concat"), cur, v), b.acc)
}

func (b *textBuilder) result() string { return b.f.Load("ptr", b.acc) }

// value appends the rendering of the value of type sem stored at a.
// Debug quotes strings; Display writes them as is.
func (b *textBuilder) value(sem *types.Type, ll, a string, trait hir.Trait) {
	f, mod := b.f, b.s.mod
	switch classify(sem) {
	case classSkip:
		b.lit("()")
	case classArray:
		b.lit("[")
		first := f.Alloca("i1")
		f.Store("i1", "true", first)
		loopArray(f, ll, sem.Len, []string{a}, func(e []string) {
			isFirst := f.Load("i1", first)
			b.add(f.Assign("select i1 %s, ptr %s, ptr %s", isFirst, mod.StringConst(""), mod.StringConst(", ")))
			f.Store("i1", "false", first)
			b.value(sem.Elem, b.s.reg.StorageType(sem.Elem, spanNone), e[0], trait)
		})
		b.lit("]")
	case classAggregate:
		if sym, ok := b.s.nested(sem, trait); ok {
			b.add(f.Assign("call ptr %s(ptr %s)", sym, a))
		} else {
			b.lit("?")
		}
	case classStr:
		v := f.Load(ll, a)
		if trait == hir.TraitDebug {
			b.lit(`"`)
			b.add(v)
			b.lit(`"`)
			return
		}
		b.add(v)
	case classPtr:
		b.add(f.Assign("call ptr %s(ptr %s)", mod.Runtime("rt_ptr_to_str"), f.Load(ll, a)))
	case classFloat:
		v := f.Load(ll, a)
		if ll != "double" {
			v = f.Assign("fpext %s %s to double", ll, v)
		}
		b.add(f.Assign("call ptr %s(double %s)", mod.Runtime("rt_f64_to_str"), v))
	case classSigned:
		b.add(f.Assign("call ptr %s(i64 %s)", mod.Runtime("rt_i64_to_str"), toWord(f, ll, f.Load(ll, a), true)))
	case classUnsigned:
		v := f.Load(ll, a)
		switch sem.Kind {
		case types.KindBool:
			if ll != "i1" {
				v = f.Assign("trunc %s %s to i1", ll, v)
			}
			b.add(f.Assign("select i1 %s, ptr %s, ptr %s", v, mod.StringConst("true"), mod.StringConst("false")))
		case types.KindChar:
			if ll != "i32" {
				v = f.Assign("zext %s %s to i32", ll, v)
			}
			b.add(f.Assign("call ptr %s(i32 %s)", mod.Runtime("rt_char_to_str"), v))
		default:
			b.add(f.Assign("call ptr %s(i64 %s)", mod.Runtime("rt_u64_to_str"), toWord(f, ll, v, false)))
		}
	}
}

// toWord converts an integer of type ll to i64. i128 values keep their
// low word.
func toWord(f *emit.Func, ll, v string, signed bool) string {
	switch ll {
	case "i64":
		return v
	case "i128":
		return f.Assign("trunc i128 %s to i64", v)
	}
	if signed {
		return f.Assign("sext %s %s to i64", ll, v)
	}
	return f.Assign("zext %s %s to i64", ll, v)
}

// variantNames emits a table of the rendered variant names of an enum,
// indexed by tag.
func (s *Synthesizer) variantNames(l *layout.TypeLayout, suffix string, qualified bool) string {
	names := make([]string, len(l.Variants))
	for _, v := range l.Variants {
		if v.Tag < 0 || v.Tag >= len(names) {
			continue
		}
		if qualified {
			names[v.Tag] = l.Name + "::" + v.Name
		} else {
			names[v.Tag] = v.Name
		}
	}
	return s.nameArray(l.Name+suffix, names)
}

// textVariant appends the name of the active variant of the enum at %this.
func (s *Synthesizer) textVariant(b *textBuilder, l *layout.TypeLayout, tag, table string) {
	if table == "null" {
		return
	}
	f := b.f
	idx := f.Assign("zext i32 %s to i64", tag)
	p := f.Assign("getelementptr inbounds [%d x ptr], ptr %s, i64 0, i64 %s", len(l.Variants), table, idx)
	b.add(f.Load("ptr", p))
}

// genDebug renders "Name { a: 1, b: 2 }" for structs, "(1, 2)" for
// tuples and "Name::Variant(payload)" for enums.
func (s *Synthesizer) genDebug(l *layout.TypeLayout, sym, linkage string) {
	f := s.mod.NewFunc(sym, linkage, "ptr", []emit.Param{{Type: "ptr", Name: "this"}})
	b := s.newText(f)

	switch l.Kind {
	case layout.KindEnum:
		tag := tagOf(f, l, "%this")
		s.textVariant(b, l, tag, s.variantNames(l, ".debug.variants", true))
		if s.opts.EnumPayloads && l.PayloadWords > 0 {
			payloadSwitch(f, l, tag, func(v *layout.Variant) {
				b.lit("(")
				for i, fl := range v.Fields {
					if i > 0 {
						b.lit(", ")
					}
					a := payloadFieldAddrs(f, l, v, i, "%this")
					b.value(fl.Sem, fl.LLType, a[0], hir.TraitDebug)
				}
				b.lit(")")
			})
		}
	case layout.KindTuple:
		b.lit("(")
		for i, fl := range l.Fields {
			if i > 0 {
				b.lit(", ")
			}
			a := fieldAddrs(f, l, i, "%this")
			b.value(fl.Sem, fl.LLType, a[0], hir.TraitDebug)
		}
		b.lit(")")
	case layout.KindOpaque:
		b.lit(l.Name + "(")
		a := fieldAddrs(f, l, 0, "%this")
		b.value(handleField.Sem, handleField.LLType, a[0], hir.TraitDebug)
		b.lit(")")
	default:
		if len(l.Fields) == 0 {
			b.lit(l.Name)
			break
		}
		for i, fl := range l.Fields {
			if i == 0 {
				b.lit(l.Name + " { " + fl.Name + ": ")
			} else {
				b.lit(", " + fl.Name + ": ")
			}
			a := fieldAddrs(f, l, i, "%this")
			b.value(fl.Sem, fl.LLType, a[0], hir.TraitDebug)
		}
		b.lit(" }")
	}
	f.Ret("ptr", b.result())
	f.Finish()
}

// genDisplay renders field values joined by ", " for structs and tuples,
// and the bare variant name for enums.
func (s *Synthesizer) genDisplay(l *layout.TypeLayout, sym, linkage string) {
	f := s.mod.NewFunc(sym, linkage, "ptr", []emit.Param{{Type: "ptr", Name: "this"}})
	b := s.newText(f)

	if l.Kind == layout.KindEnum {
		tag := tagOf(f, l, "%this")
		s.textVariant(b, l, tag, s.variantNames(l, ".display.variants", false))
	} else {
		for i, fl := range fieldsOf(l) {
			if i > 0 {
				b.lit(", ")
			}
			a := fieldAddrs(f, l, i, "%this")
			b.value(fl.Sem, fl.LLType, a[0], hir.TraitDisplay)
		}
	}
	f.Ret("ptr", b.result())
	f.Finish()
}
