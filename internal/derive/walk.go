package derive

import (
	"strconv"

	"ember/internal/emit"
	"ember/internal/layout"
	"ember/internal/source"
	"ember/internal/types"
)

type valueClass uint8

const (
	classSkip valueClass = iota
	classSigned
	classUnsigned
	classFloat
	classStr
	classPtr
	classAggregate
	classArray
)

func classify(sem *types.Type) valueClass {
	if sem == nil {
		return classSkip
	}
	switch sem.Kind {
	case types.KindUnit, types.KindNever:
		return classSkip
	case types.KindInt:
		return classSigned
	case types.KindUint, types.KindBool, types.KindChar:
		return classUnsigned
	case types.KindFloat:
		return classFloat
	case types.KindStr:
		return classStr
	case types.KindPointer, types.KindFunc:
		return classPtr
	case types.KindNamed, types.KindTuple:
		return classAggregate
	case types.KindArray:
		return classArray
	}
	return classSkip
}

var handleField = layout.Field{Name: "handle", LLType: "ptr", Sem: types.Pointer(types.Unit, false)}

// fieldsOf lists the fields compared for a struct, tuple or opaque handle.
func fieldsOf(l *layout.TypeLayout) []layout.Field {
	if l.Kind == layout.KindOpaque {
		return []layout.Field{handleField}
	}
	return l.Fields
}

// fieldAddrs computes the address of field idx in each of the values at bases.
func fieldAddrs(f *emit.Func, l *layout.TypeLayout, idx int, bases ...string) []string {
	out := make([]string, len(bases))
	for i, b := range bases {
		out[i] = f.GEP(l.LLType, b, idx)
	}
	return out
}

func tagOf(f *emit.Func, l *layout.TypeLayout, base string) string {
	return f.Load("i32", f.GEP(l.LLType, base, 0))
}

func payloadFieldAddrs(f *emit.Func, l *layout.TypeLayout, v *layout.Variant, idx int, bases ...string) []string {
	out := make([]string, len(bases))
	for i, b := range bases {
		pay := f.GEP(l.LLType, b, 1)
		out[i] = f.GEP(v.PayloadType, pay, idx)
	}
	return out
}

// loopArray emits a counted loop over [n x elem] values at addrs; body
// receives the element addresses and may open new blocks.
func loopArray(f *emit.Func, arrLL string, n uint64, addrs []string, body func(elems []string)) {
	idx := f.Alloca("i64")
	f.Store("i64", "0", idx)
	cond := f.Label("arr.cond")
	loop := f.Label("arr.body")
	done := f.Label("arr.done")
	f.Br(cond)
	f.Block(cond)
	i := f.Load("i64", idx)
	c := f.Assign("icmp ult i64 %s, %d", i, n)
	f.CondBr(c, loop, done)
	f.Block(loop)
	elems := make([]string, len(addrs))
	for k, a := range addrs {
		elems[k] = f.Assign("getelementptr inbounds %s, ptr %s, i64 0, i64 %s", arrLL, a, i)
	}
	body(elems)
	next := f.Assign("add i64 %s, 1", i)
	f.Store("i64", next, idx)
	f.Br(cond)
	f.Block(done)
}

// payloadSwitch dispatches on tag to one block per payload-carrying variant.
// Unit variants and unknown tags continue after the switch.
func payloadSwitch(f *emit.Func, l *layout.TypeLayout, tag string, each func(v *layout.Variant)) {
	after := f.Label("variant.done")
	var cases []emit.Case
	var targets []*layout.Variant
	for i := range l.Variants {
		v := &l.Variants[i]
		if !v.HasPayload() {
			continue
		}
		label := f.Label("variant." + emit.Escape(v.Name))
		cases = append(cases, emit.Case{Value: itoa(v.Tag), Label: label})
		targets = append(targets, v)
	}
	if len(cases) == 0 {
		return
	}
	f.Switch("i32", tag, after, cases)
	for i, v := range targets {
		f.Block(cases[i].Label)
		each(v)
		f.Br(after)
	}
	f.Block(after)
}

var spanNone source.Span

func itoa(n int) string { return strconv.Itoa(n) }

func itoa64(n int64) string { return strconv.FormatInt(n, 10) }
