package derive

import (
	"strings"
	"testing"

	"ember/internal/diag"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/layout"
	"ember/internal/mono"
	"ember/internal/source"
	"ember/internal/typeenv"
	"ember/internal/types"
)

func testModule() *hir.Module {
	T := types.Param("T")
	point := types.Named("Point")
	return &hir.Module{
		Name: "demo",
		Structs: []*hir.StructDecl{
			{Name: "Point", Fields: []hir.FieldDecl{{Name: "x", Type: types.I32}, {Name: "y", Type: types.I32}},
				Derives: []hir.Trait{hir.TraitOrd, hir.TraitHash}},
			{Name: "Empty"},
			{Name: "Line", Fields: []hir.FieldDecl{{Name: "a", Type: point}, {Name: "b", Type: point}}},
			{Name: "Mixed", Fields: []hir.FieldDecl{{Name: "u", Type: types.U8}, {Name: "f", Type: types.F64}, {Name: "s", Type: types.Str}}},
			{Name: "Pair", TypeParams: []string{"T"}, Fields: []hir.FieldDecl{{Name: "a", Type: T}, {Name: "b", Type: T}}},
			{Name: "Custom", Fields: []hir.FieldDecl{{Name: "v", Type: types.I64}}, Derives: []hir.Trait{hir.TraitHash, hir.TraitPartialEq}},
			{Name: "Grid", Fields: []hir.FieldDecl{{Name: "cells", Type: types.Array(point, 4)}}},
		},
		Enums: []*hir.EnumDecl{
			{Name: "Shape", Variants: []hir.VariantDecl{
				{Name: "Dot"},
				{Name: "Circle", Fields: []*types.Type{types.F64}},
				{Name: "Label", Fields: []*types.Type{types.Str, types.I32}},
			}},
		},
		Impls: []*hir.ImplDecl{
			{Target: types.Named("Custom"), Behavior: "Hash", Methods: []*hir.Func{{
				Name:   "hash",
				Params: []hir.Param{{Name: "this", Type: types.Pointer(types.Named("Custom"), false)}},
				Result: types.U64,
			}}},
		},
	}
}

func newSynth(t *testing.T, opts Options) (*Synthesizer, *mono.Registry, *emit.Module) {
	t.Helper()
	mod := emit.NewModule("demo", "", "em_")
	env := typeenv.NewTable(&hir.Unit{Name: "demo", Module: testModule()})
	reg := mono.New(env, mod, layout.NewTable(layout.X86_64LinuxGNU()), diag.BagReporter{Bag: diag.NewBag(50)}, mono.ModePlaceholder)
	return New(reg, opts), reg, mod
}

func funcBody(t *testing.T, out, header string) string {
	t.Helper()
	i := strings.Index(out, header)
	if i < 0 {
		t.Fatalf("missing %q in:\n%s", header, out)
	}
	rest := out[i:]
	end := strings.Index(rest, "\n}\n")
	return rest[:end]
}

func TestRequestIdempotent(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	a, ok := s.Request("Point", hir.TraitOrd)
	if !ok {
		t.Fatalf("request failed")
	}
	b, _ := s.Request("Point", hir.TraitOrd)
	if a != b || a != "@em_Point_cmp" {
		t.Fatalf("symbols %s %s", a, b)
	}
	if n := strings.Count(mod.String(), "define %struct.Ordering @em_Point_cmp("); n != 1 {
		t.Fatalf("cmp defined %d times", n)
	}
}

func TestOrdLexicographic(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Point", hir.TraitOrd)
	body := funcBody(t, mod.String(), "@em_Point_cmp(")
	if strings.Count(body, "icmp slt i32") != 2 || strings.Count(body, "icmp sgt i32") != 2 {
		t.Fatalf("expected one signed comparison per field:\n%s", body)
	}
	if strings.Count(body, "icmp ne i32") != 2 {
		t.Fatalf("expected an early exit per field:\n%s", body)
	}
	if !strings.Contains(body, "store i32 1, ptr") {
		t.Fatalf("running ordering must start at Equal:\n%s", body)
	}
	if !strings.Contains(mod.String(), "%struct.Ordering = type { i32 }") {
		t.Fatalf("Ordering type missing")
	}
}

func TestOrdEmptyIsEqual(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Empty", hir.TraitOrd)
	body := funcBody(t, mod.String(), "@em_Empty_cmp(")
	if strings.Contains(body, "icmp") {
		t.Fatalf("empty struct compares nothing:\n%s", body)
	}
	if !strings.Contains(body, "insertvalue %struct.Ordering undef") {
		t.Fatalf("missing result construction:\n%s", body)
	}
}

func TestOrdPrimitiveClasses(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Mixed", hir.TraitOrd)
	body := funcBody(t, mod.String(), "@em_Mixed_cmp(")
	for _, want := range []string{"icmp ult i8", "fcmp olt double", "call i32 @rt_str_cmp("} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q:\n%s", want, body)
		}
	}
	if !strings.Contains(mod.String(), "declare i32 @rt_str_cmp(ptr, ptr)") {
		t.Fatalf("runtime helper not declared")
	}
}

func TestPartialOrdFloatUnordered(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Mixed", hir.TraitPartialOrd)
	out := mod.String()
	body := funcBody(t, out, "@em_Mixed_partial_cmp(")
	if !strings.Contains(body, "fcmp uno double") {
		t.Fatalf("missing unordered check:\n%s", body)
	}
	if !strings.Contains(out, "%struct.Maybe__Ordering = type { i32, [1 x i64] }") {
		t.Fatalf("missing Maybe layout:\n%s", out)
	}
}

func TestNestedFieldsCallNestedMethod(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Line", hir.TraitOrd)
	out := mod.String()
	body := funcBody(t, out, "@em_Line_cmp(")
	if strings.Count(body, "call %struct.Ordering @em_Point_cmp(") != 2 {
		t.Fatalf("nested fields must call Point cmp:\n%s", body)
	}
	if strings.Count(out, "define %struct.Ordering @em_Point_cmp(") != 1 {
		t.Fatalf("nested cmp generated once")
	}
}

func TestUserImplPreferred(t *testing.T) {
	s, reg, _ := newSynth(t, DefaultOptions())
	reg.Require("Custom", nil, source.Span{})
	s.DeriveDeclared("Custom")
	if s.Generated("Custom", hir.TraitHash) {
		t.Fatalf("derive must not shadow a user impl")
	}
	if !s.Generated("Custom", hir.TraitPartialEq) {
		t.Fatalf("PartialEq should be derived")
	}
}

func TestUnspecializedGenericSkipped(t *testing.T) {
	s, _, _ := newSynth(t, DefaultOptions())
	if _, ok := s.Request("Pair", hir.TraitOrd); ok {
		t.Fatalf("generic declaration must be skipped")
	}
	if _, ok := s.RequestFor(types.Named("Pair", types.I32), hir.TraitOrd, source.Span{}); !ok {
		t.Fatalf("specialized Pair[I32] should derive")
	}
}

func TestHashEmptyIsOffsetBasis(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Empty", hir.TraitHash)
	body := funcBody(t, mod.String(), "@em_Empty_hash(")
	if !strings.Contains(body, "store i64 -3750763034362895579") {
		t.Fatalf("offset basis missing:\n%s", body)
	}
	if strings.Contains(body, "xor") {
		t.Fatalf("empty struct folds nothing:\n%s", body)
	}
}

func TestHashFoldsEachField(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Point", hir.TraitHash)
	body := funcBody(t, mod.String(), "@em_Point_hash(")
	if strings.Count(body, "mul i64") != 2 || strings.Count(body, "zext i32") != 2 {
		t.Fatalf("expected two folds:\n%s", body)
	}
	if !strings.Contains(body, "1099511628211") {
		t.Fatalf("FNV prime missing:\n%s", body)
	}
}

func TestEnumPayloadOption(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Shape", hir.TraitHash)
	body := funcBody(t, mod.String(), "@em_Shape_hash(")
	if !strings.Contains(body, "switch i32") || !strings.Contains(body, "rt_str_hash") {
		t.Fatalf("payload hashing expected:\n%s", body)
	}

	s2, _, mod2 := newSynth(t, Options{EnumPayloads: false})
	s2.Request("Shape", hir.TraitHash)
	body2 := funcBody(t, mod2.String(), "@em_Shape_hash(")
	if strings.Contains(body2, "switch") {
		t.Fatalf("tag-only hashing expected:\n%s", body2)
	}
}

func TestDuplicateEnumFlatWithoutPayloads(t *testing.T) {
	s, _, mod := newSynth(t, Options{})
	s.Request("Shape", hir.TraitDuplicate)
	body := funcBody(t, mod.String(), "@em_Shape_duplicate(")
	if !strings.Contains(body, "load %struct.Shape, ptr %this") {
		t.Fatalf("flat copy expected:\n%s", body)
	}
}

func TestDuplicateNestedArrayLoops(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Grid", hir.TraitDuplicate)
	body := funcBody(t, mod.String(), "@em_Grid_duplicate(")
	if !strings.Contains(body, "arr.cond") || !strings.Contains(body, "call %struct.Point @em_Point_duplicate(") {
		t.Fatalf("element-wise duplicate expected:\n%s", body)
	}
}

func TestEqEnumComparesTagFirst(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Shape", hir.TraitPartialEq)
	body := funcBody(t, mod.String(), "@em_Shape_eq(")
	tagAt := strings.Index(body, "icmp eq i32")
	strAt := strings.Index(body, "rt_str_eq")
	if tagAt < 0 || strAt < 0 || tagAt > strAt {
		t.Fatalf("tag test must precede payload tests:\n%s", body)
	}
}

func TestReflect(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	sym, ok := s.Request("Shape", hir.TraitReflect)
	if !ok || sym != "@em_Shape_type_info" {
		t.Fatalf("symbol %s", sym)
	}
	s.Request("Shape", hir.TraitReflect)
	out := mod.String()
	if strings.Count(out, "@em_Shape.typeinfo = private constant %struct.TypeInfo") != 1 {
		t.Fatalf("type info emitted once:\n%s", out)
	}
	if !strings.Contains(out, "define ptr @em_Shape_variant_name(ptr %this)") {
		t.Fatalf("variant_name missing:\n%s", out)
	}
	if !strings.Contains(out, "[3 x ptr]") {
		t.Fatalf("variant names table missing:\n%s", out)
	}
}

func TestTypeID(t *testing.T) {
	if TypeID("") != FNVOffset {
		t.Fatalf("empty name must hash to the offset basis")
	}
	if TypeID("Point") == TypeID("Pair__I32__I32") {
		t.Fatalf("ids collide")
	}
}

func TestDebugStructNamesFields(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	sym, ok := s.Request("Mixed", hir.TraitDebug)
	if !ok || sym != "@em_Mixed_debug_string" {
		t.Fatalf("symbol %s", sym)
	}
	out := mod.String()
	body := funcBody(t, out, "define ptr @em_Mixed_debug_string(")
	for _, want := range []string{"zext i8", "call ptr @rt_u64_to_str(", "call ptr @rt_f64_to_str(", "call ptr @rt_str_concat("} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q:\n%s", want, body)
		}
	}
	for _, want := range []string{`c"Mixed { u: \00"`, `c", f: \00"`, `c", s: \00"`, `c"\22\00"`, `c" }\00"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing constant %s:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "declare ptr @rt_str_concat(ptr, ptr)") {
		t.Fatalf("runtime helper not declared")
	}
}

func TestDebugEmptyStructIsName(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Empty", hir.TraitDebug)
	out := mod.String()
	body := funcBody(t, out, "@em_Empty_debug_string(")
	if strings.Count(body, "rt_str_concat") != 1 || !strings.Contains(out, `c"Empty\00"`) {
		t.Fatalf("expected the bare name:\n%s", out)
	}
}

func TestDebugEnumQualifiesVariants(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Shape", hir.TraitDebug)
	out := mod.String()
	body := funcBody(t, out, "@em_Shape_debug_string(")
	if !strings.Contains(body, "switch i32") || !strings.Contains(body, "getelementptr inbounds [3 x ptr]") {
		t.Fatalf("expected name lookup and payload dispatch:\n%s", body)
	}
	for _, want := range []string{`c"Shape::Dot\00"`, `c"Shape::Circle\00"`, `c"Shape::Label\00"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s:\n%s", want, out)
		}
	}
}

func TestDebugNestedAndArrayFields(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Grid", hir.TraitDebug)
	out := mod.String()
	body := funcBody(t, out, "@em_Grid_debug_string(")
	for _, want := range []string{"arr.cond", "select i1", "call ptr @em_Point_debug_string("} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q:\n%s", want, body)
		}
	}
	if strings.Count(out, "define ptr @em_Point_debug_string(") != 1 {
		t.Fatalf("nested debug_string generated once")
	}
}

func TestDisplayEnumBareNames(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	sym, ok := s.Request("Shape", hir.TraitDisplay)
	if !ok || sym != "@em_Shape_to_string" {
		t.Fatalf("symbol %s", sym)
	}
	out := mod.String()
	body := funcBody(t, out, "@em_Shape_to_string(")
	if strings.Contains(body, "switch") {
		t.Fatalf("display renders the variant name only:\n%s", body)
	}
	if !strings.Contains(out, `c"Circle\00"`) || strings.Contains(out, "Shape::") {
		t.Fatalf("expected bare variant names:\n%s", out)
	}
}

func TestDisplayStructJoinsValues(t *testing.T) {
	s, _, mod := newSynth(t, DefaultOptions())
	s.Request("Point", hir.TraitDisplay)
	out := mod.String()
	body := funcBody(t, out, "@em_Point_to_string(")
	if strings.Count(body, "call ptr @rt_i64_to_str(") != 2 || strings.Count(body, "sext i32") != 2 {
		t.Fatalf("expected two signed renderings:\n%s", body)
	}
	if strings.Contains(out, `c"Point`) {
		t.Fatalf("display omits the type name:\n%s", out)
	}
}
