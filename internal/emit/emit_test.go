package emit

import (
	"strings"
	"testing"
)

func TestModuleSectionsOrder(t *testing.T) {
	m := NewModule("demo", "", "em_")
	f := m.NewFunc(m.Symbol("main"), "", "i32", nil)
	f.Ret("i32", "0")
	f.Finish()
	m.DefineType("Point", "{ i32, i32 }")
	m.StringConst("hi")
	m.Runtime("rt_print_str")

	out := m.String()
	typeAt := strings.Index(out, "%struct.Point = type { i32, i32 }")
	strAt := strings.Index(out, "@.str.0 = private unnamed_addr constant [3 x i8] c\"hi\\00\"")
	declAt := strings.Index(out, "declare void @rt_print_str(ptr)")
	funcAt := strings.Index(out, "define i32 @em_main()")
	if typeAt < 0 || strAt < 0 || declAt < 0 || funcAt < 0 {
		t.Fatalf("missing section in:\n%s", out)
	}
	if typeAt >= strAt || strAt >= declAt || declAt >= funcAt {
		t.Fatalf("sections out of order:\n%s", out)
	}
	if !strings.Contains(out, "target triple = \""+DefaultTriple+"\"") {
		t.Fatalf("missing default triple:\n%s", out)
	}
}

func TestDefineTypeOnce(t *testing.T) {
	m := NewModule("demo", "", "")
	if !m.DefineType("A", "{ i8 }") {
		t.Fatalf("first definition rejected")
	}
	if m.DefineType("A", "{ i64 }") {
		t.Fatalf("second definition accepted")
	}
	body, _ := m.TypeBody("A")
	if body != "{ i8 }" {
		t.Fatalf("body = %q", body)
	}
}

func TestStringConstInterned(t *testing.T) {
	m := NewModule("demo", "", "")
	a := m.StringConst("x\"y\n")
	b := m.StringConst("x\"y\n")
	if a != b {
		t.Fatalf("expected interned constant, got %s and %s", a, b)
	}
	if !strings.Contains(m.String(), `c"x\22y\0A\00"`) {
		t.Fatalf("bad escaping:\n%s", m.String())
	}
}

func TestUnusedRuntimeNotDeclared(t *testing.T) {
	m := NewModule("demo", "", "")
	m.Runtime("rt_alloc")
	out := m.String()
	if strings.Contains(out, "rt_free") {
		t.Fatalf("undeclared helper leaked:\n%s", out)
	}
	if !strings.Contains(out, "declare ptr @rt_alloc(i64)") {
		t.Fatalf("missing rt_alloc:\n%s", out)
	}
}

func TestFuncDeadBlockAfterTerminator(t *testing.T) {
	m := NewModule("demo", "", "")
	f := m.NewFunc("@f", "internal", "void", nil)
	f.RetVoid()
	f.Emitf("call void @g()")
	f.Finish()
	out := m.String()
	if !strings.Contains(out, "dead.0:") {
		t.Fatalf("expected dead block:\n%s", out)
	}
	if strings.Count(out, "ret void") != 2 {
		t.Fatalf("dead block must be closed:\n%s", out)
	}
}

func TestFuncAllocaHoisted(t *testing.T) {
	m := NewModule("demo", "", "")
	f := m.NewFunc("@f", "", "void", nil)
	f.Block(f.Label("body"))
	slot := f.Alloca("i64")
	f.Store("i64", "1", slot)
	f.Finish()
	out := m.String()
	allocaAt := strings.Index(out, "alloca i64")
	bodyAt := strings.Index(out, "body.0:")
	if allocaAt < 0 || allocaAt > bodyAt {
		t.Fatalf("alloca must be in entry block:\n%s", out)
	}
}

func TestHoleFilledLater(t *testing.T) {
	m := NewModule("demo", "", "")
	f := m.NewFunc("@f", "", "void", nil)
	h := f.Hole()
	f.Emitf("call void @after()")
	h.Fill("store i1 true, ptr %%flag")
	f.Finish()
	out := m.String()
	if strings.Index(out, "store i1 true") > strings.Index(out, "@after") {
		t.Fatalf("hole content must precede later code:\n%s", out)
	}
}

func TestEscape(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain_name", "plain_name"},
		{"mod::name", "mod.name"},
		{"Pair$I32", "Pair$I32"},
		{"with space", "with.x20space"},
		{"\u00e9", ".xc3.xa9"},
		{"e\u0301", ".xc3.xa9"},
	}
	for _, tc := range cases {
		if got := Escape(tc.in); got != tc.want {
			t.Fatalf("Escape(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFloatConst(t *testing.T) {
	if got := FloatConst(1.0, 64); got != "0x3FF0000000000000" {
		t.Fatalf("f64 1.0 = %s", got)
	}
	if got := FloatConst(0.1, 32); got != "0x3FB99999A0000000" {
		t.Fatalf("f32 0.1 = %s", got)
	}
}

func TestRetTypeAndReturn(t *testing.T) {
	m := NewModule("demo", "", "em_")
	f := m.NewFunc(m.Symbol("two"), "", "i64", nil)
	if f.RetType() != "i64" {
		t.Fatalf("RetType = %q", f.RetType())
	}
	f.Ret(f.RetType(), "2")
	f.Finish()
	if !strings.Contains(m.String(), "  ret i64 2\n") {
		t.Fatalf("missing return:\n%s", m.String())
	}
}

func TestTextRuntimeHelpersDeclared(t *testing.T) {
	m := NewModule("demo", "", "")
	for _, name := range []string{"rt_str_concat", "rt_i64_to_str", "rt_u64_to_str", "rt_f64_to_str", "rt_char_to_str", "rt_ptr_to_str"} {
		if sym := m.Runtime(name); sym != "@"+name {
			t.Fatalf("Runtime(%q) = %s", name, sym)
		}
	}
	if !strings.Contains(m.String(), "declare ptr @rt_str_concat(ptr, ptr)") {
		t.Fatalf("missing declaration:\n%s", m.String())
	}
}
