package pattern

import (
	"strconv"
	"strings"
	"testing"

	"ember/internal/diag"
	"ember/internal/drop"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/layout"
	"ember/internal/mono"
	"ember/internal/source"
	"ember/internal/typeenv"
	"ember/internal/types"
)

var (
	shapeT = types.Named("Shape")
	pointT = types.Named("Point")
)

func testEnv() typeenv.Env {
	return typeenv.NewTable(&hir.Unit{Name: "demo", Module: &hir.Module{
		Name: "demo",
		Structs: []*hir.StructDecl{
			{Name: "Point", Fields: []hir.FieldDecl{{Name: "x", Type: types.I32}, {Name: "y", Type: types.I32}}},
		},
		Enums: []*hir.EnumDecl{{
			Name: "Shape",
			Variants: []hir.VariantDecl{
				{Name: "Circle", Fields: []*types.Type{types.F64}},
				{Name: "Rect", Fields: []*types.Type{types.F64, types.F64}},
				{Name: "Dot"},
			},
		}},
	}})
}

// fakeHost lowers the handful of expressions the tests use: variables,
// integer literals, calls to "panic" (diverging) and "make" (a temporary).
type fakeHost struct {
	t      *testing.T
	f      *emit.Func
	mod    *emit.Module
	reg    *mono.Registry
	bag    *diag.Bag
	vars   map[string]emit.Operand
	owners map[string]Owner
	temps  []string
	depth  int
	pushed int
}

func newHost(t *testing.T, params ...emit.Param) *fakeHost {
	t.Helper()
	mod := emit.NewModule("demo", "", "em_")
	bag := diag.NewBag(50)
	reg := mono.New(testEnv(), mod, layout.NewTable(layout.X86_64LinuxGNU()), diag.BagReporter{Bag: bag}, mono.ModePlaceholder)
	h := &fakeHost{t: t, mod: mod, reg: reg, bag: bag, vars: map[string]emit.Operand{}, owners: map[string]Owner{}}
	h.f = mod.NewFunc("@test", "", "void", params)
	return h
}

func (h *fakeHost) Func() *emit.Func         { return h.f }
func (h *fakeHost) Registry() *mono.Registry { return h.reg }
func (h *fakeHost) Reporter() diag.Reporter  { return diag.BagReporter{Bag: h.bag} }
func (h *fakeHost) PopScope()                { h.depth-- }

func (h *fakeHost) PushScope(drop.ScopeKind) {
	h.depth++
	h.pushed++
}

func (h *fakeHost) TrackTemp(slot string, _ *types.Type) string {
	h.temps = append(h.temps, slot)
	return ".tmp" + strconv.Itoa(len(h.temps))
}

func (h *fakeHost) Consume(e *hir.Expr) emit.Operand { return h.Lower(e) }

func (h *fakeHost) Declare(name string, place emit.Operand, owner Owner) {
	h.vars[name] = place
	h.owners[name] = owner
}

func (h *fakeHost) Lower(e *hir.Expr) emit.Operand {
	switch d := e.Data.(type) {
	case *hir.VarRefData:
		op, ok := h.vars[d.Name]
		if !ok {
			h.t.Fatalf("unknown variable %s", d.Name)
		}
		return op
	case *hir.LiteralData:
		return emit.Value(strconv.FormatInt(d.IntValue, 10), h.reg.LLType(e.Type, source.Span{}), e.Type)
	case *hir.CallData:
		switch d.Callee {
		case "panic":
			h.f.Unreachable()
			return emit.VoidOperand
		case "make":
			ll := h.reg.StorageType(e.Type, source.Span{})
			return emit.Value("undef", ll, e.Type)
		}
	}
	h.t.Fatalf("fake host cannot lower %s", e.Kind)
	return emit.VoidOperand
}

// local binds name to a fresh slot of type t.
func (h *fakeHost) local(name string, t *types.Type) {
	ll := h.reg.StorageType(t, source.Span{})
	h.vars[name] = emit.Place(h.f.Alloca(ll), ll, t)
}

func (h *fakeHost) run(m *hir.Expr) (emit.Operand, string) {
	h.t.Helper()
	op := New(h).Compile(m.Data.(*hir.MatchData), m.Type, source.Span{})
	h.f.Finish()
	return op, h.mod.String()
}

func TestIntegerArmsWithWildcard(t *testing.T) {
	h := newHost(t)
	h.local("x", types.I32)
	m := hir.Match(hir.Var("x", types.I32), types.I64,
		hir.Arm(hir.IntPattern(0), hir.IntLit(10, types.I64)),
		hir.Arm(hir.IntPattern(1), hir.IntLit(20, types.I64)),
		hir.Arm(hir.WildPattern(), hir.IntLit(30, types.I64)),
	)
	op, ir := h.run(m)
	if got := strings.Count(ir, "icmp eq i32"); got != 2 {
		t.Fatalf("expected 2 literal tests, got %d\n%s", got, ir)
	}
	if strings.Contains(ir, "unreachable") {
		t.Fatalf("wildcard arm makes the match total:\n%s", ir)
	}
	if got := strings.Count(ir, "load i32"); got != 1 {
		t.Fatalf("scrutinee should be loaded once, got %d loads\n%s", got, ir)
	}
	if op.Type != "i64" || op.IsVoid() {
		t.Fatalf("unexpected result operand %+v", op)
	}
	if h.pushed != 3 || h.depth != 0 {
		t.Fatalf("arm scopes unbalanced: pushed %d depth %d", h.pushed, h.depth)
	}
}

func TestRangeBounds(t *testing.T) {
	cases := []struct {
		name      string
		ty        *types.Type
		inclusive bool
		want      []string
	}{
		{"signed exclusive", types.I32, false, []string{"icmp sge i32", "icmp slt i32"}},
		{"signed inclusive", types.I32, true, []string{"icmp sge i32", "icmp sle i32"}},
		{"unsigned exclusive", types.U8, false, []string{"icmp uge i8", "icmp ult i8"}},
		{"unsigned inclusive", types.U8, true, []string{"icmp uge i8", "icmp ule i8"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHost(t)
			h.local("x", tc.ty)
			m := hir.Match(hir.Var("x", tc.ty), types.I64,
				hir.Arm(hir.RangePattern(0, 10, tc.inclusive), hir.IntLit(1, types.I64)),
				hir.Arm(hir.WildPattern(), hir.IntLit(0, types.I64)),
			)
			_, ir := h.run(m)
			for _, w := range tc.want {
				if !strings.Contains(ir, w) {
					t.Fatalf("missing %q in:\n%s", w, ir)
				}
			}
			if !strings.Contains(ir, "and i1") {
				t.Fatalf("bounds are not combined:\n%s", ir)
			}
		})
	}
}

func TestLiteralOutOfRange(t *testing.T) {
	h := newHost(t)
	h.local("x", types.I8)
	m := hir.Match(hir.Var("x", types.I8), types.I64,
		hir.Arm(hir.IntPattern(300), hir.IntLit(1, types.I64)),
		hir.Arm(hir.WildPattern(), hir.IntLit(0, types.I64)),
	)
	h.run(m)
	if h.bag.Count(diag.CgLiteralOutOfRange) != 1 {
		t.Fatalf("expected one out-of-range diagnostic, got %v", h.bag.Items())
	}
}

func TestFitsWidth(t *testing.T) {
	cases := []struct {
		v    int64
		ty   *types.Type
		want bool
	}{
		{127, types.I8, true},
		{128, types.I8, false},
		{-128, types.I8, true},
		{255, types.U8, true},
		{-1, types.U8, false},
		{65535, types.U16, true},
		{-1, types.U64, false},
		{1 << 40, types.I64, true},
		{0x10FFFF, types.Char, true},
		{-1, types.U128, false},
	}
	for _, tc := range cases {
		if got := FitsWidth(tc.v, tc.ty); got != tc.want {
			t.Fatalf("FitsWidth(%d, %s) = %v, want %v", tc.v, tc.ty, got, tc.want)
		}
	}
}

func shapeMatch(arms ...hir.MatchArm) *hir.Expr {
	return hir.Match(hir.Var("s", shapeT), types.I64, arms...)
}

func TestEnumTagLoadedOnce(t *testing.T) {
	h := newHost(t)
	h.local("s", shapeT)
	m := shapeMatch(
		hir.Arm(hir.VariantPattern("Circle", hir.WildPattern()), hir.IntLit(1, types.I64)),
		hir.Arm(hir.VariantPattern("Rect", hir.WildPattern(), hir.WildPattern()), hir.IntLit(2, types.I64)),
		hir.Arm(hir.VariantPattern("Dot"), hir.IntLit(3, types.I64)),
	)
	op, ir := h.run(m)
	if got := strings.Count(ir, "load i32"); got != 1 {
		t.Fatalf("tag should be loaded once, got %d\n%s", got, ir)
	}
	if got := strings.Count(ir, "icmp eq i32"); got != 3 {
		t.Fatalf("expected one tag comparison per arm, got %d\n%s", got, ir)
	}
	// Every variant is tested, but the last arm's failure edge stays live.
	if op.IsVoid() {
		t.Fatalf("match result lost")
	}
	if h.bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", h.bag.Items())
	}
}

func TestPayloadReadAfterTagTest(t *testing.T) {
	h := newHost(t)
	h.local("s", shapeT)
	m := hir.Match(hir.Var("s", shapeT), types.F64,
		hir.Arm(hir.VariantPattern("Circle", hir.BindPattern("r")), hir.Var("r", types.F64)),
		hir.Arm(hir.WildPattern(), hir.Var("zero", types.F64)),
	)
	h.local("zero", types.F64)
	_, ir := h.run(m)
	tagTest := strings.Index(ir, "icmp eq i32")
	payload := strings.Index(ir, "load double")
	if tagTest < 0 || payload < 0 || payload < tagTest {
		t.Fatalf("payload must be read after the tag test:\n%s", ir)
	}
	if _, ok := h.vars["r"]; !ok {
		t.Fatalf("binding r was not declared")
	}
	if got := h.owners["r"]; got != (Owner{Root: "s"}) {
		t.Fatalf("payload binding should borrow all of s, got %+v", got)
	}
}

func TestOrPatternSharesBindings(t *testing.T) {
	h := newHost(t)
	h.local("s", shapeT)
	h.local("zero", types.F64)
	m := hir.Match(hir.Var("s", shapeT), types.F64,
		hir.Arm(hir.OrPattern(
			hir.VariantPattern("Circle", hir.BindPattern("r")),
			hir.VariantPattern("Rect", hir.BindPattern("r"), hir.WildPattern()),
		), hir.Var("r", types.F64)),
		hir.Arm(hir.WildPattern(), hir.Var("zero", types.F64)),
	)
	_, ir := h.run(m)
	if !strings.Contains(ir, "or.next") || !strings.Contains(ir, "or.ok") {
		t.Fatalf("expected alternative chain:\n%s", ir)
	}
	r := h.vars["r"]
	if !r.Place || r.Type != "double" {
		t.Fatalf("r should be a double place, got %+v", r)
	}
	if got := strings.Count(ir, "store double"); got < 2 {
		t.Fatalf("each alternative should write the shared slot, got %d stores\n%s", got, ir)
	}
}

func TestAllArmsDiverge(t *testing.T) {
	h := newHost(t)
	h.local("x", types.I32)
	m := hir.Match(hir.Var("x", types.I32), types.I64,
		hir.Arm(hir.IntPattern(0), hir.Call("panic", types.Never)),
		hir.Arm(hir.WildPattern(), hir.Call("panic", types.Never)),
	)
	op, ir := h.run(m)
	if op.Ref != "undef" {
		t.Fatalf("diverging match should yield undef, got %+v", op)
	}
	end := strings.Index(ir, "match.end")
	if end < 0 || !strings.Contains(ir[end:], "unreachable") {
		t.Fatalf("join block should be unreachable:\n%s", ir)
	}
}

func TestTemporaryScrutineeIsTracked(t *testing.T) {
	h := newHost(t)
	m := hir.Match(hir.Call("make", shapeT), types.I64,
		hir.Arm(hir.VariantPattern("Dot"), hir.IntLit(1, types.I64)),
		hir.Arm(hir.WildPattern(), hir.IntLit(0, types.I64)),
	)
	_, ir := h.run(m)
	if len(h.temps) != 1 {
		t.Fatalf("expected one tracked temporary, got %v", h.temps)
	}
	if !strings.Contains(ir, h.temps[0]+" = alloca %struct.Shape") {
		t.Fatalf("temporary slot missing:\n%s", ir)
	}
}

func TestBoolResultUsesByteSlot(t *testing.T) {
	h := newHost(t)
	h.local("x", types.I32)
	h.local("yes", types.Bool)
	h.local("no", types.Bool)
	m := hir.Match(hir.Var("x", types.I32), types.Bool,
		hir.Arm(hir.IntPattern(1), hir.Var("yes", types.Bool)),
		hir.Arm(hir.WildPattern(), hir.Var("no", types.Bool)),
	)
	op, ir := h.run(m)
	for _, want := range []string{"alloca i8", "zext i1", "trunc i8"} {
		if !strings.Contains(ir, want) {
			t.Fatalf("missing %q:\n%s", want, ir)
		}
	}
	if op.Type != "i1" {
		t.Fatalf("result should be i1, got %s", op.Type)
	}
}

func TestStringLiteralUsesRuntimeEquality(t *testing.T) {
	h := newHost(t)
	h.local("s", types.Str)
	m := hir.Match(hir.Var("s", types.Str), types.I64,
		hir.Arm(hir.StrPattern("hi"), hir.IntLit(1, types.I64)),
		hir.Arm(hir.WildPattern(), hir.IntLit(0, types.I64)),
	)
	_, ir := h.run(m)
	if !strings.Contains(ir, "declare i32 @rt_str_eq") || !strings.Contains(ir, "call i32 @rt_str_eq") {
		t.Fatalf("string patterns should compare through the runtime:\n%s", ir)
	}
}

func TestStructFieldPatterns(t *testing.T) {
	h := newHost(t)
	h.local("p", pointT)
	m := hir.Match(hir.Var("p", pointT), types.I64,
		hir.Arm(hir.StructPattern(
			hir.FieldPat{Name: "x", Pattern: hir.IntPattern(0)},
			hir.FieldPat{Name: "y", Pattern: hir.BindPattern("y")},
		), hir.IntLit(1, types.I64)),
		hir.Arm(hir.StructPattern(hir.FieldPat{Name: "z", Pattern: hir.WildPattern()}), hir.IntLit(2, types.I64)),
		hir.Arm(hir.WildPattern(), hir.IntLit(0, types.I64)),
	)
	_, ir := h.run(m)
	if !strings.Contains(ir, "getelementptr inbounds %struct.Point") {
		t.Fatalf("field access missing:\n%s", ir)
	}
	if h.bag.Count(diag.CgUnknownField) != 1 {
		t.Fatalf("expected unknown field diagnostic, got %v", h.bag.Items())
	}
	if got := h.owners["y"]; got != (Owner{Root: "p", Field: "y"}) {
		t.Fatalf("field binding should borrow p.y, got %+v", got)
	}
}

func TestBindingOwnerFollowsScrutinee(t *testing.T) {
	h := newHost(t)
	m := hir.Match(hir.Call("make", shapeT), types.I64,
		hir.Arm(hir.BindPattern("whole"), hir.IntLit(1, types.I64)),
	)
	h.run(m)
	if got := h.owners["whole"]; got != (Owner{Root: ".tmp1"}) {
		t.Fatalf("binding of a temporary should borrow the hidden slot, got %+v", got)
	}

	h = newHost(t, emit.Param{Type: "ptr", Name: "p"})
	h.vars["p"] = emit.Value("%p", "ptr", types.Pointer(shapeT, false))
	m = hir.Match(hir.Var("p", types.Pointer(shapeT, false)), types.I64,
		hir.Arm(hir.BindPattern("borrowed"), hir.IntLit(1, types.I64)),
	)
	h.run(m)
	if got := h.owners["borrowed"]; got != (Owner{}) {
		t.Fatalf("matching through a pointer must not record an owner, got %+v", got)
	}
}

func TestUnknownVariant(t *testing.T) {
	h := newHost(t)
	h.local("s", shapeT)
	m := shapeMatch(
		hir.Arm(hir.VariantPattern("Hexagon"), hir.IntLit(1, types.I64)),
		hir.Arm(hir.WildPattern(), hir.IntLit(0, types.I64)),
	)
	h.run(m)
	if h.bag.Count(diag.CgUnknownVariant) != 1 {
		t.Fatalf("expected unknown variant diagnostic, got %v", h.bag.Items())
	}
}

func TestArrayPrefixAndSuffix(t *testing.T) {
	arr := types.Array(types.I32, 4)
	h := newHost(t)
	h.local("a", arr)
	m := hir.Match(hir.Var("a", arr), types.I64,
		hir.Arm(hir.ArrayPattern([]*hir.Pattern{hir.IntPattern(1)}, true, []*hir.Pattern{hir.BindPattern("last")}), hir.IntLit(1, types.I64)),
		hir.Arm(hir.WildPattern(), hir.IntLit(0, types.I64)),
	)
	_, ir := h.run(m)
	if !strings.Contains(ir, "i64 0, i64 0") || !strings.Contains(ir, "i64 0, i64 3") {
		t.Fatalf("expected head and tail element addresses:\n%s", ir)
	}
	if _, ok := h.vars["last"]; !ok {
		t.Fatalf("binding last was not declared")
	}
}
