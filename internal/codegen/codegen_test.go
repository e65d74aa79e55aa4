package codegen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ember/internal/diag"
	"ember/internal/hir"
	"ember/internal/testkit"
	"ember/internal/types"
)

var (
	pointT = types.Named("Point")
	resT   = types.Named("Res")
)

func mainFn(stmts ...*hir.Stmt) *hir.Func {
	return &hir.Func{Name: "main", Result: types.Unit, Body: hir.Blk(nil, stmts...)}
}

func unit(funcs []*hir.Func, impls ...*hir.ImplDecl) *hir.Unit {
	T := types.Param("T")
	return &hir.Unit{Name: "demo", Module: &hir.Module{
		Name: "demo",
		Structs: []*hir.StructDecl{
			{
				Name:    "Point",
				Fields:  []hir.FieldDecl{{Name: "x", Type: types.I32}, {Name: "y", Type: types.I32}},
				Derives: []hir.Trait{hir.TraitPartialEq, hir.TraitOrd, hir.TraitHash},
			},
			{Name: "Res", Fields: []hir.FieldDecl{{Name: "fd", Type: types.I32}}},
			{Name: "Pair", TypeParams: []string{"T", "U"}, Fields: []hir.FieldDecl{{Name: "a", Type: T}, {Name: "b", Type: types.Param("U")}}},
		},
		Enums: []*hir.EnumDecl{{
			Name: "Shape",
			Variants: []hir.VariantDecl{
				{Name: "Circle", Fields: []*types.Type{types.I64}},
				{Name: "Dot"},
			},
		}},
		Funcs: append([]*hir.Func{
			{
				Name:       "id",
				TypeParams: []string{"T"},
				Params:     []hir.Param{{Name: "v", Type: T}},
				Result:     T,
				Body:       hir.Blk(hir.Var("v", T)),
			},
			{
				Name:   "consume",
				Params: []hir.Param{{Name: "r", Type: resT}},
				Result: types.Unit,
				Body:   hir.Blk(nil),
			},
		}, funcs...),
		Impls: append([]*hir.ImplDecl{{
			Behavior: "Drop",
			Target:   resT,
			Methods: []*hir.Func{{
				Name:   "drop",
				Params: []hir.Param{{Name: "this", Type: types.Pointer(resT, true)}},
				Result: types.Unit,
				Body:   hir.Blk(nil),
			}},
		}}, impls...),
	}}
}

func generate(t *testing.T, u *hir.Unit, opts Options) (*Result, string) {
	t.Helper()
	res, err := NewSession(u, nil, opts, nil).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v (%v)", err, res.Diagnostics.Items())
	}
	if err := testkit.CheckIR(res.IR); err != nil {
		t.Fatalf("malformed output: %v\n%s", err, res.IR)
	}
	return res, res.IR
}

// define returns the body of sym's definition, skipping call sites.
func define(t *testing.T, ir, sym string) string {
	t.Helper()
	off := 0
	for _, line := range strings.SplitAfter(ir, "\n") {
		if strings.HasPrefix(line, "define ") && strings.Contains(line, " "+sym+"(") {
			rest := ir[off:]
			return rest[:strings.Index(rest, "\n}\n")]
		}
		off += len(line)
	}
	t.Fatalf("missing definition of %s:\n%s", sym, ir)
	return ""
}

func resLit(v int64) *hir.Expr {
	return hir.StructLit(resT, hir.FieldInit{Name: "fd", Value: hir.IntLit(v, types.I32)})
}

func pointLit(x, y int64) *hir.Expr {
	return hir.StructLit(pointT,
		hir.FieldInit{Name: "x", Value: hir.IntLit(x, types.I32)},
		hir.FieldInit{Name: "y", Value: hir.IntLit(y, types.I32)},
	)
}

func TestMainReturnsExitStatus(t *testing.T) {
	_, ir := generate(t, unit([]*hir.Func{mainFn()}), DefaultOptions())
	body := define(t, ir, "@main")
	if !strings.HasPrefix(body, "define i32 @main()") || !strings.Contains(body, "ret i32 0") {
		t.Fatalf("unexpected entry point:\n%s", body)
	}
}

func TestTypesPrecedeFunctions(t *testing.T) {
	_, ir := generate(t, unit([]*hir.Func{mainFn()}), DefaultOptions())
	lastType := strings.LastIndex(ir, " = type ")
	firstDef := strings.Index(ir, "define ")
	if lastType < 0 || firstDef < 0 || lastType > firstDef {
		t.Fatalf("type definitions must precede functions:\n%s", ir)
	}
}

func TestDeclaredDerivesAreSynthesized(t *testing.T) {
	_, ir := generate(t, unit([]*hir.Func{mainFn()}), DefaultOptions())
	for _, sym := range []string{"@em_Point_eq", "@em_Point_cmp", "@em_Point_hash"} {
		if !strings.Contains(ir, sym+"(") {
			t.Fatalf("missing %s:\n%s", sym, ir)
		}
	}
}

func TestAggregateComparisonUsesDerivedCmp(t *testing.T) {
	m := mainFn(
		hir.Let("p", pointT, pointLit(1, 2)),
		hir.Let("q", pointT, pointLit(1, 3)),
		hir.Let("lt", types.Bool, hir.Binary(hir.BinLt, hir.Var("p", pointT), hir.Var("q", pointT), types.Bool)),
		hir.Let("eq", types.Bool, hir.Binary(hir.BinEq, hir.Var("p", pointT), hir.Var("q", pointT), types.Bool)),
	)
	_, ir := generate(t, unit([]*hir.Func{m}), DefaultOptions())
	body := define(t, ir, "@main")
	if !strings.Contains(body, "call %struct.Ordering @em_Point_cmp(") {
		t.Fatalf("< should call cmp:\n%s", body)
	}
	if !strings.Contains(body, "call i1 @em_Point_eq(") {
		t.Fatalf("== should call eq:\n%s", body)
	}
	if strings.Count(ir, "define i1 @em_Point_eq(") != 1 {
		t.Fatalf("eq must be generated once:\n%s", ir)
	}
}

func TestGenericFunctionInstantiatedPerArgument(t *testing.T) {
	m := mainFn(
		hir.Let("a", types.I32, hir.Call("id", types.I32, hir.IntLit(1, types.I32))),
		hir.Let("b", types.I32, hir.Call("id", types.I32, hir.IntLit(2, types.I32))),
		hir.Let("c", types.Str, hir.Call("id", types.Str, hir.StrLit("x"))),
	)
	_, ir := generate(t, unit([]*hir.Func{m}), DefaultOptions())
	if strings.Count(ir, "define linkonce_odr i32 @em_id__I32(") != 1 {
		t.Fatalf("id[I32] must be defined once:\n%s", ir)
	}
	if strings.Count(ir, "define linkonce_odr ptr @em_id__Str(") != 1 {
		t.Fatalf("id[Str] must be defined once:\n%s", ir)
	}
}

func TestGenericStructsAreDistinct(t *testing.T) {
	pairIS := types.Named("Pair", types.I32, types.Str)
	pairII := types.Named("Pair", types.I32, types.I32)
	m := mainFn(
		hir.Let("a", pairIS, hir.StructLit(pairIS,
			hir.FieldInit{Name: "a", Value: hir.IntLit(1, types.I32)},
			hir.FieldInit{Name: "b", Value: hir.StrLit("s")})),
		hir.Let("b", pairII, hir.StructLit(pairII,
			hir.FieldInit{Name: "a", Value: hir.IntLit(1, types.I32)},
			hir.FieldInit{Name: "b", Value: hir.IntLit(2, types.I32)})),
	)
	_, ir := generate(t, unit([]*hir.Func{m}), DefaultOptions())
	if !strings.Contains(ir, "%struct.Pair__I32__Str = type { i32, ptr }") ||
		!strings.Contains(ir, "%struct.Pair__I32__I32 = type { i32, i32 }") {
		t.Fatalf("expected two specializations:\n%s", ir)
	}
}

func TestScopeExitDropsInReverseOrder(t *testing.T) {
	m := mainFn(
		hir.Let("a", resT, resLit(1)),
		hir.Let("b", resT, resLit(2)),
	)
	_, ir := generate(t, unit([]*hir.Func{m}), DefaultOptions())
	body := define(t, ir, "@main")
	if strings.Count(body, "call void @em_Res_drop(") != 2 {
		t.Fatalf("both values dropped:\n%s", body)
	}
	if !strings.Contains(ir, "define void @em_Res_drop(") {
		t.Fatalf("drop impl must be lowered:\n%s", ir)
	}
}

func TestMovedArgumentNotDropped(t *testing.T) {
	m := mainFn(
		hir.Let("a", resT, resLit(1)),
		hir.ExprStmt(hir.Call("consume", types.Unit, hir.Var("a", resT))),
	)
	_, ir := generate(t, unit([]*hir.Func{m}), DefaultOptions())
	if strings.Contains(define(t, ir, "@main"), "@em_Res_drop") {
		t.Fatalf("moved value must not be dropped by the caller:\n%s", ir)
	}
	if !strings.Contains(define(t, ir, "@em_consume"), "call void @em_Res_drop(") {
		t.Fatalf("callee owns its parameter:\n%s", ir)
	}
}

func TestConditionalMoveUsesFlag(t *testing.T) {
	m := mainFn(
		hir.Let("a", resT, resLit(1)),
		hir.ExprStmt(hir.If(hir.BoolLit(true),
			hir.Blk(nil, hir.ExprStmt(hir.Call("consume", types.Unit, hir.Var("a", resT)))),
			nil, types.Unit)),
	)
	_, ir := generate(t, unit([]*hir.Func{m}), DefaultOptions())
	body := define(t, ir, "@main")
	for _, want := range []string{"alloca i1", "store i1 false", "load i1", "call void @em_Res_drop("} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q:\n%s", want, body)
		}
	}
}

func TestMovedMatchBindingGuardsScrutineeDrop(t *testing.T) {
	slot := types.Named("Slot")
	m := mainFn(
		hir.Let("s", slot, hir.EnumLit(slot, "Full", resLit(1))),
		hir.ExprStmt(hir.Match(hir.Var("s", slot), types.Unit,
			hir.Arm(hir.VariantPattern("Full", hir.BindPattern("r")),
				hir.Call("consume", types.Unit, hir.Var("r", resT))),
			hir.Arm(hir.WildPattern(), hir.UnitLit()),
		)),
	)
	u := unit([]*hir.Func{m})
	u.Module.Enums = append(u.Module.Enums, &hir.EnumDecl{
		Name: "Slot",
		Variants: []hir.VariantDecl{
			{Name: "Full", Fields: []*types.Type{resT}},
			{Name: "Empty"},
		},
	})
	_, ir := generate(t, u, DefaultOptions())
	body := define(t, ir, "@main")
	if !strings.Contains(body, "call void @em_consume(") {
		t.Fatalf("binding not passed to consume:\n%s", body)
	}
	glue := strings.Index(body, "call void @em_Slot_drop_glue(")
	if glue < 0 || strings.Count(body, "call void @em_Slot_drop_glue(") != 1 {
		t.Fatalf("expected one scrutinee destructor:\n%s", body)
	}
	for _, want := range []string{"alloca i1", "store i1 false", "load i1"} {
		if !strings.Contains(body[:glue], want) {
			t.Fatalf("scrutinee destructor not guarded by a flag (missing %q):\n%s", want, body)
		}
	}
}

func TestUnmovedMatchBindingKeepsScrutineeDrop(t *testing.T) {
	slot := types.Named("Slot")
	m := mainFn(
		hir.Let("s", slot, hir.EnumLit(slot, "Full", resLit(1))),
		hir.ExprStmt(hir.Match(hir.Var("s", slot), types.Unit,
			hir.Arm(hir.VariantPattern("Full", hir.BindPattern("r")), hir.UnitLit()),
			hir.Arm(hir.WildPattern(), hir.UnitLit()),
		)),
	)
	u := unit([]*hir.Func{m})
	u.Module.Enums = append(u.Module.Enums, &hir.EnumDecl{
		Name:     "Slot",
		Variants: []hir.VariantDecl{{Name: "Full", Fields: []*types.Type{resT}}, {Name: "Empty"}},
	})
	_, ir := generate(t, u, DefaultOptions())
	body := define(t, ir, "@main")
	if strings.Contains(body, "alloca i1") {
		t.Fatalf("no move happened, no flag expected:\n%s", body)
	}
	if strings.Count(body, "call void @em_Slot_drop_glue(") != 1 {
		t.Fatalf("scrutinee must be dropped once:\n%s", body)
	}
}

func TestBreakDropsLoopLocals(t *testing.T) {
	m := mainFn(hir.Loop(hir.Blk(nil,
		hir.Let("r", resT, resLit(1)),
		hir.Break(),
	)))
	_, ir := generate(t, unit([]*hir.Func{m}), DefaultOptions())
	body := define(t, ir, "@main")
	if strings.Count(body, "call void @em_Res_drop(") != 1 {
		t.Fatalf("break must drop the loop local once:\n%s", body)
	}
}

func TestMatchOnEnum(t *testing.T) {
	shape := types.Named("Shape")
	m := mainFn(
		hir.Let("s", shape, hir.EnumLit(shape, "Circle", hir.IntLit(3, types.I64))),
		hir.Let("r", types.I64, hir.Match(hir.Var("s", shape), types.I64,
			hir.Arm(hir.VariantPattern("Circle", hir.BindPattern("r")), hir.Var("r", types.I64)),
			hir.Arm(hir.VariantPattern("Dot"), hir.IntLit(0, types.I64)),
		)),
		hir.ExprStmt(hir.Call("print", types.Unit, hir.Var("r", types.I64))),
	)
	_, ir := generate(t, unit([]*hir.Func{m}), DefaultOptions())
	body := define(t, ir, "@main")
	for _, want := range []string{"store i32 0", "icmp eq i32", "match.end", "call void @rt_print_i64("} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q:\n%s", want, body)
		}
	}
	if !strings.Contains(ir, "declare void @rt_print_i64(i64)") || strings.Contains(ir, "@rt_print_str") {
		t.Fatalf("only used runtime helpers are declared:\n%s", ir)
	}
}

func TestShortCircuitPhi(t *testing.T) {
	m := mainFn(hir.Let("b", types.Bool,
		hir.Binary(hir.BinAnd, hir.BoolLit(true), hir.BoolLit(false), types.Bool)))
	_, ir := generate(t, unit([]*hir.Func{m}), DefaultOptions())
	if !strings.Contains(define(t, ir, "@main"), "phi i1 [ false, %entry ]") {
		t.Fatalf("expected short-circuit phi:\n%s", ir)
	}
}

func TestContainerIndexAborts(t *testing.T) {
	m := mainFn(
		hir.Let("s", types.Str, hir.StrLit("abc")),
		hir.Let("c", types.U8, hir.Index(hir.Var("s", types.Str), hir.IntLit(0, types.I64), types.U8)),
	)
	res, err := NewSession(unit([]*hir.Func{m}), nil, DefaultOptions(), nil).Generate(context.Background())
	if !errors.Is(err, ErrUnitAborted) {
		t.Fatalf("expected abort, got %v", err)
	}
	if !res.Aborted || res.Diagnostics.Count(diag.CgUnsupported) == 0 {
		t.Fatalf("expected an unsupported diagnostic, got %v", res.Diagnostics.Items())
	}
}

func TestStrictModeRejectsUnresolvedGeneric(t *testing.T) {
	m := mainFn(hir.ExprStmt(hir.GenericCall("id", []*types.Type{types.Param("Q")}, types.Param("Q"), hir.IntLit(1, types.I64))))
	u := unit([]*hir.Func{m})

	if _, err := NewSession(u, nil, DefaultOptions(), nil).Generate(context.Background()); err != nil {
		t.Fatalf("placeholder mode keeps going: %v", err)
	}
	opts := DefaultOptions()
	opts.Strict = true
	res, err := NewSession(u, nil, opts, nil).Generate(context.Background())
	if !errors.Is(err, ErrUnitAborted) || res.Diagnostics.Count(diag.CgDeferredGeneric) == 0 {
		t.Fatalf("strict mode must fail, got %v %v", err, res.Diagnostics.Items())
	}
}

func TestDeterministicOutput(t *testing.T) {
	mk := func() *hir.Unit {
		return unit([]*hir.Func{mainFn(
			hir.Let("a", types.I32, hir.Call("id", types.I32, hir.IntLit(1, types.I32))),
			hir.Let("p", pointT, pointLit(1, 2)),
			hir.Let("h", types.I64, hir.MethodCall(hir.Var("p", pointT), "hash", types.I64)),
		)})
	}
	_, a := generate(t, mk(), DefaultOptions())
	_, b := generate(t, mk(), DefaultOptions())
	if a != b {
		t.Fatalf("output differs between runs")
	}
}

func TestUserMethodPreferredOverDerive(t *testing.T) {
	impl := &hir.ImplDecl{Target: pointT, Methods: []*hir.Func{{
		Name:   "hash",
		Params: []hir.Param{{Name: "this", Type: types.Pointer(pointT, false)}},
		Result: types.I64,
		Body:   hir.Blk(hir.IntLit(7, types.I64)),
	}}}
	m := mainFn(
		hir.Let("p", pointT, pointLit(1, 2)),
		hir.Let("h", types.I64, hir.MethodCall(hir.Var("p", pointT), "hash", types.I64)),
	)
	_, ir := generate(t, unit([]*hir.Func{m}, impl), DefaultOptions())
	if strings.Count(ir, "define i64 @em_Point_hash(") != 1 {
		t.Fatalf("user hash must replace the derived one:\n%s", ir)
	}
	if !strings.Contains(define(t, ir, "@em_Point_hash"), "ret i64 7") {
		t.Fatalf("expected the user body:\n%s", ir)
	}
}

func TestSummaryListsInstantiations(t *testing.T) {
	m := mainFn(hir.Let("a", types.I32, hir.Call("id", types.I32, hir.IntLit(1, types.I32))))
	res, _ := generate(t, unit([]*hir.Func{m}), DefaultOptions())
	if res.Summary == nil || res.Summary.Unit != "demo" {
		t.Fatalf("missing summary: %+v", res.Summary)
	}
	found := false
	for _, f := range res.Summary.Funcs {
		if f == "id__I32" {
			found = true
		}
	}
	if !found {
		t.Fatalf("summary should list id__I32: %+v", res.Summary.Funcs)
	}
}

func TestPrintAggregateUsesDerivedDisplay(t *testing.T) {
	m := mainFn(
		hir.Let("p", pointT, pointLit(1, 2)),
		hir.ExprStmt(hir.Call("print", types.Unit, hir.Var("p", pointT))),
	)
	_, ir := generate(t, unit([]*hir.Func{m}), DefaultOptions())
	body := define(t, ir, "@main")
	call := strings.Index(body, "call ptr @em_Point_to_string(")
	printed := strings.Index(body, "call void @rt_print_str(")
	if call < 0 || printed < call {
		t.Fatalf("print must render through to_string:\n%s", body)
	}
	if strings.Count(ir, "define ptr @em_Point_to_string(") != 1 {
		t.Fatalf("to_string must be generated once:\n%s", ir)
	}
}

func TestDebugStringMethodCall(t *testing.T) {
	m := mainFn(
		hir.Let("p", pointT, pointLit(1, 2)),
		hir.Let("s", types.Str, hir.MethodCall(hir.Var("p", pointT), "debug_string", types.Str)),
	)
	_, ir := generate(t, unit([]*hir.Func{m}), DefaultOptions())
	if !strings.Contains(define(t, ir, "@main"), "call ptr @em_Point_debug_string(ptr ") {
		t.Fatalf("missing debug_string call:\n%s", ir)
	}
	if !strings.Contains(define(t, ir, "@em_Point_debug_string"), "call ptr @rt_i64_to_str(") {
		t.Fatalf("fields must render through the runtime:\n%s", ir)
	}
}
