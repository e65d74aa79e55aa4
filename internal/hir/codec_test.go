package hir

import (
	"bytes"
	"testing"

	"ember/internal/types"
)

func sampleUnit() *Unit {
	point := types.Named("Point")
	shape := types.Named("Shape")
	body := Blk(
		Match(Var("s", shape), types.I32,
			Arm(VariantPattern("Circle", BindPattern("r")), Var("r", types.I32)),
			Arm(OrPattern(IntPattern(1), RangePattern(5, 9, true)), IntLit(0, types.I32)),
			Arm(WildPattern(), IntLit(-1, types.I32)),
		),
		Let("p", point, StructLit(point,
			FieldInit{Name: "x", Value: IntLit(1, types.I32)},
			FieldInit{Name: "y", Value: IntLit(2, types.I32)})),
		While(BoolLit(false), Blk(nil, Break())),
	)
	return &Unit{
		Name: "main",
		Module: &Module{
			Name: "main",
			Structs: []*StructDecl{{
				Name:    "Point",
				Fields:  []FieldDecl{{Name: "x", Type: types.I32}, {Name: "y", Type: types.I32}},
				Derives: []Trait{TraitOrd, TraitHash},
			}},
			Enums: []*EnumDecl{{
				Name:     "Shape",
				Variants: []VariantDecl{{Name: "Circle", Fields: []*types.Type{types.I32}}, {Name: "Empty"}},
			}},
			Funcs: []*Func{{
				Name:   "area",
				Params: []Param{{Name: "s", Type: shape}},
				Result: types.I32,
				Body:   body,
			}},
		},
	}
}

func TestUnitRoundTrip(t *testing.T) {
	data, err := MarshalUnit(sampleUnit())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := DecodeUnit(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	fn := got.Module.Funcs[0]
	if fn.Params[0].Type.String() != "Shape" {
		t.Fatalf("param type lost: %s", fn.Params[0].Type)
	}
	m, ok := fn.Body.Tail.Data.(*MatchData)
	if !ok {
		t.Fatalf("tail decoded as %T", fn.Body.Tail.Data)
	}
	if len(m.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(m.Arms))
	}
	or, ok := m.Arms[1].Pattern.Data.(*OrPat)
	if !ok || len(or.Alts) != 2 {
		t.Fatalf("or-pattern lost: %#v", m.Arms[1].Pattern.Data)
	}
	if r, ok := or.Alts[1].Data.(*RangePat); !ok || !r.Inclusive || r.Hi.IntValue != 9 {
		t.Fatalf("range pattern lost: %#v", or.Alts[1].Data)
	}
	let, ok := fn.Body.Stmts[0].Data.(*LetData)
	if !ok || let.Value.Kind != ExprStructLit {
		t.Fatalf("let statement lost: %#v", fn.Body.Stmts[0].Data)
	}
	w := fn.Body.Stmts[1].Data.(*WhileData)
	if w.Body.Tail != nil || w.Body.Stmts[0].Kind != StmtBreak {
		t.Fatalf("while body lost")
	}
	if !got.Module.Structs[0].HasDerive(TraitHash) {
		t.Fatalf("derives lost")
	}
}

func TestDecodeRejectsSchema(t *testing.T) {
	if _, err := DecodeUnit(bytes.NewReader([]byte{0xcd, 0x00, 0x63})); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestPatternHelpers(t *testing.T) {
	p := OrPattern(VariantPattern("A", BindPattern("x")), WildPattern())
	if !p.Irrefutable() {
		t.Fatalf("or with wildcard alternative is irrefutable")
	}
	if TuplePattern(BindPattern("a"), IntPattern(1)).Irrefutable() {
		t.Fatalf("tuple with literal is refutable")
	}
	names := TuplePattern(BindPattern("a"), StructPattern(FieldPat{Name: "f", Pattern: BindPattern("b")})).Bindings()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("Bindings = %v", names)
	}
}

func TestParseTrait(t *testing.T) {
	for _, tr := range AllTraits() {
		got, ok := ParseTrait(tr.String())
		if !ok || got != tr {
			t.Errorf("ParseTrait(%q) = %v, %v", tr, got, ok)
		}
		back, ok := TraitForMethod(tr.Method())
		if !ok || back != tr {
			t.Errorf("TraitForMethod(%q) = %v", tr.Method(), back)
		}
	}
	if _, ok := ParseTrait("Serialize"); ok {
		t.Fatalf("unknown trait accepted")
	}
}
