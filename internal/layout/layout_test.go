package layout

import (
	"errors"
	"testing"

	"ember/internal/types"
)

func TestStructLayoutPadding(t *testing.T) {
	tbl := NewTable(X86_64LinuxGNU())
	l := &TypeLayout{
		Name:   "Mixed",
		LLType: "%struct.Mixed",
		Kind:   KindStruct,
		Fields: []Field{
			{Name: "a", Index: 0, LLType: "i8", Sem: types.I8},
			{Name: "b", Index: 1, LLType: "i64", Sem: types.I64},
			{Name: "c", Index: 2, LLType: "i16", Sem: types.I16},
		},
	}
	if err := tbl.Put(l); err != nil {
		t.Fatalf("put: %v", err)
	}
	if l.Size != 24 || l.Align != 8 {
		t.Fatalf("size/align = %d/%d, want 24/8", l.Size, l.Align)
	}
	if l.Fields[1].Offset != 8 || l.Fields[2].Offset != 16 {
		t.Fatalf("offsets = %d,%d", l.Fields[1].Offset, l.Fields[2].Offset)
	}
	if got := l.Body(); got != "{ i8, i64, i16 }" {
		t.Fatalf("body = %q", got)
	}
}

func TestEnumLayoutPayloadWords(t *testing.T) {
	tbl := NewTable(X86_64LinuxGNU())
	l := &TypeLayout{
		Name:   "Shape",
		LLType: "%struct.Shape",
		Kind:   KindEnum,
		Variants: []Variant{
			{Name: "Dot", Tag: 0},
			{Name: "Rect", Tag: 1, Fields: []Field{
				{Name: "0", LLType: "i32"}, {Name: "1", LLType: "i64"}, {Name: "2", LLType: "i8"},
			}},
		},
	}
	if err := tbl.Put(l); err != nil {
		t.Fatalf("put: %v", err)
	}
	if l.PayloadWords != 3 {
		t.Fatalf("payload words = %d, want 3", l.PayloadWords)
	}
	if got := l.Body(); got != "{ i32, [3 x i64] }" {
		t.Fatalf("body = %q", got)
	}
	if tag, ok := tbl.Tag("Shape", "Rect"); !ok || tag != 1 {
		t.Fatalf("tag = %d,%v", tag, ok)
	}
	v, _ := l.Variant("Rect")
	if v.PayloadType != "{ i32, i64, i8 }" {
		t.Fatalf("payload type = %q", v.PayloadType)
	}
}

func TestUnitOnlyEnum(t *testing.T) {
	tbl := NewTable(X86_64LinuxGNU())
	l := &TypeLayout{Name: "Color", LLType: "%struct.Color", Kind: KindEnum,
		Variants: []Variant{{Name: "Red", Tag: 0}, {Name: "Green", Tag: 1}}}
	if err := tbl.Put(l); err != nil {
		t.Fatalf("put: %v", err)
	}
	if l.Body() != "{ i32 }" || l.Size != 4 {
		t.Fatalf("body=%q size=%d", l.Body(), l.Size)
	}
}

func TestNestedNamedField(t *testing.T) {
	tbl := NewTable(X86_64LinuxGNU())
	inner := &TypeLayout{Name: "Inner", LLType: "%struct.Inner", Kind: KindStruct,
		Fields: []Field{{Name: "x", LLType: "i32"}, {Name: "y", LLType: "i32"}}}
	outer := &TypeLayout{Name: "Outer", LLType: "%struct.Outer", Kind: KindStruct,
		Fields: []Field{{Name: "flag", LLType: "i1"}, {Name: "in", Index: 1, LLType: "%struct.Inner"}, {Name: "arr", Index: 2, LLType: "[3 x i16]"}}}
	if err := tbl.Put(inner); err != nil {
		t.Fatalf("inner: %v", err)
	}
	if err := tbl.Put(outer); err != nil {
		t.Fatalf("outer: %v", err)
	}
	if outer.Fields[1].Offset != 4 || outer.Fields[2].Offset != 12 || outer.Size != 20 {
		t.Fatalf("unexpected layout %+v size=%d", outer.Fields, outer.Size)
	}
}

func TestUnknownFieldType(t *testing.T) {
	tbl := NewTable(X86_64LinuxGNU())
	l := &TypeLayout{Name: "Bad", LLType: "%struct.Bad", Kind: KindStruct,
		Fields: []Field{{Name: "x", LLType: "%struct.Missing"}}}
	err := tbl.Put(l)
	var lerr *LayoutError
	if !errors.As(err, &lerr) || lerr.Kind != LayoutErrUnknownType {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestConflictDetected(t *testing.T) {
	tbl := NewTable(X86_64LinuxGNU())
	a := &TypeLayout{Name: "A", LLType: "%struct.A", Kind: KindStruct, Fields: []Field{{Name: "x", LLType: "i32"}}}
	b := &TypeLayout{Name: "A", LLType: "%struct.A", Kind: KindStruct, Fields: []Field{{Name: "x", LLType: "i64"}}}
	same := &TypeLayout{Name: "A", LLType: "%struct.A", Kind: KindStruct, Fields: []Field{{Name: "x", LLType: "i32"}}}
	if err := tbl.Put(a); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := tbl.Put(same); err != nil {
		t.Fatalf("identical re-put: %v", err)
	}
	var lerr *LayoutError
	if err := tbl.Put(b); !errors.As(err, &lerr) || lerr.Kind != LayoutErrConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestOpaqueAndTarget(t *testing.T) {
	tbl := NewTable(TargetFor("i686-pc-linux-gnu"))
	l := &TypeLayout{Name: "List", LLType: "%struct.List", Kind: KindOpaque}
	if err := tbl.Put(l); err != nil {
		t.Fatalf("put: %v", err)
	}
	if l.Size != 4 || l.Body() != "{ ptr }" {
		t.Fatalf("size=%d body=%q", l.Size, l.Body())
	}
}
