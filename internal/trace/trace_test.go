package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	if LevelPhase.ShouldEmit(ScopeUnit) {
		t.Fatalf("phase level must drop unit events")
	}
	if !LevelDetail.ShouldEmit(ScopeUnit) || LevelDetail.ShouldEmit(ScopeNode) {
		t.Fatalf("detail level must keep unit and drop node events")
	}
	if !LevelDebug.ShouldEmit(ScopeNode) {
		t.Fatalf("debug keeps everything")
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if lvl, err := ParseLevel("DETAIL"); err != nil || lvl != LevelDetail {
		t.Fatalf("ParseLevel(DETAIL) = %v, %v", lvl, err)
	}
}

func TestStreamSpanNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	sp := Begin(tr, ScopeUnit, "unit:main", 0)
	Point(tr, ScopeNode, "instantiate", "Pair__I32__Str")
	sp.WithExtra("records", "3").End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 events, got %d:\n%s", len(lines), buf.String())
	}
	var last jsonEvent
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if last.Kind != "end" || last.Extra["records"] != "3" || last.Detail != "ok" {
		t.Fatalf("unexpected end event: %+v", last)
	}
}

func TestRingWraps(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopeNode, name, "")
	}
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestContextDefaultsToNop(t *testing.T) {
	if FromContext(context.Background()).Enabled() {
		t.Fatalf("empty context must yield a disabled tracer")
	}
	r := NewRingTracer(4, LevelPhase)
	ctx := WithTracer(context.Background(), r)
	if FromContext(ctx) != Tracer(r) {
		t.Fatalf("tracer not propagated")
	}
}

func TestParentPropagation(t *testing.T) {
	if ParentFrom(context.Background()) != 0 {
		t.Fatalf("root context must have no parent")
	}
	r := NewRingTracer(8, LevelDebug)
	outer := Begin(r, ScopePass, "unit a", 0)
	ctx := WithParent(context.Background(), outer)
	inner := Begin(r, ScopeUnit, "a", ParentFrom(ctx))
	inner.End("")
	outer.End("")

	snap := r.Snapshot()
	if len(snap) != 4 || snap[1].ParentID != outer.ID() {
		t.Fatalf("inner span not nested: %+v", snap)
	}

	inert := Begin(Nop, ScopePass, "x", 0)
	if WithParent(ctx, inert) != ctx {
		t.Fatalf("inert span must not replace the parent")
	}
}

func TestMultiTracerSkipsDisabled(t *testing.T) {
	live := NewRingTracer(4, LevelPhase)
	m := NewMultiTracer(LevelPhase, nil, NewRingTracer(4, LevelOff), live)
	Point(m, ScopeDriver, "start", "")
	if len(live.Snapshot()) != 1 {
		t.Fatalf("event not forwarded")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if NewMultiTracer(LevelPhase, nil).Enabled() {
		t.Fatalf("tracer with no children must be disabled")
	}
}
