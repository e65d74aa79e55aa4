package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ember/internal/diag"
	"ember/internal/hir"
	"ember/internal/observ"
	"ember/internal/project"
	"ember/internal/testkit"
	"ember/internal/types"
)

func pointUnit(name string, fieldType *types.Type) *hir.Unit {
	pt := types.Named("Point")
	return &hir.Unit{Name: name, Module: &hir.Module{
		Name: name,
		Structs: []*hir.StructDecl{{
			Name:    "Point",
			Fields:  []hir.FieldDecl{{Name: "x", Type: fieldType}, {Name: "y", Type: fieldType}},
			Derives: []hir.Trait{hir.TraitPartialEq},
		}},
		Funcs: []*hir.Func{{
			Name:   "origin",
			Result: pt,
			Body: hir.Blk(hir.StructLit(pt,
				hir.FieldInit{Name: "x", Value: hir.IntLit(0, fieldType)},
				hir.FieldInit{Name: "y", Value: hir.IntLit(0, fieldType)})),
		}},
	}}
}

func brokenUnit(name string) *hir.Unit {
	return &hir.Unit{Name: name, Module: &hir.Module{
		Name: name,
		Funcs: []*hir.Func{{
			Name:   "f",
			Result: types.Unit,
			Body:   hir.Blk(nil, hir.ExprStmt(hir.Call("missing", types.Unit))),
		}},
	}}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count(status Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Status == status {
			n++
		}
	}
	return n
}

func TestBuildParallelUnits(t *testing.T) {
	cfg := project.Default()
	cfg.Build.Jobs = 2
	out := t.TempDir()
	rec := &recorder{}
	timer := observ.NewTimer()
	report, err := Build(context.Background(), Request{
		Inputs:   []Input{{Unit: pointUnit("a", types.I32)}, {Unit: pointUnit("b", types.I32)}, {Unit: pointUnit("c", types.I32)}},
		Config:   cfg,
		OutDir:   out,
		Progress: rec,
		Timer:    timer,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if report.Failed() != 0 {
		t.Fatalf("unexpected failures: %+v", report.Merge.Items())
	}
	if got := timer.Report(); len(got.Units) != 3 || len(got.Phases) != 2 {
		t.Fatalf("timer missed work: %+v", got)
	}
	for i, name := range []string{"a", "b", "c"} {
		u := report.Units[i]
		if u.Name != name || !strings.Contains(u.IR, "@em_origin(") {
			t.Fatalf("unit %d = %s:\n%s", i, u.Name, u.IR)
		}
		if err := testkit.CheckIR(u.IR); err != nil {
			t.Fatalf("unit %s: %v", name, err)
		}
		data, err := os.ReadFile(filepath.Join(out, name+".ll"))
		if err != nil || string(data) != u.IR {
			t.Fatalf("output for %s not written: %v", name, err)
		}
	}
	if report.Merged.Shared == 0 {
		t.Fatalf("identical Point layouts should be counted as shared")
	}
	if rec.count(StatusDone) < 3 {
		t.Fatalf("expected done events, got %+v", rec.events)
	}
}

func TestBuildReportsLayoutConflicts(t *testing.T) {
	report, err := Build(context.Background(), Request{
		Inputs: []Input{{Unit: pointUnit("a", types.I32)}, {Unit: pointUnit("b", types.I64)}},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if report.Merge.Count(diag.CgLayoutConflict) != 1 {
		t.Fatalf("expected one conflict, got %v", report.Merge.Items())
	}
	if report.Failed() == 0 {
		t.Fatalf("conflict must fail the build")
	}
}

func TestAbortedUnitDoesNotStopOthers(t *testing.T) {
	report, err := Build(context.Background(), Request{
		Inputs: []Input{{Unit: brokenUnit("bad")}, {Unit: pointUnit("good", types.I32)}},
	})
	if err != nil {
		t.Fatalf("aborted units are not build errors: %v", err)
	}
	if !report.Units[0].Aborted || report.Units[0].Diagnostics.Count(diag.CgUnknownSymbol) != 1 {
		t.Fatalf("bad unit: %+v", report.Units[0])
	}
	if report.Units[1].Aborted || report.Units[1].IR == "" {
		t.Fatalf("good unit must still be generated")
	}
	if report.Failed() != 1 {
		t.Fatalf("failed = %d", report.Failed())
	}
}

func TestCacheHitSkipsGeneration(t *testing.T) {
	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	req := Request{Inputs: []Input{{Unit: pointUnit("a", types.I32)}}, Cache: cache}
	first, err := Build(context.Background(), req)
	if err != nil || first.Units[0].Cached {
		t.Fatalf("first build: %v cached=%v", err, first.Units[0].Cached)
	}
	second, err := Build(context.Background(), req)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if !second.Units[0].Cached || second.Units[0].IR != first.Units[0].IR {
		t.Fatalf("expected identical cached output")
	}
	if second.Units[0].Summary == nil || second.Units[0].Summary.Unit != "a" {
		t.Fatalf("summary must survive the cache")
	}

	cfg := project.Default()
	cfg.Codegen.SymbolPrefix = "zz_"
	req.Config = cfg
	third, err := Build(context.Background(), req)
	if err != nil || third.Units[0].Cached {
		t.Fatalf("changed options must miss the cache")
	}
	if !strings.Contains(third.Units[0].IR, "@zz_origin(") {
		t.Fatalf("prefix not applied:\n%s", third.Units[0].IR)
	}
}

func TestCacheDropAll(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "c"))
	if err != nil {
		t.Fatal(err)
	}
	key := project.Sum([]byte("k"))
	if err := cache.Put(key, &CachePayload{Unit: "u", IR: "ir"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, _ := cache.Get(key); !ok {
		t.Fatalf("expected hit")
	}
	if err := cache.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, ok, _ := cache.Get(key); ok {
		t.Fatalf("expected miss after DropAll")
	}
}

func TestUnitFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := WriteUnit(filepath.Join(dir, "sub", "a"+UnitExt), pointUnit("a", types.I32)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteUnit(filepath.Join(dir, "b"+UnitExt), pointUnit("", types.I32)); err != nil {
		t.Fatalf("write: %v", err)
	}
	inputs, err := ExpandInputs([]string{dir})
	if err != nil || len(inputs) != 2 {
		t.Fatalf("expand: %v %v", inputs, err)
	}
	report, err := Build(context.Background(), Request{Inputs: inputs})
	if err != nil || report.Failed() != 0 {
		t.Fatalf("build from files: %v", err)
	}
	if report.Units[0].Name != "b" || report.Units[1].Name != "a" {
		t.Fatalf("names = %s, %s", report.Units[0].Name, report.Units[1].Name)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, Request{Inputs: []Input{{Unit: pointUnit("a", types.I32)}}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := project.Default()
	cfg.Codegen.Generics = project.GenericsStrict
	cfg.Codegen.PartialDrops = false
	cfg.Build.MaxDiagnostics = 7
	opts := Options(cfg)
	if !opts.Strict || opts.PartialDrops || opts.MaxDiagnostics != 7 || opts.Prefix != "em_" {
		t.Fatalf("options = %+v", opts)
	}
}
