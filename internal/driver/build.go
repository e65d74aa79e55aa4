// Package driver runs code generation for a set of units: decoding,
// caching, parallel sessions and the final cross-unit merge.
package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"ember/internal/codegen"
	"ember/internal/diag"
	"ember/internal/hir"
	"ember/internal/mono"
	"ember/internal/observ"
	"ember/internal/project"
	"ember/internal/source"
	"ember/internal/trace"
)

// Input is one unit to build: a file to decode, or an already built tree.
type Input struct {
	Path string
	Unit *hir.Unit
}

// Request describes one build.
type Request struct {
	Inputs []Input
	Config *project.Config
	// OutDir receives <unit>.ll for every successful unit when set.
	OutDir   string
	Cache    *Cache
	Progress ProgressSink
	Timer    *observ.Timer
}

// UnitResult is the outcome for one input.
type UnitResult struct {
	Name        string
	Path        string
	IR          string
	OutPath     string
	Files       *source.Table
	Diagnostics *diag.Bag
	Summary     *mono.Summary
	Cached      bool
	Aborted     bool
	Elapsed     time.Duration
}

// Report is the outcome of a build. Units are in input order.
type Report struct {
	Units []UnitResult
	// Merge holds diagnostics produced while merging unit summaries.
	Merge  *diag.Bag
	Merged *mono.Merged
}

// Failed counts aborted units plus merge errors.
func (r *Report) Failed() int {
	n := 0
	for _, u := range r.Units {
		if u.Aborted {
			n++
		}
	}
	if r.Merge != nil && r.Merge.HasErrors() {
		n++
	}
	return n
}

// Options maps project settings to session options.
func Options(cfg *project.Config) codegen.Options {
	opts := codegen.DefaultOptions()
	if cfg == nil {
		return opts
	}
	opts.Prefix = cfg.Codegen.SymbolPrefix
	opts.Triple = cfg.Target.Triple
	opts.Strict = cfg.Strict()
	opts.EnumPayloads = cfg.Codegen.EnumPayloads
	opts.PartialDrops = cfg.Codegen.PartialDrops
	if cfg.Build.MaxDiagnostics > 0 {
		opts.MaxDiagnostics = cfg.Build.MaxDiagnostics
	}
	return opts
}

// Build generates every input with its own session, in parallel up to
// [build].jobs. A unit that aborts does not stop the others; the returned
// error is reserved for cancellation and I/O failures.
func Build(ctx context.Context, req Request) (*Report, error) {
	cfg := req.Config
	if cfg == nil {
		cfg = project.Default()
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "build", 0)
	defer span.End("")

	report := &Report{Units: make([]UnitResult, len(req.Inputs))}
	if len(req.Inputs) == 0 {
		report.Merge = diag.NewBag(1)
		report.Merged = mono.NewMerged()
		return report, nil
	}
	for _, in := range req.Inputs {
		emit(req.Progress, inputName(in), StageDecode, StatusQueued, nil, 0)
	}

	jobs := cfg.Build.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	phase := req.Timer.Begin("generate")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(req.Inputs)))
	for i, in := range req.Inputs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res, err := buildOne(gctx, req, cfg, in, span.ID())
			report.Units[i] = res
			return err
		})
	}
	err := g.Wait()
	req.Timer.End(phase, fmt.Sprintf("%d units", len(req.Inputs)))
	for _, u := range report.Units {
		if u.Name != "" {
			req.Timer.Unit(u.Name, u.Elapsed, u.Cached)
		}
	}
	if err != nil {
		return report, err
	}

	phase = req.Timer.Begin("merge")
	emit(req.Progress, "", StageMerge, StatusWorking, nil, 0)
	report.Merged, report.Merge = mergeSummaries(report.Units, Options(cfg).MaxDiagnostics)
	req.Timer.End(phase, "")
	status := StatusDone
	if report.Failed() > 0 {
		status = StatusError
	}
	emit(req.Progress, "", StageMerge, status, nil, 0)
	return report, nil
}

func inputName(in Input) string {
	if in.Path != "" {
		return in.Path
	}
	if in.Unit != nil {
		return in.Unit.Name
	}
	return "<unit>"
}

func buildOne(ctx context.Context, req Request, cfg *project.Config, in Input, parent uint64) (UnitResult, error) {
	start := time.Now()
	name := inputName(in)
	res := UnitResult{Name: name, Path: in.Path}
	fail := func(stage Stage, err error) (UnitResult, error) {
		emit(req.Progress, name, stage, StatusError, err, time.Since(start))
		return res, err
	}

	emit(req.Progress, name, StageDecode, StatusWorking, nil, 0)
	u := in.Unit
	if u == nil {
		var err error
		if u, err = LoadUnit(in.Path); err != nil {
			return fail(StageDecode, err)
		}
	}
	res.Name = u.Name
	res.Files = source.NewTable(u.Files)

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "unit "+u.Name, parent)
	defer span.End("")

	data, err := hir.MarshalUnit(u)
	if err != nil {
		return fail(StageDecode, err)
	}
	key := Key(project.Sum(data), cfg)

	if req.Cache != nil {
		emit(req.Progress, name, StageCache, StatusWorking, nil, 0)
		payload, ok, err := req.Cache.Get(key)
		if err != nil {
			trace.Point(tracer, trace.ScopePass, "cache", fmt.Sprintf("%s: %v", u.Name, err))
		}
		if ok {
			res.IR = payload.IR
			res.Summary = payload.Summary
			res.Diagnostics = restoreBag(payload.Diagnostics, Options(cfg).MaxDiagnostics)
			res.Cached = true
			if err := writeOutput(req.OutDir, &res); err != nil {
				return fail(StageWrite, err)
			}
			res.Elapsed = time.Since(start)
			emit(req.Progress, name, StageCache, StatusCached, nil, res.Elapsed)
			return res, nil
		}
	}

	emit(req.Progress, name, StageGenerate, StatusWorking, nil, 0)
	out, err := codegen.NewSession(u, nil, Options(cfg), tracer).Generate(trace.WithParent(ctx, span))
	if out != nil {
		res.Diagnostics = out.Diagnostics
		res.Summary = out.Summary
		res.IR = out.IR
	}
	if err != nil {
		if errors.Is(err, codegen.ErrUnitAborted) {
			res.Aborted = true
			res.Elapsed = time.Since(start)
			emit(req.Progress, name, StageGenerate, StatusError, err, res.Elapsed)
			return res, nil
		}
		return fail(StageGenerate, err)
	}

	if req.Cache != nil {
		err := req.Cache.Put(key, &CachePayload{
			Unit:        u.Name,
			IR:          res.IR,
			Summary:     res.Summary,
			Diagnostics: res.Diagnostics.Items(),
		})
		if err != nil {
			trace.Point(tracer, trace.ScopePass, "cache", fmt.Sprintf("%s: %v", u.Name, err))
		}
	}
	emit(req.Progress, name, StageWrite, StatusWorking, nil, 0)
	if err := writeOutput(req.OutDir, &res); err != nil {
		return fail(StageWrite, err)
	}
	res.Elapsed = time.Since(start)
	emit(req.Progress, name, StageWrite, StatusDone, nil, res.Elapsed)
	return res, nil
}

func writeOutput(dir string, res *UnitResult) error {
	if dir == "" {
		return nil
	}
	res.OutPath = filepath.Join(dir, res.Name+".ll")
	return writeAtomic(res.OutPath, []byte(res.IR))
}

func restoreBag(items []diag.Diagnostic, limit int) *diag.Bag {
	bag := diag.NewBag(limit)
	for _, d := range items {
		bag.Add(d)
	}
	return bag
}

// mergeSummaries folds unit summaries in name order and reports layout
// conflicts between units.
func mergeSummaries(units []UnitResult, limit int) (*mono.Merged, *diag.Bag) {
	ordered := make([]*mono.Summary, 0, len(units))
	for _, u := range units {
		if u.Summary != nil && !u.Aborted {
			ordered = append(ordered, u.Summary)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Unit < ordered[j].Unit })

	merged := mono.NewMerged()
	for _, s := range ordered {
		merged.Merge(s)
	}
	bag := diag.NewBag(limit)
	for _, c := range merged.Conflicts {
		bag.Add(diag.NewError(diag.CgLayoutConflict, source.Span{}, c.Error()))
	}
	return merged, bag
}
