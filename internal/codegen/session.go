// Package codegen lowers a checked unit to LLVM IR text.
//
// A Session owns every piece of per-unit state: the instantiation
// registry, the derive memo, the drop stack and the emitted module.
// Sessions are single-threaded; the driver runs one per unit.
package codegen

import (
	"context"
	"errors"
	"fmt"

	"ember/internal/derive"
	"ember/internal/diag"
	"ember/internal/drop"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/layout"
	"ember/internal/mono"
	"ember/internal/pattern"
	"ember/internal/source"
	"ember/internal/trace"
	"ember/internal/typeenv"
	"ember/internal/types"
)

// ErrUnitAborted is returned when a unit hit a hard error. The partial
// diagnostics are still available on the Result.
var ErrUnitAborted = errors.New("unit aborted")

// Options configure one session.
type Options struct {
	Prefix string
	Triple string
	// Strict turns generic requests that never became concrete into errors.
	Strict         bool
	EnumPayloads   bool
	PartialDrops   bool
	MaxDiagnostics int
}

func DefaultOptions() Options {
	return Options{
		Prefix:         "em_",
		Triple:         emit.DefaultTriple,
		EnumPayloads:   true,
		PartialDrops:   true,
		MaxDiagnostics: 200,
	}
}

// Result is the outcome of generating one unit.
type Result struct {
	Unit        string
	IR          string
	Diagnostics *diag.Bag
	Summary     *mono.Summary
	Aborted     bool
}

type Session struct {
	unit   *hir.Unit
	opts   Options
	tracer trace.Tracer
	unitID uint64

	env   typeenv.Env
	mod   *emit.Module
	bag   *diag.Bag
	rep   *diag.DedupReporter
	reg   *mono.Registry
	synth *derive.Synthesizer
	drops *drop.Manager
	pats  *pattern.Compiler

	// per function
	f      *emit.Func
	inst   *mono.FuncInstance
	retSem *types.Type
	isMain bool
	frames []*frame
	loops  []loopTarget
	temps  int
}

// NewSession prepares a session for unit. env may be nil, in which case
// the unit is indexed together with the prelude.
func NewSession(unit *hir.Unit, env typeenv.Env, opts Options, tracer trace.Tracer) *Session {
	if env == nil {
		env = typeenv.NewTable(unit)
	}
	if tracer == nil {
		tracer = trace.Nop
	}
	if opts.Prefix == "" {
		opts.Prefix = "em_"
	}
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 200
	}
	name := "unit"
	if unit != nil && unit.Name != "" {
		name = unit.Name
	}
	bag := diag.NewBag(opts.MaxDiagnostics)
	rep := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	mod := emit.NewModule(name, opts.Triple, opts.Prefix)
	mode := mono.ModePlaceholder
	if opts.Strict {
		mode = mono.ModeStrict
	}
	reg := mono.New(env, mod, layout.NewTable(layout.TargetFor(opts.Triple)), rep, mode)
	s := &Session{
		unit:   unit,
		opts:   opts,
		tracer: tracer,
		env:    env,
		mod:    mod,
		bag:    bag,
		rep:    rep,
		reg:    reg,
		synth:  derive.New(reg, derive.Options{EnumPayloads: opts.EnumPayloads}),
		drops:  drop.New(reg, drop.Options{PartialDrops: opts.PartialDrops}),
	}
	s.pats = pattern.New(s)
	return s
}

// Registry exposes the instantiation registry, mostly for inspection.
func (s *Session) Registry() *mono.Registry { return s.reg }

// Generate lowers every non-generic function and impl of the unit, then
// drains the instantiation worklist. The context is consulted once before
// work starts; a session is never interrupted halfway.
func (s *Session) Generate(ctx context.Context) (*Result, error) {
	res := &Result{Unit: s.mod.Name(), Diagnostics: s.bag}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	span := trace.Begin(s.tracer, trace.ScopeUnit, s.mod.Name(), trace.ParentFrom(ctx))
	s.unitID = span.ID()

	if s.unit != nil && s.unit.Module != nil {
		s.seed(s.unit.Module)
	}
	s.drain()
	s.reg.Finish()

	res.Summary = s.reg.Summary(s.mod.Name())
	if s.bag.HasErrors() {
		res.Aborted = true
		span.End("aborted")
		return res, fmt.Errorf("%s: %w", s.mod.Name(), ErrUnitAborted)
	}
	res.IR = s.mod.String()
	span.WithExtra("types", fmt.Sprint(len(s.reg.Records()))).
		WithExtra("repeats", fmt.Sprint(s.rep.Suppressed())).
		End("")
	return res, nil
}

// seed defines every concrete declaration and queues every concrete body.
func (s *Session) seed(m *hir.Module) {
	for _, d := range m.Structs {
		if len(d.TypeParams) == 0 {
			s.reg.Require(d.Name, nil, d.Span)
		}
	}
	for _, d := range m.Enums {
		if len(d.TypeParams) == 0 {
			s.reg.Require(d.Name, nil, d.Span)
		}
	}
	for _, fn := range m.Funcs {
		if fn.IsGeneric() || fn.Body == nil {
			continue
		}
		s.reg.Queue(&mono.FuncInstance{Name: mono.Mangle(fn.Name, nil), Decl: fn})
	}
	for _, impl := range m.Impls {
		if len(impl.TypeParams) > 0 || impl.Target == nil || impl.Target.ContainsParam() {
			continue
		}
		for _, fn := range impl.Methods {
			if fn.IsGeneric() || fn.Body == nil {
				continue
			}
			s.reg.RequireMethod(impl.Target, fn.Name, fn.Span)
		}
	}
}

// drain alternates between lowering queued bodies and deriving methods
// for types defined along the way, until both are exhausted.
func (s *Session) drain() {
	for {
		progressed := false
		for _, name := range s.reg.NewTypes() {
			progressed = true
			s.note("type", name)
			s.synth.DeriveDeclared(name)
		}
		if inst, ok := s.reg.NextFunc(); ok {
			progressed = true
			s.note("func", inst.Name)
			s.lowerFunc(inst)
		}
		if !progressed {
			return
		}
	}
}

func (s *Session) errorf(code diag.Code, span source.Span, format string, args ...any) {
	diag.Errorf(s.rep, code, span, format, args...).Emit()
}

func (s *Session) warnf(code diag.Code, span source.Span, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.note("fallback", msg)
	diag.ReportWarning(s.rep, code, span, msg).Emit()
}

// Generate is a convenience wrapper running a fresh session over unit.
func Generate(ctx context.Context, unit *hir.Unit, opts Options) (*Result, error) {
	return NewSession(unit, nil, opts, trace.FromContext(ctx)).Generate(ctx)
}

func (s *Session) note(name, detail string) {
	trace.Point(s.tracer, trace.ScopeNode, name, detail)
}
