// Package observ measures where a build spends its time: the driver's
// phases and the generate time of each unit.
package observ

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// slowest is how many units Summary lists.
const slowest = 5

// Timer is safe for use by the parallel unit workers.
type Timer struct {
	mu     sync.Mutex
	phases []phase
	units  []UnitTime
}

type phase struct {
	name    string
	started time.Time
	dur     time.Duration
	note    string
}

// UnitTime is the wall time one unit took, or its cache lookup if Cached.
type UnitTime struct {
	Name   string
	Dur    time.Duration
	Cached bool
}

func NewTimer() *Timer { return &Timer{} }

// Begin opens a phase; pass the result to End.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, phase{name: name, started: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase opened by Begin. Unknown indices are ignored.
func (t *Timer) End(idx int, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	t.phases[idx].dur = time.Since(t.phases[idx].started)
	t.phases[idx].note = note
}

// Unit records how long a single unit took.
func (t *Timer) Unit(name string, dur time.Duration, cached bool) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.units = append(t.units, UnitTime{Name: name, Dur: dur, Cached: cached})
}

// PhaseReport is one row of Report.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

type Report struct {
	Phases []PhaseReport `json:"phases"`
	// Units is sorted slowest first, ties by name.
	Units []UnitTime `json:"units,omitempty"`
}

func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var rep Report
	for _, p := range t.phases {
		rep.Phases = append(rep.Phases, PhaseReport{Name: p.name, DurationMS: ms(p.dur), Note: p.note})
	}
	rep.Units = slices.Clone(t.units)
	slices.SortFunc(rep.Units, func(a, b UnitTime) int {
		if c := cmp.Compare(b.Dur, a.Dur); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return rep
}

// Summary renders the phases followed by the slowest units.
func (t *Timer) Summary() string {
	rep := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range rep.Phases {
		fmt.Fprintf(&sb, "  %-24s %8.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			fmt.Fprintf(&sb, "  (%s)", p.Note)
		}
		sb.WriteByte('\n')
	}
	if len(rep.Units) == 0 {
		return sb.String()
	}
	sb.WriteString("slowest units:\n")
	for _, u := range rep.Units[:min(slowest, len(rep.Units))] {
		fmt.Fprintf(&sb, "  %-24s %8.2f ms", u.Name, ms(u.Dur))
		if u.Cached {
			sb.WriteString("  (cached)")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
