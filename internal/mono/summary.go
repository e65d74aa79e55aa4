package mono

import (
	"fmt"
	"sort"
)

// TypeSummary is the shard-independent view of one type instantiation.
type TypeSummary struct {
	Name        string `msgpack:"name"`
	Base        string `msgpack:"base"`
	Kind        string `msgpack:"kind"`
	Body        string `msgpack:"body"`
	Placeholder bool   `msgpack:"placeholder"`
}

// Summary is what a session exports about its registry. It is serialized
// next to cached output so later builds can merge it without regenerating.
type Summary struct {
	Unit  string        `msgpack:"unit"`
	Types []TypeSummary `msgpack:"types"`
	Funcs []string      `msgpack:"funcs"`
}

// Summary captures the registry state sorted by name.
func (r *Registry) Summary(unit string) *Summary {
	s := &Summary{Unit: unit}
	for _, rec := range r.Records() {
		switch rec.Kind {
		case KindFunc, KindMethod:
			s.Funcs = append(s.Funcs, rec.Name)
			continue
		}
		body := ""
		if l, ok := r.layouts.Get(rec.Name); ok {
			body = l.Body()
		}
		s.Types = append(s.Types, TypeSummary{
			Name:        rec.Name,
			Base:        rec.Base,
			Kind:        rec.Kind.String(),
			Body:        body,
			Placeholder: rec.Placeholder,
		})
	}
	return s
}

// Conflict is one specialized name with different bodies in two shards.
type Conflict struct {
	Name      string
	Unit      string
	OtherUnit string
	Have      string
	Want      string
}

func (c Conflict) Error() string {
	return fmt.Sprintf("%s is %s in %s but %s in %s", c.Name, c.Have, c.Unit, c.Want, c.OtherUnit)
}

// Merged is the union of several shard summaries.
type Merged struct {
	Types     map[string]TypeSummary
	owner     map[string]string
	Funcs     map[string][]string
	Conflicts []Conflict
	// Shared counts names generated by more than one shard.
	Shared int
}

func NewMerged() *Merged {
	return &Merged{
		Types: make(map[string]TypeSummary),
		owner: make(map[string]string),
		Funcs: make(map[string][]string),
	}
}

// Merge folds s into m. Identical duplicates are counted; differing bodies
// for one name are recorded as conflicts. Placeholder bodies never conflict
// with concrete ones; the concrete body wins.
func (m *Merged) Merge(s *Summary) {
	if s == nil {
		return
	}
	for _, t := range s.Types {
		prev, ok := m.Types[t.Name]
		if !ok {
			m.Types[t.Name] = t
			m.owner[t.Name] = s.Unit
			continue
		}
		m.Shared++
		switch {
		case prev.Body == t.Body:
		case prev.Placeholder && !t.Placeholder:
			m.Types[t.Name] = t
			m.owner[t.Name] = s.Unit
		case t.Placeholder:
		default:
			m.Conflicts = append(m.Conflicts, Conflict{
				Name: t.Name, Unit: m.owner[t.Name], OtherUnit: s.Unit, Have: prev.Body, Want: t.Body,
			})
		}
	}
	for _, f := range s.Funcs {
		m.Funcs[f] = append(m.Funcs[f], s.Unit)
	}
}

// Names returns merged type names in order.
func (m *Merged) Names() []string {
	out := make([]string, 0, len(m.Types))
	for name := range m.Types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
