package layout

import (
	"sort"
)

// Table stores every concrete layout of a session, keyed by specialized
// name, together with the variant tag table.
type Table struct {
	Target Target

	byName map[string]*TypeLayout
	byLL   map[string]*TypeLayout
	order  []string
	tags   map[string]int
}

func NewTable(target Target) *Table {
	return &Table{
		Target: target,
		byName: make(map[string]*TypeLayout, 64),
		byLL:   make(map[string]*TypeLayout, 64),
		tags:   make(map[string]int, 64),
	}
}

// Put computes the size of l and records it together with its variant
// tags. Field types must already be known to the table. Re-recording a
// name with the same body is a no-op; a different body is a conflict.
func (t *Table) Put(l *TypeLayout) error {
	if l == nil {
		return nil
	}
	if err := t.compute(l); err != nil {
		return err
	}
	if prev, ok := t.byName[l.Name]; ok {
		if prev.Body() != l.Body() {
			return &LayoutError{Kind: LayoutErrConflict, Name: l.Name, Have: prev.Body(), Want: l.Body()}
		}
		return nil
	}
	t.byName[l.Name] = l
	t.byLL[l.LLType] = l
	t.order = append(t.order, l.Name)
	for _, v := range l.Variants {
		t.SetTag(l.Name, v.Name, v.Tag)
		if l.Decl != "" && l.Decl != l.Name {
			t.SetTag(l.Decl, v.Name, v.Tag)
		}
	}
	return nil
}

func (t *Table) Get(name string) (*TypeLayout, bool) {
	l, ok := t.byName[name]
	return l, ok
}

// ByLLType looks a layout up by its IR spelling.
func (t *Table) ByLLType(ll string) (*TypeLayout, bool) {
	l, ok := t.byLL[ll]
	return l, ok
}

func tagKey(enum, variant string) string { return enum + "::" + variant }

// SetTag records enum::variant -> tag.
func (t *Table) SetTag(enum, variant string, tag int) {
	t.tags[tagKey(enum, variant)] = tag
}

// Tag returns the discriminant of enum::variant.
func (t *Table) Tag(enum, variant string) (int, bool) {
	tag, ok := t.tags[tagKey(enum, variant)]
	return tag, ok
}

// Names returns recorded names in insertion order.
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}

// Sorted returns all layouts ordered by name.
func (t *Table) Sorted() []*TypeLayout {
	out := make([]*TypeLayout, 0, len(t.byName))
	for _, l := range t.byName {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (t *Table) Len() int { return len(t.byName) }
