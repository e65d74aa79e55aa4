package pattern

import (
	"ember/internal/emit"
	"ember/internal/types"
)

// subject is a value being tested: either a loaded scalar or an address.
type subject struct {
	sem   *types.Type
	ll    string
	addr  string
	value string
	tag   string
	owner Owner
	// nested is false only for the scrutinee itself.
	nested bool
}

// child describes a part of s stored at addr. A struct field directly
// below the scrutinee narrows the owner to that field.
func (s *subject) child(sem *types.Type, ll, addr, field string) subject {
	c := subject{sem: sem, ll: ll, addr: addr, owner: s.owner, nested: true}
	if !s.nested && field != "" && c.owner.Field == "" {
		c.owner.Field = field
	}
	return c
}

// load returns the scalar value, reading it from addr on first use.
func (s *subject) load(f *emit.Func) string {
	if s.value == "" {
		s.value = f.Load(s.ll, s.addr)
	}
	return s.value
}

// binding is a name waiting to be materialized at arm entry.
type binding struct {
	name string
	sub  subject
	// shared is set for or-pattern bindings; ptr is true when the slot
	// holds an address rather than the value.
	shared string
	ptr    bool
}
