package types

// Subst maps generic parameter names to concrete types.
type Subst map[string]*Type

// Bind pairs parameter names with arguments. Missing arguments stay unbound.
func Bind(params []string, args []*Type) Subst {
	s := make(Subst, len(params))
	for i, p := range params {
		if i < len(args) && args[i] != nil {
			s[p] = args[i]
		}
	}
	return s
}

// Apply substitutes parameters in t. Unchanged subtrees are shared, so
// applying an empty substitution returns t itself.
func (s Subst) Apply(t *Type) *Type {
	if t == nil || len(s) == 0 {
		return t
	}
	switch t.Kind {
	case KindParam:
		if r, ok := s[t.Name]; ok {
			return r
		}
		return t
	case KindNamed, KindTuple, KindFunc, KindPointer, KindArray:
	default:
		return t
	}
	args, argsChanged := s.applyList(t.Args)
	elem := s.Apply(t.Elem)
	if !argsChanged && elem == t.Elem {
		return t
	}
	out := *t
	out.Args = args
	out.Elem = elem
	return &out
}

func (s Subst) applyList(list []*Type) ([]*Type, bool) {
	var out []*Type
	for i, a := range list {
		r := s.Apply(a)
		if r != a && out == nil {
			out = make([]*Type, len(list))
			copy(out, list[:i])
		}
		if out != nil {
			out[i] = r
		}
	}
	if out == nil {
		return list, false
	}
	return out, true
}

// Compose returns a substitution equivalent to applying inner, then s.
func (s Subst) Compose(inner Subst) Subst {
	out := make(Subst, len(inner)+len(s))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range inner {
		out[k] = s.Apply(v)
	}
	return out
}

// Match binds the parameters of pattern against a concrete type, e.g.
// Box[T] against Box[I32] yields {T: I32}. Returns false on shape mismatch.
func Match(pattern, concrete *Type, into Subst) bool {
	if pattern == nil || concrete == nil {
		return pattern == concrete
	}
	if pattern.Kind == KindParam {
		if prev, ok := into[pattern.Name]; ok {
			return Equal(prev, concrete)
		}
		into[pattern.Name] = concrete
		return true
	}
	if pattern.Kind != concrete.Kind || pattern.Width != concrete.Width ||
		pattern.Name != concrete.Name || pattern.Len != concrete.Len ||
		len(pattern.Args) != len(concrete.Args) {
		return false
	}
	for i := range pattern.Args {
		if !Match(pattern.Args[i], concrete.Args[i], into) {
			return false
		}
	}
	if pattern.Elem != nil || concrete.Elem != nil {
		return Match(pattern.Elem, concrete.Elem, into)
	}
	return true
}
