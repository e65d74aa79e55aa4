package types

func (t *Type) IsInteger() bool {
	return t != nil && (t.Kind == KindInt || t.Kind == KindUint)
}

func (t *Type) IsSigned() bool { return t != nil && t.Kind == KindInt }

// IsUnsignedLike covers unsigned integers and the other types compared
// without sign: Bool and Char.
func (t *Type) IsUnsignedLike() bool {
	return t != nil && (t.Kind == KindUint || t.Kind == KindBool || t.Kind == KindChar)
}

func (t *Type) IsFloat() bool { return t != nil && t.Kind == KindFloat }

func (t *Type) IsBool() bool { return t != nil && t.Kind == KindBool }

func (t *Type) IsStr() bool { return t != nil && t.Kind == KindStr }

// IsVoid is true for types that produce no value.
func (t *Type) IsVoid() bool {
	return t == nil || t.Kind == KindUnit || t.Kind == KindNever
}

// IsScalar reports whether values of t live in a single register:
// numbers, Bool, Char, Str handles, pointers and functions.
func (t *Type) IsScalar() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindBool, KindChar, KindStr, KindInt, KindUint, KindFloat, KindPointer, KindFunc:
		return true
	}
	return false
}

// IsMatchPrimitive selects the value-comparison path of the pattern
// compiler: numbers, Bool, Char and Str.
func (t *Type) IsMatchPrimitive() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindBool, KindChar, KindStr, KindInt, KindUint, KindFloat:
		return true
	}
	return false
}

// Bits returns the storage width of numeric, Bool and Char types; 0 otherwise.
func (t *Type) Bits() int {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case KindBool:
		return 1
	case KindChar, KindInt, KindUint, KindFloat:
		return int(t.Width)
	}
	return 0
}

// ContainsParam reports whether any generic parameter is left in t.
func (t *Type) ContainsParam() bool {
	if t == nil {
		return false
	}
	if t.Kind == KindParam {
		return true
	}
	for _, a := range t.Args {
		if a.ContainsParam() {
			return true
		}
	}
	return t.Elem.ContainsParam()
}

// Params collects parameter names in first-occurrence order.
func (t *Type) Params() []string {
	var out []string
	seen := map[string]bool{}
	var walk func(*Type)
	walk = func(n *Type) {
		if n == nil {
			return
		}
		if n.Kind == KindParam && !seen[n.Name] {
			seen[n.Name] = true
			out = append(out, n.Name)
		}
		for _, a := range n.Args {
			walk(a)
		}
		walk(n.Elem)
	}
	walk(t)
	return out
}

// Equal compares structurally.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.String() == b.String()
}
