package mono

import (
	"strconv"
	"strings"

	"ember/internal/emit"
	"ember/internal/types"
)

// Mangle returns the specialized name of base applied to args:
// Base__Arg1__Arg2. Arguments are encoded by encodeArg; a nested generic
// argument carries its arity so different nestings never collide. Names
// are passed through part, so "__" and "$" only ever appear as separators.
func Mangle(base string, args []*types.Type) string {
	if len(args) == 0 {
		return part(base)
	}
	var sb strings.Builder
	sb.WriteString(part(base))
	for _, a := range args {
		sb.WriteString("__")
		encodeArg(&sb, a)
	}
	return sb.String()
}

// part escapes one source name for use inside a mangled name. An
// underscore survives only between two other characters; leading,
// trailing and repeated underscores become ".x5f", and "$" becomes ".x24".
func part(name string) string {
	esc := emit.Escape(name)
	if !strings.ContainsAny(esc, "_$") {
		return esc
	}
	var sb strings.Builder
	for i := 0; i < len(esc); i++ {
		switch c := esc[i]; {
		case c == '$':
			sb.WriteString(".x24")
		case c == '_' && (i == 0 || i == len(esc)-1 || esc[i-1] == '_' || esc[i+1] == '_'):
			sb.WriteString(".x5f")
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// TupleName is the specialized name of a tuple type.
func TupleName(t *types.Type) string {
	var sb strings.Builder
	encodeArg(&sb, t)
	return sb.String()
}

func encodeArg(sb *strings.Builder, t *types.Type) {
	if t == nil {
		sb.WriteString("Unit")
		return
	}
	switch t.Kind {
	case types.KindNamed:
		sb.WriteString(part(t.Name))
		if len(t.Args) > 0 {
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(len(t.Args)))
			for _, a := range t.Args {
				sb.WriteString("$")
				encodeArg(sb, a)
			}
		}
	case types.KindTuple:
		sb.WriteString("tup$")
		sb.WriteString(strconv.Itoa(len(t.Args)))
		for _, a := range t.Args {
			sb.WriteString("$")
			encodeArg(sb, a)
		}
	case types.KindPointer:
		if t.Mutable {
			sb.WriteString("mutptr$")
		} else {
			sb.WriteString("ptr$")
		}
		encodeArg(sb, t.Elem)
	case types.KindArray:
		sb.WriteString("arr$")
		encodeArg(sb, t.Elem)
		sb.WriteString("$")
		sb.WriteString(strconv.FormatUint(t.Len, 10))
	case types.KindFunc:
		sb.WriteString("fn$")
		sb.WriteString(strconv.Itoa(len(t.Args)))
		for _, a := range t.Args {
			sb.WriteString("$")
			encodeArg(sb, a)
		}
		sb.WriteString("$")
		encodeArg(sb, t.Elem)
	case types.KindParam:
		sb.WriteString("gen$")
		sb.WriteString(part(t.Name))
	default:
		sb.WriteString(t.String())
	}
}

var containerBases = map[string]string{
	"List":    "List",
	"Vec":     "List",
	"Array":   "List",
	"HashMap": "HashMap",
	"Map":     "HashMap",
	"Dict":    "HashMap",
}

// ContainerBase maps container aliases to their canonical handle type.
func ContainerBase(base string) (string, bool) {
	c, ok := containerBases[base]
	return c, ok
}
