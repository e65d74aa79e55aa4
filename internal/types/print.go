package types

import (
	"strconv"
	"strings"
)

// String renders t in source syntax: Pair[I32, Str], (A, B), *mut T, [T; 4].
// The rendering is canonical, so it doubles as a map key.
func (t *Type) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *Type) write(sb *strings.Builder) {
	if t == nil {
		sb.WriteString("<nil>")
		return
	}
	switch t.Kind {
	case KindUnit:
		sb.WriteString("Unit")
	case KindNever:
		sb.WriteString("Never")
	case KindBool:
		sb.WriteString("Bool")
	case KindChar:
		sb.WriteString("Char")
	case KindStr:
		sb.WriteString("Str")
	case KindInt:
		sb.WriteString("I" + strconv.Itoa(int(t.Width)))
	case KindUint:
		sb.WriteString("U" + strconv.Itoa(int(t.Width)))
	case KindFloat:
		sb.WriteString("F" + strconv.Itoa(int(t.Width)))
	case KindNamed:
		sb.WriteString(t.Name)
		if len(t.Args) > 0 {
			sb.WriteByte('[')
			writeList(sb, t.Args)
			sb.WriteByte(']')
		}
	case KindTuple:
		sb.WriteByte('(')
		writeList(sb, t.Args)
		sb.WriteByte(')')
	case KindFunc:
		sb.WriteString("fn(")
		writeList(sb, t.Args)
		sb.WriteString(") -> ")
		t.Elem.write(sb)
	case KindPointer:
		if t.Mutable {
			sb.WriteString("*mut ")
		} else {
			sb.WriteByte('*')
		}
		t.Elem.write(sb)
	case KindArray:
		sb.WriteByte('[')
		t.Elem.write(sb)
		sb.WriteString("; ")
		sb.WriteString(strconv.FormatUint(t.Len, 10))
		sb.WriteByte(']')
	case KindParam:
		sb.WriteString(t.Name)
	default:
		sb.WriteString(t.Kind.String())
	}
}

func writeList(sb *strings.Builder, list []*Type) {
	for i, a := range list {
		if i > 0 {
			sb.WriteString(", ")
		}
		a.write(sb)
	}
}
