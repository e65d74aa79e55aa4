package layout

import (
	"strconv"
	"strings"

	"fortio.org/safecast"
)

type sizeAlign struct {
	Size  int
	Align int
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func (t *Table) ptrLayout() sizeAlign {
	size, align := t.Target.PtrSize, t.Target.PtrAlign
	if size <= 0 {
		size = 8
	}
	if align <= 0 {
		align = size
	}
	return sizeAlign{Size: size, Align: align}
}

// SizeOf returns size and alignment of an IR type spelling. Named types
// must already be in the table.
func (t *Table) SizeOf(ll string) (size, align int, err error) {
	sa, err := t.sizeOf(strings.TrimSpace(ll))
	return sa.Size, sa.Align, err
}

func (t *Table) sizeOf(ll string) (sizeAlign, error) {
	switch ll {
	case "void", "":
		return sizeAlign{Size: 0, Align: 1}, nil
	case "ptr":
		return t.ptrLayout(), nil
	case "float":
		return sizeAlign{Size: 4, Align: 4}, nil
	case "double":
		return sizeAlign{Size: 8, Align: 8}, nil
	}
	switch {
	case strings.HasPrefix(ll, "i"):
		bits, err := strconv.Atoi(ll[1:])
		if err != nil || bits <= 0 {
			return sizeAlign{}, &LayoutError{Kind: LayoutErrUnknownType, Name: ll}
		}
		bytes := (bits + 7) / 8
		return sizeAlign{Size: bytes, Align: bytes}, nil
	case strings.HasPrefix(ll, "%struct."):
		l, ok := t.byLL[ll]
		if !ok {
			return sizeAlign{}, &LayoutError{Kind: LayoutErrUnknownType, Name: ll}
		}
		return sizeAlign{Size: l.Size, Align: l.Align}, nil
	case strings.HasPrefix(ll, "["):
		return t.arrayLayout(ll)
	case strings.HasPrefix(ll, "{"):
		var fields []sizeAlign
		for _, part := range splitTop(ll[1 : len(ll)-1]) {
			sa, err := t.sizeOf(part)
			if err != nil {
				return sizeAlign{}, err
			}
			fields = append(fields, sa)
		}
		_, total := sequence(fields)
		return total, nil
	}
	return sizeAlign{}, &LayoutError{Kind: LayoutErrUnknownType, Name: ll}
}

func (t *Table) arrayLayout(ll string) (sizeAlign, error) {
	inner := strings.TrimSpace(ll[1 : len(ll)-1])
	lenText, elem, ok := strings.Cut(inner, " x ")
	if !ok {
		return sizeAlign{}, &LayoutError{Kind: LayoutErrUnknownType, Name: ll}
	}
	n64, err := strconv.ParseUint(lenText, 10, 64)
	if err != nil {
		return sizeAlign{}, &LayoutError{Kind: LayoutErrUnknownType, Name: ll}
	}
	n, err := safecast.Conv[int](n64)
	if err != nil {
		n = 0
	}
	el, err := t.sizeOf(strings.TrimSpace(elem))
	if err != nil {
		return sizeAlign{}, err
	}
	stride := roundUp(el.Size, el.Align)
	return sizeAlign{Size: stride * n, Align: el.Align}, nil
}

// splitTop splits a comma list without descending into nested brackets.
func splitTop(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// sequence lays fields out in order and returns their offsets and the
// padded total.
func sequence(fields []sizeAlign) ([]int, sizeAlign) {
	offsets := make([]int, len(fields))
	size, align := 0, 1
	for i, f := range fields {
		a := max(f.Align, 1)
		size = roundUp(size, a)
		offsets[i] = size
		size += f.Size
		align = max(align, a)
	}
	return offsets, sizeAlign{Size: roundUp(size, align), Align: align}
}

func (t *Table) computeFields(fields []Field) (sizeAlign, error) {
	sas := make([]sizeAlign, len(fields))
	for i, f := range fields {
		sa, err := t.sizeOf(f.LLType)
		if err != nil {
			return sizeAlign{}, err
		}
		sas[i] = sa
	}
	offsets, total := sequence(sas)
	for i := range fields {
		fields[i].Offset = offsets[i]
	}
	return total, nil
}

// compute fills offsets, payload words and the total size of l.
func (t *Table) compute(l *TypeLayout) error {
	switch l.Kind {
	case KindOpaque:
		p := t.ptrLayout()
		l.Size, l.Align = p.Size, p.Align
		return nil
	case KindEnum:
		maxPayload := 0
		for i := range l.Variants {
			v := &l.Variants[i]
			sa, err := t.computeFields(v.Fields)
			if err != nil {
				return err
			}
			v.PayloadType = literalStruct(v.Fields)
			maxPayload = max(maxPayload, sa.Size)
		}
		l.PayloadWords = (maxPayload + 7) / 8
		if l.PayloadWords == 0 {
			l.PayloadOffset = 0
			l.Size, l.Align = 4, 4
			return nil
		}
		l.PayloadOffset = 8
		l.Size, l.Align = 8+8*l.PayloadWords, 8
		return nil
	default:
		total, err := t.computeFields(l.Fields)
		if err != nil {
			return err
		}
		l.Size, l.Align = total.Size, total.Align
		return nil
	}
}
