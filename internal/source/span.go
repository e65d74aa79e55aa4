package source

import "fmt"

// Span is a half-open byte range [Start, End) inside one file of the unit.
// The zero Span means "no location"; diagnostics render it as the unit name.
type Span struct {
	File  FileID `msgpack:"f"`
	Start uint32 `msgpack:"s"`
	End   uint32 `msgpack:"e"`
}

// Len is zero for empty and inverted spans.
func (s Span) Len() uint32 {
	return max(s.End, s.Start) - s.Start
}

// Cover widens s to include other. Spans of different files leave s as is.
func (s Span) Cover(other Span) Span {
	if s.File == other.File {
		s.Start = min(s.Start, other.Start)
		s.End = max(s.End, other.End)
	}
	return s
}

func (s Span) String() string {
	return fmt.Sprintf("file%d[%d:%d]", s.File, s.Start, s.End)
}
