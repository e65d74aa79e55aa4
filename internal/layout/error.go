package layout

import (
	"fmt"
	"strings"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveUnsized indicates a value type that contains itself.
	LayoutErrRecursiveUnsized LayoutErrorKind = iota + 1
	// LayoutErrConflict indicates two different bodies for one specialized name.
	LayoutErrConflict
	// LayoutErrUnknownType indicates a named type with no recorded layout.
	LayoutErrUnknownType
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind  LayoutErrorKind
	Name  string
	Cycle []string // for LayoutErrRecursiveUnsized
	Have  string   // for LayoutErrConflict
	Want  string
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive value type has infinite size (%s)", e.Name)
		}
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(e.Cycle, " -> "))
	case LayoutErrConflict:
		return fmt.Sprintf("conflicting layouts for %s: %s vs %s", e.Name, e.Have, e.Want)
	case LayoutErrUnknownType:
		return fmt.Sprintf("no layout recorded for %s", e.Name)
	default:
		return fmt.Sprintf("layout error kind=%d (%s)", e.Kind, e.Name)
	}
}
