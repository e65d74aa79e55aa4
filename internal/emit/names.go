package emit

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Escape turns a source-level name into a valid IR identifier body.
// Names are NFC-normalized first so canonically equal spellings map to one
// symbol. "::" becomes "."; bytes outside [A-Za-z0-9_.$] become ".xHH".
func Escape(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, "::", ".")
	var sb strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '.', c == '$':
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, ".x%02x", c)
		}
	}
	return sb.String()
}

// FloatConst spells a floating constant in the exact hexadecimal form.
// F32 constants are written as the double nearest to the rounded float.
func FloatConst(v float64, bits int) string {
	if bits == 32 {
		v = float64(float32(v))
	}
	return fmt.Sprintf("0x%016X", math.Float64bits(v))
}

// BoolConst spells an i1 constant.
func BoolConst(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
