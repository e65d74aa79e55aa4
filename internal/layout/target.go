package layout

import "strings"

// Target describes the ABI target triple and its pointer properties.
// Only 64-bit little-endian targets are modelled.
type Target struct {
	Triple   string
	PtrSize  int // bytes
	PtrAlign int // bytes
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-unknown-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

// TargetFor returns the layout target for a triple. Unknown triples are
// treated as 64-bit.
func TargetFor(triple string) Target {
	t := X86_64LinuxGNU()
	if triple == "" {
		return t
	}
	t.Triple = triple
	if strings.HasPrefix(triple, "i386") || strings.HasPrefix(triple, "i686") || strings.HasPrefix(triple, "wasm32") {
		t.PtrSize, t.PtrAlign = 4, 4
	}
	return t
}
