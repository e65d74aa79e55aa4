package source

// FileID indexes a file in the unit's file table.
type FileID uint32

// LineCol is a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}

// FileInfo is what the backend keeps about an input file: enough to turn
// byte offsets into line/column pairs for diagnostics.
type FileInfo struct {
	Path       string
	LineStarts []uint32
}
