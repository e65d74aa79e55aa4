package source

import (
	"sort"

	"fortio.org/safecast"
)

// Table maps FileIDs to paths and resolves spans into line/column form.
type Table struct {
	files []FileInfo
}

// NewTable wraps the file list carried by a unit. Index i is FileID(i).
func NewTable(files []FileInfo) *Table {
	return &Table{files: files}
}

// Add registers a file from its content and returns its id.
func (t *Table) Add(path string, content []byte) FileID {
	starts := []uint32{0}
	for i, b := range content {
		if b == '\n' {
			off, err := safecast.Conv[uint32](i + 1)
			if err != nil {
				break
			}
			starts = append(starts, off)
		}
	}
	t.files = append(t.files, FileInfo{Path: path, LineStarts: starts})
	id, err := safecast.Conv[uint32](len(t.files) - 1)
	if err != nil {
		panic(err)
	}
	return FileID(id)
}

// Files returns the underlying file list.
func (t *Table) Files() []FileInfo {
	if t == nil {
		return nil
	}
	return t.files
}

// Path returns the file path or "" for unknown ids.
func (t *Table) Path(id FileID) string {
	if t == nil || int(id) >= len(t.files) {
		return ""
	}
	return t.files[id].Path
}

// Position resolves a byte offset. Unknown files resolve to 0:0.
func (t *Table) Position(id FileID, off uint32) LineCol {
	if t == nil || int(id) >= len(t.files) {
		return LineCol{}
	}
	starts := t.files[id].LineStarts
	if len(starts) == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}
	idx := sort.Search(len(starts), func(i int) bool { return starts[i] > off }) - 1
	if idx < 0 {
		idx = 0
	}
	line, err := safecast.Conv[uint32](idx + 1)
	if err != nil {
		return LineCol{}
	}
	return LineCol{Line: line, Col: off - starts[idx] + 1}
}
