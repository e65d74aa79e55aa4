package driver

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ember/internal/hir"
)

// UnitExt is the extension of msgpack-encoded units.
const UnitExt = ".emu"

// LoadUnit decodes one unit file. A unit without a name takes the file's
// base name.
func LoadUnit(path string) (*hir.Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	u, err := hir.DecodeUnit(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if u.Name == "" {
		u.Name = strings.TrimSuffix(filepath.Base(path), UnitExt)
	}
	return u, nil
}

// WriteUnit encodes u to path, replacing any existing file atomically.
func WriteUnit(path string, u *hir.Unit) error {
	data, err := hir.MarshalUnit(u)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// ListUnits returns the unit files under dir in lexical order.
func ListUnits(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, UnitExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ExpandInputs turns command-line arguments into inputs: directories are
// scanned for unit files, other paths are taken as is.
func ExpandInputs(args []string) ([]Input, error) {
	var out []Input
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, Input{Path: arg})
			continue
		}
		files, err := ListUnits(arg)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%s: no %s files", arg, UnitExt)
		}
		for _, f := range files {
			out = append(out, Input{Path: f})
		}
	}
	return out, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
