package mono

import (
	"fmt"
	"io"
	"strings"
)

// DumpOptions configures the registry dump.
type DumpOptions struct {
	// If true, prints only names and kinds.
	HeadersOnly bool
}

// Dump writes a text listing of the registry, sorted by name.
func (r *Registry) Dump(w io.Writer, opts DumpOptions) error {
	if w == nil || r == nil {
		return nil
	}
	recs := r.Records()
	if _, err := fmt.Fprintf(w, "records=%d deferred=%d\n", len(recs), len(r.deferred)); err != nil {
		return err
	}
	for _, rec := range recs {
		args := make([]string, len(rec.Args))
		for i, a := range rec.Args {
			args[i] = a.String()
		}
		flags := ""
		if rec.Placeholder {
			flags = " placeholder"
		}
		if _, err := fmt.Fprintf(w, "%-8s %s = %s[%s]%s\n", rec.Kind, rec.Name, rec.Base, strings.Join(args, ", "), flags); err != nil {
			return err
		}
		if opts.HeadersOnly {
			continue
		}
		l, ok := r.layouts.Get(rec.Name)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "  body %s size=%d align=%d\n", l.Body(), l.Size, l.Align); err != nil {
			return err
		}
		for _, f := range l.Fields {
			if _, err := fmt.Fprintf(w, "  field %s %s @%d\n", f.Name, f.LLType, f.Offset); err != nil {
				return err
			}
		}
		for _, v := range l.Variants {
			if _, err := fmt.Fprintf(w, "  variant %s tag=%d payload=%s\n", v.Name, v.Tag, v.PayloadType); err != nil {
				return err
			}
		}
	}
	return nil
}
