package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"ember/internal/source"
)

// RenderOpts configures Render.
type RenderOpts struct {
	Color     bool
	ShowNotes bool
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	noteColor    = color.New(color.FgBlue)
	pathColor    = color.New(color.Bold)
)

// Render prints diagnostics as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// followed by indented notes. Call bag.Sort() beforehand for stable output.
func Render(w io.Writer, bag *Bag, files *source.Table, opts RenderOpts) {
	for _, d := range bag.Items() {
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			paint(opts.Color, pathColor, location(files, d.Primary)),
			paint(opts.Color, severityColor(d.Severity), d.Severity.String()),
			d.Code.ID(),
			d.Message)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n",
				paint(opts.Color, noteColor, "note"),
				location(files, n.Span),
				n.Msg)
		}
	}
	if n := bag.Dropped(); n > 0 {
		fmt.Fprintf(w, "%s %d more diagnostics not shown\n", paint(opts.Color, noteColor, "note:"), n)
	}
}

func location(files *source.Table, sp source.Span) string {
	path := files.Path(sp.File)
	if path == "" {
		path = "<unit>"
	}
	pos := files.Position(sp.File, sp.Start)
	if pos.Line == 0 {
		return path
	}
	return fmt.Sprintf("%s:%d:%d", path, pos.Line, pos.Col)
}

func severityColor(sev Severity) *color.Color {
	switch sev {
	case SevError:
		return errorColor
	case SevWarning:
		return warningColor
	default:
		return infoColor
	}
}

func paint(enabled bool, c *color.Color, s string) string {
	if !enabled {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}
