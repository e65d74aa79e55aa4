package diag

import (
	"fmt"

	"ember/internal/source"
)

// Builder collects notes for one diagnostic and hands it to a Reporter on
// Emit. A second Emit is ignored.
type Builder struct {
	to   Reporter
	d    Diagnostic
	sent bool
}

func build(r Reporter, sev Severity, code Code, span source.Span, msg string) *Builder {
	return &Builder{to: r, d: New(sev, code, span, msg)}
}

func ReportError(r Reporter, code Code, span source.Span, msg string) *Builder {
	return build(r, SevError, code, span, msg)
}

func ReportWarning(r Reporter, code Code, span source.Span, msg string) *Builder {
	return build(r, SevWarning, code, span, msg)
}

// Errorf is ReportError with a formatted message.
func Errorf(r Reporter, code Code, span source.Span, format string, args ...any) *Builder {
	return build(r, SevError, code, span, fmt.Sprintf(format, args...))
}

// Warnf is ReportWarning with a formatted message.
func Warnf(r Reporter, code Code, span source.Span, format string, args ...any) *Builder {
	return build(r, SevWarning, code, span, fmt.Sprintf(format, args...))
}

func (b *Builder) WithNote(span source.Span, msg string) *Builder {
	if b != nil {
		b.d = b.d.WithNote(span, msg)
	}
	return b
}

func (b *Builder) Emit() {
	if b == nil || b.sent || b.to == nil {
		return
	}
	b.sent = true
	b.to.Report(b.d.Code, b.d.Severity, b.d.Primary, b.d.Message, b.d.Notes)
}
