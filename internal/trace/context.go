package trace

import "context"

type (
	tracerKey struct{}
	parentKey struct{}
)

// FromContext returns the tracer carried by ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// WithParent records the span that spans begun further down should nest
// under. Inert spans carry ID 0 and leave ctx untouched.
func WithParent(ctx context.Context, s *Span) context.Context {
	if id := s.ID(); id != 0 {
		return context.WithValue(ctx, parentKey{}, id)
	}
	return ctx
}

// ParentFrom returns the span ID stored by WithParent, or 0 for a root.
func ParentFrom(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(parentKey{}).(uint64)
	return id
}
