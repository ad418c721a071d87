package observability

import "context"

type spanKey struct{}

// SpanFromContext returns the span stored by [Start] or [ContextWithSpan], or
// nil when ctx carries none.
func SpanFromContext(ctx context.Context) Span {
	if ctx == nil {
		return nil
	}
	span, _ := ctx.Value(spanKey{}).(Span)
	return span
}

// ContextWithSpan attaches span to ctx. A nil ctx is treated as Background.
func ContextWithSpan(ctx context.Context, span Span) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, spanKey{}, span)
}

// AddEvent records an event on the span carried by ctx. It reports whether a
// span was present; stores and status updates call it without knowing if a
// turn is being traced.
func AddEvent(ctx context.Context, name string, attrs ...Attribute) bool {
	span := SpanFromContext(ctx)
	if span == nil {
		return false
	}
	span.AddEvent(name, attrs...)
	return true
}
