// Package observability defines the tracing, metrics and logging interfaces
// shared by the adapters, the tool executor and the agent.
//
// [Provider] composes [Tracer], [Metrics] and [Logger] into one injectable
// dependency. [Start] opens a span and stores it in the context, where the
// HTTP helpers pick it up with [SpanFromContext]. semconv.go holds the
// attribute, span and metric names.
package observability
