package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recordingSpan captures calls for assertions.
type recordingSpan struct {
	name       string
	ended      bool
	status     StatusCode
	errs       []error
	events     []string
	attributes []Attribute
}

func (s *recordingSpan) End() { s.ended = true }
func (s *recordingSpan) SetAttributes(attrs ...Attribute) {
	s.attributes = append(s.attributes, attrs...)
}
func (s *recordingSpan) SetStatus(code StatusCode, _ string)  { s.status = code }
func (s *recordingSpan) RecordError(err error)                { s.errs = append(s.errs, err) }
func (s *recordingSpan) AddEvent(name string, _ ...Attribute) { s.events = append(s.events, name) }

// recordingProvider hands out recordingSpans and ignores everything else.
type recordingProvider struct {
	spans []*recordingSpan
}

func (p *recordingProvider) StartSpan(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	span := &recordingSpan{name: name, attributes: attrs}
	p.spans = append(p.spans, span)
	return ctx, span
}
func (p *recordingProvider) Counter(string) Counter                      { return nil }
func (p *recordingProvider) Histogram(string) Histogram                  { return nil }
func (p *recordingProvider) Debug(context.Context, string, ...Attribute) {}
func (p *recordingProvider) Info(context.Context, string, ...Attribute)  {}
func (p *recordingProvider) Warn(context.Context, string, ...Attribute)  {}
func (p *recordingProvider) Error(context.Context, string, ...Attribute) {}

// TestStart_NilProvider verifies that a nil provider yields a usable no-op
// span and leaves the context without a span.
func TestStart_NilProvider(t *testing.T) {
	ctx, span := Start(context.Background(), nil, SpanLLMRequest)
	if span == nil {
		t.Fatal("expected a no-op span, got nil")
	}
	span.AddEvent("ignored")
	EndWithError(span, errors.New("ignored"))

	if SpanFromContext(ctx) != nil {
		t.Error("expected no span stored in context for a nil provider")
	}
}

// TestStart_StoresSpanInContext verifies that the opened span is reachable by
// lower layers through the context.
func TestStart_StoresSpanInContext(t *testing.T) {
	provider := &recordingProvider{}
	ctx, span := Start(context.Background(), provider, SpanToolExecution, String(AttrToolName, "generate_hook"))

	if SpanFromContext(ctx) != span {
		t.Error("expected the started span in the returned context")
	}
	if len(provider.spans) != 1 || provider.spans[0].name != SpanToolExecution {
		t.Fatalf("expected one %q span, got %+v", SpanToolExecution, provider.spans)
	}
}

func TestEndWithError(t *testing.T) {
	failed := &recordingSpan{}
	EndWithError(failed, errors.New("boom"))
	if !failed.ended || failed.status != StatusError || len(failed.errs) != 1 {
		t.Errorf("unexpected failed span state: %+v", failed)
	}

	succeeded := &recordingSpan{}
	EndWithError(succeeded, nil)
	if !succeeded.ended || succeeded.status != StatusOK || len(succeeded.errs) != 0 {
		t.Errorf("unexpected successful span state: %+v", succeeded)
	}
}

func TestAttributes(t *testing.T) {
	tests := []struct {
		attr      Attribute
		wantKey   string
		wantValue any
	}{
		{String("k", "v"), "k", "v"},
		{Int("count", 42), "count", 42},
		{Int64("big", 9223372036854775807), "big", int64(9223372036854775807)},
		{Bool("flag", true), "flag", true},
		{Duration("elapsed", time.Second), "elapsed", time.Second},
		{Error(errors.New("boom")), AttrError, "boom"},
		{Error(nil), AttrError, ""},
	}
	for _, tt := range tests {
		if tt.attr.Key != tt.wantKey || tt.attr.Value != tt.wantValue {
			t.Errorf("got %+v, want key=%q value=%v", tt.attr, tt.wantKey, tt.wantValue)
		}
	}
}
