package slogobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/leofalp/owlseer/providers/observability"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":    FormatJSON,
		" JSON ":  FormatJSON,
		"compact": FormatCompact,
		"pretty":  FormatCompact,
		"":        FormatCompact,
	}
	for input, want := range tests {
		if got := ParseFormat(input); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

// TestFromEnv verifies the OWLSEER_ variables take precedence over the generic
// ones.
func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_FORMAT", "compact")
	t.Setenv("OWLSEER_LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("OWLSEER_LOG_LEVEL", "debug")

	if FormatFromEnv() != FormatJSON {
		t.Errorf("expected json format from OWLSEER_LOG_FORMAT")
	}
	if LevelFromEnv() != slog.LevelDebug {
		t.Errorf("expected debug level from OWLSEER_LOG_LEVEL")
	}
}

// TestObserver_CompactOutput verifies the single-line layout with JSON
// attributes.
func TestObserver_CompactOutput(t *testing.T) {
	var buf bytes.Buffer
	observer := New(WithOutput(&buf), WithFormat(FormatCompact), WithLevel(slog.LevelInfo))

	observer.Info(context.Background(), "provider ready", observability.String(observability.AttrLLMProvider, "openai"))
	observer.Debug(context.Background(), "filtered out")

	output := buf.String()
	if strings.Count(output, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", output)
	}
	if !strings.Contains(output, "INFO provider ready → ") || !strings.Contains(output, `"llm.provider":"openai"`) {
		t.Errorf("unexpected compact line %q", output)
	}
}

// TestObserver_JSONOutput verifies that span end lines carry status and
// attributes in JSON format.
func TestObserver_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	observer := New(WithOutput(&buf), WithFormat(FormatJSON), WithLevel(slog.LevelDebug))

	_, span := observer.StartSpan(context.Background(), observability.SpanToolExecution,
		observability.String(observability.AttrToolName, "generate_hook"))
	span.RecordError(errors.New("boom"))
	span.SetStatus(observability.StatusError, "boom")
	span.End()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected start and end lines, got %d: %q", len(lines), buf.String())
	}

	var end map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("end line is not JSON: %v", err)
	}
	if end["msg"] != "Span ended" || end["level"] != "WARN" {
		t.Errorf("unexpected end record %v", end)
	}
	if end[observability.AttrToolName] != "generate_hook" || end[observability.AttrStatus] != "error" {
		t.Errorf("expected span attributes on end record, got %v", end)
	}
}

func TestObserver_Counter(t *testing.T) {
	observer := New(WithOutput(&bytes.Buffer{}))

	observer.Counter(observability.MetricAgentTurns).Add(context.Background(), 1)
	observer.Counter(observability.MetricAgentTurns).Add(context.Background(), 2)

	if got := observer.CounterValue(observability.MetricAgentTurns); got != 3 {
		t.Errorf("expected counter value 3, got %d", got)
	}
	if got := observer.CounterValue("never.used"); got != 0 {
		t.Errorf("expected 0 for unknown counter, got %d", got)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	observer := New(WithLogger(logger))

	if observer.Logger() != logger {
		t.Error("expected the provided logger to be used")
	}
	observer.Warn(context.Background(), "quota low")
	if !strings.Contains(buf.String(), "quota low") {
		t.Errorf("expected message routed to provided logger, got %q", buf.String())
	}
}
