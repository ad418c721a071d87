package parse

import (
	"errors"
	"testing"
)

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantTopic string
		wantErr   bool
	}{
		{name: "valid", raw: `{"topic":"coffee"}`, wantTopic: "coffee"},
		{name: "trailing comma", raw: `{"topic":"coffee",}`, wantTopic: "coffee"},
		{name: "single quotes", raw: `{'topic': 'coffee'}`, wantTopic: "coffee"},
		{name: "truncated", raw: `{"topic":"coffee"`, wantTopic: "coffee"},
		{name: "schema envelope", raw: `{"topic":{"type":"string","value":"coffee"}}`, wantTopic: "coffee"},
		{name: "empty", raw: "", wantTopic: ""},
		{name: "whitespace", raw: "  \n", wantTopic: ""},
		{name: "array", raw: `["coffee"]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := ParseArguments(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", args)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := args.String("topic"); got != tt.wantTopic {
				t.Errorf("topic = %q, want %q", got, tt.wantTopic)
			}
		})
	}
}

func TestParseArguments_NotObject(t *testing.T) {
	_, err := ParseArguments(`42`)
	if !errors.Is(err, ErrNotObject) {
		t.Errorf("expected ErrNotObject, got %v", err)
	}
}

func TestArguments_RequireString(t *testing.T) {
	args := Arguments{"topic": "  ", "region": "China"}

	_, err := args.RequireString("topic")
	var missing *MissingFieldError
	if !errors.As(err, &missing) || missing.Field != "topic" {
		t.Fatalf("expected MissingFieldError for topic, got %v", err)
	}
	if err.Error() != `"topic" is required` {
		t.Errorf("unexpected message %q", err.Error())
	}

	region, err := args.RequireString("region")
	if err != nil || region != "China" {
		t.Errorf("RequireString(region) = %q, %v", region, err)
	}
}

func TestArguments_IntOr(t *testing.T) {
	args := Arguments{
		"count":    float64(3),
		"text":     "7",
		"fraction": 2.5,
		"word":     "many",
	}

	tests := map[string]int{
		"count":    3,
		"text":     7,
		"fraction": 5,
		"word":     5,
		"missing":  5,
	}
	for key, want := range tests {
		if got := args.IntOr(key, 5); got != want {
			t.Errorf("IntOr(%q) = %d, want %d", key, got, want)
		}
	}
}

func TestArguments_StringOr(t *testing.T) {
	args := Arguments{"style": "", "duration": float64(30), "flag": true}

	if got := args.StringOr("style", "suspense"); got != "suspense" {
		t.Errorf("expected fallback for empty value, got %q", got)
	}
	if got := args.StringOr("duration", "60"); got != "30" {
		t.Errorf("expected formatted number, got %q", got)
	}
	if got := args.String("flag"); got != "true" {
		t.Errorf("expected formatted bool, got %q", got)
	}
}

func TestParseStringAs(t *testing.T) {
	type searchArgs struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}

	got, err := ParseStringAs[searchArgs](`{query: 'latte art', max_results: {"type":"integer","value":3},}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Query != "latte art" || got.MaxResults != 3 {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestParseStringAs_TypeMismatch(t *testing.T) {
	type searchArgs struct {
		Query string `json:"query"`
	}
	if _, err := ParseStringAs[searchArgs](`["latte"]`); err == nil {
		t.Error("expected error decoding an array into a struct")
	}
}

// TestRecursiveUnwrap_KeepsLegitimateFields verifies that objects with more
// than the two envelope keys are left alone.
func TestRecursiveUnwrap_KeepsLegitimateFields(t *testing.T) {
	args, err := ParseArguments(`{"item":{"type":"video","value":"v1","id":"x"}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item, ok := args["item"].(map[string]any)
	if !ok || item["type"] != "video" || item["id"] != "x" {
		t.Errorf("expected item object preserved, got %v", args["item"])
	}
}
