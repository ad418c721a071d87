package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNotObject is returned when the arguments decode to something other than
// a JSON object.
var ErrNotObject = errors.New("arguments are not a JSON object")

// MissingFieldError reports a required argument that is absent or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%q is required", e.Field)
}

// Arguments is a decoded tool-call argument object.
type Arguments map[string]any

// ParseArguments decodes raw into an argument object. An empty or
// whitespace-only string yields empty arguments, since models send "" for
// tools without parameters.
func ParseArguments(raw string) (Arguments, error) {
	if strings.TrimSpace(raw) == "" {
		return Arguments{}, nil
	}

	var decoded any
	if err := decodeTolerant(raw, &decoded); err != nil {
		return nil, err
	}
	object, ok := recursiveUnwrap(decoded).(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Arguments(object), nil
}

// String returns the trimmed string value of key, or "" when it is missing.
// Numbers and booleans are formatted.
func (a Arguments) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// StringOr returns the string value of key, or fallback when it is empty.
func (a Arguments) StringOr(key, fallback string) string {
	if v := a.String(key); v != "" {
		return v
	}
	return fallback
}

// RequireString returns the string value of key or a *MissingFieldError.
func (a Arguments) RequireString(key string) (string, error) {
	v := a.String(key)
	if v == "" {
		return "", &MissingFieldError{Field: key}
	}
	return v, nil
}

// IntOr returns the integer value of key. Numeric strings are accepted.
// Missing, non-numeric and non-integral values yield fallback.
func (a Arguments) IntOr(key string, fallback int) int {
	switch v := a[key].(type) {
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// ParseStringAs decodes content into T using the same tolerant strategy as
// ParseArguments.
//
//	type hookArgs struct {
//		Topic string `json:"topic"`
//		Count int    `json:"count"`
//	}
//	args, err := parse.ParseStringAs[hookArgs](`{topic: 'coffee', count: 3,}`)
func ParseStringAs[T any](content string) (T, error) {
	var result T

	var decoded any
	if err := decodeTolerant(content, &decoded); err != nil {
		return result, err
	}
	normalized, err := json.Marshal(recursiveUnwrap(decoded))
	if err != nil {
		return result, fmt.Errorf("re-encode arguments: %w", err)
	}
	if err := json.Unmarshal(normalized, &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T: %w", result, err)
	}
	return result, nil
}

// decodeTolerant unmarshals content, repairing it once on failure.
func decodeTolerant(content string, target *any) error {
	err := json.Unmarshal([]byte(content), target)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return fmt.Errorf("invalid JSON (%v) and repair failed: %w", err, repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		return fmt.Errorf("invalid JSON after repair: %w", err)
	}
	return nil
}

// recursiveUnwrap replaces {"type": ..., "value": v} envelopes with v. Models
// sometimes confuse the parameter schema with the data it describes.
func recursiveUnwrap(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if _, hasType := v["type"]; hasType {
			if value, hasValue := v["value"]; hasValue && len(v) == 2 {
				return recursiveUnwrap(value)
			}
		}
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = recursiveUnwrap(val)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = recursiveUnwrap(val)
		}
		return result

	default:
		return data
	}
}
