// Package parse decodes tool-call arguments produced by language models.
//
// Models occasionally emit JSON with trailing commas, single quotes, comments
// or a truncated closing brace. [ParseArguments] and [ParseStringAs] first try
// a strict decode, then repair the input with jsonrepair, then unwrap
// schema-style {"type": ..., "value": ...} envelopes before giving up.
package parse
