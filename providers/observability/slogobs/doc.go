// Package slogobs implements observability.Provider on top of log/slog.
//
// Spans are logged at start and end with their accumulated attributes,
// counters are kept in memory, and log calls are forwarded to a slog.Logger
// with either the compact single-line handler or slog's JSON handler. Format
// and level default to OWLSEER_LOG_FORMAT and OWLSEER_LOG_LEVEL.
package slogobs
