// Package utils holds the HTTP and SSE plumbing shared by the provider
// adapters and search backends: [DoPostSync] and [DoGetSync] for JSON
// round-trips, [DoPostStream] with [SSEEvents] for streamed responses, and
// [TruncateString] for bounding text that ends up in logs and errors.
package utils
