// Package ai defines the provider-agnostic model shared by every backend
// adapter: canonical messages, tool definitions, the four-variant
// [StreamEvent] union, the [Provider] contract and the error taxonomy.
//
// Each adapter's conversion layer maps these types to its own wire format.
// Nothing outside an adapter package ever sees protocol-specific vocabulary.
// Responses are returned as [ChatResponse]; streaming results come through
// [ChatStream], which can be ranged over or collected.
package ai
