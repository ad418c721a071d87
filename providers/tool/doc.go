// Package tool holds the tools the agent offers to the model and the
// [Executor] that dispatches tool calls to them.
//
// A [Tool] binds an [ai.ToolDefinition] to a typed handler; arguments are
// decoded with [parse.ParseStringAs], so slightly malformed model JSON is
// repaired rather than rejected. The [Catalog] keeps tools in registration
// order, which is the order they are advertised in.
//
// [Executor.Execute] never fails: every outcome, including unknown tools and
// invalid arguments, is a text result. This keeps the one-result-per-call
// invariant of the agent loop.
package tool
