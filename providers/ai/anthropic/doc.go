// Package anthropic implements [ai.Provider] for the Anthropic Messages API.
//
// The system prompt travels in the top-level system field and tool results
// are sent as user messages holding tool_result blocks. Consecutive tool
// results are merged into one user message because the API requires
// alternating turns. [New] reads ANTHROPIC_API_KEY, ANTHROPIC_BASE_URL and
// ANTHROPIC_MODEL from the environment.
package anthropic
