// Package gemini implements [ai.Provider] for the Gemini generateContent API.
//
// The system prompt becomes system_instruction, the assistant role is named
// "model" and tool results are function_response parts. Gemini does not
// assign ids to function calls, so the adapter generates "call_<uuid>" ids
// and resolves tool result names from the preceding assistant call.
// [New] reads GEMINI_API_KEY, GEMINI_BASE_URL and GEMINI_MODEL.
package gemini
