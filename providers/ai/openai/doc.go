// Package openai implements [ai.Provider] for the chat completions protocol
// spoken by OpenAI and by compatible hosts such as DeepSeek and Moonshot/Kimi.
//
// [New] reads OPENAI_API_KEY, OPENAI_BASE_URL and OPENAI_MODEL from the
// environment; options override them. Streaming uses stream_options.include_usage
// so the final Done event carries token usage.
package openai
