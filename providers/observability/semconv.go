package observability

// Semantic conventions for observability attributes. Components use these
// names so that log lines from adapters, tools and the agent line up.

// --- LLM Provider Attributes ---

const (
	// AttrLLMProvider is the backend family (e.g., "openai", "anthropic")
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model identifier
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMFinishReason is the reason the generation finished
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrLLMStream is true for streaming calls
	AttrLLMStream = "llm.stream"

	AttrLLMTokensPrompt     = "llm.tokens.prompt"     // #nosec G101 -- Not a credential, token refers to LLM tokens
	AttrLLMTokensCompletion = "llm.tokens.completion" // #nosec G101 -- Not a credential, token refers to LLM tokens
	AttrLLMTokensTotal      = "llm.tokens.total"      // #nosec G101 -- Not a credential, token refers to LLM tokens
)

// --- Request Attributes ---

const (
	AttrRequestMessagesCount = "request.messages_count"
	AttrRequestToolsCount    = "request.tools_count"
	AttrResponseToolCalls    = "response.tool_calls"
)

// --- Tool Execution Attributes ---

const (
	AttrToolName      = "tool.name"
	AttrToolCallID    = "tool.call_id"
	AttrToolSkillKind = "tool.skill_kind"
	AttrToolInput     = "tool.input"
	AttrToolOutput    = "tool.output"
	AttrToolOutcome   = "tool.outcome"
)

// --- Agent Attributes ---

const (
	AttrAgentConversationID = "agent.conversation_id"
	AttrAgentIteration      = "agent.iteration"
	AttrAgentStatus         = "agent.status"
	AttrAgentCancelled      = "agent.cancelled"
	AttrAgentContentLength  = "agent.content_length"
)

// --- Quota and Search Attributes ---

const (
	AttrQuotaRemaining = "quota.remaining"
	AttrSearchProvider = "search.provider"
	AttrSearchQuery    = "search.query"
	AttrSearchResults  = "search.results"
)

// --- Memory Attributes ---

const (
	AttrMemoryStore        = "memory.store"
	AttrMemoryMessageRole  = "memory.message.role"
	AttrMemoryMessageCount = "memory.message.count"
)

// --- HTTP Attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPDuration         = "http.request.duration"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
	AttrHTTPAttempt          = "http.attempt"
)

// --- General Attributes ---

const (
	AttrError             = "error"
	AttrErrorType         = "error.type"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	SpanLLMRequest     = "llm.request"
	SpanLLMStream      = "llm.stream"
	SpanToolExecution  = "tool.execution"
	SpanAgentTurn      = "agent.turn"
	SpanAgentStream    = "agent.stream"
	SpanAgentIteration = "agent.iteration"
	SpanSearch         = "search.query"
)

// --- Event Names ---

const (
	EventAgentStatus      = "agent.status.changed"
	EventToolCallReceived = "agent.tool_call.received"
	EventStreamCancelled  = "agent.stream.cancelled"
	EventRetryAttempt     = "llm.retry.attempt"
	EventMemoryAppend     = "memory.append"
)

// --- Metric Names ---

const (
	MetricAgentTurns         = "owlseer.agent.turns"
	MetricAgentIterations    = "owlseer.agent.iterations"
	MetricToolExecutions     = "owlseer.tool.executions"
	MetricLLMRequestDuration = "owlseer.llm.request.duration"
	MetricLLMTokensTotal     = "owlseer.llm.tokens.total"
	MetricQuotaDenied        = "owlseer.quota.denied"
)
