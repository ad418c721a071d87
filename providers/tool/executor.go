package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/leofalp/owlseer/internal/utils"
	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/observability"
	"github.com/leofalp/owlseer/providers/search"
)

// Outcomes recorded on the tool.execution span.
const (
	outcomeOK               = "ok"
	outcomeInvalidArguments = "invalid_arguments"
	outcomeUnknownTool      = "unknown_tool"
	outcomeNotConfigured    = "not_configured"
)

// Executor dispatches tool calls to the built-in skills and, when a search
// capability is configured, to web search.
type Executor struct {
	catalog  *Catalog
	observer observability.Provider

	mu     sync.RWMutex
	search search.Capability
}

// Option configures an Executor.
type Option func(*Executor)

// WithSearch enables the web_search tool.
func WithSearch(capability search.Capability) Option {
	return func(e *Executor) { e.search = capability }
}

func WithObserver(observer observability.Provider) Option {
	return func(e *Executor) { e.observer = observer }
}

// NewExecutor creates an executor with the built-in skills registered.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}

	e.catalog = NewCatalog(newHookTool(), newScriptTool(), newTrendTool())
	if e.search != nil {
		e.catalog.Add(newWebSearchTool(e.search))
	}
	return e
}

// AvailableTools lists the tools to offer the model.
func (e *Executor) AvailableTools() []ai.ToolDefinition {
	return e.catalog.Definitions()
}

// SearchEnabled reports whether web_search is offered.
func (e *Executor) SearchEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.search != nil
}

// SetSearch swaps the search capability behind web_search. A nil capability
// withdraws the tool. Calls already running keep the capability they started
// with.
func (e *Executor) SetSearch(capability search.Capability) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.search = capability
	if capability == nil {
		e.catalog.Remove(NameWebSearch)
		return
	}
	e.catalog.Add(newWebSearchTool(capability))
}

// Execute runs call and returns its text result. It never fails; problems are
// described in the returned text.
func (e *Executor) Execute(ctx context.Context, call ai.ToolCall) string {
	ctx, span := observability.Start(ctx, e.observer, observability.SpanToolExecution,
		observability.String(observability.AttrToolName, call.Name),
		observability.String(observability.AttrToolCallID, call.ID),
		observability.String(observability.AttrToolInput, utils.TruncateString(call.Arguments, 200)),
	)
	defer span.End()

	result, outcome := e.dispatch(ctx, span, call)

	span.SetAttributes(
		observability.String(observability.AttrToolOutcome, outcome),
		observability.String(observability.AttrToolOutput, utils.TruncateString(result, 200)),
	)
	if outcome == outcomeOK {
		span.SetStatus(observability.StatusOK, "")
	} else {
		span.SetStatus(observability.StatusError, outcome)
	}
	if e.observer != nil {
		e.observer.Counter(observability.MetricToolExecutions).Add(ctx, 1,
			observability.String(observability.AttrToolName, call.Name),
			observability.String(observability.AttrToolOutcome, outcome),
		)
	}
	return result
}

func (e *Executor) dispatch(ctx context.Context, span observability.Span, call ai.ToolCall) (string, string) {
	t, ok := e.catalog.Get(call.Name)
	if !ok {
		if call.Name == NameWebSearch {
			return searchNotConfigured, outcomeNotConfigured
		}
		return fmt.Sprintf("Unknown tool: %s", call.Name), outcomeUnknownTool
	}

	span.SetAttributes(
		observability.String(observability.AttrToolSkillKind, string(t.ToolInfo().SkillKind)),
	)

	result, err := t.Call(ctx, call.Arguments)
	if err != nil {
		return argumentError(err), outcomeInvalidArguments
	}
	return result, outcomeOK
}
