package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/ai/factory"
	"github.com/leofalp/owlseer/providers/memory"
	"github.com/leofalp/owlseer/providers/observability"
)

const (
	DefaultMaxIterations = 5
	DefaultHistoryLimit  = 20
)

// ProviderConfig resolves the settings of the active provider mode.
type ProviderConfig interface {
	// Resolve fails when no usable provider is configured.
	Resolve() (ai.ProviderSettings, error)
	// QuotaLimited reports whether turns count against the local daily quota.
	QuotaLimited() bool
}

// RateLimiter is the local daily quota.
type RateLimiter interface {
	CanSend() bool
	RecordUsage()
	ResetDescription() string
	// TryAcquire checks and records one unit atomically.
	TryAcquire() bool
}

// ToolExecutor runs the tools offered to the model.
type ToolExecutor interface {
	AvailableTools() []ai.ToolDefinition
	SearchEnabled() bool
	// Execute never fails: errors come back as text for the model.
	Execute(ctx context.Context, call ai.ToolCall) string
}

// Dependencies are the collaborators of an Orchestrator. Limiter may be nil,
// in which case quota-limited modes are not throttled.
type Dependencies struct {
	Config  ProviderConfig
	Limiter RateLimiter
	Tools   ToolExecutor
	Store   memory.ConversationStore
}

// ProviderFactory builds a provider from resolved settings.
type ProviderFactory func(settings ai.ProviderSettings) (ai.Provider, error)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxIterations bounds the number of provider calls per turn.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithHistoryLimit sets how many persisted messages are replayed as context.
func WithHistoryLimit(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.historyLimit = n
		}
	}
}

func WithProviderFactory(f ProviderFactory) Option {
	return func(o *Orchestrator) { o.factory = f }
}

func WithObserver(observer observability.Provider) Option {
	return func(o *Orchestrator) { o.observer = observer }
}

func WithPromptBuilder(builder PromptBuilder) Option {
	return func(o *Orchestrator) { o.prompt = builder }
}

// WithStatusListener registers a callback invoked on every status change.
// It runs on the goroutine driving the turn and must not call back into the
// orchestrator, except for Cancel and Session.
func WithStatusListener(listener func(Status)) Option {
	return func(o *Orchestrator) { o.listener = listener }
}

// Orchestrator drives one conversation turn at a time against the configured
// provider.
type Orchestrator struct {
	deps          Dependencies
	maxIterations int
	historyLimit  int
	factory       ProviderFactory
	observer      observability.Provider
	prompt        PromptBuilder
	listener      func(Status)

	cancelled atomic.Bool

	mu        sync.Mutex
	session   Session
	streaming bool

	providerMu       sync.Mutex
	providerSettings ai.ProviderSettings
	provider         ai.Provider
}

// New creates an Orchestrator. Without WithProviderFactory, providers are
// built with factory.New and share the orchestrator's observer.
func New(deps Dependencies, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:          deps,
		maxIterations: DefaultMaxIterations,
		historyLimit:  DefaultHistoryLimit,
		prompt:        DefaultPromptBuilder(),
		session:       Session{Status: Idle},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.factory == nil {
		observer := o.observer
		o.factory = func(settings ai.ProviderSettings) (ai.Provider, error) {
			return factory.New(settings, factory.WithObserver(observer))
		}
	}
	return o
}

// MaxIterations returns the per-turn bound on provider calls.
func (o *Orchestrator) MaxIterations() int {
	return o.maxIterations
}

// Session returns a snapshot of the orchestrator state.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Cancel asks the running stream to stop at the next chunk boundary. It is a
// no-op while Run is in progress or nothing is running; Run is bounded by its
// context instead.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.streaming || !o.session.Status.Busy() {
		return
	}
	o.cancelled.Store(true)
	o.session.Cancelled = true
}

// Run processes one user message with the bounded tool-calling loop. It
// returns the messages produced by the turn, in the order they were
// persisted: the user message, then for every tool round an assistant message
// carrying the calls followed by one tool message per call, and finally the
// assistant answer.
//
// Provider errors are returned unchanged, together with the messages
// persisted before the failure.
func (o *Orchestrator) Run(ctx context.Context, conversationID, text string) (produced []ai.Message, err error) {
	if err := o.begin(false); err != nil {
		return nil, err
	}

	ctx, span := observability.Start(ctx, o.observer, observability.SpanAgentTurn,
		observability.String(observability.AttrAgentConversationID, conversationID),
	)
	defer func() {
		o.finish(ctx, err)
		observability.EndWithError(span, err)
	}()
	o.countTurn(ctx, "run")

	turn, err := o.prepare(ctx, conversationID, text)
	if err != nil {
		return nil, err
	}
	produced = append(produced, turn.user)

	messages := turn.context
	tools := o.deps.Tools.AvailableTools()

	for iteration := 1; iteration <= o.maxIterations; iteration++ {
		o.setIteration(iteration)
		o.setStatus(ctx, Thinking)

		response, err := o.iterate(ctx, turn.provider, ai.ChatRequest{Messages: messages, Tools: tools}, iteration)
		if err != nil {
			return produced, err
		}

		if !response.HasToolCalls() {
			answer := ai.Message{Role: ai.RoleAssistant, Content: response.Content}
			if err := o.persist(ctx, conversationID, answer); err != nil {
				return produced, err
			}
			produced = append(produced, answer)
			span.SetAttributes(observability.Int(observability.AttrAgentIteration, iteration))
			return produced, o.touch(ctx, conversationID)
		}

		if err := validateToolCalls(response.ToolCalls); err != nil {
			return produced, err
		}

		request := ai.Message{Role: ai.RoleAssistant, Content: response.Content, ToolCalls: response.ToolCalls}
		if err := o.persist(ctx, conversationID, request); err != nil {
			return produced, err
		}
		messages = append(messages, request)
		produced = append(produced, request)

		// One at a time: each result directly follows its call in history.
		for _, call := range response.ToolCalls {
			o.setStatus(ctx, CallingTool(call.Name))
			result := ai.Message{
				Role:       ai.RoleTool,
				Content:    o.deps.Tools.Execute(ctx, call),
				ToolCallID: call.ID,
			}
			if err := o.persist(ctx, conversationID, result); err != nil {
				return produced, err
			}
			messages = append(messages, result)
			produced = append(produced, result)
		}
	}

	span.SetAttributes(observability.Int(observability.AttrAgentIteration, o.maxIterations))
	limitErr := &Error{Kind: KindMaxIterationsReached, Iterations: o.maxIterations}
	if err := o.touch(ctx, conversationID); err != nil {
		return produced, errors.Join(limitErr, err)
	}
	return produced, limitErr
}

// turnContext is what prepare hands to Run and Stream.
type turnContext struct {
	provider ai.Provider
	user     ai.Message
	context  []ai.Message
}

// prepare runs the checks shared by Run and Stream: provider, quota, history.
// History is read before the user message is stored so the provider sees the
// new message exactly once.
func (o *Orchestrator) prepare(ctx context.Context, conversationID, text string) (*turnContext, error) {
	provider, err := o.resolveProvider()
	if err != nil {
		return nil, err
	}
	if err := o.acquireQuota(ctx); err != nil {
		return nil, err
	}

	history, err := o.deps.Store.FetchRecentMessages(ctx, conversationID, o.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if err := o.deps.Store.EnsureConversation(ctx, conversationID, text); err != nil {
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}

	user := ai.Message{Role: ai.RoleUser, Content: text}
	if err := o.persist(ctx, conversationID, user); err != nil {
		return nil, err
	}

	history = replayable(history)
	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: o.prompt.Build(o.deps.Tools.SearchEnabled())})
	messages = append(messages, history...)
	messages = append(messages, user)

	return &turnContext{provider: provider, user: user, context: messages}, nil
}

// replayable drops system messages and any tool results at the head of the
// window whose assistant call fell outside the history limit. Backends reject
// a tool result without its call.
func replayable(history []ai.Message) []ai.Message {
	out := make([]ai.Message, 0, len(history))
	for _, message := range history {
		if message.Role == ai.RoleSystem {
			continue
		}
		if message.Role == ai.RoleTool && len(out) == 0 {
			continue
		}
		out = append(out, message)
	}
	return out
}

func validateToolCalls(calls []ai.ToolCall) error {
	for i, call := range calls {
		if call.ID == "" || call.Name == "" {
			return &Error{
				Kind: KindInvalidToolResponse,
				Err:  fmt.Errorf("tool call %d has id %q and name %q", i, call.ID, call.Name),
			}
		}
	}
	return nil
}

// iterate makes one provider call inside an agent.iteration span.
func (o *Orchestrator) iterate(ctx context.Context, provider ai.Provider, request ai.ChatRequest, iteration int) (*ai.ChatResponse, error) {
	ctx, span := observability.Start(ctx, o.observer, observability.SpanAgentIteration,
		observability.Int(observability.AttrAgentIteration, iteration),
		observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		observability.Int(observability.AttrRequestToolsCount, len(request.Tools)),
	)

	response, err := provider.SendMessage(ctx, request)
	if err == nil {
		span.SetAttributes(observability.Int(observability.AttrResponseToolCalls, len(response.ToolCalls)))
		for _, call := range response.ToolCalls {
			span.AddEvent(observability.EventToolCallReceived,
				observability.String(observability.AttrToolName, call.Name),
				observability.String(observability.AttrToolCallID, call.ID),
			)
		}
	}
	observability.EndWithError(span, err)

	if err == nil {
		o.record(ctx, response.Usage, len(response.ToolCalls))
	}
	if o.observer != nil {
		o.observer.Counter(observability.MetricAgentIterations).Add(ctx, 1)
	}
	return response, err
}

// record adds the usage and tool calls of one provider response to the
// session totals.
func (o *Orchestrator) record(ctx context.Context, usage *ai.Usage, toolCalls int) {
	o.mu.Lock()
	o.session.includeUsage(usage)
	o.session.ToolCalls += toolCalls
	o.mu.Unlock()

	if o.observer != nil && usage != nil && usage.TotalTokens > 0 {
		o.observer.Counter(observability.MetricLLMTokensTotal).Add(ctx, int64(usage.TotalTokens))
	}
}

// resolveProvider returns the cached provider while the resolved settings are
// unchanged and rebuilds it otherwise, so configuration reloads take effect
// on the next turn.
func (o *Orchestrator) resolveProvider() (ai.Provider, error) {
	if o.deps.Config == nil {
		return nil, &Error{Kind: KindNoProviderConfigured}
	}
	settings, err := o.deps.Config.Resolve()
	if err != nil {
		return nil, &Error{Kind: KindNoProviderConfigured, Err: err}
	}

	o.providerMu.Lock()
	defer o.providerMu.Unlock()

	if o.provider != nil && o.providerSettings == settings {
		return o.provider, nil
	}
	provider, err := o.factory(settings)
	if err != nil {
		return nil, &Error{Kind: KindNoProviderConfigured, Err: err}
	}
	o.provider = provider
	o.providerSettings = settings
	return provider, nil
}

func (o *Orchestrator) acquireQuota(ctx context.Context) error {
	if o.deps.Limiter == nil || o.deps.Config == nil || !o.deps.Config.QuotaLimited() {
		return nil
	}
	if o.deps.Limiter.TryAcquire() {
		return nil
	}
	if o.observer != nil {
		o.observer.Counter(observability.MetricQuotaDenied).Add(ctx, 1)
	}
	return &Error{Kind: KindQuotaExceeded, ResetDescription: o.deps.Limiter.ResetDescription()}
}

func (o *Orchestrator) persist(ctx context.Context, conversationID string, message ai.Message) error {
	if err := o.deps.Store.Append(ctx, conversationID, message); err != nil {
		return fmt.Errorf("persist %s message: %w", message.Role, err)
	}
	return nil
}

func (o *Orchestrator) touch(ctx context.Context, conversationID string) error {
	if err := o.deps.Store.Touch(ctx, conversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// begin claims the session for a new turn. streaming marks a Stream turn,
// the only kind Cancel applies to.
func (o *Orchestrator) begin(streaming bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.Status.Busy() {
		return ErrBusy
	}
	o.cancelled.Store(false)
	o.streaming = streaming
	o.session = Session{Status: Thinking}
	return nil
}

// finish releases the session. A failed turn leaves an Error status behind
// for Session to report; it does not block the next turn.
func (o *Orchestrator) finish(ctx context.Context, err error) {
	status := Idle
	if err != nil {
		status = Failed(err.Error())
	}
	o.setStatus(ctx, status)
}

func (o *Orchestrator) setIteration(iteration int) {
	o.mu.Lock()
	o.session.IterationCount = iteration
	o.mu.Unlock()
}

func (o *Orchestrator) setStatus(ctx context.Context, status Status) {
	o.mu.Lock()
	o.session.Status = status
	o.mu.Unlock()

	observability.AddEvent(ctx, observability.EventAgentStatus, observability.String(observability.AttrAgentStatus, status.String()))
	if o.observer != nil {
		o.observer.Debug(ctx, "Agent status changed", observability.String(observability.AttrAgentStatus, status.String()))
	}
	if o.listener != nil {
		o.listener(status)
	}
}

func (o *Orchestrator) countTurn(ctx context.Context, mode string) {
	if o.observer != nil {
		o.observer.Counter(observability.MetricAgentTurns).Add(ctx, 1, observability.String("mode", mode))
	}
}
