// Package agent implements the conversation orchestrator: a bounded
// tool-calling loop on top of any [ai.Provider], plus a streaming reply path
// with cooperative cancellation.
//
// The orchestrator owns no global state. The provider configuration, the
// daily quota, the tool executor and the conversation store are injected
// through [Dependencies]:
//
//	orchestrator := agent.New(agent.Dependencies{
//		Config:  settings,
//		Limiter: ratelimit.NewDaily(),
//		Tools:   tool.NewExecutor(tool.WithSearch(tavilyClient)),
//		Store:   inmemory.New(),
//	})
//
//	messages, err := orchestrator.Run(ctx, conversationID, "Give me hooks for a tea video")
//
// One orchestrator handles one turn at a time. A call made while another is
// in flight fails with [ErrBusy].
package agent
