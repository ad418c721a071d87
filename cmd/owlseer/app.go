package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leofalp/owlseer/config"
	"github.com/leofalp/owlseer/patterns/agent"
	"github.com/leofalp/owlseer/providers/ai"
	"github.com/leofalp/owlseer/providers/ai/factory"
	"github.com/leofalp/owlseer/providers/ai/middleware"
	"github.com/leofalp/owlseer/providers/memory"
	"github.com/leofalp/owlseer/providers/memory/inmemory"
	"github.com/leofalp/owlseer/providers/memory/pgmemory"
	"github.com/leofalp/owlseer/providers/memory/sqlitememory"
	"github.com/leofalp/owlseer/providers/observability/slogobs"
	"github.com/leofalp/owlseer/providers/ratelimit"
	"github.com/leofalp/owlseer/providers/tool"
)

// app holds the wired dependencies of one CLI invocation.
type app struct {
	config       *config.Manager
	observer     *slogobs.Observer
	limiter      *ratelimit.Daily
	executor     *tool.Executor
	store        memory.ConversationStore
	orchestrator *agent.Orchestrator

	closers []func()
}

type appOptions struct {
	configPath string
	watch      bool
	onStatus   func(agent.Status)
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	observer := slogobs.New()
	manager, err := config.Load(opts.configPath, config.WithLogger(observer.Logger()))
	if err != nil {
		return nil, err
	}
	settings := manager.Settings()

	a := &app{
		config:   manager,
		observer: observer,
	}

	a.limiter = ratelimit.NewDaily(
		ratelimit.WithLimit(settings.Quota.DailyLimit),
		ratelimit.WithStateFile(quotaStateFile(settings.Quota)),
	)

	capability, err := settings.Search.NewSearch(a.observer)
	if err != nil {
		return nil, err
	}
	a.executor = tool.NewExecutor(tool.WithSearch(capability), tool.WithObserver(a.observer))
	manager.OnChange(a.reloadSearch)

	store, closeStore, err := openStore(ctx, settings.Memory)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	agentOpts := []agent.Option{
		agent.WithMaxIterations(settings.Agent.MaxIterations),
		agent.WithHistoryLimit(settings.Agent.HistoryLimit),
		agent.WithObserver(a.observer),
		agent.WithProviderFactory(a.buildProvider),
	}
	if opts.onStatus != nil {
		agentOpts = append(agentOpts, agent.WithStatusListener(opts.onStatus))
	}
	a.orchestrator = agent.New(agent.Dependencies{
		Config:  manager,
		Limiter: a.limiter,
		Tools:   a.executor,
		Store:   a.store,
	}, agentOpts...)

	if opts.watch {
		watchCtx, cancel := context.WithCancel(context.Background())
		a.closers = append(a.closers, cancel)
		manager.Watch(watchCtx)
	}
	return a, nil
}

// buildProvider reads the HTTP settings at build time, so a reload that
// changes the provider also picks up new timeouts.
func (a *app) buildProvider(settings ai.ProviderSettings) (ai.Provider, error) {
	httpSettings := a.config.Settings().HTTP
	opts := []factory.Option{
		factory.WithObserver(a.observer),
		factory.WithLogger(a.observer.Logger()),
		factory.WithTimeouts(httpSettings.Timeout, httpSettings.StreamTimeout),
	}
	if httpSettings.Retry.Enabled {
		opts = append(opts, factory.WithRetry(middleware.RetryConfig{
			MaxRetries:     httpSettings.Retry.MaxRetries,
			InitialBackoff: httpSettings.Retry.InitialBackoff,
		}))
	}
	return factory.New(settings, opts...)
}

// reloadSearch swaps the web search capability when its settings change. A
// bad provider name keeps the previous capability.
func (a *app) reloadSearch(old, new config.Settings) {
	if old.Search == new.Search {
		return
	}
	capability, err := new.Search.NewSearch(a.observer)
	if err != nil {
		a.observer.Logger().Warn("search reload failed, keeping previous capability", "error", err.Error())
		return
	}
	a.executor.SetSearch(capability)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func openStore(ctx context.Context, settings config.MemorySettings) (memory.ConversationStore, func(), error) {
	switch settings.Backend {
	case "", "memory":
		return inmemory.New(), func() {}, nil

	case "sqlite":
		store, err := sqlitememory.Open(settings.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, settings.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := pgmemory.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown memory backend %q", settings.Backend)
	}
}

// quotaStateFile keeps the daily counter across invocations. It falls back
// to the user config directory when the setting is empty.
func quotaStateFile(settings config.QuotaSettings) string {
	if settings.StateFile != "" {
		return settings.StateFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "owlseer", "quota.json")
}
