// Package config loads owlseer settings with viper. Values come from an
// optional YAML, JSON or TOML file and from OWLSEER_ environment variables
// ("agent.max_iterations" is read from OWLSEER_AGENT_MAX_ITERATIONS).
//
// A Manager implements agent.ProviderConfig and can watch its file for
// changes, so edits to the active provider take effect on the next turn.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/leofalp/owlseer/providers/ai"
)

const (
	ModeBuiltin = "builtin"
	ModeCustom  = "custom"

	EnvPrefix = "OWLSEER"
)

var (
	// ErrNotConfigured is returned by Resolve when the active mode has no key.
	ErrNotConfigured = errors.New("provider is not configured")
	ErrUnknownMode   = errors.New("unknown llm mode")
	// ErrUnknownProvider is returned for a custom provider outside the
	// supported backend families.
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// Settings is the full configuration tree.
type Settings struct {
	LLM     LLMSettings     `mapstructure:"llm"`
	Builtin BuiltinSettings `mapstructure:"builtin"`
	Custom  CustomSettings  `mapstructure:"custom"`
	Search  SearchSettings  `mapstructure:"search"`
	Quota   QuotaSettings   `mapstructure:"quota"`
	Agent   AgentSettings   `mapstructure:"agent"`
	HTTP    HTTPSettings    `mapstructure:"http"`
	Memory  MemorySettings  `mapstructure:"memory"`
}

type LLMSettings struct {
	// Mode is "builtin" (shared key, quota limited) or "custom" (own key).
	Mode string `mapstructure:"mode"`
}

// BuiltinSettings describe the shared OpenAI-compatible endpoint.
type BuiltinSettings struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// CustomSettings describe a user-supplied provider. Empty BaseURL and Model
// fall back to the provider defaults.
type CustomSettings struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
}

type SearchSettings struct {
	// Provider is "tavily", "serpapi" or empty to pick whichever has a key.
	Provider      string `mapstructure:"provider"`
	TavilyAPIKey  string `mapstructure:"tavily_api_key"`
	SerpAPIAPIKey string `mapstructure:"serpapi_api_key"`
}

type QuotaSettings struct {
	DailyLimit int    `mapstructure:"daily_limit"`
	StateFile  string `mapstructure:"state_file"`
}

type AgentSettings struct {
	MaxIterations int `mapstructure:"max_iterations"`
	HistoryLimit  int `mapstructure:"history_limit"`
}

type HTTPSettings struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
	Retry         RetrySettings `mapstructure:"retry"`
}

type RetrySettings struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

// MemorySettings select the conversation store: "memory", "sqlite" (Path) or
// "postgres" (DSN).
type MemorySettings struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
}

// defaults lists every key, so that each one can be overridden from the
// environment even when no file mentions it.
var defaults = map[string]any{
	"llm.mode":                   ModeBuiltin,
	"builtin.api_key":            "",
	"builtin.base_url":           "https://api.moonshot.cn/v1",
	"builtin.model":              "moonshot-v1-auto",
	"custom.provider":            "",
	"custom.api_key":             "",
	"custom.base_url":            "",
	"custom.model":               "",
	"search.provider":            "",
	"search.tavily_api_key":      "",
	"search.serpapi_api_key":     "",
	"quota.daily_limit":          10,
	"quota.state_file":           "",
	"agent.max_iterations":       5,
	"agent.history_limit":        20,
	"http.timeout":               60 * time.Second,
	"http.stream_timeout":        300 * time.Second,
	"http.retry.enabled":         false,
	"http.retry.max_retries":     3,
	"http.retry.initial_backoff": time.Second,
	"memory.backend":             "memory",
	"memory.path":                "owlseer.db",
	"memory.dsn":                 "",
}

// Manager holds the current settings. It is safe for concurrent use.
type Manager struct {
	v      *viper.Viper
	logger *slog.Logger

	mu       sync.RWMutex
	settings Settings
	watchers []func(old, new Settings)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for background reload failures. The default
// is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Load reads path, if not empty, on top of the defaults and the environment.
func Load(path string, opts ...Option) (*Manager, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	m := &Manager{v: v, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	settings, err := m.decode()
	if err != nil {
		return nil, err
	}
	m.settings = settings
	return m, nil
}

// Settings returns a copy of the current settings.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Resolve returns the provider settings of the active mode.
func (m *Manager) Resolve() (ai.ProviderSettings, error) {
	return m.Settings().Resolve()
}

// QuotaLimited reports whether the shared builtin key is in use.
func (m *Manager) QuotaLimited() bool {
	return m.Settings().LLM.Mode == ModeBuiltin
}

// Resolve maps the active mode to provider settings.
func (s Settings) Resolve() (ai.ProviderSettings, error) {
	switch s.LLM.Mode {
	case ModeBuiltin:
		if s.Builtin.APIKey == "" {
			return ai.ProviderSettings{}, fmt.Errorf("builtin mode: %w (set %s_BUILTIN_API_KEY)", ErrNotConfigured, EnvPrefix)
		}
		// The shared endpoint speaks the chat completions protocol.
		return ai.ProviderSettings{
			Kind:    ai.KindKimi,
			APIKey:  s.Builtin.APIKey,
			BaseURL: s.Builtin.BaseURL,
			Model:   s.Builtin.Model,
		}.WithDefaults(), nil

	case ModeCustom:
		kind := ai.ProviderKind(strings.ToLower(strings.TrimSpace(s.Custom.Provider)))
		if kind == "" {
			return ai.ProviderSettings{}, fmt.Errorf("custom mode: %w (no provider selected)", ErrNotConfigured)
		}
		if kind.DefaultBaseURL() == "" {
			return ai.ProviderSettings{}, fmt.Errorf("%w %q", ErrUnknownProvider, s.Custom.Provider)
		}
		if s.Custom.APIKey == "" {
			return ai.ProviderSettings{}, fmt.Errorf("custom mode: %w (no API key for %s)", ErrNotConfigured, kind)
		}
		return ai.ProviderSettings{
			Kind:    kind,
			APIKey:  s.Custom.APIKey,
			BaseURL: s.Custom.BaseURL,
			Model:   s.Custom.Model,
		}.WithDefaults(), nil

	default:
		return ai.ProviderSettings{}, fmt.Errorf("%w %q", ErrUnknownMode, s.LLM.Mode)
	}
}

// OnChange registers callback for settings changes picked up by Watch.
func (m *Manager) OnChange(callback func(old, new Settings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, callback)
}

// Watch reloads the config file when it changes. Bursts of events are
// debounced by 100ms. Callbacks stop firing once ctx is done. Watch is a
// no-op when Load was called without a file.
func (m *Manager) Watch(ctx context.Context) {
	if m.v.ConfigFileUsed() == "" {
		return
	}

	var (
		debounceTimer *time.Timer
		debounceMu    sync.Mutex
	)
	m.v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		debounceMu.Lock()
		defer debounceMu.Unlock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
			if ctx.Err() != nil {
				return
			}
			if err := m.Reload(); err != nil {
				m.logger.Warn("config reload failed, keeping previous settings",
					"file", m.v.ConfigFileUsed(), "error", err.Error())
			}
		})
	})
	m.v.WatchConfig()
}

// Reload re-reads the config file and notifies the OnChange callbacks if
// anything changed. A file that fails to parse leaves the settings untouched.
func (m *Manager) Reload() error {
	old := m.Settings()

	m.mu.Lock()
	if m.v.ConfigFileUsed() != "" {
		if err := m.v.ReadInConfig(); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("reload config: %w", err)
		}
	}
	settings, err := m.decode()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.settings = settings
	watchers := append([]func(old, new Settings){}, m.watchers...)
	m.mu.Unlock()

	if reflect.DeepEqual(old, settings) {
		return nil
	}
	for _, callback := range watchers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("config change callback panicked", "panic", fmt.Sprint(r))
				}
			}()
			callback(old, settings)
		}()
	}
	return nil
}

func (m *Manager) decode() (Settings, error) {
	var settings Settings
	if err := m.v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	return settings, nil
}
