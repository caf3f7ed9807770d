package translation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/webnovels/internal/config"
)

// DefaultProviderName is used when TRANSLATOR_PROVIDER is unset or unknown.
const DefaultProviderName = "libre"

// Factory builds a provider from configuration.
type Factory func(cfg *config.Config) Provider

// Registry maps provider names to factories.
type Registry struct {
	factories       map[string]Factory
	defaultProvider string
}

func NewRegistry(defaultProvider string) *Registry {
	normalizedDefault := normalizeProviderName(defaultProvider)
	if normalizedDefault == "" {
		normalizedDefault = DefaultProviderName
	}

	return &Registry{
		factories:       make(map[string]Factory),
		defaultProvider: normalizedDefault,
	}
}

// NewDefaultRegistry registers the libre, deepl and openai adapters.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry(DefaultProviderName)
	_ = registry.Register("libre", func(cfg *config.Config) Provider {
		return NewLibreProvider(cfg.LibreTranslateURL, cfg.LibreTranslateAPIKey, cfg.TranslatorTimeout)
	})
	_ = registry.Register("deepl", func(cfg *config.Config) Provider {
		return NewDeepLProvider(cfg.DeepLAPIURL, cfg.DeepLAPIKey, cfg.TranslatorTimeout)
	})
	_ = registry.Register("openai", func(cfg *config.Config) Provider {
		return NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.TranslatorTimeout)
	})
	return registry
}

func (r *Registry) Register(name string, factory Factory) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if factory == nil {
		return fmt.Errorf("provider factory is nil")
	}
	normalized := normalizeProviderName(name)
	if normalized == "" {
		return fmt.Errorf("provider name is required")
	}
	r.factories[normalized] = factory
	return nil
}

// Resolve returns the registered name for raw, falling back to the default.
// matched is false when the fallback was used for a non-empty unknown name
// or when raw was blank.
func (r *Registry) Resolve(raw string) (name string, matched bool) {
	normalized := normalizeProviderName(raw)
	if _, ok := r.factories[normalized]; ok {
		return normalized, true
	}
	return r.defaultProvider, false
}

// Build constructs the provider selected by name. Unknown names use the default.
func (r *Registry) Build(cfg *config.Config, name string) (Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	resolved, _ := r.Resolve(name)
	factory, ok := r.factories[resolved]
	if !ok {
		return nil, fmt.Errorf("translation provider %q is not registered (available: %s)", resolved, strings.Join(r.ProviderNames(), ", "))
	}
	return factory(cfg), nil
}

func (r *Registry) ProviderNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProviderFromConfig selects the configured adapter and applies the optional rate limit.
func NewProviderFromConfig(cfg *config.Config, log zerolog.Logger) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	registry := NewDefaultRegistry()
	resolved, matched := registry.Resolve(cfg.TranslatorProvider)
	if !matched {
		log.Warn().
			Str("requested", cfg.TranslatorProvider).
			Str("provider", resolved).
			Msg("unknown translator provider; using default")
	}

	provider, err := registry.Build(cfg, resolved)
	if err != nil {
		return nil, err
	}
	return NewRateLimitedProvider(provider, cfg.TranslatorRateLimit), nil
}

func normalizeProviderName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
