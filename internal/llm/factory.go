package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/jobforge/jobforge/internal/model"
)

// NewProvider creates a new generation provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		if config.APIKey == "" {
			config.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		if config.APIKey == "" {
			config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return NewAnthropicProvider(config)

	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ProvidersFromConfig builds the provider list in configured priority order.
func ProvidersFromConfig(cfg *model.Config) ([]Provider, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no generation providers configured")
	}
	providers := make([]Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		p, err := NewProvider(ConfigFrom(pc))
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}
