package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jobforge/jobforge/internal/model"
)

// Provider defines the interface for generation providers. Providers are
// consumed as black-box request/response services; they may fail or time out.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate runs one completion and returns the raw text
	Generate(ctx context.Context, req Request) (*Response, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Request contains the input for one generation call.
type Request struct {
	// System is the system instruction for the call
	System string

	// Prompt is the user-facing prompt body
	Prompt string

	// SchemaHint, when non-empty, asks the provider for JSON matching the
	// given shape. Providers that support response formats enforce it; the
	// rest carry it as a prompt suffix.
	SchemaHint string

	// Model overrides the configured model for this call
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls sampling. Grounding comparisons run at 0 so
	// verification stays deterministic.
	Temperature float32
}

// Response contains one provider completion.
type Response struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds per-provider configuration.
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests, in seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int
}

// ConfigFrom converts a model.ProviderConfig entry.
func ConfigFrom(pc model.ProviderConfig) Config {
	return Config{
		Provider:  pc.Name,
		Model:     pc.Model,
		APIKey:    pc.APIKey,
		BaseURL:   pc.BaseURL,
		Timeout:   pc.Timeout,
		MaxTokens: pc.MaxTokens,
	}
}

// classifyErr maps a raw provider failure onto the workflow error taxonomy
// so the router can treat timeouts and hard errors uniformly.
func classifyErr(provider string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w: %v", provider, model.ErrProviderTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", provider, model.ErrProviderError, err)
}
