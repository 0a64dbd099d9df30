package model

// Config is the full application configuration, loaded through the
// flags > env > config file > defaults hierarchy.
type Config struct {
	Providers []ProviderConfig `yaml:"providers" mapstructure:"providers"`
	Budgets   BudgetConfig     `yaml:"budgets" mapstructure:"budgets"`
	Retrieval RetrievalConfig  `yaml:"retrieval" mapstructure:"retrieval"`
	Store     StoreConfig      `yaml:"store" mapstructure:"store"`
	HTTP      HTTPConfig       `yaml:"http" mapstructure:"http"`

	// RequireApproval forces every workflow through the human gate even when
	// verification passes on the first attempt.
	RequireApproval bool `yaml:"require_approval" mapstructure:"require_approval"`
}

// ProviderConfig describes one generation provider in priority order.
type ProviderConfig struct {
	Name      string  `yaml:"name" mapstructure:"name"`         // openai, anthropic, ollama
	Model     string  `yaml:"model" mapstructure:"model"`       // provider-specific model name
	APIKey    string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int     `yaml:"timeout" mapstructure:"timeout"` // seconds per call
	MaxTokens int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RateRPS   float64 `yaml:"rate_rps" mapstructure:"rate_rps"` // requests per second, 0 = unlimited
}

// BudgetConfig bounds every loop in the workflow.
type BudgetConfig struct {
	MaxCorrections  int `yaml:"max_corrections" mapstructure:"max_corrections"`   // Correcting -> Verifying cycles
	MaxDraftRewrite int `yaml:"max_draft_rewrites" mapstructure:"max_draft_rewrites"` // sensitive-draft rewrite loop
	ProviderRetries int `yaml:"provider_retries" mapstructure:"provider_retries"` // same-provider retries before failover
}

// RetrievalConfig bounds context selection.
type RetrievalConfig struct {
	MaxFacts     int `yaml:"max_facts" mapstructure:"max_facts"`
	CacheTTLSecs int `yaml:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`
}

// StoreConfig locates the SQLite database. An empty path selects the
// in-memory stores (useful for tests and demos).
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: []ProviderConfig{
			{Name: "openai", Model: "gpt-4o-mini", Timeout: 30, MaxTokens: 2000},
		},
		Budgets: BudgetConfig{
			MaxCorrections:  3,
			MaxDraftRewrite: 2,
			ProviderRetries: 1,
		},
		Retrieval: RetrievalConfig{
			MaxFacts:     12,
			CacheTTLSecs: 300,
		},
		Store: StoreConfig{Path: ""},
		HTTP:  HTTPConfig{Listen: ":8080"},

		RequireApproval: true,
	}
}
