// Package llm wraps the generative model providers behind one JSON-producing
// client, with models chosen by capability tier.
package llm

import "fmt"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for short classification tasks
	TierLite ModelTier = "lite"
	// TierStandard is for structured extraction from longer documents
	TierStandard ModelTier = "standard"
)

// Provider represents an LLM provider
type Provider string

const (
	// ProviderGemini is the Gemini API, authenticated with an API key
	ProviderGemini Provider = "gemini"
	// ProviderVertex is Vertex AI, authenticated with application default credentials
	ProviderVertex Provider = "vertex"
)

// ParseProvider validates a configured provider name.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderGemini, ProviderVertex:
		return p, nil
	case "":
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("unknown llm provider: %q", s)
	}
}

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// ProjectID and Location are used by ProviderVertex only.
	ProjectID string
	Location  string
}

// DefaultConfig returns the default Gemini API configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
		Location: "us-central1",
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}
