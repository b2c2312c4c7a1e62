// Package llm provides centralized LLM configuration and client abstractions.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: chunk summaries, transitions
	TierLite ModelTier = "lite"
	// TierStandard is for moderate tasks: script improvement passes
	TierStandard ModelTier = "standard"
	// TierAdvanced is for script writing
	TierAdvanced ModelTier = "advanced"
	// TierFallback is tried once when a call on any other tier fails
	TierFallback ModelTier = "fallback"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the only provider currently implemented.
const ProviderGemini Provider = "gemini"

// Parameters are the sampling settings applied to a generation call.
// Zero values leave the provider default in place.
type Parameters struct {
	Temperature     float32 `yaml:"temperature" json:"temperature"`
	MaxOutputTokens int32   `yaml:"max_tokens" json:"max_tokens"`
	TopP            float32 `yaml:"top_p" json:"top_p"`
}

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// Params holds per-tier sampling settings; tiers without an entry use Default.
	Params  map[ModelTier]Parameters
	Default Parameters
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
			TierFallback: "gemini-2.5-flash",
		},
		Params: map[ModelTier]Parameters{
			TierLite:     {Temperature: 0.5, MaxOutputTokens: 256},
			TierStandard: {Temperature: 0.7, MaxOutputTokens: 8192},
		},
		Default: Parameters{Temperature: 0.7, MaxOutputTokens: 8192, TopP: 0.9},
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

// GetParameters returns the sampling settings for a tier.
func (c *Config) GetParameters(tier ModelTier) Parameters {
	if p, ok := c.Params[tier]; ok {
		return p
	}
	return c.Default
}

// HasFallback reports whether a dedicated fallback model is configured.
func (c *Config) HasFallback() bool {
	return c.Models[TierFallback] != ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider: c.Provider,
		Models:   make(map[ModelTier]string, len(c.Models)+1),
		Params:   make(map[ModelTier]Parameters, len(c.Params)),
		Default:  c.Default,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	for k, v := range c.Params {
		newConfig.Params[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}

// NoFallback as a fallback override disables the fallback retry.
const NoFallback = "none"

// WithOverrides applies operator model choices: model replaces the script
// writing tier and fallback replaces the fallback tier. Empty values keep the
// current models; NoFallback clears the fallback.
func (c *Config) WithOverrides(model, fallback string) *Config {
	out := c
	if model != "" {
		out = out.WithModel(TierAdvanced, model)
	}
	switch fallback {
	case "":
	case NoFallback:
		out = out.WithModel(TierFallback, "")
	default:
		out = out.WithModel(TierFallback, fallback)
	}
	return out
}
