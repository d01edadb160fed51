package generation

import (
	"fmt"
	"time"
)

// FactoryConfig holds the parameters needed to create a Generator. This is
// defined in the generation package to avoid importing the config package,
// keeping it free of infrastructure dependencies.
type FactoryConfig struct {
	// Provider is the provider name ("openai" or "anthropic").
	Provider string
	// Temperature is the model temperature setting.
	Temperature float64
	// Timeout is the timeout for provider API calls.
	Timeout time.Duration
	// MaxRetries is the maximum number of retries for transient failures.
	MaxRetries int
	// RateLimitRPS caps provider requests per second (0 disables limiting).
	RateLimitRPS float64
	// RateLimitBurst is the limiter burst size.
	RateLimitBurst int
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIConfig
	// Anthropic contains Anthropic-specific settings.
	Anthropic AnthropicConfig
}

// NewGenerator creates a Generator based on the configuration. Supports
// "openai" and "anthropic" providers. Returns an error for unsupported or
// empty provider values.
func NewGenerator(cfg FactoryConfig) (Generator, error) {
	var gen Generator
	switch cfg.Provider {
	case "openai":
		gen = NewOpenAIProvider(cfg.OpenAI, cfg.Temperature, cfg.Timeout, cfg.MaxRetries)
	case "anthropic":
		gen = NewAnthropicProvider(cfg.Anthropic, cfg.Temperature, cfg.Timeout, cfg.MaxRetries)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %q", cfg.Provider)
	}
	return WithRateLimit(gen, cfg.RateLimitRPS, cfg.RateLimitBurst), nil
}
