package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/xpnc/internal/model"
)

// NewProvider creates a new provider based on configuration.
// An empty or "none" provider disables scoring calls and returns (nil, nil).
// A hosted provider without a key returns an error wrapping ErrMissingCredentials.
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))

	switch provider {
	case "xai", "grok":
		return NewXAIProvider(config)

	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "gemini", "google":
		return NewGeminiProvider(config)

	case "", "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: xai, openai, anthropic, ollama, gemini)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig and proxy settings to llm.Config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     cfg.LLM.Timeout,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		HTTPProxy:   cfg.HTTP.HTTPProxy,
		HTTPSProxy:  cfg.HTTP.HTTPSProxy,
		NoProxy:     cfg.HTTP.NoProxy,
	}
}

// APIKeyEnv returns the conventional environment variable holding the
// provider's key, or "" when the provider needs none
func APIKeyEnv(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "xai", "grok":
		return "XAI_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic", "claude":
		return "ANTHROPIC_API_KEY"
	case "gemini", "google":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}
