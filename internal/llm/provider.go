package llm

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/xpnc/internal/util"
)

// Provider defines the interface for text-generation providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one system+user exchange and returns the raw reply text.
	// Implementations make exactly one attempt; retries are the caller's decision.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input for a single completion
type CompletionRequest struct {
	// System is the fixed instruction document
	System string

	// User is the data-derived message
	User string

	// Model overrides the provider's configured model
	Model string

	// Temperature overrides the configured sampling temperature when > 0
	Temperature float64

	// MaxTokens limits the response length (0 = provider default)
	MaxTokens int
}

// CompletionResponse contains the provider's reply
type CompletionResponse struct {
	// Content is the raw reply text, untrimmed of any code fences
	Content string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "xai", "openai", "anthropic", "ollama", "gemini", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// Temperature for sampling
	Temperature float64

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	// Logger receives availability diagnostics (nil = discard)
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "xai",
		Timeout:     90,
		Temperature: 0.3,
	}
}

// DefaultTemperature keeps scoring output focused and repeatable
const DefaultTemperature = 0.3

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 90 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c Config) httpClient() *http.Client {
	return &http.Client{
		Timeout: c.timeout(),
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(c.HTTPProxy, c.HTTPSProxy, c.NoProxy),
		},
	}
}

// resolve fills request defaults from the provider config
func (c Config) resolve(req CompletionRequest, defaultModel string) CompletionRequest {
	if req.Model == "" {
		req.Model = c.Model
	}
	if req.Model == "" {
		req.Model = defaultModel
	}
	if req.Temperature <= 0 {
		req.Temperature = c.Temperature
	}
	if req.Temperature <= 0 {
		req.Temperature = DefaultTemperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.MaxTokens
	}
	return req
}
