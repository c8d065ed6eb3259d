package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// XAIBaseURL is xAI's OpenAI-compatible endpoint
	XAIBaseURL = "https://api.x.ai/v1"

	// XAIDefaultModel is used when no model is configured for xai
	XAIDefaultModel = "grok-4-fast-reasoning"
)

// OpenAIProvider implements the Provider interface for OpenAI-compatible
// chat completion endpoints (OpenAI itself and xAI)
type OpenAIProvider struct {
	name         string
	defaultModel string
	client       *openai.Client
	config       Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	return newOpenAICompatible("openai", openai.GPT4oMini, "", config)
}

// NewXAIProvider creates a provider for xAI's Grok models
func NewXAIProvider(config Config) (*OpenAIProvider, error) {
	return newOpenAICompatible("xai", XAIDefaultModel, XAIBaseURL, config)
}

func newOpenAICompatible(name, defaultModel, defaultBaseURL string, config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingCredentials)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	switch {
	case config.BaseURL != "":
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	case defaultBaseURL != "":
		clientConfig.BaseURL = defaultBaseURL
	}
	clientConfig.HTTPClient = config.httpClient()

	return &OpenAIProvider{
		name:         name,
		defaultModel: defaultModel,
		client:       openai.NewClientWithConfig(clientConfig),
		config:       config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Listing models is the lightest authenticated call
	_, err := p.client.ListModels(ctx)
	if err != nil {
		p.config.logger().Warn("provider availability check failed",
			zap.String("provider", p.name), zap.Error(err))
		return false
	}
	return true
}

// Complete runs one chat completion
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	req = p.config.resolve(req, p.defaultModel)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, p.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &RequestError{Provider: p.name, Message: "no choices in response", Err: ErrEmptyReply}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, &RequestError{Provider: p.name, Message: "empty message content", Err: ErrEmptyReply}
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}

	return &CompletionResponse{
		Content:    content,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// wrapError preserves the upstream status and message
func (p *OpenAIProvider) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &RequestError{Provider: p.name, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &RequestError{Provider: p.name, StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}
	return &RequestError{Provider: p.name, Message: err.Error(), Err: err}
}
