package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.5-flash"

// GeminiProvider implements the Provider interface for Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingCredentials)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: config.httpClient(),
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		config: config,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks if the provider is properly configured
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1})
	if err != nil {
		p.config.logger().Warn("provider availability check failed",
			zap.String("provider", p.Name()), zap.Error(err))
		return false
	}
	return true
}

// Complete runs one GenerateContent call with the system message as system instruction
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	req = p.config.resolve(req, geminiDefaultModel)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Temperature)),
		ResponseMIMEType:  "application/json",
	}
	if req.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctxWithTimeout, req.Model, genai.Text(req.User), genConfig)
	if err != nil {
		return nil, p.wrapError(err)
	}

	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return nil, &RequestError{Provider: p.Name(), Message: "no text in response", Err: ErrEmptyReply}
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	model := resp.ModelVersion
	if model == "" {
		model = req.Model
	}

	return &CompletionResponse{
		Content:    content,
		Model:      model,
		TokensUsed: tokens,
	}, nil
}

func (p *GeminiProvider) wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &RequestError{Provider: p.Name(), StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	return &RequestError{Provider: p.Name(), Message: err.Error(), Err: err}
}
