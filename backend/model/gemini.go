package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type GeminiProvider struct {
	client  *genai.Client
	options *ProviderOptions
}

var _ CompletionProvider = (*GeminiProvider)(nil)

func NewGeminiProvider(ctx context.Context, apiKey string, opts ...ProviderOption) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	options := resolveOptions(ProviderKindGemini, opts)

	config := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: options.HTTPClient,
	}
	if options.URL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: options.URL}
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client:  client,
		options: options,
	}, nil
}

func (p *GeminiProvider) Complete(ctx context.Context, systemRole, instruction string) (*Completion, error) {
	if err := validateInput(ProviderKindGemini, systemRole, instruction); err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemRole, genai.RoleUser),
	}
	if p.options.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*p.options.Temperature))
	}
	if p.options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(p.options.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.options.Model, genai.Text(instruction), config)
	if err != nil {
		return nil, p.parseError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, NewProviderError(ProviderKindGemini, ProviderErrorKindEmptyResponse, nil)
	}

	completion := &Completion{
		Text:     text,
		Model:    p.options.Model,
		Provider: ProviderKindGemini,
	}
	if resp.ModelVersion != "" {
		completion.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		completion.Usage = Usage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	return completion, nil
}

func (p *GeminiProvider) parseError(err error) *ProviderError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(ProviderKindGemini, apiErr.Code, nil, err)
	}
	return classifyTransport(ProviderKindGemini, err)
}
