package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIProvider struct {
	client  openai.Client
	options *ProviderOptions
}

var _ CompletionProvider = (*OpenAIProvider)(nil)

func NewOpenAIProvider(apiKey string, opts ...ProviderOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	options := resolveOptions(ProviderKindOpenAI, opts)

	clientOptions := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are handled by ResilientProvider
		option.WithMaxRetries(0),
	}
	if options.URL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(options.URL))
	}
	if options.HTTPClient != nil {
		clientOptions = append(clientOptions, option.WithHTTPClient(options.HTTPClient))
	}

	return &OpenAIProvider{
		client:  openai.NewClient(clientOptions...),
		options: options,
	}, nil
}

func (p *OpenAIProvider) Complete(ctx context.Context, systemRole, instruction string) (*Completion, error) {
	if err := validateInput(ProviderKindOpenAI, systemRole, instruction); err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.options.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemRole),
			openai.UserMessage(instruction),
		},
	}
	if p.options.Temperature != nil {
		params.Temperature = openai.Float(*p.options.Temperature)
	}
	if p.options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(p.options.MaxTokens)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, p.parseError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewProviderError(ProviderKindOpenAI, ProviderErrorKindEmptyResponse, fmt.Errorf("response contained no choices"))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, NewProviderError(ProviderKindOpenAI, ProviderErrorKindEmptyResponse, nil)
	}

	return &Completion{
		Text:     text,
		Model:    resp.Model,
		Provider: ProviderKindOpenAI,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func (p *OpenAIProvider) parseError(err error) *ProviderError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(ProviderKindOpenAI, apiErr.StatusCode, responseHeader(apiErr.Response), err)
	}
	return classifyTransport(ProviderKindOpenAI, err)
}
