package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicProvider struct {
	client  anthropic.Client
	options *ProviderOptions
}

var _ CompletionProvider = (*AnthropicProvider)(nil)

func NewAnthropicProvider(apiKey string, opts ...ProviderOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	options := resolveOptions(ProviderKindAnthropic, opts)

	clientOptions := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if options.URL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(options.URL))
	}
	if options.HTTPClient != nil {
		clientOptions = append(clientOptions, option.WithHTTPClient(options.HTTPClient))
	}

	return &AnthropicProvider{
		client:  anthropic.NewClient(clientOptions...),
		options: options,
	}, nil
}

func (p *AnthropicProvider) Complete(ctx context.Context, systemRole, instruction string) (*Completion, error) {
	if err := validateInput(ProviderKindAnthropic, systemRole, instruction); err != nil {
		return nil, err
	}

	maxTokens := p.options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.options.Model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemRole},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(instruction)),
		},
	}
	if p.options.Temperature != nil {
		// anthropic caps temperature at 1
		params.Temperature = anthropic.Float(min(*p.options.Temperature, 1))
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.parseError(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	result := strings.TrimSpace(text.String())
	if result == "" {
		return nil, NewProviderError(ProviderKindAnthropic, ProviderErrorKindEmptyResponse, nil)
	}

	return &Completion{
		Text:     result,
		Model:    string(resp.Model),
		Provider: ProviderKindAnthropic,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

func (p *AnthropicProvider) parseError(err error) *ProviderError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		pe := classifyStatus(ProviderKindAnthropic, apiErr.StatusCode, responseHeader(apiErr.Response), err)
		if apiErr.StatusCode == 529 && pe.RetryAfter == 0 {
			pe.RetryAfter = 10 * time.Second
		}
		return pe
	}
	return classifyTransport(ProviderKindAnthropic, err)
}
