package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/cohesion-org/deepseek-go"
	"github.com/cohesion-org/deepseek-go/constants"
)

type DeepSeekProvider struct {
	client  *deepseek.Client
	options *ProviderOptions
}

var _ CompletionProvider = (*DeepSeekProvider)(nil)

func NewDeepSeekProvider(apiKey string, opts ...ProviderOption) (*DeepSeekProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek API key is required")
	}

	options := resolveOptions(ProviderKindDeepSeek, opts)

	var client *deepseek.Client
	if options.URL != "" {
		client = deepseek.NewClient(apiKey, options.URL)
	} else {
		client = deepseek.NewClient(apiKey)
	}

	return &DeepSeekProvider{
		client:  client,
		options: options,
	}, nil
}

func (p *DeepSeekProvider) Complete(ctx context.Context, systemRole, instruction string) (*Completion, error) {
	if err := validateInput(ProviderKindDeepSeek, systemRole, instruction); err != nil {
		return nil, err
	}

	request := &deepseek.ChatCompletionRequest{
		Model: p.options.Model,
		Messages: []deepseek.ChatCompletionMessage{
			{Role: constants.ChatMessageRoleSystem, Content: systemRole},
			{Role: constants.ChatMessageRoleUser, Content: instruction},
		},
	}
	if p.options.Temperature != nil {
		request.Temperature = float32(*p.options.Temperature)
	}
	if p.options.MaxTokens > 0 {
		request.MaxTokens = int(p.options.MaxTokens)
	}

	resp, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		// the client reports HTTP failures as plain errors, so only transport failures
		// can be classified precisely
		return nil, classifyTransport(ProviderKindDeepSeek, err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewProviderError(ProviderKindDeepSeek, ProviderErrorKindEmptyResponse, fmt.Errorf("response contained no choices"))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, NewProviderError(ProviderKindDeepSeek, ProviderErrorKindEmptyResponse, nil)
	}

	return &Completion{
		Text:     text,
		Model:    p.options.Model,
		Provider: ProviderKindDeepSeek,
		Usage: Usage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
		},
	}, nil
}
