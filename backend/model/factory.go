package model

import (
	"context"
	"fmt"
	"log/slog"
)

// APIKeyEnv returns the environment variable holding the API key of a provider.
func APIKeyEnv(kind ProviderKind) string {
	switch kind {
	case ProviderKindOpenAI:
		return "OPENAI_API_KEY"
	case ProviderKindAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderKindGemini:
		return "GEMINI_API_KEY"
	case ProviderKindDeepSeek:
		return "DEEPSEEK_API_KEY"
	}
	return ""
}

// NewProvider builds the client for kind and wraps it in a ResilientProvider.
func NewProvider(ctx context.Context, kind ProviderKind, apiKey string, logger *slog.Logger, opts ...ProviderOption) (CompletionProvider, error) {
	var (
		provider CompletionProvider
		err      error
	)

	switch kind {
	case ProviderKindOpenAI:
		provider, err = NewOpenAIProvider(apiKey, opts...)
	case ProviderKindAnthropic:
		provider, err = NewAnthropicProvider(apiKey, opts...)
	case ProviderKindGemini:
		provider, err = NewGeminiProvider(ctx, apiKey, opts...)
	case ProviderKindDeepSeek:
		provider, err = NewDeepSeekProvider(apiKey, opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q", kind)
	}
	if err != nil {
		return nil, err
	}

	return NewResilientProvider(kind, provider, logger, opts...), nil
}
