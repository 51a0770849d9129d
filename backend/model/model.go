package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Model struct {
	ID            uuid.UUID
	Provider      ProviderKind
	Name          string
	Capabilities  []Capability
	ContextWindow int64
	Pricing       ModelPricing
}

type ProviderKind string

const (
	ProviderKindOpenAI    ProviderKind = "openai"
	ProviderKindAnthropic ProviderKind = "anthropic"
	ProviderKindGemini    ProviderKind = "gemini"
	ProviderKindDeepSeek  ProviderKind = "deepseek"
)

func ProviderKinds() []ProviderKind {
	return []ProviderKind{ProviderKindOpenAI, ProviderKindAnthropic, ProviderKindGemini, ProviderKindDeepSeek}
}

func ParseProviderKind(s string) (ProviderKind, error) {
	for _, kind := range ProviderKinds() {
		if string(kind) == s {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unsupported provider %q", s)
}

type Capability string

const (
	CapabilityImage            Capability = "image"
	CapabilityPromptCache      Capability = "prompt_cache"
	CapabilityExtendedThinking Capability = "extended_thinking"
)

// ModelPricing is expressed in USD per million tokens.
type ModelPricing struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

func price(input, output string) ModelPricing {
	return ModelPricing{
		Input:  decimal.RequireFromString(input),
		Output: decimal.RequireFromString(output),
	}
}

var catalog = []Model{
	{
		ID:            uuid.MustParse("01960000-0001-7000-8000-000000000001"),
		Provider:      ProviderKindOpenAI,
		Name:          "gpt-4",
		ContextWindow: 8192,
		Pricing:       price("30", "60"),
	},
	{
		ID:            uuid.MustParse("01960000-0002-7000-8000-000000000002"),
		Provider:      ProviderKindOpenAI,
		Name:          "gpt-4o",
		Capabilities:  []Capability{CapabilityImage},
		ContextWindow: 128000,
		Pricing:       price("2.5", "10"),
	},
	{
		ID:            uuid.MustParse("01960000-0003-7000-8000-000000000003"),
		Provider:      ProviderKindOpenAI,
		Name:          "gpt-4o-mini",
		Capabilities:  []Capability{CapabilityImage},
		ContextWindow: 128000,
		Pricing:       price("0.15", "0.6"),
	},
	{
		ID:            uuid.MustParse("01960000-0004-7000-8000-000000000004"),
		Provider:      ProviderKindOpenAI,
		Name:          "gpt-4-turbo",
		Capabilities:  []Capability{CapabilityImage},
		ContextWindow: 128000,
		Pricing:       price("10", "30"),
	},
	{
		ID:       uuid.MustParse("0195b4e2-45b6-76df-b208-f48b7b0d5f51"),
		Provider: ProviderKindAnthropic,
		Name:     "claude-3-7-sonnet-latest",
		Capabilities: []Capability{
			CapabilityImage,
			CapabilityPromptCache,
			CapabilityExtendedThinking,
		},
		ContextWindow: 200000,
		Pricing:       price("3", "15"),
	},
	{
		ID:            uuid.MustParse("0195b4e2-7d71-79e0-97da-3045fb1ffc3e"),
		Provider:      ProviderKindAnthropic,
		Name:          "claude-3-5-haiku-latest",
		Capabilities:  []Capability{CapabilityPromptCache},
		ContextWindow: 200000,
		Pricing:       price("0.8", "4"),
	},
	{
		ID:            uuid.MustParse("01970000-0001-7000-8000-000000000001"),
		Provider:      ProviderKindGemini,
		Name:          "gemini-2.0-flash",
		Capabilities:  []Capability{CapabilityImage},
		ContextWindow: 1048576,
		Pricing:       price("0.1", "0.4"),
	},
	{
		ID:            uuid.MustParse("01970000-0002-7000-8000-000000000002"),
		Provider:      ProviderKindGemini,
		Name:          "gemini-1.5-pro",
		Capabilities:  []Capability{CapabilityImage},
		ContextWindow: 2097152,
		Pricing:       price("1.25", "5"),
	},
	{
		ID:            uuid.MustParse("01980000-0001-7000-8000-000000000001"),
		Provider:      ProviderKindDeepSeek,
		Name:          "deepseek-chat",
		ContextWindow: 65536,
		Pricing:       price("0.27", "1.1"),
	},
	{
		ID:            uuid.MustParse("01980000-0002-7000-8000-000000000002"),
		Provider:      ProviderKindDeepSeek,
		Name:          "deepseek-reasoner",
		Capabilities:  []Capability{CapabilityExtendedThinking},
		ContextWindow: 65536,
		Pricing:       price("0.55", "2.19"),
	},
}

func SupportedModels(provider ProviderKind) []Model {
	var models []Model
	for _, m := range catalog {
		if m.Provider == provider {
			models = append(models, m)
		}
	}
	return models
}

// DefaultModel is the model used when none is configured. It is the first catalog
// entry of the provider.
func DefaultModel(provider ProviderKind) string {
	models := SupportedModels(provider)
	if len(models) == 0 {
		return ""
	}
	return models[0].Name
}

func LookupModel(provider ProviderKind, name string) (Model, bool) {
	for _, m := range SupportedModels(provider) {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}
