package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/furisto/promptbuilder/shared"
	"github.com/furisto/promptbuilder/shared/resilience"
)

const defaultMaxTokens = 2048

type ProviderOptions struct {
	URL            string
	Model          string
	Temperature    *float64
	MaxTokens      int64
	HTTPClient     *http.Client
	RetryConfig    *resilience.RetryConfig
	RetryHooks     []resilience.RetryHook
	CircuitBreaker *resilience.CircuitBreaker
	Metrics        *prometheus.Registry
}

type ProviderOption func(*ProviderOptions)

func WithURL(url string) ProviderOption {
	return func(options *ProviderOptions) {
		options.URL = url
	}
}

func WithModel(model string) ProviderOption {
	return func(options *ProviderOptions) {
		options.Model = model
	}
}

func WithTemperature(temperature float64) ProviderOption {
	return func(options *ProviderOptions) {
		options.Temperature = &temperature
	}
}

func WithMaxTokens(maxTokens int64) ProviderOption {
	return func(options *ProviderOptions) {
		options.MaxTokens = maxTokens
	}
}

func WithHTTPClient(client *http.Client) ProviderOption {
	return func(options *ProviderOptions) {
		options.HTTPClient = client
	}
}

func WithRetryConfig(retryConfig *resilience.RetryConfig) ProviderOption {
	return func(options *ProviderOptions) {
		options.RetryConfig = retryConfig
	}
}

func WithRetryHooks(hooks ...resilience.RetryHook) ProviderOption {
	return func(options *ProviderOptions) {
		options.RetryHooks = append(options.RetryHooks, hooks...)
	}
}

func WithCircuitBreaker(circuitBreaker *resilience.CircuitBreaker) ProviderOption {
	return func(options *ProviderOptions) {
		options.CircuitBreaker = circuitBreaker
	}
}

func WithMetrics(metrics *prometheus.Registry) ProviderOption {
	return func(o *ProviderOptions) {
		o.Metrics = metrics
	}
}

func DefaultProviderOptions(provider ProviderKind) *ProviderOptions {
	return &ProviderOptions{
		Model:          DefaultModel(provider),
		MaxTokens:      defaultMaxTokens,
		RetryConfig:    resilience.NoRetry(),
		CircuitBreaker: resilience.NewCircuitBreaker(string(provider), 5, 10*time.Second),
	}
}

func resolveOptions(provider ProviderKind, opts []ProviderOption) *ProviderOptions {
	options := DefaultProviderOptions(provider)
	for _, opt := range opts {
		opt(options)
	}
	if options.Model == "" {
		options.Model = DefaultModel(provider)
	}
	return options
}

//go:generate mockgen -destination=../mocks/completion_provider_mock.go -package=mocks . CompletionProvider
type CompletionProvider interface {
	// Complete sends a single system role plus instruction and returns the text response.
	Complete(ctx context.Context, systemRole, instruction string) (*Completion, error)
}

type Completion struct {
	Text     string
	Model    string
	Provider ProviderKind
	Usage    Usage
}

type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

var million = decimal.NewFromInt(1_000_000)

// Cost estimates the USD cost of the usage under the given pricing.
func (u Usage) Cost(pricing ModelPricing) decimal.Decimal {
	input := pricing.Input.Mul(decimal.NewFromInt(u.InputTokens))
	output := pricing.Output.Mul(decimal.NewFromInt(u.OutputTokens))
	return input.Add(output).Div(million)
}

type ProviderError struct {
	Provider   ProviderKind
	Kind       ProviderErrorKind
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func NewProviderError(provider ProviderKind, kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     kind,
		Err:      err,
	}
}

func (pe *ProviderError) Message() string {
	switch pe.Kind {
	case ProviderErrorKindInvalidRequest:
		return "Invalid request format or content"
	case ProviderErrorKindAuthentication:
		return "Authentication failed, check the API key"
	case ProviderErrorKindRateLimitExceeded:
		if pe.RetryAfter > 0 {
			return fmt.Sprintf("Rate limit or quota exceeded, retry after %s", pe.RetryAfter)
		}
		return "Rate limit or quota exceeded"
	case ProviderErrorKindOverloaded:
		return "API temporarily overloaded"
	case ProviderErrorKindInternal:
		return "Internal server error"
	case ProviderErrorKindTimeout:
		return "Request timeout"
	case ProviderErrorKindCanceled:
		return "Request canceled"
	case ProviderErrorKindEmptyResponse:
		return "Empty response from model"
	case ProviderErrorKindUnavailable:
		return "Provider temporarily unavailable"
	default:
		return "Unknown error"
	}
}

// Retryable reports whether repeating the same call may succeed, and the delay the
// provider asked for, if any.
func (pe *ProviderError) Retryable() (bool, time.Duration) {
	switch pe.Kind {
	case ProviderErrorKindRateLimitExceeded:
		return true, pe.RetryAfter
	case ProviderErrorKindOverloaded,
		ProviderErrorKindInternal,
		ProviderErrorKindTimeout,
		ProviderErrorKindUnavailable:
		return true, pe.RetryAfter
	default:
		return false, 0
	}
}

func (pe *ProviderError) Error() string {
	if pe.Err != nil {
		return fmt.Sprintf("%s: %s: %s", pe.Provider, pe.Message(), pe.Err.Error())
	}
	return fmt.Sprintf("%s: %s", pe.Provider, pe.Message())
}

func (pe *ProviderError) Unwrap() error {
	return pe.Err
}

func (pe *ProviderError) ErrorSource() shared.ErrorSource {
	return shared.ErrorSourceProvider
}

type ProviderErrorKind string

const (
	ProviderErrorKindInvalidRequest    ProviderErrorKind = "invalid_request"
	ProviderErrorKindAuthentication    ProviderErrorKind = "authentication"
	ProviderErrorKindRateLimitExceeded ProviderErrorKind = "rate_limit_exceeded"
	ProviderErrorKindOverloaded        ProviderErrorKind = "overloaded"
	ProviderErrorKindInternal          ProviderErrorKind = "internal"
	ProviderErrorKindTimeout           ProviderErrorKind = "timeout"
	ProviderErrorKindCanceled          ProviderErrorKind = "canceled"
	ProviderErrorKindEmptyResponse     ProviderErrorKind = "empty_response"
	ProviderErrorKindUnavailable       ProviderErrorKind = "unavailable"
	ProviderErrorKindUnknown           ProviderErrorKind = "unknown"
)

// classifyStatus maps an HTTP status of a failed API call onto the error taxonomy.
func classifyStatus(provider ProviderKind, status int, header http.Header, err error) *ProviderError {
	pe := &ProviderError{
		Provider:   provider,
		StatusCode: status,
		Err:        err,
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		pe.Kind = ProviderErrorKindAuthentication
	case status == http.StatusTooManyRequests:
		pe.Kind = ProviderErrorKindRateLimitExceeded
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		pe.Kind = ProviderErrorKindTimeout
	case status == http.StatusServiceUnavailable || status == 529:
		pe.Kind = ProviderErrorKindOverloaded
	case status >= 500:
		pe.Kind = ProviderErrorKindInternal
	case status >= 400:
		pe.Kind = ProviderErrorKindInvalidRequest
	default:
		pe.Kind = ProviderErrorKindUnknown
	}

	if header != nil {
		if retryAfter := header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				pe.RetryAfter = time.Duration(seconds) * time.Second
			}
		}
	}

	return pe
}

func responseHeader(resp *http.Response) http.Header {
	if resp == nil {
		return nil
	}
	return resp.Header
}

// classifyTransport handles failures that never produced an HTTP response.
func classifyTransport(provider ProviderKind, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	switch {
	case errors.Is(err, context.Canceled):
		return NewProviderError(provider, ProviderErrorKindCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(provider, ProviderErrorKindTimeout, err)
	default:
		return NewProviderError(provider, ProviderErrorKindUnknown, err)
	}
}

func validateInput(provider ProviderKind, systemRole, instruction string) error {
	if systemRole == "" {
		return NewProviderError(provider, ProviderErrorKindInvalidRequest, fmt.Errorf("system role is required"))
	}
	if instruction == "" {
		return NewProviderError(provider, ProviderErrorKindInvalidRequest, fmt.Errorf("instruction is required"))
	}
	return nil
}
