package model

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/furisto/promptbuilder/shared/resilience"
)

// ResilientProvider adds transport retries, circuit breaking and metrics around a
// provider. A retried call is still a single logical call for the caller.
type ResilientProvider struct {
	provider CompletionProvider
	kind     ProviderKind
	options  *ProviderOptions
	metrics  *providerMetrics
	logger   *slog.Logger
}

var _ CompletionProvider = (*ResilientProvider)(nil)

func NewResilientProvider(kind ProviderKind, provider CompletionProvider, logger *slog.Logger, opts ...ProviderOption) *ResilientProvider {
	options := resolveOptions(kind, opts)
	if options.RetryConfig == nil {
		options.RetryConfig = resilience.NoRetry()
	}
	if options.RetryConfig.MaxAttempts == 0 {
		options.RetryConfig.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ResilientProvider{
		provider: provider,
		kind:     kind,
		options:  options,
		metrics:  newProviderMetrics(options.Metrics),
		logger:   logger,
	}
}

func (p *ResilientProvider) Complete(ctx context.Context, systemRole, instruction string) (*Completion, error) {
	started := time.Now()

	if cb := p.options.CircuitBreaker; cb != nil && !cb.Allow() {
		err := &ProviderError{
			Provider: p.kind,
			Kind:     ProviderErrorKindUnavailable,
			Err:      resilience.ErrCircuitOpen,
		}
		p.metrics.RecordRequest(p.kind, started, err)
		return nil, err
	}

	var attempts uint
	strategy := p.backOff()
	operation := func() (*Completion, error) {
		attempts++
		completion, err := p.provider.Complete(ctx, systemRole, instruction)
		if err == nil {
			return completion, nil
		}

		pe := classifyTransport(p.kind, err)
		retryable, retryAfter := pe.Retryable()
		if !retryable {
			return nil, backoff.Permanent(pe)
		}
		strategy.retryAfter = retryAfter
		return nil, pe
	}

	completion, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(strategy),
		backoff.WithMaxTries(p.options.RetryConfig.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.metrics.IncrementRetries(p.kind)
			p.logger.DebugContext(ctx, "retrying completion", "provider", p.kind, "attempt", attempts, "delay", next, "error", err)
			for _, hook := range p.options.RetryHooks {
				hook.OnRetryAttempt(ctx, attempts, err, next)
			}
		}),
	)

	if cb := p.options.CircuitBreaker; cb != nil {
		cb.RecordResult(breakerResult(err))
	}

	total := time.Since(started)
	if err != nil {
		err = classifyTransport(p.kind, err)
		for _, hook := range p.options.RetryHooks {
			hook.OnRetryFailure(ctx, err, attempts, total)
		}
		p.metrics.RecordRequest(p.kind, started, err)
		p.logger.WarnContext(ctx, "completion failed", "provider", p.kind, "attempts", attempts, "duration", total, "error", err)
		return nil, err
	}

	for _, hook := range p.options.RetryHooks {
		hook.OnRetrySuccess(ctx, attempts, total)
	}
	p.metrics.RecordRequest(p.kind, started, nil)
	p.metrics.RecordUsage(p.kind, completion.Usage)
	p.logger.DebugContext(ctx, "completion succeeded", "provider", p.kind, "model", completion.Model, "attempts", attempts, "duration", total)

	return completion, nil
}

func (p *ResilientProvider) backOff() *retryStrategy {
	cfg := p.options.RetryConfig
	b := backoff.NewExponentialBackOff()
	if cfg.InitialDelay > 0 {
		b.InitialInterval = cfg.InitialDelay
	}
	if cfg.MaxDelay > 0 {
		b.MaxInterval = cfg.MaxDelay
	}
	if cfg.BackoffMultiplier > 0 {
		b.Multiplier = cfg.BackoffMultiplier
	}
	return &retryStrategy{
		exponential:        b,
		useProviderBackoff: cfg.UseProviderBackoff,
		maxDelay:           cfg.MaxDelay,
	}
}

// retryStrategy prefers the delay requested by the provider, capped at maxDelay, and
// falls back to exponential backoff otherwise.
type retryStrategy struct {
	exponential        *backoff.ExponentialBackOff
	useProviderBackoff bool
	maxDelay           time.Duration
	retryAfter         time.Duration
}

func (s *retryStrategy) NextBackOff() time.Duration {
	next := s.exponential.NextBackOff()
	if s.useProviderBackoff && s.retryAfter > 0 {
		next = s.retryAfter
		if s.maxDelay > 0 && next > s.maxDelay {
			next = s.maxDelay
		}
	}
	s.retryAfter = 0
	return next
}

func (s *retryStrategy) Reset() {
	s.exponential.Reset()
	s.retryAfter = 0
}

// breakerResult keeps caller mistakes and cancellations from tripping the breaker.
func breakerResult(err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case ProviderErrorKindInvalidRequest, ProviderErrorKindAuthentication, ProviderErrorKindCanceled:
			return nil
		}
	}
	return err
}
