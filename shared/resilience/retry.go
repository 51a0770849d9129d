package resilience

import (
	"context"
	"time"
)

// RetryConfig controls transport level retries of a single provider call.
// MaxAttempts of 1 disables retries.
type RetryConfig struct {
	MaxAttempts        uint
	InitialDelay       time.Duration
	MaxDelay           time.Duration
	UseProviderBackoff bool
	BackoffMultiplier  float64
}

func NoRetry() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       1,
		InitialDelay:      time.Second,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2,
	}
}

type RetryHook interface {
	OnRetryAttempt(ctx context.Context, attempt uint, err error, nextDelay time.Duration)
	OnRetrySuccess(ctx context.Context, attempts uint, totalDuration time.Duration)
	OnRetryFailure(ctx context.Context, err error, attempts uint, totalDuration time.Duration)
}
