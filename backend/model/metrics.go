package model

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type providerMetrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	tokens   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newProviderMetrics(registry *prometheus.Registry) *providerMetrics {
	if registry == nil {
		return nil
	}

	metrics := &providerMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptbuilder_completion_requests_total",
				Help: "Total number of completion requests by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptbuilder_completion_retries_total",
				Help: "Total number of transport level retries by provider",
			},
			[]string{"provider"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptbuilder_completion_tokens_total",
				Help: "Total number of tokens consumed by provider and direction",
			},
			[]string{"provider", "direction"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "promptbuilder_completion_duration_seconds",
				Help:    "Latency of completion requests including retries",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		metrics.requests,
		metrics.retries,
		metrics.tokens,
		metrics.duration,
	)

	return metrics
}

func (m *providerMetrics) RecordRequest(provider ProviderKind, started time.Time, err error) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(string(provider), outcomeOf(err)).Inc()
	m.duration.WithLabelValues(string(provider)).Observe(time.Since(started).Seconds())
}

func (m *providerMetrics) IncrementRetries(provider ProviderKind) {
	if m != nil {
		m.retries.WithLabelValues(string(provider)).Inc()
	}
}

func (m *providerMetrics) RecordUsage(provider ProviderKind, usage Usage) {
	if m == nil {
		return
	}

	m.tokens.WithLabelValues(string(provider), "input").Add(float64(usage.InputTokens))
	m.tokens.WithLabelValues(string(provider), "output").Add(float64(usage.OutputTokens))
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return string(pe.Kind)
	}
	return string(ProviderErrorKindUnknown)
}
