package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicProviderComplete(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-7-sonnet-latest",
			"content": [{"type": "text", "text": "NONE\n"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 30, "output_tokens": 2}
		}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider("sk-ant-test", WithURL(server.URL), WithTemperature(1.5))
	require.NoError(t, err)

	completion, err := provider.Complete(context.Background(), "You are an expert prompt engineer.", "Goal: a poem")
	require.NoError(t, err)

	assert.Equal(t, "NONE", completion.Text)
	assert.Equal(t, Usage{InputTokens: 30, OutputTokens: 2}, completion.Usage)
	assert.Equal(t, ProviderKindAnthropic, completion.Provider)

	assert.Equal(t, DefaultModel(ProviderKindAnthropic), received["model"])
	assert.InDelta(t, 1.0, received["temperature"], 0.0001, "temperature is capped at 1")
	assert.EqualValues(t, defaultMaxTokens, received["max_tokens"])
}

func TestAnthropicProviderOverloaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "overloaded_error", "message": "Overloaded"}}`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider("sk-ant-test", WithURL(server.URL))
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), "role", "instruction")
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ProviderErrorKindOverloaded, pe.Kind)

	retryable, delay := pe.Retryable()
	assert.True(t, retryable)
	assert.Greater(t, delay, time.Duration(0))
}
