package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProviderComplete(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), "unexpected path %s", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4-0613",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  What audience?\nWhat length?  "}}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 9, "total_tokens": 51}
		}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider("sk-test", WithURL(server.URL), WithTemperature(0.3))
	require.NoError(t, err)

	completion, err := provider.Complete(context.Background(), "You are an expert prompt engineer.", "Goal: a haiku")
	require.NoError(t, err)

	assert.Equal(t, "What audience?\nWhat length?", completion.Text)
	assert.Equal(t, "gpt-4-0613", completion.Model)
	assert.Equal(t, Usage{InputTokens: 42, OutputTokens: 9}, completion.Usage)

	assert.Equal(t, "gpt-4", received["model"])
	assert.InDelta(t, 0.3, received["temperature"], 0.0001)
	messages, ok := received["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestOpenAIProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		want       ProviderErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, "", ProviderErrorKindAuthentication},
		{"rate limited", http.StatusTooManyRequests, "3", ProviderErrorKindRateLimitExceeded},
		{"server error", http.StatusInternalServerError, "", ProviderErrorKindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "error"}}`))
			}))
			defer server.Close()

			provider, err := NewOpenAIProvider("sk-test", WithURL(server.URL))
			require.NoError(t, err)

			_, err = provider.Complete(context.Background(), "role", "instruction")
			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.want, pe.Kind)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, 1, calls, "the client must not retry on its own")
		})
	}
}

func TestOpenAIProviderEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 1, "model": "gpt-4", "choices": []}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider("sk-test", WithURL(server.URL))
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), "role", "instruction")
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ProviderErrorKindEmptyResponse, pe.Kind)
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider("")
	assert.Error(t, err)
}
