package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amn-7/open-deep-research/internal/usage"
)

// Compile-time check that AnthropicProvider implements Generator.
var _ Generator = (*AnthropicProvider)(nil)

func newAnthropicTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newAnthropicTestProvider(t *testing.T, serverURL string) *AnthropicProvider {
	t.Helper()
	cfg := AnthropicConfig{
		APIKey:  "test-api-key",
		Model:   "claude-sonnet-4-20250514",
		BaseURL: serverURL,
	}
	provider := NewAnthropicProvider(cfg, 0.3, 10*time.Second, 0)
	provider.retryDelay = time.Millisecond
	return provider
}

func anthropicResponse(text string, inputTokens, outputTokens int) messagesResponse {
	return messagesResponse{
		ID:   "msg_abc123",
		Type: "message",
		Role: "assistant",
		Content: []contentBlock{
			{Type: "text", Text: text},
		},
		StopReason: "end_turn",
		Usage: anthropicUsage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		},
	}
}

func TestAnthropicProvider_Generate(t *testing.T) {
	t.Run("runs brief then report and accumulates usage", func(t *testing.T) {
		var requests []messagesRequest
		server := newAnthropicTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			var req messagesRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			requests = append(requests, req)

			assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
			assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

			var resp messagesResponse
			if len(requests) == 1 {
				resp = anthropicResponse("Cover recent results first.", 120, 50)
			} else {
				resp = anthropicResponse("Report body.\n\nSources\n[1] T https://a.example", 600, 400)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		})

		provider := newAnthropicTestProvider(t, server.URL)
		acc := usage.NewAccumulator()

		result, err := provider.Generate(context.Background(), Invocation{
			Input:    "research question",
			Config:   InvocationConfig{SearchAPI: "none"},
			Listener: acc,
		})

		require.NoError(t, err)
		require.Len(t, requests, 2)
		assert.Equal(t, "Cover recent results first.", result.State["research_brief"])
		assert.Equal(t, "Report body.\n\nSources\n[1] T https://a.example", result.State["final_report"])

		totals := acc.Totals()
		assert.Equal(t, 720, totals.InputTokens)
		assert.Equal(t, 450, totals.OutputTokens)
	})

	t.Run("transient error retried with backoff", func(t *testing.T) {
		var calls atomic.Int32
		server := newAnthropicTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(anthropicErrorResponse{
					Type:  "error",
					Error: anthropicAPIErrorDetail{Type: "rate_limit_error", Message: "slow down"},
				})
				return
			}
			json.NewEncoder(w).Encode(anthropicResponse("ok", 1, 1))
		})

		cfg := AnthropicConfig{APIKey: "k", BaseURL: server.URL}
		provider := NewAnthropicProvider(cfg, 0.3, 10*time.Second, 2)
		provider.retryDelay = time.Millisecond

		summary, err := provider.Summarize(context.Background(), SummarizeRequest{Text: "t", Prompt: "p:\n"})

		require.NoError(t, err)
		assert.Equal(t, "ok", summary)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("non-transient error surfaces API details", func(t *testing.T) {
		server := newAnthropicTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(anthropicErrorResponse{
				Type:  "error",
				Error: anthropicAPIErrorDetail{Type: "invalid_request_error", Message: "max_tokens required"},
			})
		})

		provider := newAnthropicTestProvider(t, server.URL)
		_, err := provider.Generate(context.Background(), Invocation{Input: "q"})

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "anthropic", apiErr.Provider)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "max_tokens required", apiErr.Message)
	})

	t.Run("response without text blocks is an error", func(t *testing.T) {
		server := newAnthropicTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			resp := anthropicResponse("", 1, 1)
			resp.Content = []contentBlock{{Type: "tool_use"}}
			json.NewEncoder(w).Encode(resp)
		})

		provider := newAnthropicTestProvider(t, server.URL)
		_, err := provider.Summarize(context.Background(), SummarizeRequest{Text: "t"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no text content blocks")
	})
}
