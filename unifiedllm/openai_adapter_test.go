package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, status int, body any, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIAdapterComplete(t *testing.T) {
	var seen map[string]any
	srv := newChatServer(t, http.StatusOK, map[string]any{
		"id":    "chatcmpl-1",
		"model": "codellama",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": "```rust\nfn main() {}\n```"},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19},
	}, &seen)

	adapter, err := NewOpenAIAdapter(srv.URL, "", "codellama", 0.2, 512)
	require.NoError(t, err)

	resp, err := adapter.Complete(context.Background(), Request{Messages: []Message{
		SystemMessage("env"),
		UserMessage("Generate rust main.rs"),
	}})
	require.NoError(t, err)

	assert.Equal(t, "```rust\nfn main() {}\n```", resp.Text())
	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, BackendOpenAI, resp.Provider)
	assert.Equal(t, "stop", resp.FinishReason.Reason)
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 7, TotalTokens: 19}, resp.Usage)

	assert.Equal(t, "codellama", seen["model"])
	msgs, ok := seen["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAIAdapterStatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
		check     func(error) bool
	}{
		{"model missing", http.StatusNotFound, false, func(e error) bool { var x *NotFoundError; return errors.As(e, &x) }},
		{"overloaded", http.StatusServiceUnavailable, true, func(e error) bool { var x *ServerError; return errors.As(e, &x) }},
		{"bad request", http.StatusBadRequest, false, func(e error) bool { var x *InvalidRequestError; return errors.As(e, &x) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newChatServer(t, tt.status, map[string]any{
				"error": map[string]any{"message": tt.name, "type": "api_error"},
			}, nil)
			adapter, err := NewOpenAIAdapter(srv.URL, "key", "codellama", 0, 0)
			require.NoError(t, err)

			_, err = adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type %T", err)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestOpenAIAdapterNoChoices(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, map[string]any{"id": "x", "choices": []any{}}, nil)
	adapter, err := NewOpenAIAdapter(srv.URL, "", "codellama", 0, 0)
	require.NoError(t, err)

	_, err = adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	var se *ServerError
	assert.ErrorAs(t, err, &se)
}

func TestOpenAIBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:11434/v1", openAIBaseURL("http://localhost:11434"))
	assert.Equal(t, "http://localhost:11434/v1", openAIBaseURL("http://localhost:11434/"))
	assert.Equal(t, "http://localhost:11434/v1", openAIBaseURL("http://localhost:11434/v1"))
}

func TestNewOpenAIAdapterRequiresModel(t *testing.T) {
	_, err := NewOpenAIAdapter("http://localhost:11434", "", "", 0, 0)
	var ce *ConfigurationError
	assert.ErrorAs(t, err, &ce)
}
