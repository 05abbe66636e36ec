package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIProvider(t *testing.T) {
	provider := NewOpenAIProvider("test-api-key")
	require.NotNil(t, provider)
	assert.Equal(t, "openai", provider.Name())
	assert.NotNil(t, provider.client)
}

func TestOpenAIProvider_BuildRequestParams(t *testing.T) {
	provider := NewOpenAIProvider("test-key")

	tests := []struct {
		name    string
		request *GenerationRequest
		checks  func(t *testing.T, request *GenerationRequest)
	}{
		{
			name: "sampling controls on a chat model",
			request: &GenerationRequest{
				Model:           "gpt-4o",
				SystemPrompt:    "test system prompt",
				InputArray:      []map[string]any{{"role": "user", "content": "test content"}},
				Temperature:     Float(0.72),
				TopP:            Float(0.9),
				MaxOutputTokens: 1200,
			},
			checks: func(t *testing.T, request *GenerationRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				assert.Equal(t, "gpt-4o", params.Model)
				assert.Equal(t, "test system prompt", params.Instructions.Value)
				assert.InDelta(t, 0.72, params.Temperature.Value, 1e-9)
				assert.InDelta(t, 0.9, params.TopP.Value, 1e-9)
				assert.Equal(t, int64(1200), params.MaxOutputTokens.Value)
				assert.Empty(t, params.Reasoning.Effort)
				assert.Len(t, params.Input.OfInputItemList, 1)
			},
		},
		{
			name: "reasoning model drops sampling controls",
			request: &GenerationRequest{
				Model:         "gpt-5-mini",
				ReasoningMode: "low",
				InputArray:    []map[string]any{{"role": "user", "content": "test"}},
				Temperature:   Float(0.6),
				TopP:          Float(0.9),
			},
			checks: func(t *testing.T, request *GenerationRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				assert.False(t, params.Temperature.Valid())
				assert.False(t, params.TopP.Valid())
				assert.Equal(t, "low", string(params.Reasoning.Effort))
			},
		},
		{
			name: "unset options stay unset",
			request: &GenerationRequest{
				Model:      "gpt-4o",
				InputArray: []map[string]any{{"role": "developer", "content": "dev"}, {"role": "user"}},
			},
			checks: func(t *testing.T, request *GenerationRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				assert.False(t, params.Instructions.Valid())
				assert.False(t, params.Temperature.Valid())
				assert.False(t, params.MaxOutputTokens.Valid())
				assert.Len(t, params.Input.OfInputItemList, 1, "invalid item skipped")
			},
		},
		{
			name: "request with output schema",
			request: &GenerationRequest{
				Model:        "gpt-4o",
				InputArray:   []map[string]any{{"role": "user", "content": "test"}},
				OutputSchema: TrackSetSchema(),
			},
			checks: func(t *testing.T, request *GenerationRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				require.NotNil(t, params.Text.Format.OfJSONSchema)
				assert.Equal(t, TrackSetSchemaName, params.Text.Format.OfJSONSchema.Name)
				assert.True(t, params.Text.Format.OfJSONSchema.Description.Valid())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.checks(t, tt.request)
		})
	}
}

func TestReasoningEffort(t *testing.T) {
	tests := []struct {
		mode     string
		expected string
	}{
		{"minimal", "minimal"},
		{"min", "minimal"},
		{"low", "low"},
		{"medium", "medium"},
		{"med", "medium"},
		{"high", "high"},
		{"", "none"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(reasoningEffort(tt.mode)))
		})
	}
}

const fakeResponseBody = `{
  "id": "resp_test",
  "object": "response",
  "created_at": 1700000000,
  "model": "gpt-4o",
  "status": "completed",
  "output": [
    {
      "type": "message",
      "id": "msg_test",
      "role": "assistant",
      "status": "completed",
      "content": [
        {"type": "output_text", "text": "` + "```json\\n{\\\"melody\\\": []}\\n```" + `", "annotations": []}
      ]
    }
  ],
  "usage": {
    "input_tokens": 120,
    "input_tokens_details": {"cached_tokens": 0},
    "output_tokens": 80,
    "output_tokens_details": {"reasoning_tokens": 0},
    "total_tokens": 200
  }
}`

func TestOpenAIProvider_Generate(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/responses"), r.URL.Path)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, fakeResponseBody)
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", option.WithBaseURL(server.URL+"/v1/"), option.WithMaxRetries(0))
	resp, err := provider.Generate(context.Background(), &GenerationRequest{
		Model:        "gpt-4o",
		SystemPrompt: "only JSON",
		InputArray:   []map[string]any{{"role": "user", "content": "Jazz song in Bebop style"}},
		Temperature:  Float(0.6),
	})
	require.NoError(t, err)

	// fences are left for tracks.Decode to strip
	assert.Equal(t, "```json\n{\"melody\": []}\n```", resp.RawOutput)
	assert.Equal(t, TokenUsage{Input: 120, Output: 80, Total: 200}, resp.Tokens)

	assert.Equal(t, "gpt-4o", captured["model"])
	assert.Equal(t, "only JSON", captured["instructions"])
	assert.InDelta(t, 0.6, captured["temperature"], 1e-9)
}

func TestOpenAIProvider_GenerateEmptyOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
  "id": "resp_empty",
  "object": "response",
  "created_at": 1700000000,
  "model": "gpt-4o",
  "status": "completed",
  "output": [],
  "usage": {
    "input_tokens": 120,
    "input_tokens_details": {"cached_tokens": 0},
    "output_tokens": 0,
    "output_tokens_details": {"reasoning_tokens": 0},
    "total_tokens": 120
  }
}`)
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", option.WithBaseURL(server.URL+"/v1/"), option.WithMaxRetries(0))
	resp, err := provider.Generate(context.Background(), &GenerationRequest{
		Model:      "gpt-4o",
		InputArray: []map[string]any{{"role": "user", "content": "test"}},
	})
	require.NoError(t, err, "an empty reply is a decode problem, not a transport one")
	assert.Empty(t, resp.RawOutput)
	assert.Equal(t, int64(120), resp.Tokens.Total)
}

func TestOpenAIProvider_GenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"message": "boom", "type": "server_error"}}`)
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", option.WithBaseURL(server.URL+"/v1/"), option.WithMaxRetries(0))
	_, err := provider.Generate(context.Background(), &GenerationRequest{
		Model:      "gpt-4o",
		InputArray: []map[string]any{{"role": "user", "content": "test"}},
	})
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "openai", transportErr.Provider)
}
