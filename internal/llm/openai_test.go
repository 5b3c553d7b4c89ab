package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletion(content string) string {
	wrapper := map[string]any{
		"id":     "chatcmpl-123",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]string{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
	data, _ := json.Marshal(wrapper)
	return string(data)
}

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantModel string
		wantBase  string
		wantErr   bool
	}{
		{
			name:    "missing API key",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name:      "defaults applied",
			cfg:       Config{APIKey: "test-key"},
			wantModel: "gpt-4o-mini",
			wantBase:  "https://api.openai.com/v1",
		},
		{
			name:      "custom model and base URL",
			cfg:       Config{APIKey: "test-key", Model: "gpt-4o", BaseURL: "https://example.com/v1/"},
			wantModel: "gpt-4o",
			wantBase:  "https://example.com/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newOpenAIClient(tt.cfg, openAIBaseURL, defaultOpenAIModel)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			oc, ok := client.(*openAIClient)
			require.True(t, ok)
			assert.Equal(t, tt.wantModel, oc.model)
			assert.Equal(t, tt.wantBase, oc.baseURL)
		})
	}
}

func TestOpenAIClientMatchBatch(t *testing.T) {
	account := "Profit After Tax"
	batchJSON := `{
		"batch_id": "batch-1",
		"matches": [
			{"label": "Net Income", "account": "Profit After Tax", "confidence": 85, "reasoning": "Semantic equivalent"},
			{"label": "Total Revenue", "account": null, "confidence": 0, "reasoning": "No candidate fits"}
		]
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		messages, ok := body["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 2)

		fmt.Fprint(w, chatCompletion(batchJSON))
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL}, openAIBaseURL, defaultOpenAIModel)
	require.NoError(t, err)

	resp, err := client.MatchBatch(context.Background(), batchReq())
	require.NoError(t, err)

	assert.Equal(t, "batch-1", resp.BatchID)
	require.Len(t, resp.Matches, 2)
	require.NotNil(t, resp.Matches[0].Account)
	assert.Equal(t, account, *resp.Matches[0].Account)
	assert.Equal(t, 85, resp.Matches[0].Confidence)
	assert.Nil(t, resp.Matches[1].Account)
}

func TestOpenAIClientMatchBatchMarkdownFenced(t *testing.T) {
	batchJSON := "```json\n{\"batch_id\": \"batch-1\", \"matches\": [{\"label\": \"Net Income\", \"account\": \"Profit After Tax\", \"confidence\": 80, \"reasoning\": \"ok\"}, {\"label\": \"Total Revenue\", \"account\": null, \"confidence\": 0, \"reasoning\": \"none\"}]}\n```"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, chatCompletion(batchJSON))
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL}, openAIBaseURL, defaultOpenAIModel)
	require.NoError(t, err)

	resp, err := client.MatchBatch(context.Background(), batchReq())
	require.NoError(t, err)
	assert.Len(t, resp.Matches, 2)
}

func TestOpenAIClientMatchBatchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limited"}}`)
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL}, openAIBaseURL, defaultOpenAIModel)
	require.NoError(t, err)

	_, err = client.MatchBatch(context.Background(), batchReq())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestOpenAIClientMatchBatchNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id": "chatcmpl-123", "object": "chat.completion", "choices": []}`)
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL}, openAIBaseURL, defaultOpenAIModel)
	require.NoError(t, err)

	_, err = client.MatchBatch(context.Background(), batchReq())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no completion choices")
}

func TestNewClientProviders(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{name: "openrouter", provider: "openrouter"},
		{name: "openai", provider: "openai"},
		{name: "uppercase accepted", provider: "OpenAI"},
		{name: "unsupported", provider: "smoke-signals", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), Config{Provider: tt.provider, APIKey: "test-key"})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}
