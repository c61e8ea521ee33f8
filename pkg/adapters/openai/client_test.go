package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/llmvn/pkg/adapters/openai"
	"github.com/aretw0/llmvn/pkg/conversation"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return openai.New("", srv.URL+"/v1")
}

func TestClient_Chat(t *testing.T) {
	var got map[string]any
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ollama", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "vn-ada",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"response\":\"Hi\"}"}, "finish_reason": "stop"}]
		}`))
	})

	resp, err := client.Chat(context.Background(), ports.ChatRequest{
		Model: "vn-ada",
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "Hello"},
		},
		Schema: conversation.OutputSchema,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"response":"Hi"}`, resp.Content)

	assert.Equal(t, "vn-ada", got["model"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])

	format := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "vn_output", schema["name"])
	assert.Contains(t, schema["schema"].(map[string]any)["properties"], "user_reply_3")
}

func TestClient_ChatNoChoices(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	_, err := client.Chat(context.Background(), ports.ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, openai.ErrNoChoices)
}

func TestClient_ChatServerError(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model not found"}}`, http.StatusNotFound)
	})

	_, err := client.Chat(context.Background(), ports.ChatRequest{Model: "missing"})
	assert.Error(t, err)
}

func TestClient_ListModels(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"vn-curie","object":"model"},{"id":"vn-ada","object":"model"}]}`))
	})

	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"vn-ada", "vn-curie"}, models)
}
