package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestContextAwareTransport_InjectsRequestID(t *testing.T) {
	conversationID := uuid.New()
	var receivedHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeader = r.Header.Get(requestIDHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Transport: &contextAwareTransport{base: http.DefaultTransport}}

	ctx := WithConversationID(context.Background(), conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if receivedHeader != conversationID.String() {
		t.Errorf("expected X-Request-Id header %s, got %s", conversationID, receivedHeader)
	}
}

func TestContextAwareTransport_NoHeaderWhenNoConversationID(t *testing.T) {
	var headerPresent bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, headerPresent = r.Header[requestIDHeader]
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Transport: &contextAwareTransport{base: http.DefaultTransport}}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if headerPresent {
		t.Error("expected X-Request-Id header to be absent")
	}
}

// newChatServer serves a minimal OpenAI chat completion endpoint and records the last request body.
func newChatServer(t *testing.T, content string, got *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150},
		})
	}))
}

func testClientConfig(endpoint string) *Config {
	return &Config{
		Endpoint:       endpoint,
		Model:          "gpt-4o-mini",
		APIKey:         "sk-test",
		RequestTimeout: 5 * time.Second,
		ConnectTimeout: time.Second,
		ReadTimeout:    5 * time.Second,
	}
}

func TestClient_GenerateResponse(t *testing.T) {
	var body map[string]any
	server := newChatServer(t, "```json\n{\"id\":\"u1\"}\n```", &body)
	defer server.Close()

	client, err := NewClient(testClientConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	result, err := client.GenerateResponse(context.Background(), "records", "system", 0.7)
	require.NoError(t, err)

	assert.Equal(t, "```json\n{\"id\":\"u1\"}\n```", result.Content, "content is returned unmodified")
	assert.Equal(t, 150, result.TotalTokens)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.InDelta(t, 0.7, body["temperature"], 0.001)

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
	assert.Equal(t, "records", messages[1].(map[string]any)["content"])
}

func TestClient_GenerateResponse_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL)
	cfg.RequestTimeout = 50 * time.Millisecond
	client, err := NewClient(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "records", "system", 0.7)
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "expected timeout classification, got %v", err)
	assert.Equal(t, ErrorTypeTimeout, GetErrorType(err))
}

func TestClient_GenerateResponse_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client, err := NewClient(testClientConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "records", "system", 0.7)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeAuth, GetErrorType(err))
	assert.False(t, IsTimeout(err))
}

func TestClient_SendsConversationID(t *testing.T) {
	var header string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get(requestIDHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(testClientConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	id := uuid.New()
	_, err = client.GenerateResponse(WithConversationID(context.Background(), id), "records", "system", 0.7)
	require.NoError(t, err)
	assert.Equal(t, id.String(), header)
}

func TestClient_GenerateResponse_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(testClientConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "records", "system", 0.7)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeResponse, GetErrorType(err))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(&Config{RequestTimeout: time.Second}, zap.NewNop())
	assert.Error(t, err, "model is required")

	_, err = NewClient(&Config{Model: "gpt-4o-mini"}, zap.NewNop())
	assert.Error(t, err, "request timeout is required")
}

func TestAnthropicClient_GenerateResponse(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "[{\"id\":\"u1\"}]"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 80, "output_tokens": 20}
		}`))
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL)
	cfg.Model = "claude-sonnet-4-5"
	client, err := NewAnthropicClient(cfg, zap.NewNop())
	require.NoError(t, err)

	result, err := client.GenerateResponse(context.Background(), "records", "system", 0.7)
	require.NoError(t, err)

	assert.Equal(t, `[{"id":"u1"}]`, result.Content)
	assert.Equal(t, 100, result.TotalTokens)
	assert.Equal(t, "system", body["system"])
	assert.Equal(t, "Anthropic", client.GetProvider())
}
