package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("CLAUDE_API_KEY", "")

	client := NewClient("test-key")
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.apiKey != "test-key" {
		t.Errorf("apiKey = %v, want test-key", client.apiKey)
	}
	if client.baseURL != anthropicBaseURL {
		t.Errorf("baseURL = %v, want %v", client.baseURL, anthropicBaseURL)
	}
	if client.model != DefaultModel {
		t.Errorf("model = %v, want %v", client.model, DefaultModel)
	}
	if client.maxTokens != defaultMaxTokens {
		t.Errorf("maxTokens = %v, want %v", client.maxTokens, defaultMaxTokens)
	}
}

func TestNewClient_EnvFallback(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("CLAUDE_API_KEY", "legacy-key")

	if client := NewClient(""); client.apiKey != "env-key" {
		t.Errorf("apiKey = %v, want env-key", client.apiKey)
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	if client := NewClient(""); client.apiKey != "legacy-key" {
		t.Errorf("apiKey = %v, want legacy-key", client.apiKey)
	}

	// An explicit key wins over the environment.
	if client := NewClient("explicit"); client.apiKey != "explicit" {
		t.Errorf("apiKey = %v, want explicit", client.apiKey)
	}
}

func TestNewClient_WithOptions(t *testing.T) {
	customClient := &http.Client{}
	client := NewClient("test-key",
		WithBaseURL("http://127.0.0.1:9999"),
		WithHTTPClient(customClient),
		WithModel("claude-3-5-haiku-20241022"),
		WithMaxTokens(256),
		WithSystemPrompt("You are terse."),
	)

	if client.baseURL != "http://127.0.0.1:9999" {
		t.Errorf("baseURL = %v, want http://127.0.0.1:9999", client.baseURL)
	}
	if client.client != customClient {
		t.Error("client was not set correctly")
	}
	if client.model != "claude-3-5-haiku-20241022" {
		t.Errorf("model = %v, want claude-3-5-haiku-20241022", client.model)
	}
	if client.maxTokens != 256 {
		t.Errorf("maxTokens = %v, want 256", client.maxTokens)
	}
	if client.systemPrompt != "You are terse." {
		t.Errorf("systemPrompt = %v, want You are terse.", client.systemPrompt)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.anthropic.com", "https://api.anthropic.com/v1"},
		{"https://api.anthropic.com/", "https://api.anthropic.com/v1"},
		{"https://api.anthropic.com/v1", "https://api.anthropic.com/v1"},
		{"http://127.0.0.1:8999", "http://127.0.0.1:8999"},
	}

	for _, tt := range tests {
		if got := normalizeBaseURL(tt.in); got != tt.want {
			t.Errorf("normalizeBaseURL(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClient_Send_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %v, want POST", r.Method)
		}
		if r.URL.Path != "/messages" {
			t.Errorf("Path = %v, want /messages", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("X-API-Key = %v, want test-key", got)
		}
		if got := r.Header.Get(anthropicVersionKey); got != anthropicVersionValue {
			t.Errorf("Anthropic-Version = %v, want %v", got, anthropicVersionValue)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Model != DefaultModel {
			t.Errorf("Model = %v, want %v", req.Model, DefaultModel)
		}
		if req.System != "You are a home assistant." {
			t.Errorf("System = %v, want the system prompt", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Fatalf("Messages = %+v, want one user message", req.Messages)
		}
		if req.Messages[0].Content[0].Text != "turn on the lights" {
			t.Errorf("Text = %v, want turn on the lights", req.Messages[0].Content[0].Text)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":          "msg_test",
			"role":        "assistant",
			"model":       "claude-3-5-sonnet-20241022",
			"stop_reason": "end_turn",
			"content": []map[string]string{
				{"type": "text", "text": "Lights are on."},
			},
			"usage": map[string]int{"input_tokens": 12, "output_tokens": 5},
		})
	}))
	defer server.Close()

	client := NewClient("test-key",
		WithBaseURL(server.URL),
		WithSystemPrompt("You are a home assistant."),
	)

	reply, err := client.Send(context.Background(), "turn on the lights")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if reply.Text != "Lights are on." {
		t.Errorf("Text = %v, want Lights are on.", reply.Text)
	}
	if reply.InputTokens != 12 || reply.OutputTokens != 5 {
		t.Errorf("usage = %d/%d, want 12/5", reply.InputTokens, reply.OutputTokens)
	}
	if reply.StopReason != "end_turn" {
		t.Errorf("StopReason = %v, want end_turn", reply.StopReason)
	}
}

func TestClient_Send_EmptyMessage(t *testing.T) {
	client := NewClient("test-key")
	_, err := client.Send(context.Background(), "   ")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Send() error = %v, want ErrEmptyMessage", err)
	}
}

func TestClient_Send_NoAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("CLAUDE_API_KEY", "")

	client := NewClient("")
	_, err := client.Send(context.Background(), "hello")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Send() error = %v, want ErrNoAPIKey", err)
	}
}

func TestClient_Send_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("Send() should fail on a 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error = %v, should contain the status code", err)
	}
	if !strings.Contains(err.Error(), "Overloaded") {
		t.Errorf("error = %v, should contain the response body", err)
	}
}

func TestClient_Send_APIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"type": "invalid_request_error", "message": "bad model"},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("Send() should surface an API error body")
	}
	if !strings.Contains(err.Error(), "bad model") {
		t.Errorf("error = %v, should contain the API error message", err)
	}
}

func TestClient_Send_NoTextContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{{"type": "tool_use"}},
			"usage":   map[string]int{"input_tokens": 1, "output_tokens": 1},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.Send(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "no text content") {
		t.Errorf("Send() error = %v, want a no-text-content error", err)
	}
}
