package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ejpembleton/fateweaver/pkg/chat"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewAnthropicService(t *testing.T) {
	apiKey := "test-api-key"
	modelName := "claude-sonnet-4-20250514"

	service := NewAnthropicService(apiKey, modelName, testLogger())

	if service.apiKey != apiKey {
		t.Errorf("Expected API key %s, got %s", apiKey, service.apiKey)
	}

	if service.modelName != modelName {
		t.Errorf("Expected model name %s, got %s", modelName, service.modelName)
	}

	if service.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
}

func TestAnthropicService_InitModel(t *testing.T) {
	service := NewAnthropicService("test-key", "claude-sonnet-4-20250514", testLogger())

	err := service.InitModel(context.Background(), "test-model")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestAnthropicService_SplitChatMessages(t *testing.T) {
	service := NewAnthropicService("test-key", "claude-sonnet-4-20250514", testLogger())

	tests := []struct {
		name                   string
		messages               []chat.ChatMessage
		expectedSystem         string
		expectedNonSystemCount int
	}{
		{
			name: "single system message",
			messages: []chat.ChatMessage{
				{Role: chat.RoleSystem, Content: "You are the narrator."},
				{Role: chat.RoleUser, Content: "I open the door."},
				{Role: chat.RoleAssistant, Content: "It creaks open."},
			},
			expectedSystem:         "You are the narrator.",
			expectedNonSystemCount: 2,
		},
		{
			name: "system messages at both ends",
			messages: []chat.ChatMessage{
				{Role: chat.RoleSystem, Content: "You are the narrator."},
				{Role: chat.RoleUser, Content: "I open the door."},
				{Role: chat.RoleSystem, Content: "Keep replies short."},
			},
			expectedSystem:         "You are the narrator.\n\nKeep replies short.",
			expectedNonSystemCount: 1,
		},
		{
			name: "no system messages",
			messages: []chat.ChatMessage{
				{Role: chat.RoleUser, Content: "I open the door."},
				{Role: chat.RoleAssistant, Content: "It creaks open."},
			},
			expectedSystem:         "",
			expectedNonSystemCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			systemPrompt, nonSystemMessages := service.splitChatMessages(tt.messages)

			if systemPrompt != tt.expectedSystem {
				t.Errorf("Expected system prompt '%s', got '%s'", tt.expectedSystem, systemPrompt)
			}

			if len(nonSystemMessages) != tt.expectedNonSystemCount {
				t.Errorf("Expected %d non-system messages, got %d", tt.expectedNonSystemCount, len(nonSystemMessages))
			}

			for _, msg := range nonSystemMessages {
				if msg.Role == chat.RoleSystem {
					t.Error("Found system message in non-system messages")
				}
			}
		})
	}
}

func TestAnthropicService_Chat(t *testing.T) {
	var gotReq AnthropicChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("missing anthropic-version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		resp := AnthropicChatResponse{
			ID:    "msg_01ABC123",
			Model: "claude-sonnet-4-20250514",
			Content: []AnthropicContentBlock{
				{Type: "text", Text: "The torch gutters in the wind."},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	service := NewAnthropicService("test-key", "claude-sonnet-4-20250514", testLogger())
	service.baseURL = server.URL

	resp, err := service.Chat(context.Background(), []chat.ChatMessage{
		{Role: chat.RoleSystem, Content: "You are the narrator."},
		{Role: chat.RoleUser, Content: "I light the torch."},
	})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}

	if resp.Message != "The torch gutters in the wind." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if gotReq.System != "You are the narrator." {
		t.Errorf("system prompt not lifted to top-level field: %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 {
		t.Errorf("expected 1 conversation message, got %d", len(gotReq.Messages))
	}
}

func TestAnthropicService_ChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"Rate limited"}}`))
	}))
	defer server.Close()

	service := NewAnthropicService("test-key", "claude-sonnet-4-20250514", testLogger())
	service.baseURL = server.URL

	_, err := service.Chat(context.Background(), []chat.ChatMessage{
		{Role: chat.RoleUser, Content: "I light the torch."},
	})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestAnthropicService_ChatEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AnthropicChatResponse{ID: "msg_01"})
	}))
	defer server.Close()

	service := NewAnthropicService("test-key", "claude-sonnet-4-20250514", testLogger())
	service.baseURL = server.URL

	resp, err := service.Chat(context.Background(), []chat.ChatMessage{
		{Role: chat.RoleUser, Content: "Hello?"},
	})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if resp.Message != msgNoResponse {
		t.Errorf("expected %q fallback, got %q", msgNoResponse, resp.Message)
	}
}

func TestAnthropicChatResponseStructure(t *testing.T) {
	responseJSON := `{
		"id": "msg_01ABC123",
		"type": "message",
		"role": "assistant",
		"content": [
			{
				"type": "text",
				"text": "You step into the hall."
			}
		],
		"model": "claude-sonnet-4-20250514",
		"stop_reason": "end_turn",
		"usage": {
			"input_tokens": 10,
			"output_tokens": 20
		}
	}`

	var resp AnthropicChatResponse
	err := json.Unmarshal([]byte(responseJSON), &resp)
	if err != nil {
		t.Errorf("Failed to unmarshal response: %v", err)
	}

	if resp.ID != "msg_01ABC123" {
		t.Errorf("Expected ID 'msg_01ABC123', got '%s'", resp.ID)
	}

	if len(resp.Content) != 1 {
		t.Errorf("Expected 1 content block, got %d", len(resp.Content))
	}

	if resp.Content[0].Text != "You step into the hall." {
		t.Errorf("Unexpected content text: '%s'", resp.Content[0].Text)
	}
}
