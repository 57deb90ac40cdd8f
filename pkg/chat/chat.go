package chat

import (
	"fmt"
	"strings"
)

// Roles for transcript messages. Every provider speaks this
// OpenAI-style message shape.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single entry in the generator conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is one generator reply, before any parsing.
type ChatResponse struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// HistoryWindow is how many trailing conversation messages are sent
// with each turn. Older messages remain in the saved transcript but
// are not re-sent to the generator.
const HistoryWindow = 20

// UserMessage wraps a player action as a transcript entry.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// AssistantMessage wraps a raw generator reply as a transcript entry.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// Window returns the trailing n messages. The full slice is returned
// when it already fits.
func Window(messages []ChatMessage, n int) []ChatMessage {
	if n <= 0 || len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

// MaxActionLength bounds a single player action.
const MaxActionLength = 1000

// ValidateAction rejects empty or oversized player input before it
// reaches the generator.
func ValidateAction(action string) error {
	if strings.TrimSpace(action) == "" {
		return fmt.Errorf("action cannot be empty")
	}
	if len(action) > MaxActionLength {
		return fmt.Errorf("action exceeds maximum length of %d characters", MaxActionLength)
	}
	return nil
}
