package services

import (
	"context"
	"sync"

	"github.com/ejpembleton/fateweaver/pkg/chat"
)

// MockGenerator is a mock implementation of Generator for testing
type MockGenerator struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	ChatFunc      func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// Track calls for testing
	InitModelCalls []string
	ChatCalls      []ChatCall

	queue []string

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.ChatMessage
}

// NewMockGenerator creates a new mock generator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		InitModelCalls: make([]string, 0),
		ChatCalls:      make([]ChatCall, 0),
	}
}

// InitModel mocks model initialization
func (m *MockGenerator) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)

	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

// Chat mocks reply generation. Scripted replies queued with
// QueueReplies are returned in order; once the queue is empty the mock
// falls back to a fixed response.
func (m *MockGenerator) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: messages})

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages)
	}

	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return &chat.ChatResponse{Message: next, Model: "mock"}, nil
	}

	return &chat.ChatResponse{
		Message: "The path ahead is quiet. Nothing stirs.",
		Model:   "mock",
	}, nil
}

// QueueReplies appends scripted replies returned in order by Chat
func (m *MockGenerator) QueueReplies(replies ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, replies...)
}

// SetChatError sets up the mock to return an error on Chat
func (m *MockGenerator) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// SetInitModelError sets up the mock to return an error on InitModel
func (m *MockGenerator) SetInitModelError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelFunc = func(ctx context.Context, modelName string) error {
		return err
	}
}

// Reset clears all call tracking and scripted replies
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = make([]string, 0)
	m.ChatCalls = make([]ChatCall, 0)
	m.queue = nil
	m.ChatFunc = nil
	m.InitModelFunc = nil
}

// Calls returns a copy of the call tracking data in a thread-safe way
func (m *MockGenerator) Calls() ([]string, []ChatCall) {
	m.mu.Lock()
	defer m.mu.Unlock()

	initCalls := make([]string, len(m.InitModelCalls))
	copy(initCalls, m.InitModelCalls)

	chatCalls := make([]ChatCall, len(m.ChatCalls))
	copy(chatCalls, m.ChatCalls)

	return initCalls, chatCalls
}

// MockIllustrator is a mock implementation of Illustrator for testing
type MockIllustrator struct {
	GenerateImageFunc func(ctx context.Context, prompt string) ([]byte, error)

	GenerateImageCalls []string

	mu sync.Mutex
}

// NewMockIllustrator creates a new mock illustrator
func NewMockIllustrator() *MockIllustrator {
	return &MockIllustrator{
		GenerateImageCalls: make([]string, 0),
	}
}

// GenerateImage mocks image generation
func (m *MockIllustrator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GenerateImageCalls = append(m.GenerateImageCalls, prompt)

	if m.GenerateImageFunc != nil {
		return m.GenerateImageFunc(ctx, prompt)
	}
	return []byte("fake-png-bytes"), nil
}

// Calls returns a copy of the prompts passed to GenerateImage
func (m *MockIllustrator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]string, len(m.GenerateImageCalls))
	copy(calls, m.GenerateImageCalls)
	return calls
}
