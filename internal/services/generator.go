package services

import (
	"context"

	"github.com/ejpembleton/fateweaver/pkg/chat"
)

// Generator defines the interface for producing narrator replies
type Generator interface {
	// InitModel prepares the backing model on startup, pulling or
	// warming it where the provider supports that
	InitModel(ctx context.Context, modelName string) error

	// Chat generates the next narrator reply for the message array
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
}

// Illustrator defines the interface for rendering scene images from
// prompt text
type Illustrator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
