package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ejpembleton/fateweaver/pkg/chat"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiService implements Generator for Google Gemini via the
// official SDK. The SDK surface used here takes a single prompt, so
// the message array is flattened into one labeled transcript.
type GeminiService struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

func NewGeminiService(ctx context.Context, apiKey string, modelName string, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiService{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}, nil
}

func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Chat generates a narrator reply using Gemini
func (g *GeminiService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	model := g.client.GenerativeModel(g.modelName)

	resp, err := model.GenerateContent(ctx, genai.Text(flattenMessages(messages)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &chat.ChatResponse{Message: msgNoResponse}, nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	content := sb.String()
	if content == "" {
		content = msgNoResponse
	}

	return &chat.ChatResponse{
		Message: content,
		Model:   g.modelName,
	}, nil
}

// Close releases the underlying API client
func (g *GeminiService) Close() error {
	return g.client.Close()
}

// flattenMessages renders the message array as one prompt, labeling
// conversation turns so the model can track who said what.
func flattenMessages(messages []chat.ChatMessage) string {
	var sb strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			sb.WriteString(msg.Content)
		case chat.RoleUser:
			sb.WriteString("Player: " + msg.Content)
		case chat.RoleAssistant:
			sb.WriteString("Narrator: " + msg.Content)
		default:
			continue
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString("Narrator: ")
	return sb.String()
}
