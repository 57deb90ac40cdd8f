package prompts

import (
	"fmt"
	"strings"

	"github.com/ejpembleton/fateweaver/pkg/adventure"
	"github.com/ejpembleton/fateweaver/pkg/chat"
	"github.com/ejpembleton/fateweaver/pkg/player"
	"github.com/ejpembleton/fateweaver/pkg/world"
)

// Builder constructs the message array for one generator call using a
// fluent interface. The system prompt is rebuilt fresh on every call
// so the state context never goes stale, while the transcript window
// carries only the conversation itself.
type Builder struct {
	preset       *adventure.Preset
	character    *player.Character
	ws           world.WorldState
	history      []chat.ChatMessage
	action       string
	historyLimit int
}

// New creates a builder with the default history window.
func New() *Builder {
	return &Builder{historyLimit: chat.HistoryWindow}
}

// WithPreset sets the adventure preset (setting, rating).
func (b *Builder) WithPreset(p *adventure.Preset) *Builder {
	b.preset = p
	return b
}

// WithCharacter sets the optional player character sheet.
func (b *Builder) WithCharacter(c *player.Character) *Builder {
	b.character = c
	return b
}

// WithWorld sets the world state rendered into the state context.
func (b *Builder) WithWorld(ws world.WorldState) *Builder {
	b.ws = ws
	return b
}

// WithHistory sets the conversation transcript to window.
func (b *Builder) WithHistory(history []chat.ChatMessage) *Builder {
	b.history = history
	return b
}

// WithAction sets the player action (or opening instruction) sent as
// the user message.
func (b *Builder) WithAction(action string) *Builder {
	b.action = action
	return b
}

// WithHistoryLimit overrides the history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// Build assembles the final message array: system prompt, windowed
// history, user action, trailing reminder.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.preset == nil {
		return nil, fmt.Errorf("preset is required")
	}
	if b.action == "" {
		return nil, fmt.Errorf("action is required")
	}

	messages := make([]chat.ChatMessage, 0, len(b.history)+3)
	messages = append(messages, chat.ChatMessage{
		Role:    chat.RoleSystem,
		Content: b.systemPrompt(),
	})
	messages = append(messages, chat.Window(b.history, b.historyLimit)...)
	messages = append(messages, chat.UserMessage(b.action))
	messages = append(messages, chat.ChatMessage{
		Role:    chat.RoleSystem,
		Content: FinalReminder,
	})
	return messages, nil
}

func (b *Builder) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString(BaseSystemPrompt)

	sb.WriteString("\n\n### Setting\n")
	sb.WriteString(strings.TrimSpace(b.preset.Setting))

	if rating := ContentRatingPrompt(b.preset.Rating); rating != "" {
		sb.WriteString("\n\nContent rating: " + b.preset.Rating + ". " + rating)
	}

	if pcPrompt := b.character.Prompt(); pcPrompt != "" {
		sb.WriteString("\n\n### Player character\n")
		sb.WriteString(pcPrompt)
	}

	sb.WriteString("\n\n")
	sb.WriteString(DirectiveProtocol)

	sb.WriteString("\n\n")
	sb.WriteString(StateContext(b.ws))

	return sb.String()
}

// BuildMessages is a convenience for the common case: one call with
// every input supplied.
func BuildMessages(p *adventure.Preset, c *player.Character, ws world.WorldState, history []chat.ChatMessage, action string) ([]chat.ChatMessage, error) {
	return New().
		WithPreset(p).
		WithCharacter(c).
		WithWorld(ws).
		WithHistory(history).
		WithAction(action).
		Build()
}
