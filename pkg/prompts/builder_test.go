package prompts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ejpembleton/fateweaver/pkg/adventure"
	"github.com/ejpembleton/fateweaver/pkg/chat"
	"github.com/ejpembleton/fateweaver/pkg/player"
	"github.com/ejpembleton/fateweaver/pkg/world"
)

func testPreset() *adventure.Preset {
	return &adventure.Preset{
		Name:    "The Ashen Keep",
		Setting: "A ruined fortress above a dead city.",
		Opening: "You wake at the foot of the keep.",
		Rating:  adventure.RatingAdult,
		Stats:   adventure.StartingStats{Health: 100, Mana: 50, Stamina: 75},
	}
}

func TestBuildMessageShape(t *testing.T) {
	preset := testPreset()
	ws := preset.NewWorld()
	history := []chat.ChatMessage{
		chat.UserMessage("I light the torch."),
		chat.AssistantMessage("The flame catches, pushing back the dark."),
	}

	messages, err := New().
		WithPreset(preset).
		WithWorld(ws).
		WithHistory(history).
		WithAction("I climb the stairs.").
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	// System prompt, two history messages, user action, final reminder.
	if len(messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(messages))
	}
	if messages[0].Role != chat.RoleSystem {
		t.Errorf("first message role = %q, want system", messages[0].Role)
	}
	if messages[1] != history[0] || messages[2] != history[1] {
		t.Error("history not carried through in order")
	}
	if messages[3].Role != chat.RoleUser || messages[3].Content != "I climb the stairs." {
		t.Errorf("user action message = %+v", messages[3])
	}
	if messages[4].Role != chat.RoleSystem || messages[4].Content != FinalReminder {
		t.Errorf("trailing message should be the final reminder, got %+v", messages[4])
	}
}

func TestBuildSystemPromptContent(t *testing.T) {
	preset := testPreset()
	ws := preset.NewWorld()

	messages, err := BuildMessages(preset, nil, ws, nil, "Look around.")
	if err != nil {
		t.Fatalf("BuildMessages() error: %v", err)
	}

	system := messages[0].Content
	for _, want := range []string{
		"A ruined fortress above a dead city.",
		"[STAT_UPDATE:",
		"[COMBAT_START:",
		"CURRENT GAME STATE",
		"health 100/100",
	} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestBuildIncludesCharacter(t *testing.T) {
	pc, err := player.New(&player.Spec{Name: "Korga", Class: "Fighter", Level: 3})
	if err != nil {
		t.Fatalf("player.New() error: %v", err)
	}

	messages, err := BuildMessages(testPreset(), pc, world.WorldState{}, nil, "Look around.")
	if err != nil {
		t.Fatalf("BuildMessages() error: %v", err)
	}
	if !strings.Contains(messages[0].Content, "Korga") {
		t.Error("system prompt missing character sheet")
	}
}

func TestBuildWindowsHistory(t *testing.T) {
	var history []chat.ChatMessage
	for i := 0; i < 30; i++ {
		history = append(history, chat.UserMessage(fmt.Sprintf("turn %d", i)))
	}

	messages, err := New().
		WithPreset(testPreset()).
		WithHistory(history).
		WithHistoryLimit(4).
		WithAction("Continue.").
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	// System + 4 windowed + action + reminder.
	if len(messages) != 7 {
		t.Fatalf("expected 7 messages, got %d", len(messages))
	}
	if messages[1].Content != "turn 26" {
		t.Errorf("window should keep the most recent messages, first kept = %q", messages[1].Content)
	}
}

func TestBuildRequiredFields(t *testing.T) {
	if _, err := New().WithAction("Go north.").Build(); err == nil {
		t.Error("expected error when preset is missing")
	}
	if _, err := New().WithPreset(testPreset()).Build(); err == nil {
		t.Error("expected error when action is missing")
	}
}
