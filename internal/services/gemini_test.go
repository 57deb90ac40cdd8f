package services

import (
	"strings"
	"testing"

	"github.com/ejpembleton/fateweaver/pkg/chat"
)

func TestFlattenMessages(t *testing.T) {
	messages := []chat.ChatMessage{
		{Role: chat.RoleSystem, Content: "You are the narrator."},
		{Role: chat.RoleUser, Content: "I open the chest."},
		{Role: chat.RoleAssistant, Content: "The lid groans."},
		{Role: "tool", Content: "ignored"},
	}

	got := flattenMessages(messages)

	if !strings.HasPrefix(got, "You are the narrator.") {
		t.Errorf("system content should lead the prompt:\n%s", got)
	}
	if !strings.Contains(got, "Player: I open the chest.") {
		t.Error("user turns should carry the Player label")
	}
	if !strings.Contains(got, "Narrator: The lid groans.") {
		t.Error("assistant turns should carry the Narrator label")
	}
	if strings.Contains(got, "ignored") {
		t.Error("unknown roles should be dropped")
	}
	if !strings.HasSuffix(got, "Narrator: ") {
		t.Errorf("prompt should end with an open narrator turn, got %q", got[len(got)-20:])
	}
}

func TestFlattenMessagesEmpty(t *testing.T) {
	if got := flattenMessages(nil); got != "Narrator: " {
		t.Errorf("flattenMessages(nil) = %q", got)
	}
}
