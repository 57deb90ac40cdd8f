package prompts

import (
	"strings"
	"testing"

	"github.com/ejpembleton/fateweaver/pkg/adventure"
	"github.com/ejpembleton/fateweaver/pkg/world"
)

func TestContentRatingPrompt(t *testing.T) {
	family := ContentRatingPrompt(adventure.RatingFamily)
	if !strings.Contains(family, "all ages") {
		t.Errorf("family rating prompt missing audience guidance: %q", family)
	}

	adult := ContentRatingPrompt(adventure.RatingAdult)
	if adult == "" {
		t.Error("adult rating prompt is empty")
	}
	if adult == family {
		t.Error("adult and family rating prompts should differ")
	}

	if got := ContentRatingPrompt("unrated"); got != ContentRatingPrompt(adventure.RatingAdult) {
		t.Errorf("unknown rating should fall back to adult guidance, got %q", got)
	}
}

func TestDirectiveProtocolListsAllTags(t *testing.T) {
	tags := []string{
		"[INVENTORY_ADD:",
		"[INVENTORY_REMOVE:",
		"[STAT_UPDATE:",
		"[COMBAT_START:",
		"[COMBAT_END]",
		"[IMAGE_PROMPT:",
	}
	for _, tag := range tags {
		if !strings.Contains(DirectiveProtocol, tag) {
			t.Errorf("directive protocol missing %s", tag)
		}
	}
}

func TestStateContext(t *testing.T) {
	ws := world.New(world.Stats{
		Health:  world.Stat{Current: 70, Max: 100},
		Mana:    world.Stat{Current: 50, Max: 50},
		Stamina: world.Stat{Current: 10, Max: 75},
	}, []string{"torch", "rope"})

	got := StateContext(ws)
	for _, want := range []string{
		"health 70/100",
		"mana 50/50",
		"stamina 10/75",
		"torch",
		"rope",
		"No combat in progress.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("state context missing %q:\n%s", want, got)
		}
	}
}

func TestStateContextCombat(t *testing.T) {
	ws := world.New(world.Stats{
		Health: world.Stat{Current: 100, Max: 100},
	}, nil)
	ws.Combat = &world.Enemy{
		Name:   "Dire Wolf",
		Health: world.Stat{Current: 18, Max: 30},
	}

	got := StateContext(ws)
	if !strings.Contains(got, "Dire Wolf") || !strings.Contains(got, "18/30") {
		t.Errorf("state context missing combat detail:\n%s", got)
	}
	if strings.Contains(got, "No combat in progress.") {
		t.Error("combat state context should not claim no combat")
	}
}

func TestStateContextEmptyInventory(t *testing.T) {
	ws := world.New(world.Stats{
		Health: world.Stat{Current: 100, Max: 100},
	}, nil)

	got := StateContext(ws)
	if !strings.Contains(got, "Inventory: empty.") {
		t.Errorf("state context should note empty inventory:\n%s", got)
	}
}
