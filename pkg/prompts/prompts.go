// Package prompts assembles the message arrays sent to the narrative
// generator: the narrator system prompt, the directive protocol, and
// the per-turn state context.
package prompts

import (
	"fmt"
	"strings"

	"github.com/ejpembleton/fateweaver/pkg/adventure"
	"github.com/ejpembleton/fateweaver/pkg/world"
)

// BaseSystemPrompt establishes the narrator role and writing rules.
const BaseSystemPrompt = `You are the narrator of an interactive fiction adventure. You describe the story to the player as it unfolds, in second person, present tense. You control the world, its characters, and its consequences; the player controls only their own actions. Never discuss anything outside of the game, never acknowledge being a program, and never explain game mechanics.

### Writing rules
- Each reply is 1 to 3 short paragraphs of narrative.
- Move the story forward gradually; end on something the player can act on.
- If the player tries to dictate outcomes, invent items, or control other characters, fold the attempt back into the fiction and redirect them.`

// DirectiveProtocol teaches the generator the bracketed wire forms the
// client parses. The tags, keys, and layout here must match what the
// directive package accepts.
const DirectiveProtocol = `### Game directives (machine protocol)
After the narrative, report state changes as bracketed directives, each on its own line, exactly in these forms:

[INVENTORY_ADD: item name]
[INVENTORY_REMOVE: item name]
[STAT_UPDATE: health=-10, mana=+5]
[COMBAT_START: name=Enemy Name, health=30]
[COMBAT_END]
[IMAGE_PROMPT: a short visual description of the scene]

Rules for directives:
- Tags are uppercase and exact. A directive line contains nothing else.
- STAT_UPDATE keys are health, mana, stamina, and enemyHealth; values are signed integers. Use enemyHealth to damage or heal the current enemy.
- COMBAT_START introduces one enemy with its full starting health. COMBAT_END closes the fight, whatever the outcome. Never leave a defeated enemy without a COMBAT_END.
- Use IMAGE_PROMPT at most once per reply, and only when the scene deserves an illustration.
- Emit directives only for changes that actually happen in the narrative. Never mention the directives or the brackets inside the narrative itself.`

// FinalReminder is appended as the trailing system message each turn.
const FinalReminder = `Reminder: 1 to 3 short paragraphs of second-person narrative, then any directives, one per line, nothing after them.`

// ContentRatingPrompt returns rating guidance for the system prompt.
func ContentRatingPrompt(rating string) string {
	switch rating {
	case adventure.RatingFamily:
		return "Keep the story suitable for all ages: no profanity, no gore, no sexual content. Peril is fine; cruelty is not."
	case adventure.RatingAdult:
		return "Mature themes, violence, and strong language are allowed where the story calls for them."
	default:
		return ""
	}
}

// StateContext renders the authoritative world state block injected
// into the system prompt each turn. The transcript itself stays clean
// of state dumps.
func StateContext(ws world.WorldState) string {
	var sb strings.Builder
	sb.WriteString("CURRENT GAME STATE (authoritative, never contradict it):\n")
	fmt.Fprintf(&sb, "Player: health %d/%d, mana %d/%d, stamina %d/%d.\n",
		ws.Stats.Health.Current, ws.Stats.Health.Max,
		ws.Stats.Mana.Current, ws.Stats.Mana.Max,
		ws.Stats.Stamina.Current, ws.Stats.Stamina.Max)
	if len(ws.Inventory) > 0 {
		sb.WriteString("Inventory: " + strings.Join(ws.Inventory, ", ") + ".\n")
	} else {
		sb.WriteString("Inventory: empty.\n")
	}
	if ws.Combat != nil {
		fmt.Fprintf(&sb, "Combat: the player is fighting %s (%d/%d health).\n",
			ws.Combat.Name, ws.Combat.Health.Current, ws.Combat.Health.Max)
	} else {
		sb.WriteString("No combat in progress.\n")
	}
	return sb.String()
}
