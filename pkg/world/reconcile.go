package world

import (
	"fmt"

	"github.com/ejpembleton/fateweaver/pkg/directive"
)

// ImageRequest asks the side-effect layer to fetch one illustration
// and patch it onto a segment by id.
type ImageRequest struct {
	Prompt    string
	SegmentID int
}

// Apply advances the world by one parsed reply. It works on a deep
// copy and either fully applies or not at all: on error the caller's
// value is returned unchanged. Phases run in a fixed order because
// later phases read state the earlier ones wrote:
//
//  1. combat transitions
//  2. stat deltas, in the order encountered
//  3. inventory removes, then adds, deduplicated
//  4. narrative segment append, with an image request when the reply
//     asked for an illustration
func Apply(ws WorldState, r directive.Reply) (WorldState, []ImageRequest, error) {
	next := ws.Clone()

	applyCombat(&next, r)
	applyStats(&next, r)
	applyInventory(&next, r)
	reqs := appendNarrative(&next, r)

	if err := next.Validate(); err != nil {
		return ws, nil, fmt.Errorf("reconcile produced invalid state: %w", err)
	}
	return next, reqs, nil
}

// applyCombat installs or clears the enemy. A reply carrying both a
// start and an end nets out inactive: the enemy was introduced and
// resolved in a single narrative beat.
func applyCombat(ws *WorldState, r directive.Reply) {
	if r.CombatStart != nil {
		ws.Combat = &Enemy{
			Name:   r.CombatStart.Name,
			Health: Stat{Current: r.CombatStart.Health, Max: r.CombatStart.Health},
		}
	}
	if r.CombatEnd {
		ws.Combat = nil
	}
}

// applyStats walks the deltas in encountered order, clamping after
// each. enemyHealth targets the enemy installed by applyCombat and is
// discarded when no enemy exists; unrecognized keys are discarded.
func applyStats(ws *WorldState, r directive.Reply) {
	for _, d := range r.StatDeltas {
		switch d.Key {
		case "health":
			ws.Stats.Health.Add(d.Delta)
		case "mana":
			ws.Stats.Mana.Add(d.Delta)
		case "stamina":
			ws.Stats.Stamina.Add(d.Delta)
		case "enemyHealth":
			if ws.Combat != nil {
				ws.Combat.Health.Add(d.Delta)
			}
		}
	}
}

// applyInventory removes first, then adds with the duplicate check, so
// a remove and an add of the same item in one batch leaves it present.
func applyInventory(ws *WorldState, r directive.Reply) {
	for _, item := range r.ItemsRemoved {
		ws.removeItem(item)
	}
	for _, item := range r.ItemsAdded {
		ws.addItem(item)
	}
}

// appendNarrative adds the reply's prose as one segment. A reply with
// no prose appends nothing, and any image prompt it carried is
// dropped with it; an image prompt on a prose reply marks the new
// segment pending and emits the fetch request bearing its id.
func appendNarrative(ws *WorldState, r directive.Reply) []ImageRequest {
	if r.Narrative == "" {
		return nil
	}
	seg := ws.Append(SegmentNarrative, r.Narrative)
	if r.ImagePrompt == "" {
		return nil
	}
	seg.ImageState = ImagePending
	return []ImageRequest{{Prompt: r.ImagePrompt, SegmentID: seg.ID}}
}
