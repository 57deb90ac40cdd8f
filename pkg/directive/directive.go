// Package directive extracts bracketed control directives from raw
// generator replies, separating them from narrative prose.
package directive

// StatDelta is a single signed adjustment to a named stat.
type StatDelta struct {
	Key   string `json:"key"`
	Delta int    `json:"delta"`
}

// CombatStart announces a new enemy engagement.
type CombatStart struct {
	Name   string `json:"name"`
	Health int    `json:"health"`
}

// Reply is the structured form of one generator reply: clean narrative
// text plus every directive encountered, in the order encountered.
type Reply struct {
	Narrative    string       `json:"narrative"`
	ItemsAdded   []string     `json:"items_added,omitempty"`
	ItemsRemoved []string     `json:"items_removed,omitempty"`
	StatDeltas   []StatDelta  `json:"stat_deltas,omitempty"`
	CombatStart  *CombatStart `json:"combat_start,omitempty"`
	CombatEnd    bool         `json:"combat_end,omitempty"`
	ImagePrompt  string       `json:"image_prompt,omitempty"`
}

// HasDirectives reports whether the reply carried any directive.
func (r *Reply) HasDirectives() bool {
	return len(r.ItemsAdded) > 0 || len(r.ItemsRemoved) > 0 ||
		len(r.StatDeltas) > 0 || r.CombatStart != nil ||
		r.CombatEnd || r.ImagePrompt != ""
}
