// Package world holds the explicit state of one adventure and the
// pure reconciliation that advances it from parsed generator replies.
package world

import (
	"fmt"
	"slices"
)

// SegmentKind classifies a narrative log entry.
type SegmentKind string

const (
	SegmentNarrative SegmentKind = "narrative" // generator prose
	SegmentAction    SegmentKind = "action"    // echoed player input
	SegmentSystem    SegmentKind = "system"    // client notices
)

// ImageState tracks a segment's illustration lifecycle. Resolved is
// terminal; a resolved segment's image fields never change again.
type ImageState string

const (
	ImageNone     ImageState = ""
	ImagePending  ImageState = "pending"
	ImageResolved ImageState = "resolved"
)

// Segment is one entry in the narrative log. Kind and text are
// immutable once appended; only the image fields transition, exactly
// once, from pending to resolved.
type Segment struct {
	ID         int         `json:"id"`
	Kind       SegmentKind `json:"kind"`
	Text       string      `json:"text"`
	ImageState ImageState  `json:"image_state,omitempty"`
	ImageRef   string      `json:"image_ref,omitempty"`
}

// Stat is a bounded gauge.
type Stat struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Add applies a signed delta. Current cannot go below 0 or exceed Max.
func (s *Stat) Add(delta int) {
	s.Current += delta
	if s.Current < 0 {
		s.Current = 0
	}
	if s.Current > s.Max {
		s.Current = s.Max
	}
}

func (s Stat) validate(name string) error {
	if s.Max < 0 || s.Current < 0 || s.Current > s.Max {
		return fmt.Errorf("%s out of range: %d/%d", name, s.Current, s.Max)
	}
	return nil
}

// Stats are the player gauges shown in the meta panel.
type Stats struct {
	Health  Stat `json:"health"`
	Mana    Stat `json:"mana"`
	Stamina Stat `json:"stamina"`
}

// Enemy is the current combat opponent. Its presence is the combat
// flag: combat is active iff the world holds a non-nil Enemy.
type Enemy struct {
	Name   string `json:"name"`
	Health Stat   `json:"health"`
}

// WorldState is the single live value describing one adventure. The
// game controller owns exactly one instance, replacing it wholesale on
// reconcile, load, and restart. Everything on it serializes; transient
// image-pending flags are stripped by the snapshot layer, not here.
type WorldState struct {
	Log       []Segment `json:"log"`
	Inventory []string  `json:"inventory"`
	Stats     Stats     `json:"stats"`
	Combat    *Enemy    `json:"combat,omitempty"`
	NextID    int       `json:"next_id"`
	Turn      int       `json:"turn"`
}

// New builds the starting world for an adventure. The starting
// inventory is deduplicated; segment ids begin at 1.
func New(stats Stats, inventory []string) WorldState {
	ws := WorldState{NextID: 1, Stats: stats}
	for _, item := range inventory {
		ws.addItem(item)
	}
	return ws
}

// Clone deep-copies the world so a reconcile can work on a scratch
// value and leave the caller's state untouched on error.
func (ws WorldState) Clone() WorldState {
	next := ws
	next.Log = slices.Clone(ws.Log)
	next.Inventory = slices.Clone(ws.Inventory)
	if ws.Combat != nil {
		enemy := *ws.Combat
		next.Combat = &enemy
	}
	return next
}

// Append adds a log segment of the given kind, assigning the next
// monotonic id. Ids are unique within an adventure and never reused.
func (ws *WorldState) Append(kind SegmentKind, text string) *Segment {
	if ws.NextID <= 0 {
		ws.NextID = 1
	}
	seg := Segment{ID: ws.NextID, Kind: kind, Text: text}
	ws.NextID++
	ws.Log = append(ws.Log, seg)
	return &ws.Log[len(ws.Log)-1]
}

// Segment returns the log entry with the given id, or nil.
func (ws *WorldState) Segment(id int) *Segment {
	for i := range ws.Log {
		if ws.Log[i].ID == id {
			return &ws.Log[i]
		}
	}
	return nil
}

// ResolveImage records the outcome of an illustration fetch against
// the segment with the given id. Only a pending segment accepts the
// patch; a missing, untracked, or already resolved segment is a no-op,
// which makes stale completions safe. ref is empty when the fetch
// failed.
func (ws *WorldState) ResolveImage(id int, ref string) bool {
	seg := ws.Segment(id)
	if seg == nil || seg.ImageState != ImagePending {
		return false
	}
	seg.ImageState = ImageResolved
	seg.ImageRef = ref
	return true
}

// HasItem reports whether the named item is in the inventory.
func (ws *WorldState) HasItem(item string) bool {
	return slices.Contains(ws.Inventory, item)
}

func (ws *WorldState) addItem(item string) {
	if slices.Contains(ws.Inventory, item) {
		return
	}
	ws.Inventory = append(ws.Inventory, item)
}

func (ws *WorldState) removeItem(item string) {
	for i, it := range ws.Inventory {
		if it == item {
			ws.Inventory = append(ws.Inventory[:i], ws.Inventory[i+1:]...)
			break
		}
	}
}

// Normalize collapses duplicate inventory entries, keeping first
// occurrence order. Loaded snapshots pass through here.
func (ws *WorldState) Normalize() {
	items := ws.Inventory
	ws.Inventory = nil
	for _, item := range items {
		ws.addItem(item)
	}
}

// Validate checks the structural invariants: gauges within bounds, a
// named enemy when combat is active, and strictly increasing segment
// ids below NextID.
func (ws *WorldState) Validate() error {
	if err := ws.Stats.Health.validate("health"); err != nil {
		return err
	}
	if err := ws.Stats.Mana.validate("mana"); err != nil {
		return err
	}
	if err := ws.Stats.Stamina.validate("stamina"); err != nil {
		return err
	}
	if ws.Combat != nil {
		if ws.Combat.Name == "" {
			return fmt.Errorf("combat enemy has no name")
		}
		if err := ws.Combat.Health.validate("enemy health"); err != nil {
			return err
		}
	}
	last := 0
	for _, seg := range ws.Log {
		if seg.ID <= last {
			return fmt.Errorf("segment ids not increasing at %d", seg.ID)
		}
		last = seg.ID
	}
	if last >= ws.NextID {
		return fmt.Errorf("next segment id %d not past last id %d", ws.NextID, last)
	}
	return nil
}
