package storage

import (
	"fmt"
	"time"

	"github.com/ejpembleton/fateweaver/pkg/chat"
	"github.com/ejpembleton/fateweaver/pkg/world"
	"github.com/google/uuid"
)

// Snapshot is one saved adventure: the world state plus the raw
// transcript the narrator has produced so far. The transcript keeps
// the unstripped replies, so a resumed session rebuilds its prompt
// history exactly and a replay can re-derive the world from scratch.
type Snapshot struct {
	ID         uuid.UUID          `json:"id"`
	Preset     string             `json:"preset"`
	PlayerName string             `json:"player_name,omitempty"`
	SavedAt    time.Time          `json:"saved_at"`
	Turn       int                `json:"turn"`
	World      world.WorldState   `json:"world"`
	Transcript []chat.ChatMessage `json:"transcript"`
}

// Summary is the listing row for a saved adventure
type Summary struct {
	ID         uuid.UUID `json:"id"`
	Preset     string    `json:"preset"`
	PlayerName string    `json:"player_name,omitempty"`
	SavedAt    time.Time `json:"saved_at"`
	Turn       int       `json:"turn"`
}

// NewSnapshot captures the current adventure for persistence. Pending
// image requests are in-flight goroutines that die with the process,
// so their segments are written back to the unillustrated state.
func NewSnapshot(id uuid.UUID, preset string, playerName string, turn int, ws world.WorldState, transcript []chat.ChatMessage) *Snapshot {
	saved := ws.Clone()
	for i := range saved.Log {
		if saved.Log[i].ImageState == world.ImagePending {
			saved.Log[i].ImageState = world.ImageNone
		}
	}

	messages := make([]chat.ChatMessage, len(transcript))
	copy(messages, transcript)

	return &Snapshot{
		ID:         id,
		Preset:     preset,
		PlayerName: playerName,
		Turn:       turn,
		World:      saved,
		Transcript: messages,
	}
}

// Validate checks that a decoded snapshot is usable
func (s *Snapshot) Validate() error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("snapshot has no adventure ID")
	}
	if s.Preset == "" {
		return fmt.Errorf("snapshot has no preset name")
	}
	if s.Turn < 0 {
		return fmt.Errorf("snapshot has negative turn count")
	}
	if err := s.World.Validate(); err != nil {
		return fmt.Errorf("snapshot world state: %w", err)
	}
	return nil
}

// WorldState reconstructs the playable world from the snapshot
func (s *Snapshot) WorldState() world.WorldState {
	ws := s.World.Clone()
	ws.Normalize()
	return ws
}

// Summary returns the listing row for this snapshot
func (s *Snapshot) Summary() Summary {
	return Summary{
		ID:         s.ID,
		Preset:     s.Preset,
		PlayerName: s.PlayerName,
		SavedAt:    s.SavedAt,
		Turn:       s.Turn,
	}
}
