package adventure

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPresetValidate(t *testing.T) {
	valid := func() Preset {
		return Preset{
			Name:    "Test",
			Opening: "Begin.",
			Stats:   StartingStats{Health: 100, Mana: 50, Stamina: 75},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Preset)
		wantErr bool
	}{
		{"valid", func(p *Preset) {}, false},
		{"missing name", func(p *Preset) { p.Name = " " }, true},
		{"missing opening", func(p *Preset) { p.Opening = "" }, true},
		{"zero health", func(p *Preset) { p.Stats.Health = 0 }, true},
		{"negative mana", func(p *Preset) { p.Stats.Mana = -1 }, true},
		{"zero mana ok", func(p *Preset) { p.Stats.Mana = 0 }, false},
		{"family rating", func(p *Preset) { p.Rating = RatingFamily }, false},
		{"unknown rating", func(p *Preset) { p.Rating = "PG13" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPresetValidateDefaultsRating(t *testing.T) {
	p := Preset{Name: "Test", Opening: "Begin.", Stats: StartingStats{Health: 10}}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p.Rating != RatingAdult {
		t.Errorf("rating = %q, want default %q", p.Rating, RatingAdult)
	}
}

func TestPresetNewWorld(t *testing.T) {
	p := Preset{
		Name:      "Test",
		Opening:   "Begin.",
		Stats:     StartingStats{Health: 100, Mana: 50, Stamina: 75},
		Inventory: []string{"torch", "torch", "rope"},
	}

	ws := p.NewWorld()
	if ws.Stats.Health.Current != 100 || ws.Stats.Health.Max != 100 {
		t.Errorf("health = %+v", ws.Stats.Health)
	}
	if ws.Stats.Mana.Max != 50 || ws.Stats.Stamina.Max != 75 {
		t.Errorf("stats = %+v", ws.Stats)
	}
	if len(ws.Inventory) != 2 {
		t.Errorf("inventory = %v, want deduplicated", ws.Inventory)
	}
	if ws.Combat != nil {
		t.Error("fresh world should not be in combat")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	preset := `name: Windward Isles
setting: Sun-bleached archipelago.
opening: Begin at the tideline.
rating: family
stats:
  health: 90
  mana: 20
  stamina: 60
inventory:
  - driftwood charm
`
	if err := os.WriteFile(filepath.Join(dir, "isles.yaml"), []byte(preset), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("write decoy: %v", err)
	}

	presets, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(presets) != 1 {
		t.Fatalf("presets = %d, want 1", len(presets))
	}
	p := presets[0]
	if p.Name != "Windward Isles" || p.Rating != RatingFamily || p.Stats.Health != 90 {
		t.Errorf("preset = %+v", p)
	}
	if len(p.Inventory) != 1 || p.Inventory[0] != "driftwood charm" {
		t.Errorf("inventory = %v", p.Inventory)
	}
}

func TestLoadDirMissingFallsBack(t *testing.T) {
	presets, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(presets) == 0 {
		t.Fatal("expected built-in presets")
	}
	for _, p := range presets {
		pp := p
		if err := pp.Validate(); err != nil {
			t.Errorf("built-in preset %q invalid: %v", p.Name, err)
		}
	}
}

func TestLoadRejectsBadPreset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("name: Broken\nstats:\n  health: 0\n"), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}
