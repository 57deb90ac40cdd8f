// Package adventure defines the preset scenarios a new game starts
// from: setting, opening instruction, rating, starting stats and
// inventory.
package adventure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ejpembleton/fateweaver/pkg/world"
	"gopkg.in/yaml.v3"
)

// Ratings gate the narrative text filter.
const (
	RatingFamily = "family"
	RatingAdult  = "adult"
)

// StartingStats are the gauge maxima a preset opens with. Current
// always starts full.
type StartingStats struct {
	Health  int `yaml:"health"`
	Mana    int `yaml:"mana"`
	Stamina int `yaml:"stamina"`
}

// Preset describes one playable scenario.
type Preset struct {
	Name       string        `yaml:"name"`
	Setting    string        `yaml:"setting"`
	Opening    string        `yaml:"opening"`
	Rating     string        `yaml:"rating"`
	ImageStyle string        `yaml:"image_style"`
	Stats      StartingStats `yaml:"stats"`
	Inventory  []string      `yaml:"inventory"`
}

// Validate checks required fields and normalizes the rating. An empty
// rating defaults to adult.
func (p *Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("preset name is required")
	}
	if strings.TrimSpace(p.Opening) == "" {
		return fmt.Errorf("preset %q has no opening", p.Name)
	}
	if p.Stats.Health <= 0 {
		return fmt.Errorf("preset %q must have positive health", p.Name)
	}
	if p.Stats.Mana < 0 || p.Stats.Stamina < 0 {
		return fmt.Errorf("preset %q has negative stat maxima", p.Name)
	}
	switch p.Rating {
	case "":
		p.Rating = RatingAdult
	case RatingFamily, RatingAdult:
	default:
		return fmt.Errorf("preset %q has unknown rating %q", p.Name, p.Rating)
	}
	return nil
}

// NewWorld builds the starting world state for this preset.
func (p *Preset) NewWorld() world.WorldState {
	return world.New(world.Stats{
		Health:  world.Stat{Current: p.Stats.Health, Max: p.Stats.Health},
		Mana:    world.Stat{Current: p.Stats.Mana, Max: p.Stats.Mana},
		Stamina: world.Stat{Current: p.Stats.Stamina, Max: p.Stats.Stamina},
	}, p.Inventory)
}

// Load reads and validates one preset file.
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset: %w", err)
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse preset %s: %w", filepath.Base(path), err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadDir reads every .yaml/.yml preset under dir, sorted by name.
// A missing or empty directory falls back to the built-in presets so
// the client always has something to offer.
func LoadDir(dir string) ([]Preset, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preset dir: %w", err)
	}

	var presets []Preset
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		p, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		presets = append(presets, *p)
	}
	if len(presets) == 0 {
		return Defaults(), nil
	}
	slices.SortFunc(presets, func(a, b Preset) int {
		return strings.Compare(a.Name, b.Name)
	})
	return presets, nil
}

// Defaults are the built-in presets used when no data directory is
// present.
func Defaults() []Preset {
	return []Preset{
		{
			Name: "The Ashen Keep",
			Setting: "A grim homestead fantasy. The keep above the village of " +
				"Greywater burned a generation ago, and something has started " +
				"lighting candles in its windows.",
			Opening: "Begin the adventure. The player arrives at the gates of " +
				"the ruined keep at dusk, hired to learn who or what has " +
				"taken residence. Set the scene and end with something that " +
				"invites a first action.",
			Rating:     RatingAdult,
			ImageStyle: "oil painting, chiaroscuro, muted palette",
			Stats:      StartingStats{Health: 100, Mana: 50, Stamina: 75},
			Inventory:  []string{"torch", "rations"},
		},
		{
			Name: "Neon Harbor",
			Setting: "A rain-slick port city of stacked container tenements " +
				"and grey-market arcologies. The player is a freelance " +
				"courier with one last delivery before dawn.",
			Opening: "Begin the adventure. The player is on the quay at " +
				"midnight holding a sealed package with no address, only a " +
				"hand-drawn harbor mark. Set the scene and end with " +
				"something that invites a first action.",
			Rating:     RatingFamily,
			ImageStyle: "neon noir, wet reflections, cinematic",
			Stats:      StartingStats{Health: 80, Mana: 0, Stamina: 100},
			Inventory:  []string{"sealed package", "transit pass"},
		},
	}
}
