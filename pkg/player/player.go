// Package player carries the optional character sheet: a small JSON
// spec compiled into a d20 actor, plus the prompt fragment the
// narrator sees every turn. The sheet is context for the generator
// and the UI header; gameplay gauges live in the world state.
package player

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/d20"
)

// Abilities are the six core ability scores.
type Abilities struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

var abilityOrder = []string{
	"strength", "dexterity", "constitution", "intelligence", "wisdom", "charisma",
}

func (a *Abilities) toAttributes() map[string]int {
	return map[string]int{
		"strength":     a.Strength,
		"dexterity":    a.Dexterity,
		"constitution": a.Constitution,
		"intelligence": a.Intelligence,
		"wisdom":       a.Wisdom,
		"charisma":     a.Charisma,
	}
}

// Spec is the serializable character sheet.
type Spec struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Class       string         `json:"class,omitempty"`
	Level       int            `json:"level,omitempty"`
	Pronouns    string         `json:"pronouns,omitempty"`
	Description string         `json:"description,omitempty"`
	Abilities   Abilities      `json:"abilities,omitempty"`
	HP          int            `json:"hp,omitempty"`
	MaxHP       int            `json:"max_hp,omitempty"`
	AC          int            `json:"ac,omitempty"`
	CombatMods  map[string]int `json:"combat_modifiers,omitempty"`
	Skills      map[string]int `json:"skills,omitempty"`
}

// Character is the runtime character: the spec plus its compiled
// actor.
type Character struct {
	Spec  *Spec
	Actor *d20.Actor
}

// New compiles a spec into a character. Sheets without hit points get
// a nominal pool; a missing id is derived from the name.
func New(spec *Spec) (*Character, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("character needs a name")
	}
	if spec.ID == "" {
		spec.ID = strings.ToLower(strings.ReplaceAll(spec.Name, " ", "_"))
	}
	if spec.MaxHP <= 0 {
		spec.MaxHP = 10
	}

	attrs := spec.Abilities.toAttributes()
	maps.Copy(attrs, spec.Skills)

	actor, err := d20.NewActor(spec.ID).
		WithHP(spec.MaxHP).
		WithAC(spec.AC).
		WithAttributes(attrs).
		WithCombatModifiers(spec.CombatMods).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}
	if spec.HP != spec.MaxHP && spec.HP > 0 {
		if err := actor.SetHP(spec.HP); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}

	return &Character{Spec: spec, Actor: actor}, nil
}

// Load reads a character sheet from a JSON file. The filename stem
// becomes the id when the sheet does not carry one.
func Load(path string) (*Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read character file: %w", err)
	}
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse character sheet: %w", err)
	}
	if spec.ID == "" {
		spec.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return New(&spec)
}

// Prompt is the character fragment embedded in the system prompt.
// Empty for a nil character, so callers can pass it through unchecked.
func (c *Character) Prompt() string {
	if c == nil || c.Spec == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("The player controls ")
	sb.WriteString(c.Spec.Name)
	if c.Spec.Pronouns != "" {
		fmt.Fprintf(&sb, " (%s)", c.Spec.Pronouns)
	}
	var parts []string
	if c.Spec.Level > 0 {
		parts = append(parts, fmt.Sprintf("level %d", c.Spec.Level))
	}
	if c.Spec.Class != "" {
		parts = append(parts, c.Spec.Class)
	}
	if len(parts) > 0 {
		sb.WriteString(", " + strings.Join(parts, " "))
	}
	sb.WriteString(".")
	if c.Spec.Description != "" {
		sb.WriteString(" " + c.Spec.Description)
	}

	if c.Actor != nil {
		var scores []string
		for _, key := range abilityOrder {
			if v, ok := c.Actor.Attribute(key); ok && v != 0 {
				scores = append(scores, fmt.Sprintf("%s %d", key, v))
			}
		}
		if len(scores) > 0 {
			sb.WriteString(" Ability scores: " + strings.Join(scores, ", ") + ".")
		}
	}

	return sb.String()
}

// Title is the short form shown in the UI header, e.g.
// "Korga, level 3 Fighter".
func (c *Character) Title() string {
	if c == nil || c.Spec == nil {
		return ""
	}
	title := c.Spec.Name
	if c.Spec.Level > 0 && c.Spec.Class != "" {
		title += fmt.Sprintf(", level %d %s", c.Spec.Level, c.Spec.Class)
	} else if c.Spec.Class != "" {
		title += ", " + c.Spec.Class
	}
	return title
}
