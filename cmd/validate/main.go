// Command validate checks adventure data files before they ship: preset
// YAML and character sheet JSON. Strict decoding catches misspelled
// fields that the lenient runtime loaders would silently drop.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ejpembleton/fateweaver/pkg/adventure"
	"github.com/ejpembleton/fateweaver/pkg/player"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <preset.yaml | character.json>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	if err := validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
}

func validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(baseName))

	stem := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if !isValidFilename(stem) {
		return fmt.Errorf("filename %q must be lowercase snake_case (e.g., the_ashen_keep.yaml, not The-Ashen-Keep.yaml)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	switch ext {
	case ".yaml", ".yml":
		if err := validatePreset(data); err != nil {
			return err
		}
		fmt.Println("Preset file is valid!")
	case ".json":
		if err := validateCharacter(data); err != nil {
			return err
		}
		fmt.Println("Character sheet is valid!")
	default:
		return fmt.Errorf("unsupported file type %q: presets are .yaml, character sheets are .json", ext)
	}

	return nil
}

func validatePreset(data []byte) error {
	var p adventure.Preset
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return fmt.Errorf("failed strict YAML decoding: %w", err)
	}
	return p.Validate()
}

func validateCharacter(data []byte) error {
	var spec player.Spec
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&spec); err != nil {
		return fmt.Errorf("failed strict JSON decoding: %w", err)
	}
	if _, err := player.New(&spec); err != nil {
		return err
	}
	return nil
}

var validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidFilename(name string) bool {
	return validFilenameRegex.MatchString(name)
}
