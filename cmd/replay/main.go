// Command replay verifies a saved adventure against its transcript.
// It rebuilds the world from the preset's starting state by running
// every narrator reply back through the parser and reconciler, then
// compares the result with the stored world. Drift means the snapshot
// and the pipeline disagree about how the adventure went.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ejpembleton/fateweaver/internal/config"
	"github.com/ejpembleton/fateweaver/internal/logger"
	"github.com/ejpembleton/fateweaver/internal/storage"
	"github.com/ejpembleton/fateweaver/pkg/adventure"
	"github.com/ejpembleton/fateweaver/pkg/chat"
	"github.com/ejpembleton/fateweaver/pkg/directive"
	"github.com/ejpembleton/fateweaver/pkg/world"
	"github.com/google/uuid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg)

	var (
		redisURL = flag.String("redis", cfg.RedisURL, "redis address of the snapshot store")
		id       = flag.String("id", "", "adventure ID to replay")
		list     = flag.Bool("list", false, "list saved adventures")
		dataDir  = flag.String("data", cfg.DataDir, "data directory holding presets/")
	)
	flag.Parse()

	if *redisURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -redis <addr> -id <uuid>\n       %s -redis <addr> -list\n", os.Args[0], os.Args[0])
		os.Exit(1)
	}

	store, err := storage.NewRedisStore(*redisURL, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open snapshot store: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reach snapshot store: %v\n", err)
		os.Exit(1)
	}

	if *list {
		if err := listAdventures(ctx, store); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list saved adventures: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *id == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -redis <addr> -id <uuid>\n       %s -redis <addr> -list\n", os.Args[0], os.Args[0])
		os.Exit(1)
	}

	adventureID, err := uuid.Parse(*id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid adventure ID %q: %v\n", *id, err)
		os.Exit(1)
	}
	log = logger.WithAdventureID(log, adventureID.String())

	snap, err := store.LoadSnapshot(ctx, adventureID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			fmt.Fprintf(os.Stderr, "No saved adventure with ID %s\n", adventureID)
			os.Exit(1)
		case errors.Is(err, storage.ErrSnapshotCorrupt):
			fmt.Fprintf(os.Stderr, "Snapshot failed to verify: %v\n", err)
			os.Exit(1)
		default:
			fmt.Fprintf(os.Stderr, "Failed to load snapshot: %v\n", err)
			os.Exit(1)
		}
	}

	preset, err := findPreset(filepath.Join(*dataDir, "presets"), snap.Preset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Replaying %s (%s, turn %d)...\n", snap.ID, snap.Preset, snap.Turn)
	log.Debug("Replaying transcript", "messages", len(snap.Transcript))

	recomputed, err := replayTranscript(preset, snap.Transcript)
	if err != nil {
		logger.WithError(log, err).Error("Replay diverged from the saved transcript")
		fmt.Fprintf(os.Stderr, "Replay diverged: %v\n", err)
		os.Exit(1)
	}

	problems := compare(recomputed, snap.WorldState())
	if len(problems) > 0 {
		fmt.Fprintf(os.Stderr, "Replay found drift in %s:\n%s\n", snap.ID, strings.Join(problems, "\n"))
		os.Exit(1)
	}

	fmt.Printf("Replayed %d turns.\n", recomputed.Turn)
	fmt.Println("Snapshot is consistent with its transcript!")
}

// replayTranscript runs every narrator reply through the parser and
// reconciler from the preset's fresh world. Player messages carry no
// state, so they are skipped.
func replayTranscript(preset *adventure.Preset, transcript []chat.ChatMessage) (world.WorldState, error) {
	ws := preset.NewWorld()
	for _, msg := range transcript {
		if msg.Role != chat.RoleAssistant {
			continue
		}
		reply := directive.Parse(msg.Content)
		next, _, err := world.Apply(ws, reply)
		if err != nil {
			return ws, fmt.Errorf("turn %d did not apply: %w", ws.Turn+1, err)
		}
		ws = next
		ws.Turn++
	}
	return ws, nil
}

// compare reports where the recomputed world disagrees with the saved
// one. The narrative log is not compared: it carries presentation
// state (softened text, image refs, system notices) that a bare replay
// does not reproduce.
func compare(got, want world.WorldState) []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, "  - "+fmt.Sprintf(format, args...))
	}

	if got.Turn != want.Turn {
		add("turn count differs: replay %d, snapshot %d", got.Turn, want.Turn)
	}

	if !slices.Equal(got.Inventory, want.Inventory) {
		add("inventory differs: replay %v, snapshot %v", got.Inventory, want.Inventory)
	}

	if got.Stats != want.Stats {
		add("stats differ: replay %+v, snapshot %+v", got.Stats, want.Stats)
	}

	switch {
	case got.Combat == nil && want.Combat == nil:
	case got.Combat == nil:
		add("combat differs: replay has none, snapshot fighting %q", want.Combat.Name)
	case want.Combat == nil:
		add("combat differs: replay fighting %q, snapshot has none", got.Combat.Name)
	case *got.Combat != *want.Combat:
		add("combat differs: replay %+v, snapshot %+v", *got.Combat, *want.Combat)
	}

	return problems
}

func findPreset(dir string, name string) (*adventure.Preset, error) {
	presets, err := adventure.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load presets: %w", err)
	}
	for i := range presets {
		if presets[i].Name == name {
			return &presets[i], nil
		}
	}
	return nil, fmt.Errorf("preset %q is not installed", name)
}

func listAdventures(ctx context.Context, store storage.Storage) error {
	summaries, err := store.ListSnapshots(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No saved adventures.")
		return nil
	}

	fmt.Println("Saved adventures:")
	for _, s := range summaries {
		name := s.PlayerName
		if name == "" {
			name = "-"
		}
		fmt.Printf("  %s  %-24s turn %-4d saved %s  %s\n",
			s.ID, s.Preset, s.Turn, s.SavedAt.Format("2006-01-02 15:04"), name)
	}
	return nil
}
