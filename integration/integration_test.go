//go:build integration
// +build integration

// Package integration exercises the full client stack against a real
// Redis: controller, reconciler, prompt builder, autosave, snapshot
// round trip, and the replay consistency check. Run with a Redis
// reachable at REDIS_URL (default localhost:6379):
//
//	go test -tags integration ./integration/
package integration

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ejpembleton/fateweaver/internal/game"
	"github.com/ejpembleton/fateweaver/internal/services"
	"github.com/ejpembleton/fateweaver/internal/storage"
	"github.com/ejpembleton/fateweaver/pkg/adventure"
	"github.com/ejpembleton/fateweaver/pkg/chat"
	"github.com/ejpembleton/fateweaver/pkg/directive"
	"github.com/ejpembleton/fateweaver/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *storage.RedisStore {
	t.Helper()

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := storage.NewRedisStore(redisURL, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		t.Skipf("Redis not reachable at %s: %v", redisURL, err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestFullAdventureFlow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	gen := services.NewMockGenerator()
	gen.QueueReplies(
		"The gates of the keep loom over you. [IMAGE_PROMPT: a ruined keep at dusk]",
		"You pry the rusted lock loose and pocket it. [INVENTORY_ADD: rusted lock] [STAT_UPDATE: stamina=-10]",
		"A rust knight steps from the shadows! [COMBAT_START: name=Rust Knight, health=30]",
	)

	presets := adventure.Defaults()
	preset := &presets[0]

	ctrl, err := game.New(game.Options{
		Preset:           preset,
		Generator:        gen,
		Illustrator:      services.NewMockIllustrator(),
		Store:            store,
		AutoSaveInterval: 20 * time.Millisecond,
		ImageDir:         t.TempDir(),
	})
	require.NoError(t, err)
	adventureID := ctrl.AdventureID()
	t.Cleanup(func() {
		_ = store.DeleteSnapshot(context.Background(), adventureID)
		_ = ctrl.Close()
	})

	require.NoError(t, ctrl.Begin(ctx))
	require.NoError(t, ctrl.Play(ctx, "Force the gate lock"))
	require.NoError(t, ctrl.Play(ctx, "Step into the courtyard"))

	ws := ctrl.State()
	assert.Equal(t, 3, ws.Turn)
	assert.True(t, ws.HasItem("rusted lock"))
	assert.Equal(t, 65, ws.Stats.Stamina.Current)
	require.NotNil(t, ws.Combat)
	assert.Equal(t, "Rust Knight", ws.Combat.Name)

	// Manual save, then read the snapshot back through the real store
	require.NoError(t, ctrl.Save(ctx))
	snap, err := store.LoadSnapshot(ctx, adventureID)
	require.NoError(t, err)
	assert.Equal(t, preset.Name, snap.Preset)
	assert.Equal(t, 3, snap.Turn)
	assert.Len(t, snap.Transcript, 6)

	// Resume into a fresh controller and keep playing
	gen2 := services.NewMockGenerator()
	gen2.QueueReplies("The knight collapses into flakes of rust. [COMBAT_END]")

	ctrl2, err := game.Resume(snap, game.Options{
		Preset:    preset,
		Generator: gen2,
		Store:     store,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ctrl2.Close()
	})
	assert.Equal(t, adventureID, ctrl2.AdventureID())

	require.NoError(t, ctrl2.Play(ctx, "Strike the knight down"))
	ws2 := ctrl2.State()
	assert.Equal(t, 4, ws2.Turn)
	assert.Nil(t, ws2.Combat)
	assert.True(t, ws2.HasItem("rusted lock"))

	// The saved transcript must replay to the saved world
	require.NoError(t, ctrl2.Save(ctx))
	snap2, err := store.LoadSnapshot(ctx, adventureID)
	require.NoError(t, err)

	replayed := replayTranscript(t, preset, snap2.Transcript)
	saved := snap2.WorldState()
	assert.Equal(t, saved.Inventory, replayed.Inventory)
	assert.Equal(t, saved.Stats, replayed.Stats)
	assert.Equal(t, saved.Combat, replayed.Combat)
	assert.Equal(t, saved.Turn, replayed.Turn)
}

func TestAutoSavePersistsAcrossSessions(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	gen := services.NewMockGenerator()
	gen.QueueReplies("You light the torch. [INVENTORY_REMOVE: rations]")

	presets := adventure.Defaults()
	preset := &presets[0]

	ctrl, err := game.New(game.Options{
		Preset:           preset,
		Generator:        gen,
		Store:            store,
		AutoSaveInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	adventureID := ctrl.AdventureID()
	t.Cleanup(func() {
		_ = store.DeleteSnapshot(context.Background(), adventureID)
		_ = ctrl.Close()
	})

	require.NoError(t, ctrl.Begin(ctx))

	// The debounced save fires on its own
	require.Eventually(t, func() bool {
		_, err := store.LoadSnapshot(context.Background(), adventureID)
		return err == nil
	}, 2*time.Second, 50*time.Millisecond, "autosave never landed")

	summaries, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	found := false
	for _, s := range summaries {
		if s.ID == adventureID {
			found = true
			assert.Equal(t, preset.Name, s.Preset)
		}
	}
	assert.True(t, found, "adventure missing from listing")
}

func replayTranscript(t *testing.T, preset *adventure.Preset, transcript []chat.ChatMessage) world.WorldState {
	t.Helper()
	ws := preset.NewWorld()
	for _, msg := range transcript {
		if msg.Role != chat.RoleAssistant {
			continue
		}
		next, _, err := world.Apply(ws, directive.Parse(msg.Content))
		require.NoError(t, err)
		ws = next
		ws.Turn++
	}
	return ws
}
