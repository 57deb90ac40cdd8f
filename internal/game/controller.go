// Package game serializes turns over the world state. The controller
// owns the transcript, drives the generator, dispatches image and
// persistence side effects, and publishes events to the UI.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ejpembleton/fateweaver/internal/services"
	"github.com/ejpembleton/fateweaver/internal/storage"
	"github.com/ejpembleton/fateweaver/pkg/adventure"
	"github.com/ejpembleton/fateweaver/pkg/chat"
	"github.com/ejpembleton/fateweaver/pkg/directive"
	"github.com/ejpembleton/fateweaver/pkg/player"
	"github.com/ejpembleton/fateweaver/pkg/prompts"
	"github.com/ejpembleton/fateweaver/pkg/textfilter"
	"github.com/ejpembleton/fateweaver/pkg/world"
	"github.com/google/uuid"
)

var (
	// ErrBusy rejects an action while another is in flight.
	ErrBusy = errors.New("a turn is already in flight")
	// ErrNoStorage rejects an explicit save when no store is configured.
	ErrNoStorage = errors.New("no storage configured")
)

const (
	// chatTimeout bounds one generator exchange.
	chatTimeout = 120 * time.Second
	// imageTimeout bounds one illustration fetch.
	imageTimeout = 2 * time.Minute

	eventBuffer = 32
)

const (
	msgNarratorDown = "The narrator did not respond. The story is unchanged; try again."
	msgQuotaHit     = "Auto-save is off: storage is full. The story continues, but progress will not be saved."
)

// Options wires a controller. Preset and Generator are required; the
// rest degrade gracefully when absent (no illustrations, no saves, no
// character sheet).
type Options struct {
	Preset      *adventure.Preset
	Character   *player.Character
	Generator   services.Generator
	Illustrator services.Illustrator
	Store       storage.Storage

	// AutoSaveInterval is the debounce window for background saves.
	// Zero means storage.DefaultAutoSaveInterval.
	AutoSaveInterval time.Duration

	// ImageDir is where fetched illustrations are written; a segment's
	// image ref is the file path.
	ImageDir string

	// Rating overrides the preset's content rating when set.
	Rating string

	Logger *slog.Logger
}

// Controller runs one adventure. All state behind the mutex is
// replaced or appended under it; the busy flag keeps reconciliation
// single file while the generator call itself runs unlocked.
type Controller struct {
	mu   sync.Mutex
	busy bool

	adventureID uuid.UUID
	world       world.WorldState
	transcript  []chat.ChatMessage

	lastSaved     time.Time
	saveErr       error
	quotaReported bool

	preset      *adventure.Preset
	character   *player.Character
	generator   services.Generator
	illustrator services.Illustrator
	store       storage.Storage
	saver       *storage.AutoSaver
	softener    *textfilter.Softener
	imageDir    string
	logger      *slog.Logger

	events chan Event
}

// New starts a fresh adventure from the preset: starting stats,
// starting inventory, and an opening system segment in the log.
func New(opts Options) (*Controller, error) {
	c, err := newController(opts)
	if err != nil {
		return nil, err
	}
	c.adventureID = uuid.New()
	c.world = c.preset.NewWorld()
	c.world.Append(world.SegmentSystem, c.openingNotice())
	return c, nil
}

// Resume restores an adventure from a snapshot. The generator session
// continues from the saved transcript; a resume notice lands in the
// log.
func Resume(snap *storage.Snapshot, opts Options) (*Controller, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot is required")
	}
	c, err := newController(opts)
	if err != nil {
		return nil, err
	}
	if snap.Preset != c.preset.Name {
		return nil, fmt.Errorf("snapshot belongs to preset %q, not %q", snap.Preset, c.preset.Name)
	}
	c.adventureID = snap.ID
	c.world = snap.WorldState()
	c.transcript = slices.Clone(snap.Transcript)
	c.world.Append(world.SegmentSystem,
		fmt.Sprintf("Resumed %s at turn %d.", c.preset.Name, c.world.Turn))
	return c, nil
}

func newController(opts Options) (*Controller, error) {
	if opts.Preset == nil {
		return nil, fmt.Errorf("preset is required")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rating := opts.Rating
	if rating == "" {
		rating = opts.Preset.Rating
	}

	c := &Controller{
		preset:      opts.Preset,
		character:   opts.Character,
		generator:   opts.Generator,
		illustrator: opts.Illustrator,
		store:       opts.Store,
		imageDir:    opts.ImageDir,
		logger:      logger,
		events:      make(chan Event, eventBuffer),
	}
	if textfilter.Active(rating) {
		c.softener = textfilter.New()
	}
	if opts.Store != nil {
		interval := opts.AutoSaveInterval
		if interval <= 0 {
			interval = storage.DefaultAutoSaveInterval
		}
		c.saver = storage.NewAutoSaver(opts.Store, logger, interval, c.onAutoSaved, c.onAutoSaveError)
	}
	return c, nil
}

func (c *Controller) openingNotice() string {
	notice := fmt.Sprintf("A new adventure begins: %s.", c.preset.Name)
	if c.character != nil {
		notice += fmt.Sprintf(" Playing as %s.", c.character.Title())
	}
	return notice
}

// Begin sends the preset's opening instruction as the first turn. No
// action segment is echoed; the reply flows through the normal
// pipeline.
func (c *Controller) Begin(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	id := c.adventureID
	messages, err := prompts.BuildMessages(c.preset, c.character, c.world, c.transcript, c.preset.Opening)
	c.mu.Unlock()

	if err != nil {
		return c.failTurn(msgNarratorDown, fmt.Errorf("failed to build prompt: %w", err))
	}
	return c.completeTurn(ctx, id, c.preset.Opening, messages)
}

// Play advances the story by one player action. One action may be in
// flight at a time; a second call while the narrator is thinking
// returns ErrBusy.
func (c *Controller) Play(ctx context.Context, action string) error {
	action = strings.TrimSpace(action)
	if err := chat.ValidateAction(action); err != nil {
		return err
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	id := c.adventureID
	c.world.Append(world.SegmentAction, action)
	messages, err := prompts.BuildMessages(c.preset, c.character, c.world, c.transcript, action)
	c.mu.Unlock()

	c.emit(Event{Type: EventStateChanged})
	if err != nil {
		return c.failTurn(msgNarratorDown, fmt.Errorf("failed to build prompt: %w", err))
	}
	return c.completeTurn(ctx, id, action, messages)
}

// completeTurn runs the generator exchange and folds the reply into
// the world. The caller has already set the busy flag; every path out
// clears it.
func (c *Controller) completeTurn(ctx context.Context, id uuid.UUID, action string, messages []chat.ChatMessage) error {
	chatCtx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	resp, err := c.generator.Chat(chatCtx, messages)
	if err != nil {
		c.logger.Error("Generator chat failed", "adventure_id", id.String(), "error", err)
		return c.failTurn(msgNarratorDown, fmt.Errorf("generator chat failed: %w", err))
	}

	raw := strings.TrimSpace(resp.Message)
	reply := directive.Parse(raw)
	if c.softener != nil {
		reply.Narrative = c.softener.Soften(reply.Narrative)
	}

	c.mu.Lock()
	next, requests, err := world.Apply(c.world, reply)
	if err != nil {
		c.busy = false
		c.mu.Unlock()
		c.logger.Error("Reply could not be applied", "adventure_id", id.String(), "error", err)
		return fmt.Errorf("failed to apply reply: %w", err)
	}
	c.world = next
	c.world.Turn++
	c.transcript = append(c.transcript, chat.UserMessage(action), chat.AssistantMessage(raw))
	var snap *storage.Snapshot
	if c.saver != nil {
		snap = c.snapshotLocked()
	}
	c.busy = false
	c.mu.Unlock()

	for _, req := range requests {
		c.fetchImage(id, req)
	}
	if snap != nil {
		c.saver.Notify(snap)
	}
	c.emit(Event{Type: EventStateChanged})
	return nil
}

// failTurn records a turn that could not complete. The notice lands in
// the log as a system segment; gauges, inventory and combat are
// untouched and the next action may be attempted immediately.
func (c *Controller) failTurn(notice string, err error) error {
	c.mu.Lock()
	c.world.Append(world.SegmentSystem, notice)
	c.busy = false
	c.mu.Unlock()
	c.emit(Event{Type: EventStateChanged})
	return err
}

// ResolveImage records the outcome of an illustration fetch. Patching
// is by segment id, never position: a stale adventure id (restart), a
// missing segment, or an already resolved segment is a no-op, so late
// completions are always safe to deliver.
func (c *Controller) ResolveImage(adventureID uuid.UUID, segmentID int, ref string, err error) {
	if err != nil {
		c.logger.Warn("Illustration failed", "segment_id", segmentID, "error", err)
		ref = ""
	}

	c.mu.Lock()
	if adventureID != c.adventureID {
		c.mu.Unlock()
		return
	}
	patched := c.world.ResolveImage(segmentID, ref)
	var snap *storage.Snapshot
	if patched && c.saver != nil {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()

	if !patched {
		return
	}
	if snap != nil {
		c.saver.Notify(snap)
	}
	c.emit(Event{Type: EventImageResolved, SegmentID: segmentID})
}

// fetchImage runs one illustration request in the background. The
// adventure id pins the completion to the session that asked for it.
// Without an illustrator the segment resolves immediately with no ref.
func (c *Controller) fetchImage(id uuid.UUID, req world.ImageRequest) {
	if c.illustrator == nil {
		c.ResolveImage(id, req.SegmentID, "", nil)
		return
	}
	prompt := req.Prompt
	if c.preset.ImageStyle != "" {
		prompt += ", " + c.preset.ImageStyle
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), imageTimeout)
		defer cancel()

		data, err := c.illustrator.GenerateImage(ctx, prompt)
		if err != nil {
			c.ResolveImage(id, req.SegmentID, "", err)
			return
		}
		ref, err := c.storeImage(id, req.SegmentID, data)
		c.ResolveImage(id, req.SegmentID, ref, err)
	}()
}

// storeImage writes fetched bytes under the image directory and
// returns the path used as the segment's image ref.
func (c *Controller) storeImage(id uuid.UUID, segmentID int, data []byte) (string, error) {
	if c.imageDir == "" {
		return "", fmt.Errorf("no image directory configured")
	}
	if err := os.MkdirAll(c.imageDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	path := filepath.Join(c.imageDir, fmt.Sprintf("%s-%04d.png", id.String(), segmentID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}

// Restart abandons the current adventure and starts the same preset
// over. The new adventure id turns any in-flight image completion from
// the old session into a stale no-op; the old snapshot is deleted on a
// best-effort basis.
func (c *Controller) Restart(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	old := c.adventureID
	c.adventureID = uuid.New()
	c.world = c.preset.NewWorld()
	c.world.Append(world.SegmentSystem, c.openingNotice())
	c.transcript = nil
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.DeleteSnapshot(ctx, old); err != nil && !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("Failed to delete old snapshot", "adventure_id", old.String(), "error", err)
		}
	}
	c.emit(Event{Type: EventStateChanged})
	return c.Begin(ctx)
}

// Save writes a snapshot immediately, bypassing the debounce window.
func (c *Controller) Save(ctx context.Context) error {
	if c.saver == nil {
		return ErrNoStorage
	}
	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	err := c.saver.Save(ctx, snap)

	c.mu.Lock()
	reported := false
	if err == nil {
		c.lastSaved = time.Now()
		c.saveErr = nil
	} else {
		c.saveErr = err
		if errors.Is(err, storage.ErrQuotaExceeded) {
			reported = c.reportQuotaLocked()
		}
	}
	c.mu.Unlock()

	if reported {
		c.emit(Event{Type: EventStateChanged})
	}
	c.emit(Event{Type: EventSaveStateChanged})
	return err
}

// State returns a copy of the world for rendering.
func (c *Controller) State() world.WorldState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.world.Clone()
}

// Events is the UI notification stream.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// AdventureID identifies the current run; Restart changes it.
func (c *Controller) AdventureID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adventureID
}

// Preset returns the scenario this controller is running.
func (c *Controller) Preset() adventure.Preset {
	return *c.preset
}

// PlayerTitle names the player character, or "" when none is loaded.
func (c *Controller) PlayerTitle() string {
	if c.character == nil {
		return ""
	}
	return c.character.Title()
}

// SaveStatus describes persistence health for the status line.
type SaveStatus struct {
	Enabled bool
	SavedAt time.Time // zero until the first successful write
	Err     error     // last failure; nil when healthy
}

// SaveStatus reports whether saves are configured, when the last one
// landed, and the last failure if any.
func (c *Controller) SaveStatus() SaveStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SaveStatus{Enabled: c.saver != nil, SavedAt: c.lastSaved, Err: c.saveErr}
}

// Close flushes any pending auto-save. Outstanding image fetches are
// left to finish; their completions become no-ops once the process
// exits.
func (c *Controller) Close() error {
	if c.saver != nil {
		return c.saver.Close()
	}
	return nil
}

// snapshotLocked builds the persistence snapshot. Caller holds c.mu.
func (c *Controller) snapshotLocked() *storage.Snapshot {
	name := ""
	if c.character != nil {
		name = c.character.Spec.Name
	}
	return storage.NewSnapshot(c.adventureID, c.preset.Name, name, c.world.Turn, c.world, c.transcript)
}

// reportQuotaLocked appends the quota notice once per session. Caller
// holds c.mu; reports whether the notice was appended.
func (c *Controller) reportQuotaLocked() bool {
	if c.quotaReported {
		return false
	}
	c.quotaReported = true
	c.world.Append(world.SegmentSystem, msgQuotaHit)
	return true
}

func (c *Controller) onAutoSaved(snap *storage.Snapshot) {
	c.mu.Lock()
	c.lastSaved = snap.SavedAt
	c.saveErr = nil
	c.mu.Unlock()
	c.emit(Event{Type: EventSaveStateChanged})
}

func (c *Controller) onAutoSaveError(err error) {
	c.mu.Lock()
	c.saveErr = err
	reported := false
	if errors.Is(err, storage.ErrQuotaExceeded) {
		reported = c.reportQuotaLocked()
	}
	c.mu.Unlock()

	if reported {
		c.emit(Event{Type: EventStateChanged})
	}
	c.emit(Event{Type: EventSaveStateChanged})
}

func (c *Controller) emit(e Event) {
	select {
	case c.events <- e:
	default:
	}
}
