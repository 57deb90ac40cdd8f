package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultAutoSaveInterval is the debounce window between background writes
const DefaultAutoSaveInterval = 2 * time.Second

const autoSaveWriteTimeout = 10 * time.Second

// AutoSaver debounces snapshot writes behind gameplay. Notify replaces
// any pending snapshot, and the newest one is written once per
// interval, so a burst of turns costs one write. A quota refusal
// parks the saver for the session (reported once through onError);
// a later successful manual Save re-arms it.
type AutoSaver struct {
	store    Storage
	logger   *slog.Logger
	interval time.Duration
	onSaved  func(*Snapshot)
	onError  func(error)

	mu       sync.Mutex
	pending  *Snapshot
	quotaHit bool

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewAutoSaver starts the background save loop. onSaved and onError
// may be nil; onError fires once when the backend reports a quota
// refusal.
func NewAutoSaver(store Storage, logger *slog.Logger, interval time.Duration, onSaved func(*Snapshot), onError func(error)) *AutoSaver {
	if interval <= 0 {
		interval = DefaultAutoSaveInterval
	}

	a := &AutoSaver{
		store:    store,
		logger:   logger,
		interval: interval,
		onSaved:  onSaved,
		onError:  onError,
		done:     make(chan struct{}),
	}

	a.wg.Add(1)
	go a.loop()

	return a
}

// Notify queues the snapshot for the next background write, replacing
// any not-yet-written predecessor.
func (a *AutoSaver) Notify(snap *Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.quotaHit {
		return
	}
	a.pending = snap
}

// Save writes immediately, bypassing the debounce window. Used by the
// explicit save command and at shutdown. A success after a quota
// refusal re-arms background saving.
func (a *AutoSaver) Save(ctx context.Context, snap *Snapshot) error {
	a.mu.Lock()
	a.pending = nil
	a.mu.Unlock()

	err := a.store.SaveSnapshot(ctx, snap)

	a.mu.Lock()
	if err == nil {
		a.quotaHit = false
	} else if errors.Is(err, ErrQuotaExceeded) {
		a.quotaHit = true
	}
	a.mu.Unlock()

	return err
}

// Close stops the loop and flushes any pending snapshot
func (a *AutoSaver) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
	})
	a.wg.Wait()
	a.flushPending()
	return nil
}

func (a *AutoSaver) loop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			a.flushPending()
		}
	}
}

func (a *AutoSaver) flushPending() {
	a.mu.Lock()
	snap := a.pending
	a.pending = nil
	quotaHit := a.quotaHit
	a.mu.Unlock()

	if snap == nil || quotaHit {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), autoSaveWriteTimeout)
	defer cancel()

	err := a.store.SaveSnapshot(ctx, snap)
	if err == nil {
		if a.onSaved != nil {
			a.onSaved(snap)
		}
		return
	}

	if errors.Is(err, ErrQuotaExceeded) {
		a.mu.Lock()
		first := !a.quotaHit
		a.quotaHit = true
		a.mu.Unlock()

		a.logger.Error("Auto-save disabled: storage quota exceeded", "adventure_id", snap.ID)
		if first && a.onError != nil {
			a.onError(err)
		}
		return
	}

	// Transient failure: requeue so the next tick retries, unless a
	// newer snapshot already arrived.
	a.logger.Warn("Auto-save failed, will retry", "adventure_id", snap.ID, "error", err)
	a.mu.Lock()
	if a.pending == nil {
		a.pending = snap
	}
	a.mu.Unlock()
}
