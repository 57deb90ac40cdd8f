package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestAutoSaverDebounces(t *testing.T) {
	store := NewMockStore()
	var saved atomic.Int32

	saver := NewAutoSaver(store, discardLogger(), 20*time.Millisecond, func(*Snapshot) {
		saved.Add(1)
	}, nil)
	defer saver.Close()

	id := uuid.New()
	// A burst of notifications within one window collapses to one write
	for i := 0; i < 5; i++ {
		snap := testSnapshot(id)
		snap.Turn = i
		saver.Notify(snap)
	}

	waitFor(t, time.Second, func() bool { return saved.Load() >= 1 })

	if store.SaveCount() != 1 {
		t.Errorf("expected one coalesced write, got %d", store.SaveCount())
	}

	loaded, err := store.LoadSnapshot(context.Background(), id)
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if loaded.Turn != 4 {
		t.Errorf("latest snapshot should win, got turn %d", loaded.Turn)
	}
}

func TestAutoSaverQuotaParksSaving(t *testing.T) {
	store := NewMockStore()
	store.SetSaveError(ErrQuotaExceeded)

	var reported atomic.Int32
	saver := NewAutoSaver(store, discardLogger(), 10*time.Millisecond, nil, func(err error) {
		if errors.Is(err, ErrQuotaExceeded) {
			reported.Add(1)
		}
	})
	defer saver.Close()

	id := uuid.New()
	saver.Notify(testSnapshot(id))

	waitFor(t, time.Second, func() bool { return reported.Load() == 1 })
	attempts := store.SaveCount()

	// Further notifications are dropped while parked
	saver.Notify(testSnapshot(id))
	time.Sleep(50 * time.Millisecond)

	if store.SaveCount() != attempts {
		t.Error("parked saver should not attempt further writes")
	}
	if reported.Load() != 1 {
		t.Errorf("quota should be reported once, got %d", reported.Load())
	}
}

func TestAutoSaverManualSaveReArms(t *testing.T) {
	store := NewMockStore()
	store.SetSaveError(ErrQuotaExceeded)

	saver := NewAutoSaver(store, discardLogger(), 10*time.Millisecond, nil, nil)
	defer saver.Close()

	id := uuid.New()
	saver.Notify(testSnapshot(id))
	waitFor(t, time.Second, func() bool { return store.SaveCount() >= 1 })

	// Space freed: manual save succeeds and re-arms the background loop
	store.SetSaveError(nil)
	if err := saver.Save(context.Background(), testSnapshot(id)); err != nil {
		t.Fatalf("manual Save() error: %v", err)
	}

	before := store.SaveCount()
	saver.Notify(testSnapshot(id))
	waitFor(t, time.Second, func() bool { return store.SaveCount() > before })
}

func TestAutoSaverTransientErrorRetries(t *testing.T) {
	store := NewMockStore()
	store.SetSaveError(errors.New("connection refused"))

	saver := NewAutoSaver(store, discardLogger(), 10*time.Millisecond, nil, nil)
	defer saver.Close()

	id := uuid.New()
	saver.Notify(testSnapshot(id))

	// The same snapshot is retried on later ticks
	waitFor(t, time.Second, func() bool { return store.SaveCount() >= 2 })

	store.SetSaveError(nil)
	waitFor(t, time.Second, func() bool {
		_, err := store.LoadSnapshot(context.Background(), id)
		return err == nil
	})
}

func TestAutoSaverCloseFlushesPending(t *testing.T) {
	store := NewMockStore()

	// Long interval so the write can only come from Close
	saver := NewAutoSaver(store, discardLogger(), time.Hour, nil, nil)

	id := uuid.New()
	saver.Notify(testSnapshot(id))

	if err := saver.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	if _, err := store.LoadSnapshot(context.Background(), id); err != nil {
		t.Errorf("pending snapshot should be flushed on close: %v", err)
	}
}
