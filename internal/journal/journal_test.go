package journal

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"linelogger/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := NewStore(dbPath, logger)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSeenAndMark(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	ev := domain.InboundEvent{EventID: "msg-1", UserID: "u1", Kind: domain.KindText}

	seen, err := store.Seen(ctx, ev.EventID)
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Error("fresh event reported as seen")
	}

	if err := store.MarkProcessed(ctx, ev); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	seen, err = store.Seen(ctx, ev.EventID)
	if err != nil {
		t.Fatalf("Seen after mark: %v", err)
	}
	if !seen {
		t.Error("marked event not reported as seen")
	}
}

func TestMarkTwiceIsNoop(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	ev := domain.InboundEvent{EventID: "msg-2", UserID: "u1", Kind: domain.KindImage}
	if err := store.MarkProcessed(ctx, ev); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := store.MarkProcessed(ctx, ev); err != nil {
		t.Fatalf("second mark: %v", err)
	}
}

func TestEmptyEventIDNeverSeen(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.MarkProcessed(ctx, domain.InboundEvent{UserID: "u1", Kind: domain.KindOther}); err != nil {
		t.Fatalf("mark without id: %v", err)
	}
	seen, err := store.Seen(ctx, "")
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Error("empty event id reported as seen")
	}
}

func TestPrune(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.MarkProcessed(ctx, domain.InboundEvent{EventID: "old", UserID: "u1", Kind: domain.KindText}); err != nil {
		t.Fatalf("mark: %v", err)
	}

	// Everything just written is younger than an hour.
	n, err := store.Prune(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 0 {
		t.Errorf("pruned %d recent rows, want 0", n)
	}

	// A zero retention window removes everything.
	n, err = store.Prune(ctx, -time.Second)
	if err != nil {
		t.Fatalf("Prune all: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
}
