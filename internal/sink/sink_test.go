package sink

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"linelogger/internal/domain"
)

// fakeSheet fails the first failures calls, then succeeds.
type fakeSheet struct {
	failures int
	calls    int
	rows     [][]string
}

func (f *fakeSheet) AppendRow(ctx context.Context, columns []string) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("injected transient failure")
	}
	f.rows = append(f.rows, columns)
	return nil
}

func (f *fakeSheet) Ping(ctx context.Context) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSink(sheet domain.Sheet) (*SheetSink, *[]time.Duration) {
	s := New(sheet, testLogger())
	var sleeps []time.Duration
	s.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return s, &sleeps
}

func record() domain.LogRecord {
	return domain.LogRecord{
		Timestamp:   "2026-08-30 12:00:00",
		UserID:      "U1",
		DisplayName: "Alice",
		MessageText: "hello",
	}
}

func TestAppend_FirstAttemptSucceeds(t *testing.T) {
	sheet := &fakeSheet{}
	s, sleeps := newTestSink(sheet)

	if err := s.Append(context.Background(), record()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sheet.calls != 1 {
		t.Fatalf("expected 1 call, got %d", sheet.calls)
	}
	if len(*sleeps) != 0 {
		t.Fatalf("expected no sleeps, got %v", *sleeps)
	}
}

func TestAppend_RetriesThenSucceeds(t *testing.T) {
	sheet := &fakeSheet{failures: 2}
	s, sleeps := newTestSink(sheet)

	if err := s.Append(context.Background(), record()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sheet.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", sheet.calls)
	}
	// Sleeps only between attempts: 2^0 + 2^1 = 3 seconds total.
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("expected %v sleeps, got %v", want, *sleeps)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Fatalf("sleep %d: expected %v, got %v", i, d, (*sleeps)[i])
		}
	}
}

func TestAppend_GivesUpAfterThreeAttempts(t *testing.T) {
	sheet := &fakeSheet{failures: 10}
	s, sleeps := newTestSink(sheet)

	err := s.Append(context.Background(), record())
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
	if sheet.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", sheet.calls)
	}
	// No sleep after the final attempt.
	if len(*sleeps) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(*sleeps))
	}
}

func TestAppend_AttemptCountForNFailures(t *testing.T) {
	for n := 0; n <= 5; n++ {
		sheet := &fakeSheet{failures: n}
		s, _ := newTestSink(sheet)
		_ = s.Append(context.Background(), record())

		want := n + 1
		if want > 3 {
			want = 3
		}
		if sheet.calls != want {
			t.Fatalf("failures=%d: expected %d attempts, got %d", n, want, sheet.calls)
		}
	}
}

func TestAppend_ColumnOrder(t *testing.T) {
	sheet := &fakeSheet{}
	s, _ := newTestSink(sheet)

	rec := domain.LogRecord{
		Timestamp:     "2026-08-30 12:00:00",
		UserID:        "U1",
		DisplayName:   "Alice",
		MessageText:   "hi",
		AttachmentRef: "https://example/x.jpg",
	}
	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	row := sheet.rows[0]
	want := []string{"2026-08-30 12:00:00", "U1", "Alice", "hi", "https://example/x.jpg"}
	for i := range want {
		if row[i] != want[i] {
			t.Fatalf("column %d: expected %q, got %q", i, want[i], row[i])
		}
	}
}
