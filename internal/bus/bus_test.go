package bus

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"linelogger/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	ev := domain.InboundEvent{Kind: domain.KindText, EventID: "m1", UserID: "U1", Text: "hello"}
	b.Publish(ev)

	select {
	case got := <-b.Subscribe():
		if got.EventID != "m1" || got.Text != "hello" {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := New(1, testLogger())
	b.Close()

	// Must not panic on a closed bus.
	b.Publish(domain.InboundEvent{EventID: "m2"})
}

func TestCloseIdempotent(t *testing.T) {
	b := New(1, testLogger())
	b.Close()
	b.Close()
}

func TestPublishPreservesOrder(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	for _, id := range []string{"a", "b", "c"} {
		b.Publish(domain.InboundEvent{EventID: id})
	}

	sub := b.Subscribe()
	for _, want := range []string{"a", "b", "c"} {
		got := <-sub
		if got.EventID != want {
			t.Fatalf("expected %s, got %s", want, got.EventID)
		}
	}
}
