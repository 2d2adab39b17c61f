package channel

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"linelogger/internal/domain"
)

const testChannelSecret = "test-channel-secret"

type captureBus struct {
	events []domain.InboundEvent
}

func (b *captureBus) Publish(ev domain.InboundEvent)        { b.events = append(b.events, ev) }
func (b *captureBus) Subscribe() <-chan domain.InboundEvent { return nil }
func (b *captureBus) Close()                                {}

type fakeSheet struct {
	pingErr error
}

func (f *fakeSheet) AppendRow(ctx context.Context, columns []string) error { return nil }
func (f *fakeSheet) Ping(ctx context.Context) error                        { return f.pingErr }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testWebhook(t *testing.T, bus *captureBus, sheet *fakeSheet) *Webhook {
	t.Helper()
	bot, err := linebot.New(testChannelSecret, "test-token")
	if err != nil {
		t.Fatalf("linebot.New: %v", err)
	}
	return NewWebhook(WebhookConfig{
		Bot:    bot,
		Bus:    bus,
		Sheet:  sheet,
		Logger: testLogger(),
	})
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testChannelSecret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postCallback(t *testing.T, w *Webhook, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Line-Signature", signature)
	}
	rec := httptest.NewRecorder()
	w.Handler().ServeHTTP(rec, req)
	return rec
}

const textEventBody = `{
	"destination": "xxx",
	"events": [{
		"type": "message",
		"replyToken": "rt-1",
		"timestamp": 1700000000000,
		"source": {"type": "user", "userId": "U1"},
		"message": {"type": "text", "id": "100001", "text": "hello"}
	}]
}`

func TestCallback_TextEventPublished(t *testing.T) {
	bus := &captureBus{}
	w := testWebhook(t, bus, &fakeSheet{})

	rec := postCallback(t, w, textEventBody, sign(textEventBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}

	if len(bus.events) != 1 {
		t.Fatalf("published = %d, want 1", len(bus.events))
	}
	ev := bus.events[0]
	if ev.Kind != domain.KindText || ev.UserID != "U1" || ev.EventID != "100001" || ev.Text != "hello" || ev.ReplyToken != "rt-1" {
		t.Errorf("event = %+v", ev)
	}
	if ev.ReceivedAt.IsZero() {
		t.Error("ReceivedAt not set")
	}
}

func TestCallback_InvalidSignatureRejected(t *testing.T) {
	bus := &captureBus{}
	w := testWebhook(t, bus, &fakeSheet{})

	rec := postCallback(t, w, textEventBody, sign("different body"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(bus.events) != 0 {
		t.Errorf("published = %d, want 0", len(bus.events))
	}
}

func TestCallback_MissingSignatureRejected(t *testing.T) {
	bus := &captureBus{}
	w := testWebhook(t, bus, &fakeSheet{})

	rec := postCallback(t, w, textEventBody, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCallback_GetNotAllowed(t *testing.T) {
	w := testWebhook(t, &captureBus{}, &fakeSheet{})

	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	rec := httptest.NewRecorder()
	w.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestCallback_MediaAndStickerKinds(t *testing.T) {
	body := `{
		"destination": "xxx",
		"events": [
			{
				"type": "message",
				"replyToken": "rt-2",
				"timestamp": 1700000000000,
				"source": {"type": "user", "userId": "U1"},
				"message": {"type": "image", "id": "200001"}
			},
			{
				"type": "message",
				"replyToken": "rt-3",
				"timestamp": 1700000000000,
				"source": {"type": "user", "userId": "U1"},
				"message": {"type": "audio", "id": "300001", "duration": 3000}
			},
			{
				"type": "message",
				"replyToken": "rt-4",
				"timestamp": 1700000000000,
				"source": {"type": "user", "userId": "U1"},
				"message": {"type": "sticker", "id": "400001", "packageId": "1", "stickerId": "2"}
			}
		]
	}`
	bus := &captureBus{}
	w := testWebhook(t, bus, &fakeSheet{})

	rec := postCallback(t, w, body, sign(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(bus.events) != 3 {
		t.Fatalf("published = %d, want 3", len(bus.events))
	}

	img := bus.events[0]
	if img.Kind != domain.KindImage || img.MediaID != "200001" {
		t.Errorf("image event = %+v", img)
	}
	aud := bus.events[1]
	if aud.Kind != domain.KindAudio || aud.MediaID != "300001" || aud.DurationMillis != 3000 {
		t.Errorf("audio event = %+v", aud)
	}
	if bus.events[2].Kind != domain.KindOther {
		t.Errorf("sticker kind = %v, want other", bus.events[2].Kind)
	}
}

func TestCallback_NonMessageEventSkipped(t *testing.T) {
	body := `{
		"destination": "xxx",
		"events": [{
			"type": "follow",
			"replyToken": "rt-5",
			"timestamp": 1700000000000,
			"source": {"type": "user", "userId": "U1"}
		}]
	}`
	bus := &captureBus{}
	w := testWebhook(t, bus, &fakeSheet{})

	rec := postCallback(t, w, body, sign(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(bus.events) != 0 {
		t.Errorf("published = %d, want 0", len(bus.events))
	}
}

func TestHealth(t *testing.T) {
	w := testWebhook(t, &captureBus{}, &fakeSheet{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	w.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHealth_SheetUnreachable(t *testing.T) {
	w := testWebhook(t, &captureBus{}, &fakeSheet{pingErr: errors.New("spreadsheet unreachable")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	w.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"unhealthy"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestIndex(t *testing.T) {
	w := testWebhook(t, &captureBus{}, &fakeSheet{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	w.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "linelogger is running") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
