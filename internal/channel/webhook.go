// Package channel receives LINE webhook deliveries over HTTP and feeds
// parsed events to the bus.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"linelogger/internal/domain"
	"linelogger/internal/metrics"
)

// WebhookConfig configures the webhook channel.
type WebhookConfig struct {
	Port            int
	Path            string // webhook URL path (default: /callback)
	Bot             *linebot.Client
	Bus             domain.EventBus
	Sheet           domain.Sheet // health probe target
	MetricsEnabled  bool
	MetricsEndpoint string
	Logger          *slog.Logger
}

// Webhook is the HTTP server that accepts LINE webhook POSTs, verifies the
// platform signature, and publishes inbound events.
type Webhook struct {
	port            int
	path            string
	bot             *linebot.Client
	bus             domain.EventBus
	sheet           domain.Sheet
	metricsEnabled  bool
	metricsEndpoint string
	logger          *slog.Logger
	server          *http.Server
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Path == "" {
		cfg.Path = "/callback"
	}
	if cfg.Port == 0 {
		cfg.Port = 5000
	}
	if cfg.MetricsEndpoint == "" {
		cfg.MetricsEndpoint = "/metrics"
	}
	return &Webhook{
		port:            cfg.Port,
		path:            cfg.Path,
		bot:             cfg.Bot,
		bus:             cfg.Bus,
		sheet:           cfg.Sheet,
		metricsEnabled:  cfg.MetricsEnabled,
		metricsEndpoint: cfg.MetricsEndpoint,
		logger:          cfg.Logger,
	}
}

// Start runs the HTTP server until ctx is canceled.
func (w *Webhook) Start(ctx context.Context) error {
	w.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", w.port),
		Handler:           w.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	w.logger.Info("webhook server starting", "port", w.port, "path", w.path)

	errCh := make(chan error, 1)
	go func() {
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		w.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return w.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

// Handler builds the route mux. Exposed separately so tests can drive it
// with httptest.
func (w *Webhook) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(w.path, w.handleCallback)
	mux.HandleFunc("/health", w.handleHealth)
	mux.HandleFunc("/", w.handleIndex)
	if w.metricsEnabled {
		mux.HandleFunc(w.metricsEndpoint, metrics.Collector.Handler())
	}
	return mux
}

func (w *Webhook) handleCallback(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	events, err := w.bot.ParseRequest(r)
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			w.logger.Warn("webhook rejected: invalid signature", "remote", r.RemoteAddr)
			http.Error(rw, "Invalid signature", http.StatusBadRequest)
			return
		}
		w.logger.Error("webhook parse failed", "error", err)
		http.Error(rw, "Bad Request", http.StatusBadRequest)
		return
	}

	for _, event := range events {
		ev, ok := toInbound(event)
		if !ok {
			continue
		}
		w.bus.Publish(ev)
	}

	rw.WriteHeader(http.StatusOK)
	fmt.Fprint(rw, "OK")
}

// toInbound converts one SDK webhook event into a domain event. Non-message
// events (follow, join, ...) are skipped entirely; unsupported message types
// become KindOther so the sender still gets the text-only notice.
func toInbound(event *linebot.Event) (domain.InboundEvent, bool) {
	if event == nil || event.Type != linebot.EventTypeMessage || event.Source == nil {
		return domain.InboundEvent{}, false
	}

	ev := domain.InboundEvent{
		UserID:     event.Source.UserID,
		ReplyToken: event.ReplyToken,
		ReceivedAt: time.Now(),
	}

	switch msg := event.Message.(type) {
	case *linebot.TextMessage:
		ev.Kind = domain.KindText
		ev.EventID = msg.ID
		ev.Text = msg.Text
	case *linebot.ImageMessage:
		ev.Kind = domain.KindImage
		ev.EventID = msg.ID
		ev.MediaID = msg.ID
	case *linebot.AudioMessage:
		ev.Kind = domain.KindAudio
		ev.EventID = msg.ID
		ev.MediaID = msg.ID
		if msg.Duration > 0 {
			ev.DurationMillis = uint(msg.Duration)
		}
	default:
		ev.Kind = domain.KindOther
	}
	return ev, true
}

func (w *Webhook) handleHealth(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rw.Header().Set("Content-Type", "application/json")

	if err := w.sheet.Ping(ctx); err != nil {
		w.logger.Error("health probe failed", "error", err)
		rw.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(rw).Encode(map[string]any{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return
	}

	json.NewEncoder(rw).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (w *Webhook) handleIndex(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(rw, r)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(map[string]any{
		"message":   "linelogger is running",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
