// Package orchestrator decides per-event processing policy: resolve the
// sender, enrich media, append exactly one log row, send exactly one reply.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"linelogger/internal/domain"
	"linelogger/internal/metrics"
)

// LogSink appends one record, retrying internally.
type LogSink interface {
	Append(ctx context.Context, rec domain.LogRecord) error
}

// MediaArchiver uploads media bytes, degrading to a reason on failure.
type MediaArchiver interface {
	Enabled() bool
	Upload(ctx context.Context, data []byte, suggestedName, ownerID string) domain.ArchiveResult
}

// Transcriber turns audio bytes into a transcription outcome.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) domain.TranscriptionResult
}

// Journal observes processed event ids. Duplicates are counted, never
// suppressed: a redelivered webhook still gets its row.
type Journal interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, ev domain.InboundEvent) error
}

// Config holds all dependencies and tuning parameters for the orchestrator.
type Config struct {
	Sink        LogSink
	Media       domain.MediaFetcher
	Profiles    domain.ProfileSource
	Archiver    MediaArchiver
	Transcriber Transcriber
	Replier     domain.Replier
	Journal     Journal // optional
	Bus         domain.EventBus
	Logger      *slog.Logger

	TranscriptionEnabled bool
	Templates            Templates
	Concurrency          int // max parallel events (default 5)
}

const defaultConcurrency = 5

// Orchestrator consumes inbound events and runs each through the per-kind
// state machine. One event is strictly sequential inside its pipeline;
// events run concurrently up to Concurrency.
type Orchestrator struct {
	sink        LogSink
	media       domain.MediaFetcher
	profiles    domain.ProfileSource
	archiver    MediaArchiver
	transcriber Transcriber
	replier     domain.Replier
	journal     Journal
	bus         domain.EventBus
	logger      *slog.Logger

	transcriptionEnabled bool
	tpl                  Templates
	concurrency          int
}

func New(cfg Config) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Orchestrator{
		sink:                 cfg.Sink,
		media:                cfg.Media,
		profiles:             cfg.Profiles,
		archiver:             cfg.Archiver,
		transcriber:          cfg.Transcriber,
		replier:              cfg.Replier,
		journal:              cfg.Journal,
		bus:                  cfg.Bus,
		logger:               cfg.Logger,
		transcriptionEnabled: cfg.TranscriptionEnabled,
		tpl:                  cfg.Templates,
		concurrency:          cfg.Concurrency,
	}
}

// Run consumes inbound events until ctx is canceled or the bus closes.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("orchestrator started", "concurrency", o.concurrency)

	sem := make(chan struct{}, o.concurrency)
	inbound := o.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator stopping")
			return
		case ev, ok := <-inbound:
			if !ok {
				o.logger.Info("inbound channel closed, orchestrator stopping")
				return
			}
			sem <- struct{}{}
			go func(e domain.InboundEvent) {
				defer func() { <-sem }()
				o.Process(ctx, e)
			}(ev)
		}
	}
}

// Process runs one event to completion. It never returns an error: every
// terminal state resolves to a reply, and faults degrade to the generic
// processing-error text.
func (o *Orchestrator) Process(ctx context.Context, ev domain.InboundEvent) {
	start := time.Now()
	defer func() {
		metrics.EventLatency.Observe(time.Since(start).Seconds())
	}()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("event processing panicked",
				"event_id", ev.EventID,
				"kind", ev.Kind,
				"panic", r,
			)
			o.reply(ctx, ev, o.tpl.ProcessingError)
		}
	}()

	o.countEvent(ev.Kind)
	o.observeDuplicate(ctx, ev)

	o.logger.Info("processing event",
		"event_id", ev.EventID,
		"kind", ev.Kind,
		"user_id", ev.UserID,
	)

	switch ev.Kind {
	case domain.KindText:
		o.handleText(ctx, ev)
	case domain.KindImage:
		o.handleImage(ctx, ev)
	case domain.KindAudio:
		o.handleAudio(ctx, ev)
	default:
		// No row for unsupported kinds, just the fixed reply.
		o.reply(ctx, ev, o.tpl.Unsupported)
	}
}

func (o *Orchestrator) handleText(ctx context.Context, ev domain.InboundEvent) {
	rec := o.newRecord(ctx, ev)
	rec.MessageText = ev.Text
	o.logAndReply(ctx, ev, rec, o.tpl.Success)
}

func (o *Orchestrator) handleImage(ctx context.Context, ev domain.InboundEvent) {
	rec := o.newRecord(ctx, ev)
	rec.MessageText = o.tpl.ImageMarker

	data, err := o.media.Download(ctx, ev.MediaID)
	if err != nil {
		o.logger.Warn("image download failed, recording without attachment",
			"event_id", ev.EventID,
			"error", err,
		)
		metrics.Degradations.Inc()
		rec.AttachmentRef = fmt.Sprintf(o.tpl.ArchiveFailedRef, ev.EventID, 0)
		o.logAndReply(ctx, ev, rec, o.tpl.ImageWithoutUpload)
		return
	}

	if !o.archiver.Enabled() {
		rec.AttachmentRef = fmt.Sprintf(o.tpl.ArchiveDisabledRef, ev.EventID, len(data))
		o.logAndReply(ctx, ev, rec, o.tpl.Success)
		return
	}

	res := o.archiver.Upload(ctx, data, ev.MediaID+".jpg", ev.UserID)
	switch res.Status {
	case domain.ArchiveUploaded:
		rec.AttachmentRef = res.URL
		o.logAndReply(ctx, ev, rec, o.tpl.Success)
	default:
		metrics.Degradations.Inc()
		o.logger.Warn("image archive degraded",
			"event_id", ev.EventID,
			"reason", res.Reason,
		)
		rec.AttachmentRef = fmt.Sprintf(o.tpl.ArchiveFailedRef, ev.EventID, len(data))
		o.logAndReply(ctx, ev, rec, o.tpl.ImageWithoutUpload)
	}
}

func (o *Orchestrator) handleAudio(ctx context.Context, ev domain.InboundEvent) {
	data, err := o.media.Download(ctx, ev.MediaID)
	if err != nil {
		// The one path that aborts before logging: nothing useful to record.
		o.logger.Error("audio download failed, no row recorded",
			"event_id", ev.EventID,
			"error", err,
		)
		o.reply(ctx, ev, o.tpl.AudioDownloadFailure)
		return
	}

	rec := o.newRecord(ctx, ev)
	rec.MessageText = o.audioText(ctx, ev, data)
	o.logAndReply(ctx, ev, rec, o.tpl.Success)
}

// audioText resolves the message text for an audio event: transcript when
// one was produced, a duration/size description otherwise.
func (o *Orchestrator) audioText(ctx context.Context, ev domain.InboundEvent, data []byte) string {
	fallback := fmt.Sprintf(o.tpl.AudioFallback,
		float64(ev.DurationMillis)/1000.0,
		float64(len(data))/1024.0,
	)

	if !o.transcriptionEnabled || o.transcriber == nil {
		return fallback
	}

	res := o.transcriber.Transcribe(ctx, data)
	switch res.Status {
	case domain.Transcribed:
		o.logger.Info("audio transcribed",
			"event_id", ev.EventID,
			"backend", res.Backend,
			"confidence", res.Confidence,
		)
		return o.tpl.TranscriptPrefix + res.Text
	case domain.NoSpeechDetected:
		o.logger.Info("no speech detected", "event_id", ev.EventID)
	default:
		o.logger.Warn("transcription degraded",
			"event_id", ev.EventID,
			"reason", res.Reason,
		)
	}
	metrics.Degradations.Inc()
	return fallback
}

// newRecord starts a record with the timestamp and the resolved sender.
func (o *Orchestrator) newRecord(ctx context.Context, ev domain.InboundEvent) domain.LogRecord {
	name, err := o.profiles.DisplayName(ctx, ev.UserID)
	if err != nil {
		o.logger.Warn("profile lookup failed, using placeholder",
			"user_id", ev.UserID,
			"error", err,
		)
		metrics.Degradations.Inc()
		name = domain.UnknownDisplayName
	}

	ts := ev.ReceivedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return domain.LogRecord{
		Timestamp:   ts.Format(domain.TimestampFormat),
		UserID:      ev.UserID,
		DisplayName: name,
	}
}

// logAndReply appends the row and sends the reply for a fully-built record.
// A sink failure swaps the reply for the apology text; the row is dropped,
// not re-queued.
func (o *Orchestrator) logAndReply(ctx context.Context, ev domain.InboundEvent, rec domain.LogRecord, successText string) {
	if err := o.sink.Append(ctx, rec); err != nil {
		o.logger.Error("log row dropped",
			"event_id", ev.EventID,
			"user_id", ev.UserID,
			"error", err,
		)
		o.reply(ctx, ev, o.tpl.SinkFailure)
		return
	}

	o.markProcessed(ctx, ev)
	o.reply(ctx, ev, successText)
}

// reply sends the single templated reply for the event. Failures are logged
// only: the token is single-use, so there is nothing to retry.
func (o *Orchestrator) reply(ctx context.Context, ev domain.InboundEvent, text string) {
	if ev.ReplyToken == "" {
		return
	}
	if err := o.replier.Send(ctx, ev.ReplyToken, text); err != nil {
		metrics.ReplyFailures.Inc()
		o.logger.Error("reply send failed",
			"event_id", ev.EventID,
			"error", err,
		)
	}
}

func (o *Orchestrator) observeDuplicate(ctx context.Context, ev domain.InboundEvent) {
	if o.journal == nil {
		return
	}
	seen, err := o.journal.Seen(ctx, ev.EventID)
	if err != nil {
		o.logger.Warn("journal lookup failed", "event_id", ev.EventID, "error", err)
		return
	}
	if seen {
		metrics.DuplicateEvents.Inc()
		o.logger.Warn("duplicate delivery observed, logging anyway",
			"event_id", ev.EventID,
			"user_id", ev.UserID,
		)
	}
}

func (o *Orchestrator) markProcessed(ctx context.Context, ev domain.InboundEvent) {
	if o.journal == nil {
		return
	}
	if err := o.journal.MarkProcessed(ctx, ev); err != nil {
		o.logger.Warn("journal write failed", "event_id", ev.EventID, "error", err)
	}
}

func (o *Orchestrator) countEvent(kind domain.EventKind) {
	switch kind {
	case domain.KindText:
		metrics.EventsText.Inc()
	case domain.KindImage:
		metrics.EventsImage.Inc()
	case domain.KindAudio:
		metrics.EventsAudio.Inc()
	default:
		metrics.EventsOther.Inc()
	}
}
