package domain

import "time"

// EventKind classifies an inbound chat event.
type EventKind string

const (
	KindText  EventKind = "text"
	KindImage EventKind = "image"
	KindAudio EventKind = "audio"
	KindOther EventKind = "other"
)

// InboundEvent is one parsed, signature-verified chat event. It is created by
// the webhook channel and consumed exactly once by the orchestrator; no
// component retains a reference across events.
type InboundEvent struct {
	Kind       EventKind
	UserID     string    // platform-scoped opaque identity
	EventID    string    // platform message id, unique per event
	ReplyToken string    // single-use reply handle
	ReceivedAt time.Time // set at ingestion

	// Kind-specific payload.
	Text           string // KindText
	MediaID        string // KindImage, KindAudio: opaque media handle
	DurationMillis uint   // KindAudio
}

// TimestampFormat is the wall-clock layout recorded in the first column.
const TimestampFormat = "2006-01-02 15:04:05"

// UnknownDisplayName is recorded when the profile lookup fails.
const UnknownDisplayName = "Unknown"

// LogRecord is the row appended to the sink. Column order is fixed.
type LogRecord struct {
	Timestamp     string // TimestampFormat
	UserID        string
	DisplayName   string // UnknownDisplayName when unresolved
	MessageText   string // human-readable summary, never raw binary
	AttachmentRef string // empty, a URL, or a descriptive fallback
}

// Columns returns the record as an ordered row for the sheet.
func (r LogRecord) Columns() []string {
	return []string{r.Timestamp, r.UserID, r.DisplayName, r.MessageText, r.AttachmentRef}
}
