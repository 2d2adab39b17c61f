package domain

import "context"

// Sheet appends ordered rows to a durable tabular store.
type Sheet interface {
	AppendRow(ctx context.Context, columns []string) error
	// Ping verifies the spreadsheet is reachable. Used by the health route.
	Ping(ctx context.Context) error
}

// Storage puts binary objects into a durable object store.
type Storage interface {
	Put(ctx context.Context, data []byte, name string, owner string) (url string, err error)
	// GrantPublicRead makes a previously-put object publicly readable.
	// A failure here does not invalidate the upload.
	GrantPublicRead(ctx context.Context, name string) error
}

// MediaFetcher downloads raw media bytes for a platform media handle.
type MediaFetcher interface {
	Download(ctx context.Context, mediaID string) ([]byte, error)
}

// ProfileSource resolves a human-readable display name for a user id.
type ProfileSource interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// SpeechHit is one recognition alternative from a backend.
type SpeechHit struct {
	Text       string
	Confidence float64
}

// SpeechBackend is one transcription strategy tried by the chain.
// Returning (nil, nil) means the backend completed cleanly with no speech.
type SpeechBackend interface {
	Name() string
	Recognize(ctx context.Context, audio []byte) ([]SpeechHit, error)
}

// Replier sends the single reply bound to an event's reply token.
type Replier interface {
	Send(ctx context.Context, replyToken string, text string) error
}

// EventBus routes inbound events from channels to the orchestrator.
type EventBus interface {
	Publish(ev InboundEvent)
	Subscribe() <-chan InboundEvent
	Close()
}
