package domain

// ArchiveStatus is the terminal state of one media-archive attempt.
type ArchiveStatus string

const (
	ArchiveUploaded    ArchiveStatus = "uploaded"
	ArchiveUnavailable ArchiveStatus = "unavailable"
)

// ArchiveResult is what the archiver resolves to. It never carries an error
// past the archiver boundary: failures become Unavailable with a reason.
type ArchiveResult struct {
	Status ArchiveStatus
	URL    string // set when Status == ArchiveUploaded
	Reason string // set when Status == ArchiveUnavailable (operator-facing)
}

func Uploaded(url string) ArchiveResult {
	return ArchiveResult{Status: ArchiveUploaded, URL: url}
}

func ArchiveFailed(reason string) ArchiveResult {
	return ArchiveResult{Status: ArchiveUnavailable, Reason: reason}
}

// TranscriptionStatus is the terminal state of a transcription search.
type TranscriptionStatus string

const (
	Transcribed              TranscriptionStatus = "transcribed"
	NoSpeechDetected         TranscriptionStatus = "no_speech"
	TranscriptionUnavailable TranscriptionStatus = "unavailable"
)

// TranscriptionResult is what the transcriber chain resolves to.
type TranscriptionResult struct {
	Status     TranscriptionStatus
	Text       string  // set when Status == Transcribed
	Confidence float64 // 0 when the backend reports none
	Backend    string  // which backend produced the text
	Reason     string  // set when Status == TranscriptionUnavailable
}

// ReplyStatus classifies the outcome reported back to the user.
type ReplyStatus string

const (
	ReplySuccess        ReplyStatus = "success"
	ReplyPartialFailure ReplyStatus = "partial_failure"
)

// ReplyOutcome drives the exact user-facing text. Message is always one of a
// small fixed set of templates; Cause is for operator logs only.
type ReplyOutcome struct {
	Status  ReplyStatus
	Message string
	Cause   string
}
