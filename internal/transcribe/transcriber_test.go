package transcribe

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"linelogger/internal/domain"
)

type fakeBackend struct {
	name  string
	hits  []domain.SpeechHit
	err   error
	calls int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Recognize(ctx context.Context, audio []byte) ([]domain.SpeechHit, error) {
	f.calls++
	return f.hits, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestTranscribe_FirstBackendSucceeds(t *testing.T) {
	first := &fakeBackend{name: "a", hits: []domain.SpeechHit{{Text: "你好", Confidence: 0.92}}}
	second := &fakeBackend{name: "b"}
	chain := NewChain([]domain.SpeechBackend{first, second}, false, testLogger())

	res := chain.Transcribe(context.Background(), []byte("audio"))
	if res.Status != domain.Transcribed {
		t.Fatalf("status = %v, want Transcribed", res.Status)
	}
	if res.Text != "你好" {
		t.Errorf("text = %q, want 你好", res.Text)
	}
	if res.Backend != "a" {
		t.Errorf("backend = %q, want a", res.Backend)
	}
	if second.calls != 0 {
		t.Errorf("second backend called %d times, want 0", second.calls)
	}
}

func TestTranscribe_FallsBackToSecondBackend(t *testing.T) {
	first := &fakeBackend{name: "a", err: errors.New("boom")}
	second := &fakeBackend{name: "b", hits: []domain.SpeechHit{{Text: "fallback"}}}
	chain := NewChain([]domain.SpeechBackend{first, second}, false, testLogger())

	res := chain.Transcribe(context.Background(), []byte("audio"))
	if res.Status != domain.Transcribed {
		t.Fatalf("status = %v, want Transcribed", res.Status)
	}
	if res.Backend != "b" {
		t.Errorf("backend = %q, want b", res.Backend)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", first.calls, second.calls)
	}
}

func TestTranscribe_AuthErrorAbortsSearch(t *testing.T) {
	first := &fakeBackend{name: "a", err: domain.AuthFailure(errors.New("bad key"))}
	second := &fakeBackend{name: "b", hits: []domain.SpeechHit{{Text: "never"}}}
	chain := NewChain([]domain.SpeechBackend{first, second}, false, testLogger())

	res := chain.Transcribe(context.Background(), []byte("audio"))
	if res.Status != domain.TranscriptionUnavailable {
		t.Fatalf("status = %v, want TranscriptionUnavailable", res.Status)
	}
	if second.calls != 0 {
		t.Errorf("second backend called %d times after auth failure, want 0", second.calls)
	}
}

func TestTranscribe_EmptyResultTriesNextBackend(t *testing.T) {
	first := &fakeBackend{name: "a"} // clean completion, no hits
	second := &fakeBackend{name: "b", hits: []domain.SpeechHit{{Text: "heard it"}}}
	chain := NewChain([]domain.SpeechBackend{first, second}, false, testLogger())

	res := chain.Transcribe(context.Background(), []byte("audio"))
	if res.Status != domain.Transcribed {
		t.Fatalf("status = %v, want Transcribed", res.Status)
	}
	if second.calls != 1 {
		t.Errorf("second backend called %d times, want 1", second.calls)
	}
}

func TestTranscribe_StopOnNoSpeech(t *testing.T) {
	first := &fakeBackend{name: "a"}
	second := &fakeBackend{name: "b", hits: []domain.SpeechHit{{Text: "never"}}}
	chain := NewChain([]domain.SpeechBackend{first, second}, true, testLogger())

	res := chain.Transcribe(context.Background(), []byte("audio"))
	if res.Status != domain.NoSpeechDetected {
		t.Fatalf("status = %v, want NoSpeechDetected", res.Status)
	}
	if second.calls != 0 {
		t.Errorf("second backend called %d times with stopOnNoSpeech, want 0", second.calls)
	}
}

func TestTranscribe_AllBackendsFail(t *testing.T) {
	first := &fakeBackend{name: "a", err: errors.New("net down")}
	second := &fakeBackend{name: "b", err: errors.New("net still down")}
	chain := NewChain([]domain.SpeechBackend{first, second}, false, testLogger())

	res := chain.Transcribe(context.Background(), []byte("audio"))
	if res.Status != domain.TranscriptionUnavailable {
		t.Fatalf("status = %v, want TranscriptionUnavailable", res.Status)
	}
	if res.Reason == "" {
		t.Error("reason is empty, want failure detail")
	}
}

func TestTranscribe_NoSpeechEverywhere(t *testing.T) {
	first := &fakeBackend{name: "a"}
	second := &fakeBackend{name: "b"}
	chain := NewChain([]domain.SpeechBackend{first, second}, false, testLogger())

	res := chain.Transcribe(context.Background(), []byte("audio"))
	if res.Status != domain.NoSpeechDetected {
		t.Fatalf("status = %v, want NoSpeechDetected", res.Status)
	}
}

func TestTranscribe_NoBackends(t *testing.T) {
	chain := NewChain(nil, false, testLogger())
	res := chain.Transcribe(context.Background(), []byte("audio"))
	if res.Status != domain.TranscriptionUnavailable {
		t.Fatalf("status = %v, want TranscriptionUnavailable", res.Status)
	}
}

func TestTranscribe_SkipsBlankHits(t *testing.T) {
	first := &fakeBackend{name: "a", hits: []domain.SpeechHit{{Text: "   "}, {Text: "real text", Confidence: 0.7}}}
	chain := NewChain([]domain.SpeechBackend{first}, false, testLogger())

	res := chain.Transcribe(context.Background(), []byte("audio"))
	if res.Status != domain.Transcribed {
		t.Fatalf("status = %v, want Transcribed", res.Status)
	}
	if res.Text != "real text" {
		t.Errorf("text = %q, want real text", res.Text)
	}
}
