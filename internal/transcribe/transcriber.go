// Package transcribe converts audio bytes to text through an ordered chain of
// speech-recognition backends.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"linelogger/internal/domain"
)

const backendTimeout = 3 * time.Minute

// Chain tries each backend in order and stops at the first non-empty
// transcript. Backend errors move the search to the next backend, except
// auth/permission errors, which abort the whole search: they indicate a
// systemic misconfiguration, not a per-attempt problem.
type Chain struct {
	backends []domain.SpeechBackend
	logger   *slog.Logger

	// stopOnNoSpeech stops the search at the first backend that completes
	// cleanly with zero results, instead of letting later backends try.
	stopOnNoSpeech bool
}

func NewChain(backends []domain.SpeechBackend, stopOnNoSpeech bool, logger *slog.Logger) *Chain {
	return &Chain{
		backends:       backends,
		stopOnNoSpeech: stopOnNoSpeech,
		logger:         logger,
	}
}

// Name describes the configured chain, for logs.
func (c *Chain) Name() string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Name()
	}
	return "chain(" + strings.Join(names, "→") + ")"
}

// Transcribe resolves every call to a TranscriptionResult; it never returns
// an error.
func (c *Chain) Transcribe(ctx context.Context, audio []byte) domain.TranscriptionResult {
	if len(c.backends) == 0 {
		return domain.TranscriptionResult{
			Status: domain.TranscriptionUnavailable,
			Reason: "no transcription backends configured",
		}
	}

	sawNoSpeech := false
	var lastErr error

	for i, b := range c.backends {
		attemptCtx, cancel := context.WithTimeout(ctx, backendTimeout)
		hits, err := b.Recognize(attemptCtx, audio)
		cancel()

		if err != nil {
			if errors.Is(err, domain.ErrAuth) {
				c.logger.Error("transcription aborted: auth failure",
					"backend", b.Name(),
					"error", err,
				)
				return domain.TranscriptionResult{
					Status: domain.TranscriptionUnavailable,
					Reason: fmt.Sprintf("auth failure at %s: %v", b.Name(), err),
				}
			}
			lastErr = err
			c.logger.Warn("transcription backend failed, trying next",
				"backend", b.Name(),
				"attempt", i+1,
				"error", err,
			)
			continue
		}

		if hit, ok := firstText(hits); ok {
			if i > 0 {
				c.logger.Info("transcription used fallback backend",
					"backend", b.Name(),
					"attempt", i+1,
				)
			}
			return domain.TranscriptionResult{
				Status:     domain.Transcribed,
				Text:       hit.Text,
				Confidence: hit.Confidence,
				Backend:    b.Name(),
			}
		}

		// Clean completion with zero results.
		sawNoSpeech = true
		c.logger.Info("backend found no speech", "backend", b.Name())
		if c.stopOnNoSpeech {
			break
		}
	}

	if sawNoSpeech {
		return domain.TranscriptionResult{Status: domain.NoSpeechDetected}
	}
	reason := "all transcription backends failed"
	if lastErr != nil {
		reason = fmt.Sprintf("all transcription backends failed, last: %v", lastErr)
	}
	return domain.TranscriptionResult{
		Status: domain.TranscriptionUnavailable,
		Reason: reason,
	}
}

func firstText(hits []domain.SpeechHit) (domain.SpeechHit, bool) {
	for _, h := range hits {
		if strings.TrimSpace(h.Text) != "" {
			return h, true
		}
	}
	return domain.SpeechHit{}, false
}
